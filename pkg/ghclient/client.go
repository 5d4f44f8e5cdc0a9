// Package ghclient provides the main entry point for creating GitHub REST
// API clients.
package ghclient

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fivetwenty-io/octokit/internal/client"
	"github.com/fivetwenty-io/octokit/pkg/octokit"
)

// New creates a client from config. BaseURL may omit its scheme, in which
// case https is assumed.
func New(ctx context.Context, config *octokit.Config) (octokit.Client, error) {
	if config == nil {
		return nil, octokit.ErrConfigRequired
	}

	if config.BaseURL != "" {
		config.BaseURL = normalizeEndpoint(config.BaseURL)
	}

	if config.SkipTLSVerify && !isDevelopmentEnvironment() {
		return nil, fmt.Errorf("%w (set OCTOKIT_DEV_MODE=true)", octokit.ErrSkipTLSOnlyInDev)
	}

	c, err := client.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return c, nil
}

// normalizeEndpoint trims a trailing slash and defaults the scheme to https.
func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSuffix(strings.TrimSpace(endpoint), "/")
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	return endpoint
}

// isDevelopmentEnvironment checks if we're in a development environment.
func isDevelopmentEnvironment() bool {
	devMode := os.Getenv("OCTOKIT_DEV_MODE")

	return devMode == "true" || devMode == "1"
}

// NewAnonymous creates an unauthenticated client for api.github.com.
func NewAnonymous(ctx context.Context) (octokit.Client, error) {
	return New(ctx, &octokit.Config{})
}

// NewWithToken creates a client that sends a personal access or OAuth token.
func NewWithToken(ctx context.Context, token string) (octokit.Client, error) {
	return New(ctx, &octokit.Config{
		Auth:        octokit.AuthToken,
		Credentials: octokit.Credentials{Token: token},
	})
}

// NewWithBasicAuth creates a client using username/password authentication.
func NewWithBasicAuth(ctx context.Context, username, password string) (octokit.Client, error) {
	return New(ctx, &octokit.Config{
		Auth:        octokit.AuthBasic,
		Credentials: octokit.Credentials{Username: username, Password: password},
	})
}

// NewWithApp creates a client authenticated as a GitHub App.
func NewWithApp(ctx context.Context, appID string, privateKey []byte) (octokit.Client, error) {
	return New(ctx, &octokit.Config{
		Auth:        octokit.AuthApp,
		Credentials: octokit.Credentials{AppID: appID, PrivateKey: privateKey},
	})
}

// NewWithInstallation creates a client authenticated as the app's
// installation. The installation token is exchanged before returning.
func NewWithInstallation(ctx context.Context, appID string, privateKey []byte) (octokit.Client, error) {
	return New(ctx, &octokit.Config{
		Auth:        octokit.AuthInstallation,
		Credentials: octokit.Credentials{AppID: appID, PrivateKey: privateKey},
	})
}

// NewEnterprise creates a token client for a GitHub Enterprise Server
// endpoint such as "github.example.com/api/v3" using the named route set.
func NewEnterprise(ctx context.Context, endpoint, routeSet, token string) (octokit.Client, error) {
	config := &octokit.Config{
		BaseURL: endpoint,
		Routes:  routeSet,
	}

	if token != "" {
		config.Auth = octokit.AuthToken
		config.Credentials.Token = token
	}

	return New(ctx, config)
}
