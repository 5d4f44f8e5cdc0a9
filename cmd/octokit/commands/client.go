package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fivetwenty-io/octokit/internal/constants"
	"github.com/fivetwenty-io/octokit/pkg/ghclient"
	"github.com/fivetwenty-io/octokit/pkg/octokit"
	"github.com/fivetwenty-io/octokit/pkg/routes"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// CreateClient builds a client from the merged flag, environment and file
// configuration. specFile, when set, replaces the embedded route sets.
func CreateClient(ctx context.Context, specFile string) (octokit.Client, error) {
	config := loadConfig()

	clientConfig, err := buildClientConfig(ctx, config)
	if err != nil {
		return nil, err
	}

	if specFile != "" {
		spec, err := loadSpecification(specFile)
		if err != nil {
			return nil, err
		}

		clientConfig.Specification = spec
	}

	client, err := ghclient.New(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub client: %w", err)
	}

	return client, nil
}

func buildClientConfig(ctx context.Context, config *Config) (*octokit.Config, error) {
	clientConfig := &octokit.Config{
		BaseURL:       config.BaseURL,
		Routes:        config.Routes,
		Auth:          octokit.AuthScheme(config.Auth),
		SkipTLSVerify: config.SkipSSLValidation,
		Credentials: octokit.Credentials{
			Username:          config.Username,
			Token:             config.Token,
			AppID:             config.AppID,
			InstallationToken: config.InstallationToken,
		},
	}

	if config.InstallationTokenExpiresAt != nil {
		clientConfig.Credentials.InstallationTokenExpiry = *config.InstallationTokenExpiresAt
	}

	if viper.GetBool("verbose") {
		logger := logrus.New()
		logger.SetOutput(os.Stderr)
		logger.SetLevel(logrus.DebugLevel)

		clientConfig.Logger = octokit.NewLogrusLogger(logger)
		clientConfig.Debug = true
	}

	cache, err := buildCache(ctx, config)
	if err != nil {
		return nil, err
	}

	clientConfig.Cache = cache

	switch clientConfig.Auth {
	case octokit.AuthApp, octokit.AuthInstallation:
		key, err := readPrivateKey(config.PrivateKeyPath)
		if err != nil {
			return nil, err
		}

		clientConfig.Credentials.PrivateKey = key
		clientConfig.TokenPersister = NewConfigPersister()
	case octokit.AuthBasic:
		password, err := readPassword()
		if err != nil {
			return nil, err
		}

		clientConfig.Credentials.Password = password
	case octokit.AuthNone, octokit.AuthToken:
	}

	return clientConfig, nil
}

// buildCache returns the ETag cache selected by the "cache" key, or nil when
// caching is off. "nats" and "tiered" share entries through cache_url.
func buildCache(ctx context.Context, config *Config) (octokit.Cache, error) {
	cacheType, err := octokit.ParseCacheType(config.Cache)
	if err != nil {
		return nil, err
	}

	if cacheType == octokit.CacheTypeNone {
		return nil, nil //nolint:nilnil // no cache configured
	}

	cacheConfig := octokit.DefaultCacheConfig()
	cacheConfig.Type = cacheType

	if config.CacheURL != "" {
		cacheConfig.NATS = &octokit.NATSKVConfig{URL: config.CacheURL}
	}

	cache, err := octokit.NewCacheFromConfig(ctx, cacheConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create response cache: %w", err)
	}

	return cache, nil
}

func readPassword() (string, error) {
	if password := os.Getenv("OCTOKIT_PASSWORD"); password != "" {
		return password, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	fmt.Fprintln(os.Stderr)

	return string(bytePassword), nil
}

func readPrivateKey(path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: no private key path configured", constants.ErrPrivateKeyUnreadable)
	}

	err := validateFilePath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", constants.ErrPrivateKeyUnreadable, err)
	}

	return data, nil
}

// validateFilePath validates that a file path is safe to read.
func validateFilePath(path string) error {
	cleanPath := filepath.Clean(path)

	if filepath.IsAbs(path) {
		if cleanPath != path {
			return constants.ErrDirectoryTraversal
		}
	} else if strings.HasPrefix(cleanPath, "..") {
		return constants.ErrDirectoryTraversal
	}

	_, err := os.Stat(cleanPath)
	if err != nil {
		return fmt.Errorf("file not accessible: %w", err)
	}

	return nil
}

// loadSpecification reads a route specification in the native YAML/JSON
// format, or an OpenAPI 3 description when the document says so.
func loadSpecification(path string) (routes.Specification, error) {
	err := validateFilePath(path)
	if err != nil {
		return nil, fmt.Errorf("invalid spec file: %w", err)
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read spec file: %w", err)
	}

	if isOpenAPIDocument(data) {
		spec, err := routes.FromOpenAPI(data)
		if err != nil {
			return nil, fmt.Errorf("failed to convert OpenAPI document: %w", err)
		}

		return spec, nil
	}

	spec, err := routes.LoadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to load spec file: %w", err)
	}

	return spec, nil
}

func isOpenAPIDocument(data []byte) bool {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}

	return strings.Contains(string(head), "openapi")
}

func expiryString(t *time.Time) string {
	if t == nil {
		return constants.NotAvailable
	}

	return t.Format(time.RFC3339)
}
