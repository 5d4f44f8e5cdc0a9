// Package auth resolves an authentication scheme and credentials into a
// Strategy that signs outgoing requests.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/fivetwenty-io/octokit/internal/constants"
	ghhttp "github.com/fivetwenty-io/octokit/internal/http"
	"github.com/fivetwenty-io/octokit/pkg/octokit"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		return strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	})

	return v
}

type basicCredentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenCredentials struct {
	Token string `json:"token" validate:"required"`
}

type appCredentials struct {
	AppID      string `json:"app_id"      validate:"required,numeric"`
	PrivateKey []byte `json:"private_key" validate:"required"`
}

// Strategy authenticates requests for one scheme. It is safe for concurrent
// use and shared by every snapshot of a client.
type Strategy struct {
	scheme         octokit.AuthScheme
	username       string
	password       string
	appID          string
	privateKey     []byte
	installationID int64
	store          *TokenStore
	now            func() time.Time
	mu             sync.Mutex
}

type setupOptions struct {
	transport *ghhttp.Client
	now       func() time.Time
	tokens    *ConfigTokenManager
	logger    octokit.Logger
}

// Option configures Setup.
type Option func(*setupOptions)

// WithTransport sets the client used for the installation token exchange.
func WithTransport(transport *ghhttp.Client) Option {
	return func(o *setupOptions) {
		o.transport = transport
	}
}

// WithClock overrides the time source used for app assertions.
func WithClock(now func() time.Time) Option {
	return func(o *setupOptions) {
		o.now = now
	}
}

// WithConfigTokenManager reuses and persists installation tokens.
func WithConfigTokenManager(tokens *ConfigTokenManager) Option {
	return func(o *setupOptions) {
		o.tokens = tokens
	}
}

// WithLogger reports non-fatal setup problems, such as a token that could
// not be persisted.
func WithLogger(logger octokit.Logger) Option {
	return func(o *setupOptions) {
		o.logger = logger
	}
}

// Setup validates creds for scheme and prepares a Strategy. The installation
// scheme exchanges an app assertion for an installation token during setup.
func Setup(ctx context.Context, scheme octokit.AuthScheme, creds octokit.Credentials, opts ...Option) (*Strategy, error) {
	options := &setupOptions{now: time.Now}
	for _, opt := range opts {
		opt(options)
	}

	strategy := &Strategy{
		scheme: scheme,
		store:  NewTokenStore(),
		now:    options.now,
	}

	switch scheme {
	case octokit.AuthNone:
		return strategy, nil

	case octokit.AuthBasic:
		err := check(scheme, &basicCredentials{Username: creds.Username, Password: creds.Password})
		if err != nil {
			return nil, err
		}

		strategy.username = creds.Username
		strategy.password = creds.Password

	case octokit.AuthToken:
		err := check(scheme, &tokenCredentials{Token: creds.Token})
		if err != nil {
			return nil, err
		}

		strategy.store.Set(&Token{AccessToken: creds.Token, TokenType: constants.TokenTypeToken})

	case octokit.AuthApp:
		err := check(scheme, &appCredentials{AppID: creds.AppID, PrivateKey: creds.PrivateKey})
		if err != nil {
			return nil, err
		}

		strategy.appID = creds.AppID
		strategy.privateKey = creds.PrivateKey

		token, err := appToken(creds.AppID, creds.PrivateKey, strategy.now())
		if err != nil {
			return nil, &octokit.AuthError{Scheme: string(scheme), Err: err}
		}

		strategy.store.Set(token)

	case octokit.AuthInstallation:
		err := check(scheme, &appCredentials{AppID: creds.AppID, PrivateKey: creds.PrivateKey})
		if err != nil {
			return nil, err
		}

		strategy.appID = creds.AppID

		err = strategy.setupInstallation(ctx, creds, options)
		if err != nil {
			return nil, &octokit.AuthError{Scheme: string(scheme), Err: err}
		}

	default:
		return nil, fmt.Errorf("%w: %s", octokit.ErrUnsupportedAuthScheme, scheme)
	}

	return strategy, nil
}

func (s *Strategy) setupInstallation(ctx context.Context, creds octokit.Credentials, options *setupOptions) error {
	if cached := options.tokens.Cached(); cached != nil {
		s.store.Set(cached)

		return nil
	}

	if options.transport == nil {
		options.transport = ghhttp.NewClient(constants.DefaultBaseURL, nil)
	}

	assertion, err := NewJWT(creds.AppID, creds.PrivateKey, s.now())
	if err != nil {
		return err
	}

	token, installationID, err := ExchangeInstallationToken(ctx, options.transport, creds.AppID, assertion)
	if err != nil {
		return err
	}

	s.installationID = installationID
	s.store.Set(token)

	err = options.tokens.Save(token)
	if err != nil && options.logger != nil {
		options.logger.Warn("Failed to persist installation token", map[string]interface{}{
			"app_id": creds.AppID,
			"error":  err.Error(),
		})
	}

	return nil
}

func check(scheme octokit.AuthScheme, creds interface{}) error {
	err := validate.Struct(creds)
	if err == nil {
		return nil
	}

	var valErrs validator.ValidationErrors
	if errors.As(err, &valErrs) && len(valErrs) > 0 {
		field := valErrs[0]
		if field.Tag() == "required" {
			err = fmt.Errorf("%w: %s", octokit.ErrMissingCredential, field.Field())
		} else {
			err = fmt.Errorf("%w: %s must be %s", octokit.ErrInvalidCredential, field.Field(), field.Tag())
		}
	}

	return &octokit.AuthError{Scheme: string(scheme), Err: err}
}

// Scheme returns the authentication scheme.
func (s *Strategy) Scheme() octokit.AuthScheme {
	return s.scheme
}

// InstallationID returns the installation chosen during setup, or zero.
func (s *Strategy) InstallationID() int64 {
	return s.installationID
}

// Headers returns base headers the scheme requires.
func (s *Strategy) Headers() map[string]string {
	switch s.scheme {
	case octokit.AuthApp, octokit.AuthInstallation:
		return map[string]string{constants.HeaderAccept: constants.MediaTypeMachineManPreview}
	default:
		return nil
	}
}

// Token returns the current token for token based schemes. App assertions
// are re-signed once they expire.
func (s *Strategy) Token() (*Token, error) {
	switch s.scheme {
	case octokit.AuthToken, octokit.AuthInstallation:
		return s.store.Get(), nil

	case octokit.AuthApp:
		s.mu.Lock()
		defer s.mu.Unlock()

		if token := s.store.Get(); token.Valid() {
			return token, nil
		}

		token, err := appToken(s.appID, s.privateKey, s.now())
		if err != nil {
			return nil, err
		}

		s.store.Set(token)

		return token, nil

	default:
		return nil, nil
	}
}

// Authenticate implements ghhttp.Authenticator.
func (s *Strategy) Authenticate(ctx context.Context, req *http.Request) error {
	switch s.scheme {
	case octokit.AuthBasic:
		req.SetBasicAuth(s.username, s.password)

		return nil

	case octokit.AuthToken, octokit.AuthInstallation, octokit.AuthApp:
		token, err := s.Token()
		if err != nil {
			return err
		}

		if token == nil {
			return fmt.Errorf("%w: token", octokit.ErrMissingCredential)
		}

		token.OAuth2().SetAuthHeader(req)

		return nil

	default:
		return nil
	}
}
