package octokit

import (
	"context"
	"time"

	"github.com/fivetwenty-io/octokit/pkg/routes"
)

// Args are the named arguments of an operation call. The reserved key
// "headers" carries per-call header overrides.
type Args map[string]any

// Client is an immutable client snapshot. Every call returns a Result that
// embeds a new snapshot carrying the path values consumed by the call, so
// calls can be chained without repeating them.
type Client interface {
	// Groups returns the resource group names in sorted order.
	Groups() []string
	// Group returns the named resource group.
	Group(name string) (ResourceGroup, error)
	// Operation resolves an operation by id, snake-cased id, snake-cased
	// display name or alias.
	Operation(group, name string) (Operation, error)
	// Call validates args, builds and sends the request, and returns the
	// result. Validation failures return a *ParameterError before any I/O.
	Call(ctx context.Context, group, name string, args Args) (*Result, error)
	// Attributes returns a copy of the path values remembered for chaining.
	Attributes() map[string]any
	// Headers returns a copy of the base headers.
	Headers() map[string]string
	// WithHeaders returns a new snapshot with the given base headers added.
	WithHeaders(headers map[string]string) Client
	// Auth returns the authentication scheme fixed at construction.
	Auth() AuthScheme
}

// ResourceGroup is one generated sub-client, e.g. "issues" or "pulls".
type ResourceGroup interface {
	Name() string
	// Operations returns the canonical operation ids in declared order.
	Operations() []string
	Operation(name string) (Operation, error)
	Call(ctx context.Context, name string, args Args) (*Result, error)
}

// Operation is a callable bound to one route definition.
type Operation interface {
	ID() string
	Name() string
	Group() string
	Method() string
	URL() string
	// Doc returns the description followed by the documentation URL.
	Doc() string
	Keys() []string
	Definition() *routes.Operation
	Call(ctx context.Context, args Args) (*Result, error)
}

// AuthScheme selects how requests are authenticated.
type AuthScheme string

// Supported authentication schemes.
const (
	AuthNone         AuthScheme = ""
	AuthBasic        AuthScheme = "basic"
	AuthToken        AuthScheme = "token"
	AuthInstallation AuthScheme = "installation"
	AuthApp          AuthScheme = "app"
)

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Credentials holds the inputs of every authentication scheme. Which fields
// are required depends on the scheme; missing ones fail client construction.
type Credentials struct {
	Username   string
	Password   string
	Token      string
	AppID      string
	PrivateKey []byte

	// InstallationToken is a previously issued installation token. It is
	// reused instead of a new exchange while InstallationTokenExpiry is in
	// the future.
	InstallationToken       string
	InstallationTokenExpiry time.Time
}

// TokenPersister saves installation tokens obtained during construction.
type TokenPersister interface {
	UpdateInstallationToken(appID, token string, expiresAt time.Time) error
}

// Config represents client configuration for building an octokit.Client.
//
// # Route sets
//
// Operations are generated from a route specification. Specification wins
// when set; otherwise Routes selects a route set from RouteCatalog (or the
// embedded catalog), defaulting to "api.github.com".
//
// # Authentication
//
// Auth selects the scheme once for the client's lifetime:
//   - basic: Username and Password are sent as transport-level basic auth.
//   - token: Token is sent as "Authorization: token <token>".
//   - installation: AppID and PrivateKey mint a JWT that is exchanged for an
//     installation token during construction. Tokens are not refreshed.
//   - app: AppID and PrivateKey mint a JWT sent as a Bearer token.
//
// # Timeouts, retries and rate limits
//
// Per-request deadlines should come from the context. RetryMax,
// RetryWaitMin and RetryWaitMax tune retries of 5xx and 429 responses.
// RateLimit enables a client-side limiter in requests per second.
type Config struct {
	// BaseURL of the REST API. Defaults to https://api.github.com.
	BaseURL string
	// Routes is the route-set identifier, e.g. "ghe-2.18".
	Routes string
	// RouteCatalog overrides the embedded route sets.
	RouteCatalog routes.Catalog
	// Specification overrides route-set selection entirely.
	Specification routes.Specification

	// Auth is the authentication scheme.
	Auth AuthScheme
	// Credentials for the selected scheme.
	Credentials Credentials
	// TokenPersister receives newly exchanged installation tokens.
	TokenPersister TokenPersister

	// Headers are added to the base headers of every request.
	Headers map[string]string
	// UserAgent overrides the default User-Agent header.
	UserAgent string
	// SkipTLSVerify disables certificate checks, e.g. for an Enterprise
	// Server with a self-signed certificate. Development use only.
	SkipTLSVerify bool

	// HTTPTimeout is the transport timeout for a single attempt.
	HTTPTimeout time.Duration
	// RetryMax is the maximum number of retries. Zero uses the default.
	RetryMax int
	// RetryWaitMin is the minimum backoff between retries.
	RetryWaitMin time.Duration
	// RetryWaitMax is the maximum backoff between retries.
	RetryWaitMax time.Duration
	// RateLimit is the client-side request rate in requests per second.
	RateLimit float64

	// Debug enables verbose HTTP request/response logging when a Logger is provided.
	Debug bool
	// Logger is an optional structured logger.
	Logger Logger

	// Cache enables ETag conditional requests backed by the given cache.
	Cache Cache
	// CacheOptions tunes Cache. Nil uses DefaultCacheOptions.
	CacheOptions *CacheOptions
	// Metrics records request counts and latencies when set.
	Metrics *Metrics
	// Interceptors run around every transport call.
	Interceptors *InterceptorChain
}
