package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// API endpoints and route sets.
const (
	// DefaultBaseURL is the public GitHub REST API endpoint.
	DefaultBaseURL = "https://api.github.com"

	// DefaultRouteSet is the route specification used when none is configured.
	DefaultRouteSet = "api.github.com"

	// DefaultUserAgent is sent when the caller does not override it.
	DefaultUserAgent = "octokit-go"
)

// Media types and headers.
const (
	// MediaTypeV3 is the default accept header for the REST API.
	MediaTypeV3 = "application/vnd.github.v3+json"

	// MediaTypeMachineManPreview is required by app and installation endpoints.
	MediaTypeMachineManPreview = "application/vnd.github.machine-man-preview+json"

	// MediaTypeJSON is the request content type for JSON bodies.
	MediaTypeJSON = "application/json"

	// HeaderAccept is the accept header key as stored in base headers.
	HeaderAccept = "accept"

	// HeaderContentType is the content type header key.
	HeaderContentType = "Content-Type"

	// HeaderAuthorization carries credentials.
	HeaderAuthorization = "Authorization"

	// HeaderLink carries pagination relations.
	HeaderLink = "Link"

	// HeaderETag is used for conditional requests.
	HeaderETag = "ETag"

	// HeaderIfNoneMatch is sent when a cached ETag is available.
	HeaderIfNoneMatch = "If-None-Match"

	// HeaderFromCache marks responses served from the ETag cache.
	HeaderFromCache = "X-From-Cache"

	// HeaderRateLimitRemaining reports the remaining request budget.
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
)

// Reserved call arguments.
const (
	// ArgHeaders carries per-call header overrides and is never validated.
	ArgHeaders = "headers"

	// ArgPage is the page number argument used by pagination.
	ArgPage = "page"
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout is used for quick operations.
	ShortHTTPTimeout = 10 * time.Second

	// WebhookReadTimeout bounds webhook request reads in the CLI server.
	WebhookReadTimeout = 15 * time.Second
)

// Retry limits.
const (
	// DefaultRetryMax is the default maximum number of retries.
	DefaultRetryMax = 5

	// LowRetryMax is used for operations that should retry fewer times.
	LowRetryMax = 3

	// DefaultRetryWaitMin is the minimum wait time between retries.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait time between retries.
	DefaultRetryWaitMax = 10 * time.Second

	// ExtendedRetryWaitMax is used for operations that need longer waits.
	ExtendedRetryWaitMax = 30 * time.Second
)

// App authentication.
const (
	// AppTokenLifetime is the lifetime of a signed app assertion.
	AppTokenLifetime = 9 * time.Minute

	// TokenTypeToken is the authorization scheme for OAuth and installation tokens.
	TokenTypeToken = "token"

	// TokenTypeBearer is the authorization scheme for app assertions.
	TokenTypeBearer = "Bearer"

	// TokenExpiryBuffer treats tokens this close to expiry as expired.
	TokenExpiryBuffer = 30 * time.Second
)

// Circuit breaker defaults.
const (
	// CircuitBreakerThreshold is the number of failures before opening.
	CircuitBreakerThreshold = 5

	// CircuitBreakerTimeout is the time before trying again.
	CircuitBreakerTimeout = 60 * time.Second

	// CircuitBreakerSuccessThreshold is the number of successes to close.
	CircuitBreakerSuccessThreshold = 2

	// StatusClosed indicates a closed circuit.
	StatusClosed = "closed"

	// StatusOpen indicates an open circuit.
	StatusOpen = "open"

	// StatusHalfOpen indicates a half-open circuit.
	StatusHalfOpen = "half-open"
)

// Boolean string constants.
const (
	// BooleanTrue string representation.
	BooleanTrue = "true"

	// BooleanFalse string representation.
	BooleanFalse = "false"
)

// Format constants.
const (
	// FormatJSON for JSON output format.
	FormatJSON = "json"

	// FormatYAML for YAML output format.
	FormatYAML = "yaml"

	// FormatTable for table output format.
	FormatTable = "table"

	// JSONIndentSize is the number of spaces for JSON indentation.
	JSONIndentSize = 2
)

// Cache sizing.
const (
	// DefaultCacheSize is the default cache size limit.
	DefaultCacheSize = 1000

	// DefaultCacheTTL is the default cache time-to-live.
	DefaultCacheTTL = 5 * time.Minute

	// DefaultCacheCleanupInterval is how often expired memory entries are swept.
	DefaultCacheCleanupInterval = time.Minute

	// MaxCacheValueSize is the maximum size for cached values (1MB).
	MaxCacheValueSize = 1024 * 1024

	// DefaultNATSBucket is the KV bucket used for the response cache.
	DefaultNATSBucket = "octokit-responses"
)

// Batch execution.
const (
	// DefaultBatchConcurrency is the number of calls a batch runs at once.
	DefaultBatchConcurrency = 5
)

// Pagination.
const (
	// FirstPage is the page requested when the caller does not choose one.
	FirstPage = 1

	// StandardPageSize is the common page size for API responses.
	StandardPageSize = 30
)

// Display constants.
const (
	// NotAvailable is used when information is not available.
	NotAvailable = "N/A"

	// MaskedSecret is used to hide sensitive information.
	MaskedSecret = "***"

	// StringTruncationLength is the default length for truncating strings.
	StringTruncationLength = 80
)
