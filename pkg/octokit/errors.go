package octokit

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ParameterError reports an argument that failed validation. It is always
// returned before any request is dispatched.
type ParameterError struct {
	Parameter string
	Message   string
}

// Error implements the error interface.
func (e *ParameterError) Error() string {
	return e.Message
}

// NewParameterError creates a ParameterError with a formatted message.
func NewParameterError(parameter, format string, args ...any) *ParameterError {
	return &ParameterError{Parameter: parameter, Message: fmt.Sprintf(format, args...)}
}

// IsParameterError reports whether err is a ParameterError.
func IsParameterError(err error) bool {
	paramErr := &ParameterError{}

	return errors.As(err, &paramErr)
}

// FieldError is one entry of a GitHub validation error response.
type FieldError struct {
	Resource string `json:"resource" yaml:"resource"`
	Field    string `json:"field"    yaml:"field"`
	Code     string `json:"code"     yaml:"code"`
	Message  string `json:"message"  yaml:"message"`
}

// ResponseError represents an error response from the GitHub API.
type ResponseError struct {
	StatusCode       int          `json:"-"                           yaml:"status_code"`
	Message          string       `json:"message"                     yaml:"message"`
	DocumentationURL string       `json:"documentation_url,omitempty" yaml:"documentation_url,omitempty"`
	Errors           []FieldError `json:"errors,omitempty"            yaml:"errors,omitempty"`
}

// Error implements the error interface.
func (e *ResponseError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}

	if len(e.Errors) == 0 {
		return fmt.Sprintf("%s (status: %d)", msg, e.StatusCode)
	}

	details := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		if fe.Message != "" {
			details = append(details, fe.Message)

			continue
		}

		details = append(details, fmt.Sprintf("%s.%s %s", fe.Resource, fe.Field, fe.Code))
	}

	return fmt.Sprintf("%s (status: %d): %s", msg, e.StatusCode, strings.Join(details, "; "))
}

// ParseResponseError builds a ResponseError from a status code and body. A
// body that is not a GitHub error document still yields an error carrying
// the status.
func ParseResponseError(statusCode int, data []byte) *ResponseError {
	errResp := &ResponseError{}

	if len(data) > 0 {
		_ = json.Unmarshal(data, errResp)
	}

	errResp.StatusCode = statusCode

	return errResp
}

func statusOf(err error) int {
	errResp := &ResponseError{}
	if errors.As(err, &errResp) {
		return errResp.StatusCode
	}

	return 0
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	return statusOf(err) == http.StatusNotFound
}

// IsUnauthorized checks if the error is an unauthorized error.
func IsUnauthorized(err error) bool {
	return statusOf(err) == http.StatusUnauthorized
}

// IsForbidden checks if the error is a forbidden error.
func IsForbidden(err error) bool {
	return statusOf(err) == http.StatusForbidden
}

// IsRateLimited checks if the error reports an exhausted rate limit.
func IsRateLimited(err error) bool {
	errResp := &ResponseError{}
	if !errors.As(err, &errResp) {
		return false
	}

	if errResp.StatusCode == http.StatusTooManyRequests {
		return true
	}

	return errResp.StatusCode == http.StatusForbidden &&
		strings.Contains(strings.ToLower(errResp.Message), "rate limit")
}

// AuthError reports an authentication setup failure at construction time.
type AuthError struct {
	Scheme string
	Err    error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("%s authentication: %v", e.Scheme, e.Err)
}

// Unwrap returns the underlying error.
func (e *AuthError) Unwrap() error {
	return e.Err
}

// Static errors for err113 compliance.
var (
	ErrConfigRequired         = errors.New("config is required")
	ErrMissingCredential      = errors.New("missing required credential")
	ErrInvalidCredential      = errors.New("invalid credential")
	ErrUnsupportedAuthScheme  = errors.New("unsupported authentication scheme")
	ErrNoMatchingInstallation = errors.New("no installation found for app")
	ErrUnknownGroup           = errors.New("unknown resource group")
	ErrUnknownOperation       = errors.New("unknown operation")
	ErrCircuitBreakerOpen     = errors.New("circuit breaker is open")
	ErrNotJSON                = errors.New("response body is not JSON")
	ErrKeyNotFound            = errors.New("key not found")
	ErrEntryExpired           = errors.New("entry expired")
	ErrInvalidPath            = errors.New("invalid JSONPath expression")
	ErrSkipTLSOnlyInDev       = errors.New("skipping TLS verification is only allowed in development mode")
)
