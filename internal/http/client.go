package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fivetwenty-io/octokit/internal/constants"
	"github.com/fivetwenty-io/octokit/pkg/octokit"
	"github.com/hashicorp/go-retryablehttp"
)

// Authenticator adds credentials to an outgoing request.
type Authenticator interface {
	Authenticate(ctx context.Context, req *http.Request) error
}

// Logger is the logging interface used by the transport.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Request is one HTTP exchange with the API.
type Request struct {
	Method string
	// Path is joined to the base URL unless it is already absolute.
	Path    string
	Query   url.Values
	Headers http.Header
	// Body is sent as-is when it is a []byte and JSON encoded otherwise.
	Body interface{}
}

// Response is a fully read API response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	FromCache  bool
}

// Client is a retrying HTTP client bound to one API base URL.
type Client struct {
	baseURL      string
	httpClient   *retryablehttp.Client
	auth         Authenticator
	logger       Logger
	debug        bool
	userAgent    string
	cache        octokit.Cache
	cacheOptions *octokit.CacheOptions
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger for request logging and retry notices.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
		c.httpClient.Logger = &leveledLogger{logger: logger}
	}
}

// WithDebug logs every request and response.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithRetryConfig sets retry attempts and backoff bounds.
func WithRetryConfig(maxRetries int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.httpClient.RetryMax = maxRetries
		c.httpClient.RetryWaitMin = waitMin
		c.httpClient.RetryWaitMax = waitMax
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient.HTTPClient = httpClient
	}
}

// WithTimeout bounds each attempt.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.HTTPClient.Timeout = timeout
	}
}

// WithCache enables conditional GET requests backed by cache.
func WithCache(cache octokit.Cache, options *octokit.CacheOptions) Option {
	return func(c *Client) {
		if options == nil {
			options = octokit.DefaultCacheOptions()
		}

		c.cache = cache
		c.cacheOptions = options
	}
}

// NewClient creates a client for baseURL. auth may be nil for anonymous
// access.
func NewClient(baseURL string, auth Authenticator, opts ...Option) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = constants.DefaultRetryMax
	retryClient.RetryWaitMin = constants.DefaultRetryWaitMin
	retryClient.RetryWaitMax = constants.DefaultRetryWaitMax
	retryClient.HTTPClient.Timeout = constants.DefaultHTTPTimeout
	retryClient.Logger = nil
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	client := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: retryClient,
		auth:       auth,
		userAgent:  constants.DefaultUserAgent,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// StandardClient returns a plain http.Client that retries through this
// client's policy.
func (c *Client) StandardClient() *http.Client {
	return c.httpClient.StandardClient()
}

// Do sends req. For error statuses both the response and an
// *octokit.ResponseError are returned.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	fullURL := c.resolve(req.Path)

	body, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}

	var rawBody interface{}
	if body != nil {
		rawBody = body
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, fullURL, rawBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if len(req.Query) > 0 {
		httpReq.URL.RawQuery = req.Query.Encode()
	}

	httpReq.Header.Set("User-Agent", c.userAgent)

	if body != nil {
		httpReq.Header.Set(constants.HeaderContentType, constants.MediaTypeJSON)
	}

	for name, values := range req.Headers {
		for i, value := range values {
			if i == 0 {
				httpReq.Header.Set(name, value)
			} else {
				httpReq.Header.Add(name, value)
			}
		}
	}

	if httpReq.Header.Get(constants.HeaderAccept) == "" {
		httpReq.Header.Set(constants.HeaderAccept, constants.MediaTypeV3)
	}

	if c.auth != nil {
		err = c.auth.Authenticate(ctx, httpReq.Request)
		if err != nil {
			return nil, fmt.Errorf("failed to authenticate request: %w", err)
		}
	}

	cacheKey, cached := c.lookupCache(ctx, req.Method, fullURL, req.Query)
	if cached != nil {
		httpReq.Header.Set(constants.HeaderIfNoneMatch, cached.ETag)
	}

	start := time.Now()

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Request", map[string]interface{}{
			"method": req.Method,
			"url":    httpReq.URL.String(),
		})
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       respBody,
	}

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Response", map[string]interface{}{
			"status":   httpResp.StatusCode,
			"url":      httpReq.URL.String(),
			"duration": time.Since(start).String(),
		})
	}

	if httpResp.StatusCode == http.StatusNotModified && cached != nil {
		return fromCache(cached), nil
	}

	if httpResp.StatusCode >= http.StatusBadRequest {
		return resp, octokit.ParseResponseError(httpResp.StatusCode, respBody)
	}

	c.storeCache(ctx, cacheKey, resp)

	return resp, nil
}

// Get sends a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post sends a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
}

// Put sends a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPut, Path: path, Body: body})
}

// Patch sends a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPatch, Path: path, Body: body})
}

// Delete sends a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: path})
}

func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return c.baseURL + path
}

func (c *Client) lookupCache(ctx context.Context, method, fullURL string, query url.Values) (string, *octokit.CacheEntry) {
	if c.cache == nil || method != http.MethodGet {
		return "", nil
	}

	key := octokit.CacheKey(method, fullURL, query)

	if !c.cacheOptions.EnableETags {
		return key, nil
	}

	entry, err := c.cache.Get(ctx, key)
	if err != nil || entry.ETag == "" {
		return key, nil
	}

	return key, entry
}

func (c *Client) storeCache(ctx context.Context, key string, resp *Response) {
	if key == "" || resp.StatusCode != http.StatusOK {
		return
	}

	etag := resp.Headers.Get(constants.HeaderETag)
	if etag == "" {
		return
	}

	now := time.Now()

	err := c.cache.Set(ctx, key, &octokit.CacheEntry{
		Data:       resp.Body,
		Headers:    resp.Headers.Clone(),
		StatusCode: resp.StatusCode,
		ETag:       etag,
		CreatedAt:  now,
		ExpiresAt:  now.Add(c.cacheOptions.TTL),
	})
	if err != nil && c.logger != nil {
		c.logger.Warn("failed to cache response", map[string]interface{}{"key": key, "error": err.Error()})
	}
}

func fromCache(entry *octokit.CacheEntry) *Response {
	headers := entry.Headers.Clone()
	if headers == nil {
		headers = make(http.Header)
	}

	headers.Set(constants.HeaderFromCache, "1")

	return &Response{
		StatusCode: entry.StatusCode,
		Headers:    headers,
		Body:       entry.Data,
		FromCache:  true,
	}
}

func encodeBody(body interface{}) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	}

	var buf bytes.Buffer

	err := json.NewEncoder(&buf).Encode(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}

	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// leveledLogger adapts Logger to retryablehttp.LeveledLogger.
type leveledLogger struct {
	logger Logger
}

func (l *leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, fields(keysAndValues))
}

func (l *leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg, fields(keysAndValues))
}

func (l *leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, fields(keysAndValues))
}

func (l *leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, fields(keysAndValues))
}

func fields(keysAndValues []interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(keysAndValues)/2)

	for i := 0; i+1 < len(keysAndValues); i += 2 {
		out[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}

	return out
}
