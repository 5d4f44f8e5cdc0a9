// Package client implements octokit.Client on top of a route specification.
package client

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"strconv"
	"strings"

	"github.com/fivetwenty-io/octokit/internal/auth"
	"github.com/fivetwenty-io/octokit/internal/constants"
	ghhttp "github.com/fivetwenty-io/octokit/internal/http"
	"github.com/fivetwenty-io/octokit/internal/params"
	"github.com/fivetwenty-io/octokit/internal/validate"
	"github.com/fivetwenty-io/octokit/pkg/octokit"
	"github.com/fivetwenty-io/octokit/pkg/routes"
)

// rateLimitWarnThreshold is the remaining request count below which a
// warning is logged.
const rateLimitWarnThreshold = 100

// engine is the state shared by every snapshot of one client.
type engine struct {
	spec      routes.Specification
	index     routes.Index
	transport *ghhttp.Client
	strategy  *auth.Strategy
	builtin   *octokit.InterceptorChain
	user      *octokit.InterceptorChain
}

// Client is an immutable snapshot. Calls never modify it; they return a
// Result embedding a new snapshot.
type Client struct {
	engine     *engine
	attributes map[string]any
	headers    map[string]string
}

var _ octokit.Client = (*Client)(nil)

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *octokit.Config) []ghhttp.Option {
	var httpOpts []ghhttp.Option

	if config.SkipTLSVerify {
		httpOpts = append(httpOpts, ghhttp.WithHTTPClient(&http.Client{
			Timeout: constants.DefaultHTTPTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, // #nosec G402 -- only reachable through the development mode check in ghclient
			},
		}))
	}

	if config.Logger != nil {
		httpOpts = append(httpOpts, ghhttp.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, ghhttp.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, ghhttp.WithUserAgent(config.UserAgent))
	}

	if config.HTTPTimeout > 0 {
		httpOpts = append(httpOpts, ghhttp.WithTimeout(config.HTTPTimeout))
	}

	if config.RetryMax > 0 {
		retryWaitMin := constants.DefaultRetryWaitMin
		retryWaitMax := constants.ExtendedRetryWaitMax

		if config.RetryWaitMin > 0 {
			retryWaitMin = config.RetryWaitMin
		}

		if config.RetryWaitMax > 0 {
			retryWaitMax = config.RetryWaitMax
		}

		httpOpts = append(httpOpts, ghhttp.WithRetryConfig(config.RetryMax, retryWaitMin, retryWaitMax))
	}

	return httpOpts
}

// resolveSpecification picks the route set the client is generated from.
func resolveSpecification(config *octokit.Config) (routes.Specification, error) {
	if config.Specification != nil {
		return config.Specification, nil
	}

	catalog := config.RouteCatalog
	if catalog == nil {
		var err error

		catalog, err = routes.DefaultCatalog()
		if err != nil {
			return nil, fmt.Errorf("loading route catalog: %w", err)
		}
	}

	id := config.Routes
	if id == "" {
		id = constants.DefaultRouteSet
	}

	spec, err := catalog.Lookup(id)
	if err != nil {
		return nil, fmt.Errorf("selecting route set: %w", err)
	}

	return spec, nil
}

// buildInterceptors returns the interceptors the client always runs before
// the caller's own.
func buildInterceptors(config *octokit.Config) *octokit.InterceptorChain {
	chain := octokit.NewInterceptorChain()

	if config.RateLimit > 0 {
		chain.AddRequestInterceptor(octokit.RateLimitInterceptor(config.RateLimit, 1))
	}

	if config.Metrics != nil {
		chain.AddRequestInterceptor(octokit.MetricsRequestInterceptor(config.Metrics))
		chain.AddResponseInterceptor(octokit.MetricsResponseInterceptor(config.Metrics))
	}

	if config.Logger != nil {
		chain.AddResponseInterceptor(octokit.RateLimitWarningInterceptor(config.Logger, rateLimitWarnThreshold))
	}

	return chain
}

// New builds a client from config. Authentication is set up eagerly, so
// missing credentials and failed installation exchanges fail here.
func New(ctx context.Context, config *octokit.Config) (*Client, error) {
	if config == nil {
		return nil, octokit.ErrConfigRequired
	}

	spec, err := resolveSpecification(config)
	if err != nil {
		return nil, err
	}

	err = spec.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid route specification: %w", err)
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = constants.DefaultBaseURL
	}

	httpOpts := createHTTPClientOptions(config)

	setupOpts := []auth.Option{auth.WithTransport(ghhttp.NewClient(baseURL, nil, httpOpts...))}

	if config.Logger != nil {
		setupOpts = append(setupOpts, auth.WithLogger(config.Logger))
	}

	if config.Auth == octokit.AuthInstallation &&
		(config.TokenPersister != nil || config.Credentials.InstallationToken != "") {
		setupOpts = append(setupOpts, auth.WithConfigTokenManager(auth.NewConfigTokenManager(
			config.TokenPersister,
			config.Credentials.AppID,
			config.Credentials.InstallationToken,
			config.Credentials.InstallationTokenExpiry,
		)))
	}

	strategy, err := auth.Setup(ctx, config.Auth, config.Credentials, setupOpts...)
	if err != nil {
		return nil, err
	}

	if config.Cache != nil {
		httpOpts = append(httpOpts, ghhttp.WithCache(config.Cache, config.CacheOptions))
	}

	headers := map[string]string{
		constants.HeaderAccept:      constants.MediaTypeV3,
		constants.HeaderContentType: constants.MediaTypeJSON,
	}
	maps.Copy(headers, strategy.Headers())
	maps.Copy(headers, config.Headers)

	user := config.Interceptors
	if user == nil {
		user = octokit.NewInterceptorChain()
	}

	return &Client{
		engine: &engine{
			spec:      spec,
			index:     spec.Index(),
			transport: ghhttp.NewClient(baseURL, strategy, httpOpts...),
			strategy:  strategy,
			builtin:   buildInterceptors(config),
			user:      user,
		},
		attributes: make(map[string]any),
		headers:    headers,
	}, nil
}

// Groups implements octokit.Client.Groups.
func (c *Client) Groups() []string {
	return c.engine.spec.Groups()
}

// Group implements octokit.Client.Group.
func (c *Client) Group(name string) (octokit.ResourceGroup, error) {
	if _, ok := c.engine.spec[name]; !ok {
		return nil, fmt.Errorf("%w: %s", octokit.ErrUnknownGroup, name)
	}

	return &resourceGroup{client: c, name: name}, nil
}

// Operation implements octokit.Client.Operation.
func (c *Client) Operation(group, name string) (octokit.Operation, error) {
	if _, ok := c.engine.spec[group]; !ok {
		return nil, fmt.Errorf("%w: %s", octokit.ErrUnknownGroup, group)
	}

	def, ok := c.engine.index.Find(group, name)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", octokit.ErrUnknownOperation, group, name)
	}

	return &operation{client: c, group: group, def: def}, nil
}

// Call implements octokit.Client.Call.
func (c *Client) Call(ctx context.Context, group, name string, args octokit.Args) (*octokit.Result, error) {
	op, err := c.Operation(group, name)
	if err != nil {
		return nil, err
	}

	return op.Call(ctx, args)
}

// Attributes implements octokit.Client.Attributes.
func (c *Client) Attributes() map[string]any {
	return maps.Clone(c.attributes)
}

// Headers implements octokit.Client.Headers.
func (c *Client) Headers() map[string]string {
	return maps.Clone(c.headers)
}

// WithHeaders implements octokit.Client.WithHeaders.
func (c *Client) WithHeaders(headers map[string]string) octokit.Client {
	next := c.clone()
	maps.Copy(next.headers, headers)

	return next
}

// Auth implements octokit.Client.Auth.
func (c *Client) Auth() octokit.AuthScheme {
	return c.engine.strategy.Scheme()
}

// InstallationID returns the installation selected during setup, or zero
// for other schemes.
func (c *Client) InstallationID() int64 {
	return c.engine.strategy.InstallationID()
}

func (c *Client) clone() *Client {
	return &Client{
		engine:     c.engine,
		attributes: maps.Clone(c.attributes),
		headers:    maps.Clone(c.headers),
	}
}

func (c *Client) call(ctx context.Context, group string, def *routes.Operation, args octokit.Args) (*octokit.Result, error) {
	callHeaders, err := headerArg(args[constants.ArgHeaders])
	if err != nil {
		return nil, err
	}

	err = validate.Validate(args, c.attributes, def)
	if err != nil {
		return nil, err
	}

	route := params.Build(def, args, c.attributes)

	body, err := route.JSON()
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}

	req := &octokit.Request{
		Method:  route.Method,
		Path:    route.Path,
		Query:   route.Query,
		Headers: params.MergeHeaders(c.headers, route.Headers, callHeaders),
		Body:    body,
		Metadata: map[string]interface{}{
			octokit.MetadataGroup:     group,
			octokit.MetadataOperation: def.ID,
		},
	}

	err = c.engine.builtin.ExecuteRequestInterceptors(ctx, req)
	if err == nil {
		err = c.engine.user.ExecuteRequestInterceptors(ctx, req)
	}

	if err != nil {
		return nil, err
	}

	resp, callErr := c.send(ctx, req)

	err = c.engine.builtin.ExecuteResponseInterceptors(ctx, req, resp)
	if err == nil {
		err = c.engine.user.ExecuteResponseInterceptors(ctx, req, resp)
	}

	if err != nil {
		return nil, err
	}

	if callErr != nil && resp.StatusCode == 0 {
		return nil, callErr
	}

	next := c.clone()
	maps.Copy(next.attributes, route.Consumed)

	return octokit.NewResult(next, resp, pageArg(args[constants.ArgPage])), callErr
}

// send runs the transport call and converts its outcome into an
// interceptable response.
func (c *Client) send(ctx context.Context, req *octokit.Request) (*octokit.Response, error) {
	var body interface{}
	if req.Body != nil {
		body = req.Body
	}

	resp, err := c.engine.transport.Do(ctx, &ghhttp.Request{
		Method:  req.Method,
		Path:    req.Path,
		Query:   req.Query,
		Headers: req.Headers,
		Body:    body,
	})
	if resp == nil {
		return &octokit.Response{Headers: make(http.Header), Error: err}, err
	}

	return &octokit.Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       resp.Body,
		Error:      err,
		FromCache:  resp.FromCache,
	}, err
}

// headerArg reads the reserved "headers" argument.
func headerArg(value any) (map[string]string, error) {
	switch h := value.(type) {
	case nil:
		return nil, nil
	case map[string]string:
		return h, nil
	case http.Header:
		out := make(map[string]string, len(h))
		for key := range h {
			out[key] = h.Get(key)
		}

		return out, nil
	case map[string]any:
		out := make(map[string]string, len(h))
		for key, v := range h {
			out[key] = fmt.Sprint(v)
		}

		return out, nil
	default:
		return nil, octokit.NewParameterError(constants.ArgHeaders, "%s must be a map of header names to values", constants.ArgHeaders)
	}
}

// pageArg returns the requested page number, or zero when absent.
func pageArg(value any) int {
	switch v := value.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		n, _ := strconv.Atoi(v.String())

		return n
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(v))

		return n
	default:
		return 0
	}
}

type resourceGroup struct {
	client *Client
	name   string
}

func (g *resourceGroup) Name() string {
	return g.name
}

func (g *resourceGroup) Operations() []string {
	defs := g.client.engine.spec[g.name]
	ids := make([]string, 0, len(defs))

	for _, def := range defs {
		ids = append(ids, def.ID)
	}

	return ids
}

func (g *resourceGroup) Operation(name string) (octokit.Operation, error) {
	return g.client.Operation(g.name, name)
}

func (g *resourceGroup) Call(ctx context.Context, name string, args octokit.Args) (*octokit.Result, error) {
	return g.client.Call(ctx, g.name, name, args)
}

type operation struct {
	client *Client
	group  string
	def    *routes.Operation
}

func (o *operation) ID() string                    { return o.def.ID }
func (o *operation) Name() string                  { return o.def.Name }
func (o *operation) Group() string                 { return o.group }
func (o *operation) Method() string                { return strings.ToUpper(o.def.Method) }
func (o *operation) URL() string                   { return o.def.URL }
func (o *operation) Doc() string                   { return o.def.Doc() }
func (o *operation) Keys() []string                { return o.def.Keys() }
func (o *operation) Definition() *routes.Operation { return o.def }

func (o *operation) Call(ctx context.Context, args octokit.Args) (*octokit.Result, error) {
	return o.client.call(ctx, o.group, o.def, args)
}
