package octokit

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

// Result is returned by every operation call. It embeds the new client
// snapshot, so further operations can be called on it directly, and holds
// the response with a lazily parsed body.
type Result struct {
	Client

	Response   *Response
	Pagination *Pagination

	once   sync.Once
	data   Value
	isJSON bool
}

// NewResult wraps a response. requestedPage is the page argument of the
// request, or zero.
func NewResult(client Client, resp *Response, requestedPage int) *Result {
	if resp == nil {
		resp = &Response{}
	}

	if resp.Headers == nil {
		resp.Headers = make(http.Header)
	}

	return &Result{
		Client:     client,
		Response:   resp,
		Pagination: NewPagination(resp.Headers.Get("Link"), requestedPage),
	}
}

func (r *Result) parse() {
	r.once.Do(func() {
		v, err := ParseValue(r.Response.Body)
		if err != nil {
			r.data = StringValue(string(r.Response.Body))

			return
		}

		r.data = v
		r.isJSON = true
	})
}

// Data returns the parsed body. Bodies that are not JSON are returned as a
// string Value holding the raw text.
func (r *Result) Data() Value {
	r.parse()

	return r.data
}

// IsJSON reports whether the body parsed as JSON.
func (r *Result) IsJSON() bool {
	r.parse()

	return r.isJSON
}

// Text returns the raw body.
func (r *Result) Text() string {
	return string(r.Response.Body)
}

// StatusCode returns the HTTP status of the response.
func (r *Result) StatusCode() int {
	return r.Response.StatusCode
}

// Header returns the response headers.
func (r *Result) Header() http.Header {
	return r.Response.Headers
}

// Decode unmarshals the body into v.
func (r *Result) Decode(v any) error {
	err := json.Unmarshal(r.Response.Body, v)
	if err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}

	return nil
}
