// Package params turns validated call arguments into a concrete request:
// expanded path, query string, JSON body and declared headers.
package params

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"sort"
	"strings"

	"github.com/fivetwenty-io/octokit/internal/constants"
	"github.com/fivetwenty-io/octokit/pkg/routes"
)

// Route is the routed form of one operation call.
type Route struct {
	Method string
	// Path is the URL template with every placeholder substituted.
	Path  string
	Query url.Values
	// Body is nil for GET and HEAD.
	Body    map[string]any
	Headers map[string]string
	// Consumed holds the values substituted into the path, for carrying
	// forward into later calls.
	Consumed map[string]any
}

// Build routes args through op. Cached values fill placeholders of this
// operation that the caller left out; caller values always win.
func Build(op *routes.Operation, args, cache map[string]any) *Route {
	params := op.ParameterMap()
	method := strings.ToUpper(op.Method)

	route := &Route{
		Method:   method,
		Path:     op.URL,
		Query:    url.Values{},
		Headers:  make(map[string]string),
		Consumed: make(map[string]any),
	}

	for name, value := range op.Headers {
		route.Headers[name] = value
	}

	merged := make(map[string]any, len(args)+len(cache))

	for _, name := range op.PathParameters() {
		if value, ok := cache[name]; ok {
			merged[name] = value
		}
	}

	for name, value := range args {
		if name == constants.ArgHeaders {
			continue
		}

		merged[name] = value
	}

	data := make(map[string]any)

	for _, name := range sortedKeys(merged) {
		param, declared := params[name]
		if !declared {
			continue
		}

		value := merged[name]
		placeholder := "{" + name + "}"

		switch {
		case strings.Contains(route.Path, placeholder):
			route.Path = strings.ReplaceAll(route.Path, placeholder, escapePath(value))
			route.Consumed[name] = value
		case param.In == routes.InHeader:
			route.Headers[name] = fmt.Sprint(value)
		default:
			data[name] = value
		}
	}

	applyDefaults(params, data, route)

	switch method {
	case http.MethodGet, http.MethodHead:
		for name, value := range data {
			route.Query.Set(name, queryValue(value))
		}
	default:
		route.Body = make(map[string]any)

		// GitHub reads declared query parameters from the URL even on writes.
		for name, value := range data {
			if params[name].In == routes.InQuery {
				route.Query.Set(name, queryValue(value))

				continue
			}

			route.Body[name] = value
		}
	}

	return route
}

// JSON encodes the body with sorted keys. It returns nil when the route has
// no body.
func (r *Route) JSON() ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}

	data, err := json.Marshal(r.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}

	return data, nil
}

// MergeHeaders layers client base headers, operation headers and caller
// headers, later layers winning. Keys are canonicalized.
func MergeHeaders(base, declared, caller map[string]string) http.Header {
	headers := make(http.Header)

	for _, layer := range []map[string]string{base, declared, caller} {
		for name, value := range layer {
			headers.Set(name, value)
		}
	}

	return headers
}

func applyDefaults(params map[string]*routes.Parameter, data map[string]any, route *Route) {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		param := params[name]

		if _, consumed := route.Consumed[name]; consumed {
			continue
		}

		def := param.DefaultValue()

		switch param.In {
		case routes.InHeader:
			if _, ok := route.Headers[name]; !ok && def != nil {
				route.Headers[name] = fmt.Sprint(def)
			}

		case routes.InQuery, routes.InBody:
			value, supplied := data[name]
			if !supplied {
				if def != nil {
					data[name] = coerceDefault(param.SchemaType(), def)
				}

				continue
			}

			if param.SchemaType() == "array" {
				data[name] = fillItemDefaults(value, param.ItemSchema())
			}
		}
	}
}

// fillItemDefaults copies each element object of list and fills item
// properties with their schema defaults.
func fillItemDefaults(list any, items *routes.Schema) any {
	if items == nil || len(items.Properties) == 0 {
		return list
	}

	rv := reflect.ValueOf(list)
	if rv.Kind() != reflect.Slice {
		return list
	}

	out := make([]any, rv.Len())

	for i := range out {
		element := rv.Index(i).Interface()

		obj, ok := element.(map[string]any)
		if !ok {
			out[i] = element

			continue
		}

		filled := make(map[string]any, len(obj)+len(items.Properties))
		for k, v := range obj {
			filled[k] = v
		}

		for prop, schema := range items.Properties {
			if schema == nil || schema.Default == nil {
				continue
			}

			if _, ok := filled[prop]; !ok {
				filled[prop] = coerceDefault(schema.Type, schema.Default)
			}
		}

		out[i] = filled
	}

	return out
}

// coerceDefault turns the literal strings "true" and "false" into booleans
// for boolean parameters. Other defaults are returned unchanged.
func coerceDefault(schemaType string, def any) any {
	if schemaType != "boolean" {
		return def
	}

	switch def {
	case constants.BooleanTrue:
		return true
	case constants.BooleanFalse:
		return false
	default:
		return def
	}
}

// escapePath escapes a substituted value segment by segment so values such
// as file paths keep their slashes.
func escapePath(value any) string {
	segments := strings.Split(fmt.Sprint(value), "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}

	return strings.Join(segments, "/")
}

// queryValue renders a value for the query string. Lists are comma joined.
func queryValue(value any) string {
	if value == nil {
		return ""
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = fmt.Sprint(rv.Index(i).Interface())
		}

		return strings.Join(parts, ",")
	}

	return fmt.Sprint(value)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
