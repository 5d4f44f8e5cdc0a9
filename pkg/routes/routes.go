package routes

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Parameter locations.
const (
	InPath   = "path"
	InQuery  = "query"
	InHeader = "header"
	InBody   = "body"
)

// JSONMediaType is the request body content type used for validation and routing.
const JSONMediaType = "application/json"

// Static errors for err113 compliance.
var (
	ErrUnknownRouteSet     = errors.New("unknown route set")
	ErrDuplicateOperation  = errors.New("duplicate operation id")
	ErrMissingMethod       = errors.New("operation has no method")
	ErrMissingURL          = errors.New("operation has no url")
	ErrUnsupportedDocument = errors.New("unsupported OpenAPI document")
	ErrEmptySpecification  = errors.New("route specification has no operations")
)

var placeholderPattern = regexp.MustCompile(`\{(\w+)\}`)

// Catalog maps a route-set identifier (e.g. "api.github.com", "ghe-2.18") to
// its specification.
type Catalog map[string]Specification

// Specification maps a resource group name to its ordered operations.
type Specification map[string][]*Operation

// Operation describes one REST endpoint.
type Operation struct {
	ID               string            `json:"id"                          yaml:"id"`
	Name             string            `json:"name"                        yaml:"name"`
	Description      string            `json:"description,omitempty"       yaml:"description,omitempty"`
	DocumentationURL string            `json:"documentation_url,omitempty" yaml:"documentation_url,omitempty"`
	Method           string            `json:"method"                      yaml:"method"`
	URL              string            `json:"url"                         yaml:"url"`
	Headers          map[string]string `json:"headers,omitempty"           yaml:"headers,omitempty"`
	Parameters       []*Parameter      `json:"parameters,omitempty"        yaml:"parameters,omitempty"`
	RequestBody      *RequestBody      `json:"requestBody,omitempty"       yaml:"requestBody,omitempty"`
	Deprecated       bool              `json:"deprecated,omitempty"        yaml:"deprecated,omitempty"`
	Aliases          []string          `json:"aliases,omitempty"           yaml:"aliases,omitempty"`
}

// Parameter is a declared operation parameter.
type Parameter struct {
	Name        string  `json:"name"                  yaml:"name"`
	In          string  `json:"in"                    yaml:"in"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool    `json:"required,omitempty"    yaml:"required,omitempty"`
	Type        string  `json:"type,omitempty"        yaml:"type,omitempty"`
	Enum        []any   `json:"enum,omitempty"        yaml:"enum,omitempty"`
	Default     any     `json:"default,omitempty"     yaml:"default,omitempty"`
	Schema      *Schema `json:"schema,omitempty"      yaml:"schema,omitempty"`
}

// RequestBody holds the request body schemas keyed by media type.
type RequestBody struct {
	Content map[string]*MediaType `json:"content" yaml:"content"`
}

// MediaType wraps a body schema.
type MediaType struct {
	Schema *Schema `json:"schema" yaml:"schema"`
}

// Schema is the JSON-Schema subset used by request bodies: type, enum,
// default, required and nested object/array structure.
type Schema struct {
	Type        string             `json:"type,omitempty"        yaml:"type,omitempty"`
	Description string             `json:"description,omitempty" yaml:"description,omitempty"`
	Enum        []any              `json:"enum,omitempty"        yaml:"enum,omitempty"`
	Default     any                `json:"default,omitempty"     yaml:"default,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"  yaml:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"    yaml:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"       yaml:"items,omitempty"`
}

// SchemaType returns the declared type, preferring the nested schema.
func (p *Parameter) SchemaType() string {
	if p.Schema != nil && p.Schema.Type != "" {
		return p.Schema.Type
	}

	return p.Type
}

// EnumValues returns the allowed values, preferring the nested schema.
func (p *Parameter) EnumValues() []any {
	if p.Schema != nil && len(p.Schema.Enum) > 0 {
		return p.Schema.Enum
	}

	return p.Enum
}

// DefaultValue returns the declared default, preferring the nested schema.
func (p *Parameter) DefaultValue() any {
	if p.Schema != nil && p.Schema.Default != nil {
		return p.Schema.Default
	}

	return p.Default
}

// ItemSchema returns the item schema of an array parameter, if any.
func (p *Parameter) ItemSchema() *Schema {
	if p.Schema != nil {
		return p.Schema.Items
	}

	return nil
}

// IsRequired reports whether name is listed in the schema's required list.
func (s *Schema) IsRequired(name string) bool {
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}

	return false
}

// BodySchema returns the application/json request body schema, or nil.
func (o *Operation) BodySchema() *Schema {
	if o.RequestBody == nil {
		return nil
	}

	media, ok := o.RequestBody.Content[JSONMediaType]
	if !ok || media == nil {
		return nil
	}

	return media.Schema
}

// ParameterMap merges declared parameters with the top-level body
// properties. Body properties get In=body and Required from the body
// schema's required list. Declared parameters win on conflicts.
func (o *Operation) ParameterMap() map[string]*Parameter {
	params := make(map[string]*Parameter)

	if schema := o.BodySchema(); schema != nil && schema.Type == "object" {
		for name, prop := range schema.Properties {
			if prop == nil {
				continue
			}

			params[name] = &Parameter{
				Name:        name,
				In:          InBody,
				Description: prop.Description,
				Required:    schema.IsRequired(name),
				Type:        prop.Type,
				Enum:        prop.Enum,
				Default:     prop.Default,
				Schema:      prop,
			}
		}
	}

	for _, p := range o.Parameters {
		params[p.Name] = p
	}

	return params
}

// PathParameters returns the placeholder names in the URL template, in order.
func (o *Operation) PathParameters() []string {
	matches := placeholderPattern.FindAllStringSubmatch(o.URL, -1)
	names := make([]string, 0, len(matches))

	for _, m := range matches {
		names = append(names, m[1])
	}

	return names
}

// RequiredPathParameters returns required parameters located in the path.
func (o *Operation) RequiredPathParameters() []string {
	var names []string

	for _, p := range o.Parameters {
		if p.Required && p.In == InPath {
			names = append(names, p.Name)
		}
	}

	return names
}

// Doc returns the description followed by the documentation URL.
func (o *Operation) Doc() string {
	switch {
	case o.DocumentationURL == "":
		return o.Description
	case o.Description == "":
		return o.DocumentationURL
	default:
		return o.Description + "\n\n" + o.DocumentationURL
	}
}

// Groups returns the group names in sorted order.
func (s Specification) Groups() []string {
	groups := make([]string, 0, len(s))
	for name := range s {
		groups = append(groups, name)
	}

	sort.Strings(groups)

	return groups
}

// Index maps group name to operation key to operation.
type Index map[string]map[string]*Operation

// Index builds the key lookup table for every group. Earlier operations win
// when two share a key.
func (s Specification) Index() Index {
	index := make(Index, len(s))

	for group, ops := range s {
		keys := make(map[string]*Operation)

		for _, op := range ops {
			for _, k := range op.Keys() {
				if _, taken := keys[k]; !taken {
					keys[k] = op
				}
			}
		}

		index[group] = keys
	}

	return index
}

// Find returns the operation in group reachable by key.
func (x Index) Find(group, key string) (*Operation, bool) {
	op, ok := x[group][key]

	return op, ok
}

// Find returns the operation in group whose id, snake-cased id, snake-cased
// name or alias equals key. Repeated lookups should go through Index.
func (s Specification) Find(group, key string) (*Operation, bool) {
	for _, op := range s[group] {
		for _, k := range op.Keys() {
			if k == key {
				return op, true
			}
		}
	}

	return nil, false
}

// Keys returns every name the operation is reachable by.
func (o *Operation) Keys() []string {
	seen := make(map[string]bool)
	keys := make([]string, 0, 3+len(o.Aliases))

	for _, k := range append([]string{o.ID, SnakeCase(o.ID), SnakeCase(o.Name)}, o.Aliases...) {
		if k == "" || seen[k] {
			continue
		}

		seen[k] = true
		keys = append(keys, k)
	}

	return keys
}

// Validate checks the specification for structural problems.
func (s Specification) Validate() error {
	if len(s) == 0 {
		return ErrEmptySpecification
	}

	for _, group := range s.Groups() {
		ids := make(map[string]bool)

		for _, op := range s[group] {
			if ids[op.ID] {
				return fmt.Errorf("%w: %s/%s", ErrDuplicateOperation, group, op.ID)
			}

			ids[op.ID] = true

			if strings.TrimSpace(op.Method) == "" {
				return fmt.Errorf("%w: %s/%s", ErrMissingMethod, group, op.ID)
			}

			if strings.TrimSpace(op.URL) == "" {
				return fmt.Errorf("%w: %s/%s", ErrMissingURL, group, op.ID)
			}
		}
	}

	return nil
}

// Lookup returns the route set with the given identifier.
func (c Catalog) Lookup(id string) (Specification, error) {
	spec, ok := c[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRouteSet, id)
	}

	return spec, nil
}

// IDs returns the route-set identifiers in sorted order.
func (c Catalog) IDs() []string {
	ids := make([]string, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}
