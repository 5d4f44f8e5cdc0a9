package routes

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/erraggy/oastools/parser"
)

// FromOpenAPI converts an OpenAPI 3.x description (such as GitHub's
// published api.github.com document) into a route specification.
// Operations are grouped by their first tag; the id is the part of the
// operationId after "/", and the display name is the summary.
func FromOpenAPI(data []byte) (Specification, error) {
	result, err := parser.ParseWithOptions(
		parser.WithBytes(data),
		parser.WithResolveRefs(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI document: %w", err)
	}

	doc, ok := result.OAS3Document()
	if !ok {
		return nil, fmt.Errorf("%w: only OpenAPI 3.x is supported", ErrUnsupportedDocument)
	}

	paths := make([]string, 0, len(doc.Paths))
	for p := range doc.Paths {
		paths = append(paths, p)
	}

	sort.Strings(paths)

	spec := make(Specification)

	for _, p := range paths {
		item := doc.Paths[p]
		if item == nil {
			continue
		}

		for _, entry := range []struct {
			method string
			op     *parser.Operation
		}{
			{http.MethodGet, item.Get},
			{http.MethodPost, item.Post},
			{http.MethodPut, item.Put},
			{http.MethodPatch, item.Patch},
			{http.MethodDelete, item.Delete},
			{http.MethodHead, item.Head},
		} {
			if entry.op == nil {
				continue
			}

			group, op := convertOperation(p, entry.method, entry.op, item.Parameters)
			spec[group] = append(spec[group], op)
		}
	}

	err = spec.Validate()
	if err != nil {
		return nil, err
	}

	return spec, nil
}

func convertOperation(url, method string, src *parser.Operation, shared []*parser.Parameter) (string, *Operation) {
	group := "default"
	if len(src.Tags) > 0 {
		group = SnakeCase(src.Tags[0])
	}

	id := src.OperationID
	if i := strings.Index(id, "/"); i >= 0 {
		id = id[i+1:]
	}

	if id == "" {
		id = SnakeCase(method + " " + url)
	}

	op := &Operation{
		ID:          id,
		Name:        src.Summary,
		Description: src.Description,
		Method:      method,
		URL:         url,
		Deprecated:  src.Deprecated,
	}

	if src.ExternalDocs != nil {
		op.DocumentationURL = src.ExternalDocs.URL
	}

	seen := make(map[string]bool)

	for _, params := range [][]*parser.Parameter{src.Parameters, shared} {
		for _, p := range params {
			if p == nil || p.Name == "" || seen[p.Name] {
				continue
			}

			seen[p.Name] = true
			op.Parameters = append(op.Parameters, &Parameter{
				Name:        p.Name,
				In:          p.In,
				Description: p.Description,
				Required:    p.Required,
				Schema:      convertSchema(p.Schema),
			})
		}
	}

	if src.RequestBody != nil {
		if media, ok := src.RequestBody.Content[JSONMediaType]; ok && media != nil {
			op.RequestBody = &RequestBody{
				Content: map[string]*MediaType{
					JSONMediaType: {Schema: convertSchema(media.Schema)},
				},
			}
		}
	}

	return group, op
}

func convertSchema(src *parser.Schema) *Schema {
	return convertSchemaDepth(src, 0)
}

// maxSchemaDepth bounds recursion through self-referencing schemas.
const maxSchemaDepth = 16

func convertSchemaDepth(src *parser.Schema, depth int) *Schema {
	if src == nil || depth > maxSchemaDepth {
		return nil
	}

	s := &Schema{
		Type:        schemaType(src.Type),
		Description: src.Description,
		Enum:        src.Enum,
		Default:     src.Default,
		Required:    src.Required,
	}

	if len(src.Properties) > 0 {
		s.Properties = make(map[string]*Schema, len(src.Properties))
		for name, prop := range src.Properties {
			s.Properties[name] = convertSchemaDepth(prop, depth+1)
		}
	}

	if items, ok := src.Items.(*parser.Schema); ok {
		s.Items = convertSchemaDepth(items, depth+1)
	}

	return s
}

// schemaType flattens the 3.1 type array form to a single non-null type.
func schemaType(t any) string {
	switch v := t.(type) {
	case string:
		return v
	case []string:
		for _, s := range v {
			if s != "null" {
				return s
			}
		}
	case []any:
		for _, s := range v {
			if str, ok := s.(string); ok && str != "null" {
				return str
			}
		}
	}

	return ""
}
