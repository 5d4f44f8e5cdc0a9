// Package validate checks call arguments against an operation definition
// before a request is built.
package validate

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/fivetwenty-io/octokit/internal/constants"
	"github.com/fivetwenty-io/octokit/pkg/octokit"
	"github.com/fivetwenty-io/octokit/pkg/routes"
)

const (
	typeObject  = "object"
	typeArray   = "array"
	typeString  = "string"
	typeNumber  = "number"
	typeBoolean = "boolean"
)

// Validate checks args against op. Required path parameters may be satisfied
// by cached values from earlier calls. The first failure is returned as an
// *octokit.ParameterError.
func Validate(args, cached map[string]any, op *routes.Operation) error {
	if err := validateRequired(args, cached, op); err != nil {
		return err
	}

	if err := validateArguments(args, op); err != nil {
		return err
	}

	return validateBody(args, op.BodySchema())
}

func validateRequired(args, cached map[string]any, op *routes.Operation) error {
	for _, name := range op.RequiredPathParameters() {
		value, ok := args[name]
		if !ok {
			value, ok = cached[name]
		}

		if err := checkPresent(name, value, ok); err != nil {
			return err
		}
	}

	if schema := op.BodySchema(); schema != nil && schema.Type == typeObject {
		for _, name := range schema.Required {
			value, ok := args[name]
			if err := checkPresent(name, value, ok); err != nil {
				return err
			}
		}
	}

	return nil
}

func checkPresent(name string, value any, ok bool) error {
	if !ok {
		return octokit.NewParameterError(name, "%s is a required parameter", name)
	}

	if value == nil {
		return octokit.NewParameterError(name, "%s must have a value", name)
	}

	return nil
}

func validateArguments(args map[string]any, op *routes.Operation) error {
	params := op.ParameterMap()

	for _, name := range sortedKeys(args) {
		if name == constants.ArgHeaders {
			continue
		}

		param, ok := params[name]
		if !ok {
			return octokit.NewParameterError(name, "%s is not a valid parameter", name)
		}

		if err := checkEnum(name, args[name], param.EnumValues()); err != nil {
			return err
		}
	}

	return nil
}

func checkEnum(name string, value any, enum []any) error {
	if len(enum) == 0 || value == nil {
		return nil
	}

	if _, composite := normalize(value).(map[string]any); composite {
		return nil
	}

	if _, composite := normalize(value).([]any); composite {
		return nil
	}

	for _, allowed := range enum {
		if enumMatch(allowed, value) {
			return nil
		}
	}

	options := make([]string, 0, len(enum))
	for _, allowed := range enum {
		options = append(options, fmt.Sprint(allowed))
	}

	return octokit.NewParameterError(name, "%v is not a valid option for %s; must be one of [%s]",
		value, name, strings.Join(options, ", "))
}

func validateBody(args map[string]any, schema *routes.Schema) error {
	if schema == nil || schema.Type != typeObject {
		return nil
	}

	for _, name := range sortedKeys(args) {
		prop := schema.Properties[name]
		if prop == nil {
			continue
		}

		switch normalize(args[name]).(type) {
		case map[string]any, []any:
			if err := validateValue(name, args[name], prop); err != nil {
				return err
			}
		}
	}

	return nil
}

// validateValue walks value against schema. Objects and arrays must match the
// declared structure; scalars may not stand in for them and must be strings
// where a string is declared.
func validateValue(path string, value any, schema *routes.Schema) error {
	if schema == nil || value == nil {
		return nil
	}

	switch v := normalize(value).(type) {
	case map[string]any:
		if err := checkType(path, v, typeObject, schema); err != nil {
			return err
		}

		return validateObject(path, v, schema)

	case []any:
		if err := checkType(path, v, typeArray, schema); err != nil {
			return err
		}

		return validateArray(path, v, schema)

	default:
		kind := scalarKind(value)

		switch {
		case schema.Type == typeObject, schema.Type == typeArray:
			return typeMismatch(path, value, kind, schema.Type)
		case schema.Type == typeString && kind != typeString:
			return typeMismatch(path, value, kind, schema.Type)
		}

		return checkEnum(path, value, schema.Enum)
	}
}

func validateObject(path string, data map[string]any, schema *routes.Schema) error {
	for _, name := range schema.Required {
		value, ok := data[name]
		if !ok {
			return octokit.NewParameterError(path+"."+name, "%s is a required parameter", name)
		}

		if value == nil {
			return octokit.NewParameterError(path+"."+name, "%s must have a value", name)
		}
	}

	for _, name := range sortedKeys(data) {
		if err := validateValue(path+"."+name, data[name], schema.Properties[name]); err != nil {
			return err
		}
	}

	return nil
}

func validateArray(path string, data []any, schema *routes.Schema) error {
	items := schema.Items
	if items == nil {
		return nil
	}

	if len(data) == 0 && len(items.Required) > 0 {
		return octokit.NewParameterError(path, "property is missing required items")
	}

	for i, element := range data {
		if err := validateValue(fmt.Sprintf("%s[%d]", path, i), element, items); err != nil {
			return err
		}
	}

	return nil
}

func checkType(path string, data any, kind string, schema *routes.Schema) error {
	if schema.Type == "" || schema.Type == kind {
		return nil
	}

	return typeMismatch(path, data, kind, schema.Type)
}

func typeMismatch(path string, data any, kind, want string) error {
	rendered, err := json.Marshal(data)
	if err != nil {
		rendered = []byte(fmt.Sprint(data))
	}

	return octokit.NewParameterError(path, "%s type does not match the schema type of %s for the data of %s",
		kind, want, rendered)
}

// scalarKind names the JSON type of a non-composite value.
func scalarKind(value any) string {
	if _, ok := value.(json.Number); ok {
		return typeNumber
	}

	switch reflect.ValueOf(value).Kind() {
	case reflect.String:
		return typeString
	case reflect.Bool:
		return typeBoolean
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return typeNumber
	default:
		return fmt.Sprintf("%T", value)
	}
}

// enumMatch compares by JSON type: numbers numerically, strings and booleans
// by value. The number 1 never matches the string "1".
func enumMatch(allowed, value any) bool {
	kind := scalarKind(allowed)
	if kind != scalarKind(value) {
		return false
	}

	switch kind {
	case typeNumber:
		a, aok := numberValue(allowed)
		v, vok := numberValue(value)

		return aok && vok && a == v
	case typeString:
		return reflect.ValueOf(allowed).String() == reflect.ValueOf(value).String()
	case typeBoolean:
		return reflect.ValueOf(allowed).Bool() == reflect.ValueOf(value).Bool()
	default:
		return reflect.DeepEqual(allowed, value)
	}
}

func numberValue(value any) (float64, bool) {
	if n, ok := value.(json.Number); ok {
		f, err := n.Float64()

		return f, err == nil
	}

	rv := reflect.ValueOf(value)

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}

// normalize converts arbitrary maps with string keys and slices into the
// generic shapes produced by encoding/json so callers may pass typed values.
func normalize(value any) any {
	switch v := value.(type) {
	case map[string]any, []any, string, nil:
		return v
	case octokit.Args:
		return map[string]any(v)
	}

	rv := reflect.ValueOf(value)

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return value
		}

		out := make(map[string]any, rv.Len())

		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = iter.Value().Interface()
		}

		return out

	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return value
		}

		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}

		return out

	default:
		return value
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
