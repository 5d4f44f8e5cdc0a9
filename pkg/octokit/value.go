package octokit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"sort"
	"strconv"

	"github.com/ohler55/ojg/jp"
)

// Kind is the variant held by a Value.
type Kind int

// Value kinds.
const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindMap
)

var kindNames = map[Kind]string{
	KindNull:   "null",
	KindBool:   "bool",
	KindNumber: "number",
	KindString: "string",
	KindList:   "list",
	KindMap:    "map",
}

// String returns the kind name.
func (k Kind) String() string {
	return kindNames[k]
}

// Value is a navigable JSON response body: null, bool, number, string,
// list or string-keyed map. Map keys keep their document order. The zero
// Value is null, and lookups on missing keys or indexes return null.
type Value struct {
	kind   Kind
	b      bool
	num    json.Number
	str    string
	list   []Value
	keys   []string
	fields map[string]Value
}

// ParseValue decodes a JSON document, keeping object key order.
func ParseValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return Value{}, fmt.Errorf("%w: %w", ErrNotJSON, err)
	}

	_, err = dec.Token()
	if !errors.Is(err, io.EOF) {
		return Value{}, fmt.Errorf("%w: trailing data", ErrNotJSON)
	}

	return v, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		default:
			return Value{}, fmt.Errorf("unexpected delimiter %q", t)
		}
	case string:
		return StringValue(t), nil
	case json.Number:
		return Value{kind: KindNumber, num: t}, nil
	case bool:
		return BoolValue(t), nil
	default:
		return Value{}, nil
	}
}

func decodeObject(dec *json.Decoder) (Value, error) {
	v := Value{kind: KindMap, fields: make(map[string]Value)}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Value{}, err
		}

		key, ok := tok.(string)
		if !ok {
			return Value{}, fmt.Errorf("unexpected object key %v", tok)
		}

		elem, err := decodeValue(dec)
		if err != nil {
			return Value{}, err
		}

		if _, dup := v.fields[key]; !dup {
			v.keys = append(v.keys, key)
		}

		v.fields[key] = elem
	}

	_, err := dec.Token()
	if err != nil {
		return Value{}, err
	}

	return v, nil
}

func decodeArray(dec *json.Decoder) (Value, error) {
	v := Value{kind: KindList, list: []Value{}}

	for dec.More() {
		elem, err := decodeValue(dec)
		if err != nil {
			return Value{}, err
		}

		v.list = append(v.list, elem)
	}

	_, err := dec.Token()
	if err != nil {
		return Value{}, err
	}

	return v, nil
}

// StringValue returns a string Value.
func StringValue(s string) Value {
	return Value{kind: KindString, str: s}
}

// BoolValue returns a bool Value.
func BoolValue(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// NumberValue returns a number Value.
func NumberValue(f float64) Value {
	return Value{kind: KindNumber, num: json.Number(strconv.FormatFloat(f, 'g', -1, 64))}
}

// FromInterface converts plain Go data (as produced by encoding/json or
// JSONPath evaluation) into a Value. Map keys are sorted since Go maps carry
// no order.
func FromInterface(data any) Value {
	switch t := data.(type) {
	case nil:
		return Value{}
	case Value:
		return t
	case bool:
		return BoolValue(t)
	case string:
		return StringValue(t)
	case json.Number:
		return Value{kind: KindNumber, num: t}
	case int:
		return Value{kind: KindNumber, num: json.Number(strconv.Itoa(t))}
	case int64:
		return Value{kind: KindNumber, num: json.Number(strconv.FormatInt(t, 10))}
	case float64:
		return NumberValue(t)
	case []any:
		v := Value{kind: KindList, list: make([]Value, 0, len(t))}
		for _, elem := range t {
			v.list = append(v.list, FromInterface(elem))
		}

		return v
	case map[string]any:
		v := Value{kind: KindMap, fields: make(map[string]Value, len(t))}
		for key, elem := range t {
			v.keys = append(v.keys, key)
			v.fields[key] = FromInterface(elem)
		}

		sort.Strings(v.keys)

		return v
	}

	rv := reflect.ValueOf(data)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return FromInterface(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Value{kind: KindNumber, num: json.Number(strconv.FormatUint(rv.Uint(), 10))}
	case reflect.Float32:
		return NumberValue(rv.Float())
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		return StringValue(fmt.Sprint(data))
	}

	v, err := ParseValue(encoded)
	if err != nil {
		return StringValue(fmt.Sprint(data))
	}

	return v
}

// Kind returns the variant held.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull reports whether v is null.
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// Str returns the string held by a string Value.
func (v Value) Str() (string, bool) {
	return v.str, v.kind == KindString
}

// String returns the string for string values and the JSON text otherwise.
func (v Value) String() string {
	if v.kind == KindString {
		return v.str
	}

	data, _ := v.MarshalJSON()

	return string(data)
}

// Int returns an integral number as int64.
func (v Value) Int() (int64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}

	i, err := v.num.Int64()
	if err == nil {
		return i, true
	}

	f, err := v.num.Float64()
	if err != nil || f != math.Trunc(f) {
		return 0, false
	}

	return int64(f), true
}

// Float returns a number as float64.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}

	f, err := v.num.Float64()

	return f, err == nil
}

// Bool returns the bool held by a bool Value.
func (v Value) Bool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// Get returns the field named key, or null.
func (v Value) Get(key string) Value {
	if v.kind != KindMap {
		return Value{}
	}

	return v.fields[key]
}

// Has reports whether a map Value has the field key.
func (v Value) Has(key string) bool {
	_, ok := v.fields[key]

	return v.kind == KindMap && ok
}

// Index returns the i-th list element, or null.
func (v Value) Index(i int) Value {
	if v.kind != KindList || i < 0 || i >= len(v.list) {
		return Value{}
	}

	return v.list[i]
}

// Len returns the number of list elements or map fields.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindMap:
		return len(v.keys)
	default:
		return 0
	}
}

// Keys returns the map keys in document order.
func (v Value) Keys() []string {
	if v.kind != KindMap {
		return nil
	}

	return append([]string(nil), v.keys...)
}

// Map returns a copy of the map fields.
func (v Value) Map() map[string]Value {
	if v.kind != KindMap {
		return nil
	}

	out := make(map[string]Value, len(v.fields))
	for k, f := range v.fields {
		out[k] = f
	}

	return out
}

// List returns a copy of the list elements.
func (v Value) List() []Value {
	if v.kind != KindList {
		return nil
	}

	return append([]Value(nil), v.list...)
}

// Interface converts v to plain Go data: map[string]any, []any, int64,
// float64, string, bool or nil.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		if i, err := v.num.Int64(); err == nil {
			return i
		}

		f, _ := v.num.Float64()

		return f
	case KindString:
		return v.str
	case KindList:
		out := make([]any, len(v.list))
		for i, elem := range v.list {
			out[i] = elem.Interface()
		}

		return out
	case KindMap:
		out := make(map[string]any, len(v.fields))
		for k, f := range v.fields {
			out[k] = f.Interface()
		}

		return out
	default:
		return nil
	}
}

// Path evaluates a JSONPath expression such as "$..login" or
// "items[0].name" against v.
func (v Value) Path(expr string) ([]Value, error) {
	x, err := jp.ParseString(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPath, err)
	}

	found := x.Get(v.Interface())
	out := make([]Value, 0, len(found))

	for _, f := range found {
		out = append(out, FromInterface(f))
	}

	return out, nil
}

// MarshalJSON encodes v with map keys in document order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	err := v.encode(&buf)
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// UnmarshalJSON decodes data into v, keeping key order.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := ParseValue(data)
	if err != nil {
		return err
	}

	*v = parsed

	return nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindNumber:
		buf.WriteString(v.num.String())
	case KindString:
		data, err := json.Marshal(v.str)
		if err != nil {
			return err
		}

		buf.Write(data)
	case KindList:
		buf.WriteByte('[')

		for i, elem := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}

			err := elem.encode(buf)
			if err != nil {
				return err
			}
		}

		buf.WriteByte(']')
	case KindMap:
		buf.WriteByte('{')

		for i, key := range v.keys {
			if i > 0 {
				buf.WriteByte(',')
			}

			data, err := json.Marshal(key)
			if err != nil {
				return err
			}

			buf.Write(data)
			buf.WriteByte(':')

			err = v.fields[key].encode(buf)
			if err != nil {
				return err
			}
		}

		buf.WriteByte('}')
	}

	return nil
}
