package stategraph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"slices"

	"github.com/mitchellh/mapstructure"
)

// Record is the ordered state record threaded through a run.
//
// A Record is never mutated in place: With, Without and Merge return new
// records, and nested sequences and maps are deep-copied on the way in and on
// the way out so callers cannot alias internal storage. The zero Record is
// empty and ready to use.
type Record struct {
	keys   []string
	values map[string]any
}

// NewRecord builds a Record from alternating key/value pairs in order.
//
// Panics if the argument count is odd or a key is not a string.
//
// Example:
//
//	rec := stategraph.NewRecord("query", "go generics", "retry_count", 0)
func NewRecord(pairs ...any) Record {
	if len(pairs)%2 != 0 {
		panic("stategraph: NewRecord requires key/value pairs")
	}
	r := Record{
		keys:   make([]string, 0, len(pairs)/2),
		values: make(map[string]any, len(pairs)/2),
	}
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			panic(fmt.Sprintf("stategraph: NewRecord key at position %d is %T, not string", i, pairs[i]))
		}
		r.set(key, pairs[i+1])
	}
	return r
}

// FromMap builds a Record from a map. Keys are sorted so the result is
// deterministic.
func FromMap(m map[string]any) Record {
	keys := slices.Sorted(maps.Keys(m))
	r := Record{
		keys:   make([]string, 0, len(keys)),
		values: make(map[string]any, len(keys)),
	}
	for _, k := range keys {
		r.set(k, m[k])
	}
	return r
}

// set writes in place. Only used while building a fresh record.
func (r *Record) set(key string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, exists := r.values[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.values[key] = copyValue(value)
}

func (r Record) clone() Record {
	return Record{
		keys:   slices.Clone(r.keys),
		values: maps.Clone(r.values),
	}
}

// Len returns the number of fields.
func (r Record) Len() int {
	return len(r.keys)
}

// Keys returns field names in insertion order.
func (r Record) Keys() []string {
	return slices.Clone(r.keys)
}

// Has returns true if the field exists.
func (r Record) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// Get returns a copy of the value for key and whether it exists.
func (r Record) Get(key string) (any, bool) {
	v, ok := r.values[key]
	if !ok {
		return nil, false
	}
	return copyValue(v), true
}

// With returns a new Record with key set to value.
// An existing key keeps its position.
func (r Record) With(key string, value any) Record {
	out := r.clone()
	out.set(key, value)
	return out
}

// Without returns a new Record with the given keys removed.
func (r Record) Without(keys ...string) Record {
	out := r.clone()
	for _, k := range keys {
		if _, ok := out.values[k]; !ok {
			continue
		}
		delete(out.values, k)
		out.keys = slices.DeleteFunc(out.keys, func(existing string) bool { return existing == k })
	}
	return out
}

// Merge returns a new Record where every field of partial replaces the
// corresponding field of r wholesale. Fields absent from partial are copied
// unchanged; fields only in partial are appended in partial's order.
func (r Record) Merge(partial Record) Record {
	return Merge(r, partial)
}

// Merge combines prior and partial. See Record.Merge.
func Merge(prior, partial Record) Record {
	if partial.Len() == 0 {
		return prior.clone()
	}
	out := prior.clone()
	for _, k := range partial.keys {
		out.set(k, partial.values[k])
	}
	return out
}

// ToMap returns a deep copy of the record as a plain map.
func (r Record) ToMap() map[string]any {
	m := make(map[string]any, len(r.keys))
	for _, k := range r.keys {
		m[k] = copyValue(r.values[k])
	}
	return m
}

// Range calls fn for each field in order until fn returns false.
// Values are copies.
func (r Record) Range(fn func(key string, value any) bool) {
	for _, k := range r.keys {
		if !fn(k, copyValue(r.values[k])) {
			return
		}
	}
}

// String returns the string value for key, or defaultVal if missing or not a string.
func (r Record) String(key, defaultVal string) string {
	if s, ok := r.values[key].(string); ok {
		return s
	}
	return defaultVal
}

// Int returns the integer value for key, or defaultVal if missing or not convertible.
//
// Accepts int, int32, int64, json.Number, and float64 without a fractional part.
func (r Record) Int(key string, defaultVal int) int {
	switch val := r.values[key].(type) {
	case int:
		return val
	case int32:
		return int(val)
	case int64:
		return int(val)
	case float64:
		if val == float64(int(val)) {
			return int(val)
		}
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return int(n)
		}
	}
	return defaultVal
}

// Float returns the float64 value for key, or defaultVal if missing or not convertible.
func (r Record) Float(key string, defaultVal float64) float64 {
	switch val := r.values[key].(type) {
	case float64:
		return val
	case float32:
		return float64(val)
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return f
		}
	}
	return defaultVal
}

// Bool returns the boolean value for key, or defaultVal if missing or not a bool.
func (r Record) Bool(key string, defaultVal bool) bool {
	if b, ok := r.values[key].(bool); ok {
		return b
	}
	return defaultVal
}

// Strings returns the string slice for key, or defaultVal if missing or not convertible.
//
// Accepts []string and []any whose elements are all strings.
func (r Record) Strings(key string, defaultVal []string) []string {
	switch val := r.values[key].(type) {
	case []string:
		return slices.Clone(val)
	case []any:
		result := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return defaultVal
			}
			result = append(result, s)
		}
		return result
	}
	return defaultVal
}

// List returns a copy of the sequence for key as []any, or defaultVal if the
// value is missing or not a slice.
func (r Record) List(key string, defaultVal []any) []any {
	v, ok := r.values[key]
	if !ok || v == nil {
		return defaultVal
	}
	if l, ok := v.([]any); ok {
		return copyValue(l).([]any)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return defaultVal
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = copyValue(rv.Index(i).Interface())
	}
	return out
}

// Map returns a copy of the nested mapping for key, or defaultVal if missing
// or not a map[string]any.
func (r Record) Map(key string, defaultVal map[string]any) map[string]any {
	switch val := r.values[key].(type) {
	case map[string]any:
		return copyValue(val).(map[string]any)
	case Record:
		return val.ToMap()
	}
	return defaultVal
}

// Decode maps the record onto out, which must be a pointer to a struct or map.
// Struct fields are matched by their `mapstructure` tag, falling back to the
// field name. Numeric and string conversions are weakly typed.
func (r Record) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}
	if err := dec.Decode(r.ToMap()); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return nil
}

// MarshalJSON encodes the record as a JSON object in field order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, fmt.Errorf("marshal field %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping top-level fields in document order.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("record must be a JSON object")
	}

	out := Record{values: make(map[string]any)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("record key must be a string, got %T", tok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("decode field %q: %w", key, err)
		}
		out.set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = out
	return nil
}

// Summary renders the record as compact JSON truncated to at most max runes.
// A non-positive max disables truncation.
func (r Record) Summary(max int) string {
	b, err := r.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<unencodable record: %v>", err)
	}
	s := []rune(string(b))
	if max <= 0 || len(s) <= max {
		return string(s)
	}
	if max <= 3 {
		return string(s[:max])
	}
	return string(s[:max-3]) + "..."
}

// Equal reports whether a and b hold the same fields with deeply equal values.
// Field order is ignored.
func Equal(a, b Record) bool {
	if a.Len() != b.Len() {
		return false
	}
	for _, k := range a.keys {
		bv, ok := b.values[k]
		if !ok {
			return false
		}
		if !reflect.DeepEqual(a.values[k], bv) {
			return false
		}
	}
	return true
}

// GoString implements fmt.GoStringer.
func (r Record) GoString() string {
	return "stategraph.Record" + r.Summary(0)
}

// copyValue deep-copies the container types a Record supports. Scalars and
// unknown types are returned as-is.
func copyValue(v any) any {
	switch val := v.(type) {
	case []any:
		if val == nil {
			return val
		}
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	case []string:
		return slices.Clone(val)
	case []float64:
		return slices.Clone(val)
	case []int:
		return slices.Clone(val)
	case []map[string]any:
		if val == nil {
			return val
		}
		out := make([]map[string]any, len(val))
		for i, item := range val {
			out[i] = copyValue(item).(map[string]any)
		}
		return out
	case map[string]any:
		if val == nil {
			return val
		}
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = copyValue(item)
		}
		return out
	case Record:
		return val.clone()
	}
	return v
}
