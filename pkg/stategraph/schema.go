package stategraph

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

// Kind classifies the values a schema field accepts.
type Kind int

const (
	KindAny Kind = iota
	KindString
	KindNumber
	KindBool
	KindList
	KindMap
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "any"
	}
}

// accepts reports whether v fits the kind. nil fits every kind.
func (k Kind) accepts(v any) bool {
	if v == nil || k == KindAny {
		return true
	}
	switch k {
	case KindString:
		_, ok := v.(string)
		return ok
	case KindBool:
		_, ok := v.(bool)
		return ok
	case KindNumber:
		if _, ok := v.(json.Number); ok {
			return true
		}
		switch reflect.ValueOf(v).Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64:
			return true
		}
		return false
	case KindList:
		rk := reflect.ValueOf(v).Kind()
		return rk == reflect.Slice || rk == reflect.Array
	case KindMap:
		if _, ok := v.(Record); ok {
			return true
		}
		return reflect.ValueOf(v).Kind() == reflect.Map
	}
	return false
}

// Field declares one record field.
type Field struct {
	Name    string
	Kind    Kind
	Default any
}

// SchemaMode selects how undeclared writes are treated.
type SchemaMode int

const (
	// ModeOpen accepts undeclared fields and logs them at debug level.
	ModeOpen SchemaMode = iota
	// ModeStrict turns undeclared fields and kind mismatches into node failures.
	ModeStrict
)

// String returns "open" or "strict".
func (m SchemaMode) String() string {
	if m == ModeStrict {
		return "strict"
	}
	return "open"
}

// Schema enumerates the fields a workflow's records carry.
// A Schema is immutable once built.
type Schema struct {
	fields []Field
	index  map[string]int
	mode   SchemaMode
}

// NewSchema declares fields in order. The schema starts in ModeOpen.
//
// Panics if a field name is empty or declared twice.
func NewSchema(fields ...Field) *Schema {
	s := &Schema{
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		if f.Name == "" {
			panic("stategraph: schema field name cannot be empty")
		}
		if _, exists := s.index[f.Name]; exists {
			panic(fmt.Sprintf("stategraph: duplicate schema field: %s", f.Name))
		}
		if !f.Kind.accepts(f.Default) {
			panic(fmt.Sprintf("stategraph: default for field %s is %T, not %s", f.Name, f.Default, f.Kind))
		}
		s.index[f.Name] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	return s
}

// WithMode returns a copy of the schema using mode.
func (s *Schema) WithMode(mode SchemaMode) *Schema {
	c := *s
	c.mode = mode
	return &c
}

// Strict is shorthand for WithMode(ModeStrict).
func (s *Schema) Strict() *Schema {
	return s.WithMode(ModeStrict)
}

// Mode returns the schema mode.
func (s *Schema) Mode() SchemaMode {
	return s.mode
}

// Fields returns the declared fields in order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field returns the declaration for name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// New creates a fresh record holding every declared default in declaration
// order, with overrides merged on top.
func (s *Schema) New(overrides Record) Record {
	var base Record
	for _, f := range s.fields {
		base.set(f.Name, f.Default)
	}
	return base.Merge(overrides)
}

// Undeclared returns the fields of rec the schema does not declare, in order.
func (s *Schema) Undeclared(rec Record) []string {
	var out []string
	for _, k := range rec.keys {
		if _, ok := s.index[k]; !ok {
			out = append(out, k)
		}
	}
	return out
}

// Validate checks every field of rec against the schema. Kind mismatches are
// always reported; undeclared fields are reported only in ModeStrict.
// Violations are joined; each one is a *SchemaError.
func (s *Schema) Validate(rec Record) error {
	var errs []error
	for _, k := range rec.keys {
		v := rec.values[k]
		i, declared := s.index[k]
		if !declared {
			if s.mode == ModeStrict {
				errs = append(errs, &SchemaError{Field: k, Got: fmt.Sprintf("%T", v), Undeclared: true})
			}
			continue
		}
		f := s.fields[i]
		if !f.Kind.accepts(v) {
			errs = append(errs, &SchemaError{Field: k, Want: f.Kind, Got: fmt.Sprintf("%T", v)})
		}
	}
	return errors.Join(errs...)
}
