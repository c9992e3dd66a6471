package stategraph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func researchLikeSchema() *Schema {
	return NewSchema(
		Field{Name: "query", Kind: KindString, Default: ""},
		Field{Name: "key_topics", Kind: KindList, Default: []string{}},
		Field{Name: "confidence_score", Kind: KindNumber, Default: 0.0},
		Field{Name: "done", Kind: KindBool, Default: false},
		Field{Name: "plan", Kind: KindMap},
		Field{Name: "extra", Kind: KindAny},
	)
}

func TestSchema_New(t *testing.T) {
	s := researchLikeSchema()

	rec := s.New(NewRecord("query", "go", "retry_count", 0))

	assert.Equal(t, []string{"query", "key_topics", "confidence_score", "done", "plan", "extra", "retry_count"}, rec.Keys())
	assert.Equal(t, "go", rec.String("query", ""))
	assert.Equal(t, []string{}, rec.Strings("key_topics", nil))
	assert.Equal(t, 0.0, rec.Float("confidence_score", -1))
}

func TestSchema_New_DefaultsAreCopied(t *testing.T) {
	s := NewSchema(Field{Name: "items", Kind: KindList, Default: []string{"a"}})

	first := s.New(Record{})
	second := s.New(Record{})
	items := first.Strings("items", nil)
	items[0] = "mutated"

	assert.Equal(t, []string{"a"}, second.Strings("items", nil))
}

func TestNewSchema_Panics(t *testing.T) {
	tests := []struct {
		name   string
		fields []Field
	}{
		{"empty name", []Field{{Name: ""}}},
		{"duplicate", []Field{{Name: "a"}, {Name: "a"}}},
		{"bad default", []Field{{Name: "a", Kind: KindNumber, Default: "one"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Panics(t, func() { NewSchema(tt.fields...) })
		})
	}
}

func TestSchema_Field(t *testing.T) {
	s := researchLikeSchema()

	f, ok := s.Field("confidence_score")
	require.True(t, ok)
	assert.Equal(t, KindNumber, f.Kind)

	_, ok = s.Field("missing")
	assert.False(t, ok)
	assert.Len(t, s.Fields(), 6)
}

func TestSchema_Modes(t *testing.T) {
	open := researchLikeSchema()
	strict := open.Strict()

	assert.Equal(t, ModeOpen, open.Mode())
	assert.Equal(t, ModeStrict, strict.Mode())
	assert.Equal(t, "open", open.Mode().String())
	assert.Equal(t, "strict", strict.Mode().String())
}

func TestSchema_Validate(t *testing.T) {
	open := researchLikeSchema()
	strict := open.Strict()

	valid := NewRecord(
		"query", "q",
		"key_topics", []any{"a"},
		"confidence_score", 1,
		"done", true,
		"plan", map[string]any{"k": "v"},
		"extra", struct{}{},
	)
	assert.NoError(t, open.Validate(valid))
	assert.NoError(t, strict.Validate(valid))

	undeclared := NewRecord("surprise", 1)
	assert.NoError(t, open.Validate(undeclared))
	err := strict.Validate(undeclared)
	require.Error(t, err)
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.True(t, schemaErr.Undeclared)
	assert.Equal(t, "surprise", schemaErr.Field)
	assert.True(t, errors.Is(err, ErrSchemaViolation))

	err = open.Validate(NewRecord("confidence_score", "high"))
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, KindNumber, schemaErr.Want)
	assert.Equal(t, "string", schemaErr.Got)
	assert.Equal(t, `field "confidence_score": want number, got string`, schemaErr.Error())

	assert.NoError(t, strict.Validate(NewRecord("query", nil)))
}

func TestSchema_Undeclared(t *testing.T) {
	s := researchLikeSchema()
	rec := NewRecord("query", "q", "b", 1, "a", 2)

	assert.Equal(t, []string{"b", "a"}, s.Undeclared(rec))
	assert.Empty(t, s.Undeclared(NewRecord("query", "q")))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "any", KindAny.String())
	assert.Equal(t, "string", KindString.String())
	assert.Equal(t, "number", KindNumber.String())
	assert.Equal(t, "bool", KindBool.String())
	assert.Equal(t, "list", KindList.String())
	assert.Equal(t, "map", KindMap.String())
}
