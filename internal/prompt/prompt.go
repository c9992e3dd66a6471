// Package prompt renders ${field} placeholders in prompt text from a state
// record.
package prompt

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/randalmurphal/stategraph/pkg/stategraph"
	"github.com/randalmurphal/stategraph/pkg/stategraph/llm"
)

// placeholder matches ${field} and ${field.nested}.
var placeholder = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*(?:\.[a-zA-Z_][a-zA-Z0-9_]*)*)\}`)

// MissingAction specifies how to handle fields absent from the record.
type MissingAction int

const (
	// MissingKeep leaves the placeholder in the output. This is the default.
	MissingKeep MissingAction = iota

	// MissingEmpty replaces the placeholder with "".
	MissingEmpty

	// MissingError fails the render with *UndefinedFieldError.
	MissingError
)

// Formatter renders one field value.
type Formatter func(v any) string

// Renderer expands placeholders. Safe for concurrent use after construction.
type Renderer struct {
	missing    MissingAction
	formatters map[string]Formatter
	empty      string
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithMissingAction sets how absent fields are handled.
func WithMissingAction(action MissingAction) Option {
	return func(r *Renderer) {
		r.missing = action
	}
}

// WithFormatter overrides value formatting for one field.
//
// Example:
//
//	prompt.WithFormatter("confidence_score", func(v any) string {
//	    return fmt.Sprintf("%.2f", v)
//	})
func WithFormatter(field string, f Formatter) Option {
	return func(r *Renderer) {
		r.formatters[field] = f
	}
}

// WithEmptyText sets the text substituted for empty lists, such as
// "None identified".
func WithEmptyText(text string) Option {
	return func(r *Renderer) {
		r.empty = text
	}
}

// New creates a Renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{formatters: make(map[string]Formatter)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render expands every placeholder in tmpl from rec.
//
// Values are formatted by kind: strings verbatim, lists one item per line,
// maps and lists of maps as indented JSON, numbers and bools with strconv.
func (r *Renderer) Render(tmpl string, rec stategraph.Record) (string, error) {
	var missing []string
	out := placeholder.ReplaceAllStringFunc(tmpl, func(match string) string {
		field := match[2 : len(match)-1]
		v, ok := lookup(rec, field)
		if !ok {
			switch r.missing {
			case MissingEmpty:
				return ""
			case MissingError:
				missing = append(missing, field)
			}
			return match
		}
		if f, ok := r.formatters[field]; ok {
			return f(v)
		}
		return r.format(v)
	})
	if len(missing) > 0 {
		return out, &UndefinedFieldError{Names: missing}
	}
	return out, nil
}

// MustRender is Render that panics on error. Use it with templates whose
// fields are guaranteed by the graph schema.
func (r *Renderer) MustRender(tmpl string, rec stategraph.Record) string {
	out, err := r.Render(tmpl, rec)
	if err != nil {
		panic(fmt.Sprintf("prompt: %v", err))
	}
	return out
}

func lookup(rec stategraph.Record, field string) (any, bool) {
	head, rest, nested := strings.Cut(field, ".")
	v, ok := rec.Get(head)
	if !ok || !nested {
		return v, ok
	}
	for _, part := range strings.Split(rest, ".") {
		m, isMap := v.(map[string]any)
		if !isMap {
			return nil, false
		}
		if v, ok = m[part]; !ok {
			return nil, false
		}
	}
	return v, true
}

func (r *Renderer) format(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case []string:
		if len(val) == 0 {
			return r.empty
		}
		return strings.Join(val, "\n")
	case []any:
		if len(val) == 0 {
			return r.empty
		}
		lines := make([]string, 0, len(val))
		for _, item := range val {
			if _, isMap := item.(map[string]any); isMap {
				return indentJSON(val)
			}
			lines = append(lines, r.format(item))
		}
		return strings.Join(lines, "\n")
	case []map[string]any:
		if len(val) == 0 {
			return r.empty
		}
		return indentJSON(val)
	case map[string]any:
		return indentJSON(val)
	default:
		return fmt.Sprint(val)
	}
}

func indentJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// UndefinedFieldError lists placeholders whose fields were absent.
type UndefinedFieldError struct {
	Names []string
}

func (e *UndefinedFieldError) Error() string {
	if len(e.Names) == 1 {
		return fmt.Sprintf("undefined field: %s", e.Names[0])
	}
	return fmt.Sprintf("undefined fields: %s", strings.Join(e.Names, ", "))
}

// Template pairs a system prompt with a user prompt template.
type Template struct {
	System string
	User   string
}

// Request renders the user template from rec into a single-turn request.
func (t Template) Request(r *Renderer, rec stategraph.Record) (llm.CompletionRequest, error) {
	user, err := r.Render(t.User, rec)
	if err != nil {
		return llm.CompletionRequest{}, err
	}
	return llm.Prompt(t.System, user), nil
}
