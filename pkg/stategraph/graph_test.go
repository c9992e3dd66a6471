package stategraph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGraph(t *testing.T) {
	g := NewGraph()

	require.NotNil(t, g)
	assert.Equal(t, 0, g.nodes.Len())
	assert.Empty(t, g.edges)
}

func TestGraph_AddNode_Chaining(t *testing.T) {
	g := NewGraph().AddNode("a", noop).AddNode("b", noop)

	assert.Equal(t, []string{"a", "b"}, g.nodes.Names())
}

func TestGraph_AddNode_InvalidName_Panics(t *testing.T) {
	names := []string{"", "start", "END", "Start", START, END, "has space", "tab\there", "line\nbreak"}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			assert.Panics(t, func() { NewGraph().AddNode(name, noop) })
		})
	}
}

func TestGraph_AddNode_ValidNames(t *testing.T) {
	names := []string{"a", "query_analysis", "step-2", "fact.check", "starter", "ending"}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			assert.NotPanics(t, func() { NewGraph().AddNode(name, noop) })
		})
	}
}

func TestGraph_AddNode_NilFunc_Panics(t *testing.T) {
	assert.Panics(t, func() { NewGraph().AddNode("a", nil) })
}

func TestGraph_AddNode_Duplicate_ReportedByCompile(t *testing.T) {
	_, err := NewGraph().
		AddNode("a", noop).
		AddNode("a", noop).
		SetStart("a").
		SetEnd("a").
		Compile()

	require.Error(t, err)
	var dupErr *DuplicateNodeError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "a", dupErr.Name)
	assert.ErrorIs(t, err, ErrDuplicateNode)
}

func TestGraph_AddConditionalEdges_NilRouter_Panics(t *testing.T) {
	assert.Panics(t, func() { NewGraph().AddConditionalEdges("a", nil, Routes{"x": END}) })
}

func TestGraph_AddConditionalEdges_CopiesRoutes(t *testing.T) {
	routes := Routes{"x": END}
	g := NewGraph().AddNode("a", noop).SetStart("a").AddConditionalEdges("a", Always("x"), routes)
	routes["x"] = "elsewhere"

	assert.Equal(t, END, g.edges["a"].routes["x"])
}

func TestGraph_EdgeConflict(t *testing.T) {
	tests := []struct {
		name      string
		build     func(g *Graph)
		existing  string
		attempted string
	}{
		{
			name: "static then static",
			build: func(g *Graph) {
				g.AddEdge("a", END).AddEdge("a", "b")
			},
			existing:  "static",
			attempted: "static",
		},
		{
			name: "static then conditional",
			build: func(g *Graph) {
				g.AddEdge("a", END).AddConditionalEdges("a", Always("x"), Routes{"x": "b"})
			},
			existing:  "static",
			attempted: "conditional",
		},
		{
			name: "conditional then static",
			build: func(g *Graph) {
				g.AddConditionalEdges("a", Always("x"), Routes{"x": "b"}).AddEdge("a", END)
			},
			existing:  "conditional",
			attempted: "static",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGraph().AddNode("a", noop).AddNode("b", noop).SetStart("a").SetEnd("b")
			tt.build(g)

			_, err := g.Compile()
			require.Error(t, err)
			var conflict *EdgeConflictError
			require.ErrorAs(t, err, &conflict)
			assert.Equal(t, "a", conflict.Source)
			assert.Equal(t, tt.existing, conflict.Existing)
			assert.Equal(t, tt.attempted, conflict.Attempted)
			assert.True(t, errors.Is(err, ErrEdgeConflict))
		})
	}
}

func TestGraph_AddRetryEdges_InvalidPolicy(t *testing.T) {
	_, err := NewGraph().
		AddNode("a", noop).
		SetStart("a").
		AddRetryEdges("a", END, RetryPolicy{MaxRetries: 0, Fallback: END}).
		Compile()

	assert.ErrorIs(t, err, ErrInvalidRetryPolicy)

	_, err = NewGraph().
		AddNode("a", noop).
		SetStart("a").
		AddRetryEdges("a", END, RetryPolicy{MaxRetries: 1}).
		Compile()

	assert.ErrorIs(t, err, ErrInvalidRetryPolicy)
}

func TestGraph_FluentAPI(t *testing.T) {
	compiled, err := NewGraph().
		AddNode("fetch", noop).
		AddNode("process", noop).
		AddNode("report", noop).
		SetStart("fetch").
		AddEdge("fetch", "process").
		AddRetryEdges("process", "report", RetryPolicy{MaxRetries: 2, Fallback: "report"}).
		SetEnd("report").
		WithSchema(NewSchema(Field{Name: "query", Kind: KindString})).
		Compile()

	require.NoError(t, err)
	assert.Equal(t, []string{"fetch", "process", "report"}, compiled.NodeNames())
	assert.NotNil(t, compiled.Schema())
}
