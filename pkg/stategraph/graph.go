package stategraph

import (
	"errors"
	"fmt"
	"maps"
	"sync"
)

// Graph is a mutable builder for creating execution graphs.
// Use NewGraph to create a new graph, then chain AddNode, AddEdge,
// AddConditionalEdges and SetStart calls to define the workflow.
//
// Graph is NOT thread-safe during building. Use a single goroutine
// to construct the graph, then call Compile() to create an immutable
// CompiledGraph that can be safely shared.
//
// Construction errors such as duplicate nodes or conflicting edges are
// collected and reported together by Compile.
//
// Example:
//
//	graph := stategraph.NewGraph().
//	    AddNode("fetch", fetchNode).
//	    AddNode("process", processNode).
//	    SetStart("fetch").
//	    AddEdge("fetch", "process").
//	    SetEnd("process")
//
//	compiled, err := graph.Compile()
type Graph struct {
	mu        sync.RWMutex
	nodes     *NodeRegistry
	edges     map[string]*edge
	edgeOrder []string
	retries   map[string]RetryPolicy
	schema    *Schema
	errs      []error
}

// NewGraph creates a new graph builder.
func NewGraph() *Graph {
	return &Graph{
		nodes:   NewNodeRegistry(),
		edges:   make(map[string]*edge),
		retries: make(map[string]RetryPolicy),
	}
}

// AddNode adds a named node to the graph.
// Returns the graph for method chaining.
//
// Panics if:
//   - name is empty
//   - name is reserved ("start", "end", START or END, case-insensitive)
//   - name contains whitespace (space, tab, newline)
//   - fn is nil
//
// A duplicate name is reported by Compile as *DuplicateNodeError.
func (g *Graph) AddNode(name string, fn NodeFunc) *Graph {
	if err := validateNodeName(name); err != nil {
		panic("stategraph: " + err.Error())
	}
	if fn == nil {
		panic("stategraph: node function cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.nodes.Register(name, fn); err != nil {
		g.errs = append(g.errs, err)
	}
	return g
}

// AddEdge adds a static edge from one node to another.
// The source can be a node name or START; the destination a node name or END.
// Returns the graph for method chaining.
//
// Edge validation happens at Compile() time, not here.
// This allows edges to be added in any order.
func (g *Graph) AddEdge(from, to string) *Graph {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.addEdge(&edge{source: from, to: to})
	return g
}

// AddConditionalEdges adds a conditional edge set: after source runs, router
// produces a RouteKey that is resolved against routes, then the default set
// with WithDefault. A key with neither is a *RoutingError at run time.
// Returns the graph for method chaining.
//
// A source can have either one static edge or one conditional edge set.
//
// Example:
//
//	graph.AddConditionalEdges("search", stategraph.ErrorAware(next),
//	    stategraph.Routes{"ok": "analyze", stategraph.RouteKeyError: "report"},
//	    stategraph.WithDefault("analyze"))
func (g *Graph) AddConditionalEdges(source string, router RouterFunc, routes Routes, opts ...RouteOption) *Graph {
	if router == nil {
		panic("stategraph: router function cannot be nil")
	}

	e := &edge{source: source, router: router, routes: maps.Clone(routes)}
	if e.routes == nil {
		e.routes = Routes{}
	}
	for _, opt := range opts {
		opt(e)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.addEdge(e)
	return g
}

// SetStart adds the edge START -> name.
// Returns the graph for method chaining.
func (g *Graph) SetStart(name string) *Graph {
	return g.AddEdge(START, name)
}

// SetEnd adds the edge name -> END.
// Returns the graph for method chaining.
func (g *Graph) SetEnd(name string) *Graph {
	return g.AddEdge(name, END)
}

// AddRetryEdges guards from with policy and wires its outgoing edges:
// success goes to onSuccess, a failure is retried at policy.RetryTo (the
// failing node itself when empty) until the counter reaches MaxRetries, and
// then the fallback node runs.
// Returns the graph for method chaining.
func (g *Graph) AddRetryEdges(from, onSuccess string, policy RetryPolicy) *Graph {
	return g.AddRetryRouter(from, policy, nil, Routes{RouteKeySuccess: onSuccess})
}

// AddRetryRouter is AddRetryEdges with a custom router for the success path.
// next decides among routes when the node succeeds; the retry and fallback
// keys are added to routes automatically.
// Returns the graph for method chaining.
func (g *Graph) AddRetryRouter(from string, policy RetryPolicy, next RouterFunc, routes Routes, opts ...RouteOption) *Graph {
	p := policy.ForNode(from)

	g.mu.Lock()
	if err := p.Validate(); err != nil {
		g.errs = append(g.errs, fmt.Errorf("node %s: %w", from, err))
	}
	if _, exists := g.retries[from]; !exists {
		g.retries[from] = p
	}
	g.mu.Unlock()

	return g.AddConditionalEdges(from, p.Router(next), p.Routes("", routes), opts...)
}

// WithSchema attaches a schema. In ModeStrict every node update is validated
// and a violation is a node failure; in ModeOpen undeclared writes are logged
// at debug level.
// Returns the graph for method chaining.
func (g *Graph) WithSchema(s *Schema) *Graph {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.schema = s
	return g
}

// addEdge stores e unless its source already has an edge set.
// Caller must hold g.mu.
func (g *Graph) addEdge(e *edge) {
	if existing, ok := g.edges[e.source]; ok {
		g.errs = append(g.errs, &EdgeConflictError{
			Source:    e.source,
			Existing:  existing.kind(),
			Attempted: e.kind(),
		})
		return
	}
	g.edges[e.source] = e
	g.edgeOrder = append(g.edgeOrder, e.source)
}

// buildErrors returns construction-time errors collected so far.
func (g *Graph) buildErrors() error {
	return errors.Join(g.errs...)
}
