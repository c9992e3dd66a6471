package stategraph

import (
	"maps"
	"slices"
)

// CompiledGraph is an immutable, executable graph.
// It is created by calling Compile() on a Graph builder.
//
// CompiledGraph is thread-safe and can be used concurrently for multiple
// Run() calls. Each run owns its own Record; the graph structure cannot be
// modified after compilation.
//
// Use the introspection methods (NodeNames, Successors, Routes, etc.) to
// examine the graph structure for debugging or visualization.
type CompiledGraph struct {
	nodes     *NodeRegistry
	edges     map[string]*edge
	edgeOrder []string
	schema    *Schema
	retries   map[string]RetryPolicy

	// Pre-computed for efficient lookup
	successors   map[string][]string
	predecessors map[string][]string
}

// NodeNames returns all node names in registration order.
func (cg *CompiledGraph) NodeNames() []string {
	return cg.nodes.Names()
}

// HasNode checks if a node exists in the graph.
func (cg *CompiledGraph) HasNode(name string) bool {
	return cg.nodes.Has(name)
}

// Lookup returns the executable transform for name, including any schema
// and retry wrapping applied at compile time.
func (cg *CompiledGraph) Lookup(name string) (NodeFunc, error) {
	return cg.nodes.Lookup(name)
}

// Entry returns the node START leads to.
func (cg *CompiledGraph) Entry() string {
	if e, ok := cg.edges[START]; ok && !e.conditional() {
		return e.to
	}
	return ""
}

// Successors returns every destination reachable in one step from name,
// static or conditional. Pass START for the entry. Returns nil for END or
// unknown nodes.
func (cg *CompiledGraph) Successors(name string) []string {
	return slices.Clone(cg.successors[name])
}

// Predecessors returns the sources with an edge into name.
// START appears for the entry node.
func (cg *CompiledGraph) Predecessors(name string) []string {
	return slices.Clone(cg.predecessors[name])
}

// IsConditional returns true if the node has a conditional edge set.
func (cg *CompiledGraph) IsConditional(name string) bool {
	e, ok := cg.edges[name]
	return ok && e.conditional()
}

// Routes returns a copy of the route mapping for a conditional source.
func (cg *CompiledGraph) Routes(name string) (Routes, bool) {
	e, ok := cg.edges[name]
	if !ok || !e.conditional() {
		return nil, false
	}
	return maps.Clone(e.routes), true
}

// DefaultRoute returns the default destination of a conditional source.
func (cg *CompiledGraph) DefaultRoute(name string) (string, bool) {
	e, ok := cg.edges[name]
	if !ok || !e.hasDefault {
		return "", false
	}
	return e.defaultDest, true
}

// RetryPolicy returns the policy guarding name, with defaults filled in.
func (cg *CompiledGraph) RetryPolicy(name string) (RetryPolicy, bool) {
	p, ok := cg.retries[name]
	return p, ok
}

// Schema returns the attached schema, or nil.
func (cg *CompiledGraph) Schema() *Schema {
	return cg.schema
}

// route resolves the destination after current. A static edge returns its
// destination; a conditional edge asks its router and resolves the key.
func (cg *CompiledGraph) route(ctx Context, current string, state Record) (string, RouteKey, error) {
	e, ok := cg.edges[current]
	if !ok {
		// Compile guarantees an outgoing edge for every node.
		return "", "", &RoutingError{From: current, State: state}
	}
	if !e.conditional() {
		return e.to, "", nil
	}

	key := e.router(ctx, state)
	dest, ok := e.resolve(key)
	if !ok {
		return "", key, &RoutingError{From: current, Key: key, State: state}
	}
	return dest, key, nil
}
