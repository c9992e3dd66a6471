package stategraph

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/randalmurphal/stategraph/pkg/stategraph/observability"
)

// Compile validates the graph and creates an executable CompiledGraph.
// Returns an error if validation fails. Multiple errors are joined together.
//
// Validation checks:
//  1. Construction errors (duplicate nodes, conflicting edges, invalid retry policies)
//  2. START must have an outgoing edge
//  3. All edge sources must be existing nodes or START; END is never a source
//  4. All edge destinations must be existing nodes or END; START is never a destination
//  5. Conditional edges need a mapping or a default, and every declared key
//     must resolve
//  6. Every node must have an outgoing edge
//  7. Every node must be reachable from START
//  8. END must be reachable from START
//
// Conditional destinations are known statically from their mapping and
// default, so reachability is exact.
func (g *Graph) Compile() (*CompiledGraph, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var errs []error

	// 1. Collected construction errors
	if err := g.buildErrors(); err != nil {
		errs = append(errs, err)
	}

	// 2. START edge
	if _, ok := g.edges[START]; !ok {
		errs = append(errs, ErrNoStart)
	}

	// 3-5. Edge references
	for _, src := range g.edgeOrder {
		e := g.edges[src]
		switch {
		case src == END:
			errs = append(errs, ErrInvalidSource)
		case src != START && !g.nodes.Has(src):
			errs = append(errs, fmt.Errorf("%w: edge source '%s' does not exist", ErrNodeNotFound, src))
		}

		if e.conditional() {
			if len(e.routes) == 0 && !e.hasDefault {
				errs = append(errs, fmt.Errorf("%w: from '%s'", ErrEmptyRoutes, src))
			}
			for _, key := range e.declaredKeys {
				if _, mapped := e.routes[key]; !mapped && !e.hasDefault {
					errs = append(errs, fmt.Errorf("%w: key %q from '%s'", ErrUnmappedRouteKey, key, src))
				}
			}
		}

		for _, dest := range e.destinations() {
			switch {
			case dest == START:
				errs = append(errs, fmt.Errorf("%w: edge from '%s'", ErrInvalidDestination, src))
			case dest == END:
			case !g.nodes.Has(dest):
				errs = append(errs, fmt.Errorf("%w: edge target '%s' from '%s' does not exist", ErrNodeNotFound, dest, src))
			}
		}
	}

	// 6. Outgoing edges
	for _, name := range g.nodes.Names() {
		if _, ok := g.edges[name]; !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrNoOutgoingEdge, name))
		}
	}

	// 7-8. Reachability
	if _, ok := g.edges[START]; ok {
		reachable := g.findReachableNodes()
		for _, name := range g.nodes.Names() {
			if !reachable[name] {
				errs = append(errs, fmt.Errorf("%w: %s", ErrUnreachableNode, name))
			}
		}
		if !reachable[END] {
			errs = append(errs, ErrNoPathToEnd)
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return g.buildCompiledGraph(), nil
}

// findReachableNodes returns the set of nodes reachable from START,
// including END when some path leads there.
func (g *Graph) findReachableNodes() map[string]bool {
	reachable := map[string]bool{START: true}

	// BFS from START
	queue := []string{START}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		e, ok := g.edges[current]
		if !ok {
			continue
		}
		for _, next := range e.destinations() {
			if reachable[next] {
				continue
			}
			reachable[next] = true
			if next != END {
				queue = append(queue, next)
			}
		}
	}

	return reachable
}

// buildCompiledGraph creates the immutable CompiledGraph from the builder state.
// Node transforms are wrapped, innermost first, with panic recovery, schema
// enforcement and retry guards.
func (g *Graph) buildCompiledGraph() *CompiledGraph {
	nodes := g.nodes.clone()
	for _, name := range nodes.Names() {
		fn, _ := nodes.Lookup(name)
		fn = recoverPanics(name, fn)
		if g.schema != nil {
			fn = enforceSchema(g.schema, fn)
		}
		if p, ok := g.retries[name]; ok {
			fn = p.Guard(fn)
		}
		nodes.replace(name, fn)
	}

	edges := make(map[string]*edge, len(g.edges))
	for src, e := range g.edges {
		edges[src] = e.clone()
	}

	// Pre-compute successors and predecessors
	successors := make(map[string][]string, len(edges))
	predecessors := make(map[string][]string)
	for _, src := range g.edgeOrder {
		dests := edges[src].destinations()
		successors[src] = dests
		for _, to := range dests {
			if to != END && !slices.Contains(predecessors[to], src) {
				predecessors[to] = append(predecessors[to], src)
			}
		}
	}

	return &CompiledGraph{
		nodes:        nodes,
		edges:        edges,
		edgeOrder:    slices.Clone(g.edgeOrder),
		schema:       g.schema,
		retries:      maps.Clone(g.retries),
		successors:   successors,
		predecessors: predecessors,
	}
}

// enforceSchema validates a node's update against s. In ModeStrict a
// violation fails the node and the update is dropped; in ModeOpen undeclared
// fields are logged at debug level.
func enforceSchema(s *Schema, fn NodeFunc) NodeFunc {
	return func(ctx Context, in Record) (Record, error) {
		update, err := fn(ctx, in)
		if s.Mode() != ModeStrict {
			observability.LogUndeclaredFields(ctx.Logger(), s.Undeclared(update))
			return update, err
		}
		if verr := s.Validate(update); verr != nil {
			return Record{}, errors.Join(err, verr)
		}
		return update, err
	}
}
