package stategraph

import (
	"maps"
	"slices"
)

// Routes maps route keys to destination node names (or END).
type Routes map[RouteKey]string

// RouteOption configures a conditional edge.
type RouteOption func(*edge)

// WithDefault sets the destination used when the router returns a key that
// is not in the mapping.
func WithDefault(destination string) RouteOption {
	return func(e *edge) {
		e.defaultDest = destination
		e.hasDefault = true
	}
}

// WithRouteKeys declares the closed set of keys the router can return.
// Compile rejects the edge if any declared key has neither a mapping nor a
// default, so unmapped keys are caught before a run starts.
func WithRouteKeys(keys ...RouteKey) RouteOption {
	return func(e *edge) {
		e.declaredKeys = append(e.declaredKeys, keys...)
	}
}

// ErrorAware wraps a router so that a failed node routes to RouteKeyError.
// On success the wrapped router decides.
func ErrorAware(router RouterFunc) RouterFunc {
	if router == nil {
		panic("stategraph: router function cannot be nil")
	}
	return func(ctx Context, state Record) RouteKey {
		if ctx.NodeErr() != nil {
			return RouteKeyError
		}
		return router(ctx, state)
	}
}

// Always returns a router that yields key regardless of state.
func Always(key RouteKey) RouterFunc {
	return func(Context, Record) RouteKey {
		return key
	}
}

// edge is one source's outgoing edge definition: a static destination or a
// conditional router with its mapping.
type edge struct {
	source string

	// static edge
	to string

	// conditional edge
	router       RouterFunc
	routes       Routes
	defaultDest  string
	hasDefault   bool
	declaredKeys []RouteKey
}

func (e *edge) conditional() bool {
	return e.router != nil
}

func (e *edge) kind() string {
	if e.conditional() {
		return "conditional"
	}
	return "static"
}

// destinations returns every node this edge can lead to, mapping order
// sorted by key, default last.
func (e *edge) destinations() []string {
	if !e.conditional() {
		return []string{e.to}
	}
	var out []string
	for _, k := range slices.Sorted(maps.Keys(e.routes)) {
		if dest := e.routes[k]; !slices.Contains(out, dest) {
			out = append(out, dest)
		}
	}
	if e.hasDefault && !slices.Contains(out, e.defaultDest) {
		out = append(out, e.defaultDest)
	}
	return out
}

// resolve picks the destination for key. Exact mapped key wins, then the
// default.
func (e *edge) resolve(key RouteKey) (string, bool) {
	if dest, ok := e.routes[key]; ok {
		return dest, true
	}
	if e.hasDefault {
		return e.defaultDest, true
	}
	return "", false
}

func (e *edge) clone() *edge {
	c := *e
	c.routes = maps.Clone(e.routes)
	c.declaredKeys = slices.Clone(e.declaredKeys)
	return &c
}
