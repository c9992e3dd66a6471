package stategraph

import (
	"fmt"
	"strings"
)

// START is the synthetic entry marker. It is only ever an edge source.
const START = "__start__"

// END is the terminal marker.
// Use this as an edge target to indicate the graph should terminate.
const END = "__end__"

// NodeFunc is the signature for all node functions.
// Nodes receive the execution context and the current record, and return a
// partial update that the executor merges into the record.
//
// A node may return an update together with an error. The update is merged
// before the error is recorded, which is how retry counters advance on a
// failed attempt. Returning an empty Record leaves the state unchanged.
//
// Example:
//
//	func summarize(ctx stategraph.Context, in stategraph.Record) (stategraph.Record, error) {
//	    text := in.String("draft", "")
//	    return stategraph.NewRecord("summary", strings.ToUpper(text)), nil
//	}
type NodeFunc func(ctx Context, in Record) (Record, error)

// RouteKey is the discrete value a RouterFunc produces to pick a destination.
type RouteKey string

// Route keys shared by the built-in routers.
const (
	RouteKeySuccess  RouteKey = "success"
	RouteKeyError    RouteKey = "error"
	RouteKeyRetry    RouteKey = "retry"
	RouteKeyFallback RouteKey = "fallback"
)

// RouterFunc determines the route key for a conditional edge.
// The key is resolved against the edge's Routes mapping and default.
//
// Routers run after the source node and can inspect the node's failure via
// ctx.NodeErr().
//
// Example:
//
//	func router(ctx stategraph.Context, s stategraph.Record) stategraph.RouteKey {
//	    if s.Bool("done", false) {
//	        return "finish"
//	    }
//	    return "again"
//	}
type RouterFunc func(ctx Context, state Record) RouteKey

// validateNodeName rejects empty, whitespace-containing, and reserved names.
func validateNodeName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: node name cannot be empty", ErrInvalidNodeName)
	}
	switch strings.ToLower(name) {
	case "start", "end", START, END:
		return fmt.Errorf("%w: %q is reserved", ErrInvalidNodeName, name)
	}
	if strings.ContainsAny(name, " \t\n\r") {
		return fmt.Errorf("%w: %q contains whitespace", ErrInvalidNodeName, name)
	}
	return nil
}
