package stategraph

import (
	"fmt"
	"maps"

	"github.com/randalmurphal/stategraph/pkg/stategraph/observability"
)

// DefaultRetryCounterField is the record field a RetryPolicy counts failed
// attempts in when CounterField is empty.
const DefaultRetryCounterField = "retry_count"

// DefaultRetryNodeField is the record field naming the node whose failure
// last advanced the counter, when NodeField is empty.
const DefaultRetryNodeField = "retry_node"

// RetryPolicy bounds repeated attempts at a failing node and names the
// degraded path taken once attempts run out.
//
// The counter is an ordinary record field, so retry behaviour is visible in
// the state and in tests. Guard advances it on every failed attempt;
// Router compares it to MaxRetries after each failure:
//
//	counter < MaxRetries  -> RouteKeyRetry    (RetryTo)
//	otherwise             -> RouteKeyFallback (Fallback)
//
// With MaxRetries = 2 an always-failing node runs twice, leaves two entries
// in the error log, then the fallback runs.
//
// Policies sharing a counter also share NodeField, which names the node that
// last failed. Only that node clears the counter on success, so a retry
// routed through an upstream node still reaches MaxRetries.
type RetryPolicy struct {
	// MaxRetries is the number of failed attempts allowed before the
	// fallback is taken. Must be at least 1.
	MaxRetries int

	// CounterField names the record field holding the attempt counter.
	// Default: "retry_count".
	CounterField string

	// NodeField names the record field holding the node that last failed.
	// Default: "retry_node".
	NodeField string

	// RetryTo is the node a failed attempt routes back to.
	// Default: the failing node itself.
	RetryTo string

	// Fallback is the node taken once retries are exhausted. It must produce
	// a usable, possibly degraded, result. Required.
	Fallback string

	// ResetOnSuccess writes 0 to the counter when the guarded node succeeds
	// with a non-zero counter that its own failure advanced.
	ResetOnSuccess bool

	// RetryIf filters which failures are retried. Nil retries every failure;
	// a false result sends the failure straight to the fallback.
	RetryIf func(err error) bool

	node string
}

// ForNode returns a copy with defaults filled in for the node name.
func (p RetryPolicy) ForNode(name string) RetryPolicy {
	if p.RetryTo == "" {
		p.RetryTo = name
	}
	if p.CounterField == "" {
		p.CounterField = DefaultRetryCounterField
	}
	if p.NodeField == "" {
		p.NodeField = DefaultRetryNodeField
	}
	p.node = name
	return p
}

// Validate reports policies that cannot make progress.
func (p RetryPolicy) Validate() error {
	if p.MaxRetries < 1 {
		return fmt.Errorf("%w: MaxRetries must be at least 1, got %d", ErrInvalidRetryPolicy, p.MaxRetries)
	}
	if p.Fallback == "" {
		return fmt.Errorf("%w: fallback node is required", ErrInvalidRetryPolicy)
	}
	if p.RetryTo == "" {
		return fmt.Errorf("%w: retry target is not set", ErrInvalidRetryPolicy)
	}
	return nil
}

func (p RetryPolicy) counterField() string {
	if p.CounterField == "" {
		return DefaultRetryCounterField
	}
	return p.CounterField
}

func (p RetryPolicy) nodeField() string {
	if p.NodeField == "" {
		return DefaultRetryNodeField
	}
	return p.NodeField
}

// Attempts returns the failed-attempt counter held in state.
func (p RetryPolicy) Attempts(state Record) int {
	return state.Int(p.counterField(), 0)
}

// Guard wraps fn so that a failure also returns the incremented counter and
// the failing node in its partial update. The executor merges that update
// before recording the error, which is how the counter advances.
func (p RetryPolicy) Guard(fn NodeFunc) NodeFunc {
	if fn == nil {
		panic("stategraph: node function cannot be nil")
	}
	counter, owner := p.counterField(), p.nodeField()
	return func(ctx Context, in Record) (Record, error) {
		node := p.node
		if node == "" {
			node = ctx.NodeID()
		}
		update, err := fn(ctx, in)
		if err != nil {
			return update.With(counter, in.Int(counter, 0)+1).With(owner, node), err
		}
		if p.ResetOnSuccess && in.Int(counter, 0) != 0 && !update.Has(counter) {
			// An empty owner means the counter was seeded by the caller.
			if last := in.String(owner, ""); last == "" || last == node {
				update = update.With(counter, 0).With(owner, "")
			}
		}
		return update, nil
	}
}

// Router returns a RouterFunc implementing the retry decision. On success it
// delegates to next, or returns RouteKeySuccess when next is nil.
func (p RetryPolicy) Router(next RouterFunc) RouterFunc {
	return func(ctx Context, state Record) RouteKey {
		err := ctx.NodeErr()
		if err == nil {
			if next == nil {
				return RouteKeySuccess
			}
			return next(ctx, state)
		}

		attempts := p.Attempts(state)
		if attempts < p.MaxRetries && (p.RetryIf == nil || p.RetryIf(err)) {
			observability.LogRetry(ctx.Logger(), attempts, p.MaxRetries, p.RetryTo)
			return RouteKeyRetry
		}
		observability.LogFallback(ctx.Logger(), attempts, p.Fallback)
		return RouteKeyFallback
	}
}

// Routes builds the mapping for Router: the retry and fallback keys plus
// success (when non-empty) and any extra keys.
func (p RetryPolicy) Routes(success string, extra Routes) Routes {
	routes := maps.Clone(extra)
	if routes == nil {
		routes = Routes{}
	}
	if success != "" {
		routes[RouteKeySuccess] = success
	}
	routes[RouteKeyRetry] = p.RetryTo
	routes[RouteKeyFallback] = p.Fallback
	return routes
}
