package stategraph

import (
	"context"
	"errors"
	"runtime/debug"
	"time"
)

// Middleware decorates a node transform.
type Middleware func(NodeFunc) NodeFunc

// Chain applies middleware to fn. The first middleware is the outermost.
//
// Example:
//
//	node := stategraph.Chain(search, stategraph.Timeout(5*time.Second), logCalls)
func Chain(fn NodeFunc, mws ...Middleware) NodeFunc {
	if fn == nil {
		panic("stategraph: node function cannot be nil")
	}
	for i := len(mws) - 1; i >= 0; i-- {
		fn = mws[i](fn)
	}
	return fn
}

// Timeout returns middleware applying WithTimeout.
func Timeout(d time.Duration) Middleware {
	return func(fn NodeFunc) NodeFunc {
		return WithTimeout(fn, d)
	}
}

// WithTimeout runs fn under a deadline of d. The node sees the deadline
// through its Context and is expected to return once it passes; WithTimeout
// always waits for fn to return, so the next node never starts while fn is
// still running. If the deadline passed, the step fails with a
// *NodeExecutionError wrapping *TimeoutError and fn's result is discarded.
// A non-positive d returns fn unchanged.
//
// Cancellation of the run's own context is returned as-is.
func WithTimeout(fn NodeFunc, d time.Duration) NodeFunc {
	if fn == nil {
		panic("stategraph: node function cannot be nil")
	}
	if d <= 0 {
		return fn
	}

	return func(ctx Context, in Record) (update Record, err error) {
		tctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		update, err = callRecovering(fn, Derive(ctx, tctx), in)
		var panicErr *PanicError
		if errors.As(err, &panicErr) {
			return update, err
		}
		if ctx.Err() != nil {
			if err == nil {
				err = ctx.Err()
			}
			return Record{}, err
		}
		if errors.Is(tctx.Err(), context.DeadlineExceeded) {
			return Record{}, &NodeExecutionError{
				Node: ctx.NodeID(),
				Step: ctx.Step(),
				Err:  &TimeoutError{Node: ctx.NodeID(), Timeout: d},
			}
		}
		return update, err
	}
}

func callRecovering(fn NodeFunc, ctx Context, in Record) (update Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			update, err = Record{}, &PanicError{Node: ctx.NodeID(), Value: r, Stack: string(debug.Stack())}
		}
	}()
	return fn(ctx, in)
}
