package stategraph

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/randalmurphal/stategraph/pkg/stategraph/observability"
)

// RunResult is the outcome of Execute.
type RunResult struct {
	// RunID identifies the run in logs, spans and hook events.
	RunID string
	// State is the final record, or the partial record on a fatal error.
	State Record
	// Steps is the number of node invocations.
	Steps int
	// Path lists the nodes invoked, in order.
	Path []string
	// HookErrors collects panics recovered from observation hooks.
	HookErrors []*HookError
}

// Run executes the graph with the given initial record and returns the final
// record.
//
// On a fatal error (*RoutingError, *CycleExceededError, *CancellationError)
// the returned record is the state at the point of failure.
// Node failures are not fatal: they are appended to the errors field and
// routed like any other outcome.
//
// Example:
//
//	ctx := stategraph.NewContext(context.Background())
//	final, err := compiled.Run(ctx, stategraph.NewRecord("query", "go"))
//	if err != nil {
//	    // final contains state at point of failure
//	}
func (cg *CompiledGraph) Run(ctx Context, initial Record, opts ...RunOption) (Record, error) {
	res, err := cg.Execute(ctx, initial, opts...)
	return res.State, err
}

// Execute is Run with the full RunResult. The result is never nil.
//
// Execution flow:
//  1. Resolve the entry node from START
//  2. Check the step ceiling and cancellation
//  3. Notify hooks, invoke the node, merge its update, record any failure
//  4. Route to the next node (static edge or router + mapping + default)
//  5. Repeat until END or a fatal error
func (cg *CompiledGraph) Execute(ctx Context, initial Record, opts ...RunOption) (result *RunResult, runErr error) {
	if ctx == nil {
		return &RunResult{State: initial}, ErrNilContext
	}

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	ec := toExecutionContext(ctx, cfg.runID)
	result = &RunResult{RunID: ec.runID, State: initial}

	startTime := time.Now()
	observability.LogRunStart(cfg.logger, ec.runID)

	// Start run span if tracing enabled
	var traceCtx context.Context = ec
	if cfg.tracingEnabled {
		var runSpan trace.Span
		traceCtx, runSpan = cfg.spans.StartRunSpan(ec, "stategraph", ec.runID)
		defer func() {
			cfg.spans.EndSpanWithError(runSpan, runErr)
		}()
	}

	runErr = cg.walk(traceCtx, ec, result, &cfg)

	duration := time.Since(startTime)
	durationMs := float64(duration.Milliseconds())
	cfg.metrics.RecordGraphRun(ec, runErr == nil, duration)

	if runErr != nil {
		observability.LogRunError(cfg.logger, ec.runID, runErr, durationMs, lastNode(runErr))
	} else {
		observability.LogRunComplete(cfg.logger, ec.runID, durationMs, result.Steps)
	}

	return result, runErr
}

// walk drives the run from START to END, updating res as it goes.
// traceCtx carries span context; ec carries run metadata and cancellation.
func (cg *CompiledGraph) walk(traceCtx context.Context, ec *executionContext, res *RunResult, cfg *runConfig) error {
	current := START

	for current != END {
		var (
			nctx    *executionContext
			nodeErr error
		)

		if current == START {
			nctx = ec.withNode(traceCtx, START, 0)
		} else {
			if res.Steps >= cfg.maxSteps {
				return &CycleExceededError{
					Max:      cfg.maxSteps,
					LastNode: current,
					State:    res.State,
				}
			}

			// Check for cancellation before executing node
			select {
			case <-ec.Done():
				return &CancellationError{
					Node:  current,
					State: res.State,
					Cause: ec.Err(),
				}
			default:
			}

			fn, err := cg.nodes.Lookup(current)
			if err != nil {
				// Compile guarantees every destination is registered.
				return err
			}

			res.Steps++
			res.Path = append(res.Path, current)
			nctx, nodeErr = cg.invoke(traceCtx, ec, current, fn, res, cfg)
		}

		next, key, err := cg.route(nctx.withNodeErr(nodeErr), current, res.State)
		if err != nil {
			return err
		}

		observability.LogRoute(cfg.logger, current, next, string(key))
		cg.recordRoute(traceCtx, cfg, current, next, key, res.State)
		current = next
	}

	return nil
}

// recordRoute reports a resolved transition on the run span and to the
// metrics recorder. Retry and fallback decisions of a retry policy get their
// own event, carrying the attempt count.
func (cg *CompiledGraph) recordRoute(traceCtx context.Context, cfg *runConfig, from, to string, key RouteKey, state Record) {
	cfg.metrics.RecordTransition(traceCtx, from, to)

	event := observability.EventRoute
	attrs := observability.RouteAttributes(from, to, string(key))
	if p, ok := cg.RetryPolicy(from); ok && (key == RouteKeyRetry || key == RouteKeyFallback) {
		outcome := observability.RetryOutcomeRetry
		event = observability.EventRetry
		if key == RouteKeyFallback {
			outcome = observability.RetryOutcomeFallback
			event = observability.EventFallback
		}
		cfg.metrics.RecordRetry(traceCtx, from, outcome)
		attrs = append(attrs, observability.AttrAttempts.Int(p.Attempts(state)))
	}
	cfg.spans.AddSpanEvent(traceCtx, event, attrs...)
}

// invoke runs one node step: hooks, transform, merge and error recording.
// It returns the node's context and its failure, if any.
func (cg *CompiledGraph) invoke(traceCtx context.Context, ec *executionContext, name string, fn NodeFunc, res *RunResult, cfg *runConfig) (*executionContext, error) {
	step := res.Steps

	// Start node span if tracing enabled
	spanCtx := traceCtx
	var nodeSpan trace.Span
	if cfg.tracingEnabled {
		spanCtx, nodeSpan = cfg.spans.StartNodeSpan(traceCtx, name, step)
	}
	nctx := ec.withNode(spanCtx, name, step)

	input := res.State
	started := time.Now()
	notifyHooks(nctx, cfg.hooks, res, Event{
		Type:      PreNode,
		RunID:     ec.runID,
		Node:      name,
		Step:      step,
		Timestamp: started,
		Started:   started,
		State:     input,
	})
	observability.LogNodeStart(cfg.logger, name, step)

	update, nodeErr := executeNode(nctx, name, step, fn, input)

	duration := time.Since(started)
	state := Merge(input, update)
	if nodeErr != nil {
		state = appendError(state, cfg.errorsField, nodeErr)
		observability.LogNodeError(cfg.logger, name, nodeErr)
	} else {
		observability.LogNodeComplete(cfg.logger, name, float64(duration.Milliseconds()))
	}
	res.State = state

	cfg.metrics.RecordNodeExecution(spanCtx, name, duration, nodeErr)
	if cfg.tracingEnabled {
		cfg.spans.EndSpanWithError(nodeSpan, nodeErr)
	}

	notifyHooks(nctx, cfg.hooks, res, Event{
		Type:      PostNode,
		RunID:     ec.runID,
		Node:      name,
		Step:      step,
		Timestamp: time.Now(),
		Started:   started,
		Duration:  duration,
		State:     state,
		Update:    update,
		Err:       nodeErr,
	})

	return nctx, nodeErr
}

// executeNode executes a single node with panic recovery.
// Every failure is returned as a *NodeExecutionError.
func executeNode(ctx Context, name string, step int, fn NodeFunc, in Record) (update Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			update = Record{}
			err = &NodeExecutionError{
				Node: name,
				Step: step,
				Err:  &PanicError{Node: name, Value: r, Stack: string(debug.Stack())},
			}
		}
	}()

	update, err = fn(ctx, in)
	if err == nil {
		return update, nil
	}
	if ne, ok := err.(*NodeExecutionError); ok {
		out := *ne
		out.Node = name
		out.Step = step
		return update, &out
	}
	return update, &NodeExecutionError{Node: name, Step: step, Err: err}
}

// recoverPanics converts a panic in fn into a *PanicError return so that
// wrappers layered above it, such as retry guards, see an ordinary failure.
func recoverPanics(name string, fn NodeFunc) NodeFunc {
	return func(ctx Context, in Record) (update Record, err error) {
		defer func() {
			if r := recover(); r != nil {
				update = Record{}
				err = &PanicError{Node: name, Value: r, Stack: string(debug.Stack())}
			}
		}()
		return fn(ctx, in)
	}
}

// notifyHooks delivers event to each hook in order, collecting and logging
// recovered panics.
func notifyHooks(ctx Context, hooks []Hook, res *RunResult, event Event) {
	for _, h := range hooks {
		if herr := safeNotify(ctx, h, event); herr != nil {
			res.HookErrors = append(res.HookErrors, herr)
			observability.LogHookError(ctx.Logger(), event.Type.String(), herr)
		}
	}
}

// appendError adds err's text to the list held in field. A list of strings
// stays []string; any other contents are kept as elements of an []any.
func appendError(state Record, field string, err error) Record {
	current, ok := state.Get(field)
	if !ok || current == nil {
		return state.With(field, []string{err.Error()})
	}
	if logged := state.Strings(field, nil); logged != nil {
		return state.With(field, append(logged, err.Error()))
	}
	logged := state.List(field, nil)
	if logged == nil {
		logged = []any{current}
	}
	return state.With(field, append(logged, err.Error()))
}

// lastNode extracts the node a fatal error refers to, for logging.
func lastNode(err error) string {
	var (
		cycleErr   *CycleExceededError
		cancelErr  *CancellationError
		routingErr *RoutingError
	)
	switch {
	case errors.As(err, &cycleErr):
		return cycleErr.LastNode
	case errors.As(err, &cancelErr):
		return cancelErr.Node
	case errors.As(err, &routingErr):
		return routingErr.From
	}
	return ""
}
