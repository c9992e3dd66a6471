package stategraph

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Context provides execution context to nodes and routers.
// It extends context.Context with run metadata and an enriched logger.
//
// Context is immutable after creation. The executor creates derived contexts
// for each step with updated node name, step number and failure signal.
type Context interface {
	context.Context

	// Logger returns the configured logger, enriched with run and node context.
	// Never returns nil - defaults to slog.Default() if not configured.
	Logger() *slog.Logger

	// RunID returns the unique identifier for this execution run.
	// Auto-generated if not configured.
	RunID() string

	// NodeID returns the current node being executed.
	// Empty string before execution starts.
	NodeID() string

	// Step returns the 1-based step number of the current node invocation.
	Step() int

	// NodeErr returns the error the current node failed with this step.
	// Routers use it to choose a recovery path. Always nil inside a node.
	NodeErr() error
}

// executionContext is the internal implementation of Context.
type executionContext struct {
	context.Context

	logger  *slog.Logger
	runID   string
	nodeID  string
	step    int
	nodeErr error
}

// Logger returns the configured logger.
func (c *executionContext) Logger() *slog.Logger {
	return c.logger
}

// RunID returns the run identifier.
func (c *executionContext) RunID() string {
	return c.runID
}

// NodeID returns the current node identifier.
func (c *executionContext) NodeID() string {
	return c.nodeID
}

// Step returns the current step number.
func (c *executionContext) Step() int {
	return c.step
}

// NodeErr returns the failure of the node that just ran, if any.
func (c *executionContext) NodeErr() error {
	return c.nodeErr
}

// ContextOption configures a Context.
type ContextOption func(*executionContext)

// WithLogger sets the logger for the context.
// The logger will be enriched with run_id, node_id, and step during execution.
func WithLogger(logger *slog.Logger) ContextOption {
	return func(c *executionContext) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithContextRunID sets the run identifier for the context.
// If not set, a UUID will be auto-generated.
func WithContextRunID(id string) ContextOption {
	return func(c *executionContext) {
		c.runID = id
	}
}

// NewContext creates an execution context from a standard context.
//
// Example:
//
//	ctx := stategraph.NewContext(context.Background(),
//	    stategraph.WithLogger(myLogger),
//	    stategraph.WithContextRunID("run-123"))
func NewContext(ctx context.Context, opts ...ContextOption) Context {
	ec := &executionContext{
		Context: ctx,
		logger:  slog.Default(),
		runID:   uuid.New().String(),
	}

	for _, opt := range opts {
		opt(ec)
	}

	return ec
}

// Derive returns a Context that keeps parent's metadata but uses ctx for
// deadlines, cancellation and values. Node middleware uses it to impose
// deadlines without losing the logger or run ID.
func Derive(parent Context, ctx context.Context) Context {
	if ec, ok := parent.(*executionContext); ok {
		c := *ec
		c.Context = ctx
		return &c
	}
	return &derivedContext{Context: ctx, parent: parent}
}

// derivedContext adapts a foreign Context implementation for Derive.
type derivedContext struct {
	context.Context
	parent Context
}

func (c *derivedContext) Logger() *slog.Logger { return c.parent.Logger() }
func (c *derivedContext) RunID() string        { return c.parent.RunID() }
func (c *derivedContext) NodeID() string       { return c.parent.NodeID() }
func (c *derivedContext) Step() int            { return c.parent.Step() }
func (c *derivedContext) NodeErr() error       { return c.parent.NodeErr() }

// toExecutionContext normalises any Context into the internal implementation
// so the executor can derive per-step contexts from it.
func toExecutionContext(ctx Context, runID string) *executionContext {
	if ec, ok := ctx.(*executionContext); ok {
		c := *ec
		if runID != "" {
			c.runID = runID
		}
		return &c
	}
	logger := ctx.Logger()
	if logger == nil {
		logger = slog.Default()
	}
	if runID == "" {
		runID = ctx.RunID()
	}
	return &executionContext{Context: ctx, logger: logger, runID: runID}
}

// withNode returns a new context for one node invocation.
// std carries span context when tracing is enabled.
func (c *executionContext) withNode(std context.Context, nodeID string, step int) *executionContext {
	return &executionContext{
		Context: std,
		logger:  c.logger.With("run_id", c.runID, "node_id", nodeID, "step", step),
		runID:   c.runID,
		nodeID:  nodeID,
		step:    step,
	}
}

// withNodeErr returns a copy carrying the failure signal for the router.
func (c *executionContext) withNodeErr(err error) *executionContext {
	n := *c
	n.nodeErr = err
	return &n
}
