package stategraph

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for graph building and compilation.
var (
	// ErrNoStart indicates no edge leaves START (SetStart was never called).
	ErrNoStart = errors.New("start edge not set")

	// ErrNodeNotFound indicates an edge references a non-existent node.
	ErrNodeNotFound = errors.New("node not found")

	// ErrInvalidDestination indicates an edge targets START.
	ErrInvalidDestination = errors.New("START cannot be an edge destination")

	// ErrInvalidSource indicates an edge leaves END.
	ErrInvalidSource = errors.New("END cannot be an edge source")

	// ErrNoPathToEnd indicates no path exists from START to END.
	ErrNoPathToEnd = errors.New("no path to END from START")

	// ErrUnreachableNode indicates a node cannot be reached from START.
	ErrUnreachableNode = errors.New("node is unreachable from START")

	// ErrNoOutgoingEdge indicates a node has no outgoing edge.
	ErrNoOutgoingEdge = errors.New("node has no outgoing edge")

	// ErrUnmappedRouteKey indicates a declared route key has neither a mapping nor a default.
	ErrUnmappedRouteKey = errors.New("route key has no destination")

	// ErrEmptyRoutes indicates a conditional edge with no mapping and no default.
	ErrEmptyRoutes = errors.New("conditional edge has no routes and no default")

	// ErrInvalidNodeName indicates an empty, reserved, or whitespace-containing node name.
	ErrInvalidNodeName = errors.New("invalid node name")

	// ErrInvalidRetryPolicy indicates a retry policy that cannot make progress.
	ErrInvalidRetryPolicy = errors.New("invalid retry policy")

	// ErrDuplicateNode indicates a node name was registered twice.
	ErrDuplicateNode = errors.New("duplicate node")

	// ErrUnknownNode indicates a lookup for a node that was never registered.
	ErrUnknownNode = errors.New("unknown node")

	// ErrEdgeConflict indicates a second edge set was added for the same source.
	ErrEdgeConflict = errors.New("edge conflict")
)

// Sentinel errors for execution.
var (
	// ErrNilContext indicates Run() was called with a nil context.
	ErrNilContext = errors.New("context cannot be nil")

	// ErrRouting indicates a router produced a key with no destination.
	ErrRouting = errors.New("routing failed")

	// ErrCycleExceeded indicates the run exceeded its step ceiling.
	ErrCycleExceeded = errors.New("exceeded maximum steps")

	// ErrSchemaViolation indicates a record write that the schema rejects.
	ErrSchemaViolation = errors.New("schema violation")

	// ErrTimeout indicates a node exceeded its deadline.
	ErrTimeout = errors.New("node timed out")

	// ErrHookPanic indicates an observation hook panicked.
	ErrHookPanic = errors.New("hook panicked")
)

// NodeExecutionError wraps a failure raised inside a node transform.
// It is recoverable: the executor records it in the state's error log and
// lets the node's router choose the next step.
type NodeExecutionError struct {
	// Node is the name of the node that failed.
	Node string
	// Step is the step number of the failed invocation (1-based).
	Step int
	// Err is the underlying error from the node.
	Err error
}

// Error implements the error interface.
func (e *NodeExecutionError) Error() string {
	return fmt.Sprintf("node %s: %v", e.Node, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *NodeExecutionError) Unwrap() error {
	return e.Err
}

// PanicError captures panic information from node execution.
// It includes the stack trace for debugging.
type PanicError struct {
	// Node is the name of the node that panicked.
	Node string
	// Value is the value passed to panic().
	Value any
	// Stack is the full stack trace at the point of panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("node %s panicked: %v", e.Node, e.Value)
}

// RoutingError reports a router key that matched no mapping and no default.
// It is fatal and carries the state at the point of failure.
type RoutingError struct {
	// From is the node whose outgoing edge failed to resolve.
	From string
	// Key is the route key the router returned.
	Key RouteKey
	// State is the record at the point of failure.
	State Record
}

// Error implements the error interface.
func (e *RoutingError) Error() string {
	return fmt.Sprintf("router from %s returned unmapped key %q and no default is configured", e.From, e.Key)
}

// Unwrap returns ErrRouting for errors.Is support.
func (e *RoutingError) Unwrap() error {
	return ErrRouting
}

// CycleExceededError provides context when the step ceiling is exceeded.
// It includes the state at termination for inspection.
type CycleExceededError struct {
	// Max is the configured step limit.
	Max int
	// LastNode is the node that would have executed next.
	LastNode string
	// State is the record at termination.
	State Record
}

// Error implements the error interface.
func (e *CycleExceededError) Error() string {
	return fmt.Sprintf("exceeded maximum steps (%d) at node %s", e.Max, e.LastNode)
}

// Unwrap returns ErrCycleExceeded for errors.Is support.
func (e *CycleExceededError) Unwrap() error {
	return ErrCycleExceeded
}

// DuplicateNodeError reports a second registration of the same node name.
type DuplicateNodeError struct {
	Name string
}

// Error implements the error interface.
func (e *DuplicateNodeError) Error() string {
	return fmt.Sprintf("duplicate node: %s", e.Name)
}

// Unwrap returns ErrDuplicateNode for errors.Is support.
func (e *DuplicateNodeError) Unwrap() error {
	return ErrDuplicateNode
}

// UnknownNodeError reports a lookup of a name that was never registered.
type UnknownNodeError struct {
	Name string
}

// Error implements the error interface.
func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("unknown node: %s", e.Name)
}

// Unwrap returns ErrUnknownNode for errors.Is support.
func (e *UnknownNodeError) Unwrap() error {
	return ErrUnknownNode
}

// EdgeConflictError reports a second outgoing edge set for one source.
type EdgeConflictError struct {
	// Source is the node that already has outgoing edges.
	Source string
	// Existing describes the edge already registered ("static" or "conditional").
	Existing string
	// Attempted describes the edge that was rejected.
	Attempted string
}

// Error implements the error interface.
func (e *EdgeConflictError) Error() string {
	return fmt.Sprintf("%s edge from %s conflicts with existing %s edge", e.Attempted, e.Source, e.Existing)
}

// Unwrap returns ErrEdgeConflict for errors.Is support.
func (e *EdgeConflictError) Unwrap() error {
	return ErrEdgeConflict
}

// SchemaError reports a record write that violates the declared schema.
type SchemaError struct {
	// Field is the offending field name.
	Field string
	// Want is the declared kind, or KindAny for undeclared fields.
	Want Kind
	// Got is a description of the value that was written.
	Got string
	// Undeclared is true when the field is not part of the schema.
	Undeclared bool
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	if e.Undeclared {
		return fmt.Sprintf("field %q is not declared in the schema", e.Field)
	}
	return fmt.Sprintf("field %q: want %s, got %s", e.Field, e.Want, e.Got)
}

// Unwrap returns ErrSchemaViolation for errors.Is support.
func (e *SchemaError) Unwrap() error {
	return ErrSchemaViolation
}

// HookError captures a panic raised by an observation hook.
// Hook failures are logged and collected but never alter control flow.
type HookError struct {
	// Node is the node the event was about.
	Node string
	// Event is the event type being delivered.
	Event EventType
	// Value is the value passed to panic().
	Value any
	// Stack is the stack trace at the point of panic.
	Stack string
}

// Error implements the error interface.
func (e *HookError) Error() string {
	return fmt.Sprintf("hook panicked on %s at node %s: %v", e.Event, e.Node, e.Value)
}

// Unwrap returns ErrHookPanic for errors.Is support.
func (e *HookError) Unwrap() error {
	return ErrHookPanic
}

// CancellationError captures the state when execution was cancelled.
type CancellationError struct {
	// Node is the node that was about to execute.
	Node string
	// State is the record at cancellation.
	State Record
	// Cause is the underlying cancellation cause (context.Canceled or context.DeadlineExceeded).
	Cause error
}

// Error implements the error interface.
func (e *CancellationError) Error() string {
	return fmt.Sprintf("cancelled before node %s: %v", e.Node, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CancellationError) Unwrap() error {
	return e.Cause
}

// TimeoutError reports a node that did not finish within its deadline.
// It matches both ErrTimeout and context.DeadlineExceeded.
type TimeoutError struct {
	Node    string
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("node %s timed out after %s", e.Node, e.Timeout)
}

// Unwrap returns ErrTimeout and context.DeadlineExceeded.
func (e *TimeoutError) Unwrap() []error {
	return []error{ErrTimeout, context.DeadlineExceeded}
}
