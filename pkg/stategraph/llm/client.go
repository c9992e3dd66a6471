// Package llm defines the language-model boundary consumed by workflow nodes.
//
// Nodes receive a Client at construction and call Complete synchronously.
// The engine knows nothing about this package; a node that fails to reach
// the model simply returns the error and the graph's retry policy decides
// what happens next.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Client completes prompts.
// Implementations must be safe for concurrent use.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

// Complete calls f.
func (f ClientFunc) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	return f(ctx, req)
}

// Error is a failed model call.
type Error struct {
	Op        string
	Err       error
	Retryable bool
}

// NewError wraps err for operation op.
func NewError(op string, err error, retryable bool) *Error {
	return &Error{Op: op, Err: err, Retryable: retryable}
}

func (e *Error) Error() string {
	return fmt.Sprintf("llm %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is an *Error marked retryable. Suitable as
// a stategraph.RetryPolicy RetryIf filter.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}
