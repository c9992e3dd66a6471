package stategraph

import (
	"context"
	"runtime/debug"
	"time"
)

// EventType identifies when an Event fires relative to a node invocation.
type EventType int

const (
	// PreNode fires before the node transform runs.
	PreNode EventType = iota + 1
	// PostNode fires after the update has been merged.
	PostNode
)

// String returns "pre_node" or "post_node".
func (t EventType) String() string {
	switch t {
	case PreNode:
		return "pre_node"
	case PostNode:
		return "post_node"
	default:
		return "unknown"
	}
}

// Event describes one side of a node invocation.
type Event struct {
	Type  EventType
	RunID string
	Node  string
	Step  int
	// Timestamp is when the event was emitted.
	Timestamp time.Time
	// Started is when the node invocation began. Equal to Timestamp on PreNode.
	Started time.Time
	// Duration is the node's run time. Zero on PreNode.
	Duration time.Duration
	// State is the input record on PreNode and the merged record on PostNode.
	State Record
	// Update is the partial update the node returned. Empty on PreNode.
	Update Record
	// Err is the node failure, if any. Nil on PreNode.
	Err error
}

// Hook observes node invocations. Hooks are called synchronously on the run's
// goroutine and must not retain the Event's records for mutation.
// A Hook cannot alter control flow or state; panics are recovered and
// reported as *HookError.
type Hook interface {
	OnEvent(ctx context.Context, event Event)
}

// HookFunc adapts a function to the Hook interface.
type HookFunc func(ctx context.Context, event Event)

// OnEvent calls f.
func (f HookFunc) OnEvent(ctx context.Context, event Event) {
	f(ctx, event)
}

// MultiHook fans out events to multiple hooks in order.
type MultiHook struct {
	hooks []Hook
}

// NewMultiHook creates a MultiHook that forwards events to all non-nil hooks.
func NewMultiHook(hooks ...Hook) *MultiHook {
	filtered := make([]Hook, 0, len(hooks))
	for _, h := range hooks {
		if h != nil {
			filtered = append(filtered, h)
		}
	}
	return &MultiHook{hooks: filtered}
}

// OnEvent forwards the event to every hook.
func (m *MultiHook) OnEvent(ctx context.Context, event Event) {
	for _, h := range m.hooks {
		h.OnEvent(ctx, event)
	}
}

// safeNotify delivers event to h, converting a panic into a *HookError.
func safeNotify(ctx context.Context, h Hook, event Event) (hookErr *HookError) {
	defer func() {
		if r := recover(); r != nil {
			hookErr = &HookError{
				Node:  event.Node,
				Event: event.Type,
				Value: r,
				Stack: string(debug.Stack()),
			}
		}
	}()
	h.OnEvent(ctx, event)
	return nil
}
