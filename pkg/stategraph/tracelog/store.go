// Package tracelog persists one record per node invocation of a graph run.
//
// A Recorder hook pairs the pre-node and post-node events of each step into
// an Entry and appends it to a Store. Stores are interchangeable: memory for
// tests, SQLite or JSONL for a single process, Redis when several processes
// write to the same log.
package tracelog

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Entry is the persisted record of one node invocation.
type Entry struct {
	RunID         string    `json:"run_id"`
	Node          string    `json:"node"`
	Step          int       `json:"step"`
	StartedAt     time.Time `json:"started_at"`
	EndedAt       time.Time `json:"ended_at"`
	InputSummary  string    `json:"input_summary"`
	OutputSummary string    `json:"output_summary"`
	Error         string    `json:"error,omitempty"`
}

// Duration returns EndedAt - StartedAt.
func (e Entry) Duration() time.Duration {
	return e.EndedAt.Sub(e.StartedAt)
}

// Failed reports whether the invocation ended with an error.
func (e Entry) Failed() bool {
	return e.Error != ""
}

// Store persists trace entries.
// Implementations must be safe for concurrent use.
type Store interface {
	// Append adds an entry to its run's log.
	Append(ctx context.Context, e Entry) error

	// List returns a run's entries ordered by step.
	// Returns an empty slice (not error) if the run is unknown.
	List(ctx context.Context, runID string) ([]Entry, error)

	// Runs returns the IDs of all stored runs in order of their first entry.
	Runs(ctx context.Context) ([]string, error)

	// DeleteRun removes every entry of a run.
	// Returns nil if the run is unknown.
	DeleteRun(ctx context.Context, runID string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Sentinel errors for store operations.
var (
	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("trace store closed")

	// ErrInvalidEntry indicates an entry without a run ID or node.
	ErrInvalidEntry = errors.New("invalid trace entry")
)

func validate(e Entry) error {
	if e.RunID == "" {
		return fmt.Errorf("%w: run id is empty", ErrInvalidEntry)
	}
	if e.Node == "" {
		return fmt.Errorf("%w: node is empty", ErrInvalidEntry)
	}
	return nil
}
