package tracelog

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/randalmurphal/stategraph/pkg/stategraph"
)

// DefaultSummaryLen bounds InputSummary and OutputSummary, in runes.
const DefaultSummaryLen = 256

// Recorder is a stategraph.Hook that writes one Entry per node invocation.
//
// The pre-node event supplies the input summary; the matching post-node
// event completes the entry and appends it. Store failures never reach the
// run: they are logged and available from Err.
//
// A Recorder may be shared by concurrent runs.
type Recorder struct {
	store      Store
	summaryLen int
	logger     *slog.Logger

	mu      sync.Mutex
	pending map[stepKey]string
	errs    []error
}

type stepKey struct {
	runID string
	step  int
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithSummaryLen sets the rune limit for record summaries.
func WithSummaryLen(n int) RecorderOption {
	return func(r *Recorder) {
		if n > 0 {
			r.summaryLen = n
		}
	}
}

// WithRecorderLogger logs store failures to logger.
func WithRecorderLogger(logger *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// NewRecorder creates a hook appending to store.
func NewRecorder(store Store, opts ...RecorderOption) *Recorder {
	if store == nil {
		panic("tracelog: store cannot be nil")
	}
	r := &Recorder{
		store:      store,
		summaryLen: DefaultSummaryLen,
		pending:    make(map[stepKey]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OnEvent implements stategraph.Hook.
func (r *Recorder) OnEvent(ctx context.Context, ev stategraph.Event) {
	key := stepKey{runID: ev.RunID, step: ev.Step}

	switch ev.Type {
	case stategraph.PreNode:
		r.mu.Lock()
		r.pending[key] = ev.State.Summary(r.summaryLen)
		r.mu.Unlock()

	case stategraph.PostNode:
		r.mu.Lock()
		input := r.pending[key]
		delete(r.pending, key)
		r.mu.Unlock()

		entry := Entry{
			RunID:         ev.RunID,
			Node:          ev.Node,
			Step:          ev.Step,
			StartedAt:     ev.Started.UTC(),
			EndedAt:       ev.Started.Add(ev.Duration).UTC(),
			InputSummary:  input,
			OutputSummary: ev.Update.Summary(r.summaryLen),
		}
		if ev.Err != nil {
			entry.Error = ev.Err.Error()
		}

		if err := r.store.Append(ctx, entry); err != nil {
			r.mu.Lock()
			r.errs = append(r.errs, err)
			r.mu.Unlock()
			if r.logger != nil {
				r.logger.Warn("trace append failed",
					slog.String("run_id", ev.RunID),
					slog.String("node_id", ev.Node),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// Err returns every store failure seen so far, joined.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return errors.Join(r.errs...)
}

// Pending returns the number of pre-node events still waiting for their
// post-node event.
func (r *Recorder) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
