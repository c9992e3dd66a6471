package stategraph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
)

// Helper node functions

// increment adds one to the "count" field.
func increment(_ Context, in Record) (Record, error) {
	return NewRecord("count", in.Int("count", 0)+1), nil
}

// noop leaves the record unchanged.
func noop(Context, Record) (Record, error) {
	return Record{}, nil
}

// makeTrackingNode creates a node that records its execution in tracker and
// appends its name to the "progress" field.
func makeTrackingNode(name string, tracker *[]string) NodeFunc {
	return func(_ Context, in Record) (Record, error) {
		*tracker = append(*tracker, name)
		return NewRecord("progress", append(in.Strings("progress", nil), name)), nil
	}
}

// makeFailingNode creates a node that always returns err.
func makeFailingNode(err error) NodeFunc {
	return func(Context, Record) (Record, error) {
		return Record{}, err
	}
}

// makePanicNode creates a node that panics with the given value.
func makePanicNode(value any) NodeFunc {
	return func(Context, Record) (Record, error) {
		panic(value)
	}
}

// makeFlakyNode fails the first `failures` calls, then writes field=value.
func makeFlakyNode(failures int, field string, value any) (NodeFunc, *int) {
	calls := 0
	return func(Context, Record) (Record, error) {
		calls++
		if calls <= failures {
			return Record{}, errors.New("transient failure")
		}
		return NewRecord(field, value), nil
	}, &calls
}

// testCtx creates a simple test context.
func testCtx() Context {
	return NewContext(context.Background())
}

// mustCompile compiles g or panics; for tests where the graph is known good.
func mustCompile(g *Graph) *CompiledGraph {
	cg, err := g.Compile()
	if err != nil {
		panic(err)
	}
	return cg
}

// testLogHandler captures log records for testing.
type testLogHandler struct {
	mu    *sync.Mutex
	buf   *bytes.Buffer
	level slog.Level
	attrs []slog.Attr
}

func newTestLogHandler() *testLogHandler {
	return &testLogHandler{
		mu:    &sync.Mutex{},
		buf:   &bytes.Buffer{},
		level: slog.LevelDebug,
	}
}

func (h *testLogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *testLogHandler) Handle(_ context.Context, r slog.Record) error {
	data := map[string]any{
		"level": r.Level.String(),
		"msg":   r.Message,
	}
	for _, a := range h.attrs {
		data[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		data[a.Key] = a.Value.Any()
		return true
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	return json.NewEncoder(h.buf).Encode(data)
}

func (h *testLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &testLogHandler{
		mu:    h.mu,
		buf:   h.buf,
		level: h.level,
		attrs: append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *testLogHandler) WithGroup(string) slog.Handler {
	return h
}

func (h *testLogHandler) getRecords() []map[string]any {
	h.mu.Lock()
	defer h.mu.Unlock()

	var records []map[string]any
	for _, line := range bytes.Split(h.buf.Bytes(), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal(line, &m); err == nil {
			records = append(records, m)
		}
	}
	return records
}

// messages returns the msg of every captured record, in order.
func (h *testLogHandler) messages() []string {
	var msgs []string
	for _, r := range h.getRecords() {
		msg, _ := r["msg"].(string)
		msgs = append(msgs, msg)
	}
	return msgs
}
