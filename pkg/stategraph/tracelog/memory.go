package tracelog

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore keeps entries in process memory.
// Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	runs   map[string][]Entry
	order  []string
	closed bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string][]Entry)}
}

// Append implements Store.
func (m *MemoryStore) Append(_ context.Context, e Entry) error {
	if err := validate(e); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	if _, ok := m.runs[e.RunID]; !ok {
		m.order = append(m.order, e.RunID)
	}
	m.runs[e.RunID] = append(m.runs[e.RunID], e)
	return nil
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context, runID string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	entries := slices.Clone(m.runs[runID])
	sortByStep(entries)
	return entries, nil
}

// Runs implements Store.
func (m *MemoryStore) Runs(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	return slices.Clone(m.order), nil
}

// DeleteRun implements Store.
func (m *MemoryStore) DeleteRun(_ context.Context, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	if _, ok := m.runs[runID]; !ok {
		return nil
	}
	delete(m.runs, runID)
	m.order = slices.DeleteFunc(m.order, func(id string) bool { return id == runID })
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.runs = nil
	m.order = nil
	return nil
}

// Len returns the total number of entries across all runs.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, entries := range m.runs {
		count += len(entries)
	}
	return count
}

func sortByStep(entries []Entry) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		return a.Step - b.Step
	})
}
