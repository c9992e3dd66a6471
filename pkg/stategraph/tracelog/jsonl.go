package tracelog

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// JSONLStore appends entries as JSON lines to a file, one entry per line.
// The file can be tailed while runs are in progress.
type JSONLStore struct {
	path   string
	mu     sync.Mutex
	file   *os.File
	closed bool
}

// NewJSONLStore opens path for appending, creating it and its directory
// when missing.
func NewJSONLStore(path string) (*JSONLStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trace log: %w", err)
	}
	return &JSONLStore{path: path, file: f}, nil
}

// Path returns the file the store writes to.
func (s *JSONLStore) Path() string {
	return s.path
}

// Append implements Store.
func (s *JSONLStore) Append(_ context.Context, e Entry) error {
	if err := validate(e); err != nil {
		return err
	}
	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal trace entry: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if _, err := s.file.Write(line); err != nil {
		return fmt.Errorf("append trace entry: %w", err)
	}
	return nil
}

// List implements Store.
func (s *JSONLStore) List(_ context.Context, runID string) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	all, err := s.readAll()
	if err != nil {
		return nil, err
	}
	entries := slices.DeleteFunc(all, func(e Entry) bool { return e.RunID != runID })
	sortByStep(entries)
	return entries, nil
}

// Runs implements Store.
func (s *JSONLStore) Runs(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	all, err := s.readAll()
	if err != nil {
		return nil, err
	}
	var runs []string
	for _, e := range all {
		if !slices.Contains(runs, e.RunID) {
			runs = append(runs, e.RunID)
		}
	}
	return runs, nil
}

// DeleteRun implements Store. The file is rewritten without the run's lines.
func (s *JSONLStore) DeleteRun(_ context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	all, err := s.readAll()
	if err != nil {
		return err
	}
	kept := slices.DeleteFunc(all, func(e Entry) bool { return e.RunID == runID })

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp log: %w", err)
	}
	enc := json.NewEncoder(tmp)
	for _, e := range kept {
		if err := enc.Encode(e); err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			return fmt.Errorf("rewrite trace log: %w", err)
		}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rewrite trace log: %w", err)
	}

	if err := s.file.Close(); err != nil {
		return fmt.Errorf("close trace log: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace trace log: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		s.closed = true
		return fmt.Errorf("reopen trace log: %w", err)
	}
	s.file = f
	return nil
}

// Close implements Store.
func (s *JSONLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.file.Close()
}

func (s *JSONLStore) readAll() ([]Entry, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open trace log: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("parse trace log line %d: %w", line, err)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read trace log: %w", err)
	}
	return entries, nil
}
