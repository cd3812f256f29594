// In-memory run store.
//
// Information Hiding:
// - Map storage structure hidden from users
// - Thread-safe access via RWMutex hidden behind interface
// - Suitable for testing and the HTTP server without a database

package storage

import (
	"context"
	"sort"
	"sync"
)

// InMemoryStore implements RunStore using a map.
// Data is lost when the process terminates.
type InMemoryStore struct {
	mu   sync.RWMutex
	runs map[string]Run
}

// NewInMemoryStore creates a new in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		runs: make(map[string]Run),
	}
}

// Save stores a copy of run.
func (s *InMemoryStore) Save(ctx context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.ID] = cloneRun(run)
	return nil
}

// Get returns a copy of the run with id.
func (s *InMemoryStore) Get(ctx context.Context, id string) (Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return Run{}, ErrRunNotFound
	}
	return cloneRun(run), nil
}

// List returns runs newest first.
func (s *InMemoryStore) List(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	runs := make([]Run, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, cloneRun(run))
	}
	s.mu.RUnlock()

	sort.Slice(runs, func(i, j int) bool {
		if runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// Close is a no-op.
func (s *InMemoryStore) Close() error {
	return nil
}

// cloneRun copies the JSON payloads so callers cannot mutate stored runs.
func cloneRun(run Run) Run {
	run.Context = append([]byte(nil), run.Context...)
	run.Report = append([]byte(nil), run.Report...)
	return run
}

var _ RunStore = (*InMemoryStore)(nil)
