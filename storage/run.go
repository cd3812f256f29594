// Package storage keeps the history of pipeline runs.
//
// Information Hiding:
// - Backing store (memory or SQLite) hidden behind RunStore
// - Context and report payloads stored as opaque JSON
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrRunNotFound is returned by Get for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded pipeline execution.
type Run struct {
	ID          string          `json:"id"`
	Target      string          `json:"target"`
	Query       string          `json:"query,omitempty"`
	Status      string          `json:"status"`
	FailedStage string          `json:"failedStage,omitempty"`
	Error       string          `json:"error,omitempty"`
	Context     json.RawMessage `json:"context,omitempty"`
	Report      json.RawMessage `json:"report,omitempty"`
	Narrative   string          `json:"narrative,omitempty"`
	StartedAt   time.Time       `json:"startedAt"`
	FinishedAt  time.Time       `json:"finishedAt"`
}

// Duration returns how long the run took.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// RunStore persists runs. Implementations are safe for concurrent use.
type RunStore interface {
	// Save inserts or replaces a run by ID.
	Save(ctx context.Context, run Run) error

	// Get returns the run with id, or ErrRunNotFound.
	Get(ctx context.Context, id string) (Run, error)

	// List returns up to limit runs, most recently started first.
	// A limit of zero or less returns every run.
	List(ctx context.Context, limit int) ([]Run, error)

	// Close releases resources held by the store.
	Close() error
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.New().String()
}
