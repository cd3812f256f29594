package storage

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newStores(t *testing.T) map[string]RunStore {
	t.Helper()
	sqlite, err := NewSqliteInMemory()
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	return map[string]RunStore{
		"memory": NewInMemoryStore(),
		"sqlite": sqlite,
	}
}

func sampleRun(id string, started time.Time) Run {
	return Run{
		ID:         id,
		Target:     "https://example.com",
		Status:     "completed",
		Context:    json.RawMessage(`{"target":"https://example.com","keywords":["bakery"]}`),
		Report:     json.RawMessage(`{"target":"https://example.com","status":"completed"}`),
		Narrative:  "## Key findings",
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
	}
}

func TestRunStoreSaveAndGet(t *testing.T) {
	ctx := context.Background()
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			run := sampleRun("run-1", started)
			if err := store.Save(ctx, run); err != nil {
				t.Fatalf("Save failed: %v", err)
			}

			got, err := store.Get(ctx, "run-1")
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if diff := cmp.Diff(run, got); diff != "" {
				t.Errorf("run mismatch (-want +got):\n%s", diff)
			}
			if got.Duration() != 3*time.Second {
				t.Errorf("expected 3s duration, got %v", got.Duration())
			}
		})
	}
}

func TestRunStoreGetMissing(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, ErrRunNotFound) {
				t.Errorf("expected ErrRunNotFound, got %v", err)
			}
		})
	}
}

func TestRunStoreSaveReplaces(t *testing.T) {
	ctx := context.Background()
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			run := sampleRun("run-1", started)
			store.Save(ctx, run)

			run.Status = "partial"
			run.FailedStage = "technical_audit"
			run.Error = "transport error"
			run.Report = nil
			if err := store.Save(ctx, run); err != nil {
				t.Fatalf("Save failed: %v", err)
			}

			got, _ := store.Get(ctx, "run-1")
			if got.Status != "partial" || got.FailedStage != "technical_audit" || got.Report != nil {
				t.Errorf("run not replaced: %+v", got)
			}
			runs, _ := store.List(ctx, 0)
			if len(runs) != 1 {
				t.Errorf("expected one run after replace, got %d", len(runs))
			}
		})
	}
}

func TestRunStoreListNewestFirst(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			store.Save(ctx, sampleRun("old", base))
			store.Save(ctx, sampleRun("new", base.Add(2*time.Hour)))
			store.Save(ctx, sampleRun("mid", base.Add(time.Hour)))

			runs, err := store.List(ctx, 0)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			var ids []string
			for _, r := range runs {
				ids = append(ids, r.ID)
			}
			if diff := cmp.Diff([]string{"new", "mid", "old"}, ids); diff != "" {
				t.Errorf("order mismatch (-want +got):\n%s", diff)
			}

			limited, _ := store.List(ctx, 2)
			if len(limited) != 2 || limited[0].ID != "new" {
				t.Errorf("expected two newest runs, got %+v", limited)
			}
		})
	}
}

func TestRunStoreListEmpty(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			runs, err := store.List(context.Background(), 10)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if runs == nil || len(runs) != 0 {
				t.Errorf("expected empty non-nil list, got %#v", runs)
			}
		})
	}
}

func TestInMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	run := sampleRun("run-1", time.Now().UTC())
	store.Save(ctx, run)

	run.Context[0] = 'X'
	got, _ := store.Get(ctx, "run-1")
	if got.Context[0] != '{' {
		t.Error("stored run shares memory with the caller")
	}
}

func TestOpenSqliteCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "runs.db")

	store, err := OpenSqlite(path)
	if err != nil {
		t.Fatalf("OpenSqlite failed: %v", err)
	}
	ctx := context.Background()
	store.Save(ctx, sampleRun("persisted", time.Now().UTC()))
	store.Close()

	reopened, err := OpenSqlite(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	if _, err := reopened.Get(ctx, "persisted"); err != nil {
		t.Errorf("run not persisted across opens: %v", err)
	}
}

func TestNewRunIDUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewRunID()
		if seen[id] {
			t.Fatalf("duplicate run ID %s", id)
		}
		seen[id] = true
	}
}
