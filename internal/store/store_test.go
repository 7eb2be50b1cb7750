package store_test

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/High-Blood-Pressure/telegram-clickup-bot/internal/models"
	"github.com/High-Blood-Pressure/telegram-clickup-bot/internal/store"
)

func setupTestDB(t *testing.T) *store.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func cacheTask(t *testing.T, ts *store.TaskStore, id, sprintID string) {
	t.Helper()
	err := ts.Upsert(&models.CachedTask{
		ID:               id,
		Name:             "Task " + id,
		URL:              "https://app.clickup.com/t/" + id,
		Status:           "in progress",
		WorkspaceID:      "ws1",
		SprintID:         sprintID,
		EstimatedMinutes: 120,
	})
	if err != nil {
		t.Fatalf("upsert task %s: %v", id, err)
	}
}

func TestTaskStore(t *testing.T) {
	db := setupTestDB(t)
	ts := store.NewTaskStore(db)

	t.Run("Upsert is idempotent", func(t *testing.T) {
		cacheTask(t, ts, "t1", "s1")
		cacheTask(t, ts, "t1", "s1")

		tasks, err := ts.TasksForSprint("s1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(tasks) != 1 {
			t.Fatalf("expected 1 task, got %d", len(tasks))
		}
	})

	t.Run("Upsert replaces the whole row", func(t *testing.T) {
		err := ts.Upsert(&models.CachedTask{
			ID: "t1", Name: "renamed", Status: "complete",
			WorkspaceID: "ws1", SprintID: "s1", EstimatedMinutes: 60,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got, err := ts.GetByID("t1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Name != "renamed" || got.Status != "complete" || got.EstimatedMinutes != 60 {
			t.Fatalf("row not fully replaced: %+v", got)
		}
		if got.URL != "" {
			t.Fatalf("expected URL cleared by replace, got %q", got.URL)
		}
	})

	t.Run("GetByID returns nil for unknown task", func(t *testing.T) {
		got, err := ts.GetByID("missing")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != nil {
			t.Fatalf("expected nil, got %+v", got)
		}
	})

	t.Run("SetEstimate updates only the estimate", func(t *testing.T) {
		cacheTask(t, ts, "t2", "s1")
		if err := ts.SetEstimate("t2", 45); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got, err := ts.GetByID("t2")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.EstimatedMinutes != 45 {
			t.Fatalf("expected estimate 45, got %v", got.EstimatedMinutes)
		}
		if got.Name != "Task t2" {
			t.Fatalf("name should be untouched, got %q", got.Name)
		}
	})

	t.Run("SetEstimate fails for uncached task", func(t *testing.T) {
		if err := ts.SetEstimate("missing", 45); err == nil {
			t.Fatal("expected error for uncached task")
		}
	})
}

func TestLedgerAccumulation(t *testing.T) {
	db := setupTestDB(t)
	ts := store.NewTaskStore(db)
	ledger := store.NewLedgerStore(db)
	cacheTask(t, ts, "t1", "s1")

	t.Run("adds never overwrite the total", func(t *testing.T) {
		if err := ledger.Add("t1", "u1", "alice", 90); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := ledger.Add("t1", "u1", "alice", 30); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		total, found, err := ledger.Minutes("t1", "u1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !found {
			t.Fatal("expected row to exist")
		}
		if total != 120 {
			t.Fatalf("expected 120 minutes, got %v", total)
		}
	})

	t.Run("display name is last-writer-wins", func(t *testing.T) {
		if err := ledger.Add("t1", "u1", "Alice R", 10); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		summary, err := ledger.SprintSummary("s1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary[0].Assignees[0].AssigneeName != "Alice R" {
			t.Fatalf("expected renamed assignee, got %q", summary[0].Assignees[0].AssigneeName)
		}
	})

	t.Run("Minutes distinguishes no row from zero", func(t *testing.T) {
		total, found, err := ledger.Minutes("t1", "nobody")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if found {
			t.Fatal("expected no row")
		}
		if total != 0 {
			t.Fatalf("expected 0, got %v", total)
		}
	})

	t.Run("rejects non-positive deltas", func(t *testing.T) {
		if err := ledger.Add("t1", "u1", "alice", 0); err == nil {
			t.Fatal("expected error for zero delta")
		}
		if err := ledger.Add("t1", "u1", "alice", -5); err == nil {
			t.Fatal("expected error for negative delta")
		}
	})
}

func TestLedgerConcurrentAdds(t *testing.T) {
	db := setupTestDB(t)
	ts := store.NewTaskStore(db)
	ledger := store.NewLedgerStore(db)
	cacheTask(t, ts, "t1", "s1")

	const workers = 10
	const addsPerWorker = 20

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < addsPerWorker; j++ {
				if err := ledger.Add("t1", "u1", "alice", 1); err != nil {
					t.Errorf("concurrent add: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	total, found, err := ledger.Minutes("t1", "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found {
		t.Fatal("expected row to exist")
	}
	if total != float64(workers*addsPerWorker) {
		t.Fatalf("lost updates: expected %d minutes, got %v", workers*addsPerWorker, total)
	}
}

func TestSprintSummary(t *testing.T) {
	db := setupTestDB(t)
	ts := store.NewTaskStore(db)
	ledger := store.NewLedgerStore(db)

	cacheTask(t, ts, "a-quiet", "s1")
	cacheTask(t, ts, "b-busy", "s1")
	cacheTask(t, ts, "other", "s2")

	if err := ledger.Add("b-busy", "u1", "alice", 60); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ledger.Add("b-busy", "u2", "bob", 30); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	summary, err := ledger.SprintSummary("s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(summary) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(summary))
	}
	if summary[0].Task.ID != "a-quiet" || summary[1].Task.ID != "b-busy" {
		t.Fatalf("unstable order: %s, %s", summary[0].Task.ID, summary[1].Task.ID)
	}
	if summary[0].Assignees == nil || len(summary[0].Assignees) != 0 {
		t.Fatalf("task with no logged time should have empty assignee list, got %v", summary[0].Assignees)
	}
	if len(summary[1].Assignees) != 2 {
		t.Fatalf("expected 2 assignees, got %d", len(summary[1].Assignees))
	}
	if summary[1].Assignees[0].AssigneeID != "u1" || summary[1].Assignees[1].AssigneeID != "u2" {
		t.Fatalf("unstable assignee order: %+v", summary[1].Assignees)
	}
}

func TestUserSprintStats(t *testing.T) {
	db := setupTestDB(t)
	ts := store.NewTaskStore(db)
	ledger := store.NewLedgerStore(db)

	cacheTask(t, ts, "t1", "s1")
	cacheTask(t, ts, "t2", "s1")

	if err := ledger.Add("t1", "u1", "alice", 90); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ledger.Add("t2", "u2", "bob", 15); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats, err := ledger.UserSprintStats("s1", "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("expected 1 row, got %d", len(stats))
	}
	if stats[0].Task.ID != "t1" || stats[0].LoggedMinutes != 90 {
		t.Fatalf("unexpected stats row: %+v", stats[0])
	}
}
