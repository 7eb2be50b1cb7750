package clickup_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/High-Blood-Pressure/telegram-clickup-bot/internal/clickup"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestListSprintsFindsSprintFolder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/team/ws1/folder":
			json.NewEncoder(w).Encode(map[string]any{
				"folders": []map[string]any{
					{"id": "f1", "name": "Backlog"},
					{"id": "f2", "name": "Sprint Folder"},
				},
			})
		case "/folder/f2/list":
			json.NewEncoder(w).Encode(map[string]any{
				"lists": []map[string]any{
					{"id": "l1", "name": "Sprint 1"},
					{"id": "l2", "name": "Sprint 2"},
				},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := clickup.NewClient(srv.URL, "token", testLogger())
	sprints, err := c.ListSprints(context.Background(), "ws1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sprints) != 2 {
		t.Fatalf("expected 2 sprints, got %d", len(sprints))
	}
	if sprints[0].ID != "l1" || sprints[0].FolderID != "f2" || sprints[0].FolderName != "Sprint Folder" {
		t.Fatalf("unexpected sprint: %+v", sprints[0])
	}
}

func TestListSprintsNoSprintFolder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"folders": []map[string]any{{"id": "f1", "name": "Backlog"}},
		})
	}))
	defer srv.Close()

	c := clickup.NewClient(srv.URL, "token", testLogger())
	if _, err := c.ListSprints(context.Background(), "ws1"); err == nil {
		t.Fatal("expected error when no folder starts with Sprint")
	}
}

func TestListUserTasksParsesEstimate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("assignees[]"); got != "u1" {
			t.Errorf("expected assignee filter, got %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"tasks": []map[string]any{
				{
					"id": "t1", "name": "Fix login", "url": "https://x/t1",
					"status":        map[string]any{"status": "in progress"},
					"time_estimate": 5400000,
				},
				{"id": "t2"},
			},
		})
	}))
	defer srv.Close()

	c := clickup.NewClient(srv.URL, "token", testLogger())
	tasks, err := c.ListUserTasks(context.Background(), "l1", "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0].EstimatedMinutes != 90 {
		t.Fatalf("expected 90 minutes, got %v", tasks[0].EstimatedMinutes)
	}
	if tasks[1].Name != "Task t2" || tasks[1].Status != "unknown" {
		t.Fatalf("missing fallbacks: %+v", tasks[1])
	}
}

func TestResponseCaching(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(map[string]any{
			"teams": []map[string]any{{"id": "ws1", "name": "Acme"}},
		})
	}))
	defer srv.Close()

	c := clickup.NewClient(srv.URL, "token", testLogger())
	for i := 0; i < 3; i++ {
		if _, err := c.ListWorkspaces(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 1 upstream call, got %d", calls.Load())
	}
}

func TestPushEstimate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/task/t1" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body map[string]int64
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["time_estimate"] != 90*60*1000 {
			t.Errorf("expected 90 minutes in ms, got %d", body["time_estimate"])
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := clickup.NewClient(srv.URL, "token", testLogger())
	if err := c.PushEstimate(context.Background(), "t1", 90); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := clickup.NewClient(srv.URL, "token", testLogger())
	if _, err := c.ListWorkspaces(context.Background()); err == nil {
		t.Fatal("expected error on non-200 status")
	}
}
