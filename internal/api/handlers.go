package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/High-Blood-Pressure/telegram-clickup-bot/internal/models"
	"github.com/High-Blood-Pressure/telegram-clickup-bot/internal/store"
)

type HealthHandler struct {
	db *store.DB
}

func NewHealthHandler(db *store.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	count, err := h.db.TaskCount()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "degraded",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"cached_tasks": count,
	})
}

type SprintHandler struct {
	tasks  *store.TaskStore
	ledger *store.LedgerStore
}

func NewSprintHandler(tasks *store.TaskStore, ledger *store.LedgerStore) *SprintHandler {
	return &SprintHandler{tasks: tasks, ledger: ledger}
}

// Tasks returns the cached tasks for a sprint.
func (h *SprintHandler) Tasks(w http.ResponseWriter, r *http.Request) {
	sprintID := chi.URLParam(r, "id")

	tasks, err := h.tasks.TasksForSprint(sprintID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load tasks")
		return
	}
	if tasks == nil {
		tasks = []models.CachedTask{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

// Summary returns the cached tasks for a sprint joined with the per-assignee
// logged time.
func (h *SprintHandler) Summary(w http.ResponseWriter, r *http.Request) {
	sprintID := chi.URLParam(r, "id")

	summary, err := h.ledger.SprintSummary(sprintID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load summary")
		return
	}
	if summary == nil {
		summary = []models.TaskSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": summary})
}
