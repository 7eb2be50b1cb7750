// Package api is a small read-only HTTP surface for operators: health plus
// cached sprint views. It never writes to the ledger; time entry happens only
// through the chat flow.
package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/High-Blood-Pressure/telegram-clickup-bot/internal/store"
)

// NewRouter creates the Chi router with all routes and middleware.
func NewRouter(
	db *store.DB,
	tasks *store.TaskStore,
	ledger *store.LedgerStore,
	apiKey string,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recovery(logger))

	healthH := NewHealthHandler(db)
	sprintH := NewSprintHandler(tasks, ledger)

	r.Get("/health", healthH.Health)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(apiKey))

		r.Route("/sprints/{id}", func(r chi.Router) {
			r.Get("/tasks", sprintH.Tasks)
			r.Get("/summary", sprintH.Summary)
		})
	})

	return r
}
