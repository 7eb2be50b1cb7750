package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/High-Blood-Pressure/telegram-clickup-bot/internal/models"
)

// taskColumns is the canonical column list for all SELECT queries.
// Order must match scanTask.
const taskColumns = `task_id, name, url, status, workspace_id, sprint_id, estimated_minutes, last_updated`

// TaskStore caches remote task snapshots in SQLite.
type TaskStore struct {
	db *DB
}

func NewTaskStore(db *DB) *TaskStore {
	return &TaskStore{db: db}
}

// Upsert replaces the cached row for the task's ID. Applying the same task
// twice is equivalent to once; there is no merge with the prior row.
func (s *TaskStore) Upsert(t *models.CachedTask) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO tasks (
			task_id, name, url, status, workspace_id, sprint_id,
			estimated_minutes, last_updated
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.Name, t.URL, t.Status, t.WorkspaceID, t.SprintID,
		t.EstimatedMinutes, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("upsert task: %w", err)
	}
	return nil
}

// GetByID fetches a single cached task, or nil if it is not cached.
func (s *TaskStore) GetByID(taskID string) (*models.CachedTask, error) {
	row := s.db.QueryRow(
		fmt.Sprintf(`SELECT %s FROM tasks WHERE task_id = ?`, taskColumns), taskID)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

// TasksForSprint returns every cached task for a sprint, regardless of
// freshness.
func (s *TaskStore) TasksForSprint(sprintID string) ([]models.CachedTask, error) {
	rows, err := s.db.Query(
		fmt.Sprintf(`SELECT %s FROM tasks WHERE sprint_id = ? ORDER BY task_id`, taskColumns),
		sprintID)
	if err != nil {
		return nil, fmt.Errorf("query sprint tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.CachedTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// SetEstimate overwrites only the cached estimate, used after a successful
// push of a new estimate to the remote system.
func (s *TaskStore) SetEstimate(taskID string, minutes float64) error {
	res, err := s.db.Exec(
		`UPDATE tasks SET estimated_minutes = ?, last_updated = ? WHERE task_id = ?`,
		minutes, time.Now().Unix(), taskID)
	if err != nil {
		return fmt.Errorf("set estimate: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("task not cached: %s", taskID)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*models.CachedTask, error) {
	var t models.CachedTask
	var url, status, workspaceID, sprintID sql.NullString
	err := row.Scan(&t.ID, &t.Name, &url, &status, &workspaceID, &sprintID,
		&t.EstimatedMinutes, &t.LastUpdated)
	if err != nil {
		return nil, err
	}
	t.URL = url.String
	t.Status = status.String
	t.WorkspaceID = workspaceID.String
	t.SprintID = sprintID.String
	return &t, nil
}
