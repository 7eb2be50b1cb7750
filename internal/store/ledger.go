package store

import (
	"database/sql"
	"fmt"

	"github.com/High-Blood-Pressure/telegram-clickup-bot/internal/models"
)

// LedgerStore accumulates logged minutes per (task, assignee) pair.
type LedgerStore struct {
	db *DB
}

func NewLedgerStore(db *DB) *LedgerStore {
	return &LedgerStore{db: db}
}

// Add atomically adds deltaMinutes to the pair's total, inserting a row if
// none exists, and overwrites the denormalized display name. The accumulate
// happens inside a single conflict upsert so concurrent adds for the same
// pair cannot lose updates.
func (s *LedgerStore) Add(taskID, assigneeID, assigneeName string, deltaMinutes float64) error {
	if deltaMinutes <= 0 {
		return fmt.Errorf("delta must be positive, got %v", deltaMinutes)
	}
	_, err := s.db.Exec(`
		INSERT INTO task_time (task_id, user_id, user_name, total_minutes)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(task_id, user_id) DO UPDATE SET
			total_minutes = total_minutes + excluded.total_minutes,
			user_name = excluded.user_name
	`, taskID, assigneeID, assigneeName, deltaMinutes)
	if err != nil {
		return fmt.Errorf("log time: %w", err)
	}
	return nil
}

// Minutes returns the accumulated total for the pair. The second return
// distinguishes "no row yet" from a real zero; a store failure comes back as
// a non-nil error, never as a silent zero.
func (s *LedgerStore) Minutes(taskID, assigneeID string) (float64, bool, error) {
	var total float64
	err := s.db.QueryRow(`
		SELECT total_minutes FROM task_time WHERE task_id = ? AND user_id = ?
	`, taskID, assigneeID).Scan(&total)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get logged time: %w", err)
	}
	return total, true, nil
}

// SprintSummary returns every cached task for the sprint paired with its
// per-assignee logged time. Tasks nobody has logged against appear with an
// empty assignee list. Order is stable: by task ID, then assignee ID.
func (s *LedgerStore) SprintSummary(sprintID string) ([]models.TaskSummary, error) {
	rows, err := s.db.Query(`
		SELECT t.task_id, t.name, t.url, t.status, t.workspace_id, t.sprint_id,
		       t.estimated_minutes, t.last_updated,
		       tt.user_id, tt.user_name, tt.total_minutes
		FROM tasks t
		LEFT JOIN task_time tt ON t.task_id = tt.task_id
		WHERE t.sprint_id = ?
		ORDER BY t.task_id, tt.user_id
	`, sprintID)
	if err != nil {
		return nil, fmt.Errorf("query sprint summary: %w", err)
	}
	defer rows.Close()

	var summaries []models.TaskSummary
	index := map[string]int{}
	for rows.Next() {
		var t models.CachedTask
		var url, status, workspaceID, spID sql.NullString
		var userID, userName sql.NullString
		var total sql.NullFloat64

		err := rows.Scan(&t.ID, &t.Name, &url, &status, &workspaceID, &spID,
			&t.EstimatedMinutes, &t.LastUpdated, &userID, &userName, &total)
		if err != nil {
			return nil, fmt.Errorf("scan sprint summary: %w", err)
		}
		t.URL = url.String
		t.Status = status.String
		t.WorkspaceID = workspaceID.String
		t.SprintID = spID.String

		i, seen := index[t.ID]
		if !seen {
			i = len(summaries)
			index[t.ID] = i
			summaries = append(summaries, models.TaskSummary{Task: t, Assignees: []models.LoggedTime{}})
		}

		if userID.Valid {
			summaries[i].Assignees = append(summaries[i].Assignees, models.LoggedTime{
				TaskID:       t.ID,
				AssigneeID:   userID.String,
				AssigneeName: userName.String,
				TotalMinutes: total.Float64,
			})
		}
	}
	return summaries, rows.Err()
}

// UserSprintStats returns the tasks in a sprint the assignee has logged time
// against, with their totals.
func (s *LedgerStore) UserSprintStats(sprintID, assigneeID string) ([]models.UserTaskStat, error) {
	rows, err := s.db.Query(`
		SELECT t.task_id, t.name, t.url, t.status, t.workspace_id, t.sprint_id,
		       t.estimated_minutes, t.last_updated, tt.total_minutes
		FROM tasks t
		JOIN task_time tt ON t.task_id = tt.task_id
		WHERE t.sprint_id = ? AND tt.user_id = ?
		ORDER BY t.task_id
	`, sprintID, assigneeID)
	if err != nil {
		return nil, fmt.Errorf("query user stats: %w", err)
	}
	defer rows.Close()

	var stats []models.UserTaskStat
	for rows.Next() {
		var st models.UserTaskStat
		var url, status, workspaceID, spID sql.NullString
		err := rows.Scan(&st.Task.ID, &st.Task.Name, &url, &status, &workspaceID,
			&spID, &st.Task.EstimatedMinutes, &st.Task.LastUpdated, &st.LoggedMinutes)
		if err != nil {
			return nil, fmt.Errorf("scan user stats: %w", err)
		}
		st.Task.URL = url.String
		st.Task.Status = status.String
		st.Task.WorkspaceID = workspaceID.String
		st.Task.SprintID = spID.String
		stats = append(stats, st)
	}
	return stats, rows.Err()
}
