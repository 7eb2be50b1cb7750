// Package session tracks each chat user's navigation context and any
// in-flight dialog. Contexts are held in one guarded map and snapshotted to a
// single JSON file on a dirty flag; dialogs are never persisted.
package session

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/High-Blood-Pressure/telegram-clickup-bot/internal/models"
)

// Store owns the user-context map, its dirty flag, and the snapshot file.
// All access goes through one mutex; the map is small enough that a single
// critical section per store beats per-key locking.
type Store struct {
	mu     sync.Mutex
	path   string
	dirty  bool
	users  map[int64]*models.UserSession
	logger *slog.Logger
}

// NewStore loads the snapshot at path if one exists. A missing file is a
// fresh deployment, not an error; an unreadable one is logged and the store
// starts empty rather than failing startup.
func NewStore(path string, logger *slog.Logger) *Store {
	s := &Store{
		path:   path,
		users:  make(map[int64]*models.UserSession),
		logger: logger,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Error("failed to read session snapshot", "path", path, "error", err)
		}
		return s
	}

	if err := json.Unmarshal(data, &s.users); err != nil {
		logger.Error("failed to parse session snapshot", "path", path, "error", err)
		s.users = make(map[int64]*models.UserSession)
		return s
	}

	logger.Info("loaded session snapshot", "path", path, "users", len(s.users))
	return s
}

// GetOrCreate returns a copy of the user's context, creating a zero-valued
// one on first access. Creation marks the store dirty.
func (s *Store) GetOrCreate(userID int64) models.UserSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.getOrCreateLocked(userID)
}

func (s *Store) getOrCreateLocked(userID int64) *models.UserSession {
	ctx, ok := s.users[userID]
	if !ok {
		ctx = &models.UserSession{}
		s.users[userID] = ctx
		s.dirty = true
		s.logger.Info("created new context", "user_id", userID)
	}
	return ctx
}

// SetWorkspace selects a workspace. A sprint or assignee selected under the
// previous workspace would be stale, so both are cleared in the same critical
// section, along with every display cache.
func (s *Store) SetWorkspace(userID int64, workspaceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := s.getOrCreateLocked(userID)
	changed := ctx.Workspace != workspaceID ||
		ctx.WorkspaceName != "" || ctx.Sprint != "" || ctx.SprintName != "" ||
		ctx.Assignee != "" || ctx.AssigneeName != ""
	if !changed {
		return
	}

	ctx.Workspace = workspaceID
	ctx.WorkspaceName = ""
	ctx.Sprint = ""
	ctx.SprintName = ""
	ctx.Assignee = ""
	ctx.AssigneeName = ""
	s.dirty = true
	s.logger.Debug("workspace selected", "user_id", userID, "workspace", workspaceID)
}

// SetSprint selects a sprint, clearing any assignee chosen under the previous
// sprint.
func (s *Store) SetSprint(userID int64, sprintID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := s.getOrCreateLocked(userID)
	changed := ctx.Sprint != sprintID ||
		ctx.SprintName != "" || ctx.Assignee != "" || ctx.AssigneeName != ""
	if !changed {
		return
	}

	ctx.Sprint = sprintID
	ctx.SprintName = ""
	ctx.Assignee = ""
	ctx.AssigneeName = ""
	s.dirty = true
	s.logger.Debug("sprint selected", "user_id", userID, "sprint", sprintID)
}

// SetAssignee selects the member time is attributed to.
func (s *Store) SetAssignee(userID int64, assigneeID, assigneeName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := s.getOrCreateLocked(userID)
	if ctx.Assignee == assigneeID && ctx.AssigneeName == assigneeName {
		return
	}
	ctx.Assignee = assigneeID
	ctx.AssigneeName = assigneeName
	s.dirty = true
	s.logger.Debug("assignee selected", "user_id", userID, "assignee", assigneeID)
}

// SetWorkspaceName caches the display name for the selected workspace.
func (s *Store) SetWorkspaceName(userID int64, name string) {
	s.setName(userID, func(ctx *models.UserSession) *string { return &ctx.WorkspaceName }, name)
}

// SetSprintName caches the display name for the selected sprint.
func (s *Store) SetSprintName(userID int64, name string) {
	s.setName(userID, func(ctx *models.UserSession) *string { return &ctx.SprintName }, name)
}

// SetAssigneeName caches the display name for the selected assignee.
func (s *Store) SetAssigneeName(userID int64, name string) {
	s.setName(userID, func(ctx *models.UserSession) *string { return &ctx.AssigneeName }, name)
}

func (s *Store) setName(userID int64, field func(*models.UserSession) *string, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := field(s.getOrCreateLocked(userID))
	if *f == name {
		return
	}
	*f = name
	s.dirty = true
}

// FlushIfDirty writes the snapshot iff a mutation happened since the last
// flush, and reports whether it wrote. The snapshot and the dirty-flag clear
// happen under the same lock mutations take, so a flush can never clear the
// flag before its snapshot reflects the mutation that set it. A failed write
// leaves the flag set for the next periodic flush to retry.
func (s *Store) FlushIfDirty() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return false, nil
	}
	if err := s.writeSnapshotLocked(); err != nil {
		s.logger.Error("failed to save sessions", "path", s.path, "error", err)
		return false, err
	}
	s.dirty = false
	return true, nil
}

// ForceFlush unconditionally writes the snapshot, used on shutdown.
func (s *Store) ForceFlush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeSnapshotLocked(); err != nil {
		s.logger.Error("failed to save sessions", "path", s.path, "error", err)
		return err
	}
	s.dirty = false
	return nil
}

func (s *Store) writeSnapshotLocked() error {
	data, err := json.MarshalIndent(s.users, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sessions: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}
