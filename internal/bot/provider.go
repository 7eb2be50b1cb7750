package bot

import (
	"context"

	"github.com/High-Blood-Pressure/telegram-clickup-bot/internal/models"
)

// Provider is the narrow interface to the remote task-tracking system. Calls
// may be slow, rate-limited, or transiently unavailable; the orchestrator
// converts every failure into a user-facing retry message.
type Provider interface {
	ListWorkspaces(ctx context.Context) ([]models.Workspace, error)
	ListSprints(ctx context.Context, workspaceID string) ([]models.Sprint, error)
	ListMembers(ctx context.Context, sprintID string) ([]models.Member, error)
	ListUserTasks(ctx context.Context, sprintID, assigneeID string) ([]models.Task, error)
	ListAllTasks(ctx context.Context, sprintID string) ([]models.Task, error)
	PushEstimate(ctx context.Context, taskID string, minutes float64) error
}
