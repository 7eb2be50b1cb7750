// Package bot drives the conversation: it consumes opaque user actions from
// the chat transport, moves each user's session and dialog state, calls the
// remote provider and the local stores, and returns rendering instructions.
package bot

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/High-Blood-Pressure/telegram-clickup-bot/internal/models"
	"github.com/High-Blood-Pressure/telegram-clickup-bot/internal/session"
	"github.com/High-Blood-Pressure/telegram-clickup-bot/internal/store"
)

// Action identifiers carried in keyboard buttons. Selection actions encode
// their payload after the prefix.
const (
	actionMenu            = "menu"
	actionChangeWorkspace = "change_workspace"
	actionChangeSprint    = "change_sprint"
	actionChangeUser      = "change_user"
	actionLogTime         = "log_my_time"
	actionShowStats       = "show_stats"
	actionShowAllTasks    = "show_all_tasks"
	actionRefreshTasks    = "refresh_tasks"
	actionCancel          = "log_cancel"

	prefixWorkspace = "ws_"
	prefixSprint    = "sprint_"
	prefixUser      = "user_"
	prefixTask      = "task_"
	prefixEstimate  = "est_"
)

// Orchestrator is the composition point between the session store, the time
// ledger, the duration parser, and the remote provider.
type Orchestrator struct {
	sessions *session.Store
	dialogs  *session.Dialogs
	tasks    *store.TaskStore
	ledger   *store.LedgerStore
	provider Provider
	admins   *AllowList
	logger   *slog.Logger

	shutdown     func()
	shuttingDown atomic.Bool
}

func New(
	sessions *session.Store,
	dialogs *session.Dialogs,
	tasks *store.TaskStore,
	ledger *store.LedgerStore,
	provider Provider,
	admins *AllowList,
	shutdown func(),
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		sessions: sessions,
		dialogs:  dialogs,
		tasks:    tasks,
		ledger:   ledger,
		provider: provider,
		admins:   admins,
		shutdown: shutdown,
		logger:   logger,
	}
}

// HandleCommand processes a slash command.
func (o *Orchestrator) HandleCommand(ctx context.Context, userID int64, command string) models.Reply {
	switch command {
	case "start":
		o.sessions.GetOrCreate(userID)
		return models.Reply{Text: "Welcome to the time logger bot!\n\n" +
			"Set up your context with /context before logging time.\n\n" +
			"Commands:\n" +
			"/context — show the current context\n\n" +
			"Admins:\n" +
			"/shutdown — stop the bot"}
	case "context":
		return o.contextMenu(ctx, userID)
	case "shutdown":
		return o.handleShutdown(userID)
	default:
		return models.Reply{Text: "Unknown command. Try /context."}
	}
}

// HandleAction processes a keyboard button press.
func (o *Orchestrator) HandleAction(ctx context.Context, userID int64, action string) models.Reply {
	switch {
	case action == actionMenu:
		return o.contextMenu(ctx, userID)
	case action == actionChangeWorkspace:
		return o.listWorkspaces(ctx)
	case action == actionChangeSprint:
		return o.listSprints(ctx, userID)
	case action == actionChangeUser:
		return o.listMembers(ctx, userID)
	case action == actionLogTime:
		return o.beginLogTime(ctx, userID)
	case action == actionShowStats:
		return o.showStats(userID)
	case action == actionShowAllTasks:
		return o.showAllTasks(userID)
	case action == actionRefreshTasks:
		return o.refreshTasks(ctx, userID)
	case action == actionCancel:
		o.dialogs.Clear(userID)
		return models.Reply{Text: "Time logging cancelled."}

	case strings.HasPrefix(action, prefixWorkspace):
		o.sessions.SetWorkspace(userID, strings.TrimPrefix(action, prefixWorkspace))
		return o.contextMenu(ctx, userID)

	case strings.HasPrefix(action, prefixSprint):
		o.sessions.SetSprint(userID, strings.TrimPrefix(action, prefixSprint))
		return o.contextMenu(ctx, userID)

	case strings.HasPrefix(action, prefixUser):
		parts := strings.SplitN(strings.TrimPrefix(action, prefixUser), "_", 2)
		assigneeID := parts[0]
		assigneeName := "User " + assigneeID
		if len(parts) > 1 && parts[1] != "" {
			assigneeName = parts[1]
		}
		o.sessions.SetAssignee(userID, assigneeID, assigneeName)
		return o.contextMenu(ctx, userID)

	case strings.HasPrefix(action, prefixTask):
		return o.selectTask(userID, strings.TrimPrefix(action, prefixTask))

	case strings.HasPrefix(action, prefixEstimate):
		taskID := strings.TrimPrefix(action, prefixEstimate)
		o.dialogs.Begin(userID, session.Dialog{Kind: session.DialogEditEstimate, TaskID: taskID})
		return models.Reply{
			Text:     "Send the new estimate, e.g. 2h30m, 90m or 150.",
			Keyboard: [][]models.Button{{{Label: "❌ Cancel", Action: actionCancel}}},
		}

	default:
		o.logger.Warn("unknown action", "user_id", userID, "action", action)
		return models.Reply{Text: "Unknown action. Try /context."}
	}
}

// HandleText processes a free-text message. With no dialog pending there is
// no action to take, so the user gets pointed back at the menu.
func (o *Orchestrator) HandleText(ctx context.Context, userID int64, text string) models.Reply {
	dialog, ok := o.dialogs.Get(userID)
	if !ok {
		return models.Reply{Text: "No pending action. Use /context to get the menu."}
	}

	switch dialog.Kind {
	case session.DialogEditEstimate:
		return o.applyEstimate(ctx, userID, dialog, text)
	case session.DialogLogTime:
		if dialog.TaskID == "" {
			// A task list was offered but nothing picked yet.
			return models.Reply{Text: "Pick a task from the list first, or /context for the menu."}
		}
		return o.applyLoggedTime(ctx, userID, dialog, text)
	default:
		return models.Reply{Text: "No pending action. Use /context to get the menu."}
	}
}

func (o *Orchestrator) handleShutdown(userID int64) models.Reply {
	if o.shuttingDown.Load() {
		return models.Reply{Text: "Already shutting down..."}
	}
	if !o.admins.Allowed(userID) {
		o.logger.Warn("unauthorized shutdown attempt", "user_id", userID)
		return models.Reply{Text: "You are not allowed to do that."}
	}

	o.shuttingDown.Store(true)
	o.logger.Info("shutdown initiated by admin", "user_id", userID)

	if err := o.sessions.ForceFlush(); err != nil {
		o.logger.Error("flush on shutdown failed", "error", err)
	}
	if o.shutdown != nil {
		go o.shutdown()
	}
	return models.Reply{Text: "Shutting down..."}
}
