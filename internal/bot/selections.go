package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/High-Blood-Pressure/telegram-clickup-bot/internal/models"
)

// contextMenu renders the user's current workspace/sprint/assignee selection
// with the main action keyboard. Display names come from the session's
// denormalized caches; a missing name is resolved through the provider once
// and cached back.
func (o *Orchestrator) contextMenu(ctx context.Context, userID int64) models.Reply {
	sess := o.sessions.GetOrCreate(userID)

	var b strings.Builder
	b.WriteString("⚙️ <b>Current context</b>\n\n")

	if sess.Workspace == "" {
		b.WriteString("🏢 <b>Workspace:</b> not selected\n")
	} else {
		name := sess.WorkspaceName
		if name == "" {
			name = o.resolveWorkspaceName(ctx, userID, sess.Workspace)
		}
		fmt.Fprintf(&b, "🏢 <b>Workspace:</b> %s\n", name)
	}

	if sess.Sprint == "" {
		b.WriteString("⏳ <b>Sprint:</b> not selected\n")
	} else {
		name := sess.SprintName
		if name == "" {
			name = o.resolveSprintName(ctx, userID, sess.Workspace, sess.Sprint)
		}
		fmt.Fprintf(&b, "⏳ <b>Sprint:</b> %s\n", name)
	}

	if sess.Assignee == "" {
		b.WriteString("👤 <b>Assignee:</b> not selected\n")
	} else {
		name := sess.AssigneeName
		if name == "" {
			name = o.resolveAssigneeName(ctx, userID, sess.Sprint, sess.Assignee)
		}
		fmt.Fprintf(&b, "👤 <b>Assignee:</b> %s\n", name)
	}

	keyboard := [][]models.Button{
		{{Label: "Change workspace", Action: actionChangeWorkspace}},
		{{Label: "Change sprint", Action: actionChangeSprint}},
		{{Label: "Change assignee", Action: actionChangeUser}},
		{{Label: "Log time", Action: actionLogTime}},
		{{Label: "📊 Task statistics", Action: actionShowStats}},
		{{Label: "🔄 Refresh tasks", Action: actionRefreshTasks}},
		{{Label: "📋 All sprint tasks", Action: actionShowAllTasks}},
	}

	return models.Reply{Text: b.String(), Keyboard: keyboard, HTML: true}
}

func (o *Orchestrator) resolveWorkspaceName(ctx context.Context, userID int64, workspaceID string) string {
	fallback := "ID " + workspaceID
	workspaces, err := o.provider.ListWorkspaces(ctx)
	if err != nil {
		o.logger.Error("failed to resolve workspace name", "error", err)
		return fallback
	}
	for _, ws := range workspaces {
		if ws.ID == workspaceID {
			o.sessions.SetWorkspaceName(userID, ws.Name)
			return ws.Name
		}
	}
	return fallback
}

func (o *Orchestrator) resolveSprintName(ctx context.Context, userID int64, workspaceID, sprintID string) string {
	fallback := "ID " + sprintID
	if workspaceID == "" {
		return fallback
	}
	sprints, err := o.provider.ListSprints(ctx, workspaceID)
	if err != nil {
		o.logger.Error("failed to resolve sprint name", "error", err)
		return fallback
	}
	for _, sp := range sprints {
		if sp.ID == sprintID {
			o.sessions.SetSprintName(userID, sp.Name)
			return sp.Name
		}
	}
	return fallback
}

func (o *Orchestrator) resolveAssigneeName(ctx context.Context, userID int64, sprintID, assigneeID string) string {
	fallback := "ID " + assigneeID
	if sprintID == "" {
		return fallback
	}
	members, err := o.provider.ListMembers(ctx, sprintID)
	if err != nil {
		o.logger.Error("failed to resolve assignee name", "error", err)
		return fallback
	}
	for _, m := range members {
		if strconv.FormatInt(m.ID, 10) == assigneeID {
			o.sessions.SetAssigneeName(userID, m.Username)
			return m.Username
		}
	}
	return fallback
}

func (o *Orchestrator) listWorkspaces(ctx context.Context) models.Reply {
	workspaces, err := o.provider.ListWorkspaces(ctx)
	if err != nil {
		o.logger.Error("failed to list workspaces", "error", err)
		return models.Reply{Text: "⚠️ Could not load workspaces. Try again later."}
	}
	if len(workspaces) == 0 {
		return models.Reply{Text: "❌ No workspaces available."}
	}

	keyboard := make([][]models.Button, 0, len(workspaces))
	for _, ws := range workspaces {
		keyboard = append(keyboard, []models.Button{
			{Label: ws.Name, Action: prefixWorkspace + ws.ID},
		})
	}
	return models.Reply{Text: "🏢 Pick a workspace:", Keyboard: keyboard}
}

func (o *Orchestrator) listSprints(ctx context.Context, userID int64) models.Reply {
	sess := o.sessions.GetOrCreate(userID)
	if sess.Workspace == "" {
		return models.Reply{Text: "❌ Pick a workspace first."}
	}

	sprints, err := o.provider.ListSprints(ctx, sess.Workspace)
	if err != nil {
		o.logger.Error("failed to list sprints", "error", err)
		return models.Reply{Text: "⚠️ Could not load sprints. Try again later."}
	}
	if len(sprints) == 0 {
		return models.Reply{Text: "❌ No sprints found."}
	}

	keyboard := make([][]models.Button, 0, len(sprints))
	for _, sp := range sprints {
		keyboard = append(keyboard, []models.Button{
			{Label: sp.Name, Action: prefixSprint + sp.ID},
		})
	}
	return models.Reply{Text: "⏳ Pick a sprint:", Keyboard: keyboard}
}

func (o *Orchestrator) listMembers(ctx context.Context, userID int64) models.Reply {
	sess := o.sessions.GetOrCreate(userID)
	if sess.Sprint == "" {
		return models.Reply{Text: "❌ Pick a sprint first."}
	}

	members, err := o.provider.ListMembers(ctx, sess.Sprint)
	if err != nil {
		o.logger.Error("failed to list members", "error", err)
		return models.Reply{Text: "⚠️ Could not load members. Try again later."}
	}
	if len(members) == 0 {
		return models.Reply{Text: "❌ No members found."}
	}

	keyboard := make([][]models.Button, 0, len(members))
	for _, m := range members {
		label := m.Username
		if m.Email != "" {
			label = fmt.Sprintf("%s (%s)", m.Username, m.Email)
		}
		keyboard = append(keyboard, []models.Button{
			{Label: label, Action: fmt.Sprintf("%s%d_%s", prefixUser, m.ID, m.Username)},
		})
	}
	return models.Reply{Text: "👤 Pick an assignee:", Keyboard: keyboard}
}
