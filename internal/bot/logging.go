package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/High-Blood-Pressure/telegram-clickup-bot/internal/models"
	"github.com/High-Blood-Pressure/telegram-clickup-bot/internal/session"
	"github.com/High-Blood-Pressure/telegram-clickup-bot/internal/timeparse"
)

const timeFormatHelp = "• 1.5h — an hour and a half\n" +
	"• 90m — 90 minutes\n" +
	"• 2h30m — 2 hours 30 minutes\n" +
	"Or just a number of minutes: 150"

// beginLogTime fetches the assignee's sprint tasks, snapshots them into the
// task cache, and opens a log-time dialog with the candidate list.
func (o *Orchestrator) beginLogTime(ctx context.Context, userID int64) models.Reply {
	sess := o.sessions.GetOrCreate(userID)
	if sess.Workspace == "" || sess.Sprint == "" || sess.Assignee == "" {
		return models.Reply{Text: "❌ Set up workspace, sprint and assignee first: /context"}
	}

	tasks, err := o.provider.ListUserTasks(ctx, sess.Sprint, sess.Assignee)
	if err != nil {
		o.logger.Error("failed to list user tasks", "error", err)
		return models.Reply{Text: "⚠️ Could not load tasks. Try again later."}
	}
	if len(tasks) == 0 {
		return models.Reply{Text: "❌ The assignee has no tasks in this sprint."}
	}

	o.cacheTasks(tasks, sess.Workspace, sess.Sprint)

	inProgress := 0
	for _, t := range tasks {
		if strings.EqualFold(t.Status, "in progress") {
			inProgress++
		}
	}
	if inProgress == 0 {
		return models.Reply{Text: "❌ No tasks in progress. Everything is done or not started yet."}
	}

	o.dialogs.Begin(userID, session.Dialog{
		Kind:       session.DialogLogTime,
		AssigneeID: sess.Assignee,
		Tasks:      tasks,
	})

	keyboard := make([][]models.Button, 0, len(tasks)+1)
	for _, t := range tasks {
		keyboard = append(keyboard, []models.Button{
			{Label: truncateName(t.Name, 50), Action: prefixTask + t.ID},
		})
	}
	keyboard = append(keyboard, []models.Button{{Label: "❌ Cancel", Action: actionCancel}})

	return models.Reply{Text: "✅ Pick a task to log time against:", Keyboard: keyboard}
}

// selectTask records the picked task and prompts for a duration, showing the
// estimate and the time already logged.
func (o *Orchestrator) selectTask(userID int64, taskID string) models.Reply {
	dialog, ok := o.dialogs.Get(userID)
	if !ok || dialog.Kind != session.DialogLogTime {
		return models.Reply{Text: "No task selection in progress. Use /context to get the menu."}
	}
	o.dialogs.SetTask(userID, taskID)

	task := taskByID(dialog.Tasks, taskID)
	name := "Task"
	var estimated float64
	if task != nil {
		name = task.Name
		estimated = task.EstimatedMinutes
	}

	logged, _, err := o.ledger.Minutes(taskID, dialog.AssigneeID)
	if err != nil {
		o.logger.Error("failed to read logged time", "task_id", taskID, "error", err)
	}

	text := fmt.Sprintf(
		"Selected task: %s\n\n"+
			"Estimate: %.1f h\n"+
			"Logged so far: %.1f h\n\n"+
			"Enter the time spent:\n%s",
		name, estimated/60, logged/60, timeFormatHelp)

	keyboard := [][]models.Button{
		{{Label: "✏️ Edit estimate", Action: prefixEstimate + taskID}},
		{{Label: "❌ Cancel", Action: actionCancel}},
	}
	return models.Reply{Text: text, Keyboard: keyboard}
}

// applyLoggedTime parses the duration and adds it to the ledger. A bad format
// keeps the dialog so the user can retry; an unrecognized task tears it down.
func (o *Orchestrator) applyLoggedTime(ctx context.Context, userID int64, dialog session.Dialog, text string) models.Reply {
	d, ok := timeparse.Parse(text)
	if !ok || d <= 0 {
		return models.Reply{Text: "❌ Invalid time format. Use:\n" + timeFormatHelp}
	}

	task := taskByID(dialog.Tasks, dialog.TaskID)
	if task == nil {
		o.dialogs.Clear(userID)
		return models.Reply{Text: "❌ Task not found. Start over from the menu."}
	}

	assigneeName := o.assigneeDisplayName(ctx, userID, dialog.AssigneeID)

	minutes := float64(d) / float64(time.Minute)
	err := o.ledger.Add(dialog.TaskID, dialog.AssigneeID, assigneeName, minutes)
	// Clear after success and after a store failure alike: a retry re-selects
	// the task, which keeps double-submits from landing on a stale dialog.
	o.dialogs.Clear(userID)
	if err != nil {
		o.logger.Error("failed to log time", "task_id", dialog.TaskID, "error", err)
		return models.Reply{Text: "❌ Failed to save the time. Try again later."}
	}

	total, _, err := o.ledger.Minutes(dialog.TaskID, dialog.AssigneeID)
	if err != nil {
		o.logger.Error("failed to read total", "task_id", dialog.TaskID, "error", err)
		total = minutes
	}

	totalStr := fmt.Sprintf("%.0f min", total)
	if total >= 60 {
		totalStr = fmt.Sprintf("%.1f h", total/60)
	}

	return models.Reply{Text: fmt.Sprintf(
		"✅ Time saved!\n"+
			"• Spent: %.1f min\n"+
			"• Task total: %s\n"+
			"• Task: %s",
		minutes, totalStr, task.Name)}
}

// applyEstimate parses the new estimate, pushes it upstream, and mirrors it
// into the cache only when the push succeeded.
func (o *Orchestrator) applyEstimate(ctx context.Context, userID int64, dialog session.Dialog, text string) models.Reply {
	d, ok := timeparse.Parse(text)
	if !ok || d <= 0 {
		return models.Reply{Text: "❌ Invalid time format. Use:\n" + timeFormatHelp}
	}

	minutes := float64(d) / float64(time.Minute)
	if err := o.provider.PushEstimate(ctx, dialog.TaskID, minutes); err != nil {
		o.logger.Error("failed to push estimate", "task_id", dialog.TaskID, "error", err)
		o.dialogs.Clear(userID)
		return models.Reply{Text: "❌ Failed to update the estimate. Try again later."}
	}

	if err := o.tasks.SetEstimate(dialog.TaskID, minutes); err != nil {
		// The remote write went through; a stale cache row is refreshed by the
		// next explicit refresh.
		o.logger.Error("failed to cache estimate", "task_id", dialog.TaskID, "error", err)
	}

	o.dialogs.Clear(userID)
	return models.Reply{Text: fmt.Sprintf("✅ Estimate updated: %.1f min", minutes)}
}

// showStats renders the assignee's per-task logged minutes for the selected
// sprint, from the local cache and ledger only.
func (o *Orchestrator) showStats(userID int64) models.Reply {
	sess := o.sessions.GetOrCreate(userID)
	if sess.Workspace == "" || sess.Sprint == "" || sess.Assignee == "" {
		return models.Reply{Text: "❌ Set up workspace, sprint and assignee first: /context"}
	}

	stats, err := o.ledger.UserSprintStats(sess.Sprint, sess.Assignee)
	if err != nil {
		o.logger.Error("failed to load stats", "error", err)
		return models.Reply{Text: "⚠️ Could not load statistics. Try again later."}
	}
	if len(stats) == 0 {
		return models.Reply{Text: "❌ No logged tasks in this sprint yet."}
	}

	var b strings.Builder
	b.WriteString("📊 <b>Your task statistics:</b>\n\n")

	var totalEstimated, totalLogged float64
	for _, st := range stats {
		estimated := st.Task.EstimatedMinutes / 60
		logged := st.LoggedMinutes / 60
		totalEstimated += estimated
		totalLogged += logged

		fmt.Fprintf(&b, "🔹 %s\n", truncateName(st.Task.Name, 50))
		fmt.Fprintf(&b, "   Estimate: %s | Logged: %s | %s\n",
			hoursOrDash(estimated), hoursOrDash(logged), st.Task.Status)
	}
	fmt.Fprintf(&b, "\nTotal: estimate %.1f h, logged %.1f h\n", totalEstimated, totalLogged)

	return models.Reply{Text: b.String(), HTML: true}
}

// showAllTasks renders the cached sprint summary with the per-assignee
// breakdown. It never calls the provider; refresh is a separate action.
func (o *Orchestrator) showAllTasks(userID int64) models.Reply {
	sess := o.sessions.GetOrCreate(userID)
	if sess.Sprint == "" {
		return models.Reply{Text: "❌ Pick a sprint first."}
	}

	summary, err := o.ledger.SprintSummary(sess.Sprint)
	if err != nil {
		o.logger.Error("failed to load sprint summary", "error", err)
		return models.Reply{Text: "⚠️ Could not load tasks. Try again later."}
	}
	if len(summary) == 0 {
		return models.Reply{Text: "❌ No cached tasks for this sprint. Try refreshing."}
	}

	var b strings.Builder
	b.WriteString("📋 <b>All sprint tasks:</b>\n\n")

	for _, ts := range summary {
		fmt.Fprintf(&b, "🔹 <a href=\"%s\">%s</a>\n", ts.Task.URL, truncateName(ts.Task.Name, 50))
		fmt.Fprintf(&b, "   Status: %s\n", ts.Task.Status)

		var total float64
		for _, a := range ts.Assignees {
			total += a.TotalMinutes
		}
		if ts.Task.EstimatedMinutes > 0 {
			fmt.Fprintf(&b, "   Estimate: %.1f h | Logged: %.1f h\n", ts.Task.EstimatedMinutes/60, total/60)
		} else {
			fmt.Fprintf(&b, "   Logged: %.1f h\n", total/60)
		}

		if len(ts.Assignees) == 0 {
			b.WriteString("   👤 No time logged\n")
		}
		for _, a := range ts.Assignees {
			name := a.AssigneeName
			if name == "" {
				name = "User " + a.AssigneeID
			}
			fmt.Fprintf(&b, "   👤 %s: %.1f h\n", name, a.TotalMinutes/60)
		}
		b.WriteString("────────────────\n")
	}

	return models.Reply{Text: b.String(), HTML: true, NoPreview: true}
}

// refreshTasks repopulates the task cache for the selected sprint from the
// provider. This is the only path that resolves cache staleness.
func (o *Orchestrator) refreshTasks(ctx context.Context, userID int64) models.Reply {
	sess := o.sessions.GetOrCreate(userID)
	if sess.Sprint == "" {
		return models.Reply{Text: "❌ Pick a sprint first."}
	}

	tasks, err := o.provider.ListAllTasks(ctx, sess.Sprint)
	if err != nil {
		o.logger.Error("failed to refresh tasks", "error", err)
		return models.Reply{Text: "⚠️ Could not refresh tasks. Try again later."}
	}
	if len(tasks) == 0 {
		return models.Reply{Text: "❌ No tasks in this sprint."}
	}

	o.cacheTasks(tasks, sess.Workspace, sess.Sprint)
	return models.Reply{Text: fmt.Sprintf("✅ Tasks refreshed (%d updated).", len(tasks))}
}

func (o *Orchestrator) cacheTasks(tasks []models.Task, workspaceID, sprintID string) {
	for _, t := range tasks {
		err := o.tasks.Upsert(&models.CachedTask{
			ID:               t.ID,
			Name:             t.Name,
			URL:              t.URL,
			Status:           t.Status,
			WorkspaceID:      workspaceID,
			SprintID:         sprintID,
			EstimatedMinutes: t.EstimatedMinutes,
		})
		if err != nil {
			o.logger.Error("failed to cache task", "task_id", t.ID, "error", err)
		}
	}
}

// assigneeDisplayName prefers the session's cached name and falls back to a
// member lookup, caching the result for next time.
func (o *Orchestrator) assigneeDisplayName(ctx context.Context, userID int64, assigneeID string) string {
	sess := o.sessions.GetOrCreate(userID)
	if sess.AssigneeName != "" {
		return sess.AssigneeName
	}
	if sess.Sprint == "" {
		return "Unknown"
	}

	members, err := o.provider.ListMembers(ctx, sess.Sprint)
	if err != nil {
		o.logger.Error("failed to backfill assignee name", "error", err)
		return "Unknown"
	}
	for _, m := range members {
		if strconv.FormatInt(m.ID, 10) == assigneeID {
			o.sessions.SetAssigneeName(userID, m.Username)
			return m.Username
		}
	}
	return "Unknown"
}

func taskByID(tasks []models.Task, id string) *models.Task {
	for i := range tasks {
		if tasks[i].ID == id {
			return &tasks[i]
		}
	}
	return nil
}

// truncateName shortens long task names for keyboard labels. Slices runes,
// not bytes, so multi-byte names stay valid UTF-8.
func truncateName(name string, max int) string {
	r := []rune(name)
	if len(r) <= max {
		return name
	}
	return string(r[:max-3]) + "..."
}

func hoursOrDash(hours float64) string {
	if hours <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f h", hours)
}
