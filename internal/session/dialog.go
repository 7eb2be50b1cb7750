package session

import (
	"sync"

	"github.com/High-Blood-Pressure/telegram-clickup-bot/internal/models"
)

// DialogKind says how the next free-text message from a user is interpreted.
type DialogKind int

const (
	// DialogLogTime: the user picked (or is picking) a task and the next
	// message is a duration to add to the ledger.
	DialogLogTime DialogKind = iota
	// DialogEditEstimate: the next message is a new estimate to push upstream.
	DialogEditEstimate
)

// Dialog is the in-flight multi-turn input state for one user. At most one
// exists per user. For DialogLogTime, TaskID stays empty until the user picks
// a task from the candidate list.
type Dialog struct {
	Kind       DialogKind
	TaskID     string
	AssigneeID string
	Tasks      []models.Task
}

// Dialogs is the process-wide dialog registry. It is deliberately not
// persisted: a restart discards in-flight dialogs and the user starts over.
type Dialogs struct {
	mu     sync.Mutex
	active map[int64]*Dialog
}

func NewDialogs() *Dialogs {
	return &Dialogs{active: make(map[int64]*Dialog)}
}

// Begin replaces any existing dialog for the user.
func (d *Dialogs) Begin(userID int64, dialog Dialog) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.active[userID] = &dialog
}

// Get returns a copy of the user's dialog, if one is active.
func (d *Dialogs) Get(userID int64) (Dialog, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	dialog, ok := d.active[userID]
	if !ok {
		return Dialog{}, false
	}
	return *dialog, true
}

// SetTask records the task picked from the candidate list. It reports false
// if no dialog is active, e.g. after a restart discarded it.
func (d *Dialogs) SetTask(userID int64, taskID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	dialog, ok := d.active[userID]
	if !ok {
		return false
	}
	dialog.TaskID = taskID
	return true
}

// Clear tears down the user's dialog, if any.
func (d *Dialogs) Clear(userID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.active, userID)
}
