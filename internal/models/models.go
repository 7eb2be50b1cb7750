package models

// UserSession is one user's navigation context: where in the
// workspace/sprint/assignee hierarchy they currently are. The name fields are
// denormalized display caches resolved lazily from the remote provider.
type UserSession struct {
	Workspace     string `json:"current_workspace,omitempty"`
	WorkspaceName string `json:"current_workspace_name,omitempty"`
	Sprint        string `json:"current_sprint,omitempty"`
	SprintName    string `json:"current_sprint_name,omitempty"`
	Assignee      string `json:"current_user,omitempty"`
	AssigneeName  string `json:"current_user_name,omitempty"`
}

// CachedTask is the local snapshot of a remote task. Rows are replaced
// wholesale on refresh; staleness is resolved only by an explicit refresh.
type CachedTask struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	URL              string  `json:"url"`
	Status           string  `json:"status"`
	WorkspaceID      string  `json:"workspace_id"`
	SprintID         string  `json:"sprint_id"`
	EstimatedMinutes float64 `json:"estimated_minutes"`
	LastUpdated      int64   `json:"last_updated"`
}

// LoggedTime is the accumulated minutes one assignee has logged against one
// task. Ordinary writes only add to TotalMinutes, they never overwrite it.
type LoggedTime struct {
	TaskID       string  `json:"task_id"`
	AssigneeID   string  `json:"assignee_id"`
	AssigneeName string  `json:"assignee_name"`
	TotalMinutes float64 `json:"total_minutes"`
}

// TaskSummary pairs a cached task with every assignee's logged time. Tasks
// with no logged time carry an empty Assignees slice, not a missing entry.
type TaskSummary struct {
	Task      CachedTask   `json:"task"`
	Assignees []LoggedTime `json:"assignees"`
}

// UserTaskStat is one row of a user's per-sprint statistics view.
type UserTaskStat struct {
	Task          CachedTask `json:"task"`
	LoggedMinutes float64    `json:"logged_minutes"`
}

// Workspace is a top-level organizational unit in the remote system.
type Workspace struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Sprint is a list inside the remote system's sprint folder.
type Sprint struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	FolderID   string `json:"folder_id"`
	FolderName string `json:"folder_name"`
}

// Member is a remote-system user that time can be attributed to.
type Member struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Initials string `json:"initials"`
}

// Task is a remote task as returned by the provider, before caching.
type Task struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	URL              string  `json:"url"`
	Status           string  `json:"status"`
	EstimatedMinutes float64 `json:"estimated_minutes"`
}
