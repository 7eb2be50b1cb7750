// Package clickup is the narrow read/write client for the ClickUp API. List
// responses are cached for a few minutes to stay under the API's rate limits;
// this cache is independent of the durable task cache in the store, which is
// refreshed only by an explicit user action.
package clickup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/High-Blood-Pressure/telegram-clickup-bot/internal/models"
)

const (
	// DefaultBaseURL is the production ClickUp API endpoint.
	DefaultBaseURL = "https://api.clickup.com/api/v2"

	cacheTTL = 5 * time.Minute
)

// Client talks to the ClickUp API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	cache      *gocache.Cache
	logger     *slog.Logger
}

func NewClient(baseURL, token string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		cache:  gocache.New(cacheTTL, 2*cacheTTL),
		logger: logger,
	}
}

// ListWorkspaces returns the teams visible to the configured token.
func (c *Client) ListWorkspaces(ctx context.Context) ([]models.Workspace, error) {
	key := "workspaces"
	if cached, ok := c.cache.Get(key); ok {
		return cached.([]models.Workspace), nil
	}

	var resp struct {
		Teams []struct {
			ID    string `json:"id"`
			Name  string `json:"name"`
			Color string `json:"color"`
		} `json:"teams"`
	}
	if err := c.get(ctx, "/team", nil, &resp); err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}

	workspaces := make([]models.Workspace, 0, len(resp.Teams))
	for _, t := range resp.Teams {
		name := t.Name
		if name == "" {
			name = "Workspace " + t.ID
		}
		workspaces = append(workspaces, models.Workspace{ID: t.ID, Name: name, Color: t.Color})
	}

	c.cache.Set(key, workspaces, gocache.DefaultExpiration)
	return workspaces, nil
}

// ListSprints finds the workspace folder whose name starts with "Sprint" and
// returns its lists, which are the sprints.
func (c *Client) ListSprints(ctx context.Context, workspaceID string) ([]models.Sprint, error) {
	key := "sprints:" + workspaceID
	if cached, ok := c.cache.Get(key); ok {
		return cached.([]models.Sprint), nil
	}

	var foldersResp struct {
		Folders []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"folders"`
	}
	err := c.get(ctx, "/team/"+workspaceID+"/folder", url.Values{"archived": {"false"}}, &foldersResp)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}

	var folderID, folderName string
	for _, f := range foldersResp.Folders {
		if strings.HasPrefix(strings.ToLower(f.Name), "sprint") {
			folderID, folderName = f.ID, f.Name
			break
		}
	}
	if folderID == "" {
		return nil, fmt.Errorf("sprint folder not found in workspace %s", workspaceID)
	}

	var listsResp struct {
		Lists []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"lists"`
	}
	err = c.get(ctx, "/folder/"+folderID+"/list", url.Values{"archived": {"false"}}, &listsResp)
	if err != nil {
		return nil, fmt.Errorf("list sprints: %w", err)
	}

	sprints := make([]models.Sprint, 0, len(listsResp.Lists))
	for _, l := range listsResp.Lists {
		name := l.Name
		if name == "" {
			name = "Sprint " + l.ID
		}
		sprints = append(sprints, models.Sprint{
			ID: l.ID, Name: name, FolderID: folderID, FolderName: folderName,
		})
	}

	c.cache.Set(key, sprints, gocache.DefaultExpiration)
	return sprints, nil
}

// ListMembers returns the members of a sprint list.
func (c *Client) ListMembers(ctx context.Context, sprintID string) ([]models.Member, error) {
	key := "members:" + sprintID
	if cached, ok := c.cache.Get(key); ok {
		return cached.([]models.Member), nil
	}

	var resp struct {
		Members []struct {
			ID       int64  `json:"id"`
			Username string `json:"username"`
			Email    string `json:"email"`
			Initials string `json:"initials"`
		} `json:"members"`
	}
	if err := c.get(ctx, "/list/"+sprintID+"/member", nil, &resp); err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	members := make([]models.Member, 0, len(resp.Members))
	for _, m := range resp.Members {
		username := m.Username
		if username == "" {
			username = "Unknown"
		}
		members = append(members, models.Member{
			ID: m.ID, Username: username, Email: m.Email, Initials: m.Initials,
		})
	}

	c.cache.Set(key, members, gocache.DefaultExpiration)
	return members, nil
}

// ListUserTasks returns the sprint's tasks assigned to one member, including
// closed tasks and subtasks.
func (c *Client) ListUserTasks(ctx context.Context, sprintID, assigneeID string) ([]models.Task, error) {
	key := "tasks:" + sprintID + ":" + assigneeID
	if cached, ok := c.cache.Get(key); ok {
		return cached.([]models.Task), nil
	}

	params := url.Values{
		"include_closed": {"true"},
		"subtasks":       {"true"},
		"assignees[]":    {assigneeID},
	}
	tasks, err := c.fetchTasks(ctx, sprintID, params)
	if err != nil {
		return nil, err
	}

	c.cache.Set(key, tasks, gocache.DefaultExpiration)
	return tasks, nil
}

// ListAllTasks returns every task in the sprint, including closed tasks and
// subtasks.
func (c *Client) ListAllTasks(ctx context.Context, sprintID string) ([]models.Task, error) {
	key := "tasks:" + sprintID
	if cached, ok := c.cache.Get(key); ok {
		return cached.([]models.Task), nil
	}

	params := url.Values{
		"include_closed": {"true"},
		"subtasks":       {"true"},
	}
	tasks, err := c.fetchTasks(ctx, sprintID, params)
	if err != nil {
		return nil, err
	}

	c.cache.Set(key, tasks, gocache.DefaultExpiration)
	return tasks, nil
}

// PushEstimate writes a new time estimate, in minutes, to the remote task.
// Writes are never cached.
func (c *Client) PushEstimate(ctx context.Context, taskID string, minutes float64) error {
	estimateMS := int64(minutes * 60 * 1000)
	body, err := json.Marshal(map[string]int64{"time_estimate": estimateMS})
	if err != nil {
		return fmt.Errorf("marshal estimate: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		c.baseURL+"/task/"+taskID, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build estimate request: %w", err)
	}
	req.Header.Set("Authorization", c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("push estimate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("push estimate: status %d: %s", resp.StatusCode, string(data))
	}
	return nil
}

type taskResponse struct {
	Tasks []struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		URL    string `json:"url"`
		Status struct {
			Status string `json:"status"`
		} `json:"status"`
		TimeEstimate int64 `json:"time_estimate"`
	} `json:"tasks"`
}

func (c *Client) fetchTasks(ctx context.Context, sprintID string, params url.Values) ([]models.Task, error) {
	var resp taskResponse
	if err := c.get(ctx, "/list/"+sprintID+"/task", params, &resp); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	tasks := make([]models.Task, 0, len(resp.Tasks))
	for _, t := range resp.Tasks {
		name := t.Name
		if name == "" {
			name = "Task " + t.ID
		}
		status := t.Status.Status
		if status == "" {
			status = "unknown"
		}
		tasks = append(tasks, models.Task{
			ID:               t.ID,
			Name:             name,
			URL:              t.URL,
			Status:           status,
			EstimatedMinutes: float64(t.TimeEstimate) / 60000.0,
		})
	}
	return tasks, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("clickup request failed",
			"path", path,
			"status", resp.StatusCode,
		)
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
