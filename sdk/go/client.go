package workflowsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is a minimal Workflow HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client for a server root such as http://127.0.0.1:8080.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

type Project struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name"`
	Description          string  `json:"description,omitempty"`
	Status               string  `json:"status"`
	CompletionPercentage float64 `json:"completion_percentage"`
}

type Task struct {
	ID          string  `json:"id"`
	ProjectID   string  `json:"project_id"`
	Title       string  `json:"title"`
	Status      string  `json:"status"`
	Priority    string  `json:"priority"`
	AssigneeID  *string `json:"assignee_id,omitempty"`
	MilestoneID *string `json:"milestone_id,omitempty"`
	Version     int64   `json:"version"`
}

type WorkLog struct {
	ID         string  `json:"id"`
	TaskID     string  `json:"task_id"`
	AuthorID   string  `json:"author_id"`
	Content    string  `json:"content"`
	Blockers   string  `json:"blockers,omitempty"`
	HoursSpent float64 `json:"hours_spent"`
	CreatedAt  string  `json:"created_at"`
}

type Decision struct {
	ID          string `json:"id"`
	ProjectID   string `json:"project_id"`
	Title       string `json:"title"`
	Explanation string `json:"explanation"`
	Reasoning   string `json:"reasoning"`
	ImpactLevel string `json:"impact_level"`
	Version     int64  `json:"version"`
	CreatedAt   string `json:"created_at"`
}

// WorkLogResult is the response to LogWork.
type WorkLogResult struct {
	Log                  WorkLog   `json:"log"`
	Decision             *Decision `json:"decision,omitempty"`
	CompletionPercentage float64   `json:"project_completion_percentage"`
}

type Report struct {
	ArtifactID  string `json:"artifact_id,omitempty"`
	Kind        string `json:"kind"`
	SubjectID   string `json:"subject_id"`
	Text        string `json:"text"`
	Label       string `json:"type"`
	Cached      bool   `json:"cached"`
	Empty       bool   `json:"empty"`
	Status      string `json:"status"`
	ErrorDetail string `json:"error_detail,omitempty"`
}

// Event represents an audit log entry.
type Event struct {
	ID          int64          `json:"id"`
	TS          string         `json:"ts"`
	Type        string         `json:"type"`
	Description string         `json:"description"`
	ProjectID   string         `json:"project_id"`
	EntityID    string         `json:"entity_id"`
	EntityKind  string         `json:"entity_kind"`
	ActorID     string         `json:"actor_id"`
	Payload     map[string]any `json:"payload"`
}

// PaginatedEvents wraps list responses with cursors.
type PaginatedEvents struct {
	Items      []Event `json:"items"`
	NextCursor string  `json:"next_cursor"`
}

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    map[string]any
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CurrentVersion returns details.current_version from a conflict response.
func (e *APIError) CurrentVersion() (int64, bool) {
	v, ok := e.Details["current_version"].(float64)
	return int64(v), ok
}

func (c *Client) CreateProject(ctx context.Context, name, description string) (Project, error) {
	var resp Project
	err := c.do(ctx, http.MethodPost, "projects", map[string]any{"name": name, "description": description}, &resp)
	return resp, err
}

func (c *Client) GetProject(ctx context.Context, projectID string) (Project, error) {
	var resp Project
	err := c.do(ctx, http.MethodGet, "projects/"+url.PathEscape(projectID), nil, &resp)
	return resp, err
}

func (c *Client) CreateTask(ctx context.Context, projectID, title, priority string) (Task, error) {
	body := map[string]any{"title": title}
	if priority != "" {
		body["priority"] = priority
	}
	var resp Task
	err := c.do(ctx, http.MethodPost, "projects/"+url.PathEscape(projectID)+"/tasks", body, &resp)
	return resp, err
}

// AdvanceTask moves a task to its next status. A version of 0 skips the
// concurrency check.
func (c *Client) AdvanceTask(ctx context.Context, taskID string, version int64) (Task, error) {
	endpoint := "tasks/" + url.PathEscape(taskID) + "/advance"
	if version > 0 {
		endpoint += "?version=" + strconv.FormatInt(version, 10)
	}
	var resp Task
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp, err
}

// SetTaskStatus patches a task's status with an expected version.
func (c *Client) SetTaskStatus(ctx context.Context, taskID, status string, version int64) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPatch, "tasks/"+url.PathEscape(taskID), map[string]any{"status": status, "version": version}, &resp)
	return resp, err
}

func (c *Client) LogWork(ctx context.Context, taskID, content string, hours float64, blockers, insight string) (WorkLogResult, error) {
	body := map[string]any{"content": content, "hours_spent": hours}
	if blockers != "" {
		body["blockers"] = blockers
	}
	if insight != "" {
		body["insight"] = insight
	}
	var resp WorkLogResult
	err := c.do(ctx, http.MethodPost, "tasks/"+url.PathEscape(taskID)+"/logs", body, &resp)
	return resp, err
}

func (c *Client) CreateDecision(ctx context.Context, projectID, title, explanation, impact string) (Decision, error) {
	var resp Decision
	err := c.do(ctx, http.MethodPost, "projects/"+url.PathEscape(projectID)+"/decisions", map[string]any{
		"title":        title,
		"explanation":  explanation,
		"impact_level": impact,
	}, &resp)
	return resp, err
}

// ProjectReport fetches a daily, weekly or contributor_impact report.
func (c *Client) ProjectReport(ctx context.Context, projectID, kind string) (Report, error) {
	var resp Report
	err := c.do(ctx, http.MethodGet, "projects/"+url.PathEscape(projectID)+"/reports/"+url.PathEscape(strings.ToLower(kind)), nil, &resp)
	return resp, err
}

// UserReport fetches a handover or contributor report.
func (c *Client) UserReport(ctx context.Context, userID, kind string) (Report, error) {
	var resp Report
	err := c.do(ctx, http.MethodGet, "users/"+url.PathEscape(userID)+"/reports/"+url.PathEscape(strings.ToLower(kind)), nil, &resp)
	return resp, err
}

// Events returns recent events for a project.
func (c *Client) Events(ctx context.Context, projectID string, limit int) ([]Event, error) {
	page, err := c.EventsPage(ctx, projectID, limit, "")
	return page.Items, err
}

// EventsPage returns a paginated event listing, newest first.
func (c *Client) EventsPage(ctx context.Context, projectID string, limit int, cursor string) (PaginatedEvents, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	endpoint := "projects/" + url.PathEscape(projectID) + "/events"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp PaginatedEvents
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	target := c.base() + "/v1/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, target, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code    string         `json:"code"`
				Message string         `json:"message"`
				Details map[string]any `json:"details"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
			apiErr.Details = env.Error.Details
		}
		return apiErr
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
