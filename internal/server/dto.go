package server

import (
	"encoding/json"

	"github.com/shubhamragade/workflow/internal/domain"
)

// Request payloads

type CreateUserRequest struct {
	Name  string `json:"name" minLength:"1"`
	Email string `json:"email" format:"email"`
	Role  string `json:"role,omitempty" enum:"Admin,Member"`
}

type SetUserStatusRequest struct {
	Status string `json:"status" enum:"Active,Inactive"`
}

type ConfirmExitRequest struct {
	Reassignments map[string]string `json:"reassignments,omitempty"`
	FinalHandover string            `json:"final_handover,omitempty"`
}

type CreateProjectRequest struct {
	Name        string `json:"name" minLength:"1"`
	Description string `json:"description,omitempty"`
	TargetDate  string `json:"target_date,omitempty"`
}

type SetProjectStatusRequest struct {
	Status string `json:"status" enum:"ACTIVE,COMPLETED"`
}

type AddMemberRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role_in_project,omitempty" enum:"Lead,Contributor,Observer"`
}

type CreateMilestoneRequest struct {
	Title       string `json:"title" minLength:"1"`
	Description string `json:"description,omitempty"`
	TargetDate  string `json:"target_date,omitempty"`
}

type CreateTaskRequest struct {
	Title       string `json:"title" minLength:"1"`
	Description string `json:"description,omitempty"`
	AssigneeID  string `json:"assignee_id,omitempty"`
	MilestoneID string `json:"milestone_id,omitempty"`
	Priority    string `json:"priority,omitempty" enum:"Low,Medium,High"`
}

type UpdateTaskRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Priority    *string `json:"priority,omitempty" enum:"Low,Medium,High"`
	AssigneeID  *string `json:"assignee_id,omitempty"`
	MilestoneID *string `json:"milestone_id,omitempty"`
	Status      *string `json:"status,omitempty" enum:"TODO,IN_PROGRESS,REVIEW,DONE"`
	Version     *int64  `json:"version,omitempty" doc:"Version the client last read; a mismatch is a conflict"`
}

type CreateWorkLogRequest struct {
	Content    string  `json:"content"`
	HoursSpent float64 `json:"hours_spent"`
	Blockers   string  `json:"blockers,omitempty"`
	Insight    string  `json:"insight,omitempty" doc:"Non-empty insight also records a decision"`
}

type CreateDecisionRequest struct {
	Title       string `json:"title" minLength:"1"`
	Explanation string `json:"explanation,omitempty"`
	Reasoning   string `json:"reasoning,omitempty"`
	ImpactLevel string `json:"impact_level,omitempty" enum:"Low,Medium,High"`
	TaskID      string `json:"task_id,omitempty"`
}

type UpdateDecisionRequest struct {
	Title       *string `json:"title,omitempty"`
	Explanation *string `json:"explanation,omitempty"`
	Reasoning   *string `json:"reasoning,omitempty"`
	ImpactLevel *string `json:"impact_level,omitempty" enum:"Low,Medium,High"`
	Version     *int64  `json:"version,omitempty"`
}

type TokenRequest struct {
	UserID     string `json:"user_id"`
	TTLSeconds int    `json:"ttl_seconds,omitempty"`
}

// Response payloads

type TokenResponse struct {
	Token string `json:"token"`
}

type WhoAmIResponse struct {
	ActorID string      `json:"actor_id"`
	Source  string      `json:"source"`
	User    domain.User `json:"user"`
	Roles   []string    `json:"roles"`
}

type WorkLogResponse struct {
	Log      domain.WorkLog   `json:"log"`
	Decision *domain.Decision `json:"decision,omitempty"`
	Progress float64          `json:"project_completion_percentage"`
}

type EventResponse struct {
	ID          int64          `json:"id"`
	TS          string         `json:"ts" format:"date-time"`
	Type        string         `json:"type"`
	Description string         `json:"description"`
	ProjectID   string         `json:"project_id,omitempty"`
	EntityKind  string         `json:"entity_kind"`
	EntityID    string         `json:"entity_id,omitempty"`
	ActorID     string         `json:"actor_id,omitempty"`
	Payload     map[string]any `json:"payload"`
}

type paginatedTasks struct {
	Items      []domain.Task `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

type paginatedEvents struct {
	Items      []EventResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

func eventResponse(evt domain.Event) EventResponse {
	payload := map[string]any{}
	if evt.Payload != "" {
		_ = json.Unmarshal([]byte(evt.Payload), &payload)
	}
	return EventResponse{
		ID:          evt.ID,
		TS:          evt.TS,
		Type:        evt.Type,
		Description: evt.Description,
		ProjectID:   evt.ProjectID,
		EntityKind:  evt.EntityKind,
		EntityID:    evt.EntityID,
		ActorID:     evt.ActorID,
		Payload:     payload,
	}
}

func nonNilSlice(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
