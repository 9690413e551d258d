package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/shubhamragade/workflow/internal/domain"
	"github.com/shubhamragade/workflow/internal/events"
	"github.com/shubhamragade/workflow/internal/repo"
)

// TaskCreateOptions are parameters for creating a task.
type TaskCreateOptions struct {
	ProjectID   string
	Title       string
	Description string
	AssigneeID  string
	MilestoneID string
	Priority    domain.Priority
	ActorID     string
}

func (e Engine) CreateTask(ctx context.Context, opts TaskCreateOptions) (domain.Task, error) {
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		return domain.Task{}, domain.InvalidInput("title is required")
	}
	if opts.Priority == "" {
		opts.Priority = domain.PriorityMedium
	}
	if _, err := domain.ParsePriority(string(opts.Priority)); err != nil {
		return domain.Task{}, err
	}
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	p, err := e.Repo.GetProject(ctx, tx, opts.ProjectID)
	if err != nil {
		return domain.Task{}, notFound(err, "project", opts.ProjectID)
	}
	if p.Status == domain.ProjectCompleted {
		return domain.Task{}, domain.InvalidState("cannot add tasks to a completed project")
	}
	if err := e.ensureMilestoneInProject(ctx, tx, opts.MilestoneID, p.ID); err != nil {
		return domain.Task{}, err
	}
	if err := e.ensureAssignable(ctx, tx, opts.AssigneeID); err != nil {
		return domain.Task{}, err
	}
	now := e.ts()
	t := domain.Task{
		ID:          uuid.New().String(),
		ProjectID:   p.ID,
		MilestoneID: strPtr(opts.MilestoneID),
		AssigneeID:  strPtr(opts.AssigneeID),
		Title:       title,
		Description: opts.Description,
		Priority:    opts.Priority,
		Status:      domain.TaskTodo,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.Repo.InsertTask(ctx, tx, t); err != nil {
		return domain.Task{}, fmt.Errorf("insert task: %w", err)
	}
	if err := e.appendEvent(ctx, tx, events.Event{
		Type:        events.TaskCreated,
		Description: fmt.Sprintf("Task %s created: %s", t.ID, t.Title),
		ProjectID:   t.ProjectID,
		EntityKind:  "task",
		EntityID:    t.ID,
		ActorID:     opts.ActorID,
		Payload:     events.EventPayload{"title": t.Title, "status": t.Status, "assignee_id": opts.AssigneeID},
	}); err != nil {
		return domain.Task{}, err
	}
	if _, err := e.recomputeProgress(ctx, tx, t.ProjectID); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

func (e Engine) GetTask(ctx context.Context, id string) (domain.Task, error) {
	t, err := e.Repo.GetTask(ctx, nil, id)
	return t, notFound(err, "task", id)
}

// AdvanceTask moves a task to its canonical next status.
func (e Engine) AdvanceTask(ctx context.Context, taskID string, expectedVersion *int64, actorID string) (domain.Task, error) {
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	t, err := e.Repo.GetTask(ctx, tx, taskID)
	if err != nil {
		return domain.Task{}, notFound(err, "task", taskID)
	}
	if err := checkVersion("task", expectedVersion, t.Version); err != nil {
		return domain.Task{}, err
	}
	next, ok := t.Status.Next()
	if !ok {
		return domain.Task{}, domain.InvalidState(fmt.Sprintf("cannot advance from %s", t.Status))
	}
	if !t.Status.CanTransition(next) {
		return domain.Task{}, domain.InvalidTransition(t.Status, next)
	}
	if next == domain.TaskDone {
		if err := e.ensureLogged(ctx, tx, t.ID); err != nil {
			return domain.Task{}, err
		}
	}
	from := t.Status
	e.applyStatus(&t, next)
	if err := e.writeTask(ctx, tx, t); err != nil {
		return domain.Task{}, err
	}
	if err := e.statusEvent(ctx, tx, t, from, actorID, fmt.Sprintf("Task %s advanced to %s", t.ID, next)); err != nil {
		return domain.Task{}, err
	}
	if _, err := e.recomputeProgress(ctx, tx, t.ProjectID); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	t.Version++
	return t, nil
}

// TaskUpdate lists the caller-mutable task fields. Nil means unchanged; an
// empty AssigneeID or MilestoneID clears the reference.
type TaskUpdate struct {
	Title           *string
	Description     *string
	Priority        *domain.Priority
	AssigneeID      *string
	MilestoneID     *string
	Status          *domain.TaskStatus
	ExpectedVersion *int64
	ActorID         string
}

func (u TaskUpdate) empty() bool {
	return u.Title == nil && u.Description == nil && u.Priority == nil &&
		u.AssigneeID == nil && u.MilestoneID == nil && u.Status == nil
}

func (e Engine) UpdateTask(ctx context.Context, taskID string, u TaskUpdate) (domain.Task, error) {
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	t, err := e.Repo.GetTask(ctx, tx, taskID)
	if err != nil {
		return domain.Task{}, notFound(err, "task", taskID)
	}
	if err := checkVersion("task", u.ExpectedVersion, t.Version); err != nil {
		return domain.Task{}, err
	}
	if u.empty() {
		return t, nil
	}
	if t.Status == domain.TaskDone {
		return domain.Task{}, domain.InvalidState("cannot modify a DONE task; create a new task for additional work")
	}
	from := t.Status
	var changed []string
	if u.Status != nil && *u.Status != t.Status {
		if _, err := domain.ParseTaskStatus(string(*u.Status)); err != nil {
			return domain.Task{}, err
		}
		if !t.Status.CanTransition(*u.Status) {
			return domain.Task{}, domain.InvalidTransition(t.Status, *u.Status)
		}
		if *u.Status == domain.TaskDone {
			if err := e.ensureLogged(ctx, tx, t.ID); err != nil {
				return domain.Task{}, err
			}
		}
	}
	if u.AssigneeID != nil {
		if err := e.ensureAssignable(ctx, tx, *u.AssigneeID); err != nil {
			return domain.Task{}, err
		}
		if *u.AssigneeID != deref(t.AssigneeID) {
			t.AssigneeID = strPtr(*u.AssigneeID)
			changed = append(changed, "assignee_id")
		}
	}
	if u.MilestoneID != nil && *u.MilestoneID != deref(t.MilestoneID) {
		if err := e.ensureMilestoneInProject(ctx, tx, *u.MilestoneID, t.ProjectID); err != nil {
			return domain.Task{}, err
		}
		t.MilestoneID = strPtr(*u.MilestoneID)
		changed = append(changed, "milestone_id")
	}
	if u.Title != nil && *u.Title != t.Title {
		title := strings.TrimSpace(*u.Title)
		if title == "" {
			return domain.Task{}, domain.InvalidInput("title must not be empty")
		}
		t.Title = title
		changed = append(changed, "title")
	}
	if u.Description != nil && *u.Description != t.Description {
		t.Description = *u.Description
		changed = append(changed, "description")
	}
	if u.Priority != nil && *u.Priority != t.Priority {
		if _, err := domain.ParsePriority(string(*u.Priority)); err != nil {
			return domain.Task{}, err
		}
		t.Priority = *u.Priority
		changed = append(changed, "priority")
	}
	statusChanged := u.Status != nil && *u.Status != from
	if statusChanged {
		e.applyStatus(&t, *u.Status)
		changed = append(changed, "status")
	}
	if len(changed) == 0 {
		return t, nil
	}
	t.UpdatedAt = e.ts()
	if err := e.writeTask(ctx, tx, t); err != nil {
		return domain.Task{}, err
	}
	if statusChanged {
		if err := e.statusEvent(ctx, tx, t, from, u.ActorID, fmt.Sprintf("Task %s status changed from %s to %s", t.ID, from, t.Status)); err != nil {
			return domain.Task{}, err
		}
	}
	if err := e.appendEvent(ctx, tx, events.Event{
		Type:        events.TaskUpdated,
		Description: fmt.Sprintf("Task %s updated: %s", t.ID, strings.Join(changed, ", ")),
		ProjectID:   t.ProjectID,
		EntityKind:  "task",
		EntityID:    t.ID,
		ActorID:     u.ActorID,
		Payload:     events.EventPayload{"fields": changed, "version": t.Version + 1},
	}); err != nil {
		return domain.Task{}, err
	}
	if statusChanged {
		if _, err := e.recomputeProgress(ctx, tx, t.ProjectID); err != nil {
			return domain.Task{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	t.Version++
	return t, nil
}

// ListTasks returns tasks newest first.
func (e Engine) ListTasks(ctx context.Context, f repo.TaskFilters) ([]domain.Task, error) {
	return e.Repo.ListTasks(ctx, nil, f)
}

func (e Engine) applyStatus(t *domain.Task, next domain.TaskStatus) {
	now := e.ts()
	t.Status = next
	t.UpdatedAt = now
	if next == domain.TaskDone {
		t.CompletedAt = &now
	} else {
		t.CompletedAt = nil
	}
}

// writeTask persists t against the version it was read at. A lost race is
// reported as a Conflict carrying the winner's version.
func (e Engine) writeTask(ctx context.Context, tx *sqlx.Tx, t domain.Task) error {
	err := e.Repo.UpdateTaskVersioned(ctx, tx, t, t.Version)
	if errors.Is(err, repo.ErrStaleVersion) {
		current, verr := e.Repo.TaskVersion(ctx, tx, t.ID)
		if verr != nil {
			return notFound(verr, "task", t.ID)
		}
		return domain.Conflict("task", current)
	}
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

func (e Engine) statusEvent(ctx context.Context, tx *sqlx.Tx, t domain.Task, from domain.TaskStatus, actorID, desc string) error {
	return e.appendEvent(ctx, tx, events.Event{
		Type:        events.StatusChange,
		Description: desc,
		ProjectID:   t.ProjectID,
		EntityKind:  "task",
		EntityID:    t.ID,
		ActorID:     actorID,
		Payload:     events.EventPayload{"from_status": from, "to_status": t.Status},
	})
}

func (e Engine) ensureLogged(ctx context.Context, tx *sqlx.Tx, taskID string) error {
	n, err := e.Repo.CountWorkLogs(ctx, tx, taskID)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.InvalidState("cannot mark task DONE without work logs; documentation required")
	}
	return nil
}

// ensureAssignable accepts an empty id (unassigned) or an existing Active user.
func (e Engine) ensureAssignable(ctx context.Context, tx *sqlx.Tx, userID string) error {
	if userID == "" {
		return nil
	}
	u, err := e.Repo.GetUser(ctx, tx, userID)
	if err != nil {
		return notFound(err, "user", userID)
	}
	if u.Status == domain.UserInactive {
		return domain.InvalidState("cannot assign task to inactive member")
	}
	return nil
}

func (e Engine) ensureMilestoneInProject(ctx context.Context, tx *sqlx.Tx, milestoneID, projectID string) error {
	if milestoneID == "" {
		return nil
	}
	m, err := e.Repo.GetMilestone(ctx, tx, milestoneID)
	if err != nil {
		return notFound(err, "milestone", milestoneID)
	}
	if m.ProjectID != projectID {
		return domain.InvalidInput(fmt.Sprintf("milestone %s does not belong to project %s", milestoneID, projectID))
	}
	return nil
}
