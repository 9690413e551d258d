package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/shubhamragade/workflow/internal/domain"
	"github.com/shubhamragade/workflow/internal/events"
	"github.com/shubhamragade/workflow/internal/report"
	"github.com/shubhamragade/workflow/internal/repo"
)

// FinalizedModel marks a handover artifact written by a person at exit time
// rather than by a generator.
const FinalizedModel = "finalized"

type ExitPreview struct {
	User               domain.User   `json:"user"`
	OpenTasks          []domain.Task `json:"open_tasks"`
	OpenTaskCount      int           `json:"open_task_count"`
	CanExitImmediately bool          `json:"can_exit_immediately"`
}

// InitiateExit lists what must be handed over before a user can leave.
func (e Engine) InitiateExit(ctx context.Context, userID string) (ExitPreview, error) {
	u, err := e.GetUser(ctx, userID)
	if err != nil {
		return ExitPreview{}, err
	}
	open, err := e.Repo.ListTasks(ctx, nil, repo.TaskFilters{AssigneeID: u.ID, OpenOnly: true})
	if err != nil {
		return ExitPreview{}, err
	}
	return ExitPreview{User: u, OpenTasks: open, OpenTaskCount: len(open), CanExitImmediately: len(open) == 0}, nil
}

type ExitConfirmOptions struct {
	// Reassignments maps task id to the new assignee id.
	Reassignments map[string]string
	FinalHandover string
	ActorID       string
}

type ExitResult struct {
	User               domain.User   `json:"user"`
	Reassigned         []domain.Task `json:"reassigned"`
	HandoverArtifactID string        `json:"handover_artifact_id,omitempty"`
}

// ConfirmExit reassigns every open task, stores the final handover and marks
// the user Inactive, all in one transaction.
func (e Engine) ConfirmExit(ctx context.Context, userID string, opts ExitConfirmOptions) (ExitResult, error) {
	tx, err := e.begin(ctx)
	if err != nil {
		return ExitResult{}, err
	}
	defer tx.Rollback()

	u, err := e.Repo.GetUser(ctx, tx, userID)
	if err != nil {
		return ExitResult{}, notFound(err, "user", userID)
	}
	if u.Status == domain.UserInactive {
		return ExitResult{}, domain.InvalidState(fmt.Sprintf("user %s is already inactive", u.ID))
	}
	open, err := e.Repo.ListTasks(ctx, tx, repo.TaskFilters{AssigneeID: u.ID, OpenOnly: true})
	if err != nil {
		return ExitResult{}, err
	}
	openIDs := make(map[string]bool, len(open))
	for _, t := range open {
		openIDs[t.ID] = true
		target, ok := opts.Reassignments[t.ID]
		if !ok || target == "" {
			return ExitResult{}, domain.InvalidInput(fmt.Sprintf("task %s must be reassigned", t.ID))
		}
		if target == u.ID {
			return ExitResult{}, domain.InvalidState("cannot reassign a task to the exiting user")
		}
		if err := e.ensureAssignable(ctx, tx, target); err != nil {
			return ExitResult{}, err
		}
	}
	for taskID := range opts.Reassignments {
		if !openIDs[taskID] {
			return ExitResult{}, domain.InvalidInput(fmt.Sprintf("task %s is not an open task of user %s", taskID, u.ID))
		}
	}
	res := ExitResult{Reassigned: []domain.Task{}}
	for _, t := range open {
		target := opts.Reassignments[t.ID]
		t.AssigneeID = &target
		t.UpdatedAt = e.ts()
		if err := e.writeTask(ctx, tx, t); err != nil {
			return ExitResult{}, err
		}
		if err := e.appendEvent(ctx, tx, events.Event{
			Type:        events.TaskReassigned,
			Description: fmt.Sprintf("Task %s reassigned from %s during exit", t.ID, u.Name),
			ProjectID:   t.ProjectID,
			EntityKind:  "task",
			EntityID:    t.ID,
			ActorID:     opts.ActorID,
			Payload:     events.EventPayload{"from": u.ID, "to": target},
		}); err != nil {
			return ExitResult{}, err
		}
		t.Version++
		res.Reassigned = append(res.Reassigned, t)
	}
	if opts.FinalHandover != "" {
		a := domain.ReportArtifact{
			ID:          uuid.New().String(),
			SubjectKind: domain.SubjectUser,
			SubjectID:   u.ID,
			Kind:        domain.ReportHandover,
			Content:     opts.FinalHandover,
			Status:      domain.ReportSuccess,
			Model:       FinalizedModel,
			ContextHash: report.HashContext(opts.FinalHandover),
			GeneratedAt: e.ts(),
		}
		if err := e.Repo.InsertArtifact(ctx, tx, a); err != nil {
			return ExitResult{}, fmt.Errorf("insert handover: %w", err)
		}
		res.HandoverArtifactID = a.ID
	}
	if err := e.Repo.UpdateUserStatus(ctx, tx, u.ID, domain.UserInactive); err != nil {
		return ExitResult{}, notFound(err, "user", u.ID)
	}
	u.Status = domain.UserInactive
	if err := e.appendEvent(ctx, tx, events.Event{
		Type:        events.UserExit,
		Description: fmt.Sprintf("User %s exit finalized. Account Inactive.", u.Name),
		EntityKind:  "user",
		EntityID:    u.ID,
		ActorID:     opts.ActorID,
		Payload:     events.EventPayload{"reassigned": len(res.Reassigned), "handover_artifact_id": res.HandoverArtifactID},
	}); err != nil {
		return ExitResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return ExitResult{}, err
	}
	res.User = u
	return res, nil
}
