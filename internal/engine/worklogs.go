package engine

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/shubhamragade/workflow/internal/domain"
	"github.com/shubhamragade/workflow/internal/events"
	"github.com/shubhamragade/workflow/internal/repo"
)

const insightReasoning = "Derived from tactical work log execution."

type WorkLogOptions struct {
	TaskID     string
	AuthorID   string
	Content    string
	HoursSpent float64
	Blockers   string
	// Insight, when non-empty, is also recorded as a Medium impact decision.
	Insight string
}

// WorkLogResult carries the stored log and the decision derived from its
// insight, if any.
type WorkLogResult struct {
	Log      domain.WorkLog   `json:"log"`
	Decision *domain.Decision `json:"decision,omitempty"`
	Progress float64          `json:"completion_percentage"`
}

func (e Engine) RecordWorkLog(ctx context.Context, opts WorkLogOptions) (WorkLogResult, error) {
	tx, err := e.begin(ctx)
	if err != nil {
		return WorkLogResult{}, err
	}
	defer tx.Rollback()

	t, err := e.Repo.GetTask(ctx, tx, opts.TaskID)
	if err != nil {
		return WorkLogResult{}, notFound(err, "task", opts.TaskID)
	}
	if t.Status == domain.TaskDone {
		return WorkLogResult{}, domain.InvalidState("cannot log work for a DONE task")
	}
	h := opts.HoursSpent
	if math.IsNaN(h) || math.IsInf(h, 0) || h <= 0 {
		return WorkLogResult{}, domain.InvalidInput("hours_spent must be > 0")
	}
	if _, err := e.Repo.GetUser(ctx, tx, opts.AuthorID); err != nil {
		return WorkLogResult{}, notFound(err, "user", opts.AuthorID)
	}
	now := e.ts()
	l := domain.WorkLog{
		ID:         uuid.New().String(),
		TaskID:     t.ID,
		AuthorID:   opts.AuthorID,
		Content:    opts.Content,
		Blockers:   strings.TrimSpace(opts.Blockers),
		HoursSpent: h,
		CreatedAt:  now,
	}
	if err := e.Repo.InsertWorkLog(ctx, tx, l); err != nil {
		return WorkLogResult{}, fmt.Errorf("insert work log: %w", err)
	}
	if err := e.appendEvent(ctx, tx, events.Event{
		Type:        events.WorkLogged,
		Description: fmt.Sprintf("%.2fh logged on task %s", h, t.ID),
		ProjectID:   t.ProjectID,
		EntityKind:  "work_log",
		EntityID:    l.ID,
		ActorID:     opts.AuthorID,
		Payload:     events.EventPayload{"task_id": t.ID, "hours_spent": h, "has_blockers": l.Blockers != ""},
	}); err != nil {
		return WorkLogResult{}, err
	}
	pct, err := e.recomputeProgress(ctx, tx, t.ProjectID)
	if err != nil {
		return WorkLogResult{}, err
	}
	res := WorkLogResult{Log: l, Progress: pct}
	if insight := strings.TrimSpace(opts.Insight); insight != "" {
		taskID := t.ID
		d := domain.Decision{
			ID:          uuid.New().String(),
			ProjectID:   t.ProjectID,
			TaskID:      &taskID,
			AuthorID:    opts.AuthorID,
			Title:       fmt.Sprintf("Insight from Task %s", t.ID),
			Explanation: insight,
			Reasoning:   insightReasoning,
			ImpactLevel: domain.ImpactMedium,
			Version:     1,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := e.insertDecision(ctx, tx, d); err != nil {
			return WorkLogResult{}, err
		}
		res.Decision = &d
	}
	if err := tx.Commit(); err != nil {
		return WorkLogResult{}, err
	}
	return res, nil
}

func (e Engine) ListWorkLogs(ctx context.Context, f repo.WorkLogFilters) ([]domain.WorkLog, error) {
	return e.Repo.ListWorkLogs(ctx, nil, f)
}
