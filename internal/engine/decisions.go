package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/shubhamragade/workflow/internal/domain"
	"github.com/shubhamragade/workflow/internal/events"
	"github.com/shubhamragade/workflow/internal/repo"
)

// DecisionEditWindow is how long after creation a decision stays editable.
const DecisionEditWindow = 24 * time.Hour

type DecisionCreateOptions struct {
	ProjectID   string
	TaskID      string
	AuthorID    string
	Title       string
	Explanation string
	Reasoning   string
	ImpactLevel domain.ImpactLevel
}

func (e Engine) CreateDecision(ctx context.Context, opts DecisionCreateOptions) (domain.Decision, error) {
	if strings.TrimSpace(opts.Title) == "" {
		return domain.Decision{}, domain.InvalidInput("title is required")
	}
	if opts.ImpactLevel == "" {
		opts.ImpactLevel = domain.ImpactMedium
	}
	if _, err := domain.ParseImpactLevel(string(opts.ImpactLevel)); err != nil {
		return domain.Decision{}, err
	}
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.Decision{}, err
	}
	defer tx.Rollback()

	if _, err := e.Repo.GetProject(ctx, tx, opts.ProjectID); err != nil {
		return domain.Decision{}, notFound(err, "project", opts.ProjectID)
	}
	if _, err := e.Repo.GetUser(ctx, tx, opts.AuthorID); err != nil {
		return domain.Decision{}, notFound(err, "user", opts.AuthorID)
	}
	if opts.TaskID != "" {
		t, err := e.Repo.GetTask(ctx, tx, opts.TaskID)
		if err != nil {
			return domain.Decision{}, notFound(err, "task", opts.TaskID)
		}
		if t.ProjectID != opts.ProjectID {
			return domain.Decision{}, domain.InvalidInput(fmt.Sprintf("task %s does not belong to project %s", t.ID, opts.ProjectID))
		}
	}
	now := e.ts()
	d := domain.Decision{
		ID:          uuid.New().String(),
		ProjectID:   opts.ProjectID,
		TaskID:      strPtr(opts.TaskID),
		AuthorID:    opts.AuthorID,
		Title:       strings.TrimSpace(opts.Title),
		Explanation: opts.Explanation,
		Reasoning:   opts.Reasoning,
		ImpactLevel: opts.ImpactLevel,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.insertDecision(ctx, tx, d); err != nil {
		return domain.Decision{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Decision{}, err
	}
	return d, nil
}

func (e Engine) insertDecision(ctx context.Context, tx *sqlx.Tx, d domain.Decision) error {
	if err := e.Repo.InsertDecision(ctx, tx, d); err != nil {
		return fmt.Errorf("insert decision: %w", err)
	}
	return e.appendEvent(ctx, tx, events.Event{
		Type:        events.DecisionCreated,
		Description: fmt.Sprintf("Decision created: %s", d.Title),
		ProjectID:   d.ProjectID,
		EntityKind:  "decision",
		EntityID:    d.ID,
		ActorID:     d.AuthorID,
		Payload:     events.EventPayload{"impact_level": d.ImpactLevel, "task_id": deref(d.TaskID)},
	})
}

func (e Engine) GetDecision(ctx context.Context, id string) (domain.Decision, error) {
	d, err := e.Repo.GetDecision(ctx, nil, id)
	return d, notFound(err, "decision", id)
}

type DecisionUpdate struct {
	Title           *string
	Explanation     *string
	Reasoning       *string
	ImpactLevel     *domain.ImpactLevel
	ExpectedVersion *int64
	ActorID         string
}

// UpdateDecision edits a decision inside its edit window.
func (e Engine) UpdateDecision(ctx context.Context, id string, u DecisionUpdate) (domain.Decision, error) {
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.Decision{}, err
	}
	defer tx.Rollback()

	d, err := e.Repo.GetDecision(ctx, tx, id)
	if err != nil {
		return domain.Decision{}, notFound(err, "decision", id)
	}
	if err := checkVersion("decision", u.ExpectedVersion, d.Version); err != nil {
		return domain.Decision{}, err
	}
	created, err := time.Parse(time.RFC3339, d.CreatedAt)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("decision %s created_at: %w", d.ID, err)
	}
	if e.now().Sub(created) >= DecisionEditWindow {
		return domain.Decision{}, domain.InvalidState("decision cannot be edited after 24 hours")
	}
	var changed []string
	if u.Title != nil && *u.Title != d.Title {
		if strings.TrimSpace(*u.Title) == "" {
			return domain.Decision{}, domain.InvalidInput("title must not be empty")
		}
		d.Title = strings.TrimSpace(*u.Title)
		changed = append(changed, "title")
	}
	if u.Explanation != nil && *u.Explanation != d.Explanation {
		d.Explanation = *u.Explanation
		changed = append(changed, "explanation")
	}
	if u.Reasoning != nil && *u.Reasoning != d.Reasoning {
		d.Reasoning = *u.Reasoning
		changed = append(changed, "reasoning")
	}
	if u.ImpactLevel != nil && *u.ImpactLevel != d.ImpactLevel {
		if _, err := domain.ParseImpactLevel(string(*u.ImpactLevel)); err != nil {
			return domain.Decision{}, err
		}
		d.ImpactLevel = *u.ImpactLevel
		changed = append(changed, "impact_level")
	}
	if len(changed) == 0 {
		return d, nil
	}
	d.UpdatedAt = e.ts()
	if err := e.Repo.UpdateDecisionVersioned(ctx, tx, d, d.Version); err != nil {
		if errors.Is(err, repo.ErrStaleVersion) {
			current, verr := e.Repo.GetDecision(ctx, tx, d.ID)
			if verr != nil {
				return domain.Decision{}, notFound(verr, "decision", d.ID)
			}
			return domain.Decision{}, domain.Conflict("decision", current.Version)
		}
		return domain.Decision{}, fmt.Errorf("update decision: %w", err)
	}
	if err := e.appendEvent(ctx, tx, events.Event{
		Type:        events.DecisionUpdated,
		Description: fmt.Sprintf("Decision updated: %s", d.Title),
		ProjectID:   d.ProjectID,
		EntityKind:  "decision",
		EntityID:    d.ID,
		ActorID:     u.ActorID,
		Payload:     events.EventPayload{"fields": changed},
	}); err != nil {
		return domain.Decision{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Decision{}, err
	}
	d.Version++
	return d, nil
}

// DeleteDecision always fails: decisions are a permanent record.
func (e Engine) DeleteDecision(ctx context.Context, id string) error {
	return domain.NotPermitted("decisions are immutable and cannot be deleted")
}

func (e Engine) ListDecisions(ctx context.Context, f repo.DecisionFilters) ([]domain.Decision, error) {
	return e.Repo.ListDecisions(ctx, nil, f)
}
