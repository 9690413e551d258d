package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shubhamragade/workflow/internal/domain"
	"github.com/shubhamragade/workflow/internal/events"
	"github.com/shubhamragade/workflow/internal/repo"
)

type ProjectCreateOptions struct {
	Name        string
	Description string
	TargetDate  string
	// CreatorID, when set, becomes the project's Lead.
	CreatorID string
}

func (e Engine) CreateProject(ctx context.Context, opts ProjectCreateOptions) (domain.Project, error) {
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		return domain.Project{}, domain.InvalidInput("name is required")
	}
	target, err := normalizeDate(opts.TargetDate)
	if err != nil {
		return domain.Project{}, err
	}
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()

	if _, err := e.Repo.GetProjectByName(ctx, tx, name); err == nil {
		return domain.Project{}, domain.InvalidState(fmt.Sprintf("project %q already exists", name))
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.Project{}, err
	}
	now := e.ts()
	p := domain.Project{
		ID:          uuid.New().String(),
		Name:        name,
		Description: opts.Description,
		Status:      domain.ProjectActive,
		StartDate:   now,
		TargetDate:  target,
		CreatedAt:   now,
	}
	if err := e.Repo.InsertProject(ctx, tx, p); err != nil {
		return domain.Project{}, fmt.Errorf("insert project: %w", err)
	}
	if opts.CreatorID != "" {
		if _, err := e.Repo.GetUser(ctx, tx, opts.CreatorID); err != nil {
			return domain.Project{}, notFound(err, "user", opts.CreatorID)
		}
		if err := e.Repo.InsertMember(ctx, tx, domain.ProjectMember{
			ProjectID: p.ID, UserID: opts.CreatorID, Role: domain.MemberLead, JoinedAt: now,
		}); err != nil {
			return domain.Project{}, fmt.Errorf("insert lead: %w", err)
		}
	}
	if err := e.appendEvent(ctx, tx, events.Event{
		Type:        events.ProjectCreated,
		Description: fmt.Sprintf("Project %s created", p.Name),
		ProjectID:   p.ID,
		EntityKind:  "project",
		EntityID:    p.ID,
		ActorID:     opts.CreatorID,
	}); err != nil {
		return domain.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

func (e Engine) GetProject(ctx context.Context, id string) (domain.Project, error) {
	p, err := e.Repo.GetProject(ctx, nil, id)
	return p, notFound(err, "project", id)
}

func (e Engine) ListProjects(ctx context.Context) ([]domain.Project, error) {
	return e.Repo.ListProjects(ctx)
}

func (e Engine) SetProjectStatus(ctx context.Context, projectID string, status domain.ProjectStatus, actorID string) (domain.Project, error) {
	if _, err := domain.ParseProjectStatus(string(status)); err != nil {
		return domain.Project{}, err
	}
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()

	p, err := e.Repo.GetProject(ctx, tx, projectID)
	if err != nil {
		return domain.Project{}, notFound(err, "project", projectID)
	}
	if p.Status == status {
		return p, nil
	}
	from := p.Status
	if err := e.Repo.UpdateProjectStatus(ctx, tx, p.ID, status); err != nil {
		return domain.Project{}, notFound(err, "project", p.ID)
	}
	p.Status = status
	if err := e.appendEvent(ctx, tx, events.Event{
		Type:        events.ProjectStatusChanged,
		Description: fmt.Sprintf("Project %s marked %s", p.Name, status),
		ProjectID:   p.ID,
		EntityKind:  "project",
		EntityID:    p.ID,
		ActorID:     actorID,
		Payload:     events.EventPayload{"from": from, "to": status},
	}); err != nil {
		return domain.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

func (e Engine) AddMember(ctx context.Context, projectID, userID string, role domain.MemberRole, actorID string) (domain.ProjectMember, error) {
	if role == "" {
		role = domain.MemberContributor
	}
	if _, err := domain.ParseMemberRole(string(role)); err != nil {
		return domain.ProjectMember{}, err
	}
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.ProjectMember{}, err
	}
	defer tx.Rollback()

	if _, err := e.Repo.GetProject(ctx, tx, projectID); err != nil {
		return domain.ProjectMember{}, notFound(err, "project", projectID)
	}
	u, err := e.Repo.GetUser(ctx, tx, userID)
	if err != nil {
		return domain.ProjectMember{}, notFound(err, "user", userID)
	}
	if u.Status == domain.UserInactive {
		return domain.ProjectMember{}, domain.InvalidState("cannot add an inactive user to a project")
	}
	if _, err := e.Repo.GetMember(ctx, tx, projectID, userID); err == nil {
		return domain.ProjectMember{}, domain.InvalidState("user already in project")
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.ProjectMember{}, err
	}
	m := domain.ProjectMember{ProjectID: projectID, UserID: userID, Role: role, JoinedAt: e.ts()}
	if err := e.Repo.InsertMember(ctx, tx, m); err != nil {
		return domain.ProjectMember{}, fmt.Errorf("insert member: %w", err)
	}
	if err := e.appendEvent(ctx, tx, events.Event{
		Type:        events.MemberAdded,
		Description: fmt.Sprintf("%s joined as %s", u.Name, role),
		ProjectID:   projectID,
		EntityKind:  "user",
		EntityID:    userID,
		ActorID:     actorID,
		Payload:     events.EventPayload{"role_in_project": role},
	}); err != nil {
		return domain.ProjectMember{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.ProjectMember{}, err
	}
	return m, nil
}

func (e Engine) ListMembers(ctx context.Context, projectID string) ([]domain.ProjectMember, error) {
	if _, err := e.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return e.Repo.ListMembers(ctx, projectID)
}

type MilestoneCreateOptions struct {
	ProjectID   string
	Title       string
	Description string
	TargetDate  string
	ActorID     string
}

func (e Engine) CreateMilestone(ctx context.Context, opts MilestoneCreateOptions) (domain.Milestone, error) {
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		return domain.Milestone{}, domain.InvalidInput("title is required")
	}
	target, err := normalizeDate(opts.TargetDate)
	if err != nil {
		return domain.Milestone{}, err
	}
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.Milestone{}, err
	}
	defer tx.Rollback()

	if _, err := e.Repo.GetProject(ctx, tx, opts.ProjectID); err != nil {
		return domain.Milestone{}, notFound(err, "project", opts.ProjectID)
	}
	m := domain.Milestone{
		ID:          uuid.New().String(),
		ProjectID:   opts.ProjectID,
		Title:       title,
		Description: opts.Description,
		TargetDate:  target,
		Status:      domain.MilestoneActive,
		CreatedAt:   e.ts(),
	}
	if err := e.Repo.InsertMilestone(ctx, tx, m); err != nil {
		return domain.Milestone{}, fmt.Errorf("insert milestone: %w", err)
	}
	if err := e.appendEvent(ctx, tx, events.Event{
		Type:        events.MilestoneCreated,
		Description: fmt.Sprintf("Milestone %s created", m.Title),
		ProjectID:   m.ProjectID,
		EntityKind:  "milestone",
		EntityID:    m.ID,
		ActorID:     opts.ActorID,
	}); err != nil {
		return domain.Milestone{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Milestone{}, err
	}
	return m, nil
}

func (e Engine) ListMilestones(ctx context.Context, projectID string) ([]domain.Milestone, error) {
	if _, err := e.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return e.Repo.ListMilestones(ctx, projectID)
}

// normalizeDate accepts RFC3339 or YYYY-MM-DD and returns RFC3339 UTC.
func normalizeDate(in string) (*string, error) {
	in = strings.TrimSpace(in)
	if in == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, in); err == nil {
			s := t.UTC().Format(time.RFC3339)
			return &s, nil
		}
	}
	return nil, domain.InvalidInput(fmt.Sprintf("invalid date %q; use RFC3339 or YYYY-MM-DD", in))
}
