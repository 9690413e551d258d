package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/shubhamragade/workflow/internal/domain"
	"github.com/shubhamragade/workflow/internal/repo"
)

// ForbiddenError indicates the actor lacks a required role.
type ForbiddenError struct {
	Role string
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("role %s required", e.Role)
}

// ErrActorRequired is returned when a check runs without an authenticated actor.
var ErrActorRequired = errors.New("actor_id required")

// Service provides role checks backed by the users and project_members tables.
type Service struct {
	Repo repo.Repo
}

// Actor loads the acting user. Unknown and inactive users are forbidden.
func (s Service) Actor(ctx context.Context, actorID string) (domain.User, error) {
	if actorID == "" {
		return domain.User{}, ErrActorRequired
	}
	u, err := s.Repo.GetUser(ctx, nil, actorID)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.User{}, ForbiddenError{Role: "active user"}
	}
	if err != nil {
		return domain.User{}, err
	}
	if u.Status != domain.UserActive {
		return domain.User{}, ForbiddenError{Role: "active user"}
	}
	return u, nil
}

func (s Service) RequireAdmin(ctx context.Context, actorID string) error {
	u, err := s.Actor(ctx, actorID)
	if err != nil {
		return err
	}
	if u.Role != domain.RoleAdmin {
		return ForbiddenError{Role: string(domain.RoleAdmin)}
	}
	return nil
}

// RequireLead passes for admins and for the project's Lead members.
func (s Service) RequireLead(ctx context.Context, projectID, actorID string) error {
	u, err := s.Actor(ctx, actorID)
	if err != nil {
		return err
	}
	if u.Role == domain.RoleAdmin {
		return nil
	}
	m, err := s.Repo.GetMember(ctx, nil, projectID, u.ID)
	if errors.Is(err, repo.ErrNotFound) {
		return ForbiddenError{Role: string(domain.MemberLead)}
	}
	if err != nil {
		return err
	}
	if m.Role != domain.MemberLead {
		return ForbiddenError{Role: string(domain.MemberLead)}
	}
	return nil
}

// Roles lists the actor's effective roles for a project, for token claims and
// diagnostics.
func (s Service) Roles(ctx context.Context, projectID, actorID string) ([]string, error) {
	u, err := s.Actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	roles := []string{string(u.Role)}
	if projectID == "" {
		return roles, nil
	}
	m, err := s.Repo.GetMember(ctx, nil, projectID, u.ID)
	if errors.Is(err, repo.ErrNotFound) {
		return roles, nil
	}
	if err != nil {
		return nil, err
	}
	return append(roles, string(m.Role)), nil
}
