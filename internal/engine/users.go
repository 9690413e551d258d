package engine

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/shubhamragade/workflow/internal/domain"
	"github.com/shubhamragade/workflow/internal/events"
	"github.com/shubhamragade/workflow/internal/repo"
)

type UserCreateOptions struct {
	Name    string
	Email   string
	Role    domain.UserRole
	ActorID string
}

func (e Engine) CreateUser(ctx context.Context, opts UserCreateOptions) (domain.User, error) {
	name := strings.TrimSpace(opts.Name)
	email := strings.ToLower(strings.TrimSpace(opts.Email))
	if name == "" {
		return domain.User{}, domain.InvalidInput("name is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.User{}, domain.InvalidInput(fmt.Sprintf("invalid email %q", opts.Email))
	}
	if opts.Role == "" {
		opts.Role = domain.RoleMember
	}
	if _, err := domain.ParseUserRole(string(opts.Role)); err != nil {
		return domain.User{}, err
	}
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.User{}, err
	}
	defer tx.Rollback()

	if _, err := e.Repo.GetUserByEmail(ctx, tx, email); err == nil {
		return domain.User{}, domain.InvalidState(fmt.Sprintf("email %s already registered", email))
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.User{}, err
	}
	u := domain.User{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		Role:      opts.Role,
		Status:    domain.UserActive,
		CreatedAt: e.ts(),
	}
	if err := e.Repo.InsertUser(ctx, tx, u); err != nil {
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	if err := e.appendEvent(ctx, tx, events.Event{
		Type:        events.UserCreated,
		Description: fmt.Sprintf("User %s created", u.Name),
		EntityKind:  "user",
		EntityID:    u.ID,
		ActorID:     opts.ActorID,
		Payload:     events.EventPayload{"role": u.Role},
	}); err != nil {
		return domain.User{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func (e Engine) GetUser(ctx context.Context, id string) (domain.User, error) {
	u, err := e.Repo.GetUser(ctx, nil, id)
	return u, notFound(err, "user", id)
}

func (e Engine) ListUsers(ctx context.Context, status domain.UserStatus) ([]domain.User, error) {
	return e.Repo.ListUsers(ctx, status)
}

// SetUserStatus changes a user's status. Deactivating a user who still owns
// open tasks is refused; the exit workflow handles that case.
func (e Engine) SetUserStatus(ctx context.Context, userID string, status domain.UserStatus, actorID string) (domain.User, error) {
	if _, err := domain.ParseUserStatus(string(status)); err != nil {
		return domain.User{}, err
	}
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.User{}, err
	}
	defer tx.Rollback()

	u, err := e.Repo.GetUser(ctx, tx, userID)
	if err != nil {
		return domain.User{}, notFound(err, "user", userID)
	}
	if u.Status == status {
		return u, nil
	}
	if status == domain.UserInactive {
		open, err := e.Repo.CountOpenTasksForUser(ctx, tx, u.ID)
		if err != nil {
			return domain.User{}, err
		}
		if open > 0 {
			return domain.User{}, domain.InvalidState(fmt.Sprintf("exit blocked: %d open tasks; use the exit workflow", open))
		}
	}
	from := u.Status
	if err := e.Repo.UpdateUserStatus(ctx, tx, u.ID, status); err != nil {
		return domain.User{}, notFound(err, "user", u.ID)
	}
	u.Status = status
	if err := e.appendEvent(ctx, tx, events.Event{
		Type:        events.UserStatusChanged,
		Description: fmt.Sprintf("User %s status updated to %s", u.Name, status),
		EntityKind:  "user",
		EntityID:    u.ID,
		ActorID:     actorID,
		Payload:     events.EventPayload{"from": from, "to": status},
	}); err != nil {
		return domain.User{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.User{}, err
	}
	return u, nil
}
