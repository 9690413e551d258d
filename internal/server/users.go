package server

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shubhamragade/workflow/internal/app"
	"github.com/shubhamragade/workflow/internal/domain"
	"github.com/shubhamragade/workflow/internal/engine"
)

type bodyOutput[T any] struct {
	Body T
}

func ok[T any](v T) *bodyOutput[T] { return &bodyOutput[T]{Body: v} }

type userPath struct {
	UserID string `path:"user_id"`
}

// actor resolves the authenticated principal to an active user.
func (h *handlers) actor(ctx context.Context) (string, error) {
	actorID, authErr := actorIDFromContext(ctx)
	if authErr != nil {
		return "", authErr
	}
	if _, err := h.auth.Actor(ctx, actorID); err != nil {
		return "", err
	}
	return actorID, nil
}

func (h *handlers) requireAdmin(ctx context.Context) (string, error) {
	actorID, authErr := actorIDFromContext(ctx)
	if authErr != nil {
		return "", authErr
	}
	return actorID, h.auth.RequireAdmin(ctx, actorID)
}

func (h *handlers) requireLead(ctx context.Context, projectID string) (string, error) {
	actorID, authErr := actorIDFromContext(ctx)
	if authErr != nil {
		return "", authErr
	}
	return actorID, h.auth.RequireLead(ctx, projectID, actorID)
}

func (h *handlers) registerUsers(api huma.API) {
	e := h.app.Engine

	huma.Register(api, huma.Operation{
		OperationID: "list-users",
		Method:      http.MethodGet,
		Path:        "/users",
		Summary:     "List users",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Status string `query:"status" doc:"Active or Inactive"`
	}) (*bodyOutput[[]domain.User], error) {
		var status domain.UserStatus
		if input.Status != "" {
			s, err := domain.ParseUserStatus(input.Status)
			if err != nil {
				return nil, handleError(err)
			}
			status = s
		}
		users, err := e.ListUsers(ctx, status)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(users), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-user",
		Method:        http.MethodPost,
		Path:          "/users",
		Summary:       "Create user (admin)",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusPreconditionFailed},
	}, func(ctx context.Context, input *struct {
		Body CreateUserRequest
	}) (*bodyOutput[domain.User], error) {
		actorID, err := h.requireAdmin(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		u, err := e.CreateUser(ctx, engine.UserCreateOptions{
			Name:    input.Body.Name,
			Email:   input.Body.Email,
			Role:    domain.UserRole(input.Body.Role),
			ActorID: actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return ok(u), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-user",
		Method:      http.MethodGet,
		Path:        "/users/{user_id}",
		Summary:     "Get user",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *userPath) (*bodyOutput[domain.User], error) {
		u, err := e.GetUser(ctx, input.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(u), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-user-status",
		Method:      http.MethodPatch,
		Path:        "/users/{user_id}/status",
		Summary:     "Activate or deactivate a user (admin)",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound, http.StatusPreconditionFailed},
	}, func(ctx context.Context, input *struct {
		UserID string `path:"user_id"`
		Body   SetUserStatusRequest
	}) (*bodyOutput[domain.User], error) {
		actorID, err := h.requireAdmin(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		status, err := domain.ParseUserStatus(input.Body.Status)
		if err != nil {
			return nil, handleError(err)
		}
		u, err := e.SetUserStatus(ctx, input.UserID, status, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(u), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "user-profile",
		Method:      http.MethodGet,
		Path:        "/users/{user_id}/profile",
		Summary:     "User contribution profile",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *userPath) (*bodyOutput[engine.UserProfile], error) {
		p, err := e.UserProfile(ctx, input.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(p), nil
	})
}

func (h *handlers) registerExit(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "initiate-exit",
		Method:      http.MethodPost,
		Path:        "/users/{user_id}/exit",
		Summary:     "Preview a member exit with the handover report",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *userPath) (*bodyOutput[app.ExitPreview], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if actorID != input.UserID {
			if err := h.auth.RequireAdmin(ctx, actorID); err != nil {
				return nil, handleError(err)
			}
		}
		p, err := h.app.InitiateExit(ctx, input.UserID, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(p), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "confirm-exit",
		Method:      http.MethodPost,
		Path:        "/users/{user_id}/exit/confirm",
		Summary:     "Reassign open tasks, store the handover and deactivate (admin)",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusPreconditionFailed,
		},
	}, func(ctx context.Context, input *struct {
		UserID string `path:"user_id"`
		Body   ConfirmExitRequest
	}) (*bodyOutput[engine.ExitResult], error) {
		actorID, err := h.requireAdmin(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		res, err := h.app.Engine.ConfirmExit(ctx, input.UserID, engine.ExitConfirmOptions{
			Reassignments: input.Body.Reassignments,
			FinalHandover: input.Body.FinalHandover,
			ActorID:       actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return ok(res), nil
	})
}

func (h *handlers) registerMe(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Current principal",
		Errors:      []int{http.StatusUnauthorized, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		ProjectID string `query:"project_id"`
	}) (*bodyOutput[WhoAmIResponse], error) {
		principal, _ := principalFromContext(ctx)
		u, err := h.auth.Actor(ctx, principal.ActorID)
		if err != nil {
			return nil, handleError(err)
		}
		roles, err := h.auth.Roles(ctx, input.ProjectID, u.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(WhoAmIResponse{ActorID: u.ID, Source: principal.Source, User: u, Roles: nonNilSlice(roles)}), nil
	})
}

func (h *handlers) registerDevAuth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "dev-token",
		Method:      http.MethodPost,
		Path:        "/auth/token",
		Summary:     "DEV ONLY: mint a JWT for an existing user",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body TokenRequest
	}) (*bodyOutput[TokenResponse], error) {
		if input.Body.UserID == "" {
			return nil, newAPIError(http.StatusBadRequest, "", "user_id is required", nil)
		}
		roles, err := h.auth.Roles(ctx, "", input.Body.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		token, err := SignToken(h.authz.JWTSecret, input.Body.UserID, roles, time.Duration(input.Body.TTLSeconds)*time.Second)
		if err != nil {
			return nil, newAPIError(http.StatusInternalServerError, "", err.Error(), nil)
		}
		return ok(TokenResponse{Token: token}), nil
	})
}
