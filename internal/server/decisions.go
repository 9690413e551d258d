package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shubhamragade/workflow/internal/domain"
	"github.com/shubhamragade/workflow/internal/engine"
	"github.com/shubhamragade/workflow/internal/repo"
)

type decisionPath struct {
	DecisionID string `path:"decision_id"`
}

func (h *handlers) registerDecisions(api huma.API) {
	e := h.app.Engine

	huma.Register(api, huma.Operation{
		OperationID: "list-decisions",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/decisions",
		Summary:     "List the decision ledger, newest first",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		TaskID    string `query:"task_id"`
		AuthorID  string `query:"author_id"`
		Limit     int    `query:"limit"`
	}) (*bodyOutput[[]domain.Decision], error) {
		if _, err := e.GetProject(ctx, input.ProjectID); err != nil {
			return nil, handleError(err)
		}
		items, err := e.ListDecisions(ctx, repo.DecisionFilters{
			ProjectID: input.ProjectID,
			TaskID:    input.TaskID,
			AuthorID:  input.AuthorID,
			Newest:    true,
			Limit:     normalizeLimit(input.Limit),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return ok(items), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-decision",
		Method:        http.MethodPost,
		Path:          "/projects/{project_id}/decisions",
		Summary:       "Record a decision",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Body      CreateDecisionRequest
	}) (*bodyOutput[domain.Decision], error) {
		actorID, err := h.actor(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		d, err := e.CreateDecision(ctx, engine.DecisionCreateOptions{
			ProjectID:   input.ProjectID,
			TaskID:      input.Body.TaskID,
			AuthorID:    actorID,
			Title:       input.Body.Title,
			Explanation: input.Body.Explanation,
			Reasoning:   input.Body.Reasoning,
			ImpactLevel: domain.ImpactLevel(input.Body.ImpactLevel),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return ok(d), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-decision",
		Method:      http.MethodGet,
		Path:        "/decisions/{decision_id}",
		Summary:     "Get decision",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *decisionPath) (*bodyOutput[domain.Decision], error) {
		d, err := e.GetDecision(ctx, input.DecisionID)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(d), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-decision",
		Method:      http.MethodPatch,
		Path:        "/decisions/{decision_id}",
		Summary:     "Edit a decision within 24 hours of creation",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusPreconditionFailed,
		},
	}, func(ctx context.Context, input *struct {
		DecisionID string `path:"decision_id"`
		IfMatch    string `header:"If-Match"`
		Body       UpdateDecisionRequest
	}) (*bodyOutput[domain.Decision], error) {
		actorID, err := h.actor(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		version, verErr := expectedVersion(input.Body.Version, input.IfMatch)
		if verErr != nil {
			return nil, verErr
		}
		u := engine.DecisionUpdate{
			Title:           input.Body.Title,
			Explanation:     input.Body.Explanation,
			Reasoning:       input.Body.Reasoning,
			ExpectedVersion: version,
			ActorID:         actorID,
		}
		if input.Body.ImpactLevel != nil {
			lvl, err := domain.ParseImpactLevel(*input.Body.ImpactLevel)
			if err != nil {
				return nil, handleError(err)
			}
			u.ImpactLevel = &lvl
		}
		d, err := e.UpdateDecision(ctx, input.DecisionID, u)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(d), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-decision",
		Method:      http.MethodDelete,
		Path:        "/decisions/{decision_id}",
		Summary:     "Decisions are permanent; always refused",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, input *decisionPath) (*struct{}, error) {
		if err := e.DeleteDecision(ctx, input.DecisionID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}
