package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shubhamragade/workflow/internal/domain"
	"github.com/shubhamragade/workflow/internal/engine"
)

type projectPath struct {
	ProjectID string `path:"project_id"`
}

func (h *handlers) registerProjects(api huma.API) {
	e := h.app.Engine

	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List projects",
	}, func(ctx context.Context, _ *struct{}) (*bodyOutput[[]domain.Project], error) {
		items, err := e.ListProjects(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(items), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-project",
		Method:        http.MethodPost,
		Path:          "/projects",
		Summary:       "Create project (admin); the creator becomes Lead",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusPreconditionFailed},
	}, func(ctx context.Context, input *struct {
		Body CreateProjectRequest
	}) (*bodyOutput[domain.Project], error) {
		actorID, err := h.requireAdmin(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		p, err := e.CreateProject(ctx, engine.ProjectCreateOptions{
			Name:        input.Body.Name,
			Description: input.Body.Description,
			TargetDate:  input.Body.TargetDate,
			CreatorID:   actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return ok(p), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}",
		Summary:     "Get project",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *projectPath) (*bodyOutput[domain.Project], error) {
		p, err := e.GetProject(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(p), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-project-status",
		Method:      http.MethodPatch,
		Path:        "/projects/{project_id}/status",
		Summary:     "Mark a project ACTIVE or COMPLETED (lead)",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Body      SetProjectStatusRequest
	}) (*bodyOutput[domain.Project], error) {
		actorID, err := h.requireLead(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		status, err := domain.ParseProjectStatus(input.Body.Status)
		if err != nil {
			return nil, handleError(err)
		}
		p, err := e.SetProjectStatus(ctx, input.ProjectID, status, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(p), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-members",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/members",
		Summary:     "List project members",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *projectPath) (*bodyOutput[[]domain.ProjectMember], error) {
		items, err := e.ListMembers(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(items), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-member",
		Method:        http.MethodPost,
		Path:          "/projects/{project_id}/members",
		Summary:       "Add a member (lead)",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound, http.StatusPreconditionFailed},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Body      AddMemberRequest
	}) (*bodyOutput[domain.ProjectMember], error) {
		actorID, err := h.requireLead(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		var role domain.MemberRole
		if input.Body.Role != "" {
			if role, err = domain.ParseMemberRole(input.Body.Role); err != nil {
				return nil, handleError(err)
			}
		}
		m, err := e.AddMember(ctx, input.ProjectID, input.Body.UserID, role, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(m), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-milestones",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/milestones",
		Summary:     "List milestones",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *projectPath) (*bodyOutput[[]domain.Milestone], error) {
		items, err := e.ListMilestones(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(items), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-milestone",
		Method:        http.MethodPost,
		Path:          "/projects/{project_id}/milestones",
		Summary:       "Create milestone (admin)",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Body      CreateMilestoneRequest
	}) (*bodyOutput[domain.Milestone], error) {
		actorID, err := h.requireAdmin(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		m, err := e.CreateMilestone(ctx, engine.MilestoneCreateOptions{
			ProjectID:   input.ProjectID,
			Title:       input.Body.Title,
			Description: input.Body.Description,
			TargetDate:  input.Body.TargetDate,
			ActorID:     actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return ok(m), nil
	})
}

func (h *handlers) registerStats(api huma.API) {
	e := h.app.Engine

	huma.Register(api, huma.Operation{
		OperationID: "stats-overview",
		Method:      http.MethodGet,
		Path:        "/stats/overview",
		Summary:     "Global totals",
	}, func(ctx context.Context, _ *struct{}) (*bodyOutput[engine.GlobalStats], error) {
		st, err := e.GlobalStats(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(st), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "project-stats",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/stats",
		Summary:     "Project progress, hours and velocity",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *projectPath) (*bodyOutput[engine.ProjectStats], error) {
		st, err := e.ProjectStats(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(st), nil
	})
}
