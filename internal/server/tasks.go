package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shubhamragade/workflow/internal/domain"
	"github.com/shubhamragade/workflow/internal/engine"
	"github.com/shubhamragade/workflow/internal/repo"
)

type taskPath struct {
	TaskID string `path:"task_id"`
}

func (h *handlers) registerTasks(api huma.API) {
	e := h.app.Engine

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/tasks",
		Summary:     "List tasks, newest first",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID   string `path:"project_id"`
		Status      string `query:"status"`
		AssigneeID  string `query:"assignee_id"`
		MilestoneID string `query:"milestone_id"`
		Limit       int    `query:"limit" default:"50"`
		Cursor      string `query:"cursor"`
	}) (*bodyOutput[paginatedTasks], error) {
		if _, err := e.GetProject(ctx, input.ProjectID); err != nil {
			return nil, handleError(err)
		}
		f := repo.TaskFilters{ProjectID: input.ProjectID, AssigneeID: input.AssigneeID, MilestoneID: input.MilestoneID}
		if input.Status != "" {
			s, err := domain.ParseTaskStatus(input.Status)
			if err != nil {
				return nil, handleError(err)
			}
			f.Status = s
		}
		ts, id, err := parseCompositeCursor(input.Cursor)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "", "invalid cursor", map[string]any{"cursor": input.Cursor})
		}
		f.CursorCreatedAt, f.CursorID = ts, id
		limit := normalizeLimit(input.Limit)
		f.Limit = limit + 1
		items, err := e.ListTasks(ctx, f)
		if err != nil {
			return nil, handleError(err)
		}
		resp := paginatedTasks{Items: items}
		if len(items) > limit {
			last := items[limit-1]
			resp.NextCursor = composeCursor(last.CreatedAt, last.ID)
			resp.Items = items[:limit]
		}
		return ok(resp), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/projects/{project_id}/tasks",
		Summary:       "Create task",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusPreconditionFailed,
		},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Body      CreateTaskRequest
	}) (*bodyOutput[domain.Task], error) {
		actorID, err := h.actor(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		t, err := e.CreateTask(ctx, engine.TaskCreateOptions{
			ProjectID:   input.ProjectID,
			Title:       input.Body.Title,
			Description: input.Body.Description,
			AssigneeID:  input.Body.AssigneeID,
			MilestoneID: input.Body.MilestoneID,
			Priority:    domain.Priority(input.Body.Priority),
			ActorID:     actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return ok(t), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{task_id}",
		Summary:     "Get task",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *taskPath) (*bodyOutput[domain.Task], error) {
		t, err := e.GetTask(ctx, input.TaskID)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(t), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPatch,
		Path:        "/tasks/{task_id}",
		Summary:     "Update task fields or status",
		Description: "Send the last read version in the body or an If-Match header. A stale version returns 409 with details.current_version.",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusPreconditionFailed,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		TaskID  string `path:"task_id"`
		IfMatch string `header:"If-Match"`
		Body    UpdateTaskRequest
	}) (*bodyOutput[domain.Task], error) {
		actorID, err := h.actor(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		version, verErr := expectedVersion(input.Body.Version, input.IfMatch)
		if verErr != nil {
			return nil, verErr
		}
		u := engine.TaskUpdate{
			Title:           input.Body.Title,
			Description:     input.Body.Description,
			AssigneeID:      input.Body.AssigneeID,
			MilestoneID:     input.Body.MilestoneID,
			ExpectedVersion: version,
			ActorID:         actorID,
		}
		if input.Body.Priority != nil {
			p, err := domain.ParsePriority(*input.Body.Priority)
			if err != nil {
				return nil, handleError(err)
			}
			u.Priority = &p
		}
		if input.Body.Status != nil {
			s, err := domain.ParseTaskStatus(*input.Body.Status)
			if err != nil {
				return nil, handleError(err)
			}
			u.Status = &s
		}
		t, err := e.UpdateTask(ctx, input.TaskID, u)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(t), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "advance-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{task_id}/advance",
		Summary:     "Advance a task to its next status",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusPreconditionFailed,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		TaskID  string `path:"task_id"`
		Version int64  `query:"version" doc:"Expected current version; omit to skip the check"`
		IfMatch string `header:"If-Match"`
	}) (*bodyOutput[domain.Task], error) {
		actorID, err := h.actor(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		var fromQuery *int64
		if input.Version > 0 {
			fromQuery = &input.Version
		}
		version, verErr := expectedVersion(fromQuery, input.IfMatch)
		if verErr != nil {
			return nil, verErr
		}
		t, err := e.AdvanceTask(ctx, input.TaskID, version, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(t), nil
	})
}

func (h *handlers) registerWorkLogs(api huma.API) {
	e := h.app.Engine

	huma.Register(api, huma.Operation{
		OperationID:   "create-work-log",
		Method:        http.MethodPost,
		Path:          "/tasks/{task_id}/logs",
		Summary:       "Record work on a task",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusPreconditionFailed,
		},
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
		Body   CreateWorkLogRequest
	}) (*bodyOutput[WorkLogResponse], error) {
		actorID, err := h.actor(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		res, err := e.RecordWorkLog(ctx, engine.WorkLogOptions{
			TaskID:     input.TaskID,
			AuthorID:   actorID,
			Content:    input.Body.Content,
			HoursSpent: input.Body.HoursSpent,
			Blockers:   input.Body.Blockers,
			Insight:    input.Body.Insight,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return ok(WorkLogResponse{Log: res.Log, Decision: res.Decision, Progress: res.Progress}), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-task-logs",
		Method:      http.MethodGet,
		Path:        "/tasks/{task_id}/logs",
		Summary:     "List a task's work logs, oldest first",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *taskPath) (*bodyOutput[[]domain.WorkLog], error) {
		if _, err := e.GetTask(ctx, input.TaskID); err != nil {
			return nil, handleError(err)
		}
		items, err := e.ListWorkLogs(ctx, repo.WorkLogFilters{TaskID: input.TaskID})
		if err != nil {
			return nil, handleError(err)
		}
		return ok(items), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-project-logs",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/logs",
		Summary:     "List a project's work logs",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		AuthorID  string `query:"author_id"`
		Since     string `query:"since" doc:"RFC3339 lower bound on created_at"`
		Limit     int    `query:"limit"`
	}) (*bodyOutput[[]domain.WorkLog], error) {
		if _, err := e.GetProject(ctx, input.ProjectID); err != nil {
			return nil, handleError(err)
		}
		items, err := e.ListWorkLogs(ctx, repo.WorkLogFilters{
			ProjectID: input.ProjectID,
			AuthorID:  input.AuthorID,
			Since:     input.Since,
			Newest:    true,
			Limit:     normalizeLimit(input.Limit),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return ok(items), nil
	})
}
