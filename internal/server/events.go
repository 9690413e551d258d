package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shubhamragade/workflow/internal/repo"
)

// EventQuery holds the feed filters shared by both event routes.
type EventQuery struct {
	Type       string `query:"type"`
	EntityKind string `query:"entity_kind"`
	EntityID   string `query:"entity_id"`
	ActorID    string `query:"actor_id"`
	Limit      int    `query:"limit" default:"50"`
	Cursor     string `query:"cursor" doc:"Event id to page back from"`
}

func (h *handlers) listEvents(ctx context.Context, projectID string, q EventQuery) (*bodyOutput[paginatedEvents], error) {
	before, cursorErr := parseIDCursor(q.Cursor)
	if cursorErr != nil {
		return nil, cursorErr
	}
	limit := normalizeLimit(q.Limit)
	items, err := h.app.Engine.ListEvents(ctx, repo.EventFilters{
		ProjectID:  projectID,
		Type:       q.Type,
		EntityKind: q.EntityKind,
		EntityID:   q.EntityID,
		ActorID:    q.ActorID,
		Limit:      limit + 1,
		BeforeID:   before,
	})
	if err != nil {
		return nil, handleError(err)
	}
	resp := paginatedEvents{Items: make([]EventResponse, 0, len(items))}
	for i, evt := range items {
		if i == limit {
			resp.NextCursor = strconv.FormatInt(items[limit-1].ID, 10)
			break
		}
		resp.Items = append(resp.Items, eventResponse(evt))
	}
	return ok(resp), nil
}

func (h *handlers) registerEvents(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "Activity feed, newest first",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		ProjectID string `query:"project_id"`
		EventQuery
	}) (*bodyOutput[paginatedEvents], error) {
		return h.listEvents(ctx, input.ProjectID, input.EventQuery)
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-project-events",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/events",
		Summary:     "Project activity feed, newest first",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		EventQuery
	}) (*bodyOutput[paginatedEvents], error) {
		if _, err := h.app.Engine.GetProject(ctx, input.ProjectID); err != nil {
			return nil, handleError(err)
		}
		return h.listEvents(ctx, input.ProjectID, input.EventQuery)
	})
}
