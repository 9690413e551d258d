package repo

import (
	"context"
	"strings"

	"github.com/shubhamragade/workflow/internal/domain"
)

const eventColumns = `id,ts,type,description,COALESCE(project_id,'') AS project_id,entity_kind,
COALESCE(entity_id,'') AS entity_id,COALESCE(actor_id,'') AS actor_id,payload_json`

type EventFilters struct {
	ProjectID  string
	Type       string
	EntityKind string
	EntityID   string
	ActorID    string
	Limit      int
	// BeforeID pages backwards from an event id.
	BeforeID int64
}

// LatestEvents returns events newest first.
func (r Repo) LatestEvents(ctx context.Context, f EventFilters) ([]domain.Event, error) {
	var clauses []string
	var args []any
	if f.ProjectID != "" {
		clauses = append(clauses, "project_id=?")
		args = append(args, f.ProjectID)
	}
	if f.Type != "" {
		clauses = append(clauses, "type=?")
		args = append(args, f.Type)
	}
	if f.EntityKind != "" {
		clauses = append(clauses, "entity_kind=?")
		args = append(args, f.EntityKind)
	}
	if f.EntityID != "" {
		clauses = append(clauses, "entity_id=?")
		args = append(args, f.EntityID)
	}
	if f.ActorID != "" {
		clauses = append(clauses, "actor_id=?")
		args = append(args, f.ActorID)
	}
	if f.BeforeID > 0 {
		clauses = append(clauses, "id<?")
		args = append(args, f.BeforeID)
	}
	query := `SELECT ` + eventColumns + ` FROM events`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	res := []domain.Event{}
	err := r.selectAll(ctx, nil, &res, query, args...)
	return res, err
}

// EventsAfter returns up to limit events with id greater than afterID, oldest first.
func (r Repo) EventsAfter(ctx context.Context, afterID int64, limit int) ([]domain.Event, error) {
	res := []domain.Event{}
	err := r.selectAll(ctx, nil, &res, `SELECT `+eventColumns+` FROM events WHERE id>? ORDER BY id LIMIT ?`, afterID, limit)
	return res, err
}

func (r Repo) LatestEventID(ctx context.Context) (int64, error) {
	var id int64
	err := r.get(ctx, nil, &id, `SELECT COALESCE(MAX(id),0) FROM events`)
	return id, err
}
