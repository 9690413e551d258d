package repo

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/shubhamragade/workflow/internal/domain"
)

const decisionColumns = `id,project_id,task_id,author_id,title,explanation,reasoning,impact_level,version,created_at,updated_at`

func (r Repo) InsertDecision(ctx context.Context, tx *sqlx.Tx, d domain.Decision) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO decisions(`+decisionColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		d.ID, d.ProjectID, nullableStringPtr(d.TaskID), d.AuthorID, d.Title, d.Explanation, d.Reasoning, d.ImpactLevel,
		d.Version, d.CreatedAt, d.UpdatedAt)
	return err
}

func (r Repo) GetDecision(ctx context.Context, tx *sqlx.Tx, id string) (domain.Decision, error) {
	var d domain.Decision
	err := r.get(ctx, tx, &d, `SELECT `+decisionColumns+` FROM decisions WHERE id=?`, id)
	return d, err
}

// UpdateDecisionVersioned mirrors UpdateTaskVersioned for decisions.
func (r Repo) UpdateDecisionVersioned(ctx context.Context, tx *sqlx.Tx, d domain.Decision, expected int64) error {
	res, err := r.q(tx).ExecContext(ctx, `UPDATE decisions SET title=?,explanation=?,reasoning=?,impact_level=?,updated_at=?,version=version+1
WHERE id=? AND version=?`,
		d.Title, d.Explanation, d.Reasoning, d.ImpactLevel, d.UpdatedAt, d.ID, expected)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStaleVersion
	}
	return nil
}

type DecisionFilters struct {
	ProjectID string
	AuthorID  string
	TaskID    string
	Since     string
	Newest    bool
	Limit     int
}

func (r Repo) ListDecisions(ctx context.Context, tx *sqlx.Tx, f DecisionFilters) ([]domain.Decision, error) {
	var clauses []string
	var args []any
	if f.ProjectID != "" {
		clauses = append(clauses, "project_id=?")
		args = append(args, f.ProjectID)
	}
	if f.AuthorID != "" {
		clauses = append(clauses, "author_id=?")
		args = append(args, f.AuthorID)
	}
	if f.TaskID != "" {
		clauses = append(clauses, "task_id=?")
		args = append(args, f.TaskID)
	}
	if f.Since != "" {
		clauses = append(clauses, "created_at>=?")
		args = append(args, f.Since)
	}
	query := `SELECT ` + decisionColumns + ` FROM decisions`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	if f.Newest {
		query += " ORDER BY created_at DESC, rowid DESC"
	} else {
		query += " ORDER BY created_at, rowid"
	}
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	res := []domain.Decision{}
	err := r.selectAll(ctx, tx, &res, query, args...)
	return res, err
}
