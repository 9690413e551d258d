package repo

import (
	"context"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/shubhamragade/workflow/internal/domain"
)

// ErrStaleVersion is returned by versioned writes when the stored version no
// longer matches the one the caller read.
var ErrStaleVersion = errors.New("stale version")

const taskColumns = `id,project_id,milestone_id,assignee_id,title,description,priority,status,version,created_at,updated_at,completed_at`

func (r Repo) InsertTask(ctx context.Context, tx *sqlx.Tx, t domain.Task) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO tasks(`+taskColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.ProjectID, nullableStringPtr(t.MilestoneID), nullableStringPtr(t.AssigneeID), t.Title, t.Description,
		t.Priority, t.Status, t.Version, t.CreatedAt, t.UpdatedAt, nullableStringPtr(t.CompletedAt))
	return err
}

func (r Repo) GetTask(ctx context.Context, tx *sqlx.Tx, id string) (domain.Task, error) {
	var t domain.Task
	err := r.get(ctx, tx, &t, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id)
	return t, err
}

// UpdateTaskVersioned writes the mutable fields of t and bumps the version by
// one, but only while the stored version still equals expected.
func (r Repo) UpdateTaskVersioned(ctx context.Context, tx *sqlx.Tx, t domain.Task, expected int64) error {
	res, err := r.q(tx).ExecContext(ctx, `UPDATE tasks SET milestone_id=?,assignee_id=?,title=?,description=?,priority=?,status=?,updated_at=?,completed_at=?,version=version+1
WHERE id=? AND version=?`,
		nullableStringPtr(t.MilestoneID), nullableStringPtr(t.AssigneeID), t.Title, t.Description, t.Priority, t.Status,
		t.UpdatedAt, nullableStringPtr(t.CompletedAt), t.ID, expected)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStaleVersion
	}
	return nil
}

func (r Repo) TaskVersion(ctx context.Context, tx *sqlx.Tx, id string) (int64, error) {
	var v int64
	err := r.get(ctx, tx, &v, `SELECT version FROM tasks WHERE id=?`, id)
	return v, err
}

type TaskFilters struct {
	ProjectID       string
	Status          domain.TaskStatus
	AssigneeID      string
	MilestoneID     string
	OpenOnly        bool
	Limit           int
	CursorCreatedAt string
	CursorID        string
}

func (r Repo) ListTasks(ctx context.Context, tx *sqlx.Tx, f TaskFilters) ([]domain.Task, error) {
	var clauses []string
	var args []any
	if f.ProjectID != "" {
		clauses = append(clauses, "project_id=?")
		args = append(args, f.ProjectID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.AssigneeID != "" {
		clauses = append(clauses, "assignee_id=?")
		args = append(args, f.AssigneeID)
	}
	if f.MilestoneID != "" {
		clauses = append(clauses, "milestone_id=?")
		args = append(args, f.MilestoneID)
	}
	if f.OpenOnly {
		clauses = append(clauses, "status<>?")
		args = append(args, domain.TaskDone)
	}
	if f.CursorCreatedAt != "" && f.CursorID != "" {
		clauses = append(clauses, "(created_at < ? OR (created_at = ? AND rowid < (SELECT rowid FROM tasks WHERE id = ?)))")
		args = append(args, f.CursorCreatedAt, f.CursorCreatedAt, f.CursorID)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + taskColumns + ` FROM tasks ` + where + ` ORDER BY created_at DESC, rowid DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	res := []domain.Task{}
	err := r.selectAll(ctx, tx, &res, query, args...)
	return res, err
}

// TaskStatuses returns the status of every task in a project, read through tx
// so the caller sees its own uncommitted writes.
func (r Repo) TaskStatuses(ctx context.Context, tx *sqlx.Tx, projectID string) ([]domain.TaskStatus, error) {
	var res []domain.TaskStatus
	err := r.selectAll(ctx, tx, &res, `SELECT status FROM tasks WHERE project_id=?`, projectID)
	return res, err
}

func (r Repo) CountTasksByStatus(ctx context.Context, projectID string) (map[domain.TaskStatus]int, error) {
	var rows []struct {
		Status domain.TaskStatus `db:"status"`
		Count  int               `db:"n"`
	}
	if err := r.selectAll(ctx, nil, &rows, `SELECT status, count(*) AS n FROM tasks WHERE project_id=? GROUP BY status`, projectID); err != nil {
		return nil, err
	}
	res := map[domain.TaskStatus]int{}
	for _, row := range rows {
		res[row.Status] = row.Count
	}
	return res, nil
}

func (r Repo) CountOpenTasksForUser(ctx context.Context, tx *sqlx.Tx, userID string) (int, error) {
	var n int
	err := r.get(ctx, tx, &n, `SELECT count(*) FROM tasks WHERE assignee_id=? AND status<>?`, userID, domain.TaskDone)
	return n, err
}
