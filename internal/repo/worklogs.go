package repo

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/shubhamragade/workflow/internal/domain"
)

const workLogColumns = `w.id,w.task_id,w.author_id,w.content,w.blockers,w.hours_spent,w.created_at`

func (r Repo) InsertWorkLog(ctx context.Context, tx *sqlx.Tx, l domain.WorkLog) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO work_logs(id,task_id,author_id,content,blockers,hours_spent,created_at) VALUES (?,?,?,?,?,?,?)`,
		l.ID, l.TaskID, l.AuthorID, l.Content, l.Blockers, l.HoursSpent, l.CreatedAt)
	return err
}

func (r Repo) CountWorkLogs(ctx context.Context, tx *sqlx.Tx, taskID string) (int, error) {
	var n int
	err := r.get(ctx, tx, &n, `SELECT count(*) FROM work_logs WHERE task_id=?`, taskID)
	return n, err
}

type WorkLogFilters struct {
	TaskID    string
	AuthorID  string
	ProjectID string
	// Since restricts to logs created at or after this RFC3339 timestamp.
	Since string
	// WithBlockers keeps only logs carrying blocker text.
	WithBlockers bool
	Newest       bool
	Limit        int
}

func (r Repo) ListWorkLogs(ctx context.Context, tx *sqlx.Tx, f WorkLogFilters) ([]domain.WorkLog, error) {
	clauses, args := workLogWhere(f)
	query := `SELECT ` + workLogColumns + ` FROM work_logs w JOIN tasks t ON t.id=w.task_id`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	if f.Newest {
		query += " ORDER BY w.created_at DESC, w.rowid DESC"
	} else {
		query += " ORDER BY w.created_at, w.rowid"
	}
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	res := []domain.WorkLog{}
	err := r.selectAll(ctx, tx, &res, query, args...)
	return res, err
}

func (r Repo) CountWorkLogsMatching(ctx context.Context, tx *sqlx.Tx, f WorkLogFilters) (int, error) {
	clauses, args := workLogWhere(f)
	query := `SELECT count(*) FROM work_logs w JOIN tasks t ON t.id=w.task_id`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	var n int
	err := r.get(ctx, tx, &n, query, args...)
	return n, err
}

func workLogWhere(f WorkLogFilters) ([]string, []any) {
	var clauses []string
	var args []any
	if f.TaskID != "" {
		clauses = append(clauses, "w.task_id=?")
		args = append(args, f.TaskID)
	}
	if f.AuthorID != "" {
		clauses = append(clauses, "w.author_id=?")
		args = append(args, f.AuthorID)
	}
	if f.ProjectID != "" {
		clauses = append(clauses, "t.project_id=?")
		args = append(args, f.ProjectID)
	}
	if f.Since != "" {
		clauses = append(clauses, "w.created_at>=?")
		args = append(args, f.Since)
	}
	if f.WithBlockers {
		clauses = append(clauses, "TRIM(w.blockers)<>''")
	}
	return clauses, args
}
