package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/shubhamragade/workflow/internal/domain"
)

const artifactColumns = `id,subject_kind,subject_id,kind,content,status,model,context_hash,error_detail,generated_at`

func (r Repo) InsertArtifact(ctx context.Context, tx *sqlx.Tx, a domain.ReportArtifact) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO report_artifacts(`+artifactColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		a.ID, a.SubjectKind, a.SubjectID, a.Kind, a.Content, a.Status, a.Model, a.ContextHash,
		nullableStringPtr(a.ErrorDetail), a.GeneratedAt)
	return err
}

// FindSuccessfulArtifact returns the canonical SUCCESS artifact for the triple:
// the earliest one written.
func (r Repo) FindSuccessfulArtifact(ctx context.Context, tx *sqlx.Tx, subjectKind domain.SubjectKind, subjectID string, kind domain.ReportKind, hash string) (domain.ReportArtifact, error) {
	var a domain.ReportArtifact
	err := r.get(ctx, tx, &a, `SELECT `+artifactColumns+` FROM report_artifacts
WHERE subject_kind=? AND subject_id=? AND kind=? AND context_hash=? AND status=?
ORDER BY generated_at, rowid LIMIT 1`, subjectKind, subjectID, kind, hash, domain.ReportSuccess)
	return a, err
}

func (r Repo) GetArtifact(ctx context.Context, tx *sqlx.Tx, id string) (domain.ReportArtifact, error) {
	var a domain.ReportArtifact
	err := r.get(ctx, tx, &a, `SELECT `+artifactColumns+` FROM report_artifacts WHERE id=?`, id)
	return a, err
}

// ListArtifacts returns the generation history for a subject, newest first.
// An empty kind lists every kind.
func (r Repo) ListArtifacts(ctx context.Context, subjectKind domain.SubjectKind, subjectID string, kind domain.ReportKind, limit int) ([]domain.ReportArtifact, error) {
	query := `SELECT ` + artifactColumns + ` FROM report_artifacts WHERE subject_kind=? AND subject_id=?`
	args := []any{subjectKind, subjectID}
	if kind != "" {
		query += ` AND kind=?`
		args = append(args, kind)
	}
	query += ` ORDER BY generated_at DESC, rowid DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	res := []domain.ReportArtifact{}
	err := r.selectAll(ctx, nil, &res, query, args...)
	return res, err
}

func (r Repo) CountArtifacts(ctx context.Context, subjectKind domain.SubjectKind, subjectID string) (int, error) {
	var n int
	err := r.get(ctx, nil, &n, `SELECT count(*) FROM report_artifacts WHERE subject_kind=? AND subject_id=?`, subjectKind, subjectID)
	return n, err
}
