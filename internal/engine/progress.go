package engine

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/shubhamragade/workflow/internal/domain"
)

// Progress is the weighted completion of a set of task statuses, 0..100.
// DONE counts 1, IN_PROGRESS counts 0.5, everything else 0.
func Progress(statuses []domain.TaskStatus) float64 {
	if len(statuses) == 0 {
		return 0
	}
	var score float64
	for _, s := range statuses {
		score += s.Weight()
	}
	return score / float64(len(statuses)) * 100
}

// recomputeProgress reads the project's tasks through tx, after the triggering
// mutation, and stores the derived percentage in the same transaction.
func (e Engine) recomputeProgress(ctx context.Context, tx *sqlx.Tx, projectID string) (float64, error) {
	statuses, err := e.Repo.TaskStatuses(ctx, tx, projectID)
	if err != nil {
		return 0, err
	}
	pct := Progress(statuses)
	if err := e.Repo.SetProjectProgress(ctx, tx, projectID, pct); err != nil {
		return 0, notFound(err, "project", projectID)
	}
	return pct, nil
}
