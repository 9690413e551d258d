package engine

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/shubhamragade/workflow/internal/config"
	"github.com/shubhamragade/workflow/internal/domain"
	"github.com/shubhamragade/workflow/internal/events"
	"github.com/shubhamragade/workflow/internal/repo"
)

// Engine owns every state-changing rule. Each exported operation opens exactly
// one transaction and commits or rolls back exactly once.
type Engine struct {
	DB     *sqlx.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Now    func() time.Time
}

func New(db *sqlx.DB, cfg *config.Config) Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	e := Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
	return e
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}

func (e Engine) ts() string {
	return e.now().Format(time.RFC3339)
}

func (e Engine) begin(ctx context.Context) (*sqlx.Tx, error) {
	return e.DB.BeginTxx(ctx, nil)
}

func (e Engine) appendEvent(ctx context.Context, tx *sqlx.Tx, evt events.Event) error {
	w := e.Events
	if w.Now == nil {
		w.Now = e.now
	}
	return w.Append(ctx, tx, evt)
}

// notFound converts repo.ErrNotFound into the typed NotFound failure.
func notFound(err error, entity, id string) error {
	if errors.Is(err, repo.ErrNotFound) {
		return domain.NotFound(entity, id)
	}
	return err
}

func checkVersion(entity string, expected *int64, current int64) error {
	if expected != nil && *expected != current {
		return domain.Conflict(entity, current)
	}
	return nil
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
