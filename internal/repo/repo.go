package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// Repo wraps hand-written SQL. Every method takes an optional transaction;
// a nil tx runs the statement directly on the pool.
type Repo struct {
	DB *sqlx.DB
}

var ErrNotFound = errors.New("not found")

// Queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type Queryer interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

func (r Repo) q(tx *sqlx.Tx) Queryer {
	if tx != nil {
		return tx
	}
	return r.DB
}

func (r Repo) get(ctx context.Context, tx *sqlx.Tx, dest any, query string, args ...any) error {
	err := r.q(tx).GetContext(ctx, dest, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r Repo) selectAll(ctx context.Context, tx *sqlx.Tx, dest any, query string, args ...any) error {
	return r.q(tx).SelectContext(ctx, dest, query, args...)
}

// execOne runs a write that must touch exactly one row.
func (r Repo) execOne(ctx context.Context, tx *sqlx.Tx, query string, args ...any) error {
	res, err := r.q(tx).ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableStringPtr(v *string) any {
	if v == nil || *v == "" {
		return nil
	}
	return *v
}
