package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/shubhamragade/workflow/internal/domain"
)

const userColumns = `id,name,email,role,status,created_at`

func (r Repo) InsertUser(ctx context.Context, tx *sqlx.Tx, u domain.User) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO users(`+userColumns+`) VALUES (?,?,?,?,?,?)`,
		u.ID, u.Name, u.Email, u.Role, u.Status, u.CreatedAt)
	return err
}

func (r Repo) GetUser(ctx context.Context, tx *sqlx.Tx, id string) (domain.User, error) {
	var u domain.User
	err := r.get(ctx, tx, &u, `SELECT `+userColumns+` FROM users WHERE id=?`, id)
	return u, err
}

func (r Repo) GetUserByEmail(ctx context.Context, tx *sqlx.Tx, email string) (domain.User, error) {
	var u domain.User
	err := r.get(ctx, tx, &u, `SELECT `+userColumns+` FROM users WHERE email=?`, email)
	return u, err
}

func (r Repo) ListUsers(ctx context.Context, status domain.UserStatus) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var args []any
	if status != "" {
		query += ` WHERE status=?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at, rowid`
	res := []domain.User{}
	err := r.selectAll(ctx, nil, &res, query, args...)
	return res, err
}

func (r Repo) UpdateUserStatus(ctx context.Context, tx *sqlx.Tx, id string, status domain.UserStatus) error {
	return r.execOne(ctx, tx, `UPDATE users SET status=? WHERE id=?`, status, id)
}
