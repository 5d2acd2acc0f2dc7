package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/megharaj2002/canteen/internal/domain/auth"
)

const upsertUserSQL = `INSERT INTO users (id, name, email, role) VALUES ($1, $2, $3, $4)
	ON CONFLICT (id) DO UPDATE
	SET name = EXCLUDED.name, email = EXCLUDED.email, role = EXCLUDED.role`

var _ auth.UserRepository = (*UserRepository)(nil)

// UserRepository stores user accounts in PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Upsert inserts a user or refreshes the stored profile and role.
func (r *UserRepository) Upsert(ctx context.Context, u *auth.User) error {
	if _, err := r.pool.Exec(ctx, upsertUserSQL, u.ID, u.Name, u.Email, u.Role); err != nil {
		return errors.Wrapf(err, "upsert user %q", u.ID)
	}
	return nil
}
