package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"clinic-gatekeeper/internal/model"
)

// UserStore is the staff account storage the auth service depends on.
type UserStore interface {
	FindByID(ctx context.Context, id string) (model.StaffUser, error)
	FindByUsername(ctx context.Context, username string) (model.StaffUser, error)
	Create(ctx context.Context, u model.StaffUser) error
	Count(ctx context.Context) (int, error)
}

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const selectStaffUser = `SELECT id, username, display_name, password_hash, role, created_at, updated_at
	 FROM staff_users`

func (r *UserRepository) FindByID(ctx context.Context, id string) (model.StaffUser, error) {
	return r.findOne(ctx, selectStaffUser+` WHERE id = $1`, id)
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (model.StaffUser, error) {
	return r.findOne(ctx, selectStaffUser+` WHERE lower(username) = lower($1)`, strings.TrimSpace(username))
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg string) (model.StaffUser, error) {
	var u model.StaffUser
	err := r.pool.QueryRow(ctx, query, arg).
		Scan(&u.ID, &u.Username, &u.DisplayName, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.StaffUser{}, fmt.Errorf("staff user %q: %w", arg, model.ErrUserNotFound)
	}
	if err != nil {
		return model.StaffUser{}, fmt.Errorf("find staff user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) Create(ctx context.Context, u model.StaffUser) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO staff_users (id, username, display_name, password_hash, role, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Username, u.DisplayName, u.PasswordHash, u.Role, u.CreatedAt, u.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("staff user %q: %w", u.Username, model.ErrUserAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("create staff user: %w", err)
	}
	return nil
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM staff_users`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count staff users: %w", err)
	}
	return count, nil
}
