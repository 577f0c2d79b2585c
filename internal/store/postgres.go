package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wuwenbin0122/vishai/internal/models"
)

// PostgresUsers keeps credentials in the users table created by
// db.Postgres.EnsureSchema.
type PostgresUsers struct {
	pool *pgxpool.Pool
}

func NewPostgresUsers(pool *pgxpool.Pool) *PostgresUsers {
	return &PostgresUsers{pool: pool}
}

func (s *PostgresUsers) Create(ctx context.Context, user models.User) error {
	const query = `INSERT INTO users (id, username, email, password, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.pool.Exec(ctx, query,
		user.ID,
		user.Username,
		NormalizeEmail(user.Email),
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrDuplicate
		}
		return fmt.Errorf("postgres insert user: %w", err)
	}
	return nil
}

func (s *PostgresUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.queryOne(ctx, `SELECT id, username, email, password, created_at, updated_at FROM users WHERE email = $1`, NormalizeEmail(email))
}

func (s *PostgresUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	return s.queryOne(ctx, `SELECT id, username, email, password, created_at, updated_at FROM users WHERE id = $1`, id)
}

func (s *PostgresUsers) queryOne(ctx context.Context, query string, arg string) (*models.User, error) {
	var user models.User
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("postgres query user: %w", err)
	}
	return &user, nil
}
