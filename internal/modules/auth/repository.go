package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

const userColumns = "id, name, email, password, phone, verified, created_at, updated_at"

// Repository handles users persistence
type Repository struct {
	db  *sqlx.DB
	log zerolog.Logger
}

// NewRepository creates a new user repository
func NewRepository(db *sqlx.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "users").Logger(),
	}
}

// Create inserts a user, assigning id and timestamps.
// A duplicate email yields ErrEmailTaken.
func (r *Repository) Create(ctx context.Context, u *User) error {
	now := time.Now().Unix()
	u.ID = uuid.NewString()
	u.CreatedAt = now
	u.UpdatedAt = now

	query := r.db.Rebind(`
		INSERT INTO users (id, name, email, password, phone, verified, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := r.db.ExecContext(ctx, query,
		u.ID, u.Name, u.Email, u.Password, u.Phone, u.Verified, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByEmail returns the user with the given (lower-case) email
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getOne(ctx, "email", email)
}

// GetByID returns the user with the given id
func (r *Repository) GetByID(ctx context.Context, id string) (*User, error) {
	return r.getOne(ctx, "id", id)
}

func (r *Repository) getOne(ctx context.Context, column, value string) (*User, error) {
	var u User
	query := r.db.Rebind("SELECT " + userColumns + " FROM users WHERE " + column + " = ?")
	err := r.db.GetContext(ctx, &u, query, value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by %s: %w", column, err)
	}
	return &u, nil
}

// isUniqueViolation recognises unique constraint errors from PostgreSQL and SQLite
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
