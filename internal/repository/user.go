package repository

import (
	"context"
	"errors"
	"time"

	"notekeeper/internal/domain"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write violates a unique constraint.
	ErrConflict = errors.New("conflict")
)

// UserRepository defines persistence operations for User entities.
type UserRepository interface {
	// Create inserts the user and fills in its ID and CreatedAt. A username or
	// non-empty email already taken yields ErrConflict.
	Create(ctx context.Context, user *domain.User) (int64, error)
	GetActiveByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
}

// LoginAttemptRepository appends to and reads the login audit trail.
type LoginAttemptRepository interface {
	Append(ctx context.Context, attempt *domain.LoginAttempt) error
	ListByUsername(ctx context.Context, username string, limit int) ([]domain.LoginAttempt, error)
}
