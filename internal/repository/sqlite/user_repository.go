package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"notekeeper/internal/domain"
	"notekeeper/internal/repository"
)

const selectUserColumns = `SELECT id, username, password, email, created_at, last_login, is_active FROM users`

type UserRepository struct {
	db *sql.DB
}

var _ repository.UserRepository = (*UserRepository)(nil)

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &UserRepository{db: db}
}

// Create checks username/email uniqueness and inserts the user in one
// transaction. Either a pre-existing match or a unique violation on insert
// yields repository.ErrConflict.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) (int64, error) {
	now := time.Now().UTC()

	err := WithTx(ctx, r.db, func(ctx context.Context, tx DBTX) error {
		exists, err := existsByUsernameOrEmail(ctx, tx, user.Username, user.Email)
		if err != nil {
			return err
		}
		if exists {
			return repository.ErrConflict
		}

		res, err := tx.ExecContext(ctx, `
INSERT INTO users (username, password, email, created_at, is_active)
VALUES (?, ?, ?, ?, ?)`,
			user.Username,
			user.PasswordHash,
			nullString(user.Email),
			now,
			user.IsActive,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return repository.ErrConflict
			}
			return fmt.Errorf("insert user: %w", err)
		}

		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("user last insert id: %w", err)
		}
		user.ID = id
		return nil
	})
	if err != nil {
		return 0, err
	}

	user.CreatedAt = now.Local()
	return user.ID, nil
}

func existsByUsernameOrEmail(ctx context.Context, db DBTX, username, email string) (bool, error) {
	var id int64
	err := db.QueryRowContext(ctx, `
SELECT id FROM users
WHERE username = ? OR (? <> '' AND email = ?)
LIMIT 1`,
		username, email, email,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check existing user: %w", err)
	}
	return true, nil
}

func (r *UserRepository) GetActiveByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, selectUserColumns+`
WHERE username = ? AND is_active = 1`,
		username,
	)
	return scanUser(row)
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, selectUserColumns+`
WHERE id = ?`,
		id,
	)
	return scanUser(row)
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET last_login = ? WHERE id = ?`, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("last login rows affected: %w", err)
	}
	if aff == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanUser(row interface {
	Scan(dest ...any) error
}) (*domain.User, error) {
	var (
		user      domain.User
		email     sql.NullString
		createdAt sql.NullTime
		lastLogin sql.NullTime
		isActive  sql.NullBool
	)
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&email,
		&createdAt,
		&lastLogin,
		&isActive,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	user.Email = email.String
	user.IsActive = isActive.Valid && isActive.Bool
	if createdAt.Valid {
		user.CreatedAt = createdAt.Time.Local()
	}
	if lastLogin.Valid {
		t := lastLogin.Time.Local()
		user.LastLogin = &t
	}
	return &user, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
