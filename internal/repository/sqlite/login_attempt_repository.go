package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"notekeeper/internal/domain"
	"notekeeper/internal/repository"
)

// LoginAttemptRepository is an append-only audit log of login calls.
type LoginAttemptRepository struct {
	db DBTX
}

func NewLoginAttemptRepository(db DBTX) repository.LoginAttemptRepository {
	return &LoginAttemptRepository{db: db}
}

func (r *LoginAttemptRepository) Append(ctx context.Context, attempt *domain.LoginAttempt) error {
	if attempt.AttemptTime.IsZero() {
		attempt.AttemptTime = time.Now()
	}

	res, err := r.db.ExecContext(ctx, `
INSERT INTO login_attempts (username, ip_address, attempt_time, success)
VALUES (?, ?, ?, ?)`,
		attempt.Username,
		nullString(attempt.IPAddress),
		attempt.AttemptTime.UTC(),
		attempt.Success,
	)
	if err != nil {
		return fmt.Errorf("insert login attempt: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("login attempt last insert id: %w", err)
	}
	attempt.ID = id
	return nil
}

// ListByUsername returns the newest attempts first. A non-positive limit returns all rows.
func (r *LoginAttemptRepository) ListByUsername(ctx context.Context, username string, limit int) ([]domain.LoginAttempt, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, username, ip_address, attempt_time, success
FROM login_attempts
WHERE username = ?
ORDER BY attempt_time DESC, id DESC
LIMIT ?`,
		username, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query login attempts: %w", err)
	}
	defer rows.Close()

	attempts := []domain.LoginAttempt{}
	for rows.Next() {
		var (
			attempt domain.LoginAttempt
			ip      sql.NullString
			at      sql.NullTime
			success sql.NullBool
		)
		if err := rows.Scan(&attempt.ID, &attempt.Username, &ip, &at, &success); err != nil {
			return nil, fmt.Errorf("scan login attempt: %w", err)
		}
		attempt.IPAddress = ip.String
		attempt.Success = success.Bool
		if at.Valid {
			attempt.AttemptTime = at.Time.Local()
		}
		attempts = append(attempts, attempt)
	}

	return attempts, rows.Err()
}
