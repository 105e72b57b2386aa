package domain

import "time"

// User represents a registered account of the notebook.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Email        string
	CreatedAt    time.Time
	LastLogin    *time.Time
	IsActive     bool
}

// UserSummary is what a successful login hands back to the caller.
type UserSummary struct {
	ID       int64
	Username string
}

// LoginAttempt is one row of the authentication audit trail.
type LoginAttempt struct {
	ID          int64
	Username    string
	IPAddress   string
	AttemptTime time.Time
	Success     bool
}
