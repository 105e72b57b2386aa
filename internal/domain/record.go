package domain

import "time"

// DefaultCategory is assigned to records saved without a category.
const DefaultCategory = "General"

// Record is a categorized free-text note owned by exactly one user.
type Record struct {
	ID        int64
	OwnerID   int64
	Title     string
	Body      string
	Category  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RecordStats summarizes a user's notebook for the dashboard.
type RecordStats struct {
	Records    int
	Categories int
}
