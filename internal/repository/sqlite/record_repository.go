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

const selectRecordColumns = `SELECT id, user_id, title, data, category, created_at, updated_at FROM user_data`

type RecordRepository struct {
	db DBTX
}

func NewRecordRepository(db DBTX) repository.RecordRepository {
	return &RecordRepository{db: db}
}

func (r *RecordRepository) Create(ctx context.Context, record *domain.Record) (int64, error) {
	now := time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
INSERT INTO user_data (user_id, title, data, category, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		record.OwnerID,
		record.Title,
		record.Body,
		record.Category,
		now,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("insert record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("record last insert id: %w", err)
	}
	record.ID = id
	record.CreatedAt = now.Local()
	record.UpdatedAt = now.Local()
	return id, nil
}

func (r *RecordRepository) Get(ctx context.Context, ownerID, id int64) (*domain.Record, error) {
	row := r.db.QueryRowContext(ctx, selectRecordColumns+`
WHERE id = ? AND user_id = ?`,
		id, ownerID,
	)
	return scanRecord(row)
}

// List returns the owner's records newest first, restricted to category when it is non-empty.
func (r *RecordRepository) List(ctx context.Context, ownerID int64, category string) ([]domain.Record, error) {
	query := selectRecordColumns + `
WHERE user_id = ?`
	args := []any{ownerID}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}
	query += `
ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []domain.Record{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}

	return records, rows.Err()
}

func (r *RecordRepository) ListCategories(ctx context.Context, ownerID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT DISTINCT category FROM user_data
WHERE user_id = ? AND category IS NOT NULL
ORDER BY category`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	categories := []string{}
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, category)
	}

	return categories, rows.Err()
}

// Update rewrites title, body and category of a record the owner holds.
func (r *RecordRepository) Update(ctx context.Context, record *domain.Record) error {
	now := time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
UPDATE user_data
SET title = ?, data = ?, category = ?, updated_at = ?
WHERE id = ? AND user_id = ?`,
		record.Title,
		record.Body,
		record.Category,
		now,
		record.ID,
		record.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record update rows affected: %w", err)
	}
	if aff == 0 {
		return repository.ErrNotFound
	}
	record.UpdatedAt = now.Local()
	return nil
}

func (r *RecordRepository) Delete(ctx context.Context, ownerID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM user_data WHERE id = ? AND user_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record delete rows affected: %w", err)
	}
	if aff == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *RecordRepository) Stats(ctx context.Context, ownerID int64) (domain.RecordStats, error) {
	var stats domain.RecordStats
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(*), COUNT(DISTINCT category)
FROM user_data
WHERE user_id = ?`,
		ownerID,
	).Scan(&stats.Records, &stats.Categories)
	if err != nil {
		return domain.RecordStats{}, fmt.Errorf("query record stats: %w", err)
	}
	return stats, nil
}

func scanRecord(scanner interface {
	Scan(dest ...any) error
}) (*domain.Record, error) {
	var (
		record    domain.Record
		title     sql.NullString
		body      sql.NullString
		category  sql.NullString
		createdAt sql.NullTime
		updatedAt sql.NullTime
	)

	if err := scanner.Scan(
		&record.ID,
		&record.OwnerID,
		&title,
		&body,
		&category,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan record: %w", err)
	}

	record.Title = title.String
	record.Body = body.String
	record.Category = category.String
	if createdAt.Valid {
		record.CreatedAt = createdAt.Time.Local()
	}
	if updatedAt.Valid {
		record.UpdatedAt = updatedAt.Time.Local()
	}
	return &record, nil
}
