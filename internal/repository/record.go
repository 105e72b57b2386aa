package repository

import (
	"context"

	"notekeeper/internal/domain"
)

// RecordRepository manages user-owned notes. Every method is scoped by owner.
type RecordRepository interface {
	Create(ctx context.Context, record *domain.Record) (int64, error)
	Get(ctx context.Context, ownerID, id int64) (*domain.Record, error)
	List(ctx context.Context, ownerID int64, category string) ([]domain.Record, error)
	ListCategories(ctx context.Context, ownerID int64) ([]string, error)
	Update(ctx context.Context, record *domain.Record) error
	Delete(ctx context.Context, ownerID, id int64) error
	Stats(ctx context.Context, ownerID int64) (domain.RecordStats, error)
}
