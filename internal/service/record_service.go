package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"notekeeper/internal/domain"
	"notekeeper/internal/repository"
)

// RecordService coordinates note operations. Every call is scoped to ownerID.
type RecordService interface {
	Save(ctx context.Context, ownerID int64, title, body, category string) (*domain.Record, error)
	List(ctx context.Context, ownerID int64, category string) ([]domain.Record, error)
	ListCategories(ctx context.Context, ownerID int64) ([]string, error)
	Get(ctx context.Context, ownerID, id int64) (*domain.Record, error)
	Update(ctx context.Context, ownerID, id int64, title, body, category string) (*domain.Record, error)
	Delete(ctx context.Context, ownerID, id int64) error
	Stats(ctx context.Context, ownerID int64) (domain.RecordStats, error)
}

type recordService struct {
	records repository.RecordRepository
	logger  logrus.FieldLogger
}

func NewRecordService(records repository.RecordRepository, logger logrus.FieldLogger) RecordService {
	return &recordService{
		records: records,
		logger:  logger,
	}
}

func (s *recordService) Save(ctx context.Context, ownerID int64, title, body, category string) (*domain.Record, error) {
	record := &domain.Record{
		OwnerID:  ownerID,
		Title:    title,
		Body:     body,
		Category: normalizeCategory(category),
	}

	if _, err := s.records.Create(ctx, record); err != nil {
		return nil, s.storeErr(err, "save record", ownerID)
	}
	return record, nil
}

func (s *recordService) List(ctx context.Context, ownerID int64, category string) ([]domain.Record, error) {
	records, err := s.records.List(ctx, ownerID, strings.TrimSpace(category))
	if err != nil {
		return nil, s.storeErr(err, "list records", ownerID)
	}
	return records, nil
}

func (s *recordService) ListCategories(ctx context.Context, ownerID int64) ([]string, error) {
	categories, err := s.records.ListCategories(ctx, ownerID)
	if err != nil {
		return nil, s.storeErr(err, "list categories", ownerID)
	}
	return categories, nil
}

func (s *recordService) Get(ctx context.Context, ownerID, id int64) (*domain.Record, error) {
	record, err := s.records.Get(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, s.storeErr(err, "get record", ownerID)
	}
	return record, nil
}

func (s *recordService) Update(ctx context.Context, ownerID, id int64, title, body, category string) (*domain.Record, error) {
	record := &domain.Record{
		ID:       id,
		OwnerID:  ownerID,
		Title:    title,
		Body:     body,
		Category: normalizeCategory(category),
	}

	if err := s.records.Update(ctx, record); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, s.storeErr(err, "update record", ownerID)
	}

	return s.Get(ctx, ownerID, id)
}

func (s *recordService) Delete(ctx context.Context, ownerID, id int64) error {
	if err := s.records.Delete(ctx, ownerID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRecordNotFound
		}
		return s.storeErr(err, "delete record", ownerID)
	}
	return nil
}

func (s *recordService) Stats(ctx context.Context, ownerID int64) (domain.RecordStats, error) {
	stats, err := s.records.Stats(ctx, ownerID)
	if err != nil {
		return domain.RecordStats{}, s.storeErr(err, "record stats", ownerID)
	}
	return stats, nil
}

func (s *recordService) storeErr(err error, op string, ownerID int64) error {
	s.logger.WithError(err).WithField("owner_id", ownerID).Error(op)
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

func normalizeCategory(category string) string {
	category = strings.TrimSpace(category)
	if category == "" {
		return domain.DefaultCategory
	}
	return category
}
