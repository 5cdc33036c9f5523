package repository

import (
	"context"

	"procurement/internal/model"

	"gorm.io/gorm"
)

type RevisionRepository interface {
	Create(ctx context.Context, entry *model.RevisionEntry) error
	ListByEntity(ctx context.Context, entityType, entityID string) ([]model.RevisionEntry, error)
}

type revisionRepository struct {
	db *gorm.DB
}

func NewRevisionRepository(db *gorm.DB) RevisionRepository {
	return &revisionRepository{db: db}
}

func (r *revisionRepository) Create(ctx context.Context, entry *model.RevisionEntry) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *revisionRepository) ListByEntity(ctx context.Context, entityType, entityID string) ([]model.RevisionEntry, error) {
	var entries []model.RevisionEntry
	err := GetDB(ctx, r.db).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at DESC").
		Find(&entries).Error
	return entries, err
}
