package repository

import (
	"context"

	"procurement/internal/model"

	"gorm.io/gorm"
)

type InwardRepository interface {
	Create(ctx context.Context, rec *model.InwardRecord) error
	ListByPO(ctx context.Context, poNumber string) ([]model.InwardRecord, error)
}

type inwardRepository struct {
	db *gorm.DB
}

func NewInwardRepository(db *gorm.DB) InwardRepository {
	return &inwardRepository{db: db}
}

func (r *inwardRepository) Create(ctx context.Context, rec *model.InwardRecord) error {
	return GetDB(ctx, r.db).Create(rec).Error
}

func (r *inwardRepository) ListByPO(ctx context.Context, poNumber string) ([]model.InwardRecord, error) {
	var recs []model.InwardRecord
	err := GetDB(ctx, r.db).
		Where("po_number = ?", poNumber).
		Order("created_at DESC").
		Find(&recs).Error
	return recs, err
}
