package repository

import (
	"context"

	"procurement/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequisitionRepository is the data access boundary for requisition items and
// the master entries promoted from them.
type RequisitionRepository interface {
	CreateItems(ctx context.Context, items []model.RequisitionItem) error
	FindBatch(ctx context.Context, batchID string) ([]model.RequisitionItem, error)
	FindBatchForUpdate(ctx context.Context, batchID string) ([]model.RequisitionItem, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.RequisitionItem, error)
	Save(ctx context.Context, item *model.RequisitionItem) error
	ListBatches(ctx context.Context, page, limit int) ([]model.RequisitionItem, int64, error)
}

type requisitionRepository struct {
	db *gorm.DB
}

func NewRequisitionRepository(db *gorm.DB) RequisitionRepository {
	return &requisitionRepository{db: db}
}

func (r *requisitionRepository) CreateItems(ctx context.Context, items []model.RequisitionItem) error {
	return GetDB(ctx, r.db).Create(&items).Error
}

func (r *requisitionRepository) FindBatch(ctx context.Context, batchID string) ([]model.RequisitionItem, error) {
	var items []model.RequisitionItem
	err := GetDB(ctx, r.db).Where("batch_id = ?", batchID).Order("created_at ASC").Find(&items).Error
	return items, err
}

func (r *requisitionRepository) FindBatchForUpdate(ctx context.Context, batchID string) ([]model.RequisitionItem, error) {
	var items []model.RequisitionItem
	err := lockForUpdate(GetDB(ctx, r.db)).Where("batch_id = ?", batchID).Order("created_at ASC").Find(&items).Error
	return items, err
}

func (r *requisitionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.RequisitionItem, error) {
	var item model.RequisitionItem
	if err := GetDB(ctx, r.db).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *requisitionRepository) Save(ctx context.Context, item *model.RequisitionItem) error {
	return GetDB(ctx, r.db).Save(item).Error
}

func (r *requisitionRepository) ListBatches(ctx context.Context, page, limit int) ([]model.RequisitionItem, int64, error) {
	var items []model.RequisitionItem
	var total int64

	db := GetDB(ctx, r.db).Model(&model.RequisitionItem{})
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := GetDB(ctx, r.db).Order("created_at DESC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
