package repository

import (
	"context"

	"procurement/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MasterEntryRepository interface {
	Create(ctx context.Context, entry *model.MasterEntry) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.MasterEntry, error)
	FindByRequisitionItem(ctx context.Context, requisitionItemID uuid.UUID) (*model.MasterEntry, error)
	FindUnconsumedByProject(ctx context.Context, projectCode string) ([]model.MasterEntry, error)
	FindUnconsumedByIDs(ctx context.Context, ids []uuid.UUID) ([]model.MasterEntry, error)
	Save(ctx context.Context, entry *model.MasterEntry) error
}

type masterEntryRepository struct {
	db *gorm.DB
}

func NewMasterEntryRepository(db *gorm.DB) MasterEntryRepository {
	return &masterEntryRepository{db: db}
}

func (r *masterEntryRepository) Create(ctx context.Context, entry *model.MasterEntry) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *masterEntryRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.MasterEntry, error) {
	var entry model.MasterEntry
	if err := GetDB(ctx, r.db).First(&entry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *masterEntryRepository) FindByRequisitionItem(ctx context.Context, requisitionItemID uuid.UUID) (*model.MasterEntry, error) {
	var entry model.MasterEntry
	if err := GetDB(ctx, r.db).First(&entry, "requisition_item_id = ?", requisitionItemID).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *masterEntryRepository) FindUnconsumedByProject(ctx context.Context, projectCode string) ([]model.MasterEntry, error) {
	var entries []model.MasterEntry
	err := GetDB(ctx, r.db).
		Where("project_code = ? AND po_number IS NULL", projectCode).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}

func (r *masterEntryRepository) FindUnconsumedByIDs(ctx context.Context, ids []uuid.UUID) ([]model.MasterEntry, error) {
	var entries []model.MasterEntry
	err := lockForUpdate(GetDB(ctx, r.db)).
		Where("id IN ? AND po_number IS NULL", ids).
		Find(&entries).Error
	return entries, err
}

func (r *masterEntryRepository) Save(ctx context.Context, entry *model.MasterEntry) error {
	return GetDB(ctx, r.db).Save(entry).Error
}
