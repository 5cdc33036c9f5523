package repository

import (
	"context"

	"procurement/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InventoryRepository owns the stock ledger: items, per-location partitions and
// the append-only allocation log.
type InventoryRepository interface {
	CreateItem(ctx context.Context, item *model.InventoryItem) error
	FindItemByID(ctx context.Context, id uuid.UUID) (*model.InventoryItem, error)
	FindItemByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.InventoryItem, error)
	FindItemByNo(ctx context.Context, itemNo string) (*model.InventoryItem, error)
	FindItemByNoForUpdate(ctx context.Context, itemNo string) (*model.InventoryItem, error)
	SaveItem(ctx context.Context, item *model.InventoryItem) error
	ListItems(ctx context.Context, page, limit int) ([]model.InventoryItem, int64, error)

	FindLocation(ctx context.Context, itemID uuid.UUID, location string) (*model.LocationStock, error)
	FindLocationForUpdate(ctx context.Context, itemID uuid.UUID, location string) (*model.LocationStock, error)
	SaveLocation(ctx context.Context, loc *model.LocationStock) error
	CreateLocation(ctx context.Context, loc *model.LocationStock) error

	CreateAllocation(ctx context.Context, rec *model.AllocationRecord) error
	FindAllocationByID(ctx context.Context, id uuid.UUID) (*model.AllocationRecord, error)
	FindAllocationByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.AllocationRecord, error)
	FindAllocationByKey(ctx context.Context, idempotencyKey string) (*model.AllocationRecord, error)
	SaveAllocation(ctx context.Context, rec *model.AllocationRecord) error
	ListAllocations(ctx context.Context, itemID uuid.UUID) ([]model.AllocationRecord, error)
}

type inventoryRepository struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) InventoryRepository {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) CreateItem(ctx context.Context, item *model.InventoryItem) error {
	return GetDB(ctx, r.db).Create(item).Error
}

func (r *inventoryRepository) FindItemByID(ctx context.Context, id uuid.UUID) (*model.InventoryItem, error) {
	var item model.InventoryItem
	if err := GetDB(ctx, r.db).Preload("Locations").First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *inventoryRepository) FindItemByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.InventoryItem, error) {
	var item model.InventoryItem
	if err := lockForUpdate(GetDB(ctx, r.db)).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *inventoryRepository) FindItemByNo(ctx context.Context, itemNo string) (*model.InventoryItem, error) {
	var item model.InventoryItem
	if err := GetDB(ctx, r.db).Preload("Locations").First(&item, "item_no = ?", itemNo).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *inventoryRepository) FindItemByNoForUpdate(ctx context.Context, itemNo string) (*model.InventoryItem, error) {
	var item model.InventoryItem
	if err := lockForUpdate(GetDB(ctx, r.db)).First(&item, "item_no = ?", itemNo).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *inventoryRepository) SaveItem(ctx context.Context, item *model.InventoryItem) error {
	return GetDB(ctx, r.db).Omit("Locations").Save(item).Error
}

func (r *inventoryRepository) ListItems(ctx context.Context, page, limit int) ([]model.InventoryItem, int64, error) {
	var items []model.InventoryItem
	var total int64

	if err := GetDB(ctx, r.db).Model(&model.InventoryItem{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	if err := GetDB(ctx, r.db).Preload("Locations").Order("item_no ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *inventoryRepository) FindLocation(ctx context.Context, itemID uuid.UUID, location string) (*model.LocationStock, error) {
	var loc model.LocationStock
	if err := GetDB(ctx, r.db).First(&loc, "inventory_item_id = ? AND location = ?", itemID, location).Error; err != nil {
		return nil, err
	}
	return &loc, nil
}

// FindLocationForUpdate is the single choke point for check-and-reserve: the
// row lock makes the availability check and the decrement one atomic unit.
func (r *inventoryRepository) FindLocationForUpdate(ctx context.Context, itemID uuid.UUID, location string) (*model.LocationStock, error) {
	var loc model.LocationStock
	if err := lockForUpdate(GetDB(ctx, r.db)).First(&loc, "inventory_item_id = ? AND location = ?", itemID, location).Error; err != nil {
		return nil, err
	}
	return &loc, nil
}

func (r *inventoryRepository) SaveLocation(ctx context.Context, loc *model.LocationStock) error {
	return GetDB(ctx, r.db).Save(loc).Error
}

func (r *inventoryRepository) CreateLocation(ctx context.Context, loc *model.LocationStock) error {
	return GetDB(ctx, r.db).Create(loc).Error
}

func (r *inventoryRepository) CreateAllocation(ctx context.Context, rec *model.AllocationRecord) error {
	return GetDB(ctx, r.db).Create(rec).Error
}

func (r *inventoryRepository) FindAllocationByID(ctx context.Context, id uuid.UUID) (*model.AllocationRecord, error) {
	var rec model.AllocationRecord
	if err := GetDB(ctx, r.db).First(&rec, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *inventoryRepository) FindAllocationByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.AllocationRecord, error) {
	var rec model.AllocationRecord
	if err := lockForUpdate(GetDB(ctx, r.db)).First(&rec, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *inventoryRepository) FindAllocationByKey(ctx context.Context, idempotencyKey string) (*model.AllocationRecord, error) {
	var rec model.AllocationRecord
	if err := GetDB(ctx, r.db).First(&rec, "idempotency_key = ?", idempotencyKey).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *inventoryRepository) SaveAllocation(ctx context.Context, rec *model.AllocationRecord) error {
	return GetDB(ctx, r.db).Save(rec).Error
}

func (r *inventoryRepository) ListAllocations(ctx context.Context, itemID uuid.UUID) ([]model.AllocationRecord, error) {
	var recs []model.AllocationRecord
	err := GetDB(ctx, r.db).
		Where("inventory_item_id = ?", itemID).
		Order("created_at DESC").
		Find(&recs).Error
	return recs, err
}
