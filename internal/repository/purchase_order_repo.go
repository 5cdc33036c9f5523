package repository

import (
	"context"

	"procurement/internal/model"

	"gorm.io/gorm"
)

type PurchaseOrderRepository interface {
	Create(ctx context.Context, po *model.PurchaseOrder) error
	FindByNumber(ctx context.Context, poNumber string) (*model.PurchaseOrder, error)
	FindByNumberForUpdate(ctx context.Context, poNumber string) (*model.PurchaseOrder, error)
	Save(ctx context.Context, po *model.PurchaseOrder) error
	SaveItem(ctx context.Context, item *model.POLineItem) error
	CreateItems(ctx context.Context, items []model.POLineItem) error
	List(ctx context.Context, status string, page, limit int) ([]model.PurchaseOrder, int64, error)
}

type purchaseOrderRepository struct {
	db *gorm.DB
}

func NewPurchaseOrderRepository(db *gorm.DB) PurchaseOrderRepository {
	return &purchaseOrderRepository{db: db}
}

func (r *purchaseOrderRepository) Create(ctx context.Context, po *model.PurchaseOrder) error {
	return GetDB(ctx, r.db).Create(po).Error
}

func (r *purchaseOrderRepository) FindByNumber(ctx context.Context, poNumber string) (*model.PurchaseOrder, error) {
	var po model.PurchaseOrder
	if err := GetDB(ctx, r.db).Preload("Items").First(&po, "po_number = ?", poNumber).Error; err != nil {
		return nil, err
	}
	return &po, nil
}

// FindByNumberForUpdate locks the PO row so concurrent approve/reject/edit
// calls on the same po_number serialize. Items are loaded after the lock is held.
func (r *purchaseOrderRepository) FindByNumberForUpdate(ctx context.Context, poNumber string) (*model.PurchaseOrder, error) {
	var po model.PurchaseOrder
	if err := lockForUpdate(GetDB(ctx, r.db)).First(&po, "po_number = ?", poNumber).Error; err != nil {
		return nil, err
	}
	if err := GetDB(ctx, r.db).Where("po_id = ?", po.ID).Order("created_at ASC").Find(&po.Items).Error; err != nil {
		return nil, err
	}
	return &po, nil
}

func (r *purchaseOrderRepository) Save(ctx context.Context, po *model.PurchaseOrder) error {
	return GetDB(ctx, r.db).Save(po).Error
}

func (r *purchaseOrderRepository) SaveItem(ctx context.Context, item *model.POLineItem) error {
	return GetDB(ctx, r.db).Save(item).Error
}

func (r *purchaseOrderRepository) CreateItems(ctx context.Context, items []model.POLineItem) error {
	return GetDB(ctx, r.db).Create(&items).Error
}

func (r *purchaseOrderRepository) List(ctx context.Context, status string, page, limit int) ([]model.PurchaseOrder, int64, error) {
	var pos []model.PurchaseOrder
	var total int64

	query := GetDB(ctx, r.db).Model(&model.PurchaseOrder{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	fetch := GetDB(ctx, r.db).Preload("Items")
	if status != "" {
		fetch = fetch.Where("status = ?", status)
	}
	offset := (page - 1) * limit
	if err := fetch.Order("created_at DESC").Offset(offset).Limit(limit).Find(&pos).Error; err != nil {
		return nil, 0, err
	}
	return pos, total, nil
}
