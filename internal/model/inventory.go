package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AllocationStatus constants
const (
	AllocationAllocated        = "ALLOCATED"
	AllocationPartiallyOutward = "PARTIALLY_OUTWARD"
	AllocationFullyOutward     = "FULLY_OUTWARD"
)

// InventoryItem is a stock-keeping item. total_stock is the stock on hand
// across all locations; per-location availability lives in LocationStock.
type InventoryItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ItemNo      string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"item_no"`
	Description string          `gorm:"type:varchar(255)" json:"description"`
	Unit        string          `gorm:"type:varchar(20);not null" json:"unit"`
	TotalStock  int             `gorm:"type:int;not null;default:0" json:"total_stock"`
	Locations   []LocationStock `gorm:"foreignKey:InventoryItemID" json:"locations"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (i *InventoryItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// LocationStock partitions an item's stock by physical location.
// available = total - sum(active allocation quantities at this location),
// maintained under the row lock taken by every allocation mutation.
type LocationStock struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	InventoryItemID uuid.UUID `gorm:"type:uuid;not null;index:idx_item_location,unique" json:"inventory_item_id"`
	Location        string    `gorm:"type:varchar(100);not null;index:idx_item_location,unique" json:"location"`
	Total           int       `gorm:"type:int;not null;default:0" json:"total"`
	Available       int       `gorm:"type:int;not null;default:0" json:"available"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (l *LocationStock) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// AllocationRecord reserves location stock for a project. Append-only: outward
// movement updates outwarded_quantity and status, never deletes the record.
// idempotency_key lets a timed-out caller replay an allocate safely.
type AllocationRecord struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	InventoryItemID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"inventory_item_id"`
	ProjectCode       string     `gorm:"type:varchar(100);not null;index" json:"project_code"`
	Location          string     `gorm:"type:varchar(100);not null" json:"location"`
	Quantity          int        `gorm:"type:int;not null" json:"quantity"`
	OutwardedQuantity int        `gorm:"type:int;not null;default:0" json:"outwarded_quantity"`
	Status            string     `gorm:"type:varchar(30);not null;default:'ALLOCATED'" json:"status"`
	Remarks           string     `gorm:"type:text" json:"remarks"`
	IdempotencyKey    *string    `gorm:"type:varchar(100);uniqueIndex" json:"idempotency_key,omitempty"`
	CreatedBy         *uuid.UUID `gorm:"type:uuid" json:"created_by"`
	CreatedAt         time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (a *AllocationRecord) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Active reports whether the allocation still holds reserved stock.
func (a *AllocationRecord) Active() bool {
	return a.Status != AllocationFullyOutward
}
