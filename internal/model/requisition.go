package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequisitionItem status constants
const (
	RequisitionPending  = "PENDING"
	RequisitionApproved = "APPROVED"
	RequisitionRejected = "REJECTED"
)

// RequisitionItem is one line of a requisition batch. Items in a batch share a
// batch_id and project_code but move through approval individually: a batch may
// end up with a mix of approved and pending items, while rejection and
// resubmission always apply to the whole batch.
type RequisitionItem struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	BatchID          string     `gorm:"type:varchar(100);not null;index" json:"batch_id"`
	ProjectCode      string     `gorm:"type:varchar(100);not null;index" json:"project_code"`
	ItemNo           string     `gorm:"type:varchar(100);not null" json:"item_no"`
	Description      string     `gorm:"type:varchar(255)" json:"description"`
	RequiredQuantity int        `gorm:"type:int;not null" json:"required_quantity"`
	Unit             string     `gorm:"type:varchar(20);not null" json:"unit"`
	Status           string     `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	ApprovedStatus   bool       `gorm:"not null;default:false" json:"approved_status"`
	RejectionRemarks string     `gorm:"type:text" json:"rejection_remarks"`
	// MasterEntryExists flags that verification already promoted this item, so
	// a second verify cannot create a duplicate master entry.
	MasterEntryExists bool       `gorm:"not null;default:false" json:"master_entry_exists"`
	RequestedBy       *uuid.UUID `gorm:"type:uuid" json:"requested_by"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (r *RequisitionItem) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// MasterEntry is a verified requisition item carrying the stock check snapshot
// taken at verification time. balance_quantity = max(0, required - stock on
// hand). A non-nil po_number means the entry has been sourced onto a purchase
// order and cannot be sourced again.
type MasterEntry struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RequisitionItemID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"requisition_item_id"`
	BatchID           string    `gorm:"type:varchar(100);not null;index" json:"batch_id"`
	ProjectCode       string    `gorm:"type:varchar(100);not null;index" json:"project_code"`
	ItemNo            string    `gorm:"type:varchar(100);not null" json:"item_no"`
	Description       string    `gorm:"type:varchar(255)" json:"description"`
	Unit              string    `gorm:"type:varchar(20);not null" json:"unit"`
	RequiredQuantity  int       `gorm:"type:int;not null" json:"required_quantity"`
	StockOnHand       int       `gorm:"type:int;not null;default:0" json:"stock_on_hand"`
	BalanceQuantity   int       `gorm:"type:int;not null;default:0" json:"balance_quantity"`
	OrderingQty       int       `gorm:"type:int;not null;default:0" json:"ordering_qty"`
	PONumber          *string   `gorm:"type:varchar(100);index" json:"po_number"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (m *MasterEntry) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Consumed reports whether the entry has already been placed on a purchase order.
func (m *MasterEntry) Consumed() bool {
	return m.PONumber != nil
}
