package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PurchaseOrder status constants
const (
	POStatusPendingApproval = "PENDING_APPROVAL"
	POStatusApproved        = "APPROVED"
	POStatusRejected        = "REJECTED"
	POStatusOrdered         = "ORDERED"
	POStatusDelivered       = "DELIVERED"
	POStatusCancelled       = "CANCELLED"
)

// Inward status constants, always derived from the line items and never stored.
const (
	InwardOpen      = "OPEN"
	InwardPartial   = "PARTIALLY_INWARDED"
	InwardCompleted = "COMPLETED"
)

// PurchaseOrder sources master entries from a project onto a vendor order.
// Version starts at 1.0 and bumps by exactly 1.0 each time an approved order is
// revised; a rejected order resubmits at the same version.
type PurchaseOrder struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	PONumber         string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"po_number"`
	Version          decimal.Decimal `gorm:"type:decimal(5,1);not null" json:"version"`
	Status           string          `gorm:"type:varchar(30);not null;default:'PENDING_APPROVAL';index" json:"status"`
	ProjectCode      string          `gorm:"type:varchar(100);not null;index" json:"project_code"`
	VendorSnapshot   string          `gorm:"type:jsonb" json:"vendor_snapshot"`
	ConsigneeAddress string          `gorm:"type:text" json:"consignee_address"`
	InvoiceAddress   string          `gorm:"type:text" json:"invoice_address"`
	TotalAmount      decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total_amount"`
	RejectionRemarks string          `gorm:"type:text" json:"rejection_remarks"`
	ApprovalDate     *time.Time      `json:"approval_date"`
	ApprovedBy       *uuid.UUID      `gorm:"type:uuid" json:"approved_by"`
	CreatedBy        *uuid.UUID      `gorm:"type:uuid" json:"created_by"`
	Items            []POLineItem    `gorm:"foreignKey:POID" json:"items"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (p *PurchaseOrder) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// POLineItem is one ordered line. inwarded_quantity accumulates receipts and
// may never exceed quantity. is_revised marks lines added during a revision of
// an approved order.
type POLineItem struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	POID             uuid.UUID       `gorm:"type:uuid;not null;index" json:"po_id"`
	ItemNo           string          `gorm:"type:varchar(100);not null" json:"item_no"`
	Description      string          `gorm:"type:varchar(255)" json:"description"`
	Unit             string          `gorm:"type:varchar(20);not null" json:"unit"`
	Quantity         int             `gorm:"type:int;not null" json:"quantity"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"unit_price"`
	TotalPrice       decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total_price"`
	InwardedQuantity int             `gorm:"type:int;not null;default:0" json:"inwarded_quantity"`
	IsRevised        bool            `gorm:"not null;default:false" json:"is_revised"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (i *POLineItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// RemainingQuantity is how much of the line is still expected to arrive.
func (i *POLineItem) RemainingQuantity() int {
	return i.Quantity - i.InwardedQuantity
}

// DeriveInwardStatus computes the order-level receipt state from the lines.
// No lines or nothing received yet means OPEN; every line fully received means
// COMPLETED; anything in between is PARTIALLY_INWARDED.
func DeriveInwardStatus(items []POLineItem) string {
	if len(items) == 0 {
		return InwardOpen
	}
	anyReceived := false
	allComplete := true
	for _, item := range items {
		if item.InwardedQuantity > 0 {
			anyReceived = true
		}
		if item.InwardedQuantity < item.Quantity {
			allComplete = false
		}
	}
	switch {
	case allComplete:
		return InwardCompleted
	case anyReceived:
		return InwardPartial
	default:
		return InwardOpen
	}
}

// InwardRecord is one receipt line against a purchase order. Append-only; the
// running totals live on the PO line items and the inventory ledger.
type InwardRecord struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	PONumber         string     `gorm:"type:varchar(100);not null;index" json:"po_number"`
	ItemNo           string     `gorm:"type:varchar(100);not null" json:"item_no"`
	QuantityReceived int        `gorm:"type:int;not null" json:"quantity_received"`
	Location         string     `gorm:"type:varchar(100);not null" json:"location"`
	ReceivedDate     time.Time  `gorm:"not null" json:"received_date"`
	InvoiceNumber    string     `gorm:"type:varchar(100)" json:"invoice_number"`
	InvoiceDate      *time.Time `json:"invoice_date"`
	CreatedBy        *uuid.UUID `gorm:"type:uuid" json:"created_by"`
	CreatedAt        time.Time  `gorm:"index" json:"created_at"`
}

func (r *InwardRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
