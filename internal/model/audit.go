package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionCreateBatch      = "CREATE_REQUISITION_BATCH"
	ActionApproveItems     = "APPROVE_REQUISITION_ITEMS"
	ActionRejectBatch      = "REJECT_REQUISITION_BATCH"
	ActionResubmitBatch    = "RESUBMIT_REQUISITION_BATCH"
	ActionVerifyBatch      = "VERIFY_REQUISITION_BATCH"
	ActionAllocateStock    = "ALLOCATE_STOCK"
	ActionOutwardStock     = "OUTWARD_STOCK"
	ActionCreatePO         = "CREATE_PURCHASE_ORDER"
	ActionApprovePO        = "APPROVE_PURCHASE_ORDER"
	ActionRejectPO         = "REJECT_PURCHASE_ORDER"
	ActionRevisePO         = "REVISE_PURCHASE_ORDER"
	ActionMarkPOOrdered    = "MARK_PO_ORDERED"
	ActionMarkPODelivered  = "MARK_PO_DELIVERED"
	ActionCancelPO         = "CANCEL_PURCHASE_ORDER"
	ActionRecordInward     = "RECORD_INWARD"
	ActionCreateInventory  = "CREATE_INVENTORY_ITEM"
	ActionAdjustStock      = "ADJUST_LOCATION_STOCK"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable gracefully if automated bot
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(100);index" json:"entity_id"`       // Reference string (uuid/code)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
