package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RevisionEntityType constants
const (
	RevisionEntityRequisitionItem = "REQUISITION_ITEM"
	RevisionEntityPurchaseOrder   = "PURCHASE_ORDER"
)

// RevisionKind constants
const (
	RevisionKindRevision     = "revision"     // edit of an approved PO, bumps version
	RevisionKindResubmission = "resubmission" // edit of a rejected entity, same version
)

// DiffKind constants for individual field changes
const (
	DiffUpdated = "updated"
	DiffAdded   = "added"
	DiffRemoved = "removed"
)

// FieldDiff is one tagged field-level change within a revision entry.
type FieldDiff struct {
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
	Kind  string `json:"kind"` // updated, added, removed
}

// RevisionEntry is an immutable, append-only audit record of one save operation
// (requisition resubmit or PO edit). Changes holds the serialized []FieldDiff.
type RevisionEntry struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	EntityType string     `gorm:"type:varchar(30);not null;index:idx_revision_entity" json:"entity_type"`
	EntityID   string     `gorm:"type:varchar(100);not null;index:idx_revision_entity" json:"entity_id"`
	Kind       string     `gorm:"type:varchar(20);not null" json:"kind"`
	Actor      *uuid.UUID `gorm:"type:uuid" json:"actor"`
	Note       string     `gorm:"type:text" json:"note"`
	Changes    string     `gorm:"type:jsonb;not null" json:"changes"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (r *RevisionEntry) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
