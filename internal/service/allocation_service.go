package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"procurement/internal/apperror"
	"procurement/internal/model"
	"procurement/internal/repository"
	ws "procurement/internal/websocket"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DTOs

type AllocateRequest struct {
	InventoryItemID string `json:"inventory_item_id" binding:"required"`
	ProjectCode     string `json:"project_code" binding:"required"`
	Location        string `json:"location" binding:"required"`
	Quantity        int    `json:"quantity" binding:"required,gt=0"`
	Remarks         string `json:"remarks"`
	// IdempotencyKey lets a caller that timed out replay the allocate
	// without double-reserving stock.
	IdempotencyKey string `json:"idempotency_key"`
}

type OutwardRequest struct {
	Quantity int `json:"quantity" binding:"required,gt=0"`
}

type AllocationResponse struct {
	ID                string `json:"id"`
	InventoryItemID   string `json:"inventory_item_id"`
	ProjectCode       string `json:"project_code"`
	Location          string `json:"location"`
	Quantity          int    `json:"quantity"`
	OutwardedQuantity int    `json:"outwarded_quantity"`
	Status            string `json:"status"`
	Remarks           string `json:"remarks"`
	CreatedAt         string `json:"created_at"`
}

// AllocationService reserves ledger stock for projects. The availability check
// and the reservation form one atomic unit: both happen inside a single
// transaction holding the location's row lock, so two concurrent allocations
// against the same location can never both succeed on the last unit of stock.
type AllocationService interface {
	Allocate(ctx context.Context, actorID string, req AllocateRequest) (*AllocationResponse, error)
	History(ctx context.Context, inventoryItemID string) ([]AllocationResponse, error)
	RecordOutward(ctx context.Context, actorID string, allocationID string, req OutwardRequest) (*AllocationResponse, error)
}

type allocationService struct {
	inventoryRepo repository.InventoryRepository
	auditRepo     repository.AuditRepository
	txManager     repository.TransactionManager
	hub           *ws.Hub
}

func NewAllocationService(
	inventoryRepo repository.InventoryRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) AllocationService {
	return &allocationService{
		inventoryRepo: inventoryRepo,
		auditRepo:     auditRepo,
		txManager:     txManager,
		hub:           hub,
	}
}

func (s *allocationService) Allocate(ctx context.Context, actorID string, req AllocateRequest) (*AllocationResponse, error) {
	itemID, err := uuid.Parse(req.InventoryItemID)
	if err != nil {
		return nil, apperror.Newf(apperror.KindValidation, "INVALID_ID", "invalid inventory item id %q", req.InventoryItemID)
	}

	actor := parseActor(actorID)
	var record *model.AllocationRecord

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		// Replay detection: a retried allocate with the same key returns the
		// original record instead of reserving twice.
		if req.IdempotencyKey != "" {
			existing, findErr := s.inventoryRepo.FindAllocationByKey(txCtx, req.IdempotencyKey)
			if findErr == nil {
				record = existing
				return nil
			}
			if !errors.Is(findErr, gorm.ErrRecordNotFound) {
				return fmt.Errorf("failed to check idempotency key: %w", findErr)
			}
		}

		item, findErr := s.inventoryRepo.FindItemByIDForUpdate(txCtx, itemID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("inventory item", req.InventoryItemID)
			}
			return fmt.Errorf("failed to load inventory item: %w", findErr)
		}

		loc, findErr := s.inventoryRepo.FindLocationForUpdate(txCtx, itemID, req.Location)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("location stock", req.Location)
			}
			return fmt.Errorf("failed to load location stock: %w", findErr)
		}

		// Check-and-reserve under the row lock; no partial write on failure.
		if req.Quantity > loc.Available {
			return apperror.InsufficientStock(item.ItemNo, req.Location, req.Quantity, loc.Available)
		}

		loc.Available -= req.Quantity
		if err := s.inventoryRepo.SaveLocation(txCtx, loc); err != nil {
			return fmt.Errorf("failed to reserve stock: %w", err)
		}

		rec := model.AllocationRecord{
			InventoryItemID: itemID,
			ProjectCode:     req.ProjectCode,
			Location:        req.Location,
			Quantity:        req.Quantity,
			Status:          model.AllocationAllocated,
			Remarks:         req.Remarks,
			CreatedBy:       actor,
		}
		if req.IdempotencyKey != "" {
			key := req.IdempotencyKey
			rec.IdempotencyKey = &key
		}
		if err := s.inventoryRepo.CreateAllocation(txCtx, &rec); err != nil {
			return fmt.Errorf("failed to record allocation: %w", err)
		}
		record = &rec

		return s.audit(txCtx, actor, model.ActionAllocateStock, rec.ID.String(), item.ItemNo, map[string]interface{}{
			"inventory_item_id": req.InventoryItemID,
			"project_code":      req.ProjectCode,
			"location":          req.Location,
			"quantity":          req.Quantity,
		})
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish(ws.EventStockAllocated, map[string]interface{}{
		"inventory_item_id": req.InventoryItemID,
		"project_code":      req.ProjectCode,
		"location":          req.Location,
		"quantity":          req.Quantity,
	})

	resp := toAllocationResponse(*record)
	return &resp, nil
}

func (s *allocationService) History(ctx context.Context, inventoryItemID string) ([]AllocationResponse, error) {
	itemID, err := uuid.Parse(inventoryItemID)
	if err != nil {
		return nil, apperror.Newf(apperror.KindValidation, "INVALID_ID", "invalid inventory item id %q", inventoryItemID)
	}

	recs, err := s.inventoryRepo.ListAllocations(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list allocations: %w", err)
	}

	// An item with no allocations yields an empty history, not an error.
	res := make([]AllocationResponse, 0, len(recs))
	for _, rec := range recs {
		res = append(res, toAllocationResponse(rec))
	}
	return res, nil
}

// RecordOutward is the status-update hook driven by the physical outward-stock
// operation: issued quantities move the record through
// ALLOCATED -> PARTIALLY_OUTWARD -> FULLY_OUTWARD and leave the ledger.
func (s *allocationService) RecordOutward(ctx context.Context, actorID string, allocationID string, req OutwardRequest) (*AllocationResponse, error) {
	allocID, err := uuid.Parse(allocationID)
	if err != nil {
		return nil, apperror.Newf(apperror.KindValidation, "INVALID_ID", "invalid allocation id %q", allocationID)
	}

	actor := parseActor(actorID)
	var record *model.AllocationRecord

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		rec, findErr := s.inventoryRepo.FindAllocationByIDForUpdate(txCtx, allocID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("allocation", allocationID)
			}
			return fmt.Errorf("failed to load allocation: %w", findErr)
		}

		remaining := rec.Quantity - rec.OutwardedQuantity
		if req.Quantity > remaining {
			return apperror.OverOutward(req.Quantity, remaining)
		}

		item, findErr := s.inventoryRepo.FindItemByIDForUpdate(txCtx, rec.InventoryItemID)
		if findErr != nil {
			return fmt.Errorf("failed to load inventory item: %w", findErr)
		}
		loc, findErr := s.inventoryRepo.FindLocationForUpdate(txCtx, rec.InventoryItemID, rec.Location)
		if findErr != nil {
			return fmt.Errorf("failed to load location stock: %w", findErr)
		}

		rec.OutwardedQuantity += req.Quantity
		switch {
		case rec.OutwardedQuantity == rec.Quantity:
			rec.Status = model.AllocationFullyOutward
		default:
			rec.Status = model.AllocationPartiallyOutward
		}

		// Outwarded stock physically leaves: total shrinks, available was
		// already reduced when the allocation reserved it.
		loc.Total -= req.Quantity
		item.TotalStock -= req.Quantity
		if loc.Total < loc.Available || loc.Total < 0 || item.TotalStock < 0 {
			return apperror.Integrity(fmt.Sprintf(
				"outward of %d on allocation %s would corrupt ledger for item %s", req.Quantity, rec.ID, item.ItemNo))
		}

		if err := s.inventoryRepo.SaveAllocation(txCtx, rec); err != nil {
			return fmt.Errorf("failed to update allocation: %w", err)
		}
		if err := s.inventoryRepo.SaveLocation(txCtx, loc); err != nil {
			return fmt.Errorf("failed to update location stock: %w", err)
		}
		if err := s.inventoryRepo.SaveItem(txCtx, item); err != nil {
			return fmt.Errorf("failed to update inventory item: %w", err)
		}
		record = rec

		return s.audit(txCtx, actor, model.ActionOutwardStock, rec.ID.String(), item.ItemNo, map[string]interface{}{
			"allocation_id": allocationID,
			"quantity":      req.Quantity,
			"status":        rec.Status,
		})
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish(ws.EventStockOutward, map[string]interface{}{
		"allocation_id": allocationID,
		"quantity":      req.Quantity,
		"status":        record.Status,
	})

	resp := toAllocationResponse(*record)
	return &resp, nil
}

func (s *allocationService) audit(ctx context.Context, actor *uuid.UUID, action, entityID, entityName string, payload map[string]interface{}) error {
	details, _ := json.Marshal(payload)
	entry := model.AuditLog{
		UserID:     actor,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(details),
	}
	if err := s.auditRepo.Log(ctx, &entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func toAllocationResponse(rec model.AllocationRecord) AllocationResponse {
	return AllocationResponse{
		ID:                rec.ID.String(),
		InventoryItemID:   rec.InventoryItemID.String(),
		ProjectCode:       rec.ProjectCode,
		Location:          rec.Location,
		Quantity:          rec.Quantity,
		OutwardedQuantity: rec.OutwardedQuantity,
		Status:            rec.Status,
		Remarks:           rec.Remarks,
		CreatedAt:         rec.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
