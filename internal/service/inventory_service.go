package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"procurement/internal/apperror"
	"procurement/internal/model"
	"procurement/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DTOs

type CreateInventoryItemRequest struct {
	ItemNo      string `json:"item_no" binding:"required"`
	Description string `json:"description"`
	Unit        string `json:"unit" binding:"required"`
}

// AdjustStockRequest applies a manual correction (count, damage write-off) to
// one location. Delta may be negative but can never push availability below
// the quantity reserved by active allocations.
type AdjustStockRequest struct {
	Location string `json:"location" binding:"required"`
	Delta    int    `json:"delta" binding:"required"`
	Remarks  string `json:"remarks"`
}

type LocationStockResponse struct {
	Location  string `json:"location"`
	Total     int    `json:"total"`
	Available int    `json:"available"`
}

type InventoryItemResponse struct {
	ID          string                  `json:"id"`
	ItemNo      string                  `json:"item_no"`
	Description string                  `json:"description"`
	Unit        string                  `json:"unit"`
	TotalStock  int                     `json:"total_stock"`
	Locations   []LocationStockResponse `json:"locations"`
}

// InventoryService manages the stock ledger entities directly: item creation
// and manual stock adjustments. Receipts and reservations flow through the
// inward and allocation services.
type InventoryService interface {
	CreateItem(ctx context.Context, actorID string, req CreateInventoryItemRequest) (*InventoryItemResponse, error)
	GetItem(ctx context.Context, itemNo string) (*InventoryItemResponse, error)
	ListItems(ctx context.Context, page, limit int) ([]InventoryItemResponse, int64, error)
	AdjustStock(ctx context.Context, actorID string, itemNo string, req AdjustStockRequest) (*InventoryItemResponse, error)
}

type inventoryService struct {
	inventoryRepo repository.InventoryRepository
	auditRepo     repository.AuditRepository
	txManager     repository.TransactionManager
}

func NewInventoryService(
	inventoryRepo repository.InventoryRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) InventoryService {
	return &inventoryService{
		inventoryRepo: inventoryRepo,
		auditRepo:     auditRepo,
		txManager:     txManager,
	}
}

func (s *inventoryService) CreateItem(ctx context.Context, actorID string, req CreateInventoryItemRequest) (*InventoryItemResponse, error) {
	if _, err := s.inventoryRepo.FindItemByNo(ctx, req.ItemNo); err == nil {
		return nil, apperror.Newf(apperror.KindValidation, "ITEM_EXISTS", "inventory item %s already exists", req.ItemNo)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check inventory item: %w", err)
	}

	actor := parseActor(actorID)
	item := model.InventoryItem{
		ItemNo:      req.ItemNo,
		Description: req.Description,
		Unit:        req.Unit,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.inventoryRepo.CreateItem(txCtx, &item); err != nil {
			return fmt.Errorf("failed to create inventory item: %w", err)
		}
		return s.audit(txCtx, actor, model.ActionCreateInventory, item.ID.String(), req.ItemNo, map[string]interface{}{
			"item_no": req.ItemNo,
			"unit":    req.Unit,
		})
	})
	if err != nil {
		return nil, err
	}

	resp := toInventoryResponse(item)
	return &resp, nil
}

func (s *inventoryService) GetItem(ctx context.Context, itemNo string) (*InventoryItemResponse, error) {
	item, err := s.inventoryRepo.FindItemByNo(ctx, itemNo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("inventory item", itemNo)
		}
		return nil, fmt.Errorf("failed to load inventory item: %w", err)
	}
	resp := toInventoryResponse(*item)
	return &resp, nil
}

func (s *inventoryService) ListItems(ctx context.Context, page, limit int) ([]InventoryItemResponse, int64, error) {
	items, total, err := s.inventoryRepo.ListItems(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list inventory items: %w", err)
	}
	res := make([]InventoryItemResponse, 0, len(items))
	for _, item := range items {
		res = append(res, toInventoryResponse(item))
	}
	return res, total, nil
}

func (s *inventoryService) AdjustStock(ctx context.Context, actorID string, itemNo string, req AdjustStockRequest) (*InventoryItemResponse, error) {
	actor := parseActor(actorID)
	var result model.InventoryItem

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		item, err := s.inventoryRepo.FindItemByNoForUpdate(txCtx, itemNo)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("inventory item", itemNo)
			}
			return fmt.Errorf("failed to load inventory item: %w", err)
		}

		loc, err := s.inventoryRepo.FindLocationForUpdate(txCtx, item.ID, req.Location)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("failed to load location stock: %w", err)
			}
			if req.Delta < 0 {
				return apperror.InsufficientStock(itemNo, req.Location, -req.Delta, 0)
			}
			loc = &model.LocationStock{
				InventoryItemID: item.ID,
				Location:        req.Location,
				Total:           req.Delta,
				Available:       req.Delta,
			}
			if err := s.inventoryRepo.CreateLocation(txCtx, loc); err != nil {
				return fmt.Errorf("failed to create location stock: %w", err)
			}
		} else {
			// A negative delta can only take un-reserved stock.
			if req.Delta < 0 && -req.Delta > loc.Available {
				return apperror.InsufficientStock(itemNo, req.Location, -req.Delta, loc.Available)
			}
			loc.Total += req.Delta
			loc.Available += req.Delta
			if loc.Total < 0 || loc.Available < 0 || loc.Total < loc.Available {
				return apperror.Integrity(fmt.Sprintf(
					"adjustment of %d at %s would corrupt ledger for item %s", req.Delta, req.Location, itemNo))
			}
			if err := s.inventoryRepo.SaveLocation(txCtx, loc); err != nil {
				return fmt.Errorf("failed to update location stock: %w", err)
			}
		}

		item.TotalStock += req.Delta
		if item.TotalStock < 0 {
			return apperror.Integrity(fmt.Sprintf("total stock for item %s would go negative", itemNo))
		}
		if err := s.inventoryRepo.SaveItem(txCtx, item); err != nil {
			return fmt.Errorf("failed to update inventory item: %w", err)
		}

		result = *item
		return s.audit(txCtx, actor, model.ActionAdjustStock, item.ID.String(), itemNo, map[string]interface{}{
			"item_no":  itemNo,
			"location": req.Location,
			"delta":    req.Delta,
			"remarks":  req.Remarks,
		})
	})
	if err != nil {
		return nil, err
	}

	resp := toInventoryResponse(result)
	return &resp, nil
}

func (s *inventoryService) audit(ctx context.Context, actor *uuid.UUID, action, entityID, entityName string, payload map[string]interface{}) error {
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

func toInventoryResponse(item model.InventoryItem) InventoryItemResponse {
	resp := InventoryItemResponse{
		ID:          item.ID.String(),
		ItemNo:      item.ItemNo,
		Description: item.Description,
		Unit:        item.Unit,
		TotalStock:  item.TotalStock,
		Locations:   make([]LocationStockResponse, 0, len(item.Locations)),
	}
	for _, loc := range item.Locations {
		resp.Locations = append(resp.Locations, LocationStockResponse{
			Location:  loc.Location,
			Total:     loc.Total,
			Available: loc.Available,
		})
	}
	return resp
}
