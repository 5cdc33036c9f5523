package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"procurement/internal/apperror"
	"procurement/internal/model"
	"procurement/internal/repository"
	ws "procurement/internal/websocket"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultInwardLocation receives stock when the caller does not name one.
const DefaultInwardLocation = "MAIN-STORE"

// DTOs

type InwardLine struct {
	ItemNo           string `json:"item_no" binding:"required"`
	QuantityReceived int    `json:"quantity_received" binding:"required"`
}

type RecordInwardRequest struct {
	Location      string       `json:"location"`
	InvoiceNumber string       `json:"invoice_number"`
	InvoiceDate   *time.Time   `json:"invoice_date"`
	ReceivedDate  *time.Time   `json:"received_date"`
	Lines         []InwardLine `json:"lines" binding:"required,min=1,dive"`
}

type InwardRecordResponse struct {
	ID               string  `json:"id"`
	PONumber         string  `json:"po_number"`
	ItemNo           string  `json:"item_no"`
	QuantityReceived int     `json:"quantity_received"`
	Location         string  `json:"location"`
	ReceivedDate     string  `json:"received_date"`
	InvoiceNumber    string  `json:"invoice_number"`
	InvoiceDate      *string `json:"invoice_date"`
}

type RecordInwardResponse struct {
	PONumber     string                 `json:"po_number"`
	InwardStatus string                 `json:"inward_status"`
	Records      []InwardRecordResponse `json:"records"`
}

// InwardService reconciles physical receipts against purchase orders and feeds
// the received quantities into the inventory ledger. A batch of receipt lines
// is atomic: every line must validate before any line commits.
type InwardService interface {
	RecordInward(ctx context.Context, actorID string, poNumber string, req RecordInwardRequest) (*RecordInwardResponse, error)
	History(ctx context.Context, poNumber string) ([]InwardRecordResponse, error)
}

type inwardService struct {
	poRepo        repository.PurchaseOrderRepository
	inwardRepo    repository.InwardRepository
	inventoryRepo repository.InventoryRepository
	auditRepo     repository.AuditRepository
	txManager     repository.TransactionManager
	hub           *ws.Hub
}

func NewInwardService(
	poRepo repository.PurchaseOrderRepository,
	inwardRepo repository.InwardRepository,
	inventoryRepo repository.InventoryRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) InwardService {
	return &inwardService{
		poRepo:        poRepo,
		inwardRepo:    inwardRepo,
		inventoryRepo: inventoryRepo,
		auditRepo:     auditRepo,
		txManager:     txManager,
		hub:           hub,
	}
}

func (s *inwardService) RecordInward(ctx context.Context, actorID string, poNumber string, req RecordInwardRequest) (*RecordInwardResponse, error) {
	location := req.Location
	if location == "" {
		location = DefaultInwardLocation
	}
	receivedDate := time.Now()
	if req.ReceivedDate != nil {
		receivedDate = *req.ReceivedDate
	}

	actor := parseActor(actorID)
	var result RecordInwardResponse

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		po, err := s.poRepo.FindByNumberForUpdate(txCtx, poNumber)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("purchase order", poNumber)
			}
			return fmt.Errorf("failed to load purchase order: %w", err)
		}

		lineByItemNo := make(map[string]*model.POLineItem, len(po.Items))
		for i := range po.Items {
			lineByItemNo[po.Items[i].ItemNo] = &po.Items[i]
		}

		// Validate every line before touching anything. One bad line in a
		// single-line batch names the line; any bad line in a multi-line batch
		// rejects the whole batch and lists the offenders.
		var offenders []string
		var singleLineErr *apperror.Error
		for _, line := range req.Lines {
			poLine, ok := lineByItemNo[line.ItemNo]
			switch {
			case !ok:
				offenders = append(offenders, line.ItemNo)
				singleLineErr = apperror.NotFound("line item", line.ItemNo)
			case line.QuantityReceived <= 0:
				offenders = append(offenders, line.ItemNo)
				singleLineErr = apperror.Newf(apperror.KindValidation, "INVALID_QUANTITY",
					"received quantity %d for item %s must be positive", line.QuantityReceived, line.ItemNo)
			case line.QuantityReceived > poLine.RemainingQuantity():
				offenders = append(offenders, line.ItemNo)
				singleLineErr = apperror.OverReceipt(line.ItemNo, line.QuantityReceived, poLine.RemainingQuantity())
			}
		}
		if len(offenders) > 0 {
			if len(req.Lines) == 1 {
				return singleLineErr
			}
			return apperror.PartialBatchRejected(offenders)
		}

		records := make([]model.InwardRecord, 0, len(req.Lines))
		for _, line := range req.Lines {
			poLine := lineByItemNo[line.ItemNo]

			rec := model.InwardRecord{
				PONumber:         poNumber,
				ItemNo:           line.ItemNo,
				QuantityReceived: line.QuantityReceived,
				Location:         location,
				ReceivedDate:     receivedDate,
				InvoiceNumber:    req.InvoiceNumber,
				InvoiceDate:      req.InvoiceDate,
				CreatedBy:        actor,
			}
			if err := s.inwardRepo.Create(txCtx, &rec); err != nil {
				return fmt.Errorf("failed to record inward for item %s: %w", line.ItemNo, err)
			}
			records = append(records, rec)

			poLine.InwardedQuantity += line.QuantityReceived
			if poLine.InwardedQuantity > poLine.Quantity {
				return apperror.Integrity(fmt.Sprintf(
					"inwarded quantity %d exceeds ordered quantity %d for item %s on %s",
					poLine.InwardedQuantity, poLine.Quantity, line.ItemNo, poNumber))
			}
			if err := s.poRepo.SaveItem(txCtx, poLine); err != nil {
				return fmt.Errorf("failed to update line item %s: %w", line.ItemNo, err)
			}

			if err := s.creditLedger(txCtx, poLine, location, line.QuantityReceived); err != nil {
				return err
			}
		}

		result = RecordInwardResponse{
			PONumber:     poNumber,
			InwardStatus: model.DeriveInwardStatus(po.Items),
			Records:      toInwardResponses(records),
		}

		return s.audit(txCtx, actor, poNumber, location, len(records))
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish(ws.EventInwardRecorded, map[string]interface{}{
		"po_number":     poNumber,
		"inward_status": result.InwardStatus,
		"line_count":    len(result.Records),
	})

	return &result, nil
}

// creditLedger adds received stock to the inventory ledger, creating the item
// and the location partition on first receipt. Inward is the only operation
// that grows both total and available.
func (s *inwardService) creditLedger(ctx context.Context, poLine *model.POLineItem, location string, qty int) error {
	item, err := s.inventoryRepo.FindItemByNoForUpdate(ctx, poLine.ItemNo)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to load inventory item %s: %w", poLine.ItemNo, err)
		}
		item = &model.InventoryItem{
			ItemNo:      poLine.ItemNo,
			Description: poLine.Description,
			Unit:        poLine.Unit,
		}
		if err := s.inventoryRepo.CreateItem(ctx, item); err != nil {
			return fmt.Errorf("failed to create inventory item %s: %w", poLine.ItemNo, err)
		}
	}

	item.TotalStock += qty
	if err := s.inventoryRepo.SaveItem(ctx, item); err != nil {
		return fmt.Errorf("failed to update inventory item %s: %w", poLine.ItemNo, err)
	}

	loc, err := s.inventoryRepo.FindLocationForUpdate(ctx, item.ID, location)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to load location stock %s/%s: %w", poLine.ItemNo, location, err)
		}
		loc = &model.LocationStock{
			InventoryItemID: item.ID,
			Location:        location,
			Total:           qty,
			Available:       qty,
		}
		return s.inventoryRepo.CreateLocation(ctx, loc)
	}

	loc.Total += qty
	loc.Available += qty
	if err := s.inventoryRepo.SaveLocation(ctx, loc); err != nil {
		return fmt.Errorf("failed to update location stock %s/%s: %w", poLine.ItemNo, location, err)
	}
	return nil
}

func (s *inwardService) History(ctx context.Context, poNumber string) ([]InwardRecordResponse, error) {
	recs, err := s.inwardRepo.ListByPO(ctx, poNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to list inward records: %w", err)
	}
	return toInwardResponses(recs), nil
}

func (s *inwardService) audit(ctx context.Context, actor *uuid.UUID, poNumber, location string, count int) error {
	details, _ := json.Marshal(map[string]interface{}{
		"po_number":  poNumber,
		"location":   location,
		"line_count": count,
	})
	entry := model.AuditLog{
		UserID:   actor,
		Action:   model.ActionRecordInward,
		EntityID: poNumber,
		Details:  string(details),
	}
	if err := s.auditRepo.Log(ctx, &entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func toInwardResponses(recs []model.InwardRecord) []InwardRecordResponse {
	res := make([]InwardRecordResponse, 0, len(recs))
	for _, rec := range recs {
		resp := InwardRecordResponse{
			ID:               rec.ID.String(),
			PONumber:         rec.PONumber,
			ItemNo:           rec.ItemNo,
			QuantityReceived: rec.QuantityReceived,
			Location:         rec.Location,
			ReceivedDate:     rec.ReceivedDate.Format(time.RFC3339),
			InvoiceNumber:    rec.InvoiceNumber,
		}
		if rec.InvoiceDate != nil {
			d := rec.InvoiceDate.Format("2006-01-02")
			resp.InvoiceDate = &d
		}
		res = append(res, resp)
	}
	return res
}
