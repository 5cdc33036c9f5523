package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"procurement/internal/apperror"
	"procurement/internal/model"
	"procurement/internal/repository"
	ws "procurement/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// versionStep is the flat bump applied when an approved PO is revised.
// Rejected POs resubmit at the same version.
var versionStep = decimal.NewFromInt(1)

// DTOs

type POCreateLine struct {
	MasterEntryID string `json:"master_entry_id" binding:"required"`
	UnitPrice     string `json:"unit_price" binding:"required"`
}

type CreatePORequest struct {
	PONumber         string         `json:"po_number" binding:"required"`
	ProjectCode      string         `json:"project_code" binding:"required"`
	VendorSnapshot   string         `json:"vendor_snapshot"`
	ConsigneeAddress string         `json:"consignee_address"`
	InvoiceAddress   string         `json:"invoice_address"`
	Lines            []POCreateLine `json:"lines" binding:"required,min=1,dive"`
}

type RejectPORequest struct {
	Remarks string `json:"remarks"`
}

// EditPOLine modifies an existing line (by id) or pulls a new line from an
// unconsumed master entry of the same project (by master_entry_id).
type EditPOLine struct {
	ID            string `json:"id"`
	MasterEntryID string `json:"master_entry_id"`
	Quantity      int    `json:"quantity"`
	UnitPrice     string `json:"unit_price"`
}

type EditPORequest struct {
	ConsigneeAddress *string      `json:"consignee_address"`
	InvoiceAddress   *string      `json:"invoice_address"`
	Lines            []EditPOLine `json:"lines"`
	Note             string       `json:"note"`
}

type POLineItemResponse struct {
	ID                string `json:"id"`
	ItemNo            string `json:"item_no"`
	Description       string `json:"description"`
	Quantity          int    `json:"quantity"`
	UnitPrice         string `json:"unit_price"`
	TotalPrice        string `json:"total_price"`
	InwardedQuantity  int    `json:"inwarded_quantity"`
	RemainingQuantity int    `json:"remaining_quantity"`
	IsRevised         bool   `json:"is_revised"`
}

type PurchaseOrderResponse struct {
	PONumber         string               `json:"po_number"`
	Version          string               `json:"version"`
	Status           string               `json:"status"`
	ProjectCode      string               `json:"project_code"`
	TotalAmount      string               `json:"total_amount"`
	RejectionRemarks string               `json:"rejection_remarks"`
	ApprovalDate     *string              `json:"approval_date"`
	ApprovedBy       *string              `json:"approved_by"`
	InwardStatus     string               `json:"inward_status"`
	Items            []POLineItemResponse `json:"items"`
}

// PurchaseOrderService owns PO status, version/revision semantics and
// re-approval after edits. inward status is always derived from the line
// items, never stored, so it cannot drift from the inward ledger.
type PurchaseOrderService interface {
	Create(ctx context.Context, actorID string, req CreatePORequest) (*PurchaseOrderResponse, error)
	Get(ctx context.Context, poNumber string) (*PurchaseOrderResponse, error)
	List(ctx context.Context, status string, page, limit int) ([]PurchaseOrderResponse, int64, error)
	Approve(ctx context.Context, actorID string, poNumber string) (*PurchaseOrderResponse, error)
	Reject(ctx context.Context, actorID string, poNumber string, req RejectPORequest) (*PurchaseOrderResponse, error)
	Edit(ctx context.Context, actorID string, poNumber string, req EditPORequest) (*PurchaseOrderResponse, error)
	MarkOrdered(ctx context.Context, actorID string, poNumber string) (*PurchaseOrderResponse, error)
	MarkDelivered(ctx context.Context, actorID string, poNumber string) (*PurchaseOrderResponse, error)
	Cancel(ctx context.Context, actorID string, poNumber string) (*PurchaseOrderResponse, error)
	InwardStatus(ctx context.Context, poNumber string) (string, error)
}

type purchaseOrderService struct {
	poRepo       repository.PurchaseOrderRepository
	masterRepo   repository.MasterEntryRepository
	revisionRepo repository.RevisionRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	hub          *ws.Hub
}

func NewPurchaseOrderService(
	poRepo repository.PurchaseOrderRepository,
	masterRepo repository.MasterEntryRepository,
	revisionRepo repository.RevisionRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) PurchaseOrderService {
	return &purchaseOrderService{
		poRepo:       poRepo,
		masterRepo:   masterRepo,
		revisionRepo: revisionRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		hub:          hub,
	}
}

func (s *purchaseOrderService) Create(ctx context.Context, actorID string, req CreatePORequest) (*PurchaseOrderResponse, error) {
	actor := parseActor(actorID)

	entryIDs := make([]uuid.UUID, 0, len(req.Lines))
	priceByEntry := make(map[uuid.UUID]decimal.Decimal, len(req.Lines))
	for _, line := range req.Lines {
		id, err := uuid.Parse(line.MasterEntryID)
		if err != nil {
			return nil, apperror.Newf(apperror.KindValidation, "INVALID_ID", "invalid master entry id %q", line.MasterEntryID)
		}
		price, err := decimal.NewFromString(line.UnitPrice)
		if err != nil || price.IsNegative() {
			return nil, apperror.Newf(apperror.KindValidation, "INVALID_PRICE", "invalid unit price %q", line.UnitPrice)
		}
		entryIDs = append(entryIDs, id)
		priceByEntry[id] = price
	}

	var po model.PurchaseOrder
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		entries, err := s.masterRepo.FindUnconsumedByIDs(txCtx, entryIDs)
		if err != nil {
			return fmt.Errorf("failed to load master entries: %w", err)
		}
		if len(entries) != len(entryIDs) {
			found := make(map[uuid.UUID]bool, len(entries))
			for _, e := range entries {
				found[e.ID] = true
			}
			for _, id := range entryIDs {
				if !found[id] {
					entry, findErr := s.masterRepo.FindByID(txCtx, id)
					if findErr != nil {
						return apperror.NotFound("master entry", id.String())
					}
					return apperror.MasterEntryConsumed(id.String(), *entry.PONumber)
				}
			}
		}

		po = model.PurchaseOrder{
			PONumber:         req.PONumber,
			Version:          decimal.NewFromInt(1),
			Status:           model.POStatusPendingApproval,
			ProjectCode:      req.ProjectCode,
			VendorSnapshot:   req.VendorSnapshot,
			ConsigneeAddress: req.ConsigneeAddress,
			InvoiceAddress:   req.InvoiceAddress,
			CreatedBy:        actor,
		}

		total := decimal.Zero
		items := make([]model.POLineItem, 0, len(entries))
		for _, entry := range entries {
			if entry.ProjectCode != req.ProjectCode {
				return apperror.Newf(apperror.KindValidation, "PROJECT_MISMATCH",
					"master entry %s belongs to project %s", entry.ID, entry.ProjectCode)
			}
			price := priceByEntry[entry.ID]
			lineTotal := price.Mul(decimal.NewFromInt(int64(entry.OrderingQty)))
			items = append(items, model.POLineItem{
				ItemNo:      entry.ItemNo,
				Description: entry.Description,
				Unit:        entry.Unit,
				Quantity:    entry.OrderingQty,
				UnitPrice:   price,
				TotalPrice:  lineTotal,
			})
			total = total.Add(lineTotal)
		}
		po.TotalAmount = total

		if err := s.poRepo.Create(txCtx, &po); err != nil {
			return fmt.Errorf("failed to create purchase order: %w", err)
		}
		for i := range items {
			items[i].POID = po.ID
		}
		if err := s.poRepo.CreateItems(txCtx, items); err != nil {
			return fmt.Errorf("failed to create line items: %w", err)
		}
		po.Items = items

		// Consume the master entries so they cannot be sourced twice.
		for i := range entries {
			entries[i].PONumber = &po.PONumber
			if err := s.masterRepo.Save(txCtx, &entries[i]); err != nil {
				return fmt.Errorf("failed to consume master entry %s: %w", entries[i].ID, err)
			}
		}

		return s.audit(txCtx, actor, model.ActionCreatePO, po.PONumber, req.ProjectCode, map[string]interface{}{
			"po_number":    po.PONumber,
			"project_code": req.ProjectCode,
			"total_amount": total.StringFixed(2),
			"line_count":   len(items),
		})
	})
	if err != nil {
		return nil, err
	}

	resp := toPOResponse(po)
	return &resp, nil
}

func (s *purchaseOrderService) Get(ctx context.Context, poNumber string) (*PurchaseOrderResponse, error) {
	po, err := s.poRepo.FindByNumber(ctx, poNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("purchase order", poNumber)
		}
		return nil, fmt.Errorf("failed to load purchase order: %w", err)
	}
	resp := toPOResponse(*po)
	return &resp, nil
}

func (s *purchaseOrderService) List(ctx context.Context, status string, page, limit int) ([]PurchaseOrderResponse, int64, error) {
	pos, total, err := s.poRepo.List(ctx, status, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list purchase orders: %w", err)
	}
	res := make([]PurchaseOrderResponse, 0, len(pos))
	for _, po := range pos {
		res = append(res, toPOResponse(po))
	}
	return res, total, nil
}

func (s *purchaseOrderService) Approve(ctx context.Context, actorID string, poNumber string) (*PurchaseOrderResponse, error) {
	actor := parseActor(actorID)
	var result model.PurchaseOrder

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		po, err := s.loadForUpdate(txCtx, poNumber)
		if err != nil {
			return err
		}
		if po.Status != model.POStatusPendingApproval {
			return apperror.NotPendingApproval(poNumber, po.Status)
		}

		now := time.Now()
		po.Status = model.POStatusApproved
		po.ApprovalDate = &now
		po.ApprovedBy = actor

		if err := s.savePO(txCtx, po); err != nil {
			return err
		}
		result = *po
		return s.audit(txCtx, actor, model.ActionApprovePO, poNumber, "", map[string]interface{}{
			"po_number": poNumber,
			"version":   po.Version.StringFixed(1),
		})
	})
	if err != nil {
		return nil, err
	}

	s.publishStatus(result)
	resp := toPOResponse(result)
	return &resp, nil
}

func (s *purchaseOrderService) Reject(ctx context.Context, actorID string, poNumber string, req RejectPORequest) (*PurchaseOrderResponse, error) {
	remarks := strings.TrimSpace(req.Remarks)
	if remarks == "" {
		return nil, apperror.MissingRemarks()
	}

	actor := parseActor(actorID)
	var result model.PurchaseOrder

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		po, err := s.loadForUpdate(txCtx, poNumber)
		if err != nil {
			return err
		}
		if po.Status != model.POStatusPendingApproval {
			return apperror.NotPendingApproval(poNumber, po.Status)
		}

		po.Status = model.POStatusRejected
		po.RejectionRemarks = remarks

		if err := s.savePO(txCtx, po); err != nil {
			return err
		}
		result = *po
		return s.audit(txCtx, actor, model.ActionRejectPO, poNumber, "", map[string]interface{}{
			"po_number": poNumber,
			"remarks":   remarks,
		})
	})
	if err != nil {
		return nil, err
	}

	s.publishStatus(result)
	resp := toPOResponse(result)
	return &resp, nil
}

// Edit applies changes to an approved or rejected PO.
//
// Approved POs get a revision: version bumps by exactly 1.0, status falls back
// to pending approval, the approval stamp is cleared, and the revision entry
// carries a synthetic status diff alongside the field changes. Rejected POs
// resubmit at the same version with the rejection remarks cleared. Every other
// state refuses the edit.
func (s *purchaseOrderService) Edit(ctx context.Context, actorID string, poNumber string, req EditPORequest) (*PurchaseOrderResponse, error) {
	actor := parseActor(actorID)
	var result model.PurchaseOrder

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		po, err := s.loadForUpdate(txCtx, poNumber)
		if err != nil {
			return err
		}

		var kind string
		var b diffBuilder

		switch po.Status {
		case model.POStatusApproved:
			kind = model.RevisionKindRevision
			po.Version = po.Version.Add(versionStep)
			po.ApprovalDate = nil
			po.ApprovedBy = nil
			b.update("status", model.POStatusApproved, model.POStatusPendingApproval)
		case model.POStatusRejected:
			kind = model.RevisionKindResubmission
			b.update("status", model.POStatusRejected, model.POStatusPendingApproval)
			po.RejectionRemarks = ""
		default:
			return apperror.InvalidEditState(poNumber, po.Status)
		}
		po.Status = model.POStatusPendingApproval

		if req.ConsigneeAddress != nil {
			b.update("consignee_address", po.ConsigneeAddress, *req.ConsigneeAddress)
			po.ConsigneeAddress = *req.ConsigneeAddress
		}
		if req.InvoiceAddress != nil {
			b.update("invoice_address", po.InvoiceAddress, *req.InvoiceAddress)
			po.InvoiceAddress = *req.InvoiceAddress
		}

		if err := s.applyLineEdits(txCtx, po, req.Lines, kind, &b); err != nil {
			return err
		}

		total := decimal.Zero
		for _, item := range po.Items {
			total = total.Add(item.TotalPrice)
		}
		b.update("total_amount", po.TotalAmount.StringFixed(2), total.StringFixed(2))
		po.TotalAmount = total

		if err := s.savePO(txCtx, po); err != nil {
			return err
		}

		entry := model.RevisionEntry{
			EntityType: model.RevisionEntityPurchaseOrder,
			EntityID:   poNumber,
			Kind:       kind,
			Actor:      actor,
			Note:       req.Note,
			Changes:    b.marshal(),
		}
		if err := s.revisionRepo.Create(txCtx, &entry); err != nil {
			return fmt.Errorf("failed to record revision: %w", err)
		}

		result = *po
		return s.audit(txCtx, actor, model.ActionRevisePO, poNumber, kind, map[string]interface{}{
			"po_number": poNumber,
			"kind":      kind,
			"version":   po.Version.StringFixed(1),
		})
	})
	if err != nil {
		return nil, err
	}

	s.publishStatus(result)
	resp := toPOResponse(result)
	return &resp, nil
}

// applyLineEdits modifies existing lines in place and sources new lines from
// unconsumed master entries of the PO's project. Lines added during a revision
// of an approved PO are flagged is_revised.
func (s *purchaseOrderService) applyLineEdits(ctx context.Context, po *model.PurchaseOrder, lines []EditPOLine, kind string, b *diffBuilder) error {
	byID := make(map[uuid.UUID]*model.POLineItem, len(po.Items))
	for i := range po.Items {
		byID[po.Items[i].ID] = &po.Items[i]
	}

	for _, edit := range lines {
		switch {
		case edit.ID != "":
			lineID, err := uuid.Parse(edit.ID)
			if err != nil {
				return apperror.Newf(apperror.KindValidation, "INVALID_ID", "invalid line item id %q", edit.ID)
			}
			item, ok := byID[lineID]
			if !ok {
				return apperror.NotFound("line item", edit.ID)
			}
			if edit.Quantity > 0 && edit.Quantity != item.Quantity {
				if edit.Quantity < item.InwardedQuantity {
					return apperror.Integrity(fmt.Sprintf(
						"line %s quantity %d would fall below inwarded quantity %d", item.ItemNo, edit.Quantity, item.InwardedQuantity))
				}
				b.updateInt("item:"+item.ItemNo+":quantity", item.Quantity, edit.Quantity)
				item.Quantity = edit.Quantity
			}
			if edit.UnitPrice != "" {
				price, err := decimal.NewFromString(edit.UnitPrice)
				if err != nil || price.IsNegative() {
					return apperror.Newf(apperror.KindValidation, "INVALID_PRICE", "invalid unit price %q", edit.UnitPrice)
				}
				if !price.Equal(item.UnitPrice) {
					b.update("item:"+item.ItemNo+":unit_price", item.UnitPrice.StringFixed(2), price.StringFixed(2))
					item.UnitPrice = price
				}
			}
			item.TotalPrice = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
			if err := s.poRepo.SaveItem(ctx, item); err != nil {
				return fmt.Errorf("failed to update line item: %w", err)
			}

		case edit.MasterEntryID != "":
			entryID, err := uuid.Parse(edit.MasterEntryID)
			if err != nil {
				return apperror.Newf(apperror.KindValidation, "INVALID_ID", "invalid master entry id %q", edit.MasterEntryID)
			}
			entries, err := s.masterRepo.FindUnconsumedByIDs(ctx, []uuid.UUID{entryID})
			if err != nil {
				return fmt.Errorf("failed to load master entry: %w", err)
			}
			if len(entries) == 0 {
				entry, findErr := s.masterRepo.FindByID(ctx, entryID)
				if findErr != nil {
					return apperror.NotFound("master entry", edit.MasterEntryID)
				}
				return apperror.MasterEntryConsumed(edit.MasterEntryID, *entry.PONumber)
			}
			entry := entries[0]
			if entry.ProjectCode != po.ProjectCode {
				return apperror.Newf(apperror.KindValidation, "PROJECT_MISMATCH",
					"master entry %s belongs to project %s", entry.ID, entry.ProjectCode)
			}
			price, err := decimal.NewFromString(edit.UnitPrice)
			if err != nil || price.IsNegative() {
				return apperror.Newf(apperror.KindValidation, "INVALID_PRICE", "invalid unit price %q", edit.UnitPrice)
			}

			qty := entry.OrderingQty
			if edit.Quantity > 0 {
				qty = edit.Quantity
			}
			newItem := model.POLineItem{
				POID:        po.ID,
				ItemNo:      entry.ItemNo,
				Description: entry.Description,
				Unit:        entry.Unit,
				Quantity:    qty,
				UnitPrice:   price,
				TotalPrice:  price.Mul(decimal.NewFromInt(int64(qty))),
				IsRevised:   kind == model.RevisionKindRevision,
			}
			newItems := []model.POLineItem{newItem}
			if err := s.poRepo.CreateItems(ctx, newItems); err != nil {
				return fmt.Errorf("failed to add line item: %w", err)
			}
			po.Items = append(po.Items, newItems[0])
			b.add("item:"+entry.ItemNo, fmt.Sprintf("qty=%d unit_price=%s", qty, price.StringFixed(2)))

			entry.PONumber = &po.PONumber
			if err := s.masterRepo.Save(ctx, &entry); err != nil {
				return fmt.Errorf("failed to consume master entry %s: %w", entry.ID, err)
			}

		default:
			return apperror.Newf(apperror.KindValidation, "INVALID_LINE", "line edit needs an id or master_entry_id")
		}
	}
	return nil
}

func (s *purchaseOrderService) MarkOrdered(ctx context.Context, actorID string, poNumber string) (*PurchaseOrderResponse, error) {
	return s.transition(ctx, actorID, poNumber, model.POStatusOrdered, model.ActionMarkPOOrdered, model.POStatusApproved)
}

func (s *purchaseOrderService) MarkDelivered(ctx context.Context, actorID string, poNumber string) (*PurchaseOrderResponse, error) {
	return s.transition(ctx, actorID, poNumber, model.POStatusDelivered, model.ActionMarkPODelivered, model.POStatusOrdered)
}

func (s *purchaseOrderService) Cancel(ctx context.Context, actorID string, poNumber string) (*PurchaseOrderResponse, error) {
	return s.transition(ctx, actorID, poNumber, model.POStatusCancelled, model.ActionCancelPO,
		model.POStatusPendingApproval, model.POStatusApproved, model.POStatusOrdered)
}

func (s *purchaseOrderService) transition(ctx context.Context, actorID, poNumber, target, action string, allowedFrom ...string) (*PurchaseOrderResponse, error) {
	actor := parseActor(actorID)
	var result model.PurchaseOrder

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		po, err := s.loadForUpdate(txCtx, poNumber)
		if err != nil {
			return err
		}

		allowed := false
		for _, from := range allowedFrom {
			if po.Status == from {
				allowed = true
				break
			}
		}
		if !allowed {
			return apperror.InvalidTransition(poNumber, po.Status, target)
		}

		po.Status = target
		if err := s.savePO(txCtx, po); err != nil {
			return err
		}
		result = *po
		return s.audit(txCtx, actor, action, poNumber, "", map[string]interface{}{
			"po_number": poNumber,
			"status":    target,
		})
	})
	if err != nil {
		return nil, err
	}

	s.publishStatus(result)
	resp := toPOResponse(result)
	return &resp, nil
}

// InwardStatus derives the PO-level receipt state from the line items on read.
func (s *purchaseOrderService) InwardStatus(ctx context.Context, poNumber string) (string, error) {
	po, err := s.poRepo.FindByNumber(ctx, poNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperror.NotFound("purchase order", poNumber)
		}
		return "", fmt.Errorf("failed to load purchase order: %w", err)
	}
	return model.DeriveInwardStatus(po.Items), nil
}

// Helpers

func (s *purchaseOrderService) loadForUpdate(ctx context.Context, poNumber string) (*model.PurchaseOrder, error) {
	po, err := s.poRepo.FindByNumberForUpdate(ctx, poNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("purchase order", poNumber)
		}
		return nil, fmt.Errorf("failed to load purchase order: %w", err)
	}
	return po, nil
}

func (s *purchaseOrderService) savePO(ctx context.Context, po *model.PurchaseOrder) error {
	// Items are persisted individually; saving the association again would
	// duplicate lines.
	items := po.Items
	po.Items = nil
	err := s.poRepo.Save(ctx, po)
	po.Items = items
	if err != nil {
		return fmt.Errorf("failed to save purchase order: %w", err)
	}
	return nil
}

func (s *purchaseOrderService) publishStatus(po model.PurchaseOrder) {
	s.hub.Publish(ws.EventPOStatus, map[string]interface{}{
		"po_number": po.PONumber,
		"status":    po.Status,
		"version":   po.Version.StringFixed(1),
	})
}

func (s *purchaseOrderService) audit(ctx context.Context, actor *uuid.UUID, action, entityID, entityName string, payload map[string]interface{}) error {
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

func toPOResponse(po model.PurchaseOrder) PurchaseOrderResponse {
	resp := PurchaseOrderResponse{
		PONumber:         po.PONumber,
		Version:          po.Version.StringFixed(1),
		Status:           po.Status,
		ProjectCode:      po.ProjectCode,
		TotalAmount:      po.TotalAmount.StringFixed(2),
		RejectionRemarks: po.RejectionRemarks,
		InwardStatus:     model.DeriveInwardStatus(po.Items),
		Items:            make([]POLineItemResponse, 0, len(po.Items)),
	}
	if po.ApprovalDate != nil {
		d := po.ApprovalDate.Format(time.RFC3339)
		resp.ApprovalDate = &d
	}
	if po.ApprovedBy != nil {
		a := po.ApprovedBy.String()
		resp.ApprovedBy = &a
	}
	for _, item := range po.Items {
		resp.Items = append(resp.Items, POLineItemResponse{
			ID:                item.ID.String(),
			ItemNo:            item.ItemNo,
			Description:       item.Description,
			Quantity:          item.Quantity,
			UnitPrice:         item.UnitPrice.StringFixed(2),
			TotalPrice:        item.TotalPrice.StringFixed(2),
			InwardedQuantity:  item.InwardedQuantity,
			RemainingQuantity: item.RemainingQuantity(),
			IsRevised:         item.IsRevised,
		})
	}
	return resp
}
