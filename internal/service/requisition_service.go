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

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DTOs

type RequisitionLineRequest struct {
	ItemNo           string `json:"item_no" binding:"required"`
	Description      string `json:"description"`
	RequiredQuantity int    `json:"required_quantity" binding:"required,gt=0"`
	Unit             string `json:"unit" binding:"required"`
}

type CreateBatchRequest struct {
	BatchID     string                   `json:"batch_id" binding:"required"`
	ProjectCode string                   `json:"project_code" binding:"required"`
	Items       []RequisitionLineRequest `json:"items" binding:"required,min=1,dive"`
}

type ApproveItemsRequest struct {
	ItemIDs []string `json:"item_ids"`
}

type RejectBatchRequest struct {
	Remarks string `json:"remarks"`
}

type ResubmitItemRequest struct {
	ID               string `json:"id" binding:"required"`
	Description      string `json:"description"`
	RequiredQuantity int    `json:"required_quantity" binding:"required,gt=0"`
	Unit             string `json:"unit" binding:"required"`
}

type ResubmitBatchRequest struct {
	Items []ResubmitItemRequest `json:"items" binding:"required,min=1,dive"`
	Note  string                `json:"note"`
}

type RequisitionItemResponse struct {
	ID                string `json:"id"`
	BatchID           string `json:"batch_id"`
	ProjectCode       string `json:"project_code"`
	ItemNo            string `json:"item_no"`
	Description       string `json:"description"`
	RequiredQuantity  int    `json:"required_quantity"`
	Unit              string `json:"unit"`
	Status            string `json:"status"`
	ApprovedStatus    bool   `json:"approved_status"`
	RejectionRemarks  string `json:"rejection_remarks"`
	MasterEntryExists bool   `json:"master_entry_exists"`
}

// RequisitionService drives the requisition batch workflow: creation, partial
// approval, whole-batch rejection and edit-and-resubmit with revision history.
type RequisitionService interface {
	CreateBatch(ctx context.Context, actorID string, req CreateBatchRequest) ([]RequisitionItemResponse, error)
	ApproveItems(ctx context.Context, actorID string, batchID string, req ApproveItemsRequest) ([]RequisitionItemResponse, error)
	RejectBatch(ctx context.Context, actorID string, batchID string, req RejectBatchRequest) ([]RequisitionItemResponse, error)
	Resubmit(ctx context.Context, actorID string, batchID string, req ResubmitBatchRequest) ([]RequisitionItemResponse, error)
	GetBatch(ctx context.Context, batchID string) ([]RequisitionItemResponse, error)
}

type requisitionService struct {
	requisitionRepo repository.RequisitionRepository
	revisionRepo    repository.RevisionRepository
	auditRepo       repository.AuditRepository
	txManager       repository.TransactionManager
}

func NewRequisitionService(
	requisitionRepo repository.RequisitionRepository,
	revisionRepo repository.RevisionRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) RequisitionService {
	return &requisitionService{
		requisitionRepo: requisitionRepo,
		revisionRepo:    revisionRepo,
		auditRepo:       auditRepo,
		txManager:       txManager,
	}
}

func (s *requisitionService) CreateBatch(ctx context.Context, actorID string, req CreateBatchRequest) ([]RequisitionItemResponse, error) {
	existing, err := s.requisitionRepo.FindBatch(ctx, req.BatchID)
	if err != nil {
		return nil, fmt.Errorf("failed to check batch: %w", err)
	}
	if len(existing) > 0 {
		return nil, apperror.Newf(apperror.KindValidation, "BATCH_EXISTS", "batch %s already exists", req.BatchID)
	}

	actor := parseActor(actorID)
	items := make([]model.RequisitionItem, 0, len(req.Items))
	for _, line := range req.Items {
		items = append(items, model.RequisitionItem{
			BatchID:          req.BatchID,
			ProjectCode:      req.ProjectCode,
			ItemNo:           line.ItemNo,
			Description:      line.Description,
			RequiredQuantity: line.RequiredQuantity,
			Unit:             line.Unit,
			Status:           model.RequisitionPending,
			RequestedBy:      actor,
		})
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.requisitionRepo.CreateItems(txCtx, items); err != nil {
			return fmt.Errorf("failed to create requisition items: %w", err)
		}
		return s.audit(txCtx, actor, model.ActionCreateBatch, req.BatchID, req.ProjectCode, map[string]interface{}{
			"batch_id":     req.BatchID,
			"project_code": req.ProjectCode,
			"item_count":   len(items),
		})
	})
	if err != nil {
		return nil, err
	}

	return toRequisitionResponses(items), nil
}

func (s *requisitionService) ApproveItems(ctx context.Context, actorID string, batchID string, req ApproveItemsRequest) ([]RequisitionItemResponse, error) {
	if len(req.ItemIDs) == 0 {
		return nil, apperror.EmptySelection()
	}

	selected := make(map[uuid.UUID]bool, len(req.ItemIDs))
	for _, raw := range req.ItemIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, apperror.Newf(apperror.KindValidation, "INVALID_ID", "invalid item id %q", raw)
		}
		selected[id] = true
	}

	actor := parseActor(actorID)
	var result []model.RequisitionItem
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		items, err := s.requisitionRepo.FindBatchForUpdate(txCtx, batchID)
		if err != nil {
			return fmt.Errorf("failed to load batch: %w", err)
		}
		if len(items) == 0 {
			return apperror.NotFound("batch", batchID)
		}

		inBatch := make(map[uuid.UUID]*model.RequisitionItem, len(items))
		for i := range items {
			inBatch[items[i].ID] = &items[i]
		}

		for id := range selected {
			item, ok := inBatch[id]
			if !ok {
				return apperror.NotFound("requisition item", id.String())
			}
			if item.Status != model.RequisitionPending {
				return apperror.ItemNotPending(id.String(), item.Status)
			}
			item.Status = model.RequisitionApproved
			item.ApprovedStatus = true
			if err := s.requisitionRepo.Save(txCtx, item); err != nil {
				return fmt.Errorf("failed to approve item %s: %w", id, err)
			}
		}

		result = items
		return s.audit(txCtx, actor, model.ActionApproveItems, batchID, "", map[string]interface{}{
			"batch_id": batchID,
			"item_ids": req.ItemIDs,
		})
	})
	if err != nil {
		return nil, err
	}
	return toRequisitionResponses(result), nil
}

func (s *requisitionService) RejectBatch(ctx context.Context, actorID string, batchID string, req RejectBatchRequest) ([]RequisitionItemResponse, error) {
	remarks := strings.TrimSpace(req.Remarks)
	if remarks == "" {
		return nil, apperror.MissingRemarks()
	}

	actor := parseActor(actorID)
	var result []model.RequisitionItem
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		items, err := s.requisitionRepo.FindBatchForUpdate(txCtx, batchID)
		if err != nil {
			return fmt.Errorf("failed to load batch: %w", err)
		}
		if len(items) == 0 {
			return apperror.NotFound("batch", batchID)
		}

		// Whole-batch reject: every item carries the same outcome and remarks.
		for i := range items {
			items[i].Status = model.RequisitionRejected
			items[i].ApprovedStatus = false
			items[i].RejectionRemarks = remarks
			if err := s.requisitionRepo.Save(txCtx, &items[i]); err != nil {
				return fmt.Errorf("failed to reject item %s: %w", items[i].ID, err)
			}
		}

		result = items
		return s.audit(txCtx, actor, model.ActionRejectBatch, batchID, "", map[string]interface{}{
			"batch_id": batchID,
			"remarks":  remarks,
		})
	})
	if err != nil {
		return nil, err
	}
	return toRequisitionResponses(result), nil
}

func (s *requisitionService) Resubmit(ctx context.Context, actorID string, batchID string, req ResubmitBatchRequest) ([]RequisitionItemResponse, error) {
	actor := parseActor(actorID)
	var result []model.RequisitionItem

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		items, err := s.requisitionRepo.FindBatchForUpdate(txCtx, batchID)
		if err != nil {
			return fmt.Errorf("failed to load batch: %w", err)
		}
		if len(items) == 0 {
			return apperror.NotFound("batch", batchID)
		}

		for i := range items {
			if items[i].Status == model.RequisitionApproved {
				return apperror.ApprovedBatchImmutable(batchID)
			}
		}

		inBatch := make(map[uuid.UUID]*model.RequisitionItem, len(items))
		for i := range items {
			inBatch[items[i].ID] = &items[i]
		}

		for _, upd := range req.Items {
			id, parseErr := uuid.Parse(upd.ID)
			if parseErr != nil {
				return apperror.Newf(apperror.KindValidation, "INVALID_ID", "invalid item id %q", upd.ID)
			}
			item, ok := inBatch[id]
			if !ok {
				return apperror.NotFound("requisition item", upd.ID)
			}

			var b diffBuilder
			b.update("description", item.Description, upd.Description)
			b.updateInt("required_quantity", item.RequiredQuantity, upd.RequiredQuantity)
			b.update("unit", item.Unit, upd.Unit)

			item.Description = upd.Description
			item.RequiredQuantity = upd.RequiredQuantity
			item.Unit = upd.Unit

			// One revision entry per changed item, even when only the
			// status reset applies.
			if !b.empty() {
				entry := model.RevisionEntry{
					EntityType: model.RevisionEntityRequisitionItem,
					EntityID:   item.ID.String(),
					Kind:       model.RevisionKindResubmission,
					Actor:      actor,
					Note:       req.Note,
					Changes:    b.marshal(),
				}
				if err := s.revisionRepo.Create(txCtx, &entry); err != nil {
					return fmt.Errorf("failed to record revision for item %s: %w", item.ID, err)
				}
			}
		}

		// Resubmission resets every item in the batch to pending and clears
		// the prior rejection remarks.
		for i := range items {
			items[i].Status = model.RequisitionPending
			items[i].ApprovedStatus = false
			items[i].RejectionRemarks = ""
			if err := s.requisitionRepo.Save(txCtx, &items[i]); err != nil {
				return fmt.Errorf("failed to resubmit item %s: %w", items[i].ID, err)
			}
		}

		result = items
		return s.audit(txCtx, actor, model.ActionResubmitBatch, batchID, "", map[string]interface{}{
			"batch_id": batchID,
			"note":     req.Note,
		})
	})
	if err != nil {
		return nil, err
	}
	return toRequisitionResponses(result), nil
}

func (s *requisitionService) GetBatch(ctx context.Context, batchID string) ([]RequisitionItemResponse, error) {
	items, err := s.requisitionRepo.FindBatch(ctx, batchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("batch", batchID)
		}
		return nil, fmt.Errorf("failed to load batch: %w", err)
	}
	if len(items) == 0 {
		return nil, apperror.NotFound("batch", batchID)
	}
	return toRequisitionResponses(items), nil
}

func (s *requisitionService) audit(ctx context.Context, actor *uuid.UUID, action, entityID, entityName string, payload map[string]interface{}) error {
	details, _ := json.Marshal(payload)
	entry := model.AuditLog{
		UserID:     actor,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(details),
		CreatedAt:  time.Now(),
	}
	if err := s.auditRepo.Log(ctx, &entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

// Helpers

func parseActor(actorID string) *uuid.UUID {
	if parsed, err := uuid.Parse(actorID); err == nil {
		return &parsed
	}
	return nil
}

func toRequisitionResponses(items []model.RequisitionItem) []RequisitionItemResponse {
	res := make([]RequisitionItemResponse, 0, len(items))
	for _, item := range items {
		res = append(res, RequisitionItemResponse{
			ID:                item.ID.String(),
			BatchID:           item.BatchID,
			ProjectCode:       item.ProjectCode,
			ItemNo:            item.ItemNo,
			Description:       item.Description,
			RequiredQuantity:  item.RequiredQuantity,
			Unit:              item.Unit,
			Status:            item.Status,
			ApprovedStatus:    item.ApprovedStatus,
			RejectionRemarks:  item.RejectionRemarks,
			MasterEntryExists: item.MasterEntryExists,
		})
	}
	return res
}
