package service

import (
	"context"
	"errors"
	"fmt"

	"procurement/internal/apperror"
	"procurement/internal/model"
	"procurement/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DTOs

type VerifySelection struct {
	ItemID      string `json:"item_id" binding:"required"`
	OrderingQty int    `json:"ordering_qty" binding:"min=0"`
}

type VerifyBatchRequest struct {
	Selections []VerifySelection `json:"selections" binding:"required,min=1,dive"`
	// Strict rejects ordering quantities above the balance instead of clamping.
	Strict bool `json:"strict"`
}

type MasterEntryResponse struct {
	ID                string  `json:"id"`
	RequisitionItemID string  `json:"requisition_item_id"`
	BatchID           string  `json:"batch_id"`
	ProjectCode       string  `json:"project_code"`
	ItemNo            string  `json:"item_no"`
	RequiredQuantity  int     `json:"required_quantity"`
	StockOnHand       int     `json:"stock_on_hand"`
	BalanceQuantity   int     `json:"balance_quantity"`
	OrderingQty       int     `json:"ordering_qty"`
	PONumber          *string `json:"po_number"`
}

// VerificationService is the post-approval gate that checks approved
// requisition items against the inventory ledger and promotes them into
// sourceable master entries. It only reads stock; reservation is the
// allocation engine's job.
type VerificationService interface {
	VerifyBatch(ctx context.Context, actorID string, batchID string, req VerifyBatchRequest) ([]MasterEntryResponse, error)
	ListUnconsumed(ctx context.Context, projectCode string) ([]MasterEntryResponse, error)
}

type verificationService struct {
	requisitionRepo repository.RequisitionRepository
	masterRepo      repository.MasterEntryRepository
	inventoryRepo   repository.InventoryRepository
	auditRepo       repository.AuditRepository
	txManager       repository.TransactionManager
}

func NewVerificationService(
	requisitionRepo repository.RequisitionRepository,
	masterRepo repository.MasterEntryRepository,
	inventoryRepo repository.InventoryRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) VerificationService {
	return &verificationService{
		requisitionRepo: requisitionRepo,
		masterRepo:      masterRepo,
		inventoryRepo:   inventoryRepo,
		auditRepo:       auditRepo,
		txManager:       txManager,
	}
}

func (s *verificationService) VerifyBatch(ctx context.Context, actorID string, batchID string, req VerifyBatchRequest) ([]MasterEntryResponse, error) {
	if len(req.Selections) == 0 {
		return nil, apperror.EmptySelection()
	}

	actor := parseActor(actorID)
	var created []model.MasterEntry

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

		for _, sel := range req.Selections {
			id, parseErr := uuid.Parse(sel.ItemID)
			if parseErr != nil {
				return apperror.Newf(apperror.KindValidation, "INVALID_ID", "invalid item id %q", sel.ItemID)
			}
			item, ok := inBatch[id]
			if !ok {
				return apperror.NotFound("requisition item", sel.ItemID)
			}
			if !item.ApprovedStatus {
				return apperror.NotApproved(sel.ItemID)
			}
			if item.MasterEntryExists {
				return apperror.AlreadyVerified(sel.ItemID)
			}

			soh, sohErr := s.stockOnHand(txCtx, item.ItemNo)
			if sohErr != nil {
				return fmt.Errorf("failed to read stock for item %s: %w", item.ItemNo, sohErr)
			}
			balance := item.RequiredQuantity - soh
			if balance < 0 {
				balance = 0
			}

			orderingQty := sel.OrderingQty
			if orderingQty > balance {
				if req.Strict {
					return apperror.QuantityExceedsBalance(item.ItemNo, orderingQty, balance)
				}
				orderingQty = balance
			}
			if orderingQty < 0 {
				orderingQty = 0
			}

			entry := model.MasterEntry{
				RequisitionItemID: item.ID,
				BatchID:           item.BatchID,
				ProjectCode:       item.ProjectCode,
				ItemNo:            item.ItemNo,
				Description:       item.Description,
				Unit:              item.Unit,
				RequiredQuantity:  item.RequiredQuantity,
				StockOnHand:       soh,
				BalanceQuantity:   balance,
				OrderingQty:       orderingQty,
			}
			// The unique index on requisition_item_id backs this check at
			// commit time as well.
			if err := s.masterRepo.Create(txCtx, &entry); err != nil {
				return fmt.Errorf("failed to create master entry for item %s: %w", item.ID, err)
			}

			item.MasterEntryExists = true
			if err := s.requisitionRepo.Save(txCtx, item); err != nil {
				return fmt.Errorf("failed to flag item %s as verified: %w", item.ID, err)
			}

			created = append(created, entry)
		}

		return s.auditVerify(txCtx, actor, batchID, len(created))
	})
	if err != nil {
		return nil, err
	}

	return toMasterEntryResponses(created), nil
}

func (s *verificationService) ListUnconsumed(ctx context.Context, projectCode string) ([]MasterEntryResponse, error) {
	entries, err := s.masterRepo.FindUnconsumedByProject(ctx, projectCode)
	if err != nil {
		return nil, fmt.Errorf("failed to list master entries: %w", err)
	}
	return toMasterEntryResponses(entries), nil
}

// stockOnHand reads the ledger's current total for an item number. Items the
// ledger has never seen count as zero stock.
func (s *verificationService) stockOnHand(ctx context.Context, itemNo string) (int, error) {
	item, err := s.inventoryRepo.FindItemByNo(ctx, itemNo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return item.TotalStock, nil
}

func (s *verificationService) auditVerify(ctx context.Context, actor *uuid.UUID, batchID string, count int) error {
	entry := model.AuditLog{
		UserID:   actor,
		Action:   model.ActionVerifyBatch,
		EntityID: batchID,
		Details:  fmt.Sprintf(`{"batch_id":%q,"entries_created":%d}`, batchID, count),
	}
	if err := s.auditRepo.Log(ctx, &entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func toMasterEntryResponses(entries []model.MasterEntry) []MasterEntryResponse {
	res := make([]MasterEntryResponse, 0, len(entries))
	for _, e := range entries {
		res = append(res, MasterEntryResponse{
			ID:                e.ID.String(),
			RequisitionItemID: e.RequisitionItemID.String(),
			BatchID:           e.BatchID,
			ProjectCode:       e.ProjectCode,
			ItemNo:            e.ItemNo,
			RequiredQuantity:  e.RequiredQuantity,
			StockOnHand:       e.StockOnHand,
			BalanceQuantity:   e.BalanceQuantity,
			OrderingQty:       e.OrderingQty,
			PONumber:          e.PONumber,
		})
	}
	return res
}
