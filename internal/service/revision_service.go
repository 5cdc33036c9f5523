package service

import (
	"context"
	"encoding/json"
	"fmt"

	"procurement/internal/apperror"
	"procurement/internal/model"
	"procurement/internal/repository"
)

type RevisionEntryResponse struct {
	ID         string            `json:"id"`
	EntityType string            `json:"entity_type"`
	EntityID   string            `json:"entity_id"`
	Kind       string            `json:"kind"`
	Actor      *string           `json:"actor"`
	Note       string            `json:"note"`
	Changes    []model.FieldDiff `json:"changes"`
	CreatedAt  string            `json:"created_at"`
}

// RevisionService reads the append-only revision history of requisition items
// and purchase orders.
type RevisionService interface {
	ListByEntity(ctx context.Context, entityType, entityID string) ([]RevisionEntryResponse, error)
}

type revisionService struct {
	repo repository.RevisionRepository
}

func NewRevisionService(repo repository.RevisionRepository) RevisionService {
	return &revisionService{repo: repo}
}

func (s *revisionService) ListByEntity(ctx context.Context, entityType, entityID string) ([]RevisionEntryResponse, error) {
	if entityType != model.RevisionEntityRequisitionItem && entityType != model.RevisionEntityPurchaseOrder {
		return nil, apperror.Newf(apperror.KindValidation, "INVALID_ENTITY_TYPE", "unknown entity type %q", entityType)
	}

	entries, err := s.repo.ListByEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list revisions: %w", err)
	}

	res := make([]RevisionEntryResponse, 0, len(entries))
	for _, entry := range entries {
		resp := RevisionEntryResponse{
			ID:         entry.ID.String(),
			EntityType: entry.EntityType,
			EntityID:   entry.EntityID,
			Kind:       entry.Kind,
			Note:       entry.Note,
			CreatedAt:  entry.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
		if entry.Actor != nil {
			a := entry.Actor.String()
			resp.Actor = &a
		}
		// Changes is stored as serialized JSON; surface it structured.
		if err := json.Unmarshal([]byte(entry.Changes), &resp.Changes); err != nil {
			resp.Changes = nil
		}
		res = append(res, resp)
	}
	return res, nil
}
