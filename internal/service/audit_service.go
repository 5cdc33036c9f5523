package service

import (
	"context"

	"procurement/internal/model"
	"procurement/internal/repository"
)

type AuditLogResponse struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Action     string `json:"action"`
	EntityID   string `json:"entity_id"`
	EntityName string `json:"entity_name,omitempty"`
	Details    string `json:"details"`
	CreatedAt  string `json:"created_at"`
}

// AuditService exposes the read side of the audit trail.
type AuditService interface {
	ListLogs(ctx context.Context, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	repo repository.AuditRepository
}

func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

func (s *auditService) ListLogs(ctx context.Context, page, limit int) ([]AuditLogResponse, int64, error) {
	logs, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]AuditLogResponse, 0, len(logs))
	for _, entry := range logs {
		responses = append(responses, toAuditResponse(entry))
	}
	return responses, total, nil
}

func toAuditResponse(entry model.AuditLog) AuditLogResponse {
	username := "system"
	if entry.User != nil {
		username = entry.User.Username
	}
	return AuditLogResponse{
		ID:         entry.ID.String(),
		Username:   username,
		Action:     entry.Action,
		EntityID:   entry.EntityID,
		EntityName: entry.EntityName,
		Details:    entry.Details,
		CreatedAt:  entry.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
