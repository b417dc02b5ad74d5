package service

import (
	"context"

	"stockpos/internal/dto"
	"stockpos/internal/model"
	"stockpos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// AuditService records domain events after their owning transaction commits.
// Recording is best-effort: an audit write failure is logged but never fails
// or rolls back the operation it describes.
type AuditService interface {
	Record(ctx context.Context, actorID *uuid.UUID, action, entity string, entityID *uuid.UUID, detail model.AuditDetail)
	List(ctx context.Context, filter dto.AuditFilter) (*dto.AuditListResponse, error)
}

type auditService struct {
	repo repository.AuditRepository
}

func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

func (s *auditService) Record(ctx context.Context, actorID *uuid.UUID, action, entity string, entityID *uuid.UUID, detail model.AuditDetail) {
	entry := &model.AuditEntry{
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Detail:   detail,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		ev := log.Error().Err(err).Str("action", action).Str("entity", entity)
		if entityID != nil {
			ev = ev.Str("entity_id", entityID.String())
		}
		ev.Msg("failed to write audit entry")
	}
}

func (s *auditService) List(ctx context.Context, filter dto.AuditFilter) (*dto.AuditListResponse, error) {
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.AuditEntryResponse, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		resp := dto.AuditEntryResponse{
			ID:        e.ID.String(),
			Action:    e.Action,
			Entity:    e.Entity,
			Detail:    e.Detail,
			CreatedAt: e.CreatedAt.Format(timeFormat),
		}
		if e.ActorID != nil {
			id := e.ActorID.String()
			resp.ActorID = &id
		}
		if e.EntityID != nil {
			id := e.EntityID.String()
			resp.EntityID = &id
		}
		data = append(data, resp)
	}
	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 100
	}
	return &dto.AuditListResponse{Data: data, Total: total, Page: page, Limit: limit}, nil
}
