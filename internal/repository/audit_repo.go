package repository

import (
	"context"

	"stockpos/internal/dto"
	"stockpos/internal/model"

	"gorm.io/gorm"
)

// AuditRepository is append-only; entries are never mutated or deleted.
type AuditRepository interface {
	Create(ctx context.Context, e *model.AuditEntry) error
	List(ctx context.Context, filter dto.AuditFilter) ([]model.AuditEntry, int64, error)
}

type auditRepo struct{ db *gorm.DB }

func NewAuditRepository(db *gorm.DB) AuditRepository { return &auditRepo{db: db} }

func (r *auditRepo) Create(ctx context.Context, e *model.AuditEntry) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *auditRepo) List(ctx context.Context, filter dto.AuditFilter) ([]model.AuditEntry, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.AuditEntry{})

	if filter.ActorID != "" {
		q = q.Where("actor_id = ?", filter.ActorID)
	}
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if filter.Entity != "" {
		q = q.Where("entity = ?", filter.Entity)
	}
	if filter.DateFrom != "" && filter.DateTo != "" {
		q = q.Where("DATE(created_at) BETWEEN ? AND ?", filter.DateFrom, filter.DateTo)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}

	var entries []model.AuditEntry
	err := q.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&entries).Error
	return entries, total, err
}
