package repository

import (
	"context"

	"stockpos/internal/dto"
	"stockpos/internal/model"

	"gorm.io/gorm"
)

// MovementRepository is append-only: movements are created once per physical
// stock change and never updated afterwards.
type MovementRepository interface {
	CreateTx(tx *gorm.DB, m *model.StockMovement) error
	List(ctx context.Context, filter dto.MovementFilter) ([]model.StockMovement, int64, error)
	DB() *gorm.DB
}

type movementRepo struct{ db *gorm.DB }

func NewMovementRepository(db *gorm.DB) MovementRepository { return &movementRepo{db: db} }

func (r *movementRepo) DB() *gorm.DB { return r.db }

func (r *movementRepo) CreateTx(tx *gorm.DB, m *model.StockMovement) error {
	return tx.Create(m).Error
}

func (r *movementRepo) List(ctx context.Context, filter dto.MovementFilter) ([]model.StockMovement, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.StockMovement{}).
		Preload("Product").Preload("Warehouse")

	if filter.ProductID != "" {
		q = q.Where("product_id = ?", filter.ProductID)
	}
	if filter.WarehouseID != "" {
		q = q.Where("warehouse_id = ?", filter.WarehouseID)
	}
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.Source != "" {
		q = q.Where("source = ?", filter.Source)
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

	var movements []model.StockMovement
	err := q.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&movements).Error
	return movements, total, err
}
