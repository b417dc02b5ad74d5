package repository

import (
	"context"

	"stockpos/internal/dto"
	"stockpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TransferRepository interface {
	CreateTx(tx *gorm.DB, t *model.Transfer) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Transfer, error)
	List(ctx context.Context, filter dto.TransferFilter) ([]model.Transfer, int64, error)

	// TransitionTx moves status from→to in a single conditional update,
	// returning false when the transfer left the expected status.
	TransitionTx(tx *gorm.DB, id uuid.UUID, from, to string) (bool, error)

	SaveTx(tx *gorm.DB, t *model.Transfer) error
	DB() *gorm.DB
}

type transferRepo struct{ db *gorm.DB }

func NewTransferRepository(db *gorm.DB) TransferRepository { return &transferRepo{db: db} }

func (r *transferRepo) DB() *gorm.DB { return r.db }

func (r *transferRepo) CreateTx(tx *gorm.DB, t *model.Transfer) error {
	return tx.Create(t).Error
}

func (r *transferRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Transfer, error) {
	var t model.Transfer
	err := r.db.WithContext(ctx).
		Preload("Lines.Product").
		Preload("SourceWarehouse").Preload("DestWarehouse").
		First(&t, id).Error
	return &t, err
}

func (r *transferRepo) List(ctx context.Context, filter dto.TransferFilter) ([]model.Transfer, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Transfer{})

	if filter.Status != "" && filter.Status != "all" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.WarehouseID != "" {
		q = q.Where("source_warehouse_id = ? OR dest_warehouse_id = ?", filter.WarehouseID, filter.WarehouseID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	var transfers []model.Transfer
	err := q.Preload("Lines.Product").
		Preload("SourceWarehouse").Preload("DestWarehouse").
		Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&transfers).Error
	return transfers, total, err
}

func (r *transferRepo) TransitionTx(tx *gorm.DB, id uuid.UUID, from, to string) (bool, error) {
	res := tx.Model(&model.Transfer{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return res.RowsAffected == 1, res.Error
}

func (r *transferRepo) SaveTx(tx *gorm.DB, t *model.Transfer) error {
	return tx.Omit("Lines", "SourceWarehouse", "DestWarehouse").Save(t).Error
}
