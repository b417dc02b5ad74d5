package repository

import (
	"context"

	"stockpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WarehouseRepository interface {
	Create(ctx context.Context, w *model.Warehouse) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Warehouse, error)
	List(ctx context.Context, activeOnly bool) ([]model.Warehouse, error)
}

type warehouseRepo struct{ db *gorm.DB }

func NewWarehouseRepository(db *gorm.DB) WarehouseRepository { return &warehouseRepo{db: db} }

func (r *warehouseRepo) Create(ctx context.Context, w *model.Warehouse) error {
	return r.db.WithContext(ctx).Create(w).Error
}

func (r *warehouseRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Warehouse, error) {
	var w model.Warehouse
	err := r.db.WithContext(ctx).First(&w, id).Error
	return &w, err
}

func (r *warehouseRepo) List(ctx context.Context, activeOnly bool) ([]model.Warehouse, error) {
	q := r.db.WithContext(ctx).Order("name ASC")
	if activeOnly {
		q = q.Where("active = true")
	}
	var warehouses []model.Warehouse
	err := q.Find(&warehouses).Error
	return warehouses, err
}

// ClientRepository is master data access for sale counterparties.
type ClientRepository interface {
	Create(ctx context.Context, c *model.Client) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Client, error)
	List(ctx context.Context) ([]model.Client, error)
}

type clientRepo struct{ db *gorm.DB }

func NewClientRepository(db *gorm.DB) ClientRepository { return &clientRepo{db: db} }

func (r *clientRepo) Create(ctx context.Context, c *model.Client) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *clientRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	var c model.Client
	err := r.db.WithContext(ctx).First(&c, id).Error
	return &c, err
}

func (r *clientRepo) List(ctx context.Context) ([]model.Client, error) {
	var clients []model.Client
	err := r.db.WithContext(ctx).Order("name ASC").Find(&clients).Error
	return clients, err
}
