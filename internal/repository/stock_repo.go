package repository

import (
	"context"
	"errors"

	"stockpos/internal/dto"
	"stockpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StockRepository is the only data-access path allowed to mutate quantity /
// reserved on a stock entry. It exposes the atomic primitives; the semantics
// (error taxonomy, movement/audit side effects) live in service.StockService.
//
// The ...Tx methods require a live transaction handle because every guarded
// update must share the caller's transaction scope.
type StockRepository interface {
	Find(ctx context.Context, productID, warehouseID uuid.UUID) (*model.StockEntry, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.StockEntry, error)
	List(ctx context.Context, filter dto.StockFilter) ([]model.StockEntry, int64, error)
	LowStock(ctx context.Context) ([]model.StockEntry, error)

	// GetOrCreateTx returns the (product, warehouse) entry, creating it with
	// quantity=0 on first use. Concurrent first movements into the same
	// warehouse resolve through the composite unique index.
	GetOrCreateTx(tx *gorm.DB, productID, warehouseID uuid.UUID, alertThreshold int) (*model.StockEntry, error)

	// FindTx reads the entry inside the caller's transaction without locking.
	FindTx(tx *gorm.DB, productID, warehouseID uuid.UUID) (*model.StockEntry, error)

	// LockTx re-reads the entry under a row-level FOR UPDATE lock. All
	// check-then-write sequences go through it.
	LockTx(tx *gorm.DB, productID, warehouseID uuid.UUID) (*model.StockEntry, error)

	// ReserveTx is a single atomic conditional update:
	//   SET reserved = reserved + q WHERE quantity - reserved >= q
	// It reports whether the guard passed (false = insufficient stock).
	ReserveTx(tx *gorm.DB, entryID uuid.UUID, qty int) (bool, error)

	// ReleaseTx decrements reserved, flooring at zero. It reports whether the
	// floor was hit, which callers log as a bookkeeping anomaly.
	ReleaseTx(tx *gorm.DB, entryID uuid.UUID, qty int) (clamped bool, err error)

	// WithdrawTx decrements quantity and reserved together. The caller must
	// hold the row lock (LockTx) and have verified qty <= reserved.
	WithdrawTx(tx *gorm.DB, entryID uuid.UUID, qty int) error

	// AddQuantityTx and SetQuantityTx apply non-sale movement effects. The
	// caller must hold the row lock. Neither touches reserved.
	AddQuantityTx(tx *gorm.DB, entryID uuid.UUID, delta int) error
	SetQuantityTx(tx *gorm.DB, entryID uuid.UUID, qty int) error

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type stockRepo struct{ db *gorm.DB }

func NewStockRepository(db *gorm.DB) StockRepository { return &stockRepo{db: db} }

func (r *stockRepo) DB() *gorm.DB { return r.db }

func (r *stockRepo) Find(ctx context.Context, productID, warehouseID uuid.UUID) (*model.StockEntry, error) {
	var e model.StockEntry
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND warehouse_id = ?", productID, warehouseID).
		First(&e).Error
	return &e, err
}

func (r *stockRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.StockEntry, error) {
	var e model.StockEntry
	err := r.db.WithContext(ctx).First(&e, id).Error
	return &e, err
}

func (r *stockRepo) List(ctx context.Context, filter dto.StockFilter) ([]model.StockEntry, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.StockEntry{}).
		Preload("Product").Preload("Warehouse")

	if filter.ProductID != "" {
		q = q.Where("product_id = ?", filter.ProductID)
	}
	if filter.WarehouseID != "" {
		q = q.Where("warehouse_id = ?", filter.WarehouseID)
	}
	if filter.LowOnly {
		q = q.Where("quantity - reserved > 0 AND quantity - reserved <= alert_threshold")
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

	var entries []model.StockEntry
	err := q.Order("updated_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&entries).Error
	return entries, total, err
}

func (r *stockRepo) LowStock(ctx context.Context) ([]model.StockEntry, error) {
	var entries []model.StockEntry
	err := r.db.WithContext(ctx).
		Preload("Product").Preload("Warehouse").
		Where("quantity - reserved <= alert_threshold").
		Find(&entries).Error
	return entries, err
}

func (r *stockRepo) GetOrCreateTx(tx *gorm.DB, productID, warehouseID uuid.UUID, alertThreshold int) (*model.StockEntry, error) {
	var e model.StockEntry
	err := tx.Where("product_id = ? AND warehouse_id = ?", productID, warehouseID).First(&e).Error
	if err == nil {
		return &e, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	e = model.StockEntry{
		ProductID:      productID,
		WarehouseID:    warehouseID,
		AlertThreshold: alertThreshold,
	}
	// A concurrent creator may win the race; DoNothing + re-read resolves it.
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&e).Error; err != nil {
		return nil, err
	}
	err = tx.Where("product_id = ? AND warehouse_id = ?", productID, warehouseID).First(&e).Error
	return &e, err
}

func (r *stockRepo) FindTx(tx *gorm.DB, productID, warehouseID uuid.UUID) (*model.StockEntry, error) {
	var e model.StockEntry
	err := tx.Where("product_id = ? AND warehouse_id = ?", productID, warehouseID).First(&e).Error
	return &e, err
}

func (r *stockRepo) LockTx(tx *gorm.DB, productID, warehouseID uuid.UUID) (*model.StockEntry, error) {
	var e model.StockEntry
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ? AND warehouse_id = ?", productID, warehouseID).
		First(&e).Error
	return &e, err
}

func (r *stockRepo) ReserveTx(tx *gorm.DB, entryID uuid.UUID, qty int) (bool, error) {
	res := tx.Model(&model.StockEntry{}).
		Where("id = ? AND quantity - reserved >= ?", entryID, qty).
		Update("reserved", gorm.Expr("reserved + ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *stockRepo) ReleaseTx(tx *gorm.DB, entryID uuid.UUID, qty int) (bool, error) {
	res := tx.Model(&model.StockEntry{}).
		Where("id = ? AND reserved >= ?", entryID, qty).
		Update("reserved", gorm.Expr("reserved - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		return false, nil
	}
	// Stale caller amount — floor at zero rather than going negative.
	err := tx.Model(&model.StockEntry{}).
		Where("id = ?", entryID).
		Update("reserved", 0).Error
	return true, err
}

func (r *stockRepo) WithdrawTx(tx *gorm.DB, entryID uuid.UUID, qty int) error {
	return tx.Model(&model.StockEntry{}).
		Where("id = ?", entryID).
		Updates(map[string]any{
			"quantity": gorm.Expr("quantity - ?", qty),
			"reserved": gorm.Expr("reserved - ?", qty),
		}).Error
}

func (r *stockRepo) AddQuantityTx(tx *gorm.DB, entryID uuid.UUID, delta int) error {
	return tx.Model(&model.StockEntry{}).
		Where("id = ?", entryID).
		Update("quantity", gorm.Expr("GREATEST(quantity + ?, 0)", delta)).Error
}

func (r *stockRepo) SetQuantityTx(tx *gorm.DB, entryID uuid.UUID, qty int) error {
	return tx.Model(&model.StockEntry{}).
		Where("id = ?", entryID).
		Update("quantity", qty).Error
}
