package repository

import (
	"context"

	"stockpos/internal/dto"
	"stockpos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SaleRepository interface {
	CreateTx(tx *gorm.DB, s *model.Sale) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	List(ctx context.Context, filter dto.SaleFilter) ([]model.Sale, int64, error)

	// LockTx re-reads the sale with its lines and payments under the row
	// lock. Lifecycle transitions operate on this read, never on a snapshot
	// taken outside the transaction.
	LockTx(tx *gorm.DB, id uuid.UUID) (*model.Sale, error)

	// TransitionTx moves status from→to in a single conditional update.
	// Returns false when the sale was no longer in the expected status.
	TransitionTx(tx *gorm.DB, id uuid.UUID, from, to string) (bool, error)

	// AddPaidTx rolls paid forward by amount, guarded in one statement:
	// the sale must be confirmed and the new paid must not exceed total.
	// Returns false when the guard fails.
	AddPaidTx(tx *gorm.DB, id uuid.UUID, amount decimal.Decimal) (bool, error)

	SaveTx(tx *gorm.DB, s *model.Sale) error
	UpdateLineWithdrawnTx(tx *gorm.DB, lineID uuid.UUID) error
	ReplaceLinesTx(tx *gorm.DB, saleID uuid.UUID, lines []model.SaleLine) error
	CreatePaymentTx(tx *gorm.DB, p *model.Payment) error
	DeleteTx(tx *gorm.DB, saleID uuid.UUID) error
	DB() *gorm.DB
}

type saleRepo struct{ db *gorm.DB }

func NewSaleRepository(db *gorm.DB) SaleRepository { return &saleRepo{db: db} }

func (r *saleRepo) DB() *gorm.DB { return r.db }

func (r *saleRepo) CreateTx(tx *gorm.DB, s *model.Sale) error {
	return tx.Create(s).Error
}

func (r *saleRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var s model.Sale
	err := r.db.WithContext(ctx).
		Preload("Lines.Product").Preload("Lines.Warehouse").
		Preload("Payments").Preload("Client").
		First(&s, id).Error
	return &s, err
}

func (r *saleRepo) List(ctx context.Context, filter dto.SaleFilter) ([]model.Sale, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Sale{})

	if filter.Status != "" && filter.Status != "all" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.PaymentStatus != "" {
		q = q.Where("payment_status = ?", filter.PaymentStatus)
	}
	if filter.ClientID != "" {
		q = q.Where("client_id = ?", filter.ClientID)
	}
	if filter.CreatedBy != "" {
		q = q.Where("created_by = ?", filter.CreatedBy)
	}
	if filter.DateFrom != "" && filter.DateTo != "" {
		q = q.Where("DATE(created_at) BETWEEN ? AND ?", filter.DateFrom, filter.DateTo)
	} else if filter.DateFrom != "" {
		q = q.Where("DATE(created_at) >= ?", filter.DateFrom)
	} else if filter.DateTo != "" {
		q = q.Where("DATE(created_at) <= ?", filter.DateTo)
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

	var sales []model.Sale
	err := q.Preload("Lines.Product").Preload("Payments").Preload("Client").
		Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&sales).Error
	return sales, total, err
}

func (r *saleRepo) LockTx(tx *gorm.DB, id uuid.UUID) (*model.Sale, error) {
	var s model.Sale
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&s, id).Error; err != nil {
		return nil, err
	}
	// Associations loaded separately: FOR UPDATE must not spread to joined rows.
	if err := tx.Where("sale_id = ?", id).Order("id").Find(&s.Lines).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("sale_id = ?", id).Order("created_at").Find(&s.Payments).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *saleRepo) TransitionTx(tx *gorm.DB, id uuid.UUID, from, to string) (bool, error) {
	res := tx.Model(&model.Sale{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return res.RowsAffected == 1, res.Error
}

func (r *saleRepo) AddPaidTx(tx *gorm.DB, id uuid.UUID, amount decimal.Decimal) (bool, error) {
	res := tx.Model(&model.Sale{}).
		Where("id = ? AND status = ? AND paid + ? <= total", id, model.SaleConfirmed, amount).
		Updates(map[string]any{
			"paid":           gorm.Expr("paid + ?", amount),
			"remaining":      gorm.Expr("total - (paid + ?)", amount),
			"payment_status": gorm.Expr("CASE WHEN paid + ? >= total THEN 'paid' ELSE 'partial' END", amount),
			"paid_at":        gorm.Expr("CASE WHEN paid + ? >= total AND paid_at IS NULL THEN NOW() ELSE paid_at END", amount),
		})
	return res.RowsAffected == 1, res.Error
}

func (r *saleRepo) SaveTx(tx *gorm.DB, s *model.Sale) error {
	// Omit associations: lines and payments are managed explicitly, a blanket
	// Save must not re-create them.
	return tx.Omit("Lines", "Payments", "Client").Save(s).Error
}

func (r *saleRepo) UpdateLineWithdrawnTx(tx *gorm.DB, lineID uuid.UUID) error {
	return tx.Model(&model.SaleLine{}).Where("id = ?", lineID).Update("withdrawn", true).Error
}

func (r *saleRepo) ReplaceLinesTx(tx *gorm.DB, saleID uuid.UUID, lines []model.SaleLine) error {
	if err := tx.Where("sale_id = ?", saleID).Delete(&model.SaleLine{}).Error; err != nil {
		return err
	}
	for i := range lines {
		lines[i].SaleID = saleID
	}
	if len(lines) == 0 {
		return nil
	}
	return tx.Create(&lines).Error
}

func (r *saleRepo) CreatePaymentTx(tx *gorm.DB, p *model.Payment) error {
	return tx.Create(p).Error
}

func (r *saleRepo) DeleteTx(tx *gorm.DB, saleID uuid.UUID) error {
	if err := tx.Where("sale_id = ?", saleID).Delete(&model.SaleLine{}).Error; err != nil {
		return err
	}
	if err := tx.Where("sale_id = ?", saleID).Delete(&model.Payment{}).Error; err != nil {
		return err
	}
	return tx.Delete(&model.Sale{}, saleID).Error
}
