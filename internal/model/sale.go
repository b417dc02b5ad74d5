package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sale statuses.
const (
	SaleDraft     = "draft"
	SaleConfirmed = "confirmed"
	SaleCancelled = "cancelled"
)

// Payment statuses.
const (
	PaymentUnpaid  = "unpaid"
	PaymentPartial = "partial"
	PaymentPaid    = "paid"
)

// Sale kinds — drive unit price derivation from the product.
const (
	SaleKindRetail    = "retail"
	SaleKindWholesale = "wholesale"
)

// Discount types.
const (
	DiscountNone    = "none"
	DiscountPercent = "percent"
	DiscountFixed   = "fixed"
)

// Payment methods.
const (
	MethodCash        = "cash"
	MethodCard        = "card"
	MethodCheque      = "cheque"
	MethodTransfer    = "transfer"
	MethodMobileMoney = "mobile_money"
)

// Sale is the sales document: draft → confirmed, or draft → cancelled.
// Draft lines hold reservations against the stock ledger; confirmation
// converts them into permanent withdrawals. Totals are always recomputed
// from the lines — never trusted as externally supplied once lines exist.
type Sale struct {
	ID       uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Number   string     `gorm:"uniqueIndex;not null"` // V<YYYYMMDD><seq>
	ClientID *uuid.UUID `gorm:"type:uuid;index"`
	Kind     string     `gorm:"not null;default:'retail'"` // retail | wholesale

	Status        string `gorm:"not null;default:'draft';index"`
	PaymentStatus string `gorm:"not null;default:'unpaid';index"`

	DiscountType  string          `gorm:"not null;default:'none'"`
	DiscountValue decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`

	Subtotal       decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"` // before discount
	DiscountAmount decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	Total          decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	Paid           decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	Remaining      decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`

	Notes   string
	DueDate *time.Time

	PaidAt      *time.Time
	ConfirmedAt *time.Time
	CancelledAt *time.Time

	CreatedBy uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time

	Lines    []SaleLine `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
	Payments []Payment  `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
	Client   *Client    `gorm:"foreignKey:ClientID"`
}

// RecomputeTotals derives subtotal, discount, total, remaining and the payment
// status from the lines and payments currently attached. PaidAt is stamped
// once, on the first crossing into fully paid.
func (s *Sale) RecomputeTotals(now time.Time) {
	subtotal := decimal.Zero
	for _, l := range s.Lines {
		subtotal = subtotal.Add(l.LineTotal)
	}
	s.Subtotal = subtotal

	discount := decimal.Zero
	if s.DiscountType != DiscountNone && s.DiscountValue.IsPositive() {
		switch s.DiscountType {
		case DiscountPercent:
			discount = subtotal.Mul(s.DiscountValue).Div(decimal.NewFromInt(100))
		case DiscountFixed:
			discount = s.DiscountValue
		}
		if discount.GreaterThan(subtotal) {
			discount = subtotal
		}
	}
	s.DiscountAmount = discount
	s.Total = subtotal.Sub(discount)

	s.Remaining = s.Total.Sub(s.Paid)
	if s.Remaining.IsNegative() {
		s.Remaining = decimal.Zero
	}

	switch {
	case s.Paid.IsZero():
		s.PaymentStatus = PaymentUnpaid
	case s.Paid.LessThan(s.Total):
		s.PaymentStatus = PaymentPartial
	default:
		if s.PaymentStatus != PaymentPaid {
			t := now
			s.PaidAt = &t
		}
		s.PaymentStatus = PaymentPaid
	}
}

// SaleLine is one (product, warehouse, quantity) position of a sale. Creating
// a line reserves its quantity on the ledger; Withdrawn records that the
// reservation was committed at confirmation.
type SaleLine struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SaleID      uuid.UUID `gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID `gorm:"type:uuid;not null"`
	WarehouseID uuid.UUID `gorm:"type:uuid;not null"`

	Quantity  int             `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	LineTotal decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	Withdrawn bool            `gorm:"not null;default:false"`

	Product   *Product   `gorm:"foreignKey:ProductID"`
	Warehouse *Warehouse `gorm:"foreignKey:WarehouseID"`
}

// Payment is an immutable record of a partial or full payment against a
// confirmed sale. The sum of payments always equals sale.Paid.
type Payment struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SaleID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount    decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Method    string          `gorm:"not null"`
	Reference string
	Notes     string
	CreatedBy *uuid.UUID `gorm:"type:uuid"`
	CreatedAt time.Time
}
