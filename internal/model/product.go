package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is catalog master data. Per-warehouse stock lives in StockEntry;
// a product owns one entry per warehouse it is stocked in.
type Product struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Code        string    `gorm:"uniqueIndex;not null"`
	Name        string    `gorm:"index;not null"`
	Description *string

	PurchasePrice  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	WholesalePrice decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	RetailPrice    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	// SalePrice is the legacy single sale price, kept as the fallback when a
	// wholesale/retail price is zero.
	SalePrice decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`

	// AlertThreshold is the default low-stock threshold for new stock entries.
	AlertThreshold int `gorm:"not null;default:5"`

	CreatedBy *uuid.UUID `gorm:"type:uuid"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PriceFor derives the unit price for a sale kind: the kind-specific price,
// falling back to the legacy sale price, falling back to zero.
func (p *Product) PriceFor(kind string) decimal.Decimal {
	var price decimal.Decimal
	if kind == SaleKindWholesale {
		price = p.WholesalePrice
	} else {
		price = p.RetailPrice
	}
	if price.IsZero() {
		price = p.SalePrice
	}
	return price
}
