package model

import (
	"time"

	"github.com/google/uuid"
)

// StockEntry is the per-(product, warehouse) stock counter. It is the one
// piece of genuinely concurrent shared state in the system: every reserve,
// release, withdraw and movement application competes for the same row.
// Invariant at rest: 0 <= Reserved <= Quantity (also enforced by a CHECK
// constraint, see infra.NewDatabase).
type StockEntry struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_stock_product_warehouse,priority:1"`
	WarehouseID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_stock_product_warehouse,priority:2"`

	// Quantity is the total on hand; Reserved is the subset held for pending
	// draft sales. Only the stock repository mutates either.
	Quantity int `gorm:"not null;default:0"`
	Reserved int `gorm:"not null;default:0"`

	AlertThreshold int `gorm:"not null;default:5"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Product   *Product   `gorm:"foreignKey:ProductID"`
	Warehouse *Warehouse `gorm:"foreignKey:WarehouseID"`
}

func (StockEntry) TableName() string { return "stock_entries" }

// Available is the sellable quantity, clamped to zero for display.
func (e *StockEntry) Available() int {
	if avail := e.Quantity - e.Reserved; avail > 0 {
		return avail
	}
	return 0
}

// LowStock reports whether the entry is at or below its alert threshold
// while still holding sellable stock.
func (e *StockEntry) LowStock() bool {
	avail := e.Available()
	return avail > 0 && avail <= e.AlertThreshold
}

// OutOfStock reports whether nothing is sellable right now.
func (e *StockEntry) OutOfStock() bool { return e.Available() <= 0 }
