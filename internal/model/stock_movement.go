package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Movement types.
const (
	MovementEntry      = "entry"
	MovementExit       = "exit"
	MovementAdjustment = "adjustment" // absolute set, not a delta
	MovementTransfer   = "transfer"
)

// Movement sources.
const (
	SourceManual         = "manual"
	SourceSale           = "sale"
	SourceTransfer       = "transfer"
	SourceInventory      = "inventory"
	SourceAutoAdjustment = "auto_adjustment"
	SourceReturn         = "return"
	SourceOther          = "other"
)

// StockMovement is the immutable record of a physical stock change — the
// audit source of truth for the ledger. Sale-sourced exits and
// transfer-sourced movements are history only: their ledger mutation is
// applied by SaleService / TransferService, never re-applied here.
type StockMovement struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID   uuid.UUID  `gorm:"type:uuid;not null;index:idx_movements_product_warehouse,priority:1"`
	WarehouseID *uuid.UUID `gorm:"type:uuid;index:idx_movements_product_warehouse,priority:2"` // nil for abstract adjustments

	Type      string          `gorm:"not null;index:idx_movements_type_source,priority:1"`
	Source    string          `gorm:"not null;index:idx_movements_type_source,priority:2;default:'manual'"`
	Quantity  int             `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2)"`
	Reason    string

	// Optional back-references to the originating document.
	SaleID     *uuid.UUID `gorm:"type:uuid;index"`
	TransferID *uuid.UUID `gorm:"type:uuid;index"`

	CreatedBy *uuid.UUID `gorm:"type:uuid"`
	CreatedAt time.Time  `gorm:"index"`

	Product   *Product   `gorm:"foreignKey:ProductID"`
	Warehouse *Warehouse `gorm:"foreignKey:WarehouseID"`
}

func (StockMovement) TableName() string { return "stock_movements" }

// SaleSourced reports whether this movement belongs to a sale confirmation,
// in which case the ledger was already mutated by the sale's withdrawal.
func (m *StockMovement) SaleSourced() bool {
	return m.Source == SourceSale || m.SaleID != nil
}

// ValidMovementType reports whether t is one of the movement type constants.
func ValidMovementType(t string) bool {
	switch t {
	case MovementEntry, MovementExit, MovementAdjustment, MovementTransfer:
		return true
	}
	return false
}

// ValidMovementSource reports whether s is one of the movement source constants.
func ValidMovementSource(s string) bool {
	switch s {
	case SourceManual, SourceSale, SourceTransfer, SourceInventory,
		SourceAutoAdjustment, SourceReturn, SourceOther:
		return true
	}
	return false
}
