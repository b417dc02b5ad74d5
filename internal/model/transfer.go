package model

import (
	"time"

	"github.com/google/uuid"
)

// Transfer statuses (Transfer reuses SaleDraft/SaleCancelled spellings on
// purpose — the state machines share vocabulary).
const (
	TransferDraft     = SaleDraft
	TransferConfirmed = SaleConfirmed
	TransferCancelled = SaleCancelled
)

// Transfer relocates stock between two warehouses. Unlike sales there is no
// reservation step: confirmation is the only operation that mutates the
// ledger, and cancellation never touches stock.
type Transfer struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Reference         string    `gorm:"uniqueIndex;not null"` // TRF<YYYYMMDD><seq>
	SourceWarehouseID uuid.UUID `gorm:"type:uuid;not null"`
	DestWarehouseID   uuid.UUID `gorm:"type:uuid;not null"`
	Status            string    `gorm:"not null;default:'draft';index"`
	Reason            string

	ConfirmedAt *time.Time
	CreatedBy   uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt   time.Time `gorm:"index"`

	Lines           []TransferLine `gorm:"foreignKey:TransferID;constraint:OnDelete:CASCADE"`
	SourceWarehouse *Warehouse     `gorm:"foreignKey:SourceWarehouseID"`
	DestWarehouse   *Warehouse     `gorm:"foreignKey:DestWarehouseID"`
}

type TransferLine struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TransferID uuid.UUID `gorm:"type:uuid;not null;index"`
	ProductID  uuid.UUID `gorm:"type:uuid;not null"`
	Quantity   int       `gorm:"not null"`

	Product *Product `gorm:"foreignKey:ProductID"`
}

// DocumentCounter is the per-day sequence row behind sale numbers and
// transfer references. The row is locked FOR UPDATE inside the creating
// transaction so concurrent creations cannot allocate the same number.
type DocumentCounter struct {
	Kind  string `gorm:"primaryKey"` // "sale" | "transfer"
	Day   string `gorm:"primaryKey"` // YYYYMMDD
	Value int    `gorm:"not null;default:0"`
}
