package model

import (
	"time"

	"github.com/google/uuid"
)

type Warehouse struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string    `gorm:"not null"`
	Address   string
	Phone     string
	Active    bool       `gorm:"not null;default:true"`
	CreatedBy *uuid.UUID `gorm:"type:uuid"`
	CreatedAt time.Time
}

// Client is an optional counterparty on a sale.
type Client struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string    `gorm:"not null"`
	Kind      string    `gorm:"not null;default:'individual'"` // individual | business
	Phone     string
	Email     string
	Address   string
	CreatedBy *uuid.UUID `gorm:"type:uuid"`
	CreatedAt time.Time
}
