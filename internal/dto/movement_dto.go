package dto

import "github.com/shopspring/decimal"

type MovementFilter struct {
	ProductID   string `form:"product_id"   validate:"omitempty,uuid"`
	WarehouseID string `form:"warehouse_id" validate:"omitempty,uuid"`
	Type        string `form:"type"`
	Source      string `form:"source"`
	DateFrom    string `form:"date_from"`
	DateTo      string `form:"date_to"`
	Page        int    `form:"page,default=1"`
	Limit       int    `form:"limit,default=100"`
}

// CreateMovementRequest registers a manual movement: an entry, exit,
// inventory correction or absolute adjustment. Sale and transfer movements
// are emitted by their own lifecycles and cannot be created here.
type CreateMovementRequest struct {
	ProductID   string `json:"product_id"   validate:"required,uuid"`
	WarehouseID string `json:"warehouse_id" validate:"required,uuid"`
	Type        string `json:"type"         validate:"required,oneof=entry exit adjustment"`
	Source      string `json:"source"       validate:"omitempty,oneof=manual inventory auto_adjustment return other"`
	Quantity    int    `json:"quantity"     validate:"min=0"`
	// UnitPrice zero means "default from the product": purchase price for
	// entries, retail price otherwise.
	UnitPrice decimal.Decimal `json:"unit_price" validate:"min=0"`
	Reason    string          `json:"reason"     validate:"required"`
}

type MovementResponse struct {
	ID             string          `json:"id"`
	ProductID      string          `json:"product_id"`
	ProductName    string          `json:"product_name,omitempty"`
	WarehouseID    *string         `json:"warehouse_id,omitempty"`
	WarehouseName  string          `json:"warehouse_name,omitempty"`
	Type           string          `json:"type"`
	Source         string          `json:"source"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Reason         string          `json:"reason,omitempty"`
	SaleID         *string         `json:"sale_id,omitempty"`
	TransferID     *string         `json:"transfer_id,omitempty"`
	QuantityBefore *int            `json:"quantity_before,omitempty"`
	QuantityAfter  *int            `json:"quantity_after,omitempty"`
	CreatedAt      string          `json:"created_at"`
}

type MovementListResponse struct {
	Data  []MovementResponse `json:"data"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}

type AuditFilter struct {
	ActorID  string `form:"actor_id" validate:"omitempty,uuid"`
	Action   string `form:"action"`
	Entity   string `form:"entity"`
	DateFrom string `form:"date_from"`
	DateTo   string `form:"date_to"`
	Page     int    `form:"page,default=1"`
	Limit    int    `form:"limit,default=100"`
}

type AuditEntryResponse struct {
	ID        string         `json:"id"`
	ActorID   *string        `json:"actor_id,omitempty"`
	Action    string         `json:"action"`
	Entity    string         `json:"entity"`
	EntityID  *string        `json:"entity_id,omitempty"`
	Detail    map[string]any `json:"detail"`
	CreatedAt string         `json:"created_at"`
}

type AuditListResponse struct {
	Data  []AuditEntryResponse `json:"data"`
	Total int64                `json:"total"`
	Page  int                  `json:"page"`
	Limit int                  `json:"limit"`
}
