package dto

import "github.com/shopspring/decimal"

// ─── Filter / List ──────────────────────────────────────────────────────────

// SaleFilter is bound from the query string of GET /v1/sales.
type SaleFilter struct {
	Status        string `form:"status"`         // draft | confirmed | cancelled | all
	PaymentStatus string `form:"payment_status"` // unpaid | partial | paid
	ClientID      string `form:"client_id"      validate:"omitempty,uuid"`
	CreatedBy     string `form:"created_by"     validate:"omitempty,uuid"`
	DateFrom      string `form:"date_from"` // YYYY-MM-DD
	DateTo        string `form:"date_to"`
	Page          int    `form:"page,default=1"`
	Limit         int    `form:"limit,default=50"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

type SaleLineRequest struct {
	ProductID   string `json:"product_id"   validate:"required,uuid"`
	WarehouseID string `json:"warehouse_id" validate:"required,uuid"`
	Quantity    int    `json:"quantity"     validate:"required,min=1"`
	// UnitPrice is optional — zero means "derive from the product and the
	// sale kind" (wholesale/retail, falling back to the legacy sale price).
	UnitPrice decimal.Decimal `json:"unit_price" validate:"min=0"`
}

type CreateSaleRequest struct {
	ClientID      *string           `json:"client_id"      validate:"omitempty,uuid"`
	Kind          string            `json:"kind"           validate:"omitempty,oneof=retail wholesale"`
	DiscountType  string            `json:"discount_type"  validate:"omitempty,oneof=none percent fixed"`
	DiscountValue decimal.Decimal   `json:"discount_value" validate:"min=0"`
	Notes         string            `json:"notes"`
	DueDate       *string           `json:"due_date"` // YYYY-MM-DD
	Lines         []SaleLineRequest `json:"lines"          validate:"required,min=1,dive"`
}

// UpdateSaleLinesRequest replaces the draft's line set. Reservations are
// reconciled per (product, warehouse) key by delta, never released and
// re-reserved in full.
type UpdateSaleLinesRequest struct {
	DiscountType  *string           `json:"discount_type"  validate:"omitempty,oneof=none percent fixed"`
	DiscountValue *decimal.Decimal  `json:"discount_value"`
	Lines         []SaleLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type AddPaymentRequest struct {
	Amount    decimal.Decimal `json:"amount"    validate:"required"`
	Method    string          `json:"method"    validate:"required,oneof=cash card cheque transfer mobile_money"`
	Reference string          `json:"reference"`
	Notes     string          `json:"notes"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SaleLineResponse struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	WarehouseID string          `json:"warehouse_id"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
	Withdrawn   bool            `json:"withdrawn"`
}

type PaymentResponse struct {
	ID        string          `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
	Reference string          `json:"reference,omitempty"`
	CreatedAt string          `json:"created_at"`
}

type SaleResponse struct {
	ID             string             `json:"id"`
	Number         string             `json:"number"`
	ClientID       *string            `json:"client_id,omitempty"`
	ClientName     string             `json:"client_name,omitempty"`
	Kind           string             `json:"kind"`
	Status         string             `json:"status"`
	PaymentStatus  string             `json:"payment_status"`
	DiscountType   string             `json:"discount_type"`
	DiscountValue  decimal.Decimal    `json:"discount_value"`
	Subtotal       decimal.Decimal    `json:"subtotal"`
	DiscountAmount decimal.Decimal    `json:"discount_amount"`
	Total          decimal.Decimal    `json:"total"`
	Paid           decimal.Decimal    `json:"paid"`
	Remaining      decimal.Decimal    `json:"remaining"`
	Lines          []SaleLineResponse `json:"lines"`
	Payments       []PaymentResponse  `json:"payments,omitempty"`
	ConfirmedAt    *string            `json:"confirmed_at,omitempty"`
	CreatedAt      string             `json:"created_at"`
}

type SaleListResponse struct {
	Data  []SaleResponse `json:"data"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}
