package dto

import "github.com/shopspring/decimal"

type ProductFilter struct {
	Code  string `form:"code"`
	Name  string `form:"name"`
	Page  int    `form:"page,default=1"`
	Limit int    `form:"limit,default=50"`
}

type CreateProductRequest struct {
	Code           string          `json:"code"            validate:"required"`
	Name           string          `json:"name"            validate:"required"`
	Description    *string         `json:"description"`
	PurchasePrice  decimal.Decimal `json:"purchase_price"  validate:"min=0"`
	WholesalePrice decimal.Decimal `json:"wholesale_price" validate:"min=0"`
	RetailPrice    decimal.Decimal `json:"retail_price"    validate:"min=0"`
	SalePrice      decimal.Decimal `json:"sale_price"      validate:"min=0"`
	AlertThreshold int             `json:"alert_threshold" validate:"min=0"`
}

type ProductResponse struct {
	ID             string          `json:"id"`
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	Description    *string         `json:"description,omitempty"`
	PurchasePrice  decimal.Decimal `json:"purchase_price"`
	WholesalePrice decimal.Decimal `json:"wholesale_price"`
	RetailPrice    decimal.Decimal `json:"retail_price"`
	SalePrice      decimal.Decimal `json:"sale_price"`
	AlertThreshold int             `json:"alert_threshold"`
	CreatedAt      string          `json:"created_at"`
}

type ProductListResponse struct {
	Data  []ProductResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

type CreateWarehouseRequest struct {
	Name    string `json:"name" validate:"required"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

type WarehouseResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Active  bool   `json:"active"`
}

type CreateClientRequest struct {
	Name    string `json:"name" validate:"required"`
	Kind    string `json:"kind" validate:"omitempty,oneof=individual business"`
	Phone   string `json:"phone"`
	Email   string `json:"email" validate:"omitempty,email"`
	Address string `json:"address"`
}

type ClientResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
}
