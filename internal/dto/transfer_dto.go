package dto

type TransferFilter struct {
	Status      string `form:"status"` // draft | confirmed | cancelled | all
	WarehouseID string `form:"warehouse_id" validate:"omitempty,uuid"`
	Page        int    `form:"page,default=1"`
	Limit       int    `form:"limit,default=50"`
}

type TransferLineRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity"   validate:"required,min=1"`
}

type CreateTransferRequest struct {
	SourceWarehouseID string                `json:"source_warehouse_id" validate:"required,uuid"`
	DestWarehouseID   string                `json:"dest_warehouse_id"   validate:"required,uuid"`
	Reason            string                `json:"reason"`
	Lines             []TransferLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type TransferLineResponse struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name,omitempty"`
	Quantity    int    `json:"quantity"`
}

type TransferResponse struct {
	ID                string                 `json:"id"`
	Reference         string                 `json:"reference"`
	SourceWarehouseID string                 `json:"source_warehouse_id"`
	DestWarehouseID   string                 `json:"dest_warehouse_id"`
	Status            string                 `json:"status"`
	Reason            string                 `json:"reason,omitempty"`
	Lines             []TransferLineResponse `json:"lines"`
	ConfirmedAt       *string                `json:"confirmed_at,omitempty"`
	CreatedAt         string                 `json:"created_at"`
}

type TransferListResponse struct {
	Data  []TransferResponse `json:"data"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}
