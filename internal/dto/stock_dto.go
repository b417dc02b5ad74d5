package dto

// StockFilter is bound from the query string of GET /v1/stock.
type StockFilter struct {
	ProductID   string `form:"product_id"   validate:"omitempty,uuid"`
	WarehouseID string `form:"warehouse_id" validate:"omitempty,uuid"`
	LowOnly     bool   `form:"low_only"`
	Page        int    `form:"page,default=1"`
	Limit       int    `form:"limit,default=100"`
}

type StockEntryResponse struct {
	ID             string `json:"id"`
	ProductID      string `json:"product_id"`
	ProductName    string `json:"product_name,omitempty"`
	ProductCode    string `json:"product_code,omitempty"`
	WarehouseID    string `json:"warehouse_id"`
	WarehouseName  string `json:"warehouse_name,omitempty"`
	Quantity       int    `json:"quantity"`
	Reserved       int    `json:"reserved"`
	Available      int    `json:"available"`
	AlertThreshold int    `json:"alert_threshold"`
	LowStock       bool   `json:"low_stock"`
	OutOfStock     bool   `json:"out_of_stock"`
}

type StockListResponse struct {
	Data  []StockEntryResponse `json:"data"`
	Total int64                `json:"total"`
	Page  int                  `json:"page"`
	Limit int                  `json:"limit"`
}

// AvailabilityRequest is bound from the query string of GET /v1/stock/availability.
type AvailabilityRequest struct {
	ProductID   string `form:"product_id"   validate:"required,uuid"`
	WarehouseID string `form:"warehouse_id" validate:"required,uuid"`
	Quantity    int    `form:"quantity"     validate:"required,min=1"`
}

type AvailabilityResponse struct {
	Sufficient bool `json:"sufficient"`
	Available  int  `json:"available"`
	Requested  int  `json:"requested"`
	Quantity   int  `json:"quantity"`
	Reserved   int  `json:"reserved"`
}
