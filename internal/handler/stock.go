package handler

import (
	"net/http"

	"stockpos/internal/dto"
	"stockpos/internal/service"

	"github.com/gin-gonic/gin"
)

type StockHandler struct{ svc service.StockService }

func NewStockHandler(svc service.StockService) *StockHandler {
	return &StockHandler{svc: svc}
}

// List is GET /v1/stock — per-warehouse stock with optional low-stock filter.
func (h *StockHandler) List(c *gin.Context) {
	var filter dto.StockFilter
	if !bindQueryAndValidate(c, &filter) {
		return
	}
	resp, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Availability is GET /v1/stock/availability — answers "can this quantity be
// reserved right now" without holding anything.
func (h *StockHandler) Availability(c *gin.Context) {
	var req dto.AvailabilityRequest
	if !bindQueryAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Availability(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
