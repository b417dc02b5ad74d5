package handler

import (
	"net/http"

	"stockpos/internal/dto"
	"stockpos/internal/middleware"
	"stockpos/internal/service"

	"github.com/gin-gonic/gin"
)

type MovementsHandler struct{ svc service.MovementService }

func NewMovementsHandler(svc service.MovementService) *MovementsHandler {
	return &MovementsHandler{svc: svc}
}

// Create is POST /v1/movements — manual entry/exit/adjustment movements only.
// Sale and transfer movements are emitted by their own lifecycles.
func (h *MovementsHandler) Create(c *gin.Context) {
	var req dto.CreateMovementRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Record(c.Request.Context(), middleware.GetActor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *MovementsHandler) List(c *gin.Context) {
	var filter dto.MovementFilter
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
