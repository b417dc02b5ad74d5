package handler

import (
	"net/http"

	"stockpos/internal/dto"
	"stockpos/internal/service"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct{ svc service.AuditService }

func NewAuditHandler(svc service.AuditService) *AuditHandler {
	return &AuditHandler{svc: svc}
}

func (h *AuditHandler) List(c *gin.Context) {
	var filter dto.AuditFilter
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
