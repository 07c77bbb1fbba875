package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/bloodbank-api/internal/models"
	"github.com/noah-isme/bloodbank-api/pkg/response"
)

type auditService interface {
	Recent(ctx context.Context, limit int) ([]models.AuditLogEntry, error)
}

// AuditHandler exposes the inventory audit log.
type AuditHandler struct {
	service auditService
}

// NewAuditHandler constructs the handler.
func NewAuditHandler(service auditService) *AuditHandler {
	return &AuditHandler{service: service}
}

// Recent godoc
// @Summary Latest audit entries, newest first
// @Tags Audit
// @Produce json
// @Param limit query int false "Entries to return (default 50, max 200)"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /audit [get]
func (h *AuditHandler) Recent(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	entries, err := h.service.Recent(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, entries)
}
