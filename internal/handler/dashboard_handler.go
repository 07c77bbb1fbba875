package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/bloodbank-api/internal/dto"
	"github.com/noah-isme/bloodbank-api/internal/middleware"
	appErrors "github.com/noah-isme/bloodbank-api/pkg/errors"
	"github.com/noah-isme/bloodbank-api/pkg/response"
)

type dashboardService interface {
	Inventory(ctx context.Context) (*dto.InventoryDashboard, bool, error)
}

// DashboardHandler wires dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Inventory godoc
// @Summary Stock and demand summary
// @Description Pending requests, today's appointments, units expiring soon and available stock per blood group.
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /dashboard [get]
func (h *DashboardHandler) Inventory(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	summary, cacheHit, err := h.service.Inventory(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, summary, nil, middleware.ExtractMeta(c))
}
