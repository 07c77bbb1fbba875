package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/bloodbank-api/internal/dto"
	"github.com/noah-isme/bloodbank-api/internal/models"
	"github.com/noah-isme/bloodbank-api/pkg/response"
)

type inventoryService interface {
	ListAvailable(ctx context.Context, filter models.InventoryFilter) ([]models.InventoryUnitDetail, error)
	Get(ctx context.Context, id string) (*models.InventoryUnitDetail, error)
	Sweep(ctx context.Context) (*dto.SweepResult, error)
}

// InventoryHandler exposes stock.
type InventoryHandler struct {
	service inventoryService
}

// NewInventoryHandler constructs the handler.
func NewInventoryHandler(service inventoryService) *InventoryHandler {
	return &InventoryHandler{service: service}
}

func inventoryFilter(c *gin.Context) models.InventoryFilter {
	return models.InventoryFilter{
		BloodGroup:    models.BloodGroup(strings.TrimSpace(c.Query("bloodGroup"))),
		ComponentType: strings.TrimSpace(c.Query("componentType")),
	}
}

// ListAvailable godoc
// @Summary List issuable units, oldest collection first
// @Tags Inventory
// @Produce json
// @Param bloodGroup query string false "Blood group, e.g. O+ (URL-encode the sign)"
// @Param componentType query string false "Component type"
// @Success 200 {object} response.Envelope
// @Router /inventory [get]
func (h *InventoryHandler) ListAvailable(c *gin.Context) {
	units, err := h.service.ListAvailable(c.Request.Context(), inventoryFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, units)
}

// Get godoc
// @Summary Get an inventory unit in any status
// @Tags Inventory
// @Produce json
// @Param id path string true "Unit ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /inventory/{id} [get]
func (h *InventoryHandler) Get(c *gin.Context) {
	unit, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, unit)
}

// Sweep godoc
// @Summary Expire every available unit past its expiry date
// @Tags Inventory
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /inventory/sweep [post]
func (h *InventoryHandler) Sweep(c *gin.Context) {
	result, err := h.service.Sweep(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}
