package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/bloodbank-api/internal/models"
	"github.com/noah-isme/bloodbank-api/internal/service"
	"github.com/noah-isme/bloodbank-api/pkg/export"
	"github.com/noah-isme/bloodbank-api/pkg/response"
)

type exportService interface {
	Inventory(ctx context.Context, filter models.InventoryFilter, format export.Format) (*service.ExportFile, error)
	Audit(ctx context.Context, limit int, format export.Format) (*service.ExportFile, error)
}

// ExportHandler streams inventory and audit exports.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// Inventory godoc
// @Summary Export available inventory
// @Tags Exports
// @Produce text/csv,application/pdf,application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param format query string false "csv (default), pdf or xlsx"
// @Param bloodGroup query string false "Blood group"
// @Param componentType query string false "Component type"
// @Success 200 {file} file
// @Security BearerAuth
// @Router /exports/inventory [get]
func (h *ExportHandler) Inventory(c *gin.Context) {
	format, err := service.ParseFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.service.Inventory(c.Request.Context(), inventoryFilter(c), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Payload)
}

// Audit godoc
// @Summary Export the audit log
// @Tags Exports
// @Produce text/csv,application/pdf,application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param format query string false "csv (default), pdf or xlsx"
// @Param limit query int false "Entries (default 50, max 200)"
// @Success 200 {file} file
// @Security BearerAuth
// @Router /exports/audit [get]
func (h *ExportHandler) Audit(c *gin.Context) {
	format, err := service.ParseFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	file, err := h.service.Audit(c.Request.Context(), limit, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Payload)
}
