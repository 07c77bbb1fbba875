package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/bloodbank-api/internal/dto"
	"github.com/noah-isme/bloodbank-api/internal/middleware"
	"github.com/noah-isme/bloodbank-api/internal/models"
	"github.com/noah-isme/bloodbank-api/pkg/response"
)

type centerService interface {
	List(ctx context.Context, activeOnly bool) ([]models.Center, error)
	Create(ctx context.Context, req dto.CreateCenterRequest) (*models.Center, error)
	Delete(ctx context.Context, id string) error
}

// CenterHandler exposes the collection center directory.
type CenterHandler struct {
	service centerService
}

// NewCenterHandler constructs the handler.
func NewCenterHandler(service centerService) *CenterHandler {
	return &CenterHandler{service: service}
}

// List godoc
// @Summary List collection centers
// @Description Anonymous callers see active centers only; admins may pass all=true.
// @Tags Centers
// @Produce json
// @Param all query bool false "Include inactive centers (admin)"
// @Success 200 {object} response.Envelope
// @Router /centers [get]
func (h *CenterHandler) List(c *gin.Context) {
	activeOnly := true
	if claims := middleware.Claims(c); claims != nil && claims.Role == models.RoleAdmin && c.Query("all") == "true" {
		activeOnly = false
	}
	centers, err := h.service.List(c.Request.Context(), activeOnly)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, centers)
}

// Create godoc
// @Summary Add a collection center
// @Tags Centers
// @Accept json
// @Produce json
// @Param payload body dto.CreateCenterRequest true "Center"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /centers [post]
func (h *CenterHandler) Create(c *gin.Context) {
	var req dto.CreateCenterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid center payload"))
		return
	}
	center, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, center)
}

// Delete godoc
// @Summary Delete a center without donations
// @Tags Centers
// @Param id path string true "Center ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /centers/{id} [delete]
func (h *CenterHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
