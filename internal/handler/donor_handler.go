package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/bloodbank-api/internal/models"
	"github.com/noah-isme/bloodbank-api/pkg/response"
)

type donorService interface {
	List(ctx context.Context, filter models.DonorFilter) ([]models.Donor, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Donor, error)
	Eligibility(ctx context.Context, id string, asOf time.Time) (*models.Eligibility, error)
	Delete(ctx context.Context, id string) error
}

// DonorHandler exposes donor records.
type DonorHandler struct {
	service donorService
}

// NewDonorHandler constructs the handler.
func NewDonorHandler(service donorService) *DonorHandler {
	return &DonorHandler{service: service}
}

// List godoc
// @Summary List donors
// @Tags Donors
// @Produce json
// @Param search query string false "Name contains"
// @Param bloodGroup query string false "Blood group"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /donors [get]
func (h *DonorHandler) List(c *gin.Context) {
	filter := models.DonorFilter{
		Search:     strings.TrimSpace(c.Query("search")),
		BloodGroup: models.BloodGroup(strings.TrimSpace(c.Query("bloodGroup"))),
	}
	filter.Page, filter.PageSize = pageParams(c)

	donors, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, donors, pagination)
}

// Get godoc
// @Summary Get donor
// @Tags Donors
// @Produce json
// @Param id path string true "Donor ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /donors/{id} [get]
func (h *DonorHandler) Get(c *gin.Context) {
	donor, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, donor)
}

// Eligibility godoc
// @Summary Check whether a donor may donate on a date
// @Tags Donors
// @Produce json
// @Param id path string true "Donor ID"
// @Param asOf query string false "Date (YYYY-MM-DD). Defaults to today"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /donors/{id}/eligibility [get]
func (h *DonorHandler) Eligibility(c *gin.Context) {
	asOf, err := queryDate(c, "asOf")
	if err != nil {
		response.Error(c, err)
		return
	}
	var day time.Time
	if asOf != nil {
		day = *asOf
	}
	result, err := h.service.Eligibility(c.Request.Context(), c.Param("id"), day)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Delete godoc
// @Summary Delete a donor with their donations and units
// @Description Blocked with HAS_ISSUED_DEPENDENTS once any of the donor's units was issued.
// @Tags Donors
// @Param id path string true "Donor ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /donors/{id} [delete]
func (h *DonorHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
