package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/bloodbank-api/internal/dto"
	"github.com/noah-isme/bloodbank-api/internal/models"
	"github.com/noah-isme/bloodbank-api/pkg/response"
)

type donationService interface {
	Schedule(ctx context.Context, req dto.ScheduleDonationRequest) (*dto.ScheduleDonationResponse, error)
	Complete(ctx context.Context, id string, req dto.CompleteDonationRequest) (*dto.CompleteDonationResponse, error)
	Cancel(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*models.DonationDetail, error)
	List(ctx context.Context, filter models.DonationFilter) ([]models.DonationDetail, *models.Pagination, error)
}

// DonationHandler exposes the donation lifecycle.
type DonationHandler struct {
	service donationService
}

// NewDonationHandler constructs the handler.
func NewDonationHandler(service donationService) *DonationHandler {
	return &DonationHandler{service: service}
}

// Schedule godoc
// @Summary Register a donor and schedule a donation
// @Description Re-uses the donor with the same contact. Fails with INELIGIBLE_DONOR inside the cooldown window.
// @Tags Donations
// @Accept json
// @Produce json
// @Param payload body dto.ScheduleDonationRequest true "Donor and appointment"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /donations/schedule [post]
func (h *DonationHandler) Schedule(c *gin.Context) {
	var req dto.ScheduleDonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid donation payload"))
		return
	}
	res, err := h.service.Schedule(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// List godoc
// @Summary List donations
// @Tags Donations
// @Produce json
// @Param status query string false "SCHEDULED, COMPLETED or CANCELLED"
// @Param date query string false "Donation date (YYYY-MM-DD)"
// @Param donorId query string false "Donor ID"
// @Param centerId query string false "Center ID"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /donations [get]
func (h *DonationHandler) List(c *gin.Context) {
	date, err := queryDate(c, "date")
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.DonationFilter{
		Status:   models.DonationStatus(strings.ToUpper(strings.TrimSpace(c.Query("status")))),
		DonorID:  c.Query("donorId"),
		CenterID: c.Query("centerId"),
		Date:     date,
	}
	filter.Page, filter.PageSize = pageParams(c)

	items, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get donation detail
// @Tags Donations
// @Produce json
// @Param id path string true "Donation ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /donations/{id} [get]
func (h *DonationHandler) Get(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, detail)
}

// Complete godoc
// @Summary Complete a scheduled donation
// @Description Creates exactly one inventory unit. The body is optional and defaults to Whole Blood.
// @Tags Donations
// @Accept json
// @Produce json
// @Param id path string true "Donation ID"
// @Param payload body dto.CompleteDonationRequest false "Component"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /donations/{id}/complete [post]
func (h *DonationHandler) Complete(c *gin.Context) {
	var req dto.CompleteDonationRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, bindError(err, "invalid completion payload"))
		return
	}
	res, err := h.service.Complete(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// Cancel godoc
// @Summary Cancel a scheduled donation
// @Tags Donations
// @Param id path string true "Donation ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /donations/{id}/cancel [post]
func (h *DonationHandler) Cancel(c *gin.Context) {
	if err := h.service.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Delete godoc
// @Summary Delete a donation and its unit
// @Tags Donations
// @Param id path string true "Donation ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /donations/{id} [delete]
func (h *DonationHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
