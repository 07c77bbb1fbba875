package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/bloodbank-api/internal/dto"
	"github.com/noah-isme/bloodbank-api/internal/models"
	"github.com/noah-isme/bloodbank-api/pkg/response"
)

type allocationService interface {
	Submit(ctx context.Context, req dto.SubmitRequestRequest) (*models.BloodRequest, error)
	Fulfill(ctx context.Context, id string) (*models.FulfillmentResult, error)
	Cancel(ctx context.Context, id string) (*models.BloodRequest, error)
	Get(ctx context.Context, id string) (*models.FulfillmentResult, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.BloodRequest, *models.Pagination, error)
}

// RequestHandler exposes blood requests and their fulfilment.
type RequestHandler struct {
	service allocationService
}

// NewRequestHandler constructs the handler.
func NewRequestHandler(service allocationService) *RequestHandler {
	return &RequestHandler{service: service}
}

// Submit godoc
// @Summary Submit a blood request
// @Tags Requests
// @Accept json
// @Produce json
// @Param payload body dto.SubmitRequestRequest true "Request"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /requests [post]
func (h *RequestHandler) Submit(c *gin.Context) {
	var req dto.SubmitRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid request payload"))
		return
	}
	created, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// List godoc
// @Summary List blood requests
// @Description Pending requests come oldest first; other listings newest first.
// @Tags Requests
// @Produce json
// @Param status query string false "PENDING, FULFILLED or CANCELLED"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /requests [get]
func (h *RequestHandler) List(c *gin.Context) {
	filter := models.RequestFilter{Status: models.RequestStatus(strings.ToUpper(strings.TrimSpace(c.Query("status"))))}
	filter.Page, filter.PageSize = pageParams(c)

	items, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get a request with its issued units
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /requests/{id} [get]
func (h *RequestHandler) Get(c *gin.Context) {
	result, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Fulfill godoc
// @Summary Fulfil a pending request from the oldest matching stock
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /requests/{id}/fulfill [post]
func (h *RequestHandler) Fulfill(c *gin.Context) {
	result, err := h.service.Fulfill(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	res := dto.FulfillResponse{RequestID: result.Request.ID}
	for _, issue := range result.Issues {
		res.IssueIDs = append(res.IssueIDs, issue.ID)
		res.UnitIDs = append(res.UnitIDs, issue.InventoryUnitID)
	}
	if len(res.IssueIDs) > 0 {
		res.IssueID = res.IssueIDs[0]
	}
	response.OK(c, res)
}

// Cancel godoc
// @Summary Cancel a pending request
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /requests/{id}/cancel [post]
func (h *RequestHandler) Cancel(c *gin.Context) {
	req, err := h.service.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, req)
}
