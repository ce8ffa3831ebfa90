package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/attendly/fieldforce-api/internal/models"
	"github.com/attendly/fieldforce-api/internal/service"
	appErrors "github.com/attendly/fieldforce-api/pkg/errors"
	"github.com/attendly/fieldforce-api/pkg/response"
)

// TravelHandler exposes the travel request endpoints.
type TravelHandler struct {
	travel *service.TravelService
}

// NewTravelHandler constructs TravelHandler.
func NewTravelHandler(travel *service.TravelService) *TravelHandler {
	return &TravelHandler{travel: travel}
}

// Submit godoc
// @Summary Submit a travel request
// @Tags Travel
// @Accept json
// @Produce json
// @Param payload body service.SubmitTravelRequest true "Travel request"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /travel [post]
func (h *TravelHandler) Submit(c *gin.Context) {
	var req service.SubmitTravelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	travel, err := h.travel.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, travel)
}

// Decide godoc
// @Summary Approve or reject a pending travel request
// @Tags Travel
// @Accept json
// @Produce json
// @Param id path string true "Travel request ID"
// @Param payload body service.DecideTravelRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /travel/{id}/decide [post]
func (h *TravelHandler) Decide(c *gin.Context) {
	var req service.DecideTravelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	travel, err := h.travel.Decide(c.Request.Context(), c.Param("id"), actorID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, travel, nil)
}

// Get godoc
// @Summary Get a travel request
// @Tags Travel
// @Produce json
// @Param id path string true "Travel request ID"
// @Success 200 {object} response.Envelope
// @Router /travel/{id} [get]
func (h *TravelHandler) Get(c *gin.Context) {
	travel, err := h.travel.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, travel, nil)
}

// List godoc
// @Summary List travel requests
// @Tags Travel
// @Produce json
// @Param employeeId query string false "Filter by employee"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Router /travel [get]
func (h *TravelHandler) List(c *gin.Context) {
	var filter models.TravelFilter
	filter.EmployeeID = c.Query("employeeId")
	if status := models.TravelStatus(c.Query("status")); status != "" {
		filter.Status = &status
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	rows, total, err := h.travel.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}
