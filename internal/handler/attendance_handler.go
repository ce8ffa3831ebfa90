package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/attendly/fieldforce-api/internal/models"
	"github.com/attendly/fieldforce-api/internal/service"
	appErrors "github.com/attendly/fieldforce-api/pkg/errors"
	"github.com/attendly/fieldforce-api/pkg/response"
)

// AttendanceHandler exposes the daily attendance endpoints.
type AttendanceHandler struct {
	attendance *service.AttendanceService
	leaves     *service.LeaveService
	audit      *service.AuditService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance *service.AttendanceService, leaves *service.LeaveService, audit *service.AuditService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance, leaves: leaves, audit: audit}
}

// CheckIn godoc
// @Summary Record a check-in and classify the day
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.CheckInRequest true "Check-in event"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /attendance/check-in [post]
func (h *AttendanceHandler) CheckIn(c *gin.Context) {
	var req service.CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	result, err := h.attendance.CheckIn(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// CheckOut godoc
// @Summary Record a check-out and re-classify the day
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.CheckOutRequest true "Check-out event"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /attendance/check-out [post]
func (h *AttendanceHandler) CheckOut(c *gin.Context) {
	var req service.CheckOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	rec, err := h.attendance.CheckOut(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rec, nil)
}

// Get godoc
// @Summary Get the record for an employee and date
// @Tags Attendance
// @Produce json
// @Param employeeId path string true "Employee ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance/records/{employeeId} [get]
func (h *AttendanceHandler) Get(c *gin.Context) {
	rec, err := h.attendance.Get(c.Request.Context(), c.Param("employeeId"), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rec, nil)
}

// List godoc
// @Summary List attendance records
// @Tags Attendance
// @Produce json
// @Param employeeId query string false "Filter by employee"
// @Param status query string false "Filter by status"
// @Param from query string false "Range start (YYYY-MM-DD)"
// @Param to query string false "Range end (YYYY-MM-DD)"
// @Param unapproved query bool false "Only records pending admin approval"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	var filter models.AttendanceFilter
	filter.EmployeeID = c.Query("employeeId")
	if status := models.AttendanceStatus(c.Query("status")); status != "" {
		if !status.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown attendance status"))
			return
		}
		filter.Status = &status
	}
	if from := c.Query("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid from date"))
			return
		}
		filter.DateFrom = &t
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid to date"))
			return
		}
		filter.DateTo = &t
	}
	filter.Unapproved = c.Query("unapproved") == "true"
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	rows, total, err := h.attendance.List(c.Request.Context(), filter)
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

// Summary godoc
// @Summary Aggregate an employee's attendance over a range
// @Tags Attendance
// @Produce json
// @Param employeeId path string true "Employee ID"
// @Param from query string true "Range start (YYYY-MM-DD)"
// @Param to query string true "Range end (YYYY-MM-DD)"
// @Router /attendance/records/{employeeId}/summary [get]
func (h *AttendanceHandler) Summary(c *gin.Context) {
	summary, err := h.attendance.Summary(c.Request.Context(), c.Param("employeeId"), c.Query("from"), c.Query("to"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// History godoc
// @Summary Audit trail for a daily record
// @Tags Attendance
// @Produce json
// @Param employeeId path string true "Employee ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Router /attendance/records/{employeeId}/history [get]
func (h *AttendanceHandler) History(c *gin.Context) {
	events, err := h.audit.History(c.Request.Context(), c.Param("employeeId"), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, nil)
}

// Leaves godoc
// @Summary Approved leaves overlapping a range
// @Tags Attendance
// @Produce json
// @Param employeeId path string true "Employee ID"
// @Param from query string true "Range start (YYYY-MM-DD)"
// @Param to query string true "Range end (YYYY-MM-DD)"
// @Router /attendance/records/{employeeId}/leaves [get]
func (h *AttendanceHandler) Leaves(c *gin.Context) {
	leaves, err := h.leaves.ListApproved(c.Request.Context(), c.Param("employeeId"), c.Query("from"), c.Query("to"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, leaves, nil)
}

// Sweep godoc
// @Summary Insert not_marked records for employees without one on the date
// @Tags Attendance
// @Produce json
// @Param date query string true "Date (YYYY-MM-DD)"
// @Router /attendance/sweep [post]
func (h *AttendanceHandler) Sweep(c *gin.Context) {
	count, err := h.attendance.SweepUnmarked(c.Request.Context(), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"inserted": count}, nil)
}
