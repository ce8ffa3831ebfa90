package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/attendly/fieldforce-api/internal/models"
	"github.com/attendly/fieldforce-api/internal/service"
	appErrors "github.com/attendly/fieldforce-api/pkg/errors"
	"github.com/attendly/fieldforce-api/pkg/response"
)

// ConfirmationHandler exposes the sign-off pipeline endpoints.
type ConfirmationHandler struct {
	pipeline *service.ConfirmationService
}

// NewConfirmationHandler constructs ConfirmationHandler.
func NewConfirmationHandler(pipeline *service.ConfirmationService) *ConfirmationHandler {
	return &ConfirmationHandler{pipeline: pipeline}
}

type confirmRequest struct {
	EmployeeID string `json:"employee_id" binding:"required"`
	Date       string `json:"date" binding:"required"`
}

type approveRequest struct {
	EmployeeID string `json:"employee_id" binding:"required"`
	Date       string `json:"date" binding:"required"`
	Override   bool   `json:"override"`
}

type bulkApproveRequest struct {
	From     string `json:"from" binding:"required"`
	To       string `json:"to" binding:"required"`
	Override bool   `json:"override"`
}

// Confirm godoc
// @Summary Delegate-confirm a daily record
// @Tags Approval
// @Accept json
// @Produce json
// @Param payload body confirmRequest true "Record key"
// @Success 200 {object} response.Envelope
// @Router /attendance/confirm [post]
func (h *ConfirmationHandler) Confirm(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	rec, err := h.pipeline.Confirm(c.Request.Context(), req.EmployeeID, req.Date, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rec, nil)
}

// Approve godoc
// @Summary Admin-approve a daily record, locking it
// @Tags Approval
// @Accept json
// @Produce json
// @Param payload body approveRequest true "Record key"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /attendance/approve [post]
func (h *ConfirmationHandler) Approve(c *gin.Context) {
	var req approveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	if req.Override && !h.allowsOverride(c) {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "override requires elevated role"))
		return
	}
	rec, err := h.pipeline.Approve(c.Request.Context(), req.EmployeeID, req.Date, actorID(c), req.Override)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rec, nil)
}

// BulkApprove godoc
// @Summary Approve every unapproved record in a range
// @Tags Approval
// @Accept json
// @Produce json
// @Param payload body bulkApproveRequest true "Date range"
// @Success 200 {object} response.Envelope
// @Router /attendance/approve/bulk [post]
func (h *ConfirmationHandler) BulkApprove(c *gin.Context) {
	var req bulkApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	if req.Override && !h.allowsOverride(c) {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "override requires elevated role"))
		return
	}
	outcomes, err := h.pipeline.BulkApprove(c.Request.Context(), req.From, req.To, actorID(c), req.Override)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcomes, nil)
}

// CloseCycle godoc
// @Summary Close a payroll cycle: normalize, approve, export
// @Tags Approval
// @Accept json
// @Produce json
// @Param payload body bulkApproveRequest true "Cycle range"
// @Success 200 {object} response.Envelope
// @Router /payroll/close [post]
func (h *ConfirmationHandler) CloseCycle(c *gin.Context) {
	var req bulkApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	outcomes, exportPath, err := h.pipeline.CloseCycle(c.Request.Context(), req.From, req.To, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	meta := map[string]interface{}{}
	if exportPath != "" {
		meta["export_path"] = exportPath
	}
	response.JSON(c, http.StatusOK, outcomes, nil, meta)
}

func (h *ConfirmationHandler) allowsOverride(c *gin.Context) bool {
	claims := currentClaims(c)
	return claims != nil && claims.Role.Allows(models.CapApprovalOverride)
}
