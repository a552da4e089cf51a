package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-tools/internal/models"
	"github.com/noah-isme/campus-tools/internal/service"
	appErrors "github.com/noah-isme/campus-tools/pkg/errors"
	"github.com/noah-isme/campus-tools/pkg/response"
)

type leaveService interface {
	GetBalance(ctx context.Context, employeeID string) (*models.LeaveOutcome, error)
	ApplyLeave(ctx context.Context, req models.ApplyLeaveRequest) (*models.LeaveOutcome, error)
	GetHistory(ctx context.Context, employeeID string) (*models.LeaveOutcome, error)
}

type leaveExporter interface {
	LeaveHistory(ctx context.Context, employeeID, format string) (*service.ExportResult, error)
}

// ApplyLeavePayload is the body of a leave application.
type ApplyLeavePayload struct {
	LeaveDates []string `json:"leave_dates"`
}

// LeaveHandler mirrors the leave tools over REST. Unknown employees and insufficient
// balances are 200 responses whose outcome status explains the result.
type LeaveHandler struct {
	leave    leaveService
	exporter leaveExporter
}

// NewLeaveHandler constructs a leave handler.
func NewLeaveHandler(leave leaveService, exporter leaveExporter) *LeaveHandler {
	return &LeaveHandler{leave: leave, exporter: exporter}
}

// Balance godoc
// @Summary Get leave balance
// @Tags Leave
// @Produce json
// @Param id path string true "Employee ID"
// @Success 200 {object} response.Envelope
// @Router /employees/{id}/leave-balance [get]
func (h *LeaveHandler) Balance(c *gin.Context) {
	outcome, err := h.leave.GetBalance(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcome)
}

// Apply godoc
// @Summary Apply leave
// @Description Books every date or none. An empty list succeeds without changing the balance.
// @Tags Leave
// @Accept json
// @Produce json
// @Param id path string true "Employee ID"
// @Param payload body ApplyLeavePayload true "Dates to book"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /employees/{id}/leaves [post]
func (h *LeaveHandler) Apply(c *gin.Context) {
	var payload ApplyLeavePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid leave payload"))
		return
	}
	outcome, err := h.leave.ApplyLeave(c.Request.Context(), models.ApplyLeaveRequest{
		EmployeeID: c.Param("id"),
		LeaveDates: payload.LeaveDates,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcome)
}

// History godoc
// @Summary Get leave history
// @Tags Leave
// @Produce json
// @Param id path string true "Employee ID"
// @Success 200 {object} response.Envelope
// @Router /employees/{id}/leave-history [get]
func (h *LeaveHandler) History(c *gin.Context) {
	outcome, err := h.leave.GetHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcome)
}

// Export godoc
// @Summary Export leave history
// @Tags Leave
// @Produce text/csv,application/pdf
// @Param id path string true "Employee ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /employees/{id}/leave-history/export [get]
func (h *LeaveHandler) Export(c *gin.Context) {
	result, err := h.exporter.LeaveHistory(c.Request.Context(), c.Param("id"), c.DefaultQuery("format", service.ExportFormatCSV))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Body)
}
