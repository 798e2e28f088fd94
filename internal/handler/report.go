package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vitalsync/analytics/internal/service"
	"github.com/vitalsync/analytics/pkg/api"
	"go.uber.org/zap"
)

// ReportHandler implements the report and data export endpoints
type ReportHandler struct {
	reports *service.ReportService
	exports *service.ExportService
	logger  *zap.Logger
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reports *service.ReportService, exports *service.ExportService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		reports: reports,
		exports: exports,
		logger:  logger,
	}
}

// GenerateReport composes and stores a health report for a period
func (h *ReportHandler) GenerateReport(c *gin.Context) {
	var req api.GenerateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}

	report, err := h.reports.GenerateHealthReport(c.Request.Context(), req.UserID, req.ReportType, req.PeriodStart, req.PeriodEnd)
	if err != nil {
		h.logger.Error("failed to generate report",
			zap.Error(err),
			zap.String("user_id", req.UserID),
		)
		status, code := statusFor(err)
		c.JSON(status, api.ErrorResponse{
			Code:    code,
			Message: "Failed to generate report",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusCreated, report)
}

// GetReport returns one stored report
func (h *ReportHandler) GetReport(c *gin.Context) {
	reportID := c.Param("id")

	report, err := h.reports.GetHealthReportByID(c.Request.Context(), reportID)
	if err != nil {
		h.logger.Error("failed to get report",
			zap.Error(err),
			zap.String("report_id", reportID),
		)
		status, code := statusFor(err)
		c.JSON(status, api.ErrorResponse{
			Code:    code,
			Message: "Failed to get report",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetReportPDF renders a stored report as a PDF download
func (h *ReportHandler) GetReportPDF(c *gin.Context) {
	reportID := c.Param("id")

	pdfBytes, err := h.reports.RenderReportPDF(c.Request.Context(), reportID)
	if err != nil {
		h.logger.Error("failed to render report PDF",
			zap.Error(err),
			zap.String("report_id", reportID),
		)
		status, code := statusFor(err)
		c.JSON(status, api.ErrorResponse{
			Code:    code,
			Message: "Failed to render report PDF",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=health_report_%s.pdf", reportID))
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

// ExportUserData returns all of a user's data in the requested format
func (h *ReportHandler) ExportUserData(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "user_id is required",
		})
		return
	}

	format := service.ExportFormat(c.DefaultQuery("format", "json"))

	data, contentType, err := h.exports.ExportUserData(c.Request.Context(), userID, format,
		c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		h.logger.Error("failed to export user data",
			zap.Error(err),
			zap.String("user_id", userID),
			zap.String("format", string(format)),
		)
		status, code := statusFor(err)
		c.JSON(status, api.ErrorResponse{
			Code:    code,
			Message: "Failed to export user data",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=user_data_export.%s", format))
	c.Data(http.StatusOK, contentType, data)
}

// EraseUserData deletes all of a user's data
func (h *ReportHandler) EraseUserData(c *gin.Context) {
	userID := c.Param("id")

	if err := h.exports.EraseUserData(c.Request.Context(), userID, c.ClientIP(), c.Request.UserAgent()); err != nil {
		h.logger.Error("failed to erase user data",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		status, code := statusFor(err)
		c.JSON(status, api.ErrorResponse{
			Code:    code,
			Message: "Failed to erase user data",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "All user data has been deleted",
	})
}
