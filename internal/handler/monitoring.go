package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vitalsync/analytics/internal/service"
	"github.com/vitalsync/analytics/pkg/api"
	"github.com/vitalsync/analytics/pkg/model"
	"go.uber.org/zap"
)

// MonitoringHandler implements the real-time monitoring endpoints
type MonitoringHandler struct {
	monitoring *service.MonitoringService
	alerts     *service.AlertService
	logger     *zap.Logger
}

// NewMonitoringHandler creates a new MonitoringHandler
func NewMonitoringHandler(monitoring *service.MonitoringService, alerts *service.AlertService, logger *zap.Logger) *MonitoringHandler {
	return &MonitoringHandler{
		monitoring: monitoring,
		alerts:     alerts,
		logger:     logger,
	}
}

// CreateSession starts a monitoring session
func (h *MonitoringHandler) CreateSession(c *gin.Context) {
	var req api.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}

	thresholds := make(map[model.MetricType]model.Threshold, len(req.AlertThresholds))
	for t, band := range req.AlertThresholds {
		thresholds[model.MetricType(t)] = model.Threshold{Min: band.Min, Max: band.Max}
	}
	enabled := make([]model.MetricType, 0, len(req.EnabledMetrics))
	for _, t := range req.EnabledMetrics {
		enabled = append(enabled, model.MetricType(t))
	}

	session := &model.MonitoringSession{
		UserID:          req.UserID,
		DeviceID:        req.DeviceID,
		SamplingRateMs:  req.SamplingRateMs,
		AlertThresholds: thresholds,
		EnabledMetrics:  enabled,
	}

	created, err := h.monitoring.StartSession(c.Request.Context(), session)
	if err != nil {
		h.logger.Error("failed to start monitoring session",
			zap.Error(err),
			zap.String("user_id", req.UserID),
		)
		status, code := statusFor(err)
		c.JSON(status, api.ErrorResponse{
			Code:    code,
			Message: "Failed to start monitoring session",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusCreated, created)
}

// StopSession completes a session
func (h *MonitoringHandler) StopSession(c *gin.Context) {
	sessionID := c.Param("id")

	session, err := h.monitoring.StopSession(c.Request.Context(), sessionID)
	if err != nil {
		h.logger.Error("failed to stop monitoring session",
			zap.Error(err),
			zap.String("session_id", sessionID),
		)
		status, code := statusFor(err)
		c.JSON(status, api.ErrorResponse{
			Code:    code,
			Message: "Failed to stop monitoring session",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, session)
}

// PauseSession suspends ingestion on a session
func (h *MonitoringHandler) PauseSession(c *gin.Context) {
	sessionID := c.Param("id")

	if err := h.monitoring.PauseSession(c.Request.Context(), sessionID); err != nil {
		h.logger.Error("failed to pause monitoring session",
			zap.Error(err),
			zap.String("session_id", sessionID),
		)
		status, code := statusFor(err)
		c.JSON(status, api.ErrorResponse{
			Code:    code,
			Message: "Failed to pause monitoring session",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.Status(http.StatusNoContent)
}

// ResumeSession re-enables ingestion on a paused session
func (h *MonitoringHandler) ResumeSession(c *gin.Context) {
	sessionID := c.Param("id")

	if err := h.monitoring.ResumeSession(c.Request.Context(), sessionID); err != nil {
		h.logger.Error("failed to resume monitoring session",
			zap.Error(err),
			zap.String("session_id", sessionID),
		)
		status, code := statusFor(err)
		c.JSON(status, api.ErrorResponse{
			Code:    code,
			Message: "Failed to resume monitoring session",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.Status(http.StatusNoContent)
}

// RecordData ingests live samples into a session
func (h *MonitoringHandler) RecordData(c *gin.Context) {
	sessionID := c.Param("id")

	var req api.RecordDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}

	samples := make([]model.RealTimeMetric, 0, len(req.Metrics))
	for _, m := range req.Metrics {
		samples = append(samples, model.RealTimeMetric{
			MetricType: model.MetricType(m.MetricType),
			Value:      m.Value,
			Unit:       m.Unit,
			Quality:    m.Quality,
			Confidence: m.Confidence,
			Timestamp:  m.Timestamp,
		})
	}

	accepted, alerts, err := h.monitoring.RecordData(c.Request.Context(), sessionID, samples)
	if err != nil {
		h.logger.Error("failed to record monitoring data",
			zap.Error(err),
			zap.String("session_id", sessionID),
		)
		status, code := statusFor(err)
		c.JSON(status, api.ErrorResponse{
			Code:    code,
			Message: "Failed to record monitoring data",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, api.RecordDataResponse{
		Accepted: accepted,
		Dropped:  len(samples) - accepted,
		Alerts:   alerts,
	})
}

// GetAlerts returns a user's alerts; active_only=false includes acknowledged
// history
func (h *MonitoringHandler) GetAlerts(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "user_id is required",
		})
		return
	}

	activeOnly := c.DefaultQuery("active_only", "true") == "true"

	var (
		alerts []model.Alert
		err    error
	)
	if activeOnly {
		alerts, err = h.alerts.GetActiveAlerts(c.Request.Context(), userID)
	} else {
		alerts, err = h.alerts.GetAlertHistory(c.Request.Context(), userID)
	}
	if err != nil {
		h.logger.Error("failed to get alerts",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		status, code := statusFor(err)
		c.JSON(status, api.ErrorResponse{
			Code:    code,
			Message: "Failed to get alerts",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, alerts)
}

// AcknowledgeAlert marks one alert acknowledged
func (h *MonitoringHandler) AcknowledgeAlert(c *gin.Context) {
	alertID := c.Param("id")

	if err := h.alerts.AcknowledgeAlert(c.Request.Context(), alertID); err != nil {
		h.logger.Error("failed to acknowledge alert",
			zap.Error(err),
			zap.String("alert_id", alertID),
		)
		status, code := statusFor(err)
		c.JSON(status, api.ErrorResponse{
			Code:    code,
			Message: "Failed to acknowledge alert",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.Status(http.StatusNoContent)
}

// GetDashboard snapshots the user's live monitoring state
func (h *MonitoringHandler) GetDashboard(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "user_id is required",
		})
		return
	}

	dashboard, err := h.monitoring.GetDashboard(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to get monitoring dashboard",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		status, code := statusFor(err)
		c.JSON(status, api.ErrorResponse{
			Code:    code,
			Message: "Failed to get monitoring dashboard",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, dashboard)
}
