package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vitalsync/analytics/internal/service"
	"github.com/vitalsync/analytics/pkg/api"
	"github.com/vitalsync/analytics/pkg/model"
	"go.uber.org/zap"
)

// AnalyticsHandler implements the metric, score, prediction and pattern
// endpoints
type AnalyticsHandler struct {
	metrics     *service.MetricService
	scores      *service.ScoreService
	predictions *service.PredictionService
	patterns    *service.PatternService
	logger      *zap.Logger
}

// NewAnalyticsHandler creates a new AnalyticsHandler
func NewAnalyticsHandler(
	metrics *service.MetricService,
	scores *service.ScoreService,
	predictions *service.PredictionService,
	patterns *service.PatternService,
	logger *zap.Logger,
) *AnalyticsHandler {
	return &AnalyticsHandler{
		metrics:     metrics,
		scores:      scores,
		predictions: predictions,
		patterns:    patterns,
		logger:      logger,
	}
}

// RecordMetric appends one health metric sample
func (h *AnalyticsHandler) RecordMetric(c *gin.Context) {
	var req api.RecordMetricRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}

	metric := &model.Metric{
		UserID:     req.UserID,
		MetricType: model.MetricType(req.MetricType),
		Value:      req.Value,
		Unit:       req.Unit,
		Timestamp:  req.Timestamp,
		Source:     model.MetricSource(req.Source),
		Confidence: req.Confidence,
	}

	recorded, err := h.metrics.RecordMetric(c.Request.Context(), metric)
	if err != nil {
		h.logger.Error("failed to record metric",
			zap.Error(err),
			zap.String("user_id", req.UserID),
		)
		status, code := statusFor(err)
		c.JSON(status, api.ErrorResponse{
			Code:    code,
			Message: "Failed to record metric",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusCreated, recorded)
}

// GetMetrics queries a user's metrics of one type in a date range
func (h *AnalyticsHandler) GetMetrics(c *gin.Context) {
	userID := c.Query("user_id")
	metricType := c.Query("metric_type")
	if userID == "" || metricType == "" {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "user_id and metric_type are required",
		})
		return
	}

	from, to, err := parseDateRange(c.Query("from"), c.Query("to"), 30*24*time.Hour)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid date format, expected YYYY-MM-DD",
			Details: stringPtr(err.Error()),
		})
		return
	}

	metrics, err := h.metrics.GetMetrics(c.Request.Context(), userID, model.MetricType(metricType), from, to)
	if err != nil {
		h.logger.Error("failed to query metrics",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		status, code := statusFor(err)
		c.JSON(status, api.ErrorResponse{
			Code:    code,
			Message: "Failed to query metrics",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, metrics)
}

// CalculateHealthScores recomputes the composite scores for a user and day
func (h *AnalyticsHandler) CalculateHealthScores(c *gin.Context) {
	var req api.CalculateScoresRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}

	date := time.Now()
	if req.Date != nil {
		date = *req.Date
	}

	// Omitted flags default to true so a bare request computes everything.
	flags := service.AllScoreFlags()
	if req.IncludeNutrition != nil {
		flags.IncludeNutrition = *req.IncludeNutrition
	}
	if req.IncludeFitness != nil {
		flags.IncludeFitness = *req.IncludeFitness
	}
	if req.IncludeRecovery != nil {
		flags.IncludeRecovery = *req.IncludeRecovery
	}
	if req.IncludeConsistency != nil {
		flags.IncludeConsistency = *req.IncludeConsistency
	}

	set, err := h.scores.CalculateHealthScores(c.Request.Context(), req.UserID, date, flags)
	if err != nil {
		h.logger.Error("failed to calculate health scores",
			zap.Error(err),
			zap.String("user_id", req.UserID),
		)
		status, code := statusFor(err)
		c.JSON(status, api.ErrorResponse{
			Code:    code,
			Message: "Failed to calculate health scores",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, set)
}

// GetHealthScores returns stored scores in a date range
func (h *AnalyticsHandler) GetHealthScores(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "user_id is required",
		})
		return
	}

	from, to, err := parseDateRange(c.Query("from"), c.Query("to"), 30*24*time.Hour)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid date format, expected YYYY-MM-DD",
			Details: stringPtr(err.Error()),
		})
		return
	}

	scores, err := h.scores.GetHealthScores(c.Request.Context(), userID, from, to)
	if err != nil {
		h.logger.Error("failed to get health scores",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		status, code := statusFor(err)
		c.JSON(status, api.ErrorResponse{
			Code:    code,
			Message: "Failed to get health scores",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, scores)
}

// GeneratePrediction creates one prediction and supersedes prior ones of the
// same type
func (h *AnalyticsHandler) GeneratePrediction(c *gin.Context) {
	var req api.GeneratePredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}

	prediction, err := h.predictions.Generate(c.Request.Context(), req.UserID,
		model.PredictionType(req.PredictionType), req.TargetDate)
	if err != nil {
		h.logger.Error("failed to generate prediction",
			zap.Error(err),
			zap.String("user_id", req.UserID),
			zap.String("prediction_type", req.PredictionType),
		)
		status, code := statusFor(err)
		c.JSON(status, api.ErrorResponse{
			Code:    code,
			Message: "Failed to generate prediction",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, prediction)
}

// GetPredictions returns stored predictions, optionally filtered by type
func (h *AnalyticsHandler) GetPredictions(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "user_id is required",
		})
		return
	}

	predictionType := model.PredictionType(c.Query("prediction_type"))
	activeOnly := c.DefaultQuery("active_only", "true") == "true"

	predictions, err := h.predictions.GetPredictions(c.Request.Context(), userID, predictionType, activeOnly)
	if err != nil {
		h.logger.Error("failed to get predictions",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		status, code := statusFor(err)
		c.JSON(status, api.ErrorResponse{
			Code:    code,
			Message: "Failed to get predictions",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, predictions)
}

// AnalyzePatterns runs pattern analysis for one type, or all types when the
// request names none
func (h *AnalyticsHandler) AnalyzePatterns(c *gin.Context) {
	var req api.AnalyzePatternsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}

	var (
		result interface{}
		err    error
	)
	if req.PatternType == "" {
		result, err = h.patterns.AnalyzeAll(c.Request.Context(), req.UserID,
			req.PeriodDays, req.PeriodStart, req.PeriodEnd)
	} else {
		result, err = h.patterns.Analyze(c.Request.Context(), req.UserID,
			model.PatternType(req.PatternType), req.PeriodDays, req.PeriodStart, req.PeriodEnd)
	}
	if err != nil {
		h.logger.Error("failed to analyze patterns",
			zap.Error(err),
			zap.String("user_id", req.UserID),
			zap.String("pattern_type", req.PatternType),
		)
		status, code := statusFor(err)
		c.JSON(status, api.ErrorResponse{
			Code:    code,
			Message: "Failed to analyze patterns",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetPatternAnalysis returns stored analyses, optionally filtered by type
func (h *AnalyticsHandler) GetPatternAnalysis(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "user_id is required",
		})
		return
	}

	patternType := model.PatternType(c.Query("pattern_type"))

	analyses, err := h.patterns.GetAnalyses(c.Request.Context(), userID, patternType)
	if err != nil {
		h.logger.Error("failed to get pattern analyses",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		status, code := statusFor(err)
		c.JSON(status, api.ErrorResponse{
			Code:    code,
			Message: "Failed to get pattern analyses",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, analyses)
}
