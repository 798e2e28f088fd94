// Package api defines the request and response types of the HTTP surface.
package api

import (
	"time"

	"github.com/vitalsync/analytics/pkg/model"
)

// ErrorResponse is the uniform error body of every endpoint
type ErrorResponse struct {
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Details *string `json:"details,omitempty"`
}

// RecordMetricRequest records one health metric sample
type RecordMetricRequest struct {
	UserID     string    `json:"user_id" binding:"required"`
	MetricType string    `json:"metric_type" binding:"required"`
	Value      float64   `json:"value"`
	Unit       string    `json:"unit"`
	Timestamp  time.Time `json:"timestamp"`
	Source     string    `json:"source"`
	Confidence float64   `json:"confidence"`
}

// CalculateScoresRequest asks for a score recomputation
type CalculateScoresRequest struct {
	UserID             string     `json:"user_id" binding:"required"`
	Date               *time.Time `json:"date"`
	IncludeNutrition   *bool      `json:"include_nutrition"`
	IncludeFitness     *bool      `json:"include_fitness"`
	IncludeRecovery    *bool      `json:"include_recovery"`
	IncludeConsistency *bool      `json:"include_consistency"`
}

// GeneratePredictionRequest asks for one prediction
type GeneratePredictionRequest struct {
	UserID         string    `json:"user_id" binding:"required"`
	PredictionType string    `json:"prediction_type" binding:"required"`
	TargetDate     time.Time `json:"target_date" binding:"required"`
}

// AnalyzePatternsRequest asks for pattern analysis. An explicit period wins
// over period_days when both bounds are given.
type AnalyzePatternsRequest struct {
	UserID      string    `json:"user_id" binding:"required"`
	PatternType string    `json:"pattern_type"`
	PeriodDays  int       `json:"period_days"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
}

// GenerateReportRequest asks for a report composition
type GenerateReportRequest struct {
	UserID      string    `json:"user_id" binding:"required"`
	ReportType  string    `json:"report_type" binding:"required"`
	PeriodStart time.Time `json:"period_start" binding:"required"`
	PeriodEnd   time.Time `json:"period_end" binding:"required"`
}

// ThresholdBand is one min/max band in a session request
type ThresholdBand struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// CreateSessionRequest starts a monitoring session
type CreateSessionRequest struct {
	UserID          string                   `json:"user_id" binding:"required"`
	DeviceID        string                   `json:"device_id" binding:"required"`
	SamplingRateMs  int                      `json:"sampling_rate_ms"`
	AlertThresholds map[string]ThresholdBand `json:"alert_thresholds"`
	EnabledMetrics  []string                 `json:"enabled_metrics"`
}

// MetricSample is one live sample in a monitoring data request
type MetricSample struct {
	MetricType string    `json:"metric_type" binding:"required"`
	Value      float64   `json:"value"`
	Unit       string    `json:"unit"`
	Quality    string    `json:"quality"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// RecordDataRequest pushes live samples into a session
type RecordDataRequest struct {
	Metrics []MetricSample `json:"metrics" binding:"required"`
}

// RecordDataResponse reports the ingest outcome
type RecordDataResponse struct {
	Accepted int           `json:"accepted"`
	Dropped  int           `json:"dropped"`
	Alerts   []model.Alert `json:"alerts,omitempty"`
}

// CreateGoalRequest creates a health goal
type CreateGoalRequest struct {
	UserID       string            `json:"user_id" binding:"required"`
	GoalType     string            `json:"goal_type" binding:"required"`
	TargetValue  float64           `json:"target_value" binding:"required"`
	TargetDate   time.Time         `json:"target_date" binding:"required"`
	DeadlineDate *time.Time        `json:"deadline_date"`
	Priority     int               `json:"priority"`
	Milestones   []model.Milestone `json:"milestones"`
}

// UpdateGoalRequest updates caller-controlled goal fields
type UpdateGoalRequest struct {
	TargetValue *float64   `json:"target_value"`
	TargetDate  *time.Time `json:"target_date"`
	Priority    *int       `json:"priority"`
	Status      *string    `json:"status"`
}
