package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vitalsync/analytics/internal/apperr"
	"github.com/vitalsync/analytics/pkg/model"
	"go.uber.org/zap"
)

// ReportStore persists write-once health reports
type ReportStore interface {
	Save(ctx context.Context, report *model.HealthReport) error
	GetByID(ctx context.Context, reportID string) (*model.HealthReport, error)
	GetByUserID(ctx context.Context, userID string) ([]model.HealthReport, error)
}

// ScoreCalculator is the slice of the score engine the report composer uses
type ScoreCalculator interface {
	CalculateHealthScores(ctx context.Context, userID string, date time.Time, flags ScoreFlags) (*ScoreSet, error)
}

// PredictionReader reads stored predictions
type PredictionReader interface {
	GetPredictions(ctx context.Context, userID string, predictionType model.PredictionType, activeOnly bool) ([]model.Prediction, error)
}

// PatternReader reads stored pattern analyses
type PatternReader interface {
	GetAnalyses(ctx context.Context, userID string, patternType model.PatternType) ([]model.PatternAnalysis, error)
}

// ReportRenderer renders a stored report to a document
type ReportRenderer interface {
	RenderReport(report *model.HealthReport) ([]byte, error)
}

var validReportTypes = map[string]bool{
	"weekly":   true,
	"monthly":  true,
	"progress": true,
	"medical":  true,
}

// ReportService composes scores, predictions, patterns and raw metric
// aggregates into immutable report snapshots. Composition is deterministic:
// the same period and stored inputs produce the same payload.
type ReportService struct {
	reports     ReportStore
	scores      ScoreCalculator
	predictions PredictionReader
	patterns    PatternReader
	metrics     MetricReader
	renderer    ReportRenderer
	logger      *zap.Logger
}

// NewReportService creates a new ReportService
func NewReportService(reports ReportStore, scores ScoreCalculator, predictions PredictionReader, patterns PatternReader, metrics MetricReader, renderer ReportRenderer, logger *zap.Logger) *ReportService {
	return &ReportService{
		reports:     reports,
		scores:      scores,
		predictions: predictions,
		patterns:    patterns,
		metrics:     metrics,
		renderer:    renderer,
		logger:      logger,
	}
}

// GenerateHealthReport assembles and persists one report for the period
func (s *ReportService) GenerateHealthReport(ctx context.Context, userID, reportType string, periodStart, periodEnd time.Time) (*model.HealthReport, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}
	if !validReportTypes[reportType] {
		return nil, fmt.Errorf("%w: unknown report type %q", apperr.ErrInvalidInput, reportType)
	}
	if !periodEnd.After(periodStart) {
		return nil, fmt.Errorf("%w: period end must follow period start", apperr.ErrInvalidInput)
	}

	data, err := s.composeData(ctx, userID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}

	accessLevel := "personal"
	if reportType == "medical" {
		accessLevel = "medical"
	}

	report := &model.HealthReport{
		ID:          uuid.New().String(),
		UserID:      userID,
		ReportType:  reportType,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Data:        *data,
		AccessLevel: accessLevel,
	}

	if err := s.reports.Save(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to store report: %w", err)
	}

	s.logger.Info("health report generated",
		zap.String("report_id", report.ID),
		zap.String("user_id", userID),
		zap.String("report_type", reportType),
	)

	return report, nil
}

// GetHealthReportByID returns one stored report
func (s *ReportService) GetHealthReportByID(ctx context.Context, reportID string) (*model.HealthReport, error) {
	if reportID == "" {
		return nil, fmt.Errorf("report ID is required")
	}

	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	return report, nil
}

// GetHealthReports returns a user's stored reports, newest first
func (s *ReportService) GetHealthReports(ctx context.Context, userID string) ([]model.HealthReport, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	reports, err := s.reports.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reports: %w", err)
	}

	return reports, nil
}

// RenderReportPDF renders a stored report through the document renderer
func (s *ReportService) RenderReportPDF(ctx context.Context, reportID string) ([]byte, error) {
	report, err := s.GetHealthReportByID(ctx, reportID)
	if err != nil {
		return nil, err
	}

	pdf, err := s.renderer.RenderReport(report)
	if err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}

	return pdf, nil
}

func (s *ReportService) composeData(ctx context.Context, userID string, periodStart, periodEnd time.Time) (*model.ReportData, error) {
	scoreSet, err := s.scores.CalculateHealthScores(ctx, userID, periodEnd, AllScoreFlags())
	if err != nil {
		return nil, fmt.Errorf("failed to calculate scores for report: %w", err)
	}

	predictions, err := s.predictions.GetPredictions(ctx, userID, "", true)
	if err != nil {
		return nil, fmt.Errorf("failed to read predictions for report: %w", err)
	}

	patterns, err := s.patterns.GetAnalyses(ctx, userID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to read patterns for report: %w", err)
	}

	summary, err := s.metricSummary(ctx, userID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}

	data := &model.ReportData{
		Summary: summary,
		Scores: map[string]int{
			"nutrition":   scoreSet.Nutrition,
			"fitness":     scoreSet.Fitness,
			"recovery":    scoreSet.Recovery,
			"consistency": scoreSet.Consistency,
			"overall":     scoreSet.Overall,
		},
		Trends:      map[string]string{"overall": string(scoreSet.Trend)},
		Patterns:    patterns,
		Predictions: predictions,
	}

	data.Achievements, data.Recommendations = deriveHighlights(scoreSet, summary)

	return data, nil
}

// metricSummary aggregates raw metric streams over the period
func (s *ReportService) metricSummary(ctx context.Context, userID string, from, to time.Time) (map[string]float64, error) {
	summary := make(map[string]float64)

	aggregates := []struct {
		key        string
		metricType model.MetricType
		average    bool
	}{
		{"total_calories_consumed", model.MetricCaloriesConsumed, false},
		{"total_calories_burned", model.MetricCaloriesBurned, false},
		{"total_exercise_minutes", model.MetricExerciseMinutes, false},
		{"total_sleep_hours", model.MetricSleepDuration, false},
		{"avg_steps", model.MetricSteps, true},
		{"avg_heart_rate", model.MetricHeartRate, true},
	}

	for _, agg := range aggregates {
		rows, err := s.metrics.QueryRange(ctx, userID, agg.metricType, from, to)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s metrics: %w", agg.metricType, err)
		}
		if len(rows) == 0 {
			continue
		}
		var total float64
		for _, m := range rows {
			total += m.Value
		}
		if agg.average {
			summary[agg.key] = total / float64(len(rows))
		} else {
			summary[agg.key] = total
		}
	}

	return summary, nil
}

func deriveHighlights(set *ScoreSet, summary map[string]float64) (achievements, recommendations []string) {
	if set.Overall >= 80 {
		achievements = append(achievements, "Overall health score in the excellent range.")
	}
	if set.Fitness >= 80 {
		achievements = append(achievements, "Fitness targets met for the period.")
	}
	if steps, ok := summary["avg_steps"]; ok && steps >= 10000 {
		achievements = append(achievements, "Averaged over 10,000 steps per day.")
	}

	if set.Nutrition < 50 {
		recommendations = append(recommendations, "Nutrition score is low; review calorie and macro targets.")
	}
	if set.Recovery < 50 {
		recommendations = append(recommendations, "Recovery score is low; prioritize sleep duration and quality.")
	}
	if set.Consistency < 50 {
		recommendations = append(recommendations, "Logging is inconsistent; daily entries improve score accuracy.")
	}

	return achievements, recommendations
}
