package pdf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/vitalsync/analytics/pkg/model"
	"go.uber.org/zap"
)

func TestPDFGenerator_RenderReport_Success(t *testing.T) {
	// Arrange
	logger := zap.NewNop()
	generator := NewPDFGenerator(logger)

	report := &model.HealthReport{
		ID:          "report-1",
		UserID:      "user-1",
		ReportType:  "weekly",
		PeriodStart: time.Now().AddDate(0, 0, -7),
		PeriodEnd:   time.Now(),
		Data: model.ReportData{
			Summary: map[string]float64{
				"steps":          8421,
				"sleep_duration": 7.2,
				"heart_rate":     64,
			},
			Trends: map[string]string{
				"fitness":  "improving",
				"recovery": "stable",
			},
			Scores: map[string]int{
				"fitness":  78,
				"recovery": 81,
				"overall":  76,
			},
			Achievements:    []string{"Reached 10,000 steps on 4 days"},
			Recommendations: []string{"Keep your bedtime consistent"},
			Patterns: []model.PatternAnalysis{
				{
					ID:               "pattern-1",
					UserID:           "user-1",
					PatternType:      model.PatternSleepActivity,
					AnalysisPeriod:   "30d",
					CorrelationScore: 0.62,
					Insights: model.PatternInsights{
						Description: "Longer sleep tracks with more exercise minutes",
						KeyFindings: []string{"Strongest on weekdays"},
						Trend:       "positive",
					},
				},
			},
			Predictions: []model.Prediction{
				{
					ID:              "prediction-1",
					UserID:          "user-1",
					PredictionType:  model.PredictionWeightProjection,
					TargetDate:      time.Now().AddDate(0, 1, 0),
					PredictedValue:  71.4,
					ConfidenceScore: 0.82,
					Recommendations: []string{"Hold current calorie intake"},
				},
			},
		},
		AccessLevel: "standard",
		CreatedAt:   time.Now(),
	}

	// Act
	pdfBytes, err := generator.RenderReport(report)

	// Assert
	assert.NoError(t, err)
	assert.NotNil(t, pdfBytes)
	assert.Greater(t, len(pdfBytes), 0, "PDF should have content")

	// PDF files start with %PDF
	assert.Equal(t, "%PDF", string(pdfBytes[:4]), "Should be a valid PDF file")
}

func TestPDFGenerator_RenderReport_EmptyData(t *testing.T) {
	// Arrange
	logger := zap.NewNop()
	generator := NewPDFGenerator(logger)

	report := &model.HealthReport{
		ID:          "report-2",
		UserID:      "user-1",
		ReportType:  "monthly",
		PeriodStart: time.Now().AddDate(0, -1, 0),
		PeriodEnd:   time.Now(),
		Data:        model.ReportData{},
		AccessLevel: "standard",
		CreatedAt:   time.Now(),
	}

	// Act
	pdfBytes, err := generator.RenderReport(report)

	// Assert
	assert.NoError(t, err)
	assert.NotNil(t, pdfBytes)
	assert.Greater(t, len(pdfBytes), 0, "PDF should have content even with empty data")

	// PDF files start with %PDF
	assert.Equal(t, "%PDF", string(pdfBytes[:4]), "Should be a valid PDF file")
}

func TestPDFGenerator_RenderExport_Success(t *testing.T) {
	// Arrange
	logger := zap.NewNop()
	generator := NewPDFGenerator(logger)

	deadline := time.Now().AddDate(0, 2, 0)
	metricType := model.MetricHeartRate
	value := 148.0
	threshold := 120.0
	deviceID := "watch-7"

	payload := &ExportPayload{
		UserID:     "user-1",
		ExportedAt: time.Now(),
		Metrics: []model.Metric{
			{
				ID:         "metric-1",
				UserID:     "user-1",
				MetricType: model.MetricSteps,
				Value:      9200,
				Unit:       "count",
				Timestamp:  time.Now().AddDate(0, 0, -1),
				Source:     model.SourceAutomatic,
				Confidence: 1.0,
			},
			{
				ID:         "metric-2",
				UserID:     "user-1",
				MetricType: model.MetricWeight,
				Value:      72.5,
				Unit:       "kg",
				Timestamp:  time.Now().AddDate(0, 0, -1),
				Source:     model.SourceManual,
				Confidence: 1.0,
			},
		},
		Scores: []model.HealthScore{
			{
				ID:              "score-1",
				UserID:          "user-1",
				ScoreType:       model.ScoreOverall,
				Value:           74,
				CalculationDate: time.Now().AddDate(0, 0, -1),
				Trend:           model.TrendImproving,
				Confidence:      0.9,
			},
		},
		Goals: []model.HealthGoal{
			{
				ID:                 "goal-1",
				UserID:             "user-1",
				GoalType:           "weight_loss",
				TargetValue:        70,
				CurrentValue:       72.5,
				TargetDate:         time.Now().AddDate(0, 3, 0),
				DeadlineDate:       &deadline,
				Priority:           1,
				ProgressPercentage: 45,
				Status:             model.GoalActive,
			},
		},
		Alerts: []model.Alert{
			{
				ID:         "alert-1",
				UserID:     "user-1",
				SessionID:  "session-1",
				DeviceID:   &deviceID,
				Type:       model.AlertWarning,
				Category:   model.CategoryHealth,
				Severity:   model.SeverityHigh,
				MetricType: &metricType,
				Value:      &value,
				Threshold:  &threshold,
				Message:    "heart_rate above threshold",
				Timestamp:  time.Now().AddDate(0, 0, -2),
			},
		},
		Reports: []model.HealthReport{
			{
				ID:          "report-1",
				UserID:      "user-1",
				ReportType:  "weekly",
				PeriodStart: time.Now().AddDate(0, 0, -7),
				PeriodEnd:   time.Now(),
				CreatedAt:   time.Now(),
			},
		},
	}

	// Act
	pdfBytes, err := generator.RenderExport(payload)

	// Assert
	assert.NoError(t, err)
	assert.NotNil(t, pdfBytes)
	assert.Greater(t, len(pdfBytes), 0, "PDF should have content")
	assert.Equal(t, "%PDF", string(pdfBytes[:4]), "Should be a valid PDF file")
}

func TestPDFGenerator_RenderExport_EmptyPayload(t *testing.T) {
	// Arrange
	logger := zap.NewNop()
	generator := NewPDFGenerator(logger)

	payload := &ExportPayload{
		UserID:     "user-1",
		ExportedAt: time.Now(),
	}

	// Act
	pdfBytes, err := generator.RenderExport(payload)

	// Assert
	assert.NoError(t, err)
	assert.NotNil(t, pdfBytes)
	assert.Greater(t, len(pdfBytes), 0, "PDF should have content even with no records")
	assert.Equal(t, "%PDF", string(pdfBytes[:4]), "Should be a valid PDF file")
}
