package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/vitalsync/analytics/internal/apperr"
	"github.com/vitalsync/analytics/pkg/model"
	"go.uber.org/zap"
)

func newPatternFixture() (*PatternService, *MockMetricReader, *MockPatternStore, time.Time) {
	metrics := new(MockMetricReader)
	patterns := new(MockPatternStore)

	svc := NewPatternService(metrics, patterns, zap.NewNop())
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	return svc, metrics, patterns, now
}

// dailySeries builds one sample per day ending yesterday, oldest first
func dailySeries(metricType model.MetricType, end time.Time, values []float64) []model.Metric {
	rows := make([]model.Metric, len(values))
	for i, v := range values {
		rows[i] = model.Metric{
			UserID:     "user-1",
			MetricType: metricType,
			Value:      v,
			Timestamp:  end.AddDate(0, 0, i-len(values)),
		}
	}
	return rows
}

func TestAnalyze_PerfectlyCorrelatedStreams(t *testing.T) {
	svc, metrics, patterns, now := newPatternFixture()

	// Ten days where exercise minutes scale linearly with sleep hours.
	sleep := []float64{6, 6.5, 7, 7.5, 8, 6, 6.5, 7, 7.5, 8}
	exercise := make([]float64, len(sleep))
	for i, s := range sleep {
		exercise[i] = s*10 - 20
	}

	metrics.On("QueryRange", mock.Anything, "user-1", model.MetricSleepDuration, mock.Anything, mock.Anything).
		Return(dailySeries(model.MetricSleepDuration, now, sleep), nil)
	metrics.On("QueryRange", mock.Anything, "user-1", model.MetricExerciseMinutes, mock.Anything, mock.Anything).
		Return(dailySeries(model.MetricExerciseMinutes, now, exercise), nil)

	var stored *model.PatternAnalysis
	patterns.On("Upsert", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			stored = args.Get(1).(*model.PatternAnalysis)
		}).
		Return(nil)

	analysis, err := svc.Analyze(context.Background(), "user-1", model.PatternSleepActivity, 30, time.Time{}, time.Time{})

	assert.NoError(t, err)
	assert.InDelta(t, 1.0, analysis.CorrelationScore, 1e-9)
	assert.Equal(t, "30d", analysis.AnalysisPeriod)
	assert.Equal(t, "positive", analysis.Insights.Trend)
	assert.NotEmpty(t, analysis.Insights.KeyFindings)
	assert.NotEmpty(t, analysis.Recommendations)
	assert.NotNil(t, stored)
	assert.Equal(t, analysis.ID, stored.ID)
}

func TestAnalyze_InsufficientOverlap(t *testing.T) {
	svc, metrics, _, now := newPatternFixture()

	metrics.On("QueryRange", mock.Anything, "user-1", model.MetricSleepDuration, mock.Anything, mock.Anything).
		Return(dailySeries(model.MetricSleepDuration, now, []float64{7, 8, 6}), nil)
	metrics.On("QueryRange", mock.Anything, "user-1", model.MetricExerciseMinutes, mock.Anything, mock.Anything).
		Return(dailySeries(model.MetricExerciseMinutes, now, []float64{30, 45, 20}), nil)

	analysis, err := svc.Analyze(context.Background(), "user-1", model.PatternSleepActivity, 30, time.Time{}, time.Time{})

	assert.Error(t, err)
	assert.Nil(t, analysis)
	assert.True(t, errors.Is(err, apperr.ErrInsufficientData))
}

func TestAnalyze_ExplicitWindow(t *testing.T) {
	svc, metrics, patterns, _ := newPatternFixture()

	from := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC)

	sleep := []float64{6, 6.5, 7, 7.5, 8, 6, 6.5, 7, 7.5, 8}
	exercise := make([]float64, len(sleep))
	for i, s := range sleep {
		exercise[i] = s*10 - 20
	}

	// The explicit bounds must reach the metric reader untouched.
	metrics.On("QueryRange", mock.Anything, "user-1", model.MetricSleepDuration, from, to).
		Return(dailySeries(model.MetricSleepDuration, to, sleep), nil)
	metrics.On("QueryRange", mock.Anything, "user-1", model.MetricExerciseMinutes, from, to).
		Return(dailySeries(model.MetricExerciseMinutes, to, exercise), nil)
	patterns.On("Upsert", mock.Anything, mock.Anything).Return(nil)

	analysis, err := svc.Analyze(context.Background(), "user-1", model.PatternSleepActivity, 0, from, to)

	assert.NoError(t, err)
	assert.Equal(t, "14d", analysis.AnalysisPeriod)
	assert.Equal(t, from, analysis.PeriodStart)
	assert.Equal(t, to, analysis.PeriodEnd)
	metrics.AssertExpectations(t)
}

func TestAnalyze_InvertedExplicitWindow(t *testing.T) {
	svc, _, _, now := newPatternFixture()

	analysis, err := svc.Analyze(context.Background(), "user-1", model.PatternSleepActivity, 0, now, now.AddDate(0, 0, -7))

	assert.Error(t, err)
	assert.Nil(t, analysis)
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
}

func TestAnalyze_UnknownPatternType(t *testing.T) {
	svc, _, _, _ := newPatternFixture()

	analysis, err := svc.Analyze(context.Background(), "user-1", "coffee_mood", 30, time.Time{}, time.Time{})

	assert.Error(t, err)
	assert.Nil(t, analysis)
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
}

func TestAnalyze_EmptyUserID(t *testing.T) {
	svc, _, _, _ := newPatternFixture()

	analysis, err := svc.Analyze(context.Background(), "", model.PatternSleepActivity, 30, time.Time{}, time.Time{})

	assert.Error(t, err)
	assert.Nil(t, analysis)
	assert.Contains(t, err.Error(), "user ID is required")
}

func TestAnalyzeAll_SkipsSparsePairs(t *testing.T) {
	svc, metrics, _, _ := newPatternFixture()

	metrics.On("QueryRange", mock.Anything, "user-1", mock.Anything, mock.Anything, mock.Anything).
		Return([]model.Metric{}, nil)

	results, err := svc.AnalyzeAll(context.Background(), "user-1", 30, time.Time{}, time.Time{})

	assert.NoError(t, err)
	assert.Empty(t, results)
}

func TestGetAnalyses_EmptyUserID(t *testing.T) {
	svc, _, _, _ := newPatternFixture()

	analyses, err := svc.GetAnalyses(context.Background(), "", model.PatternSleepActivity)

	assert.Error(t, err)
	assert.Nil(t, analyses)
}

func TestPearson(t *testing.T) {
	tests := []struct {
		name     string
		xs       []float64
		ys       []float64
		expected float64
	}{
		{"perfect positive", []float64{1, 2, 3, 4}, []float64{10, 20, 30, 40}, 1},
		{"perfect negative", []float64{1, 2, 3, 4}, []float64{40, 30, 20, 10}, -1},
		{"constant stream has no correlation", []float64{1, 2, 3, 4}, []float64{5, 5, 5, 5}, 0},
		{"too few points", []float64{1}, []float64{2}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, pearson(tt.xs, tt.ys), 1e-9)
		})
	}
}

func TestCorrelationStrength(t *testing.T) {
	assert.Equal(t, "strong", correlationStrength(0.85))
	assert.Equal(t, "strong", correlationStrength(-0.7))
	assert.Equal(t, "moderate", correlationStrength(0.5))
	assert.Equal(t, "weak", correlationStrength(-0.3))
	assert.Equal(t, "negligible", correlationStrength(0.1))
}

func TestCorrelationDirection(t *testing.T) {
	assert.Equal(t, "positive", correlationDirection(0.4))
	assert.Equal(t, "negative", correlationDirection(-0.4))
	assert.Equal(t, "flat", correlationDirection(0.01))
}

func TestPatternRecommendations(t *testing.T) {
	// Negligible correlations carry no advice.
	assert.Nil(t, patternRecommendations(model.PatternSleepActivity, 0.05))

	assert.NotEmpty(t, patternRecommendations(model.PatternSleepActivity, 0.8))
	assert.NotEmpty(t, patternRecommendations(model.PatternSleepActivity, -0.8))
	assert.NotEmpty(t, patternRecommendations(model.PatternStressRecovery, -0.6))
	assert.Nil(t, patternRecommendations(model.PatternStressRecovery, 0.6))
	assert.NotEmpty(t, patternRecommendations(model.PatternWeightSteps, -0.6))
}
