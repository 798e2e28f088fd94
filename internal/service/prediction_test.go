package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/vitalsync/analytics/pkg/model"
	"go.uber.org/zap"
)

func newPredictionFixture() (*PredictionService, *MockMetricReader, *MockPredictionStore, *MockGoalStore, time.Time) {
	metrics := new(MockMetricReader)
	store := new(MockPredictionStore)
	goals := new(MockGoalStore)

	svc := NewPredictionService(metrics, store, goals, zap.NewNop())
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	return svc, metrics, store, goals, now
}

func TestGenerate_WeightProjection_InsufficientHistory(t *testing.T) {
	svc, metrics, store, _, now := newPredictionFixture()

	metrics.On("QueryRange", mock.Anything, "user-1", model.MetricWeight, mock.Anything, mock.Anything).
		Return(metricRows(model.MetricWeight, now.AddDate(0, 0, -3), 80, 80.2, 80.1), nil)
	store.On("InsertSuperseding", mock.Anything, mock.Anything).Return(nil)

	p, err := svc.Generate(context.Background(), "user-1", model.PredictionWeightProjection, now.AddDate(0, 0, 30))

	assert.NoError(t, err)
	assert.Equal(t, 0.0, p.PredictedValue)
	assert.Equal(t, 0.3, p.ConfidenceScore)
	assert.Contains(t, p.InputSummary, "insufficient data")
	assert.True(t, p.IsActive)
	store.AssertCalled(t, "InsertSuperseding", mock.Anything, mock.Anything)
}

func TestGenerate_WeightProjection_LinearTrend(t *testing.T) {
	// Arrange: ten daily samples on an exact 0.1 kg/day line starting at 80.
	svc, metrics, store, _, now := newPredictionFixture()

	origin := now.AddDate(0, 0, -9)
	history := make([]model.Metric, 10)
	for i := range history {
		history[i] = model.Metric{
			UserID:     "user-1",
			MetricType: model.MetricWeight,
			Value:      80 + 0.1*float64(i),
			Timestamp:  origin.AddDate(0, 0, i),
		}
	}

	metrics.On("QueryRange", mock.Anything, "user-1", model.MetricWeight, mock.Anything, mock.Anything).
		Return(history, nil)
	store.On("InsertSuperseding", mock.Anything, mock.Anything).Return(nil)

	// Act: project 30 days past the first sample.
	p, err := svc.Generate(context.Background(), "user-1", model.PredictionWeightProjection, origin.AddDate(0, 0, 30))

	// Assert: 80 + 0.1*30 = 83, and a perfect fit caps confidence at 0.95.
	assert.NoError(t, err)
	assert.InDelta(t, 83.0, p.PredictedValue, 0.01)
	assert.InDelta(t, 0.95, p.ConfidenceScore, 0.001)
	assert.Equal(t, "linreg-v1", p.ModelVersion)
	assert.NotEmpty(t, p.Recommendations)
}

func TestGenerate_EmptyUserID(t *testing.T) {
	svc, _, _, _, now := newPredictionFixture()

	p, err := svc.Generate(context.Background(), "", model.PredictionWeightProjection, now)

	assert.Error(t, err)
	assert.Nil(t, p)
	assert.Contains(t, err.Error(), "user ID is required")
}

func TestGenerate_UnknownType(t *testing.T) {
	svc, _, _, _, now := newPredictionFixture()

	p, err := svc.Generate(context.Background(), "user-1", "crystal_ball", now)

	assert.Error(t, err)
	assert.Nil(t, p)
	assert.Contains(t, err.Error(), "unknown prediction type")
}

func TestGenerate_GoalAchievement_BlendsActiveGoals(t *testing.T) {
	svc, _, store, goals, now := newPredictionFixture()
	targetDate := now.AddDate(0, 0, 10)

	goals.On("FindActiveByUserID", mock.Anything, "user-1").Return([]model.HealthGoal{
		{ID: "g1", TargetDate: targetDate.AddDate(0, 0, -1), ProgressPercentage: 60, AchievementProbability: 70},
		{ID: "g2", TargetDate: targetDate.AddDate(0, 0, -2), ProgressPercentage: 40, AchievementProbability: 50},
	}, nil)
	store.On("InsertSuperseding", mock.Anything, mock.Anything).Return(nil)

	p, err := svc.Generate(context.Background(), "user-1", model.PredictionGoalAchievement, targetDate)

	// avg probability 60 plus (avg progress 50% as a rate) * 10 days * 0.1.
	assert.NoError(t, err)
	assert.InDelta(t, 60.5, p.PredictedValue, 0.01)
	assert.Equal(t, 0.7, p.ConfidenceScore)
	assert.Contains(t, p.InputSummary, "2 active goals")
}

func TestGenerate_GoalAchievement_NoGoalsDue(t *testing.T) {
	svc, _, store, goals, now := newPredictionFixture()
	targetDate := now.AddDate(0, 0, 10)

	// The only active goal is due after the target date, so nothing counts.
	goals.On("FindActiveByUserID", mock.Anything, "user-1").Return([]model.HealthGoal{
		{ID: "g1", TargetDate: targetDate.AddDate(0, 0, 30), ProgressPercentage: 90},
	}, nil)
	store.On("InsertSuperseding", mock.Anything, mock.Anything).Return(nil)

	p, err := svc.Generate(context.Background(), "user-1", model.PredictionGoalAchievement, targetDate)

	assert.NoError(t, err)
	assert.Equal(t, 0.0, p.PredictedValue)
	assert.Equal(t, 0.0, p.ConfidenceScore)
	assert.Equal(t, "no active goals due before target date", p.InputSummary)
}

func TestGenerate_HealthRisk_AdditiveFactors(t *testing.T) {
	svc, metrics, store, _, now := newPredictionFixture()

	// Every band triggers: resting HR over 100 (+25), sedentary steps (+20),
	// elevated blood pressure (+20), poor sleep quality (+15) and a weight
	// slope over 0.05 kg/day (+10).
	metrics.On("QueryRange", mock.Anything, "user-1", model.MetricHeartRate, mock.Anything, mock.Anything).
		Return(metricRows(model.MetricHeartRate, now.AddDate(0, 0, -5), 105), nil)
	metrics.On("QueryRange", mock.Anything, "user-1", model.MetricSteps, mock.Anything, mock.Anything).
		Return(metricRows(model.MetricSteps, now.AddDate(0, 0, -5), 4000), nil)
	metrics.On("QueryRange", mock.Anything, "user-1", model.MetricWeight, mock.Anything, mock.Anything).
		Return([]model.Metric{
			{MetricType: model.MetricWeight, Value: 80, Timestamp: now.AddDate(0, 0, -20)},
			{MetricType: model.MetricWeight, Value: 81, Timestamp: now.AddDate(0, 0, -10)},
		}, nil)
	metrics.On("QueryRange", mock.Anything, "user-1", model.MetricBloodPressure, mock.Anything, mock.Anything).
		Return(metricRows(model.MetricBloodPressure, now.AddDate(0, 0, -5), 145), nil)
	metrics.On("QueryRange", mock.Anything, "user-1", model.MetricSleepQuality, mock.Anything, mock.Anything).
		Return(metricRows(model.MetricSleepQuality, now.AddDate(0, 0, -5), 40), nil)
	store.On("InsertSuperseding", mock.Anything, mock.Anything).Return(nil)

	p, err := svc.Generate(context.Background(), "user-1", model.PredictionHealthRisk, now.AddDate(0, 0, 30))

	assert.NoError(t, err)
	assert.Equal(t, 90.0, p.PredictedValue)
	assert.Equal(t, 0.7, p.ConfidenceScore)
	assert.Len(t, p.Recommendations, 5)
	assert.Contains(t, p.Recommendations, "elevated resting heart rate")
	assert.Contains(t, p.Recommendations, "sustained weight gain")
}

func TestGenerate_HealthRisk_NoData(t *testing.T) {
	svc, metrics, store, _, _ := newPredictionFixture()

	metrics.On("QueryRange", mock.Anything, "user-1", mock.Anything, mock.Anything, mock.Anything).
		Return([]model.Metric{}, nil)
	store.On("InsertSuperseding", mock.Anything, mock.Anything).Return(nil)

	p, err := svc.Generate(context.Background(), "user-1", model.PredictionHealthRisk, time.Now().AddDate(0, 0, 30))

	assert.NoError(t, err)
	assert.Equal(t, 0.0, p.PredictedValue)
	assert.Equal(t, 0.3, p.ConfidenceScore)
	assert.Empty(t, p.Recommendations)
}

func TestGenerate_PerformanceOptimization_LaggingAreas(t *testing.T) {
	svc, metrics, store, _, now := newPredictionFixture()

	metrics.On("QueryRange", mock.Anything, "user-1", model.MetricSteps, mock.Anything, mock.Anything).
		Return(metricRows(model.MetricSteps, now.AddDate(0, 0, -5), 6000), nil)
	metrics.On("QueryRange", mock.Anything, "user-1", model.MetricSleepDuration, mock.Anything, mock.Anything).
		Return(metricRows(model.MetricSleepDuration, now.AddDate(0, 0, -5), 6), nil)
	metrics.On("QueryRange", mock.Anything, "user-1", model.MetricExerciseMinutes, mock.Anything, mock.Anything).
		Return(metricRows(model.MetricExerciseMinutes, now.AddDate(0, 0, -5), 20), nil)
	store.On("InsertSuperseding", mock.Anything, mock.Anything).Return(nil)

	p, err := svc.Generate(context.Background(), "user-1", model.PredictionPerformanceOptimization, now.AddDate(0, 0, 28))

	// Three lagging areas leave 25 points of headroom.
	assert.NoError(t, err)
	assert.Equal(t, 25.0, p.PredictedValue)
	assert.Equal(t, 0.6, p.ConfidenceScore)
	assert.Contains(t, p.Recommendations, "strategy: progressive-overload")
	assert.Contains(t, p.Recommendations, "focus: daily movement")
	assert.Contains(t, p.Recommendations, "focus: sleep duration")
	assert.Contains(t, p.Recommendations, "focus: structured exercise")
}

func TestGetPredictions_EmptyUserID(t *testing.T) {
	svc, _, _, _, _ := newPredictionFixture()

	predictions, err := svc.GetPredictions(context.Background(), "", model.PredictionWeightProjection, true)

	assert.Error(t, err)
	assert.Nil(t, predictions)
}

func TestWeightTrend(t *testing.T) {
	assert.Equal(t, "increasing", WeightTrend(0.02))
	assert.Equal(t, "decreasing", WeightTrend(-0.02))
	assert.Equal(t, "stable", WeightTrend(0.005))
	assert.Equal(t, "stable", WeightTrend(-0.005))
}

func TestLinearRegression_ExactFit(t *testing.T) {
	xs := []float64{0, 1, 2, 3, 4}
	ys := []float64{2, 5, 8, 11, 14}

	slope, intercept := linearRegression(xs, ys)

	assert.InDelta(t, 3.0, slope, 1e-9)
	assert.InDelta(t, 2.0, intercept, 1e-9)
}

func TestLinearRegression_DegenerateInputs(t *testing.T) {
	slope, intercept := linearRegression(nil, nil)
	assert.Equal(t, 0.0, slope)
	assert.Equal(t, 0.0, intercept)

	// All samples at the same x fall back to the mean.
	slope, intercept = linearRegression([]float64{2, 2, 2}, []float64{4, 6, 8})
	assert.Equal(t, 0.0, slope)
	assert.InDelta(t, 6.0, intercept, 1e-9)
}

func TestRegressionConfidence_Clamps(t *testing.T) {
	xs := []float64{0, 1, 2, 3}

	// Perfect fit saturates at the ceiling.
	perfect := regressionConfidence(xs, []float64{1, 2, 3, 4}, 1, 1)
	assert.InDelta(t, 0.95, perfect, 1e-9)

	// Wildly noisy residuals floor at 0.3.
	noisy := regressionConfidence(xs, []float64{100, -100, 100, -100}, 0, 0)
	assert.InDelta(t, 0.3, noisy, 1e-9)

	// Too few points to judge.
	assert.InDelta(t, 0.3, regressionConfidence([]float64{1}, []float64{1}, 0, 0), 1e-9)
}
