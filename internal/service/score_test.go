package service

import (
	"context"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/vitalsync/analytics/internal/config"
	"github.com/vitalsync/analytics/pkg/model"
	"go.uber.org/zap"
)

func testAnalyticsConfig() config.AnalyticsConfig {
	return config.AnalyticsConfig{
		CalorieTarget:        2000,
		ProteinTargetGrams:   100,
		ExerciseTargetMin:    30,
		BurnTargetKcal:       400,
		SleepTargetHours:     8,
		HighIntensityRatio:   0.3,
		DeepSleepRatioTarget: 0.2,
	}
}

func metricRows(metricType model.MetricType, at time.Time, values ...float64) []model.Metric {
	rows := make([]model.Metric, 0, len(values))
	for i, v := range values {
		rows = append(rows, model.Metric{
			UserID:     "user-1",
			MetricType: metricType,
			Value:      v,
			Timestamp:  at.Add(time.Duration(i) * time.Minute),
		})
	}
	return rows
}

func TestCalculateHealthScores_NutritionBlend(t *testing.T) {
	// Arrange: one day of logged nutrition against a 2000 kcal / 100 g
	// protein target. Calories land within 20% of target (60), protein at
	// 80% of target (60), carbs at 47% of calories (100), fat at 26% of
	// calories (100), three food categories (60). Weighted blend is 72.
	metrics := new(MockMetricReader)
	scores := new(MockScoreStore)
	day := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	metrics.On("QueryRange", mock.Anything, "user-1", model.MetricCaloriesConsumed, mock.Anything, mock.Anything).
		Return(metricRows(model.MetricCaloriesConsumed, day, 500, 600, 600), nil)
	metrics.On("QueryRange", mock.Anything, "user-1", model.MetricProtein, mock.Anything, mock.Anything).
		Return(metricRows(model.MetricProtein, day, 50, 30), nil)
	metrics.On("QueryRange", mock.Anything, "user-1", model.MetricCarbs, mock.Anything, mock.Anything).
		Return(metricRows(model.MetricCarbs, day, 200), nil)
	metrics.On("QueryRange", mock.Anything, "user-1", model.MetricFat, mock.Anything, mock.Anything).
		Return(metricRows(model.MetricFat, day, 50), nil)
	metrics.On("QueryRange", mock.Anything, "user-1", model.MetricFoodDiversity, mock.Anything, mock.Anything).
		Return(metricRows(model.MetricFoodDiversity, day, 3), nil)

	scores.On("GetByUserAndRange", mock.Anything, "user-1", mock.Anything, mock.Anything).
		Return([]model.HealthScore{{ScoreType: model.ScoreOverall, Value: 60}}, nil)

	var persisted []model.HealthScore
	scores.On("UpsertAll", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			persisted = args.Get(1).([]model.HealthScore)
		}).
		Return(nil)

	svc := NewScoreService(metrics, scores, testAnalyticsConfig(), zap.NewNop())

	// Act
	set, err := svc.CalculateHealthScores(context.Background(), "user-1", day, ScoreFlags{IncludeNutrition: true})

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, 72, set.Nutrition)
	assert.Equal(t, 72, set.Overall)
	assert.Equal(t, model.TrendImproving, set.Trend)
	assert.InDelta(t, 1700, set.Details["nutrition_total_calories"], 0.001)

	// One row for the nutrition sub-score plus the overall row.
	assert.Len(t, persisted, 2)
	assert.Equal(t, model.ScoreNutrition, persisted[0].ScoreType)
	assert.Equal(t, model.ScoreOverall, persisted[1].ScoreType)
	for _, row := range persisted {
		assert.Equal(t, 72, row.Value)
		assert.Equal(t, model.TrendImproving, row.Trend)
		assert.InDelta(t, 1.0, row.Confidence, 0.001)
	}
}

func TestCalculateHealthScores_NoMealsYieldsZeroNutrition(t *testing.T) {
	metrics := new(MockMetricReader)
	scores := new(MockScoreStore)
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	metrics.On("QueryRange", mock.Anything, "user-1", model.MetricCaloriesConsumed, mock.Anything, mock.Anything).
		Return([]model.Metric{}, nil)
	scores.On("GetByUserAndRange", mock.Anything, "user-1", mock.Anything, mock.Anything).
		Return([]model.HealthScore{}, nil)

	var persisted []model.HealthScore
	scores.On("UpsertAll", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			persisted = args.Get(1).([]model.HealthScore)
		}).
		Return(nil)

	svc := NewScoreService(metrics, scores, testAnalyticsConfig(), zap.NewNop())

	set, err := svc.CalculateHealthScores(context.Background(), "user-1", day, ScoreFlags{IncludeNutrition: true})

	assert.NoError(t, err)
	assert.Equal(t, 0, set.Nutrition)
	assert.Equal(t, 0, set.Overall)
	assert.Equal(t, model.TrendStable, set.Trend)

	// Confidence floors at 0.3 when every requested component lacked data.
	assert.Len(t, persisted, 2)
	assert.InDelta(t, 0.3, persisted[0].Confidence, 0.001)
}

func TestCalculateHealthScores_EmptyUserID(t *testing.T) {
	svc := NewScoreService(new(MockMetricReader), new(MockScoreStore), testAnalyticsConfig(), zap.NewNop())

	set, err := svc.CalculateHealthScores(context.Background(), "", time.Now(), AllScoreFlags())

	assert.Error(t, err)
	assert.Nil(t, set)
	assert.Contains(t, err.Error(), "user ID is required")
}

func TestGetHealthScores_InvalidRange(t *testing.T) {
	svc := NewScoreService(new(MockMetricReader), new(MockScoreStore), testAnalyticsConfig(), zap.NewNop())
	now := time.Now()

	scores, err := svc.GetHealthScores(context.Background(), "user-1", now, now.AddDate(0, 0, -7))

	assert.Error(t, err)
	assert.Nil(t, scores)
	assert.Contains(t, err.Error(), "start date must be before or equal to end date")
}

func TestOverallScore_WeightedBlend(t *testing.T) {
	set := &ScoreSet{Nutrition: 80, Fitness: 60, Recovery: 40, Consistency: 100}

	// 0.3*80 + 0.25*60 + 0.25*40 + 0.2*100 = 69
	assert.Equal(t, 69, overallScore(set, AllScoreFlags()))
}

func TestOverallScore_RenormalizesOverRequestedFlags(t *testing.T) {
	set := &ScoreSet{Nutrition: 0, Fitness: 83, Recovery: 0, Consistency: 0}

	assert.Equal(t, 83, overallScore(set, ScoreFlags{IncludeFitness: true}))
	assert.Equal(t, 0, overallScore(set, ScoreFlags{}))
}

func TestCalorieConsistencyScore(t *testing.T) {
	tests := []struct {
		name     string
		total    float64
		expected float64
	}{
		{"on target", 2000, 100},
		{"within 10 percent", 2180, 100},
		{"within 20 percent", 2350, 60},
		{"far off target", 3000, 0},
		{"nothing logged", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, calorieConsistencyScore(tt.total, 2000))
		})
	}
}

func TestProteinAdequacyScore(t *testing.T) {
	tests := []struct {
		name     string
		grams    float64
		expected float64
	}{
		{"target met", 100, 100},
		{"above target", 130, 100},
		{"three quarters of target", 75, 60},
		{"half of target caps at 50", 50, 50},
		{"quarter of target", 25, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, proteinAdequacyScore(tt.grams, 100))
		})
	}
}

func TestMacroBandScore(t *testing.T) {
	tests := []struct {
		name          string
		macroCalories float64
		expected      float64
	}{
		{"inside band", 1000, 100},
		{"within five points below", 840, 50},
		{"within five points above", 1380, 50},
		{"outside band", 400, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, macroBandScore(tt.macroCalories, 2000, 45, 65))
		})
	}

	assert.Equal(t, 0.0, macroBandScore(500, 0, 45, 65), "no calories means no band score")
}

func TestSleepDurationScore(t *testing.T) {
	tests := []struct {
		name     string
		hours    float64
		expected float64
	}{
		{"target met", 8, 100},
		{"one hour short", 7, 75},
		{"two hours short", 6, 50},
		{"well short", 3, 25},
		{"no sleep logged", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sleepDurationScore(tt.hours, 8))
		})
	}
}

func TestDiversityScore(t *testing.T) {
	assert.Equal(t, 100.0, diversityScore(5))
	assert.Equal(t, 100.0, diversityScore(8))
	assert.Equal(t, 60.0, diversityScore(3))
	assert.Equal(t, 0.0, diversityScore(0))
}

func TestRatioScore(t *testing.T) {
	assert.Equal(t, 100.0, ratioScore(40, 30))
	assert.Equal(t, 50.0, ratioScore(15, 30))
	assert.Equal(t, 0.0, ratioScore(0, 30))
	assert.Equal(t, 0.0, ratioScore(10, 0))
}

func TestProperty_ClampScoreBounded(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("clamped score always lands in [0, 100]", prop.ForAll(
		func(v float64) bool {
			got := clampScore(v)
			if got < 0 || got > 100 {
				t.Logf("clampScore(%f) = %d, outside [0, 100]", v, got)
				return false
			}
			return true
		},
		gen.Float64Range(-1e6, 1e6),
	))

	properties.TestingRun(t)
}

func TestProperty_SingleFlagOverallEqualsSubScore(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("overall equals the sub-score when only one is requested", prop.ForAll(
		func(value int) bool {
			set := &ScoreSet{Recovery: value}
			got := overallScore(set, ScoreFlags{IncludeRecovery: true})
			if got != value {
				t.Logf("overall %d != recovery %d", got, value)
				return false
			}
			return true
		},
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}

func TestDataConfidence(t *testing.T) {
	all := AllScoreFlags()

	tests := []struct {
		name     string
		set      *ScoreSet
		expected float64
	}{
		{"all components populated", &ScoreSet{Nutrition: 70, Fitness: 60, Recovery: 50, Consistency: 40}, 1.0},
		{"half populated", &ScoreSet{Nutrition: 70, Fitness: 60}, 0.5},
		{"nothing populated floors at 0.3", &ScoreSet{}, 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, dataConfidence(tt.set, all), 0.001)
		})
	}
}
