package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/vitalsync/analytics/pkg/model"
	"go.uber.org/zap"
)

const (
	// predictionModelVersion tags persisted rows so stored history can be
	// traced back to the formula that produced it
	predictionModelVersion = "linreg-v1"

	// minWeightSamples is the history floor below which weight projection
	// degrades to a flagged low-confidence result
	minWeightSamples = 7

	weightWindowDays = 90
	riskWindowDays   = 30

	minConfidence = 0.3
	maxConfidence = 0.95
)

// PredictionStore persists predictions with supersession semantics
type PredictionStore interface {
	InsertSuperseding(ctx context.Context, p *model.Prediction) error
	GetByUser(ctx context.Context, userID string, predictionType model.PredictionType, activeOnly bool) ([]model.Prediction, error)
}

// GoalReader is the slice of the goal store the prediction engine reads;
// the engine never creates or deletes goals.
type GoalReader interface {
	FindActiveByUserID(ctx context.Context, userID string) ([]model.HealthGoal, error)
}

// PredictionService projects metrics forward with ordinary least squares,
// estimates goal-achievement probability and scores coarse health risk from
// recent metric averages. Every call persists one Prediction row and
// deactivates prior rows of the same type.
type PredictionService struct {
	metrics     MetricReader
	predictions PredictionStore
	goals       GoalReader
	logger      *zap.Logger

	now func() time.Time
}

// NewPredictionService creates a new PredictionService
func NewPredictionService(metrics MetricReader, predictions PredictionStore, goals GoalReader, logger *zap.Logger) *PredictionService {
	return &PredictionService{
		metrics:     metrics,
		predictions: predictions,
		goals:       goals,
		logger:      logger,
		now:         time.Now,
	}
}

// Generate dispatches on prediction type and persists the result
func (s *PredictionService) Generate(ctx context.Context, userID string, predictionType model.PredictionType, targetDate time.Time) (*model.Prediction, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	var (
		p   *model.Prediction
		err error
	)

	switch predictionType {
	case model.PredictionWeightProjection:
		p, err = s.predictWeight(ctx, userID, targetDate)
	case model.PredictionGoalAchievement:
		p, err = s.predictGoalAchievement(ctx, userID, targetDate)
	case model.PredictionHealthRisk:
		p, err = s.assessHealthRisk(ctx, userID, targetDate)
	case model.PredictionPerformanceOptimization:
		p, err = s.optimizePerformance(ctx, userID, targetDate)
	default:
		return nil, fmt.Errorf("unknown prediction type: %s", predictionType)
	}
	if err != nil {
		return nil, err
	}

	if err := s.predictions.InsertSuperseding(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to store prediction: %w", err)
	}

	s.logger.Info("prediction generated",
		zap.String("user_id", userID),
		zap.String("prediction_type", string(predictionType)),
		zap.Float64("predicted_value", p.PredictedValue),
		zap.Float64("confidence", p.ConfidenceScore),
	)

	return p, nil
}

// GetPredictions returns stored predictions for a user
func (s *PredictionService) GetPredictions(ctx context.Context, userID string, predictionType model.PredictionType, activeOnly bool) ([]model.Prediction, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	predictions, err := s.predictions.GetByUser(ctx, userID, predictionType, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to get predictions: %w", err)
	}

	return predictions, nil
}

// predictWeight fits OLS over up to 90 days of weight history and
// extrapolates to the target date. Under 7 samples the result is a flagged
// zero-value, 0.3-confidence prediction, not an error.
func (s *PredictionService) predictWeight(ctx context.Context, userID string, targetDate time.Time) (*model.Prediction, error) {
	now := s.now()
	from := now.AddDate(0, 0, -weightWindowDays)

	history, err := s.metrics.QueryRange(ctx, userID, model.MetricWeight, from, now)
	if err != nil {
		return nil, fmt.Errorf("failed to read weight history: %w", err)
	}

	base := &model.Prediction{
		ID:             uuid.New().String(),
		UserID:         userID,
		PredictionType: model.PredictionWeightProjection,
		TargetDate:     targetDate,
		ModelVersion:   predictionModelVersion,
		IsActive:       true,
	}

	if len(history) < minWeightSamples {
		base.PredictedValue = 0
		base.ConfidenceScore = minConfidence
		base.InputSummary = fmt.Sprintf("insufficient data: %d of %d required samples", len(history), minWeightSamples)
		base.Recommendations = []string{"Log your weight regularly to enable trend projection."}
		return base, nil
	}

	xs := make([]float64, len(history))
	ys := make([]float64, len(history))
	origin := history[0].Timestamp
	for i, m := range history {
		xs[i] = m.Timestamp.Sub(origin).Hours() / 24
		ys[i] = m.Value
	}

	slope, intercept := linearRegression(xs, ys)
	targetX := targetDate.Sub(origin).Hours() / 24
	predicted := intercept + slope*targetX

	base.PredictedValue = math.Round(predicted*100) / 100
	base.ConfidenceScore = regressionConfidence(xs, ys, slope, intercept)
	base.InputSummary = fmt.Sprintf("%d samples over %d days, slope %.4f kg/day", len(history), weightWindowDays, slope)
	base.Recommendations = weightRecommendations(slope)

	return base, nil
}

// WeightTrend classifies a fitted slope for callers that only need direction
func WeightTrend(slope float64) string {
	switch {
	case slope > 0.01:
		return "increasing"
	case slope < -0.01:
		return "decreasing"
	default:
		return "stable"
	}
}

// predictGoalAchievement blends progress across active goals due on or
// before the target date
func (s *PredictionService) predictGoalAchievement(ctx context.Context, userID string, targetDate time.Time) (*model.Prediction, error) {
	goals, err := s.goals.FindActiveByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read active goals: %w", err)
	}

	base := &model.Prediction{
		ID:             uuid.New().String(),
		UserID:         userID,
		PredictionType: model.PredictionGoalAchievement,
		TargetDate:     targetDate,
		ModelVersion:   predictionModelVersion,
		IsActive:       true,
	}

	var due []model.HealthGoal
	for _, g := range goals {
		if !g.TargetDate.After(targetDate) {
			due = append(due, g)
		}
	}

	if len(due) == 0 {
		base.PredictedValue = 0
		base.ConfidenceScore = 0
		base.InputSummary = "no active goals due before target date"
		return base, nil
	}

	var progressSum, probabilitySum float64
	for _, g := range due {
		progressSum += g.ProgressPercentage
		probabilitySum += g.AchievementProbability
	}
	avgProgress := progressSum / float64(len(due))
	avgProbability := probabilitySum / float64(len(due))

	daysRemaining := math.Max(targetDate.Sub(s.now()).Hours()/24, 0)
	progressRate := avgProgress / 100
	adjusted := avgProbability + progressRate*daysRemaining*0.1
	adjusted = math.Max(0, math.Min(100, adjusted))

	base.PredictedValue = math.Round(adjusted*100) / 100
	base.ConfidenceScore = 0.7
	base.InputSummary = fmt.Sprintf("%d active goals, avg progress %.1f%%", len(due), avgProgress)
	if avgProgress < 50 {
		base.Recommendations = []string{"Progress is behind schedule on most goals; consider revising targets or deadlines."}
	}

	return base, nil
}

// riskFactor is one additive risk band
type riskFactor struct {
	label   string
	applies func(avg map[model.MetricType]float64, weightSlope float64) bool
	points  float64
}

var riskFactors = []riskFactor{
	{"elevated resting heart rate", func(avg map[model.MetricType]float64, _ float64) bool {
		return avg[model.MetricHeartRate] > 100
	}, 25},
	{"heart rate above optimal range", func(avg map[model.MetricType]float64, _ float64) bool {
		hr := avg[model.MetricHeartRate]
		return hr > 90 && hr <= 100
	}, 15},
	{"sedentary step count", func(avg map[model.MetricType]float64, _ float64) bool {
		steps := avg[model.MetricSteps]
		return steps > 0 && steps < 5000
	}, 20},
	{"below recommended step count", func(avg map[model.MetricType]float64, _ float64) bool {
		steps := avg[model.MetricSteps]
		return steps >= 5000 && steps < 7500
	}, 10},
	{"elevated blood pressure", func(avg map[model.MetricType]float64, _ float64) bool {
		return avg[model.MetricBloodPressure] > 140
	}, 20},
	{"blood pressure above optimal range", func(avg map[model.MetricType]float64, _ float64) bool {
		bp := avg[model.MetricBloodPressure]
		return bp > 130 && bp <= 140
	}, 10},
	{"poor sleep quality", func(avg map[model.MetricType]float64, _ float64) bool {
		sq := avg[model.MetricSleepQuality]
		return sq > 0 && sq < 50
	}, 15},
	{"sustained weight gain", func(_ map[model.MetricType]float64, slope float64) bool {
		return slope > 0.05
	}, 10},
}

// assessHealthRisk additively scores 30-day metric averages against fixed
// threshold bands and lists the triggered factors
func (s *PredictionService) assessHealthRisk(ctx context.Context, userID string, targetDate time.Time) (*model.Prediction, error) {
	now := s.now()
	from := now.AddDate(0, 0, -riskWindowDays)

	types := []model.MetricType{
		model.MetricHeartRate,
		model.MetricSteps,
		model.MetricWeight,
		model.MetricBloodPressure,
		model.MetricSleepQuality,
	}

	averages := make(map[model.MetricType]float64)
	var weightSlope float64
	hasData := false

	for _, t := range types {
		rows, err := s.metrics.QueryRange(ctx, userID, t, from, now)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s metrics: %w", t, err)
		}
		if len(rows) == 0 {
			continue
		}
		hasData = true

		var total float64
		for _, m := range rows {
			total += m.Value
		}
		averages[t] = total / float64(len(rows))

		if t == model.MetricWeight && len(rows) >= 2 {
			xs := make([]float64, len(rows))
			ys := make([]float64, len(rows))
			origin := rows[0].Timestamp
			for i, m := range rows {
				xs[i] = m.Timestamp.Sub(origin).Hours() / 24
				ys[i] = m.Value
			}
			weightSlope, _ = linearRegression(xs, ys)
		}
	}

	var score float64
	var labels []string
	for _, f := range riskFactors {
		if f.applies(averages, weightSlope) {
			score += f.points
			labels = append(labels, f.label)
		}
	}

	confidence := minConfidence
	if hasData {
		confidence = 0.7
	}

	sort.Strings(labels)

	p := &model.Prediction{
		ID:              uuid.New().String(),
		UserID:          userID,
		PredictionType:  model.PredictionHealthRisk,
		TargetDate:      targetDate,
		PredictedValue:  score,
		ConfidenceScore: confidence,
		ModelVersion:    predictionModelVersion,
		InputSummary:    fmt.Sprintf("%d-day averages over %d metric types", riskWindowDays, len(averages)),
		Recommendations: labels,
		IsActive:        true,
	}

	return p, nil
}

// optimizePerformance derives a recommendation bundle from which 30-day
// averages lag their targets. The output shape (value, confidence, strategy
// tag, focus areas, timeline) is fixed.
func (s *PredictionService) optimizePerformance(ctx context.Context, userID string, targetDate time.Time) (*model.Prediction, error) {
	now := s.now()
	from := now.AddDate(0, 0, -riskWindowDays)

	steps, err := s.avg(ctx, userID, model.MetricSteps, from, now)
	if err != nil {
		return nil, err
	}
	sleep, err := s.avg(ctx, userID, model.MetricSleepDuration, from, now)
	if err != nil {
		return nil, err
	}
	exercise, err := s.avg(ctx, userID, model.MetricExerciseMinutes, from, now)
	if err != nil {
		return nil, err
	}

	var focus []string
	if steps < 7500 {
		focus = append(focus, "daily movement")
	}
	if sleep < 7 {
		focus = append(focus, "sleep duration")
	}
	if exercise < 30 {
		focus = append(focus, "structured exercise")
	}

	strategy := "maintain"
	if len(focus) > 0 {
		strategy = "progressive-overload"
	}

	recommendations := []string{
		fmt.Sprintf("strategy: %s", strategy),
		"timeline: 4 weeks",
	}
	for _, f := range focus {
		recommendations = append(recommendations, fmt.Sprintf("focus: %s", f))
	}

	// Headroom estimate: each lagging area leaves roughly a quarter of the
	// attainable improvement on the table.
	value := 100 - float64(len(focus))*25
	if value < 0 {
		value = 0
	}

	confidence := minConfidence
	if steps > 0 || sleep > 0 || exercise > 0 {
		confidence = 0.6
	}

	p := &model.Prediction{
		ID:              uuid.New().String(),
		UserID:          userID,
		PredictionType:  model.PredictionPerformanceOptimization,
		TargetDate:      targetDate,
		PredictedValue:  value,
		ConfidenceScore: confidence,
		ModelVersion:    predictionModelVersion,
		InputSummary:    fmt.Sprintf("30-day averages: steps %.0f, sleep %.1fh, exercise %.0fmin", steps, sleep, exercise),
		Recommendations: recommendations,
		IsActive:        true,
	}

	return p, nil
}

func (s *PredictionService) avg(ctx context.Context, userID string, metricType model.MetricType, from, to time.Time) (float64, error) {
	rows, err := s.metrics.QueryRange(ctx, userID, metricType, from, to)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s metrics: %w", metricType, err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	var total float64
	for _, m := range rows {
		total += m.Value
	}
	return total / float64(len(rows)), nil
}

// linearRegression fits y = intercept + slope*x by ordinary least squares
func linearRegression(xs, ys []float64) (slope, intercept float64) {
	n := float64(len(xs))
	if n == 0 {
		return 0, 0
	}

	var sumX, sumY, sumXY, sumXX float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
		sumXY += xs[i] * ys[i]
		sumXX += xs[i] * xs[i]
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n
	}

	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

// regressionConfidence derives confidence from the inverse of residual
// variance, clamped to [0.3, 0.95]
func regressionConfidence(xs, ys []float64, slope, intercept float64) float64 {
	n := float64(len(xs))
	if n < 2 {
		return minConfidence
	}

	var sumSq float64
	for i := range xs {
		residual := ys[i] - (intercept + slope*xs[i])
		sumSq += residual * residual
	}
	variance := sumSq / n

	confidence := 1 / (1 + variance)
	return math.Max(minConfidence, math.Min(maxConfidence, confidence))
}

func weightRecommendations(slope float64) []string {
	switch WeightTrend(slope) {
	case "increasing":
		return []string{
			"Weight is trending upward; review calorie intake against your daily target.",
			"Add 15 minutes of daily activity to offset the current trend.",
		}
	case "decreasing":
		return []string{
			"Weight is trending downward; keep protein intake at target to preserve lean mass.",
		}
	default:
		return []string{
			"Weight is stable; maintain current nutrition and activity habits.",
		}
	}
}
