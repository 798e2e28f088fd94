package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vitalsync/analytics/internal/config"
	"github.com/vitalsync/analytics/pkg/model"
	"go.uber.org/zap"
)

// Sub-score component weights; each group sums to 1.0
const (
	nutritionCalorieWeight   = 0.3
	nutritionProteinWeight   = 0.3
	nutritionCarbWeight      = 0.2
	nutritionFatWeight       = 0.1
	nutritionDiversityWeight = 0.1

	fitnessDurationWeight    = 0.4
	fitnessBurnWeight        = 0.3
	fitnessIntensityWeight   = 0.2
	fitnessConsistencyWeight = 0.1

	recoveryDurationWeight    = 0.4
	recoveryQualityWeight     = 0.3
	recoveryDeepSleepWeight   = 0.2
	recoveryConsistencyWeight = 0.1

	consistencyNutritionWeight = 0.33
	consistencyFitnessWeight   = 0.33
	consistencyRecoveryWeight  = 0.34

	overallNutritionWeight   = 0.3
	overallFitnessWeight     = 0.25
	overallRecoveryWeight    = 0.25
	overallConsistencyWeight = 0.2
)

// MetricReader is the slice of the metric store the analytics engines read
type MetricReader interface {
	QueryRange(ctx context.Context, userID string, metricType model.MetricType, from, to time.Time) ([]model.Metric, error)
}

// ScoreStore persists computed score sets
type ScoreStore interface {
	UpsertAll(ctx context.Context, scores []model.HealthScore) error
	GetByUserAndRange(ctx context.Context, userID string, from, to time.Time) ([]model.HealthScore, error)
}

// ScoreFlags selects which sub-scores a calculation includes
type ScoreFlags struct {
	IncludeNutrition   bool `json:"include_nutrition"`
	IncludeFitness     bool `json:"include_fitness"`
	IncludeRecovery    bool `json:"include_recovery"`
	IncludeConsistency bool `json:"include_consistency"`
}

// AllScoreFlags requests every sub-score
func AllScoreFlags() ScoreFlags {
	return ScoreFlags{
		IncludeNutrition:   true,
		IncludeFitness:     true,
		IncludeRecovery:    true,
		IncludeConsistency: true,
	}
}

// ScoreSet is the result of one calculation
type ScoreSet struct {
	UserID          string             `json:"user_id"`
	Nutrition       int                `json:"nutrition"`
	Fitness         int                `json:"fitness"`
	Recovery        int                `json:"recovery"`
	Consistency     int                `json:"consistency"`
	Overall         int                `json:"overall"`
	Details         map[string]float64 `json:"details"`
	Trend           model.ScoreTrend   `json:"trend"`
	CalculationDate time.Time          `json:"calculation_date"`
}

// ScoreService computes the four weighted composite scores plus the overall
// blend from same-day metric rows, and upserts one HealthScore row per
// sub-type for (user, date). Recomputation for the same key is serialized
// per user so concurrent requests cannot race the upsert.
type ScoreService struct {
	metrics MetricReader
	scores  ScoreStore
	cfg     config.AnalyticsConfig
	logger  *zap.Logger

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

// NewScoreService creates a new ScoreService
func NewScoreService(metrics MetricReader, scores ScoreStore, cfg config.AnalyticsConfig, logger *zap.Logger) *ScoreService {
	return &ScoreService{
		metrics:   metrics,
		scores:    scores,
		cfg:       cfg,
		logger:    logger,
		userLocks: make(map[string]*sync.Mutex),
	}
}

func (s *ScoreService) lockUser(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.userLocks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.userLocks[userID] = l
	}
	return l
}

// CalculateHealthScores computes the requested sub-scores for (user, date),
// stores the full set atomically and returns it. Missing data yields zero
// scores with explicit detail counters, never an error.
func (s *ScoreService) CalculateHealthScores(ctx context.Context, userID string, date time.Time, flags ScoreFlags) (*ScoreSet, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	l := s.lockUser(userID)
	l.Lock()
	defer l.Unlock()

	day := date.Truncate(24 * time.Hour)
	dayStart := day
	dayEnd := day.Add(24*time.Hour - time.Nanosecond)
	weekStart := day.AddDate(0, 0, -6)

	set := &ScoreSet{
		UserID:          userID,
		Details:         make(map[string]float64),
		CalculationDate: day,
	}

	if flags.IncludeNutrition {
		score, details, err := s.nutritionScore(ctx, userID, dayStart, dayEnd)
		if err != nil {
			return nil, err
		}
		set.Nutrition = score
		mergeDetails(set.Details, "nutrition", details)
	}

	if flags.IncludeFitness {
		score, details, err := s.fitnessScore(ctx, userID, dayStart, dayEnd, weekStart)
		if err != nil {
			return nil, err
		}
		set.Fitness = score
		mergeDetails(set.Details, "fitness", details)
	}

	if flags.IncludeRecovery {
		score, details, err := s.recoveryScore(ctx, userID, dayStart, dayEnd, weekStart)
		if err != nil {
			return nil, err
		}
		set.Recovery = score
		mergeDetails(set.Details, "recovery", details)
	}

	if flags.IncludeConsistency {
		score, details, err := s.consistencyScore(ctx, userID, weekStart, dayEnd)
		if err != nil {
			return nil, err
		}
		set.Consistency = score
		mergeDetails(set.Details, "consistency", details)
	}

	set.Overall = overallScore(set, flags)

	if err := s.persist(ctx, set, flags); err != nil {
		return nil, err
	}

	s.logger.Info("health scores calculated",
		zap.String("user_id", userID),
		zap.Time("date", day),
		zap.Int("overall", set.Overall),
	)

	return set, nil
}

// GetHealthScores returns stored scores for a user within a date range
func (s *ScoreService) GetHealthScores(ctx context.Context, userID string, from, to time.Time) ([]model.HealthScore, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}
	if from.After(to) {
		return nil, fmt.Errorf("start date must be before or equal to end date")
	}

	scores, err := s.scores.GetByUserAndRange(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get health scores: %w", err)
	}

	return scores, nil
}

// overallScore blends the requested sub-scores with the fixed weights.
// Weights renormalize over the requested components only; a sub-score that
// is 0 because the user had no data that day stays in the blend as 0.
func overallScore(set *ScoreSet, flags ScoreFlags) int {
	var weighted, totalWeight float64

	if flags.IncludeNutrition {
		weighted += overallNutritionWeight * float64(set.Nutrition)
		totalWeight += overallNutritionWeight
	}
	if flags.IncludeFitness {
		weighted += overallFitnessWeight * float64(set.Fitness)
		totalWeight += overallFitnessWeight
	}
	if flags.IncludeRecovery {
		weighted += overallRecoveryWeight * float64(set.Recovery)
		totalWeight += overallRecoveryWeight
	}
	if flags.IncludeConsistency {
		weighted += overallConsistencyWeight * float64(set.Consistency)
		totalWeight += overallConsistencyWeight
	}

	if totalWeight == 0 {
		return 0
	}

	return clampScore(math.Round(weighted / totalWeight))
}

func (s *ScoreService) nutritionScore(ctx context.Context, userID string, from, to time.Time) (int, map[string]float64, error) {
	meals, err := s.metrics.QueryRange(ctx, userID, model.MetricCaloriesConsumed, from, to)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read calorie metrics: %w", err)
	}

	details := map[string]float64{"total_meals": float64(len(meals))}

	// No meals logged is a valid "no data" result, not an error.
	if len(meals) == 0 {
		return 0, details, nil
	}

	var totalCalories float64
	for _, m := range meals {
		totalCalories += m.Value
	}

	protein, err := s.sumValues(ctx, userID, model.MetricProtein, from, to)
	if err != nil {
		return 0, nil, err
	}
	carbs, err := s.sumValues(ctx, userID, model.MetricCarbs, from, to)
	if err != nil {
		return 0, nil, err
	}
	fat, err := s.sumValues(ctx, userID, model.MetricFat, from, to)
	if err != nil {
		return 0, nil, err
	}
	diversity, err := s.latestValue(ctx, userID, model.MetricFoodDiversity, from, to)
	if err != nil {
		return 0, nil, err
	}

	calorieScore := calorieConsistencyScore(totalCalories, s.cfg.CalorieTarget)
	proteinScore := proteinAdequacyScore(protein, s.cfg.ProteinTargetGrams)
	carbScore := macroBandScore(carbs*4, totalCalories, 45, 65)
	fatScore := macroBandScore(fat*9, totalCalories, 20, 35)
	divScore := diversityScore(diversity)

	details["total_calories"] = totalCalories
	details["calorie_consistency"] = calorieScore
	details["protein_adequacy"] = proteinScore
	details["carb_range"] = carbScore
	details["fat_range"] = fatScore
	details["food_diversity"] = divScore

	score := clampScore(math.Round(
		nutritionCalorieWeight*calorieScore +
			nutritionProteinWeight*proteinScore +
			nutritionCarbWeight*carbScore +
			nutritionFatWeight*fatScore +
			nutritionDiversityWeight*divScore,
	))

	return score, details, nil
}

func (s *ScoreService) fitnessScore(ctx context.Context, userID string, from, to, weekStart time.Time) (int, map[string]float64, error) {
	duration, err := s.sumValues(ctx, userID, model.MetricExerciseMinutes, from, to)
	if err != nil {
		return 0, nil, err
	}
	burned, err := s.sumValues(ctx, userID, model.MetricCaloriesBurned, from, to)
	if err != nil {
		return 0, nil, err
	}
	highIntensity, err := s.sumValues(ctx, userID, model.MetricHighIntensityMinutes, from, to)
	if err != nil {
		return 0, nil, err
	}
	activeDays, err := s.daysWithData(ctx, userID, model.MetricExerciseMinutes, weekStart, to)
	if err != nil {
		return 0, nil, err
	}

	durationScore := ratioScore(duration, s.cfg.ExerciseTargetMin)
	burnScore := ratioScore(burned, s.cfg.BurnTargetKcal)
	intensityScore := 0.0
	if duration > 0 {
		intensityScore = ratioScore(highIntensity/duration, s.cfg.HighIntensityRatio)
	}
	consistencyScore := float64(activeDays) / 7 * 100

	details := map[string]float64{
		"duration_minutes":   duration,
		"calories_burned":    burned,
		"duration_adequacy":  durationScore,
		"burn_adequacy":      burnScore,
		"intensity_ratio":    intensityScore,
		"weekly_consistency": consistencyScore,
	}

	score := clampScore(math.Round(
		fitnessDurationWeight*durationScore +
			fitnessBurnWeight*burnScore +
			fitnessIntensityWeight*intensityScore +
			fitnessConsistencyWeight*consistencyScore,
	))

	return score, details, nil
}

func (s *ScoreService) recoveryScore(ctx context.Context, userID string, from, to, weekStart time.Time) (int, map[string]float64, error) {
	sleepHours, err := s.sumValues(ctx, userID, model.MetricSleepDuration, from, to)
	if err != nil {
		return 0, nil, err
	}
	quality, err := s.avgValues(ctx, userID, model.MetricSleepQuality, from, to)
	if err != nil {
		return 0, nil, err
	}
	deepMinutes, err := s.sumValues(ctx, userID, model.MetricDeepSleepMinutes, from, to)
	if err != nil {
		return 0, nil, err
	}
	sleepDays, err := s.daysWithData(ctx, userID, model.MetricSleepDuration, weekStart, to)
	if err != nil {
		return 0, nil, err
	}

	durationScore := sleepDurationScore(sleepHours, s.cfg.SleepTargetHours)
	qualityScore := clampComponent(quality)
	deepScore := 0.0
	if sleepHours > 0 {
		deepScore = ratioScore(deepMinutes/(sleepHours*60), s.cfg.DeepSleepRatioTarget)
	}
	consistencyScore := float64(sleepDays) / 7 * 100

	details := map[string]float64{
		"sleep_hours":        sleepHours,
		"sleep_quality":      qualityScore,
		"duration_adequacy":  durationScore,
		"deep_sleep_ratio":   deepScore,
		"weekly_consistency": consistencyScore,
	}

	score := clampScore(math.Round(
		recoveryDurationWeight*durationScore +
			recoveryQualityWeight*qualityScore +
			recoveryDeepSleepWeight*deepScore +
			recoveryConsistencyWeight*consistencyScore,
	))

	return score, details, nil
}

// consistencyScore counts, per trailing-week day, binary hits against the
// calorie band, the exercise target and the sleep floor.
func (s *ScoreService) consistencyScore(ctx context.Context, userID string, weekStart, to time.Time) (int, map[string]float64, error) {
	calorieDays, err := s.metrics.QueryRange(ctx, userID, model.MetricCaloriesConsumed, weekStart, to)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read calorie metrics: %w", err)
	}
	exerciseDays, err := s.metrics.QueryRange(ctx, userID, model.MetricExerciseMinutes, weekStart, to)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read exercise metrics: %w", err)
	}
	sleepDays, err := s.metrics.QueryRange(ctx, userID, model.MetricSleepDuration, weekStart, to)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read sleep metrics: %w", err)
	}

	nutritionHits := hitDays(calorieDays, func(total float64) bool {
		return math.Abs(total-s.cfg.CalorieTarget) <= 0.2*s.cfg.CalorieTarget
	})
	fitnessHits := hitDays(exerciseDays, func(total float64) bool {
		return total >= s.cfg.ExerciseTargetMin
	})
	recoveryHits := hitDays(sleepDays, func(total float64) bool {
		return total >= s.cfg.SleepTargetHours-1
	})

	nutritionRate := float64(nutritionHits) / 7 * 100
	fitnessRate := float64(fitnessHits) / 7 * 100
	recoveryRate := float64(recoveryHits) / 7 * 100

	details := map[string]float64{
		"nutrition_hit_days": float64(nutritionHits),
		"fitness_hit_days":   float64(fitnessHits),
		"recovery_hit_days":  float64(recoveryHits),
	}

	score := clampScore(math.Round(
		consistencyNutritionWeight*nutritionRate +
			consistencyFitnessWeight*fitnessRate +
			consistencyRecoveryWeight*recoveryRate,
	))

	return score, details, nil
}

// persist upserts one row per computed sub-type plus overall, atomically
func (s *ScoreService) persist(ctx context.Context, set *ScoreSet, flags ScoreFlags) error {
	trend := s.trendFor(ctx, set)
	set.Trend = trend

	confidence := dataConfidence(set, flags)

	rows := []model.HealthScore{}
	add := func(scoreType model.ScoreType, value int) {
		rows = append(rows, model.HealthScore{
			ID:              uuid.New().String(),
			UserID:          set.UserID,
			ScoreType:       scoreType,
			Value:           value,
			CalculationDate: set.CalculationDate,
			Details:         set.Details,
			Trend:           trend,
			Confidence:      confidence,
		})
	}

	if flags.IncludeNutrition {
		add(model.ScoreNutrition, set.Nutrition)
	}
	if flags.IncludeFitness {
		add(model.ScoreFitness, set.Fitness)
	}
	if flags.IncludeRecovery {
		add(model.ScoreRecovery, set.Recovery)
	}
	if flags.IncludeConsistency {
		add(model.ScoreConsistency, set.Consistency)
	}
	add(model.ScoreOverall, set.Overall)

	if err := s.scores.UpsertAll(ctx, rows); err != nil {
		return fmt.Errorf("failed to store health scores: %w", err)
	}

	return nil
}

// trendFor compares the new overall value against the most recent stored
// overall score within the prior week
func (s *ScoreService) trendFor(ctx context.Context, set *ScoreSet) model.ScoreTrend {
	prev, err := s.scores.GetByUserAndRange(ctx, set.UserID,
		set.CalculationDate.AddDate(0, 0, -7),
		set.CalculationDate.AddDate(0, 0, -1),
	)
	if err != nil {
		s.logger.Warn("failed to load prior scores for trend", zap.Error(err))
		return model.TrendStable
	}

	for _, p := range prev {
		if p.ScoreType != model.ScoreOverall {
			continue
		}
		switch {
		case set.Overall > p.Value+3:
			return model.TrendImproving
		case set.Overall < p.Value-3:
			return model.TrendDeclining
		default:
			return model.TrendStable
		}
	}

	return model.TrendStable
}

func (s *ScoreService) sumValues(ctx context.Context, userID string, metricType model.MetricType, from, to time.Time) (float64, error) {
	rows, err := s.metrics.QueryRange(ctx, userID, metricType, from, to)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s metrics: %w", metricType, err)
	}
	var total float64
	for _, m := range rows {
		total += m.Value
	}
	return total, nil
}

func (s *ScoreService) avgValues(ctx context.Context, userID string, metricType model.MetricType, from, to time.Time) (float64, error) {
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

func (s *ScoreService) latestValue(ctx context.Context, userID string, metricType model.MetricType, from, to time.Time) (float64, error) {
	rows, err := s.metrics.QueryRange(ctx, userID, metricType, from, to)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s metrics: %w", metricType, err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[len(rows)-1].Value, nil
}

func (s *ScoreService) daysWithData(ctx context.Context, userID string, metricType model.MetricType, from, to time.Time) (int, error) {
	rows, err := s.metrics.QueryRange(ctx, userID, metricType, from, to)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s metrics: %w", metricType, err)
	}
	days := make(map[string]bool)
	for _, m := range rows {
		days[m.Timestamp.Format("2006-01-02")] = true
	}
	return len(days), nil
}

// hitDays groups metrics by day, sums each day and counts days passing hit
func hitDays(metrics []model.Metric, hit func(dayTotal float64) bool) int {
	totals := make(map[string]float64)
	for _, m := range metrics {
		totals[m.Timestamp.Format("2006-01-02")] += m.Value
	}
	count := 0
	for _, total := range totals {
		if hit(total) {
			count++
		}
	}
	return count
}

// calorieConsistencyScore steps against the configured daily target:
// within 10% → 100, within 20% → 60, else 0
func calorieConsistencyScore(total, target float64) float64 {
	if target <= 0 || total <= 0 {
		return 0
	}
	diff := math.Abs(total-target) / target
	switch {
	case diff <= 0.10:
		return 100
	case diff <= 0.20:
		return 60
	default:
		return 0
	}
}

// proteinAdequacyScore rewards hitting the daily protein target
func proteinAdequacyScore(grams, target float64) float64 {
	if target <= 0 {
		return 0
	}
	switch {
	case grams >= target:
		return 100
	case grams >= 0.75*target:
		return 60
	default:
		return math.Min(grams/target*100, 50)
	}
}

// macroBandScore checks the share of daily calories a macro contributes
// against a [low, high] percentage band: inside → 100, within 5 points → 50,
// else 0
func macroBandScore(macroCalories, totalCalories, low, high float64) float64 {
	if totalCalories <= 0 {
		return 0
	}
	pct := macroCalories / totalCalories * 100
	switch {
	case pct >= low && pct <= high:
		return 100
	case pct >= low-5 && pct <= high+5:
		return 50
	default:
		return 0
	}
}

// diversityScore rewards logging five or more distinct food categories
func diversityScore(categories float64) float64 {
	if categories >= 5 {
		return 100
	}
	if categories <= 0 {
		return 0
	}
	return categories / 5 * 100
}

// sleepDurationScore steps against the nightly sleep target
func sleepDurationScore(hours, target float64) float64 {
	switch {
	case hours >= target:
		return 100
	case hours >= target-1:
		return 75
	case hours >= target-2:
		return 50
	case hours <= 0:
		return 0
	default:
		return math.Min(hours/(target-2)*50, 50)
	}
}

// ratioScore is a linear value/target component capped at 100
func ratioScore(value, target float64) float64 {
	if target <= 0 || value <= 0 {
		return 0
	}
	return math.Min(value/target, 1) * 100
}

func clampComponent(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

func clampScore(v float64) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(v)
}

// dataConfidence reflects how many requested components had any data
func dataConfidence(set *ScoreSet, flags ScoreFlags) float64 {
	requested, nonZero := 0, 0
	count := func(included bool, value int) {
		if !included {
			return
		}
		requested++
		if value > 0 {
			nonZero++
		}
	}
	count(flags.IncludeNutrition, set.Nutrition)
	count(flags.IncludeFitness, set.Fitness)
	count(flags.IncludeRecovery, set.Recovery)
	count(flags.IncludeConsistency, set.Consistency)

	if requested == 0 {
		return 0
	}
	return math.Max(0.3, float64(nonZero)/float64(requested))
}

func mergeDetails(dst map[string]float64, prefix string, src map[string]float64) {
	for k, v := range src {
		dst[prefix+"_"+k] = v
	}
}
