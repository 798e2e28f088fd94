package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/vitalsync/analytics/internal/apperr"
	"github.com/vitalsync/analytics/pkg/model"
	"go.uber.org/zap"
)

// minPatternDays is the minimum number of overlapping days both metrics of
// a pair must cover before a correlation is computed
const minPatternDays = 7

// metricPair names the two metric streams a pattern type correlates
type metricPair struct {
	first  model.MetricType
	second model.MetricType
}

var patternPairs = map[model.PatternType]metricPair{
	model.PatternSleepActivity:   {model.MetricSleepDuration, model.MetricExerciseMinutes},
	model.PatternNutritionEnergy: {model.MetricCaloriesConsumed, model.MetricActivityLevel},
	model.PatternStressRecovery:  {model.MetricStressLevel, model.MetricSleepQuality},
	model.PatternWeightSteps:     {model.MetricWeight, model.MetricSteps},
}

// PatternStore persists correlation analyses keyed by (user, type, period)
type PatternStore interface {
	Upsert(ctx context.Context, p *model.PatternAnalysis) error
	GetByUser(ctx context.Context, userID string, patternType model.PatternType) ([]model.PatternAnalysis, error)
}

// PatternService correlates pairs of metric streams over a period. Samples
// are collapsed to daily means first so that streams with different sampling
// rates compare on equal footing, then a signed Pearson coefficient is
// computed over the days both streams cover.
type PatternService struct {
	metrics  MetricReader
	patterns PatternStore
	logger   *zap.Logger

	now func() time.Time
}

// NewPatternService creates a new PatternService
func NewPatternService(metrics MetricReader, patterns PatternStore, logger *zap.Logger) *PatternService {
	return &PatternService{
		metrics:  metrics,
		patterns: patterns,
		logger:   logger,
		now:      time.Now,
	}
}

// Analyze computes and persists the correlation for one pattern type. An
// explicit [from, to] window wins when both bounds are set; otherwise the
// trailing periodDays window ending now is used.
func (s *PatternService) Analyze(ctx context.Context, userID string, patternType model.PatternType, periodDays int, from, to time.Time) (*model.PatternAnalysis, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}
	pair, ok := patternPairs[patternType]
	if !ok {
		return nil, fmt.Errorf("%w: unknown pattern type %q", apperr.ErrInvalidInput, patternType)
	}

	if !from.IsZero() && !to.IsZero() {
		if !to.After(from) {
			return nil, fmt.Errorf("%w: range end must follow range start", apperr.ErrInvalidInput)
		}
		periodDays = int(math.Round(to.Sub(from).Hours() / 24))
		if periodDays < 1 {
			periodDays = 1
		}
	} else {
		if periodDays <= 0 {
			periodDays = 30
		}
		to = s.now()
		from = to.AddDate(0, 0, -periodDays)
	}

	firstDaily, err := s.dailyMeans(ctx, userID, pair.first, from, to)
	if err != nil {
		return nil, err
	}
	secondDaily, err := s.dailyMeans(ctx, userID, pair.second, from, to)
	if err != nil {
		return nil, err
	}

	// Align on days covered by both streams.
	var xs, ys []float64
	days := make([]string, 0, len(firstDaily))
	for day := range firstDaily {
		if _, ok := secondDaily[day]; ok {
			days = append(days, day)
		}
	}
	sort.Strings(days)
	for _, day := range days {
		xs = append(xs, firstDaily[day])
		ys = append(ys, secondDaily[day])
	}

	if len(xs) < minPatternDays {
		return nil, fmt.Errorf("%w: %d overlapping days, need %d", apperr.ErrInsufficientData, len(xs), minPatternDays)
	}

	correlation := pearson(xs, ys)

	analysis := &model.PatternAnalysis{
		ID:               uuid.New().String(),
		UserID:           userID,
		PatternType:      patternType,
		AnalysisPeriod:   fmt.Sprintf("%dd", periodDays),
		CorrelationScore: correlation,
		Insights:         buildInsights(patternType, pair, correlation, len(xs)),
		Recommendations:  patternRecommendations(patternType, correlation),
		PeriodStart:      from,
		PeriodEnd:        to,
	}

	if err := s.patterns.Upsert(ctx, analysis); err != nil {
		return nil, fmt.Errorf("failed to store pattern analysis: %w", err)
	}

	s.logger.Info("pattern analysis completed",
		zap.String("user_id", userID),
		zap.String("pattern_type", string(patternType)),
		zap.Float64("correlation", correlation),
		zap.Int("overlapping_days", len(xs)),
	)

	return analysis, nil
}

// AnalyzeAll runs every known pattern type over the same window, skipping
// pairs without enough overlapping data rather than failing the batch
func (s *PatternService) AnalyzeAll(ctx context.Context, userID string, periodDays int, from, to time.Time) ([]model.PatternAnalysis, error) {
	types := make([]model.PatternType, 0, len(patternPairs))
	for t := range patternPairs {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	results := make([]model.PatternAnalysis, 0, len(types))
	for _, t := range types {
		analysis, err := s.Analyze(ctx, userID, t, periodDays, from, to)
		if err != nil {
			if errors.Is(err, apperr.ErrInsufficientData) {
				s.logger.Debug("skipping pattern with insufficient data",
					zap.String("user_id", userID),
					zap.String("pattern_type", string(t)),
				)
				continue
			}
			return nil, err
		}
		results = append(results, *analysis)
	}

	return results, nil
}

// GetAnalyses returns stored analyses for a user, optionally filtered by type
func (s *PatternService) GetAnalyses(ctx context.Context, userID string, patternType model.PatternType) ([]model.PatternAnalysis, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	analyses, err := s.patterns.GetByUser(ctx, userID, patternType)
	if err != nil {
		return nil, fmt.Errorf("failed to get pattern analyses: %w", err)
	}

	return analyses, nil
}

// dailyMeans collapses a metric stream to one mean value per UTC calendar day
func (s *PatternService) dailyMeans(ctx context.Context, userID string, metricType model.MetricType, from, to time.Time) (map[string]float64, error) {
	rows, err := s.metrics.QueryRange(ctx, userID, metricType, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s metrics: %w", metricType, err)
	}

	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, m := range rows {
		day := m.Timestamp.UTC().Format("2006-01-02")
		sums[day] += m.Value
		counts[day]++
	}

	means := make(map[string]float64, len(sums))
	for day, sum := range sums {
		means[day] = sum / float64(counts[day])
	}
	return means, nil
}

// pearson computes the signed Pearson correlation coefficient of two
// equal-length series. A series with zero variance yields 0.
func pearson(xs, ys []float64) float64 {
	n := float64(len(xs))
	if n < 2 {
		return 0
	}

	var sumX, sumY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX := sumX / n
	meanY := sumY / n

	var cov, varX, varY float64
	for i := range xs {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}

	if varX == 0 || varY == 0 {
		return 0
	}

	r := cov / math.Sqrt(varX*varY)
	// Guard against floating point drift past the valid range.
	return math.Max(-1, math.Min(1, r))
}

func correlationStrength(r float64) string {
	abs := math.Abs(r)
	switch {
	case abs >= 0.7:
		return "strong"
	case abs >= 0.4:
		return "moderate"
	case abs >= 0.2:
		return "weak"
	default:
		return "negligible"
	}
}

func correlationDirection(r float64) string {
	switch {
	case r > 0.05:
		return "positive"
	case r < -0.05:
		return "negative"
	default:
		return "flat"
	}
}

func buildInsights(patternType model.PatternType, pair metricPair, r float64, days int) model.PatternInsights {
	strength := correlationStrength(r)
	direction := correlationDirection(r)

	insights := model.PatternInsights{
		Description: fmt.Sprintf("%s %s correlation between %s and %s over %d days",
			strength, direction, pair.first, pair.second, days),
		Trend: direction,
	}

	if strength == "strong" || strength == "moderate" {
		insights.KeyFindings = append(insights.KeyFindings,
			fmt.Sprintf("%s tracks %s with r=%.2f", pair.second, pair.first, r))
	}
	if patternType == model.PatternStressRecovery && r < -0.4 {
		insights.KeyFindings = append(insights.KeyFindings,
			"higher stress days show measurably lower sleep quality")
	}

	return insights
}

func patternRecommendations(patternType model.PatternType, r float64) []string {
	if correlationStrength(r) == "negligible" {
		return nil
	}

	switch patternType {
	case model.PatternSleepActivity:
		if r > 0 {
			return []string{"Longer sleep aligns with higher activity; protect your sleep window on training days."}
		}
		return []string{"Activity appears to cut into sleep; consider earlier workout times."}
	case model.PatternNutritionEnergy:
		if r > 0 {
			return []string{"Calorie intake tracks activity well; keep fueling proportional to output."}
		}
		return []string{"Intake and activity diverge; review meal timing around exercise."}
	case model.PatternStressRecovery:
		if r < 0 {
			return []string{"Stress degrades your sleep quality; schedule wind-down time on high-stress days."}
		}
		return nil
	case model.PatternWeightSteps:
		if r < 0 {
			return []string{"Higher step counts align with lower weight; current activity level is working."}
		}
		return nil
	}
	return nil
}
