package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/vitalsync/analytics/internal/apperr"
	"github.com/vitalsync/analytics/pkg/model"
	"go.uber.org/zap"
)

// GoalStore persists health goals
type GoalStore interface {
	Create(ctx context.Context, g *model.HealthGoal) error
	Update(ctx context.Context, g *model.HealthGoal) error
	Delete(ctx context.Context, goalID string) error
	FindByID(ctx context.Context, goalID string) (*model.HealthGoal, error)
	FindByUserID(ctx context.Context, userID string) ([]model.HealthGoal, error)
	FindActiveByUserID(ctx context.Context, userID string) ([]model.HealthGoal, error)
}

// goalMetricTypes maps a goal type to the metric stream its progress is
// measured against
var goalMetricTypes = map[string]model.MetricType{
	"weight_loss":    model.MetricWeight,
	"weight_gain":    model.MetricWeight,
	"daily_steps":    model.MetricSteps,
	"exercise_time":  model.MetricExerciseMinutes,
	"sleep_duration": model.MetricSleepDuration,
	"calorie_intake": model.MetricCaloriesConsumed,
	"protein_intake": model.MetricProtein,
}

// lowerIsBetter marks goal types where progress means driving the metric
// down toward the target
var lowerIsBetter = map[string]bool{
	"weight_loss": true,
}

// GoalService manages health goal lifecycle and recomputes progress from the
// metric stream. Completion happens only through recompute reaching 100%;
// pausing and cancelling are explicit updates.
type GoalService struct {
	goals   GoalStore
	metrics MetricReader
	logger  *zap.Logger

	now func() time.Time
}

// NewGoalService creates a new GoalService
func NewGoalService(goals GoalStore, metrics MetricReader, logger *zap.Logger) *GoalService {
	return &GoalService{
		goals:   goals,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// CreateGoal validates and persists a new goal in active state
func (s *GoalService) CreateGoal(ctx context.Context, g *model.HealthGoal) (*model.HealthGoal, error) {
	if g.UserID == "" {
		return nil, fmt.Errorf("user ID is required")
	}
	if g.GoalType == "" {
		return nil, fmt.Errorf("goal type is required")
	}
	if _, ok := goalMetricTypes[g.GoalType]; !ok {
		return nil, fmt.Errorf("%w: unknown goal type %q", apperr.ErrInvalidInput, g.GoalType)
	}
	if g.TargetValue <= 0 {
		return nil, fmt.Errorf("%w: target value must be positive", apperr.ErrInvalidInput)
	}
	if g.TargetDate.Before(s.now()) {
		return nil, fmt.Errorf("%w: target date must be in the future", apperr.ErrInvalidInput)
	}

	now := s.now()
	g.ID = uuid.New().String()
	g.Status = model.GoalActive
	g.ProgressPercentage = 0
	g.AchievementProbability = 50
	g.CreatedAt = now
	g.UpdatedAt = now

	if err := s.goals.Create(ctx, g); err != nil {
		return nil, fmt.Errorf("failed to create goal: %w", err)
	}

	s.logger.Info("goal created",
		zap.String("goal_id", g.ID),
		zap.String("user_id", g.UserID),
		zap.String("goal_type", g.GoalType),
	)

	return g, nil
}

// UpdateGoal applies caller-controlled fields. Status transitions to paused
// or cancelled go through here; completion does not.
func (s *GoalService) UpdateGoal(ctx context.Context, goalID string, targetValue *float64, targetDate *time.Time, priority *int, status *model.GoalStatus) (*model.HealthGoal, error) {
	g, err := s.goals.FindByID(ctx, goalID)
	if err != nil {
		return nil, fmt.Errorf("failed to find goal: %w", err)
	}

	if targetValue != nil {
		if *targetValue <= 0 {
			return nil, fmt.Errorf("%w: target value must be positive", apperr.ErrInvalidInput)
		}
		g.TargetValue = *targetValue
	}
	if targetDate != nil {
		g.TargetDate = *targetDate
	}
	if priority != nil {
		g.Priority = *priority
	}
	if status != nil {
		switch *status {
		case model.GoalPaused, model.GoalCancelled, model.GoalActive:
			g.Status = *status
		case model.GoalCompleted:
			return nil, fmt.Errorf("%w: completion is derived from progress, not set directly", apperr.ErrInvalidInput)
		default:
			return nil, fmt.Errorf("%w: unknown goal status %q", apperr.ErrInvalidInput, *status)
		}
	}
	g.UpdatedAt = s.now()

	if err := s.goals.Update(ctx, g); err != nil {
		return nil, fmt.Errorf("failed to update goal: %w", err)
	}

	return g, nil
}

// DeleteGoal removes a goal
func (s *GoalService) DeleteGoal(ctx context.Context, goalID string) error {
	if goalID == "" {
		return fmt.Errorf("goal ID is required")
	}

	if err := s.goals.Delete(ctx, goalID); err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}

	return nil
}

// GetGoal returns one goal by ID
func (s *GoalService) GetGoal(ctx context.Context, goalID string) (*model.HealthGoal, error) {
	g, err := s.goals.FindByID(ctx, goalID)
	if err != nil {
		return nil, fmt.Errorf("failed to find goal: %w", err)
	}
	return g, nil
}

// GetGoals returns a user's goals, optionally only active ones
func (s *GoalService) GetGoals(ctx context.Context, userID string, activeOnly bool) ([]model.HealthGoal, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	var (
		goals []model.HealthGoal
		err   error
	)
	if activeOnly {
		goals, err = s.goals.FindActiveByUserID(ctx, userID)
	} else {
		goals, err = s.goals.FindByUserID(ctx, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get goals: %w", err)
	}

	return goals, nil
}

// RecomputeProgress refreshes one goal from the latest relevant metric:
// currentValue, clamped progress, achievement probability, milestone flags
// and completed status at 100%
func (s *GoalService) RecomputeProgress(ctx context.Context, goalID string) (*model.HealthGoal, error) {
	g, err := s.goals.FindByID(ctx, goalID)
	if err != nil {
		return nil, fmt.Errorf("failed to find goal: %w", err)
	}
	if g.Status != model.GoalActive {
		return g, nil
	}

	metricType := goalMetricTypes[g.GoalType]
	now := s.now()
	rows, err := s.metrics.QueryRange(ctx, g.UserID, metricType, g.CreatedAt, now)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s metrics: %w", metricType, err)
	}
	if len(rows) == 0 {
		return g, nil
	}

	g.CurrentValue = rows[len(rows)-1].Value
	g.ProgressPercentage = goalProgress(g)
	g.AchievementProbability = achievementProbability(g, now)

	for i := range g.Milestones {
		if !g.Milestones[i].Achieved && milestoneReached(g, g.Milestones[i].Target) {
			achievedAt := now
			g.Milestones[i].Achieved = true
			g.Milestones[i].AchievedAt = &achievedAt
		}
	}

	if g.ProgressPercentage >= 100 {
		g.Status = model.GoalCompleted
		s.logger.Info("goal completed",
			zap.String("goal_id", g.ID),
			zap.String("user_id", g.UserID),
			zap.String("goal_type", g.GoalType),
		)
	}
	g.UpdatedAt = now

	if err := s.goals.Update(ctx, g); err != nil {
		return nil, fmt.Errorf("failed to update goal: %w", err)
	}

	return g, nil
}

// goalProgress maps current vs target to [0,100]. For lower-is-better goals
// reaching or passing the target from above counts as complete.
func goalProgress(g *model.HealthGoal) float64 {
	var ratio float64
	if lowerIsBetter[g.GoalType] {
		if g.CurrentValue <= g.TargetValue {
			return 100
		}
		ratio = g.TargetValue / g.CurrentValue
	} else {
		ratio = g.CurrentValue / g.TargetValue
	}
	return math.Max(0, math.Min(100, ratio*100))
}

// achievementProbability compares actual progress against the pace a linear
// schedule would expect by now
func achievementProbability(g *model.HealthGoal, now time.Time) float64 {
	total := g.TargetDate.Sub(g.CreatedAt).Hours()
	if total <= 0 {
		return g.ProgressPercentage
	}
	elapsed := now.Sub(g.CreatedAt).Hours()
	expected := math.Min(elapsed/total, 1) * 100

	probability := 50 + (g.ProgressPercentage - expected)
	return math.Max(0, math.Min(100, probability))
}

func milestoneReached(g *model.HealthGoal, target float64) bool {
	if lowerIsBetter[g.GoalType] {
		return g.CurrentValue <= target
	}
	return g.CurrentValue >= target
}
