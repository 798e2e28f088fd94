package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vitalsync/analytics/internal/apperr"
	"github.com/vitalsync/analytics/pkg/model"
	"go.uber.org/zap"
)

// GoalRepository manages health goal records
type GoalRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewGoalRepository creates a new GoalRepository
func NewGoalRepository(db *pgxpool.Pool, logger *zap.Logger) *GoalRepository {
	return &GoalRepository{
		db:     db,
		logger: logger,
	}
}

const goalColumns = `
	id, user_id, goal_type, target_value, current_value,
	target_date, deadline_date, priority, progress_percentage,
	achievement_probability, status, milestones, created_at, updated_at
`

// Create stores a new goal
func (r *GoalRepository) Create(ctx context.Context, g *model.HealthGoal) error {
	milestones, err := json.Marshal(g.Milestones)
	if err != nil {
		return fmt.Errorf("failed to marshal milestones: %w", err)
	}

	query := `
		INSERT INTO health_goals (
			id, user_id, goal_type, target_value, current_value,
			target_date, deadline_date, priority, progress_percentage,
			achievement_probability, status, milestones, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
	`

	_, err = r.db.Exec(ctx, query,
		g.ID,
		g.UserID,
		g.GoalType,
		g.TargetValue,
		g.CurrentValue,
		g.TargetDate,
		g.DeadlineDate,
		g.Priority,
		g.ProgressPercentage,
		g.AchievementProbability,
		g.Status,
		milestones,
	)

	if err != nil {
		r.logger.Error("failed to create goal",
			zap.Error(err),
			zap.String("user_id", g.UserID),
		)
		return fmt.Errorf("failed to create goal: %w", err)
	}

	return nil
}

// Update overwrites the mutable fields of an existing goal
func (r *GoalRepository) Update(ctx context.Context, g *model.HealthGoal) error {
	milestones, err := json.Marshal(g.Milestones)
	if err != nil {
		return fmt.Errorf("failed to marshal milestones: %w", err)
	}

	query := `
		UPDATE health_goals
		SET target_value = $1, current_value = $2, target_date = $3,
			deadline_date = $4, priority = $5, progress_percentage = $6,
			achievement_probability = $7, status = $8, milestones = $9,
			updated_at = NOW()
		WHERE id = $10
	`

	result, err := r.db.Exec(ctx, query,
		g.TargetValue,
		g.CurrentValue,
		g.TargetDate,
		g.DeadlineDate,
		g.Priority,
		g.ProgressPercentage,
		g.AchievementProbability,
		g.Status,
		milestones,
		g.ID,
	)

	if err != nil {
		r.logger.Error("failed to update goal",
			zap.Error(err),
			zap.String("goal_id", g.ID),
		)
		return fmt.Errorf("failed to update goal: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("goal %s: %w", g.ID, apperr.ErrNotFound)
	}

	return nil
}

// Delete removes a goal
func (r *GoalRepository) Delete(ctx context.Context, goalID string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM health_goals WHERE id = $1`, goalID)
	if err != nil {
		r.logger.Error("failed to delete goal", zap.Error(err), zap.String("goal_id", goalID))
		return fmt.Errorf("failed to delete goal: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("goal %s: %w", goalID, apperr.ErrNotFound)
	}

	return nil
}

// FindByID retrieves one goal
func (r *GoalRepository) FindByID(ctx context.Context, goalID string) (*model.HealthGoal, error) {
	query := `SELECT ` + goalColumns + ` FROM health_goals WHERE id = $1`

	var g model.HealthGoal
	var milestones []byte
	err := r.db.QueryRow(ctx, query, goalID).Scan(
		&g.ID,
		&g.UserID,
		&g.GoalType,
		&g.TargetValue,
		&g.CurrentValue,
		&g.TargetDate,
		&g.DeadlineDate,
		&g.Priority,
		&g.ProgressPercentage,
		&g.AchievementProbability,
		&g.Status,
		&milestones,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("goal %s: %w", goalID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get goal: %w", err)
	}

	if len(milestones) > 0 {
		if err := json.Unmarshal(milestones, &g.Milestones); err != nil {
			r.logger.Error("failed to unmarshal milestones", zap.Error(err))
		}
	}

	return &g, nil
}

// FindByUserID retrieves all goals for a user, newest target first
func (r *GoalRepository) FindByUserID(ctx context.Context, userID string) ([]model.HealthGoal, error) {
	query := `SELECT ` + goalColumns + ` FROM health_goals WHERE user_id = $1 ORDER BY target_date DESC`
	return r.queryGoals(ctx, query, userID)
}

// FindActiveByUserID retrieves active goals for a user, soonest target first
func (r *GoalRepository) FindActiveByUserID(ctx context.Context, userID string) ([]model.HealthGoal, error) {
	query := `SELECT ` + goalColumns + ` FROM health_goals WHERE user_id = $1 AND status = 'active' ORDER BY target_date ASC`
	return r.queryGoals(ctx, query, userID)
}

func (r *GoalRepository) queryGoals(ctx context.Context, query string, userID string) ([]model.HealthGoal, error) {
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("failed to get goals", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("failed to get goals: %w", err)
	}
	defer rows.Close()

	var goals []model.HealthGoal
	for rows.Next() {
		var g model.HealthGoal
		var milestones []byte
		err := rows.Scan(
			&g.ID,
			&g.UserID,
			&g.GoalType,
			&g.TargetValue,
			&g.CurrentValue,
			&g.TargetDate,
			&g.DeadlineDate,
			&g.Priority,
			&g.ProgressPercentage,
			&g.AchievementProbability,
			&g.Status,
			&milestones,
			&g.CreatedAt,
			&g.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("failed to scan goal", zap.Error(err))
			continue
		}
		if len(milestones) > 0 {
			if err := json.Unmarshal(milestones, &g.Milestones); err != nil {
				r.logger.Error("failed to unmarshal milestones", zap.Error(err))
			}
		}
		goals = append(goals, g)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating goals", zap.Error(err))
		return nil, fmt.Errorf("error iterating goals: %w", err)
	}

	return goals, nil
}
