package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vitalsync/analytics/pkg/model"
	"go.uber.org/zap"
)

// ScoreRepository persists composite health scores with upsert semantics:
// one row per (user, score type, calculation date).
type ScoreRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewScoreRepository creates a new ScoreRepository
func NewScoreRepository(db *pgxpool.Pool, logger *zap.Logger) *ScoreRepository {
	return &ScoreRepository{
		db:     db,
		logger: logger,
	}
}

// UpsertAll writes a full score set for one (user, date) in a single
// transaction. Either every row lands or none do; a recomputation
// overwrites the existing rows for that day.
func (r *ScoreRepository) UpsertAll(ctx context.Context, scores []model.HealthScore) error {
	if len(scores) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO health_scores (
			id, user_id, score_type, value, calculation_date,
			details, trend, confidence, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		ON CONFLICT (user_id, score_type, calculation_date)
		DO UPDATE SET
			value = EXCLUDED.value,
			details = EXCLUDED.details,
			trend = EXCLUDED.trend,
			confidence = EXCLUDED.confidence,
			updated_at = NOW()
	`

	for i := range scores {
		s := &scores[i]
		details, err := json.Marshal(s.Details)
		if err != nil {
			return fmt.Errorf("failed to marshal score details: %w", err)
		}

		_, err = tx.Exec(ctx, query,
			s.ID,
			s.UserID,
			s.ScoreType,
			s.Value,
			s.CalculationDate,
			details,
			s.Trend,
			s.Confidence,
		)
		if err != nil {
			r.logger.Error("failed to upsert health score",
				zap.Error(err),
				zap.String("user_id", s.UserID),
				zap.String("score_type", string(s.ScoreType)),
			)
			return fmt.Errorf("failed to upsert health score: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit score upsert: %w", err)
	}

	return nil
}

// GetByUserAndRange retrieves scores for a user within a date range,
// sorted by calculation date descending
func (r *ScoreRepository) GetByUserAndRange(ctx context.Context, userID string, from, to time.Time) ([]model.HealthScore, error) {
	query := `
		SELECT
			id, user_id, score_type, value, calculation_date,
			details, trend, confidence, created_at, updated_at
		FROM health_scores
		WHERE user_id = $1 AND calculation_date >= $2 AND calculation_date <= $3
		ORDER BY calculation_date DESC, score_type ASC
	`

	rows, err := r.db.Query(ctx, query, userID, from, to)
	if err != nil {
		r.logger.Error("failed to get health scores", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("failed to get health scores: %w", err)
	}
	defer rows.Close()

	var scores []model.HealthScore
	for rows.Next() {
		var s model.HealthScore
		var details []byte
		err := rows.Scan(
			&s.ID,
			&s.UserID,
			&s.ScoreType,
			&s.Value,
			&s.CalculationDate,
			&details,
			&s.Trend,
			&s.Confidence,
			&s.CreatedAt,
			&s.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("failed to scan health score", zap.Error(err))
			continue
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &s.Details); err != nil {
				r.logger.Error("failed to unmarshal score details", zap.Error(err))
			}
		}
		scores = append(scores, s)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating health scores", zap.Error(err))
		return nil, fmt.Errorf("error iterating health scores: %w", err)
	}

	return scores, nil
}

// GetByUserTypeAndDate retrieves a single score row, if present
func (r *ScoreRepository) GetByUserTypeAndDate(ctx context.Context, userID string, scoreType model.ScoreType, date time.Time) (*model.HealthScore, error) {
	query := `
		SELECT
			id, user_id, score_type, value, calculation_date,
			details, trend, confidence, created_at, updated_at
		FROM health_scores
		WHERE user_id = $1 AND score_type = $2 AND calculation_date = $3
	`

	var s model.HealthScore
	var details []byte
	err := r.db.QueryRow(ctx, query, userID, scoreType, date).Scan(
		&s.ID,
		&s.UserID,
		&s.ScoreType,
		&s.Value,
		&s.CalculationDate,
		&details,
		&s.Trend,
		&s.Confidence,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("health score not found: %w", err)
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &s.Details); err != nil {
			r.logger.Error("failed to unmarshal score details", zap.Error(err))
		}
	}

	return &s, nil
}
