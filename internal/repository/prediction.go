package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vitalsync/analytics/pkg/model"
	"go.uber.org/zap"
)

// PredictionRepository persists predictions as history. Inserting a new
// prediction supersedes prior active rows of the same type in one
// transaction, so at most one row per type is active.
type PredictionRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewPredictionRepository creates a new PredictionRepository
func NewPredictionRepository(db *pgxpool.Pool, logger *zap.Logger) *PredictionRepository {
	return &PredictionRepository{
		db:     db,
		logger: logger,
	}
}

// InsertSuperseding stores a prediction and deactivates older rows of the
// same type for the same user
func (r *PredictionRepository) InsertSuperseding(ctx context.Context, p *model.Prediction) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE predictions SET is_active = FALSE
		WHERE user_id = $1 AND prediction_type = $2 AND is_active = TRUE
	`, p.UserID, p.PredictionType)
	if err != nil {
		return fmt.Errorf("failed to supersede predictions: %w", err)
	}

	recommendations, err := json.Marshal(p.Recommendations)
	if err != nil {
		return fmt.Errorf("failed to marshal recommendations: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO predictions (
			id, user_id, prediction_type, target_date, predicted_value,
			confidence_score, model_version, input_summary,
			recommendations, is_active, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
	`,
		p.ID,
		p.UserID,
		p.PredictionType,
		p.TargetDate,
		p.PredictedValue,
		p.ConfidenceScore,
		p.ModelVersion,
		p.InputSummary,
		recommendations,
		p.IsActive,
	)
	if err != nil {
		r.logger.Error("failed to insert prediction",
			zap.Error(err),
			zap.String("user_id", p.UserID),
			zap.String("prediction_type", string(p.PredictionType)),
		)
		return fmt.Errorf("failed to insert prediction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit prediction insert: %w", err)
	}

	return nil
}

// GetByUser retrieves predictions for a user, newest first. When
// predictionType is non-empty only that type is returned; when activeOnly is
// set, superseded history is excluded.
func (r *PredictionRepository) GetByUser(ctx context.Context, userID string, predictionType model.PredictionType, activeOnly bool) ([]model.Prediction, error) {
	query := `
		SELECT
			id, user_id, prediction_type, target_date, predicted_value,
			confidence_score, model_version, input_summary,
			recommendations, is_active, created_at
		FROM predictions
		WHERE user_id = $1
			AND ($2 = '' OR prediction_type = $2)
			AND (NOT $3 OR is_active)
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, userID, string(predictionType), activeOnly)
	if err != nil {
		r.logger.Error("failed to get predictions", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("failed to get predictions: %w", err)
	}
	defer rows.Close()

	var predictions []model.Prediction
	for rows.Next() {
		var p model.Prediction
		var recommendations []byte
		err := rows.Scan(
			&p.ID,
			&p.UserID,
			&p.PredictionType,
			&p.TargetDate,
			&p.PredictedValue,
			&p.ConfidenceScore,
			&p.ModelVersion,
			&p.InputSummary,
			&recommendations,
			&p.IsActive,
			&p.CreatedAt,
		)
		if err != nil {
			r.logger.Error("failed to scan prediction", zap.Error(err))
			continue
		}
		if len(recommendations) > 0 {
			if err := json.Unmarshal(recommendations, &p.Recommendations); err != nil {
				r.logger.Error("failed to unmarshal recommendations", zap.Error(err))
			}
		}
		predictions = append(predictions, p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating predictions", zap.Error(err))
		return nil, fmt.Errorf("error iterating predictions: %w", err)
	}

	return predictions, nil
}
