package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vitalsync/analytics/pkg/model"
	"go.uber.org/zap"
)

// PatternRepository persists pattern analyses keyed by
// (user, pattern type, analysis period)
type PatternRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewPatternRepository creates a new PatternRepository
func NewPatternRepository(db *pgxpool.Pool, logger *zap.Logger) *PatternRepository {
	return &PatternRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert writes an analysis; re-running the same (user, type, period)
// overwrites the prior row
func (r *PatternRepository) Upsert(ctx context.Context, p *model.PatternAnalysis) error {
	insights, err := json.Marshal(p.Insights)
	if err != nil {
		return fmt.Errorf("failed to marshal insights: %w", err)
	}
	recommendations, err := json.Marshal(p.Recommendations)
	if err != nil {
		return fmt.Errorf("failed to marshal recommendations: %w", err)
	}

	query := `
		INSERT INTO pattern_analyses (
			id, user_id, pattern_type, analysis_period, correlation_score,
			insights, recommendations, period_start, period_end,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		ON CONFLICT (user_id, pattern_type, analysis_period)
		DO UPDATE SET
			correlation_score = EXCLUDED.correlation_score,
			insights = EXCLUDED.insights,
			recommendations = EXCLUDED.recommendations,
			period_start = EXCLUDED.period_start,
			period_end = EXCLUDED.period_end,
			updated_at = NOW()
	`

	_, err = r.db.Exec(ctx, query,
		p.ID,
		p.UserID,
		p.PatternType,
		p.AnalysisPeriod,
		p.CorrelationScore,
		insights,
		recommendations,
		p.PeriodStart,
		p.PeriodEnd,
	)

	if err != nil {
		r.logger.Error("failed to upsert pattern analysis",
			zap.Error(err),
			zap.String("user_id", p.UserID),
			zap.String("pattern_type", string(p.PatternType)),
		)
		return fmt.Errorf("failed to upsert pattern analysis: %w", err)
	}

	return nil
}

// GetByUser retrieves analyses for a user, newest first. When patternType is
// non-empty only that type is returned.
func (r *PatternRepository) GetByUser(ctx context.Context, userID string, patternType model.PatternType) ([]model.PatternAnalysis, error) {
	query := `
		SELECT
			id, user_id, pattern_type, analysis_period, correlation_score,
			insights, recommendations, period_start, period_end,
			created_at, updated_at
		FROM pattern_analyses
		WHERE user_id = $1 AND ($2 = '' OR pattern_type = $2)
		ORDER BY updated_at DESC
	`

	rows, err := r.db.Query(ctx, query, userID, string(patternType))
	if err != nil {
		r.logger.Error("failed to get pattern analyses", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("failed to get pattern analyses: %w", err)
	}
	defer rows.Close()

	var analyses []model.PatternAnalysis
	for rows.Next() {
		var p model.PatternAnalysis
		var insights, recommendations []byte
		err := rows.Scan(
			&p.ID,
			&p.UserID,
			&p.PatternType,
			&p.AnalysisPeriod,
			&p.CorrelationScore,
			&insights,
			&recommendations,
			&p.PeriodStart,
			&p.PeriodEnd,
			&p.CreatedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("failed to scan pattern analysis", zap.Error(err))
			continue
		}
		if len(insights) > 0 {
			if err := json.Unmarshal(insights, &p.Insights); err != nil {
				r.logger.Error("failed to unmarshal insights", zap.Error(err))
			}
		}
		if len(recommendations) > 0 {
			if err := json.Unmarshal(recommendations, &p.Recommendations); err != nil {
				r.logger.Error("failed to unmarshal recommendations", zap.Error(err))
			}
		}
		analyses = append(analyses, p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating pattern analyses", zap.Error(err))
		return nil, fmt.Errorf("error iterating pattern analyses: %w", err)
	}

	return analyses, nil
}
