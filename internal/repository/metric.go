package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vitalsync/analytics/pkg/model"
	"go.uber.org/zap"
)

// MetricRepository is the append-only per-user time-series store all
// analytics read from. Rows are never updated.
type MetricRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewMetricRepository creates a new MetricRepository
func NewMetricRepository(db *pgxpool.Pool, logger *zap.Logger) *MetricRepository {
	return &MetricRepository{
		db:     db,
		logger: logger,
	}
}

// Append stores one metric row
func (r *MetricRepository) Append(ctx context.Context, m *model.Metric) error {
	query := `
		INSERT INTO metrics (
			id, user_id, metric_type, value, unit,
			timestamp, source, confidence, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	`

	_, err := r.db.Exec(ctx, query,
		m.ID,
		m.UserID,
		m.MetricType,
		m.Value,
		m.Unit,
		m.Timestamp,
		m.Source,
		m.Confidence,
	)

	if err != nil {
		r.logger.Error("failed to append metric",
			zap.Error(err),
			zap.String("user_id", m.UserID),
			zap.String("metric_type", string(m.MetricType)),
		)
		return fmt.Errorf("failed to append metric: %w", err)
	}

	return nil
}

// QueryRange retrieves metrics of one type for a user within a time range,
// sorted by timestamp ascending
func (r *MetricRepository) QueryRange(ctx context.Context, userID string, metricType model.MetricType, from, to time.Time) ([]model.Metric, error) {
	query := `
		SELECT
			id, user_id, metric_type, value, unit,
			timestamp, source, confidence, created_at
		FROM metrics
		WHERE user_id = $1 AND metric_type = $2 AND timestamp >= $3 AND timestamp <= $4
		ORDER BY timestamp ASC
	`

	rows, err := r.db.Query(ctx, query, userID, metricType, from, to)
	if err != nil {
		r.logger.Error("failed to query metrics", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("failed to query metrics: %w", err)
	}
	defer rows.Close()

	var metrics []model.Metric
	for rows.Next() {
		var m model.Metric
		err := rows.Scan(
			&m.ID,
			&m.UserID,
			&m.MetricType,
			&m.Value,
			&m.Unit,
			&m.Timestamp,
			&m.Source,
			&m.Confidence,
			&m.CreatedAt,
		)
		if err != nil {
			r.logger.Error("failed to scan metric", zap.Error(err))
			continue
		}
		metrics = append(metrics, m)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating metrics", zap.Error(err))
		return nil, fmt.Errorf("error iterating metrics: %w", err)
	}

	return metrics, nil
}

// QueryAllInRange retrieves all metrics for a user within a time range,
// regardless of type, sorted by timestamp ascending
func (r *MetricRepository) QueryAllInRange(ctx context.Context, userID string, from, to time.Time) ([]model.Metric, error) {
	query := `
		SELECT
			id, user_id, metric_type, value, unit,
			timestamp, source, confidence, created_at
		FROM metrics
		WHERE user_id = $1 AND timestamp >= $2 AND timestamp <= $3
		ORDER BY timestamp ASC
	`

	rows, err := r.db.Query(ctx, query, userID, from, to)
	if err != nil {
		r.logger.Error("failed to query metrics", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("failed to query metrics: %w", err)
	}
	defer rows.Close()

	var metrics []model.Metric
	for rows.Next() {
		var m model.Metric
		err := rows.Scan(
			&m.ID,
			&m.UserID,
			&m.MetricType,
			&m.Value,
			&m.Unit,
			&m.Timestamp,
			&m.Source,
			&m.Confidence,
			&m.CreatedAt,
		)
		if err != nil {
			r.logger.Error("failed to scan metric", zap.Error(err))
			continue
		}
		metrics = append(metrics, m)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating metrics", zap.Error(err))
		return nil, fmt.Errorf("error iterating metrics: %w", err)
	}

	return metrics, nil
}

// DeleteExpired removes metrics older than the retention cutoff and returns
// how many rows were removed
func (r *MetricRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM metrics WHERE timestamp < $1`, cutoff)
	if err != nil {
		r.logger.Error("failed to delete expired metrics", zap.Error(err))
		return 0, fmt.Errorf("failed to delete expired metrics: %w", err)
	}

	return result.RowsAffected(), nil
}
