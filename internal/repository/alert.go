package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vitalsync/analytics/internal/apperr"
	"github.com/vitalsync/analytics/pkg/model"
	"go.uber.org/zap"
)

// AlertRepository is the durable backing of the alert dispatcher. Alerts
// outlive the sessions that produced them; acknowledgement is the only
// mutation, and retention cleanup the only deletion.
type AlertRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewAlertRepository creates a new AlertRepository
func NewAlertRepository(db *pgxpool.Pool, logger *zap.Logger) *AlertRepository {
	return &AlertRepository{
		db:     db,
		logger: logger,
	}
}

const alertColumns = `
	id, user_id, session_id, device_id, type, category, severity,
	metric_type, value, threshold, message, timestamp, acknowledged, read
`

// Insert stores one alert
func (r *AlertRepository) Insert(ctx context.Context, a *model.Alert) error {
	query := `
		INSERT INTO alerts (
			id, user_id, session_id, device_id, type, category, severity,
			metric_type, value, threshold, message, timestamp, acknowledged, read
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.Exec(ctx, query,
		a.ID,
		a.UserID,
		a.SessionID,
		a.DeviceID,
		a.Type,
		a.Category,
		a.Severity,
		a.MetricType,
		a.Value,
		a.Threshold,
		a.Message,
		a.Timestamp,
		a.Acknowledged,
		a.Read,
	)

	if err != nil {
		r.logger.Error("failed to insert alert",
			zap.Error(err),
			zap.String("user_id", a.UserID),
			zap.String("session_id", a.SessionID),
		)
		return fmt.Errorf("failed to insert alert: %w", err)
	}

	return nil
}

// GetActiveByUserID retrieves all unacknowledged alerts for a user across
// all sessions, newest first
func (r *AlertRepository) GetActiveByUserID(ctx context.Context, userID string) ([]model.Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE user_id = $1 AND acknowledged = FALSE
		ORDER BY timestamp DESC
	`
	return r.queryAlerts(ctx, query, userID)
}

// GetByUserID retrieves all alerts for a user, newest first
func (r *AlertRepository) GetByUserID(ctx context.Context, userID string) ([]model.Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE user_id = $1
		ORDER BY timestamp DESC
	`
	return r.queryAlerts(ctx, query, userID)
}

// Acknowledge marks an alert acknowledged and read. Idempotent: calling it
// on an already-acknowledged alert succeeds without change.
func (r *AlertRepository) Acknowledge(ctx context.Context, alertID string) error {
	query := `UPDATE alerts SET acknowledged = TRUE, read = TRUE WHERE id = $1`

	result, err := r.db.Exec(ctx, query, alertID)
	if err != nil {
		r.logger.Error("failed to acknowledge alert", zap.Error(err), zap.String("alert_id", alertID))
		return fmt.Errorf("failed to acknowledge alert: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("alert %s: %w", alertID, apperr.ErrNotFound)
	}

	return nil
}

// GetByID retrieves one alert
func (r *AlertRepository) GetByID(ctx context.Context, alertID string) (*model.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1`

	var a model.Alert
	err := r.db.QueryRow(ctx, query, alertID).Scan(
		&a.ID, &a.UserID, &a.SessionID, &a.DeviceID, &a.Type, &a.Category,
		&a.Severity, &a.MetricType, &a.Value, &a.Threshold, &a.Message,
		&a.Timestamp, &a.Acknowledged, &a.Read,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("alert %s: %w", alertID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}

	return &a, nil
}

// DeleteExpired removes alerts older than the retention cutoff and returns
// how many rows were removed
func (r *AlertRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM alerts WHERE timestamp < $1`, cutoff)
	if err != nil {
		r.logger.Error("failed to delete expired alerts", zap.Error(err))
		return 0, fmt.Errorf("failed to delete expired alerts: %w", err)
	}

	return result.RowsAffected(), nil
}

func (r *AlertRepository) queryAlerts(ctx context.Context, query string, userID string) ([]model.Alert, error) {
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("failed to get alerts", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("failed to get alerts: %w", err)
	}
	defer rows.Close()

	var alerts []model.Alert
	for rows.Next() {
		var a model.Alert
		err := rows.Scan(
			&a.ID, &a.UserID, &a.SessionID, &a.DeviceID, &a.Type, &a.Category,
			&a.Severity, &a.MetricType, &a.Value, &a.Threshold, &a.Message,
			&a.Timestamp, &a.Acknowledged, &a.Read,
		)
		if err != nil {
			r.logger.Error("failed to scan alert", zap.Error(err))
			continue
		}
		alerts = append(alerts, a)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating alerts", zap.Error(err))
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}

	return alerts, nil
}
