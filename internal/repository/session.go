package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vitalsync/analytics/internal/apperr"
	"github.com/vitalsync/analytics/pkg/model"
	"go.uber.org/zap"
)

// SessionRepository persists monitoring session records for audit. The live
// sample ring is owned by the monitoring service; this table carries
// identity, configuration and lifecycle only.
type SessionRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db *pgxpool.Pool, logger *zap.Logger) *SessionRepository {
	return &SessionRepository{
		db:     db,
		logger: logger,
	}
}

// Save stores a new session record
func (r *SessionRepository) Save(ctx context.Context, s *model.MonitoringSession) error {
	thresholds, err := json.Marshal(s.AlertThresholds)
	if err != nil {
		return fmt.Errorf("failed to marshal alert thresholds: %w", err)
	}
	enabled, err := json.Marshal(s.EnabledMetrics)
	if err != nil {
		return fmt.Errorf("failed to marshal enabled metrics: %w", err)
	}

	query := `
		INSERT INTO monitoring_sessions (
			id, user_id, device_id, start_time, end_time, is_active,
			status, sampling_rate_ms, alert_thresholds, enabled_metrics, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
	`

	_, err = r.db.Exec(ctx, query,
		s.ID,
		s.UserID,
		s.DeviceID,
		s.StartTime,
		s.EndTime,
		s.IsActive,
		s.Status,
		s.SamplingRateMs,
		thresholds,
		enabled,
	)

	if err != nil {
		r.logger.Error("failed to save monitoring session",
			zap.Error(err),
			zap.String("user_id", s.UserID),
			zap.String("device_id", s.DeviceID),
		)
		return fmt.Errorf("failed to save monitoring session: %w", err)
	}

	return nil
}

// UpdateStatus records a lifecycle transition
func (r *SessionRepository) UpdateStatus(ctx context.Context, sessionID string, status model.SessionStatus, isActive bool, endTime *time.Time) error {
	query := `
		UPDATE monitoring_sessions
		SET status = $1, is_active = $2, end_time = $3
		WHERE id = $4
	`

	result, err := r.db.Exec(ctx, query, status, isActive, endTime, sessionID)
	if err != nil {
		r.logger.Error("failed to update session status",
			zap.Error(err),
			zap.String("session_id", sessionID),
		)
		return fmt.Errorf("failed to update session status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("monitoring session %s: %w", sessionID, apperr.ErrNotFound)
	}

	return nil
}

// GetByID retrieves one session record
func (r *SessionRepository) GetByID(ctx context.Context, sessionID string) (*model.MonitoringSession, error) {
	query := `
		SELECT
			id, user_id, device_id, start_time, end_time, is_active,
			status, sampling_rate_ms, alert_thresholds, enabled_metrics, created_at
		FROM monitoring_sessions
		WHERE id = $1
	`

	var s model.MonitoringSession
	var thresholds, enabled []byte
	err := r.db.QueryRow(ctx, query, sessionID).Scan(
		&s.ID,
		&s.UserID,
		&s.DeviceID,
		&s.StartTime,
		&s.EndTime,
		&s.IsActive,
		&s.Status,
		&s.SamplingRateMs,
		&thresholds,
		&enabled,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("monitoring session %s: %w", sessionID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get monitoring session: %w", err)
	}

	if len(thresholds) > 0 {
		if err := json.Unmarshal(thresholds, &s.AlertThresholds); err != nil {
			r.logger.Error("failed to unmarshal alert thresholds", zap.Error(err))
		}
	}
	if len(enabled) > 0 {
		if err := json.Unmarshal(enabled, &s.EnabledMetrics); err != nil {
			r.logger.Error("failed to unmarshal enabled metrics", zap.Error(err))
		}
	}

	return &s, nil
}

// GetByUserID retrieves all session records for a user, newest first
func (r *SessionRepository) GetByUserID(ctx context.Context, userID string) ([]model.MonitoringSession, error) {
	query := `
		SELECT
			id, user_id, device_id, start_time, end_time, is_active,
			status, sampling_rate_ms, alert_thresholds, enabled_metrics, created_at
		FROM monitoring_sessions
		WHERE user_id = $1
		ORDER BY start_time DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("failed to get monitoring sessions", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("failed to get monitoring sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.MonitoringSession
	for rows.Next() {
		var s model.MonitoringSession
		var thresholds, enabled []byte
		err := rows.Scan(
			&s.ID,
			&s.UserID,
			&s.DeviceID,
			&s.StartTime,
			&s.EndTime,
			&s.IsActive,
			&s.Status,
			&s.SamplingRateMs,
			&thresholds,
			&enabled,
			&s.CreatedAt,
		)
		if err != nil {
			r.logger.Error("failed to scan monitoring session", zap.Error(err))
			continue
		}
		if len(thresholds) > 0 {
			if err := json.Unmarshal(thresholds, &s.AlertThresholds); err != nil {
				r.logger.Error("failed to unmarshal alert thresholds", zap.Error(err))
			}
		}
		if len(enabled) > 0 {
			if err := json.Unmarshal(enabled, &s.EnabledMetrics); err != nil {
				r.logger.Error("failed to unmarshal enabled metrics", zap.Error(err))
			}
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating monitoring sessions", zap.Error(err))
		return nil, fmt.Errorf("error iterating monitoring sessions: %w", err)
	}

	return sessions, nil
}
