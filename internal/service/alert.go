package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vitalsync/analytics/pkg/model"
	"go.uber.org/zap"
)

// AlertStore persists alerts
type AlertStore interface {
	Insert(ctx context.Context, a *model.Alert) error
	GetActiveByUserID(ctx context.Context, userID string) ([]model.Alert, error)
	GetByUserID(ctx context.Context, userID string) ([]model.Alert, error)
	Acknowledge(ctx context.Context, alertID string) error
	GetByID(ctx context.Context, alertID string) (*model.Alert, error)
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// AlertService is the single write path for alerts. Monitoring sessions and
// batch analytics both dispatch through it, so the store stays the one
// source of truth and alerts outlive the session that raised them.
type AlertService struct {
	alerts    AlertStore
	retention time.Duration
	logger    *zap.Logger

	now func() time.Time
}

// NewAlertService creates a new AlertService
func NewAlertService(alerts AlertStore, retention time.Duration, logger *zap.Logger) *AlertService {
	return &AlertService{
		alerts:    alerts,
		retention: retention,
		logger:    logger,
		now:       time.Now,
	}
}

// Dispatch assigns identity and persists one alert
func (s *AlertService) Dispatch(ctx context.Context, a *model.Alert) error {
	if a.UserID == "" {
		return fmt.Errorf("user ID is required")
	}
	if a.Message == "" {
		return fmt.Errorf("alert message is required")
	}

	a.ID = uuid.New().String()
	if a.Timestamp.IsZero() {
		a.Timestamp = s.now()
	}

	if err := s.alerts.Insert(ctx, a); err != nil {
		return fmt.Errorf("failed to store alert: %w", err)
	}

	s.logger.Info("alert dispatched",
		zap.String("alert_id", a.ID),
		zap.String("user_id", a.UserID),
		zap.String("severity", string(a.Severity)),
		zap.String("category", string(a.Category)),
	)

	return nil
}

// GetActiveAlerts returns unacknowledged alerts for a user, newest first
func (s *AlertService) GetActiveAlerts(ctx context.Context, userID string) ([]model.Alert, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	alerts, err := s.alerts.GetActiveByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active alerts: %w", err)
	}

	return alerts, nil
}

// GetAlertHistory returns all stored alerts for a user, newest first
func (s *AlertService) GetAlertHistory(ctx context.Context, userID string) ([]model.Alert, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	alerts, err := s.alerts.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get alert history: %w", err)
	}

	return alerts, nil
}

// AcknowledgeAlert marks an alert acknowledged and read. Acknowledging an
// already acknowledged alert succeeds without effect.
func (s *AlertService) AcknowledgeAlert(ctx context.Context, alertID string) error {
	if alertID == "" {
		return fmt.Errorf("alert ID is required")
	}

	if err := s.alerts.Acknowledge(ctx, alertID); err != nil {
		return fmt.Errorf("failed to acknowledge alert: %w", err)
	}

	return nil
}

// PurgeExpired deletes alerts older than the retention window and returns
// how many rows went away
func (s *AlertService) PurgeExpired(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.retention)

	removed, err := s.alerts.DeleteExpired(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired alerts: %w", err)
	}

	if removed > 0 {
		s.logger.Info("expired alerts purged",
			zap.Int64("removed", removed),
			zap.Time("cutoff", cutoff),
		)
	}

	return removed, nil
}
