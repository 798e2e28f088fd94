package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vitalsync/analytics/internal/apperr"
	"github.com/vitalsync/analytics/pkg/model"
	"go.uber.org/zap"
)

// MetricWriter is the append-and-cleanup slice of the metric store
type MetricWriter interface {
	Append(ctx context.Context, m *model.Metric) error
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// MetricService validates and records health metrics. Metrics are immutable
// once written; the only removal paths are retention cleanup and an explicit
// user data erase.
type MetricService struct {
	writer    MetricWriter
	reader    MetricReader
	retention time.Duration
	logger    *zap.Logger

	now func() time.Time
}

// NewMetricService creates a new MetricService
func NewMetricService(writer MetricWriter, reader MetricReader, retention time.Duration, logger *zap.Logger) *MetricService {
	return &MetricService{
		writer:    writer,
		reader:    reader,
		retention: retention,
		logger:    logger,
		now:       time.Now,
	}
}

// RecordMetric validates one sample and appends it to the store
func (s *MetricService) RecordMetric(ctx context.Context, m *model.Metric) (*model.Metric, error) {
	if m.UserID == "" {
		return nil, fmt.Errorf("user ID is required")
	}
	if !model.ValidMetricTypes[m.MetricType] {
		return nil, fmt.Errorf("%w: unknown metric type %q", apperr.ErrInvalidInput, m.MetricType)
	}
	if m.Value < 0 {
		return nil, fmt.Errorf("%w: metric value must be non-negative", apperr.ErrInvalidInput)
	}
	if m.Confidence < 0 || m.Confidence > 1 {
		return nil, fmt.Errorf("%w: confidence must be in [0,1]", apperr.ErrInvalidInput)
	}
	if m.Source == "" {
		m.Source = model.SourceManual
	}

	now := s.now()
	m.ID = uuid.New().String()
	if m.Timestamp.IsZero() {
		m.Timestamp = now
	}
	m.CreatedAt = now

	if err := s.writer.Append(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to store metric: %w", err)
	}

	return m, nil
}

// GetMetrics returns a user's metrics of one type ordered oldest first
func (s *MetricService) GetMetrics(ctx context.Context, userID string, metricType model.MetricType, from, to time.Time) ([]model.Metric, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}
	if !model.ValidMetricTypes[metricType] {
		return nil, fmt.Errorf("%w: unknown metric type %q", apperr.ErrInvalidInput, metricType)
	}
	if !to.After(from) {
		return nil, fmt.Errorf("%w: range end must follow range start", apperr.ErrInvalidInput)
	}

	metrics, err := s.reader.QueryRange(ctx, userID, metricType, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query metrics: %w", err)
	}

	return metrics, nil
}

// CleanupExpired drops metrics older than the retention window
func (s *MetricService) CleanupExpired(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.retention)

	removed, err := s.writer.DeleteExpired(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired metrics: %w", err)
	}

	if removed > 0 {
		s.logger.Info("expired metrics removed",
			zap.Int64("removed", removed),
			zap.Time("cutoff", cutoff),
		)
	}

	return removed, nil
}
