package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vitalsync/analytics/internal/apperr"
	"github.com/vitalsync/analytics/internal/config"
	"github.com/vitalsync/analytics/pkg/model"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// SessionStore persists monitoring session rows for audit; the live state
// stays in memory
type SessionStore interface {
	Save(ctx context.Context, s *model.MonitoringSession) error
	UpdateStatus(ctx context.Context, sessionID string, status model.SessionStatus, isActive bool, endTime *time.Time) error
	GetByID(ctx context.Context, sessionID string) (*model.MonitoringSession, error)
	GetByUserID(ctx context.Context, userID string) ([]model.MonitoringSession, error)
}

// AlertDispatcher is the alert write path the monitoring service forwards to
type AlertDispatcher interface {
	Dispatch(ctx context.Context, a *model.Alert) error
	GetActiveAlerts(ctx context.Context, userID string) ([]model.Alert, error)
}

// metricRing is a fixed-capacity drop-oldest buffer of live samples.
// Not safe for concurrent use; callers hold the owning session's lock.
type metricRing struct {
	buf   []model.RealTimeMetric
	next  int
	count int
}

func newMetricRing(capacity int) *metricRing {
	return &metricRing{buf: make([]model.RealTimeMetric, capacity)}
}

func (r *metricRing) push(m model.RealTimeMetric) {
	r.buf[r.next] = m
	r.next = (r.next + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// snapshot returns the retained samples oldest first
func (r *metricRing) snapshot() []model.RealTimeMetric {
	out := make([]model.RealTimeMetric, 0, r.count)
	start := r.next - r.count
	if start < 0 {
		start += len(r.buf)
	}
	for i := 0; i < r.count; i++ {
		out = append(out, r.buf[(start+i)%len(r.buf)])
	}
	return out
}

// liveSession is the in-memory state of one monitoring session. The mutex
// guards everything below it; the housekeeping goroutine and ingest path
// both take it and re-check status before mutating.
type liveSession struct {
	mu      sync.Mutex
	session model.MonitoringSession
	ring    *metricRing

	// Each enabled metric stream is paced independently at the session's
	// sampling rate, so one tick carries one sample per enabled metric.
	// Sessions without an explicit enabled set accept any valid type and
	// get a limiter on first sight of it.
	limiters map[model.MetricType]*rate.Limiter
	enabled  map[model.MetricType]bool
	interval time.Duration

	alerts   []model.Alert
	lastSync time.Time
	cancel   context.CancelFunc
}

// MonitoringService owns the arena of live sessions. Session rows and alerts
// are persisted; rings and limiters exist only in memory and die with the
// process.
type MonitoringService struct {
	mu       sync.RWMutex
	sessions map[string]*liveSession

	store      SessionStore
	dispatcher AlertDispatcher
	cfg        config.MonitoringConfig
	logger     *zap.Logger

	now func() time.Time
}

// NewMonitoringService creates a new MonitoringService
func NewMonitoringService(store SessionStore, dispatcher AlertDispatcher, cfg config.MonitoringConfig, logger *zap.Logger) *MonitoringService {
	return &MonitoringService{
		sessions:   make(map[string]*liveSession),
		store:      store,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// StartSession validates the request, persists the session row and brings up
// the live state with its housekeeping goroutine
func (s *MonitoringService) StartSession(ctx context.Context, session *model.MonitoringSession) (*model.MonitoringSession, error) {
	if session.UserID == "" {
		return nil, fmt.Errorf("user ID is required")
	}
	if session.DeviceID == "" {
		return nil, fmt.Errorf("device ID is required")
	}
	for t := range session.AlertThresholds {
		if !model.ValidMetricTypes[t] {
			return nil, fmt.Errorf("%w: unknown metric type %q in thresholds", apperr.ErrInvalidInput, t)
		}
	}
	for _, t := range session.EnabledMetrics {
		if !model.ValidMetricTypes[t] {
			return nil, fmt.Errorf("%w: unknown enabled metric type %q", apperr.ErrInvalidInput, t)
		}
	}
	if session.SamplingRateMs <= 0 {
		session.SamplingRateMs = s.cfg.DefaultSamplingRateMs
	}

	now := s.now()
	session.ID = uuid.New().String()
	session.StartTime = now
	session.IsActive = true
	session.Status = model.SessionActive
	session.CreatedAt = now

	if err := s.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store monitoring session: %w", err)
	}

	interval := time.Duration(session.SamplingRateMs) * time.Millisecond
	limiters := make(map[model.MetricType]*rate.Limiter, len(session.EnabledMetrics))
	enabled := make(map[model.MetricType]bool, len(session.EnabledMetrics))
	for _, t := range session.EnabledMetrics {
		enabled[t] = true
		limiters[t] = rate.NewLimiter(rate.Every(interval), 1)
	}

	hkCtx, cancel := context.WithCancel(context.Background())
	live := &liveSession{
		session:  *session,
		ring:     newMetricRing(s.cfg.RingCapacity),
		limiters: limiters,
		enabled:  enabled,
		interval: interval,
		lastSync: now,
		cancel:   cancel,
	}

	s.mu.Lock()
	s.sessions[session.ID] = live
	s.mu.Unlock()

	go s.housekeep(hkCtx, live)

	s.logger.Info("monitoring session started",
		zap.String("session_id", session.ID),
		zap.String("user_id", session.UserID),
		zap.String("device_id", session.DeviceID),
		zap.Int("sampling_rate_ms", session.SamplingRateMs),
	)

	return session, nil
}

// housekeep stamps lastSync and trims this session's in-memory alert list
// once a minute until the session is cancelled. Persisted alert retention is
// the cleanup loop's job, not per-session work.
func (s *MonitoringService) housekeep(ctx context.Context, live *liveSession) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			live.mu.Lock()
			if live.session.Status == model.SessionActive {
				live.lastSync = s.now()
				cutoff := s.now().Add(-s.cfg.AlertRetention)
				kept := live.alerts[:0]
				for _, a := range live.alerts {
					if a.Timestamp.After(cutoff) {
						kept = append(kept, a)
					}
				}
				live.alerts = kept
			}
			live.mu.Unlock()
		}
	}
}

// RecordData ingests live samples into a session. Each metric stream is
// paced independently; samples arriving faster than the sampling rate for
// their type are dropped, not errors. Returns how many samples were accepted
// and any alerts raised by threshold breaches.
func (s *MonitoringService) RecordData(ctx context.Context, sessionID string, samples []model.RealTimeMetric) (int, []model.Alert, error) {
	live, err := s.lookup(sessionID)
	if err != nil {
		return 0, nil, err
	}

	live.mu.Lock()
	defer live.mu.Unlock()

	if live.session.Status != model.SessionActive {
		return 0, nil, fmt.Errorf("%w: session %s is %s", apperr.ErrInvalidInput, sessionID, live.session.Status)
	}

	accepted := 0
	var raised []model.Alert
	now := s.now()

	for _, sample := range samples {
		if !model.ValidMetricTypes[sample.MetricType] {
			return accepted, raised, fmt.Errorf("%w: unknown metric type %q", apperr.ErrInvalidInput, sample.MetricType)
		}
		if len(live.enabled) > 0 && !live.enabled[sample.MetricType] {
			return accepted, raised, fmt.Errorf("%w: metric type %q is not enabled for session %s", apperr.ErrInvalidInput, sample.MetricType, sessionID)
		}
		limiter, ok := live.limiters[sample.MetricType]
		if !ok {
			limiter = rate.NewLimiter(rate.Every(live.interval), 1)
			live.limiters[sample.MetricType] = limiter
		}
		if !limiter.Allow() {
			continue
		}
		if sample.Timestamp.IsZero() {
			sample.Timestamp = now
		}

		live.ring.push(sample)
		accepted++

		if alert := s.evaluateThreshold(&live.session, sample); alert != nil {
			// Dispatch assigns the alert's identity; copy afterwards so the
			// caller gets an acknowledgeable ID.
			if err := s.dispatcher.Dispatch(ctx, alert); err != nil {
				s.logger.Error("failed to dispatch threshold alert",
					zap.String("session_id", sessionID),
					zap.Error(err),
				)
			}
			live.alerts = append(live.alerts, *alert)
			raised = append(raised, *alert)
		}
	}

	live.lastSync = now

	return accepted, raised, nil
}

// evaluateThreshold compares one sample against the session's band for its
// metric type. Breaches past 1.5x of max or below 0.5x of min are critical,
// lesser breaches high.
func (s *MonitoringService) evaluateThreshold(session *model.MonitoringSession, sample model.RealTimeMetric) *model.Alert {
	threshold, ok := session.AlertThresholds[sample.MetricType]
	if !ok {
		return nil
	}

	var severity model.AlertSeverity
	var bound float64

	switch {
	case threshold.Max != nil && sample.Value > *threshold.Max:
		bound = *threshold.Max
		severity = model.SeverityHigh
		if sample.Value > 1.5*bound {
			severity = model.SeverityCritical
		}
	case threshold.Min != nil && sample.Value < *threshold.Min:
		bound = *threshold.Min
		severity = model.SeverityHigh
		if sample.Value < 0.5*bound {
			severity = model.SeverityCritical
		}
	default:
		return nil
	}

	alertType := model.AlertWarning
	if severity == model.SeverityCritical {
		alertType = model.AlertCritical
	}

	metricType := sample.MetricType
	value := sample.Value
	boundCopy := bound

	return &model.Alert{
		UserID:     session.UserID,
		SessionID:  session.ID,
		DeviceID:   &session.DeviceID,
		Type:       alertType,
		Category:   model.CategoryHealth,
		Severity:   severity,
		MetricType: &metricType,
		Value:      &value,
		Threshold:  &boundCopy,
		Message: fmt.Sprintf("%s reading %.1f outside threshold %.1f",
			sample.MetricType, sample.Value, bound),
		Timestamp: sample.Timestamp,
	}
}

// StopSession completes a session. Safe to call while ingest is in flight;
// the status flip under the session lock makes later ingests reject.
func (s *MonitoringService) StopSession(ctx context.Context, sessionID string) (*model.MonitoringSession, error) {
	live, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	live.mu.Lock()
	if live.session.Status == model.SessionCompleted {
		live.mu.Unlock()
		return nil, fmt.Errorf("%w: session %s already completed", apperr.ErrInvalidInput, sessionID)
	}
	endTime := s.now()
	live.session.Status = model.SessionCompleted
	live.session.IsActive = false
	live.session.EndTime = &endTime
	live.cancel()
	snapshot := live.session
	live.mu.Unlock()

	if err := s.store.UpdateStatus(ctx, sessionID, model.SessionCompleted, false, &endTime); err != nil {
		return nil, fmt.Errorf("failed to update session status: %w", err)
	}

	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	s.logger.Info("monitoring session stopped",
		zap.String("session_id", sessionID),
		zap.String("user_id", snapshot.UserID),
	)

	return &snapshot, nil
}

// PauseSession suspends ingestion without tearing down live state
func (s *MonitoringService) PauseSession(ctx context.Context, sessionID string) error {
	return s.transition(ctx, sessionID, model.SessionActive, model.SessionPaused)
}

// ResumeSession re-enables ingestion on a paused session
func (s *MonitoringService) ResumeSession(ctx context.Context, sessionID string) error {
	return s.transition(ctx, sessionID, model.SessionPaused, model.SessionActive)
}

func (s *MonitoringService) transition(ctx context.Context, sessionID string, from, to model.SessionStatus) error {
	live, err := s.lookup(sessionID)
	if err != nil {
		return err
	}

	live.mu.Lock()
	if live.session.Status != from {
		status := live.session.Status
		live.mu.Unlock()
		return fmt.Errorf("%w: session %s is %s, expected %s", apperr.ErrInvalidInput, sessionID, status, from)
	}
	live.session.Status = to
	live.mu.Unlock()

	if err := s.store.UpdateStatus(ctx, sessionID, to, to == model.SessionActive, nil); err != nil {
		return fmt.Errorf("failed to update session status: %w", err)
	}

	return nil
}

// GetSession returns the live session when present, falling back to the
// persisted row for completed sessions
func (s *MonitoringService) GetSession(ctx context.Context, sessionID string) (*model.MonitoringSession, error) {
	if live, err := s.lookup(sessionID); err == nil {
		live.mu.Lock()
		snapshot := live.session
		live.mu.Unlock()
		return &snapshot, nil
	}

	session, err := s.store.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// Dashboard is a point-in-time composition of a user's live monitoring
// state: active sessions, the newest samples across them, unacknowledged
// alerts and summary counts
type Dashboard struct {
	ActiveSessions []model.MonitoringSession `json:"active_sessions"`
	RecentMetrics  []model.RealTimeMetric    `json:"recent_metrics"`
	ActiveAlerts   []model.Alert             `json:"active_alerts"`

	SessionCount       int        `json:"session_count"`
	TotalDevices       int        `json:"total_devices"`
	ActiveDevices      int        `json:"active_devices"`
	MetricCount        int        `json:"metric_count"`
	AlertCount         int        `json:"alert_count"`
	CriticalAlertCount int        `json:"critical_alert_count"`
	LastSync           *time.Time `json:"last_sync,omitempty"`
}

// GetDashboard snapshots the user's live sessions and active alerts
func (s *MonitoringService) GetDashboard(ctx context.Context, userID string) (*Dashboard, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	s.mu.RLock()
	lives := make([]*liveSession, 0, len(s.sessions))
	for _, live := range s.sessions {
		lives = append(lives, live)
	}
	s.mu.RUnlock()

	dashboard := &Dashboard{}
	var metrics []model.RealTimeMetric
	activeDevices := make(map[string]bool)

	for _, live := range lives {
		live.mu.Lock()
		if live.session.UserID != userID {
			live.mu.Unlock()
			continue
		}
		dashboard.ActiveSessions = append(dashboard.ActiveSessions, live.session)
		if live.session.Status == model.SessionActive {
			activeDevices[live.session.DeviceID] = true
		}
		metrics = append(metrics, live.ring.snapshot()...)
		if dashboard.LastSync == nil || live.lastSync.After(*dashboard.LastSync) {
			sync := live.lastSync
			dashboard.LastSync = &sync
		}
		live.mu.Unlock()
	}

	sort.Slice(metrics, func(i, j int) bool {
		return metrics[i].Timestamp.After(metrics[j].Timestamp)
	})
	dashboard.MetricCount = len(metrics)
	if len(metrics) > s.cfg.DashboardMetricLimit {
		metrics = metrics[:s.cfg.DashboardMetricLimit]
	}
	dashboard.RecentMetrics = metrics
	dashboard.SessionCount = len(dashboard.ActiveSessions)
	dashboard.ActiveDevices = len(activeDevices)

	// Total devices counts every device the user has ever paired a session
	// with, completed sessions included.
	rows, err := s.store.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	allDevices := make(map[string]bool, len(rows))
	for _, row := range rows {
		allDevices[row.DeviceID] = true
	}
	dashboard.TotalDevices = len(allDevices)

	alerts, err := s.dispatcher.GetActiveAlerts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active alerts: %w", err)
	}
	dashboard.ActiveAlerts = alerts
	dashboard.AlertCount = len(alerts)
	for _, a := range alerts {
		if a.Severity == model.SeverityCritical {
			dashboard.CriticalAlertCount++
		}
	}

	sort.Slice(dashboard.ActiveSessions, func(i, j int) bool {
		return dashboard.ActiveSessions[i].StartTime.After(dashboard.ActiveSessions[j].StartTime)
	})

	return dashboard, nil
}

// Shutdown cancels every live session's housekeeping goroutine. Session rows
// stay as-reported; lifecycle completion is a caller decision, not a process
// exit side effect.
func (s *MonitoringService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, live := range s.sessions {
		live.cancel()
	}
}

func (s *MonitoringService) lookup(sessionID string) (*liveSession, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID is required")
	}

	s.mu.RLock()
	live, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: session %s", apperr.ErrNotFound, sessionID)
	}
	return live, nil
}
