package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/vitalsync/analytics/pkg/model"
)

// Mock implementations shared by the service tests

type MockMetricReader struct {
	mock.Mock
}

func (m *MockMetricReader) QueryRange(ctx context.Context, userID string, metricType model.MetricType, from, to time.Time) ([]model.Metric, error) {
	args := m.Called(ctx, userID, metricType, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Metric), args.Error(1)
}

type MockMetricWriter struct {
	mock.Mock
}

func (m *MockMetricWriter) Append(ctx context.Context, metric *model.Metric) error {
	args := m.Called(ctx, metric)
	return args.Error(0)
}

func (m *MockMetricWriter) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type MockScoreStore struct {
	mock.Mock
}

func (m *MockScoreStore) UpsertAll(ctx context.Context, scores []model.HealthScore) error {
	args := m.Called(ctx, scores)
	return args.Error(0)
}

func (m *MockScoreStore) GetByUserAndRange(ctx context.Context, userID string, from, to time.Time) ([]model.HealthScore, error) {
	args := m.Called(ctx, userID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.HealthScore), args.Error(1)
}

type MockPredictionStore struct {
	mock.Mock
}

func (m *MockPredictionStore) InsertSuperseding(ctx context.Context, p *model.Prediction) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPredictionStore) GetByUser(ctx context.Context, userID string, predictionType model.PredictionType, activeOnly bool) ([]model.Prediction, error) {
	args := m.Called(ctx, userID, predictionType, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Prediction), args.Error(1)
}

type MockGoalStore struct {
	mock.Mock
}

func (m *MockGoalStore) Create(ctx context.Context, g *model.HealthGoal) error {
	args := m.Called(ctx, g)
	return args.Error(0)
}

func (m *MockGoalStore) Update(ctx context.Context, g *model.HealthGoal) error {
	args := m.Called(ctx, g)
	return args.Error(0)
}

func (m *MockGoalStore) Delete(ctx context.Context, goalID string) error {
	args := m.Called(ctx, goalID)
	return args.Error(0)
}

func (m *MockGoalStore) FindByID(ctx context.Context, goalID string) (*model.HealthGoal, error) {
	args := m.Called(ctx, goalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.HealthGoal), args.Error(1)
}

func (m *MockGoalStore) FindByUserID(ctx context.Context, userID string) ([]model.HealthGoal, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.HealthGoal), args.Error(1)
}

func (m *MockGoalStore) FindActiveByUserID(ctx context.Context, userID string) ([]model.HealthGoal, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.HealthGoal), args.Error(1)
}

type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Save(ctx context.Context, s *model.MonitoringSession) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSessionStore) UpdateStatus(ctx context.Context, sessionID string, status model.SessionStatus, isActive bool, endTime *time.Time) error {
	args := m.Called(ctx, sessionID, status, isActive, endTime)
	return args.Error(0)
}

func (m *MockSessionStore) GetByID(ctx context.Context, sessionID string) (*model.MonitoringSession, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MonitoringSession), args.Error(1)
}

func (m *MockSessionStore) GetByUserID(ctx context.Context, userID string) ([]model.MonitoringSession, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.MonitoringSession), args.Error(1)
}

type MockAlertDispatcher struct {
	mock.Mock
}

func (m *MockAlertDispatcher) Dispatch(ctx context.Context, a *model.Alert) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockAlertDispatcher) GetActiveAlerts(ctx context.Context, userID string) ([]model.Alert, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Alert), args.Error(1)
}

type MockAlertStore struct {
	mock.Mock
}

func (m *MockAlertStore) Insert(ctx context.Context, a *model.Alert) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockAlertStore) GetActiveByUserID(ctx context.Context, userID string) ([]model.Alert, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Alert), args.Error(1)
}

func (m *MockAlertStore) GetByUserID(ctx context.Context, userID string) ([]model.Alert, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Alert), args.Error(1)
}

func (m *MockAlertStore) Acknowledge(ctx context.Context, alertID string) error {
	args := m.Called(ctx, alertID)
	return args.Error(0)
}

func (m *MockAlertStore) GetByID(ctx context.Context, alertID string) (*model.Alert, error) {
	args := m.Called(ctx, alertID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Alert), args.Error(1)
}

func (m *MockAlertStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type MockPatternStore struct {
	mock.Mock
}

func (m *MockPatternStore) Upsert(ctx context.Context, p *model.PatternAnalysis) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPatternStore) GetByUser(ctx context.Context, userID string, patternType model.PatternType) ([]model.PatternAnalysis, error) {
	args := m.Called(ctx, userID, patternType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PatternAnalysis), args.Error(1)
}

type MockReportStore struct {
	mock.Mock
}

func (m *MockReportStore) Save(ctx context.Context, report *model.HealthReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockReportStore) GetByID(ctx context.Context, reportID string) (*model.HealthReport, error) {
	args := m.Called(ctx, reportID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.HealthReport), args.Error(1)
}

func (m *MockReportStore) GetByUserID(ctx context.Context, userID string) ([]model.HealthReport, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.HealthReport), args.Error(1)
}

type MockScoreCalculator struct {
	mock.Mock
}

func (m *MockScoreCalculator) CalculateHealthScores(ctx context.Context, userID string, date time.Time, flags ScoreFlags) (*ScoreSet, error) {
	args := m.Called(ctx, userID, date, flags)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ScoreSet), args.Error(1)
}

type MockPredictionReader struct {
	mock.Mock
}

func (m *MockPredictionReader) GetPredictions(ctx context.Context, userID string, predictionType model.PredictionType, activeOnly bool) ([]model.Prediction, error) {
	args := m.Called(ctx, userID, predictionType, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Prediction), args.Error(1)
}

type MockPatternReader struct {
	mock.Mock
}

func (m *MockPatternReader) GetAnalyses(ctx context.Context, userID string, patternType model.PatternType) ([]model.PatternAnalysis, error) {
	args := m.Called(ctx, userID, patternType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PatternAnalysis), args.Error(1)
}

type MockReportRenderer struct {
	mock.Mock
}

func (m *MockReportRenderer) RenderReport(report *model.HealthReport) ([]byte, error) {
	args := m.Called(report)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
