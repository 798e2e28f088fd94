package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/vitalsync/analytics/pkg/model"
	"go.uber.org/zap"
)

func newAlertFixture(retention time.Duration) (*AlertService, *MockAlertStore, time.Time) {
	store := new(MockAlertStore)

	svc := NewAlertService(store, retention, zap.NewNop())
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	return svc, store, now
}

func TestDispatch_ValidationErrors(t *testing.T) {
	svc, store, _ := newAlertFixture(time.Hour)
	ctx := context.Background()

	tests := []struct {
		name        string
		alert       *model.Alert
		expectedErr string
	}{
		{
			name:        "empty user ID",
			alert:       &model.Alert{Message: "heart rate spike"},
			expectedErr: "user ID is required",
		},
		{
			name:        "empty message",
			alert:       &model.Alert{UserID: "user-1"},
			expectedErr: "alert message is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Dispatch(ctx, tt.alert)
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}
	store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestDispatch_AssignsIdentityAndTimestamp(t *testing.T) {
	svc, store, now := newAlertFixture(time.Hour)
	store.On("Insert", mock.Anything, mock.Anything).Return(nil)

	alert := &model.Alert{
		UserID:   "user-1",
		Severity: model.SeverityHigh,
		Category: model.CategoryHealth,
		Message:  "heart rate spike",
	}

	err := svc.Dispatch(context.Background(), alert)

	assert.NoError(t, err)
	assert.NotEmpty(t, alert.ID)
	assert.Equal(t, now, alert.Timestamp)
}

func TestDispatch_KeepsExplicitTimestamp(t *testing.T) {
	svc, store, now := newAlertFixture(time.Hour)
	store.On("Insert", mock.Anything, mock.Anything).Return(nil)

	sampled := now.Add(-5 * time.Minute)
	alert := &model.Alert{
		UserID:    "user-1",
		Message:   "heart rate spike",
		Timestamp: sampled,
	}

	err := svc.Dispatch(context.Background(), alert)

	assert.NoError(t, err)
	assert.Equal(t, sampled, alert.Timestamp)
}

func TestAcknowledgeAlert_EmptyID(t *testing.T) {
	svc, store, _ := newAlertFixture(time.Hour)

	err := svc.AcknowledgeAlert(context.Background(), "")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "alert ID is required")
	store.AssertNotCalled(t, "Acknowledge", mock.Anything, mock.Anything)
}

func TestPurgeExpired_UsesRetentionCutoff(t *testing.T) {
	svc, store, now := newAlertFixture(24 * time.Hour)

	var cutoff time.Time
	store.On("DeleteExpired", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			cutoff = args.Get(1).(time.Time)
		}).
		Return(int64(5), nil)

	removed, err := svc.PurgeExpired(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, int64(5), removed)
	assert.Equal(t, now.Add(-24*time.Hour), cutoff)
}

func TestGetActiveAlerts_EmptyUserID(t *testing.T) {
	svc, _, _ := newAlertFixture(time.Hour)

	alerts, err := svc.GetActiveAlerts(context.Background(), "")

	assert.Error(t, err)
	assert.Nil(t, alerts)
}
