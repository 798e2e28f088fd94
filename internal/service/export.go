package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vitalsync/analytics/internal/apperr"
	"github.com/vitalsync/analytics/internal/audit"
	"github.com/vitalsync/analytics/internal/pdf"
	"github.com/vitalsync/analytics/pkg/model"
	"go.uber.org/zap"
)

// ExportFormat selects the output encoding of a user data export
type ExportFormat string

const (
	FormatJSON ExportFormat = "json"
	FormatCSV  ExportFormat = "csv"
	FormatPDF  ExportFormat = "pdf"
)

// exportEpoch is early enough to cover any stored record
var exportEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// MetricDumper reads a user's full metric history
type MetricDumper interface {
	QueryAllInRange(ctx context.Context, userID string, from, to time.Time) ([]model.Metric, error)
}

// ScoreHistoryReader reads a user's stored scores
type ScoreHistoryReader interface {
	GetByUserAndRange(ctx context.Context, userID string, from, to time.Time) ([]model.HealthScore, error)
}

// AlertHistoryReader reads a user's full alert history
type AlertHistoryReader interface {
	GetByUserID(ctx context.Context, userID string) ([]model.Alert, error)
}

// ReportIndexReader reads a user's stored reports
type ReportIndexReader interface {
	GetByUserID(ctx context.Context, userID string) ([]model.HealthReport, error)
}

// GoalDumper reads a user's goals
type GoalDumper interface {
	FindByUserID(ctx context.Context, userID string) ([]model.HealthGoal, error)
}

// ExportRenderer renders the assembled payload as a document
type ExportRenderer interface {
	RenderExport(payload *pdf.ExportPayload) ([]byte, error)
}

// ExportService handles data portability and the right to erasure. Export
// assembles every record type for a user; erase removes them in one
// transaction and leaves only the audit trail.
type ExportService struct {
	db          *pgxpool.Pool
	metrics     MetricDumper
	scores      ScoreHistoryReader
	goals       GoalDumper
	predictions PredictionReader
	patterns    PatternReader
	alerts      AlertHistoryReader
	reports     ReportIndexReader
	renderer    ExportRenderer
	auditLogger *audit.Logger
	logger      *zap.Logger

	now func() time.Time
}

// NewExportService creates a new ExportService
func NewExportService(
	db *pgxpool.Pool,
	metrics MetricDumper,
	scores ScoreHistoryReader,
	goals GoalDumper,
	predictions PredictionReader,
	patterns PatternReader,
	alerts AlertHistoryReader,
	reports ReportIndexReader,
	renderer ExportRenderer,
	auditLogger *audit.Logger,
	logger *zap.Logger,
) *ExportService {
	return &ExportService{
		db:          db,
		metrics:     metrics,
		scores:      scores,
		goals:       goals,
		predictions: predictions,
		patterns:    patterns,
		alerts:      alerts,
		reports:     reports,
		renderer:    renderer,
		auditLogger: auditLogger,
		logger:      logger,
		now:         time.Now,
	}
}

// ExportUserData assembles all stored records for a user and encodes them in
// the requested format. Returns the payload bytes and its content type.
func (s *ExportService) ExportUserData(ctx context.Context, userID string, format ExportFormat, ipAddress, userAgent string) ([]byte, string, error) {
	if userID == "" {
		return nil, "", fmt.Errorf("user ID is required")
	}

	s.logger.Info("starting user data export",
		zap.String("user_id", userID),
		zap.String("format", string(format)),
	)

	payload, err := s.buildPayload(ctx, userID)
	if err != nil {
		return nil, "", err
	}

	var (
		out         []byte
		contentType string
	)
	switch format {
	case FormatJSON:
		out, err = json.MarshalIndent(payload, "", "  ")
		contentType = "application/json"
	case FormatCSV:
		out, err = encodeCSV(payload)
		contentType = "text/csv"
	case FormatPDF:
		out, err = s.renderer.RenderExport(payload)
		contentType = "application/pdf"
	default:
		return nil, "", fmt.Errorf("%w: unknown export format %q", apperr.ErrInvalidInput, format)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode export: %w", err)
	}

	if err := s.auditLogger.LogExport(ctx, userID, string(format), ipAddress, userAgent); err != nil {
		s.logger.Error("failed to log export audit entry", zap.Error(err))
	}

	s.logger.Info("user data export completed",
		zap.String("user_id", userID),
		zap.Int("metrics", len(payload.Metrics)),
		zap.Int("scores", len(payload.Scores)),
		zap.Int("goals", len(payload.Goals)),
		zap.Int("size_bytes", len(out)),
	)

	return out, contentType, nil
}

// EraseUserData deletes every record for a user in one transaction and
// writes an audit entry. The audit trail itself is retained.
func (s *ExportService) EraseUserData(ctx context.Context, userID, ipAddress, userAgent string) error {
	if userID == "" {
		return fmt.Errorf("user ID is required")
	}

	s.logger.Info("starting user data erase",
		zap.String("user_id", userID),
	)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tables := []string{
		"metrics",
		"health_scores",
		"predictions",
		"health_goals",
		"pattern_analyses",
		"alerts",
		"monitoring_sessions",
		"health_reports",
	}
	for _, table := range tables {
		if _, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE user_id = $1", table), userID); err != nil {
			return fmt.Errorf("failed to delete from %s: %w", table, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	if err := s.auditLogger.LogDelete(ctx, userID, string(audit.ResourceUser), userID, ipAddress, userAgent); err != nil {
		s.logger.Error("failed to log erase audit entry", zap.Error(err))
	}

	s.logger.Info("user data erase completed",
		zap.String("user_id", userID),
	)

	return nil
}

func (s *ExportService) buildPayload(ctx context.Context, userID string) (*pdf.ExportPayload, error) {
	now := s.now()
	payload := &pdf.ExportPayload{
		UserID:     userID,
		ExportedAt: now,
	}

	var err error
	if payload.Metrics, err = s.metrics.QueryAllInRange(ctx, userID, exportEpoch, now); err != nil {
		return nil, fmt.Errorf("failed to read metrics: %w", err)
	}
	if payload.Scores, err = s.scores.GetByUserAndRange(ctx, userID, exportEpoch, now); err != nil {
		return nil, fmt.Errorf("failed to read scores: %w", err)
	}
	if payload.Goals, err = s.goals.FindByUserID(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to read goals: %w", err)
	}
	if payload.Predictions, err = s.predictions.GetPredictions(ctx, userID, "", false); err != nil {
		return nil, fmt.Errorf("failed to read predictions: %w", err)
	}
	if payload.Patterns, err = s.patterns.GetAnalyses(ctx, userID, ""); err != nil {
		return nil, fmt.Errorf("failed to read patterns: %w", err)
	}
	if payload.Alerts, err = s.alerts.GetByUserID(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to read alerts: %w", err)
	}
	if payload.Reports, err = s.reports.GetByUserID(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to read reports: %w", err)
	}

	return payload, nil
}

// encodeCSV writes one titled section per record type. Nested structures are
// JSON-encoded inline so every row stays flat.
func encodeCSV(payload *pdf.ExportPayload) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	section := func(title string, header []string) error {
		if err := w.Write([]string{title}); err != nil {
			return err
		}
		return w.Write(header)
	}

	if err := section("metrics", []string{"id", "metric_type", "value", "unit", "timestamp", "source", "confidence"}); err != nil {
		return nil, err
	}
	for _, m := range payload.Metrics {
		err := w.Write([]string{
			m.ID,
			string(m.MetricType),
			formatFloat(m.Value),
			m.Unit,
			m.Timestamp.Format(time.RFC3339),
			string(m.Source),
			formatFloat(m.Confidence),
		})
		if err != nil {
			return nil, err
		}
	}

	if err := section("health_scores", []string{"id", "score_type", "value", "calculation_date", "trend", "confidence", "details"}); err != nil {
		return nil, err
	}
	for _, sc := range payload.Scores {
		details, err := json.Marshal(sc.Details)
		if err != nil {
			return nil, err
		}
		err = w.Write([]string{
			sc.ID,
			string(sc.ScoreType),
			strconv.Itoa(sc.Value),
			sc.CalculationDate.Format("2006-01-02"),
			string(sc.Trend),
			formatFloat(sc.Confidence),
			string(details),
		})
		if err != nil {
			return nil, err
		}
	}

	if err := section("health_goals", []string{"id", "goal_type", "target_value", "current_value", "target_date", "progress_percentage", "status", "milestones"}); err != nil {
		return nil, err
	}
	for _, g := range payload.Goals {
		milestones, err := json.Marshal(g.Milestones)
		if err != nil {
			return nil, err
		}
		err = w.Write([]string{
			g.ID,
			g.GoalType,
			formatFloat(g.TargetValue),
			formatFloat(g.CurrentValue),
			g.TargetDate.Format("2006-01-02"),
			formatFloat(g.ProgressPercentage),
			string(g.Status),
			string(milestones),
		})
		if err != nil {
			return nil, err
		}
	}

	if err := section("predictions", []string{"id", "prediction_type", "target_date", "predicted_value", "confidence_score", "model_version", "is_active", "recommendations"}); err != nil {
		return nil, err
	}
	for _, p := range payload.Predictions {
		recommendations, err := json.Marshal(p.Recommendations)
		if err != nil {
			return nil, err
		}
		err = w.Write([]string{
			p.ID,
			string(p.PredictionType),
			p.TargetDate.Format("2006-01-02"),
			formatFloat(p.PredictedValue),
			formatFloat(p.ConfidenceScore),
			p.ModelVersion,
			strconv.FormatBool(p.IsActive),
			string(recommendations),
		})
		if err != nil {
			return nil, err
		}
	}

	if err := section("pattern_analyses", []string{"id", "pattern_type", "analysis_period", "correlation_score", "insights", "period_start", "period_end"}); err != nil {
		return nil, err
	}
	for _, p := range payload.Patterns {
		insights, err := json.Marshal(p.Insights)
		if err != nil {
			return nil, err
		}
		err = w.Write([]string{
			p.ID,
			string(p.PatternType),
			p.AnalysisPeriod,
			formatFloat(p.CorrelationScore),
			string(insights),
			p.PeriodStart.Format(time.RFC3339),
			p.PeriodEnd.Format(time.RFC3339),
		})
		if err != nil {
			return nil, err
		}
	}

	if err := section("alerts", []string{"id", "session_id", "type", "category", "severity", "message", "timestamp", "acknowledged"}); err != nil {
		return nil, err
	}
	for _, a := range payload.Alerts {
		err := w.Write([]string{
			a.ID,
			a.SessionID,
			string(a.Type),
			string(a.Category),
			string(a.Severity),
			a.Message,
			a.Timestamp.Format(time.RFC3339),
			strconv.FormatBool(a.Acknowledged),
		})
		if err != nil {
			return nil, err
		}
	}

	if err := section("health_reports", []string{"id", "report_type", "period_start", "period_end", "access_level", "data"}); err != nil {
		return nil, err
	}
	for _, r := range payload.Reports {
		data, err := json.Marshal(r.Data)
		if err != nil {
			return nil, err
		}
		err = w.Write([]string{
			r.ID,
			r.ReportType,
			r.PeriodStart.Format("2006-01-02"),
			r.PeriodEnd.Format("2006-01-02"),
			r.AccessLevel,
			string(data),
		})
		if err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
