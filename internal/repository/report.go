package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vitalsync/analytics/internal/apperr"
	"github.com/vitalsync/analytics/pkg/model"
	"go.uber.org/zap"
)

// ReportRepository persists write-once report snapshots
type ReportRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewReportRepository creates a new ReportRepository
func NewReportRepository(db *pgxpool.Pool, logger *zap.Logger) *ReportRepository {
	return &ReportRepository{
		db:     db,
		logger: logger,
	}
}

// Save stores a report snapshot. Reports are never updated after creation.
func (r *ReportRepository) Save(ctx context.Context, report *model.HealthReport) error {
	data, err := json.Marshal(report.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal report data: %w", err)
	}

	query := `
		INSERT INTO health_reports (
			id, user_id, report_type, period_start, period_end,
			data, access_level, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`

	_, err = r.db.Exec(ctx, query,
		report.ID,
		report.UserID,
		report.ReportType,
		report.PeriodStart,
		report.PeriodEnd,
		data,
		report.AccessLevel,
	)

	if err != nil {
		r.logger.Error("failed to save report",
			zap.Error(err),
			zap.String("user_id", report.UserID),
		)
		return fmt.Errorf("failed to save report: %w", err)
	}

	return nil
}

// GetByID retrieves one report snapshot
func (r *ReportRepository) GetByID(ctx context.Context, reportID string) (*model.HealthReport, error) {
	query := `
		SELECT
			id, user_id, report_type, period_start, period_end,
			data, access_level, created_at
		FROM health_reports
		WHERE id = $1
	`

	var report model.HealthReport
	var data []byte
	err := r.db.QueryRow(ctx, query, reportID).Scan(
		&report.ID,
		&report.UserID,
		&report.ReportType,
		&report.PeriodStart,
		&report.PeriodEnd,
		&data,
		&report.AccessLevel,
		&report.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("report %s: %w", reportID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, &report.Data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal report data: %w", err)
		}
	}

	return &report, nil
}

// GetByUserID retrieves all report snapshots for a user, newest first
func (r *ReportRepository) GetByUserID(ctx context.Context, userID string) ([]model.HealthReport, error) {
	query := `
		SELECT
			id, user_id, report_type, period_start, period_end,
			data, access_level, created_at
		FROM health_reports
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("failed to get reports", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("failed to get reports: %w", err)
	}
	defer rows.Close()

	var reports []model.HealthReport
	for rows.Next() {
		var report model.HealthReport
		var data []byte
		err := rows.Scan(
			&report.ID,
			&report.UserID,
			&report.ReportType,
			&report.PeriodStart,
			&report.PeriodEnd,
			&data,
			&report.AccessLevel,
			&report.CreatedAt,
		)
		if err != nil {
			r.logger.Error("failed to scan report", zap.Error(err))
			continue
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &report.Data); err != nil {
				r.logger.Error("failed to unmarshal report data", zap.Error(err))
			}
		}
		reports = append(reports, report)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating reports", zap.Error(err))
		return nil, fmt.Errorf("error iterating reports: %w", err)
	}

	return reports, nil
}
