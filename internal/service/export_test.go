package service

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/vitalsync/analytics/internal/pdf"
	"github.com/vitalsync/analytics/pkg/model"
)

func TestEncodeCSV_SectionedLayout(t *testing.T) {
	exportedAt := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	payload := &pdf.ExportPayload{
		UserID:     "user-1",
		ExportedAt: exportedAt,
		Metrics: []model.Metric{
			{
				ID:         "m-1",
				MetricType: model.MetricWeight,
				Value:      80.5,
				Unit:       "kg",
				Timestamp:  exportedAt.Add(-time.Hour),
				Source:     model.SourceManual,
				Confidence: 0.9,
			},
		},
		Scores: []model.HealthScore{
			{
				ID:              "s-1",
				ScoreType:       model.ScoreOverall,
				Value:           72,
				CalculationDate: exportedAt,
				Trend:           model.TrendImproving,
				Confidence:      1,
				Details:         map[string]float64{"nutrition_total_calories": 1700},
			},
		},
		Alerts: []model.Alert{
			{
				ID:        "a-1",
				SessionID: "sess-1",
				Type:      model.AlertWarning,
				Category:  model.CategoryHealth,
				Severity:  model.SeverityHigh,
				Message:   `heart_rate reading 120.0, outside "safe" band`,
				Timestamp: exportedAt,
			},
		},
	}

	out, err := encodeCSV(payload)
	assert.NoError(t, err)

	// Every section title survives, including empty sections.
	reader := csv.NewReader(bytes.NewReader(out))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	assert.NoError(t, err)

	var titles []string
	for _, record := range records {
		if len(record) == 1 {
			titles = append(titles, record[0])
		}
	}
	assert.Equal(t, []string{
		"metrics",
		"health_scores",
		"health_goals",
		"predictions",
		"pattern_analyses",
		"alerts",
		"health_reports",
	}, titles)

	// The alert message with a comma and quotes round-trips intact.
	var alertRow []string
	for _, record := range records {
		if len(record) > 0 && record[0] == "a-1" {
			alertRow = record
		}
	}
	assert.NotNil(t, alertRow)
	assert.Equal(t, `heart_rate reading 120.0, outside "safe" band`, alertRow[5])

	// Metric and score rows stay flat with encoded values.
	var metricRow, scoreRow []string
	for _, record := range records {
		switch {
		case len(record) > 0 && record[0] == "m-1":
			metricRow = record
		case len(record) > 0 && record[0] == "s-1":
			scoreRow = record
		}
	}
	assert.Equal(t, "80.5", metricRow[2])
	assert.Equal(t, "manual", metricRow[5])
	assert.Equal(t, "72", scoreRow[2])
	assert.Equal(t, "improving", scoreRow[4])
	// Nested details are JSON inline.
	assert.Contains(t, scoreRow[6], `"nutrition_total_calories":1700`)
}

func TestEncodeCSV_EmptyPayload(t *testing.T) {
	out, err := encodeCSV(&pdf.ExportPayload{UserID: "user-1"})

	assert.NoError(t, err)

	reader := csv.NewReader(bytes.NewReader(out))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	assert.NoError(t, err)

	// Seven section titles and seven header rows, nothing else.
	assert.Len(t, records, 14)
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "80.5", formatFloat(80.5))
	assert.Equal(t, "0", formatFloat(0))
	assert.Equal(t, "0.3", formatFloat(0.3))
	assert.Equal(t, "-12.25", formatFloat(-12.25))
}
