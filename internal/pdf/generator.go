package pdf

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/vitalsync/analytics/pkg/model"
	"go.uber.org/zap"
)

// PDFGenerator renders health reports and data exports as A4 documents
type PDFGenerator struct {
	logger *zap.Logger
}

// NewPDFGenerator creates a new PDFGenerator
func NewPDFGenerator(logger *zap.Logger) *PDFGenerator {
	return &PDFGenerator{
		logger: logger,
	}
}

// RenderReport creates a PDF from a stored health report
func (g *PDFGenerator) RenderReport(report *model.HealthReport) ([]byte, error) {
	g.logger.Info("generating report PDF",
		zap.String("report_id", report.ID),
		zap.String("report_type", report.ReportType),
	)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	dateRange := fmt.Sprintf("%s to %s",
		report.PeriodStart.Format("2006-01-02"),
		report.PeriodEnd.Format("2006-01-02"))
	g.addTitle(pdf, "Health Report", report.UserID, dateRange)

	g.addScores(pdf, report.Data.Scores, report.Data.Trends)
	g.addSummary(pdf, report.Data.Summary)
	g.addPatterns(pdf, report.Data.Patterns)
	g.addPredictions(pdf, report.Data.Predictions)
	g.addList(pdf, "Achievements", report.Data.Achievements, "No achievements recorded for this period.")
	g.addList(pdf, "Recommendations", report.Data.Recommendations, "No recommendations for this period.")

	return g.output(pdf)
}

// ExportPayload is the flattened user data an export renders
type ExportPayload struct {
	UserID      string
	ExportedAt  time.Time
	Metrics     []model.Metric
	Scores      []model.HealthScore
	Goals       []model.HealthGoal
	Predictions []model.Prediction
	Patterns    []model.PatternAnalysis
	Alerts      []model.Alert
	Reports     []model.HealthReport
}

// RenderExport creates a PDF from a full user data export
func (g *PDFGenerator) RenderExport(payload *ExportPayload) ([]byte, error) {
	g.logger.Info("generating export PDF",
		zap.String("user_id", payload.UserID),
		zap.Int("metrics", len(payload.Metrics)),
	)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	g.addTitle(pdf, "Personal Data Export", payload.UserID,
		payload.ExportedAt.Format("2006-01-02"))

	g.addMetricOverview(pdf, payload.Metrics)
	g.addScoreHistory(pdf, payload.Scores)
	g.addGoals(pdf, payload.Goals)
	g.addPredictions(pdf, payload.Predictions)
	g.addPatterns(pdf, payload.Patterns)
	g.addAlerts(pdf, payload.Alerts)
	g.addReportIndex(pdf, payload.Reports)

	return g.output(pdf)
}

func (g *PDFGenerator) output(pdf *gofpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	err := pdf.Output(&buf)
	if err != nil {
		g.logger.Error("failed to generate PDF", zap.Error(err))
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	g.logger.Info("PDF generated successfully",
		zap.Int("size_bytes", buf.Len()),
	)

	return buf.Bytes(), nil
}

// addTitle adds the document title and header information
func (g *PDFGenerator) addTitle(pdf *gofpdf.Fpdf, title, userID, dateRange string) {
	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 8, fmt.Sprintf("User: %s", userID), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("Period: %s", dateRange), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("Generated: %s", time.Now().Format("2006-01-02 15:04")), "", 1, "L", false, 0, "")
	pdf.Ln(10)
}

// addSectionHeader adds a section header
func (g *PDFGenerator) addSectionHeader(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(0, 10, title, "", 1, "L", true, 0, "")
	pdf.Ln(3)
	pdf.SetFont("Arial", "", 10)
}

func (g *PDFGenerator) addScores(pdf *gofpdf.Fpdf, scores map[string]int, trends map[string]string) {
	g.addSectionHeader(pdf, "Health Scores")

	if len(scores) == 0 {
		pdf.CellFormat(0, 8, "No scores calculated for this period.", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	keys := make([]string, 0, len(scores))
	for k := range scores {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		line := fmt.Sprintf("%s: %d/100", k, scores[k])
		if trend, ok := trends[k]; ok {
			line = fmt.Sprintf("%s (%s)", line, trend)
		}
		pdf.CellFormat(0, 6, line, "", 1, "L", false, 0, "")
	}
	pdf.Ln(5)
}

func (g *PDFGenerator) addSummary(pdf *gofpdf.Fpdf, summary map[string]float64) {
	g.addSectionHeader(pdf, "Period Summary")

	if len(summary) == 0 {
		pdf.CellFormat(0, 8, "No metric data recorded during this period.", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	keys := make([]string, 0, len(summary))
	for k := range summary {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		pdf.CellFormat(0, 6, fmt.Sprintf("%s: %.1f", k, summary[k]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(5)
}

func (g *PDFGenerator) addPatterns(pdf *gofpdf.Fpdf, patterns []model.PatternAnalysis) {
	g.addSectionHeader(pdf, "Pattern Analysis")

	if len(patterns) == 0 {
		pdf.CellFormat(0, 8, "No pattern analyses available.", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	for _, p := range patterns {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 6, fmt.Sprintf("%s (%s)", p.PatternType, p.AnalysisPeriod), "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 5, fmt.Sprintf("  Correlation: %.2f", p.CorrelationScore), "", 1, "L", false, 0, "")
		pdf.CellFormat(0, 5, fmt.Sprintf("  %s", p.Insights.Description), "", 1, "L", false, 0, "")
		for _, finding := range p.Insights.KeyFindings {
			pdf.CellFormat(0, 5, fmt.Sprintf("  - %s", finding), "", 1, "L", false, 0, "")
		}
		pdf.Ln(2)
	}
	pdf.Ln(5)
}

func (g *PDFGenerator) addPredictions(pdf *gofpdf.Fpdf, predictions []model.Prediction) {
	g.addSectionHeader(pdf, "Predictions")

	if len(predictions) == 0 {
		pdf.CellFormat(0, 8, "No active predictions.", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	for _, p := range predictions {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 6, string(p.PredictionType), "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 5, fmt.Sprintf("  Target date: %s", p.TargetDate.Format("2006-01-02")), "", 1, "L", false, 0, "")
		pdf.CellFormat(0, 5, fmt.Sprintf("  Predicted value: %.2f (confidence %.0f%%)", p.PredictedValue, p.ConfidenceScore*100), "", 1, "L", false, 0, "")
		for _, rec := range p.Recommendations {
			pdf.CellFormat(0, 5, fmt.Sprintf("  - %s", rec), "", 1, "L", false, 0, "")
		}
		pdf.Ln(2)
	}
	pdf.Ln(5)
}

func (g *PDFGenerator) addList(pdf *gofpdf.Fpdf, title string, items []string, empty string) {
	g.addSectionHeader(pdf, title)

	if len(items) == 0 {
		pdf.CellFormat(0, 8, empty, "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	for _, item := range items {
		pdf.CellFormat(0, 5, fmt.Sprintf("- %s", item), "", 1, "L", false, 0, "")
	}
	pdf.Ln(5)
}

func (g *PDFGenerator) addMetricOverview(pdf *gofpdf.Fpdf, metrics []model.Metric) {
	g.addSectionHeader(pdf, "Recorded Metrics")

	if len(metrics) == 0 {
		pdf.CellFormat(0, 8, "No metrics recorded.", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	counts := make(map[model.MetricType]int)
	for _, m := range metrics {
		counts[m.MetricType]++
	}

	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, string(t))
	}
	sort.Strings(types)

	pdf.CellFormat(0, 6, fmt.Sprintf("Total samples: %d", len(metrics)), "", 1, "L", false, 0, "")
	for _, t := range types {
		pdf.CellFormat(0, 5, fmt.Sprintf("  %s: %d samples", t, counts[model.MetricType(t)]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(5)
}

func (g *PDFGenerator) addScoreHistory(pdf *gofpdf.Fpdf, scores []model.HealthScore) {
	g.addSectionHeader(pdf, "Score History")

	if len(scores) == 0 {
		pdf.CellFormat(0, 8, "No scores on record.", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	maxRows := 30
	if len(scores) < maxRows {
		maxRows = len(scores)
	}

	for i := 0; i < maxRows; i++ {
		s := scores[i]
		pdf.CellFormat(0, 5, fmt.Sprintf("%s  %s: %d (%s)",
			s.CalculationDate.Format("2006-01-02"), s.ScoreType, s.Value, s.Trend), "", 1, "L", false, 0, "")
	}
	pdf.Ln(5)
}

func (g *PDFGenerator) addGoals(pdf *gofpdf.Fpdf, goals []model.HealthGoal) {
	g.addSectionHeader(pdf, "Health Goals")

	if len(goals) == 0 {
		pdf.CellFormat(0, 8, "No goals on record.", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	for _, goal := range goals {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 6, fmt.Sprintf("%s (%s)", goal.GoalType, goal.Status), "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 5, fmt.Sprintf("  Target: %.1f by %s", goal.TargetValue, goal.TargetDate.Format("2006-01-02")), "", 1, "L", false, 0, "")
		pdf.CellFormat(0, 5, fmt.Sprintf("  Progress: %.0f%%", goal.ProgressPercentage), "", 1, "L", false, 0, "")
		pdf.Ln(2)
	}
	pdf.Ln(5)
}

func (g *PDFGenerator) addAlerts(pdf *gofpdf.Fpdf, alerts []model.Alert) {
	g.addSectionHeader(pdf, "Alerts")

	if len(alerts) == 0 {
		pdf.CellFormat(0, 8, "No alerts on record.", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	for _, a := range alerts {
		pdf.CellFormat(0, 5, fmt.Sprintf("%s  [%s] %s",
			a.Timestamp.Format("2006-01-02 15:04"), a.Severity, a.Message), "", 1, "L", false, 0, "")
	}
	pdf.Ln(5)
}

func (g *PDFGenerator) addReportIndex(pdf *gofpdf.Fpdf, reports []model.HealthReport) {
	g.addSectionHeader(pdf, "Generated Reports")

	if len(reports) == 0 {
		pdf.CellFormat(0, 8, "No reports on record.", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	for _, r := range reports {
		pdf.CellFormat(0, 5, fmt.Sprintf("%s  %s (%s to %s)",
			r.CreatedAt.Format("2006-01-02"), r.ReportType,
			r.PeriodStart.Format("2006-01-02"), r.PeriodEnd.Format("2006-01-02")), "", 1, "L", false, 0, "")
	}
	pdf.Ln(5)
}
