package model

import "time"

// MetricType identifies the kind of health measurement a Metric carries
type MetricType string

const (
	MetricHeartRate            MetricType = "heart_rate"
	MetricSteps                MetricType = "steps"
	MetricSleepDuration        MetricType = "sleep_duration"
	MetricSleepQuality         MetricType = "sleep_quality"
	MetricDeepSleepMinutes     MetricType = "deep_sleep_minutes"
	MetricWeight               MetricType = "weight"
	MetricBloodPressure        MetricType = "blood_pressure"
	MetricBloodOxygen          MetricType = "blood_oxygen"
	MetricStressLevel          MetricType = "stress_level"
	MetricActivityLevel        MetricType = "activity_level"
	MetricCaloriesConsumed     MetricType = "calories_consumed"
	MetricCaloriesBurned       MetricType = "calories_burned"
	MetricProtein              MetricType = "protein_grams"
	MetricCarbs                MetricType = "carb_grams"
	MetricFat                  MetricType = "fat_grams"
	MetricFoodDiversity        MetricType = "food_diversity"
	MetricExerciseMinutes      MetricType = "exercise_minutes"
	MetricHighIntensityMinutes MetricType = "high_intensity_minutes"
)

// ValidMetricTypes is the set of metric types the store accepts
var ValidMetricTypes = map[MetricType]bool{
	MetricHeartRate:            true,
	MetricSteps:                true,
	MetricSleepDuration:        true,
	MetricSleepQuality:         true,
	MetricDeepSleepMinutes:     true,
	MetricWeight:               true,
	MetricBloodPressure:        true,
	MetricBloodOxygen:          true,
	MetricStressLevel:          true,
	MetricActivityLevel:        true,
	MetricCaloriesConsumed:     true,
	MetricCaloriesBurned:       true,
	MetricProtein:              true,
	MetricCarbs:                true,
	MetricFat:                  true,
	MetricFoodDiversity:        true,
	MetricExerciseMinutes:      true,
	MetricHighIntensityMinutes: true,
}

// MetricSource indicates how a metric was recorded
type MetricSource string

const (
	SourceManual    MetricSource = "manual"
	SourceAutomatic MetricSource = "automatic"
)

// Metric is one timestamped, typed health measurement for a user.
// Metrics are immutable once recorded; they are only appended, and removed
// solely by retention cleanup or an explicit user data erase.
type Metric struct {
	ID         string       `json:"id"`
	UserID     string       `json:"user_id"`
	MetricType MetricType   `json:"metric_type"`
	Value      float64      `json:"value"`
	Unit       string       `json:"unit"`
	Timestamp  time.Time    `json:"timestamp"`
	Source     MetricSource `json:"source"`
	Confidence float64      `json:"confidence"`
	CreatedAt  time.Time    `json:"created_at"`
}

// ScoreType identifies one of the composite health score dimensions
type ScoreType string

const (
	ScoreNutrition   ScoreType = "nutrition"
	ScoreFitness     ScoreType = "fitness"
	ScoreRecovery    ScoreType = "recovery"
	ScoreConsistency ScoreType = "consistency"
	ScoreOverall     ScoreType = "overall"
)

// ScoreTrend describes how a score is moving relative to recent history
type ScoreTrend string

const (
	TrendImproving ScoreTrend = "improving"
	TrendStable    ScoreTrend = "stable"
	TrendDeclining ScoreTrend = "declining"
)

// HealthScore is one composite score for (user, type, date). Recomputation
// upserts the existing row; there is at most one row per day per type.
type HealthScore struct {
	ID              string             `json:"id"`
	UserID          string             `json:"user_id"`
	ScoreType       ScoreType          `json:"score_type"`
	Value           int                `json:"value"`
	CalculationDate time.Time          `json:"calculation_date"`
	Details         map[string]float64 `json:"details,omitempty"`
	Trend           ScoreTrend         `json:"trend"`
	Confidence      float64            `json:"confidence"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// PredictionType identifies the kind of forward-looking estimate
type PredictionType string

const (
	PredictionWeightProjection        PredictionType = "weight_projection"
	PredictionGoalAchievement         PredictionType = "goal_achievement"
	PredictionHealthRisk              PredictionType = "health_risk"
	PredictionPerformanceOptimization PredictionType = "performance_optimization"
)

// Prediction is one persisted projection. Newer predictions of the same type
// supersede older ones: generating a prediction flips prior same-type rows to
// is_active=false in the same transaction.
type Prediction struct {
	ID              string         `json:"id"`
	UserID          string         `json:"user_id"`
	PredictionType  PredictionType `json:"prediction_type"`
	TargetDate      time.Time      `json:"target_date"`
	PredictedValue  float64        `json:"predicted_value"`
	ConfidenceScore float64        `json:"confidence_score"`
	ModelVersion    string         `json:"model_version"`
	InputSummary    string         `json:"input_summary"`
	Recommendations []string       `json:"recommendations,omitempty"`
	IsActive        bool           `json:"is_active"`
	CreatedAt       time.Time      `json:"created_at"`
}

// GoalStatus is the lifecycle state of a HealthGoal
type GoalStatus string

const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
	GoalPaused    GoalStatus = "paused"
	GoalCancelled GoalStatus = "cancelled"
)

// Milestone is one checkpoint within a goal
type Milestone struct {
	Target     float64    `json:"target"`
	Achieved   bool       `json:"achieved"`
	AchievedAt *time.Time `json:"achieved_at,omitempty"`
}

// HealthGoal is a user-defined target tracked against metric history
type HealthGoal struct {
	ID                     string      `json:"id"`
	UserID                 string      `json:"user_id"`
	GoalType               string      `json:"goal_type"`
	TargetValue            float64     `json:"target_value"`
	CurrentValue           float64     `json:"current_value"`
	TargetDate             time.Time   `json:"target_date"`
	DeadlineDate           *time.Time  `json:"deadline_date,omitempty"`
	Priority               int         `json:"priority"`
	ProgressPercentage     float64     `json:"progress_percentage"`
	AchievementProbability float64     `json:"achievement_probability"`
	Status                 GoalStatus  `json:"status"`
	Milestones             []Milestone `json:"milestones,omitempty"`
	CreatedAt              time.Time   `json:"created_at"`
	UpdatedAt              time.Time   `json:"updated_at"`
}

// SessionStatus is the lifecycle state of a monitoring session
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionPaused    SessionStatus = "paused"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
)

// Threshold is a min/max band for one metric type; either bound may be unset
type Threshold struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// RealTimeMetric is one live sample inside a monitoring session
type RealTimeMetric struct {
	MetricType MetricType `json:"metric_type"`
	Value      float64    `json:"value"`
	Unit       string     `json:"unit"`
	Quality    string     `json:"quality"`
	Confidence float64    `json:"confidence"`
	Timestamp  time.Time  `json:"timestamp"`
}

// MonitoringSession is the persisted record of a live ingestion session.
// The bounded in-memory ring of recent samples lives in the monitoring
// service; this row carries identity, configuration and lifecycle.
type MonitoringSession struct {
	ID              string                   `json:"id"`
	UserID          string                   `json:"user_id"`
	DeviceID        string                   `json:"device_id"`
	StartTime       time.Time                `json:"start_time"`
	EndTime         *time.Time               `json:"end_time,omitempty"`
	IsActive        bool                     `json:"is_active"`
	Status          SessionStatus            `json:"status"`
	SamplingRateMs  int                      `json:"sampling_rate_ms"`
	AlertThresholds map[MetricType]Threshold `json:"alert_thresholds,omitempty"`
	EnabledMetrics  []MetricType             `json:"enabled_metrics,omitempty"`
	CreatedAt       time.Time                `json:"created_at"`
}

// AlertType is the presentation class of an alert
type AlertType string

const (
	AlertCritical AlertType = "critical"
	AlertWarning  AlertType = "warning"
	AlertInfo     AlertType = "info"
	AlertSuccess  AlertType = "success"
)

// AlertCategory groups alerts by origin
type AlertCategory string

const (
	CategoryHealth AlertCategory = "health"
	CategoryDevice AlertCategory = "device"
	CategorySync   AlertCategory = "sync"
	CategorySystem AlertCategory = "system"
)

// AlertSeverity ranks how urgent an alert is
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// Alert is emitted when a live sample crosses a configured threshold.
// Alerts outlive their session; acknowledgement is the only mutation.
type Alert struct {
	ID           string        `json:"id"`
	UserID       string        `json:"user_id"`
	SessionID    string        `json:"session_id"`
	DeviceID     *string       `json:"device_id,omitempty"`
	Type         AlertType     `json:"type"`
	Category     AlertCategory `json:"category"`
	Severity     AlertSeverity `json:"severity"`
	MetricType   *MetricType   `json:"metric_type,omitempty"`
	Value        *float64      `json:"value,omitempty"`
	Threshold    *float64      `json:"threshold,omitempty"`
	Message      string        `json:"message"`
	Timestamp    time.Time     `json:"timestamp"`
	Acknowledged bool          `json:"acknowledged"`
	Read         bool          `json:"read"`
}

// PatternType identifies which metric pair a pattern analysis relates
type PatternType string

const (
	PatternSleepActivity   PatternType = "sleep_activity"
	PatternNutritionEnergy PatternType = "nutrition_energy"
	PatternStressRecovery  PatternType = "stress_recovery"
	PatternWeightSteps     PatternType = "weight_steps"
)

// PatternInsights is the qualitative summary attached to an analysis
type PatternInsights struct {
	Description string   `json:"description"`
	KeyFindings []string `json:"key_findings,omitempty"`
	Trend       string   `json:"trend"`
}

// PatternAnalysis is one persisted correlation summary, keyed by
// (user, pattern type, period). Correlation is a signed Pearson
// coefficient in [-1, 1].
type PatternAnalysis struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	PatternType      PatternType     `json:"pattern_type"`
	AnalysisPeriod   string          `json:"analysis_period"`
	CorrelationScore float64         `json:"correlation_score"`
	Insights         PatternInsights `json:"insights"`
	Recommendations  []string        `json:"recommendations,omitempty"`
	PeriodStart      time.Time       `json:"period_start"`
	PeriodEnd        time.Time       `json:"period_end"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// ReportData is the assembled payload of a health report
type ReportData struct {
	Summary         map[string]float64 `json:"summary"`
	Trends          map[string]string  `json:"trends"`
	Achievements    []string           `json:"achievements,omitempty"`
	Recommendations []string           `json:"recommendations,omitempty"`
	Scores          map[string]int     `json:"scores,omitempty"`
	Patterns        []PatternAnalysis  `json:"patterns,omitempty"`
	Predictions     []Prediction       `json:"predictions,omitempty"`
}

// HealthReport is a write-once snapshot assembled for a requested period
type HealthReport struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	ReportType  string     `json:"report_type"`
	PeriodStart time.Time  `json:"period_start"`
	PeriodEnd   time.Time  `json:"period_end"`
	Data        ReportData `json:"data"`
	AccessLevel string     `json:"access_level"`
	CreatedAt   time.Time  `json:"created_at"`
}
