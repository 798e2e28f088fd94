package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Analytics  AnalyticsConfig
	Monitoring MonitoringConfig
	Retention  RetentionConfig
	Logging    LoggingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port              string
	Environment       string
	ShutdownTimeout   time.Duration
	SlowRequestWindow time.Duration
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// AnalyticsConfig holds the tunable targets the score engine evaluates
// daily metrics against
type AnalyticsConfig struct {
	CalorieTarget        float64
	ProteinTargetGrams   float64
	ExerciseTargetMin    float64
	BurnTargetKcal       float64
	SleepTargetHours     float64
	HighIntensityRatio   float64
	DeepSleepRatioTarget float64
}

// MonitoringConfig bounds the live monitoring path
type MonitoringConfig struct {
	RingCapacity          int
	DefaultSamplingRateMs int
	AlertRetention        time.Duration
	DashboardMetricLimit  int
}

// RetentionConfig bounds how long raw metrics are kept
type RetentionConfig struct {
	MetricWindow time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json or console
}

// Load reads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// Read from environment variables
	v.AutomaticEnv()

	// Bind specific environment variables
	bindEnvVars(v)

	// Unmarshal into config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.shutdowntimeout", 30*time.Second)
	v.SetDefault("server.slowrequestwindow", 2*time.Second)

	// Database defaults
	v.SetDefault("database.maxopenconns", 25)
	v.SetDefault("database.maxidleconns", 5)
	v.SetDefault("database.connmaxlifetime", 5*time.Minute)

	// Analytics defaults
	v.SetDefault("analytics.calorietarget", 2000.0)
	v.SetDefault("analytics.proteintargetgrams", 60.0)
	v.SetDefault("analytics.exercisetargetmin", 30.0)
	v.SetDefault("analytics.burntargetkcal", 400.0)
	v.SetDefault("analytics.sleeptargethours", 8.0)
	v.SetDefault("analytics.highintensityratio", 0.2)
	v.SetDefault("analytics.deepsleepratiotarget", 0.2)

	// Monitoring defaults
	v.SetDefault("monitoring.ringcapacity", 1000)
	v.SetDefault("monitoring.defaultsamplingratems", 1000)
	v.SetDefault("monitoring.alertretention", 24*time.Hour)
	v.SetDefault("monitoring.dashboardmetriclimit", 50)

	// Retention defaults
	v.SetDefault("retention.metricwindow", 365*24*time.Hour)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// bindEnvVars binds environment variables to config keys
func bindEnvVars(v *viper.Viper) {
	// Server
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.environment", "ENV", "ENVIRONMENT")

	// Database
	v.BindEnv("database.url", "DATABASE_URL")

	// Monitoring
	v.BindEnv("monitoring.ringcapacity", "MONITORING_RING_CAPACITY")
	v.BindEnv("monitoring.defaultsamplingratems", "MONITORING_SAMPLING_RATE_MS")
	v.BindEnv("monitoring.alertretention", "MONITORING_ALERT_RETENTION")

	// Retention
	v.BindEnv("retention.metricwindow", "METRIC_RETENTION_WINDOW")

	// Logging
	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("logging.format", "LOG_FORMAT")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate required fields
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}

	if c.Monitoring.RingCapacity <= 0 {
		return fmt.Errorf("monitoring.ringcapacity must be positive")
	}

	if c.Monitoring.DefaultSamplingRateMs <= 0 {
		return fmt.Errorf("monitoring.defaultsamplingratems must be positive")
	}

	if c.Monitoring.AlertRetention <= 0 {
		return fmt.Errorf("monitoring.alertretention must be positive")
	}

	return nil
}
