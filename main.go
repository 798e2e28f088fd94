package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/vitalsync/analytics/internal/audit"
	"github.com/vitalsync/analytics/internal/config"
	"github.com/vitalsync/analytics/internal/handler"
	"github.com/vitalsync/analytics/internal/middleware"
	"github.com/vitalsync/analytics/internal/pdf"
	"github.com/vitalsync/analytics/internal/repository"
	"github.com/vitalsync/analytics/internal/service"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize Zap logger
	var logger *zap.Logger
	if cfg.Server.Environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded successfully",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
	)

	// Initialize database connection pool with pgx
	pool, err := pgxpool.New(context.Background(), cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	// Test database connection
	if err := pool.Ping(context.Background()); err != nil {
		logger.Fatal("Failed to ping database", zap.Error(err))
	}
	logger.Info("Successfully connected to database")

	// Initialize repositories
	metricRepo := repository.NewMetricRepository(pool, logger)
	scoreRepo := repository.NewScoreRepository(pool, logger)
	predictionRepo := repository.NewPredictionRepository(pool, logger)
	patternRepo := repository.NewPatternRepository(pool, logger)
	goalRepo := repository.NewGoalRepository(pool, logger)
	sessionRepo := repository.NewSessionRepository(pool, logger)
	alertRepo := repository.NewAlertRepository(pool, logger)
	reportRepo := repository.NewReportRepository(pool, logger)

	// Initialize audit logger and PDF generator
	auditLogger := audit.NewLogger(pool, logger)
	pdfGenerator := pdf.NewPDFGenerator(logger)

	// Initialize services
	metricService := service.NewMetricService(metricRepo, metricRepo, cfg.Retention.MetricWindow, logger)
	scoreService := service.NewScoreService(metricRepo, scoreRepo, cfg.Analytics, logger)
	predictionService := service.NewPredictionService(metricRepo, predictionRepo, goalRepo, logger)
	patternService := service.NewPatternService(metricRepo, patternRepo, logger)
	goalService := service.NewGoalService(goalRepo, metricRepo, logger)
	alertService := service.NewAlertService(alertRepo, cfg.Monitoring.AlertRetention, logger)
	monitoringService := service.NewMonitoringService(sessionRepo, alertService, cfg.Monitoring, logger)
	reportService := service.NewReportService(
		reportRepo,
		scoreService,
		predictionService,
		patternService,
		metricRepo,
		pdfGenerator,
		logger,
	)
	exportService := service.NewExportService(
		pool,
		metricRepo,
		scoreRepo,
		goalRepo,
		predictionService,
		patternService,
		alertRepo,
		reportRepo,
		pdfGenerator,
		auditLogger,
		logger,
	)

	// Initialize handlers
	analyticsHandler := handler.NewAnalyticsHandler(metricService, scoreService, predictionService, patternService, logger)
	monitoringHandler := handler.NewMonitoringHandler(monitoringService, alertService, logger)
	goalHandler := handler.NewGoalHandler(goalService, logger)
	reportHandler := handler.NewReportHandler(reportService, exportService, logger)
	healthHandler := handler.NewHealthHandler(pool, logger)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize Gin router
	r := gin.New()

	// Add recovery middleware (must be first)
	r.Use(middleware.RecoveryMiddleware(logger))

	// Add CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"}, // Configure appropriately for production
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Add request ID middleware
	r.Use(middleware.RequestIDMiddleware())

	// Add request logging middleware
	r.Use(middleware.RequestLoggingMiddleware(logger))

	// Add error logging middleware
	r.Use(middleware.ErrorLoggingMiddleware(logger))

	// Warn about requests exceeding the slow-request window
	r.Use(middleware.SlowRequestLoggingMiddleware(logger, cfg.Server.SlowRequestWindow))

	// Register routes
	r.GET("/health", healthHandler.Check)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/metrics", analyticsHandler.RecordMetric)
		v1.GET("/metrics", analyticsHandler.GetMetrics)

		analytics := v1.Group("/analytics")
		{
			analytics.POST("/scores/calculate", analyticsHandler.CalculateHealthScores)
			analytics.GET("/scores", analyticsHandler.GetHealthScores)
			analytics.POST("/predictions/generate", analyticsHandler.GeneratePrediction)
			analytics.GET("/predictions", analyticsHandler.GetPredictions)
			analytics.POST("/patterns/analyze", analyticsHandler.AnalyzePatterns)
			analytics.GET("/patterns", analyticsHandler.GetPatternAnalysis)
		}

		monitoring := v1.Group("/monitoring")
		{
			monitoring.POST("/sessions", monitoringHandler.CreateSession)
			monitoring.POST("/sessions/:id/stop", monitoringHandler.StopSession)
			monitoring.POST("/sessions/:id/pause", monitoringHandler.PauseSession)
			monitoring.POST("/sessions/:id/resume", monitoringHandler.ResumeSession)
			monitoring.POST("/sessions/:id/data", monitoringHandler.RecordData)
			monitoring.GET("/alerts", monitoringHandler.GetAlerts)
			monitoring.POST("/alerts/:id/acknowledge", monitoringHandler.AcknowledgeAlert)
			monitoring.GET("/dashboard", monitoringHandler.GetDashboard)
		}

		goals := v1.Group("/goals")
		{
			goals.POST("", goalHandler.CreateGoal)
			goals.GET("", goalHandler.ListGoals)
			goals.PUT("/:id", goalHandler.UpdateGoal)
			goals.DELETE("/:id", goalHandler.DeleteGoal)
			goals.POST("/:id/recompute", goalHandler.RecomputeProgress)
		}

		reports := v1.Group("/reports")
		{
			reports.POST("/generate", reportHandler.GenerateReport)
			reports.GET("/:id", reportHandler.GetReport)
			reports.GET("/:id/pdf", reportHandler.GetReportPDF)
		}

		v1.GET("/export", reportHandler.ExportUserData)
		v1.DELETE("/users/:id/data", reportHandler.EraseUserData)
	}

	// Background retention cleanup
	cleanupCtx, cancelCleanup := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-cleanupCtx.Done():
				return
			case <-ticker.C:
				if _, err := metricService.CleanupExpired(cleanupCtx); err != nil {
					logger.Error("metric retention cleanup failed", zap.Error(err))
				}
				if _, err := alertService.PurgeExpired(cleanupCtx); err != nil {
					logger.Error("alert retention cleanup failed", zap.Error(err))
				}
			}
		}
	}()

	// Start server with graceful shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Stop background work before the HTTP listener drains
	cancelCleanup()
	monitoringService.Shutdown()

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// Close database connections
	pool.Close()

	logger.Info("Server exited")
}
