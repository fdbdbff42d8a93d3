// Command server runs the enrollment lifecycle and approval API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	enrollmentapp "github.com/schoolops/enrollment/internal/application/enrollment"
	"github.com/schoolops/enrollment/internal/domain/enrollment"
	"github.com/schoolops/enrollment/internal/infrastructure/auth"
	"github.com/schoolops/enrollment/internal/infrastructure/config"
	"github.com/schoolops/enrollment/internal/infrastructure/event"
	"github.com/schoolops/enrollment/internal/infrastructure/logger"
	"github.com/schoolops/enrollment/internal/infrastructure/persistence"
	"github.com/schoolops/enrollment/internal/infrastructure/requirements"
	"github.com/schoolops/enrollment/internal/infrastructure/scheduler"
	"github.com/schoolops/enrollment/internal/infrastructure/telemetry"
	"github.com/schoolops/enrollment/internal/interfaces/http/dto"
	"github.com/schoolops/enrollment/internal/interfaces/http/handler"
	"github.com/schoolops/enrollment/internal/interfaces/http/middleware"
	"github.com/schoolops/enrollment/internal/interfaces/http/router"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

//	@title			Enrollment API
//	@version		1.0
//	@description	Enrollment application lifecycle, document review and admission approval.

//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Reviewer bearer token. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := logger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		Service: cfg.App.Name,
	}
	log, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()
	otelProviders, err := telemetry.Setup(ctx, telemetry.ConfigFrom(cfg.Telemetry), log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		if err := otelProviders.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down telemetry", zap.Error(err))
		}
	}()
	// The local core always stays; the log pipeline is added when exporting.
	if otelProviders.Enabled() {
		if log, err = logger.New(logCfg, otelProviders.LogCore(logger.ParseLevel(cfg.Log.Level))); err != nil {
			panic("Failed to initialize logger: " + err.Error())
		}
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting enrollment service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithInlineParams(cfg.Telemetry.DBLogFullSQL),
	)
	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBName:          cfg.Database.DBName,
	}, log)
	db, err := persistence.Open(ctx, &cfg.Database,
		persistence.WithLogger(gormLog),
		persistence.WithPlugins(dbTracing),
		persistence.WithConnectAttempts(cfg.Database.ConnectAttempts, cfg.Database.ConnectWait),
	)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	backends, err := newBackends(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize backends", zap.Error(err))
	}
	defer backends.Close()

	// Repositories and ports
	appRepo := persistence.NewGormApplicationRepository(db.DB)
	docRepo := persistence.NewGormDocumentRepository(db.DB)
	ledger := persistence.NewGormPaymentLedger(db.DB)
	students := persistence.NewGormStudentDirectory(db.DB)
	requirementsProvider := requirements.NewConfigProvider(cfg.Requirements)

	// Application services
	registry := enrollmentapp.NewDocumentRegistry(appRepo, docRepo, requirementsProvider, log,
		enrollmentapp.WithFileReferenceChecker(backends.files),
	)
	gate := enrollmentapp.NewPaymentReadinessGate(appRepo, ledger, gateConfig(cfg), log)
	provisioner := enrollmentapp.NewAdmissionProvisioner(appRepo, students, log)
	enrollmentService := enrollmentapp.NewEnrollmentService(
		appRepo, docRepo, requirementsProvider, registry, gate, provisioner, log,
		enrollmentapp.WithLocker(backends.locker),
	)

	// Event bus: audit log and workflow metrics
	eventBus := event.NewInMemoryEventBus(log)
	workflowMetrics, err := telemetry.NewEnrollmentMetrics(otelProviders.Meter("enrollment"))
	if err != nil {
		log.Fatal("Failed to create workflow metrics", zap.Error(err))
	}
	eventBus.Subscribe(enrollmentapp.NewAuditLogHandler(log))
	eventBus.Subscribe(enrollmentapp.NewMetricsHandler(workflowMetrics))
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()
	enrollmentService.SetEventPublisher(eventBus)
	registry.SetEventPublisher(eventBus)

	// Background repair of approvals whose student record was never created
	if cfg.Provisioning.Enabled {
		stop, err := startProvisioningRepair(ctx, cfg.Provisioning, enrollmentService, appRepo, log)
		if err != nil {
			log.Fatal("Failed to start provisioning scheduler", zap.Error(err))
		}
		defer stop()
	}

	// HTTP handlers
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentService, gate)
	documentHandler := handler.NewDocumentHandler(registry)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	dto.UseJSONFieldNames()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Order matters: the request ID must exist before logging and tracing read it,
	// and the span must exist before the error marker and metrics run.
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     otelProviders.Enabled(),
		SkipPaths:   []string{"/health", "/ready"},
	}))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.HTTPMetrics(otelProviders.Meter("enrollment.http"), log))
	engine.Use(logger.RequestLogger(log, "/health", "/ready"))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfigFrom(cfg.HTTP)))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	engine.GET("/health", livenessHandler())
	engine.GET("/ready", readinessHandler(db, backends))

	var applicantLimit gin.HandlerFunc
	if backends.limiter != nil {
		applicantLimit = middleware.RateLimit(backends.limiter, log)
		log.Info("Applicant rate limiting enabled",
			zap.String("backend", cfg.RateLimit.Backend),
			zap.Int("requests", cfg.RateLimit.Requests),
			zap.Duration("window", cfg.RateLimit.Window),
		)
	}

	reviewerAuth := middleware.ReviewerAuth(middleware.ReviewerAuthConfig{
		Verifier: auth.NewTokenVerifier(cfg.JWT),
		Required: cfg.JWT.Required,
		Logger:   log,
	})
	if !cfg.JWT.Required {
		log.Warn("Reviewer bearer tokens are optional; X-Reviewer-ID is trusted")
	}

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	enrollmentGroup := router.NewEnrollmentGroup(router.EnrollmentRoutes{
		Applications:   enrollmentHandler,
		Documents:      documentHandler,
		ReviewerAuth:   reviewerAuth,
		ApplicantLimit: applicantLimit,
		Extra:          []gin.HandlerFunc{middleware.TracingAttributeInjector()},
	})
	r.Register(enrollmentGroup).Setup()
	for _, route := range enrollmentGroup.Routes(r.BasePath()) {
		log.Debug("Route mounted",
			zap.String("method", route.Method),
			zap.String("path", route.Path),
			zap.String("audience", route.Group),
		)
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// gateConfig maps the configured payment thresholds onto enrollment categories
func gateConfig(cfg *config.Config) enrollmentapp.GateConfig {
	gc := enrollmentapp.GateConfig{
		Timeout:          cfg.Gate.Timeout,
		DefaultThreshold: cfg.Payment.DefaultThreshold,
	}
	if len(cfg.Payment.Thresholds) > 0 {
		gc.Thresholds = make(map[enrollment.EnrollmentCategory]decimal.Decimal, len(cfg.Payment.Thresholds))
		for category, threshold := range cfg.Payment.Thresholds {
			gc.Thresholds[enrollment.EnrollmentCategory(strings.ToUpper(category))] = threshold
		}
	}
	return gc
}

// startProvisioningRepair runs the gap sweeper and its worker pool until the returned func is called
func startProvisioningRepair(
	ctx context.Context,
	cfg config.ProvisioningConfig,
	provisioner scheduler.ApplicationProvisioner,
	finder enrollment.ProvisioningGapFinder,
	log *zap.Logger,
) (func(), error) {
	schedCfg := scheduler.DefaultSchedulerConfig()
	schedCfg.MaxConcurrentJobs = cfg.Workers
	schedCfg.QueueSize = max(cfg.BatchSize, schedCfg.QueueSize)
	schedCfg.JobTimeout = cfg.JobTimeout
	schedCfg.RetryAttempts = cfg.RetryAttempts
	schedCfg.RetryDelay = cfg.RetryDelay

	sched, err := scheduler.NewScheduler(schedCfg, scheduler.NewProvisionExecutor(provisioner), log)
	if err != nil {
		return nil, err
	}
	if err := sched.Start(ctx); err != nil {
		return nil, err
	}
	sweeper := scheduler.NewSweeper(scheduler.SweeperConfig{
		Interval:  cfg.Interval,
		MinAge:    cfg.MinAge,
		BatchSize: cfg.BatchSize,
	}, sched, finder, log)
	if err := sweeper.Start(ctx); err != nil {
		return nil, err
	}

	return func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := sweeper.Stop(stopCtx); err != nil {
			log.Error("Error stopping provisioning sweeper", zap.Error(err))
		}
		if err := sched.Stop(stopCtx); err != nil {
			log.Error("Error stopping provisioning scheduler", zap.Error(err))
		}
	}, nil
}
