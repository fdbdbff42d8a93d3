package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool          // include query variables in spans, development only
	SlowQueryThresh time.Duration // default 200ms
	DBName          string
}

// DBTracingPlugin registers otelgorm plus a callback that marks slow and failed queries.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a new database tracing plugin
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	if cfg.SlowQueryThresh == 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.DBName == "" {
		cfg.DBName = "postgresql"
	}
	return &DBTracingPlugin{config: cfg, logger: logger}
}

// Register installs the plugin on db. It is a no-op when tracing is disabled.
func (p *DBTracingPlugin) Register(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBName)}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	if err := p.registerCallbacks(db); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
	)
	return nil
}

// Name implements gorm.Plugin
func (p *DBTracingPlugin) Name() string {
	return "enrollment:tracing"
}

// Initialize implements gorm.Plugin so the plugin can be passed to db.Use
func (p *DBTracingPlugin) Initialize(db *gorm.DB) error {
	return p.Register(db)
}

func (p *DBTracingPlugin) registerCallbacks(db *gorm.DB) error {
	cb := db.Callback()
	registrations := []func() error{
		func() error {
			return cb.Create().Before("gorm:create").Register("enrollment_timing:before_create", markQueryStart)
		},
		func() error {
			return cb.Query().Before("gorm:query").Register("enrollment_timing:before_query", markQueryStart)
		},
		func() error {
			return cb.Update().Before("gorm:update").Register("enrollment_timing:before_update", markQueryStart)
		},
		func() error {
			return cb.Delete().Before("gorm:delete").Register("enrollment_timing:before_delete", markQueryStart)
		},
		func() error {
			return cb.Row().Before("gorm:row").Register("enrollment_timing:before_row", markQueryStart)
		},
		func() error {
			return cb.Raw().Before("gorm:raw").Register("enrollment_timing:before_raw", markQueryStart)
		},
		func() error {
			return cb.Create().After("gorm:create").Register("enrollment_timing:after_create", p.annotateSpan)
		},
		func() error {
			return cb.Query().After("gorm:query").Register("enrollment_timing:after_query", p.annotateSpan)
		},
		func() error {
			return cb.Update().After("gorm:update").Register("enrollment_timing:after_update", p.annotateSpan)
		},
		func() error {
			return cb.Delete().After("gorm:delete").Register("enrollment_timing:after_delete", p.annotateSpan)
		},
		func() error {
			return cb.Row().After("gorm:row").Register("enrollment_timing:after_row", p.annotateSpan)
		},
		func() error {
			return cb.Raw().After("gorm:raw").Register("enrollment_timing:after_raw", p.annotateSpan)
		},
	}
	for _, register := range registrations {
		if err := register(); err != nil {
			return err
		}
	}
	return nil
}

type contextKey string

const queryStartTimeKey contextKey = "otel_query_start_time"

func markQueryStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartTimeKey, time.Now())
	}
}

// annotateSpan adds rows, table, error and slow-query details to the current span
func (p *DBTracingPlugin) annotateSpan(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	if db.RowsAffected >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.RowsAffected))
	}
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	if start, ok := ctx.Value(queryStartTimeKey).(time.Time); ok {
		if elapsed := time.Since(start); elapsed > p.config.SlowQueryThresh {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
		}
	}
}
