package logger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger routes GORM output into zap with request correlation.
//
// Applicant rows carry names, birth dates and guardian contacts, so by
// default statements are logged with placeholders instead of bound values.
type GormLogger struct {
	base         *zap.Logger
	level        gormlogger.LogLevel
	slow         time.Duration
	logNotFound  bool
	inlineParams bool
}

// GormLoggerOption configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the duration above which a statement is logged as slow.
// Zero disables slow statement warnings.
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) { l.slow = threshold }
}

// WithIgnoreRecordNotFoundError controls whether gorm.ErrRecordNotFound is
// reported. Lookups by confirmation code miss routinely, so it is ignored
// unless set to false.
func WithIgnoreRecordNotFoundError(ignore bool) GormLoggerOption {
	return func(l *GormLogger) { l.logNotFound = !ignore }
}

// WithInlineParams renders bound values into logged statements.
// Only for local debugging.
func WithInlineParams(inline bool) GormLoggerOption {
	return func(l *GormLogger) { l.inlineParams = inline }
}

// NewGormLogger creates a GORM logger backed by zap
func NewGormLogger(zapLogger *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	l := &GormLogger{
		base:  zapLogger.Named("gorm"),
		level: level,
		slow:  200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LogMode implements gormlogger.Interface
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

// ParamsFilter implements gormlogger.ParamsFilter. Dropping the vars makes
// GORM log the statement with its placeholders.
func (l *GormLogger) ParamsFilter(_ context.Context, sql string, params ...any) (string, []any) {
	if l.inlineParams {
		return sql, params
	}
	return sql, nil
}

func (l *GormLogger) printf(ctx context.Context, threshold gormlogger.LogLevel, lvl zapcore.Level, msg string, data []any) {
	if l.level < threshold {
		return
	}
	if ce := Enrich(ctx, l.base).Check(lvl, fmt.Sprintf(msg, data...)); ce != nil {
		ce.Write()
	}
}

// Info implements gormlogger.Interface
func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Info, zapcore.InfoLevel, msg, data)
}

// Warn implements gormlogger.Interface
func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Warn, zapcore.WarnLevel, msg, data)
}

// Error implements gormlogger.Interface
func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Error, zapcore.ErrorLevel, msg, data)
}

// Trace implements gormlogger.Interface. Errors win over slowness, and plain
// statements are only logged at the Info level.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	var (
		lvl   zapcore.Level
		msg   string
		extra []zap.Field
	)
	switch {
	case err != nil:
		if l.level < gormlogger.Error || (!l.logNotFound && errors.Is(err, gormlogger.ErrRecordNotFound)) {
			return
		}
		lvl, msg, extra = zapcore.ErrorLevel, "SQL Error", []zap.Field{zap.Error(err)}
	case l.slow > 0 && elapsed > l.slow:
		if l.level < gormlogger.Warn {
			return
		}
		lvl, msg, extra = zapcore.WarnLevel, "Slow SQL", []zap.Field{zap.Duration("threshold", l.slow)}
	default:
		if l.level < gormlogger.Info {
			return
		}
		lvl, msg = zapcore.DebugLevel, "SQL Query"
	}

	sql, rows := fc()
	fields := append([]zap.Field{
		zap.String("operation", sqlOperation(sql)),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	}, extra...)
	if ce := Enrich(ctx, l.base).Check(lvl, msg); ce != nil {
		ce.Write(fields...)
	}
}

// sqlOperation returns the leading keyword of a statement, upper-cased
func sqlOperation(sql string) string {
	sql = strings.TrimSpace(sql)
	if i := strings.IndexAny(sql, " \t\n("); i > 0 {
		sql = sql[:i]
	}
	return strings.ToUpper(sql)
}

// MapGormLogLevel maps the application log level onto GORM's. Statement
// tracing is only enabled at info and below.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error", "fatal":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
