package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	// LoggerKey holds the base logger of a request
	LoggerKey contextKey = "logger"
	// RequestIDKey holds the request ID
	RequestIDKey contextKey = "request_id"
	// ReviewerIDKey holds the acting reviewer
	ReviewerIDKey contextKey = "reviewer_id"
)

// WithContext stores the base logger. Correlation fields are added on
// retrieval by L, so the stored logger should not carry them.
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, l)
}

// FromContext returns the stored base logger, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// WithRequestID records the request ID for log correlation
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithReviewerID records the acting reviewer for log correlation
func WithReviewerID(ctx context.Context, reviewerID string) context.Context {
	return context.WithValue(ctx, ReviewerIDKey, reviewerID)
}

// GetRequestID returns the request ID, or ""
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// GetReviewerID returns the acting reviewer, or ""
func GetReviewerID(ctx context.Context) string {
	id, _ := ctx.Value(ReviewerIDKey).(string)
	return id
}

// GetTraceID returns the trace ID of the active span, or ""
func GetTraceID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.TraceID().String()
	}
	return ""
}

// L returns the request logger: the stored base logger plus correlation fields.
//
//	logger.L(ctx).Info("application approved", zap.String("application_id", id))
func L(ctx context.Context) *zap.Logger {
	return Enrich(ctx, FromContext(ctx))
}

// Enrich adds the trace, request and reviewer fields found in ctx to l
func Enrich(ctx context.Context, l *zap.Logger) *zap.Logger {
	if l == nil {
		l = zap.NewNop()
	}
	fields := make([]zap.Field, 0, 4)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if id := GetRequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if id := GetReviewerID(ctx); id != "" {
		fields = append(fields, zap.String("reviewer_id", id))
	}
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}
