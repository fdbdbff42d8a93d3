// Package middleware provides the HTTP middleware of the enrollment API.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/schoolops/enrollment/internal/infrastructure/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	// ServiceName is the name of the service for trace identification.
	ServiceName string
	// Enabled controls whether tracing is active.
	Enabled bool
	// SkipPaths are not traced (health probes).
	SkipPaths []string
}

// DefaultTracingConfig returns default tracing configuration.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName: "enrollment-service",
		Enabled:     true,
		SkipPaths:   []string{"/health", "/healthz", "/ready"},
	}
}

// Tracing returns OpenTelemetry tracing middleware with default configuration.
func Tracing() gin.HandlerFunc {
	return TracingWithConfig(DefaultTracingConfig())
}

// TracingWithConfig returns the otelgin middleware. Span names follow
// "HTTP METHOD route_pattern", e.g. "POST /api/v1/enrollment/applications/:id/approve".
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}
	return otelgin.Middleware(cfg.ServiceName, otelgin.WithFilter(func(r *http.Request) bool {
		_, skipped := skip[r.URL.Path]
		return !skipped
	}))
}

// TracingAttributeInjector adds request, reviewer and resource identifiers to
// the request span. Place it after RequestID and ReviewerAuth.
func TracingAttributeInjector() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			span.SetAttributes(spanAttributes(c)...)
		}
		c.Next()
	}
}

func spanAttributes(c *gin.Context) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if id := c.GetString(RequestIDKey); id != "" {
		attrs = append(attrs, attribute.String("request_id", id))
	}
	if reviewer := GetReviewerID(c); reviewer != "" {
		attrs = append(attrs, telemetry.ReviewerIDKey.String(reviewer))
	}
	if docID := c.Param("document_id"); docID != "" {
		attrs = append(attrs, telemetry.DocumentIDKey.String(docID))
	}
	if id := c.Param("id"); id != "" {
		key := telemetry.ApplicationIDKey
		if c.Param("document_id") == "" && isDocumentRoute(c.FullPath()) {
			key = telemetry.DocumentIDKey
		}
		attrs = append(attrs, key.String(id))
	}
	return attrs
}

// isDocumentRoute reports whether :id names a document rather than an application
func isDocumentRoute(route string) bool {
	return strings.Contains(route, "/documents/:id")
}

// SpanErrorMarker marks the request span as failed for 4xx and 5xx responses.
// Place it after Tracing.
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}

		statusCode := c.Writer.Status()
		if statusCode < http.StatusBadRequest {
			return
		}
		message := http.StatusText(statusCode)
		if statusCode >= http.StatusInternalServerError {
			message = "Internal Server Error"
		}
		span.SetStatus(codes.Error, message)
		span.SetAttributes(attribute.Int("http.status_code", statusCode))
		if len(c.Errors) > 0 {
			span.SetAttributes(attribute.String("error.message", c.Errors.Last().Error()))
		}
	}
}
