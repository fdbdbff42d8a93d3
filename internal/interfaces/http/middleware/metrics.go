package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// HTTP metric attribute keys
var (
	attrMethod   = attribute.Key("http_method")
	attrRoute    = attribute.Key("http_route")
	attrStatus   = attribute.Key("http_status_code")
	attrAudience = attribute.Key("audience")
)

// durationBuckets are request latency boundaries in seconds
var durationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

type httpInstruments struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	active   metric.Int64UpDownCounter
}

func newHTTPInstruments(meter metric.Meter) (*httpInstruments, error) {
	var (
		in  httpInstruments
		err error
	)
	if in.requests, err = meter.Int64Counter("http_server_request_total",
		metric.WithDescription("HTTP requests by route, status and audience"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}
	if in.duration, err = meter.Float64Histogram("http_server_request_duration_seconds",
		metric.WithDescription("HTTP request latency in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}
	if in.active, err = meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("HTTP requests in flight"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}
	return &in, nil
}

// HTTPMetrics records request count, latency and in-flight requests per
// route. Requests are split by audience: "reviewer" once ReviewerAuth has
// resolved a reviewer, "applicant" otherwise. Without a meter, or when the
// instruments cannot be created, it only calls the next handler.
func HTTPMetrics(meter metric.Meter, log *zap.Logger) gin.HandlerFunc {
	passThrough := func(c *gin.Context) { c.Next() }
	if meter == nil {
		return passThrough
	}
	in, err := newHTTPInstruments(meter)
	if err != nil {
		if log != nil {
			log.Warn("HTTP metrics disabled", zap.Error(err))
		}
		return passThrough
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		in.active.Add(ctx, 1)
		defer in.active.Add(ctx, -1)

		c.Next()

		attrs := []attribute.KeyValue{
			attrMethod.String(c.Request.Method),
			attrRoute.String(routePattern(c)),
			attrAudience.String(audience(c)),
		}
		in.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attrs...))
		in.requests.Add(ctx, 1, metric.WithAttributes(append(attrs, attrStatus.Int(c.Writer.Status()))...))
	}
}

func audience(c *gin.Context) string {
	if c.GetString(ReviewerIDKey) != "" {
		return "reviewer"
	}
	return "applicant"
}

// routePattern returns the matched route, e.g. "/api/v1/enrollment/applications/:id",
// keeping metric cardinality bounded
func routePattern(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unknown"
}
