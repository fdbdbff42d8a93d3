// Package telemetry wires OpenTelemetry traces, metrics and logs for the enrollment service.
package telemetry

import (
	"fmt"
	"time"

	"github.com/schoolops/enrollment/internal/infrastructure/config"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

// ServiceVersion is reported on every exported span, metric and log record
const ServiceVersion = "1.0.0"

// Config holds the collector settings shared by the three pipelines
type Config struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
	// ExportInterval is the metric push interval, 60s when zero
	ExportInterval time.Duration
	// ShutdownTimeout bounds the final flush, 10s when zero
	ShutdownTimeout time.Duration
}

// ConfigFrom converts the application telemetry settings
func ConfigFrom(cfg config.TelemetryConfig) Config {
	return Config{
		Enabled:           cfg.Enabled,
		CollectorEndpoint: cfg.CollectorEndpoint,
		SamplingRatio:     cfg.SamplingRatio,
		ServiceName:       cfg.ServiceName,
		Insecure:          cfg.Insecure,
	}
}

func (c Config) withDefaults() Config {
	if c.ExportInterval <= 0 {
		c.ExportInterval = time.Minute
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	if c.ServiceName == "" {
		c.ServiceName = "enrollment"
	}
	return c
}

func newResource(serviceName string) (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("merge telemetry resource: %w", err)
	}
	return res, nil
}
