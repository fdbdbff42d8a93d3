package telemetry

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Providers owns the trace, metric and log pipelines of the process. With
// telemetry disabled nothing is exported and the global no-op providers stay
// in place, so instrumented code needs no checks.
type Providers struct {
	cfg     Config
	log     *zap.Logger
	traces  *sdktrace.TracerProvider
	metrics *sdkmetric.MeterProvider
	logs    *sdklog.LoggerProvider
}

// Setup builds the OTLP/gRPC exporters and registers the providers globally
func Setup(ctx context.Context, cfg Config, log *zap.Logger) (*Providers, error) {
	p := &Providers{cfg: cfg.withDefaults(), log: log}
	if !cfg.Enabled {
		log.Info("Telemetry disabled, using no-op providers")
		return p, nil
	}

	res, err := newResource(p.cfg.ServiceName)
	if err != nil {
		return nil, err
	}
	if err := p.build(ctx, res); err != nil {
		_ = p.Shutdown(ctx)
		return nil, err
	}

	otel.SetTracerProvider(p.traces)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	otel.SetMeterProvider(p.metrics)
	global.SetLoggerProvider(p.logs)

	log.Info("OpenTelemetry initialized",
		zap.String("collector_endpoint", p.cfg.CollectorEndpoint),
		zap.String("service_name", p.cfg.ServiceName),
		zap.Float64("sampling_ratio", p.cfg.SamplingRatio),
		zap.Duration("metric_interval", p.cfg.ExportInterval),
	)
	return p, nil
}

func (p *Providers) build(ctx context.Context, res *resource.Resource) error {
	traceOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(p.cfg.CollectorEndpoint)}
	metricOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(p.cfg.CollectorEndpoint)}
	logOpts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(p.cfg.CollectorEndpoint)}
	if p.cfg.Insecure {
		traceOpts = append(traceOpts, otlptracegrpc.WithInsecure())
		metricOpts = append(metricOpts, otlpmetricgrpc.WithInsecure())
		logOpts = append(logOpts, otlploggrpc.WithInsecure())
	}

	spanExporter, err := otlptracegrpc.New(ctx, traceOpts...)
	if err != nil {
		return fmt.Errorf("create OTLP trace exporter: %w", err)
	}
	p.traces = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(spanExporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(samplerFor(p.cfg.SamplingRatio)),
	)

	metricExporter, err := otlpmetricgrpc.New(ctx, metricOpts...)
	if err != nil {
		return fmt.Errorf("create OTLP metric exporter: %w", err)
	}
	p.metrics = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(p.cfg.ExportInterval))),
	)

	logExporter, err := otlploggrpc.New(ctx, logOpts...)
	if err != nil {
		return fmt.Errorf("create OTLP log exporter: %w", err)
	}
	p.logs = sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
	)
	return nil
}

// samplerFor honours an upstream sampling decision and samples new traces
// at ratio
func samplerFor(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case ratio <= 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

// Enabled reports whether anything is exported
func (p *Providers) Enabled() bool {
	return p.traces != nil
}

// Tracer returns a tracer from the process provider
func (p *Providers) Tracer(name string) trace.Tracer {
	if p.traces == nil {
		return otel.GetTracerProvider().Tracer(name)
	}
	return p.traces.Tracer(name)
}

// Meter returns a meter from the process provider
func (p *Providers) Meter(name string) metric.Meter {
	if p.metrics == nil {
		return otel.GetMeterProvider().Meter(name)
	}
	return p.metrics.Meter(name)
}

// LogCore returns a zap core that forwards entries at or above level to the
// log pipeline, or a no-op core when nothing is exported. Tee it with the
// local core through logger.New.
func (p *Providers) LogCore(level zapcore.Level) zapcore.Core {
	if p == nil || p.logs == nil {
		return zapcore.NewNopCore()
	}
	core := otelzap.NewCore(p.cfg.ServiceName, otelzap.WithLoggerProvider(p.logs))
	return &levelFilterCore{Core: core, minLevel: level}
}

// ForceFlush exports buffered spans and metrics
func (p *Providers) ForceFlush(ctx context.Context) error {
	var errs []error
	if p.traces != nil {
		errs = append(errs, p.traces.ForceFlush(ctx))
	}
	if p.metrics != nil {
		errs = append(errs, p.metrics.ForceFlush(ctx))
	}
	return errors.Join(errs...)
}

// Shutdown flushes and stops the pipelines. Logs go last so errors raised
// while stopping traces and metrics still reach the collector.
func (p *Providers) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	if p.traces != nil {
		if err := p.traces.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer provider: %w", err))
		}
	}
	if p.metrics != nil {
		if err := p.metrics.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown meter provider: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil && p.log != nil {
		p.log.Error("Telemetry shutdown failed", zap.Error(err))
	}
	if p.logs != nil {
		if err := p.logs.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown logger provider: %w", err))
		}
	}
	return errors.Join(errs...)
}

// levelFilterCore adds a minimum level to the OTel bridge core, which has none
type levelFilterCore struct {
	zapcore.Core
	minLevel zapcore.Level
}

func (c *levelFilterCore) Enabled(lvl zapcore.Level) bool {
	return lvl >= c.minLevel && c.Core.Enabled(lvl)
}

func (c *levelFilterCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(entry.Level) {
		return ce
	}
	return c.Core.Check(entry, ce)
}

func (c *levelFilterCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelFilterCore{Core: c.Core.With(fields), minLevel: c.minLevel}
}
