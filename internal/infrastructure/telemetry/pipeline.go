// Package telemetry exports storefront traces, metrics and logs to an OTLP
// collector and carries the span and instrument helpers of the checkout flow.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
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
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ServiceVersion is reported as service.version on every signal
const ServiceVersion = "1.0.0"

const (
	serviceNamespace      = "storefront"
	defaultExportInterval = 60 * time.Second
	flushTimeout          = 10 * time.Second
)

// Config selects the signals the storefront exports. All of them share one
// collector connection and one resource.
type Config struct {
	ServiceName       string
	Environment       string
	CollectorEndpoint string
	Insecure          bool

	TracesEnabled bool
	SamplingRatio float64

	MetricsEnabled bool
	ExportInterval time.Duration

	LogsEnabled bool
}

func (c Config) exporting() bool {
	return c.TracesEnabled || c.MetricsEnabled || c.LogsEnabled
}

// Pipeline owns the SDK providers of the enabled signals. A signal that is
// off keeps a nil provider and its callers fall back to the global no-op.
type Pipeline struct {
	cfg    Config
	logger *zap.Logger

	traces  *sdktrace.TracerProvider
	metrics *sdkmetric.MeterProvider
	logs    *sdklog.LoggerProvider
}

// Start builds the enabled providers and installs them as the otel globals.
// The W3C trace context propagator is installed even with export off, so
// the commerce client still forwards inbound traceparent headers.
func Start(ctx context.Context, cfg Config, logger *zap.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pipeline{cfg: cfg, logger: logger}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if !cfg.exporting() {
		logger.Info("Telemetry export off")
		return p, nil
	}

	res, err := storefrontResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}

	if err := p.start(ctx, res); err != nil {
		_ = p.Shutdown(ctx)
		return nil, err
	}

	logger.Info("Telemetry export started",
		zap.String("collector_endpoint", cfg.CollectorEndpoint),
		zap.String("service_name", cfg.ServiceName),
		zap.Bool("traces", p.TracingEnabled()),
		zap.Float64("sampling_ratio", cfg.SamplingRatio),
		zap.Bool("metrics", p.MetricsEnabled()),
		zap.Bool("logs", p.LogsEnabled()),
	)
	return p, nil
}

func (p *Pipeline) start(ctx context.Context, res *resource.Resource) error {
	cfg := p.cfg

	if cfg.TracesEnabled {
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.CollectorEndpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err := otlptracegrpc.New(ctx, opts...)
		if err != nil {
			return fmt.Errorf("trace exporter: %w", err)
		}
		p.traces = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(samplerFor(cfg.SamplingRatio)),
		)
		otel.SetTracerProvider(p.traces)
	}

	if cfg.MetricsEnabled {
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.CollectorEndpoint)}
		if cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exporter, err := otlpmetricgrpc.New(ctx, opts...)
		if err != nil {
			return fmt.Errorf("metric exporter: %w", err)
		}
		interval := cfg.ExportInterval
		if interval <= 0 {
			interval = defaultExportInterval
		}
		p.metrics = sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
		)
		otel.SetMeterProvider(p.metrics)
	}

	if cfg.LogsEnabled {
		opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.CollectorEndpoint)}
		if cfg.Insecure {
			opts = append(opts, otlploggrpc.WithInsecure())
		}
		exporter, err := otlploggrpc.New(ctx, opts...)
		if err != nil {
			return fmt.Errorf("log exporter: %w", err)
		}
		p.logs = sdklog.NewLoggerProvider(
			sdklog.WithResource(res),
			sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
		)
		global.SetLoggerProvider(p.logs)
	}

	return nil
}

// storefrontResource tags every signal with the storefront service identity
func storefrontResource(cfg Config) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceNamespace(serviceNamespace),
		semconv.ServiceVersion(ServiceVersion),
	}
	if cfg.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironmentName(cfg.Environment))
	}
	return resource.Merge(resource.Default(), resource.NewWithAttributes(semconv.SchemaURL, attrs...))
}

// samplerFor keeps a sampled storefront request sampled through the commerce
// backend by deferring to the parent decision.
func samplerFor(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1.0:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case ratio <= 0.0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

// TracingEnabled reports whether spans leave the process
func (p *Pipeline) TracingEnabled() bool { return p.traces != nil }

// MetricsEnabled reports whether checkout instruments are exported
func (p *Pipeline) MetricsEnabled() bool { return p.metrics != nil }

// LogsEnabled reports whether zap entries are bridged to the collector
func (p *Pipeline) LogsEnabled() bool { return p.logs != nil }

// Meter returns a meter from the pipeline, or the global one when metrics are off.
func (p *Pipeline) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if p.metrics == nil {
		return otel.GetMeterProvider().Meter(name, opts...)
	}
	return p.metrics.Meter(name, opts...)
}

// LogCore returns a zap core that forwards entries at or above level to the
// collector. It is a no-op core when logs are off, so it can always be teed
// next to the stdout core.
func (p *Pipeline) LogCore(level zapcore.Level) zapcore.Core {
	if p.logs == nil {
		return zapcore.NewNopCore()
	}
	core := otelzap.NewCore(p.cfg.ServiceName, otelzap.WithLoggerProvider(p.logs))
	if level > zapcore.DebugLevel {
		return &minLevelCore{Core: core, min: level}
	}
	return core
}

type signal struct {
	name     string
	flush    func(context.Context) error
	shutdown func(context.Context) error
}

// signals lists the running providers. Logs come last so errors from the
// other signals are still bridged while they shut down.
func (p *Pipeline) signals() []signal {
	var out []signal
	if p.traces != nil {
		out = append(out, signal{"traces", p.traces.ForceFlush, p.traces.Shutdown})
	}
	if p.metrics != nil {
		out = append(out, signal{"metrics", p.metrics.ForceFlush, p.metrics.Shutdown})
	}
	if p.logs != nil {
		out = append(out, signal{"logs", p.logs.ForceFlush, p.logs.Shutdown})
	}
	return out
}

// ForceFlush exports everything buffered so far without stopping the providers.
func (p *Pipeline) ForceFlush(ctx context.Context) error {
	var errs []error
	for _, s := range p.signals() {
		if err := s.flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush %s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

// Shutdown flushes and stops every running provider within flushTimeout.
// Each provider is stopped even when an earlier one fails.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	running := p.signals()
	if len(running) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()

	var errs []error
	for _, s := range running {
		if err := s.shutdown(ctx); err != nil {
			p.logger.Warn("Telemetry shutdown failed", zap.String("signal", s.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("shutdown %s: %w", s.name, err))
		}
	}
	if len(errs) == 0 {
		p.logger.Info("Telemetry flushed", zap.Int("signals", len(running)))
	}
	return errors.Join(errs...)
}
