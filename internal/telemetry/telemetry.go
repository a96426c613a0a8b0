package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"GeminiTrace/internal/config"
	"GeminiTrace/internal/langfuse"
)

const (
	// ScopeName identifies spans and instruments created by this module.
	ScopeName = "GeminiTrace"

	serviceName     = "geminitrace"
	traceFileName   = "geminitrace_traces.log"
	metricsFileName = "geminitrace_metrics.log"
)

// Telemetry owns the tracer and meter providers for one process run.
type Telemetry struct {
	Tracer trace.Tracer
	Meter  metric.Meter

	tp     *sdktrace.TracerProvider
	mp     *sdkmetric.MeterProvider
	files  []io.Closer
	logger *slog.Logger
}

// Option configures InitTelemetry.
type Option func(*options)

type options struct {
	processors     []sdktrace.SpanProcessor
	metricInterval time.Duration
}

// WithSpanProcessor registers an extra span processor, e.g. a test recorder.
func WithSpanProcessor(sp sdktrace.SpanProcessor) Option {
	return func(o *options) {
		o.processors = append(o.processors, sp)
	}
}

// WithMetricInterval sets the periodic metric export interval.
func WithMetricInterval(d time.Duration) Option {
	return func(o *options) {
		o.metricInterval = d
	}
}

// InitTelemetry initializes OpenTelemetry tracing and metrics.
// Spans are batched to the Langfuse OTLP endpoint when both keys are set and
// are always mirrored to <log dir>/geminitrace_traces.log for debugging.
// Metrics are exported to <log dir>/geminitrace_metrics.log.
// The providers are installed as the otel globals.
func InitTelemetry(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Telemetry, error) {
	o := &options{metricInterval: 10 * time.Second}
	for _, opt := range opts {
		opt(o)
	}
	if logger == nil {
		logger = slog.Default()
	}

	attrs := []attribute.KeyValue{
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(langfuse.Version),
		semconv.DeploymentEnvironment(cfg.Langfuse.Environment),
		attribute.String(langfuse.Environment, cfg.Langfuse.Environment),
	}
	if cfg.Langfuse.Release != "" {
		attrs = append(attrs, attribute.String(langfuse.Release, cfg.Langfuse.Release))
	}
	res, err := resource.New(ctx, resource.WithAttributes(attrs...))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	t := &Telemetry{logger: logger}

	tpOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	mpOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}

	if dir := cfg.Logging.Dir; dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create logs directory: %w", err)
		}

		traceFile := rotatingFile(filepath.Join(dir, traceFileName))
		t.files = append(t.files, traceFile)

		traceExporter, err := stdouttrace.New(
			stdouttrace.WithWriter(traceFile),
			stdouttrace.WithPrettyPrint(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		tpOpts = append(tpOpts, sdktrace.WithBatcher(traceExporter))

		metricsFile := rotatingFile(filepath.Join(dir, metricsFileName))
		t.files = append(t.files, metricsFile)

		metricExporter, err := stdoutmetric.New(
			stdoutmetric.WithWriter(metricsFile),
			stdoutmetric.WithPrettyPrint(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create metric exporter: %w", err)
		}
		mpOpts = append(mpOpts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(o.metricInterval)),
		))
	}

	if cfg.Langfuse.Enabled() {
		lf := langfuse.New(cfg.Langfuse, langfuse.WithLogger(logger))
		otlpExporter, err := otlptracehttp.New(ctx,
			otlptracehttp.WithEndpointURL(lf.OTLPEndpoint()),
			otlptracehttp.WithHeaders(map[string]string{
				"Authorization": lf.AuthHeader(),
			}),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create otlp exporter: %w", err)
		}
		tpOpts = append(tpOpts, sdktrace.WithBatcher(otlpExporter))
		logger.Info("exporting traces to langfuse", "endpoint", lf.OTLPEndpoint())
	} else {
		logger.Warn("langfuse keys not set, traces are only written locally",
			"dir", cfg.Logging.Dir)
	}

	for _, sp := range o.processors {
		tpOpts = append(tpOpts, sdktrace.WithSpanProcessor(sp))
	}

	t.tp = sdktrace.NewTracerProvider(tpOpts...)
	otel.SetTracerProvider(t.tp)

	t.mp = sdkmetric.NewMeterProvider(mpOpts...)
	otel.SetMeterProvider(t.mp)

	t.Tracer = t.tp.Tracer(ScopeName)
	t.Meter = t.mp.Meter(ScopeName)

	return t, nil
}

// Flush exports all spans that are still buffered.
func (t *Telemetry) Flush(ctx context.Context) error {
	if err := t.tp.ForceFlush(ctx); err != nil {
		return fmt.Errorf("failed to flush spans: %w", err)
	}
	return nil
}

// Shutdown flushes and stops both providers and closes the mirror files.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if err := t.tp.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to shutdown tracer provider: %w", err))
	}
	if err := t.mp.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to shutdown meter provider: %w", err))
	}
	for _, f := range t.files {
		if err := f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close telemetry file: %w", err))
		}
	}
	return errors.Join(errs...)
}

func rotatingFile(name string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   name,
		MaxSize:    10, // 10 MB
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
}
