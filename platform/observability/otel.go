// Package observability bootstraps OpenTelemetry tracing.
package observability

import (
	"context"

	"admissions_crm/platform/config"
	"admissions_crm/platform/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
)

// InitTracing installs a global tracer provider. When tracing is disabled the
// global no-op provider stays in place and the returned shutdown is a no-op.
func InitTracing(ctx context.Context, cfg config.ObservabilityConfig, env string, log *logger.Logger) func(context.Context) error {
	noop := func(context.Context) error { return nil }
	if !cfg.GetOTelEnabled() {
		return noop
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.GetServiceName()),
			attribute.String("deployment.environment", env),
		),
	)
	if err != nil {
		log.Warn("otel resource init failed (continuing)", "error", err)
	}

	exporter, err := buildExporter(ctx, cfg.GetOTelEndpoint())
	if err != nil {
		log.Warn("otel exporter init failed; tracing disabled", "error", err)
		return noop
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.GetOTelSampleRatio()))),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	log.Info("otel tracing initialized", "service", cfg.GetServiceName(), "endpoint", cfg.GetOTelEndpoint())
	return tp.Shutdown
}

func buildExporter(ctx context.Context, endpoint string) (sdktrace.SpanExporter, error) {
	if endpoint != "" {
		return otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(endpoint))
	}
	return stdouttrace.New(stdouttrace.WithPrettyPrint())
}
