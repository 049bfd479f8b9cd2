// Package telemetry wires OpenTelemetry tracing for the analyzer binaries.
// Settings come from the standard OTEL_* environment variables; tracing is
// off unless OTEL_ENABLED=true, in which case the analysis pipeline spans are
// exported over OTLP (grpc or http/protobuf).
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/size-analysis/pkg/errors"
)

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(ctx context.Context) error

func noopShutdown(context.Context) error { return nil }

// Init installs the global tracer provider described by cfg. A nil cfg is
// read from the environment. When tracing is disabled the global no-op
// provider is left in place.
func Init(ctx context.Context, cfg *Config) (ShutdownFunc, error) {
	if cfg == nil {
		cfg = FromEnv()
	}
	if !cfg.Enabled {
		return noopShutdown, nil
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return noopShutdown, errors.Wrap(errors.CodeConfigError, "failed to build telemetry resource", err)
	}
	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return noopShutdown, errors.Wrap(errors.CodeConfigError, "failed to create trace exporter", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(newSampler(cfg)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}
