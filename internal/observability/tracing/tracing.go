package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

const defaultEndpoint = "localhost:4318"

type Options struct {
	Enabled  bool
	Endpoint string
	Service  string
}

// Init installs a global tracer provider exporting over OTLP/HTTP. Tracing is
// off unless Enabled is set; the returned shutdown func is always callable.
func Init(ctx context.Context, opts Options, logger *zap.Logger) (func(context.Context) error, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	noop := func(context.Context) error { return nil }
	if !opts.Enabled {
		logger.Info("tracing_disabled")
		return noop, nil
	}

	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return noop, fmt.Errorf("create otlp exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", opts.Service),
		)),
	)
	otel.SetTracerProvider(tp)
	logger.Info("tracing_enabled", zap.String("endpoint", endpoint))

	return tp.Shutdown, nil
}
