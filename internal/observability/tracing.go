// Package observability wires OpenTelemetry trace export. Retrieval,
// ingestion and generation create spans through the global tracer; this
// package decides whether those spans go anywhere.
package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/config"
	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/log"
)

// Setup installs the global tracer provider, exporting spans to an OTLP
// HTTP collector. When tracing is disabled the returned shutdown is a
// no-op. An unreachable collector is not an error here: spans buffer in
// the batch processor and are dropped if export keeps failing, the
// application itself is unaffected.
func Setup(ctx context.Context, cfg config.OtelConfig, logger log.Logger) (shutdown func(context.Context) error, err error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("observability: create OTLP exporter: %w", err)
	}

	res := resource.NewSchemaless(
		semconv.ServiceName(cfg.ServiceName),
		semconv.DeploymentEnvironment(cfg.Environment),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	logger.Info("trace export enabled",
		"endpoint", cfg.Endpoint,
		"service", cfg.ServiceName,
		"environment", cfg.Environment)

	return tp.Shutdown, nil
}
