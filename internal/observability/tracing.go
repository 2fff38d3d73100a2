// Package observability wires optional OpenTelemetry trace export.
//
// Tracing is off by default. Setting OTEL_EXPORTER_OTLP_ENDPOINT (e.g.
// "localhost:4318") exports genkit's spans, including model and tool calls,
// to that OTLP HTTP collector. OTEL_SERVICE_NAME overrides the service
// name shown in the tracing backend.
package observability

import (
	"context"
	"os"

	"github.com/firebase/genkit/go/core/tracing"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/koopa0/sysagent/internal/log"
)

// endpointEnv gates trace export.
const endpointEnv = "OTEL_EXPORTER_OTLP_ENDPOINT"

// defaultServiceName appears in the tracing backend unless overridden.
const defaultServiceName = "sysagent"

// Setup registers an OTLP span exporter on genkit's tracer provider when an
// endpoint is configured. The returned shutdown flushes pending spans; it
// is a no-op when tracing is disabled.
func Setup(ctx context.Context, logger *log.Logger) func(context.Context) error {
	noop := func(context.Context) error { return nil }
	if logger == nil {
		logger = log.NewNop()
	}

	endpoint := os.Getenv(endpointEnv)
	if endpoint == "" {
		return noop
	}

	if os.Getenv("OTEL_SERVICE_NAME") == "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", defaultServiceName)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		logger.Warn("trace exporter unavailable, tracing disabled", "error", err)
		return noop
	}

	tracing.TracerProvider().RegisterSpanProcessor(sdktrace.NewBatchSpanProcessor(exporter))
	logger.Info("trace export enabled", "endpoint", endpoint)

	return tracing.TracerProvider().Shutdown
}
