package tracing

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

// DefaultJaegerEndpoint is used when InitTracerProvider is called with an
// empty endpoint, matching the collector a locally-run Jaeger all-in-one
// container listens on.
const DefaultJaegerEndpoint = "http://localhost:14268/api/traces"

func newJaegerExporter(endpoint string) (tracesdk.SpanExporter, error) {
	if endpoint == "" {
		endpoint = DefaultJaegerEndpoint
	}
	exp, err := jaeger.New(
		jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(endpoint)),
	)
	if err != nil {
		return nil, err
	}
	return exp, nil
}

// InitTracerProvider wires a Jaeger-exporting tracer provider and installs
// it as the global provider. endpoint overrides DefaultJaegerEndpoint; pass
// "" to use the default (a batch CLI run typically talks to a sidecar or
// local collector rather than a fixed cluster address).
func InitTracerProvider(log logr.Logger, endpoint string) (*tracesdk.TracerProvider, error) {
	exp, err := newJaegerExporter(endpoint)
	if err != nil {
		log.Error(err, "failed to create jaeger exporter")
		return nil, err
	}

	tp := tracesdk.NewTracerProvider(
		tracesdk.WithSampler(tracesdk.AlwaysSample()),
		tracesdk.WithBatcher(exp),
		// Record information about this application in a Resource.
		tracesdk.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String("tornado"),
		)),
	)

	otel.SetTracerProvider(tp)

	return tp, nil
}

func Shutdown(ctx context.Context, log logr.Logger, tp *tracesdk.TracerProvider) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()
	if err := tp.Shutdown(ctx); err != nil {
		log.Error(err, "error shutting down tracer provider")
	}
}

func StartNewSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := otel.Tracer("").Start(ctx, name)
	span.SetAttributes(attrs...)
	return ctx, span
}
