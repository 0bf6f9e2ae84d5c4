package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/platformbuilds/datadog-badges"

// TracerProvider manages the lifecycle of the OpenTelemetry tracer
type TracerProvider struct {
	tp *sdktrace.TracerProvider
}

// NewTracerProvider exports spans over OTLP gRPC and installs itself as the
// global provider. Without it, the global no-op provider stays in place and
// every span below is free.
func NewTracerProvider(ctx context.Context, serviceName, serviceVersion, otlpEndpoint string, insecure bool) (*TracerProvider, error) {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(otlpEndpoint)}
	if insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	)

	otel.SetTracerProvider(tp)

	return &TracerProvider{tp: tp}, nil
}

// Shutdown flushes pending spans. Safe on a nil provider.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp == nil || tp.tp == nil {
		return nil
	}
	return tp.tp.Shutdown(ctx)
}

// BadgeTracer starts the spans of a badge request.
type BadgeTracer struct {
	tracer trace.Tracer
}

// NewBadgeTracer uses the global provider at call time, so it must be
// created after NewTracerProvider when tracing is enabled.
func NewBadgeTracer() *BadgeTracer {
	return &BadgeTracer{tracer: otel.Tracer(instrumentationName)}
}

// NewBadgeTracerWithProvider is used by tests with an in-memory exporter.
func NewBadgeTracerWithProvider(tp trace.TracerProvider) *BadgeTracer {
	return &BadgeTracer{tracer: tp.Tracer(instrumentationName)}
}

// StartBadgeSpan covers resolving one badge, cache included.
func (bt *BadgeTracer) StartBadgeSpan(ctx context.Context, account, monitorID string) (context.Context, trace.Span) {
	return bt.tracer.Start(ctx, "badge.resolve",
		trace.WithAttributes(
			attribute.String("badge.account", account),
			attribute.String("badge.monitor_id", monitorID),
		),
	)
}

// StartUpstreamSpan covers one Datadog API call.
func (bt *BadgeTracer) StartUpstreamSpan(ctx context.Context, monitorID string, withGroups bool) (context.Context, trace.Span) {
	return bt.tracer.Start(ctx, "datadog.get_monitor",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("datadog.monitor_id", monitorID),
			attribute.Bool("datadog.group_states", withGroups),
		),
	)
}

// RecordUpstreamStatus records the HTTP status of an upstream response.
func (bt *BadgeTracer) RecordUpstreamStatus(span trace.Span, statusCode int) {
	span.SetAttributes(semconv.HTTPResponseStatusCode(statusCode))
	if statusCode >= 400 {
		span.SetStatus(codes.Error, fmt.Sprintf("upstream returned %d", statusCode))
	}
}

// RecordCacheResult marks whether the badge came from the cache.
func (bt *BadgeTracer) RecordCacheResult(span trace.Span, hit bool) {
	span.SetAttributes(attribute.Bool("cache.hit", hit))
}

// RecordError records an error on a span
func (bt *BadgeTracer) RecordError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attrs...)
	span.RecordError(err)
}
