// Package telemetry configures the OpenTelemetry tracer provider that receives
// the spans of every API call.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.12.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/robinhood-client/robinhood-client-go/internal/build"
)

type TracerOption func(d *customTracer)

// WithOTLPEndpoint sets the host:port of the OTLP gRPC collector.
func WithOTLPEndpoint(endpoint string) TracerOption {
	return func(d *customTracer) {
		d.endpoint = endpoint
	}
}

func WithServiceName(serviceName string) TracerOption {
	return func(d *customTracer) {
		d.serviceName = serviceName
	}
}

func WithSamplingRatio(samplingRatio float64) TracerOption {
	return func(d *customTracer) {
		d.samplingRatio = samplingRatio
	}
}

// WithAttributes adds attributes to the resource of every span.
func WithAttributes(attrs ...attribute.KeyValue) TracerOption {
	return func(d *customTracer) {
		d.attributes = append(d.attributes, attrs...)
	}
}

// WithSlowTraceThreshold only exports traces whose root span lasted at least threshold.
// Zero exports every sampled trace.
func WithSlowTraceThreshold(threshold time.Duration) TracerOption {
	return func(d *customTracer) {
		d.slowTraceThreshold = threshold
	}
}

// WithExporter replaces the OTLP exporter.
func WithExporter(exporter sdktrace.SpanExporter) TracerOption {
	return func(d *customTracer) {
		d.exporter = exporter
	}
}

type customTracer struct {
	endpoint    string
	serviceName string
	attributes  []attribute.KeyValue

	samplingRatio      float64
	slowTraceThreshold time.Duration

	exporter sdktrace.SpanExporter
}

// NewTracerProvider returns a TracerProvider that batches spans to an OTLP
// collector and installs it as the global provider.
func NewTracerProvider(ctx context.Context, opts ...TracerOption) (TracerProvider, error) {
	tracer := &customTracer{
		serviceName:   build.ProjectName,
		samplingRatio: 1,
	}

	for _, opt := range opts {
		opt(tracer)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(append([]attribute.KeyValue{
			semconv.ServiceNameKey.String(tracer.serviceName),
			semconv.ServiceVersionKey.String(build.Version),
		}, tracer.attributes...)...))
	if err != nil {
		return nil, fmt.Errorf("failed to build the trace resource: %w", err)
	}

	exp := tracer.exporter
	if exp == nil {
		exp, err = otlptracegrpc.New(ctx,
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithEndpoint(tracer.endpoint),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create the otlp exporter: %w", err)
		}
	}

	if tracer.slowTraceThreshold > 0 {
		exp = NewSlowTraceExporter(exp, tracer.slowTraceThreshold)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(tracer.samplingRatio))),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(sdktrace.NewBatchSpanProcessor(exp)),
	)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	otel.SetTracerProvider(tp)

	return &tracerProvider{TracerProvider: tp}, nil
}

// TraceError marks span as failed with err.
func TraceError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
