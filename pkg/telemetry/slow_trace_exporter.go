package telemetry

import (
	"context"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

type slowTraceExporter struct {
	wrappedExporter sdktrace.SpanExporter

	threshold time.Duration
}

var _ sdktrace.SpanExporter = (*slowTraceExporter)(nil)

// NewSlowTraceExporter returns a SpanExporter that forwards to exporter only the
// spans of traces whose root span lasted threshold or longer.
//
// If the exporter is nil, nothing is exported.
func NewSlowTraceExporter(exporter sdktrace.SpanExporter, threshold time.Duration) sdktrace.SpanExporter {
	return &slowTraceExporter{
		wrappedExporter: exporter,
		threshold:       threshold,
	}
}

func (s *slowTraceExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	if s.wrappedExporter == nil {
		return nil
	}

	slow := make(map[trace.TraceID]struct{})
	for _, span := range spans {
		if span.Parent().IsValid() {
			continue
		}
		if span.EndTime().Sub(span.StartTime()) >= s.threshold {
			slow[span.SpanContext().TraceID()] = struct{}{}
		}
	}

	if len(slow) == 0 {
		return nil
	}

	export := make([]sdktrace.ReadOnlySpan, 0, len(spans))
	for _, span := range spans {
		if _, ok := slow[span.SpanContext().TraceID()]; ok {
			export = append(export, span)
		}
	}

	return s.wrappedExporter.ExportSpans(ctx, export)
}

func (s *slowTraceExporter) Shutdown(ctx context.Context) error {
	if s.wrappedExporter == nil {
		return nil
	}
	return s.wrappedExporter.Shutdown(ctx)
}
