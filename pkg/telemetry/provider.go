package telemetry

import (
	"context"
	"errors"
	"sync"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracerProvider is a trace.TracerProvider that can be flushed and shut down.
type TracerProvider interface {
	trace.TracerProvider

	// Close flushes the buffered spans and stops the exporter. Only the first call has an effect.
	Close(context.Context) error
	RegisterSpanProcessor(sdktrace.SpanProcessor)
}

type tracerProvider struct {
	*sdktrace.TracerProvider

	closeOnce sync.Once
	closeErr  error
}

var _ TracerProvider = (*tracerProvider)(nil)

func (t *tracerProvider) Close(ctx context.Context) error {
	t.closeOnce.Do(func() {
		t.closeErr = errors.Join(t.ForceFlush(ctx), t.Shutdown(ctx))
	})
	return t.closeErr
}

type noopTracerProvider struct {
	noop.TracerProvider
}

var _ TracerProvider = noopTracerProvider{}

func (noopTracerProvider) Close(context.Context) error {
	return nil
}

func (noopTracerProvider) RegisterSpanProcessor(sdktrace.SpanProcessor) {}

// Noop returns a TracerProvider that records nothing. It is used when tracing is disabled.
func Noop() TracerProvider {
	return noopTracerProvider{noop.NewTracerProvider()}
}
