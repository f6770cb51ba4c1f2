package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/goleak"

	"github.com/robinhood-client/robinhood-client-go/internal/mocks"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// retainingExporter keeps its spans when the provider shuts it down.
type retainingExporter struct {
	*tracetest.InMemoryExporter
}

func (retainingExporter) Shutdown(context.Context) error {
	return nil
}

func newExporter() retainingExporter {
	return retainingExporter{tracetest.NewInMemoryExporter()}
}

func newTestProvider(t *testing.T, opts ...TracerOption) TracerProvider {
	t.Helper()

	tp, err := NewTracerProvider(context.Background(), opts...)
	require.NoError(t, err)
	return tp
}

func TestTracing(t *testing.T) {
	exporter := newExporter()
	tp := newTestProvider(t,
		WithExporter(exporter),
		WithServiceName("servicename"),
		WithAttributes(attribute.String("profile", "default")),
		WithSamplingRatio(1),
	)

	spanRecorder := tracetest.NewSpanRecorder()
	tp.RegisterSpanProcessor(spanRecorder)

	_, span := otel.Tracer("test").Start(context.Background(), "test")
	span.End()

	spans := spanRecorder.Ended()
	require.Len(t, spans, 1)
	require.Equal(t, "test", spans[0].Name())
	require.Contains(t, spans[0].Resource().Attributes(), attribute.String("service.name", "servicename"))
	require.Contains(t, spans[0].Resource().Attributes(), attribute.String("profile", "default"))

	require.NoError(t, tp.Close(context.Background()))
	require.Len(t, exporter.GetSpans(), 1)

	// closing twice is a no-op
	require.NoError(t, tp.Close(context.Background()))
}

func TestTracingNeverSamples(t *testing.T) {
	exporter := newExporter()
	tp := newTestProvider(t, WithExporter(exporter), WithSamplingRatio(0))

	_, span := tp.Tracer("test").Start(context.Background(), "test")
	span.End()

	require.NoError(t, tp.Close(context.Background()))
	require.Empty(t, exporter.GetSpans())
}

func TestTracingExportsToCollector(t *testing.T) {
	collector := mocks.NewMockTracingServer(t)
	tp := newTestProvider(t, WithOTLPEndpoint(collector.Addr()))

	ctx, parent := tp.Tracer("test").Start(context.Background(), "orders.GetStockOrders")
	_, child := tp.Tracer("test").Start(ctx, "httpclient.GET")
	child.End()
	parent.End()

	require.NoError(t, tp.Close(context.Background()))
	require.Equal(t, 1, collector.GetExportCount())
	require.Equal(t, 2, collector.GetSpanCount())
}

func TestSlowTraceExporter(t *testing.T) {
	exporter := newExporter()
	tp := newTestProvider(t, WithExporter(exporter), WithSlowTraceThreshold(time.Hour))

	_, span := tp.Tracer("test").Start(context.Background(), "fast")
	span.End()

	start := time.Now().Add(-2 * time.Hour)
	ctx, slow := tp.Tracer("test").Start(context.Background(), "slow", trace.WithTimestamp(start))
	_, child := tp.Tracer("test").Start(ctx, "slow-child")
	child.End()
	slow.End()

	require.NoError(t, tp.Close(context.Background()))

	var names []string
	for _, s := range exporter.GetSpans() {
		names = append(names, s.Name)
	}
	require.ElementsMatch(t, []string{"slow", "slow-child"}, names)
}

func TestSlowTraceExporterWithoutExporter(t *testing.T) {
	exp := NewSlowTraceExporter(nil, time.Second)
	require.NoError(t, exp.ExportSpans(context.Background(), []sdktrace.ReadOnlySpan{}))
	require.NoError(t, exp.Shutdown(context.Background()))
}

func TestNoop(t *testing.T) {
	tp := Noop()
	_, span := tp.Tracer("test").Start(context.Background(), "test")
	span.End()

	require.False(t, span.SpanContext().IsValid())
	require.NoError(t, tp.Close(context.Background()))
}
