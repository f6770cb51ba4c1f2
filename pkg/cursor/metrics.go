package cursor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"

	"github.com/robinhood-client/robinhood-client-go/internal/build"
)

var tracer = otel.Tracer("rhclient/pkg/cursor")

var (
	pageFetchCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: build.ProjectName,
		Name:      "cursor_page_fetches_total",
		Help:      "The total number of pages fetched by cursors, partitioned by resource and outcome.",
	}, []string{"resource", "outcome"})

	pageFetchDurationHistogram = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:                       build.ProjectName,
		Name:                            "cursor_page_fetch_duration_ms",
		Help:                            "The duration (in ms) of a single page fetch.",
		Buckets:                         []float64{10, 25, 50, 100, 200, 500, 1000, 2500, 5000},
		NativeHistogramBucketFactor:     1.1,
		NativeHistogramMaxBucketNumber:  100,
		NativeHistogramMinResetDuration: 0,
	}, []string{"resource"})
)
