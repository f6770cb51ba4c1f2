package httpclient

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"

	"github.com/robinhood-client/robinhood-client-go/internal/build"
)

var tracer = otel.Tracer("rhclient/pkg/httpclient")

var (
	requestCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: build.ProjectName,
		Name:      "http_requests_total",
		Help:      "The total number of API requests, partitioned by method and response status.",
	}, []string{"method", "status"})

	requestDurationHistogram = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:                       build.ProjectName,
		Name:                            "http_request_duration_ms",
		Help:                            "The duration (in ms) of an API request including retries.",
		Buckets:                         []float64{10, 25, 50, 100, 200, 500, 1000, 2500, 5000, 10000},
		NativeHistogramBucketFactor:     1.1,
		NativeHistogramMaxBucketNumber:  100,
		NativeHistogramMinResetDuration: 0,
	}, []string{"method"})
)
