package resolve

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"

	"github.com/robinhood-client/robinhood-client-go/internal/build"
)

var tracer = otel.Tracer("rhclient/pkg/resolve")

var (
	cacheHitCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: build.ProjectName,
		Name:      "resolve_cache_hit_count",
		Help:      "The total number of lookups answered from the resolution cache.",
	}, []string{"cache"})

	cacheMissCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: build.ProjectName,
		Name:      "resolve_cache_miss_count",
		Help:      "The total number of lookups that were not answered from the resolution cache.",
	}, []string{"cache"})

	deduplicatedLookupCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: build.ProjectName,
		Name:      "resolve_deduplicated_lookup_count",
		Help:      "The total number of lookups that shared an in-flight resolution.",
	}, []string{"cache"})

	resolutionFailureCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: build.ProjectName,
		Name:      "resolve_failure_count",
		Help:      "The total number of failed resolutions.",
	}, []string{"cache"})
)
