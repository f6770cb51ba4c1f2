//go:generate mockgen -source cache.go -destination ../../internal/mocks/mock_resolver.go -package mocks Resolver

// Package resolve provides a shareable cache that maps foreign identifiers to
// resolved values, deduplicating concurrent lookups of the same key.
package resolve

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/robinhood-client/robinhood-client-go/pkg/logger"
	"github.com/robinhood-client/robinhood-client-go/pkg/telemetry"
)

// Resolver resolves a single identifier against a remote source.
type Resolver[V any] interface {
	Resolve(ctx context.Context, key string) (V, error)
}

// ResolverFunc is an adapter to allow the use of ordinary functions as Resolvers.
type ResolverFunc[V any] func(ctx context.Context, key string) (V, error)

var _ Resolver[any] = (ResolverFunc[any])(nil)

// Resolve calls f(ctx, key).
func (f ResolverFunc[V]) Resolve(ctx context.Context, key string) (V, error) {
	return f(ctx, key)
}

// State is the lifecycle state of a cache entry.
type State int

const (
	StatePending State = iota
	StateResolved
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateResolved:
		return "resolved"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Entry is a snapshot of what the cache knows about one key.
type Entry[V any] struct {
	Key   string
	Value V
	State State
	Err   error
}

// Stats describes the cache contents.
type Stats struct {
	Entries  int
	Resolved int
	Failed   int
	InFlight int
}

// Cache memoizes the outcome of a Resolver per key. It is safe for concurrent
// use and may be shared by any number of cursors. Entries are never evicted
// except by Clear.
type Cache[V any] struct {
	resolver Resolver[V]
	logger   logger.Logger
	name     string

	retryFailed bool

	group singleflight.Group

	mu         sync.Mutex
	entries    map[string]*Entry[V]
	inflight   map[string]struct{}
	generation uint64
}

// CacheOption configures a Cache.
type CacheOption func(*cacheOptions)

type cacheOptions struct {
	logger      logger.Logger
	name        string
	retryFailed bool
}

// WithLogger sets the logger that receives resolution diagnostics.
func WithLogger(l logger.Logger) CacheOption {
	return func(o *cacheOptions) {
		o.logger = l
	}
}

// WithName names the cache in logs and metrics.
func WithName(name string) CacheOption {
	return func(o *cacheOptions) {
		o.name = name
	}
}

// WithRetryFailed controls whether a key whose resolution failed is resolved
// again on its next lookup. It defaults to true. When false the failure is kept
// until Clear.
func WithRetryFailed(retry bool) CacheOption {
	return func(o *cacheOptions) {
		o.retryFailed = retry
	}
}

// NewCache returns an empty Cache backed by resolver.
func NewCache[V any](resolver Resolver[V], opts ...CacheOption) *Cache[V] {
	o := cacheOptions{
		logger:      logger.NewNoopLogger(),
		name:        "default",
		retryFailed: true,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Cache[V]{
		resolver:    resolver,
		logger:      o.logger,
		name:        o.name,
		retryFailed: o.retryFailed,
		entries:     map[string]*Entry[V]{},
		inflight:    map[string]struct{}{},
	}
}

// GetOrFetch returns the value cached for key, resolving it first when needed.
// Concurrent callers asking for the same uncached key share one call to the
// resolver and observe the same outcome. A failed resolution is reported as
// (zero, false) and recorded as a failed entry; it is never returned as an error.
//
// The shared resolution is detached from the cancellation of the caller that
// started it. A caller whose ctx ends while waiting gets (zero, false) and the
// resolution carries on for the other callers.
func (c *Cache[V]) GetOrFetch(ctx context.Context, key string) (V, bool) {
	var zero V

	if entry, ok := c.cached(key); ok {
		cacheHitCounter.WithLabelValues(c.name).Inc()
		return entry.Value, entry.State == StateResolved
	}
	cacheMissCounter.WithLabelValues(c.name).Inc()

	if ctx.Err() != nil {
		return zero, false
	}

	flight := c.group.DoChan(key, func() (interface{}, error) {
		// a flight that finished between the lookup above and this one already stored the outcome
		if entry, ok := c.cached(key); ok {
			return entry, nil
		}
		return c.resolve(context.WithoutCancel(ctx), key), nil
	})

	select {
	case res := <-flight:
		if res.Shared {
			deduplicatedLookupCounter.WithLabelValues(c.name).Inc()
		}
		entry := res.Val.(Entry[V])
		return entry.Value, entry.State == StateResolved
	case <-ctx.Done():
		c.logger.DebugWithContext(ctx, "stopped waiting for identifier resolution",
			zap.String("cache", c.name),
			zap.String("key", key),
			zap.Error(ctx.Err()))
		return zero, false
	}
}

// Lookup returns the entry stored for key without resolving it.
func (c *Cache[V]) Lookup(key string) (Entry[V], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.inflight[key]; ok {
		if entry, stored := c.entries[key]; stored {
			return *entry, true
		}
		return Entry[V]{Key: key, State: StatePending}, true
	}

	entry, ok := c.entries[key]
	if !ok {
		return Entry[V]{}, false
	}
	return *entry, true
}

// Stats returns the number of entries per state. It has no side effects.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Stats{
		Entries:  len(c.entries),
		InFlight: len(c.inflight),
	}
	for _, entry := range c.entries {
		switch entry.State {
		case StateResolved:
			stats.Resolved++
		case StateFailed:
			stats.Failed++
		}
	}
	return stats
}

// Clear discards every entry. Lookups in flight while Clear runs still answer
// their callers but do not store their outcome.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = map[string]*Entry[V]{}
	c.generation++

	c.logger.Debug("resolution cache cleared", zap.String("cache", c.name))
}

// cached returns the stored entry for key if it can answer a lookup.
func (c *Cache[V]) cached(key string) (Entry[V], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return Entry[V]{}, false
	}
	if entry.State == StateFailed && c.retryFailed {
		return Entry[V]{}, false
	}
	return *entry, true
}

func (c *Cache[V]) resolve(ctx context.Context, key string) Entry[V] {
	c.mu.Lock()
	generation := c.generation
	c.inflight[key] = struct{}{}
	c.mu.Unlock()

	ctx, span := tracer.Start(ctx, "resolve.Resolve")
	defer span.End()
	span.SetAttributes(attribute.String("cache", c.name), attribute.String("key", key))

	value, err := c.resolver.Resolve(ctx, key)

	entry := Entry[V]{Key: key, Value: value, State: StateResolved}
	if err != nil {
		var zero V
		entry = Entry[V]{
			Key:   key,
			Value: zero,
			State: StateFailed,
			Err:   &ResolutionError{Key: key, Cause: err},
		}

		resolutionFailureCounter.WithLabelValues(c.name).Inc()
		telemetry.TraceError(span, err)
		c.logger.WarnWithContext(ctx, "identifier resolution failed",
			zap.String("cache", c.name),
			zap.String("key", key),
			zap.Error(err))
	}

	c.mu.Lock()
	delete(c.inflight, key)
	if generation == c.generation {
		stored := entry
		c.entries[key] = &stored
	}
	c.mu.Unlock()

	return entry
}
