// Package enrich attaches resolved values to the records of a page.
package enrich

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/robinhood-client/robinhood-client-go/internal/concurrency"
	"github.com/robinhood-client/robinhood-client-go/pkg/cursor"
	"github.com/robinhood-client/robinhood-client-go/pkg/logger"
	"github.com/robinhood-client/robinhood-client-go/pkg/resolve"
)

var tracer = otel.Tracer("rhclient/pkg/enrich")

const defaultMaxConcurrency = 8

// KeyFunc extracts the foreign key of an item. It returns false when the item
// has no key.
type KeyFunc[T any] func(item T) (string, bool)

// Record is an item together with the value its key resolved to.
type Record[T, V any] struct {
	Item     T
	Value    V
	Resolved bool
}

// Pipeline resolves the foreign keys of batches of items through a shared
// resolve.Cache.
type Pipeline[T, V any] struct {
	cache          *resolve.Cache[V]
	key            KeyFunc[T]
	logger         logger.Logger
	maxConcurrency int
}

// Option configures a Pipeline.
type Option func(*options)

type options struct {
	logger         logger.Logger
	maxConcurrency int
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMaxConcurrency bounds the number of keys resolved at the same time.
func WithMaxConcurrency(n int) Option {
	return func(o *options) {
		o.maxConcurrency = n
	}
}

// New returns a Pipeline that looks keys up in cache.
func New[T, V any](cache *resolve.Cache[V], key KeyFunc[T], opts ...Option) *Pipeline[T, V] {
	o := options{
		logger:         logger.NewNoopLogger(),
		maxConcurrency: defaultMaxConcurrency,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Pipeline[T, V]{
		cache:          cache,
		key:            key,
		logger:         o.logger,
		maxConcurrency: o.maxConcurrency,
	}
}

type outcome[V any] struct {
	value    V
	resolved bool
}

// Enrich returns one Record per item, in the order of items. Each distinct key
// is looked up once. Items without a key, and items whose key could not be
// resolved, are returned with Resolved set to false.
func (p *Pipeline[T, V]) Enrich(ctx context.Context, items []T) []Record[T, V] {
	ctx, span := tracer.Start(ctx, "enrich.Enrich")
	defer span.End()

	keys := make([]string, len(items))
	hasKey := make([]bool, len(items))
	var distinct []string
	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		key, ok := p.key(item)
		if !ok || key == "" {
			continue
		}
		keys[i], hasKey[i] = key, true
		if _, dup := seen[key]; !dup {
			seen[key] = struct{}{}
			distinct = append(distinct, key)
		}
	}
	span.SetAttributes(attribute.Int("items", len(items)), attribute.Int("distinct_keys", len(distinct)))

	outcomes := p.resolveAll(ctx, distinct)

	records := make([]Record[T, V], len(items))
	unresolved := 0
	for i, item := range items {
		records[i].Item = item
		if !hasKey[i] {
			continue
		}
		out := outcomes[keys[i]]
		records[i].Value = out.value
		records[i].Resolved = out.resolved
		if !out.resolved {
			unresolved++
		}
	}

	if unresolved > 0 {
		p.logger.DebugWithContext(ctx, "records left unresolved",
			zap.Int("records", len(items)),
			zap.Int("unresolved", unresolved))
	}

	return records
}

// EnrichPage enriches the items of page and keeps its tokens. A nil page yields nil.
func (p *Pipeline[T, V]) EnrichPage(ctx context.Context, page *cursor.Page[T]) *cursor.Page[Record[T, V]] {
	if page == nil {
		return nil
	}

	return &cursor.Page[Record[T, V]]{
		Items:    p.Enrich(ctx, page.Items),
		Next:     page.Next,
		Previous: page.Previous,
		Count:    page.Count,
	}
}

// Fetcher decorates f so that every page it fetches is enriched.
func (p *Pipeline[T, V]) Fetcher(f cursor.PageFetcher[T]) cursor.PageFetcher[Record[T, V]] {
	return cursor.PageFetcherFunc[Record[T, V]](func(ctx context.Context, token string) (*cursor.Page[Record[T, V]], error) {
		page, err := f.FetchPage(ctx, token)
		if err != nil {
			return nil, err
		}
		if page == nil {
			page = &cursor.Page[T]{}
		}
		return p.EnrichPage(ctx, page), nil
	})
}

func (p *Pipeline[T, V]) resolveAll(ctx context.Context, keys []string) map[string]outcome[V] {
	outcomes := make(map[string]outcome[V], len(keys))
	if len(keys) == 0 {
		return outcomes
	}

	var mu sync.Mutex
	pool := concurrency.NewPool(ctx, p.maxConcurrency)
	for _, key := range keys {
		pool.Go(func(ctx context.Context) error {
			value, ok := p.cache.GetOrFetch(ctx, key)

			mu.Lock()
			outcomes[key] = outcome[V]{value: value, resolved: ok}
			mu.Unlock()
			return nil
		})
	}
	_ = pool.Wait()

	return outcomes
}
