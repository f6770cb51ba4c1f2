package mocks

import (
	"context"
	"time"

	"github.com/robinhood-client/robinhood-client-go/pkg/cursor"
	"github.com/robinhood-client/robinhood-client-go/pkg/resolve"
)

// slowPageFetcher is a proxy to the actual fetcher except every fetch is delayed by fetchDelay.
// This allows simulating page fetches that outlive their context.
type slowPageFetcher[T any] struct {
	fetchDelay time.Duration
	cursor.PageFetcher[T]
}

// NewMockSlowPageFetcher returns a wrapper of a fetcher that adds artificial delays into every fetch.
func NewMockSlowPageFetcher[T any](f cursor.PageFetcher[T], fetchDelay time.Duration) cursor.PageFetcher[T] {
	return &slowPageFetcher[T]{
		fetchDelay:  fetchDelay,
		PageFetcher: f,
	}
}

func (m *slowPageFetcher[T]) FetchPage(ctx context.Context, token string) (*cursor.Page[T], error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(m.fetchDelay):
	}
	return m.PageFetcher.FetchPage(ctx, token)
}

// slowResolver delays every resolution by resolveDelay.
type slowResolver[V any] struct {
	resolveDelay time.Duration
	resolve.Resolver[V]
}

// NewMockSlowResolver returns a wrapper of a resolver that adds artificial delays into every resolution.
func NewMockSlowResolver[V any](r resolve.Resolver[V], resolveDelay time.Duration) resolve.Resolver[V] {
	return &slowResolver[V]{
		resolveDelay: resolveDelay,
		Resolver:     r,
	}
}

func (m *slowResolver[V]) Resolve(ctx context.Context, key string) (V, error) {
	select {
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	case <-time.After(m.resolveDelay):
	}
	return m.Resolver.Resolve(ctx, key)
}
