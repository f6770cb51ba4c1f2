//go:generate mockgen -source page.go -destination ../../internal/mocks/mock_page_fetcher.go -package mocks PageFetcher

package cursor

import (
	"context"
)

// Page is one server page of items together with the tokens that address its
// neighbours. An empty token means there is no such page.
type Page[T any] struct {
	Items    []T
	Next     string
	Previous string

	// Count is the total number of items reported by the server, if it reports one.
	Count *int
}

// Len returns the number of items on the page. It is safe to call on a nil page.
func (p *Page[T]) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Items)
}

// PageFetcher fetches the page addressed by token. The empty token addresses the
// first page of the resource.
type PageFetcher[T any] interface {
	FetchPage(ctx context.Context, token string) (*Page[T], error)
}

// PageFetcherFunc is an adapter to allow the use of ordinary functions as PageFetchers.
type PageFetcherFunc[T any] func(ctx context.Context, token string) (*Page[T], error)

var _ PageFetcher[any] = (PageFetcherFunc[any])(nil)

// FetchPage calls f(ctx, token).
func (f PageFetcherFunc[T]) FetchPage(ctx context.Context, token string) (*Page[T], error) {
	return f(ctx, token)
}

// NewStaticFetcher returns a PageFetcher that serves items split into pages of
// pageSize. Tokens are the decimal page offsets. It is useful for tests and for
// wrapping results that are already held in memory.
func NewStaticFetcher[T any](items []T, pageSize int) PageFetcher[T] {
	if pageSize <= 0 {
		pageSize = len(items)
	}

	return PageFetcherFunc[T](func(_ context.Context, token string) (*Page[T], error) {
		start := 0
		if token != "" {
			var err error
			start, err = decodeOffset(token)
			if err != nil {
				return nil, err
			}
		}

		if start > len(items) {
			start = len(items)
		}
		end := min(start+pageSize, len(items))

		page := &Page[T]{
			Items: append([]T(nil), items[start:end]...),
		}
		total := len(items)
		page.Count = &total

		if end < len(items) {
			page.Next = encodeOffset(end)
		}
		if start > 0 {
			page.Previous = encodeOffset(max(start-pageSize, 0))
		}

		return page, nil
	})
}
