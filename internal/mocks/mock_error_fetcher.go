package mocks

import (
	"context"
	"fmt"

	"github.com/robinhood-client/robinhood-client-go/pkg/cursor"
)

// errorFetcher is a mock fetcher that serves the first page and returns an error for every other token.
type errorFetcher[T any] struct {
	first *cursor.Page[T]
}

func (e *errorFetcher[T]) FetchPage(ctx context.Context, token string) (*cursor.Page[T], error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	// we want to simulate returning error after the first read
	if token != "" {
		return nil, fmt.Errorf("simulated errors")
	}

	return e.first, nil
}

// NewErrorFetcher mocks case where every fetch after the first page fails.
func NewErrorFetcher[T any](items []T) cursor.PageFetcher[T] {
	return &errorFetcher[T]{
		first: &cursor.Page[T]{Items: items, Next: "unreachable"},
	}
}
