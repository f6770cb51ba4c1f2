package cursor

import (
	"context"
)

type Iterator[T any] interface {
	// Next will return the next available item. Once every page has been
	// consumed it returns ErrIteratorDone. A fetch error is returned as is and
	// the call may be retried.
	Next(ctx context.Context) (T, error)
	// Stop terminates iteration over the underlying cursor.
	Stop()
}

type pageIterator[T any] struct {
	cursor  *Cursor[T]
	page    *Page[T]
	index   int
	stopped bool
}

var _ Iterator[any] = (*pageIterator[any])(nil)

func (p *pageIterator[T]) Next(ctx context.Context) (T, error) {
	var zero T

	if p.stopped {
		return zero, ErrIteratorDone
	}

	if err := ctx.Err(); err != nil {
		return zero, err
	}

	if p.page == nil {
		page, err := p.cursor.FirstPage(ctx)
		if err != nil {
			return zero, err
		}
		p.page = page
		p.index = 0
	}

	for p.index >= len(p.page.Items) {
		page, err := p.cursor.Next(ctx)
		if err != nil {
			return zero, err
		}
		if page == nil {
			p.stopped = true
			return zero, ErrIteratorDone
		}
		p.page = page
		p.index = 0
	}

	item := p.page.Items[p.index]
	p.index++

	return item, nil
}

func (p *pageIterator[T]) Stop() {
	p.stopped = true
}

type staticIterator[T any] struct {
	items []T
}

var _ Iterator[any] = (*staticIterator[any])(nil)

// NewStaticIterator returns an Iterator over the provided slice.
func NewStaticIterator[T any](items []T) Iterator[T] {
	return &staticIterator[T]{items: items}
}

func (s *staticIterator[T]) Next(ctx context.Context) (T, error) {
	var zero T
	if ctx.Err() != nil {
		return zero, ctx.Err()
	}

	if len(s.items) == 0 {
		return zero, ErrIteratorDone
	}

	next, rest := s.items[0], s.items[1:]
	s.items = rest

	return next, nil
}

func (s *staticIterator[T]) Stop() {}

// Drain reads it until ErrIteratorDone and returns every item read. The iterator is stopped afterwards.
func Drain[T any](ctx context.Context, it Iterator[T]) ([]T, error) {
	defer it.Stop()

	var items []T
	for {
		item, err := it.Next(ctx)
		if err != nil {
			if err == ErrIteratorDone {
				return items, nil
			}
			return nil, err
		}
		items = append(items, item)
	}
}
