package cursor

import (
	"context"
	"fmt"
	"iter"
)

// Result is the caller facing view of a paginated response. Random access
// methods address the page the cursor currently holds; iteration walks the
// remaining pages lazily.
type Result[T any] struct {
	cursor *Cursor[T]
}

// NewResult fetches the first page of c if it has not been fetched yet and
// wraps the cursor.
func NewResult[T any](ctx context.Context, c *Cursor[T]) (*Result[T], error) {
	if _, err := c.FirstPage(ctx); err != nil {
		return nil, err
	}

	return &Result[T]{cursor: c}, nil
}

// Cursor returns the underlying cursor for manual navigation.
func (r *Result[T]) Cursor() *Cursor[T] {
	return r.cursor
}

// Len returns the number of items on the current page.
func (r *Result[T]) Len() int {
	return r.cursor.CurrentPage().Len()
}

// At returns the item at index i of the current page. It never fetches.
func (r *Result[T]) At(i int) (T, error) {
	var zero T

	page := r.cursor.CurrentPage()
	if i < 0 || i >= page.Len() {
		return zero, fmt.Errorf("%w: index %d, page length %d", ErrIndexOutOfRange, i, page.Len())
	}

	return page.Items[i], nil
}

// Items returns a copy of the items on the current page.
func (r *Result[T]) Items() []T {
	page := r.cursor.CurrentPage()
	if page == nil {
		return nil
	}
	return append([]T(nil), page.Items...)
}

// NextToken returns the token of the page following the current one.
func (r *Result[T]) NextToken() string {
	if page := r.cursor.CurrentPage(); page != nil {
		return page.Next
	}
	return ""
}

// PreviousToken returns the token of the page preceding the current one, as reported by the server.
func (r *Result[T]) PreviousToken() string {
	if page := r.cursor.CurrentPage(); page != nil {
		return page.Previous
	}
	return ""
}

// Count returns the total reported by the server for the current page, if any.
func (r *Result[T]) Count() (int, bool) {
	if page := r.cursor.CurrentPage(); page != nil && page.Count != nil {
		return *page.Count, true
	}
	return 0, false
}

// Collect materializes the complete result set from the first page onwards.
func (r *Result[T]) Collect(ctx context.Context) ([]T, error) {
	return r.cursor.All(ctx)
}

// Iterator returns an Iterator that yields the items of the current page and
// then those of every following page. Advancing past a page moves the cursor.
func (r *Result[T]) Iterator() Iterator[T] {
	return &pageIterator[T]{cursor: r.cursor}
}

// Seq returns the same walk as Iterator in range-over-func form. Iteration
// stops at the first fetch error, which is yielded with the zero value.
func (r *Result[T]) Seq(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		it := r.Iterator()
		defer it.Stop()

		for {
			item, err := it.Next(ctx)
			if err != nil {
				if err == ErrIteratorDone {
					return
				}
				var zero T
				yield(zero, err)
				return
			}
			if !yield(item, nil) {
				return
			}
		}
	}
}
