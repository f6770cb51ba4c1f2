// Package cursor implements lazy, bidirectional navigation over server-paginated
// resources.
//
// A Cursor is an explicit state machine: it holds the current page, a stack of
// the pages visited before it and two exhaustion flags. Pages are fetched only
// when a navigation call asks for them. A Cursor is meant to be used by a single
// goroutine.
package cursor

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/robinhood-client/robinhood-client-go/pkg/logger"
	"github.com/robinhood-client/robinhood-client-go/pkg/telemetry"
)

type historyEntry[T any] struct {
	token string
	page  *Page[T]
}

// Cursor navigates a paginated resource one page at a time.
type Cursor[T any] struct {
	fetcher  PageFetcher[T]
	logger   logger.Logger
	resource string

	started      bool
	current      *Page[T]
	currentToken string

	// history holds the pages visited before current, oldest first.
	history []historyEntry[T]

	exhaustedForward  bool
	exhaustedBackward bool
}

// Option configures a Cursor.
type Option func(*options)

type options struct {
	logger   logger.Logger
	resource string
}

// WithLogger sets the logger used to report fetches.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithResource names the paginated resource in logs, metrics and traces.
func WithResource(name string) Option {
	return func(o *options) {
		o.resource = name
	}
}

// New returns a Cursor positioned before the first page of the resource served by fetcher.
func New[T any](fetcher PageFetcher[T], opts ...Option) *Cursor[T] {
	o := options{
		logger:   logger.NewNoopLogger(),
		resource: "unknown",
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Cursor[T]{
		fetcher:  fetcher,
		logger:   o.logger,
		resource: o.resource,
	}
}

// CurrentPage returns the page the cursor is positioned on, or nil before first use.
func (c *Cursor[T]) CurrentPage() *Page[T] {
	return c.current
}

// Started reports whether the first page has been fetched since construction or the last Reset.
func (c *Cursor[T]) Started() bool {
	return c.started
}

// HasNext reports whether the current page links to a following page.
func (c *Cursor[T]) HasNext() bool {
	return c.started && !c.exhaustedForward
}

// HasPrevious reports whether a page was visited before the current one.
func (c *Cursor[T]) HasPrevious() bool {
	return c.started && !c.exhaustedBackward
}

// Exhausted reports whether the cursor has neither a predecessor nor a successor.
func (c *Cursor[T]) Exhausted() bool {
	return c.started && c.exhaustedForward && c.exhaustedBackward
}

// Depth returns the number of pages on the history stack.
func (c *Cursor[T]) Depth() int {
	return len(c.history)
}

// FirstPage fetches the first page if the cursor has not been used yet and
// returns the current page.
func (c *Cursor[T]) FirstPage(ctx context.Context) (*Page[T], error) {
	if c.started {
		return c.current, nil
	}

	page, err := c.fetch(ctx, "")
	if err != nil {
		return nil, err
	}

	c.started = true
	c.current = page
	c.currentToken = ""
	c.history = nil
	c.updateFlags()

	return page, nil
}

// Next advances to the following page and returns it. Before first use it
// fetches the first page. When there is no following page it returns nil and
// leaves the cursor untouched. If the fetch fails the cursor keeps its previous
// position and the call can be retried.
func (c *Cursor[T]) Next(ctx context.Context) (*Page[T], error) {
	if !c.started {
		return c.FirstPage(ctx)
	}

	if c.exhaustedForward {
		return nil, nil
	}

	token := c.current.Next
	page, err := c.fetch(ctx, token)
	if err != nil {
		return nil, err
	}

	c.history = append(c.history, historyEntry[T]{token: c.currentToken, page: c.current})
	c.current = page
	c.currentToken = token
	c.updateFlags()

	return page, nil
}

// Previous moves back to the page visited before the current one and returns
// it. The page is served from the history stack without a new fetch. With an
// empty history it returns nil.
func (c *Cursor[T]) Previous(_ context.Context) (*Page[T], error) {
	if !c.started || len(c.history) == 0 {
		return nil, nil
	}

	last := len(c.history) - 1
	entry := c.history[last]
	c.history[last] = historyEntry[T]{}
	c.history = c.history[:last]

	c.current = entry.page
	c.currentToken = entry.token
	c.updateFlags()

	c.logger.Debug("cursor moved back",
		zap.String("resource", c.resource),
		zap.Int("depth", len(c.history)))

	return entry.page, nil
}

// Reset returns the cursor to its state before first use.
func (c *Cursor[T]) Reset() {
	c.started = false
	c.current = nil
	c.currentToken = ""
	c.history = nil
	c.exhaustedForward = false
	c.exhaustedBackward = false
}

// All resets the cursor and walks every page from the first one, returning the
// items of all pages in order. The cursor is left on the last page.
func (c *Cursor[T]) All(ctx context.Context) ([]T, error) {
	c.Reset()

	page, err := c.FirstPage(ctx)
	if err != nil {
		return nil, err
	}

	items := append([]T(nil), page.Items...)
	for {
		page, err = c.Next(ctx)
		if err != nil {
			return nil, err
		}
		if page == nil {
			break
		}
		items = append(items, page.Items...)
	}

	return items, nil
}

// First returns the first item of the first page, fetching the page if the
// cursor has not been used yet. The boolean is false when that page is empty.
func (c *Cursor[T]) First(ctx context.Context) (T, bool, error) {
	var zero T

	page, err := c.FirstPage(ctx)
	if err != nil {
		return zero, false, err
	}
	if page.Len() == 0 {
		return zero, false, nil
	}

	return page.Items[0], true, nil
}

func (c *Cursor[T]) updateFlags() {
	c.exhaustedForward = c.current == nil || c.current.Next == ""
	c.exhaustedBackward = len(c.history) == 0
}

func (c *Cursor[T]) fetch(ctx context.Context, token string) (*Page[T], error) {
	ctx, span := tracer.Start(ctx, "cursor.FetchPage")
	defer span.End()
	span.SetAttributes(
		attribute.String("resource", c.resource),
		attribute.Bool("first_page", token == ""),
	)

	start := time.Now()
	page, err := c.fetcher.FetchPage(ctx, token)
	pageFetchDurationHistogram.WithLabelValues(c.resource).Observe(float64(time.Since(start).Milliseconds()))

	if err != nil {
		pageFetchCounter.WithLabelValues(c.resource, "error").Inc()
		telemetry.TraceError(span, err)
		c.logger.WarnWithContext(ctx, "page fetch failed",
			zap.String("resource", c.resource),
			zap.Int("depth", len(c.history)),
			zap.Error(err))
		return nil, err
	}
	pageFetchCounter.WithLabelValues(c.resource, "success").Inc()

	if page == nil {
		page = &Page[T]{}
	}
	span.SetAttributes(attribute.Int("items", len(page.Items)))

	c.logger.DebugWithContext(ctx, "page fetched",
		zap.String("resource", c.resource),
		zap.Int("items", len(page.Items)),
		zap.Bool("has_next", page.Next != ""))

	return page, nil
}
