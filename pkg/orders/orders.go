// Package orders reads stock and options orders. Listings are returned as lazy
// cursor results; stock orders have their instrument symbol resolved through a
// shared cache unless resolution is turned off.
package orders

import (
	"context"
	"fmt"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/robinhood-client/robinhood-client-go/pkg/cursor"
	"github.com/robinhood-client/robinhood-client-go/pkg/enrich"
	"github.com/robinhood-client/robinhood-client-go/pkg/httpclient"
	"github.com/robinhood-client/robinhood-client-go/pkg/instruments"
	"github.com/robinhood-client/robinhood-client-go/pkg/logger"
	"github.com/robinhood-client/robinhood-client-go/pkg/resolve"
)

var tracer = otel.Tracer("rhclient/pkg/orders")

const (
	stockOrdersEndpoint   = "orders/"
	optionsOrdersEndpoint = "options/orders/"

	defaultResolveConcurrency = 8
)

// Client reads orders from the API. It is safe for concurrent use; the
// results it returns are not.
type Client struct {
	http   *httpclient.Client
	logger logger.Logger

	symbols  *resolve.Cache[string]
	pipeline *enrich.Pipeline[StockOrder, string]

	resolveSymbols bool
	pageSize       int
}

// Option configures a Client.
type Option func(*options)

type options struct {
	logger             logger.Logger
	resolveSymbols     bool
	pageSize           int
	resolveConcurrency int
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithResolveSymbols sets whether stock orders have their symbol resolved. It
// defaults to true and can be overridden per request.
func WithResolveSymbols(resolve bool) Option {
	return func(o *options) {
		o.resolveSymbols = resolve
	}
}

// WithPageSize sets the page size of listings that do not set one.
func WithPageSize(size int) Option {
	return func(o *options) {
		o.pageSize = size
	}
}

// WithResolveConcurrency bounds the symbols resolved at the same time for one page.
func WithResolveConcurrency(n int) Option {
	return func(o *options) {
		o.resolveConcurrency = n
	}
}

// New returns a Client. Symbols are resolved through symbols, which maps
// instrument ids to tickers and may be shared with other clients. When symbols
// is nil the client resolves symbols through a cache of its own.
func New(client *httpclient.Client, symbols *resolve.Cache[string], opts ...Option) *Client {
	o := options{
		logger:             logger.NewNoopLogger(),
		resolveSymbols:     true,
		pageSize:           DefaultPageSize,
		resolveConcurrency: defaultResolveConcurrency,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.pageSize <= 0 {
		o.pageSize = DefaultPageSize
	}

	if symbols == nil {
		symbols = instruments.New(client, instruments.WithLogger(o.logger)).SymbolCache()
	}

	return &Client{
		http:           client,
		logger:         o.logger,
		symbols:        symbols,
		pipeline:       enrich.New(symbols, instrumentKey, enrich.WithLogger(o.logger), enrich.WithMaxConcurrency(o.resolveConcurrency)),
		resolveSymbols: o.resolveSymbols,
		pageSize:       o.pageSize,
	}
}

// SymbolCache returns the cache symbols are resolved through.
func (c *Client) SymbolCache() *resolve.Cache[string] {
	return c.symbols
}

func (c *Client) shouldResolve(override *bool) bool {
	if override != nil {
		return *override
	}
	return c.resolveSymbols
}

// GetStockOrder fetches a single stock order.
func (c *Client) GetStockOrder(ctx context.Context, req StockOrderRequest) (*StockOrder, error) {
	ctx, span := tracer.Start(ctx, "orders.GetStockOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order_id", req.OrderID))

	if err := req.validate(); err != nil {
		return nil, err
	}

	var order StockOrder
	if err := c.http.GetJSON(ctx, orderPath(stockOrdersEndpoint, req.OrderID), accountParams(req.AccountNumber), &order); err != nil {
		return nil, err
	}

	if c.shouldResolve(req.ResolveSymbols) {
		records := c.pipeline.Enrich(ctx, []StockOrder{order})
		order = withSymbol(records[0])
	}

	return &order, nil
}

// GetStockOrders returns the stock orders of an account, newest first. Only
// the first page is fetched before returning.
func (c *Client) GetStockOrders(ctx context.Context, req StockOrdersRequest) (*cursor.Result[StockOrder], error) {
	ctx, span := tracer.Start(ctx, "orders.GetStockOrders")
	defer span.End()

	if err := req.validate(); err != nil {
		return nil, err
	}

	fetcher := newPageFetcher[StockOrder](c.http, stockOrdersEndpoint, req.params(c.pageSize))
	if c.shouldResolve(req.ResolveSymbols) {
		fetcher = resolvingFetcher(c.pipeline.Fetcher(fetcher))
	}

	return cursor.NewResult(ctx, cursor.New(fetcher,
		cursor.WithLogger(c.logger),
		cursor.WithResource("stock_orders")))
}

// GetOptionsOrder fetches a single options order.
func (c *Client) GetOptionsOrder(ctx context.Context, req OptionsOrderRequest) (*OptionsOrder, error) {
	ctx, span := tracer.Start(ctx, "orders.GetOptionsOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order_id", req.OrderID))

	if err := req.validate(); err != nil {
		return nil, err
	}

	var order OptionsOrder
	if err := c.http.GetJSON(ctx, orderPath(optionsOrdersEndpoint, req.OrderID), accountParams(req.AccountNumber), &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOptionsOrders returns the options orders of an account, newest first.
func (c *Client) GetOptionsOrders(ctx context.Context, req OptionsOrdersRequest) (*cursor.Result[OptionsOrder], error) {
	ctx, span := tracer.Start(ctx, "orders.GetOptionsOrders")
	defer span.End()

	if err := req.validate(); err != nil {
		return nil, err
	}

	fetcher := newPageFetcher[OptionsOrder](c.http, optionsOrdersEndpoint, req.params(c.pageSize))

	return cursor.NewResult(ctx, cursor.New(fetcher,
		cursor.WithLogger(c.logger),
		cursor.WithResource("options_orders")))
}

func orderPath(endpoint, id string) string {
	return fmt.Sprintf("%s%s/", endpoint, url.PathEscape(id))
}

// instrumentKey keys a stock order by the id in its instrument URL, falling
// back to the instrument_id field. Orders with neither a valid URL nor a valid
// id are keyless.
func instrumentKey(order StockOrder) (string, bool) {
	if id, err := instruments.ExtractInstrumentID(order.Instrument); err == nil {
		return id, true
	}
	if instruments.IsInstrumentID(order.InstrumentID) {
		return order.InstrumentID, true
	}
	return "", false
}

func withSymbol(record enrich.Record[StockOrder, string]) StockOrder {
	order := record.Item
	if record.Resolved && order.Symbol == "" {
		order.Symbol = record.Value
	}
	return order
}

// resolvingFetcher folds the resolved symbol of every record back into its order.
func resolvingFetcher(f cursor.PageFetcher[enrich.Record[StockOrder, string]]) cursor.PageFetcher[StockOrder] {
	return cursor.PageFetcherFunc[StockOrder](func(ctx context.Context, token string) (*cursor.Page[StockOrder], error) {
		page, err := f.FetchPage(ctx, token)
		if err != nil || page == nil {
			return nil, err
		}

		items := make([]StockOrder, len(page.Items))
		for i, record := range page.Items {
			items[i] = withSymbol(record)
		}
		return &cursor.Page[StockOrder]{
			Items:    items,
			Next:     page.Next,
			Previous: page.Previous,
			Count:    page.Count,
		}, nil
	})
}
