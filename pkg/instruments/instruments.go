// Package instruments looks up tradable instruments and maps instrument
// identifiers to ticker symbols.
package instruments

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/robinhood-client/robinhood-client-go/pkg/httpclient"
	"github.com/robinhood-client/robinhood-client-go/pkg/logger"
	"github.com/robinhood-client/robinhood-client-go/pkg/resolve"
)

var tracer = otel.Tracer("rhclient/pkg/instruments")

// SymbolCacheName names the symbol cache in logs and metrics.
const SymbolCacheName = "instrument_symbols"

var (
	ErrInvalidInstrumentURL = errors.New("invalid instrument url")
	ErrInvalidInstrumentID  = errors.New("invalid instrument id")
	ErrSymbolNotFound       = errors.New("instrument has no symbol")
)

// Instrument is a tradable security.
type Instrument struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	Symbol     string `json:"symbol"`
	Name       string `json:"name"`
	SimpleName string `json:"simple_name"`
	Type       string `json:"type"`
	State      string `json:"state"`
	Market     string `json:"market"`
	Country    string `json:"country"`
	Tradeable  bool   `json:"tradeable"`
}

// Client reads instruments from the API. Symbol lookups made through
// SymbolByURL go through a resolve.Cache that may be shared with other
// components.
type Client struct {
	http   *httpclient.Client
	logger logger.Logger
	cache  *resolve.Cache[string]

	cacheOptions []resolve.CacheOption
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithSymbolCache makes the client use cache for symbol lookups. The cache
// must be backed by a resolver that maps instrument ids to symbols, such as
// the one returned by SymbolResolver.
func WithSymbolCache(cache *resolve.Cache[string]) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// WithSymbolCacheOptions configures the symbol cache the client builds when
// WithSymbolCache is not given.
func WithSymbolCacheOptions(opts ...resolve.CacheOption) Option {
	return func(c *Client) {
		c.cacheOptions = append(c.cacheOptions, opts...)
	}
}

// New returns a Client. Unless WithSymbolCache is given, the client builds its
// own symbol cache backed by SymbolResolver.
func New(client *httpclient.Client, opts ...Option) *Client {
	c := &Client{
		http:   client,
		logger: logger.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.cache == nil {
		opts := append([]resolve.CacheOption{
			resolve.WithLogger(c.logger),
			resolve.WithName(SymbolCacheName),
		}, c.cacheOptions...)
		c.cache = resolve.NewCache[string](c.SymbolResolver(), opts...)
	}

	return c
}

func instrumentPath(id string) string {
	return fmt.Sprintf("instruments/%s/", url.PathEscape(id))
}

// GetInstrument fetches the instrument with the given id.
func (c *Client) GetInstrument(ctx context.Context, id string) (*Instrument, error) {
	ctx, span := tracer.Start(ctx, "instruments.GetInstrument")
	defer span.End()
	span.SetAttributes(attribute.String("instrument_id", id))

	if err := validateID(id); err != nil {
		return nil, err
	}

	var instrument Instrument
	if err := c.http.GetJSON(ctx, instrumentPath(id), nil, &instrument); err != nil {
		return nil, err
	}
	return &instrument, nil
}

// Symbol fetches the ticker symbol of the instrument with the given id. It
// bypasses the symbol cache.
func (c *Client) Symbol(ctx context.Context, id string) (string, error) {
	ctx, span := tracer.Start(ctx, "instruments.Symbol")
	defer span.End()
	span.SetAttributes(attribute.String("instrument_id", id))

	if err := validateID(id); err != nil {
		return "", err
	}

	body, err := c.http.Get(ctx, instrumentPath(id), nil)
	if err != nil {
		return "", err
	}

	symbol := gjson.GetBytes(body, "symbol")
	if symbol.Type != gjson.String || symbol.Str == "" {
		return "", fmt.Errorf("%w: %s", ErrSymbolNotFound, id)
	}
	return symbol.Str, nil
}

// SymbolResolver returns a resolve.Resolver that maps instrument ids to symbols.
func (c *Client) SymbolResolver() resolve.Resolver[string] {
	return resolve.ResolverFunc[string](c.Symbol)
}

// SymbolCache returns the cache used by SymbolByURL and SymbolByID.
func (c *Client) SymbolCache() *resolve.Cache[string] {
	return c.cache
}

// SymbolByID returns the symbol of the instrument with the given id, resolving
// it through the symbol cache. It returns false when the symbol could not be
// resolved.
func (c *Client) SymbolByID(ctx context.Context, id string) (string, bool) {
	return c.cache.GetOrFetch(ctx, id)
}

// SymbolByURL is SymbolByID for an instrument URL. It returns false when the
// URL does not address an instrument.
func (c *Client) SymbolByURL(ctx context.Context, instrumentURL string) (string, bool) {
	id, err := ExtractInstrumentID(instrumentURL)
	if err != nil {
		c.logger.DebugWithContext(ctx, "skipping symbol lookup",
			zap.String("url", instrumentURL),
			zap.Error(err))
		return "", false
	}
	return c.SymbolByID(ctx, id)
}

// ExtractInstrumentID returns the instrument id addressed by an instrument URL
// such as https://api.robinhood.com/instruments/{id}/.
func ExtractInstrumentID(instrumentURL string) (string, error) {
	if instrumentURL == "" {
		return "", fmt.Errorf("%w: empty url", ErrInvalidInstrumentURL)
	}

	u, err := url.Parse(instrumentURL)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidInstrumentURL, err)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := len(segments) - 2; i >= 0; i-- {
		if segments[i] != "instruments" {
			continue
		}
		id := segments[i+1]
		if validateID(id) != nil {
			break
		}
		return id, nil
	}

	return "", fmt.Errorf("%w: '%s'", ErrInvalidInstrumentURL, instrumentURL)
}

// IsInstrumentID reports whether id is a well-formed instrument id.
func IsInstrumentID(id string) bool {
	return validateID(id) == nil
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: '%s'", ErrInvalidInstrumentID, id)
	}
	return nil
}
