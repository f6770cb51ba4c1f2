// Package rhclient is a client for the Robinhood brokerage API. New wires the
// transport, the session store, authentication and the data clients from a
// single config.Config.
package rhclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/robinhood-client/robinhood-client-go/pkg/auth"
	"github.com/robinhood-client/robinhood-client-go/pkg/config"
	"github.com/robinhood-client/robinhood-client-go/pkg/httpclient"
	"github.com/robinhood-client/robinhood-client-go/pkg/instruments"
	"github.com/robinhood-client/robinhood-client-go/pkg/logger"
	"github.com/robinhood-client/robinhood-client-go/pkg/orders"
	"github.com/robinhood-client/robinhood-client-go/pkg/resolve"
	"github.com/robinhood-client/robinhood-client-go/pkg/session"
	"github.com/robinhood-client/robinhood-client-go/pkg/telemetry"
)

const traceFlushTimeout = 5 * time.Second

// Client bundles the API clients. Every data client shares one HTTP transport,
// one authenticated session and one symbol cache.
type Client struct {
	logger logger.Logger
	http   *httpclient.Client
	store  session.Store
	auth   *auth.Authenticator
	tracer telemetry.TracerProvider

	symbols     *resolve.Cache[string]
	instruments *instruments.Client
	orders      *orders.Client
}

// Option configures a Client beyond what config.Config covers.
type Option func(*clientOptions)

type clientOptions struct {
	logger      logger.Logger
	prompt      auth.ChallengePrompt
	store       session.Store
	httpOptions []httpclient.Option
}

// WithLogger replaces the logger built from the log config.
func WithLogger(l logger.Logger) Option {
	return func(o *clientOptions) {
		o.logger = l
	}
}

// WithChallengePrompt sets the callback asked for sms or email verification codes.
func WithChallengePrompt(prompt auth.ChallengePrompt) Option {
	return func(o *clientOptions) {
		o.prompt = prompt
	}
}

// WithSessionStore replaces the store selected by the session config. The
// client does not close a store it was given.
func WithSessionStore(store session.Store) Option {
	return func(o *clientOptions) {
		o.store = store
	}
}

// WithHTTPOptions appends options to those derived from the API config.
func WithHTTPOptions(opts ...httpclient.Option) Option {
	return func(o *clientOptions) {
		o.httpOptions = append(o.httpOptions, opts...)
	}
}

// New verifies cfg and returns a Client. It does not log in; call Login or Resume.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Client, error) {
	if err := cfg.Verify(); err != nil {
		return nil, err
	}

	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}

	if o.logger == nil {
		l, err := logger.NewLogger(cfg.Log.Format, cfg.Log.Level)
		if err != nil {
			return nil, err
		}
		o.logger = l
	}

	httpClient, err := httpclient.New(append([]httpclient.Option{
		httpclient.WithBaseURL(cfg.API.BaseURL),
		httpclient.WithAPIVersion(cfg.API.APIVersion),
		httpclient.WithTimeout(cfg.API.Timeout),
		httpclient.WithRetryMax(cfg.API.RetryMax),
		httpclient.WithLogger(o.logger),
	}, o.httpOptions...)...)
	if err != nil {
		return nil, err
	}

	ownsStore := o.store == nil
	store := o.store
	if ownsStore {
		store, err = session.Open(ctx, session.Config{
			Engine:         cfg.Session.Engine,
			Path:           cfg.Session.Path,
			URI:            cfg.Session.URI,
			EncryptionKey:  cfg.Session.EncryptionKey,
			AutoMigrate:    cfg.Session.AutoMigrate,
			ConnectTimeout: cfg.Session.ConnectTimeout,
			ExportMetrics:  cfg.Metrics.Enabled,
			Logger:         o.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open session store: %w", err)
		}
	} else {
		store = unclosableStore{store}
	}

	authOpts := []auth.Option{
		auth.WithLogger(o.logger),
		auth.WithProfile(cfg.Session.Profile),
		auth.WithClientID(cfg.Auth.ClientID),
		auth.WithPersistSession(cfg.Auth.PersistSession),
		auth.WithPollInterval(cfg.Auth.PollInterval),
		auth.WithVerificationTimeout(cfg.Auth.VerificationTimeout),
	}
	if o.prompt != nil {
		authOpts = append(authOpts, auth.WithChallengePrompt(o.prompt))
	}

	tracer := telemetry.Noop()
	if cfg.Trace.Enabled {
		tracer, err = telemetry.NewTracerProvider(ctx,
			telemetry.WithOTLPEndpoint(cfg.Trace.OTLPEndpoint),
			telemetry.WithSamplingRatio(cfg.Trace.SampleRatio),
			telemetry.WithSlowTraceThreshold(cfg.Trace.SlowThreshold),
			telemetry.WithAttributes(attribute.String("profile", cfg.Session.Profile)))
		if err != nil {
			_ = store.Close()
			return nil, err
		}
	}

	instrumentsClient := instruments.New(httpClient,
		instruments.WithLogger(o.logger),
		instruments.WithSymbolCacheOptions(resolve.WithRetryFailed(cfg.Orders.RetryFailedSymbols)))
	symbols := instrumentsClient.SymbolCache()

	return &Client{
		logger:      o.logger,
		http:        httpClient,
		store:       store,
		auth:        auth.New(httpClient, store, authOpts...),
		tracer:      tracer,
		symbols:     symbols,
		instruments: instrumentsClient,
		orders: orders.New(httpClient, symbols,
			orders.WithLogger(o.logger),
			orders.WithPageSize(cfg.Orders.PageSize),
			orders.WithResolveSymbols(cfg.Orders.ResolveSymbols),
			orders.WithResolveConcurrency(cfg.Orders.ResolveConcurrency)),
	}, nil
}

// Login authenticates with creds, reusing the stored session when it is still valid.
func (c *Client) Login(ctx context.Context, creds auth.Credentials) (*session.Session, error) {
	return c.auth.Login(ctx, creds)
}

// Resume activates the stored session without credentials. It returns
// auth.ErrNoSession when there is none or it is no longer accepted.
func (c *Client) Resume(ctx context.Context) (*session.Session, error) {
	return c.auth.Resume(ctx)
}

// Logout ends the session and removes it from the store.
func (c *Client) Logout(ctx context.Context) error {
	return c.auth.Logout(ctx)
}

// Session returns the active session, or nil.
func (c *Client) Session() *session.Session {
	return c.auth.Session()
}

// Auth returns the authenticator.
func (c *Client) Auth() *auth.Authenticator {
	return c.auth
}

// Instruments returns the instruments client.
func (c *Client) Instruments() *instruments.Client {
	return c.instruments
}

// Orders returns the orders client.
func (c *Client) Orders() *orders.Client {
	return c.orders
}

// CacheStats describes the symbol cache.
func (c *Client) CacheStats() resolve.Stats {
	return c.symbols.Stats()
}

// ClearCache empties the symbol cache.
func (c *Client) ClearCache() {
	c.symbols.Clear()
}

// Close flushes the pending traces and releases the session store.
func (c *Client) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), traceFlushTimeout)
	defer cancel()

	var errs []error
	if err := c.tracer.Close(ctx); err != nil {
		c.logger.Error("failed to flush traces", zap.Error(err))
		errs = append(errs, err)
	}
	if err := c.store.Close(); err != nil {
		c.logger.Error("failed to close session store", zap.Error(err))
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// unclosableStore keeps Close from closing a store owned by the caller.
type unclosableStore struct {
	session.Store
}

func (unclosableStore) Close() error {
	return nil
}

var _ session.Store = unclosableStore{}

// IsAuthError reports whether err means the credentials or the session were rejected.
func IsAuthError(err error) bool {
	return errors.Is(err, auth.ErrAuthentication) || errors.Is(err, auth.ErrNoSession)
}
