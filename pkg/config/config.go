// Package config contains the configuration of the client and the rhclient command.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/robinhood-client/robinhood-client-go/internal/build"
	"github.com/robinhood-client/robinhood-client-go/pkg/auth"
	"github.com/robinhood-client/robinhood-client-go/pkg/httpclient"
	"github.com/robinhood-client/robinhood-client-go/pkg/orders"
	"github.com/robinhood-client/robinhood-client-go/pkg/session"
)

const (
	DefaultSessionEngine      = "file"
	DefaultResolveConcurrency = 8
	DefaultConnectTimeout     = 10 * time.Second
	DefaultOTLPEndpoint       = "0.0.0.0:4317"
	DefaultTraceSampleRatio   = 0.2
)

var ErrInvalidConfig = errors.New("invalid config")

var (
	logFormats     = []string{"text", "json"}
	logLevels      = []string{"none", "debug", "info", "warn", "error"}
	sessionEngines = []string{"memory", "file", "sqlite", "postgres", "mysql"}
)

type APIConfig struct {
	// BaseURL is the URL relative API paths are resolved against.
	BaseURL string

	// APIVersion is sent in the X-Robinhood-API-Version header.
	APIVersion string

	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration

	// RetryMax is the number of times a failed request is retried. Zero disables retries.
	RetryMax int
}

type LogConfig struct {
	// Format is the log format to use in the log output (e.g. 'text' or 'json')
	Format string

	// Level is the log level to use in the log output (e.g. 'none', 'debug', or 'info')
	Level string
}

type SessionConfig struct {
	// Engine is one of memory, file, sqlite, postgres or mysql.
	Engine string

	// Path is the session directory of the file engine.
	Path string

	// URI is the connection string of the SQL engines.
	URI string

	// EncryptionKey seals tokens at rest when set.
	EncryptionKey string

	// Profile selects which stored session is used.
	Profile string

	AutoMigrate    bool
	ConnectTimeout time.Duration
}

type AuthConfig struct {
	ClientID            string
	PersistSession      bool
	PollInterval        time.Duration
	VerificationTimeout time.Duration
}

// OrdersConfig defines how order listings are fetched and enriched.
type OrdersConfig struct {
	PageSize int

	// ResolveSymbols turns on symbol resolution for stock orders by default.
	ResolveSymbols bool

	// ResolveConcurrency bounds the symbols resolved at the same time for one page.
	ResolveConcurrency int

	// RetryFailedSymbols makes a symbol that failed to resolve be looked up
	// again the next time it is needed instead of staying failed until the
	// cache is cleared.
	RetryFailedSymbols bool
}

type MetricConfig struct {
	// Enabled registers the session store database metrics with the default prometheus registry.
	Enabled bool
}

// TraceConfig defines the OpenTelemetry tracing of API calls.
type TraceConfig struct {
	Enabled bool

	// OTLPEndpoint is the host:port of the OTLP gRPC collector.
	OTLPEndpoint string

	SampleRatio float64

	// SlowThreshold exports only the traces that lasted at least this long. Zero exports every sampled trace.
	SlowThreshold time.Duration
}

type Config struct {
	API     APIConfig
	Log     LogConfig
	Session SessionConfig
	Auth    AuthConfig
	Orders  OrdersConfig
	Metrics MetricConfig
	Trace   TraceConfig
}

// Verify returns an error wrapping ErrInvalidConfig when cfg cannot be used.
func (cfg *Config) Verify() error {
	u, err := url.Parse(cfg.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: 'api.baseURL' must be an absolute url, got '%s'", ErrInvalidConfig, cfg.API.BaseURL)
	}

	if cfg.API.Timeout <= 0 {
		return fmt.Errorf("%w: 'api.timeout' must be positive", ErrInvalidConfig)
	}

	if cfg.API.RetryMax < 0 {
		return fmt.Errorf("%w: 'api.retryMax' must not be negative", ErrInvalidConfig)
	}

	if !slices.Contains(logFormats, cfg.Log.Format) {
		return fmt.Errorf("%w: 'log.format' must be one of %q", ErrInvalidConfig, logFormats)
	}

	if !slices.Contains(logLevels, cfg.Log.Level) {
		return fmt.Errorf("%w: 'log.level' must be one of %q", ErrInvalidConfig, logLevels)
	}

	if !slices.Contains(sessionEngines, cfg.Session.Engine) {
		return fmt.Errorf("%w: 'session.engine' must be one of %q", ErrInvalidConfig, sessionEngines)
	}

	switch cfg.Session.Engine {
	case "file":
		if cfg.Session.Path == "" {
			return fmt.Errorf("%w: 'session.path' is required by the file engine", ErrInvalidConfig)
		}
	case "sqlite", "postgres", "mysql":
		if cfg.Session.URI == "" {
			return fmt.Errorf("%w: 'session.uri' is required by the %s engine", ErrInvalidConfig, cfg.Session.Engine)
		}
	}

	if err := session.ValidateProfile(cfg.Session.Profile); err != nil {
		return fmt.Errorf("%w: 'session.profile': %w", ErrInvalidConfig, err)
	}

	if cfg.Auth.PollInterval <= 0 || cfg.Auth.VerificationTimeout <= 0 {
		return fmt.Errorf("%w: 'auth.pollInterval' and 'auth.verificationTimeout' must be positive", ErrInvalidConfig)
	}

	if cfg.Auth.PollInterval > cfg.Auth.VerificationTimeout {
		return fmt.Errorf(
			"%w: 'auth.verificationTimeout' (%s) cannot be lower than 'auth.pollInterval' (%s)",
			ErrInvalidConfig,
			cfg.Auth.VerificationTimeout,
			cfg.Auth.PollInterval,
		)
	}

	if cfg.Orders.PageSize <= 0 {
		return fmt.Errorf("%w: 'orders.pageSize' must be positive", ErrInvalidConfig)
	}

	if cfg.Orders.ResolveConcurrency <= 0 {
		return fmt.Errorf("%w: 'orders.resolveConcurrency' must be positive", ErrInvalidConfig)
	}

	if cfg.Trace.SampleRatio < 0 || cfg.Trace.SampleRatio > 1 {
		return fmt.Errorf("%w: 'trace.sampleRatio' must be between 0 and 1, got %v", ErrInvalidConfig, cfg.Trace.SampleRatio)
	}

	if cfg.Trace.Enabled && cfg.Trace.OTLPEndpoint == "" {
		return fmt.Errorf("%w: 'trace.otlpEndpoint' is required when tracing is enabled", ErrInvalidConfig)
	}

	if cfg.Trace.SlowThreshold < 0 {
		return fmt.Errorf("%w: 'trace.slowThreshold' must not be negative", ErrInvalidConfig)
	}

	return nil
}

// DefaultSessionPath returns the directory of the file session engine.
func DefaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("."+build.ProjectName, "sessions")
	}
	return filepath.Join(home, "."+build.ProjectName, "sessions")
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:    httpclient.DefaultBaseURL,
			APIVersion: httpclient.DefaultAPIVersion,
			Timeout:    httpclient.DefaultTimeout,
		},
		Log: LogConfig{
			Format: "text",
			Level:  "info",
		},
		Session: SessionConfig{
			Engine:         DefaultSessionEngine,
			Path:           DefaultSessionPath(),
			Profile:        auth.DefaultProfile,
			AutoMigrate:    true,
			ConnectTimeout: DefaultConnectTimeout,
		},
		Auth: AuthConfig{
			ClientID:            auth.DefaultClientID,
			PersistSession:      true,
			PollInterval:        auth.DefaultPollInterval,
			VerificationTimeout: auth.DefaultVerificationTimeout,
		},
		Orders: OrdersConfig{
			PageSize:           orders.DefaultPageSize,
			ResolveSymbols:     true,
			ResolveConcurrency: DefaultResolveConcurrency,
			RetryFailedSymbols: true,
		},
		Trace: TraceConfig{
			OTLPEndpoint: DefaultOTLPEndpoint,
			SampleRatio:  DefaultTraceSampleRatio,
		},
	}
}

// MustDefaultConfig returns the default configuration with an in-memory session store and logging turned off.
func MustDefaultConfig() *Config {
	cfg := DefaultConfig()

	cfg.Session.Engine = "memory"
	cfg.Session.Path = ""
	cfg.Log.Level = "none"

	return cfg
}
