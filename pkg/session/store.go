package session

import (
	"context"
	"fmt"
	"time"

	"github.com/robinhood-client/robinhood-client-go/pkg/encoder"
	"github.com/robinhood-client/robinhood-client-go/pkg/logger"
)

// Store persists sessions keyed by profile name.
type Store interface {
	// Load returns the session stored for profile, or ErrNotFound.
	Load(ctx context.Context, profile string) (*Session, error)

	// Save replaces the session stored for profile.
	Save(ctx context.Context, profile string, s *Session) error

	// Delete removes the session stored for profile. Deleting a missing session is not an error.
	Delete(ctx context.Context, profile string) error

	// Close releases the resources held by the store.
	Close() error
}

// Config selects and configures a Store.
type Config struct {
	// Engine is one of memory, file, sqlite, postgres or mysql.
	Engine string

	// Path is the directory of the file engine.
	Path string

	// URI is the connection string of the SQL engines.
	URI string

	// EncryptionKey seals the tokens at rest. Empty stores them in plain text.
	EncryptionKey string

	// AutoMigrate applies pending schema migrations when a SQL store is opened.
	AutoMigrate bool

	// ConnectTimeout bounds how long opening a SQL store waits for the database.
	ConnectTimeout time.Duration

	// ExportMetrics registers database connection metrics.
	ExportMetrics bool

	Logger logger.Logger
}

// Open returns the Store selected by cfg.Engine.
func Open(ctx context.Context, cfg Config) (Store, error) {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoopLogger()
	}

	sealer, err := encoder.NewSealer(cfg.EncryptionKey)
	if err != nil {
		return nil, err
	}

	switch cfg.Engine {
	case "memory", "":
		return NewMemoryStore(), nil
	case "file":
		return NewFileStore(cfg.Path, sealer)
	case "sqlite", "postgres", "mysql":
		return NewSQLStore(ctx, cfg, sealer)
	default:
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownEngine, cfg.Engine)
	}
}
