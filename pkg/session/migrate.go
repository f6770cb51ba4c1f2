package session

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"time"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/robinhood-client/robinhood-client-go/assets"
	"github.com/robinhood-client/robinhood-client-go/pkg/logger"
)

// MigrationConfig contains the configuration needed for running migrations.
type MigrationConfig struct {
	Engine        string
	URI           string
	TargetVersion uint
	Timeout       time.Duration
	Verbose       bool
	Logger        logger.Logger
}

// RunMigrations migrates the schema of the database described by cfg. A zero
// TargetVersion migrates to the latest version.
func RunMigrations(ctx context.Context, cfg MigrationConfig) error {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoopLogger()
	}

	db, err := openDB(ctx, cfg.Engine, cfg.URI, cfg.Timeout)
	if err != nil {
		return err
	}
	defer db.Close()

	return migrateDB(ctx, cfg.Engine, db, int64(cfg.TargetVersion), cfg.Logger, goose.WithVerbose(cfg.Verbose))
}

// CurrentVersion returns the schema version of the database described by cfg.
func CurrentVersion(ctx context.Context, cfg MigrationConfig) (int64, error) {
	db, err := openDB(ctx, cfg.Engine, cfg.URI, cfg.Timeout)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	provider, err := newProvider(cfg.Engine, db)
	if err != nil {
		return 0, err
	}

	return provider.GetDBVersion(ctx)
}

func newProvider(engine string, db *sql.DB, opts ...goose.ProviderOption) (*goose.Provider, error) {
	var dialect goose.Dialect
	var dir string
	switch engine {
	case "sqlite":
		dialect, dir = goose.DialectSQLite3, assets.SqliteMigrationDir
	case "postgres":
		dialect, dir = goose.DialectPostgres, assets.PostgresMigrationDir
	case "mysql":
		dialect, dir = goose.DialectMySQL, assets.MySQLMigrationDir
	default:
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownEngine, engine)
	}

	migrationsFS, err := fs.Sub(assets.EmbedMigrations, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s migrations filesystem: %w", engine, err)
	}

	provider, err := goose.NewProvider(dialect, db, migrationsFS, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create goose provider: %w", err)
	}
	return provider, nil
}

func migrateDB(ctx context.Context, engine string, db *sql.DB, targetVersion int64, l logger.Logger, opts ...goose.ProviderOption) error {
	provider, err := newProvider(engine, db, opts...)
	if err != nil {
		return err
	}

	currentVersion, err := provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get %s db version: %w", engine, err)
	}

	l.Debug("current schema version", zap.String("engine", engine), zap.Int64("version", currentVersion))

	if targetVersion == 0 {
		results, err := provider.Up(ctx)
		if err != nil {
			return fmt.Errorf("failed to run %s migrations: %w", engine, err)
		}
		if len(results) > 0 {
			l.Info("schema migrated", zap.String("engine", engine), zap.Int("applied", len(results)))
		}
		return nil
	}

	switch {
	case targetVersion < currentVersion:
		if _, err := provider.DownTo(ctx, targetVersion); err != nil {
			return fmt.Errorf("failed to run %s migrations down to %v: %w", engine, targetVersion, err)
		}
	case targetVersion > currentVersion:
		if _, err := provider.UpTo(ctx, targetVersion); err != nil {
			return fmt.Errorf("failed to run %s migrations up to %v: %w", engine, targetVersion, err)
		}
	default:
		l.Info("schema already at target version", zap.String("engine", engine), zap.Int64("version", currentVersion))
		return nil
	}

	l.Info("schema migrated", zap.String("engine", engine), zap.Int64("version", targetVersion))
	return nil
}
