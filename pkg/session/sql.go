package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/cenkalti/backoff/v4"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/robinhood-client/robinhood-client-go/internal/build"
	"github.com/robinhood-client/robinhood-client-go/pkg/encoder"
	"github.com/robinhood-client/robinhood-client-go/pkg/logger"
)

var tracer = otel.Tracer("rhclient/pkg/session")

func startTrace(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "session."+name)
}

const sessionTable = "session"

// SQLStore keeps sessions in a relational database.
type SQLStore struct {
	engine           string
	stbl             sq.StatementBuilderType
	db               *sql.DB
	sealer           *encoder.Sealer
	logger           logger.Logger
	dbStatsCollector prometheus.Collector
}

var _ Store = (*SQLStore)(nil)

// driverName returns the database/sql driver registered for engine.
func driverName(engine string) (string, error) {
	switch engine {
	case "sqlite":
		return "sqlite", nil
	case "postgres":
		return "pgx", nil
	case "mysql":
		return "mysql", nil
	default:
		return "", fmt.Errorf("%w: '%s'", ErrUnknownEngine, engine)
	}
}

// PrepareSQLiteDSN specifies defaults for journal mode and busy timeout unless the uri sets them.
func PrepareSQLiteDSN(uri string) (string, error) {
	query := url.Values{}
	var err error

	if i := strings.Index(uri, "?"); i != -1 {
		query, err = url.ParseQuery(uri[i+1:])
		if err != nil {
			return uri, fmt.Errorf("error parsing dsn: %w", err)
		}

		uri = uri[:i]
	}

	foundJournalMode := false
	foundBusyTimeout := false
	for _, val := range query["_pragma"] {
		if strings.HasPrefix(val, "journal_mode") {
			foundJournalMode = true
		} else if strings.HasPrefix(val, "busy_timeout") {
			foundBusyTimeout = true
		}
	}

	if !foundJournalMode {
		query.Add("_pragma", "journal_mode(WAL)")
	}
	if !foundBusyTimeout {
		query.Add("_pragma", "busy_timeout(500)")
	}

	return uri + "?" + query.Encode(), nil
}

// openDB opens and pings the database of engine, retrying the ping with backoff until timeout.
func openDB(ctx context.Context, engine, uri string, timeout time.Duration) (*sql.DB, error) {
	driver, err := driverName(engine)
	if err != nil {
		return nil, err
	}

	if engine == "sqlite" {
		if uri, err = PrepareSQLiteDSN(uri); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(driver, uri)
	if err != nil {
		return nil, fmt.Errorf("initialize %s connection: %w", engine, err)
	}

	if timeout <= 0 {
		timeout = time.Minute
	}
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = timeout
	err = backoff.Retry(func() error {
		return db.PingContext(ctx)
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize %s connection: %w", engine, err)
	}

	return db, nil
}

// NewSQLStore opens the database selected by cfg and, if cfg.AutoMigrate is set, brings its schema up to date.
func NewSQLStore(ctx context.Context, cfg Config, sealer *encoder.Sealer) (*SQLStore, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("%s session store requires a uri", cfg.Engine)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoopLogger()
	}

	db, err := openDB(ctx, cfg.Engine, cfg.URI, cfg.ConnectTimeout)
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := migrateDB(ctx, cfg.Engine, db, 0, cfg.Logger); err != nil {
			db.Close()
			return nil, err
		}
	}

	if cfg.Engine == "sqlite" {
		// a single writer avoids SQLITE_BUSY between pooled connections
		db.SetMaxOpenConns(1)
	}

	var collector prometheus.Collector
	if cfg.ExportMetrics {
		collector = collectors.NewDBStatsCollector(db, build.ProjectName)
		if err := prometheus.Register(collector); err != nil {
			db.Close()
			return nil, fmt.Errorf("initialize metrics: %w", err)
		}
	}

	stbl := sq.StatementBuilder.RunWith(db)
	if cfg.Engine == "postgres" {
		stbl = stbl.PlaceholderFormat(sq.Dollar)
	}

	return &SQLStore{
		engine:           cfg.Engine,
		stbl:             stbl,
		db:               db,
		sealer:           sealer,
		logger:           cfg.Logger,
		dbStatsCollector: collector,
	}, nil
}

func (s *SQLStore) Load(ctx context.Context, profile string) (*Session, error) {
	ctx, span := startTrace(ctx, "Load")
	defer span.End()

	var stored storedSession
	err := s.stbl.
		Select("token_type", "access_token", "refresh_token", "device_token", "account_number", "expires_in", "created_at").
		From(sessionTable).
		Where(sq.Eq{"profile": profile}).
		QueryRowContext(ctx).
		Scan(
			&stored.TokenType,
			&stored.AccessToken,
			&stored.RefreshToken,
			&stored.DeviceToken,
			&stored.AccountNumber,
			&stored.ExpiresIn,
			&stored.CreatedAt,
		)
	if err != nil {
		return nil, handleSQLError(err)
	}

	return unseal(s.sealer, stored)
}

func (s *SQLStore) Save(ctx context.Context, profile string, session *Session) error {
	ctx, span := startTrace(ctx, "Save")
	defer span.End()

	stored, err := seal(s.sealer, session)
	if err != nil {
		return err
	}

	insert := s.stbl.
		Insert(sessionTable).
		Columns("profile", "token_type", "access_token", "refresh_token", "device_token", "account_number", "expires_in", "created_at", "updated_at").
		Values(profile, stored.TokenType, stored.AccessToken, stored.RefreshToken, stored.DeviceToken, stored.AccountNumber, stored.ExpiresIn, stored.CreatedAt, time.Now().UnixMilli())

	switch s.engine {
	case "mysql":
		insert = insert.Suffix("ON DUPLICATE KEY UPDATE token_type = VALUES(token_type), access_token = VALUES(access_token), " +
			"refresh_token = VALUES(refresh_token), device_token = VALUES(device_token), account_number = VALUES(account_number), " +
			"expires_in = VALUES(expires_in), created_at = VALUES(created_at), updated_at = VALUES(updated_at)")
	default:
		insert = insert.Suffix("ON CONFLICT (profile) DO UPDATE SET token_type = excluded.token_type, access_token = excluded.access_token, " +
			"refresh_token = excluded.refresh_token, device_token = excluded.device_token, account_number = excluded.account_number, " +
			"expires_in = excluded.expires_in, created_at = excluded.created_at, updated_at = excluded.updated_at")
	}

	if _, err := insert.ExecContext(ctx); err != nil {
		return handleSQLError(err)
	}

	s.logger.DebugWithContext(ctx, "session saved", zap.String("profile", profile), zap.String("engine", s.engine))
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, profile string) error {
	ctx, span := startTrace(ctx, "Delete")
	defer span.End()

	_, err := s.stbl.
		Delete(sessionTable).
		Where(sq.Eq{"profile": profile}).
		ExecContext(ctx)
	if err != nil {
		return handleSQLError(err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	if s.dbStatsCollector != nil {
		prometheus.Unregister(s.dbStatsCollector)
	}
	return s.db.Close()
}

func handleSQLError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("sql error: %w", err)
}
