package commutedb

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"commute.trackapp.dev/internal/appconf"
	"commute.trackapp.dev/internal/logging"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	_ "github.com/mattn/go-sqlite3"    // CGo-based SQLite driver, registers "sqlite3"
	_ "modernc.org/sqlite"             // pure-Go SQLite driver, registers "sqlite"
)

// Config selects the database backing the commute store.
type Config struct {
	Driver  string
	DSN     string
	Env     appconf.Environment
	Verbose bool
}

func NewConfig(driver, dsn string, env appconf.Environment, verbose bool) Config {
	return Config{Driver: driver, DSN: dsn, Env: env, Verbose: verbose}
}

func (c Config) isSQLite() bool {
	return c.Driver == appconf.DriverSQLite3 || c.Driver == appconf.DriverSQLite
}

func (c Config) isInMemory() bool {
	return c.isSQLite() && strings.Contains(c.DSN, ":memory:")
}

// Client owns the database handle and the query set bound to it.
type Client struct {
	config  Config
	DB      *sqlx.DB
	Queries *Queries
}

// NewClient opens the database, applies connection settings and migrates the schema.
func NewClient(config Config) (*Client, error) {
	db, err := createDB(config)
	if err != nil {
		return nil, fmt.Errorf("unable to create DB: %w", err)
	}
	if config.Verbose {
		logging.LogOperation(slog.Default().With(slog.String("component", "commutedb")),
			"database_ready",
			slog.String("driver", config.Driver),
			slog.Int("schema_version", SchemaVersion))
	}

	return &Client{
		config:  config,
		DB:      db,
		Queries: New(db),
	}, nil
}

func (c *Client) Close() error {
	return c.DB.Close()
}

func (c *Client) Driver() string {
	return c.config.Driver
}

// Ping verifies the database is reachable.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return c.DB.PingContext(ctx)
}

func createDB(config Config) (*sqlx.DB, error) {
	switch config.Driver {
	case appconf.DriverSQLite3, appconf.DriverSQLite, appconf.DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported driver %q", config.Driver)
	}
	if config.Env == appconf.Test && config.isSQLite() && !config.isInMemory() {
		return nil, fmt.Errorf("test database must use in-memory storage, got path: %s", config.DSN)
	}

	db, err := sqlx.Open(config.Driver, config.DSN)
	if err != nil {
		return nil, err
	}

	configureConnectionPool(db, config)

	ctx := context.Background()
	logger := slog.Default().With(slog.String("component", "commutedb"))
	if config.isSQLite() {
		if err := configureSQLite(ctx, db, config); err != nil {
			logging.SafeCloseWithLogging(db, logger, "commute store")
			return nil, fmt.Errorf("error configuring SQLite: %w", err)
		}
	}

	if err := migrate(ctx, db, config.Driver); err != nil {
		logging.SafeCloseWithLogging(db, logger, "commute store")
		return nil, fmt.Errorf("error performing database migration: %w", err)
	}

	return db, nil
}

// configureConnectionPool pins SQLite to one connection: an in-memory database
// exists per connection, and a single writer avoids SQLITE_BUSY for a store
// that serves one rider's history.
func configureConnectionPool(db *sqlx.DB, config Config) {
	if config.isSQLite() {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		return
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
}

func configureSQLite(ctx context.Context, db *sqlx.DB, config Config) error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	if !config.isInMemory() {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL", "PRAGMA synchronous = NORMAL")
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}
