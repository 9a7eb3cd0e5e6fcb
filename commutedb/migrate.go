package commutedb

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"

	"commute.trackapp.dev/internal/appconf"
	"commute.trackapp.dev/internal/logging"
)

// SchemaVersion is the schema revision written by migrate.
const SchemaVersion = 1

//go:embed schema_sqlite.sql
var sqliteDDL string

//go:embed schema_postgres.sql
var postgresDDL string

func ddlFor(driver string) string {
	if driver == appconf.DriverPostgres {
		return postgresDDL
	}
	return sqliteDDL
}

// migrate applies the embedded schema once per SchemaVersion, inside a single
// transaction so a failed statement leaves no half-built tables behind.
func migrate(ctx context.Context, db *sqlx.DB, driver string) error {
	logger := slog.Default().With(slog.String("component", "commutedb_migrate"))

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	if err := db.GetContext(ctx, &current, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`); err != nil {
		return fmt.Errorf("read current version: %w", err)
	}
	if current >= SchemaVersion {
		return nil
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer logging.SafeRollbackWithLogging(tx, logger, "schema_migration")

	for _, stmt := range strings.Split(ddlFor(driver), "-- migrate") {
		trimmed := strings.TrimSpace(stmt)
		if trimmed == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, trimmed); err != nil {
			return fmt.Errorf("error executing DDL statement [%s]: %w", trimmed, err)
		}
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO schema_migrations (version) VALUES (?)`), SchemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	logging.LogOperation(logger, "schema_migrated",
		slog.Int("from_version", current),
		slog.Int("to_version", SchemaVersion))
	return nil
}
