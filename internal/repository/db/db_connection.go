package db

import (
	"context"
	"database/sql"
	"fmt"

	"devsecops_api/internal/dbx"
	"devsecops_api/internal/logger"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const (
	sqliteDriverName   = "sqlite"
	postgresDriverName = "pgx"

	defaultSQLitePath   = "app.db"
	defaultMaxOpenConns = 10
)

// Config selects and tunes the backing store.
type Config struct {
	Driver       string
	DSN          string
	MaxOpenConns int
}

// InitDB opens the configured database, applies pending migrations and
// verifies the connection. The returned dialect drives placeholder rebinding.
func InitDB(ctx context.Context, cfg Config, log *logger.Logger) (*sql.DB, dbx.Dialect, error) {
	dialect, err := dbx.ParseDialect(cfg.Driver)
	if err != nil {
		return nil, "", err
	}

	var conn *sql.DB
	switch dialect {
	case dbx.Postgres:
		conn, err = openPostgres(cfg)
	default:
		conn, err = openSQLite(ctx, cfg.DSN)
	}
	if err != nil {
		return nil, "", err
	}

	if err := RunMigrations(ctx, conn, dialect, log); err != nil {
		_ = conn.Close()
		return nil, "", err
	}

	// Fail fast if the DB cannot be reached
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, "", fmt.Errorf("ping %s: %w", dialect, err)
	}

	return conn, dialect, nil
}

// openSQLite opens/creates a SQLite DB file with conservative pool settings.
func openSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		path = defaultSQLitePath
	}
	conn, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}

	// SQLite is not great with many writers
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	} {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}
	return conn, nil
}

func openPostgres(cfg Config) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres dsn is empty")
	}
	conn, err := sql.Open(postgresDriverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = defaultMaxOpenConns
	}
	conn.SetMaxOpenConns(maxOpen)
	conn.SetMaxIdleConns(maxOpen / 2)
	return conn, nil
}
