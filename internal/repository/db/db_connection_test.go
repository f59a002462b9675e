package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"devsecops_api/internal/dbx"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
)

func TestInitDB_SQLiteAppliesMigrations(t *testing.T) {
	ctx := context.Background()
	conn, dialect, err := InitDB(ctx, Config{Driver: "sqlite", DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.Equal(t, dbx.SQLite, dialect)

	var name string
	err = conn.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'users'`).Scan(&name)
	require.NoError(t, err)
	require.Equal(t, "users", name)

	// a second run finds nothing pending
	require.NoError(t, RunMigrations(ctx, conn, dialect, nil))
}

func TestInitDB_SQLiteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.db")
	conn, _, err := InitDB(context.Background(), Config{DSN: path}, nil)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	// reopening an already migrated file succeeds
	conn, _, err = InitDB(context.Background(), Config{DSN: path}, nil)
	require.NoError(t, err)
	require.NoError(t, conn.Close())
}

func TestInitDB_UniqueEmail(t *testing.T) {
	ctx := context.Background()
	conn, _, err := InitDB(ctx, Config{DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	const q = `INSERT INTO users (email, username, password_hash, created_at) VALUES ('a@b.com', 'a', 'h', CURRENT_TIMESTAMP)`
	_, err = conn.ExecContext(ctx, q)
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, q)
	require.Error(t, err)
}

func TestInitDB_Errors(t *testing.T) {
	ctx := context.Background()

	_, _, err := InitDB(ctx, Config{Driver: "mysql"}, nil)
	require.Error(t, err)

	_, _, err = InitDB(ctx, Config{Driver: "postgres"}, nil)
	require.ErrorContains(t, err, "dsn is empty")
}

func TestRunMigrations_PropagatesError(t *testing.T) {
	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		require.Equal(t, "migrations/postgres", dir)
		return errors.New("boom")
	}
	defer func() { gooseUpContext = orig }()

	err := RunMigrations(context.Background(), nil, dbx.Postgres, nil)
	require.ErrorContains(t, err, "apply migrations")
}
