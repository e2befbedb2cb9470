package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/xxxsen/membot/internal/config"
	"github.com/xxxsen/membot/internal/db"
)

// OpenTestDB opens a migrated sqlite database in a temp dir.
func OpenTestDB(t *testing.T) (*sqlx.DB, func()) {
	t.Helper()
	conn, err := db.Open(config.DatabaseConfig{
		Driver: db.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "membot.db"),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return conn, func() {
		_ = conn.Close()
	}
}

// OpenPostgresTestDB skips unless TEST_PG_DSN points at a postgres with the
// vector extension available.
func OpenPostgresTestDB(t *testing.T) (*sqlx.DB, func()) {
	t.Helper()
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set, skipping postgres test")
	}
	conn, err := db.Open(config.DatabaseConfig{Driver: db.DriverPostgres, DSN: dsn})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return conn, func() {
		_, _ = conn.Exec("DELETE FROM turns")
		_, _ = conn.Exec("DELETE FROM summaries")
		_, _ = conn.Exec("DELETE FROM corpus_embeddings")
		_ = conn.Close()
	}
}

// OpenSQLiteAt opens a migrated sqlite database at a fixed path so tests
// can reopen it.
func OpenSQLiteAt(t *testing.T, path string) *sqlx.DB {
	t.Helper()
	conn, err := db.Open(config.DatabaseConfig{Driver: db.DriverSQLite, DSN: path})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return conn
}
