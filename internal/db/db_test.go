package db

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/membot/internal/config"
)

func TestOpenSQLiteAppliesMigrationsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "membot.db")
	conn, err := Open(config.DatabaseConfig{Driver: DriverSQLite, DSN: path})
	require.NoError(t, err)
	require.NoError(t, ApplyMigrations(conn))

	var cnt int
	require.NoError(t, conn.Get(&cnt, "SELECT COUNT(*) FROM schema_migrations"))
	require.Equal(t, 2, cnt)
	require.NoError(t, conn.Close())

	conn, err = Open(config.DatabaseConfig{Driver: DriverSQLite, DSN: path})
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.Get(&cnt, "SELECT COUNT(*) FROM schema_migrations"))
	require.Equal(t, 2, cnt)
}

func TestOpenSQLiteMovesCorruptFileAside(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "membot.db")
	garbage := strings.Repeat("this is not a sqlite database ", 200)
	require.NoError(t, os.WriteFile(path, []byte(garbage), 0o644))

	conn, err := Open(config.DatabaseConfig{Driver: DriverSQLite, DSN: path})
	require.NoError(t, err)
	defer conn.Close()

	var cnt int
	require.NoError(t, conn.Get(&cnt, "SELECT COUNT(*) FROM turns"))
	require.Equal(t, 0, cnt)

	matches, err := filepath.Glob(path + ".corrupt-*")
	require.NoError(t, err)
	require.NotEmpty(t, matches)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "mysql", DSN: "x"})
	require.Error(t, err)
}

func TestParseMigrationName(t *testing.T) {
	v, desc, ok := parseMigrationName("0003_add_index.sql")
	require.True(t, ok)
	require.Equal(t, 3, v)
	require.Equal(t, "add_index", desc)

	_, _, ok = parseMigrationName("readme.sql")
	require.False(t, ok)
}
