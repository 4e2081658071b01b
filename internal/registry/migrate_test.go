package registry

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "sqitch.db")
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_pragma=foreign_keys(ON)")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestEnsureInstallsBaseline(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, Ensure(ctx, db, "sqlite", "Ada Lovelace", "ada@example.com"))

	v, err := CurrentVersion(ctx, db)
	require.NoError(t, err)
	require.Equal(t, CurrentBaselineVersion, v)

	var count int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM changes`).Scan(&count))
	require.Equal(t, 0, count)
}

func TestEnsureIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, Ensure(ctx, db, "sqlite", "Ada Lovelace", "ada@example.com"))
	require.NoError(t, Ensure(ctx, db, "sqlite", "Ada Lovelace", "ada@example.com"))

	var count int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM releases`).Scan(&count))
	require.Equal(t, 1, count)
}

func TestCatalogUnknownEngine(t *testing.T) {
	_, err := Catalog("oracle")
	require.Error(t, err)
}
