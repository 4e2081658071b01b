package engine

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/stretchr/testify/require"
)

func TestCanonicalizeName(t *testing.T) {
	require.Equal(t, "pg", CanonicalizeName("postgres"))
	require.Equal(t, "pg", CanonicalizeName("PostgreSQL"))
	require.Equal(t, "mysql", CanonicalizeName("MariaDB"))
	require.Equal(t, "sqlite", CanonicalizeName(" sqlite "))
}

func TestManagesOwnTransactionsDetectsExplicitBegin(t *testing.T) {
	require.True(t, ManagesOwnTransactions("BEGIN;\nCREATE TABLE a (id INT);\nCOMMIT;\n"))
	require.False(t, ManagesOwnTransactions("CREATE TABLE a (id INT);\n"))
}

func TestManagesOwnTransactionsIgnoresStringLiterals(t *testing.T) {
	require.False(t, ManagesOwnTransactions("INSERT INTO notes (body) VALUES ('BEGIN the process');\n"))
}

func TestSQLiteRejectsInMemoryWorkspace(t *testing.T) {
	s := &SQLite{WorkspacePath: ":memory:"}
	_, err := s.ConnectWorkspace(context.Background())
	require.Error(t, err)
}

func TestSQLiteEnsureRegistryAndAttach(t *testing.T) {
	dir := t.TempDir()
	s := &SQLite{
		WorkspacePath: filepath.Join(dir, "app.db"),
		RegistryPath:  filepath.Join(dir, "sqitch.db"),
	}
	ctx := context.Background()
	require.NoError(t, s.EnsureRegistry(ctx, "Ada Lovelace", "ada@example.com"))
	require.NoError(t, s.AttachRegistry(ctx))
	defer s.DetachRegistry(ctx)

	ws, err := s.ConnectWorkspace(ctx)
	require.NoError(t, err)
	var count int
	require.NoError(t, ws.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqitch.changes`).Scan(&count))
	require.Equal(t, 0, count)
}

func TestSQLiteExecuteScriptWrapsInTransactionOnFailure(t *testing.T) {
	dir := t.TempDir()
	s := &SQLite{WorkspacePath: filepath.Join(dir, "app.db")}
	ctx := context.Background()

	err := s.ExecuteScript(ctx, "CREATE TABLE a (id INT);\nINSERT INTO nonexistent VALUES (1);\n", false)
	require.Error(t, err)

	ws, err := s.ConnectWorkspace(ctx)
	require.NoError(t, err)
	var name string
	err = ws.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name='a'`).Scan(&name)
	require.ErrorIs(t, err, sql.ErrNoRows)
}
