package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/ncruces/go-sqlite3/driver" // registers the "sqlite3" database/sql driver
	_ "github.com/ncruces/go-sqlite3/embed"  // embeds the pure-Go SQLite engine, no cgo required

	"github.com/sqlitch/sqlitch/internal/coreerr"
	"github.com/sqlitch/sqlitch/internal/engine/sqlsplit"
	"github.com/sqlitch/sqlitch/internal/registry"
)

// SQLite is the reference Adapter implementation (spec §4.E "SQLite
// specifics"). The workspace and registry databases are two distinct
// files; ATTACH DATABASE makes the registry's tables visible to the
// workspace connection as schema "sqitch" for the duration of a
// deploy/revert run.
type SQLite struct {
	WorkspacePath string // empty/":memory:" rejected by deploy/verify, see ConnectWorkspace
	RegistryPath  string

	workspaceDB *sql.DB
	registryDB  *sql.DB
	attached    bool
}

var _ Adapter = (*SQLite)(nil)

func (s *SQLite) Name() string { return "sqlite" }

// dsn builds the ncruces/go-sqlite3 DSN form the teacher's storage
// layer uses: "file:<path>?_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)".
func dsn(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)"
}

func (s *SQLite) ConnectWorkspace(ctx context.Context) (*sql.DB, error) {
	if s.workspaceDB != nil {
		return s.workspaceDB, nil
	}
	if s.WorkspacePath == "" || s.WorkspacePath == ":memory:" {
		return nil, coreerr.Usage("sqlite workspace %q is not a persistent database; deploy/verify require a file-backed target", s.WorkspacePath)
	}
	db, err := sql.Open("sqlite3", dsn(s.WorkspacePath))
	if err != nil {
		return nil, coreerr.Registry(err, "opening workspace database %q", s.WorkspacePath)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, coreerr.Registry(err, "connecting to workspace database %q", s.WorkspacePath)
	}
	s.workspaceDB = db
	return db, nil
}

func (s *SQLite) ConnectRegistry(ctx context.Context) (*sql.DB, error) {
	if s.registryDB != nil {
		return s.registryDB, nil
	}
	db, err := sql.Open("sqlite3", dsn(s.RegistryPath))
	if err != nil {
		return nil, coreerr.Registry(err, "opening registry database %q", s.RegistryPath)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, coreerr.Registry(err, "connecting to registry database %q", s.RegistryPath)
	}
	s.registryDB = db
	return db, nil
}

func (s *SQLite) EnsureRegistry(ctx context.Context, installerName, installerEmail string) error {
	db, err := s.ConnectRegistry(ctx)
	if err != nil {
		return err
	}
	return registry.Ensure(ctx, db, "sqlite", installerName, installerEmail)
}

// AttachRegistry attaches the registry database file onto the
// workspace connection as schema "sqitch", per spec §4.E. It is a
// no-op if workspace and registry already point at the same file.
func (s *SQLite) AttachRegistry(ctx context.Context) error {
	if s.attached {
		return nil
	}
	ws, err := s.ConnectWorkspace(ctx)
	if err != nil {
		return err
	}
	if s.WorkspacePath == s.RegistryPath {
		return nil
	}
	if _, err := ws.ExecContext(ctx, fmt.Sprintf("ATTACH DATABASE %s AS sqitch", quoteLiteral(s.RegistryPath))); err != nil {
		return coreerr.Registry(err, "attaching registry %q to workspace", s.RegistryPath)
	}
	s.attached = true
	return nil
}

func (s *SQLite) DetachRegistry(ctx context.Context) error {
	if !s.attached {
		return nil
	}
	ws, err := s.ConnectWorkspace(ctx)
	if err != nil {
		return err
	}
	if _, err := ws.ExecContext(ctx, "DETACH DATABASE sqitch"); err != nil {
		return coreerr.Registry(err, "detaching registry from workspace")
	}
	s.attached = false
	return nil
}

// ExecuteScript runs sqlText against the workspace connection. When
// managesOwnTransactions is false the whole script runs inside one
// transaction that rolls back on any statement error, giving deploy's
// atomicity guarantee (spec §4.G) for scripts that do not manage their
// own transaction. When true, statements run directly against the
// connection so the script's own BEGIN/COMMIT/ROLLBACK take effect.
func (s *SQLite) ExecuteScript(ctx context.Context, sqlText string, managesOwnTransactions bool) error {
	ws, err := s.ConnectWorkspace(ctx)
	if err != nil {
		return err
	}
	stmts := sqlsplit.Split(sqlText)

	if managesOwnTransactions {
		// ws is a pool: separate ExecContext calls are not guaranteed
		// to share a connection, but the script's own BEGIN/COMMIT/
		// ROLLBACK are connection-scoped. Pin every statement to one
		// connection so those boundaries are honored deterministically
		// (spec §8 property 9), not by incidental pool reuse.
		conn, err := ws.Conn(ctx)
		if err != nil {
			return coreerr.Registry(err, "acquiring workspace connection")
		}
		defer conn.Close()

		for _, stmt := range stmts {
			if _, err := conn.ExecContext(ctx, stmt); err != nil {
				return coreerr.Script("", "deploy", fmt.Errorf("executing %q: %w", truncate(stmt), err))
			}
		}
		return nil
	}

	tx, err := ws.BeginTx(ctx, nil)
	if err != nil {
		return coreerr.Registry(err, "beginning workspace transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return coreerr.Script("", "deploy", fmt.Errorf("executing %q: %w", truncate(stmt), err))
		}
	}
	if err := tx.Commit(); err != nil {
		return coreerr.Registry(err, "committing workspace transaction")
	}
	return nil
}

// ExecuteScriptDryRun runs sqlText inside a transaction that is always
// rolled back, per spec §4.G "Verify": the workspace must never be
// left mutated by a verify script, success or failure.
func (s *SQLite) ExecuteScriptDryRun(ctx context.Context, sqlText string) error {
	ws, err := s.ConnectWorkspace(ctx)
	if err != nil {
		return err
	}
	tx, err := ws.BeginTx(ctx, nil)
	if err != nil {
		return coreerr.Registry(err, "beginning verify transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, stmt := range sqlsplit.Split(sqlText) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return coreerr.Script("", "verify", fmt.Errorf("executing %q: %w", truncate(stmt), err))
		}
	}
	// No Commit: rolling back (via the deferred call) is the point.
	return nil
}

func (s *SQLite) Close() error {
	var firstErr error
	if s.workspaceDB != nil {
		if err := s.workspaceDB.Close(); err != nil {
			firstErr = err
		}
	}
	if s.registryDB != nil && s.registryDB != s.workspaceDB {
		if err := s.registryDB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func truncate(s string) string {
	const max = 80
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
