// Package engine implements the per-database adapter abstraction of
// spec §4.E: connecting to workspace and registry databases, ensuring
// the registry schema is current, attaching the registry alongside
// the workspace for engines that support it, and executing deploy
// scripts with the correct transaction discipline. SQLite is the
// reference implementation (ncruces/go-sqlite3, a pure-Go driver,
// matching the teacher's internal/storage/sqlite choice); MySQL and
// PostgreSQL are specified but stubbed per spec §4.E.
package engine

import (
	"context"
	"database/sql"
	"regexp"
	"strings"

	"github.com/sqlitch/sqlitch/internal/coreerr"
	"github.com/sqlitch/sqlitch/internal/engine/sqlsplit"
	"github.com/sqlitch/sqlitch/internal/registry"
)

// Adapter is the per-engine connection and execution surface.
type Adapter interface {
	// ConnectWorkspace opens (or reuses) the workspace database handle.
	ConnectWorkspace(ctx context.Context) (*sql.DB, error)
	// ConnectRegistry opens (or reuses) the registry database handle.
	ConnectRegistry(ctx context.Context) (*sql.DB, error)
	// EnsureRegistry installs/upgrades the registry schema.
	EnsureRegistry(ctx context.Context, installerName, installerEmail string) error
	// AttachRegistry makes the registry visible to the workspace
	// connection as schema "sqitch", where the engine requires it.
	AttachRegistry(ctx context.Context) error
	// DetachRegistry undoes AttachRegistry.
	DetachRegistry(ctx context.Context) error
	// ExecuteScript runs sqlText against the workspace connection,
	// honoring the caller's transaction-mode decision (spec §4.E).
	ExecuteScript(ctx context.Context, sqlText string, managesOwnTransactions bool) error
	// ExecuteScriptDryRun runs sqlText inside a transaction that is
	// always rolled back, win or lose — used by verify (spec §4.G),
	// which must never mutate the workspace.
	ExecuteScriptDryRun(ctx context.Context, sqlText string) error
	// Name returns the canonical engine name this adapter serves.
	Name() string
}

// CanonicalizeName collapses engine-name aliases, per spec §4.E.
func CanonicalizeName(input string) string {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "postgres", "postgresql":
		return "pg"
	case "mariadb":
		return "mysql"
	default:
		return strings.ToLower(strings.TrimSpace(input))
	}
}

// topLevelTxnRe matches a BEGIN/COMMIT/ROLLBACK keyword that opens a
// statement, after any leading whitespace and "--" comment lines,
// tolerant of a trailing TRANSACTION/WORK keyword and case. A BEGIN
// further inside a statement (such as a trigger body) does not match.
var topLevelTxnRe = regexp.MustCompile(`(?i)^(?:\s*--[^\n]*\n)*\s*(BEGIN|COMMIT|ROLLBACK)\b`)

// ManagesOwnTransactions reports whether sqlText contains an explicit
// top-level BEGIN/COMMIT/ROLLBACK, per spec §4.G step 4.b
// ("Determine transaction mode by scanning script for top-level
// BEGIN/COMMIT/ROLLBACK, whitespace/comment tolerant"). Detection
// works off the same statement split execute_script itself uses, so a
// BEGIN buried inside a string literal or a multi-line CHECK() is
// never mistaken for a transaction directive.
func ManagesOwnTransactions(sqlText string) bool {
	for _, stmt := range sqlsplit.Split(sqlText) {
		if topLevelTxnRe.MatchString(stmt) {
			return true
		}
	}
	return false
}

// NewRecorder returns a registry.Recorder bound to db for project,
// a thin convenience so command-layer code does not need to import
// the registry package directly alongside engine.
func NewRecorder(db *sql.DB, project string) *registry.Recorder {
	return registry.New(db, project)
}

// errNotImplemented is returned by MySQL/PostgreSQL adapters'
// ConnectRegistry per spec §4.E: "their connect_registry may raise
// NotImplementedError in the initial build".
var errNotImplemented = coreerr.ErrEngineNotImplemented
