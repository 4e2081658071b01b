// Package registry owns the fixed per-engine SQL catalog (sub-package
// schema) plus the migration-application and state-recording logic
// layered on top of it. The catalog shape is grounded on the teacher's
// internal/storage/sqlite/migrations.go `[]Migration{{Name, Func}}`
// list; here each entry additionally carries a target version (the
// registry tracks its own schema version in the `releases` table
// rather than by migration name) and a source_path for audit, per
// spec §4.D.
package registry

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sqlitch/sqlitch/internal/coreerr"
	"github.com/sqlitch/sqlitch/internal/engine/sqlsplit"
	"github.com/sqlitch/sqlitch/internal/registry/schema"
)

// Migration is one entry in an engine's fixed registry catalog.
type Migration struct {
	TargetVersion float64
	SQL           string
	IsBaseline    bool
	SourcePath    string
}

// CurrentBaselineVersion is the schema version a from-scratch registry
// is installed at.
const CurrentBaselineVersion = 1.1

// Catalog returns the ordered migration list for a canonical engine
// name ("sqlite", "mysql", "pg"). Order matters: Ensure walks it in
// sequence, skipping anything already satisfied by the installed
// version.
func Catalog(engine string) ([]Migration, error) {
	switch engine {
	case "sqlite":
		return []Migration{
			{TargetVersion: 1.1, SQL: schema.SQLiteBaseline, IsBaseline: true, SourcePath: "lib/App/Sqitch/Engine/sqlite.sql"},
			{TargetVersion: 1.0, SQL: schema.SQLiteUpgradeTo10, SourcePath: "lib/App/Sqitch/Engine/Upgrade/sqlite-1.0.sql"},
			{TargetVersion: 1.1, SQL: schema.SQLiteUpgradeTo11, SourcePath: "lib/App/Sqitch/Engine/Upgrade/sqlite-1.1.sql"},
		}, nil
	case "mysql":
		return []Migration{
			{TargetVersion: 1.1, SQL: schema.MySQLBaseline, IsBaseline: true, SourcePath: "lib/App/Sqitch/Engine/mysql.sql"},
			{TargetVersion: 1.0, SQL: schema.MySQLUpgradeTo10, SourcePath: "lib/App/Sqitch/Engine/Upgrade/mysql-1.0.sql"},
			{TargetVersion: 1.1, SQL: schema.MySQLUpgradeTo11, SourcePath: "lib/App/Sqitch/Engine/Upgrade/mysql-1.1.sql"},
		}, nil
	case "pg":
		return []Migration{
			{TargetVersion: 1.1, SQL: schema.PGBaseline, IsBaseline: true, SourcePath: "lib/App/Sqitch/Engine/pg.sql"},
			{TargetVersion: 1.0, SQL: schema.PGUpgradeTo10, SourcePath: "lib/App/Sqitch/Engine/Upgrade/pg-1.0.sql"},
			{TargetVersion: 1.1, SQL: schema.PGUpgradeTo11, SourcePath: "lib/App/Sqitch/Engine/Upgrade/pg-1.1.sql"},
		}, nil
	default:
		return nil, coreerr.Usage("unknown engine %q", engine)
	}
}

// CurrentVersion reads the highest version row in releases, or 0 if
// the registry has not been installed yet (releases does not exist).
func CurrentVersion(ctx context.Context, db *sql.DB) (float64, error) {
	var v sql.NullFloat64
	err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM releases`).Scan(&v)
	if err != nil {
		// No releases table at all means an uninitialized registry,
		// not a failure: the caller installs the baseline.
		return 0, nil
	}
	if !v.Valid {
		return 0, nil
	}
	return v.Float64, nil
}

// Ensure installs the baseline (if current == 0) or applies every
// pending upgrade (target_version > current, ascending) otherwise,
// each migration in its own transaction, per spec §4.D "Version
// table". installerName/installerEmail are recorded in the releases
// row stamped at the end of each applied migration.
func Ensure(ctx context.Context, db *sql.DB, engine, installerName, installerEmail string) error {
	migrations, err := Catalog(engine)
	if err != nil {
		return err
	}

	current, err := CurrentVersion(ctx, db)
	if err != nil {
		return coreerr.Registry(err, "reading registry version")
	}

	var pending []Migration
	if current == 0 {
		for _, m := range migrations {
			if m.IsBaseline {
				pending = append(pending, m)
				break
			}
		}
	} else {
		for _, m := range migrations {
			if !m.IsBaseline && m.TargetVersion > current {
				pending = append(pending, m)
			}
		}
	}

	for _, m := range pending {
		if err := applyOne(ctx, db, m, installerName, installerEmail); err != nil {
			return coreerr.Registry(err, "applying registry migration to %.1f (%s)", m.TargetVersion, m.SourcePath)
		}
	}
	return nil
}

func applyOne(ctx context.Context, db *sql.DB, m Migration, installerName, installerEmail string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	stmts := sqlsplit.Split(m.SQL)
	for _, stmt := range stmts {
		if isTransactionControl(stmt) {
			// The catalog text carries its own BEGIN/COMMIT for
			// byte-exactness with the upstream reference, but this
			// migration already runs inside the Go-managed tx above;
			// executing the literal statement would nest transactions.
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: %w", m.SourcePath, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO releases (version, installer_name, installer_email) VALUES (?, ?, ?)`,
		m.TargetVersion, installerName, installerEmail,
	); err != nil {
		return fmt.Errorf("recording release %.1f: %w", m.TargetVersion, err)
	}
	return tx.Commit()
}

// isTransactionControl reports whether stmt is a bare BEGIN, COMMIT,
// or ROLLBACK — the catalog's own transaction-boundary statements,
// kept in the constant text for byte-exactness with the upstream
// reference but never executed literally since applyOne already
// wraps each migration in its own *sql.Tx.
func isTransactionControl(stmt string) bool {
	s := strings.ToUpper(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(stmt), ";")))
	switch s {
	case "BEGIN", "COMMIT", "ROLLBACK":
		return true
	default:
		return false
	}
}
