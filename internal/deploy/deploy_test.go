package deploy

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/stretchr/testify/require"

	"github.com/sqlitch/sqlitch/internal/corelog"
	"github.com/sqlitch/sqlitch/internal/engine"
	"github.com/sqlitch/sqlitch/internal/identity"
	"github.com/sqlitch/sqlitch/internal/plan"
	"github.com/sqlitch/sqlitch/internal/registry"
)

const testPlan = `%syntax-version=1.0.0
%project=widgets

users 2025-01-01T00:00:00Z Ada Lovelace <ada@example.com> # add users table
flips [users] 2025-01-02T00:00:00Z Ada Lovelace <ada@example.com> # add flips table
`

type memScripts map[string]string

func (m memScripts) DeployScript(c *plan.Change) (string, error) {
	return m["deploy/"+c.Name], nil
}
func (m memScripts) RevertScript(c *plan.Change) (string, error) {
	return m["revert/"+c.Name], nil
}
func (m memScripts) VerifyScript(c *plan.Change) (string, bool, error) {
	s, ok := m["verify/"+c.Name]
	return s, ok, nil
}

func setup(t *testing.T) (*plan.Plan, *engine.SQLite, *registry.Recorder) {
	t.Helper()
	p, err := plan.Parse(strings.NewReader(testPlan), plan.Options{})
	require.NoError(t, err)

	dir := t.TempDir()
	adapter := &engine.SQLite{
		WorkspacePath: filepath.Join(dir, "app.db"),
		RegistryPath:  filepath.Join(dir, "sqitch.db"),
	}
	ctx := context.Background()
	require.NoError(t, adapter.EnsureRegistry(ctx, "Ada Lovelace", "ada@example.com"))

	db, err := adapter.ConnectRegistry(ctx)
	require.NoError(t, err)
	rec := registry.New(db, p.Project)
	require.NoError(t, rec.EnsureProject(ctx, "", registry.Person{Name: "Ada Lovelace", Email: "ada@example.com"}))

	return p, adapter, rec
}

func TestDeployRunDeploysInOrder(t *testing.T) {
	p, adapter, rec := setup(t)
	scripts := memScripts{
		"deploy/users": "CREATE TABLE users (id INTEGER PRIMARY KEY);",
		"deploy/flips": "CREATE TABLE flips (id INTEGER PRIMARY KEY, user_id INTEGER);",
	}

	result, err := Run(context.Background(), Options{
		Plan:     p,
		Adapter:  adapter,
		Recorder: rec,
		Scripts:  scripts,
		Logger:   corelog.New(corelog.ModeSilent, nil, "test-run"),
		Identity: identity.Identity{Name: "Ada Lovelace", Email: "ada@example.com"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"users", "flips"}, result.Deployed)

	deployed, err := rec.DeployedChanges(context.Background())
	require.NoError(t, err)
	require.Len(t, deployed, 2)
}

func TestDeployStopsOnFailureAndRollsBack(t *testing.T) {
	p, adapter, rec := setup(t)
	scripts := memScripts{
		"deploy/users": "CREATE TABLE users (id INTEGER PRIMARY KEY);\nINSERT INTO nonexistent VALUES (1);\n",
		"deploy/flips": "CREATE TABLE flips (id INTEGER PRIMARY KEY);",
	}

	_, err := Run(context.Background(), Options{
		Plan:     p,
		Adapter:  adapter,
		Recorder: rec,
		Scripts:  scripts,
		Logger:   corelog.New(corelog.ModeSilent, nil, "test-run"),
		Identity: identity.Identity{Name: "Ada Lovelace", Email: "ada@example.com"},
	})
	require.Error(t, err)

	ws, err := adapter.ConnectWorkspace(context.Background())
	require.NoError(t, err)
	var count int
	err = ws.QueryRowContext(context.Background(), `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='users'`).Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 0, count)

	deployed, err := rec.DeployedChanges(context.Background())
	require.NoError(t, err)
	require.Empty(t, deployed)
}

func TestRevertReversesDeployOrder(t *testing.T) {
	p, adapter, rec := setup(t)
	scripts := memScripts{
		"deploy/users": "CREATE TABLE users (id INTEGER PRIMARY KEY);",
		"deploy/flips": "CREATE TABLE flips (id INTEGER PRIMARY KEY);",
		"revert/users": "DROP TABLE users;",
		"revert/flips": "DROP TABLE flips;",
	}
	id := identity.Identity{Name: "Ada Lovelace", Email: "ada@example.com"}
	logger := corelog.New(corelog.ModeSilent, nil, "test-run")

	_, err := Run(context.Background(), Options{Plan: p, Adapter: adapter, Recorder: rec, Scripts: scripts, Logger: logger, Identity: id})
	require.NoError(t, err)

	result, err := RunRevert(context.Background(), RevertOptions{
		Plan: p, Adapter: adapter, Recorder: rec, Scripts: scripts, Logger: logger, Identity: id, AssumeYes: true,
	})
	require.NoError(t, err)
	require.Equal(t, []string{"flips", "users"}, result.Reverted)

	deployed, err := rec.DeployedChanges(context.Background())
	require.NoError(t, err)
	require.Empty(t, deployed)
}

func TestRevertAbortsWithoutConfirmation(t *testing.T) {
	p, adapter, rec := setup(t)
	scripts := memScripts{"deploy/users": "CREATE TABLE users (id INTEGER PRIMARY KEY);"}
	id := identity.Identity{Name: "Ada Lovelace", Email: "ada@example.com"}
	logger := corelog.New(corelog.ModeSilent, nil, "test-run")

	_, err := Run(context.Background(), Options{
		Plan: p, Adapter: adapter, Recorder: rec, Scripts: scripts, Logger: logger, Identity: id, To: "users",
	})
	require.NoError(t, err)

	_, err = RunRevert(context.Background(), RevertOptions{
		Plan: p, Adapter: adapter, Recorder: rec, Scripts: scripts, Logger: logger, Identity: id,
		Confirm: func() bool { return false },
	})
	require.Error(t, err)
}

func TestVerifySkipsMissingScript(t *testing.T) {
	p, adapter, rec := setup(t)
	scripts := memScripts{
		"deploy/users": "CREATE TABLE users (id INTEGER PRIMARY KEY);",
	}
	id := identity.Identity{Name: "Ada Lovelace", Email: "ada@example.com"}
	logger := corelog.New(corelog.ModeSilent, nil, "test-run")

	_, err := Run(context.Background(), Options{Plan: p, Adapter: adapter, Recorder: rec, Scripts: scripts, Logger: logger, Identity: id, To: "users"})
	require.NoError(t, err)

	result, err := RunVerify(context.Background(), VerifyOptions{Plan: p, Adapter: adapter, Recorder: rec, Scripts: scripts, Logger: logger})
	require.NoError(t, err)
	require.Len(t, result.Changes, 1)
	require.True(t, result.Changes[0].Skipped)
	require.Equal(t, 0, result.ErrorCount)
}

func TestVerifyNeverMutatesWorkspace(t *testing.T) {
	p, adapter, rec := setup(t)
	scripts := memScripts{
		"deploy/users": "CREATE TABLE users (id INTEGER PRIMARY KEY);",
		"verify/users": "INSERT INTO users (id) VALUES (1);",
	}
	id := identity.Identity{Name: "Ada Lovelace", Email: "ada@example.com"}
	logger := corelog.New(corelog.ModeSilent, nil, "test-run")

	_, err := Run(context.Background(), Options{Plan: p, Adapter: adapter, Recorder: rec, Scripts: scripts, Logger: logger, Identity: id, To: "users"})
	require.NoError(t, err)

	_, err = RunVerify(context.Background(), VerifyOptions{Plan: p, Adapter: adapter, Recorder: rec, Scripts: scripts, Logger: logger})
	require.NoError(t, err)

	ws, err := adapter.ConnectWorkspace(context.Background())
	require.NoError(t, err)
	var count int
	require.NoError(t, ws.QueryRowContext(context.Background(), `SELECT COUNT(*) FROM users`).Scan(&count))
	require.Equal(t, 0, count)
}
