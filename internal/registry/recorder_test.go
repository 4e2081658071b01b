package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setupRegistry(t *testing.T, project string) (*Recorder, context.Context) {
	t.Helper()
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, Ensure(ctx, db, "sqlite", "Ada Lovelace", "ada@example.com"))
	r := New(db, project)
	require.NoError(t, r.EnsureProject(ctx, "", Person{Name: "Ada Lovelace", Email: "ada@example.com"}))
	return r, ctx
}

func TestEnsureProjectIsIdempotent(t *testing.T) {
	r, ctx := setupRegistry(t, "widgets")
	require.NoError(t, r.EnsureProject(ctx, "", Person{Name: "Ada Lovelace", Email: "ada@example.com"}))

	var count int
	require.NoError(t, r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects`).Scan(&count))
	require.Equal(t, 1, count)
}

func TestRecordDeployThenRevert(t *testing.T) {
	r, ctx := setupRegistry(t, "widgets")
	planner := Person{Name: "Ada Lovelace", Email: "ada@example.com"}

	err := r.RecordDeploy(ctx, DeployRecord{
		ChangeID:  "abc123",
		Change:    "users",
		ScriptHash: "deadbeef",
		PlannedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Planner:   planner,
		Committer: planner,
	})
	require.NoError(t, err)

	deployed, err := r.DeployedChanges(ctx)
	require.NoError(t, err)
	require.Len(t, deployed, 1)
	require.Equal(t, "users", deployed[0].Name)

	last, ok, err := r.LastEvent(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "deploy", last.Event)

	require.NoError(t, r.RecordRevert(ctx, "abc123", planner))

	deployed, err = r.DeployedChanges(ctx)
	require.NoError(t, err)
	require.Empty(t, deployed)

	last, ok, err = r.LastEvent(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "revert", last.Event)
}

func TestRecordDeployFailDoesNotTouchChanges(t *testing.T) {
	r, ctx := setupRegistry(t, "widgets")
	planner := Person{Name: "Ada Lovelace", Email: "ada@example.com"}

	require.NoError(t, r.RecordDeployFail(ctx, "abc123", "users", "syntax error", planner))

	deployed, err := r.DeployedChanges(ctx)
	require.NoError(t, err)
	require.Empty(t, deployed)

	last, ok, err := r.LastEvent(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "deploy_fail", last.Event)
}

func TestRecordDeployWithRequireDependency(t *testing.T) {
	r, ctx := setupRegistry(t, "widgets")
	planner := Person{Name: "Ada Lovelace", Email: "ada@example.com"}

	require.NoError(t, r.RecordDeploy(ctx, DeployRecord{
		ChangeID:   "id-users",
		Change:     "users",
		ScriptHash: "hash-users",
		PlannedAt:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Planner:    planner,
		Committer:  planner,
	}))

	err := r.RecordDeploy(ctx, DeployRecord{
		ChangeID:   "id-flips",
		Change:     "flips",
		ScriptHash: "hash-flips",
		PlannedAt:  time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
		Planner:    planner,
		Committer:  planner,
		Deps:       []Dependency{{Type: "require", Name: "users", DependencyID: "id-users"}},
	})
	require.NoError(t, err)

	events, err := r.Events(ctx, "flips")
	require.NoError(t, err)
	require.Len(t, events, 1)
}
