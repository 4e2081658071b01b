package corectx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sqlitch/sqlitch/internal/config"
	"github.com/stretchr/testify/require"
)

func TestNewResolvesPlanPathDefault(t *testing.T) {
	dir := t.TempDir()
	c, err := New(Options{ProjectRoot: dir, Env: config.Env{}})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "sqitch.plan"), c.PlanPath())
}

func TestPlanFileOverrideWins(t *testing.T) {
	dir := t.TempDir()
	c, err := New(Options{ProjectRoot: dir, Env: config.Env{}, PlanFileOverride: "/custom/plan"})
	require.NoError(t, err)
	require.Equal(t, "/custom/plan", c.PlanPath())
}

func TestActiveEngineOverrideWinsOverConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.PreferredConfigName), []byte("[core]\n\tengine = sqlite\n"), 0644))
	c, err := New(Options{ProjectRoot: dir, Env: config.Env{}, EngineOverride: "pg"})
	require.NoError(t, err)
	require.Equal(t, "pg", c.ActiveEngine())
}
