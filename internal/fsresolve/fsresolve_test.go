package fsresolve

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolvePreferredOnly(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sqitch.plan"), []byte("x"), 0644))

	res, err := Resolve(dir, "sqitch.plan", "sqlitch.plan")
	require.NoError(t, err)
	require.False(t, res.IsDropIn)
	require.Equal(t, "sqitch.plan", res.SourceName)
}

func TestResolveDropInOnly(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sqlitch.plan"), []byte("x"), 0644))

	res, err := Resolve(dir, "sqitch.plan", "sqlitch.plan")
	require.NoError(t, err)
	require.True(t, res.IsDropIn)
	require.Equal(t, "sqlitch.plan", res.SourceName)
}

func TestResolveConflict(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sqitch.plan"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sqlitch.plan"), []byte("x"), 0644))

	_, err := Resolve(dir, "sqitch.plan", "sqlitch.plan")
	require.Error(t, err)
}

func TestResolveNeither(t *testing.T) {
	dir := t.TempDir()
	res, err := Resolve(dir, "sqitch.plan", "sqlitch.plan")
	require.NoError(t, err)
	require.Equal(t, "", res.Path)
}

func TestCleanupIdempotent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sqitch.plan"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "deploy"), 0755))

	require.NoError(t, Cleanup(dir, []string{"sqitch.plan", "deploy", "missing.txt"}))
	require.NoError(t, Cleanup(dir, []string{"sqitch.plan", "deploy", "missing.txt"}))

	_, err := os.Stat(filepath.Join(dir, "sqitch.plan"))
	require.True(t, os.IsNotExist(err))
}
