package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConf(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
}

func TestPrecedenceLocalWinsOverUserOverSystem(t *testing.T) {
	sysDir, userDir, localDir := t.TempDir(), t.TempDir(), t.TempDir()
	writeConf(t, sysDir, PreferredConfigName, "[core]\n\tengine = pg\n")
	writeConf(t, userDir, PreferredConfigName, "[core]\n\tengine = mysql\n")
	writeConf(t, localDir, PreferredConfigName, "[core]\n\tengine = sqlite\n")

	env := Env{
		"SQLITCH_SYSTEM_CONFIG": filepath.Join(sysDir, PreferredConfigName),
		"SQLITCH_USER_CONFIG":   filepath.Join(userDir, PreferredConfigName),
		"SQLITCH_CONFIG":        filepath.Join(localDir, PreferredConfigName),
	}

	p, err := Load(env, localDir)
	require.NoError(t, err)
	require.Equal(t, "sqlite", p.ActiveEngine())

	// Removing local falls through to user.
	require.NoError(t, p.Unset(ScopeLocal, "core", "engine"))
	require.Equal(t, "mysql", p.ActiveEngine())
}

func TestSubsectionKeys(t *testing.T) {
	dir := t.TempDir()
	writeConf(t, dir, PreferredConfigName, "[target \"origin\"]\n\turi = db:sqlite:origin.db\n")
	env := Env{"SQLITCH_CONFIG": filepath.Join(dir, PreferredConfigName)}

	p, err := Load(env, dir)
	require.NoError(t, err)
	v, ok := p.GetSubsection("target", "origin", "uri")
	require.True(t, ok)
	require.Equal(t, "db:sqlite:origin.db", v)
}

func TestCredentialPrecedence(t *testing.T) {
	dir := t.TempDir()
	writeConf(t, dir, PreferredConfigName, "[core]\n\tusername = core_user\n")
	env := Env{
		"SQLITCH_CONFIG":        filepath.Join(dir, PreferredConfigName),
		"SQLITCH_MYDB_USERNAME": "env_user",
	}
	p, err := Load(env, dir)
	require.NoError(t, err)

	cred := p.ResolveCredential("username", "mydb", "sqlite", "")
	require.Equal(t, "env_user", cred.Value)
	require.Equal(t, SourceEnv, cred.Source)

	cred2 := p.ResolveCredential("username", "mydb", "sqlite", "cli_user")
	require.Equal(t, "cli_user", cred2.Value)
	require.Equal(t, SourceCLI, cred2.Source)

	cred3 := p.ResolveCredential("username", "otherdb", "sqlite", "")
	require.Equal(t, "core_user", cred3.Value)
	require.Equal(t, SourceConfig, cred3.Source)
}

func TestSQLitchEnvWinsOverSqitch(t *testing.T) {
	dir := t.TempDir()
	writeConf(t, dir, PreferredConfigName, "")
	env := Env{
		"SQLITCH_CONFIG":   filepath.Join(dir, PreferredConfigName),
		"SQLITCH_USERNAME": "sqlitch_user",
		"SQITCH_USERNAME":  "sqitch_user",
	}
	p, err := Load(env, dir)
	require.NoError(t, err)
	cred := p.ResolveCredential("username", "", "sqlite", "")
	require.Equal(t, "sqlitch_user", cred.Value)
}

func TestResolveRegistryURISQLiteDefault(t *testing.T) {
	uri := ResolveRegistryURI("sqlite", "db:sqlite:app.db", "/proj", "")
	require.Equal(t, "/proj/sqitch.db", uri)
}

func TestResolveRegistryURIOverride(t *testing.T) {
	uri := ResolveRegistryURI("sqlite", "db:sqlite:app.db", "/proj", "db:sqlite:custom.db")
	require.Equal(t, "db:sqlite:custom.db", uri)
}

func TestResolveRegistryURINonSQLite(t *testing.T) {
	uri := ResolveRegistryURI("pg", "db:pg://host/app", "/proj", "")
	require.Equal(t, "db:pg://host/app", uri)
}

func TestMissingOverrideFileIsConfigError(t *testing.T) {
	_, err := Load(Env{"SQLITCH_CONFIG": "/does/not/exist.conf"}, t.TempDir())
	require.Error(t, err)
}
