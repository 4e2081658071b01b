package main

import (
	"os"
	"strings"

	"github.com/sqlitch/sqlitch/internal/config"
	"github.com/sqlitch/sqlitch/internal/coreerr"
	"github.com/sqlitch/sqlitch/internal/corectx"
	"github.com/sqlitch/sqlitch/internal/engine"
	"github.com/sqlitch/sqlitch/internal/identity"
)

// osEnviron snapshots the process environment once, matching
// CoreContext's "immutable env snapshot" contract (spec §3) rather
// than letting deep callers read os.Environ directly.
func osEnviron() config.Env {
	env := make(config.Env)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			env[kv[:i]] = kv[i+1:]
		}
	}
	return env
}

// envLookup adapts config.Env (unexported get) to identity.Env
// (exported Get), since identity deliberately only depends on a
// minimal lookup interface, not the whole config package.
type envLookup config.Env

func (e envLookup) Get(key string) (string, bool) {
	v, ok := e[key]
	return v, ok
}

// buildContext resolves the project root, loads config, and builds a
// CoreContext for the current invocation.
func buildContext() (*corectx.CoreContext, error) {
	root, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return corectx.New(corectx.Options{
		ProjectRoot:      root,
		Env:              osEnviron(),
		PlanFileOverride: flagPlanFile,
		EngineOverride:   flagEngine,
		Quiet:            flagQuiet,
		JSON:             flagJSON,
	})
}

func resolveIdentity(cctx *corectx.CoreContext) (identity.Identity, error) {
	return identity.Resolve(envLookup(cctx.Env), cctx.Profile, flagUserName, flagUserEmail)
}

// sqliteWorkspacePath strips the "db:sqlite:" URI scheme sqitch-style
// targets use (spec.md "Workspace URI forms": db:sqlite:<path>,
// db:sqlite:file:<uri>?params, or a bare path) down to the path/DSN
// engine.SQLite actually opens.
func sqliteWorkspacePath(uri string) string {
	const prefix = "db:sqlite:"
	if strings.HasPrefix(uri, prefix) {
		return strings.TrimPrefix(uri, prefix)
	}
	return uri
}

// newAdapter builds the engine.Adapter named by cctx.ActiveEngine().
// workspaceURI is the target positional argument every workspace
// subcommand (deploy/revert/verify/status) requires in this stub,
// since there is no "current target" state file to fall back to.
func newAdapter(cctx *corectx.CoreContext, workspaceURI string) (engine.Adapter, error) {
	name := engine.CanonicalizeName(cctx.ActiveEngine())
	switch name {
	case "sqlite":
		wsPath := sqliteWorkspacePath(workspaceURI)
		regPath := config.ResolveRegistryURI("sqlite", wsPath, cctx.ProjectRoot, cctx.RegistryOverride)
		return &engine.SQLite{WorkspacePath: wsPath, RegistryPath: regPath}, nil
	case "mysql":
		return &engine.MySQL{WorkspaceURI: workspaceURI, RegistryURI: cctx.RegistryOverride}, nil
	case "pg":
		return &engine.PG{WorkspaceURI: workspaceURI, RegistryURI: cctx.RegistryOverride}, nil
	case "":
		return nil, coreerr.Usage("no engine configured: pass --engine or set core.engine")
	default:
		return nil, coreerr.Usage("unknown engine %q", name)
	}
}
