package engine

import (
	"context"
	"database/sql"
)

// MySQL is specified but not implemented in this build (spec §4.E:
// "their connect_registry may raise NotImplementedError in the
// initial build, which the command layer surfaces as 'engine not yet
// supported'"). The type exists so canonicalize_engine_name and the
// command layer have a concrete adapter to select and fail against,
// rather than special-casing the engine name as a string everywhere.
type MySQL struct {
	WorkspaceURI string
	RegistryURI  string
}

var _ Adapter = (*MySQL)(nil)

func (m *MySQL) Name() string { return "mysql" }

func (m *MySQL) ConnectWorkspace(ctx context.Context) (*sql.DB, error) {
	return nil, errNotImplemented
}

func (m *MySQL) ConnectRegistry(ctx context.Context) (*sql.DB, error) {
	return nil, errNotImplemented
}

func (m *MySQL) EnsureRegistry(ctx context.Context, installerName, installerEmail string) error {
	return errNotImplemented
}

func (m *MySQL) AttachRegistry(ctx context.Context) error { return errNotImplemented }
func (m *MySQL) DetachRegistry(ctx context.Context) error { return nil }

func (m *MySQL) ExecuteScript(ctx context.Context, sqlText string, managesOwnTransactions bool) error {
	return errNotImplemented
}

func (m *MySQL) ExecuteScriptDryRun(ctx context.Context, sqlText string) error {
	return errNotImplemented
}
