package engine

import (
	"context"
	"database/sql"
)

// PG is specified but not implemented in this build; see MySQL's doc
// comment for the rationale (spec §4.E).
type PG struct {
	WorkspaceURI string
	RegistryURI  string
	Schema       string // default "sqitch"
}

var _ Adapter = (*PG)(nil)

func (p *PG) Name() string { return "pg" }

func (p *PG) ConnectWorkspace(ctx context.Context) (*sql.DB, error) {
	return nil, errNotImplemented
}

func (p *PG) ConnectRegistry(ctx context.Context) (*sql.DB, error) {
	return nil, errNotImplemented
}

func (p *PG) EnsureRegistry(ctx context.Context, installerName, installerEmail string) error {
	return errNotImplemented
}

func (p *PG) AttachRegistry(ctx context.Context) error { return errNotImplemented }
func (p *PG) DetachRegistry(ctx context.Context) error { return nil }

func (p *PG) ExecuteScript(ctx context.Context, sqlText string, managesOwnTransactions bool) error {
	return errNotImplemented
}

func (p *PG) ExecuteScriptDryRun(ctx context.Context, sqlText string) error {
	return errNotImplemented
}
