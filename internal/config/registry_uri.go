package config

import "path/filepath"

// ResolveRegistryURI derives the registry database URI for an engine
// (spec §4.B "Registry URI derivation"). For SQLite, absent an
// override, the registry lives in a sibling file named "sqitch.db" in
// the project root — never ":memory:". For every other engine, the
// registry is the same URI as the workspace unless overridden.
// Overrides are returned verbatim.
func ResolveRegistryURI(engine, workspaceURI, projectRoot, override string) string {
	if override != "" {
		return override
	}
	if engine == "sqlite" {
		return filepath.Join(projectRoot, "sqitch.db")
	}
	return workspaceURI
}
