package config

import (
	"os"

	"github.com/sqlitch/sqlitch/internal/coreerr"
	"github.com/sqlitch/sqlitch/internal/fsresolve"
)

// ScopeFile is the resolved file (if any) backing one scope.
type ScopeFile struct {
	Scope Scope
	// Path is empty if the scope has no config file.
	Path string
	// Overridden is true if an env var named the file directly
	// (SQLITCH_CONFIG / SQITCH_CONFIG and friends), bypassing the
	// preferred/drop-in filename resolution.
	Overridden bool
}

// resolveScopeFile finds the config file for one scope: an explicit
// env override (a full file path, checked for existence — a missing
// override is a ConfigError) or, absent an override, the
// preferred/drop-in resolution within dir (spec §4.A, reused here per
// §4.B).
func resolveScopeFile(scope Scope, dir string, override string) (ScopeFile, error) {
	if override != "" {
		if _, err := os.Stat(override); err != nil {
			return ScopeFile{}, coreerr.Config(override, 0, "configured %s scope file does not exist", scope)
		}
		return ScopeFile{Scope: scope, Path: override, Overridden: true}, nil
	}

	res, err := fsresolve.Resolve(dir, PreferredConfigName, DropInConfigName)
	if err != nil {
		return ScopeFile{}, err
	}
	return ScopeFile{Scope: scope, Path: res.Path}, nil
}

// ScopeFiles resolves all three scope files given an environment
// snapshot and the project root (used for the local scope default).
func ScopeFiles(env Env, projectRoot string) ([]ScopeFile, error) {
	systemOverride, _ := env.get("SQLITCH_SYSTEM_CONFIG", "SQITCH_SYSTEM_CONFIG")
	userOverride, _ := env.get("SQLITCH_USER_CONFIG", "SQITCH_USER_CONFIG")
	localOverride, _ := env.get("SQLITCH_CONFIG", "SQITCH_CONFIG")

	sysFile, err := resolveScopeFile(ScopeSystem, defaultSystemDir(), systemOverride)
	if err != nil {
		return nil, err
	}
	userFile, err := resolveScopeFile(ScopeUser, defaultUserDir(env), userOverride)
	if err != nil {
		return nil, err
	}
	localFile, err := resolveScopeFile(ScopeLocal, projectRoot, localOverride)
	if err != nil {
		return nil, err
	}
	return []ScopeFile{sysFile, userFile, localFile}, nil
}
