// Package config implements the three-level (system, user, local)
// configuration resolver (spec §4.B): layered git-style INI files
// merged by precedence, with environment-variable overrides and
// credential/registry-URI resolution built on top.
//
// The scope-directory discovery walk below is grounded on the
// teacher's internal/config.Initialize, which tries a sequence of
// candidate directories/files in order and takes the first that
// exists.
package config

import (
	"os"
	"path/filepath"
)

// Scope identifies one of the three configuration layers, in
// ascending precedence order.
type Scope int

const (
	ScopeSystem Scope = iota
	ScopeUser
	ScopeLocal
)

func (s Scope) String() string {
	switch s {
	case ScopeSystem:
		return "system"
	case ScopeUser:
		return "user"
	case ScopeLocal:
		return "local"
	default:
		return "unknown"
	}
}

const (
	PreferredConfigName = "sqitch.conf"
	DropInConfigName    = "sqlitch.conf"
)

// Env is an injected environment snapshot (spec §3 CoreContext: "env
// snapshot (immutable map)"). Production callers pass one built from
// os.Environ(); tests pass a fixed map so the resolver's env-precedence
// rules are deterministic.
type Env map[string]string

func (e Env) get(keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := e[k]; ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// defaultSystemDir resolves the system config scope directory used
// when no SQLITCH_SYSTEM_CONFIG/SQITCH_SYSTEM_CONFIG override is set.
func defaultSystemDir() string {
	if dirExists("/etc/sqlitch") {
		return "/etc/sqlitch"
	}
	if dirExists("/etc/sqitch") {
		return "/etc/sqitch"
	}
	return "/etc/sqlitch"
}

// defaultUserDir resolves the user config scope directory used when
// no SQLITCH_USER_CONFIG/SQITCH_USER_CONFIG/*_CONFIG_ROOT override is
// set.
func defaultUserDir(env Env) string {
	if v, ok := env.get("SQLITCH_CONFIG_ROOT", "SQITCH_CONFIG_ROOT"); ok {
		return v
	}
	if v, ok := env.get("XDG_CONFIG_HOME"); ok {
		return filepath.Join(v, "sqlitch")
	}
	home, _ := env.get("HOME")
	return filepath.Join(home, ".sqitch")
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
