// Package identity resolves the planner/committer "Name <email>"
// identity written into plan entries and registry rows (spec §9
// "Identity resolution"). The precedence chain mirrors
// internal/config's credential resolution (CLI, then env, then
// config), generalized here to a name+email pair sourced from the
// `[user]` config section or the OS user record as a last resort.
package identity

import (
	"os/user"
	"strings"

	"github.com/sqlitch/sqlitch/internal/coreerr"
	"github.com/sqlitch/sqlitch/internal/config"
)

// Identity is a resolved "Name <email>" pair.
type Identity struct {
	Name  string
	Email string
}

// String renders the identity in plan/registry "Name <email>" form.
func (i Identity) String() string {
	return i.Name + " <" + i.Email + ">"
}

// Env abstracts environment lookup so callers can inject a fake map in
// tests without touching the process environment.
type Env interface {
	Get(key string) (string, bool)
}

// Resolve applies the precedence chain: CLI flags, then
// SQLITCH_FULLNAME/SQLITCH_EMAIL (and SQITCH_ variants, SQLITCH
// winning ties), then the config `[user]` section, then the OS user
// record. Returns a coreerr.UsageError if no email can be resolved,
// since identity is a hard requirement on any write (spec §9).
func Resolve(env Env, profile *config.Profile, cliName, cliEmail string) (Identity, error) {
	name := firstNonEmpty(
		cliName,
		envLookup(env, "SQLITCH_FULLNAME", "SQITCH_FULLNAME"),
		configLookup(profile, "name"),
		osFullName(),
	)
	email := firstNonEmpty(
		cliEmail,
		envLookup(env, "SQLITCH_EMAIL", "SQITCH_EMAIL"),
		configLookup(profile, "email"),
	)

	if email == "" {
		return Identity{}, coreerr.Usage("no identity configured: set user.name and user.email, or SQLITCH_FULLNAME/SQLITCH_EMAIL")
	}
	if name == "" {
		name = email
	}
	return Identity{Name: name, Email: email}, nil
}

func envLookup(env Env, keys ...string) string {
	if env == nil {
		return ""
	}
	for _, k := range keys {
		if v, ok := env.Get(k); ok && v != "" {
			return v
		}
	}
	return ""
}

func configLookup(profile *config.Profile, key string) string {
	if profile == nil {
		return ""
	}
	v, _ := profile.Get("user", key)
	return v
}

func osFullName() string {
	u, err := user.Current()
	if err != nil {
		return ""
	}
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	return u.Username
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
