package config

import (
	"strings"
)

// CredentialSource identifies where a resolved credential value came
// from, so callers (and the redaction-aware logger) can report it
// without ever logging the value itself.
type CredentialSource string

const (
	SourceCLI    CredentialSource = "cli"
	SourceEnv    CredentialSource = "env"
	SourceConfig CredentialSource = "config"
	SourceUnset  CredentialSource = "unset"
)

// Credential is a resolved username or password plus its source.
type Credential struct {
	Value  string
	Source CredentialSource
}

// ResolveCredential resolves a single credential field ("username" or
// "password") for targetName against the precedence chain in spec
// §4.B: CLI flag, target-qualified env var, unqualified env var,
// `target "<name>"` config, `engine "<active>"` config, `core`
// config.
func (p *Profile) ResolveCredential(field, targetName, activeEngine, cliValue string) Credential {
	if cliValue != "" {
		return Credential{Value: cliValue, Source: SourceCLI}
	}

	upperField := strings.ToUpper(field)
	targetFrag := strings.ToUpper(sanitizeEnvFragment(targetName))

	if targetFrag != "" {
		for _, prefix := range []string{"SQLITCH", "SQITCH"} {
			if v, ok := p.env.get(prefix + "_" + targetFrag + "_" + upperField); ok {
				return Credential{Value: v, Source: SourceEnv}
			}
		}
	}
	for _, prefix := range []string{"SQLITCH", "SQITCH"} {
		if v, ok := p.env.get(prefix + "_" + upperField); ok {
			return Credential{Value: v, Source: SourceEnv}
		}
	}

	if targetName != "" {
		if v, ok := p.GetSubsection("target", targetName, field); ok {
			return Credential{Value: v, Source: SourceConfig}
		}
	}
	if activeEngine != "" {
		if v, ok := p.GetSubsection("engine", activeEngine, field); ok {
			return Credential{Value: v, Source: SourceConfig}
		}
	}
	if v, ok := p.Get("core", field); ok {
		return Credential{Value: v, Source: SourceConfig}
	}

	return Credential{Source: SourceUnset}
}

// sanitizeEnvFragment replaces non-alphanumeric characters with
// underscores, so a target name like "my-db" becomes "my_db"; the
// caller uppercases the result into the env var fragment "MY_DB".
func sanitizeEnvFragment(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
