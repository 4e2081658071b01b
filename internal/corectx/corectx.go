// Package corectx defines CoreContext, the single read-only handle
// threaded through every operation after command-line parsing (spec
// §3 "CoreContext"): project root, merged config profile, an
// immutable environment snapshot, the logger, and any per-invocation
// overrides (plan file, engine/target/registry, verbosity). It is
// created once per process invocation and never mutated afterward,
// mirroring the teacher's practice of building one long-lived context
// object and passing it down rather than threading a dozen loose
// parameters (see internal/config.Initialize's directory-walk, which
// this supersedes at a higher layer).
package corectx

import (
	"os"
	"path/filepath"

	"github.com/sqlitch/sqlitch/internal/config"
	"github.com/sqlitch/sqlitch/internal/corelog"
)

// Verbosity controls how chatty human-mode output is. Zero value is
// normal; negative is quiet, positive increases detail.
type Verbosity int

// CoreContext is immutable once constructed; every field is set by
// New and read thereafter.
type CoreContext struct {
	ProjectRoot string
	ConfigRoot  string
	Env         config.Env
	Profile     *config.Profile
	Logger      *corelog.Logger

	PlanFileOverride string
	EngineOverride   string
	TargetOverride   string
	RegistryOverride string

	Verbosity Verbosity
	Quiet     bool
	JSON      bool
}

// Options configures New.
type Options struct {
	ProjectRoot      string
	Env              config.Env
	PlanFileOverride string
	EngineOverride   string
	TargetOverride   string
	RegistryOverride string
	Verbosity        Verbosity
	Quiet            bool
	JSON             bool
	RunID            string
}

// New loads the merged config profile for opts.ProjectRoot/opts.Env,
// builds the appropriate logger mode, and returns a fully-populated
// CoreContext.
func New(opts Options) (*CoreContext, error) {
	profile, err := config.Load(opts.Env, opts.ProjectRoot)
	if err != nil {
		return nil, err
	}

	mode := corelog.ModeHuman
	switch {
	case opts.JSON:
		mode = corelog.ModeJSON
	case opts.Quiet:
		mode = corelog.ModeSilent
	}
	out := os.Stdout
	if mode == corelog.ModeJSON {
		out = os.Stderr
	}

	return &CoreContext{
		ProjectRoot:      opts.ProjectRoot,
		ConfigRoot:       opts.ProjectRoot,
		Env:              opts.Env,
		Profile:          profile,
		Logger:           corelog.New(mode, out, opts.RunID),
		PlanFileOverride: opts.PlanFileOverride,
		EngineOverride:   opts.EngineOverride,
		TargetOverride:   opts.TargetOverride,
		RegistryOverride: opts.RegistryOverride,
		Verbosity:        opts.Verbosity,
		Quiet:            opts.Quiet,
		JSON:             opts.JSON,
	}, nil
}

// PlanPath returns the effective plan file path: the override if set,
// else "sqitch.plan" under ProjectRoot.
func (c *CoreContext) PlanPath() string {
	if c.PlanFileOverride != "" {
		return c.PlanFileOverride
	}
	return filepath.Join(c.ProjectRoot, "sqitch.plan")
}

// ActiveEngine resolves the engine in precedence order: explicit
// override, then core.engine from config.
func (c *CoreContext) ActiveEngine() string {
	if c.EngineOverride != "" {
		return c.EngineOverride
	}
	return c.Profile.ActiveEngine()
}
