// Package deploy implements the deploy/revert/verify engines of spec
// §4.G: range resolution over a plan, dependency validation, per-change
// script execution through an engine.Adapter with the correct
// transaction discipline, and registry recording via
// registry.Recorder. Progress is reported through a corelog.Logger
// exactly as the teacher's long-running operations do (one structured
// record per step, human/json/silent rendering handled entirely by
// the logger).
package deploy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sqlitch/sqlitch/internal/coreerr"
	"github.com/sqlitch/sqlitch/internal/corelog"
	"github.com/sqlitch/sqlitch/internal/engine"
	"github.com/sqlitch/sqlitch/internal/hashutil"
	"github.com/sqlitch/sqlitch/internal/identity"
	"github.com/sqlitch/sqlitch/internal/plan"
	"github.com/sqlitch/sqlitch/internal/registry"
)

// ScriptLoader reads the SQL text for a change's deploy/revert/verify
// script. Production code backs this with os.ReadFile against
// deploy/<name>.sql-style conventional paths; tests can substitute an
// in-memory map.
type ScriptLoader interface {
	DeployScript(c *plan.Change) (string, error)
	RevertScript(c *plan.Change) (string, error)
	VerifyScript(c *plan.Change) (string, bool, error) // ok=false when no verify script exists
}

// FileScriptLoader reads scripts from <Root>/<kind>/<name>.sql. Every
// instance of a reworked change reads the bare-name script; the
// "@<tag>" suffixed copies that plan.ReworkScriptPaths names for
// earlier instances are not looked up.
type FileScriptLoader struct {
	Root string // project root; scripts live under deploy/, revert/, verify/
}

func (f *FileScriptLoader) scriptPath(kind, name string) string {
	return filepath.Join(f.Root, kind, name+".sql")
}

func (f *FileScriptLoader) DeployScript(c *plan.Change) (string, error) {
	b, err := os.ReadFile(f.scriptPath("deploy", c.Name))
	if err != nil {
		return "", coreerr.Plan("", 0, "reading deploy script for %q: %v", c.Name, err)
	}
	return string(b), nil
}

func (f *FileScriptLoader) RevertScript(c *plan.Change) (string, error) {
	b, err := os.ReadFile(f.scriptPath("revert", c.Name))
	if err != nil {
		return "", coreerr.Plan("", 0, "reading revert script for %q: %v", c.Name, err)
	}
	return string(b), nil
}

func (f *FileScriptLoader) VerifyScript(c *plan.Change) (string, bool, error) {
	path := f.scriptPath("verify", c.Name)
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, coreerr.Plan("", 0, "reading verify script for %q: %v", c.Name, err)
	}
	return string(b), true, nil
}

// Options bundles everything a deploy run needs.
type Options struct {
	Plan     *plan.Plan
	Adapter  engine.Adapter
	Recorder *registry.Recorder
	Scripts  ScriptLoader
	Logger   *corelog.Logger
	Identity identity.Identity

	// To is the target symbolic ref (e.g. "@HEAD"); empty means @HEAD.
	To string
}

// Result summarizes a completed (possibly partially-completed, on
// failure) deploy run.
type Result struct {
	Deployed []string // change names deployed, in order
	Failed   string   // non-empty if the run stopped on a failing change
}

// Run executes the deploy algorithm of spec §4.G: resolve the range of
// undeployed changes up to the target, validate dependencies across
// the whole range before executing anything, then deploy one change at
// a time, stopping at the first failure.
func Run(ctx context.Context, opts Options) (*Result, error) {
	p := opts.Plan
	to := opts.To
	if to == "" {
		to = "@HEAD"
	}
	endIdx, err := plan.Resolve(p, to)
	if err != nil {
		return nil, err
	}

	deployed, err := opts.Recorder.DeployedChanges(ctx)
	if err != nil {
		return nil, err
	}
	deployedIDs := make(map[string]bool, len(deployed))
	for _, d := range deployed {
		deployedIDs[d.ChangeID] = true
	}

	changes := p.Changes()
	startIdx := 0
	for i, c := range changes {
		if deployedIDs[c.ChangeID] {
			startIdx = i + 1
			continue
		}
		break
	}
	// endIdx is an index into p.Entries; translate to a change-slice
	// bound by counting changes up to and including that entry.
	endChangeIdx := changeIndexAtOrBefore(p, endIdx)

	if endChangeIdx < startIdx-1 {
		return &Result{}, nil // nothing pending up to the target
	}

	pending := changes[startIdx : endChangeIdx+1]

	if err := validateDependencies(pending, deployedIDs, changes[:startIdx]); err != nil {
		return nil, err
	}

	result := &Result{}
	for _, c := range pending {
		if err := deployOne(ctx, opts, c); err != nil {
			result.Failed = c.Name
			return result, err
		}
		result.Deployed = append(result.Deployed, c.Name)
		opts.Logger.Info("deploy.change", fmt.Sprintf("+ %s", c.Name), map[string]any{"change": c.Name, "change_id": c.ChangeID})
	}
	return result, nil
}

func changeIndexAtOrBefore(p *plan.Plan, entryIdx int) int {
	count := -1
	for i := 0; i <= entryIdx && i < len(p.Entries); i++ {
		if !p.Entries[i].IsTag() {
			count++
		}
	}
	return count
}

func validateDependencies(pending []*plan.Change, alreadyDeployed map[string]bool, before []*plan.Change) error {
	willDeploy := make(map[string]bool, len(pending))
	for _, c := range pending {
		willDeploy[c.Name] = true
	}
	for _, c := range pending {
		for _, dep := range c.Dependencies {
			name := stripProjectQualifier(dep.Name)
			if alreadyDeployedByName(name, before, alreadyDeployed) || willDeploy[name] {
				continue
			}
			return coreerr.Plan("", 0, "change %q requires %q, which is neither already deployed nor earlier in this deploy range", c.Name, dep.Name)
		}
		for _, conflict := range c.Conflicts {
			name := stripProjectQualifier(conflict.Name)
			if alreadyDeployedByName(name, before, alreadyDeployed) {
				return coreerr.Usage("change %q conflicts with already-deployed change %q", c.Name, conflict.Name)
			}
		}
	}
	return nil
}

func alreadyDeployedByName(name string, before []*plan.Change, deployedIDs map[string]bool) bool {
	for _, c := range before {
		if c.Name == name && deployedIDs[c.ChangeID] {
			return true
		}
	}
	return false
}

func stripProjectQualifier(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == ':' {
			return name[i+1:]
		}
	}
	return name
}

func deployOne(ctx context.Context, opts Options, c *plan.Change) error {
	if err := opts.Adapter.AttachRegistry(ctx); err != nil {
		return err
	}
	defer opts.Adapter.DetachRegistry(ctx) //nolint:errcheck

	script, err := opts.Scripts.DeployScript(c)
	if err != nil {
		return err
	}

	managesOwn := engine.ManagesOwnTransactions(script)
	execErr := opts.Adapter.ExecuteScript(ctx, script, managesOwn)
	if execErr != nil {
		_ = opts.Recorder.RecordDeployFail(ctx, c.ChangeID, c.Name, execErr.Error(), registry.Person(opts.Identity))
		return coreerr.Script(c.Name, "deploy", execErr)
	}

	deps := make([]registry.Dependency, 0, len(c.Dependencies)+len(c.Conflicts))
	for _, d := range c.Dependencies {
		deps = append(deps, registry.Dependency{Type: "require", Name: d.Name, DependencyID: resolveDependencyID(opts.Plan, d.Name)})
	}
	for _, d := range c.Conflicts {
		deps = append(deps, registry.Dependency{Type: "conflict", Name: d.Name})
	}

	return opts.Recorder.RecordDeploy(ctx, registry.DeployRecord{
		ChangeID:    c.ChangeID,
		Change:      c.Name,
		Note:        c.Note,
		ScriptHash:  hashutil.ScriptHash([]byte(script)),
		PlannedAt:   c.PlannedAt,
		Planner:     registry.Person{Name: splitPlannerName(c.Planner), Email: splitPlannerEmail(c.Planner)},
		Committer:   registry.Person(opts.Identity),
		Deps:        deps,
		TagsApplied: c.TagsApplied,
	})
}

func resolveDependencyID(p *plan.Plan, name string) string {
	name = stripProjectQualifier(name)
	if c := p.LastChangeNamed(name); c != nil {
		return c.ChangeID
	}
	return ""
}

// splitPlannerName/splitPlannerEmail pull the two halves out of the
// plan's already-combined "Name <email>" planner field.
func splitPlannerName(planner string) string {
	name, _ := splitAngle(planner)
	return name
}

func splitPlannerEmail(planner string) string {
	_, email := splitAngle(planner)
	return email
}

func splitAngle(s string) (name, email string) {
	open := strings.LastIndex(s, "<")
	if open < 0 {
		return s, ""
	}
	name = strings.TrimSpace(s[:open])
	email = strings.TrimSuffix(s[open+1:], ">")
	return name, email
}
