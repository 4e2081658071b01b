package deploy

import (
	"context"
	"fmt"
	"sort"

	"github.com/sqlitch/sqlitch/internal/coreerr"
	"github.com/sqlitch/sqlitch/internal/engine"
	"github.com/sqlitch/sqlitch/internal/identity"
	"github.com/sqlitch/sqlitch/internal/plan"
	"github.com/sqlitch/sqlitch/internal/registry"
)

// RevertOptions bundles everything a revert run needs.
type RevertOptions struct {
	Plan     *plan.Plan
	Adapter  engine.Adapter
	Recorder *registry.Recorder
	Scripts  ScriptLoader
	Logger   interface {
		Info(event, msg string, payload map[string]any)
	}
	Identity identity.Identity

	// To is the target symbolic ref; everything strictly after it (in
	// deploy order) is reverted. Empty means "revert everything".
	To string

	// Confirm is called once before any script executes unless
	// AssumeYes is set; returning false aborts with no changes made.
	Confirm   func() bool
	AssumeYes bool
}

// RevertResult summarizes a completed revert run.
type RevertResult struct {
	Reverted []string // change names reverted, in reverse deploy order
}

// RunRevert executes the revert algorithm of spec §4.G "Revert": load
// deployed changes ordered by commit time, compute the suffix to
// revert relative to the target, confirm unless AssumeYes, then
// revert each change in reverse deploy order.
func RunRevert(ctx context.Context, opts RevertOptions) (*RevertResult, error) {
	deployed, err := opts.Recorder.DeployedChanges(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(deployed, func(i, j int) bool {
		return deployed[i].CommittedAt.Before(deployed[j].CommittedAt)
	})

	cutoff := 0 // index into deployed: revert everything at or after this index
	if opts.To != "" {
		targetIdx, err := plan.Resolve(opts.Plan, opts.To)
		if err != nil {
			return nil, err
		}
		targetChangeID := opts.Plan.Entries[targetIdx].Change.ChangeID
		found := -1
		for i, d := range deployed {
			if d.ChangeID == targetChangeID {
				found = i
				break
			}
		}
		if found < 0 {
			return nil, coreerr.Usage("target %q is not currently deployed", opts.To)
		}
		cutoff = found + 1
	}

	toRevert := deployed[cutoff:]
	if len(toRevert) == 0 {
		return &RevertResult{}, nil
	}

	if !opts.AssumeYes {
		confirm := opts.Confirm
		if confirm == nil {
			confirm = func() bool { return false }
		}
		if !confirm() {
			return nil, &coreerr.Aborted{Msg: "Revert aborted by user."}
		}
	}

	result := &RevertResult{}
	for i := len(toRevert) - 1; i >= 0; i-- {
		d := toRevert[i]
		c := opts.Plan.ChangeByID(d.ChangeID)
		if c == nil {
			return result, coreerr.Usage("registry references change_id %q not found in plan", d.ChangeID)
		}
		if err := revertOne(ctx, opts, c); err != nil {
			return result, err
		}
		result.Reverted = append(result.Reverted, c.Name)
		opts.Logger.Info("revert.change", fmt.Sprintf("- %s", c.Name), map[string]any{"change": c.Name, "change_id": c.ChangeID})
	}
	return result, nil
}

func revertOne(ctx context.Context, opts RevertOptions, c *plan.Change) error {
	if err := opts.Adapter.AttachRegistry(ctx); err != nil {
		return err
	}
	defer opts.Adapter.DetachRegistry(ctx) //nolint:errcheck

	script, err := opts.Scripts.RevertScript(c)
	if err != nil {
		return err
	}

	managesOwn := engine.ManagesOwnTransactions(script)
	if err := opts.Adapter.ExecuteScript(ctx, script, managesOwn); err != nil {
		return coreerr.Script(c.Name, "revert", err)
	}

	return opts.Recorder.RecordRevert(ctx, c.ChangeID, registry.Person(opts.Identity))
}
