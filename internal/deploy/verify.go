package deploy

import (
	"context"
	"fmt"

	"github.com/sqlitch/sqlitch/internal/engine"
	"github.com/sqlitch/sqlitch/internal/plan"
	"github.com/sqlitch/sqlitch/internal/registry"
)

// VerifyOptions bundles everything a verify run needs.
type VerifyOptions struct {
	Plan     *plan.Plan
	Adapter  engine.Adapter
	Recorder *registry.Recorder
	Scripts  ScriptLoader
	Logger   interface {
		Info(event, msg string, payload map[string]any)
	}
}

// ChangeVerification records the outcome of verifying one deployed
// change.
type ChangeVerification struct {
	Change  string
	Skipped bool // no verify script exists
	Err     error
}

// VerifyResult is the summary report of spec §4.G "Verify": total
// changes checked and how many produced an error.
type VerifyResult struct {
	Changes      []ChangeVerification
	ErrorCount   int
}

// RunVerify executes spec §4.G's Verify algorithm: for each deployed
// change in deploy order, run verify/<name>.sql (if present) inside a
// transaction that is always rolled back, regardless of outcome —
// verify never mutates the workspace.
func RunVerify(ctx context.Context, opts VerifyOptions) (*VerifyResult, error) {
	deployed, err := opts.Recorder.DeployedChanges(ctx)
	if err != nil {
		return nil, err
	}
	if len(deployed) == 0 {
		opts.Logger.Info("verify.empty", "No changes to verify.", nil)
		return &VerifyResult{}, nil
	}

	result := &VerifyResult{}
	for _, d := range deployed {
		c := opts.Plan.ChangeByID(d.ChangeID)
		name := d.Name
		if c == nil {
			result.Changes = append(result.Changes, ChangeVerification{Change: name, Err: fmt.Errorf("change_id %q not found in plan", d.ChangeID)})
			result.ErrorCount++
			continue
		}

		script, ok, err := opts.Scripts.VerifyScript(c)
		if err != nil {
			result.Changes = append(result.Changes, ChangeVerification{Change: name, Err: err})
			result.ErrorCount++
			continue
		}
		if !ok {
			opts.Logger.Info("verify.skip", fmt.Sprintf("# %s .. SKIP (no verify script)", name), map[string]any{"change": name})
			result.Changes = append(result.Changes, ChangeVerification{Change: name, Skipped: true})
			continue
		}

		verifyErr := opts.Adapter.ExecuteScriptDryRun(ctx, script)
		result.Changes = append(result.Changes, ChangeVerification{Change: name, Err: verifyErr})
		if verifyErr != nil {
			result.ErrorCount++
			opts.Logger.Info("verify.fail", fmt.Sprintf("# %s .. FAIL", name), map[string]any{"change": name, "error": verifyErr.Error()})
		} else {
			opts.Logger.Info("verify.ok", fmt.Sprintf("# %s .. ok", name), map[string]any{"change": name})
		}
	}
	return result, nil
}

// Summary renders the "Verify Summary Report" spec §4.G requires.
func (r *VerifyResult) Summary() string {
	return fmt.Sprintf("Verify Summary Report\nChanges: %d\nErrors:  %d\n", len(r.Changes), r.ErrorCount)
}
