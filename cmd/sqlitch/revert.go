package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sqlitch/sqlitch/internal/deploy"
	"github.com/sqlitch/sqlitch/internal/engine"
	"github.com/sqlitch/sqlitch/internal/plan"
	"github.com/sqlitch/sqlitch/internal/registry"
)

var (
	flagRevertTo  string
	flagRevertYes bool
)

var revertCmd = &cobra.Command{
	Use:   "revert <target>",
	Short: "Revert deployed changes from a target database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cctx, err := buildContext()
		if err != nil {
			return err
		}
		id, err := resolveIdentity(cctx)
		if err != nil {
			return err
		}
		adapter, err := newAdapter(cctx, args[0])
		if err != nil {
			return err
		}

		ctx := context.Background()
		if err := adapter.EnsureRegistry(ctx, id.Name, id.Email); err != nil {
			return err
		}

		p, err := plan.ParseFile(cctx.PlanPath(), plan.Options{DefaultEngine: cctx.ActiveEngine()})
		if err != nil {
			return err
		}

		db, err := adapter.ConnectRegistry(ctx)
		if err != nil {
			return err
		}
		rec := engine.NewRecorder(db, p.Project)
		if err := rec.EnsureProject(ctx, p.URI, registry.Person(id)); err != nil {
			return err
		}

		result, err := deploy.RunRevert(ctx, deploy.RevertOptions{
			Plan:      p,
			Adapter:   adapter,
			Recorder:  rec,
			Scripts:   &deploy.FileScriptLoader{Root: cctx.ProjectRoot},
			Logger:    cctx.Logger,
			Identity:  id,
			To:        flagRevertTo,
			AssumeYes: flagRevertYes,
			Confirm:   confirmPrompt,
		})
		if result != nil && len(result.Reverted) == 0 && err == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing to revert.")
		}
		return err
	},
}

// confirmPrompt is the revert confirmation gate (spec §4.G "Revert"):
// asked once before any script runs, bypassed by --yes.
func confirmPrompt() bool {
	fmt.Fprint(os.Stderr, "Revert all changes? [y/N] ")
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func init() {
	revertCmd.Flags().StringVar(&flagRevertTo, "to", "", "revert back to (but not including) this change/tag (default: revert everything)")
	revertCmd.Flags().BoolVarP(&flagRevertYes, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(revertCmd)
}
