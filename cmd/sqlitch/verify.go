package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sqlitch/sqlitch/internal/deploy"
	"github.com/sqlitch/sqlitch/internal/engine"
	"github.com/sqlitch/sqlitch/internal/plan"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <target>",
	Short: "Verify deployed changes against a target database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cctx, err := buildContext()
		if err != nil {
			return err
		}
		adapter, err := newAdapter(cctx, args[0])
		if err != nil {
			return err
		}

		ctx := context.Background()
		p, err := plan.ParseFile(cctx.PlanPath(), plan.Options{DefaultEngine: cctx.ActiveEngine()})
		if err != nil {
			return err
		}

		db, err := adapter.ConnectRegistry(ctx)
		if err != nil {
			return err
		}
		rec := engine.NewRecorder(db, p.Project)

		result, err := deploy.RunVerify(ctx, deploy.VerifyOptions{
			Plan:     p,
			Adapter:  adapter,
			Recorder: rec,
			Scripts:  &deploy.FileScriptLoader{Root: cctx.ProjectRoot},
			Logger:   cctx.Logger,
		})
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), result.Summary())
		if result.ErrorCount > 0 {
			return fmt.Errorf("verify found %d error(s)", result.ErrorCount)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
