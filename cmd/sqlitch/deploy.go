package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sqlitch/sqlitch/internal/deploy"
	"github.com/sqlitch/sqlitch/internal/engine"
	"github.com/sqlitch/sqlitch/internal/plan"
	"github.com/sqlitch/sqlitch/internal/registry"
)

var flagDeployTo string

var deployCmd = &cobra.Command{
	Use:   "deploy <target>",
	Short: "Deploy pending changes to a target database",
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

		result, err := deploy.Run(ctx, deploy.Options{
			Plan:     p,
			Adapter:  adapter,
			Recorder: rec,
			Scripts:  &deploy.FileScriptLoader{Root: cctx.ProjectRoot},
			Logger:   cctx.Logger,
			Identity: id,
			To:       flagDeployTo,
		})
		if result != nil && len(result.Deployed) == 0 && err == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing to deploy.")
		}
		return err
	},
}

func init() {
	deployCmd.Flags().StringVar(&flagDeployTo, "to", "", "deploy up to and including this change/tag (default: end of plan)")
	rootCmd.AddCommand(deployCmd)
}
