package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sqlitch/sqlitch/internal/engine"
	"github.com/sqlitch/sqlitch/internal/plan"
)

var statusCmd = &cobra.Command{
	Use:   "status <target>",
	Short: "Show the deployment status of a target database",
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

		deployed, err := rec.DeployedChanges(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(deployed) == 0 {
			fmt.Fprintln(out, "No changes deployed.")
			return nil
		}

		fmt.Fprintf(out, "Project:  %s\n", p.Project)
		last := deployed[len(deployed)-1]
		fmt.Fprintf(out, "Change:   %s\n", last.Name)
		fmt.Fprintf(out, "Deployed: %s\n", last.CommittedAt.Format("2006-01-02 15:04:05 -0700"))

		pending := 0
		deployedIDs := make(map[string]bool, len(deployed))
		for _, d := range deployed {
			deployedIDs[d.ChangeID] = true
		}
		for _, c := range p.Changes() {
			if !deployedIDs[c.ChangeID] {
				pending++
			}
		}
		if pending > 0 {
			fmt.Fprintf(out, "\n%d change(s) not yet deployed.\n", pending)
		} else {
			fmt.Fprintln(out, "\nNothing to deploy (up-to-date).")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
