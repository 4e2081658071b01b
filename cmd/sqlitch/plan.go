package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sqlitch/sqlitch/internal/plan"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Inspect the project plan",
}

var planShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List the plan's changes and tags in file order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cctx, err := buildContext()
		if err != nil {
			return err
		}
		p, err := plan.ParseFile(cctx.PlanPath(), plan.Options{DefaultEngine: cctx.ActiveEngine()})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, e := range p.Entries {
			if e.IsTag() {
				fmt.Fprintf(out, "@%s\n", e.Tag.Name)
				continue
			}
			c := e.Change
			fmt.Fprintf(out, "%s  %s\n", c.ChangeID[:7], c.Name)
		}
		return nil
	},
}

func init() {
	planCmd.AddCommand(planShowCmd)
	rootCmd.AddCommand(planCmd)
}
