// Command sqlitch is a thin driver stub over internal/{corectx,plan,
// config,identity,engine,registry,deploy}: it wires a handful of
// subcommands (deploy/revert/verify/status/plan) onto the core so the
// core can be exercised end to end from a terminal. It is explicitly
// not a full reimplementation of the reference CLI's flag surface,
// help text, or subcommand catalog (see SPEC_FULL.md §5 non-goals) —
// grounded on cmd/bd/config.go's command-tree-with-subcommands layout.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sqlitch/sqlitch/internal/coreerr"
)

var (
	flagEngine    string
	flagPlanFile  string
	flagQuiet     bool
	flagJSON      bool
	flagUserName  string
	flagUserEmail string
)

var rootCmd = &cobra.Command{
	Use:   "sqlitch",
	Short: "Database change management",
	Long: `sqlitch applies, reverts, and verifies a project's plan of
database changes against a target database, recording what has been
deployed in a registry database alongside it.

This build wires only deploy, revert, verify, status, and plan show;
the reference CLI's full subcommand catalog (add, init, rework, bundle,
checkout, target, engine, upgrade, tag, ...) is out of scope here.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagEngine, "engine", "", "engine to use (sqlite, mysql, pg); defaults to core.engine")
	rootCmd.PersistentFlags().StringVar(&flagPlanFile, "plan-file", "", "path to the plan file; defaults to sqitch.plan in the project root")
	rootCmd.PersistentFlags().BoolVar(&flagQuiet, "quiet", false, "suppress human-readable progress output")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "emit structured JSON log records instead of human-readable lines")
	rootCmd.PersistentFlags().StringVar(&flagUserName, "user-name", "", "override the resolved planner/committer name")
	rootCmd.PersistentFlags().StringVar(&flagUserEmail, "user-email", "", "override the resolved planner/committer email")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "sqlitch:", err)
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	if ec, ok := err.(coreerr.ExitCoder); ok {
		return ec.ExitCode()
	}
	return 1
}
