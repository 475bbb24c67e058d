// Package cli wires the external interface spec.md §6 names: the
// run/resume/audit/curate-evidence subcommands and their shared flag set.
// Grounded on ralph's internal/cli cobra layout (root.go's Execute/rootCmd
// pairing, run.go's package-level flag vars wired in an init()).
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Version is set by goreleaser via ldflags.
	Version = "dev"
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "conveyor",
	Short: "Risk-adaptive, resumable orchestrator for plan execution",
	Long: `Conveyor drives plan documents through a role pipeline of isolated
executor sessions, gates completion on multi-lane validation, and curates
durable evidence.

Core commands:
  run                Start a new run, driving executable plans to completion
  resume             Continue a previously interrupted run
  audit              Inspect catalog/run-state/event-log contents
  curate-evidence    Run evidence curation standalone, outside a full run`,
	Version: Version,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default docs/ops/automation/orchestrator.config.json)")
	rootCmd.SetVersionTemplate(fmt.Sprintf("conveyor version %s\n", Version))
}
