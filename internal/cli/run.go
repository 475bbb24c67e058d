package cli

import (
	"github.com/spf13/cobra"

	"github.com/daydemir/conveyor/internal/runstate"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start a new run, driving executable plans to completion",
	}
	f := addSharedRunFlags(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		runID := f.runID
		if runID == "" {
			runID = newRunID()
		}
		return driveRun(cmd, f, runID, runstate.EffectiveMode(f.mode))
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(newRunCmd())
}
