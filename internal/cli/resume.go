package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/daydemir/conveyor/internal/runstate"
)

func newResumeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Continue a previously interrupted run",
	}
	f := addSharedRunFlags(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		root, err := os.Getwd()
		if err != nil {
			return err
		}

		statePath := runStatePath(root)
		store := runstate.NewStore(statePath, false)
		st, err := store.Load()
		if err != nil {
			return fmt.Errorf("cli: loading run state: %w", err)
		}
		if st == nil {
			return fmt.Errorf("cli: no run state at %s to resume (use `conveyor run` to start one)", statePath)
		}

		runID := f.runID
		if runID == "" {
			runID = st.RunID
		}

		return driveRun(cmd, f, runID, st.EffectiveMode)
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(newResumeCmd())
}
