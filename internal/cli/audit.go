package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/daydemir/conveyor/internal/planstore"
	"github.com/daydemir/conveyor/internal/runstate"
)

func newAuditCmd() *cobra.Command {
	var scope string
	var jsonOutput bool
	var showEvents bool

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect catalog/run-state/event-log contents",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := os.Getwd()
			if err != nil {
				return err
			}

			cat, err := planstore.NewStore(root).LoadCatalog()
			if err != nil {
				return fmt.Errorf("cli: loading catalog: %w", err)
			}

			var plans []*planstore.Plan
			switch scope {
			case "active":
				plans = cat.Active
			case "completed":
				plans = cat.Completed
			case "all":
				plans = cat.All()
			default:
				return fmt.Errorf("cli: unknown --scope %q (want active, completed, or all)", scope)
			}
			sort.Slice(plans, func(i, j int) bool { return plans[i].ID < plans[j].ID })

			store := runstate.NewStore(runStatePath(root), false)
			st, err := store.Load()
			if err != nil {
				return fmt.Errorf("cli: loading run state: %w", err)
			}

			if jsonOutput {
				printAuditJSON(plans, st)
			} else {
				printAuditText(plans, st)
			}

			if showEvents {
				events, err := runstate.NewEventLog(eventsPath(root), false).ReadAll()
				if err != nil {
					return fmt.Errorf("cli: reading event log: %w", err)
				}
				for _, ev := range events {
					fmt.Printf("%s %s %-28s %v\n", ev.Timestamp, ev.PlanID, ev.Type, ev.Details)
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "active", "catalog scope: active, completed, or all")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print as JSON")
	cmd.Flags().BoolVar(&showEvents, "events", false, "also print the run event log")

	return cmd
}

func printAuditText(plans []*planstore.Plan, st *runstate.State) {
	for _, p := range plans {
		fmt.Printf("%-30s %-12s %-10s %-8s deps=%v\n",
			p.ID, p.Metadata.Status, p.Metadata.Priority, p.Metadata.RiskTier, p.Metadata.Dependencies)
	}
	if st == nil {
		fmt.Println("no run state on disk")
		return
	}
	fmt.Printf("run %s mode=%s completed=%d blocked=%d failed=%d\n",
		st.RunID, st.EffectiveMode, len(st.CompletedPlans), len(st.BlockedPlans), len(st.FailedPlans))
}

func printAuditJSON(plans []*planstore.Plan, st *runstate.State) {
	ids := make([]string, len(plans))
	for i, p := range plans {
		ids[i] = p.ID
	}
	runID := ""
	if st != nil {
		runID = st.RunID
	}
	fmt.Printf(`{"plans":%s,"run_id":%q}`+"\n", jsonStrings(ids), runID)
}

func init() {
	rootCmd.AddCommand(newAuditCmd())
}
