package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/daydemir/conveyor/internal/config"
	"github.com/daydemir/conveyor/internal/evidence"
	"github.com/daydemir/conveyor/internal/planstore"
)

func newCurateEvidenceCmd() *cobra.Command {
	var scope string
	var planID string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "curate-evidence",
		Short: "Run evidence curation standalone, outside a full run",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := os.Getwd()
			if err != nil {
				return err
			}

			cfg, err := config.Load(configPath(root))
			if err != nil {
				return fmt.Errorf("cli: loading config: %w", err)
			}

			store := planstore.NewStore(root)
			cat, err := store.LoadCatalog()
			if err != nil {
				return fmt.Errorf("cli: loading catalog: %w", err)
			}

			var plans []*planstore.Plan
			switch {
			case planID != "":
				p := cat.ByID(planID)
				if p == nil {
					return fmt.Errorf("cli: no plan %q in catalog", planID)
				}
				plans = []*planstore.Plan{p}
			case scope == "active":
				plans = cat.Active
			case scope == "completed":
				plans = cat.Completed
			case scope == "all":
				plans = cat.All()
			default:
				return fmt.Errorf("cli: unknown --scope %q (want active, completed, or all)", scope)
			}

			for _, plan := range plans {
				absPath := filepath.Join(root, plan.Path)
				result, err := evidence.Curate(evidence.CurateOptions{
					Root:              root,
					PlanID:            plan.ID,
					PlanPath:          plan.Path,
					PlanDir:           filepath.Dir(plan.Path),
					PlanContent:       string(plan.Body),
					GeneratedAt:       time.Now().UTC().Format(time.RFC3339),
					MaxReferences:     cfg.Evidence.Compaction.MaxReferences,
					KeepMaxPerBlocker: cfg.Evidence.Lifecycle.KeepMaxPerBlocker,
				})
				if err != nil {
					return fmt.Errorf("cli: curating %s: %w", plan.ID, err)
				}

				fmt.Printf("%s: %d reference(s), %d artifact(s) pruned\n", plan.ID, result.ReferenceCount, len(result.PrunedArtifacts))

				if dryRun {
					continue
				}
				if err := planstore.WriteBody(absPath, result.RewrittenDoc); err != nil {
					return fmt.Errorf("cli: writing %s: %w", plan.ID, err)
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "active", "catalog scope: active, completed, or all")
	cmd.Flags().StringVar(&planID, "plan-id", "", "curate a single plan id instead of the full scope")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would change without writing")

	return cmd
}

func init() {
	rootCmd.AddCommand(newCurateEvidenceCmd())
}
