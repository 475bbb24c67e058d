package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/daydemir/conveyor/internal/planstore"
	"github.com/daydemir/conveyor/internal/runstate"
)

// LoopOptions configures one scheduler loop run, spec.md §4.5.
type LoopOptions struct {
	MaxPlans      int // 0 = unbounded
	SkipPromotion bool
	OnlyPlanID    string // --plan-id scope, empty runs every executable plan
}

// LoopResult summarizes one Run call for CLI reporting.
type LoopResult struct {
	Ran       []string
	Completed []string
	Blocked   []string
	Failed    []string
	Pending   []string
}

func (r *LoopResult) record(planID string, outcome PlanOutcome) {
	r.Ran = append(r.Ran, planID)
	switch outcome {
	case OutcomeCompleted:
		r.Completed = append(r.Completed, planID)
	case OutcomeBlocked:
		r.Blocked = append(r.Blocked, planID)
	case OutcomeFailed:
		r.Failed = append(r.Failed, planID)
	case OutcomePending:
		r.Pending = append(r.Pending, planID)
	}
}

// Run drives the main scheduler loop (spec.md §4.5): build the executable
// set, run the FSM for the head plan in priority order, persist state
// after every plan, and terminate on an empty executable set or
// --max-plans. Once the set runs dry, eligible future plans are promoted
// and the loop re-enters exactly once more, unless SkipPromotion is set.
func Run(ctx context.Context, deps Deps, stateStore *runstate.Store, st *runstate.State, opts LoopOptions) (LoopResult, error) {
	var result LoopResult
	emittedDepSets := map[string]bool{}

	for pass := 0; pass < 2; pass++ {
		for {
			if opts.MaxPlans > 0 && len(result.Ran) >= opts.MaxPlans {
				return result, nil
			}

			cat, err := deps.Store.LoadCatalog()
			if err != nil {
				return result, fmt.Errorf("scheduler: loading catalog: %w", err)
			}

			terms := newTerminalSets(st.CompletedPlans, st.BlockedPlans, st.FailedPlans)
			for _, pid := range result.Pending {
				terms.Deferred[pid] = true
			}

			set := BuildExecutableSet(cat, terms)

			for _, w := range set.Waiting {
				if emittedDepSets[w.MissingDepSet] {
					continue
				}
				emittedDepSets[w.MissingDepSet] = true
				deps.event(st, w.Plan.ID, "plan_waiting_dependency", map[string]interface{}{"missing": w.MissingDepsList})
			}

			if opts.OnlyPlanID != "" {
				set.Plans = filterByID(set.Plans, opts.OnlyPlanID)
			}

			if len(set.Plans) == 0 {
				break
			}

			plan := set.Plans[0]
			fsmResult, err := RunPlanFSM(ctx, plan, deps, st)
			if err != nil {
				return result, fmt.Errorf("scheduler: running plan %s: %w", plan.ID, err)
			}
			result.record(plan.ID, fsmResult.Outcome)

			if err := stateStore.Save(st, deps.now().UTC().Format(time.RFC3339)); err != nil {
				return result, fmt.Errorf("scheduler: persisting state: %w", err)
			}
		}

		if opts.SkipPromotion || pass == 1 {
			break
		}

		promoted, err := promoteEligibleFutures(deps.Store, deps.now())
		if err != nil {
			return result, fmt.Errorf("scheduler: promoting futures: %w", err)
		}
		if promoted == 0 {
			break
		}
		st.Stats.Promotions += promoted
		if err := stateStore.Save(st, deps.now().UTC().Format(time.RFC3339)); err != nil {
			return result, fmt.Errorf("scheduler: persisting state: %w", err)
		}
	}

	return result, nil
}

func filterByID(plans []*planstore.Plan, id string) []*planstore.Plan {
	for _, p := range plans {
		if p.ID == id {
			return []*planstore.Plan{p}
		}
	}
	return nil
}

// promoteEligibleFutures promotes every future-phase plan whose status is
// ready-for-promotion, per spec.md §4.5's re-entry step.
func promoteEligibleFutures(store *planstore.Store, now time.Time) (int, error) {
	cat, err := store.LoadCatalog()
	if err != nil {
		return 0, err
	}
	stamp := planstore.NowStamp(now)
	count := 0
	for _, p := range cat.Future {
		if p.Metadata.Status != planstore.StatusReadyForPromotion {
			continue
		}
		if _, err := store.Promote(cat, p, stamp); err != nil {
			return count, fmt.Errorf("promoting %s: %w", p.ID, err)
		}
		count++
	}
	return count, nil
}
