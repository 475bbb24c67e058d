// Package scheduler implements the main scheduling loop (spec.md §4.5)
// and the per-plan FSM (§4.7) that drives a plan from admission through
// role sessions, validation, evidence curation, and finalization.
package scheduler

import (
	"sort"
	"strings"

	"github.com/daydemir/conveyor/internal/planstore"
)

var executableStatuses = map[planstore.Status]bool{
	planstore.StatusQueued:     true,
	planstore.StatusInProgress: true,
	planstore.StatusValidation: true,
}

// ExecutableSet is the result of spec.md §4.5 steps 2-4: the ordered
// list of plans ready to run, plus the set of plans still waiting on an
// unsatisfied dependency.
type ExecutableSet struct {
	Plans   []*planstore.Plan
	Waiting []WaitingPlan
}

// WaitingPlan names a plan blocked by a dependency set.
type WaitingPlan struct {
	Plan            *planstore.Plan
	MissingDepSet   string // sorted, comma-joined, used as the emit-once cache key
	MissingDepsList []string
}

// terminalSets holds the cumulative outcomes a plan can settle into for
// the rest of this run.
type terminalSets struct {
	Completed map[string]bool
	Blocked   map[string]bool
	Failed    map[string]bool
	Deferred  map[string]bool // plans that returned Pending this run
}

func newTerminalSets(completed, blocked, failed []string) terminalSets {
	return terminalSets{
		Completed: toSet(completed),
		Blocked:   toSet(blocked),
		Failed:    toSet(failed),
		Deferred:  map[string]bool{},
	}
}

func toSet(values []string) map[string]bool {
	out := make(map[string]bool, len(values))
	for _, v := range values {
		out[v] = true
	}
	return out
}

// BuildExecutableSet implements spec.md §4.5 steps 2-3: filters active
// plans to those eligible to run this tick and sorts them by priority
// then lexicographic path.
func BuildExecutableSet(cat *planstore.Catalog, terms terminalSets) ExecutableSet {
	var result ExecutableSet

	for _, p := range cat.Active {
		if !executableStatuses[p.Metadata.Status] {
			continue
		}
		if terms.Completed[p.ID] || terms.Blocked[p.ID] || terms.Failed[p.ID] || terms.Deferred[p.ID] {
			continue
		}

		missing := missingDependencies(p, terms.Completed)
		if len(missing) > 0 {
			result.Waiting = append(result.Waiting, WaitingPlan{
				Plan:            p,
				MissingDepSet:   strings.Join(missing, ","),
				MissingDepsList: missing,
			})
			continue
		}

		result.Plans = append(result.Plans, p)
	}

	sort.Slice(result.Plans, func(i, j int) bool {
		a, b := result.Plans[i], result.Plans[j]
		if a.Metadata.Priority.Rank() != b.Metadata.Priority.Rank() {
			return a.Metadata.Priority.Rank() < b.Metadata.Priority.Rank()
		}
		return a.Path < b.Path
	})

	return result
}

func missingDependencies(p *planstore.Plan, completed map[string]bool) []string {
	var missing []string
	for _, dep := range p.Metadata.Dependencies {
		if !completed[dep] {
			missing = append(missing, dep)
		}
	}
	sort.Strings(missing)
	return missing
}
