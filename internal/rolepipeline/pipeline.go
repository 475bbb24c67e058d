// Package rolepipeline derives per-risk-tier role stage sequences and
// advances/resets per-plan pipeline state, per spec.md §4.6. New logic —
// ralph runs a single fixed loop rather than a role-staged pipeline — so
// this package is grounded on the general "advance an index, reset on
// mismatch" shape of ralph's executor.LoopWithAnalysis control flow rather
// than any single file.
package rolepipeline

import (
	"strings"

	"github.com/daydemir/conveyor/internal/config"
	"github.com/daydemir/conveyor/internal/riskgate"
)

// Role is one pipeline stage.
type Role string

const (
	RolePlanner  Role = "planner"
	RoleExplorer Role = "explorer"
	RoleWorker   Role = "worker"
	RoleReviewer Role = "reviewer"
)

// Scope is the subset of plan metadata that gates stage-reuse, per
// spec.md §9's Open Question: "scope" is exactly
// {Dependencies, Spec-Targets, Tags}.
type Scope struct {
	Dependencies []string
	SpecTargets  []string
	Tags         []string
}

// Key renders a stable, order-independent identity for a scope snapshot so
// it can be compared across FSM re-entries without reordering bugs.
func (s Scope) Key() string {
	dep := sortedCopy(s.Dependencies)
	targets := sortedCopy(s.SpecTargets)
	tags := sortedCopy(s.Tags)
	return strings.Join(dep, ",") + "|" + strings.Join(targets, ",") + "|" + strings.Join(tags, ",")
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sortStrings(out)
	return out
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// StagesFor returns the configured role sequence for a risk tier when one
// is supplied, falling back to spec.md §4.6's default pipelines.
func StagesFor(tier riskgate.Tier, pipelines config.PipelinesConfig) []string {
	switch tier {
	case riskgate.TierMedium:
		if len(pipelines.Medium) > 0 {
			return pipelines.Medium
		}
		return []string{string(RolePlanner), string(RoleWorker), string(RoleReviewer)}
	case riskgate.TierHigh:
		if len(pipelines.High) > 0 {
			return pipelines.High
		}
		return []string{string(RolePlanner), string(RoleExplorer), string(RoleWorker), string(RoleReviewer)}
	default:
		if len(pipelines.Low) > 0 {
			return pipelines.Low
		}
		return []string{string(RoleWorker)}
	}
}

// StageKey joins a stage sequence into the comparable identity spec.md
// §4.6 calls stage_key.
func StageKey(stages []string) string {
	return strings.Join(stages, ">")
}

// State is one plan's pipeline position, the shape persisted into
// run_state.role_state[plan_id].stages/stage_key/current_index/completed_stages.
type State struct {
	Stages          []string
	StageKey        string
	CurrentIndex    int
	CompletedStages []string
	ScopeKey        string
	StageCompletionScope map[string]string // role -> scope key at last successful completion
}

// NewState builds a fresh pipeline state at index 0 for the given tier.
func NewState(tier riskgate.Tier, pipelines config.PipelinesConfig, scope Scope) State {
	stages := StagesFor(tier, pipelines)
	return State{
		Stages:               stages,
		StageKey:             StageKey(stages),
		CurrentIndex:         0,
		ScopeKey:             scope.Key(),
		StageCompletionScope: make(map[string]string),
	}
}

// Reconcile implements spec.md §4.6's re-entry rule: if the stage_key
// computed for the current tier differs from the persisted one (the risk
// tier changed pipelines), the state resets to index 0 with a fresh
// stage_key; otherwise the existing state (and any stage-reuse
// eligibility) is kept.
func Reconcile(prev State, tier riskgate.Tier, pipelines config.PipelinesConfig, scope Scope) State {
	stages := StagesFor(tier, pipelines)
	key := StageKey(stages)
	if key != prev.StageKey {
		return NewState(tier, pipelines, scope)
	}
	next := prev
	next.ScopeKey = scope.Key()
	return next
}

// CurrentRole returns the role at the pipeline's current index, or "" if
// the pipeline has run past its last stage.
func (s State) CurrentRole() Role {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Stages) {
		return ""
	}
	return Role(s.Stages[s.CurrentIndex])
}

// Done reports whether every stage has been advanced past.
func (s State) Done() bool {
	return s.CurrentIndex >= len(s.Stages)
}

// CanReuseStage implements spec.md §4.6's stage-reuse rule: a previously
// completed planner/explorer stage may be skipped iff stage_key and scope
// are unchanged since that stage's last successful completion.
func (s State) CanReuseStage(role Role) bool {
	if role != RolePlanner && role != RoleExplorer {
		return false
	}
	lastScope, completed := s.StageCompletionScope[string(role)]
	return completed && lastScope == s.ScopeKey
}

// AdvanceStage marks the current stage completed (recording the scope it
// completed under, for future reuse checks) and moves to the next index.
func AdvanceStage(s State) State {
	role := s.CurrentRole()
	if role == "" {
		return s
	}
	next := s
	next.CompletedStages = append(append([]string(nil), s.CompletedStages...), string(role))
	next.StageCompletionScope = copyScopeMap(s.StageCompletionScope)
	next.StageCompletionScope[string(role)] = s.ScopeKey
	next.CurrentIndex = s.CurrentIndex + 1
	return next
}

// RewindToWorker implements spec.md §4.6's "reset on incomplete
// completion": after the pipeline finishes but the document isn't yet
// Status: completed, it rewinds to the worker index and loops again.
func RewindToWorker(s State) State {
	next := s
	for i, stage := range s.Stages {
		if stage == string(RoleWorker) {
			next.CurrentIndex = i
			return next
		}
	}
	next.CurrentIndex = 0
	return next
}

func copyScopeMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
