// Package riskgate scores a plan's effective risk tier and evaluates the
// autonomy/approval/environment policy gates that guard each FSM
// iteration. New logic (ralph has no risk-tier concept); grounded on the
// general shape of ralph's executor.Config validation checks and
// Heikkila-Pty-Ltd-cortex's purpose-tier classification for the idea of a
// weighted, threshold-bucketed score.
package riskgate

import (
	"sort"
	"strconv"
	"strings"

	"github.com/daydemir/conveyor/internal/config"
	"github.com/daydemir/conveyor/internal/planstore"
)

// Tier mirrors planstore.RiskTier but is declared locally so risk scoring
// stays decoupled from the plan document format.
type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

var tierRank = map[Tier]int{TierLow: 0, TierMedium: 1, TierHigh: 2}

func maxTier(a, b Tier) Tier {
	if tierRank[b] > tierRank[a] {
		return b
	}
	return a
}

// Input is everything score computation needs about one plan.
type Input struct {
	DeclaredTier       Tier
	Dependencies       []string
	SpecTargets        []string
	Tags               []string
	AutonomyAllowed    planstore.Autonomy
	PriorValidationFailures int
}

// Assessment is the result of scoring one plan, stored verbatim into
// run_state.role_state[plan_id] per spec.md §3.
type Assessment struct {
	DeclaredTier      Tier
	ComputedTier      Tier
	EffectiveTier     Tier
	Score             int
	Sensitive         bool
	SensitiveTagHits  []string
	SensitivePathHits []string
	Reasons           []string
}

// Score computes the weighted risk score and buckets it into a computed
// tier via the configured thresholds, then takes the effective tier as
// max(declared, computed) per the GLOSSARY's "Risk score / effective
// tier" entry.
func Score(in Input, model config.RiskModelConfig) Assessment {
	w := model.Weights
	score := 0
	var reasons []string

	switch in.DeclaredTier {
	case TierMedium:
		score += w.DeclaredMedium
		reasons = append(reasons, "declared tier medium")
	case TierHigh:
		score += w.DeclaredHigh
		reasons = append(reasons, "declared tier high")
	}

	if n := len(in.Dependencies); n > 0 {
		score += n * w.Dependency
		reasons = append(reasons, "dependency count "+strconv.Itoa(n))
	}

	tagHits := matchAny(in.Tags, model.SensitiveTags)
	if len(tagHits) > 0 {
		score += len(tagHits) * w.SensitiveTag
		reasons = append(reasons, "sensitive tags: "+join(tagHits))
	}

	pathHits := matchAnyPrefix(in.SpecTargets, model.SensitivePaths)
	if len(pathHits) > 0 {
		score += len(pathHits) * w.SensitivePath
		reasons = append(reasons, "sensitive paths: "+join(pathHits))
	}

	if in.AutonomyAllowed == planstore.AutonomyFull || in.AutonomyAllowed == planstore.AutonomyBoth {
		score += w.AutonomyFull
		reasons = append(reasons, "autonomy full permitted")
	}

	if in.PriorValidationFailures > 0 {
		score += in.PriorValidationFailures * w.ValidationFailure
		reasons = append(reasons, "prior validation failures "+strconv.Itoa(in.PriorValidationFailures))
	}

	computed := TierLow
	if score >= model.Thresholds.High {
		computed = TierHigh
	} else if score >= model.Thresholds.Medium {
		computed = TierMedium
	}

	effective := maxTier(in.DeclaredTier, computed)

	return Assessment{
		DeclaredTier:      in.DeclaredTier,
		ComputedTier:      computed,
		EffectiveTier:     effective,
		Score:             score,
		Sensitive:         len(tagHits) > 0 || len(pathHits) > 0,
		SensitiveTagHits:  tagHits,
		SensitivePathHits: pathHits,
		Reasons:           reasons,
	}
}

func matchAny(values, candidates []string) []string {
	set := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		set[c] = true
	}
	var hits []string
	for _, v := range values {
		if set[v] {
			hits = append(hits, v)
		}
	}
	sort.Strings(hits)
	return hits
}

func matchAnyPrefix(paths, sensitivePrefixes []string) []string {
	var hits []string
	for _, p := range paths {
		for _, prefix := range sensitivePrefixes {
			if hasPrefix(p, prefix) {
				hits = append(hits, p)
				break
			}
		}
	}
	sort.Strings(hits)
	return hits
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func join(values []string) string {
	return strings.Join(values, ", ")
}
