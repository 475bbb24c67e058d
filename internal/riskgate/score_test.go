package riskgate

import (
	"testing"

	"github.com/daydemir/conveyor/internal/config"
	"github.com/daydemir/conveyor/internal/planstore"
)

func defaultModel() config.RiskModelConfig {
	return config.DefaultConfig().RoleOrchestration.RiskModel
}

func TestScoreLowRiskStaysLow(t *testing.T) {
	model := defaultModel()
	a := Score(Input{DeclaredTier: TierLow}, model)
	if a.EffectiveTier != TierLow {
		t.Errorf("EffectiveTier = %q, want low", a.EffectiveTier)
	}
	if a.Score != 0 {
		t.Errorf("Score = %d, want 0", a.Score)
	}
}

func TestScoreDeclaredHighAlwaysWinsEffective(t *testing.T) {
	model := defaultModel()
	a := Score(Input{DeclaredTier: TierHigh}, model)
	if a.EffectiveTier != TierHigh {
		t.Errorf("EffectiveTier = %q, want high", a.EffectiveTier)
	}
}

func TestScoreSensitiveTagsAndPathsCrossMediumThreshold(t *testing.T) {
	model := defaultModel()
	model.SensitiveTags = []string{"auth", "payments"}
	model.SensitivePaths = []string{"internal/auth/"}

	a := Score(Input{
		DeclaredTier: TierLow,
		Tags:         []string{"auth"},
		SpecTargets:  []string{"internal/auth/login.go"},
	}, model)

	if !a.Sensitive {
		t.Error("expected sensitive = true")
	}
	if a.Score < model.Thresholds.Medium {
		t.Errorf("Score %d did not cross medium threshold %d", a.Score, model.Thresholds.Medium)
	}
	if a.EffectiveTier != TierMedium {
		t.Errorf("EffectiveTier = %q, want medium", a.EffectiveTier)
	}
}

func TestScoreDependenciesAndPriorFailuresAccumulate(t *testing.T) {
	model := defaultModel()
	a := Score(Input{
		DeclaredTier:            TierLow,
		Dependencies:            []string{"a", "b", "c"},
		PriorValidationFailures: 2,
	}, model)

	want := 3*model.Weights.Dependency + 2*model.Weights.ValidationFailure
	if a.Score != want {
		t.Errorf("Score = %d, want %d", a.Score, want)
	}
}

func TestScoreAutonomyFullAddsWeight(t *testing.T) {
	model := defaultModel()
	a := Score(Input{DeclaredTier: TierLow, AutonomyAllowed: planstore.AutonomyFull}, model)
	if a.Score != model.Weights.AutonomyFull {
		t.Errorf("Score = %d, want %d", a.Score, model.Weights.AutonomyFull)
	}
}
