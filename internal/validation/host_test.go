package validation

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/daydemir/conveyor/internal/capability"
)

func writePayload(t *testing.T, path string, p Payload) {
	t.Helper()
	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write payload: %v", err)
	}
}

func runnerReturning(result CommandResult, err error) ProviderRunner {
	return func(context.Context, string, string) (CommandResult, error) { return result, err }
}

func TestEvaluateHostLaneCIPassedFromPayload(t *testing.T) {
	resultPath := filepath.Join(t.TempDir(), "result.json")
	writePayload(t, resultPath, Payload{Status: "passed"})

	outcome := EvaluateHostLane(context.Background(), HostLaneOptions{
		Mode: "ci", CICommand: "run-ci", ResultPath: resultPath,
		Run: runnerReturning(CommandResult{ExitCode: 0}, nil),
	})
	if outcome.Status != HostPassed {
		t.Errorf("status = %q, want passed", outcome.Status)
	}
}

func TestEvaluateHostLaneInconsistentPayloadBecomesUnavailable(t *testing.T) {
	resultPath := filepath.Join(t.TempDir(), "result.json")
	writePayload(t, resultPath, Payload{Status: "passed"})

	outcome := EvaluateHostLane(context.Background(), HostLaneOptions{
		Mode: "ci", CICommand: "run-ci", ResultPath: resultPath,
		Run: runnerReturning(CommandResult{ExitCode: 1}, nil),
	})
	if outcome.Status != HostUnavailable {
		t.Errorf("status = %q, want unavailable", outcome.Status)
	}
}

func TestEvaluateHostLaneCIFallsBackToExitStatus(t *testing.T) {
	resultPath := filepath.Join(t.TempDir(), "missing-result.json")

	outcome := EvaluateHostLane(context.Background(), HostLaneOptions{
		Mode: "ci", CICommand: "run-ci", ResultPath: resultPath,
		Run: runnerReturning(CommandResult{ExitCode: 0}, nil),
	})
	if outcome.Status != HostPassed {
		t.Errorf("status = %q, want passed via exit-status fallback", outcome.Status)
	}
}

func TestEvaluateHostLaneLocalRequiresCapabilitiesWhenNoCommand(t *testing.T) {
	outcome := EvaluateHostLane(context.Background(), HostLaneOptions{
		Mode:         "local",
		Capabilities: capability.Result{DockerAvailable: false, LocalhostBind: true},
	})
	if outcome.Status != HostUnavailable {
		t.Errorf("status = %q, want unavailable", outcome.Status)
	}
}

func TestEvaluateHostLaneLocalRunsHostRequiredInProcess(t *testing.T) {
	outcome := EvaluateHostLane(context.Background(), HostLaneOptions{
		Mode:         "local",
		HostRequired: []string{"true"},
		Capabilities: capability.Result{DockerAvailable: true, LocalhostBind: true},
	})
	if outcome.Status != HostPassed {
		t.Errorf("status = %q, want passed", outcome.Status)
	}
}

func TestEvaluateHostLaneHybridFallsBackToLocal(t *testing.T) {
	ciResultPath := filepath.Join(t.TempDir(), "ci-result.json")
	calls := 0
	run := func(ctx context.Context, command, resultPath string) (CommandResult, error) {
		calls++
		return CommandResult{ExitCode: 0}, nil
	}
	outcome := EvaluateHostLane(context.Background(), HostLaneOptions{
		Mode:         "hybrid",
		CICommand:    "", // no ci command -> unavailable
		LocalCommand: "run-local",
		ResultPath:   ciResultPath,
		Run:          run,
	})
	if outcome.Status != HostPassed {
		t.Errorf("status = %q, want passed via local fallback", outcome.Status)
	}
	if calls != 1 {
		t.Errorf("expected local provider invoked once, got %d calls", calls)
	}
}

func TestEvaluateHostLaneHybridBothUnavailableIsPending(t *testing.T) {
	outcome := EvaluateHostLane(context.Background(), HostLaneOptions{
		Mode:         "hybrid",
		Capabilities: capability.Result{DockerAvailable: false, LocalhostBind: false},
	})
	if outcome.Status != HostPending {
		t.Errorf("status = %q, want pending", outcome.Status)
	}
}
