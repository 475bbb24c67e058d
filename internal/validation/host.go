package validation

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"

	"github.com/daydemir/conveyor/internal/capability"
)

// HostStatus is the host-lane outcome vocabulary spec.md §4.7 step 12
// uses.
type HostStatus string

const (
	HostPassed      HostStatus = "passed"
	HostFailed      HostStatus = "failed"
	HostPending     HostStatus = "pending"
	HostUnavailable HostStatus = "unavailable"
)

// Payload is the structured JSON a host-validation provider writes to
// ORCH_HOST_VALIDATION_RESULT_PATH.
type Payload struct {
	Status   string   `json:"status"`
	Reason   string   `json:"reason,omitempty"`
	Evidence []string `json:"evidence,omitempty"`
}

// HostOutcome is the resolved host-lane result after provider selection,
// payload parsing, and inconsistency detection.
type HostOutcome struct {
	Status   HostStatus
	Provider string
	Reason   string
	Evidence []string
}

// ErrLocalCapabilitiesUnavailable is returned when mode=local has no
// configured command and the required host capabilities (Docker socket,
// localhost bind) are not present.
var ErrLocalCapabilitiesUnavailable = errors.New("validation: local host capabilities unavailable")

// ProviderRunner executes one host-validation provider command, given the
// path the provider writes its payload to (ORCH_HOST_VALIDATION_RESULT_PATH),
// and returns the command's own exit classification.
type ProviderRunner func(ctx context.Context, command string, resultPath string) (CommandResult, error)

// HostLaneOptions configures one host-lane evaluation.
type HostLaneOptions struct {
	Mode           string // ci | local | hybrid
	CICommand      string
	LocalCommand   string
	HostRequired   []string
	WorkDir        string
	ResultPath     string
	TimeoutSeconds int
	Capabilities   capability.Result
	Run            ProviderRunner
}

func defaultProviderRunner(timeoutSeconds int) ProviderRunner {
	return func(ctx context.Context, command, resultPath string) (CommandResult, error) {
		_ = os.Remove(resultPath)
		quoted := "'" + strings.ReplaceAll(resultPath, "'", `'\''`) + "'"
		exported := "ORCH_HOST_VALIDATION_RESULT_PATH=" + quoted + "; export ORCH_HOST_VALIDATION_RESULT_PATH; " + command
		result := runCommand(ctx, "", exported, timeoutSeconds)
		result.Command = command
		return result, nil
	}
}

// EvaluateHostLane implements spec.md §4.7 step 12's mode dispatch and
// inconsistency rule.
func EvaluateHostLane(ctx context.Context, opts HostLaneOptions) HostOutcome {
	run := opts.Run
	if run == nil {
		run = defaultProviderRunner(opts.TimeoutSeconds)
	}

	switch opts.Mode {
	case "ci":
		return runProvider(ctx, "ci", opts.CICommand, opts.ResultPath, run)
	case "local":
		return evaluateLocal(ctx, opts, run)
	case "hybrid":
		ciOutcome := runProvider(ctx, "ci", opts.CICommand, opts.ResultPath, run)
		if ciOutcome.Status == HostPassed || ciOutcome.Status == HostFailed {
			return ciOutcome
		}
		localOutcome := evaluateLocal(ctx, opts, run)
		if localOutcome.Status == HostUnavailable && ciOutcome.Status == HostUnavailable {
			return HostOutcome{Status: HostPending, Provider: "hybrid", Reason: "both ci and local providers unavailable"}
		}
		return localOutcome
	default:
		return HostOutcome{Status: HostUnavailable, Provider: opts.Mode, Reason: "unknown host validation mode"}
	}
}

func evaluateLocal(ctx context.Context, opts HostLaneOptions, run ProviderRunner) HostOutcome {
	if opts.LocalCommand != "" {
		return runProvider(ctx, "local", opts.LocalCommand, opts.ResultPath, run)
	}
	if !opts.Capabilities.DockerAvailable || !opts.Capabilities.LocalhostBind {
		return HostOutcome{Status: HostUnavailable, Provider: "local", Reason: ErrLocalCapabilitiesUnavailable.Error()}
	}
	outcome := RunAlwaysLane(ctx, opts.WorkDir, opts.HostRequired, opts.TimeoutSeconds)
	if outcome.Passed {
		return HostOutcome{Status: HostPassed, Provider: "local"}
	}
	return HostOutcome{Status: HostFailed, Provider: "local", Reason: outcome.FailureReason()}
}

func runProvider(ctx context.Context, name, command, resultPath string, run ProviderRunner) HostOutcome {
	if command == "" {
		return HostOutcome{Status: HostUnavailable, Provider: name, Reason: "no command configured"}
	}

	cmdResult, err := run(ctx, command, resultPath)
	if err != nil {
		return HostOutcome{Status: HostUnavailable, Provider: name, Reason: err.Error()}
	}

	payload, readErr := readPayload(resultPath)
	if readErr != nil {
		return HostOutcome{Status: HostUnavailable, Provider: name, Reason: readErr.Error()}
	}

	if payload == nil {
		if cmdResult.Passed() {
			return HostOutcome{Status: HostPassed, Provider: name}
		}
		if cmdResult.TimedOut {
			return HostOutcome{Status: HostUnavailable, Provider: name, Reason: "provider command timed out"}
		}
		return HostOutcome{Status: HostFailed, Provider: name, Reason: cmdResult.Output}
	}

	status := HostStatus(payload.Status)
	if status == HostPassed && !cmdResult.Passed() {
		return HostOutcome{Status: HostUnavailable, Provider: name, Reason: "payload reported passed but driver exited non-zero", Evidence: payload.Evidence}
	}

	switch status {
	case HostPassed, HostFailed, HostPending:
		return HostOutcome{Status: status, Provider: name, Reason: payload.Reason, Evidence: payload.Evidence}
	default:
		return HostOutcome{Status: HostUnavailable, Provider: name, Reason: "unrecognized payload status: " + payload.Status}
	}
}

func readPayload(path string) (*Payload, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var payload Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}
