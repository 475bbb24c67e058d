package sessionrunner

// classifyInput bundles everything the outcome classifier in spec.md
// §4.7 step 3 needs to decide. The result-payload contract, the
// contextRemaining/contextThreshold comparison, and this priority
// ordering are new: no teacher analog exists for a JSON result-payload
// contract. It is grounded on the teacher's general pattern of
// "subprocess exit code classification plus a structured completion
// artifact" (executor.go's summary.json check) scaled up to this
// spec's richer schema.
type classifyInput struct {
	timedOut             bool
	exitCode             int
	handoffExitCode      int
	requireResultPayload bool
	contextThreshold     int
	resultPath           string
	readResult           func(path string) (*ResultPayload, error)
	capture              string
}

// classify applies spec.md §4.7 step 3's priority-ordered rules:
//  1. timeout or signal kill -> failed
//  2. exit code == handoffExitCode -> handoff_required
//  3. any other non-zero exit -> failed
//  4. exit 0, no result file, requireResultPayload -> handoff_required
//  5. exit 0, no result file, !requireResultPayload -> completed
//  6. result file present, status completed, no contextRemaining ->
//     handoff_required
//  7. result file present -> honor its status, applying the
//     contextRemaining/contextThreshold override
func classify(in classifyInput) Classification {
	if in.timedOut {
		return Classification{Outcome: OutcomeFailed, Reason: "session timed out", Capture: in.capture}
	}

	if in.exitCode == in.handoffExitCode && in.handoffExitCode != 0 {
		return Classification{Outcome: OutcomeHandoffRequired, Reason: "executor requested handoff via exit code", Capture: in.capture}
	}

	if in.exitCode != 0 {
		return Classification{Outcome: OutcomeFailed, Reason: "executor exited non-zero", Capture: in.capture}
	}

	payload, err := in.readResult(in.resultPath)
	if err != nil {
		return Classification{Outcome: OutcomeFailed, Reason: "result payload unreadable: " + err.Error(), Capture: in.capture}
	}

	if payload == nil {
		if in.requireResultPayload {
			return Classification{Outcome: OutcomeHandoffRequired, Reason: "no result payload produced", Capture: in.capture}
		}
		return Classification{Outcome: OutcomeCompleted, Capture: in.capture}
	}

	if payload.Status == string(OutcomeCompleted) && payload.ContextRemaining == nil {
		return Classification{
			Outcome: OutcomeHandoffRequired,
			Payload: payload,
			Reason:  "completed status missing contextRemaining",
			Capture: in.capture,
		}
	}

	if payload.ContextRemaining != nil && *payload.ContextRemaining <= in.contextThreshold {
		return Classification{
			Outcome: OutcomeHandoffRequired,
			Payload: payload,
			Reason:  "context remaining below threshold",
			Capture: in.capture,
		}
	}

	switch payload.Status {
	case string(OutcomeCompleted):
		return Classification{Outcome: OutcomeCompleted, Payload: payload, Capture: in.capture}
	case string(OutcomeBlocked):
		return Classification{Outcome: OutcomeBlocked, Payload: payload, Reason: payload.Reason, Capture: in.capture}
	case string(OutcomeFailed):
		return Classification{Outcome: OutcomeFailed, Payload: payload, Reason: payload.Reason, Capture: in.capture}
	case string(OutcomePending):
		return Classification{Outcome: OutcomePending, Payload: payload, Capture: in.capture}
	case string(OutcomeHandoffRequired):
		return Classification{Outcome: OutcomeHandoffRequired, Payload: payload, Reason: payload.Reason, Capture: in.capture}
	default:
		return Classification{Outcome: OutcomeFailed, Payload: payload, Reason: "unrecognized status: " + payload.Status, Capture: in.capture}
	}
}
