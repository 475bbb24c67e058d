package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/daydemir/conveyor/internal/capability"
	"github.com/daydemir/conveyor/internal/config"
	"github.com/daydemir/conveyor/internal/evidence"
	"github.com/daydemir/conveyor/internal/gitops"
	"github.com/daydemir/conveyor/internal/planstore"
	"github.com/daydemir/conveyor/internal/riskgate"
	"github.com/daydemir/conveyor/internal/rolepipeline"
	"github.com/daydemir/conveyor/internal/runstate"
	"github.com/daydemir/conveyor/internal/sessionrunner"
	"github.com/daydemir/conveyor/internal/validation"
)

// Deps bundles every component the per-plan FSM drives, plus the knobs
// spec.md §4.3/§6 expose as config and CLI flags.
type Deps struct {
	Store        *planstore.Store
	Config       *config.Config
	Capabilities capability.Result
	Env          riskgate.Env
	Events       *runstate.EventLog

	RunID              string
	EffectiveMode      runstate.EffectiveMode
	RuntimeDir         string // "runtime"
	HandoffsDir        string // "handoffs"
	Capture            bool   // false only when output mode is verbose
	AllowDirty         bool
	Commit             bool
	HandoffTokenBudget int

	MaxSessionsPerPlan int
	MaxRollovers       int
	FailureTailLines   int
	HeartbeatSeconds   int
	StallWarnSeconds   int
	OnHeartbeat        func(sessionrunner.Heartbeat)
	OnStallWarning     func(sessionrunner.Heartbeat)

	Now func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d Deps) event(st *runstate.State, planID, typ string, details map[string]interface{}) {
	if d.Events == nil {
		return
	}
	_ = d.Events.Append(runstate.Event{
		Timestamp: d.now().UTC().Format(time.RFC3339),
		RunID:     d.RunID,
		PlanID:    planID,
		Type:      typ,
		Mode:      d.EffectiveMode,
		Details:   details,
	})
}

// RunPlanFSM drives one plan through spec.md §4.7's per-plan FSM until it
// settles into a terminal-for-this-run outcome, mutating st in place.
// Session index s is bounded across the whole call by maxSessionsPerPlan,
// including any "reset on incomplete completion" rewinds (§4.6).
func RunPlanFSM(ctx context.Context, plan *planstore.Plan, deps Deps, st *runstate.State) (FSMResult, error) {
	role, assessment := deps.loadRoleState(st, plan)
	rollovers := 0

	for s := 1; s <= deps.MaxSessionsPerPlan; s++ {
		absPath := filepath.Join(deps.Store.Root, plan.Path)

		// step 1: policy gate
		if err := riskgate.EvaluatePolicyGate(plan.Metadata.AutonomyAllowed, deps.EffectiveMode, assessment.EffectiveTier, deps.Env); err != nil {
			deps.saveRoleState(st, plan.ID, role, assessment)
			return deps.blockPlan(plan, absPath, st, err.Error())
		}

		if role.Done() {
			refreshed, moved, err := deps.refreshPlan(plan)
			if err != nil {
				return FSMResult{}, err
			}
			if moved {
				return deps.completedAlready(refreshed, st)
			}
			plan = refreshed

			if plan.Metadata.Status != planstore.StatusCompleted {
				role = rolepipeline.RewindToWorker(role)
				resetLaneState(st, plan.ID)
				deps.saveRoleState(st, plan.ID, role, assessment)
				continue
			}

			return deps.finalizePlan(ctx, plan, st, assessment)
		}

		currentRole := role.CurrentRole()

		if role.CanReuseStage(currentRole) {
			deps.event(st, plan.ID, "role_stage_reused", map[string]interface{}{"role": string(currentRole)})
			role = rolepipeline.AdvanceStage(role)
			deps.saveRoleState(st, plan.ID, role, assessment)
			continue
		}

		profile := deps.Config.RoleOrchestration.RoleProfiles[string(currentRole)]

		sandboxMode := rolepipeline.SandboxMode(profile.SandboxMode)
		if err := rolepipeline.EnforceSandboxPolicy(currentRole, sandboxMode); err != nil {
			return deps.failPlan(plan, absPath, st, err.Error())
		}
		if deps.Config.Executor.EnforceRoleModelSelection && profile.Model == "" {
			return deps.failPlan(plan, absPath, st, fmt.Sprintf("role %q has no configured model but enforceRoleModelSelection is set", currentRole))
		}

		resultPath := filepath.Join(deps.RuntimeDir, deps.RunID, fmt.Sprintf("%s-%s-session-%d.result.json", plan.ID, currentRole, s))
		executorLogPath := sessionrunner.ExecutorLogPath(deps.RuntimeDir, deps.RunID, plan.ID, string(currentRole), s)

		placeholders := sessionrunner.Placeholders{
			PlanID:            plan.ID,
			PlanFile:          plan.Path,
			RunID:             deps.RunID,
			Mode:              string(deps.EffectiveMode),
			Session:           s,
			Role:              string(currentRole),
			EffectiveRiskTier: string(assessment.EffectiveTier),
			DeclaredRiskTier:  string(assessment.DeclaredTier),
			StageIndex:        role.CurrentIndex,
			StageTotal:        len(role.Stages),
			ResultPath:        resultPath,
			Prompt:            profile.Instructions,
		}

		opts := sessionrunner.Options{
			CommandTemplate:      deps.Config.Executor.Command,
			Placeholders:         placeholders,
			WorkDir:              deps.Store.Root,
			ResultPath:           resultPath,
			ExecutorLogPath:      executorLogPath,
			TimeoutSeconds:       deps.Config.Executor.TimeoutSeconds,
			ContextThreshold:     deps.Config.Executor.ContextThreshold,
			HandoffTokenBudget:   deps.HandoffTokenBudget,
			HandoffExitCode:      deps.Config.Executor.HandoffExitCode,
			RequireResultPayload: deps.Config.Executor.RequireResultPayload,
			ExtraEnv:             roleProfileEnv(profile),
			Capture:              deps.Capture,
			FailureTailLines:     deps.FailureTailLines,
			HeartbeatSeconds:     deps.HeartbeatSeconds,
			StallWarnSeconds:     deps.StallWarnSeconds,
			OnHeartbeat:          deps.OnHeartbeat,
			OnStallWarning:       deps.OnStallWarning,
		}

		cls, runErr := sessionrunner.Run(ctx, opts)
		if runErr != nil && cls.Outcome == "" {
			return FSMResult{}, fmt.Errorf("scheduler: running session: %w", runErr)
		}

		switch cls.Outcome {
		case sessionrunner.OutcomeHandoffRequired:
			ts := deps.now().UTC().Format("20060102T150405Z")
			if _, werr := WriteHandoffNote(deps.Store.Root, deps.HandoffsDir, plan.ID, ts, string(currentRole), s, cls); werr != nil {
				return FSMResult{}, werr
			}
			st.Stats.Handoffs++
			rollovers++
			deps.event(st, plan.ID, "session_handoff", map[string]interface{}{"role": string(currentRole), "session": s})
			if rollovers > deps.MaxRollovers {
				return deps.failPlan(plan, absPath, st, "exceeded max rollovers")
			}
			deps.saveRoleState(st, plan.ID, role, assessment)
			continue

		case sessionrunner.OutcomeBlocked:
			deps.saveRoleState(st, plan.ID, role, assessment)
			deps.event(st, plan.ID, "plan_pending", map[string]interface{}{"reason": "session reported blocked"})
			return FSMResult{Outcome: OutcomePending, Reason: cls.Reason}, nil

		case sessionrunner.OutcomeFailed:
			return deps.failPlan(plan, absPath, st, cls.Reason)

		case sessionrunner.OutcomePending:
			deps.saveRoleState(st, plan.ID, role, assessment)
			return FSMResult{Outcome: OutcomePending, Reason: cls.Reason}, nil
		}

		// step 7: the executor may have moved the document to completed/
		// itself; refresh from disk before trusting the in-memory copy.
		refreshed, moved, rerr := deps.refreshPlan(plan)
		if rerr != nil {
			return FSMResult{}, rerr
		}
		if moved {
			return deps.completedAlready(refreshed, st)
		}
		plan = refreshed

		// step 8: advance stage
		role = rolepipeline.AdvanceStage(role)
		deps.event(st, plan.ID, "role_stage_advanced", map[string]interface{}{"role": string(currentRole)})
		deps.saveRoleState(st, plan.ID, role, assessment)
	}

	deps.saveRoleState(st, plan.ID, role, assessment)
	return FSMResult{Outcome: OutcomePending, Reason: "max sessions per plan reached"}, nil
}

// finalizePlan implements spec.md §4.7 steps 10-14: the security approval
// gate, the two validation lanes, evidence curation, Plan Store
// finalization, and the atomic commit.
func (d Deps) finalizePlan(ctx context.Context, plan *planstore.Plan, st *runstate.State, assessment riskgate.Assessment) (FSMResult, error) {
	absPath := filepath.Join(d.Store.Root, plan.Path)
	gates := d.Config.RoleOrchestration.ApprovalGates

	if riskgate.RequiresSecurityApproval(assessment.EffectiveTier, assessment.Sensitive, gates.RequireSecurityOpsForHigh, gates.RequireSecurityOpsForMediumIfSensitive) &&
		plan.Metadata.SecurityApproval != planstore.SecurityApprovalApproved {
		field := gates.SecurityApprovalMetadataField
		if field == "" {
			field = "Security-Approval"
		}
		if plan.Metadata.SecurityApproval == planstore.SecurityApprovalNotRequired {
			if err := planstore.SetField(absPath, field, string(planstore.SecurityApprovalPending)); err != nil {
				return FSMResult{}, err
			}
		}
		if err := planstore.SetStatus(absPath, planstore.StatusBlocked); err != nil {
			return FSMResult{}, err
		}
		st.BlockedPlans = appendUnique(st.BlockedPlans, plan.ID)
		d.event(st, plan.ID, "security_approval_pending", nil)
		return FSMResult{Outcome: OutcomeBlocked, Reason: "security approval pending"}, nil
	}

	if err := planstore.SetStatus(absPath, planstore.StatusValidation); err != nil {
		return FSMResult{}, err
	}
	alwaysOutcome := validation.RunAlwaysLane(ctx, d.Store.Root, d.Config.Validation.Always, d.Config.Validation.TimeoutSeconds)
	setValidationLane(st, plan.ID, "always", alwaysOutcome.Passed)
	if !alwaysOutcome.Passed {
		st.Stats.ValidationFailures++
		if err := planstore.SetStatus(absPath, planstore.StatusFailed); err != nil {
			return FSMResult{}, err
		}
		st.FailedPlans = appendUnique(st.FailedPlans, plan.ID)
		d.event(st, plan.ID, "plan_failed", map[string]interface{}{"reason": alwaysOutcome.FailureReason()})
		return FSMResult{Outcome: OutcomeFailed, Reason: alwaysOutcome.FailureReason()}, nil
	}

	hostOutcome := validation.EvaluateHostLane(ctx, validation.HostLaneOptions{
		Mode:           d.Config.Validation.Host.Mode,
		CICommand:      d.Config.Validation.Host.CI.Command,
		LocalCommand:   d.Config.Validation.Host.Local.Command,
		HostRequired:   d.Config.Validation.HostRequired,
		WorkDir:        d.Store.Root,
		ResultPath:     filepath.Join(d.RuntimeDir, d.RunID, plan.ID+"-host-validation.result.json"),
		TimeoutSeconds: d.Config.Validation.TimeoutSeconds,
		Capabilities:   d.Capabilities,
	})

	raw, rerr := os.ReadFile(absPath)
	if rerr != nil {
		return FSMResult{}, fmt.Errorf("scheduler: re-reading %s: %w", absPath, rerr)
	}
	content := hostValidationSection(string(raw), hostOutcome)
	if err := planstore.WriteBody(absPath, content); err != nil {
		return FSMResult{}, err
	}

	switch hostOutcome.Status {
	case validation.HostFailed:
		if err := planstore.SetStatus(absPath, planstore.StatusFailed); err != nil {
			return FSMResult{}, err
		}
		setValidationLane(st, plan.ID, "host", false)
		st.FailedPlans = appendUnique(st.FailedPlans, plan.ID)
		d.event(st, plan.ID, "plan_failed", map[string]interface{}{"reason": hostOutcome.Reason})
		return FSMResult{Outcome: OutcomeFailed, Reason: hostOutcome.Reason}, nil

	case validation.HostPending, validation.HostUnavailable:
		if err := planstore.SetStatus(absPath, planstore.StatusInProgress); err != nil {
			return FSMResult{}, err
		}
		setValidationLane(st, plan.ID, "host", false)
		d.event(st, plan.ID, "host_validation_blocked", map[string]interface{}{"reason": hostOutcome.Reason, "status": string(hostOutcome.Status)})
		return FSMResult{Outcome: OutcomePending, Reason: hostOutcome.Reason}, nil
	}

	setValidationLane(st, plan.ID, "host", true)

	raw, err := os.ReadFile(absPath)
	if err != nil {
		return FSMResult{}, err
	}
	plan = &planstore.Plan{ID: plan.ID, Phase: plan.Phase, Path: plan.Path, Metadata: plan.Metadata, Body: raw}

	ve := planstore.ValidationEvidence{AlwaysLane: "passed", HostLane: string(hostOutcome.Status)}
	if d.Config.Evidence.Lifecycle.PruneOnComplete {
		result, cerr := evidence.Curate(evidence.CurateOptions{
			Root:              d.Store.Root,
			PlanID:            plan.ID,
			PlanPath:          plan.Path,
			PlanDir:           filepath.Dir(plan.Path),
			PlanContent:       string(plan.Body),
			GeneratedAt:       d.now().UTC().Format(time.RFC3339),
			MaxReferences:     d.Config.Evidence.Compaction.MaxReferences,
			KeepMaxPerBlocker: d.Config.Evidence.Lifecycle.KeepMaxPerBlocker,
		})
		if cerr != nil {
			return FSMResult{}, cerr
		}
		if err := planstore.WriteBody(absPath, result.RewrittenDoc); err != nil {
			return FSMResult{}, err
		}
		ve.IndexPath = result.IndexPath
		d.event(st, plan.ID, "evidence_curated", map[string]interface{}{"references": result.ReferenceCount, "pruned": len(result.PrunedArtifacts)})
		if st.EvidenceState == nil {
			st.EvidenceState = make(map[string]runstate.EvidenceState)
		}
		st.EvidenceState[plan.ID] = runstate.EvidenceState{
			IndexPath:      result.IndexPath,
			ReferenceCount: result.ReferenceCount,
			UpdatedAt:      d.now().UTC().Format(time.RFC3339),
		}
		raw, err = os.ReadFile(absPath)
		if err != nil {
			return FSMResult{}, err
		}
		plan = &planstore.Plan{ID: plan.ID, Phase: plan.Phase, Path: plan.Path, Metadata: plan.Metadata, Body: raw}
	}

	stamp := planstore.NowStamp(d.now())
	if _, ferr := d.Store.Finalize(plan, ve, planstore.CompletionInfo{
		Summary:  "Completed via automated role pipeline.",
		ClosedBy: string(rolepipeline.RoleWorker),
	}, stamp); ferr != nil {
		return FSMResult{}, ferr
	}

	if d.Commit {
		commitResult, gerr := gitops.Commit(d.Store.Root, plan.ID, d.AllowDirty)
		if gerr != nil {
			if gerr == gitops.ErrDirtyWorktreeRefused {
				return FSMResult{Outcome: OutcomeFailed, Reason: gerr.Error()}, nil
			}
			return FSMResult{}, gerr
		}
		if !commitResult.Skipped {
			st.Stats.Commits++
		}
	}

	st.CompletedPlans = appendUnique(st.CompletedPlans, plan.ID)
	d.event(st, plan.ID, "plan_completed", nil)
	return FSMResult{Outcome: OutcomeCompleted}, nil
}

func hostValidationSection(content string, outcome validation.HostOutcome) string {
	body := "Provider: " + outcome.Provider + "\nStatus: " + string(outcome.Status)
	if outcome.Reason != "" {
		body += "\nReason: " + outcome.Reason
	}
	return planstore.UpsertSection(content, "Host Validation", body)
}

func (d Deps) blockPlan(plan *planstore.Plan, absPath string, st *runstate.State, reason string) (FSMResult, error) {
	if err := planstore.SetStatus(absPath, planstore.StatusBlocked); err != nil {
		return FSMResult{}, err
	}
	st.BlockedPlans = appendUnique(st.BlockedPlans, plan.ID)
	d.event(st, plan.ID, "plan_blocked", map[string]interface{}{"reason": reason})
	return FSMResult{Outcome: OutcomeBlocked, Reason: reason}, nil
}

func (d Deps) failPlan(plan *planstore.Plan, absPath string, st *runstate.State, reason string) (FSMResult, error) {
	if err := planstore.SetStatus(absPath, planstore.StatusFailed); err != nil {
		return FSMResult{}, err
	}
	st.FailedPlans = appendUnique(st.FailedPlans, plan.ID)
	d.event(st, plan.ID, "plan_failed", map[string]interface{}{"reason": reason})
	return FSMResult{Outcome: OutcomeFailed, Reason: reason}, nil
}

func (d Deps) completedAlready(plan *planstore.Plan, st *runstate.State) (FSMResult, error) {
	st.CompletedPlans = appendUnique(st.CompletedPlans, plan.ID)
	d.event(st, plan.ID, "plan_completed", map[string]interface{}{"note": "executor moved plan to completed directly"})
	return FSMResult{Outcome: OutcomeCompleted}, nil
}

// refreshPlan re-reads plan's document from its known path, or (if the
// executor has already moved it) locates it in the completed directory.
func (d Deps) refreshPlan(plan *planstore.Plan) (refreshed *planstore.Plan, moved bool, err error) {
	absPath := filepath.Join(d.Store.Root, plan.Path)
	raw, readErr := os.ReadFile(absPath)
	if readErr == nil {
		md, perr := planstore.ParseMetadata(string(raw), plan.ID)
		if perr != nil {
			return nil, false, perr
		}
		return &planstore.Plan{ID: plan.ID, Phase: plan.Phase, Path: plan.Path, Metadata: md, Body: raw}, false, nil
	}
	if !os.IsNotExist(readErr) {
		return nil, false, fmt.Errorf("scheduler: reading %s: %w", absPath, readErr)
	}

	completedAbs := filepath.Join(d.Store.Root, d.Store.CompletedDir)
	entries, derr := os.ReadDir(completedAbs)
	if derr != nil {
		return nil, false, fmt.Errorf("scheduler: plan %s missing from active and completed: %w", plan.ID, derr)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		relPath := filepath.Join(d.Store.CompletedDir, e.Name())
		body, rerr := os.ReadFile(filepath.Join(d.Store.Root, relPath))
		if rerr != nil {
			continue
		}
		md, perr := planstore.ParseMetadata(string(body), plan.ID)
		if perr != nil {
			continue
		}
		if md.PlanID == plan.ID {
			return &planstore.Plan{ID: plan.ID, Phase: planstore.PhaseCompleted, Path: relPath, Metadata: md, Body: body}, true, nil
		}
	}
	return nil, false, fmt.Errorf("scheduler: plan %s not found in active or completed", plan.ID)
}

func (d Deps) loadRoleState(st *runstate.State, plan *planstore.Plan) (rolepipeline.State, riskgate.Assessment) {
	priorFailures := 0
	if vs, ok := st.ValidationState[plan.ID]; ok && vs.Always == runstate.LaneFailed {
		priorFailures = 1
	}

	input := riskgate.Input{
		DeclaredTier:            riskgate.Tier(plan.Metadata.RiskTier),
		Dependencies:            plan.Metadata.Dependencies,
		SpecTargets:             plan.Metadata.SpecTargets,
		Tags:                    plan.Metadata.Tags,
		AutonomyAllowed:         plan.Metadata.AutonomyAllowed,
		PriorValidationFailures: priorFailures,
	}
	assessment := riskgate.Score(input, d.Config.RoleOrchestration.RiskModel)

	scope := rolepipeline.Scope{
		Dependencies: plan.Metadata.Dependencies,
		SpecTargets:  plan.Metadata.SpecTargets,
		Tags:         plan.Metadata.Tags,
	}
	pipelines := d.Config.RoleOrchestration.Pipelines
	if !d.Config.RoleOrchestration.Enabled {
		pipelines = config.PipelinesConfig{Low: []string{"worker"}, Medium: []string{"worker"}, High: []string{"worker"}}
	}

	prev, ok := roleStateFrom(st.RoleState[plan.ID])
	if !ok {
		return rolepipeline.NewState(assessment.EffectiveTier, pipelines, scope), assessment
	}
	return rolepipeline.Reconcile(prev, assessment.EffectiveTier, pipelines, scope), assessment
}

func roleStateFrom(rs runstate.RoleState) (rolepipeline.State, bool) {
	if len(rs.Stages) == 0 {
		return rolepipeline.State{}, false
	}
	return rolepipeline.State{
		Stages:          rs.Stages,
		StageKey:        rs.StageKey,
		CurrentIndex:    rs.CurrentIndex,
		CompletedStages: rs.CompletedStages,
	}, true
}

func (d Deps) saveRoleState(st *runstate.State, planID string, role rolepipeline.State, assessment riskgate.Assessment) {
	if st.RoleState == nil {
		st.RoleState = make(map[string]runstate.RoleState)
	}
	st.RoleState[planID] = runstate.RoleState{
		Stages:            role.Stages,
		StageKey:          role.StageKey,
		CurrentIndex:      role.CurrentIndex,
		CompletedStages:   role.CompletedStages,
		DeclaredTier:      string(assessment.DeclaredTier),
		ComputedTier:      string(assessment.ComputedTier),
		EffectiveTier:     string(assessment.EffectiveTier),
		Score:             assessment.Score,
		Sensitive:         assessment.Sensitive,
		SensitiveTagHits:  assessment.SensitiveTagHits,
		SensitivePathHits: assessment.SensitivePathHits,
		Reasons:           assessment.Reasons,
		UpdatedAt:         d.now().UTC().Format(time.RFC3339),
	}
}

func resetLaneState(st *runstate.State, planID string) {
	if st.ValidationState == nil {
		st.ValidationState = make(map[string]runstate.ValidationState)
	}
	st.ValidationState[planID] = runstate.ValidationState{Always: runstate.LanePending, Host: runstate.LanePending}
}

func setValidationLane(st *runstate.State, planID, lane string, passed bool) {
	if st.ValidationState == nil {
		st.ValidationState = make(map[string]runstate.ValidationState)
	}
	vs := st.ValidationState[planID]
	status := runstate.LaneFailed
	if passed {
		status = runstate.LanePassed
	}
	if lane == "always" {
		vs.Always = status
	} else {
		vs.Host = status
	}
	st.ValidationState[planID] = vs
}

func roleProfileEnv(profile config.RoleProfile) []string {
	var env []string
	if profile.Model != "" {
		env = append(env, "ORCH_ROLE_MODEL="+profile.Model)
	}
	if profile.ReasoningEffort != "" {
		env = append(env, "ORCH_ROLE_REASONING_EFFORT="+profile.ReasoningEffort)
	}
	if profile.SandboxMode != "" {
		env = append(env, "ORCH_ROLE_SANDBOX_MODE="+profile.SandboxMode)
	}
	return env
}

func appendUnique(values []string, v string) []string {
	for _, existing := range values {
		if existing == v {
			return values
		}
	}
	return append(values, v)
}
