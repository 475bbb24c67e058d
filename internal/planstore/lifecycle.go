package planstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// ValidationEvidence is the subset of a finished run the Finalize operation
// needs to render a plan's closing sections. Populated by the Evidence
// Curator and Validation Engine before a plan is handed back to the Plan
// Store for closure.
type ValidationEvidence struct {
	AlwaysLane  string // summary of the in-process lane result
	HostLane    string // summary of the host-provider lane result, or empty
	IndexPath   string // repo-relative path to the canonical evidence index, or empty
	Inconsistent bool
}

// CompletionInfo carries the free-text fields a completed plan's
// "Completion Snapshot" and "Closure" sections are rendered from.
type CompletionInfo struct {
	Summary      string
	FollowUps    []string
	ClosedBy     string // role/session that produced the final commit
}

// SetStatus rewrites exactly the top-level Status: line, preserving every
// other byte, and writes the result back to disk.
func SetStatus(absPath string, status Status) error {
	raw, err := os.ReadFile(absPath)
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", ErrIO, absPath, err)
	}
	out, err := rewriteStatusLine(string(raw), status)
	if err != nil {
		return fmt.Errorf("%s: %w", absPath, err)
	}
	if err := os.WriteFile(absPath, []byte(out), 0o644); err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrIO, absPath, err)
	}
	return nil
}

// SetField rewrites a single "Field: value" metadata line (inserting it if
// absent), preserving every other byte, and writes the result back to
// disk. Generalizes SetStatus to the rest of the metadata block — the
// FSM uses it for Security-Approval and other per-transition field
// updates that aren't the top-level Status line.
func SetField(absPath, field, value string) error {
	raw, err := os.ReadFile(absPath)
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", ErrIO, absPath, err)
	}
	out := upsertField(string(raw), field, value)
	if err := os.WriteFile(absPath, []byte(out), 0o644); err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrIO, absPath, err)
	}
	return nil
}

// WriteBody overwrites a plan document's full contents, used after the
// caller has composed several in-memory section/field edits (for example
// a Host Validation section plus a Status change) into one write.
func WriteBody(absPath, content string) error {
	if err := os.WriteFile(absPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrIO, absPath, err)
	}
	return nil
}

// nowStamp is supplied by callers so the package stays free of wall-clock
// reads in its core logic, keeping it straightforward to test.
type nowStamp struct {
	Date     string // YYYY-MM-DD
	EpochMS  int64
}

func targetBasename(plan *Plan, stamp nowStamp, suffix string) string {
	name := stamp.Date + "-" + plan.ID
	if suffix != "" {
		name += "-" + suffix
	}
	return name + ".md"
}

// Promote moves a future plan whose Status is ready-for-promotion into the
// active directory, rewriting its metadata block to the promoted defaults.
// Per spec.md §4.1: fails with ErrNotPromotable unless
// future_plan.Status == ready-for-promotion; fails with ErrAlreadyExists if
// plan_id is already present in active or completed.
func (s *Store) Promote(cat *Catalog, plan *Plan, stamp nowStamp) (string, error) {
	if plan.Phase != PhaseFuture {
		return "", fmt.Errorf("%w: %q is not a future-phase plan", ErrNotPromotable, plan.ID)
	}
	if plan.Metadata.Status != StatusReadyForPromotion {
		return "", fmt.Errorf("%w: %q has status %q", ErrNotPromotable, plan.ID, plan.Metadata.Status)
	}
	for _, p := range cat.Active {
		if p.ID == plan.ID {
			return "", fmt.Errorf("%w: %q already active at %s", ErrAlreadyExists, plan.ID, p.Path)
		}
	}
	for _, p := range cat.Completed {
		if p.ID == plan.ID {
			return "", fmt.Errorf("%w: %q already completed at %s", ErrAlreadyExists, plan.ID, p.Path)
		}
	}

	content := string(plan.Body)
	content = upsertField(content, "Status", string(StatusQueued))
	content = upsertField(content, "Priority", string(plan.Metadata.Priority))
	content = upsertField(content, "Owner", plan.Metadata.Owner)
	content = upsertField(content, "Acceptance-Criteria", plan.Metadata.AcceptanceCriteria)
	content = upsertField(content, "Dependencies", joinSet(plan.Metadata.Dependencies))
	content = upsertField(content, "Autonomy-Allowed", string(plan.Metadata.AutonomyAllowed))
	content = upsertField(content, "Risk-Tier", string(plan.Metadata.RiskTier))
	content = upsertField(content, "Security-Approval", string(plan.Metadata.SecurityApproval))

	specTargets := plan.Metadata.SpecTargets
	content = upsertField(content, "Spec-Targets", joinSetOrPending(specTargets))
	doneEvidence := plan.Metadata.DoneEvidence
	if len(doneEvidence) == 0 {
		doneEvidence = []string{pendingSentinel}
	}
	content = upsertField(content, "Done-Evidence", joinSet(doneEvidence))

	targetRel := filepath.Join(s.ActiveDir, targetBasename(plan, stamp, ""))
	targetAbs, err := safeJoin(s.Root, targetRel)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(targetAbs); err == nil {
		targetRel = filepath.Join(s.ActiveDir, targetBasename(plan, stamp, strconv.FormatInt(stamp.EpochMS, 10)))
		targetAbs, err = safeJoin(s.Root, targetRel)
		if err != nil {
			return "", err
		}
	}

	sourceAbs := filepath.Join(s.Root, plan.Path)
	if err := os.MkdirAll(filepath.Dir(targetAbs), 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrIO, err)
	}
	if err := os.WriteFile(targetAbs, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("%w: writing %s: %v", ErrIO, targetAbs, err)
	}
	if err := os.Remove(sourceAbs); err != nil {
		return "", fmt.Errorf("%w: removing %s: %v", ErrIO, sourceAbs, err)
	}
	return targetRel, nil
}

func joinSetOrPending(values []string) string {
	if len(values) == 0 {
		return pendingSentinel
	}
	return joinSet(values)
}

// Finalize records the evidence index path (if one is supplied; the index
// file itself is not written here), sets the plan's Status to completed
// and Done-Evidence to the index path, upserts the
// Validation Evidence / Completion Snapshot / Evidence Index / Closure
// sections, and moves the document into the completed directory.
func (s *Store) Finalize(plan *Plan, ve ValidationEvidence, ci CompletionInfo, stamp nowStamp) (string, error) {
	if plan.Phase != PhaseActive {
		return "", fmt.Errorf("%w: %q is not an active-phase plan", ErrNotPromotable, plan.ID)
	}

	content := string(plan.Body)
	content = upsertField(content, "Status", string(StatusCompleted))

	doneEvidence := ve.IndexPath
	if doneEvidence == "" {
		doneEvidence = pendingSentinel
	}
	content = upsertField(content, "Done-Evidence", doneEvidence)

	validationBody := "Always-available lane: " + ve.AlwaysLane + "\n"
	if ve.HostLane != "" {
		validationBody += "Host-provider lane: " + ve.HostLane + "\n"
	}
	if ve.Inconsistent {
		validationBody += "\nNote: lane results were inconsistent; host-provider evidence treated as unavailable.\n"
	}
	content = UpsertSection(content, "Validation Evidence", validationBody)

	snapshot := ci.Summary
	if snapshot == "" {
		snapshot = "_no summary recorded_"
	}
	content = UpsertSection(content, "Completion Snapshot", snapshot)

	if ve.IndexPath != "" {
		content = UpsertSection(content, "Evidence Index", "See "+ve.IndexPath+".")
	}

	closure := mustRenderList(ci.FollowUps)
	if ci.ClosedBy != "" {
		closure = "Closed by: " + ci.ClosedBy + "\n\n" + closure
	}
	content = UpsertSection(content, "Closure", closure)

	targetRel := filepath.Join(s.CompletedDir, targetBasename(plan, stamp, ""))
	targetAbs, err := safeJoin(s.Root, targetRel)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(targetAbs); err == nil {
		targetRel = filepath.Join(s.CompletedDir, targetBasename(plan, stamp, strconv.FormatInt(stamp.EpochMS, 10)))
		targetAbs, err = safeJoin(s.Root, targetRel)
		if err != nil {
			return "", err
		}
	}

	sourceAbs := filepath.Join(s.Root, plan.Path)
	if err := os.MkdirAll(filepath.Dir(targetAbs), 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrIO, err)
	}
	if err := os.WriteFile(targetAbs, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("%w: writing %s: %v", ErrIO, targetAbs, err)
	}
	if err := os.Remove(sourceAbs); err != nil {
		return "", fmt.Errorf("%w: removing %s: %v", ErrIO, sourceAbs, err)
	}
	return targetRel, nil
}

// NowStamp builds a nowStamp from an already-resolved time, keeping the
// wall-clock read at the call site (cli/scheduler) rather than inside the
// package.
func NowStamp(t time.Time) nowStamp {
	return nowStamp{
		Date:    t.Format("2006-01-02"),
		EpochMS: t.UnixMilli(),
	}
}
