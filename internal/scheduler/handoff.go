package scheduler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/daydemir/conveyor/internal/sessionrunner"
)

// WriteHandoffNote implements spec.md §4.7 step 4: a handoff note at
// handoffs/<plan_id>/<ts>-session-<s>.md carrying metadata, the
// classifier's reason, and a checklist for the next session. ts is
// supplied by the caller so this package stays free of wall-clock reads,
// matching planstore's nowStamp convention.
func WriteHandoffNote(root, handoffsDir, planID, ts, role string, session int, cls sessionrunner.Classification) (string, error) {
	name := fmt.Sprintf("%s-session-%d.md", ts, session)
	relPath := filepath.Join(handoffsDir, planID, name)
	absPath := filepath.Join(root, relPath)

	reason := cls.Reason
	if reason == "" && cls.Payload != nil {
		reason = cls.Payload.Reason
	}
	if reason == "" {
		reason = "no reason reported"
	}

	summary := ""
	if cls.Payload != nil {
		summary = cls.Payload.Summary
	}

	var b strings.Builder
	b.WriteString("# Handoff Note\n\n")
	fmt.Fprintf(&b, "Plan-ID: %s\n", planID)
	fmt.Fprintf(&b, "Role: %s\n", role)
	fmt.Fprintf(&b, "Session: %d\n", session)
	fmt.Fprintf(&b, "Timestamp: %s\n\n", ts)
	fmt.Fprintf(&b, "## Reason\n\n%s\n\n", reason)
	if summary != "" {
		fmt.Fprintf(&b, "## Prior Session Summary\n\n%s\n\n", summary)
	}
	b.WriteString("## Next Session Checklist\n\n")
	b.WriteString("- Re-read the plan document's current Status and completed stages before acting.\n")
	fmt.Fprintf(&b, "- Resume role %q at session %d.\n", role, session+1)
	b.WriteString("- Treat prior captured output as partial progress, not ground truth.\n")

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return "", fmt.Errorf("scheduler: creating handoff dir: %w", err)
	}
	if err := os.WriteFile(absPath, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("scheduler: writing handoff note: %w", err)
	}
	return relPath, nil
}
