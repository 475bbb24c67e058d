package planstore

import (
	"strings"
	"testing"
)

func TestParseMetadataDefaults(t *testing.T) {
	content := `# Add retry budget

Status: draft
Priority: p1
Owner: alice
Dependencies: foo-bar, baz-qux

## Summary

Body text.
`
	md, err := ParseMetadata(content, "add-retry-budget")
	if err != nil {
		t.Fatalf("ParseMetadata: %v", err)
	}
	if md.PlanID != "add-retry-budget" {
		t.Errorf("PlanID = %q", md.PlanID)
	}
	if md.Status != StatusDraft {
		t.Errorf("Status = %q", md.Status)
	}
	if md.Priority != PriorityP1 {
		t.Errorf("Priority = %q", md.Priority)
	}
	if len(md.Dependencies) != 2 || md.Dependencies[0] != "foo-bar" || md.Dependencies[1] != "baz-qux" {
		t.Errorf("Dependencies = %v", md.Dependencies)
	}
	if md.AutonomyAllowed != AutonomyGuarded {
		t.Errorf("AutonomyAllowed default = %q", md.AutonomyAllowed)
	}
	if md.RiskTier != RiskLow {
		t.Errorf("RiskTier default = %q", md.RiskTier)
	}
	if md.SecurityApproval != SecurityApprovalNotRequired {
		t.Errorf("SecurityApproval default = %q", md.SecurityApproval)
	}
}

func TestParseMetadataInvalidPlanID(t *testing.T) {
	content := "Status: draft\n"
	if _, err := ParseMetadata(content, "Not_Valid"); err == nil {
		t.Fatal("expected error for invalid plan id")
	}
}

func TestParseMetadataExplicitPlanIDOverridesBasename(t *testing.T) {
	content := "Plan-ID: explicit-id\nStatus: draft\n"
	md, err := ParseMetadata(content, "from-basename")
	if err != nil {
		t.Fatalf("ParseMetadata: %v", err)
	}
	if md.PlanID != "explicit-id" {
		t.Errorf("PlanID = %q, want explicit-id", md.PlanID)
	}
}

func TestRewriteStatusLinePreservesOtherBytes(t *testing.T) {
	content := "Status: draft\nOwner: alice\n\n## Body\n\nStatus: draft is not a field here\n"
	out, err := rewriteStatusLine(content, StatusQueued)
	if err != nil {
		t.Fatalf("rewriteStatusLine: %v", err)
	}
	lines := strings.Split(out, "\n")
	if lines[0] != "Status: queued" {
		t.Errorf("first line = %q", lines[0])
	}
	if lines[1] != "Owner: alice" {
		t.Errorf("second line changed: %q", lines[1])
	}
	if lines[5] != "Status: draft is not a field here" {
		t.Errorf("unrelated Status-looking line was rewritten: %q", lines[5])
	}
}

func TestRewriteStatusLineMissing(t *testing.T) {
	if _, err := rewriteStatusLine("Owner: alice\n", StatusQueued); err == nil {
		t.Fatal("expected error when no Status: line present")
	}
}

func TestUpsertFieldReplacesExisting(t *testing.T) {
	content := "Status: draft\nPriority: p2\n\n## Body\n"
	out := upsertField(content, "Priority", "p0")
	if !strings.Contains(out, "Priority: p0") {
		t.Errorf("expected replaced priority, got %q", out)
	}
	if strings.Contains(out, "Priority: p2") {
		t.Errorf("old priority value still present: %q", out)
	}
}

func TestUpsertFieldInsertsBeforeFirstHeading(t *testing.T) {
	content := "Status: draft\n\n## Body\n"
	out := upsertField(content, "Owner", "alice")
	idxOwner := strings.Index(out, "Owner: alice")
	idxHeading := strings.Index(out, "## Body")
	if idxOwner == -1 || idxHeading == -1 || idxOwner > idxHeading {
		t.Errorf("Owner not inserted before heading: %q", out)
	}
}
