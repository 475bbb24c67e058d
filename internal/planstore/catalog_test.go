package planstore

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writePlan(t *testing.T, root, rel, content string) {
	t.Helper()
	abs := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadCatalogDuplicatePlanID(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root)
	writePlan(t, root, filepath.Join(s.FutureDir, "add-x.md"), "Status: draft\n\n## Summary\n")
	writePlan(t, root, filepath.Join(s.ActiveDir, "2026-01-01-add-x.md"), "Status: queued\n\n## Summary\n")

	if _, err := s.LoadCatalog(); !errors.Is(err, ErrDuplicatePlanID) {
		t.Fatalf("expected ErrDuplicatePlanID, got %v", err)
	}
}

func TestLoadCatalogMissingDependency(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root)
	writePlan(t, root, filepath.Join(s.FutureDir, "add-x.md"), "Status: draft\nDependencies: ghost-plan\n\n## Summary\n")

	if _, err := s.LoadCatalog(); !errors.Is(err, ErrMissingDependency) {
		t.Fatalf("expected ErrMissingDependency, got %v", err)
	}
}

func TestLoadCatalogRejectsUnsafeSpecTargets(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root)
	writePlan(t, root, filepath.Join(s.FutureDir, "add-x.md"), "Status: draft\nSpec-Targets: ../outside.go\n\n## Summary\n")

	if _, err := s.LoadCatalog(); !errors.Is(err, ErrUnsafePath) {
		t.Fatalf("expected ErrUnsafePath, got %v", err)
	}
}

func TestLoadCatalogHappyPath(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root)
	writePlan(t, root, filepath.Join(s.FutureDir, "add-x.md"), "Status: ready-for-promotion\nPriority: p0\n\n## Summary\n")
	writePlan(t, root, filepath.Join(s.ActiveDir, "2026-01-01-add-y.md"), "Status: in-progress\n\n## Summary\n")
	writePlan(t, root, filepath.Join(s.CompletedDir, "2025-12-01-add-z.md"), "Status: completed\n\n## Summary\n")

	cat, err := s.LoadCatalog()
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if len(cat.Future) != 1 || len(cat.Active) != 1 || len(cat.Completed) != 1 {
		t.Fatalf("unexpected catalog shape: %+v", cat)
	}
	if cat.ByID("add-x") == nil {
		t.Error("add-x not found by ID")
	}
	if cat.ByID("add-y").Phase != PhaseActive {
		t.Error("add-y not resolved to active phase")
	}
}

func TestPromoteMovesAndNormalizesMetadata(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root)
	writePlan(t, root, filepath.Join(s.FutureDir, "add-x.md"), "Status: ready-for-promotion\nPriority: p1\nOwner: alice\n\n## Summary\n")

	cat, err := s.LoadCatalog()
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	plan := cat.ByID("add-x")
	stamp := nowStamp{Date: "2026-07-31", EpochMS: 1}

	target, err := s.Promote(cat, plan, stamp)
	if err != nil {
		t.Fatalf("Promote: %v", err)
	}
	if target != filepath.Join(s.ActiveDir, "2026-07-31-add-x.md") {
		t.Errorf("unexpected target path: %q", target)
	}
	if _, err := os.Stat(filepath.Join(root, plan.Path)); !os.IsNotExist(err) {
		t.Errorf("source plan still exists: %v", err)
	}
	body, err := os.ReadFile(filepath.Join(root, target))
	if err != nil {
		t.Fatalf("reading promoted file: %v", err)
	}
	md, err := ParseMetadata(string(body), "add-x")
	if err != nil {
		t.Fatalf("ParseMetadata on promoted body: %v", err)
	}
	if md.Status != StatusQueued {
		t.Errorf("Status after promotion = %q", md.Status)
	}
	if md.Owner != "alice" {
		t.Errorf("Owner not preserved: %q", md.Owner)
	}
}

func TestPromoteRejectsWrongStatus(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root)
	writePlan(t, root, filepath.Join(s.FutureDir, "add-x.md"), "Status: draft\n\n## Summary\n")

	cat, err := s.LoadCatalog()
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	plan := cat.ByID("add-x")
	if _, err := s.Promote(cat, plan, nowStamp{Date: "2026-07-31"}); !errors.Is(err, ErrNotPromotable) {
		t.Fatalf("expected ErrNotPromotable, got %v", err)
	}
}

func TestFinalizeMovesToCompletedAndWritesSections(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root)
	writePlan(t, root, filepath.Join(s.ActiveDir, "2026-07-01-add-x.md"), "Status: validation\n\n## Summary\n\nBody.\n")

	cat, err := s.LoadCatalog()
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	plan := cat.ByID("add-x")
	stamp := nowStamp{Date: "2026-07-31", EpochMS: 2}

	target, err := s.Finalize(plan, ValidationEvidence{
		AlwaysLane: "3 checks passed",
		IndexPath:  "docs/evidence/add-x/index.md",
	}, CompletionInfo{
		Summary:   "Shipped widget.",
		ClosedBy:  "worker",
		FollowUps: []string{"monitor rollout"},
	}, stamp)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	body, err := os.ReadFile(filepath.Join(root, target))
	if err != nil {
		t.Fatalf("reading finalized file: %v", err)
	}
	content := string(body)
	md, err := ParseMetadata(content, "add-x")
	if err != nil {
		t.Fatalf("ParseMetadata: %v", err)
	}
	if md.Status != StatusCompleted {
		t.Errorf("Status = %q", md.Status)
	}
	if md.DoneEvidence[0] != "docs/evidence/add-x/index.md" {
		t.Errorf("Done-Evidence = %v", md.DoneEvidence)
	}
	for _, want := range []string{"## Validation Evidence", "## Completion Snapshot", "## Evidence Index", "## Closure", "monitor rollout"} {
		if !strings.Contains(content, want) {
			t.Errorf("missing %q in finalized body:\n%s", want, content)
		}
	}
}
