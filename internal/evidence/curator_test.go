package evidence

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func touchFile(t *testing.T, path string, modTime time.Time) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Chtimes(path, modTime, modTime); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
}

func TestCurateDedupsRerunArtifactsAndWritesIndex(t *testing.T) {
	root := t.TempDir()
	planDir := "docs/exec-plans/active"
	evidenceDir := filepath.Join(planDir, "evidence", "login-bug")

	base := time.Now().Add(-time.Hour)
	touchFile(t, filepath.Join(root, evidenceDir, "01-screenshot.png"), base)
	touchFile(t, filepath.Join(root, evidenceDir, "02-screenshot-rerun.png"), base.Add(time.Minute))
	touchFile(t, filepath.Join(root, evidenceDir, "03-screenshot-rerun.png"), base.Add(2*time.Minute))

	planContent := "See [screenshot](./evidence/login-bug/01-screenshot.png) for the bug."

	result, err := Curate(CurateOptions{
		Root:              root,
		PlanID:            "plan-1",
		PlanPath:          filepath.Join(planDir, "plan-1.md"),
		PlanDir:           planDir,
		PlanContent:       planContent,
		GeneratedAt:       "2026-07-31T00:00:00Z",
		MaxReferences:     25,
		KeepMaxPerBlocker: 1,
	})
	if err != nil {
		t.Fatalf("Curate: %v", err)
	}

	remaining, err := os.ReadDir(filepath.Join(root, evidenceDir))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var files int
	for _, e := range remaining {
		if !e.IsDir() && e.Name() != "README.md" {
			files++
		}
	}
	if files != 1 {
		t.Errorf("expected 1 retained artifact after dedup, got %d", files)
	}

	if len(result.PrunedArtifacts) != 2 {
		t.Errorf("expected 2 pruned artifacts, got %d: %v", len(result.PrunedArtifacts), result.PrunedArtifacts)
	}

	indexRaw, err := os.ReadFile(filepath.Join(root, IndexPath("plan-1")))
	if err != nil {
		t.Fatalf("index not written: %v", err)
	}
	if len(indexRaw) == 0 {
		t.Error("index file is empty")
	}

	readmeRaw, err := os.ReadFile(filepath.Join(root, evidenceDir, "README.md"))
	if err != nil {
		t.Fatalf("README not written: %v", err)
	}
	if len(readmeRaw) == 0 {
		t.Error("README is empty")
	}
}

func TestCurateIsNoOpWhenNoEvidenceReferences(t *testing.T) {
	root := t.TempDir()
	result, err := Curate(CurateOptions{
		Root:        root,
		PlanID:      "plan-2",
		PlanDir:     "docs/exec-plans/active",
		PlanContent: "No evidence here.",
		GeneratedAt: "2026-07-31T00:00:00Z",
	})
	if err != nil {
		t.Fatalf("Curate: %v", err)
	}
	if result.ReferenceCount != 0 {
		t.Errorf("ReferenceCount = %d, want 0", result.ReferenceCount)
	}
}
