package gitops

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	run("init")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "Test")
	if err := os.WriteFile(filepath.Join(dir, "seed.txt"), []byte("seed"), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	run("add", "-A")
	run("commit", "-m", "seed")
	return dir
}

func TestCommitRefusesWhenAllowDirty(t *testing.T) {
	_, err := Commit(t.TempDir(), "plan-1", true)
	if err != ErrDirtyWorktreeRefused {
		t.Fatalf("got %v, want ErrDirtyWorktreeRefused", err)
	}
}

func TestCommitSkipsNonGitRepo(t *testing.T) {
	result, err := Commit(t.TempDir(), "plan-1", false)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if !result.Skipped {
		t.Error("expected Skipped=true for non-git directory")
	}
}

func TestCommitSkipsWhenClean(t *testing.T) {
	repo := initRepo(t)
	result, err := Commit(repo, "plan-1", false)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if !result.Skipped {
		t.Error("expected Skipped=true for clean repo")
	}
}

func TestCommitCommitsDirtyFiles(t *testing.T) {
	repo := initRepo(t)
	if err := os.WriteFile(filepath.Join(repo, "new.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	result, err := Commit(repo, "plan-1", false)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if result.Skipped {
		t.Fatal("expected commit to happen, not be skipped")
	}
	if result.SHA == "" {
		t.Error("expected non-empty SHA")
	}
}
