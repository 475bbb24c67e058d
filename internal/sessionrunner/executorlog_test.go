package sessionrunner

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExecutorLogPathShape(t *testing.T) {
	got := ExecutorLogPath("runtime", "run1", "plan1", "worker", 2)
	want := filepath.Join("runtime", "run1", "plan1-worker-session-2.executor.log")
	if got != want {
		t.Errorf("ExecutorLogPath() = %q, want %q", got, want)
	}
}

func TestWriteExecutorLogWritesHeaderAndCapture(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run1", "plan1-worker-session-1.executor.log")
	if err := WriteExecutorLog(path, "plan=plan1 role=worker", "line one\nline two\n"); err != nil {
		t.Fatalf("WriteExecutorLog: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	content := string(raw)
	if !strings.Contains(content, "plan=plan1 role=worker") {
		t.Error("missing header")
	}
	if !strings.Contains(content, "line one\nline two") {
		t.Error("missing captured output")
	}
}

func TestFailureTailReturnsLastNLines(t *testing.T) {
	captured := "a\nb\nc\nd\ne\n"
	got := FailureTail(captured, 2)
	if got != "d\ne" {
		t.Errorf("FailureTail() = %q, want %q", got, "d\\ne")
	}
}

func TestFailureTailShorterThanRequested(t *testing.T) {
	captured := "a\nb\n"
	got := FailureTail(captured, 10)
	if got != "a\nb" {
		t.Errorf("FailureTail() = %q", got)
	}
}

func TestFailureTailZeroLines(t *testing.T) {
	if got := FailureTail("a\nb\n", 0); got != "" {
		t.Errorf("FailureTail(0) = %q, want empty", got)
	}
}
