package sessionrunner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExecutorLogPath builds the per-session executor log path spec.md
// §4.8 names: runtime/<run_id>/<plan_id>-<role>-session-<s>.executor.log
func ExecutorLogPath(runtimeDir, runID, planID, role string, session int) string {
	name := fmt.Sprintf("%s-%s-session-%d.executor.log", planID, role, session)
	return filepath.Join(runtimeDir, runID, name)
}

// WriteExecutorLog writes a short header followed by the captured
// output, mirroring how dispatch.go's monitorProcess persists its temp
// output file next to the process record.
func WriteExecutorLog(path string, header string, captured string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("sessionrunner: creating log dir: %w", err)
	}
	var b strings.Builder
	b.WriteString(header)
	if !strings.HasSuffix(header, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("---\n")
	b.WriteString(captured)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("sessionrunner: writing executor log: %w", err)
	}
	return nil
}

// FailureTail returns the last n lines of captured output, for the
// operator-facing failure report spec.md §4.8 requires.
func FailureTail(captured string, n int) string {
	if n <= 0 {
		return ""
	}
	lines := strings.Split(strings.TrimRight(captured, "\n"), "\n")
	if len(lines) <= n {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}
