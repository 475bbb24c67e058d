package evidence

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// IndexEntry is one evidence artifact listed in a canonical index.
type IndexEntry struct {
	RepoPath string
	ModTime  int64
}

// BuildIndexDocument renders the canonical compact index spec.md §4.9
// describes: Plan-ID, timestamps, source plan, total found count, and
// the chosen subset (most recently modified first, bounded by
// maxReferences), each linked relative to the index location.
func BuildIndexDocument(planID, sourcePlanPath string, generatedAt string, entries []IndexEntry, maxReferences int) string {
	sorted := make([]IndexEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ModTime > sorted[j].ModTime })

	total := len(sorted)
	if maxReferences > 0 && len(sorted) > maxReferences {
		sorted = sorted[:maxReferences]
	}

	indexDir := "docs/exec-plans/evidence-index"
	var b strings.Builder
	fmt.Fprintf(&b, "Plan-ID: %s\n", planID)
	fmt.Fprintf(&b, "Generated-At: %s\n", generatedAt)
	fmt.Fprintf(&b, "Source-Plan: %s\n", sourcePlanPath)
	fmt.Fprintf(&b, "Total-Found: %d\n", total)
	fmt.Fprintf(&b, "Included: %d\n\n", len(sorted))
	b.WriteString("# Evidence Index\n\n")

	if len(sorted) == 0 {
		b.WriteString("No evidence references found.\n")
		return b.String()
	}

	for _, e := range sorted {
		rel, err := filepath.Rel(indexDir, e.RepoPath)
		if err != nil {
			rel = e.RepoPath
		}
		fmt.Fprintf(&b, "- [%s](%s)\n", filepath.Base(e.RepoPath), filepath.ToSlash(rel))
	}
	return b.String()
}

// IndexPath returns the canonical index path for a plan, per spec.md
// §4.9 / §6's persistent-files list.
func IndexPath(planID string) string {
	return filepath.Join("docs", "exec-plans", "evidence-index", planID+".md")
}

// WriteIndex writes the index document at root-relative IndexPath(planID)
// only if its content differs from what is already on disk, honoring
// spec.md §4.9's idempotent-write rule.
func WriteIndex(root, planID, document string) (string, error) {
	relPath := IndexPath(planID)
	fullPath := filepath.Join(root, relPath)
	if err := writeIfChanged(fullPath, document); err != nil {
		return "", err
	}
	return relPath, nil
}

// WriteIndexDirectoryReadme generates/updates
// docs/exec-plans/evidence-index/README.md per spec.md §4.9.
func WriteIndexDirectoryReadme(root string) error {
	path := filepath.Join(root, "docs", "exec-plans", "evidence-index", "README.md")
	content := "# Evidence Index\n\n" +
		"This directory holds one canonical evidence index per plan,\n" +
		"generated and refreshed by the evidence curator. Each file\n" +
		"lists the evidence artifacts most relevant to that plan's\n" +
		"completion, most recently modified first.\n"
	return writeIfChanged(path, content)
}

// writeIfChanged compares the existing file content (if any) against
// content before writing, so repeated curation passes produce no diff
// noise when nothing changed.
func writeIfChanged(path, content string) error {
	if existing, err := os.ReadFile(path); err == nil && string(existing) == content {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("evidence: creating directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("evidence: writing %s: %w", path, err)
	}
	return nil
}
