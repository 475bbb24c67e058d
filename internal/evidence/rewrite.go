package evidence

import (
	"path/filepath"
	"strings"
)

// RewriteSpec describes one pruned file and the target it should now
// resolve to: either the evidence folder's README.md, or a retained
// artifact that replaces it.
type RewriteSpec struct {
	PrunedRepoPath      string
	ReplacementRepoPath string
}

// RewriteReferences rewrites every occurrence of each pruned file's
// path forms (absolute-from-repo-root, file-relative, "./"-prefixed) in
// a plan document's content to point at its replacement, expressed
// relative to the plan document's own directory. Covers both Markdown
// link targets and inline-code spans, per spec.md §4.9.
func RewriteReferences(content, planDir string, specs []RewriteSpec) string {
	for _, spec := range specs {
		replacement := relativeFromPlanDir(planDir, spec.ReplacementRepoPath)
		for _, form := range pathForms(spec.PrunedRepoPath, planDir) {
			content = strings.ReplaceAll(content, form, replacement)
		}
	}
	return content
}

// pathForms enumerates the textual forms a reference to repoPath might
// take inside a document living in planDir: the repo-root-absolute
// form, the bare file-relative form, and the "./"-prefixed form.
func pathForms(repoPath, planDir string) []string {
	rel := relativeFromPlanDir(planDir, repoPath)
	forms := map[string]bool{
		repoPath:   true,
		rel:        true,
		"./" + rel: true,
	}
	var out []string
	for f := range forms {
		out = append(out, f)
	}
	return out
}

func relativeFromPlanDir(planDir, repoPath string) string {
	rel, err := filepath.Rel(planDir, repoPath)
	if err != nil {
		return repoPath
	}
	return filepath.ToSlash(rel)
}
