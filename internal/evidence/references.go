// Package evidence implements the Evidence Curator: extracting evidence
// references from plan documents, writing a canonical compact index,
// deduplicating noisy rerun artifacts, and rewriting stale references.
package evidence

import (
	"regexp"
	"strings"
)

// Reference is one extracted evidence link, with its normalized
// repo-relative target path.
type Reference struct {
	RawTarget  string
	RepoPath   string
	LinkText   string
	IsMarkdown bool // markdown link vs inline code span
}

var (
	markdownLinkRe = regexp.MustCompile(`\[([^\]]*)\]\(([^)]+)\)`)
	inlineCodeRe   = regexp.MustCompile("`([^`]+)`")
)

// ExtractReferences scans a plan document's content for Markdown links
// and inline-code spans whose normalized target contains "/evidence/",
// per spec.md §4.9.
func ExtractReferences(content, planDir string) []Reference {
	var refs []Reference

	for _, m := range markdownLinkRe.FindAllStringSubmatch(content, -1) {
		text, target := m[1], strings.TrimSpace(m[2])
		if repoPath, ok := normalizeEvidenceTarget(target, planDir); ok {
			refs = append(refs, Reference{RawTarget: target, RepoPath: repoPath, LinkText: text, IsMarkdown: true})
		}
	}

	for _, m := range inlineCodeRe.FindAllStringSubmatch(content, -1) {
		target := strings.TrimSpace(m[1])
		if repoPath, ok := normalizeEvidenceTarget(target, planDir); ok {
			refs = append(refs, Reference{RawTarget: target, RepoPath: repoPath, IsMarkdown: false})
		}
	}

	return refs
}

// normalizeEvidenceTarget resolves a raw link target to a repo-relative
// path, returning false for external URLs or paths that do not contain
// an "/evidence/" segment.
func normalizeEvidenceTarget(target, planDir string) (string, bool) {
	if isExternalURL(target) {
		return "", false
	}
	normalized := normalizePath(target, planDir)
	if !strings.Contains(normalized, "/evidence/") && !strings.HasSuffix(normalized, "/evidence") {
		return "", false
	}
	return normalized, true
}

func isExternalURL(target string) bool {
	lower := strings.ToLower(target)
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "mailto:") ||
		strings.Contains(lower, "://")
}

// normalizePath resolves a link target to a slash-separated,
// repo-root-relative path: "docs/..." absolute-to-repo paths pass
// through, "./"-prefixed and bare relative paths resolve against
// planDir.
func normalizePath(target, planDir string) string {
	cleaned := strings.TrimPrefix(target, "./")
	if strings.HasPrefix(cleaned, "docs/") {
		return cleanSlashPath(cleaned)
	}
	joined := strings.TrimSuffix(planDir, "/") + "/" + cleaned
	return cleanSlashPath(joined)
}

// cleanSlashPath resolves "." and ".." segments in a slash-separated
// path without touching the filesystem.
func cleanSlashPath(p string) string {
	parts := strings.Split(p, "/")
	var out []string
	for _, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, part)
		}
	}
	return strings.Join(out, "/")
}
