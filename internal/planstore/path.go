package planstore

import (
	"fmt"
	"path/filepath"
	"strings"
)

// safeJoin joins root and rel, refusing to escape root (no absolute paths,
// no "..") per spec.md §3's Spec-Targets invariant and §4.1's "all path
// writes must stay within the repository root" invariant.
func safeJoin(root, rel string) (string, error) {
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: absolute path %q", ErrUnsafePath, rel)
	}
	cleaned := filepath.Clean(rel)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") || strings.HasPrefix(cleaned, "..\\") {
		return "", fmt.Errorf("%w: path escapes repository root: %q", ErrUnsafePath, rel)
	}
	full := filepath.Join(root, cleaned)
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsafePath, err)
	}
	fullAbs, err := filepath.Abs(full)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsafePath, err)
	}
	if fullAbs != rootAbs && !strings.HasPrefix(fullAbs, rootAbs+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: path escapes repository root: %q", ErrUnsafePath, rel)
	}
	return full, nil
}

// validateSpecTargets checks every Spec-Targets entry resolves inside root.
func validateSpecTargets(root string, targets []string) error {
	for _, t := range targets {
		if _, err := safeJoin(root, t); err != nil {
			return err
		}
	}
	return nil
}
