package evidence

import (
	"fmt"
	"os"
	"path/filepath"
)

// CurateOptions bundles the inputs one evidence-curation pass needs.
type CurateOptions struct {
	Root              string
	PlanID            string
	PlanPath          string
	PlanDir           string
	PlanContent       string
	GeneratedAt       string
	MaxReferences     int
	KeepMaxPerBlocker int
}

// CurateResult reports what the curator did, so the caller can persist
// Done-Evidence and the rewritten plan content.
type CurateResult struct {
	IndexPath       string
	ReferenceCount  int
	RewrittenDoc    string
	PrunedArtifacts []string
}

// Curate runs the full §4.9 pipeline for one plan: extract references,
// dedup each referenced evidence directory, rewrite stale references,
// regenerate READMEs, and write the canonical index.
func Curate(opts CurateOptions) (CurateResult, error) {
	refs := ExtractReferences(opts.PlanContent, opts.PlanDir)

	dirs := map[string]bool{}
	for _, r := range refs {
		dirs[filepath.Dir(r.RepoPath)] = true
	}

	rewritten := opts.PlanContent
	var pruned []string
	var entries []IndexEntry

	for dir := range dirs {
		fullDir := filepath.Join(opts.Root, dir)
		files, err := ListArtifacts(fullDir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return CurateResult{}, fmt.Errorf("evidence: listing %s: %w", fullDir, err)
		}

		var specs []RewriteSpec
		var kept []ArtifactFile
		for _, group := range GroupBySignature(files) {
			groupKept, groupRemoved := group.Prune(opts.KeepMaxPerBlocker)
			kept = append(kept, groupKept...)
			for _, removedFile := range groupRemoved {
				replacement := filepath.Join(dir, "README.md")
				if len(groupKept) > 0 {
					replacement = filepath.ToSlash(filepath.Join(dir, filepath.Base(groupKept[0].Path)))
				}
				repoPath := filepath.ToSlash(filepath.Join(dir, filepath.Base(removedFile.Path)))
				specs = append(specs, RewriteSpec{PrunedRepoPath: repoPath, ReplacementRepoPath: replacement})
				pruned = append(pruned, repoPath)
				if err := os.Remove(removedFile.Path); err != nil && !os.IsNotExist(err) {
					return CurateResult{}, fmt.Errorf("evidence: removing %s: %w", removedFile.Path, err)
				}
			}
		}

		if len(specs) > 0 {
			rewritten = RewriteReferences(rewritten, opts.PlanDir, specs)
		}

		var artifactNames []string
		for _, f := range kept {
			artifactNames = append(artifactNames, filepath.Base(f.Path))
			entries = append(entries, IndexEntry{RepoPath: filepath.ToSlash(filepath.Join(dir, filepath.Base(f.Path))), ModTime: f.ModTime})
		}
		priorReadme, _ := os.ReadFile(filepath.Join(fullDir, "README.md"))
		readme := BuildReadme(filepath.Base(dir), artifactNames, opts.GeneratedAt, string(priorReadme))
		if err := WriteReadme(fullDir, readme); err != nil {
			return CurateResult{}, err
		}
	}

	document := BuildIndexDocument(opts.PlanID, opts.PlanPath, opts.GeneratedAt, entries, opts.MaxReferences)
	indexPath, err := WriteIndex(opts.Root, opts.PlanID, document)
	if err != nil {
		return CurateResult{}, err
	}
	if err := WriteIndexDirectoryReadme(opts.Root); err != nil {
		return CurateResult{}, err
	}

	return CurateResult{
		IndexPath:       indexPath,
		ReferenceCount:  len(refs),
		RewrittenDoc:    rewritten,
		PrunedArtifacts: pruned,
	}, nil
}
