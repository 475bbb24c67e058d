// Package gitops implements the atomic commit step at the end of the
// per-plan FSM (spec.md §4.7 step 14): stage and commit everything the
// run touched, restricted to add+commit (no push), grounded on ralph's
// executor.go CommitAndPushRepos git-subprocess idiom.
package gitops

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var ErrDirtyWorktreeRefused = errors.New("gitops: refusing to commit with --allow-dirty set")

// CommitResult reports the outcome of one atomic commit attempt.
type CommitResult struct {
	Skipped bool // no git repo, or nothing to commit
	Reason  string
	SHA     string
}

// Commit implements spec.md §4.7 step 14: refuse if allowDirty is set,
// skip if there is no git repo or nothing dirty, otherwise
// `git add --all -- .` then `git commit -m "exec-plan(<id>): complete"`
// then `git rev-parse HEAD`.
func Commit(repoRoot, planID string, allowDirty bool) (CommitResult, error) {
	if allowDirty {
		return CommitResult{}, ErrDirtyWorktreeRefused
	}

	if !isGitRepo(repoRoot) {
		return CommitResult{Skipped: true, Reason: "not a git repository"}, nil
	}

	dirty, err := hasDirtyFiles(repoRoot)
	if err != nil {
		return CommitResult{}, fmt.Errorf("gitops: checking status: %w", err)
	}
	if !dirty {
		return CommitResult{Skipped: true, Reason: "no changes to commit"}, nil
	}

	if err := runGit(repoRoot, "add", "--all", "--", "."); err != nil {
		return CommitResult{}, fmt.Errorf("gitops: staging changes: %w", err)
	}

	message := fmt.Sprintf("exec-plan(%s): complete", planID)
	if err := runGit(repoRoot, "commit", "-m", message); err != nil {
		return CommitResult{}, fmt.Errorf("gitops: committing: %w", err)
	}

	sha, err := runGitOutput(repoRoot, "rev-parse", "HEAD")
	if err != nil {
		return CommitResult{}, fmt.Errorf("gitops: reading commit sha: %w", err)
	}

	return CommitResult{SHA: strings.TrimSpace(sha)}, nil
}

func isGitRepo(root string) bool {
	cmd := exec.Command("git", "-C", root, "rev-parse", "--git-dir")
	return cmd.Run() == nil
}

func hasDirtyFiles(root string) (bool, error) {
	out, err := runGitOutput(root, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

func runGit(root string, args ...string) error {
	fullArgs := append([]string{"-C", root}, args...)
	cmd := exec.Command("git", fullArgs...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func runGitOutput(root string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", root}, args...)
	cmd := exec.Command("git", fullArgs...)
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}
