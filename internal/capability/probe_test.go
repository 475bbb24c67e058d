package capability

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDockerSocketCandidatesIncludesSystemSocket(t *testing.T) {
	candidates := dockerSocketCandidates()
	if candidates[len(candidates)-1] != "/var/run/docker.sock" {
		t.Errorf("last candidate = %q, want system socket", candidates[len(candidates)-1])
	}
}

func TestDockerSocketCandidatesPrefersDockerHostEnv(t *testing.T) {
	t.Setenv("DOCKER_HOST", "unix:///tmp/custom.sock")
	candidates := dockerSocketCandidates()
	if candidates[0] != "/tmp/custom.sock" {
		t.Errorf("first candidate = %q, want /tmp/custom.sock", candidates[0])
	}
}

func TestDockerSocketCandidatesIgnoresNonUnixDockerHost(t *testing.T) {
	t.Setenv("DOCKER_HOST", "tcp://127.0.0.1:2375")
	candidates := dockerSocketCandidates()
	for _, c := range candidates {
		if c == "tcp://127.0.0.1:2375" {
			t.Errorf("tcp DOCKER_HOST leaked into unix-socket candidates: %v", candidates)
		}
	}
}

func TestSocketUsableRejectsMissingPath(t *testing.T) {
	if socketUsable(filepath.Join(t.TempDir(), "nope.sock")) {
		t.Error("expected false for nonexistent socket")
	}
}

func TestSocketUsableRejectsRegularFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "not-a-socket")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if socketUsable(path) {
		t.Error("expected false for a regular file")
	}
}

func TestProbeLocalhostBindSucceeds(t *testing.T) {
	if !ProbeLocalhostBind() {
		t.Error("expected localhost bind to succeed in test sandbox")
	}
}
