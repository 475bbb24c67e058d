// Package capability detects host facilities (Docker daemon, localhost
// bind) that feed host-validation provider selection. Docker detection is
// grounded on Heikkila-Pty-Ltd-cortex/internal/dispatch/docker.go's
// client.NewClientWithOpts(client.FromEnv, ...) construction, generalized
// from "build a dispatcher" to "probe presence and report it".
package capability

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/docker/docker/client"
)

// Result is the capability snapshot fed into run state and host-validation
// provider selection, per spec.md §3's Capabilities fields.
type Result struct {
	DockerAvailable bool
	DockerSocket    string
	LocalhostBind   bool
	BrowserRuntime  bool
}

// dockerSocketCandidates returns, in priority order, the sockets the probe
// tries: $DOCKER_HOST (when unix://), the per-platform user socket, then
// the system socket, per spec.md §4.4.
func dockerSocketCandidates() []string {
	var candidates []string

	if host := os.Getenv("DOCKER_HOST"); strings.HasPrefix(host, "unix://") {
		candidates = append(candidates, strings.TrimPrefix(host, "unix://"))
	}

	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".docker", "run", "docker.sock"))
	}

	candidates = append(candidates, "/var/run/docker.sock")
	return candidates
}

// socketUsable reports whether path exists, is a unix socket, and accepts
// a connection from the current process (connecting requires read and
// write access to the socket file).
func socketUsable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if info.Mode()&os.ModeSocket == 0 {
		return false
	}
	conn, err := net.DialTimeout("unix", path, time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// ProbeDocker walks the candidate sockets in order and pings the daemon
// through the first one that looks usable.
func ProbeDocker(ctx context.Context) (available bool, socket string) {
	for _, candidate := range dockerSocketCandidates() {
		if !socketUsable(candidate) {
			continue
		}
		cli, err := client.NewClientWithOpts(
			client.WithHost("unix://"+candidate),
			client.WithAPIVersionNegotiation(),
		)
		if err != nil {
			continue
		}
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		_, pingErr := cli.Ping(pingCtx)
		cancel()
		cli.Close()
		if pingErr == nil {
			return true, candidate
		}
	}
	return false, ""
}

// ProbeLocalhostBind attempts to bind an ephemeral TCP port on 127.0.0.1.
func ProbeLocalhostBind() bool {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return false
	}
	ln.Close()
	return true
}

// Probe runs every capability check and assembles the Result. Browser
// runtime is treated as implied by localhost bind, per spec.md §4.4.
func Probe(ctx context.Context) Result {
	dockerAvailable, socket := ProbeDocker(ctx)
	localhostBind := ProbeLocalhostBind()
	return Result{
		DockerAvailable: dockerAvailable,
		DockerSocket:    socket,
		LocalhostBind:   localhostBind,
		BrowserRuntime:  localhostBind,
	}
}
