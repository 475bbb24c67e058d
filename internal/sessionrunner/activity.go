package sessionrunner

import (
	"sync"
	"time"
)

// activityWriter wraps an io.Writer and records the wall-clock time of
// the most recent write, so the heartbeat loop can compute idle time
// (time since last stdout/stderr byte) per spec.md §4.8.
type activityWriter struct {
	mu       sync.Mutex
	dest     writer
	lastByte time.Time
}

type writer interface {
	Write(p []byte) (int, error)
}

func newActivityWriter(dest writer, now time.Time) *activityWriter {
	return &activityWriter{dest: dest, lastByte: now}
}

func (a *activityWriter) Write(p []byte) (int, error) {
	n, err := a.dest.Write(p)
	a.mu.Lock()
	a.lastByte = time.Now()
	a.mu.Unlock()
	return n, err
}

func (a *activityWriter) idleSince() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastByte
}

// Heartbeat is one emitted status line per spec.md §4.8. RiskTier carries
// the session's effective risk tier so a renderer can color output by
// scrutiny level rather than by a fixed "session output" style.
type Heartbeat struct {
	Phase    string
	PlanID   string
	Role     string
	RiskTier string
	Elapsed  time.Duration
	Idle     time.Duration
	Stalled  bool
}

// heartbeatLoop emits a Heartbeat on every tick until stop is closed,
// calling emit for each tick and warnOnce exactly once the first time
// idle exceeds stallWarn.
func heartbeatLoop(stop <-chan struct{}, tick time.Duration, stallWarn time.Duration, planID, role, riskTier string, started time.Time, activity *activityWriter, emit func(Heartbeat), warnOnce func(Heartbeat)) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	warned := false
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			idle := now.Sub(activity.idleSince())
			hb := Heartbeat{
				Phase:    "running",
				PlanID:   planID,
				Role:     role,
				RiskTier: riskTier,
				Elapsed:  now.Sub(started),
				Idle:     idle,
				Stalled:  idle > stallWarn,
			}
			emit(hb)
			if hb.Stalled && !warned {
				warned = true
				warnOnce(hb)
			}
		}
	}
}
