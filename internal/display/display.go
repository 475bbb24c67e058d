// Package display renders the orchestrator's run/scheduler output,
// visually distinct from the output of the subprocess sessions it
// dispatches, across the four logging.output modes.
package display

import (
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/daydemir/conveyor/internal/sessionrunner"
)

// Mode selects how much the Display renders, per logging.output.
type Mode string

const (
	ModeMinimal Mode = "minimal"
	ModeTicker  Mode = "ticker"
	ModePretty  Mode = "pretty"
	ModeVerbose Mode = "verbose"
)

// ParseMode validates a --output/logging.output value.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeMinimal, ModeTicker, ModePretty, ModeVerbose:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("display: unknown output mode %q (want minimal, ticker, pretty, or verbose)", s)
	}
}

// Display renders run-level and session-level output at a chosen Mode.
type Display struct {
	theme     *Theme
	termWidth int
	mode      Mode
	noColor   bool

	tickerLineLen int // bytes written by the last ticker redraw, for overwrite
}

// New creates a Display for the given output mode.
func New(mode Mode, noColor bool) *Display {
	d := &Display{
		termWidth: getTerminalWidth(),
		mode:      mode,
		noColor:   noColor,
	}
	if noColor {
		d.theme = NoColorTheme()
	} else {
		d.theme = DefaultTheme()
	}
	return d
}

func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < 40 {
		return 80
	}
	if width > 120 {
		return 120
	}
	return width
}

// Theme returns the active theme for callers that need direct access.
func (d *Display) Theme() *Theme { return d.theme }

// Mode returns the active output mode.
func (d *Display) Mode() Mode { return d.mode }

func (d *Display) padRight(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}

// Box prints a bordered, titled block. Suppressed in minimal and ticker
// modes, where run-level output stays to single lines.
func (d *Display) Box(title string, lines ...string) {
	if d.mode == ModeMinimal || d.mode == ModeTicker || len(lines) == 0 {
		return
	}

	width := d.termWidth - 2
	titleLen := len(title) + 4
	remaining := width - titleLen
	if remaining < 0 {
		remaining = 0
	}

	top := BoxTopLeft + BoxHorizontal + " " + title + " " + strings.Repeat(BoxHorizontal, remaining) + BoxTopRight
	fmt.Println(d.theme.RunBorder(top))
	for _, line := range lines {
		padded := d.padRight(line, width-2)
		fmt.Println(d.theme.RunBorder(BoxVertical) + " " + d.theme.RunText(padded) + " " + d.theme.RunBorder(BoxVertical))
	}
	bottom := BoxBottomLeft + strings.Repeat(BoxHorizontal, width) + BoxBottomRight
	fmt.Println(d.theme.RunBorder(bottom))
}

// Status prints a single timestamped run-level line. Suppressed in
// minimal mode.
func (d *Display) Status(symbol, message string) {
	if d.mode == ModeMinimal {
		return
	}
	d.clearTicker()
	timestamp := time.Now().Format("[15:04:05]")
	fmt.Printf("%s %s %s\n", d.theme.RunBorder(timestamp), symbol, d.theme.RunText(message))
}

// RunStart announces the beginning of a run.
func (d *Display) RunStart(runID string, effectiveMode string) {
	d.Box("CONVEYOR", fmt.Sprintf("run %s, mode %s", runID, effectiveMode))
}

// PlanStart announces dispatch of one session for a plan.
func (d *Display) PlanStart(planID, role string, session, stageIndex, stageTotal int) {
	if d.mode == ModeMinimal {
		return
	}
	d.clearTicker()
	msg := fmt.Sprintf("%s: role %s, session %d, stage %d/%d", planID, role, session, stageIndex+1, stageTotal)
	fmt.Println(d.theme.RunLabel(">>> " + msg + " <<<"))
}

// Heartbeat renders one heartbeatSeconds tick. In ticker mode this
// redraws a single in-place status line; in pretty/verbose it appends a
// timestamped line; minimal suppresses it entirely. The session tag is
// colored by the session's effective risk tier (hb.RiskTier), not a
// fixed style, so a high-tier session visibly stands out from routine
// low-tier worker traffic scrolling by.
func (d *Display) Heartbeat(hb sessionrunner.Heartbeat) {
	tierTag := d.theme.ByTier(hb.RiskTier)
	switch d.mode {
	case ModeMinimal:
		return
	case ModeTicker:
		line := fmt.Sprintf("%s %s %s  elapsed=%s idle=%s",
			tierTag(SymbolRunning),
			hb.PlanID, hb.Role,
			hb.Elapsed.Round(time.Second), hb.Idle.Round(time.Second))
		d.writeTicker(line)
	default:
		timestamp := time.Now().Format("[15:04:05]")
		fmt.Printf("  %s %s %s %s  elapsed=%s idle=%s\n",
			d.theme.SessionTimestamp(timestamp), tierTag(GutterSession),
			hb.PlanID, hb.Role,
			hb.Elapsed.Round(time.Second), hb.Idle.Round(time.Second))
	}
}

// StallWarning fires once per session when idle exceeds stallWarnSeconds.
func (d *Display) StallWarning(hb sessionrunner.Heartbeat) {
	if d.mode == ModeMinimal {
		return
	}
	d.clearTicker()
	d.Status(d.theme.Blocked(SymbolBlocked), fmt.Sprintf("%s/%s stalled: idle %s", hb.PlanID, hb.Role, hb.Idle.Round(time.Second)))
}

// SessionOutput streams captured subprocess output. Only rendered in
// verbose mode; every other mode captures silently.
func (d *Display) SessionOutput(planID string, line string) {
	if d.mode != ModeVerbose {
		return
	}
	timestamp := time.Now().Format("[15:04:05]")
	fmt.Printf("  %s %s %s\n", d.theme.SessionTimestamp(timestamp), d.theme.SessionTimestamp(GutterDot), d.theme.SessionText(line))
}

// Handoff announces a HandoffRequired rollover.
func (d *Display) Handoff(planID, role string, session int, reason string) {
	d.Status(d.theme.Handoff(SymbolHandoff), fmt.Sprintf("%s/%s session %d: handoff (%s)", planID, role, session, reason))
}

// Outcome announces a plan's terminal-for-this-run outcome.
func (d *Display) Outcome(planID, outcome, reason string) {
	var symbol string
	switch outcome {
	case "completed":
		symbol = d.theme.Completed(SymbolCompleted)
	case "failed":
		symbol = d.theme.Failed(SymbolFailed)
	case "blocked":
		symbol = d.theme.Blocked(SymbolBlocked)
	case "handoff_required":
		symbol = d.theme.Handoff(SymbolHandoff)
	default:
		symbol = d.theme.Pending(SymbolPending)
	}
	msg := fmt.Sprintf("%s: %s", planID, outcome)
	if reason != "" {
		msg += " (" + reason + ")"
	}
	d.Status(symbol, msg)
}

// RunSummary prints the final per-outcome plan-ID tally. Always printed,
// even in minimal mode, since it's the one line an unattended run needs.
func (d *Display) RunSummary(completed, blocked, failed, pending []string) {
	d.clearTicker()
	fmt.Printf("\n%s completed=%d blocked=%d failed=%d pending=%d\n",
		d.theme.Bold("run summary:"), len(completed), len(blocked), len(failed), len(pending))
	if len(failed) > 0 {
		fmt.Printf("  failed: %s\n", strings.Join(failed, ", "))
	}
	if len(blocked) > 0 {
		fmt.Printf("  blocked: %s\n", strings.Join(blocked, ", "))
	}
}

// SectionBreak prints a horizontal rule, used between scheduler passes.
func (d *Display) SectionBreak() {
	if d.mode == ModeMinimal || d.mode == ModeTicker {
		return
	}
	fmt.Println(d.theme.Separator(strings.Repeat(SectionRule, d.termWidth)))
}

// Error, Warning, and Info are general-purpose run-level lines. Error and
// Warning are printed regardless of mode since they typically require
// operator attention; Info is suppressed in minimal mode.
func (d *Display) Error(message string) {
	d.clearTicker()
	timestamp := time.Now().Format("[15:04:05]")
	fmt.Printf("%s %s %s\n", d.theme.RunBorder(timestamp), d.theme.Failed(SymbolFailed), d.theme.RunText(message))
}

func (d *Display) Warning(message string) {
	d.clearTicker()
	timestamp := time.Now().Format("[15:04:05]")
	fmt.Printf("%s %s %s\n", d.theme.RunBorder(timestamp), d.theme.Blocked(SymbolBlocked), d.theme.RunText(message))
}

func (d *Display) Info(label, message string) {
	if d.mode == ModeMinimal {
		return
	}
	d.clearTicker()
	timestamp := time.Now().Format("[15:04:05]")
	fmt.Printf("%s %s %s\n", d.theme.RunBorder(timestamp), d.theme.Info(label+":"), d.theme.RunText(message))
}

// writeTicker redraws the single in-place ticker line, padding over
// whatever the previous redraw left on the terminal.
func (d *Display) writeTicker(line string) {
	pad := ""
	if d.tickerLineLen > len(line) {
		pad = strings.Repeat(" ", d.tickerLineLen-len(line))
	}
	fmt.Printf("\r%s%s", line, pad)
	d.tickerLineLen = len(line)
}

// clearTicker erases the in-place ticker line before printing a normal
// newline-terminated message over it.
func (d *Display) clearTicker() {
	if d.tickerLineLen == 0 {
		return
	}
	fmt.Printf("\r%s\r", strings.Repeat(" ", d.tickerLineLen))
	d.tickerLineLen = 0
}

// Truncate truncates text to max length with an ellipsis.
func Truncate(s string, max int) string {
	s = CleanText(s)
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// CleanText removes newlines and collapses repeated spaces.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	return strings.TrimSpace(s)
}
