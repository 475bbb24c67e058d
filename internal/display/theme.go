package display

import "github.com/fatih/color"

// Box drawing characters.
const (
	BoxTopLeft     = "┌"
	BoxTopRight    = "┐"
	BoxBottomLeft  = "└"
	BoxBottomRight = "┘"
	BoxHorizontal  = "─"
	BoxVertical    = "│"
	SectionRule    = "━"
)

// Outcome symbols.
const (
	SymbolCompleted = "✓"
	SymbolFailed    = "✗"
	SymbolBlocked   = "⚠"
	SymbolPending   = "○"
	SymbolHandoff   = "↻"
	SymbolRunning   = "◐"
)

// GutterSession marks the first line of a session/executor output block;
// GutterDot marks its continuation lines.
const (
	GutterSession = "▸"
	GutterDot     = "·"
)

// IndentSession is the left indent applied to session/executor output.
const IndentSession = "  "

// Theme holds the color functions used for every rendered line. A Theme
// is chosen once per Display and never mutated afterward.
//
// Session-level lines (heartbeats, stall warnings) are colored by the
// session's effective risk tier rather than by a single fixed style:
// tier is the one thing that actually varies from session to session,
// and a low-tier worker session reads very differently on screen than
// a high-tier session running under an explorer/reviewer pipeline.
type Theme struct {
	// Orchestrator-level output (the run/scheduler, not a session).
	RunBorder func(a ...interface{}) string
	RunLabel  func(a ...interface{}) string
	RunText   func(a ...interface{}) string

	// Session output, keyed by risk tier via ByTier below.
	TierLow          func(a ...interface{}) string
	TierMedium       func(a ...interface{}) string
	TierHigh         func(a ...interface{}) string
	SessionTimestamp func(a ...interface{}) string
	SessionText      func(a ...interface{}) string

	// Plan outcome indicators.
	Completed func(a ...interface{}) string
	Failed    func(a ...interface{}) string
	Blocked   func(a ...interface{}) string
	Pending   func(a ...interface{}) string
	Handoff   func(a ...interface{}) string
	Info      func(a ...interface{}) string

	// Structural elements.
	Bold      func(a ...interface{}) string
	Dim       func(a ...interface{}) string
	Separator func(a ...interface{}) string
}

// ByTier returns the session-tag color for the given effective risk
// tier, defaulting to the low-tier style for an empty or unrecognized
// value (e.g. a host-validation pass that never went through the role
// pipeline's risk assessment).
func (t *Theme) ByTier(tier string) func(a ...interface{}) string {
	switch tier {
	case "high":
		return t.TierHigh
	case "medium":
		return t.TierMedium
	default:
		return t.TierLow
	}
}

// DefaultTheme creates the default color theme.
func DefaultTheme() *Theme {
	return &Theme{
		RunBorder: color.New(color.FgCyan).SprintFunc(),
		RunLabel:  color.New(color.FgCyan, color.Bold).SprintFunc(),
		RunText:   color.New(color.FgWhite).SprintFunc(),

		// Low tier stays calm and easy to scroll past; medium steps up
		// to amber; high is bold red, matching the Risk & Policy Gate's
		// own escalation from routine to approval-gated.
		TierLow:          color.New(color.FgGreen).SprintFunc(),
		TierMedium:       color.New(color.FgYellow).SprintFunc(),
		TierHigh:         color.New(color.FgRed, color.Bold).SprintFunc(),
		SessionTimestamp: color.New(color.FgHiBlack).SprintFunc(),
		SessionText:      color.New(color.FgWhite).SprintFunc(),

		Completed: color.New(color.FgGreen).SprintFunc(),
		Failed:    color.New(color.FgRed, color.Bold).SprintFunc(),
		Blocked:   color.New(color.FgMagenta).SprintFunc(),
		Pending:   color.New(color.FgBlue).SprintFunc(),
		Handoff:   color.New(color.FgCyan).SprintFunc(),
		Info:      color.New(color.FgCyan).SprintFunc(),

		Bold:      color.New(color.Bold).SprintFunc(),
		Dim:       color.New(color.FgHiBlack).SprintFunc(),
		Separator: color.New(color.FgCyan).SprintFunc(),
	}
}

// NoColorTheme creates a theme without colors, used when the NO_COLOR
// environment variable is set.
func NoColorTheme() *Theme {
	identity := func(a ...interface{}) string {
		if len(a) == 0 {
			return ""
		}
		if s, ok := a[0].(string); ok {
			return s
		}
		return ""
	}
	return &Theme{
		RunBorder:        identity,
		RunLabel:         identity,
		RunText:          identity,
		TierLow:          identity,
		TierMedium:       identity,
		TierHigh:         identity,
		SessionTimestamp: identity,
		SessionText:      identity,
		Completed:        identity,
		Failed:           identity,
		Blocked:          identity,
		Pending:          identity,
		Handoff:          identity,
		Info:             identity,
		Bold:             identity,
		Dim:              identity,
		Separator:        identity,
	}
}
