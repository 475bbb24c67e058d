package display

import (
	"testing"

	"github.com/fatih/color"
)

func TestParseMode(t *testing.T) {
	for _, ok := range []string{"minimal", "ticker", "pretty", "verbose"} {
		if _, err := ParseMode(ok); err != nil {
			t.Errorf("ParseMode(%q) returned error: %v", ok, err)
		}
	}
	if _, err := ParseMode("chatty"); err == nil {
		t.Error("ParseMode(\"chatty\") expected an error, got nil")
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 20); got != "short" {
		t.Errorf("Truncate short string = %q, want unchanged", got)
	}
	got := Truncate("this is a longer message than the limit allows", 20)
	if len(got) != 20 {
		t.Errorf("Truncate length = %d, want 20", len(got))
	}
	if got[len(got)-3:] != "..." {
		t.Errorf("Truncate = %q, want ellipsis suffix", got)
	}
}

func TestCleanText(t *testing.T) {
	got := CleanText("line one\nline  two   three")
	want := "line one line two three"
	if got != want {
		t.Errorf("CleanText = %q, want %q", got, want)
	}
}

func TestNoColorThemeIdentity(t *testing.T) {
	theme := NoColorTheme()
	if got := theme.Completed("ok"); got != "ok" {
		t.Errorf("NoColorTheme.Completed(%q) = %q, want unchanged", "ok", got)
	}
	if got := theme.Bold(); got != "" {
		t.Errorf("NoColorTheme.Bold() with no args = %q, want empty", got)
	}
}

func TestThemeByTierSelectsDistinctFunctions(t *testing.T) {
	// fatih/color emits no escape codes when stdout is not a terminal, as
	// under `go test`; force colors on so the tier styles can be compared.
	prevNoColor := color.NoColor
	color.NoColor = false
	defer func() { color.NoColor = prevNoColor }()

	theme := DefaultTheme()
	cases := map[string]func(a ...interface{}) string{
		"low":     theme.TierLow,
		"medium":  theme.TierMedium,
		"high":    theme.TierHigh,
		"":        theme.TierLow,
		"unknown": theme.TierLow,
	}
	for tier, want := range cases {
		got := theme.ByTier(tier)
		if got("x") != want("x") {
			t.Errorf("ByTier(%q) did not resolve to the expected tier color", tier)
		}
	}
	if theme.TierLow("x") == theme.TierHigh("x") {
		t.Error("TierLow and TierHigh render identically, want visually distinct colors")
	}
}
