package scheduler

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/daydemir/conveyor/internal/sessionrunner"
)

func TestWriteHandoffNoteUsesClassifierReasonAndSummary(t *testing.T) {
	root := t.TempDir()
	cls := sessionrunner.Classification{
		Outcome: sessionrunner.OutcomeHandoffRequired,
		Reason:  "context threshold crossed",
		Payload: &sessionrunner.ResultPayload{Summary: "refactored the parser, half the callers updated"},
	}

	relPath, err := WriteHandoffNote(root, "handoffs", "plan-1", "20260101T000000Z", "worker", 2, cls)
	if err != nil {
		t.Fatalf("WriteHandoffNote: %v", err)
	}

	want := filepath.Join("handoffs", "plan-1", "20260101T000000Z-session-2.md")
	if relPath != want {
		t.Errorf("relPath = %q, want %q", relPath, want)
	}

	raw, err := os.ReadFile(filepath.Join(root, relPath))
	if err != nil {
		t.Fatalf("reading handoff note: %v", err)
	}
	content := string(raw)
	for _, want := range []string{
		"Plan-ID: plan-1",
		"Role: worker",
		"Session: 2",
		"context threshold crossed",
		"refactored the parser, half the callers updated",
		`Resume role "worker" at session 3.`,
	} {
		if !strings.Contains(content, want) {
			t.Errorf("expected note to contain %q, got:\n%s", want, content)
		}
	}
}

func TestWriteHandoffNoteFallsBackToPayloadReason(t *testing.T) {
	root := t.TempDir()
	cls := sessionrunner.Classification{
		Outcome: sessionrunner.OutcomeHandoffRequired,
		Payload: &sessionrunner.ResultPayload{Reason: "payload-level reason"},
	}

	relPath, err := WriteHandoffNote(root, "handoffs", "plan-2", "20260101T000000Z", "worker", 1, cls)
	if err != nil {
		t.Fatalf("WriteHandoffNote: %v", err)
	}
	raw, _ := os.ReadFile(filepath.Join(root, relPath))
	if !strings.Contains(string(raw), "payload-level reason") {
		t.Errorf("expected fallback to payload reason, got:\n%s", raw)
	}
	if strings.Contains(string(raw), "Prior Session Summary") {
		t.Error("expected no summary section when payload has none")
	}
}

func TestWriteHandoffNoteDefaultsReasonWhenNoneReported(t *testing.T) {
	root := t.TempDir()
	relPath, err := WriteHandoffNote(root, "handoffs", "plan-3", "20260101T000000Z", "worker", 1, sessionrunner.Classification{})
	if err != nil {
		t.Fatalf("WriteHandoffNote: %v", err)
	}
	raw, _ := os.ReadFile(filepath.Join(root, relPath))
	if !strings.Contains(string(raw), "no reason reported") {
		t.Errorf("expected default reason, got:\n%s", raw)
	}
}
