package runstate

import (
	"path/filepath"
	"testing"
)

func TestRedactBlanksSensitiveFieldNames(t *testing.T) {
	details := map[string]interface{}{
		"api_key":  "sk-abc123",
		"Password": "hunter2",
		"plan_id":  "add-retry-budget",
	}
	out := Redact(details)
	if out["api_key"] != redactedPlaceholder {
		t.Errorf("api_key = %v", out["api_key"])
	}
	if out["Password"] != redactedPlaceholder {
		t.Errorf("Password = %v", out["Password"])
	}
	if out["plan_id"] != "add-retry-budget" {
		t.Errorf("unrelated field redacted: %v", out["plan_id"])
	}
}

func TestRedactScrubsBearerAndKVSecrets(t *testing.T) {
	details := map[string]interface{}{
		"message": "curl -H 'Authorization: Bearer sk-verysecret' and set session_token=abc123&next=1",
	}
	out := Redact(details)
	msg := out["message"].(string)
	if msg == details["message"] {
		t.Fatalf("message unchanged: %q", msg)
	}
	if containsSubstr(msg, "sk-verysecret") || containsSubstr(msg, "abc123") {
		t.Errorf("secret survived redaction: %q", msg)
	}
}

func TestRedactRecursesIntoNestedMaps(t *testing.T) {
	details := map[string]interface{}{
		"nested": map[string]interface{}{
			"token": "deep-secret",
		},
	}
	out := Redact(details)
	nested := out["nested"].(map[string]interface{})
	if nested["token"] != redactedPlaceholder {
		t.Errorf("nested token not redacted: %v", nested["token"])
	}
}

func TestEventLogAppendAndReadAll(t *testing.T) {
	dir := t.TempDir()
	log := NewEventLog(filepath.Join(dir, "events.jsonl"), false)

	if err := log.Append(Event{Timestamp: "2026-07-31T00:00:00Z", RunID: "r1", Type: "plan.started", Details: map[string]interface{}{"token": "x"}}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := log.Append(Event{Timestamp: "2026-07-31T00:01:00Z", RunID: "r1", Type: "plan.completed"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	events, err := log.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}
	if events[0].Type != "plan.started" || events[1].Type != "plan.completed" {
		t.Errorf("events out of order: %+v", events)
	}
	if events[0].Details["token"] != redactedPlaceholder {
		t.Errorf("persisted event not redacted: %v", events[0].Details)
	}
}

func TestEventLogDryRunIsNoop(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.jsonl")
	log := NewEventLog(path, true)
	if err := log.Append(Event{Type: "plan.started"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	events, err := log.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("dry-run log has %d events, want 0", len(events))
	}
}

func containsSubstr(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
