package safety

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAuditLogger_AppendsJSONLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "audit.log")
	logger := NewAuditLogger(path, nil)
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if err := logger.Record(InfectionStarted, "infector", "ph1", at); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := logger.Record(InfectionSucceeded, "infector", "ph1", at.Add(time.Second)); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open audit log: %v", err)
	}
	defer f.Close()

	var events []AuditEvent
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e AuditEvent
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("failed to unmarshal audit line: %v", err)
		}
		events = append(events, e)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 appended events, got %d", len(events))
	}
	if events[0].Category != InfectionStarted || events[1].Category != InfectionSucceeded {
		t.Errorf("unexpected categories: %+v", events)
	}
}

func TestAuditLogger_NilFactsEngineIsHarmless(t *testing.T) {
	dir := t.TempDir()
	logger := NewAuditLogger(filepath.Join(dir, "audit.log"), nil)
	if err := logger.Record(MutationGenerated, "mutator", "m1", time.Now()); err != nil {
		t.Fatalf("expected no error with a nil facts engine, got %v", err)
	}
}
