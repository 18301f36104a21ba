package improvementmemory

import (
	"testing"
	"time"

	"thermocode/internal/types"
)

func TestNormalizedHash_SameTokensDifferentSpacing(t *testing.T) {
	a := NormalizedHash("Add __hash__ to Agent")
	b := NormalizedHash("add__hash__to    Agent")
	if a != b {
		t.Errorf("expected same-token hypotheses to normalize to the same hash, got %s != %s", a, b)
	}
}

func TestWasRejected_MatchesByNormalizedHash(t *testing.T) {
	m := New(nil)
	now := time.Now()
	m.Update("types", "Add __hash__ to Agent", "add hash method", types.OutcomeRejected, "breaks equality", now)

	if !m.WasRejected("types", "add __hash__ to the agent class") {
		t.Error("expected fuzzy-matched rephrasing to report was_rejected=true (spec §8 scenario 6)")
	}
	if m.WasRejected("other-module", "add __hash__ to the agent class") {
		t.Error("expected rejection scoped to its own module")
	}
	if m.WasRejected("types", "completely unrelated hypothesis") {
		t.Error("expected unrelated hypothesis to not match")
	}
}

func TestWasRecentlyAccepted_TracksMostRecentOutcome(t *testing.T) {
	m := New(nil)
	now := time.Now()
	m.Update("parser", "extract constant", "extract the magic number", types.OutcomeRejected, "too risky", now)
	m.Update("parser", "extract constant", "extract the magic number", types.OutcomeAccepted, "", now.Add(time.Minute))

	if !m.WasRecentlyAccepted("parser", "extract constant") {
		t.Error("expected the most recent record (accepted) to win over an earlier rejection")
	}
}

func TestRecords_ReturnsDefensiveCopy(t *testing.T) {
	m := New(nil)
	m.Update("mod", "h", "d", types.OutcomeHeld, "", time.Now())

	recs := m.Records()
	recs[0].Module = "mutated"

	if m.Records()[0].Module != "mod" {
		t.Error("expected Records() to return a defensive copy, not the internal slice")
	}
}

func TestSaveLoad_NilPersistenceIsNoOp(t *testing.T) {
	m := New(nil)
	m.Update("mod", "h", "d", types.OutcomeAccepted, "", time.Now())

	if err := m.Save(); err != nil {
		t.Fatalf("Save with nil persistence should be a no-op, got %v", err)
	}
	if err := m.Load(); err != nil {
		t.Fatalf("Load with nil persistence should be a no-op, got %v", err)
	}
	if len(m.Records()) != 1 {
		t.Error("expected no-op Load to leave existing records intact")
	}
}
