package safety

import (
	"testing"
	"time"
)

func TestRateLimiter_AllowsUpToPerMinuteLimit(t *testing.T) {
	rl := NewRateLimiter(2, 0, 0)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if !rl.Allow("mod1", base) {
		t.Fatal("expected first event to be allowed")
	}
	rl.Record("mod1", base)
	if !rl.Allow("mod1", base.Add(time.Second)) {
		t.Fatal("expected second event within the minute to be allowed")
	}
	rl.Record("mod1", base.Add(time.Second))
	if rl.Allow("mod1", base.Add(2*time.Second)) {
		t.Fatal("expected the third event within the minute to be denied")
	}
}

func TestRateLimiter_WindowExpires(t *testing.T) {
	rl := NewRateLimiter(1, 0, 0)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.Record("mod1", base)

	if rl.Allow("mod1", base.Add(30*time.Second)) {
		t.Fatal("expected the window to still be saturated 30s later")
	}
	if !rl.Allow("mod1", base.Add(61*time.Second)) {
		t.Fatal("expected the window to have expired after 61s")
	}
}

func TestRateLimiter_ChecksEveryConfiguredWindow(t *testing.T) {
	rl := NewRateLimiter(0, 1, 0) // only the per-hour window is active
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.Record("mod1", base)

	if rl.Allow("mod1", base.Add(time.Minute)) {
		t.Fatal("expected the per-hour window to deny a second event within the hour")
	}
}

func TestRateLimiter_IndependentKeys(t *testing.T) {
	rl := NewRateLimiter(1, 0, 0)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.Record("mod1", base)

	if !rl.Allow("mod2", base) {
		t.Fatal("expected a different key to have its own independent budget")
	}
}

func TestRateLimiter_RecordPrunesOldTimestamps(t *testing.T) {
	rl := NewRateLimiter(0, 0, 1) // per-day window only
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.Record("mod1", base)
	rl.Record("mod1", base.Add(25*time.Hour))

	if got := rl.Count("mod1"); got != 1 {
		t.Errorf("expected the first timestamp to be pruned once outside the widest window, got count %d", got)
	}
}
