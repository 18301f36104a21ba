// Package safety implements the Safety Kernel (spec §4.11): four
// independently toggleable layers — atomic rollback (provided by
// internal/phage.AtomicMutationManager, not duplicated here), a rate
// limiter, an audit logger, and a sandbox — plus the self-evolution
// fixed-point convergence loop for meta-targets.
package safety

import (
	"sync"
	"time"
)

// window tracks a sliding-window count of events against a limit,
// grounded on the teacher's internal/auth/antigravity.TokenTracker
// regenerating-bucket idiom (rotation.go), adapted from a single
// per-minute capacity into an explicit timestamp log so per-minute,
// per-hour, and per-day windows can each be queried independently
// against the same event stream.
type window struct {
	period time.Duration
	limit  int
}

// RateLimiter enforces the per-minute/per-hour/per-day mutation-count
// ceilings spec §4.11 calls "token-bucket style windows". Distinct
// keys (e.g. one per module) are tracked independently, matching
// config.SafetyConfig's per-system and per-module caps.
type RateLimiter struct {
	mu         sync.Mutex
	windows    []window
	timestamps map[string][]time.Time
}

// NewRateLimiter builds a limiter checking events against a per-minute,
// per-hour, and per-day cap simultaneously (spec §4.11). A zero limit
// disables that window's check.
func NewRateLimiter(perMinute, perHour, perDay int) *RateLimiter {
	return &RateLimiter{
		timestamps: make(map[string][]time.Time),
		windows: []window{
			{period: time.Minute, limit: perMinute},
			{period: time.Hour, limit: perHour},
			{period: 24 * time.Hour, limit: perDay},
		},
	}
}

// Allow reports whether one more event for key is permitted at time
// at, given every configured window's count over its own trailing
// period. It does not record the event; call Record separately once
// the caller has decided to proceed, so a rejected attempt never
// consumes capacity.
func (rl *RateLimiter) Allow(key string, at time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	events := rl.timestamps[key]
	for _, w := range rl.windows {
		if w.limit <= 0 {
			continue
		}
		count := 0
		cutoff := at.Add(-w.period)
		for _, ts := range events {
			if ts.After(cutoff) {
				count++
			}
		}
		if count >= w.limit {
			return false
		}
	}
	return true
}

// Record logs one event for key at time at, and prunes timestamps
// older than the widest configured window so the log doesn't grow
// without bound across a long-running process.
func (rl *RateLimiter) Record(key string, at time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.timestamps[key] = append(rl.timestamps[key], at)

	var widest time.Duration
	for _, w := range rl.windows {
		if w.period > widest {
			widest = w.period
		}
	}
	if widest == 0 {
		return
	}
	cutoff := at.Add(-widest)
	kept := rl.timestamps[key][:0]
	for _, ts := range rl.timestamps[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	rl.timestamps[key] = kept
}

// Count returns how many events are currently tracked for key
// (post-pruning), for diagnostics and tests.
func (rl *RateLimiter) Count(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.timestamps[key])
}
