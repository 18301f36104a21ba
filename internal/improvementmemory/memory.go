// Package improvementmemory implements the Improvement Memory (spec
// §4.12, §7 P9): an append-only ledger of past hypothesis attempts, keyed
// by a normalized hash so that rephrasings of the same idea ("Add
// __hash__ to Agent" vs "add __hash__ to the agent class") are recognized
// as the same hypothesis.
package improvementmemory

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"thermocode/internal/logging"
	"thermocode/internal/store"
	"thermocode/internal/types"
)

var normalizeCollapse = regexp.MustCompile(`[^a-z0-9]+`)

// normalizeFiller lists articles and declaration-kind words dropped before
// hashing, so "to Agent" and "to the agent class" name the same target.
var normalizeFiller = map[string]bool{"a": true, "an": true, "the": true, "class": true, "struct": true}

// NormalizedHash collapses case, punctuation, and whitespace differences
// and drops the words in normalizeFiller, so that two textually distinct
// hypotheses naming the same change hash identically (spec §7 P9, §8
// scenario 6). Hashing, not fuzzy matching,
// is the only standard-library piece here: sha256+hex is a one-line
// primitive with no ecosystem library in the example pack that does it
// more idiomatically.
func NormalizedHash(hypothesis string) string {
	lower := strings.ToLower(hypothesis)
	collapsed := normalizeCollapse.ReplaceAllString(lower, " ")
	var kept []string
	for _, tok := range strings.Fields(collapsed) {
		if !normalizeFiller[tok] {
			kept = append(kept, tok)
		}
	}
	normalized := strings.Join(kept, " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Memory is the shared, lock-serialized ledger (spec §5: "The Improvement
// Memory ... expose only atomic methods (record, was_rejected, update)").
type Memory struct {
	mu      sync.Mutex
	records []types.ImprovementRecord
	persist *store.CatalogStore // optional
}

// New creates an empty ledger. persist may be nil (in-memory only).
func New(persist *store.CatalogStore) *Memory {
	return &Memory{persist: persist}
}

// Update records a new ledger entry for module+hypothesis (spec §5:
// "update"), keyed by the hypothesis's normalized hash, and returns the
// stored record. at is the caller-supplied timestamp; the package never
// calls time.Now() itself so ledger entries stay deterministic for tests
// and replay.
func (m *Memory) Update(module, hypothesis, description string, outcome types.ImprovementOutcome, rejectionReason string, at time.Time) types.ImprovementRecord {
	rec := types.ImprovementRecord{
		Module:          module,
		HypothesisHash:  NormalizedHash(hypothesis),
		Description:     description,
		Outcome:         outcome,
		Timestamp:       at,
		RejectionReason: rejectionReason,
	}

	m.mu.Lock()
	m.records = append(m.records, rec)
	m.mu.Unlock()

	logging.Get(logging.CategoryMemory).Debug(
		"improvement ledger: module=%s outcome=%s hash=%s", rec.Module, rec.Outcome, rec.HypothesisHash)
	return rec
}

// WasRejected implements P9: true if hypothesis was recorded as rejected
// for module, matched by normalized hash rather than exact text.
func (m *Memory) WasRejected(module, hypothesis string) bool {
	hash := NormalizedHash(hypothesis)
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.records) - 1; i >= 0; i-- {
		r := m.records[i]
		if r.Module == module && r.HypothesisHash == hash && r.Outcome == types.OutcomeRejected {
			return true
		}
	}
	return false
}

// WasRecentlyAccepted reports whether the most recent record for this
// module+hypothesis hash was an acceptance, per spec §4.12 step 2's
// "recently accepted for a fuzzy-matched hypothesis" skip condition.
func (m *Memory) WasRecentlyAccepted(module, hypothesis string) bool {
	hash := NormalizedHash(hypothesis)
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.records) - 1; i >= 0; i-- {
		r := m.records[i]
		if r.Module == module && r.HypothesisHash == hash {
			return r.Outcome == types.OutcomeAccepted
		}
	}
	return false
}

// Records returns a snapshot copy of the full ledger, most recent last.
func (m *Memory) Records() []types.ImprovementRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.ImprovementRecord, len(m.records))
	copy(out, m.records)
	return out
}

// ledgerPayload is the {"records": [...]} shape from spec §6.
type ledgerPayload struct {
	Records []types.ImprovementRecord `json:"records"`
}

// Save persists the full ledger as one snapshot.
func (m *Memory) Save() error {
	if m.persist == nil {
		return nil
	}
	m.mu.Lock()
	data, err := json.Marshal(ledgerPayload{Records: m.records})
	m.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to marshal improvement ledger: %w", err)
	}
	return m.persist.Save(data)
}

// Load restores the ledger from the most recent snapshot.
func (m *Memory) Load() error {
	if m.persist == nil {
		return nil
	}
	data, err := m.persist.Load()
	if err != nil {
		return fmt.Errorf("failed to load improvement ledger: %w", err)
	}
	if data == nil {
		return nil
	}
	var payload ledgerPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal improvement ledger: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = payload.Records
	return nil
}
