// Package viral implements the Viral Library (spec §4.9): a
// fitness-weighted store of mutation-schema patterns that biases future
// hypothesis generation toward what has historically worked.
//
// Grounded on internal/catalog.Registry's idiom (spec §5: "expose only
// atomic methods") — a mutex-guarded id-keyed map with optional
// internal/store.CatalogStore persistence — generalized from catalog
// entries to fitness-tracked patterns. Timestamps are caller-supplied
// rather than taken via time.Now() internally, following
// internal/improvementmemory.Memory.Update's determinism discipline, so
// fitness decay and the pruning sweep stay reproducible in tests.
package viral

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"thermocode/internal/embedding"
	"thermocode/internal/logging"
	"thermocode/internal/store"
)

// failureDecay is the multiplicative fitness penalty applied on
// record_failure (spec §4.9 says only "fitness decays" without naming a
// rate); 0.9 was chosen as a gentle decay that still visibly separates a
// schema with several recent failures from one with none, without a
// single failure erasing a long history of success.
const failureDecay = 0.9

// minFitnessFloor is the pruning sweep's fitness threshold (spec §4.9).
const minFitnessFloor = 0.05

// Pattern is one tracked mutation-schema pattern.
type Pattern struct {
	ID          string
	SchemaID    string // matches types.MutationVector.SchemaSignature
	Embedding   []float32
	Successes   int
	Failures    int
	TotalImpact float64 // running sum of per-success impact, for the mean
	Fitness     float64
	LastUsed    time.Time
}

func (p *Pattern) successRate() float64 {
	total := p.Successes + p.Failures
	if total == 0 {
		return 0
	}
	return float64(p.Successes) / float64(total)
}

func (p *Pattern) avgImpact() float64 {
	if p.Successes == 0 {
		return 0
	}
	return p.TotalImpact / float64(p.Successes)
}

func (p *Pattern) recomputeFitness() {
	p.Fitness = p.successRate() * p.avgImpact()
}

// Odds is the market odds for this pattern at sampling time: a monotone
// function of fitness (spec §4.9's example, tanh).
func (p *Pattern) Odds() float64 {
	return math.Tanh(p.Fitness)
}

// Suggestion is one ranked result from SuggestMutations.
type Suggestion struct {
	Pattern Pattern
	Score   float64
}

// Library is the shared, lock-serialized pattern store.
type Library struct {
	mu       sync.Mutex
	patterns map[string]*Pattern
	persist  *store.CatalogStore // optional
}

// New creates an empty Library. persist may be nil (in-memory only).
func New(persist *store.CatalogStore) *Library {
	return &Library{patterns: make(map[string]*Pattern), persist: persist}
}

// Register adds a new pattern (or replaces an existing one's identity
// fields, preserving its accumulated success/failure history) with zero
// fitness until it records its first outcome.
func (l *Library) Register(id, schemaID string, vec []float32) error {
	if id == "" {
		return fmt.Errorf("viral: pattern must have a non-empty id")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	existing, ok := l.patterns[id]
	if ok {
		existing.SchemaID = schemaID
		existing.Embedding = vec
		return nil
	}
	l.patterns[id] = &Pattern{ID: id, SchemaID: schemaID, Embedding: vec}
	return nil
}

// RecordSuccess increments successes, folds impact into the running
// mean, and recomputes fitness (spec §4.9: "record_success(phage,
// impact) -> increment successes, update running mean impact").
func (l *Library) RecordSuccess(id string, impact float64, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.patterns[id]
	if !ok {
		return fmt.Errorf("viral: unknown pattern %q", id)
	}
	p.Successes++
	p.TotalImpact += impact
	p.LastUsed = at
	p.recomputeFitness()
	logging.Get(logging.CategoryLibrary).Debug("viral: %s recorded success (impact=%.3f, fitness=%.3f)", id, impact, p.Fitness)
	return nil
}

// RecordFailure increments failures and decays fitness (spec §4.9: "On
// failure -> increment failures; fitness decays").
func (l *Library) RecordFailure(id string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.patterns[id]
	if !ok {
		return fmt.Errorf("viral: unknown pattern %q", id)
	}
	p.Failures++
	p.LastUsed = at
	p.recomputeFitness()
	p.Fitness *= failureDecay
	logging.Get(logging.CategoryLibrary).Debug("viral: %s recorded failure (fitness=%.3f)", id, p.Fitness)
	return nil
}

// SuggestMutations returns the top-k patterns by
// cosine(context, pattern.embedding) x fitness, restricted to patterns
// whose fitness is at least minFitness (spec §4.9).
func (l *Library) SuggestMutations(contextEmbedding []float32, topK int, minFitness float64) ([]Suggestion, error) {
	l.mu.Lock()
	candidates := make([]*Pattern, 0, len(l.patterns))
	for _, p := range l.patterns {
		if p.Fitness >= minFitness {
			candidates = append(candidates, p)
		}
	}
	l.mu.Unlock()

	suggestions := make([]Suggestion, 0, len(candidates))
	for _, p := range candidates {
		similarity, err := embedding.CosineSimilarity(contextEmbedding, p.Embedding)
		if err != nil {
			continue // dimension mismatch; skip rather than fail the whole suggestion
		}
		suggestions = append(suggestions, Suggestion{Pattern: *p, Score: similarity * p.Fitness})
	}

	sort.Slice(suggestions, func(i, j int) bool { return suggestions[i].Score > suggestions[j].Score })
	if topK > 0 && len(suggestions) > topK {
		suggestions = suggestions[:topK]
	}
	return suggestions, nil
}

// Prune deletes patterns with fitness below minFitnessFloor that have
// not been used within staleAfter of now (spec §4.9: "deletes patterns
// with fitness < 0.05 and no recent use").
func (l *Library) Prune(now time.Time, staleAfter time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for id, p := range l.patterns {
		if p.Fitness < minFitnessFloor && now.Sub(p.LastUsed) > staleAfter {
			delete(l.patterns, id)
			removed++
		}
	}
	if removed > 0 {
		logging.Get(logging.CategoryLibrary).Info("viral: pruned %d stale pattern(s)", removed)
	}
	return removed
}

// Get returns a copy of a pattern by id.
func (l *Library) Get(id string) (Pattern, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.patterns[id]
	if !ok {
		return Pattern{}, false
	}
	return *p, true
}

// Count returns the number of tracked patterns.
func (l *Library) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.patterns)
}

type snapshotPayload struct {
	Patterns map[string]*Pattern `json:"patterns"`
}

// Save persists the current pattern set, mirroring
// internal/catalog.Registry.Save's snapshot idiom.
func (l *Library) Save() error {
	if l.persist == nil {
		return nil
	}
	l.mu.Lock()
	data, err := json.Marshal(snapshotPayload{Patterns: l.patterns})
	l.mu.Unlock()
	if err != nil {
		return fmt.Errorf("viral: failed to marshal snapshot: %w", err)
	}
	return l.persist.Save(data)
}

// Load restores the pattern set from the most recent snapshot.
func (l *Library) Load() error {
	if l.persist == nil {
		return nil
	}
	data, err := l.persist.Load()
	if err != nil {
		return fmt.Errorf("viral: failed to load snapshot: %w", err)
	}
	if data == nil {
		return nil
	}
	var payload snapshotPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("viral: failed to unmarshal snapshot: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.patterns = payload.Patterns
	if l.patterns == nil {
		l.patterns = make(map[string]*Pattern)
	}
	return nil
}
