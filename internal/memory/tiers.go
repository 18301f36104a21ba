package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"thermocode/internal/config"
	"thermocode/internal/logging"
)

// sensoryTTL bounds how long an unattended item survives in the sensory
// buffer before it is discarded unseen (spec §4.3: "~10s, no compression").
const sensoryTTL = 10 * time.Second

// decayPerMinute is the working tier's activation half-life knob: each
// minute elapsed multiplies activation by this factor.
const decayPerMinute = 0.85

// SensoryItem is raw, uncompressed input awaiting attention.
type SensoryItem struct {
	Content   string
	Embedding []float32
	Salience  float64
	Novelty   float64
	Relevance float64 // relevance-to-focus, computed at attention time
	Timestamp time.Time
}

// attentionScore is salience + a novelty bonus + relevance-to-focus
// (spec §4.3: "Sensory -> Working via attention").
func (s SensoryItem) attentionScore() float64 {
	return s.Salience + s.Novelty + s.Relevance
}

// SensoryBuffer is the bounded, TTL-limited first tier.
type SensoryBuffer struct {
	mu    sync.Mutex
	items []SensoryItem
}

// NewSensoryBuffer creates an empty sensory buffer.
func NewSensoryBuffer() *SensoryBuffer {
	return &SensoryBuffer{}
}

// Add appends an item, stamping it with the current time.
func (b *SensoryBuffer) Add(item SensoryItem) {
	item.Timestamp = time.Now()
	b.mu.Lock()
	b.items = append(b.items, item)
	b.mu.Unlock()
}

// Prune discards items older than the sensory TTL; this is the
// "accursed share" (GLOSSARY) that never reaches working memory.
func (b *SensoryBuffer) Prune(now time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	kept := b.items[:0]
	discarded := 0
	for _, item := range b.items {
		if now.Sub(item.Timestamp) > sensoryTTL {
			discarded++
			continue
		}
		kept = append(kept, item)
	}
	b.items = kept
	return discarded
}

// Drain removes and returns all current items (used by Attend).
func (b *SensoryBuffer) Drain() []SensoryItem {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.items
	b.items = nil
	return out
}

// WorkingItem is an active, uncompressed pattern held for fast resonance,
// decaying toward eviction if it is not refreshed by further access.
type WorkingItem struct {
	ID         string
	Content    string
	Embedding  []float32
	Concepts   []string
	Activation float64
	UpdatedAt  time.Time
}

// WorkingMemory is the capacity-bounded (7+-2) second tier.
type WorkingMemory struct {
	mu       sync.Mutex
	items    map[string]*WorkingItem
	capacity int
}

// NewWorkingMemory creates a working-memory tier bounded to capacity items
// (spec §4.3 default is 7+-2; callers typically pass 7).
func NewWorkingMemory(capacity int) *WorkingMemory {
	if capacity <= 0 {
		capacity = 7
	}
	return &WorkingMemory{items: make(map[string]*WorkingItem), capacity: capacity}
}

// Upsert adds or refreshes an item at the given activation, high-priority
// callers (e.g. Recall) pass a high activation value directly.
func (w *WorkingMemory) Upsert(item WorkingItem) {
	item.UpdatedAt = time.Now()
	w.mu.Lock()
	defer w.mu.Unlock()
	w.items[item.ID] = &item
	w.evictOverCapacityLocked()
}

// Decay applies per-minute activation decay to every item and evicts any
// item whose activation has fallen below 0.01.
func (w *WorkingMemory) Decay(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var evicted []string
	for id, item := range w.items {
		minutes := now.Sub(item.UpdatedAt).Minutes()
		if minutes <= 0 {
			continue
		}
		item.Activation *= math.Pow(decayPerMinute, minutes)
		item.UpdatedAt = now
		if item.Activation < 0.01 {
			delete(w.items, id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}

func (w *WorkingMemory) evictOverCapacityLocked() {
	if len(w.items) <= w.capacity {
		return
	}
	type ranked struct {
		id         string
		activation float64
	}
	var all []ranked
	for id, item := range w.items {
		all = append(all, ranked{id: id, activation: item.Activation})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].activation < all[j].activation })
	for i := 0; i < len(all)-w.capacity; i++ {
		delete(w.items, all[i].id)
	}
}

// Items returns a snapshot of current working-memory contents.
func (w *WorkingMemory) Items() []WorkingItem {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]WorkingItem, 0, len(w.items))
	for _, item := range w.items {
		out = append(out, *item)
	}
	return out
}

// Manager wires the Sensory, Working, and Long-term tiers together per
// spec §4.3's movement rules.
type Manager struct {
	Sensory  *SensoryBuffer
	Working  *WorkingMemory
	LongTerm *HolographicMemory

	attentionThreshold float64
	attentionTopK      int
}

// NewManager builds the three-tier manager from config.
func NewManager(cfg config.MemoryConfig, longTerm *HolographicMemory) *Manager {
	return &Manager{
		Sensory:            NewSensoryBuffer(),
		Working:            NewWorkingMemory(7),
		LongTerm:           longTerm,
		attentionThreshold: cfg.ResonanceThreshold,
		attentionTopK:      7,
	}
}

// Attend drains the sensory buffer, scores every item, and advances the
// top-k items above the attention threshold into working memory.
func (m *Manager) Attend() int {
	items := m.Sensory.Drain()
	if len(items) == 0 {
		return 0
	}

	sort.Slice(items, func(i, j int) bool { return items[i].attentionScore() > items[j].attentionScore() })

	advanced := 0
	for i, item := range items {
		if i >= m.attentionTopK {
			break
		}
		if item.attentionScore() < m.attentionThreshold {
			continue
		}
		m.Working.Upsert(WorkingItem{
			ID:         contentID(item.Content),
			Content:    item.Content,
			Embedding:  item.Embedding,
			Activation: item.attentionScore(),
		})
		advanced++
	}
	logging.Get(logging.CategoryMemory).Debug("attention pass: %d/%d sensory items advanced to working", advanced, len(items))
	return advanced
}

// contentID derives a working-memory id from raw content; truncated since
// working items are keyed for dedup, not long-term identity.
func contentID(content string) string {
	if len(content) > 64 {
		return content[:64]
	}
	return content
}

// ConsolidateTick moves every item currently in working memory into the
// long-term holographic store (spec §4.3: "Working -> Long-term via
// consolidation at configurable intervals"), then runs the long-term
// tier's own hypnagogic consolidation pass.
func (m *Manager) ConsolidateTick(ctx context.Context) {
	items := m.Working.Items()
	for _, item := range items {
		if err := m.LongTerm.Store(ctx, item.ID, item.Content, item.Concepts, item.Embedding); err != nil {
			logging.Get(logging.CategoryMemory).Warn("consolidation failed for %s: %v", item.ID, err)
		}
	}
	m.LongTerm.Consolidate()
	logging.Get(logging.CategoryMemory).Debug("consolidated %d working items to long-term", len(items))
}

// Recall loads long-term matches for query back into working memory at
// high priority (spec §4.3: "Long-term -> Working via recall(query)").
func (m *Manager) Recall(ctx context.Context, query string, limit int) ([]RetrievalResult, error) {
	results, err := m.LongTerm.Retrieve(ctx, query, limit, 0)
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		m.Working.Upsert(WorkingItem{
			ID:         r.Pattern.ID,
			Content:    r.Pattern.Content,
			Embedding:  r.Pattern.Embedding,
			Concepts:   r.Pattern.Concepts,
			Activation: 1.0, // high priority: recalled matches enter "hot"
		})
	}
	return results, nil
}
