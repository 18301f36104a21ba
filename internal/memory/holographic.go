// Package memory implements the Holographic Memory (spec §4.3): a
// content-addressed store where all patterns are superimposed in the same
// space and retrieval is resonance (cosine similarity), not key lookup.
// It also implements the three-tier Sensory/Working/Long-term layering
// (spec §4.3, tier movement) in tiers.go.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"thermocode/internal/config"
	"thermocode/internal/embedding"
	"thermocode/internal/logging"
	"thermocode/internal/store"
	"thermocode/internal/types"
)

// compressionOrder is FULL..MINIMAL, lowest resolution last.
var compressionOrder = []types.CompressionLevel{
	types.CompressionFull,
	types.CompressionHigh,
	types.CompressionMedium,
	types.CompressionLow,
	types.CompressionMinimal,
}

func compressionIndex(c types.CompressionLevel) int {
	for i, v := range compressionOrder {
		if v == c {
			return i
		}
	}
	return 0
}

// RetrievalResult is one resonance match: the pattern, its similarity to
// the query, and the resolution at which it is returned.
type RetrievalResult struct {
	Pattern    types.MemoryPattern
	Similarity float64
	Resolution float64
}

// HolographicMemory is the long-term tier: the holographic store itself.
type HolographicMemory struct {
	mu       sync.RWMutex
	patterns map[string]*types.MemoryPattern
	embedder embedding.EmbeddingEngine
	snapshot *store.CatalogStore // optional; nil disables persistence
	cfg      config.MemoryConfig
}

// New creates an empty long-term store. snapshot may be nil, in which case
// patterns never survive a restart (useful for tests).
func New(cfg config.MemoryConfig, embedder embedding.EmbeddingEngine, snapshot *store.CatalogStore) *HolographicMemory {
	return &HolographicMemory{
		patterns: make(map[string]*types.MemoryPattern),
		embedder: embedder,
		snapshot: snapshot,
		cfg:      cfg,
	}
}

// Store inserts a pattern at FULL compression. If emb is nil and an
// embedder is configured, content is embedded on the way in.
func (h *HolographicMemory) Store(ctx context.Context, id, content string, concepts []string, emb []float32) error {
	if emb == nil && h.embedder != nil {
		var err error
		emb, err = h.embedder.Embed(ctx, content)
		if err != nil {
			logging.Get(logging.CategoryMemory).Warn("failed to embed pattern %s: %v", id, err)
		}
	}

	now := time.Now()
	h.mu.Lock()
	h.patterns[id] = &types.MemoryPattern{
		ID:           id,
		Content:      content,
		Embedding:    emb,
		Timestamp:    now,
		LastAccessed: now,
		AccessCount:  0,
		Compression:  types.CompressionFull,
		Strength:     1.0,
		Concepts:     concepts,
	}
	h.mu.Unlock()

	logging.Get(logging.CategoryMemory).Debug("stored pattern %s (%d concepts)", id, len(concepts))
	return nil
}

// Retrieve runs cosine similarity against every pattern and returns the
// top `limit` ordered by similarity. Every access bumps last_accessed,
// access_count, and strength (capped at 10). When threshold is 0,
// retrieval never hard-misses: the best available matches are returned
// regardless of how low their similarity is, degraded to their current
// compression resolution rather than omitted.
func (h *HolographicMemory) Retrieve(ctx context.Context, query string, limit int, threshold float64) ([]RetrievalResult, error) {
	var queryEmb []float32
	if h.embedder != nil {
		var err error
		queryEmb, err = h.embedder.Embed(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("failed to embed query: %w", err)
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	type scored struct {
		id  string
		sim float64
	}
	var candidates []scored
	for id, p := range h.patterns {
		sim := 0.0
		if queryEmb != nil && p.Embedding != nil {
			sim, _ = embedding.CosineSimilarity(queryEmb, p.Embedding)
		}
		if threshold > 0 && sim < threshold {
			continue
		}
		candidates = append(candidates, scored{id: id, sim: sim})
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].sim > candidates[j].sim })
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	now := time.Now()
	results := make([]RetrievalResult, 0, len(candidates))
	for _, c := range candidates {
		p := h.patterns[c.id]
		p.LastAccessed = now
		p.AccessCount++
		p.Strength = math.Min(p.Strength*1.1, 10)
		results = append(results, RetrievalResult{
			Pattern:    *p,
			Similarity: c.sim,
			Resolution: p.Compression.Resolution(),
		})
	}
	return results, nil
}

// Promote shifts a pattern's compression up (toward FULL) by `levels`.
func (h *HolographicMemory) Promote(id string, levels int) error {
	return h.shift(id, -levels)
}

// Demote shifts a pattern's compression down (toward MINIMAL) by `levels`.
func (h *HolographicMemory) Demote(id string, levels int) error {
	return h.shift(id, levels)
}

func (h *HolographicMemory) shift(id string, delta int) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	p, ok := h.patterns[id]
	if !ok {
		return fmt.Errorf("pattern %q not found", id)
	}
	idx := compressionIndex(p.Compression) + delta
	if idx < 0 {
		idx = 0
	}
	if idx >= len(compressionOrder) {
		idx = len(compressionOrder) - 1
	}
	p.Compression = compressionOrder[idx]
	return nil
}

// Temperature is the recency/frequency-weighted "heat" of a pattern,
// spec §3: temperature = 0.6*recency + 0.4*log-frequency. recency decays
// exponentially over 24h since last access; log-frequency saturates
// toward 1 as access_count grows.
func Temperature(p types.MemoryPattern, now time.Time) float64 {
	hoursSinceAccess := now.Sub(p.LastAccessed).Hours()
	recency := math.Exp(-hoursSinceAccess / 24)
	logFreq := math.Log2(1 + float64(p.AccessCount))
	freqScore := logFreq / (1 + logFreq)
	return 0.6*recency + 0.4*freqScore
}

// Retention is spec §3's forgetting curve: retention = exp(-hours_since_access / (24*strength)).
func Retention(p types.MemoryPattern, now time.Time) float64 {
	strength := p.Strength
	if strength < 0.1 {
		strength = 0.1
	}
	hoursSinceAccess := now.Sub(p.LastAccessed).Hours()
	return math.Exp(-hoursSinceAccess / (24 * strength))
}

// Consolidate is the "hypnagogic" pass (spec §4.3): demote patterns
// colder than 0.3, promote patterns hotter than 0.7, and cluster patterns
// that resonate at cosine >= 0.95, merging concept sets into the hottest
// member of each cluster and discarding the rest.
func (h *HolographicMemory) Consolidate() {
	now := time.Now()
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, p := range h.patterns {
		temp := Temperature(*p, now)
		if temp < 0.3 {
			idx := compressionIndex(p.Compression) + 1
			if idx < len(compressionOrder) {
				p.Compression = compressionOrder[idx]
			}
		} else if temp > 0.7 {
			idx := compressionIndex(p.Compression) - 1
			if idx >= 0 {
				p.Compression = compressionOrder[idx]
			}
		}
		_ = id
	}

	h.clusterAndMergeLocked(now)
	logging.Get(logging.CategoryMemory).Debug("consolidation pass complete: %d patterns", len(h.patterns))
}

func (h *HolographicMemory) clusterAndMergeLocked(now time.Time) {
	ids := make([]string, 0, len(h.patterns))
	for id := range h.patterns {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	merged := make(map[string]bool)
	for i := 0; i < len(ids); i++ {
		a := ids[i]
		if merged[a] {
			continue
		}
		pa, ok := h.patterns[a]
		if !ok || pa.Embedding == nil {
			continue
		}
		cluster := []string{a}
		for j := i + 1; j < len(ids); j++ {
			b := ids[j]
			if merged[b] {
				continue
			}
			pb, ok := h.patterns[b]
			if !ok || pb.Embedding == nil {
				continue
			}
			sim, err := embedding.CosineSimilarity(pa.Embedding, pb.Embedding)
			if err == nil && sim >= 0.95 {
				cluster = append(cluster, b)
			}
		}
		if len(cluster) < 2 {
			continue
		}

		hottest := a
		hottestTemp := Temperature(*pa, now)
		for _, id := range cluster[1:] {
			t := Temperature(*h.patterns[id], now)
			if t > hottestTemp {
				hottest = id
				hottestTemp = t
			}
		}

		concepts := make(map[string]bool)
		for _, id := range cluster {
			for _, c := range h.patterns[id].Concepts {
				concepts[c] = true
			}
		}
		var merged_concepts []string
		for c := range concepts {
			merged_concepts = append(merged_concepts, c)
		}
		sort.Strings(merged_concepts)
		h.patterns[hottest].Concepts = merged_concepts

		for _, id := range cluster {
			if id == hottest {
				continue
			}
			delete(h.patterns, id)
			merged[id] = true
		}
	}
}

// snapshotPayload is the JSON shape persisted via CatalogStore.
type snapshotPayload struct {
	Patterns map[string]*types.MemoryPattern `json:"patterns"`
}

// SaveSnapshot persists the entire long-term store as one append-only
// catalog-store snapshot (spec §3 ownership: memory is owned exclusively
// by this store).
func (h *HolographicMemory) SaveSnapshot() error {
	if h.snapshot == nil {
		return nil
	}
	h.mu.RLock()
	payload := snapshotPayload{Patterns: h.patterns}
	data, err := json.Marshal(payload)
	h.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal memory snapshot: %w", err)
	}
	return h.snapshot.Save(data)
}

// LoadSnapshot restores the long-term store from the most recent snapshot.
func (h *HolographicMemory) LoadSnapshot() error {
	if h.snapshot == nil {
		return nil
	}
	data, err := h.snapshot.Load()
	if err != nil {
		return fmt.Errorf("failed to load memory snapshot: %w", err)
	}
	if data == nil {
		return nil
	}
	var payload snapshotPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal memory snapshot: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.patterns = payload.Patterns
	if h.patterns == nil {
		h.patterns = make(map[string]*types.MemoryPattern)
	}
	return nil
}

// Len returns the number of patterns currently held.
func (h *HolographicMemory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.patterns)
}

// Get returns a single pattern by id without updating its access stats.
func (h *HolographicMemory) Get(id string) (types.MemoryPattern, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, ok := h.patterns[id]
	if !ok {
		return types.MemoryPattern{}, false
	}
	return *p, true
}
