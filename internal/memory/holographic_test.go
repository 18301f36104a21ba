package memory

import (
	"context"
	"testing"
	"time"

	"thermocode/internal/config"
	"thermocode/internal/types"
)

type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 0, 0}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = f.Embed(ctx, t)
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int { return 3 }
func (f *fakeEmbedder) Name() string    { return "fake" }

func newTestMemory() (*HolographicMemory, *fakeEmbedder) {
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"dark mode":             {1, 0, 0},
		"prefers dark mode":     {0.99, 0.1, 0},
		"likes pizza":           {0, 1, 0},
	}}
	return New(config.DefaultMemoryConfig(), emb, nil), emb
}

func TestStoreRetrieve_Resonance(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory()

	if err := m.Store(ctx, "p1", "prefers dark mode", []string{"preference", "ui"}, nil); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := m.Store(ctx, "p2", "likes pizza", []string{"food"}, nil); err != nil {
		t.Fatalf("Store: %v", err)
	}

	results, err := m.Retrieve(ctx, "dark mode", 5, 0.5)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(results) != 1 || results[0].Pattern.ID != "p1" {
		t.Fatalf("expected p1 as the only resonant match, got %+v", results)
	}
	if results[0].Pattern.AccessCount != 1 {
		t.Errorf("expected access_count incremented to 1, got %d", results[0].Pattern.AccessCount)
	}
}

func TestRetrieve_NeverHardMissesAtZeroThreshold(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory()
	m.Store(ctx, "p1", "likes pizza", nil, nil)

	results, err := m.Retrieve(ctx, "dark mode", 5, 0)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected a degraded match at threshold=0, got %d results", len(results))
	}
}

func TestRetrieve_StrengthCapsAtTen(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory()
	m.Store(ctx, "p1", "prefers dark mode", nil, nil)

	for i := 0; i < 60; i++ {
		if _, err := m.Retrieve(ctx, "dark mode", 1, 0); err != nil {
			t.Fatalf("Retrieve: %v", err)
		}
	}
	p, _ := m.Get("p1")
	if p.Strength > 10 {
		t.Errorf("expected strength capped at 10, got %f", p.Strength)
	}
}

func TestPromoteDemote(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory()
	m.Store(ctx, "p1", "prefers dark mode", nil, nil)

	if err := m.Demote("p1", 2); err != nil {
		t.Fatalf("Demote: %v", err)
	}
	p, _ := m.Get("p1")
	if p.Compression != types.CompressionMedium {
		t.Errorf("expected MEDIUM after demoting FULL by 2, got %s", p.Compression)
	}

	if err := m.Promote("p1", 1); err != nil {
		t.Fatalf("Promote: %v", err)
	}
	p, _ = m.Get("p1")
	if p.Compression != types.CompressionHigh {
		t.Errorf("expected HIGH after promoting MEDIUM by 1, got %s", p.Compression)
	}
}

func TestTemperatureMonotonicity(t *testing.T) {
	now := time.Now()
	fresh := types.MemoryPattern{LastAccessed: now, AccessCount: 10}
	stale := types.MemoryPattern{LastAccessed: now.Add(-48 * time.Hour), AccessCount: 10}

	if Temperature(fresh, now) <= Temperature(stale, now) {
		t.Error("a recently accessed pattern should be hotter than a stale one")
	}
}

func TestConsolidate_DemotesColdPatterns(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory()
	m.Store(ctx, "p1", "likes pizza", nil, nil)

	h, _ := m.Get("p1")
	h.LastAccessed = time.Now().Add(-30 * 24 * time.Hour)
	m.mu.Lock()
	m.patterns["p1"] = &h
	m.mu.Unlock()

	m.Consolidate()

	p, _ := m.Get("p1")
	if p.Compression == types.CompressionFull {
		t.Error("expected a cold pattern to be demoted from FULL during consolidation")
	}
}

func TestConsolidate_MergesNearDuplicates(t *testing.T) {
	ctx := context.Background()
	m, emb := newTestMemory()
	emb.vectors["a"] = []float32{1, 0, 0}
	emb.vectors["b"] = []float32{0.999, 0.001, 0}

	m.Store(ctx, "a", "a", []string{"x"}, nil)
	m.Store(ctx, "b", "b", []string{"y"}, nil)

	before := m.Len()
	m.Consolidate()
	after := m.Len()

	if after >= before {
		t.Errorf("expected near-duplicate patterns to merge, before=%d after=%d", before, after)
	}
}
