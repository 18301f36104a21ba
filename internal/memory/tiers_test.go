package memory

import (
	"context"
	"testing"
	"time"

	"thermocode/internal/config"
)

func TestSensoryBuffer_PruneExpiresOldItems(t *testing.T) {
	b := NewSensoryBuffer()
	b.Add(SensoryItem{Content: "old"})

	discarded := b.Prune(time.Now().Add(20 * time.Second))
	if discarded != 1 {
		t.Fatalf("expected 1 item discarded after TTL, got %d", discarded)
	}
}

func TestWorkingMemory_EvictsLowestActivationOverCapacity(t *testing.T) {
	w := NewWorkingMemory(2)
	w.Upsert(WorkingItem{ID: "a", Activation: 0.1})
	w.Upsert(WorkingItem{ID: "b", Activation: 0.9})
	w.Upsert(WorkingItem{ID: "c", Activation: 0.5})

	items := w.Items()
	if len(items) != 2 {
		t.Fatalf("expected capacity-bounded to 2 items, got %d", len(items))
	}
	for _, item := range items {
		if item.ID == "a" {
			t.Error("expected lowest-activation item 'a' to be evicted")
		}
	}
}

func TestWorkingMemory_DecayEvictsBelowThreshold(t *testing.T) {
	w := NewWorkingMemory(7)
	w.Upsert(WorkingItem{ID: "a", Activation: 0.02})

	evicted := w.Decay(time.Now().Add(5 * time.Minute))
	if len(evicted) != 1 || evicted[0] != "a" {
		t.Fatalf("expected item 'a' evicted by decay, got %v", evicted)
	}
}

func TestManager_AttendAdvancesAboveThreshold(t *testing.T) {
	m := NewManager(config.MemoryConfig{ResonanceThreshold: 1.0}, New(config.DefaultMemoryConfig(), nil, nil))
	m.Sensory.Add(SensoryItem{Content: "low signal", Salience: 0.1})
	m.Sensory.Add(SensoryItem{Content: "high signal", Salience: 0.6, Novelty: 0.3, Relevance: 0.3})

	advanced := m.Attend()
	if advanced != 1 {
		t.Fatalf("expected exactly 1 item to clear the attention threshold, got %d", advanced)
	}
	items := m.Working.Items()
	if len(items) != 1 || items[0].Content != "high signal" {
		t.Fatalf("expected 'high signal' in working memory, got %+v", items)
	}
}

func TestManager_ConsolidateTickMovesWorkingToLongTerm(t *testing.T) {
	ctx := context.Background()
	longTerm := New(config.DefaultMemoryConfig(), nil, nil)
	m := NewManager(config.DefaultMemoryConfig(), longTerm)

	m.Working.Upsert(WorkingItem{ID: "w1", Content: "a working thought", Activation: 1.0})
	m.ConsolidateTick(ctx)

	if longTerm.Len() != 1 {
		t.Fatalf("expected working item consolidated into long-term, got %d patterns", longTerm.Len())
	}
}

func TestManager_RecallPromotesToWorking(t *testing.T) {
	ctx := context.Background()
	emb := &fakeEmbedder{vectors: map[string][]float32{"dark mode": {1, 0, 0}}}
	longTerm := New(config.DefaultMemoryConfig(), emb, nil)
	longTerm.Store(ctx, "p1", "dark mode", []string{"ui"}, nil)

	m := NewManager(config.DefaultMemoryConfig(), longTerm)
	results, err := m.Recall(ctx, "dark mode", 5)
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 recalled pattern, got %d", len(results))
	}
	items := m.Working.Items()
	if len(items) != 1 || items[0].ID != "p1" {
		t.Fatalf("expected recalled pattern promoted into working memory, got %+v", items)
	}
}
