package viral

import (
	"testing"
	"time"
)

func TestRegister_CreatesPatternWithZeroFitness(t *testing.T) {
	l := New(nil)
	if err := l.Register("p1", "ExtractConstant", []float32{1, 0, 0}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	p, ok := l.Get("p1")
	if !ok {
		t.Fatal("expected pattern to be registered")
	}
	if p.Fitness != 0 {
		t.Errorf("expected zero fitness for a new pattern, got %.3f", p.Fitness)
	}
}

func TestRegister_RejectsEmptyID(t *testing.T) {
	l := New(nil)
	if err := l.Register("", "ExtractConstant", nil); err == nil {
		t.Fatal("expected an error for an empty id")
	}
}

func TestRecordSuccess_UpdatesRunningMeanAndFitness(t *testing.T) {
	l := New(nil)
	l.Register("p1", "ExtractConstant", []float32{1, 0, 0})
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if err := l.RecordSuccess("p1", 0.8, at); err != nil {
		t.Fatalf("RecordSuccess failed: %v", err)
	}
	if err := l.RecordSuccess("p1", 0.4, at); err != nil {
		t.Fatalf("RecordSuccess failed: %v", err)
	}

	p, _ := l.Get("p1")
	// successRate = 2/2 = 1.0; avgImpact = (0.8+0.4)/2 = 0.6; fitness = 0.6
	if p.Successes != 2 {
		t.Errorf("expected 2 successes, got %d", p.Successes)
	}
	const want = 0.6
	if diff := p.Fitness - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected fitness %.4f, got %.4f", want, p.Fitness)
	}
	if !p.LastUsed.Equal(at) {
		t.Errorf("expected LastUsed to be set to the caller-supplied timestamp")
	}
}

func TestRecordFailure_DecaysFitness(t *testing.T) {
	l := New(nil)
	l.Register("p1", "ExtractConstant", nil)
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.RecordSuccess("p1", 1.0, at)
	p, _ := l.Get("p1")
	fitnessBeforeFailure := p.Fitness // successRate=1, avgImpact=1 -> fitness=1

	if err := l.RecordFailure("p1", at.Add(time.Hour)); err != nil {
		t.Fatalf("RecordFailure failed: %v", err)
	}
	p, _ = l.Get("p1")
	// successRate recomputed first: 1/2 = 0.5; avgImpact unchanged = 1.0 ->
	// recomputeFitness gives 0.5, then decayed by 0.9 -> 0.45.
	const want = 0.45
	if diff := p.Fitness - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected decayed fitness %.4f, got %.4f (was %.4f before failure)", want, p.Fitness, fitnessBeforeFailure)
	}
}

func TestRecordSuccess_UnknownPatternErrors(t *testing.T) {
	l := New(nil)
	if err := l.RecordSuccess("nope", 1.0, time.Now()); err == nil {
		t.Fatal("expected an error for an unknown pattern id")
	}
}

func TestSuggestMutations_RanksByScoreAndFiltersMinFitness(t *testing.T) {
	l := New(nil)
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// p1: aligned with the query, high fitness.
	l.Register("p1", "ExtractConstant", []float32{1, 0})
	l.RecordSuccess("p1", 1.0, at) // fitness = 1.0

	// p2: aligned with the query, but below the min-fitness floor.
	l.Register("p2", "FlattenNesting", []float32{1, 0})
	l.RecordSuccess("p2", 1.0, at)
	l.RecordFailure("p2", at) // successRate=0.5, avgImpact=1 -> 0.5, decayed -> 0.45
	l.RecordFailure("p2", at) // successRate=1/3 avgImpact=1 -> 0.333, decayed*0.9 again

	// p3: orthogonal to the query, high fitness.
	l.Register("p3", "InlineSingleUse", []float32{0, 1})
	l.RecordSuccess("p3", 1.0, at)

	suggestions, err := l.SuggestMutations([]float32{1, 0}, 5, 0.5)
	if err != nil {
		t.Fatalf("SuggestMutations failed: %v", err)
	}
	if len(suggestions) != 1 {
		t.Fatalf("expected only p1 to clear the min-fitness floor, got %d: %+v", len(suggestions), suggestions)
	}
	if suggestions[0].Pattern.ID != "p1" {
		t.Errorf("expected p1 to be the sole suggestion, got %s", suggestions[0].Pattern.ID)
	}
}

func TestSuggestMutations_RespectsTopK(t *testing.T) {
	l := New(nil)
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, id := range []string{"a", "b", "c"} {
		l.Register(id, "ExtractConstant", []float32{1, 0})
		l.RecordSuccess(id, 1.0, at)
	}
	suggestions, err := l.SuggestMutations([]float32{1, 0}, 2, 0)
	if err != nil {
		t.Fatalf("SuggestMutations failed: %v", err)
	}
	if len(suggestions) != 2 {
		t.Fatalf("expected top-2 truncation, got %d", len(suggestions))
	}
}

func TestPrune_RemovesOnlyStaleLowFitnessPatterns(t *testing.T) {
	l := New(nil)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	l.Register("stale-low", "ExtractConstant", nil)
	l.RecordSuccess("stale-low", 0.01, base) // low fitness, used long ago

	l.Register("fresh-low", "FlattenNesting", nil)
	l.RecordSuccess("fresh-low", 0.01, base.Add(29*24*time.Hour)) // low fitness but recently used

	l.Register("stale-high", "InlineSingleUse", nil)
	l.RecordSuccess("stale-high", 1.0, base) // high fitness, used long ago

	now := base.Add(30 * 24 * time.Hour)
	removed := l.Prune(now, 7*24*time.Hour)
	if removed != 1 {
		t.Fatalf("expected exactly 1 pattern pruned, got %d", removed)
	}
	if _, ok := l.Get("stale-low"); ok {
		t.Error("expected stale-low to be pruned")
	}
	if _, ok := l.Get("fresh-low"); !ok {
		t.Error("expected fresh-low to survive (recently used)")
	}
	if _, ok := l.Get("stale-high"); !ok {
		t.Error("expected stale-high to survive (fitness above floor)")
	}
}

func TestOdds_IsMonotoneInFitness(t *testing.T) {
	low := Pattern{Fitness: 0.1}
	high := Pattern{Fitness: 0.9}
	if low.Odds() >= high.Odds() {
		t.Errorf("expected odds to increase with fitness: low=%.4f high=%.4f", low.Odds(), high.Odds())
	}
}

func TestSaveLoad_NilPersistenceIsNoOp(t *testing.T) {
	l := New(nil)
	l.Register("p1", "ExtractConstant", nil)
	if err := l.Save(); err != nil {
		t.Fatalf("Save with nil persistence should be a no-op, got %v", err)
	}
	if err := l.Load(); err != nil {
		t.Fatalf("Load with nil persistence should be a no-op, got %v", err)
	}
	if l.Count() != 1 {
		t.Error("expected no-op Load to leave existing patterns intact")
	}
}
