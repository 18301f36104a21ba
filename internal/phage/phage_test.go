package phage

import (
	"testing"

	"thermocode/internal/types"
)

func TestSpawnChild_AppendsParentToLineage(t *testing.T) {
	parent := types.Phage{ID: "p1", Lineage: []string{"p0"}}
	child, err := SpawnChild(nil, parent, "p2", types.MutationVector{}, 0.1)
	if err != nil {
		t.Fatalf("SpawnChild failed: %v", err)
	}
	want := []string{"p0", "p1"}
	if len(child.Lineage) != len(want) || child.Lineage[0] != want[0] || child.Lineage[1] != want[1] {
		t.Errorf("expected lineage %v, got %v", want, child.Lineage)
	}
	if child.Status != types.PhageProposed {
		t.Errorf("expected a new child to start PROPOSED, got %s", child.Status)
	}
}

func TestSpawnChild_RejectsEmptyID(t *testing.T) {
	if _, err := SpawnChild(nil, types.Phage{ID: "p1"}, "", types.MutationVector{}, 0); err == nil {
		t.Fatal("expected an error for an empty child id")
	}
}

func TestSpawnChild_DoesNotMutateParentLineageSlice(t *testing.T) {
	parent := types.Phage{ID: "p1", Lineage: []string{"p0"}}
	if _, err := SpawnChild(nil, parent, "p2", types.MutationVector{}, 0); err != nil {
		t.Fatal(err)
	}
	if len(parent.Lineage) != 1 || parent.Lineage[0] != "p0" {
		t.Errorf("expected parent's own lineage to be untouched, got %v", parent.Lineage)
	}
}

func TestAnalyzeLineage_ReturnsFullChainIncludingSelf(t *testing.T) {
	p := types.Phage{ID: "p2", Lineage: []string{"p0", "p1"}}
	chain := AnalyzeLineage(p)
	want := []string{"p0", "p1", "p2"}
	for i, id := range want {
		if chain[i] != id {
			t.Fatalf("expected chain %v, got %v", want, chain)
		}
	}
}

func TestLineageFitness_AveragesAcrossChain(t *testing.T) {
	p := types.Phage{ID: "p2", Lineage: []string{"p0", "p1"}}
	fitness := map[string]float64{"p0": 0.9, "p1": 0.6, "p2": 0.3}
	got := LineageFitness(p, fitness)
	want := (0.9 + 0.6 + 0.3) / 3
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected lineage fitness %.4f, got %.4f", want, got)
	}
}

func TestLineageFitness_MissingEntriesCountAsZero(t *testing.T) {
	p := types.Phage{ID: "p1", Lineage: []string{"p0"}}
	got := LineageFitness(p, map[string]float64{"p0": 1.0})
	want := 0.5 // (1.0 + 0) / 2
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected lineage fitness %.4f, got %.4f", want, got)
	}
}
