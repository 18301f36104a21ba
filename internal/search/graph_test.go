package search

import (
	"testing"

	"thermocode/internal/catalog"
	"thermocode/internal/config"
	"thermocode/internal/lattice"
	"thermocode/internal/types"
)

func TestGraphBrain_ScoresDirectAndLineageNeighbors(t *testing.T) {
	reg := catalog.New(config.DefaultCatalogConfig(), nil)
	reg.Register(types.CatalogEntry{
		ID:            "seed",
		Name:          "seed",
		Relationships: map[string][]string{"depends_on": {"direct"}},
	})
	reg.Register(types.CatalogEntry{
		ID:            "direct",
		Name:          "direct",
		Relationships: map[string][]string{"depends_on": {"grandchild"}},
	})
	reg.Register(types.CatalogEntry{ID: "grandchild", Name: "grandchild"})
	reg.Register(types.CatalogEntry{ID: "unrelated", Name: "unrelated"})

	lat := lattice.New(nil)
	brain := GraphBrain{Reg: reg, Lat: lat}

	got := brain.Search("seed", reg.All())
	scores := make(map[string]float64)
	for _, s := range got {
		scores[s.ID] = s.Score
	}

	if scores["direct"] != 1.0 {
		t.Errorf("expected direct relationship score 1.0, got %f", scores["direct"])
	}
	if scores["grandchild"] != 0.3 {
		t.Errorf("expected two-hop lineage score 0.3, got %f", scores["grandchild"])
	}
	if _, present := scores["unrelated"]; present {
		t.Error("expected unrelated entry to be excluded")
	}
}

func TestGraphBrain_UnknownSeedYieldsNoResults(t *testing.T) {
	reg := catalog.New(config.DefaultCatalogConfig(), nil)
	reg.Register(types.CatalogEntry{ID: "a", Name: "a"})
	brain := GraphBrain{Reg: reg, Lat: lattice.New(nil)}

	got := brain.Search("does-not-exist", reg.All())
	if got != nil {
		t.Errorf("expected nil results for unresolved seed, got %v", got)
	}
}

func TestGraphBrain_LatticeCompatibleSuccessors(t *testing.T) {
	reg := catalog.New(config.DefaultCatalogConfig(), nil)
	reg.Register(types.CatalogEntry{ID: "producer", Name: "producer", OutputType: "Foo"})
	reg.Register(types.CatalogEntry{ID: "consumer", Name: "consumer", InputType: "Foo"})

	lat := lattice.New(nil)
	brain := GraphBrain{Reg: reg, Lat: lat}

	got := brain.Search("producer", reg.All())
	if len(got) != 1 || got[0].ID != "consumer" || got[0].Score != 0.6 {
		t.Fatalf("expected lattice-compatible successor 'consumer' scored 0.6, got %+v", got)
	}
}
