package search

import (
	"context"
	"testing"

	"thermocode/internal/catalog"
	"thermocode/internal/config"
	"thermocode/internal/lattice"
	"thermocode/internal/types"
	"go.uber.org/goleak"
)

// TestMain verifies Search's three errgroup.Go workers (fusion.go) exit
// before g.Wait() returns, for every test in this package.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestClassify(t *testing.T) {
	cases := map[string]QueryClass{
		"json_parser":            ClassExactName,
		"what depends on parser": ClassRelationship,
		"find the input type":    ClassTypeQuery,
		"something that sorts a list of numbers quickly": ClassSemanticIntent,
	}
	for q, want := range cases {
		if got := Classify(q); got != want {
			t.Errorf("Classify(%q) = %s, want %s", q, got, want)
		}
	}
}

func TestEngine_Search_ExactNameWeightsKeywordHeaviest(t *testing.T) {
	reg := catalog.New(config.DefaultCatalogConfig(), nil)
	reg.Register(types.CatalogEntry{ID: "p1", Name: "sorter", Embedding: []float32{1, 0, 0}})
	reg.Register(types.CatalogEntry{ID: "p2", Name: "other", Embedding: []float32{1, 0, 0}})

	emb := &stubEmbedder{vectors: map[string][]float32{"sorter": {0, 0, 1}}}
	engine := NewEngine(SemanticBrain{Engine: emb}, GraphBrain{Reg: reg, Lat: lattice.New(nil)}, config.DefaultCatalogConfig())

	resp, err := engine.Search(context.Background(), "sorter", reg.All())
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.Class != ClassExactName {
		t.Fatalf("expected EXACT_NAME classification, got %s", resp.Class)
	}
	if len(resp.Results) == 0 || resp.Results[0].ID != "p1" {
		t.Fatalf("expected exact-name match 'p1' to rank first, got %+v", resp.Results)
	}
}

func TestEngine_Search_RespectsMaxResults(t *testing.T) {
	cfg := config.DefaultCatalogConfig()
	cfg.MaxResults = 1

	reg := catalog.New(cfg, nil)
	reg.Register(types.CatalogEntry{ID: "a", Name: "widget-one", Keywords: []string{"widget"}})
	reg.Register(types.CatalogEntry{ID: "b", Name: "widget-two", Keywords: []string{"widget"}})

	engine := NewEngine(NewSemanticBrain(nil), GraphBrain{Reg: reg, Lat: lattice.New(nil)}, cfg)
	resp, err := engine.Search(context.Background(), "widget", reg.All())
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("expected MaxResults=1 to bound fused output, got %d", len(resp.Results))
	}
}

func TestFindSerendipity_SurfacesSingleBrainHitOutsideTopK(t *testing.T) {
	fused := []Result{{ID: "a", Score: 1.0}}
	kw := []Scored{{ID: "a", Score: 1.0}}
	sm := []Scored{{ID: "hidden-gem", Score: 0.95}}
	var gr []Scored

	got := findSerendipity(fused, 1, kw, sm, gr, 0.15)
	if len(got) != 1 || got[0].ID != "hidden-gem" {
		t.Fatalf("expected 'hidden-gem' surfaced as serendipity, got %+v", got)
	}
}

func TestFindSerendipity_DisabledWhenWeightZero(t *testing.T) {
	sm := []Scored{{ID: "x", Score: 0.9}}
	got := findSerendipity(nil, 5, nil, sm, nil, 0)
	if got != nil {
		t.Errorf("expected no serendipity results when weight is 0, got %v", got)
	}
}
