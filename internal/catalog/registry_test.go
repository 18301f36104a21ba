package catalog

import (
	"testing"

	"thermocode/internal/config"
	"thermocode/internal/types"
)

func TestRegister_IdempotentOnID(t *testing.T) {
	r := New(config.DefaultCatalogConfig(), nil)

	if err := r.Register(types.CatalogEntry{ID: "agent-1", EntityType: "agent", Name: "v1"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	first, _ := r.Get("agent-1")

	if err := r.Register(types.CatalogEntry{ID: "agent-1", EntityType: "agent", Name: "v2"}); err != nil {
		t.Fatalf("Register (re-register): %v", err)
	}
	second, _ := r.Get("agent-1")

	if r.Count() != 1 {
		t.Fatalf("expected re-registration to overwrite, not duplicate, got count=%d", r.Count())
	}
	if second.Name != "v2" {
		t.Errorf("expected fields overwritten on re-register, got name=%s", second.Name)
	}
	if !second.UpdatedAt.After(first.UpdatedAt) && second.UpdatedAt != first.UpdatedAt {
		t.Errorf("expected UpdatedAt to advance on re-register")
	}
	if second.CreatedAt != first.CreatedAt {
		t.Errorf("expected CreatedAt preserved across re-register")
	}
}

func TestRegister_RejectsEmptyID(t *testing.T) {
	r := New(config.DefaultCatalogConfig(), nil)
	if err := r.Register(types.CatalogEntry{Name: "no-id"}); err == nil {
		t.Fatal("expected error registering entry with empty id")
	}
}

func TestRegister_DefaultsStatusActive(t *testing.T) {
	r := New(config.DefaultCatalogConfig(), nil)
	r.Register(types.CatalogEntry{ID: "a"})
	e, _ := r.Get("a")
	if e.Status != types.EntityActive {
		t.Errorf("expected default status ACTIVE, got %s", e.Status)
	}
}

func TestUpdateUsage_EMAConverges(t *testing.T) {
	r := New(config.DefaultCatalogConfig(), nil)
	r.Register(types.CatalogEntry{ID: "a"})

	for i := 0; i < 200; i++ {
		if err := r.UpdateUsage("a", true, ""); err != nil {
			t.Fatalf("UpdateUsage: %v", err)
		}
	}
	e, _ := r.Get("a")
	if e.SuccessRate < 0.99 {
		t.Errorf("expected success_rate to converge near 1.0 after 200 successes, got %f", e.SuccessRate)
	}
	if e.UsageCount != 200 {
		t.Errorf("expected usage_count=200, got %d", e.UsageCount)
	}

	if err := r.UpdateUsage("a", false, "boom"); err != nil {
		t.Fatalf("UpdateUsage: %v", err)
	}
	e, _ = r.Get("a")
	if e.SuccessRate > 0.95 {
		t.Errorf("expected a single failure to pull success_rate down via EMA, got %f", e.SuccessRate)
	}
}

func TestUpdateUsage_UnknownID(t *testing.T) {
	r := New(config.DefaultCatalogConfig(), nil)
	if err := r.UpdateUsage("missing", true, ""); err == nil {
		t.Fatal("expected error updating usage for unregistered id")
	}
}

func TestScan_FiltersByTypeStatusAuthorKeyword(t *testing.T) {
	r := New(config.DefaultCatalogConfig(), nil)
	r.Register(types.CatalogEntry{ID: "a", EntityType: "agent", Author: "alice", Keywords: []string{"parse", "ast"}, Status: types.EntityActive})
	r.Register(types.CatalogEntry{ID: "b", EntityType: "adapter", Author: "bob", Keywords: []string{"cache"}, Status: types.EntityDeprecated})

	byType := r.Scan(ScanFilter{EntityType: "agent"})
	if len(byType) != 1 || byType[0].ID != "a" {
		t.Fatalf("expected type filter to return only 'a', got %+v", byType)
	}

	byStatus := r.Scan(ScanFilter{Status: types.EntityDeprecated})
	if len(byStatus) != 1 || byStatus[0].ID != "b" {
		t.Fatalf("expected status filter to return only 'b', got %+v", byStatus)
	}

	byAuthor := r.Scan(ScanFilter{Author: "alice"})
	if len(byAuthor) != 1 || byAuthor[0].ID != "a" {
		t.Fatalf("expected author filter to return only 'a', got %+v", byAuthor)
	}

	byKeyword := r.Scan(ScanFilter{Keyword: "AST"})
	if len(byKeyword) != 1 || byKeyword[0].ID != "a" {
		t.Fatalf("expected case-insensitive keyword filter to return only 'a', got %+v", byKeyword)
	}
}

func TestFindAdapter_MatchesActiveOnly(t *testing.T) {
	r := New(config.DefaultCatalogConfig(), nil)
	r.Register(types.CatalogEntry{ID: "a", InputType: "StringT", OutputType: "IntT", Status: types.EntityRetired})
	r.Register(types.CatalogEntry{ID: "b", InputType: "StringT", OutputType: "IntT", Status: types.EntityActive})

	e, ok := r.FindAdapter("StringT", "IntT")
	if !ok || e.ID != "b" {
		t.Fatalf("expected FindAdapter to skip retired entry and return 'b', got %+v ok=%v", e, ok)
	}
}

func TestSuccessors_UsesInjectedSubtyping(t *testing.T) {
	r := New(config.DefaultCatalogConfig(), nil)
	r.Register(types.CatalogEntry{ID: "a", OutputType: "Foo"})
	r.Register(types.CatalogEntry{ID: "b", InputType: "Foo"})
	r.Register(types.CatalogEntry{ID: "c", InputType: "Bar"})

	always := func(x, y string) bool { return x == y }
	succ := r.Successors("a", always)
	if len(succ) != 1 || succ[0] != "b" {
		t.Fatalf("expected successors of 'a' to be ['b'], got %v", succ)
	}
}

func TestSuccessorGraph_ImplementsAgentGraph(t *testing.T) {
	r := New(config.DefaultCatalogConfig(), nil)
	r.Register(types.CatalogEntry{ID: "a", OutputType: "Foo"})
	r.Register(types.CatalogEntry{ID: "b", InputType: "Foo"})

	g := SuccessorGraph{Reg: r, IsSubtype: func(x, y string) bool { return x == y }}
	succ := g.Successors("a")
	if len(succ) != 1 || succ[0] != "b" {
		t.Fatalf("expected SuccessorGraph.Successors('a') = ['b'], got %v", succ)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	t.Run("nil persistence is a no-op", func(t *testing.T) {
		r := New(config.DefaultCatalogConfig(), nil)
		r.Register(types.CatalogEntry{ID: "a"})
		if err := r.Save(); err != nil {
			t.Fatalf("Save with nil persistence should be a no-op, got %v", err)
		}
		if err := r.Load(); err != nil {
			t.Fatalf("Load with nil persistence should be a no-op, got %v", err)
		}
		if r.Count() != 1 {
			t.Errorf("expected no-op Load to leave existing entries intact")
		}
	})
}
