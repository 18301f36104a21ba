package prompt

import (
	"strings"
	"testing"

	"thermocode/internal/config"
	"thermocode/internal/types"
)

func baseContext() Context {
	return Context{
		Module:     types.Module{Name: "widgets"},
		Hypothesis: types.Hypothesis{Statement: "extract a helper", Symbol: "DoThing"},
		Structure: types.CodeStructure{
			Functions: []types.FunctionInfo{{Name: "DoThing", Args: []string{"a", "b"}}},
		},
	}
}

func TestBuild_LevelsAreCumulative(t *testing.T) {
	b := New(config.DefaultContextWindowConfig())
	ctx := baseContext()
	ctx.Catalog = []types.CatalogEntry{{Name: "parser", InputType: "string", OutputType: "AST"}}

	minimal, err := b.Build(LevelMinimal, ctx)
	if err != nil {
		t.Fatalf("Build(minimal): %v", err)
	}
	standard, err := b.Build(LevelStandard, ctx)
	if err != nil {
		t.Fatalf("Build(standard): %v", err)
	}
	exhaustive, err := b.Build(LevelExhaustive, ctx)
	if err != nil {
		t.Fatalf("Build(exhaustive): %v", err)
	}

	if !strings.Contains(minimal, "extract a helper") {
		t.Error("expected hypothesis statement present at every level")
	}
	if strings.Contains(minimal, "DoThing(a, b)") {
		t.Error("expected minimal level to omit function signatures")
	}
	if !strings.Contains(standard, "DoThing(a, b)") {
		t.Error("expected standard level to include function signatures")
	}
	if strings.Contains(standard, "Known Agent Signatures") {
		t.Error("expected standard level to omit API reference")
	}
	if !strings.Contains(exhaustive, "parser(string) -> AST") {
		t.Error("expected exhaustive level to include catalog API reference")
	}
	if len(exhaustive) <= len(standard) || len(standard) <= len(minimal) {
		t.Error("expected prompt size to grow strictly with level")
	}
}

func TestBuild_AllLevelsIncludeOutputContract(t *testing.T) {
	b := New(config.DefaultContextWindowConfig())
	for _, level := range []Level{LevelMinimal, LevelStandard, LevelExhaustive} {
		text, err := b.Build(level, baseContext())
		if err != nil {
			t.Fatalf("Build(%s): %v", level, err)
		}
		if !strings.Contains(text, "metadata JSON block") {
			t.Errorf("expected output format contract at level %s", level)
		}
	}
}

func TestBuild_ReturnsBudgetExceeded(t *testing.T) {
	b := New(config.ContextWindowConfig{MaxTokens: 1})
	_, err := b.Build(LevelMinimal, baseContext())
	if err == nil {
		t.Fatal("expected ErrBudgetExceeded for a 1-token budget")
	}
	var budgetErr *ErrBudgetExceeded
	if !errorsAs(err, &budgetErr) {
		t.Fatalf("expected *ErrBudgetExceeded, got %T: %v", err, err)
	}
}

func TestLevel_Cost(t *testing.T) {
	if LevelMinimal.Cost() != 1 || LevelStandard.Cost() != 3 || LevelExhaustive.Cost() != 10 {
		t.Errorf("expected cost multipliers 1/3/10, got %d/%d/%d",
			LevelMinimal.Cost(), LevelStandard.Cost(), LevelExhaustive.Cost())
	}
}

// errorsAs avoids importing "errors" solely for a single As call in tests
// that don't otherwise need it.
func errorsAs(err error, target **ErrBudgetExceeded) bool {
	if e, ok := err.(*ErrBudgetExceeded); ok {
		*target = e
		return true
	}
	return false
}
