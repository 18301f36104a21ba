package astanalyzer

import (
	"context"
	"strings"
	"testing"

	"thermocode/internal/types"
)

const sampleSource = `package sample

import "context"

// Sample is a demonstration type.
type Sample struct {
	Name string
}

func (s *Sample) Greet(ctx context.Context, name string) string {
	return "hello " + name
}

func add(a, b int) int {
	return a + b
}
`

func TestAnalyze_ExtractsStructsFunctionsAndImports(t *testing.T) {
	a := New()
	defer a.Close()

	cs, err := a.Analyze(context.Background(), types.Module{Name: "sample"}, "sample.go", []byte(sampleSource))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if len(cs.Classes) != 1 || cs.Classes[0].Name != "Sample" {
		t.Fatalf("expected one struct 'Sample', got %+v", cs.Classes)
	}
	if len(cs.Classes[0].Methods) != 1 || cs.Classes[0].Methods[0] != "Greet" {
		t.Errorf("expected Sample to have method 'Greet', got %+v", cs.Classes[0].Methods)
	}

	foundAdd := false
	for _, fn := range cs.Functions {
		if fn.Name == "add" {
			foundAdd = true
			if len(fn.Args) != 2 {
				t.Errorf("expected add() to have 2 args, got %d", len(fn.Args))
			}
		}
	}
	if !foundAdd {
		t.Errorf("expected free function 'add' to be extracted, got %+v", cs.Functions)
	}

	if cs.LineCount != strings.Count(sampleSource, "\n")+1 {
		t.Errorf("expected LineCount to match source line count")
	}
}

func TestComputeComplexity_FlagsSmells(t *testing.T) {
	cs := types.CodeStructure{
		LineCount: 500,
		Functions: []types.FunctionInfo{
			{Name: "tooManyArgs", Args: []string{"a", "b", "c", "d", "e", "f"}},
		},
	}
	classMethodCount := map[string]int{"Big": 11}
	functionLines := map[string]int{"tooManyArgs": 60}

	hints := computeComplexity(cs, functionLines, classMethodCount)

	if !hints.IsLargeModule {
		t.Error("expected 500-line module flagged as large")
	}
	if len(hints.LargeClasses) != 1 || hints.LargeClasses[0] != "Big" {
		t.Errorf("expected 'Big' flagged as large class, got %v", hints.LargeClasses)
	}
	if len(hints.LongFunctions) != 1 || hints.LongFunctions[0] != "tooManyArgs" {
		t.Errorf("expected 'tooManyArgs' flagged as long function, got %v", hints.LongFunctions)
	}
	if len(hints.DeepParamLists) != 1 || hints.DeepParamLists[0] != "tooManyArgs" {
		t.Errorf("expected 'tooManyArgs' flagged for deep param list, got %v", hints.DeepParamLists)
	}
}

func TestProposeHypotheses_RespectsLimit(t *testing.T) {
	cs := types.CodeStructure{
		Module: types.Module{Name: "big"},
		Complexity: types.ComplexityHints{
			LargeClasses:   []string{"A", "B"},
			LongFunctions:  []string{"f1", "f2"},
			DeepParamLists: []string{"g1"},
			IsLargeModule:  true,
		},
	}

	got := ProposeHypotheses(cs, 2)
	if len(got) != 2 {
		t.Fatalf("expected exactly 2 hypotheses when limited to n=2, got %d", len(got))
	}
	for _, h := range got {
		if h.Source != types.HypothesisFromAST {
			t.Errorf("expected all hypotheses tagged ast_derived, got %s", h.Source)
		}
	}
}

func TestProposeHypotheses_EmptyWhenNoSmells(t *testing.T) {
	cs := types.CodeStructure{Module: types.Module{Name: "clean"}}
	got := ProposeHypotheses(cs, 5)
	if len(got) != 0 {
		t.Errorf("expected no hypotheses for a clean module, got %+v", got)
	}
}
