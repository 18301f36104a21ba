package safety

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"thermocode/internal/config"
)

func TestTextSimilarity_IdenticalTextIsOne(t *testing.T) {
	src := "package sample\n\nfunc A() {}\n"
	if got := textSimilarity(src, src); got != 1.0 {
		t.Errorf("expected identical text to score 1.0, got %.4f", got)
	}
}

func TestTextSimilarity_PartialOverlap(t *testing.T) {
	// 3 shared lines out of 4 total on each side (package, func A, closing
	// brace) with 1 differing line each -> LCS = 3, ratio = 2*3/(4+4) = 0.75
	a := "package sample\nfunc A() {\nx := 1\n}\n"
	b := "package sample\nfunc A() {\nx := 2\n}\n"
	got := textSimilarity(a, b)
	want := 0.75
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected text similarity %.4f, got %.4f", want, got)
	}
}

func TestStructuralSimilarity_SameSignaturesDifferentBodies(t *testing.T) {
	a := "package sample\n\nfunc Add(a, b int) int {\n\treturn a + b\n}\n"
	b := "package sample\n\nfunc Add(a, b int) int {\n\tsum := a + b\n\treturn sum\n}\n"
	got := structuralSimilarity(a, b)
	if got != 1.0 {
		t.Errorf("expected identical function signatures to score structural similarity 1.0, got %.4f", got)
	}
}

func TestStructuralSimilarity_DifferentArityDiffers(t *testing.T) {
	a := "package sample\n\nfunc Add(a, b int) int {\n\treturn a + b\n}\n"
	b := "package sample\n\nfunc Add(a int) int {\n\treturn a\n}\n"
	got := structuralSimilarity(a, b)
	if got >= 1.0 {
		t.Errorf("expected a changed arity to reduce structural similarity below 1.0, got %.4f", got)
	}
}

func TestSimilarity_IsMaxOfBothMeasures(t *testing.T) {
	// identical structure, differing only in a comment (text differs,
	// structure doesn't) -> similarity should equal the (higher)
	// structural score, not the lower text score.
	a := "package sample\n\nfunc Add(a, b int) int {\n\treturn a + b\n}\n"
	b := "package sample\n\n// adds two ints\nfunc Add(a, b int) int {\n\treturn a + b\n}\n"
	got := Similarity(a, b)
	ss := structuralSimilarity(a, b)
	if got != ss {
		t.Errorf("expected Similarity to take the structural score %.4f, got %.4f", ss, got)
	}
}

func TestSelfEvolve_StopsOnConvergence(t *testing.T) {
	initial := "package sample\n\nfunc Add(a, b int) int {\n\treturn a + b\n}\n"
	// Generator returns near-identical text (a trailing comment) so
	// similarity clears the default 0.95 threshold on the first pass.
	gen := func(ctx context.Context, current string) (string, error) {
		return current + "// noop\n", nil
	}
	cfg := config.SafetyConfig{MaxSelfEvolutionIterations: 5}
	result, err := SelfEvolve(context.Background(), cfg, nil, initial, gen, nil)
	if err != nil {
		t.Fatalf("SelfEvolve failed: %v", err)
	}
	if !result.Converged {
		t.Fatalf("expected convergence within the iteration budget, got %+v", result)
	}
	if result.Iterations != 1 {
		t.Errorf("expected convergence on the first iteration, got %d", result.Iterations)
	}
}

func TestSelfEvolve_ExhaustsBudgetWithoutConverging(t *testing.T) {
	initial := "package sample\n\nfunc A() {}\n"
	// Generator rewrites to a distinct, ever-growing function set every
	// call, so consecutive candidates never land close enough to
	// converge and the loop always consumes the full budget.
	call := 0
	gen := func(ctx context.Context, current string) (string, error) {
		call++
		names := "package sample\n\n"
		for i := 0; i <= call; i++ {
			names += fmt.Sprintf("func F%d() {}\n", i)
		}
		return names, nil
	}
	cfg := config.SafetyConfig{MaxSelfEvolutionIterations: 3}
	result, err := SelfEvolve(context.Background(), cfg, nil, initial, gen, nil)
	if err != nil {
		t.Fatalf("SelfEvolve failed: %v", err)
	}
	if result.Converged {
		t.Fatalf("expected no convergence, got %+v", result)
	}
	if result.Iterations != 3 {
		t.Errorf("expected the full iteration budget to be consumed, got %d", result.Iterations)
	}
}

func TestSelfEvolve_DiscardsFailingCandidateButConsumesIteration(t *testing.T) {
	initial := "package sample\n\nfunc A() {}\n"
	calls := 0
	gen := func(ctx context.Context, current string) (string, error) {
		calls++
		return current + "// attempt\n", nil
	}
	test := func(ctx context.Context, candidate string) error {
		return errors.New("always fails")
	}
	cfg := config.SafetyConfig{MaxSelfEvolutionIterations: 2}
	result, err := SelfEvolve(context.Background(), cfg, nil, initial, gen, test)
	if err != nil {
		t.Fatalf("SelfEvolve failed: %v", err)
	}
	if result.FinalText != initial {
		t.Errorf("expected a failing candidate to never be accepted, got %q", result.FinalText)
	}
	if calls != 2 {
		t.Errorf("expected generate to be called once per iteration (2), got %d", calls)
	}
}

func TestSelfEvolve_GeneratorErrorStopsEarly(t *testing.T) {
	initial := "package sample\n"
	gen := func(ctx context.Context, current string) (string, error) {
		return "", errors.New("boom")
	}
	cfg := config.SafetyConfig{MaxSelfEvolutionIterations: 5}
	_, err := SelfEvolve(context.Background(), cfg, nil, initial, gen, nil)
	if err == nil {
		t.Fatal("expected a generator error to propagate")
	}
}
