package safety

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"

	"thermocode/internal/config"
)

// Generator produces one improved candidate from the current text of a
// meta-target file (a file inside the evolution infrastructure itself).
type Generator func(ctx context.Context, currentText string) (string, error)

// Tester runs the full multi-layer gate (syntax/type/test) against a
// candidate and reports whether it passed.
type Tester func(ctx context.Context, candidateText string) error

// ConvergenceResult is SelfEvolve's outcome.
type ConvergenceResult struct {
	FinalText  string
	Iterations int
	Converged  bool
	Similarity float64
}

const defaultConvergenceThreshold = 0.95

// SelfEvolve runs the fixed-point loop spec §4.11 describes for
// meta-targets: generate one candidate, test it in sandbox, measure
// similarity to the previous accepted text, and stop once similarity
// clears the convergence threshold or the iteration budget runs out. A
// candidate that fails testing is discarded without advancing
// currentText, but the iteration still counts against the budget so a
// generator that never produces a passing candidate cannot loop
// forever.
func SelfEvolve(ctx context.Context, cfg config.SafetyConfig, sandbox *Sandbox, initialText string, generate Generator, test Tester) (ConvergenceResult, error) {
	threshold := defaultConvergenceThreshold
	current := initialText
	maxIter := cfg.MaxSelfEvolutionIterations
	if maxIter <= 0 {
		maxIter = 1
	}

	for i := 0; i < maxIter; i++ {
		candidate, err := generate(ctx, current)
		if err != nil {
			return ConvergenceResult{FinalText: current, Iterations: i + 1}, fmt.Errorf("safety: self-evolution generator failed on iteration %d: %w", i+1, err)
		}

		if test != nil {
			runErr := error(nil)
			if sandbox != nil {
				runErr = sandbox.Run(ctx, func(sbCtx context.Context, _ string) error {
					return test(sbCtx, candidate)
				})
			} else {
				runErr = test(ctx, candidate)
			}
			if runErr != nil {
				continue // discard; iteration still consumed
			}
		}

		similarity := Similarity(current, candidate)
		current = candidate
		if similarity >= threshold {
			return ConvergenceResult{FinalText: current, Iterations: i + 1, Converged: true, Similarity: similarity}, nil
		}
	}

	return ConvergenceResult{FinalText: current, Iterations: maxIter, Converged: false}, nil
}

// Similarity is max(text_sim, structural_sim) between old and new
// source (spec §4.11).
func Similarity(oldText, newText string) float64 {
	ts := textSimilarity(oldText, newText)
	ss := structuralSimilarity(oldText, newText)
	if ss > ts {
		return ss
	}
	return ts
}

// textSimilarity is a longest-common-subsequence ratio over non-empty,
// whitespace-stripped lines (spec §4.11): 2x the LCS length over the
// total line count of both sides, the same normalization difflib's
// SequenceMatcher.ratio() uses for a non-greedy matching-block ratio.
func textSimilarity(oldText, newText string) float64 {
	a := nonEmptyTrimmedLines(oldText)
	b := nonEmptyTrimmedLines(newText)
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	lcs := lcsLength(a, b)
	return 2 * float64(lcs) / float64(len(a)+len(b))
}

func nonEmptyTrimmedLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func lcsLength(a, b []string) int {
	dp := make([][]int, len(a)+1)
	for i := range dp {
		dp[i] = make([]int, len(b)+1)
	}
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				dp[i][j] = dp[i-1][j-1] + 1
			} else if dp[i-1][j] >= dp[i][j-1] {
				dp[i][j] = dp[i-1][j]
			} else {
				dp[i][j] = dp[i][j-1]
			}
		}
	}
	return dp[len(a)][len(b)]
}

// structuralSimilarity is the multiset (Sorensen-Dice) agreement of
// function, type, and import signatures extracted from the AST (spec
// §4.11's "class/function/import signatures"; Go has no classes, so
// type declarations stand in for them).
func structuralSimilarity(oldText, newText string) float64 {
	a := structuralSignatures(oldText)
	b := structuralSignatures(newText)
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	countsA := multiset(a)
	countsB := multiset(b)
	shared := 0
	for sig, ca := range countsA {
		if cb := countsB[sig]; cb < ca {
			shared += cb
		} else {
			shared += ca
		}
	}
	return 2 * float64(shared) / float64(len(a)+len(b))
}

func structuralSignatures(source string) []string {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "", source, parser.AllErrors)
	if err != nil {
		return nil
	}
	var sigs []string
	for _, imp := range file.Imports {
		sigs = append(sigs, "import:"+imp.Path.Value)
	}
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			sigs = append(sigs, "func:"+d.Name.Name+":"+fmt.Sprintf("%d", d.Type.Params.NumFields()))
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			for _, spec := range d.Specs {
				if ts, ok := spec.(*ast.TypeSpec); ok {
					sigs = append(sigs, "type:"+ts.Name.Name)
				}
			}
		}
	}
	return sigs
}

func multiset(items []string) map[string]int {
	m := make(map[string]int, len(items))
	for _, it := range items {
		m[it]++
	}
	return m
}
