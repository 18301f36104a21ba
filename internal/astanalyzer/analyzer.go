// Package astanalyzer implements the AST Analyzer (spec §4.4): it parses
// a Go source file with tree-sitter, extracts its structural shape
// (structs, functions, methods, imports, package doc), flags the four
// structural smells the spec names, and proposes AST-derived hypotheses
// from those signals.
package astanalyzer

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"thermocode/internal/logging"
	"thermocode/internal/types"
)

const (
	largeClassMethodThreshold = 10
	longFunctionLineThreshold = 50
	deepParamListThreshold    = 5
	largeModuleLineThreshold  = 400
)

// Analyzer wraps a tree-sitter parser configured for Go.
type Analyzer struct {
	parser *sitter.Parser
}

// New creates an Analyzer with a fresh tree-sitter Go parser.
func New() *Analyzer {
	p := sitter.NewParser()
	p.SetLanguage(golang.GetLanguage())
	return &Analyzer{parser: p}
}

// Close releases the underlying tree-sitter parser.
func (a *Analyzer) Close() {
	a.parser.Close()
}

// Analyze parses content (the text of path) and extracts its CodeStructure.
func (a *Analyzer) Analyze(ctx context.Context, module types.Module, path string, content []byte) (types.CodeStructure, error) {
	tree, err := a.parser.ParseCtx(ctx, nil, content)
	if err != nil {
		logging.Get(logging.CategoryAST).Error("parse failed for %s: %v", path, err)
		return types.CodeStructure{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	defer tree.Close()

	w := &walker{content: content}
	w.walk(tree.RootNode())

	cs := types.CodeStructure{
		Module:    module,
		Classes:   w.classesWithMethods(),
		Functions: w.functions,
		Imports:   w.imports,
		Docstring: w.packageDoc,
		LineCount: strings.Count(string(content), "\n") + 1,
	}
	cs.Complexity = computeComplexity(cs, w.functionLines, w.classMethodCount)

	logging.Get(logging.CategoryAST).Debug(
		"analyzed %s: %d classes, %d functions, %d lines", path, len(cs.Classes), len(cs.Functions), cs.LineCount)
	return cs, nil
}

// computeComplexity derives the spec §4.4 structural smells from the
// extracted structure plus the walker's line/method counts (which aren't
// carried on ClassInfo/FunctionInfo themselves, spec's types are
// "ordered, hashable, immutable" summaries, not raw AST spans).
func computeComplexity(cs types.CodeStructure, functionLines, classMethodCount map[string]int) types.ComplexityHints {
	hints := types.ComplexityHints{IsLargeModule: cs.LineCount > largeModuleLineThreshold}

	for name, count := range classMethodCount {
		if count > largeClassMethodThreshold {
			hints.LargeClasses = append(hints.LargeClasses, name)
		}
	}
	cyclomatic := 0
	for _, fn := range cs.Functions {
		lines := functionLines[fn.Name]
		if lines > longFunctionLineThreshold {
			hints.LongFunctions = append(hints.LongFunctions, fn.Name)
		}
		if len(fn.Args) > deepParamListThreshold {
			hints.DeepParamLists = append(hints.DeepParamLists, fn.Name)
		}
		cyclomatic += 1 + lines/20 // rough branch-density proxy, not a true McCabe count
	}
	hints.CyclomaticTotal = cyclomatic
	return hints
}

// ProposeHypotheses derives up to n AST-derived hypotheses from the
// structural smells found (spec §4.4: "proposes up to N targeted
// hypotheses from these signals").
func ProposeHypotheses(cs types.CodeStructure, n int) []types.Hypothesis {
	var out []types.Hypothesis
	add := func(statement, symbol string) bool {
		if len(out) >= n {
			return false
		}
		out = append(out, types.Hypothesis{Statement: statement, Source: types.HypothesisFromAST, Symbol: symbol})
		return true
	}

	for _, c := range cs.Complexity.LargeClasses {
		if !add(fmt.Sprintf("Split %s into smaller, single-responsibility types", c), c) {
			return out
		}
	}
	for _, f := range cs.Complexity.LongFunctions {
		if !add(fmt.Sprintf("Extract helper functions out of %s to shorten it", f), f) {
			return out
		}
	}
	for _, f := range cs.Complexity.DeepParamLists {
		if !add(fmt.Sprintf("Introduce an options struct for %s's parameters", f), f) {
			return out
		}
	}
	if cs.Complexity.IsLargeModule {
		add(fmt.Sprintf("Split %s into smaller files by responsibility", cs.Module.Name), "")
	}
	return out
}
