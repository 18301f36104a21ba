// Package mutator implements the Mutator (spec §4.7) and the Mutation
// Schema Library it dispatches to (SPEC_FULL.md's expansion of §4.7):
// hot spots are scored by (cyclomatic complexity) x (entropy of
// branching tokens) x (size), and each hot function is offered to a
// registered, typed set of mutation schemas that each propose a
// candidate types.MutationVector. Only candidates with favorable
// Gibbs free energy survive.
//
// Grounded on the teacher's internal/autopoiesis/tool_templates.go
// registration idiom — a package-level map populated at init time —
// generalized from string templates to a {ID, Detect, Apply} capability
// interface per SPEC_FULL.md's own description, so mutator.go stays a
// thin scorer/dispatcher over a pluggable, independently testable
// schema set instead of one large switch.
package mutator

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"math"
	"sort"
	"strings"

	"thermocode/internal/logging"
	"thermocode/internal/types"
)

// HotSpot is a candidate mutation site: a function's byte span in its
// source file plus the score that ranked it.
type HotSpot struct {
	Symbol string
	Line   int
	Start  int
	End    int
	Score  float64
}

// Schema is one registered mutation capability. Detect inspects the
// structure and raw source to propose candidate HotSpots (refining
// SPEC_FULL.md's `Detect(CodeStructure) []HotSpot` with the source text
// every schema in practice needs to find its own textual pattern); Apply
// synthesizes the mutated source for one chosen HotSpot.
type Schema interface {
	ID() string
	Detect(cs types.CodeStructure, source string) []HotSpot
	Apply(source string, h HotSpot) (string, error)
}

// Mutator scores hot spots and dispatches them to registered schemas.
type Mutator struct {
	schemas map[string]Schema
}

// New creates a Mutator with the standard schema library registered.
func New() *Mutator {
	m := &Mutator{schemas: map[string]Schema{}}
	for _, s := range defaultSchemas() {
		m.Register(s)
	}
	return m
}

// Register adds or replaces a schema by ID.
func (m *Mutator) Register(s Schema) {
	m.schemas[s.ID()] = s
}

// funcSpan is one function declaration's byte span and branch-token
// count, gathered with go/ast the same way internal/validator gates
// real Go source: the Mutator needs a live parse tree to find function
// boundaries and count branching tokens precisely, not a textual guess.
type funcSpan struct {
	name      string
	line      int
	start     int
	end       int
	lines     int
	branches  int
	tokenFreq map[string]int
}

func parseFuncSpans(source string) ([]funcSpan, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "candidate.go", source, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("mutator: cannot parse source: %w", err)
	}

	var spans []funcSpan
	for _, decl := range file.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Body == nil {
			continue
		}
		span := funcSpan{
			name:      fd.Name.Name,
			line:      fset.Position(fd.Pos()).Line,
			start:     fset.Position(fd.Pos()).Offset,
			end:       fset.Position(fd.End()).Offset,
			tokenFreq: map[string]int{},
		}
		ast.Inspect(fd.Body, func(n ast.Node) bool {
			switch n.(type) {
			case *ast.IfStmt:
				span.branches++
				span.tokenFreq["if"]++
			case *ast.ForStmt, *ast.RangeStmt:
				span.branches++
				span.tokenFreq["for"]++
			case *ast.SwitchStmt, *ast.TypeSwitchStmt:
				span.branches++
				span.tokenFreq["switch"]++
			case *ast.CaseClause:
				span.tokenFreq["case"]++
			case *ast.BinaryExpr:
				be := n.(*ast.BinaryExpr)
				if be.Op == token.LAND || be.Op == token.LOR {
					span.tokenFreq["logical"]++
				}
			}
			return true
		})
		span.lines = strings.Count(source[span.start:span.end], "\n") + 1
		spans = append(spans, span)
	}
	return spans, nil
}

// branchEntropy computes the Shannon entropy (bits) of a function's
// branching-token-type distribution, per spec §4.7's "entropy of
// branching tokens". A function with one branch kind repeated has zero
// entropy; a mix of if/for/switch/logical has higher entropy.
func branchEntropy(freq map[string]int) float64 {
	total := 0
	for _, c := range freq {
		total += c
	}
	if total == 0 {
		return 0
	}
	entropy := 0.0
	for _, c := range freq {
		p := float64(c) / float64(total)
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// ScoreHotSpots ranks every function in source by (complexity) x
// (branch-token entropy) x (size), per spec §4.7, and returns the top n
// by score descending.
func ScoreHotSpots(source string, n int) ([]HotSpot, error) {
	spans, err := parseFuncSpans(source)
	if err != nil {
		return nil, err
	}

	hotspots := make([]HotSpot, 0, len(spans))
	for _, sp := range spans {
		complexity := 1 + sp.branches
		entropy := branchEntropy(sp.tokenFreq)
		score := float64(complexity) * entropy * float64(sp.lines)
		hotspots = append(hotspots, HotSpot{
			Symbol: sp.name, Line: sp.line, Start: sp.start, End: sp.end, Score: score,
		})
	}
	sort.Slice(hotspots, func(i, j int) bool { return hotspots[i].Score > hotspots[j].Score })
	if n > 0 && len(hotspots) > n {
		hotspots = hotspots[:n]
	}
	return hotspots, nil
}

// GenerateMutations scores source's hot spots, offers each to every
// registered schema, and keeps only the candidates with favorable
// Gibbs free energy at temperature (spec §4.7: ΔG < 0).
func (m *Mutator) GenerateMutations(cs types.CodeStructure, source string, temperature float64, topN int) ([]types.MutationVector, error) {
	hot, err := ScoreHotSpots(source, topN)
	if err != nil {
		return nil, err
	}
	hotBySymbol := map[string]HotSpot{}
	for _, h := range hot {
		hotBySymbol[h.Symbol] = h
	}

	log := logging.Get(logging.CategoryMutator)
	var out []types.MutationVector
	for _, schema := range m.schemas {
		candidates := schema.Detect(cs, source)
		for _, cand := range candidates {
			hotspot, isHot := hotBySymbol[cand.Symbol]
			if !isHot {
				continue
			}
			if cand.Start != 0 || cand.End != 0 {
				hotspot = cand // schema narrowed the span within the function
			}
			mutated, err := schema.Apply(source, hotspot)
			if err != nil {
				log.Debug("schema %s failed to apply to %s: %v", schema.ID(), cand.Symbol, err)
				continue
			}
			if mutated == source {
				continue
			}
			vector := buildVector(schema.ID(), source, mutated, hotspot)
			if vector.GibbsFreeEnergy(temperature) < 0 {
				out = append(out, vector)
			}
		}
	}
	return out, nil
}

// buildVector estimates enthalpy_delta as normalized added complexity
// and entropy_delta as added capability/expressiveness (spec §4.7),
// using line-count and distinct-branch-token-vocabulary deltas as the
// concrete, text-only proxies available at this stage (no second parse
// pass over the mutated candidate — Validate/Harness own that gate).
func buildVector(schemaID, original, mutated string, h HotSpot) types.MutationVector {
	origLines := strings.Count(original, "\n") + 1
	newLines := strings.Count(mutated, "\n") + 1
	enthalpyDelta := float64(newLines-origLines) / float64(origLines)

	origVocab := branchVocabulary(original[h.Start:min(h.End, len(original))])
	entropyDelta := float64(len(branchVocabulary(mutated)) - len(origVocab))

	return types.MutationVector{
		OriginalText:    original,
		MutatedText:     mutated,
		SchemaSignature: schemaID,
		Confidence:      0.7,
		EnthalpyDelta:   enthalpyDelta,
		EntropyDelta:    entropyDelta,
	}
}

func branchVocabulary(snippet string) map[string]bool {
	vocab := map[string]bool{}
	for _, tok := range []string{"if", "for", "switch", "&&", "||"} {
		if strings.Contains(snippet, tok) {
			vocab[tok] = true
		}
	}
	return vocab
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
