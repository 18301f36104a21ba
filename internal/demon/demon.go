// Package demon implements the Teleological Demon (spec §4.8): a
// five-layer admissibility filter applied to each candidate Phage's
// mutation before any expensive validation, short-circuiting on first
// failure, plus a final, un-short-circuited parasitic-pattern detector.
//
// Grounded on internal/mangle's pre-registered admissible/parasitic/
// rejected_at_layer predicates (internal/mangle/grammar.go) — every
// layer verdict is pushed to the shared fact engine the way the
// teacher's mangle integration records structural facts, so downstream
// Datalog queries (and internal/lattice's own consults) see a consistent
// trace of what was rejected and why.
package demon

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"

	"thermocode/internal/embedding"
	"thermocode/internal/lattice"
	"thermocode/internal/logging"
	"thermocode/internal/mangle"
	"thermocode/internal/types"
)

// Layer identifies one of the five admissibility layers, in evaluation order.
type Layer int

const (
	LayerSyntactic Layer = iota + 1
	LayerSemanticStability
	LayerTeleologicalAlignment
	LayerThermodynamic
	LayerEconomic
)

func (l Layer) String() string {
	switch l {
	case LayerSyntactic:
		return "syntactic"
	case LayerSemanticStability:
		return "semantic_stability"
	case LayerTeleologicalAlignment:
		return "teleological_alignment"
	case LayerThermodynamic:
		return "thermodynamic"
	case LayerEconomic:
		return "economic"
	default:
		return "unknown"
	}
}

// LayerStats tracks per-layer counts and rejection reasons (spec §4.8:
// "Statistics tracked per layer: counts, rejection rates, reasons.").
type LayerStats struct {
	Evaluated int
	Rejected  int
	Reasons   map[string]int
}

func (s *LayerStats) RejectionRate() float64 {
	if s.Evaluated == 0 {
		return 0
	}
	return float64(s.Rejected) / float64(s.Evaluated)
}

func (s *LayerStats) record(rejected bool, reason string) {
	s.Evaluated++
	if rejected {
		s.Rejected++
		if s.Reasons == nil {
			s.Reasons = map[string]int{}
		}
		s.Reasons[reason]++
	}
}

// Verdict is the outcome of running one mutation through all five layers
// (and, if it survives them, the parasitic-pattern detector).
type Verdict struct {
	Admitted     bool
	LayerReached int // lowest-numbered layer that rejected it, or 5 if it passed all layers and the parasitic check
	Reasons      []string
}

// EconomicInputs carries the Economic layer's market-style inputs (spec
// §4.8: "library odds x expected payoff >= stake").
type EconomicInputs struct {
	LibraryOdds    float64
	ExpectedPayoff float64
	Stake          float64
}

// Demon evaluates candidate mutations against the five-layer filter.
type Demon struct {
	facts       *mangle.Engine
	lattice     *lattice.Lattice
	embedder    embedding.EmbeddingEngine
	temperature float64
	stats       map[Layer]*LayerStats
}

// New creates a Demon. embedder may be nil, in which case the
// Teleological-alignment layer admits unconditionally (there is nothing
// to compare against without an embedder).
func New(facts *mangle.Engine, lat *lattice.Lattice, embedder embedding.EmbeddingEngine, temperature float64) *Demon {
	stats := map[Layer]*LayerStats{}
	for _, l := range []Layer{LayerSyntactic, LayerSemanticStability, LayerTeleologicalAlignment, LayerThermodynamic, LayerEconomic} {
		stats[l] = &LayerStats{}
	}
	return &Demon{facts: facts, lattice: lat, embedder: embedder, temperature: temperature, stats: stats}
}

// Stats returns the accumulated per-layer statistics.
func (d *Demon) Stats() map[Layer]*LayerStats { return d.stats }

// Evaluate runs mutationID's mutation through all five layers in order,
// short-circuiting on the first rejection, then (only if admitted)
// through the parasitic-pattern detector.
func (d *Demon) Evaluate(ctx context.Context, mutationID string, mutation types.MutationVector, intent types.Intent, econ EconomicInputs) Verdict {
	log := logging.Get(logging.CategoryDemon)

	if ok, reason := d.syntactic(mutation); !ok {
		return d.reject(mutationID, LayerSyntactic, reason)
	}
	if ok, reason := d.semanticStability(mutation); !ok {
		return d.reject(mutationID, LayerSemanticStability, reason)
	}
	if ok, reason := d.teleologicalAlignment(ctx, mutation, intent); !ok {
		return d.reject(mutationID, LayerTeleologicalAlignment, reason)
	}
	if ok, reason := d.thermodynamic(mutation); !ok {
		return d.reject(mutationID, LayerThermodynamic, reason)
	}
	if ok, reason := d.economic(econ); !ok {
		return d.reject(mutationID, LayerEconomic, reason)
	}

	d.recordPassed()

	if reason, isParasitic := DetectParasitic(mutation.OriginalText, mutation.MutatedText); isParasitic {
		d.pushFact("parasitic", mutationID, reason)
		log.Info("demon: %s rejected as parasitic: %s", mutationID, reason)
		return Verdict{Admitted: false, LayerReached: int(LayerEconomic), Reasons: []string{"parasitic: " + reason}}
	}

	d.pushFact("admissible", mutationID, "all")
	log.Debug("demon: %s admitted through all five layers", mutationID)
	return Verdict{Admitted: true, LayerReached: int(LayerEconomic), Reasons: nil}
}

// recordPassed marks every layer as evaluated-and-not-rejected; called
// once a candidate has cleared all five layers.
func (d *Demon) recordPassed() {
	for _, l := range []Layer{LayerSyntactic, LayerSemanticStability, LayerTeleologicalAlignment, LayerThermodynamic, LayerEconomic} {
		d.stats[l].record(false, "")
	}
}

func (d *Demon) reject(mutationID string, layer Layer, reason string) Verdict {
	for l := LayerSyntactic; l < layer; l++ {
		d.stats[l].record(false, "")
	}
	d.stats[layer].record(true, reason)
	d.pushFact("rejected_at_layer", mutationID, layer.String(), reason)
	logging.Get(logging.CategoryDemon).Info("demon: %s rejected at layer %s: %s", mutationID, layer, reason)
	return Verdict{Admitted: false, LayerReached: int(layer), Reasons: []string{reason}}
}

func (d *Demon) pushFact(predicate string, args ...interface{}) {
	if d.facts == nil {
		return
	}
	if err := d.facts.AddFact(predicate, args...); err != nil {
		logging.Get(logging.CategoryDemon).Error("demon: failed to push %s fact: %v", predicate, err)
	}
}

// --- Layer 1: Syntactic --------------------------------------------------

func (d *Demon) syntactic(mutation types.MutationVector) (bool, string) {
	fset := token.NewFileSet()
	if _, err := parser.ParseFile(fset, "candidate.go", mutation.MutatedText, parser.AllErrors); err != nil {
		return false, fmt.Sprintf("parse error: %v", err)
	}
	return true, ""
}

// --- Layer 2: Semantic stability ------------------------------------------

// funcSignature is a function's arity and declared parameter/return type
// text, used to check structural isomorphism across the mutation.
type funcSignature struct {
	paramTypes  []string
	resultTypes []string
}

func functionSignatures(source string) (map[string]funcSignature, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "candidate.go", source, 0)
	if err != nil {
		return nil, err
	}
	sigs := map[string]funcSignature{}
	for _, decl := range file.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}
		sigs[fd.Name.Name] = funcSignature{
			paramTypes:  fieldTypeNames(fd.Type.Params),
			resultTypes: fieldTypeNames(fd.Type.Results),
		}
	}
	return sigs, nil
}

func fieldTypeNames(fl *ast.FieldList) []string {
	if fl == nil {
		return nil
	}
	var names []string
	for _, f := range fl.List {
		count := len(f.Names)
		if count == 0 {
			count = 1
		}
		for i := 0; i < count; i++ {
			names = append(names, typeText(f.Type))
		}
	}
	return names
}

func typeText(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return "*" + typeText(t.X)
	case *ast.ArrayType:
		return "[]" + typeText(t.Elt)
	case *ast.SelectorExpr:
		return typeText(t.X) + "." + t.Sel.Name
	default:
		return "?"
	}
}

// semanticStability checks that every function present in both the
// original and mutated source keeps a structurally isomorphic signature
// (spec §4.8: "structural isomorphism of the mutated region against
// declared type"). Where a parameter or result type changed and both the
// old and new type names are registered in the lattice, a covariant
// widening (new <: old is false but old <: new is true) is still
// rejected — the Demon only tolerates an exact match or a narrowing
// consult the lattice confirms is still compatible.
func (d *Demon) semanticStability(mutation types.MutationVector) (bool, string) {
	before, err := functionSignatures(mutation.OriginalText)
	if err != nil {
		return true, "" // original didn't parse; nothing to compare against
	}
	after, err := functionSignatures(mutation.MutatedText)
	if err != nil {
		return false, fmt.Sprintf("mutated source failed to parse for signature comparison: %v", err)
	}
	for name, beforeSig := range before {
		afterSig, present := after[name]
		if !present {
			continue // function removed entirely; not this layer's concern
		}
		if len(beforeSig.paramTypes) != len(afterSig.paramTypes) || len(beforeSig.resultTypes) != len(afterSig.resultTypes) {
			return false, fmt.Sprintf("%s changed arity", name)
		}
		for i, bt := range beforeSig.paramTypes {
			at := afterSig.paramTypes[i]
			if bt != at && !d.typeCompatible(bt, at) {
				return false, fmt.Sprintf("%s parameter %d type changed from %s to %s", name, i, bt, at)
			}
		}
		for i, bt := range beforeSig.resultTypes {
			at := afterSig.resultTypes[i]
			if bt != at && !d.typeCompatible(bt, at) {
				return false, fmt.Sprintf("%s result %d type changed from %s to %s", name, i, bt, at)
			}
		}
	}
	return true, ""
}

// typeCompatible treats both parameter and result positions as covariant
// (spec §4.8's "exact match or a narrowing"): a mutated signature may only
// replace a declared type with a subtype of it, in either position, never a
// supertype. Routed through lattice.CheckVariance rather than a bare
// IsSubtype call so the variance rule is named at the call site instead of
// implicit in argument order.
func (d *Demon) typeCompatible(oldType, newType string) bool {
	if d.lattice == nil {
		return false
	}
	return d.lattice.CheckVariance(lattice.Covariant, oldType, newType)
}

// --- Layer 3: Teleological alignment --------------------------------------

func (d *Demon) teleologicalAlignment(ctx context.Context, mutation types.MutationVector, intent types.Intent) (bool, string) {
	if d.embedder == nil || len(intent.Embedding) == 0 {
		return true, ""
	}
	vec, err := d.embedder.Embed(ctx, mutation.MutatedText)
	if err != nil {
		return false, fmt.Sprintf("failed to embed mutation: %v", err)
	}
	similarity, err := embedding.CosineSimilarity(vec, intent.Embedding)
	if err != nil {
		return false, fmt.Sprintf("failed to compare against intent embedding: %v", err)
	}
	threshold := intent.Confidence
	if threshold <= 0 {
		threshold = 0.5
	}
	if similarity < threshold {
		return false, fmt.Sprintf("alignment %.3f below threshold %.3f", similarity, threshold)
	}
	return true, ""
}

// --- Layer 4: Thermodynamic -----------------------------------------------

func (d *Demon) thermodynamic(mutation types.MutationVector) (bool, string) {
	g := mutation.GibbsFreeEnergy(d.temperature)
	if g >= 0 {
		return false, fmt.Sprintf("non-negative Gibbs free energy: %.4f", g)
	}
	return true, ""
}

// --- Layer 5: Economic ------------------------------------------------------

func (d *Demon) economic(econ EconomicInputs) (bool, string) {
	expected := econ.LibraryOdds * econ.ExpectedPayoff
	if expected < econ.Stake {
		return false, fmt.Sprintf("expected payoff %.4f below stake %.4f", expected, econ.Stake)
	}
	return true, ""
}
