// Package types provides shared type definitions used across the evolution
// pipeline's packages. It exists to break import cycles between lattice,
// catalog, demon, and safety: types with no complex dependencies live here.
package types

import (
	"fmt"
	"strings"

	"github.com/google/mangle/ast"
)

// =============================================================================
// MANGLE FACT TYPES
// =============================================================================

// MangleAtom represents a Mangle name constant (starting with /).
// This explicit type avoids ambiguity between strings and atoms.
type MangleAtom string

// Fact represents a single logical fact (atom) in the EDB that the
// Teleological Demon, Type Lattice, and Lineage DAG assert and query.
type Fact struct {
	Predicate string
	Args      []interface{}
}

// String returns the Datalog string representation of the fact.
func (f Fact) String() string {
	args := make([]string, 0, len(f.Args))
	for _, arg := range f.Args {
		switch v := arg.(type) {
		case MangleAtom:
			args = append(args, string(v))
		case string:
			if strings.HasPrefix(v, "/") {
				args = append(args, v)
			} else {
				args = append(args, fmt.Sprintf("%q", v))
			}
		case int:
			args = append(args, fmt.Sprintf("%d", v))
		case int64:
			args = append(args, fmt.Sprintf("%d", v))
		case float64:
			args = append(args, fmt.Sprintf("%f", v))
		case bool:
			if v {
				args = append(args, "/true")
			} else {
				args = append(args, "/false")
			}
		default:
			args = append(args, fmt.Sprintf("%v", v))
		}
	}
	return fmt.Sprintf("%s(%s).", f.Predicate, strings.Join(args, ", "))
}

// ToAtom converts a Fact to a Mangle AST Atom for direct store insertion.
func (f Fact) ToAtom() (ast.Atom, error) {
	terms := make([]ast.BaseTerm, 0, len(f.Args))
	for _, arg := range f.Args {
		switch v := arg.(type) {
		case MangleAtom:
			c, err := ast.Name(string(v))
			if err != nil {
				return ast.Atom{}, err
			}
			terms = append(terms, c)
		case string:
			if strings.HasPrefix(v, "/") {
				c, err := ast.Name(v)
				if err != nil {
					return ast.Atom{}, err
				}
				terms = append(terms, c)
			} else {
				terms = append(terms, ast.String(v))
			}
		case int:
			terms = append(terms, ast.Number(int64(v)))
		case int64:
			terms = append(terms, ast.Number(v))
		case float64:
			// Mangle's comparison builtins are integer-only; floats in [0,1]
			// (confidences, scores, fitness) are rescaled to a 0-100 integer
			// lattice, everything else is truncated.
			if v >= 0.0 && v <= 1.0 {
				terms = append(terms, ast.Number(int64(v*100)))
			} else {
				terms = append(terms, ast.Number(int64(v)))
			}
		case bool:
			if v {
				terms = append(terms, ast.TrueConstant)
			} else {
				terms = append(terms, ast.FalseConstant)
			}
		default:
			terms = append(terms, ast.String(fmt.Sprintf("%v", v)))
		}
	}
	return ast.NewAtom(f.Predicate, terms...), nil
}

// KernelFact is the interface-friendly version of Fact for callers that
// should not need to import the mangle AST package directly.
type KernelFact struct {
	Predicate string
	Args      []interface{}
}

// ToFact converts a KernelFact to a Fact.
func (kf KernelFact) ToFact() Fact {
	return Fact{Predicate: kf.Predicate, Args: kf.Args}
}

// KernelInterface is the narrow surface that the Lattice, Demon, and Safety
// Kernel need from the underlying Mangle engine, so none of them has to
// import internal/mangle directly and create a dependency cycle.
type KernelInterface interface {
	AssertFact(fact KernelFact) error
	QueryPredicate(predicate string) ([]KernelFact, error)
	QueryBool(predicate string) bool
	RetractFact(fact KernelFact) error
}
