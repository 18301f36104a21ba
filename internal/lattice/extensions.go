package lattice

import "thermocode/internal/types"

// Variance classifies how a type parameter position behaves under
// subtyping (spec §4.1 extensions).
type Variance string

const (
	Covariant     Variance = "covariant"
	Contravariant Variance = "contravariant"
	Invariant     Variance = "invariant"
)

// UnionSubtype reports whether the union type whose members are `members`
// is a subtype of c: A∨B ≤ C ⇔ A ≤ C ∧ B ≤ C, generalized to n members.
func (l *Lattice) UnionSubtype(members []string, c string) bool {
	for _, m := range members {
		if !l.IsSubtype(m, c) {
			return false
		}
	}
	return true
}

// UnionJoin collapses a union's members to their least upper bound,
// folding Join across all members (members' join).
func (l *Lattice) UnionJoin(members []string) string {
	if len(members) == 0 {
		return "NEVER"
	}
	acc := members[0]
	for _, m := range members[1:] {
		acc = l.Join(acc, m)
	}
	return acc
}

// IntersectionSubtype is the dual of UnionSubtype: c is a subtype of the
// intersection type iff c is a subtype of every member.
func (l *Lattice) IntersectionSubtype(c string, members []string) bool {
	for _, m := range members {
		if !l.IsSubtype(c, m) {
			return false
		}
	}
	return true
}

// IntersectionMeet collapses an intersection's members to their greatest
// lower bound, folding Meet across all members (members' meet).
func (l *Lattice) IntersectionMeet(members []string) string {
	if len(members) == 0 {
		return "ANY"
	}
	acc := members[0]
	for _, m := range members[1:] {
		acc = l.Meet(acc, m)
	}
	return acc
}

// CheckVariance validates that a substitution at a declared position obeys
// its variance: covariant positions require sub <: orig, contravariant
// positions require orig <: sub, invariant positions require equality.
func (l *Lattice) CheckVariance(v Variance, orig, sub string) bool {
	switch v {
	case Covariant:
		return l.IsSubtype(sub, orig)
	case Contravariant:
		return l.IsSubtype(orig, sub)
	case Invariant:
		return orig == sub
	default:
		return false
	}
}

// StructuralSubtype reports whether record `sub` is a structural subtype
// of record `super`: every field super declares must be present on sub
// with a compatible (subtype) type.
func (l *Lattice) StructuralSubtype(sub, super types.TypeNode) bool {
	if super.Kind != types.KindRecord || sub.Kind != types.KindRecord {
		return false
	}
	for field, superType := range super.Fields {
		subType, ok := sub.Fields[field]
		if !ok {
			return false
		}
		if !l.IsSubtype(subType, superType) {
			return false
		}
	}
	return true
}

// Normalize canonicalizes a union or intersection member list: drops the
// identity element (NEVER in a union, ANY in a KindContract list),
// de-duplicates, and sorts into a canonical order. Members are plain ids
// taken as given; members that are themselves unions or intersections
// are not flattened.
func Normalize(kind types.TypeKind, members []string) []string {
	identity := "NEVER"
	if kind == types.KindContract {
		identity = "ANY"
	}

	seen := make(map[string]bool)
	var flat []string
	var flatten func([]string)
	flatten = func(ms []string) {
		for _, m := range ms {
			if m == identity {
				continue
			}
			if seen[m] {
				continue
			}
			seen[m] = true
			flat = append(flat, m)
		}
	}
	flatten(members)

	insertionSort(flat)
	return flat
}

func insertionSort(ss []string) {
	for i := 1; i < len(ss); i++ {
		for j := i; j > 0 && ss[j-1] > ss[j]; j-- {
			ss[j-1], ss[j] = ss[j], ss[j-1]
		}
	}
}
