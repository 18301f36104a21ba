package search

import (
	"sort"

	"thermocode/internal/catalog"
	"thermocode/internal/lattice"
	"thermocode/internal/types"
)

// GraphBrain scores entries by relationship proximity to a seed entry
// found by name/id in the query: compatible upstream/downstream agents
// (composition planning via the lattice), direct dependents, and lineage
// ancestors/descendants (spec §4.2: "over lineage + lattice").
type GraphBrain struct {
	Reg *catalog.Registry
	Lat *lattice.Lattice
}

// Search resolves query as an entry id (falling back to an exact-name
// scan) and scores its graph neighborhood. Non-neighborhood entries score
// zero and are omitted. Closer relationships score higher: direct
// relationships (any type) score 1.0, lattice-compatible successors/
// predecessors score 0.6, and two-hop lineage neighbors score 0.3.
func (b GraphBrain) Search(query string, entries []types.CatalogEntry) []Scored {
	seed, ok := b.resolveSeed(query, entries)
	if !ok {
		return nil
	}

	scores := make(map[string]float64)
	for relType, targets := range seed.Relationships {
		_ = relType
		for _, id := range targets {
			if id != seed.ID {
				bump(scores, id, 1.0)
			}
		}
	}

	isSubtype := func(a, c string) bool {
		if a == "" || c == "" {
			return false
		}
		return b.Lat.IsSubtype(a, c)
	}
	graph := catalog.SuccessorGraph{Reg: b.Reg, IsSubtype: isSubtype}
	for _, succID := range graph.Successors(seed.ID) {
		bump(scores, succID, 0.6)
	}
	for _, e := range entries {
		if e.ID == seed.ID {
			continue
		}
		for _, id := range graph.Successors(e.ID) {
			if id == seed.ID {
				bump(scores, e.ID, 0.6)
			}
		}
	}

	for relType, targets := range seed.Relationships {
		_ = relType
		for _, midID := range targets {
			mid, ok := b.Reg.Get(midID)
			if !ok {
				continue
			}
			for _, grandchildIDs := range mid.Relationships {
				for _, id := range grandchildIDs {
					if id != seed.ID {
						bump(scores, id, 0.3)
					}
				}
			}
		}
	}

	var out []Scored
	for id, score := range scores {
		out = append(out, Scored{ID: id, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func bump(scores map[string]float64, id string, delta float64) {
	if v, ok := scores[id]; !ok || delta > v {
		scores[id] = delta
	}
}

// resolveSeed finds the entry named or identified by query.
func (b GraphBrain) resolveSeed(query string, entries []types.CatalogEntry) (types.CatalogEntry, bool) {
	if e, ok := b.Reg.Get(query); ok {
		return e, true
	}
	for _, e := range entries {
		if e.Name == query {
			return e, true
		}
	}
	return types.CatalogEntry{}, false
}
