package phage

import (
	"fmt"

	"thermocode/internal/mangle"
	"thermocode/internal/types"
)

// SpawnChild creates a derived phage whose lineage includes parent's own
// id appended to parent's lineage chain (spec §4.10: "spawn_child
// creates a derived phage whose lineage includes the parent"), and
// records the relationship as a lineage_edge fact so AnalyzeLineage can
// reconstruct the chain purely from facts if the in-memory Phage value
// is ever lost.
func SpawnChild(facts *mangle.Engine, parent types.Phage, childID string, mutation types.MutationVector, stake float64) (types.Phage, error) {
	if childID == "" {
		return types.Phage{}, fmt.Errorf("phage: child id must be non-empty")
	}
	lineage := append(append([]string(nil), parent.Lineage...), parent.ID)
	child := types.Phage{
		ID:          childID,
		Mutation:    mutation,
		Status:      types.PhageProposed,
		Lineage:     lineage,
		StakeAmount: stake,
	}
	if facts != nil {
		if err := facts.AddFact("spawn_child", parent.ID, childID); err != nil {
			return types.Phage{}, fmt.Errorf("phage: failed to record spawn_child fact: %w", err)
		}
		if err := facts.AddFact("lineage_edge", parent.ID, childID, "spawn"); err != nil {
			return types.Phage{}, fmt.Errorf("phage: failed to record lineage_edge fact: %w", err)
		}
	}
	return child, nil
}

// AnalyzeLineage returns p's full ancestry, oldest first, followed by p
// itself (spec §4.10: "analyze_lineage reconstructs the chain").
func AnalyzeLineage(p types.Phage) []string {
	chain := make([]string, 0, len(p.Lineage)+1)
	chain = append(chain, p.Lineage...)
	chain = append(chain, p.ID)
	return chain
}

// LineageFitness aggregates a fitness score per ancestor id (e.g. from
// the Viral Library) into a single lineage-wide figure (spec §4.10:
// "calculate_lineage_fitness aggregates"). The aggregation is the mean
// of every ancestor's fitness plus the phage's own, so a lineage with
// one weak link doesn't get fully masked by strong ones elsewhere in
// the chain, but isn't destroyed by it either.
func LineageFitness(p types.Phage, fitnessByID map[string]float64) float64 {
	chain := AnalyzeLineage(p)
	if len(chain) == 0 {
		return 0
	}
	var total float64
	for _, id := range chain {
		total += fitnessByID[id]
	}
	return total / float64(len(chain))
}
