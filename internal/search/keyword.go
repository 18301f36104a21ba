// Package search implements the Catalog's fused Semantic Search (spec
// §4.2): three independent brains (keyword, semantic, graph) combined by
// query-adaptive Reciprocal Rank Fusion, with a serendipity side-list for
// strong single-brain results the fusion buried.
package search

import (
	"sort"
	"strings"

	"thermocode/internal/types"
)

// Scored pairs a catalog entry id with a brain's raw score.
type Scored struct {
	ID    string
	Score float64
}

// KeywordBrain scores entries by lexical overlap with the query (spec
// §4.2): exact name +1.0, partial name +0.5, keyword match +0.3,
// description match +0.2, contract match +0.1. Scores are additive: an
// entry can match on more than one axis.
type KeywordBrain struct{}

// Search scores every candidate entry against query, returning only
// entries with a nonzero score, sorted descending.
func (KeywordBrain) Search(query string, entries []types.CatalogEntry) []Scored {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	var out []Scored
	for _, e := range entries {
		score := 0.0
		name := strings.ToLower(e.Name)

		switch {
		case name == q:
			score += 1.0
		case strings.Contains(name, q) || strings.Contains(q, name):
			score += 0.5
		}
		for _, kw := range e.Keywords {
			if strings.Contains(strings.ToLower(kw), q) || strings.Contains(q, strings.ToLower(kw)) {
				score += 0.3
				break
			}
		}
		if strings.Contains(strings.ToLower(e.Description), q) {
			score += 0.2
		}
		for _, c := range e.ContractsImplemented {
			if strings.Contains(strings.ToLower(c), q) || strings.Contains(q, strings.ToLower(c)) {
				score += 0.1
				break
			}
		}

		if score > 0 {
			out = append(out, Scored{ID: e.ID, Score: score})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
