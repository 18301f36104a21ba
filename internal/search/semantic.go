package search

import (
	"context"
	"sort"

	"thermocode/internal/embedding"
	"thermocode/internal/types"
)

// SemanticBrain scores entries by cosine similarity between the query
// embedding and each entry's stored embedding. When no external embedder
// is configured it falls back to a dependency-free TF-IDF engine (spec
// §4.2: "a TF-IDF fallback is provided when no external embedder is
// available").
type SemanticBrain struct {
	Engine embedding.EmbeddingEngine
}

// NewSemanticBrain wires engine if non-nil, otherwise falls back to a
// fixed-dimension TF-IDF engine.
func NewSemanticBrain(engine embedding.EmbeddingEngine) SemanticBrain {
	if engine == nil {
		engine = embedding.NewTFIDFEngine(256)
	}
	return SemanticBrain{Engine: engine}
}

// Search embeds query, then cosine-scores it against every entry with a
// stored embedding. Entries without an embedding are skipped, and
// entries whose similarity is zero or negative are omitted.
func (b SemanticBrain) Search(ctx context.Context, query string, entries []types.CatalogEntry) ([]Scored, error) {
	qEmb, err := b.Engine.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	var out []Scored
	for _, e := range entries {
		if len(e.Embedding) == 0 {
			continue
		}
		sim, err := embedding.CosineSimilarity(qEmb, e.Embedding)
		if err != nil {
			continue
		}
		if sim > 0 {
			out = append(out, Scored{ID: e.ID, Score: sim})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}
