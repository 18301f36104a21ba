package config

// CatalogConfig configures the Catalog Registry and its fused Semantic
// Search (keyword + semantic + graph, spec §4.2).
type CatalogConfig struct {
	// DatabasePath persists catalog entries and their usage statistics.
	DatabasePath string `yaml:"database_path"`

	// UsageEMAAlpha is the exponential-moving-average smoothing factor
	// applied to an entry's success_rate on every UpdateUsage call.
	UsageEMAAlpha float64 `yaml:"usage_ema_alpha"`

	// RRFConstant is the k constant in Reciprocal Rank Fusion:
	// score = sum(weight / (RRFConstant + rank)) across the fused rankers,
	// with each ranker's weight set by the query class.
	RRFConstant float64 `yaml:"rrf_constant"`

	// SerendipityWeight trades off top relevance for result diversity when
	// fusing keyword/semantic/graph rankings.
	SerendipityWeight float64 `yaml:"serendipity_weight"`

	// MaxResults bounds the fused result set returned to a caller.
	MaxResults int `yaml:"max_results"`
}

// DefaultCatalogConfig returns sensible defaults.
func DefaultCatalogConfig() CatalogConfig {
	return CatalogConfig{
		DatabasePath:      ".evolve/catalog.db",
		UsageEMAAlpha:     0.1,
		RRFConstant:       60.0,
		SerendipityWeight: 0.15,
		MaxResults:        20,
	}
}
