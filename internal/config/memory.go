package config

// MemoryConfig configures the Holographic Memory's three tiers (spec §5):
// sensory (raw, short-lived), working (active resonance set), and
// long-term (compressed, durable).
type MemoryConfig struct {
	// SensoryCapacity bounds the sensory tier's pattern count before the
	// oldest unreferenced patterns are evicted or promoted.
	SensoryCapacity int `yaml:"sensory_capacity"`

	// WorkingCapacity bounds the working tier.
	WorkingCapacity int `yaml:"working_capacity"`

	// DatabasePath is the long-term tier's backing store.
	DatabasePath string `yaml:"database_path"`

	// ResonanceThreshold is the minimum similarity score for a pattern to
	// be considered a resonance match during retrieval.
	ResonanceThreshold float64 `yaml:"resonance_threshold"`

	// PromotionThreshold is the access-count/activation score above which a
	// working-tier pattern is compressed and promoted to long-term.
	PromotionThreshold float64 `yaml:"promotion_threshold"`

	// Context Window Management for the Prompt Builder's metered levels.
	ContextWindow ContextWindowConfig `yaml:"context_window"`
}

// DefaultMemoryConfig returns sensible defaults for the three-tier memory.
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		SensoryCapacity:    500,
		WorkingCapacity:    2000,
		DatabasePath:       ".evolve/memory.db",
		ResonanceThreshold: 0.75,
		PromotionThreshold: 30.0,
		ContextWindow:      DefaultContextWindowConfig(),
	}
}

// ContextWindowConfig configures the Prompt Builder's three metered levels
// (minimal / standard / exhaustive) and the token budget each draws from.
//
// Token Budget Architecture:
//
//	MaxTokens = CoreReserve + AtomReserve + HistoryReserve + WorkingReserve
type ContextWindowConfig struct {
	// MaxTokens is the input budget for one prompt (module source + context
	// atoms + improvement history), not the model's total context window.
	MaxTokens int `yaml:"max_tokens" json:"max_tokens"`

	CoreReservePercent    int `yaml:"core_reserve_percent" json:"core_reserve_percent"`       // constitutional facts
	AtomReservePercent    int `yaml:"atom_reserve_percent" json:"atom_reserve_percent"`       // high-activation atoms
	HistoryReservePercent int `yaml:"history_reserve_percent" json:"history_reserve_percent"` // improvement history
	WorkingReservePercent int `yaml:"working_reserve_percent" json:"working_reserve_percent"` // working memory

	OutputReserve int `yaml:"output_reserve" json:"output_reserve"`
	ToolUseBuffer int `yaml:"tool_use_buffer" json:"tool_use_buffer"`

	RecentTurnWindow int `yaml:"recent_turn_window" json:"recent_turn_window"`

	CompressionThreshold   float64 `yaml:"compression_threshold" json:"compression_threshold"`       // trigger at this % usage
	TargetCompressionRatio float64 `yaml:"target_compression_ratio" json:"target_compression_ratio"` // target ratio
	ActivationThreshold    float64 `yaml:"activation_threshold" json:"activation_threshold"`         // min score to include
}

// TotalContextWindow returns the total tokens needed (input + output + tool buffer).
func (c ContextWindowConfig) TotalContextWindow() int {
	total := c.MaxTokens
	if c.OutputReserve > 0 {
		total += c.OutputReserve
	} else {
		total += 8000
	}
	if c.ToolUseBuffer > 0 {
		total += c.ToolUseBuffer
	} else {
		total += 4000
	}
	return total
}

// DefaultContextWindowConfig returns sensible defaults for context window management.
func DefaultContextWindowConfig() ContextWindowConfig {
	return ContextWindowConfig{
		MaxTokens:              128000,
		CoreReservePercent:     5,
		AtomReservePercent:     30,
		HistoryReservePercent:  15,
		WorkingReservePercent:  50,
		OutputReserve:          8000,
		ToolUseBuffer:          4000,
		RecentTurnWindow:       5,
		CompressionThreshold:   0.60,
		TargetCompressionRatio: 100.0,
		ActivationThreshold:    30.0,
	}
}
