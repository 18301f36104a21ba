package config

// PipelineConfig configures the top-level Evolution Pipeline: how many
// hypotheses to pursue per module, the Fallback Waterfall, Preflight
// Baseline, and Retry Classification (SPEC_FULL expanded modules).
type PipelineConfig struct {
	// DryRun proposes and judges mutations without incorporating them.
	DryRun bool `yaml:"dry_run"`

	// AutoApply incorporates ACCEPT verdicts without interactive confirmation.
	AutoApply bool `yaml:"auto_apply"`

	// Quick trims hypothesis count and LLM timeouts for a fast pass.
	Quick bool `yaml:"quick"`

	// HypothesesPerModule bounds how many Hypotheses the Ground→Hypothesis
	// stage generates for one module before moving to Experiment.
	HypothesesPerModule int `yaml:"hypotheses_per_module"`

	// FallbackWaterfall lists the Hypothesis variants attempted, in order,
	// when a TypedError or BehavioralError recurs for the same module
	// (spec §7, EXPANDED MODULE: Fallback Waterfall).
	FallbackWaterfall []string `yaml:"fallback_waterfall"`

	// PreflightErrorThreshold: a module whose baseline `go vet`/build error
	// count already exceeds this is skipped rather than mutated further
	// (EXPANDED MODULE: Preflight Baseline).
	PreflightErrorThreshold int `yaml:"preflight_error_threshold"`

	// MaxRetriesPerCategory bounds Retry Classification's category-specific
	// re-prompt attempts (structural vs typed vs behavioral).
	MaxRetriesPerCategory map[string]int `yaml:"max_retries_per_category"`

	// Temperature is the thermodynamic T in ΔG = ΔH - T·ΔS; higher values
	// admit more entropic (riskier, more novel) mutations.
	Temperature float64 `yaml:"temperature"`
}

// DefaultPipelineConfig returns sensible defaults.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		DryRun:              false,
		AutoApply:           false,
		Quick:               false,
		HypothesesPerModule: 5,
		FallbackWaterfall: []string{
			"MinimalVersion",
			"TypeAnnotationsOnly",
			"DocsOnly",
			"Skip",
		},
		PreflightErrorThreshold: 10,
		MaxRetriesPerCategory: map[string]int{
			"structural": 1, // unrecoverable beyond one retry
			"typed":      3,
			"behavioral": 2,
			"systemic":   0,
		},
		Temperature: 1.0,
	}
}

// QuickPipelineConfig narrows DefaultPipelineConfig for the --quick flag.
func QuickPipelineConfig() PipelineConfig {
	c := DefaultPipelineConfig()
	c.Quick = true
	c.HypothesesPerModule = 2
	c.MaxRetriesPerCategory = map[string]int{
		"structural": 1,
		"typed":      1,
		"behavioral": 1,
		"systemic":   0,
	}
	return c
}
