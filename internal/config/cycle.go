package config

// CycleConfig configures the Thermodynamic Cycle (spec overview: "Mutate
// -> Select -> Wager -> Infect -> Payoff"): how many hot spots the
// Mutator scores per pass, the temperature fed to both the Mutator's
// Gibbs-free-energy gate and the Demon's thermodynamic layer, and the
// default wager terms used for a schema the Viral Library has never
// seen a payoff from yet.
type CycleConfig struct {
	// TopN bounds how many hot spots mutator.ScoreHotSpots offers to the
	// schema library per Mutate step.
	TopN int `yaml:"top_n"`

	// Temperature is the thermodynamic T shared by the Mutator's ΔG
	// filter and the Demon's Layer 4 (thermodynamic) check.
	Temperature float64 `yaml:"temperature"`

	// DefaultStake is the amount wagered on a mutation whose schema has
	// no Viral Library history yet.
	DefaultStake float64 `yaml:"default_stake"`

	// DefaultExpectedPayoff seeds EconomicInputs.ExpectedPayoff for a
	// first-seen schema, before the Viral Library has an impact mean to
	// draw from.
	DefaultExpectedPayoff float64 `yaml:"default_expected_payoff"`

	// MinLibraryOdds floors EconomicInputs.LibraryOdds for a brand new
	// pattern (Pattern.Odds() on zero fitness is 0, which would make the
	// Economic layer reject every novel schema forever).
	MinLibraryOdds float64 `yaml:"min_library_odds"`

	// StaleAfterHours bounds how long an unused Viral Library pattern
	// survives a Prune sweep once its fitness has fallen below the
	// floor.
	StaleAfterHours int `yaml:"stale_after_hours"`
}

// DefaultCycleConfig returns sensible defaults.
func DefaultCycleConfig() CycleConfig {
	return CycleConfig{
		TopN:                  5,
		Temperature:           1.0,
		DefaultStake:          0.1,
		DefaultExpectedPayoff: 1.0,
		MinLibraryOdds:        0.2,
		StaleAfterHours:       24 * 14,
	}
}
