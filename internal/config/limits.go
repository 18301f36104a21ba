package config

import "fmt"

// CoreLimits enforces system-wide resource constraints for one pipeline run.
type CoreLimits struct {
	MaxTotalMemoryMB        int `yaml:"max_total_memory_mb" json:"max_total_memory_mb"`
	MaxConcurrentExperiments int `yaml:"max_concurrent_experiments" json:"max_concurrent_experiments"`
	MaxConcurrentAPICalls   int `yaml:"max_concurrent_api_calls" json:"max_concurrent_api_calls"`
	MaxSessionDurationMin   int `yaml:"max_session_duration_min" json:"max_session_duration_min"`
	MaxFactsInKernel        int `yaml:"max_facts_in_kernel" json:"max_facts_in_kernel"`           // EDB size limit
	MaxDerivedFactsLimit    int `yaml:"max_derived_facts_limit" json:"max_derived_facts_limit"`   // Mangle gas limit
}

// ValidateCoreLimits checks that core limits are within acceptable ranges.
func (c *Config) ValidateCoreLimits() error {
	if c.CoreLimits.MaxTotalMemoryMB < 256 {
		return fmt.Errorf("max_total_memory_mb must be >= 256 MB")
	}
	if c.CoreLimits.MaxConcurrentExperiments < 1 {
		return fmt.Errorf("max_concurrent_experiments must be >= 1")
	}
	if c.CoreLimits.MaxFactsInKernel < 1000 {
		return fmt.Errorf("max_facts_in_kernel must be >= 1000")
	}
	if c.CoreLimits.MaxDerivedFactsLimit < 1000 {
		return fmt.Errorf("max_derived_facts_limit must be >= 1000")
	}
	return nil
}

// EnforceCoreLimits returns enforcement parameters for the kernel and
// experiment scheduler, keeping config values live rather than merely stored.
func (c *Config) EnforceCoreLimits() map[string]int {
	return map[string]int{
		"max_facts":        c.CoreLimits.MaxFactsInKernel,
		"max_derived":      c.CoreLimits.MaxDerivedFactsLimit,
		"max_experiments":  c.CoreLimits.MaxConcurrentExperiments,
		"max_memory_mb":    c.CoreLimits.MaxTotalMemoryMB,
		"session_duration": c.CoreLimits.MaxSessionDurationMin,
	}
}
