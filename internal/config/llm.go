package config

import "time"

// LLMConfig configures the external LLM runtime used by the Prompt Builder
// and Hypothesis generation (spec §6 "LLM Runtime" collaborator).
type LLMConfig struct {
	Provider string `yaml:"provider"` // genai, ollama, anthropic, openai
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`

	// Gemini/GenAI-specific knobs (SPEC_FULL domain-stack: google.golang.org/genai).
	EnableThinking     bool   `yaml:"enable_thinking"`
	ThinkingLevel      string `yaml:"thinking_level"` // low, medium, high (any other value gets the medium budget)
	EnableGoogleSearch bool   `yaml:"enable_google_search"`
}

// DefaultGeminiLLMConfig returns sensible defaults for a genai-backed
// Hypothesis transducer.
func DefaultGeminiLLMConfig() LLMConfig {
	return LLMConfig{
		Provider:       "genai",
		Model:          "gemini-2.0-flash",
		Timeout:        "120s",
		EnableThinking: true,
		ThinkingLevel:  "high",
	}
}

// LLMTimeouts centralizes timeout configuration for LLM-backed pipeline
// stages. The shortest timeout in a call chain wins, so these are the
// canonical values every stage should derive from rather than hardcoding
// its own.
type LLMTimeouts struct {
	// HTTPClientTimeout bounds a single LLM HTTP round-trip.
	HTTPClientTimeout time.Duration `json:"http_client_timeout"`

	// PerCallTimeout wraps the context passed to one LLM call.
	PerCallTimeout time.Duration `json:"per_call_timeout"`

	RetryBackoffBase time.Duration `json:"retry_backoff_base"`
	RetryBackoffMax  time.Duration `json:"retry_backoff_max"`
	MaxRetries       int           `json:"max_retries"`
	RateLimitDelay   time.Duration `json:"rate_limit_delay"`

	// HypothesisTimeout bounds Ground→Hypothesis transduction for one module.
	HypothesisTimeout time.Duration `json:"hypothesis_timeout"`

	// ExperimentTimeout bounds one Experiment (mutation + validate + test).
	ExperimentTimeout time.Duration `json:"experiment_timeout"`

	// CycleTimeout bounds one full Mutate→Select→Wager→Infect→Payoff cycle.
	CycleTimeout time.Duration `json:"cycle_timeout"`
}

// DefaultLLMTimeouts are calibrated for a cloud LLM serving long-context
// code-analysis prompts.
func DefaultLLMTimeouts() LLMTimeouts {
	return LLMTimeouts{
		HTTPClientTimeout: 3 * time.Minute,
		PerCallTimeout:    3 * time.Minute,
		RetryBackoffBase:  1 * time.Second,
		RetryBackoffMax:   30 * time.Second,
		MaxRetries:        3,
		RateLimitDelay:    250 * time.Millisecond,
		HypothesisTimeout: 5 * time.Minute,
		ExperimentTimeout: 10 * time.Minute,
		CycleTimeout:      20 * time.Minute,
	}
}

// QuickLLMTimeouts backs the pipeline's --quick flag: smaller budgets that
// favor fewer, cheaper hypotheses over exhaustive exploration.
func QuickLLMTimeouts() LLMTimeouts {
	return LLMTimeouts{
		HTTPClientTimeout: 1 * time.Minute,
		PerCallTimeout:    1 * time.Minute,
		RetryBackoffBase:  500 * time.Millisecond,
		RetryBackoffMax:   5 * time.Second,
		MaxRetries:        1,
		RateLimitDelay:    100 * time.Millisecond,
		HypothesisTimeout: 90 * time.Second,
		ExperimentTimeout: 3 * time.Minute,
		CycleTimeout:      6 * time.Minute,
	}
}

var globalLLMTimeouts = DefaultLLMTimeouts()

// GetLLMTimeouts returns the global LLM timeout configuration.
func GetLLMTimeouts() LLMTimeouts { return globalLLMTimeouts }

// SetLLMTimeouts updates the global LLM timeout configuration. Call early,
// e.g. from cmd/evolve when --quick is passed.
func SetLLMTimeouts(t LLMTimeouts) { globalLLMTimeouts = t }
