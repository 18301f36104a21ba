// Package config loads and validates the evolution pipeline's configuration:
// one YAML file plus environment variable overrides, following the same
// DefaultConfig/Load/Save pattern the teacher project uses throughout its
// own per-concern config files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"thermocode/internal/logging"

	"gopkg.in/yaml.v3"
)

// Config holds all evolution pipeline configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	LLM       LLMConfig       `yaml:"llm"`
	Mangle    MangleConfig    `yaml:"mangle"`
	Memory    MemoryConfig    `yaml:"memory"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Cycle     CycleConfig     `yaml:"cycle"`
	Safety    SafetyConfig    `yaml:"safety"`
	VCS       VCSConfig       `yaml:"vcs"`
	Build     BuildConfig     `yaml:"build"`
	Logging   LoggingConfig   `yaml:"logging"`

	CoreLimits CoreLimits `yaml:"core_limits" json:"core_limits"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "evolve",
		Version: "0.1.0",

		LLM:       DefaultGeminiLLMConfig(),
		Mangle:    MangleConfig{FactLimit: 1000000, DerivedFactLimit: DefaultDerivedFactLimit, QueryTimeout: "30s"},
		Memory:    DefaultMemoryConfig(),
		Embedding: DefaultEmbeddingConfig(),
		Catalog:   DefaultCatalogConfig(),
		Pipeline:  DefaultPipelineConfig(),
		Cycle:     DefaultCycleConfig(),
		Safety:    DefaultSafetyConfig(),
		VCS:       DefaultVCSConfig(),
		Build:     DefaultBuildConfig(),

		Logging: LoggingConfig{
			Level:     "info",
			Format:    "text",
			DebugMode: false,
		},

		CoreLimits: CoreLimits{
			MaxTotalMemoryMB:         4096,
			MaxConcurrentExperiments: 4,
			MaxConcurrentAPICalls:    2,
			MaxSessionDurationMin:    120,
			MaxFactsInKernel:         250000,
			MaxDerivedFactsLimit:     DefaultDerivedFactLimit,
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults plus
// environment overrides if the file does not exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	logging.Get(logging.CategoryBoot).Debug("loading config from: %s", path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Get(logging.CategoryBoot).Info("config file not found, using defaults: %s", path)
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	if cfg.Pipeline.Quick {
		SetLLMTimeouts(QuickLLMTimeouts())
	}
	logging.Get(logging.CategoryBoot).Info("config loaded: provider=%s model=%s", cfg.LLM.Provider, cfg.LLM.Model)
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		if c.LLM.Provider == "" {
			c.LLM.Provider = "genai"
		}
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "anthropic"
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "openai"
	}

	if path := os.Getenv("EVOLVE_DB"); path != "" {
		c.Memory.DatabasePath = path
	}

	if key := os.Getenv("GENAI_API_KEY"); key != "" {
		c.Embedding.GenAIAPIKey = key
		if c.Embedding.Provider == "" || c.Embedding.Provider == "tfidf" {
			c.Embedding.Provider = "genai"
		}
	}
	if endpoint := os.Getenv("OLLAMA_ENDPOINT"); endpoint != "" {
		c.Embedding.OllamaEndpoint = endpoint
		if c.Embedding.Provider == "tfidf" {
			c.Embedding.Provider = "ollama"
		}
	}
	if model := os.Getenv("OLLAMA_EMBEDDING_MODEL"); model != "" {
		c.Embedding.OllamaModel = model
	}

	if v := os.Getenv("EVOLVE_DRY_RUN"); v == "1" || v == "true" {
		c.Pipeline.DryRun = true
	}
	if v := os.Getenv("EVOLVE_AUTO_APPLY"); v == "1" || v == "true" {
		c.Pipeline.AutoApply = true
	}
}

// GetLLMTimeout returns the LLM timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// GetQueryTimeout returns the Mangle query timeout as a duration.
func (c *Config) GetQueryTimeout() time.Duration {
	d, err := time.ParseDuration(c.Mangle.QueryTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// ValidProviders lists all supported LLM providers.
var ValidProviders = []string{"genai", "ollama", "anthropic", "openai"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validProvider := false
	for _, p := range ValidProviders {
		if c.LLM.Provider == p {
			validProvider = true
			break
		}
	}
	if !validProvider {
		return fmt.Errorf("invalid LLM provider: %s (valid: %v)", c.LLM.Provider, ValidProviders)
	}
	if c.Embedding.Provider != "ollama" && c.Embedding.Provider != "genai" && c.Embedding.Provider != "tfidf" {
		return fmt.Errorf("invalid embedding provider: %s", c.Embedding.Provider)
	}
	return c.ValidateCoreLimits()
}
