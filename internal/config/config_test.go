package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Name != "evolve" {
		t.Errorf("expected Name=evolve, got %s", cfg.Name)
	}
	if cfg.LLM.Provider != "genai" {
		t.Errorf("expected Provider=genai, got %s", cfg.LLM.Provider)
	}
	if cfg.CoreLimits.MaxConcurrentExperiments != 4 {
		t.Errorf("expected MaxConcurrentExperiments=4, got %d", cfg.CoreLimits.MaxConcurrentExperiments)
	}
	if cfg.Pipeline.Temperature != 1.0 {
		t.Errorf("expected Temperature=1.0, got %f", cfg.Pipeline.Temperature)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")

	cfg := DefaultConfig()
	cfg.LLM.Provider = "anthropic"
	cfg.LLM.APIKey = "sk-test"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.LLM.Provider != "anthropic" {
		t.Errorf("expected Provider=anthropic, got %s", loaded.LLM.Provider)
	}
	if loaded.LLM.APIKey != "sk-test" {
		t.Errorf("expected APIKey=sk-test, got %s", loaded.LLM.APIKey)
	}
}

func TestConfig_Load_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Name != "evolve" {
		t.Errorf("expected defaults on missing file, got Name=%s", cfg.Name)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid default config, got error: %v", err)
	}

	cfg.LLM.Provider = "invalid-provider"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for invalid provider")
	}
	cfg.LLM.Provider = "genai"

	cfg.Embedding.Provider = "invalid"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for invalid embedding provider")
	}
}

func TestConfig_Helpers(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.GetLLMTimeout() == 0 {
		t.Error("GetLLMTimeout should return non-zero duration")
	}
	if cfg.GetQueryTimeout() == 0 {
		t.Error("GetQueryTimeout should return non-zero duration")
	}
}

func TestPipelineConfig_QuickNarrowsRetries(t *testing.T) {
	quick := QuickPipelineConfig()
	def := DefaultPipelineConfig()
	if quick.HypothesesPerModule >= def.HypothesesPerModule {
		t.Error("quick pipeline should request fewer hypotheses than default")
	}
	if quick.MaxRetriesPerCategory["typed"] >= def.MaxRetriesPerCategory["typed"] {
		t.Error("quick pipeline should allow fewer typed retries than default")
	}
}
