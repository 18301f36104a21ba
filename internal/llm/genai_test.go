package llm

import (
	"context"
	"testing"

	"thermocode/internal/config"
)

func TestNewGenAIRuntime_RejectsEmptyAPIKey(t *testing.T) {
	_, err := NewGenAIRuntime(context.Background(), config.LLMConfig{Model: "gemini-2.0-flash"})
	if err == nil {
		t.Fatal("expected error for missing API key, got nil")
	}
}

func TestThinkingBudgetForLevel(t *testing.T) {
	cases := map[string]int32{
		"low":     1024,
		"medium":  8192,
		"high":    24576,
		"":        8192,
		"unknown": 8192,
	}
	for level, want := range cases {
		if got := thinkingBudgetForLevel(level); got != want {
			t.Errorf("thinkingBudgetForLevel(%q) = %d, want %d", level, got, want)
		}
	}
}

func TestExtractText_NilResponse(t *testing.T) {
	if got := extractText(nil); got != "" {
		t.Errorf("extractText(nil) = %q, want empty string", got)
	}
}

func TestFloat32Ptr_RoundTrips(t *testing.T) {
	p := float32Ptr(0.7)
	if p == nil || *p != 0.7 {
		t.Errorf("float32Ptr(0.7) = %v, want pointer to 0.7", p)
	}
}
