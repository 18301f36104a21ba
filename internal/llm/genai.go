package llm

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"thermocode/internal/config"
	"thermocode/internal/logging"
)

// float32Ptr mirrors internal/embedding/genai.go's int32Ptr helper.
func float32Ptr(f float32) *float32 {
	return &f
}

// GenAIRuntime implements Runtime against Google's Gemini API,
// grounded on internal/embedding.GenAIEngine's client-construction and
// logging-timer idiom (genai.go), generalized from EmbedContent to
// GenerateContent.
type GenAIRuntime struct {
	client             *genai.Client
	model              string
	enableThinking     bool
	thinkingLevel      string
	enableGoogleSearch bool
}

// NewGenAIRuntime creates a GenAIRuntime from cfg.
func NewGenAIRuntime(ctx context.Context, cfg config.LLMConfig) (*GenAIRuntime, error) {
	timer := logging.StartTimer(logging.CategoryLLM, "NewGenAIRuntime")
	defer timer.Stop()

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: GenAI API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("llm: failed to create GenAI client: %w", err)
	}
	return &GenAIRuntime{
		client:             client,
		model:              model,
		enableThinking:     cfg.EnableThinking,
		thinkingLevel:      cfg.ThinkingLevel,
		enableGoogleSearch: cfg.EnableGoogleSearch,
	}, nil
}

// thinkingBudgetForLevel maps config.LLMConfig's named thinking levels to
// the integer token budget genai.ThinkingConfig expects.
func thinkingBudgetForLevel(level string) int32 {
	switch level {
	case "low":
		return 1024
	case "medium":
		return 8192
	case "high":
		return 24576
	default:
		return 8192
	}
}

// RawCompletion implements Runtime (spec §6).
func (r *GenAIRuntime) RawCompletion(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	timer := logging.StartTimer(logging.CategoryLLM, "GenAIRuntime.RawCompletion")
	defer timer.Stop()

	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := genai.RoleUser
		if m.Role == RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	genConfig := &genai.GenerateContentConfig{}
	if req.SystemPrompt != "" {
		genConfig.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	if req.Temperature > 0 {
		t := float32(req.Temperature)
		genConfig.Temperature = float32Ptr(t)
	}
	if req.MaxTokens > 0 {
		genConfig.MaxOutputTokens = int32(req.MaxTokens)
	}
	if r.enableThinking {
		budget := thinkingBudgetForLevel(r.thinkingLevel)
		genConfig.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: &budget}
	}
	if r.enableGoogleSearch {
		genConfig.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}

	apiStart := time.Now()
	result, err := r.client.Models.GenerateContent(ctx, r.model, contents, genConfig)
	latency := time.Since(apiStart)
	if err != nil {
		logging.Get(logging.CategoryLLM).Error("GenAIRuntime.RawCompletion: API call failed after %v: %v", latency, err)
		return CompletionResponse{}, fmt.Errorf("llm: GenAI completion failed: %w", err)
	}

	text := extractText(result)
	meta := CompletionMetadata{Model: r.model, Latency: latency}
	if result.UsageMetadata != nil {
		meta.PromptTokens = int(result.UsageMetadata.PromptTokenCount)
		meta.CompletionTokens = int(result.UsageMetadata.CandidatesTokenCount)
	}
	logging.Get(logging.CategoryLLM).Info("GenAIRuntime.RawCompletion: completed in %v, response_length=%d", latency, len(text))
	return CompletionResponse{Text: text, Metadata: meta}, nil
}

// extractText concatenates every text part of the first candidate,
// mirroring genai's own Text() convenience accessor without depending
// on its exact presence across SDK versions.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			text += part.Text
		}
	}
	return text
}
