// Package llm implements the external LLM runtime collaborator (spec
// §6): "raw_completion({system_prompt, messages, temperature,
// max_tokens}) -> (text, metadata)", required for hypothesis expansion
// and improvement generation.
//
// Grounded on internal/embedding.GenAIEngine (genai.go)'s
// logging-timer/error-wrapping idiom for the google.golang.org/genai
// client, and on internal/perception.LLMClient (client.go)'s small
// interface + ZAIClient concrete-implementation shape for the
// pluggable-runtime pattern itself.
package llm

import (
	"context"
	"time"
)

// Role mirrors genai's RoleUser/RoleModel distinction for a chat turn.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
	RoleModel  Role = "model"
)

// Message is one turn in a completion request.
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest is spec §6's raw_completion argument.
type CompletionRequest struct {
	SystemPrompt string
	Messages     []Message
	Temperature  float64
	MaxTokens    int
}

// CompletionMetadata reports usage/latency alongside the response text.
type CompletionMetadata struct {
	Model            string
	PromptTokens     int
	CompletionTokens int
	Latency          time.Duration
}

// CompletionResponse is spec §6's raw_completion return value.
type CompletionResponse struct {
	Text     string
	Metadata CompletionMetadata
}

// Runtime is the external LLM collaborator's interface (spec §6).
type Runtime interface {
	RawCompletion(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}
