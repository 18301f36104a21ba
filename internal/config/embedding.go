package config

// EmbeddingConfig configures the vector embedding engine backing Semantic
// Search and the Holographic Memory's resonance retrieval. Supports Ollama
// (local), GenAI (cloud), and a dependency-free TF-IDF fallback (spec §6).
type EmbeddingConfig struct {
	// Provider: "ollama", "genai", or "tfidf"
	Provider string `yaml:"provider" json:"provider"`

	OllamaEndpoint string `yaml:"ollama_endpoint" json:"ollama_endpoint"`
	OllamaModel    string `yaml:"ollama_model" json:"ollama_model"`

	GenAIAPIKey string `yaml:"genai_api_key" json:"genai_api_key"`
	GenAIModel  string `yaml:"genai_model" json:"genai_model"`

	// TaskType for GenAI embeddings: SEMANTIC_SIMILARITY, CODE_RETRIEVAL_QUERY, etc.
	TaskType string `yaml:"task_type" json:"task_type"`

	// Dimensions is the fallback TF-IDF engine's fixed output width, since it
	// has no model to query for one.
	Dimensions int `yaml:"dimensions" json:"dimensions"`
}

// DefaultEmbeddingConfig defaults to the dependency-free TF-IDF engine so the
// pipeline degrades gracefully with no local Ollama server or GenAI key.
func DefaultEmbeddingConfig() EmbeddingConfig {
	return EmbeddingConfig{
		Provider:       "tfidf",
		OllamaEndpoint: "http://localhost:11434",
		OllamaModel:    "embeddinggemma",
		GenAIModel:     "gemini-embedding-001",
		TaskType:       "CODE_RETRIEVAL_QUERY",
		Dimensions:     256,
	}
}
