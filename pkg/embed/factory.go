package embed

import "fmt"

// Config holds embedding provider configuration
type Config struct {
	Provider ProviderType // "openai" or "ollama"

	// OpenAI config
	OpenAIAPIKey string
	OpenAIModel  string

	// Ollama config
	OllamaBaseURL string // e.g., "http://localhost:11434"
	OllamaModel   string // e.g., "nomic-embed-text"

	Dimension int
}

// NewEmbedder creates an Embedder based on the config
// This is the factory function - switch provider by changing config.Provider
func NewEmbedder(cfg Config) (Embedder, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for OpenAI provider")
		}
		return NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.Dimension), nil

	case ProviderOllama:
		return NewOllamaEmbedder(cfg.OllamaBaseURL, cfg.OllamaModel, cfg.Dimension), nil

	default:
		// Default to OpenAI if API key is available, otherwise Ollama
		if cfg.OpenAIAPIKey != "" {
			return NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.Dimension), nil
		}
		return NewOllamaEmbedder(cfg.OllamaBaseURL, cfg.OllamaModel, cfg.Dimension), nil
	}
}
