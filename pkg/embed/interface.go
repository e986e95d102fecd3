package embed

import "context"

// Embedder maps texts to fixed-dimension vectors.
// Implement this interface to add new embedding providers (OpenAI, Ollama, etc.)
//
// Implementations must tolerate empty input texts by returning a zero
// vector for them instead of failing.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// ProviderType represents the embedding provider type
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderOllama ProviderType = "ollama"
	ProviderAuto   ProviderType = "auto"
)
