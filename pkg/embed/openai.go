package embed

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIEmbedder implements Embedder using the OpenAI embeddings API
type OpenAIEmbedder struct {
	client    openai.Client
	model     string
	dimension int
}

func NewOpenAIEmbedder(apiKey, model string, dimension int) *OpenAIEmbedder {
	if model == "" {
		model = "text-embedding-3-small"
	}
	return &OpenAIEmbedder{
		client:    openai.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		dimension: dimension,
	}
}

func (e *OpenAIEmbedder) Dimension() int { return e.dimension }

// Embed generates one vector per input text. Empty texts are not sent to
// the API; they get a zero vector so a blank subject/snippet cannot fail
// an ingestion run.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))

	var nonEmpty []string
	var positions []int
	for i, t := range texts {
		if t == "" {
			vectors[i] = make([]float32, e.dimension)
			continue
		}
		nonEmpty = append(nonEmpty, t)
		positions = append(positions, i)
	}

	if len(nonEmpty) == 0 {
		return vectors, nil
	}

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
	}
	if len(nonEmpty) == 1 {
		params.Input = openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(nonEmpty[0]),
		}
	} else {
		params.Input = openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: nonEmpty,
		}
	}
	if e.dimension > 0 {
		params.Dimensions = openai.Int(int64(e.dimension))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(resp.Data) != len(nonEmpty) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(nonEmpty), len(resp.Data))
	}

	for j, data := range resp.Data {
		vector := make([]float32, len(data.Embedding))
		for k, v := range data.Embedding {
			vector[k] = float32(v)
		}
		vectors[positions[j]] = vector
	}

	return vectors, nil
}
