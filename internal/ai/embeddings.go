// internal/ai/embeddings.go
package ai

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
)

// CreateEmbedding returns the embedding of a single text.
func (ai *AIService) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := ai.GenerateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// GenerateEmbeddings creates vector embeddings for multiple texts
func (ai *AIService) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, errors.New("no texts provided for embedding")
	}

	req := openai.EmbeddingRequest{
		Input: texts,
		Model: ai.embeddingModel,
	}

	resp, err := ai.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create embeddings")
	}

	return checkEmbeddings(resp.Data, len(texts), ai.dimensions)
}

func checkEmbeddings(data []openai.Embedding, want, dimensions int) ([][]float32, error) {
	if len(data) != want {
		return nil, errors.Errorf("embedding count mismatch: got %d, expected %d", len(data), want)
	}

	embeddings := make([][]float32, len(data))
	for i, d := range data {
		if dimensions > 0 && len(d.Embedding) != dimensions {
			return nil, errors.Errorf("embedding %d has %d dimensions, expected %d", i, len(d.Embedding), dimensions)
		}
		embeddings[i] = d.Embedding
	}

	return embeddings, nil
}
