package embedding

import (
	"context"
	"math"
)

// MockClient is a deterministic in-process embedder for tests. Texts sharing
// character content land close together, which is enough structure for
// selector tests to rank on.
type MockClient struct {
	dimension int
}

// NewMockClient creates a mock embedder with the given dimension.
func NewMockClient(dimension int) *MockClient {
	if dimension <= 0 {
		dimension = 768
	}
	return &MockClient{dimension: dimension}
}

// EmbedSingle generates a deterministic embedding for one text.
func (c *MockClient) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, c.dimension)
	for i, char := range text {
		vec[i%c.dimension] += float32(char) / 1000.0
	}
	return normalize(vec), nil
}

// EmbedBatch generates deterministic embeddings for many texts.
func (c *MockClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := c.EmbedSingle(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = vec
	}
	return embeddings, nil
}

// Model returns the mock model name.
func (c *MockClient) Model() string {
	return "mock-embedding-model"
}

// Dimension returns the embedding dimension.
func (c *MockClient) Dimension() int {
	return c.dimension
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(1.0 / math.Sqrt(sum))
	for i := range v {
		v[i] *= norm
	}
	return v
}

var _ Embedder = (*MockClient)(nil)
