package embed

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
)

// defaultMockDimensions matches common sentence-transformer models.
const defaultMockDimensions = 384

// Mock is a deterministic in-process provider for tests and dry runs.
// Vectors are derived from a hash of the text, so the same input always
// produces the same embedding.
type Mock struct {
	dimensions int
}

// NewMock creates a mock provider. Zero dimensions uses 384.
func NewMock(dimensions int) *Mock {
	if dimensions <= 0 {
		dimensions = defaultMockDimensions
	}
	return &Mock{dimensions: dimensions}
}

// Embed generates deterministic embeddings by hashing the input text.
func (m *Mock) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		hash := sha256.Sum256([]byte(text))

		embedding := make([]float32, m.dimensions)
		for j := 0; j < m.dimensions; j++ {
			offset := (j * 4) % (len(hash) - 4)
			val := binary.BigEndian.Uint32(hash[offset : offset+4])
			// Normalize to [-1, 1].
			embedding[j] = (float32(val)/float32(1<<32))*2.0 - 1.0
		}
		embeddings[i] = embedding
	}
	return embeddings, nil
}

// Dimensions returns the configured vector size.
func (m *Mock) Dimensions() int { return m.dimensions }

// Name identifies the provider.
func (m *Mock) Name() string { return "mock" }

// Available always reports true.
func (m *Mock) Available(ctx context.Context) bool { return true }
