package embed

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	// DefaultOpenAIModel is the default hosted embedding model.
	DefaultOpenAIModel = "text-embedding-3-small"

	// defaultOpenAIDimensions is the native size of text-embedding-3-small.
	defaultOpenAIDimensions = 1536
)

// OpenAI embeds text through the hosted OpenAI embeddings API.
type OpenAI struct {
	client     openai.Client
	model      string
	dimensions int
}

// NewOpenAI creates an OpenAI-backed provider. Empty model and zero
// dimensions fall back to the defaults above.
func NewOpenAI(apiKey, model string, dimensions int) *OpenAI {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if dimensions <= 0 {
		dimensions = defaultOpenAIDimensions
	}
	return &OpenAI{
		client:     openai.NewClient(option.WithAPIKey(apiKey)),
		model:      model,
		dimensions: dimensions,
	}
}

// Embed generates embeddings for a batch of texts in input order.
func (o *OpenAI) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(o.model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Dimensions: openai.Int(int64(o.dimensions)),
	}

	resp, err := o.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai returned %d embeddings for %d inputs", len(resp.Data), len(texts))
	}

	embeddings := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		vector := make([]float32, len(data.Embedding))
		for j, v := range data.Embedding {
			vector[j] = float32(v)
		}
		embeddings[i] = vector
	}
	return embeddings, nil
}

// Dimensions returns the configured vector size.
func (o *OpenAI) Dimensions() int { return o.dimensions }

// Name identifies the provider and model.
func (o *OpenAI) Name() string { return "openai/" + o.model }

// Available reports whether the API accepts the configured credentials
// and knows the configured model.
func (o *OpenAI) Available(ctx context.Context) bool {
	_, err := o.client.Models.Get(ctx, o.model)
	return err == nil
}
