package embed

import (
	"context"
	"fmt"
)

// Provider defines the interface for embedding text into vectors.
// Implementations may use local model runners, hosted APIs, or other
// embedding services.
type Provider interface {
	// Embed converts a slice of text strings into their vector
	// representations, one vector per input in the same order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the dimensionality of the vectors this
	// provider produces.
	Dimensions() int

	// Name identifies the provider for logging and error reporting.
	Name() string

	// Available probes the backend and, for local providers, the
	// presence of the configured model.
	Available(ctx context.Context) bool
}

// ModelLister is an optional capability for providers that can enumerate
// the models installed on the backend.
type ModelLister interface {
	Models(ctx context.Context) ([]string, error)
}

// ModelPuller is an optional capability for providers that can provision
// a model on the backend.
type ModelPuller interface {
	Pull(ctx context.Context, model string) error
}

// Config selects and configures an embedding provider.
type Config struct {
	// Provider is "ollama", "openai", or "mock". Empty defaults to ollama.
	Provider string

	// Model is the backend model name.
	Model string

	// Endpoint is the base URL of the embedding service (ollama).
	Endpoint string

	// APIKey authenticates hosted providers (openai).
	APIKey string

	// Dimensions is the expected vector size. Zero uses the provider
	// default.
	Dimensions int
}

// NewProvider creates an embedding provider from configuration.
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "ollama", "":
		return NewOllama(cfg.Endpoint, cfg.Model, cfg.Dimensions), nil
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		return NewOpenAI(cfg.APIKey, cfg.Model, cfg.Dimensions), nil
	case "mock":
		return NewMock(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s (supported: ollama, openai, mock)", cfg.Provider)
	}
}
