package vectorstore

import (
	"context"
	"errors"
	"time"

	"github.com/mvp-joe/codectx/internal/chunker"
)

var (
	// ErrInvalidArgument marks failures caught by input validation,
	// before any network call is attempted.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound marks operations against a collection that does not
	// exist. Search swallows it (missing collection yields no results);
	// other operations surface it.
	ErrNotFound = errors.New("not found")
)

// SearchResult is one similarity-search hit.
type SearchResult struct {
	ID      string
	Score   float32
	Payload map[string]any
}

// CollectionInfo describes a collection.
type CollectionInfo struct {
	Name       string
	VectorSize int
	Points     int64
	Status     string
}

// Store is the operation contract the indexing pipeline requires from a
// vector database. The REST Client and the embedded ChromemStore both
// implement it.
type Store interface {
	// CreateCollectionIfNotExists creates the collection when missing
	// and reports whether it was created.
	CreateCollectionIfNotExists(ctx context.Context, name string, vectorSize int) (bool, error)

	// UpsertChunks writes chunks and their vectors, batched internally.
	// chunks and vectors must have equal length; chunk IDs are stable,
	// so re-upserting a span overwrites instead of duplicating.
	UpsertChunks(ctx context.Context, collection string, chunks []chunker.Chunk, vectors [][]float32) error

	// Search returns the most similar points. A missing collection or a
	// non-positive limit yields an empty result, not an error.
	Search(ctx context.Context, collection string, vector []float32, limit int, filter map[string]any) ([]SearchResult, error)

	// DeleteByFile removes every point belonging to one file.
	DeleteByFile(ctx context.Context, collection, filePath string) error

	GetCollectionInfo(ctx context.Context, name string) (*CollectionInfo, error)
	GetCollections(ctx context.Context) ([]string, error)
	DeleteCollection(ctx context.Context, name string) error

	// HealthCheck is a cheap liveness probe. Results are cached briefly
	// unless forceRefresh is set.
	HealthCheck(ctx context.Context, forceRefresh bool) bool
}

// RetryConfig shapes the exponential backoff applied to retryable
// failures (timeouts, connection resets, 5xx responses).
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
}

// Config configures the REST client.
type Config struct {
	// URL is the base address of the vector store, e.g.
	// http://127.0.0.1:6333.
	URL string

	// BatchSize caps points per upsert request.
	BatchSize int

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// HealthCacheTTL is how long a health probe result is reused.
	HealthCacheTTL time.Duration

	Retry RetryConfig
}

// DefaultConfig returns production defaults for a local store.
func DefaultConfig(url string) Config {
	return Config{
		URL:            url,
		BatchSize:      100,
		Timeout:        30 * time.Second,
		HealthCacheTTL: 5 * time.Second,
		Retry: RetryConfig{
			MaxRetries: 3,
			BaseDelay:  500 * time.Millisecond,
			MaxDelay:   10 * time.Second,
			Multiplier: 2.0,
		},
	}
}
