package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/maypok86/otter"
)

// DefaultCacheCapacity bounds the in-memory embedding cache. At 384
// float32 dimensions this is roughly 150 MB worst case.
const DefaultCacheCapacity = 100_000

// Cached wraps a provider with a content-hash cache, so re-indexing an
// unchanged chunk never hits the backend twice.
type Cached struct {
	inner Provider
	cache otter.Cache[string, []float32]
}

// NewCached creates a caching wrapper around inner. capacity <= 0 uses
// DefaultCacheCapacity.
func NewCached(inner Provider, capacity int) (*Cached, error) {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	cache, err := otter.MustBuilder[string, []float32](capacity).Build()
	if err != nil {
		return nil, err
	}
	return &Cached{inner: inner, cache: cache}, nil
}

// Embed serves cache hits locally and forwards only the misses to the
// inner provider, preserving input order in the result.
func (c *Cached) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		if vector, ok := c.cache.Get(c.key(text)); ok {
			results[i] = vector
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return results, nil
	}

	vectors, err := c.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missTexts) {
		return nil, &alignmentError{want: len(missTexts), got: len(vectors)}
	}

	for i, vector := range vectors {
		results[missIdx[i]] = vector
		c.cache.Set(c.key(missTexts[i]), vector)
	}
	return results, nil
}

// key scopes cache entries to the inner provider and model, so switching
// models never serves stale vectors.
func (c *Cached) key(text string) string {
	hash := sha256.Sum256([]byte(c.inner.Name() + "\x00" + text))
	return hex.EncodeToString(hash[:])
}

// Dimensions returns the inner provider's vector size.
func (c *Cached) Dimensions() int { return c.inner.Dimensions() }

// Name identifies the inner provider; the cache is transparent.
func (c *Cached) Name() string { return c.inner.Name() }

// Available defers to the inner provider.
func (c *Cached) Available(ctx context.Context) bool { return c.inner.Available(ctx) }

// Close releases the cache's resources.
func (c *Cached) Close() {
	c.cache.Close()
}
