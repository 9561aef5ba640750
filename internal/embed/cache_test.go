package embed

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingProvider records how many texts reached the backend.
type countingProvider struct {
	inner Provider

	mu    sync.Mutex
	calls int
	texts int
}

func (p *countingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	p.calls++
	p.texts += len(texts)
	p.mu.Unlock()
	return p.inner.Embed(ctx, texts)
}

func (p *countingProvider) Dimensions() int                    { return p.inner.Dimensions() }
func (p *countingProvider) Name() string                       { return p.inner.Name() }
func (p *countingProvider) Available(ctx context.Context) bool { return true }

func TestCachedServesRepeatsLocally(t *testing.T) {
	t.Parallel()

	counting := &countingProvider{inner: NewMock(8)}
	cached, err := NewCached(counting, 100)
	require.NoError(t, err)
	defer cached.Close()

	ctx := context.Background()

	first, err := cached.Embed(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, 3, counting.texts)

	// Two repeats and one new text: only the new text hits the backend.
	second, err := cached.Embed(ctx, []string{"a", "d", "c"})
	require.NoError(t, err)
	assert.Equal(t, 4, counting.texts)

	assert.Equal(t, first[0], second[0])
	assert.Equal(t, first[2], second[2])
}

func TestCachedAllHitsSkipBackend(t *testing.T) {
	t.Parallel()

	counting := &countingProvider{inner: NewMock(8)}
	cached, err := NewCached(counting, 100)
	require.NoError(t, err)
	defer cached.Close()

	ctx := context.Background()
	_, err = cached.Embed(ctx, []string{"x", "y"})
	require.NoError(t, err)

	_, err = cached.Embed(ctx, []string{"y", "x"})
	require.NoError(t, err)
	assert.Equal(t, 1, counting.calls)
}

func TestCachedPreservesOrder(t *testing.T) {
	t.Parallel()

	mock := NewMock(8)
	cached, err := NewCached(&countingProvider{inner: mock}, 100)
	require.NoError(t, err)
	defer cached.Close()

	ctx := context.Background()
	_, err = cached.Embed(ctx, []string{"b"})
	require.NoError(t, err)

	// Mixed hits and misses must come back in input order.
	got, err := cached.Embed(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)

	want, err := mock.Embed(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
