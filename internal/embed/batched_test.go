package embed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyProvider fails specific batch calls by call number.
type flakyProvider struct {
	dims      int
	calls     int
	failCalls map[int]bool
}

func (p *flakyProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	p.calls++
	if p.failCalls[p.calls] {
		return nil, errors.New("backend unavailable")
	}
	out := make([][]float32, len(texts))
	for i := range out {
		vec := make([]float32, p.dims)
		vec[0] = 1
		out[i] = vec
	}
	return out, nil
}

func (p *flakyProvider) Dimensions() int                    { return p.dims }
func (p *flakyProvider) Name() string                       { return "flaky" }
func (p *flakyProvider) Available(ctx context.Context) bool { return true }

func TestEmbedBatchedSplitsIntoBatches(t *testing.T) {
	t.Parallel()

	provider := &flakyProvider{dims: 4}
	texts := make([]string, 125)
	for i := range texts {
		texts[i] = "chunk"
	}

	vectors, report, err := EmbedBatched(context.Background(), provider, texts, 50)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Batches)
	assert.Equal(t, 3, provider.calls)
	assert.Len(t, vectors, 125)
	assert.Empty(t, report.Failures)
	assert.Equal(t, 125, report.Succeeded(125))
}

func TestEmbedBatchedFailedBatchGetsZeroVectors(t *testing.T) {
	t.Parallel()

	provider := &flakyProvider{dims: 4, failCalls: map[int]bool{2: true}}
	texts := make([]string, 25)
	for i := range texts {
		texts[i] = "chunk"
	}

	vectors, report, err := EmbedBatched(context.Background(), provider, texts, 10)
	require.NoError(t, err)
	require.Len(t, vectors, 25)

	// Batch 2 covers inputs [10,20): zero vectors of the right size.
	for i := 10; i < 20; i++ {
		require.Len(t, vectors[i], 4)
		assert.Equal(t, float32(0), vectors[i][0])
	}
	// Surrounding batches succeeded.
	assert.Equal(t, float32(1), vectors[9][0])
	assert.Equal(t, float32(1), vectors[20][0])

	require.Len(t, report.Failures, 1)
	assert.Equal(t, 10, report.Failures[0].Start)
	assert.Equal(t, 20, report.Failures[0].End)
	assert.Equal(t, 15, report.Succeeded(25))
}

func TestEmbedBatchedMisalignedProvider(t *testing.T) {
	t.Parallel()

	provider := &misalignedProvider{dims: 4}
	vectors, report, err := EmbedBatched(context.Background(), provider, []string{"a", "b", "c"}, 10)
	require.NoError(t, err)

	// Misalignment is treated as a batch failure, not silently accepted.
	require.Len(t, report.Failures, 1)
	require.Len(t, vectors, 3)
	for _, vec := range vectors {
		assert.Len(t, vec, 4)
	}
}

type misalignedProvider struct{ dims int }

func (p *misalignedProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return [][]float32{{1, 2, 3, 4}}, nil
}
func (p *misalignedProvider) Dimensions() int                    { return p.dims }
func (p *misalignedProvider) Name() string                       { return "misaligned" }
func (p *misalignedProvider) Available(ctx context.Context) bool { return true }

func TestEmbedBatchedContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := EmbedBatched(ctx, &flakyProvider{dims: 4}, []string{"a"}, 10)
	require.ErrorIs(t, err, context.Canceled)
}

func TestEmbedBatchedEmptyInput(t *testing.T) {
	t.Parallel()

	vectors, report, err := EmbedBatched(context.Background(), &flakyProvider{dims: 4}, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, vectors)
	assert.Equal(t, 0, report.Batches)
}
