package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/codectx/internal/chunker"
)

func TestChromemRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewChromemStore()
	ctx := context.Background()

	created, err := store.CreateCollectionIfNotExists(ctx, "code", 3)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.CreateCollectionIfNotExists(ctx, "code", 3)
	require.NoError(t, err)
	assert.False(t, created)

	chunks := []chunker.Chunk{
		{
			ID:       chunker.ID("a.go", 0, 10),
			FilePath: "a.go",
			Language: "go",
			Type:     chunker.TypeFunction,
			Name:     "Alpha",
			Content:  "func Alpha() {}",
		},
		{
			ID:       chunker.ID("b.go", 0, 10),
			FilePath: "b.go",
			Language: "go",
			Type:     chunker.TypeFunction,
			Name:     "Beta",
			Content:  "func Beta() {}",
		},
	}
	vectors := [][]float32{{1, 0, 0}, {0, 1, 0}}
	require.NoError(t, store.UpsertChunks(ctx, "code", chunks, vectors))

	info, err := store.GetCollectionInfo(ctx, "code")
	require.NoError(t, err)
	assert.EqualValues(t, 2, info.Points)
	assert.Equal(t, 3, info.VectorSize)

	// A query along the first axis ranks Alpha first.
	results, err := store.Search(ctx, "code", []float32{1, 0, 0}, 10, nil)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, chunks[0].ID, results[0].ID)
	assert.Equal(t, "a.go", results[0].Payload["file_path"])
	assert.Equal(t, "func Alpha() {}", results[0].Payload["content"])
}

func TestChromemSearchMissingCollection(t *testing.T) {
	t.Parallel()

	store := NewChromemStore()
	results, err := store.Search(context.Background(), "ghost", []float32{1}, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestChromemSearchLimitClamped(t *testing.T) {
	t.Parallel()

	store := NewChromemStore()
	ctx := context.Background()
	_, err := store.CreateCollectionIfNotExists(ctx, "code", 2)
	require.NoError(t, err)

	chunks := []chunker.Chunk{{
		ID:       chunker.ID("a.go", 0, 5),
		FilePath: "a.go",
		Content:  "x",
	}}
	require.NoError(t, store.UpsertChunks(ctx, "code", chunks, [][]float32{{1, 0}}))

	// Limit above the point count must not error.
	results, err := store.Search(ctx, "code", []float32{1, 0}, 50, nil)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestChromemDeleteByFile(t *testing.T) {
	t.Parallel()

	store := NewChromemStore()
	ctx := context.Background()
	_, err := store.CreateCollectionIfNotExists(ctx, "code", 2)
	require.NoError(t, err)

	chunks := []chunker.Chunk{
		{ID: chunker.ID("keep.go", 0, 5), FilePath: "keep.go", Content: "a"},
		{ID: chunker.ID("drop.go", 0, 5), FilePath: "drop.go", Content: "b"},
		{ID: chunker.ID("drop.go", 6, 9), FilePath: "drop.go", Content: "c"},
	}
	vectors := [][]float32{{1, 0}, {0, 1}, {1, 1}}
	require.NoError(t, store.UpsertChunks(ctx, "code", chunks, vectors))

	require.NoError(t, store.DeleteByFile(ctx, "code", "drop.go"))

	info, err := store.GetCollectionInfo(ctx, "code")
	require.NoError(t, err)
	assert.EqualValues(t, 1, info.Points, "only keep.go survives")

	results, err := store.Search(ctx, "code", []float32{1, 0}, 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "keep.go", results[0].Payload["file_path"])
}

func TestChromemCollectionManagement(t *testing.T) {
	t.Parallel()

	store := NewChromemStore()
	ctx := context.Background()

	for _, name := range []string{"beta", "alpha"} {
		_, err := store.CreateCollectionIfNotExists(ctx, name, 2)
		require.NoError(t, err)
	}

	names, err := store.GetCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, names)

	require.NoError(t, store.DeleteCollection(ctx, "beta"))
	names, err = store.GetCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha"}, names)
}
