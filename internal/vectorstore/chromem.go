package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/mvp-joe/codectx/internal/chunker"
)

// ChromemStore is an embedded, in-process Store backed by chromem-go.
// It serves tests and offline runs with the same contract as the REST
// client, including the missing-collection and validation semantics.
type ChromemStore struct {
	db *chromem.DB

	mu    sync.Mutex
	sizes map[string]int
}

// NewChromemStore creates an empty in-memory store.
func NewChromemStore() *ChromemStore {
	return &ChromemStore{
		db:    chromem.NewDB(),
		sizes: make(map[string]int),
	}
}

// CreateCollectionIfNotExists creates the collection when missing.
func (s *ChromemStore) CreateCollectionIfNotExists(ctx context.Context, name string, vectorSize int) (bool, error) {
	if name == "" {
		return false, fmt.Errorf("%w: collection name is empty", ErrInvalidArgument)
	}
	if vectorSize <= 0 {
		return false, fmt.Errorf("%w: vector size must be positive, got %d", ErrInvalidArgument, vectorSize)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db.GetCollection(name, nil) != nil {
		return false, nil
	}
	if _, err := s.db.CreateCollection(name, nil, nil); err != nil {
		return false, err
	}
	s.sizes[name] = vectorSize
	return true, nil
}

// UpsertChunks writes chunks with their vectors.
func (s *ChromemStore) UpsertChunks(ctx context.Context, collection string, chunks []chunker.Chunk, vectors [][]float32) error {
	if collection == "" {
		return fmt.Errorf("%w: collection name is empty", ErrInvalidArgument)
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: %d chunks but %d vectors", ErrInvalidArgument, len(chunks), len(vectors))
	}
	for i, chunk := range chunks {
		if chunk.FilePath == "" {
			return fmt.Errorf("%w: chunk %d has no file path", ErrInvalidArgument, i)
		}
		if chunk.Content == "" {
			return fmt.Errorf("%w: chunk %d (%s) has no content", ErrInvalidArgument, i, chunk.FilePath)
		}
		if len(vectors[i]) == 0 {
			return fmt.Errorf("%w: vector %d is empty", ErrInvalidArgument, i)
		}
	}
	if len(chunks) == 0 {
		return nil
	}

	col := s.db.GetCollection(collection, nil)
	if col == nil {
		return fmt.Errorf("%w: collection %s", ErrNotFound, collection)
	}

	docs := make([]chromem.Document, 0, len(chunks))
	for i, chunk := range chunks {
		docs = append(docs, chromem.Document{
			ID:        chunk.ID,
			Metadata:  chunkMetadata(chunk),
			Embedding: vectors[i],
			Content:   chunk.Content,
		})
	}
	return col.AddDocuments(ctx, docs, 1)
}

func chunkMetadata(chunk chunker.Chunk) map[string]string {
	metadata := map[string]string{
		"file_path":  chunk.FilePath,
		"language":   string(chunk.Language),
		"chunk_type": string(chunk.Type),
		"start_line": strconv.Itoa(chunk.StartLine),
		"end_line":   strconv.Itoa(chunk.EndLine),
	}
	if chunk.Name != "" {
		metadata["name"] = chunk.Name
	}
	return metadata
}

// Search runs a similarity query. Missing collections and non-positive
// limits yield empty results.
func (s *ChromemStore) Search(ctx context.Context, collection string, vector []float32, limit int, filter map[string]any) ([]SearchResult, error) {
	if collection == "" {
		return nil, fmt.Errorf("%w: collection name is empty", ErrInvalidArgument)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: query vector is empty", ErrInvalidArgument)
	}
	if limit <= 0 {
		return []SearchResult{}, nil
	}

	col := s.db.GetCollection(collection, nil)
	if col == nil {
		return []SearchResult{}, nil
	}
	if count := col.Count(); count < limit {
		limit = count
	}
	if limit == 0 {
		return []SearchResult{}, nil
	}

	where := make(map[string]string, len(filter))
	for key, value := range filter {
		where[key] = fmt.Sprint(value)
	}

	hits, err := col.QueryEmbedding(ctx, vector, limit, where, nil)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", collection, err)
	}

	results := make([]SearchResult, 0, len(hits))
	for _, hit := range hits {
		payload := make(map[string]any, len(hit.Metadata)+1)
		for key, value := range hit.Metadata {
			payload[key] = value
		}
		payload["content"] = hit.Content
		results = append(results, SearchResult{
			ID:      hit.ID,
			Score:   hit.Similarity,
			Payload: payload,
		})
	}
	return results, nil
}

// DeleteByFile removes every point belonging to one file.
func (s *ChromemStore) DeleteByFile(ctx context.Context, collection, filePath string) error {
	if collection == "" {
		return fmt.Errorf("%w: collection name is empty", ErrInvalidArgument)
	}
	if filePath == "" {
		return fmt.Errorf("%w: file path is empty", ErrInvalidArgument)
	}

	col := s.db.GetCollection(collection, nil)
	if col == nil {
		return fmt.Errorf("%w: collection %s", ErrNotFound, collection)
	}
	return col.Delete(ctx, map[string]string{"file_path": filePath}, nil)
}

// GetCollectionInfo describes a collection.
func (s *ChromemStore) GetCollectionInfo(ctx context.Context, name string) (*CollectionInfo, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: collection name is empty", ErrInvalidArgument)
	}

	col := s.db.GetCollection(name, nil)
	if col == nil {
		return nil, fmt.Errorf("%w: collection %s", ErrNotFound, name)
	}

	s.mu.Lock()
	size := s.sizes[name]
	s.mu.Unlock()

	return &CollectionInfo{
		Name:       name,
		VectorSize: size,
		Points:     int64(col.Count()),
		Status:     "green",
	}, nil
}

// GetCollections lists collection names in sorted order.
func (s *ChromemStore) GetCollections(ctx context.Context) ([]string, error) {
	collections := s.db.ListCollections()
	names := make([]string, 0, len(collections))
	for name := range collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// DeleteCollection drops a collection.
func (s *ChromemStore) DeleteCollection(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("%w: collection name is empty", ErrInvalidArgument)
	}

	s.mu.Lock()
	delete(s.sizes, name)
	s.mu.Unlock()

	return s.db.DeleteCollection(name)
}

// HealthCheck always reports healthy; the store lives in-process.
func (s *ChromemStore) HealthCheck(ctx context.Context, forceRefresh bool) bool {
	return true
}

var (
	_ Store = (*Client)(nil)
	_ Store = (*ChromemStore)(nil)
)
