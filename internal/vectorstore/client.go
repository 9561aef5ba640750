package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/mvp-joe/codectx/internal/chunker"
)

// Client talks to a Qdrant-compatible vector store over its REST API.
// All operations validate their inputs before any network call; retryable
// transport failures are retried with exponential backoff.
type Client struct {
	cfg  Config
	http *http.Client

	healthMu    sync.Mutex
	lastHealthy bool
	lastProbe   time.Time
}

// NewClient creates a REST client. Zero config fields are filled with the
// DefaultConfig values.
func NewClient(cfg Config) *Client {
	defaults := DefaultConfig(cfg.URL)
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaults.BatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.HealthCacheTTL <= 0 {
		cfg.HealthCacheTTL = defaults.HealthCacheTTL
	}
	if cfg.Retry.MaxRetries <= 0 {
		cfg.Retry.MaxRetries = defaults.Retry.MaxRetries
	}
	if cfg.Retry.BaseDelay <= 0 {
		cfg.Retry.BaseDelay = defaults.Retry.BaseDelay
	}
	if cfg.Retry.MaxDelay <= 0 {
		cfg.Retry.MaxDelay = defaults.Retry.MaxDelay
	}
	if cfg.Retry.Multiplier <= 0 {
		cfg.Retry.Multiplier = defaults.Retry.Multiplier
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")

	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// CreateCollectionIfNotExists creates the collection when it is missing.
// Returns true when a collection was created.
func (c *Client) CreateCollectionIfNotExists(ctx context.Context, name string, vectorSize int) (bool, error) {
	if name == "" {
		return false, fmt.Errorf("%w: collection name is empty", ErrInvalidArgument)
	}
	if vectorSize <= 0 {
		return false, fmt.Errorf("%w: vector size must be positive, got %d", ErrInvalidArgument, vectorSize)
	}

	_, err := c.GetCollectionInfo(ctx, name)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return false, err
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}
	if err := c.do(ctx, http.MethodPut, "/collections/"+name, body, nil); err != nil {
		return false, fmt.Errorf("create collection %s: %w", name, err)
	}
	return true, nil
}

type pointStruct struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

// UpsertChunks validates and writes chunks with their vectors, one
// request per batch of BatchSize points. A batch failure after retries
// fails the whole call; no partial success is reported.
func (c *Client) UpsertChunks(ctx context.Context, collection string, chunks []chunker.Chunk, vectors [][]float32) error {
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

	for start := 0; start < len(chunks); start += c.cfg.BatchSize {
		end := start + c.cfg.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		points := make([]pointStruct, 0, end-start)
		for i := start; i < end; i++ {
			points = append(points, pointStruct{
				ID:      chunks[i].ID,
				Vector:  vectors[i],
				Payload: chunkPayload(chunks[i]),
			})
		}

		body := map[string]any{"points": points}
		if err := c.do(ctx, http.MethodPut, "/collections/"+collection+"/points?wait=true", body, nil); err != nil {
			return fmt.Errorf("upsert batch %d-%d into %s: %w", start, end, collection, err)
		}
	}
	return nil
}

func chunkPayload(chunk chunker.Chunk) map[string]any {
	payload := map[string]any{
		"file_path":  chunk.FilePath,
		"language":   string(chunk.Language),
		"chunk_type": string(chunk.Type),
		"start_line": chunk.StartLine,
		"end_line":   chunk.EndLine,
		"content":    chunk.Content,
		"node_kind":  chunk.Metadata.NodeKind,
		"has_error":  chunk.Metadata.HasError,
	}
	if chunk.Name != "" {
		payload["name"] = chunk.Name
	}
	if chunk.Signature != "" {
		payload["signature"] = chunk.Signature
	}
	if chunk.Docstring != "" {
		payload["docstring"] = chunk.Docstring
	}
	return payload
}

type searchHit struct {
	ID      json.RawMessage `json:"id"`
	Score   float32         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

// Search runs a similarity query. A missing collection or non-positive
// limit returns an empty slice, not an error.
func (c *Client) Search(ctx context.Context, collection string, vector []float32, limit int, filter map[string]any) ([]SearchResult, error) {
	if collection == "" {
		return nil, fmt.Errorf("%w: collection name is empty", ErrInvalidArgument)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: query vector is empty", ErrInvalidArgument)
	}
	if limit <= 0 {
		return []SearchResult{}, nil
	}

	body := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	if len(filter) > 0 {
		body["filter"] = filter
	}

	var hits []searchHit
	err := c.do(ctx, http.MethodPost, "/collections/"+collection+"/points/search", body, &hits)
	if errors.Is(err, ErrNotFound) {
		return []SearchResult{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", collection, err)
	}

	results := make([]SearchResult, 0, len(hits))
	for _, hit := range hits {
		results = append(results, SearchResult{
			ID:      strings.Trim(string(hit.ID), `"`),
			Score:   hit.Score,
			Payload: hit.Payload,
		})
	}
	return results, nil
}

// DeleteByFile removes every point whose payload names the given file.
func (c *Client) DeleteByFile(ctx context.Context, collection, filePath string) error {
	if collection == "" {
		return fmt.Errorf("%w: collection name is empty", ErrInvalidArgument)
	}
	if filePath == "" {
		return fmt.Errorf("%w: file path is empty", ErrInvalidArgument)
	}

	body := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": "file_path", "match": map[string]any{"value": filePath}},
			},
		},
	}
	if err := c.do(ctx, http.MethodPost, "/collections/"+collection+"/points/delete?wait=true", body, nil); err != nil {
		return fmt.Errorf("delete points for %s in %s: %w", filePath, collection, err)
	}
	return nil
}

type collectionInfoResult struct {
	Status      string `json:"status"`
	PointsCount int64  `json:"points_count"`
	Config      struct {
		Params struct {
			Vectors struct {
				Size int `json:"size"`
			} `json:"vectors"`
		} `json:"params"`
	} `json:"config"`
}

// GetCollectionInfo fetches collection metadata. A missing collection
// yields ErrNotFound.
func (c *Client) GetCollectionInfo(ctx context.Context, name string) (*CollectionInfo, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: collection name is empty", ErrInvalidArgument)
	}

	var result collectionInfoResult
	if err := c.do(ctx, http.MethodGet, "/collections/"+name, nil, &result); err != nil {
		return nil, err
	}
	return &CollectionInfo{
		Name:       name,
		VectorSize: result.Config.Params.Vectors.Size,
		Points:     result.PointsCount,
		Status:     result.Status,
	}, nil
}

type collectionsResult struct {
	Collections []struct {
		Name string `json:"name"`
	} `json:"collections"`
}

// GetCollections lists collection names.
func (c *Client) GetCollections(ctx context.Context) ([]string, error) {
	var result collectionsResult
	if err := c.do(ctx, http.MethodGet, "/collections", nil, &result); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(result.Collections))
	for _, col := range result.Collections {
		names = append(names, col.Name)
	}
	return names, nil
}

// DeleteCollection drops a collection.
func (c *Client) DeleteCollection(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("%w: collection name is empty", ErrInvalidArgument)
	}
	return c.do(ctx, http.MethodDelete, "/collections/"+name, nil, nil)
}

// HealthCheck probes the store's health endpoint. Probe results are
// cached for HealthCacheTTL unless forceRefresh is set.
func (c *Client) HealthCheck(ctx context.Context, forceRefresh bool) bool {
	c.healthMu.Lock()
	defer c.healthMu.Unlock()

	if !forceRefresh && time.Since(c.lastProbe) < c.cfg.HealthCacheTTL {
		return c.lastHealthy
	}

	healthy := c.probeHealth(ctx)
	c.lastHealthy = healthy
	c.lastProbe = time.Now()
	return healthy
}

func (c *Client) probeHealth(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL+"/healthz", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

// envelope is the standard response wrapper: {"status": "ok", "result": ...}.
type envelope struct {
	Status json.RawMessage `json:"status"`
	Result json.RawMessage `json:"result"`
}

// do issues one request with retry. Network failures, timeouts, and 5xx
// responses are retried with exponential backoff per the retry config;
// 4xx responses fail immediately. When out is non-nil the response's
// result field is decoded into it.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
	}

	operation := func() error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.cfg.URL+path, reader)
		if err != nil {
			return backoff.Permanent(err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			// Connection and timeout errors are transient.
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			if out == nil {
				return nil
			}
			var env envelope
			if err := json.Unmarshal(data, &env); err != nil {
				return backoff.Permanent(fmt.Errorf("malformed response: %w", err))
			}
			if err := json.Unmarshal(env.Result, out); err != nil {
				return backoff.Permanent(fmt.Errorf("malformed result: %w", err))
			}
			return nil
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(fmt.Errorf("%w: %s", ErrNotFound, path))
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		default:
			return backoff.Permanent(fmt.Errorf("request failed with %d: %s", resp.StatusCode, strings.TrimSpace(string(data))))
		}
	}

	return backoff.Retry(operation, c.newBackOff(ctx))
}

// newBackOff builds the retry schedule: min(base * multiplier^attempt,
// max) between attempts, capped at MaxRetries retries.
func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.Retry.BaseDelay
	bo.MaxInterval = c.cfg.Retry.MaxDelay
	bo.Multiplier = c.cfg.Retry.Multiplier
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.cfg.Retry.MaxRetries)), ctx)
}
