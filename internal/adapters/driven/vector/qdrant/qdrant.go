// Package qdrant provides a vector index gateway backed by the Qdrant
// REST API. One logical collection holds every document's entries;
// searches are filtered by document id through a keyword payload index.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/documind/internal/core/domain"
	"github.com/custodia-labs/documind/internal/core/ports/driven"
	"github.com/custodia-labs/documind/internal/logger"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Default configuration values.
const (
	DefaultCollection = "documind_chunks"
	DefaultTimeout    = 15 * time.Second
)

// Config holds configuration for the Qdrant gateway.
type Config struct {
	// URL is the Qdrant base URL, e.g. http://localhost:6333 (required).
	URL string

	// APIKey authenticates requests when the instance requires it.
	APIKey string

	// Collection is the collection name (default: documind_chunks).
	Collection string

	// Timeout is the per-request timeout (default: 15s).
	Timeout time.Duration
}

// Index is a Qdrant-backed vector index.
type Index struct {
	client     *http.Client
	url        string
	apiKey     string
	collection string
}

// NewIndex creates a Qdrant gateway.
func NewIndex(cfg Config) (*Index, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("qdrant: URL is required")
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Index{
		client:     &http.Client{Timeout: cfg.Timeout},
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
	}, nil
}

// collectionInfo is the subset of the collection response we inspect.
type collectionInfo struct {
	Result struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size int `json:"size"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	} `json:"result"`
}

// EnsureReady idempotently creates the collection (cosine distance) and
// the document_id keyword payload index. Safe to call on every startup.
func (x *Index) EnsureReady(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("qdrant: invalid dimension %d", dimensions)
	}

	// Existing collection with a different dimension is a configuration
	// error, not something to silently recreate.
	var info collectionInfo
	status, err := x.do(ctx, http.MethodGet, x.collectionPath(""), nil, &info)
	if err != nil {
		return err
	}
	switch {
	case status == http.StatusOK:
		if got := info.Result.Config.Params.Vectors.Size; got != dimensions {
			return fmt.Errorf("%w: collection has %d, embedder produces %d",
				domain.ErrDimensionMismatch, got, dimensions)
		}
	case status == http.StatusNotFound:
		body := map[string]any{
			"vectors": map[string]any{
				"size":     dimensions,
				"distance": "Cosine",
			},
		}
		if status, err = x.do(ctx, http.MethodPut, x.collectionPath(""), body, nil); err != nil {
			return err
		}
		if status != http.StatusOK {
			return fmt.Errorf("qdrant: create collection returned status %d", status)
		}
		logger.Info("created qdrant collection %s (dim %d)", x.collection, dimensions)
	default:
		return fmt.Errorf("qdrant: get collection returned status %d", status)
	}

	// Payload index on document_id makes filtered search correct and
	// cheap. Creating it again is a no-op.
	body := map[string]any{
		"field_name":   "document_id",
		"field_schema": "keyword",
	}
	status, err = x.do(ctx, http.MethodPut, x.collectionPath("/index"), body, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusConflict {
		return fmt.Errorf("qdrant: create payload index returned status %d", status)
	}

	return nil
}

// Upsert writes vector+payload points, waiting for them to be persisted
// so a subsequent count sees every write.
func (x *Index) Upsert(ctx context.Context, entries []domain.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}

	points := make([]map[string]any, len(entries))
	for i, entry := range entries {
		points[i] = map[string]any{
			"id":     entry.ChunkID,
			"vector": entry.Vector,
			"payload": map[string]any{
				"document_id": entry.DocumentID,
				"page":        entry.Page,
				"ordinal":     entry.Ordinal,
				"content":     entry.Content,
			},
		}
	}

	status, err := x.do(ctx, http.MethodPut, x.collectionPath("/points?wait=true"), map[string]any{"points": points}, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("qdrant: upsert returned status %d", status)
	}
	return nil
}

// searchResponse is the points/search response format.
type searchResponse struct {
	Result []struct {
		Score   float64        `json:"score"`
		Payload map[string]any `json:"payload"`
	} `json:"result"`
}

// Search returns the topK entries for the document, ranked by descending
// similarity with ties broken by ascending ordinal. An empty documentID
// searches the whole collection.
func (x *Index) Search(ctx context.Context, vector []float32, documentID string, topK int) ([]domain.ScoredEntry, error) {
	if topK <= 0 {
		topK = 4
	}

	body := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	if documentID != "" {
		body["filter"] = documentFilter(documentID)
	}

	var resp searchResponse
	status, err := x.do(ctx, http.MethodPost, x.collectionPath("/points/search"), body, &resp)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("qdrant: search returned status %d", status)
	}

	results := make([]domain.ScoredEntry, 0, len(resp.Result))
	for _, hit := range resp.Result {
		entry := domain.IndexEntry{DocumentID: documentID}
		if v, ok := hit.Payload["document_id"].(string); ok {
			entry.DocumentID = v
		}
		if v, ok := hit.Payload["page"].(float64); ok {
			entry.Page = int(v)
		}
		if v, ok := hit.Payload["ordinal"].(float64); ok {
			entry.Ordinal = int(v)
		}
		if v, ok := hit.Payload["content"].(string); ok {
			entry.Content = v
		}
		results = append(results, domain.ScoredEntry{Entry: entry, Score: hit.Score})
	}

	// Qdrant orders by score; re-sort for deterministic tie-breaking.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Entry.Ordinal < results[j].Entry.Ordinal
	})

	return results, nil
}

// DeleteByDocument removes every point belonging to the document.
func (x *Index) DeleteByDocument(ctx context.Context, documentID string) error {
	body := map[string]any{"filter": documentFilter(documentID)}

	status, err := x.do(ctx, http.MethodPost, x.collectionPath("/points/delete?wait=true"), body, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("qdrant: delete by document returned status %d", status)
	}
	return nil
}

// countResponse is the points/count response format.
type countResponse struct {
	Result struct {
		Count int `json:"count"`
	} `json:"result"`
}

// CountByDocument returns the exact number of points for the document.
func (x *Index) CountByDocument(ctx context.Context, documentID string) (int, error) {
	body := map[string]any{
		"filter": documentFilter(documentID),
		"exact":  true,
	}

	var resp countResponse
	status, err := x.do(ctx, http.MethodPost, x.collectionPath("/points/count"), body, &resp)
	if err != nil {
		return 0, err
	}
	if status != http.StatusOK {
		return 0, fmt.Errorf("qdrant: count returned status %d", status)
	}
	return resp.Result.Count, nil
}

// Ping checks the instance is reachable.
func (x *Index) Ping(ctx context.Context) error {
	status, err := x.do(ctx, http.MethodGet, x.url+"/collections", nil, nil)
	if err != nil {
		return fmt.Errorf("qdrant: ping failed: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("qdrant: ping returned status %d", status)
	}
	return nil
}

// Close releases resources.
func (x *Index) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}

func (x *Index) collectionPath(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", x.url, x.collection, suffix)
}

// documentFilter builds the must-match filter on document_id.
func documentFilter(documentID string) map[string]any {
	return map[string]any{
		"must": []map[string]any{
			{
				"key":   "document_id",
				"match": map[string]any{"value": documentID},
			},
		},
	}
}

// do issues one JSON request and optionally decodes the response into
// out. It returns the HTTP status so callers can treat 404/409 as
// signals rather than failures.
func (x *Index) do(ctx context.Context, method, url string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if x.apiKey != "" {
		req.Header.Set("api-key", x.apiKey)
	}

	resp, err := x.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrTransientProvider, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}

	return resp.StatusCode, nil
}
