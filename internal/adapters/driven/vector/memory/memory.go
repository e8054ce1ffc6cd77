// Package memory provides an in-memory vector index for tests and
// single-process development runs.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/documind/internal/core/domain"
	"github.com/custodia-labs/documind/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index is an in-memory vector index using exact cosine similarity.
type Index struct {
	mu         sync.RWMutex
	dimensions int
	entries    map[string]domain.IndexEntry // keyed by chunk ID
}

// NewIndex creates an empty in-memory index.
func NewIndex() *Index {
	return &Index{
		entries: make(map[string]domain.IndexEntry),
	}
}

// EnsureReady records the expected dimension. A second call with a
// different dimension fails.
func (x *Index) EnsureReady(_ context.Context, dimensions int) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.dimensions != 0 && x.dimensions != dimensions {
		return domain.ErrDimensionMismatch
	}
	x.dimensions = dimensions
	return nil
}

// Upsert stores entries, replacing any with the same chunk ID.
func (x *Index) Upsert(_ context.Context, entries []domain.IndexEntry) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	for _, entry := range entries {
		if x.dimensions != 0 && len(entry.Vector) != x.dimensions {
			return domain.ErrDimensionMismatch
		}
		x.entries[entry.ChunkID] = entry
	}
	return nil
}

// Search scans the document's entries and returns the topK by cosine
// similarity, ties broken by ascending ordinal. An empty documentID
// searches every document.
func (x *Index) Search(_ context.Context, vector []float32, documentID string, topK int) ([]domain.ScoredEntry, error) {
	if topK <= 0 {
		topK = 4
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	results := make([]domain.ScoredEntry, 0)
	for _, entry := range x.entries {
		if documentID != "" && entry.DocumentID != documentID {
			continue
		}
		results = append(results, domain.ScoredEntry{
			Entry: entry,
			Score: cosineSimilarity(vector, entry.Vector),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Entry.Ordinal < results[j].Entry.Ordinal
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// DeleteByDocument removes every entry belonging to the document.
func (x *Index) DeleteByDocument(_ context.Context, documentID string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	for id, entry := range x.entries {
		if entry.DocumentID == documentID {
			delete(x.entries, id)
		}
	}
	return nil
}

// CountByDocument returns the number of entries for the document.
func (x *Index) CountByDocument(_ context.Context, documentID string) (int, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	count := 0
	for _, entry := range x.entries {
		if entry.DocumentID == documentID {
			count++
		}
	}
	return count, nil
}

// Close releases resources.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.entries = make(map[string]domain.IndexEntry)
	return nil
}

// cosineSimilarity returns the cosine of the angle between a and b,
// or 0 when either vector is zero or the lengths differ.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
