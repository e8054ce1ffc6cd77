package driven

import (
	"context"

	"github.com/custodia-labs/documind/internal/core/domain"
)

// VectorIndex stores chunk vectors with payload and answers filtered
// nearest-neighbour queries scoped to a single document.
type VectorIndex interface {
	// EnsureReady idempotently creates the collection and the document id
	// payload index. Run once at startup, not per request. Returns
	// domain.ErrDimensionMismatch if an existing collection was created
	// with a different dimension.
	EnsureReady(ctx context.Context, dimensions int) error

	// Upsert writes vector+payload for each entry.
	Upsert(ctx context.Context, entries []domain.IndexEntry) error

	// Search returns the topK entries for the document ranked by
	// descending similarity. Ties are broken by ascending ordinal so
	// identical inputs give identical results. An empty documentID
	// searches every document.
	Search(ctx context.Context, vector []float32, documentID string, topK int) ([]domain.ScoredEntry, error)

	// DeleteByDocument removes every entry belonging to the document.
	DeleteByDocument(ctx context.Context, documentID string) error

	// CountByDocument returns the number of entries stored for the
	// document. The ingestion coordinator uses this to verify a complete
	// index before marking a document completed.
	CountByDocument(ctx context.Context, documentID string) (int, error)

	// Close releases resources.
	Close() error
}
