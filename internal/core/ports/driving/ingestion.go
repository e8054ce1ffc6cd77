package driving

import (
	"context"

	"github.com/custodia-labs/documind/internal/core/domain"
)

// IngestionService owns the per-document lifecycle from upload to a
// queryable index.
type IngestionService interface {
	// Submit validates and accepts an upload, enqueues exactly one
	// processing job, and returns immediately. Returns
	// domain.ErrInvalidInput for non-PDF or oversized content.
	Submit(ctx context.Context, content []byte, filename string) (*domain.Document, error)

	// Status returns the document's current lifecycle state. It is a
	// cheap read, safe to call at high frequency from concurrent pollers.
	Status(ctx context.Context, id string) (*domain.Document, error)

	// List returns all documents, newest first.
	List(ctx context.Context) ([]domain.Document, error)

	// Delete removes the document, its chunks, its index entries, and the
	// stored blob. A mid-flight job detects the deletion and aborts.
	Delete(ctx context.Context, id string) error
}
