package driven

import (
	"context"

	"github.com/custodia-labs/documind/internal/core/domain"
)

// DocumentStore persists documents, chunks, and the authoritative
// processing status of each document.
type DocumentStore interface {
	// SaveDocument stores a new document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID.
	// Returns domain.ErrNotFound if it does not exist.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// ListDocuments returns all documents, newest first.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// UpdateStatus transitions a document from one status to another as a
	// single compare-and-set. errDetail is recorded when to is failed.
	// Returns domain.ErrConflict if the current status is not from, and
	// domain.ErrNotFound if the document was deleted.
	UpdateStatus(ctx context.Context, id string, from, to domain.Status, errDetail string) error

	// SetPages records the extracted page count.
	SetPages(ctx context.Context, id string, pages int) error

	// SaveChunks stores chunks for a document.
	SaveChunks(ctx context.Context, chunks []domain.Chunk) error

	// GetChunks retrieves a document's chunks ordered by ordinal.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// CountChunks returns the number of chunks stored for a document.
	CountChunks(ctx context.Context, documentID string) (int, error)

	// DeleteDocument removes a document and its chunks.
	DeleteDocument(ctx context.Context, id string) error
}
