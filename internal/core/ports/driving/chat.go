package driving

import (
	"context"

	"github.com/custodia-labs/documind/internal/core/domain"
)

// ChatService answers queries against a completed document with cited
// page sources. It is stateless: each call is computed purely from the
// query, document id, and caller-supplied history.
type ChatService interface {
	// Answer retrieves relevant chunks and produces a grounded answer.
	// Returns domain.ErrNotFound for an unknown document and
	// domain.ErrNotReady when the document is not completed.
	Answer(ctx context.Context, query, documentID string, history []domain.Turn) (*domain.Answer, error)

	// Search returns the raw ranked chunks for a query without answer
	// generation. An empty documentID searches across every document.
	Search(ctx context.Context, query, documentID string, limit int) ([]domain.ScoredEntry, error)
}
