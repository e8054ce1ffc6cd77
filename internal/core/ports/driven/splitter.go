package driven

import "github.com/custodia-labs/documind/internal/core/domain"

// ChunkSplitter turns extracted pages into retrieval-sized chunks.
// Splitting is deterministic: the same pages always produce the same
// chunk contents and ordinals.
type ChunkSplitter interface {
	// Split produces the document's chunks in ordinal order.
	Split(documentID string, pages []domain.Page) []domain.Chunk
}
