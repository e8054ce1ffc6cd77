package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Document and query embedding are separate operations because providers
// may use asymmetric representations for the two modes (Nomic task types,
// for instance). The two must never be conflated.
//
// Note: this is separate from VectorIndex, which stores and searches
// vectors. EmbeddingService generates them.
type EmbeddingService interface {
	// EmbedDocuments generates embeddings for document chunks.
	// The result is index-aligned with texts.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a search query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size (e.g., 768, 1536).
	// This is fixed per provider configuration and must match the
	// VectorIndex collection before the first write.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable with a lightweight request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
