package domain

import "time"

// Status is the processing state of a document. Transitions are strictly
// forward: queued -> processing -> completed or failed.
type Status string

// Document processing states.
const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusQueued, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether moving from s to next is allowed.
// Backward moves and skipping the processing state are forbidden.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusQueued:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}

// Document represents an uploaded PDF and its processing lifecycle.
// It is created on upload and mutated only through the ingestion
// coordinator and the document store's compare-and-set transitions.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Filename is the original name of the uploaded file.
	Filename string

	// Size is the uploaded byte size.
	Size int64

	// Pages is the page count, known after text extraction.
	Pages int

	// Status is the current processing state.
	Status Status

	// Error holds the failure detail. Empty unless Status is failed.
	Error string

	// UploadedAt is when the document was submitted.
	UploadedAt time.Time
}

// Page is one page of extracted text, before chunking.
type Page struct {
	// Number is the 1-based page number.
	Number int

	// Text is the raw extracted text for the page.
	Text string
}

// Chunk is a bounded, page-provenanced segment of document text.
// It is the unit of embedding and retrieval.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the owning Document.
	DocumentID string

	// Page is the 1-based source page number.
	Page int

	// Ordinal is the 0-based position within the document. Ordinals are
	// contiguous per document and define document order.
	Ordinal int

	// Content is the chunk text.
	Content string

	// Embedding is the vector representation, populated after embedding.
	Embedding []float32
}

// IndexEntry is the vector-store projection of a Chunk: its vector plus
// the payload needed to answer filtered searches without a second lookup.
type IndexEntry struct {
	// ChunkID identifies the point in the vector collection.
	ChunkID string

	// DocumentID scopes the entry for filtered search.
	DocumentID string

	// Page is the 1-based source page number.
	Page int

	// Ordinal is the chunk's position within the document.
	Ordinal int

	// Content is the chunk text carried as payload.
	Content string

	// Vector is the embedding.
	Vector []float32
}

// ScoredEntry is a similarity search hit.
type ScoredEntry struct {
	// Entry is the matched index entry (vector omitted by some gateways).
	Entry IndexEntry

	// Score is the similarity score, higher is more relevant.
	Score float64
}
