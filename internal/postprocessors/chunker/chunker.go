// Package chunker splits extracted page text into overlapping,
// provenance-tagged segments for embedding and retrieval.
package chunker

import (
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/documind/internal/core/domain"
	"github.com/custodia-labs/documind/internal/core/ports/driven"
)

// Ensure Splitter implements the interface.
var _ driven.ChunkSplitter = (*Splitter)(nil)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters
// between consecutive chunks of the same page.
const DefaultChunkOverlap = 200

// Splitter produces chunks from page text. Splitting is pure and
// deterministic: identical input text yields identical chunk boundaries,
// which is required for reproducible re-indexing.
type Splitter struct {
	chunkSize int
	overlap   int
}

// Option configures the splitter.
type Option func(*Splitter)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// New creates a splitter with the given options.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(s)
	}

	// Overlap must leave room for the window to advance
	if s.overlap >= s.chunkSize {
		s.overlap = s.chunkSize / 4
	}

	return s
}

// Split chunks the pages of one document. Each page is normalised and
// windowed independently so no chunk spans a page boundary; ordinals are
// assigned sequentially across the whole document in page order. A page
// with no non-whitespace content yields zero chunks.
func (s *Splitter) Split(documentID string, pages []domain.Page) []domain.Chunk {
	var chunks []domain.Chunk
	ordinal := 0

	for _, page := range pages {
		text := normalise(page.Text)
		if text == "" {
			continue
		}

		for _, segment := range s.window(text) {
			chunks = append(chunks, domain.Chunk{
				ID:         uuid.New().String(),
				DocumentID: documentID,
				Page:       page.Number,
				Ordinal:    ordinal,
				Content:    segment,
			})
			ordinal++
		}
	}

	return chunks
}

// window slices text into segments of at most chunkSize characters with
// the configured overlap carried between consecutive segments.
func (s *Splitter) window(text string) []string {
	runes := []rune(text)
	total := len(runes)

	if total <= s.chunkSize {
		return []string{text}
	}

	step := s.chunkSize - s.overlap
	segments := make([]string, 0, total/step+1)

	for start := 0; start < total; start += step {
		end := start + s.chunkSize
		if end > total {
			end = total
		}
		segments = append(segments, string(runes[start:end]))
		if end == total {
			break
		}
	}

	return segments
}

// normalise collapses runs of whitespace to single spaces and trims.
func normalise(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
