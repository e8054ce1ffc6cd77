// Package pdf extracts page-level text from PDF bytes.
package pdf

import (
	"context"
	"fmt"
	"io"

	ledongthuc "github.com/ledongthuc/pdf"

	"github.com/custodia-labs/documind/internal/core/domain"
	"github.com/custodia-labs/documind/internal/core/ports/driven"
	"github.com/custodia-labs/documind/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

// Extractor reads PDFs with a pure-Go parser. Corrupt, encrypted, or
// otherwise unreadable files yield domain.ErrCorruptDocument; extraction
// is never retried.
type Extractor struct{}

// New creates a PDF extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract returns the text of each page in order. Pages that yield no
// text are still returned (with empty text) so page numbering stays
// aligned with the source document.
func (e *Extractor) Extract(_ context.Context, r io.ReaderAt, size int64) (pages []domain.Page, err error) {
	// The parser panics on some malformed inputs; treat those as corrupt.
	defer func() {
		if rec := recover(); rec != nil {
			pages = nil
			err = fmt.Errorf("%w: parser panic: %v", domain.ErrCorruptDocument, rec)
		}
	}()

	reader, err := ledongthuc.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptDocument, err)
	}

	total := reader.NumPage()
	if total == 0 {
		return nil, fmt.Errorf("%w: document has no pages", domain.ErrCorruptDocument)
	}

	pages = make([]domain.Page, 0, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, domain.Page{Number: i})
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page is tolerated; the chunker skips
			// empty pages.
			logger.Debug("page %d: text extraction failed: %v", i, err)
			pages = append(pages, domain.Page{Number: i})
			continue
		}

		pages = append(pages, domain.Page{Number: i, Text: text})
	}

	return pages, nil
}
