package driven

import (
	"context"
	"io"

	"github.com/custodia-labs/documind/internal/core/domain"
)

// TextExtractor produces page-level text from raw document bytes.
// An unreadable or encrypted file yields domain.ErrCorruptDocument, which
// is terminal for the document.
type TextExtractor interface {
	// Extract returns the pages of the document in order.
	Extract(ctx context.Context, r io.ReaderAt, size int64) ([]domain.Page, error)
}
