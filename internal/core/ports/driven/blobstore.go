package driven

import (
	"context"
	"io"
)

// BlobStore persists the raw uploaded bytes, keyed by document id.
// The storage mechanics (filesystem, object store) are an adapter concern.
type BlobStore interface {
	// Save writes the blob for the document id.
	Save(ctx context.Context, id string, r io.Reader) error

	// Open returns a reader over the stored blob.
	// Returns domain.ErrNotFound if no blob exists for the id.
	Open(ctx context.Context, id string) (io.ReadSeekCloser, error)

	// Delete removes the blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, id string) error
}
