// Package fs provides a filesystem-backed blob store for uploaded files.
package fs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/documind/internal/core/domain"
	"github.com/custodia-labs/documind/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.BlobStore = (*Store)(nil)

// Store keeps each blob as a single file under a base directory,
// named by document id.
type Store struct {
	dir string
}

// NewStore creates a blob store rooted at dir, creating it if needed.
// If dir is empty, defaults to ~/.documind/uploads.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, ".documind", "uploads")
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}

	return &Store{dir: dir}, nil
}

// Save writes the blob atomically: a temp file in the same directory
// is renamed into place so readers never see a partial write.
func (s *Store) Save(_ context.Context, id string, r io.Reader) error {
	path, err := s.blobPath(id)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming blob: %w", err)
	}
	return nil
}

// Open returns a reader over the stored blob.
func (s *Store) Open(_ context.Context, id string) (io.ReadSeekCloser, error) {
	path, err := s.blobPath(id)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("opening blob: %w", err)
	}
	return f, nil
}

// Delete removes the blob. A missing blob is not an error.
func (s *Store) Delete(_ context.Context, id string) error {
	path, err := s.blobPath(id)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting blob: %w", err)
	}
	return nil
}

// blobPath validates the id and maps it to a file path. IDs containing
// path separators would escape the base directory.
func (s *Store) blobPath(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("%w: invalid blob id %q", domain.ErrInvalidInput, id)
	}
	return filepath.Join(s.dir, id+".pdf"), nil
}
