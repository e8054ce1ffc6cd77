package fs

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/documind/internal/core/domain"
)

func TestSaveAndOpen(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	content := []byte("%PDF-1.4 fake body")
	require.NoError(t, store.Save(ctx, "doc-1", bytes.NewReader(content)))

	r, err := store.Open(ctx, "doc-1")
	require.NoError(t, err)
	defer r.Close()

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestOpenMissing(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Open(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSaveOverwrites(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "doc-1", strings.NewReader("first")))
	require.NoError(t, store.Save(ctx, "doc-1", strings.NewReader("second")))

	r, err := store.Open(ctx, "doc-1")
	require.NoError(t, err)
	defer r.Close()

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))
}

func TestDelete(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "doc-1", strings.NewReader("body")))
	require.NoError(t, store.Delete(ctx, "doc-1"))

	_, err = store.Open(ctx, "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Deleting again is not an error.
	assert.NoError(t, store.Delete(ctx, "doc-1"))
}

func TestRejectsPathTraversal(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, id := range []string{"", "..", "a/b", `a\b`, "../../etc/passwd"} {
		err := store.Save(ctx, id, strings.NewReader("x"))
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "id %q", id)
	}
}
