package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/documind/internal/core/domain"
)

func queuedDoc(id string, uploaded time.Time) *domain.Document {
	return &domain.Document{
		ID:         id,
		Filename:   id + ".pdf",
		Status:     domain.StatusQueued,
		UploadedAt: uploaded,
	}
}

func TestSaveAndGetDocument(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	require.NoError(t, store.SaveDocument(ctx, queuedDoc("doc-1", time.Now())))

	got, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1.pdf", got.Filename)

	_, err = store.GetDocument(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListDocumentsNewestFirst(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()
	base := time.Now().UTC()

	require.NoError(t, store.SaveDocument(ctx, queuedDoc("old", base)))
	require.NoError(t, store.SaveDocument(ctx, queuedDoc("new", base.Add(time.Minute))))

	docs, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "new", docs[0].ID)
	assert.Equal(t, "old", docs[1].ID)
}

func TestUpdateStatusCompareAndSet(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()
	require.NoError(t, store.SaveDocument(ctx, queuedDoc("doc-1", time.Now())))

	require.NoError(t, store.UpdateStatus(ctx, "doc-1", domain.StatusQueued, domain.StatusProcessing, ""))

	err := store.UpdateStatus(ctx, "doc-1", domain.StatusQueued, domain.StatusProcessing, "")
	assert.ErrorIs(t, err, domain.ErrConflict)

	err = store.UpdateStatus(ctx, "missing", domain.StatusQueued, domain.StatusProcessing, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateStatusConcurrentSingleWinner(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()
	require.NoError(t, store.SaveDocument(ctx, queuedDoc("doc-1", time.Now())))

	const workers = 8
	var wg sync.WaitGroup
	wins := make(chan struct{}, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if store.UpdateStatus(ctx, "doc-1", domain.StatusQueued, domain.StatusProcessing, "") == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	count := 0
	for range wins {
		count++
	}
	assert.Equal(t, 1, count, "exactly one worker claims the transition")
}

func TestChunksRoundTrip(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()
	require.NoError(t, store.SaveDocument(ctx, queuedDoc("doc-1", time.Now())))

	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{
		{ID: "c2", DocumentID: "doc-1", Ordinal: 1, Content: "second"},
		{ID: "c1", DocumentID: "doc-1", Ordinal: 0, Content: "first"},
	}))

	chunks, err := store.GetChunks(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "first", chunks[0].Content)

	// Same ID replaces rather than duplicates.
	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{
		{ID: "c1", DocumentID: "doc-1", Ordinal: 0, Content: "updated"},
	}))
	count, err := store.CountChunks(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestDeleteDocumentRemovesChunks(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()
	require.NoError(t, store.SaveDocument(ctx, queuedDoc("doc-1", time.Now())))
	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{
		{ID: "c1", DocumentID: "doc-1", Ordinal: 0, Content: "text"},
	}))

	require.NoError(t, store.DeleteDocument(ctx, "doc-1"))

	count, err := store.CountChunks(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	assert.ErrorIs(t, store.DeleteDocument(ctx, "doc-1"), domain.ErrNotFound)
}

func TestSetPages(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()
	require.NoError(t, store.SaveDocument(ctx, queuedDoc("doc-1", time.Now())))

	require.NoError(t, store.SetPages(ctx, "doc-1", 7))

	got, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 7, got.Pages)
}
