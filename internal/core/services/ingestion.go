package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/documind/internal/core/domain"
	"github.com/custodia-labs/documind/internal/core/ports/driven"
	"github.com/custodia-labs/documind/internal/core/ports/driving"
	"github.com/custodia-labs/documind/internal/logger"
)

// Ensure IngestionCoordinator implements the interface.
var _ driving.IngestionService = (*IngestionCoordinator)(nil)

// Default ingestion limits.
const (
	DefaultWorkers       = 4
	DefaultMaxUploadSize = 50 << 20 // 50 MiB
	defaultQueueDepth    = 128
)

// pdfMagic is the required prefix of a PDF file.
var pdfMagic = []byte("%PDF-")

// job is one enqueued document. The context is created at enqueue time
// so Delete can abort the job whether it is queued or running.
type job struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// IngestionCoordinator owns the document lifecycle: it validates
// uploads, runs the extract/chunk/embed/index pipeline on a worker
// pool, and keeps the stored status authoritative throughout.
type IngestionCoordinator struct {
	docStore  driven.DocumentStore
	blobStore driven.BlobStore
	extractor driven.TextExtractor
	splitter  driven.ChunkSplitter
	embedder  driven.EmbeddingService
	index     driven.VectorIndex

	workers       int
	maxUploadSize int64

	jobs chan string
	wg   sync.WaitGroup

	// active tracks in-flight jobs by document id so a second submit for
	// the same id is rejected and Delete can abort a running pipeline.
	mu     sync.Mutex
	active map[string]*job

	baseCtx context.Context
	cancel  context.CancelFunc
	started bool
}

// IngestionOption configures the coordinator.
type IngestionOption func(*IngestionCoordinator)

// WithWorkers sets the number of concurrent pipeline workers.
func WithWorkers(n int) IngestionOption {
	return func(c *IngestionCoordinator) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithMaxUploadSize sets the upload size ceiling in bytes.
func WithMaxUploadSize(n int64) IngestionOption {
	return func(c *IngestionCoordinator) {
		if n > 0 {
			c.maxUploadSize = n
		}
	}
}

// NewIngestionCoordinator creates an ingestion coordinator. Call Start
// before submitting documents.
func NewIngestionCoordinator(
	docStore driven.DocumentStore,
	blobStore driven.BlobStore,
	extractor driven.TextExtractor,
	splitter driven.ChunkSplitter,
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	opts ...IngestionOption,
) *IngestionCoordinator {
	c := &IngestionCoordinator{
		docStore:      docStore,
		blobStore:     blobStore,
		extractor:     extractor,
		splitter:      splitter,
		embedder:      embedder,
		index:         index,
		workers:       DefaultWorkers,
		maxUploadSize: DefaultMaxUploadSize,
		jobs:          make(chan string, defaultQueueDepth),
		active:        make(map[string]*job),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start launches the worker pool. Workers run until Close is called or
// ctx is cancelled.
func (c *IngestionCoordinator) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return
	}
	c.started = true

	c.baseCtx, c.cancel = context.WithCancel(ctx)
	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go c.worker()
	}
	logger.Debug("ingestion pool started with %d workers", c.workers)
}

// Close stops the worker pool and waits for in-flight jobs to finish.
func (c *IngestionCoordinator) Close() error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = false
	c.cancel()
	close(c.jobs)
	c.mu.Unlock()

	c.wg.Wait()
	return nil
}

// Submit validates and accepts an upload, persists the blob and a
// queued document record, and enqueues exactly one processing job.
func (c *IngestionCoordinator) Submit(ctx context.Context, content []byte, filename string) (*domain.Document, error) {
	if err := c.validate(content, filename); err != nil {
		return nil, err
	}

	doc := &domain.Document{
		ID:         uuid.NewString(),
		Filename:   filepath.Base(filename),
		Size:       int64(len(content)),
		Status:     domain.StatusQueued,
		UploadedAt: time.Now().UTC(),
	}

	if err := c.blobStore.Save(ctx, doc.ID, bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}
	if err := c.docStore.SaveDocument(ctx, doc); err != nil {
		c.blobStore.Delete(ctx, doc.ID) //nolint:errcheck // best-effort cleanup
		return nil, fmt.Errorf("save document: %w", err)
	}

	if err := c.enqueue(doc.ID); err != nil {
		return nil, err
	}

	logger.Info("accepted %s (%d bytes) as document %s", doc.Filename, doc.Size, doc.ID)

	// The caller sees processing: the job is already on the queue and a
	// worker claims it next.
	view := *doc
	view.Status = domain.StatusProcessing
	return &view, nil
}

// Status returns the document's current lifecycle state.
func (c *IngestionCoordinator) Status(ctx context.Context, id string) (*domain.Document, error) {
	return c.docStore.GetDocument(ctx, id)
}

// List returns all documents, newest first.
func (c *IngestionCoordinator) List(ctx context.Context) ([]domain.Document, error) {
	return c.docStore.ListDocuments(ctx)
}

// Delete removes the document everywhere: metadata, chunks, index
// entries, and the stored blob. An in-flight job is cancelled and
// detects the deletion when it next touches the store.
func (c *IngestionCoordinator) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	if j, ok := c.active[id]; ok {
		j.cancel()
	}
	c.mu.Unlock()

	if err := c.docStore.DeleteDocument(ctx, id); err != nil {
		return err
	}
	if err := c.index.DeleteByDocument(ctx, id); err != nil {
		logger.Warn("deleting index entries for %s: %v", id, err)
	}
	if err := c.blobStore.Delete(ctx, id); err != nil {
		logger.Warn("deleting blob for %s: %v", id, err)
	}

	logger.Info("deleted document %s", id)
	return nil
}

// validate rejects anything that is not a plausible PDF upload.
func (c *IngestionCoordinator) validate(content []byte, filename string) error {
	if len(content) == 0 {
		return fmt.Errorf("%w: empty upload", domain.ErrInvalidInput)
	}
	if int64(len(content)) > c.maxUploadSize {
		return fmt.Errorf("%w: upload of %d bytes exceeds limit of %d",
			domain.ErrInvalidInput, len(content), c.maxUploadSize)
	}
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return fmt.Errorf("%w: only PDF files are accepted", domain.ErrInvalidInput)
	}
	if !bytes.HasPrefix(content, pdfMagic) {
		return fmt.Errorf("%w: file does not start with a PDF header", domain.ErrInvalidInput)
	}
	return nil
}

// enqueue registers the job and pushes it to the worker pool.
func (c *IngestionCoordinator) enqueue(id string) error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return fmt.Errorf("ingestion pool is not running")
	}
	if _, ok := c.active[id]; ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: document %s", domain.ErrAlreadyQueued, id)
	}
	ctx, cancel := context.WithCancel(c.baseCtx)
	c.active[id] = &job{ctx: ctx, cancel: cancel}

	// Send while holding the lock so Close cannot close the channel
	// between the started check and the send.
	select {
	case c.jobs <- id:
		c.mu.Unlock()
		return nil
	default:
		cancel()
		delete(c.active, id)
		c.mu.Unlock()
		return fmt.Errorf("%w: ingestion queue is full", domain.ErrTransientProvider)
	}
}

// finish removes the job from the active set.
func (c *IngestionCoordinator) finish(id string) {
	c.mu.Lock()
	if j, ok := c.active[id]; ok {
		j.cancel()
		delete(c.active, id)
	}
	c.mu.Unlock()
}

// worker drains the job queue.
func (c *IngestionCoordinator) worker() {
	defer c.wg.Done()
	for id := range c.jobs {
		c.process(id)
	}
}

// process runs the full pipeline for one queued document.
func (c *IngestionCoordinator) process(id string) {
	defer c.finish(id)

	c.mu.Lock()
	j, ok := c.active[id]
	c.mu.Unlock()
	if !ok {
		return
	}
	ctx := j.ctx

	err := c.docStore.UpdateStatus(ctx, id, domain.StatusQueued, domain.StatusProcessing, "")
	switch {
	case errors.Is(err, domain.ErrNotFound):
		// Deleted while queued; nothing left to do.
		return
	case err != nil:
		logger.Warn("claiming document %s: %v", id, err)
		return
	}

	logger.Info("processing document %s", id)

	if err := c.pipeline(ctx, id); err != nil {
		if ctx.Err() != nil || errors.Is(err, domain.ErrNotFound) {
			// The document was deleted out from under the job. Remove
			// anything the pipeline managed to index before it noticed.
			c.index.DeleteByDocument(context.Background(), id) //nolint:errcheck // best-effort cleanup
			logger.Debug("document %s deleted mid-flight, aborting", id)
			return
		}
		c.fail(id, err)
		return
	}

	if err := c.docStore.UpdateStatus(ctx, id, domain.StatusProcessing, domain.StatusCompleted, ""); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.index.DeleteByDocument(context.Background(), id) //nolint:errcheck // best-effort cleanup
			return
		}
		logger.Warn("completing document %s: %v", id, err)
		return
	}

	logger.Info("document %s completed", id)
}

// pipeline runs extraction through index verification. Any error leaves
// the document in processing for the caller to mark failed.
func (c *IngestionCoordinator) pipeline(ctx context.Context, id string) error {
	// 1. Load the stored upload
	blob, err := c.blobStore.Open(ctx, id)
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	content, err := io.ReadAll(blob)
	blob.Close()
	if err != nil {
		return fmt.Errorf("read upload: %w", err)
	}

	// 2. Extract page text
	pages, err := c.extractor.Extract(ctx, bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return fmt.Errorf("extract text: %w", err)
	}
	if err := c.docStore.SetPages(ctx, id, len(pages)); err != nil {
		return fmt.Errorf("record page count: %w", err)
	}

	// 3. Chunk
	chunks := c.splitter.Split(id, pages)
	if len(chunks) == 0 {
		return fmt.Errorf("%w: document contains no extractable text", domain.ErrCorruptDocument)
	}

	// 4. Embed
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}
	vectors, err := c.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedding count mismatch: %d vectors for %d chunks", len(vectors), len(chunks))
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}

	// 5. Persist chunks
	if err := c.docStore.SaveChunks(ctx, chunks); err != nil {
		return fmt.Errorf("save chunks: %w", err)
	}

	// 6. Index
	entries := make([]domain.IndexEntry, len(chunks))
	for i, chunk := range chunks {
		entries[i] = domain.IndexEntry{
			ChunkID:    chunk.ID,
			DocumentID: chunk.DocumentID,
			Page:       chunk.Page,
			Ordinal:    chunk.Ordinal,
			Content:    chunk.Content,
			Vector:     chunk.Embedding,
		}
	}
	if err := c.index.Upsert(ctx, entries); err != nil {
		return fmt.Errorf("index chunks: %w", err)
	}

	// 7. Verify before declaring the document queryable
	count, err := c.index.CountByDocument(ctx, id)
	if err != nil {
		return fmt.Errorf("verify index: %w", err)
	}
	if count != len(chunks) {
		return fmt.Errorf("index verification failed: %d entries for %d chunks", count, len(chunks))
	}

	return nil
}

// fail marks the document failed and removes any partially indexed
// entries so a failed document is never queryable.
func (c *IngestionCoordinator) fail(id string, cause error) {
	logger.Error("processing document %s: %v", id, cause)

	// Use a fresh context: the job context may already be cancelled.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.index.DeleteByDocument(ctx, id); err != nil {
		logger.Warn("removing partial index for %s: %v", id, err)
	}

	if err := c.docStore.UpdateStatus(ctx, id, domain.StatusProcessing, domain.StatusFailed, cause.Error()); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("marking document %s failed: %v", id, err)
		}
	}
}
