// Package embedding provides provider-agnostic batching, retry, and rate
// limiting on top of an EmbeddingService adapter.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/documind/internal/core/domain"
	"github.com/custodia-labs/documind/internal/core/ports/driven"
	"github.com/custodia-labs/documind/internal/logger"
)

// Ensure Batcher implements the interface.
var _ driven.EmbeddingService = (*Batcher)(nil)

// Default batching parameters.
const (
	DefaultMaxBatchSize = 64
	DefaultTokenBudget  = 8000
	DefaultMaxAttempts  = 3
	DefaultBackoffBase  = 500 * time.Millisecond

	// Rough chars-per-token estimate used for the batch token budget.
	charsPerToken = 4
)

// Batcher wraps an EmbeddingService and splits document embedding into
// provider-sized batches, one remote call per batch, sequentially. A batch
// failing with a transient condition is retried with exponential backoff;
// exhausting the attempt ceiling propagates domain.ErrTransientProvider so
// the whole document fails as a unit upstream.
type Batcher struct {
	provider     driven.EmbeddingService
	maxBatchSize int
	tokenBudget  int
	maxAttempts  int
	backoffBase  time.Duration
	limiter      *rate.Limiter
}

// Option configures the batcher.
type Option func(*Batcher)

// WithMaxBatchSize sets the maximum texts per provider call.
func WithMaxBatchSize(n int) Option {
	return func(b *Batcher) {
		if n > 0 {
			b.maxBatchSize = n
		}
	}
}

// WithTokenBudget sets the approximate token budget per batch.
func WithTokenBudget(n int) Option {
	return func(b *Batcher) {
		if n > 0 {
			b.tokenBudget = n
		}
	}
}

// WithMaxAttempts sets the attempt ceiling per batch (including the first
// try).
func WithMaxAttempts(n int) Option {
	return func(b *Batcher) {
		if n > 0 {
			b.maxAttempts = n
		}
	}
}

// WithBackoffBase sets the initial backoff delay.
func WithBackoffBase(d time.Duration) Option {
	return func(b *Batcher) {
		if d > 0 {
			b.backoffBase = d
		}
	}
}

// WithRateLimit caps provider calls at n requests per second.
func WithRateLimit(n float64) Option {
	return func(b *Batcher) {
		if n > 0 {
			b.limiter = rate.NewLimiter(rate.Limit(n), 1)
		}
	}
}

// NewBatcher wraps provider with batching and retry discipline.
func NewBatcher(provider driven.EmbeddingService, opts ...Option) *Batcher {
	b := &Batcher{
		provider:     provider,
		maxBatchSize: DefaultMaxBatchSize,
		tokenBudget:  DefaultTokenBudget,
		maxAttempts:  DefaultMaxAttempts,
		backoffBase:  DefaultBackoffBase,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// EmbedDocuments embeds texts in provider-sized batches and returns
// vectors index-aligned with the input. Any batch exhausting its retries
// fails the whole call; no partial result is returned.
func (b *Batcher) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	batches := b.split(texts)
	logger.Debug("embedding %d texts in %d batches", len(texts), len(batches))

	vectors := make([][]float32, 0, len(texts))
	for i, batch := range batches {
		result, err := b.embedBatch(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("embed batch %d/%d: %w", i+1, len(batches), err)
		}
		vectors = append(vectors, result...)
	}

	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d for %d texts", len(vectors), len(texts))
	}

	return vectors, nil
}

// EmbedQuery embeds a single query with the same retry discipline.
func (b *Batcher) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	err := retry.Do(ctx, b.backoff(), func(ctx context.Context) error {
		if err := b.wait(ctx); err != nil {
			return err
		}
		var callErr error
		vector, callErr = b.provider.EmbedQuery(ctx, text)
		return classify(callErr)
	})
	if err != nil {
		return nil, err
	}
	return vector, nil
}

// embedBatch issues one provider call for the batch, retrying transient
// failures with exponential backoff.
func (b *Batcher) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	var vectors [][]float32
	attempt := 0
	err := retry.Do(ctx, b.backoff(), func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			logger.Debug("retrying embedding batch, attempt %d/%d", attempt, b.maxAttempts)
		}
		if err := b.wait(ctx); err != nil {
			return err
		}
		var callErr error
		vectors, callErr = b.provider.EmbedDocuments(ctx, batch)
		return classify(callErr)
	})
	if err != nil {
		return nil, err
	}
	return vectors, nil
}

func (b *Batcher) backoff() retry.Backoff {
	backoff := retry.NewExponential(b.backoffBase)
	// maxAttempts includes the first try; WithMaxRetries counts retries.
	return retry.WithMaxRetries(uint64(b.maxAttempts-1), backoff)
}

func (b *Batcher) wait(ctx context.Context) error {
	if b.limiter == nil {
		return nil
	}
	return b.limiter.Wait(ctx)
}

// classify marks transient provider failures as retryable.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrTransientProvider) {
		return retry.RetryableError(err)
	}
	return err
}

// split groups texts into batches bounded by maxBatchSize and the
// approximate token budget. A single oversized text still forms its own
// batch rather than being dropped.
func (b *Batcher) split(texts []string) [][]string {
	budget := b.tokenBudget * charsPerToken

	var batches [][]string
	var current []string
	chars := 0

	for _, text := range texts {
		if len(current) > 0 && (len(current) >= b.maxBatchSize || chars+len(text) > budget) {
			batches = append(batches, current)
			current = nil
			chars = 0
		}
		current = append(current, text)
		chars += len(text)
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}

	return batches
}

// Dimensions returns the provider's embedding vector size.
func (b *Batcher) Dimensions() int {
	return b.provider.Dimensions()
}

// ModelName returns the provider's model name.
func (b *Batcher) ModelName() string {
	return b.provider.ModelName()
}

// Ping validates the underlying provider is reachable.
func (b *Batcher) Ping(ctx context.Context) error {
	return b.provider.Ping(ctx)
}

// Close releases the underlying provider's resources.
func (b *Batcher) Close() error {
	return b.provider.Close()
}
