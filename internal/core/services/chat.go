package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/custodia-labs/documind/internal/core/domain"
	"github.com/custodia-labs/documind/internal/core/ports/driven"
	"github.com/custodia-labs/documind/internal/core/ports/driving"
	"github.com/custodia-labs/documind/internal/logger"
)

// Ensure ChatEngine implements the interface.
var _ driving.ChatService = (*ChatEngine)(nil)

// Default chat parameters.
const (
	DefaultTopK            = 4
	DefaultMaxHistoryTurns = 10
	DefaultMaxTokens       = 1024
	DefaultTemperature     = 0.2
	DefaultSearchLimit     = 10
	defaultChatAttempts    = 3
	defaultChatBackoff     = 500 * time.Millisecond
)

// fallbackReply is returned when generation fails after retries. The
// request still succeeds; the degradation is visible in the text and
// the empty source list.
const fallbackReply = "I'm unable to generate an answer right now. Please try again in a moment."

// ChatEngine answers queries against a completed document. It is
// stateless between calls: history travels with each request.
type ChatEngine struct {
	docStore driven.DocumentStore
	embedder driven.EmbeddingService
	index    driven.VectorIndex
	llm      driven.LLMService

	topK        int
	maxHistory  int
	maxTokens   int
	temperature float64
}

// ChatOption configures the engine.
type ChatOption func(*ChatEngine)

// WithTopK sets how many chunks are retrieved per query.
func WithTopK(k int) ChatOption {
	return func(e *ChatEngine) {
		if k > 0 {
			e.topK = k
		}
	}
}

// WithMaxHistoryTurns caps how much caller-supplied history reaches
// the model.
func WithMaxHistoryTurns(n int) ChatOption {
	return func(e *ChatEngine) {
		if n > 0 {
			e.maxHistory = n
		}
	}
}

// NewChatEngine creates a chat engine.
func NewChatEngine(
	docStore driven.DocumentStore,
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	llm driven.LLMService,
	opts ...ChatOption,
) *ChatEngine {
	e := &ChatEngine{
		docStore:    docStore,
		embedder:    embedder,
		index:       index,
		llm:         llm,
		topK:        DefaultTopK,
		maxHistory:  DefaultMaxHistoryTurns,
		maxTokens:   DefaultMaxTokens,
		temperature: DefaultTemperature,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Answer retrieves the most relevant chunks for the query and produces
// a grounded answer with the distinct source pages, ascending.
func (e *ChatEngine) Answer(ctx context.Context, query, documentID string, history []domain.Turn) (*domain.Answer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}

	doc, err := e.docStore.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status != domain.StatusCompleted {
		return nil, fmt.Errorf("%w: document is %s", domain.ErrNotReady, doc.Status)
	}

	vector, err := e.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := e.index.Search(ctx, vector, documentID, e.topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	if len(results) == 0 {
		return &domain.Answer{Text: noContextReply, Sources: []int{}}, nil
	}

	messages := buildMessages(query, results, history, e.maxHistory)

	text, err := e.generate(ctx, messages)
	if err != nil {
		logger.Warn("answer generation for document %s: %v", documentID, err)
		return &domain.Answer{Text: fallbackReply, Sources: []int{}}, nil
	}

	return &domain.Answer{
		Text:    text,
		Sources: sourcePages(results),
	}, nil
}

// Search embeds the query and returns the raw ranked chunks, skipping
// answer generation. An empty documentID searches every document.
func (e *ChatEngine) Search(ctx context.Context, query, documentID string, limit int) ([]domain.ScoredEntry, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	vector, err := e.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := e.index.Search(ctx, vector, documentID, limit)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	return results, nil
}

// generate calls the model, retrying transient provider failures with
// exponential backoff.
func (e *ChatEngine) generate(ctx context.Context, messages []driven.ChatMessage) (string, error) {
	opts := driven.ChatOptions{
		MaxTokens:   e.maxTokens,
		Temperature: e.temperature,
	}

	var text string
	backoff := retry.WithMaxRetries(defaultChatAttempts-1, retry.NewExponential(defaultChatBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		text, err = e.llm.Chat(ctx, messages, opts)
		if err != nil {
			if errors.Is(err, domain.ErrTransientProvider) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}
