package driven

import "context"

// LLMService produces grounded answers from an assembled prompt.
//
// Implementations may include:
//   - OpenRouter (OpenAI-compatible API)
//   - OpenAI
//   - Local inference servers
type LLMService interface {
	// Chat conducts a conversation and returns the assistant reply.
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable with a lightweight request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// ChatOptions configures generation behaviour.
type ChatOptions struct {
	// MaxTokens bounds the generated output length.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic).
	Temperature float64
}
