package driven

import (
	"context"

	"github.com/custodia-labs/mnemo/internal/core/domain"
)

// LLMService provides language model chat completions.
// This is an optional service - when nil, conversation summarization is
// deferred and histories grow in the active tier.
//
// Implementations may include:
//   - OpenAI (GPT-4o)
//   - Anthropic (Claude)
//   - Ollama (local models)
type LLMService interface {
	// Chat conducts a multi-turn conversation and returns the reply text.
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
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

// ChatOptions configures chat behaviour.
type ChatOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64
}

// Summarizer condenses a block of conversation turns into one text.
type Summarizer interface {
	// Summarize returns a condensed text for turns, oldest first.
	Summarize(ctx context.Context, turns []domain.Turn) (string, error)
}
