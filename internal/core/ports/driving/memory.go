package driving

import (
	"context"

	"github.com/custodia-labs/mnemo/internal/core/domain"
)

// MemoryService manages tiered conversation memory.
type MemoryService interface {
	// AddTurn appends a turn to a conversation, summarizing the oldest
	// active turns when thresholds are exceeded.
	AddTurn(ctx context.Context, conversationID string, input domain.TurnInput) (*domain.AddTurnResult, error)

	// GetTieredHistory returns a snapshot of the conversation tiers.
	GetTieredHistory(ctx context.Context, conversationID string) (*domain.TieredHistory, error)

	// FormatHistoryForPrompt renders summaries and active turns within maxTokens.
	// A maxTokens of zero or less disables the budget.
	FormatHistoryForPrompt(ctx context.Context, conversationID string, maxTokens int) (string, error)

	// ListConversations returns the IDs of all known conversations.
	ListConversations(ctx context.Context) ([]string, error)

	// DeleteConversation removes a conversation and all its tiers.
	DeleteConversation(ctx context.Context, conversationID string) error
}
