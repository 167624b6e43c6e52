package driven

import (
	"context"

	"github.com/custodia-labs/mnemo/internal/core/domain"
)

// ConversationStore persists conversation tiers.
// Backed by SQLite, with an in-memory implementation for tests.
type ConversationStore interface {
	// LoadHistory returns the stored tiers of a conversation.
	// An unknown conversation yields an empty history, not an error.
	LoadHistory(ctx context.Context, conversationID string) (*domain.TieredHistory, error)

	// Commit applies change in one transaction: new turns are appended to the
	// active tier, the summary is added and its turns are archived.
	Commit(ctx context.Context, conversationID string, change domain.HistoryChange) error

	// ListConversations returns the IDs of all stored conversations.
	ListConversations(ctx context.Context) ([]string, error)

	// DeleteConversation removes every turn and summary of a conversation.
	DeleteConversation(ctx context.Context, conversationID string) error
}
