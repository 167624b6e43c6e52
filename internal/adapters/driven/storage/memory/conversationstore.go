package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
)

// Ensure ConversationStore implements the interface.
var _ driven.ConversationStore = (*ConversationStore)(nil)

// ConversationStore is an in-memory implementation of driven.ConversationStore.
// A commit is validated against the stored history before it replaces it.
type ConversationStore struct {
	mu        sync.RWMutex
	histories map[string]*domain.TieredHistory
}

// NewConversationStore creates a new in-memory conversation store.
func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		histories: make(map[string]*domain.TieredHistory),
	}
}

// LoadHistory returns a copy of the stored tiers.
func (s *ConversationStore) LoadHistory(_ context.Context, conversationID string) (*domain.TieredHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.histories[conversationID]
	if !ok {
		return domain.NewTieredHistory(conversationID), nil
	}
	return h.Clone(), nil
}

// Commit applies change atomically. Nothing is stored when the result is inconsistent.
func (s *ConversationStore) Commit(_ context.Context, conversationID string, change domain.HistoryChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.histories[conversationID]
	if !ok {
		current = domain.NewTieredHistory(conversationID)
	}
	next, err := current.Apply(change)
	if err != nil {
		return err
	}
	s.histories[conversationID] = next
	return nil
}

// ListConversations returns the IDs of stored conversations in order.
func (s *ConversationStore) ListConversations(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.histories))
	for id := range s.histories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// DeleteConversation removes a conversation.
func (s *ConversationStore) DeleteConversation(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.histories, conversationID)
	return nil
}
