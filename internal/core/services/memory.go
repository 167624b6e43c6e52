package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
	"github.com/custodia-labs/mnemo/internal/core/ports/driving"
	"github.com/custodia-labs/mnemo/internal/logger"
)

// Ensure MemoryManager implements the interface.
var _ driving.MemoryService = (*MemoryManager)(nil)

// MemoryManager keeps conversation context bounded by moving the oldest
// active turns into a summary once the active tier grows past its limits.
//
// Every operation on one conversation is serialized; different conversations
// proceed in parallel. Conversation state is loaded from the store on first
// use and changes in memory only after the store has committed.
type MemoryManager struct {
	store      driven.ConversationStore
	summarizer driven.Summarizer
	tokens     driven.TokenCounter
	retry      *RetryPolicy
	settings   domain.MemorySettings

	locks *keyedMutex

	mu        sync.RWMutex
	histories map[string]*domain.TieredHistory

	now   func() time.Time
	newID func() string
}

// MemoryOption configures a MemoryManager.
type MemoryOption func(*MemoryManager)

// WithMemoryClock sets the time source for turn and summary timestamps.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(m *MemoryManager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithMemoryIDs sets the ID generator for turns and summaries.
func WithMemoryIDs(newID func() string) MemoryOption {
	return func(m *MemoryManager) {
		if newID != nil {
			m.newID = newID
		}
	}
}

// NewMemoryManager creates a memory manager.
// summarizer may be nil, in which case summarization is always deferred.
func NewMemoryManager(
	store driven.ConversationStore,
	summarizer driven.Summarizer,
	tokens driven.TokenCounter,
	retry *RetryPolicy,
	settings domain.MemorySettings,
	opts ...MemoryOption,
) (*MemoryManager, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("memory settings: %w", err)
	}
	if store == nil || tokens == nil {
		return nil, fmt.Errorf("memory manager requires a conversation store and a token counter")
	}
	if retry == nil {
		retry = NewRetryPolicy(domain.DefaultAppSettings().Retry)
	}

	m := &MemoryManager{
		store:      store,
		summarizer: summarizer,
		tokens:     tokens,
		retry:      retry,
		settings:   settings,
		locks:      newKeyedMutex(),
		histories:  make(map[string]*domain.TieredHistory),
		now:        time.Now,
		newID:      func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// AddTurn appends a turn and, when the active tier exceeds its limits,
// folds the oldest block of turns into a new summary.
//
// If summarization fails after retries the turn is still committed, the
// block stays active and the result is marked Degraded. If ctx is cancelled
// nothing is committed.
func (m *MemoryManager) AddTurn(
	ctx context.Context, conversationID string, input domain.TurnInput,
) (*domain.AddTurnResult, error) {
	if err := validateConversationID(conversationID); err != nil {
		return nil, err
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	unlock, err := m.locks.Lock(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	logger.Section("Add Turn")
	result, err := m.addTurn(ctx, conversationID, input)
	if errors.Is(err, domain.ErrConsistency) && ctx.Err() == nil {
		// Another writer committed to this conversation since it was loaded.
		logger.Warn("conversation %s: %v, reloading", conversationID, err)
		m.forget(conversationID)
		result, err = m.addTurn(ctx, conversationID, input)
	}
	if err != nil {
		return nil, err
	}

	if result.Summary != nil {
		logger.Info("conversation %s: archived turns %d-%d into summary %s",
			conversationID, result.Summary.FromSeq, result.Summary.ToSeq, result.Summary.ID)
	}
	return result, nil
}

// addTurn builds and commits one turn on top of the registry state.
// Callers must hold the conversation lock. A failed commit drops the
// registry entry so the next attempt reads the store again.
func (m *MemoryManager) addTurn(
	ctx context.Context, conversationID string, input domain.TurnInput,
) (*domain.AddTurnResult, error) {
	history, err := m.load(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	turn := domain.Turn{
		ID:             m.newID(),
		ConversationID: conversationID,
		Seq:            history.NextSeq(),
		Role:           input.Role,
		Text:           input.Text,
		CreatedAt:      m.now(),
		TokenCount:     m.tokens.Count(input.Text),
	}
	change := domain.HistoryChange{AppendTurns: []domain.Turn{turn}}
	result := &domain.AddTurnResult{Turn: turn}

	working, err := history.Apply(change)
	if err != nil {
		return nil, err
	}
	logger.Debug("conversation %s: turn %d (%d tokens), active %d turns / %d tokens",
		conversationID, turn.Seq, turn.TokenCount, len(working.ActiveTurns), working.ActiveTokens())

	block, deferred := m.selectBlock(working)
	switch {
	case deferred:
		logger.Debug("over threshold but block is below minimum size %d, deferring", m.settings.MinBlockSize)
	case len(block) > 0:
		summary, err := m.summarize(ctx, conversationID, block)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil {
			logger.Warn("conversation %s: summarization deferred: %v", conversationID, err)
			result.Degraded = true
			result.Warning = err
			break
		}
		change.Summary = summary
		result.Summary = summary
		result.Archived = len(block)
	}

	next, err := history.Apply(change)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.store.Commit(ctx, conversationID, change); err != nil {
		m.forget(conversationID)
		return nil, fmt.Errorf("commit conversation %s: %w", conversationID, err)
	}

	m.mu.Lock()
	m.histories[conversationID] = next
	m.mu.Unlock()
	return result, nil
}

// selectBlock picks the oldest contiguous block of active turns whose removal
// resolves both the turn-count and the token overflow. The block has at least
// MinBlockSize turns and never includes the newest turn. deferred is true when
// a limit is exceeded but no block of the minimum size can be formed.
func (m *MemoryManager) selectBlock(h *domain.TieredHistory) (block []domain.Turn, deferred bool) {
	active := h.ActiveTurns
	countOverflow := len(active) - m.settings.MaxActiveTurns

	tokenBlock := 0
	if excess := h.ActiveTokens() - m.settings.MaxActiveTokens; excess > 0 {
		freed := 0
		for tokenBlock < len(active) && freed < excess {
			freed += active[tokenBlock].TokenCount
			tokenBlock++
		}
	}

	if countOverflow <= 0 && tokenBlock == 0 {
		return nil, false
	}

	size := max(countOverflow, tokenBlock, m.settings.MinBlockSize)
	size = min(size, len(active)-1)
	if size < m.settings.MinBlockSize {
		return nil, true
	}
	return active[:size], false
}

func (m *MemoryManager) summarize(ctx context.Context, conversationID string, block []domain.Turn) (*domain.Summary, error) {
	if m.summarizer == nil {
		return nil, domain.ErrLLMUnavailable
	}

	text, err := retryValue(ctx, m.retry, "summarize", func(ctx context.Context) (string, error) {
		return m.summarizer.Summarize(ctx, block)
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(block))
	for i := range block {
		ids[i] = block[i].ID
	}
	return &domain.Summary{
		ID:             m.newID(),
		ConversationID: conversationID,
		FromSeq:        block[0].Seq,
		ToSeq:          block[len(block)-1].Seq,
		TurnIDs:        ids,
		Text:           text,
		CreatedAt:      m.now(),
		TokenCount:     m.tokens.Count(text),
	}, nil
}

// GetTieredHistory returns a deep copy of the conversation tiers.
func (m *MemoryManager) GetTieredHistory(ctx context.Context, conversationID string) (*domain.TieredHistory, error) {
	if err := validateConversationID(conversationID); err != nil {
		return nil, err
	}
	unlock, err := m.locks.Lock(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	h, err := m.load(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return h.Clone(), nil
}

// FormatHistoryForPrompt renders summaries then active turns, oldest first.
// When the rendering exceeds maxTokens the oldest summaries are dropped
// first. Active turns are never dropped, so the result can still exceed
// the budget when they alone do.
func (m *MemoryManager) FormatHistoryForPrompt(ctx context.Context, conversationID string, maxTokens int) (string, error) {
	h, err := m.GetTieredHistory(ctx, conversationID)
	if err != nil {
		return "", err
	}

	summaries := make([]string, len(h.Summaries))
	summaryTokens := make([]int, len(h.Summaries))
	total := 0
	for i, s := range h.Summaries {
		summaries[i] = fmt.Sprintf("[summary of turns %d-%d] %s", s.FromSeq, s.ToSeq, s.Text)
		summaryTokens[i] = m.tokens.Count(summaries[i])
		total += summaryTokens[i]
	}
	turns := make([]string, len(h.ActiveTurns))
	for i, t := range h.ActiveTurns {
		turns[i] = fmt.Sprintf("%s: %s", t.Role, t.Text)
		total += m.tokens.Count(turns[i])
	}

	drop := 0
	if maxTokens > 0 {
		for drop < len(summaries) && total > maxTokens {
			total -= summaryTokens[drop]
			drop++
		}
		if drop > 0 {
			logger.Debug("conversation %s: dropped %d oldest summaries to fit %d tokens", conversationID, drop, maxTokens)
		}
		if total > maxTokens {
			logger.Warn("conversation %s: active turns alone use %d tokens, budget is %d", conversationID, total, maxTokens)
		}
	}

	lines := append(summaries[drop:], turns...)
	return strings.Join(lines, "\n"), nil
}

// ListConversations returns the IDs of all stored conversations.
func (m *MemoryManager) ListConversations(ctx context.Context) ([]string, error) {
	ids, err := m.store.ListConversations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return ids, nil
}

// DeleteConversation removes a conversation from the store and the registry.
func (m *MemoryManager) DeleteConversation(ctx context.Context, conversationID string) error {
	if err := validateConversationID(conversationID); err != nil {
		return err
	}
	unlock, err := m.locks.Lock(ctx, conversationID)
	if err != nil {
		return err
	}
	defer unlock()

	if err := m.store.DeleteConversation(ctx, conversationID); err != nil {
		return fmt.Errorf("delete conversation %s: %w", conversationID, err)
	}

	m.forget(conversationID)
	return nil
}

func validateConversationID(conversationID string) error {
	if strings.TrimSpace(conversationID) == "" {
		return domain.NewValidationError("conversation_id", "conversation id is empty")
	}
	return nil
}

func (m *MemoryManager) forget(conversationID string) {
	m.mu.Lock()
	delete(m.histories, conversationID)
	m.mu.Unlock()
}

// cached reports the number of registry entries.
func (m *MemoryManager) cached() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.histories)
}

// load returns the registry entry, reading it from the store on first use.
// Conversations with no committed turns are not kept in the registry.
// Callers must hold the conversation lock.
func (m *MemoryManager) load(ctx context.Context, conversationID string) (*domain.TieredHistory, error) {
	m.mu.RLock()
	h, ok := m.histories[conversationID]
	m.mu.RUnlock()
	if ok {
		return h, nil
	}

	h, err := m.store.LoadHistory(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load conversation %s: %w", conversationID, err)
	}
	if h == nil {
		h = domain.NewTieredHistory(conversationID)
	}
	h.ConversationID = conversationID
	if err := h.Validate(); err != nil {
		return nil, fmt.Errorf("load conversation %s: %w", conversationID, err)
	}
	if h.TotalTurns() == 0 {
		return h, nil
	}

	m.mu.Lock()
	m.histories[conversationID] = h
	m.mu.Unlock()
	return h, nil
}
