package mcp

import (
	"context"

	"github.com/custodia-labs/mnemo/internal/core/domain"
)

// mockContentService is a mock implementation of driving.ContentService.
type mockContentService struct {
	results []domain.SearchResult
	process *domain.ProcessResult
	err     error

	lastQuery   string
	lastOpts    domain.SearchOptions
	lastContent *domain.Content
}

func (m *mockContentService) ProcessContent(_ context.Context, parentID, _ string) (*domain.ProcessResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.process != nil {
		return m.process, nil
	}
	return &domain.ProcessResult{ParentID: parentID}, nil
}

func (m *mockContentService) Search(_ context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	m.lastQuery = query
	m.lastOpts = opts
	return m.results, m.err
}

func (m *mockContentService) Ingest(_ context.Context, content *domain.Content) (*domain.ProcessResult, error) {
	m.lastContent = content
	if m.err != nil {
		return nil, m.err
	}
	return &domain.ProcessResult{ParentID: content.ID, Chunks: make([]domain.Chunk, 2), Embedded: 2}, nil
}

func (m *mockContentService) Reindex(_ context.Context, parentID string) (*domain.ProcessResult, error) {
	return &domain.ProcessResult{ParentID: parentID}, m.err
}

func (m *mockContentService) Remove(_ context.Context, _ string) error {
	return m.err
}

func (m *mockContentService) List(_ context.Context, _ []domain.ContentType) ([]domain.Content, error) {
	return nil, m.err
}

// mockMemoryService is a mock implementation of driving.MemoryService.
type mockMemoryService struct {
	history       *domain.TieredHistory
	result        *domain.AddTurnResult
	prompt        string
	conversations []string
	err           error

	lastInput     domain.TurnInput
	lastMaxTokens int
}

func (m *mockMemoryService) AddTurn(_ context.Context, _ string, input domain.TurnInput) (*domain.AddTurnResult, error) {
	m.lastInput = input
	return m.result, m.err
}

func (m *mockMemoryService) GetTieredHistory(_ context.Context, id string) (*domain.TieredHistory, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.history != nil {
		return m.history, nil
	}
	return domain.NewTieredHistory(id), nil
}

func (m *mockMemoryService) FormatHistoryForPrompt(_ context.Context, _ string, maxTokens int) (string, error) {
	m.lastMaxTokens = maxTokens
	return m.prompt, m.err
}

func (m *mockMemoryService) ListConversations(_ context.Context) ([]string, error) {
	return m.conversations, m.err
}

func (m *mockMemoryService) DeleteConversation(_ context.Context, _ string) error {
	return m.err
}

func newTestServer(content *mockContentService, memory *mockMemoryService) *Server {
	if content == nil {
		content = &mockContentService{}
	}
	if memory == nil {
		memory = &mockMemoryService{}
	}
	s, err := NewServer(&Ports{Content: content, Memory: memory})
	if err != nil {
		panic(err)
	}
	return s
}
