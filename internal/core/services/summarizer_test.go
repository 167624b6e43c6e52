package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
)

func sampleTurns() []domain.Turn {
	return []domain.Turn{
		{Seq: 1, Role: domain.RoleUser, Text: "My name is Ada."},
		{Seq: 2, Role: domain.RoleAssistant, Text: "Nice to meet you, Ada."},
	}
}

func TestLLMSummarizer_BuildsPromptFromDefaults(t *testing.T) {
	llm := &mockLLMService{reply: "  Ada introduced herself.  "}
	s := NewLLMSummarizer(llm, nil)

	summary, err := s.Summarize(context.Background(), sampleTurns())

	require.NoError(t, err)
	assert.Equal(t, "Ada introduced herself.", summary)
	require.Len(t, llm.messages, 2)
	assert.Equal(t, "system", llm.messages[0].Role)
	assert.Equal(t, driven.DefaultPrompt(driven.PromptSummarySystem), llm.messages[0].Content)
	assert.Equal(t, "user", llm.messages[1].Role)
	assert.Contains(t, llm.messages[1].Content, "1. user: My name is Ada.")
	assert.Contains(t, llm.messages[1].Content, "2. assistant: Nice to meet you, Ada.")
	assert.NotContains(t, llm.messages[1].Content, "%s")
	assert.Equal(t, summaryMaxTokens, llm.opts.MaxTokens)
}

func TestLLMSummarizer_UsesPromptStore(t *testing.T) {
	llm := &mockLLMService{reply: "ok"}
	prompts := &mockPromptStore{prompts: map[string]string{
		driven.PromptSummarySystem:       "custom system",
		driven.PromptConversationSummary: "no placeholder here",
	}}
	s := NewLLMSummarizer(llm, prompts)

	_, err := s.Summarize(context.Background(), sampleTurns())

	require.NoError(t, err)
	assert.Equal(t, "custom system", llm.messages[0].Content)
	assert.Contains(t, llm.messages[1].Content, "no placeholder here\n\n1. user:")
}

func TestLLMSummarizer_PromptStoreErrorFallsBack(t *testing.T) {
	llm := &mockLLMService{reply: "ok"}
	s := NewLLMSummarizer(llm, &mockPromptStore{err: errors.New("disk gone")})

	_, err := s.Summarize(context.Background(), sampleTurns())

	require.NoError(t, err)
	assert.Equal(t, driven.DefaultPrompt(driven.PromptSummarySystem), llm.messages[0].Content)
}

func TestLLMSummarizer_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := NewLLMSummarizer(nil, nil).Summarize(ctx, sampleTurns())
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)

	_, err = NewLLMSummarizer(&mockLLMService{reply: "x"}, nil).Summarize(ctx, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = NewLLMSummarizer(&mockLLMService{reply: "   "}, nil).Summarize(ctx, sampleTurns())
	assert.Error(t, err)

	failing := &mockLLMService{err: transient("overloaded")}
	_, err = NewLLMSummarizer(failing, nil).Summarize(ctx, sampleTurns())
	assert.True(t, domain.IsTransient(err), "provider errors keep their class")
}

func TestFillTemplate(t *testing.T) {
	assert.Equal(t, "a X b %s", fillTemplate("a %s b %s", "X"))
	assert.Equal(t, "head\n\nX", fillTemplate("head", "X"))
}
