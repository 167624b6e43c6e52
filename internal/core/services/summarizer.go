package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
	"github.com/custodia-labs/mnemo/internal/logger"
)

// Ensure LLMSummarizer implements the interface.
var _ driven.Summarizer = (*LLMSummarizer)(nil)

// summaryMaxTokens bounds the length of a generated summary.
const summaryMaxTokens = 512

// LLMSummarizer adapts an LLMService into a Summarizer using prompt templates.
type LLMSummarizer struct {
	llm     driven.LLMService
	prompts driven.PromptStore
}

// NewLLMSummarizer creates a summarizer. prompts may be nil.
func NewLLMSummarizer(llm driven.LLMService, prompts driven.PromptStore) *LLMSummarizer {
	return &LLMSummarizer{llm: llm, prompts: prompts}
}

// Summarize condenses turns into one text.
// Returns domain.ErrLLMUnavailable if no LLM is configured.
func (s *LLMSummarizer) Summarize(ctx context.Context, turns []domain.Turn) (string, error) {
	if s.llm == nil {
		return "", domain.ErrLLMUnavailable
	}
	if len(turns) == 0 {
		return "", domain.NewValidationError("turns", "nothing to summarize")
	}

	prompt := fillTemplate(s.load(driven.PromptConversationSummary), renderTranscript(turns))
	messages := []driven.ChatMessage{
		{Role: string(domain.RoleSystem), Content: s.load(driven.PromptSummarySystem)},
		{Role: string(domain.RoleUser), Content: prompt},
	}

	logger.Debug("summarizing turns %d-%d with %s", turns[0].Seq, turns[len(turns)-1].Seq, s.llm.ModelName())
	reply, err := s.llm.Chat(ctx, messages, driven.ChatOptions{MaxTokens: summaryMaxTokens, Temperature: 0.2})
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", errors.New("summarize: model returned an empty summary")
	}
	return reply, nil
}

// load returns the named prompt, or its built-in template when there is no
// PromptStore or the stored prompt is unusable.
func (s *LLMSummarizer) load(name string) string {
	if s.prompts == nil {
		return driven.DefaultPrompt(name)
	}
	prompt, err := s.prompts.Load(name)
	if err != nil || strings.TrimSpace(prompt) == "" {
		logger.Debug("prompt %s unavailable, using built-in: %v", name, err)
		return driven.DefaultPrompt(name)
	}
	return prompt
}

// renderTranscript writes one numbered line per turn.
func renderTranscript(turns []domain.Turn) string {
	var b strings.Builder
	for _, t := range turns {
		fmt.Fprintf(&b, "%d. %s: %s\n\n", t.Seq, t.Role, t.Text)
	}
	return b.String()
}

// fillTemplate substitutes the first %s, or appends the value when the
// template has no placeholder.
func fillTemplate(tmpl, value string) string {
	if strings.Contains(tmpl, "%s") {
		return strings.Replace(tmpl, "%s", value, 1)
	}
	return tmpl + "\n\n" + value
}
