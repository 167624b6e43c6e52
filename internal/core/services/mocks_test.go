package services

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockEmbeddingService implements driven.EmbeddingService for testing.
// embedFn decides each vector; batchFn, when set, overrides EmbedBatch.
type mockEmbeddingService struct {
	dims    int
	model   string
	embedFn func(text string) ([]float32, error)
	batchFn func(texts []string) ([][]float32, error)

	embedCalls atomic.Int32
	batchCalls atomic.Int32

	mu       sync.Mutex
	embedded []string
}

func (m *mockEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	m.embedCalls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.embedded = append(m.embedded, text)
	m.mu.Unlock()
	return m.vector(text)
}

func (m *mockEmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.batchCalls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.batchFn != nil {
		return m.batchFn(texts)
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := m.vector(t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	m.mu.Lock()
	m.embedded = append(m.embedded, texts...)
	m.mu.Unlock()
	return out, nil
}

func (m *mockEmbeddingService) vector(text string) ([]float32, error) {
	if m.embedFn != nil {
		return m.embedFn(text)
	}
	return []float32{float32(len(text)), 1}, nil
}

func (m *mockEmbeddingService) Dimensions() int {
	return m.dims
}

func (m *mockEmbeddingService) ModelName() string {
	if m.model == "" {
		return "mock-embed"
	}
	return m.model
}

func (m *mockEmbeddingService) Ping(_ context.Context) error {
	return nil
}

func (m *mockEmbeddingService) Close() error {
	return nil
}

// mapCache implements driven.EmbeddingCache with a plain map.
type mapCache struct {
	mu   sync.Mutex
	data map[string][]float32
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string][]float32)}
}

func (c *mapCache) Get(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok
}

func (c *mapCache) Set(key string, vector []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = vector
}

func (c *mapCache) Close() {}

func (c *mapCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

// mockLLMService implements driven.LLMService for testing.
type mockLLMService struct {
	reply    string
	err      error
	messages []driven.ChatMessage
	opts     driven.ChatOptions
}

func (m *mockLLMService) Chat(_ context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	m.messages = messages
	m.opts = opts
	return m.reply, m.err
}

func (m *mockLLMService) ModelName() string {
	return "mock-llm"
}

func (m *mockLLMService) Ping(_ context.Context) error {
	return nil
}

func (m *mockLLMService) Close() error {
	return nil
}

// mockSummarizer implements driven.Summarizer. fn defaults to joining the
// turn texts.
type mockSummarizer struct {
	fn    func(ctx context.Context, turns []domain.Turn) (string, error)
	calls atomic.Int32
}

func (m *mockSummarizer) Summarize(ctx context.Context, turns []domain.Turn) (string, error) {
	m.calls.Add(1)
	if m.fn != nil {
		return m.fn(ctx, turns)
	}
	texts := make([]string, len(turns))
	for i, t := range turns {
		texts[i] = t.Text
	}
	return "summary: " + strings.Join(texts, " | "), nil
}

// wordCounter implements driven.TokenCounter by counting words.
type wordCounter struct{}

func (wordCounter) Count(text string) int {
	return len(strings.Fields(text))
}

func (wordCounter) Name() string {
	return "words"
}

// mockPromptStore implements driven.PromptStore from a map.
type mockPromptStore struct {
	prompts map[string]string
	err     error
}

func (m *mockPromptStore) Load(name string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.prompts[name], nil
}

func (m *mockPromptStore) Reload() {}

// fastRetry returns a policy with no real waiting between attempts.
func fastRetry(attempts int) *RetryPolicy {
	p := NewRetryPolicy(domain.RetrySettings{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		Multiplier:     2,
		MaxBackoff:     10 * time.Millisecond,
		AttemptTimeout: time.Second,
	})
	p.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return p
}

// transient returns a retryable provider error.
func transient(msg string) error {
	return domain.NewTransientError("mock", "test", errString(msg))
}

type errString string

func (e errString) Error() string { return string(e) }
