package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// ChunkSettings controls content splitting. Sizes are in characters.
type ChunkSettings struct {
	// MaxChunkSize is the window size.
	MaxChunkSize int

	// Overlap is the number of characters shared by consecutive chunks.
	Overlap int
}

// Validate checks the chunk window parameters.
func (c ChunkSettings) Validate() error {
	if c.MaxChunkSize <= 0 {
		return NewValidationError("chunk.max_size", "must be positive")
	}
	if c.Overlap < 0 {
		return NewValidationError("chunk.overlap", "must not be negative")
	}
	if c.Overlap >= c.MaxChunkSize {
		return NewValidationError("chunk.overlap", "must be smaller than chunk.max_size")
	}
	return nil
}

// MemorySettings holds the thresholds of the tiered conversation memory.
type MemorySettings struct {
	// MaxActiveTurns is the maximum number of verbatim turns kept active.
	MaxActiveTurns int

	// MaxActiveTokens is the maximum aggregate token count of the active tier.
	MaxActiveTokens int

	// MinBlockSize is the smallest number of turns folded into one summary.
	MinBlockSize int

	// PromptTokens is the default budget for formatted prompt history.
	PromptTokens int
}

// Validate checks the memory thresholds.
func (m MemorySettings) Validate() error {
	if m.MinBlockSize < 1 {
		return NewValidationError("memory.min_block_size", "must be at least 1")
	}
	if m.MaxActiveTurns < m.MinBlockSize {
		return NewValidationError("memory.max_active_turns", "must be at least memory.min_block_size")
	}
	if m.MaxActiveTokens <= 0 {
		return NewValidationError("memory.max_active_tokens", "must be positive")
	}
	if m.PromptTokens < 0 {
		return NewValidationError("memory.prompt_tokens", "must not be negative")
	}
	return nil
}

// RetrySettings holds the backoff policy for provider calls.
type RetrySettings struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// InitialBackoff is the wait after the first failure.
	InitialBackoff time.Duration

	// Multiplier grows the backoff after each failure.
	Multiplier float64

	// MaxBackoff caps the wait between attempts.
	MaxBackoff time.Duration

	// AttemptTimeout bounds each attempt. A timeout is retryable.
	AttemptTimeout time.Duration
}

// Validate checks the retry policy.
func (r RetrySettings) Validate() error {
	if r.MaxAttempts < 1 {
		return NewValidationError("retry.max_attempts", "must be at least 1")
	}
	if r.InitialBackoff < 0 || r.MaxBackoff < 0 {
		return NewValidationError("retry.backoff", "must not be negative")
	}
	if r.Multiplier < 1 {
		return NewValidationError("retry.multiplier", "must be at least 1")
	}
	if r.AttemptTimeout <= 0 {
		return NewValidationError("retry.attempt_timeout", "must be positive")
	}
	return nil
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// RequestsPerSecond limits provider calls. Zero disables limiting.
	RequestsPerSecond float64

	// Burst is the rate limiter bucket size.
	Burst int

	// Workers bounds concurrent per-text fallback calls.
	Workers int

	// CacheSize is the maximum number of cached vectors.
	CacheSize int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// AppSettings holds all application settings.
type AppSettings struct {
	// Chunk holds content splitting settings.
	Chunk ChunkSettings

	// Memory holds tiered conversation memory thresholds.
	Memory MemorySettings

	// Retry holds the provider retry policy.
	Retry RetrySettings

	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// LLM holds LLM provider settings.
	LLM LLMSettings
}

// Validate checks every section that has hard constraints.
func (s AppSettings) Validate() error {
	if err := s.Chunk.Validate(); err != nil {
		return err
	}
	if err := s.Memory.Validate(); err != nil {
		return err
	}
	if err := s.Retry.Validate(); err != nil {
		return err
	}
	if s.Embedding.Workers < 1 {
		return NewValidationError("embedding.workers", "must be at least 1")
	}
	if s.Embedding.RequestsPerSecond < 0 {
		return NewValidationError("embedding.requests_per_second", "must not be negative")
	}
	return nil
}

// PipelineConfig returns the post-processor pipeline derived from the chunk settings.
func (s AppSettings) PipelineConfig() PipelineConfig {
	return PipelineConfig{
		Processors: []string{"chunker"},
		ProcessorConfigs: map[string]map[string]any{
			"chunker": {
				"chunk_size": s.Chunk.MaxChunkSize,
				"overlap":    s.Chunk.Overlap,
			},
		},
	}
}

// DefaultAppSettings returns settings with sensible defaults.
// AI features (Embedding, LLM) are left unconfigured by default.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Chunk: ChunkSettings{
			MaxChunkSize: 1000,
			Overlap:      200,
		},
		Memory: MemorySettings{
			MaxActiveTurns:  20,
			MaxActiveTokens: 4000,
			MinBlockSize:    2,
			PromptTokens:    3000,
		},
		Retry: RetrySettings{
			MaxAttempts:    3,
			InitialBackoff: 500 * time.Millisecond,
			Multiplier:     2,
			MaxBackoff:     8 * time.Second,
			AttemptTimeout: 10 * time.Second,
		},
		Embedding: EmbeddingSettings{
			RequestsPerSecond: 5,
			Burst:             10,
			Workers:           4,
			CacheSize:         10000,
		},
		LLM: LLMSettings{},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-haiku-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

// PipelineConfig holds post-processor pipeline configuration.
// Uses generic map-based config so processors can be added
// without modifying this struct.
type PipelineConfig struct {
	// Processors is the ordered list of processor names to run.
	Processors []string

	// ProcessorConfigs holds per-processor configuration as generic maps.
	// Key is processor name, value is processor-specific config.
	ProcessorConfigs map[string]map[string]any
}

// GetProcessorConfig returns config for a specific processor, or nil if not set.
func (c *PipelineConfig) GetProcessorConfig(name string) map[string]any {
	if c.ProcessorConfigs == nil {
		return nil
	}
	return c.ProcessorConfigs[name]
}

// String renders the processor list for log output.
func (c PipelineConfig) String() string {
	return fmt.Sprintf("%v", c.Processors)
}
