// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
//   - MemoryManager: tiered conversation memory with summarization
//   - ContentPipeline: chunking, embedding and similarity search
//   - EmbeddingOrchestrator: batching, caching, rate limiting and fallback
//   - RetryPolicy: per-attempt timeouts and backoff for provider calls
//   - SettingsService: persisted configuration
//
// Services are pure Go with no CGO.
package services
