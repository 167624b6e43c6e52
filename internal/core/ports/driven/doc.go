// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - ContentStore: Content and chunk set persistence
//   - ConversationStore: Conversation tier persistence
//   - TokenCounter: Token measurement for memory thresholds
//   - ConfigStore: Application configuration
//   - PostProcessorPipeline: Content chunking
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingService: Generates vector embeddings. Without it, semantic search is disabled.
//   - EmbeddingCache: Vector cache. Without it, every text is sent to the provider.
//   - LLMService / Summarizer: Without them, summarization is deferred.
//   - PromptStore: Without it, built-in prompts are used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or postprocessor package
package driven
