// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// EmbeddingService generates vector embeddings from text.
// This is an optional service - when nil, chunks are stored without
// embeddings and semantic search is disabled.
//
// Implementations may include:
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Ollama (nomic-embed-text, all-minilm)
//
// Timeouts, HTTP 429, 408 and 5xx responses must be returned as
// *domain.TransientProviderError so callers can retry them.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in one request.
	// The result has one vector per input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 1536, 3072).
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// EmbeddingCache holds previously computed vectors keyed by content hash.
// Implementations must be safe for concurrent use.
type EmbeddingCache interface {
	// Get returns the cached vector for key.
	Get(key string) ([]float32, bool)

	// Set stores a vector. Admission may be dropped under memory pressure.
	Set(key string, vector []float32)

	// Close releases resources.
	Close()
}
