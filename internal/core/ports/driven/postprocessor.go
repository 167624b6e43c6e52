package driven

import (
	"context"

	"github.com/custodia-labs/mnemo/internal/core/domain"
)

// PostProcessor processes content to produce chunks.
// PostProcessors are chained in a pipeline.
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process takes a content entity and returns chunks.
	// If the processor creates chunks (e.g., chunker), it receives nil and returns new chunks.
	// If the processor modifies chunks, it receives and returns chunks.
	Process(ctx context.Context, content *domain.Content, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline chains multiple PostProcessors.
type PostProcessorPipeline interface {
	// Process runs the content through all processors in order.
	// Returns the final chunks after all processing.
	Process(ctx context.Context, content *domain.Content) ([]domain.Chunk, error)
}
