package driving

import (
	"context"

	"github.com/custodia-labs/mnemo/internal/core/domain"
)

// ContentService chunks, embeds and searches content entities.
type ContentService interface {
	// ProcessContent regenerates the chunk set of parentID from rawText.
	ProcessContent(ctx context.Context, parentID string, rawText string) (*domain.ProcessResult, error)

	// Search returns the chunks most similar to queryText.
	Search(ctx context.Context, queryText string, opts domain.SearchOptions) ([]domain.SearchResult, error)

	// Ingest stores a content entity and processes its body.
	Ingest(ctx context.Context, content *domain.Content) (*domain.ProcessResult, error)

	// Reindex re-processes a stored content entity.
	Reindex(ctx context.Context, parentID string) (*domain.ProcessResult, error)

	// Remove deletes a content entity and its chunk set.
	Remove(ctx context.Context, parentID string) error

	// List returns stored content entities, optionally filtered by type.
	List(ctx context.Context, types []domain.ContentType) ([]domain.Content, error)
}
