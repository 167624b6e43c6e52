package driven

import (
	"context"

	"github.com/custodia-labs/mnemo/internal/core/domain"
)

// ContentStore persists content entities and their chunk sets.
// Backed by SQLite, with an in-memory implementation for tests.
type ContentStore interface {
	// SaveContent stores or updates a content entity.
	// The stored ChunkIDs are left unchanged; only ReplaceChunks changes them.
	SaveContent(ctx context.Context, content *domain.Content) error

	// GetContent retrieves a content entity by ID.
	// Returns domain.ErrNotFound if it does not exist.
	GetContent(ctx context.Context, id string) (*domain.Content, error)

	// DeleteContent removes a content entity and its chunks.
	DeleteContent(ctx context.Context, id string) error

	// ListContent returns content entities, optionally filtered by type.
	ListContent(ctx context.Context, types []domain.ContentType) ([]domain.Content, error)

	// ReplaceChunks atomically swaps the chunk set of parentID: old chunks are
	// deleted, the new ones inserted and the parent's ChunkIDs updated.
	// Readers see either the old set or the new set, never a mix.
	ReplaceChunks(ctx context.Context, parentID string, chunks []domain.Chunk) error

	// GetChunks retrieves the chunk set of a parent in index order.
	GetChunks(ctx context.Context, parentID string) ([]domain.Chunk, error)

	// GetChunk retrieves a specific chunk by ID.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// ListEmbeddedChunks returns every chunk carrying an embedding whose
	// parent type is in types. Empty types means all.
	ListEmbeddedChunks(ctx context.Context, types []domain.ContentType) ([]domain.Chunk, error)
}
