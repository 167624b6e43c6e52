package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
)

// Ensure ContentStore implements the interface.
var _ driven.ContentStore = (*ContentStore)(nil)

// ContentStore is an in-memory implementation of driven.ContentStore.
// Values are copied on the way in and out so callers never share slices
// with the store.
type ContentStore struct {
	mu       sync.RWMutex
	contents map[string]domain.Content
	chunks   map[string][]domain.Chunk
}

// NewContentStore creates a new in-memory content store.
func NewContentStore() *ContentStore {
	return &ContentStore{
		contents: make(map[string]domain.Content),
		chunks:   make(map[string][]domain.Chunk),
	}
}

// SaveContent stores or updates a content entity. ChunkIDs are owned by
// ReplaceChunks and keep their stored value.
func (s *ContentStore) SaveContent(_ context.Context, content *domain.Content) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := *content
	saved.ChunkIDs = nil
	if existing, ok := s.contents[content.ID]; ok {
		saved.ChunkIDs = existing.ChunkIDs
	}
	s.contents[content.ID] = saved
	return nil
}

// GetContent retrieves a content entity by ID.
func (s *ContentStore) GetContent(_ context.Context, id string) (*domain.Content, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	content, ok := s.contents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	content.ChunkIDs = slices.Clone(content.ChunkIDs)
	return &content, nil
}

// DeleteContent removes a content entity and its chunks.
func (s *ContentStore) DeleteContent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.contents, id)
	delete(s.chunks, id)
	return nil
}

// ListContent returns content entities ordered by ID.
func (s *ContentStore) ListContent(_ context.Context, types []domain.ContentType) ([]domain.Content, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Content, 0, len(s.contents))
	for _, c := range s.contents {
		if len(types) > 0 && !slices.Contains(types, c.Type) {
			continue
		}
		c.ChunkIDs = slices.Clone(c.ChunkIDs)
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ReplaceChunks swaps the chunk set of parentID under the write lock.
func (s *ContentStore) ReplaceChunks(_ context.Context, parentID string, chunks []domain.Chunk) error {
	if err := domain.ValidateChunkSet(parentID, chunks); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	content, ok := s.contents[parentID]
	if !ok {
		return domain.ErrNotFound
	}
	content.ChunkIDs = domain.ChunkIDs(chunks)
	s.contents[parentID] = content
	s.chunks[parentID] = copyChunks(chunks)
	return nil
}

// GetChunks retrieves the chunk set of a parent in index order.
func (s *ContentStore) GetChunks(_ context.Context, parentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyChunks(s.chunks[parentID]), nil
}

// GetChunk retrieves a specific chunk by ID.
func (s *ContentStore) GetChunk(_ context.Context, id string) (*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, chunks := range s.chunks {
		for i := range chunks {
			if chunks[i].ID == id {
				chunk := chunks[i]
				chunk.Embedding = slices.Clone(chunk.Embedding)
				return &chunk, nil
			}
		}
	}
	return nil, domain.ErrNotFound
}

// ListEmbeddedChunks returns every chunk with an embedding whose parent type matches.
func (s *ContentStore) ListEmbeddedChunks(_ context.Context, types []domain.ContentType) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Chunk
	for _, chunks := range s.chunks {
		for _, c := range chunks {
			if !c.HasEmbedding() {
				continue
			}
			if len(types) > 0 && !slices.Contains(types, c.ParentType) {
				continue
			}
			c.Embedding = slices.Clone(c.Embedding)
			result = append(result, c)
		}
	}
	return result, nil
}

func copyChunks(chunks []domain.Chunk) []domain.Chunk {
	if chunks == nil {
		return nil
	}
	out := make([]domain.Chunk, len(chunks))
	for i, c := range chunks {
		c.Embedding = slices.Clone(c.Embedding)
		out[i] = c
	}
	return out
}
