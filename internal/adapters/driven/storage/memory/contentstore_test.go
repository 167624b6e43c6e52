package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mnemo/internal/core/domain"
)

func chunkSet(parentID string, parentType domain.ContentType, n int, embedded bool) []domain.Chunk {
	chunks := make([]domain.Chunk, n)
	for i := range chunks {
		chunks[i] = domain.Chunk{
			ID:         fmt.Sprintf("%s-c%d", parentID, i),
			ParentID:   parentID,
			ParentType: parentType,
			Index:      i,
			Text:       fmt.Sprintf("chunk %d", i),
		}
		if embedded {
			chunks[i].Embedding = []float32{float32(i), 1}
		}
	}
	return chunks
}

func TestContentStore_SaveAndGet(t *testing.T) {
	store := NewContentStore()
	ctx := context.Background()

	now := time.Now()
	note := &domain.Content{ID: "n1", Type: domain.ContentTypeNote, Title: "Groceries", Body: "milk", CreatedAt: now}
	require.NoError(t, store.SaveContent(ctx, note))

	got, err := store.GetContent(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "Groceries", got.Title)
	assert.Equal(t, "milk", got.Body)
	assert.True(t, now.Equal(got.CreatedAt))

	_, err = store.GetContent(ctx, "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestContentStore_SaveKeepsChunkIDs(t *testing.T) {
	store := NewContentStore()
	ctx := context.Background()

	require.NoError(t, store.SaveContent(ctx, &domain.Content{ID: "n1", Type: domain.ContentTypeNote}))
	require.NoError(t, store.ReplaceChunks(ctx, "n1", chunkSet("n1", domain.ContentTypeNote, 2, false)))

	require.NoError(t, store.SaveContent(ctx, &domain.Content{
		ID:       "n1",
		Type:     domain.ContentTypeNote,
		Title:    "renamed",
		ChunkIDs: []string{"bogus"},
	}))

	got, err := store.GetContent(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
	assert.Equal(t, []string{"n1-c0", "n1-c1"}, got.ChunkIDs)
}

func TestContentStore_ReplaceChunks(t *testing.T) {
	store := NewContentStore()
	ctx := context.Background()
	require.NoError(t, store.SaveContent(ctx, &domain.Content{ID: "n1", Type: domain.ContentTypeNote}))

	require.NoError(t, store.ReplaceChunks(ctx, "n1", chunkSet("n1", domain.ContentTypeNote, 3, true)))
	chunks, err := store.GetChunks(ctx, "n1")
	require.NoError(t, err)
	assert.Len(t, chunks, 3)

	// Replacing with a smaller set removes the old chunks.
	require.NoError(t, store.ReplaceChunks(ctx, "n1", chunkSet("n1", domain.ContentTypeNote, 1, true)))
	chunks, err = store.GetChunks(ctx, "n1")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	_, err = store.GetChunk(ctx, "n1-c2")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	got, err := store.GetContent(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, []string{"n1-c0"}, got.ChunkIDs)
}

func TestContentStore_ReplaceChunks_Errors(t *testing.T) {
	store := NewContentStore()
	ctx := context.Background()

	err := store.ReplaceChunks(ctx, "missing", chunkSet("missing", domain.ContentTypeNote, 1, false))
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	require.NoError(t, store.SaveContent(ctx, &domain.Content{ID: "n1", Type: domain.ContentTypeNote}))
	err = store.ReplaceChunks(ctx, "n1", chunkSet("other", domain.ContentTypeNote, 1, false))
	assert.True(t, errors.Is(err, domain.ErrConsistency))
}

func TestContentStore_CopiesOnReadAndWrite(t *testing.T) {
	store := NewContentStore()
	ctx := context.Background()
	require.NoError(t, store.SaveContent(ctx, &domain.Content{ID: "n1", Type: domain.ContentTypeNote}))

	chunks := chunkSet("n1", domain.ContentTypeNote, 1, true)
	require.NoError(t, store.ReplaceChunks(ctx, "n1", chunks))
	chunks[0].Embedding[0] = 99

	got, err := store.GetChunk(ctx, "n1-c0")
	require.NoError(t, err)
	assert.Equal(t, float32(0), got.Embedding[0])

	got.Embedding[0] = 42
	again, err := store.GetChunk(ctx, "n1-c0")
	require.NoError(t, err)
	assert.Equal(t, float32(0), again.Embedding[0])
}

func TestContentStore_ListContent(t *testing.T) {
	store := NewContentStore()
	ctx := context.Background()
	require.NoError(t, store.SaveContent(ctx, &domain.Content{ID: "b", Type: domain.ContentTypeNote}))
	require.NoError(t, store.SaveContent(ctx, &domain.Content{ID: "a", Type: domain.ContentTypeNote}))
	require.NoError(t, store.SaveContent(ctx, &domain.Content{ID: "profile", Type: domain.ContentTypeProfile}))

	all, err := store.ListContent(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].ID)

	profiles, err := store.ListContent(ctx, []domain.ContentType{domain.ContentTypeProfile})
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "profile", profiles[0].ID)
}

func TestContentStore_ListEmbeddedChunks(t *testing.T) {
	store := NewContentStore()
	ctx := context.Background()
	require.NoError(t, store.SaveContent(ctx, &domain.Content{ID: "n1", Type: domain.ContentTypeNote}))
	require.NoError(t, store.SaveContent(ctx, &domain.Content{ID: "n2", Type: domain.ContentTypeNote}))
	require.NoError(t, store.SaveContent(ctx, &domain.Content{ID: "p", Type: domain.ContentTypeProfile}))

	require.NoError(t, store.ReplaceChunks(ctx, "n1", chunkSet("n1", domain.ContentTypeNote, 2, true)))
	require.NoError(t, store.ReplaceChunks(ctx, "n2", chunkSet("n2", domain.ContentTypeNote, 2, false)))
	require.NoError(t, store.ReplaceChunks(ctx, "p", chunkSet("p", domain.ContentTypeProfile, 1, true)))

	all, err := store.ListEmbeddedChunks(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	notes, err := store.ListEmbeddedChunks(ctx, []domain.ContentType{domain.ContentTypeNote})
	require.NoError(t, err)
	assert.Len(t, notes, 2)
	for _, c := range notes {
		assert.Equal(t, "n1", c.ParentID)
	}
}

func TestContentStore_DeleteContent(t *testing.T) {
	store := NewContentStore()
	ctx := context.Background()
	require.NoError(t, store.SaveContent(ctx, &domain.Content{ID: "n1", Type: domain.ContentTypeNote}))
	require.NoError(t, store.ReplaceChunks(ctx, "n1", chunkSet("n1", domain.ContentTypeNote, 2, true)))

	require.NoError(t, store.DeleteContent(ctx, "n1"))

	_, err := store.GetContent(ctx, "n1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	chunks, err := store.GetChunks(ctx, "n1")
	require.NoError(t, err)
	assert.Empty(t, chunks)

	// Deleting twice is not an error.
	assert.NoError(t, store.DeleteContent(ctx, "n1"))
}

func TestContentStore_ConcurrentReplace(t *testing.T) {
	store := NewContentStore()
	ctx := context.Background()
	require.NoError(t, store.SaveContent(ctx, &domain.Content{ID: "n1", Type: domain.ContentTypeNote}))

	var wg sync.WaitGroup
	for i := 1; i <= 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = store.ReplaceChunks(ctx, "n1", chunkSet("n1", domain.ContentTypeNote, n, true))
			chunks, _ := store.GetChunks(ctx, "n1")
			assert.NoError(t, domain.ValidateChunkSet("n1", chunks))
		}(i)
	}
	wg.Wait()

	got, err := store.GetContent(ctx, "n1")
	require.NoError(t, err)
	chunks, err := store.GetChunks(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, domain.ChunkIDs(chunks), got.ChunkIDs)
}
