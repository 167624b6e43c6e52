package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mnemo/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, store)
	t.Cleanup(func() { assert.NoError(t, store.Close()) })

	return store
}

func saveNote(t *testing.T, store *Store, id string, contentType domain.ContentType) {
	t.Helper()
	now := time.Now().UTC()
	err := store.ContentStore().SaveContent(context.Background(), &domain.Content{
		ID: id, Type: contentType, Title: "Title " + id, Body: "body of " + id,
		CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
}

func chunkSet(parentID string, parentType domain.ContentType, n int, embedded bool) []domain.Chunk {
	chunks := make([]domain.Chunk, n)
	for i := range chunks {
		chunks[i] = domain.Chunk{
			ID:         fmt.Sprintf("%s-c%d", parentID, i),
			ParentID:   parentID,
			ParentType: parentType,
			Index:      i,
			Text:       fmt.Sprintf("chunk %d", i),
			CreatedAt:  time.Unix(1700000000, 0).UTC(),
		}
		if embedded {
			chunks[i].Embedding = []float32{float32(i), 0.5, -1.25}
		}
	}
	return chunks
}

func turnsFor(conv string, from, to int64) []domain.Turn {
	var turns []domain.Turn
	for seq := from; seq <= to; seq++ {
		turns = append(turns, domain.Turn{
			ID:             fmt.Sprintf("%s-t%d", conv, seq),
			ConversationID: conv,
			Seq:            seq,
			Role:           domain.RoleAssistant,
			Text:           fmt.Sprintf("turn %d", seq),
			TokenCount:     2,
			CreatedAt:      time.Unix(1700000000+seq, 0).UTC(),
		})
	}
	return turns
}

func summaryFor(conv string, turns []domain.Turn) *domain.Summary {
	ids := make([]string, len(turns))
	for i := range turns {
		ids[i] = turns[i].ID
	}
	return &domain.Summary{
		ID:             fmt.Sprintf("%s-s%d", conv, turns[0].Seq),
		ConversationID: conv,
		FromSeq:        turns[0].Seq,
		ToSeq:          turns[len(turns)-1].Seq,
		TurnIDs:        ids,
		Text:           "summary",
		TokenCount:     1,
		CreatedAt:      time.Unix(1700001000, 0).UTC(),
	}
}

// ==================== Store Creation Tests ====================

func TestNewStore_CreatesDatabase(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, filepath.Join(dir, DatabaseFileName), store.Path())
	_, err = os.Stat(store.Path())
	assert.NoError(t, err)

	version, err := store.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestNewStore_ReopenSkipsAppliedMigrations(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	saveNote(t, store, "n1", domain.ContentTypeNote)
	require.NoError(t, store.Close())

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	c, err := reopened.ContentStore().GetContent(context.Background(), "n1")
	require.NoError(t, err)
	assert.Equal(t, "body of n1", c.Body)
}

func TestNewStore_InvalidDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0600))

	_, err := NewStore(filepath.Join(file, "sub"))
	assert.Error(t, err)
}

func TestFloat32Blob(t *testing.T) {
	in := []float32{0, 1.5, -2.25, 3e-7}
	assert.Equal(t, in, bytesToFloat32Slice(float32SliceToBytes(in)))
	assert.Nil(t, float32SliceToBytes(nil))
	assert.Nil(t, bytesToFloat32Slice(nil))
}

// ==================== Content Store Tests ====================

func TestContentStore_SaveAndGet(t *testing.T) {
	store := setupTestStore(t)
	cs := store.ContentStore()
	ctx := context.Background()

	created := time.Unix(1700000000, 123).UTC()
	require.NoError(t, cs.SaveContent(ctx, &domain.Content{
		ID: "p", Type: domain.ContentTypeProfile, Title: "Me", Body: "likes tea",
		CreatedAt: created, UpdatedAt: created,
	}))

	got, err := cs.GetContent(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, domain.ContentTypeProfile, got.Type)
	assert.Equal(t, "Me", got.Title)
	assert.Equal(t, "likes tea", got.Body)
	assert.True(t, created.Equal(got.CreatedAt))
	assert.Empty(t, got.ChunkIDs)

	_, err = cs.GetContent(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestContentStore_SaveRejectsInvalid(t *testing.T) {
	cs := setupTestStore(t).ContentStore()

	assert.ErrorIs(t, cs.SaveContent(context.Background(), nil), domain.ErrInvalidInput)
	err := cs.SaveContent(context.Background(), &domain.Content{ID: "x", Type: "email"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestContentStore_UpdateKeepsChunksAndCreatedAt(t *testing.T) {
	store := setupTestStore(t)
	cs := store.ContentStore()
	ctx := context.Background()

	saveNote(t, store, "n1", domain.ContentTypeNote)
	first, err := cs.GetContent(ctx, "n1")
	require.NoError(t, err)
	require.NoError(t, cs.ReplaceChunks(ctx, "n1", chunkSet("n1", domain.ContentTypeNote, 2, false)))

	require.NoError(t, cs.SaveContent(ctx, &domain.Content{
		ID: "n1", Type: domain.ContentTypeNote, Body: "edited",
		CreatedAt: time.Now().Add(time.Hour), UpdatedAt: time.Now(),
	}))

	got, err := cs.GetContent(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Body)
	assert.Equal(t, []string{"n1-c0", "n1-c1"}, got.ChunkIDs)
	assert.True(t, first.CreatedAt.Equal(got.CreatedAt))
}

func TestContentStore_ReplaceChunks(t *testing.T) {
	store := setupTestStore(t)
	cs := store.ContentStore()
	ctx := context.Background()
	saveNote(t, store, "n1", domain.ContentTypeNote)

	require.NoError(t, cs.ReplaceChunks(ctx, "n1", chunkSet("n1", domain.ContentTypeNote, 3, true)))

	fresh := chunkSet("n1", domain.ContentTypeNote, 2, false)
	fresh[0].ID, fresh[1].ID = "new-0", "new-1"
	require.NoError(t, cs.ReplaceChunks(ctx, "n1", fresh))

	chunks, err := cs.GetChunks(ctx, "n1")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, fresh, chunks)

	for _, old := range []string{"n1-c0", "n1-c1", "n1-c2"} {
		_, err := cs.GetChunk(ctx, old)
		assert.ErrorIs(t, err, domain.ErrNotFound, old)
	}

	c, err := cs.GetContent(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, []string{"new-0", "new-1"}, c.ChunkIDs)
}

func TestContentStore_ReplaceChunksErrors(t *testing.T) {
	store := setupTestStore(t)
	cs := store.ContentStore()
	ctx := context.Background()

	err := cs.ReplaceChunks(ctx, "ghost", chunkSet("ghost", domain.ContentTypeNote, 1, false))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	saveNote(t, store, "n1", domain.ContentTypeNote)
	require.NoError(t, cs.ReplaceChunks(ctx, "n1", chunkSet("n1", domain.ContentTypeNote, 2, false)))

	gap := chunkSet("n1", domain.ContentTypeNote, 2, false)
	gap[1].Index = 5
	err = cs.ReplaceChunks(ctx, "n1", gap)
	assert.ErrorIs(t, err, domain.ErrConsistency)

	// A failing insert rolls back, leaving the previous set.
	saveNote(t, store, "n2", domain.ContentTypeNote)
	require.NoError(t, cs.ReplaceChunks(ctx, "n2", []domain.Chunk{{
		ID: "taken", ParentID: "n2", ParentType: domain.ContentTypeNote, Text: "x",
	}}))
	clash := []domain.Chunk{{ID: "taken", ParentID: "n1", ParentType: domain.ContentTypeNote, Text: "y"}}
	assert.Error(t, cs.ReplaceChunks(ctx, "n1", clash))

	chunks, err := cs.GetChunks(ctx, "n1")
	require.NoError(t, err)
	assert.Len(t, chunks, 2)
}

func TestContentStore_ReplaceWithEmptySet(t *testing.T) {
	store := setupTestStore(t)
	cs := store.ContentStore()
	ctx := context.Background()
	saveNote(t, store, "n1", domain.ContentTypeNote)
	require.NoError(t, cs.ReplaceChunks(ctx, "n1", chunkSet("n1", domain.ContentTypeNote, 2, true)))

	require.NoError(t, cs.ReplaceChunks(ctx, "n1", nil))

	chunks, err := cs.GetChunks(ctx, "n1")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestContentStore_ListEmbeddedChunks(t *testing.T) {
	store := setupTestStore(t)
	cs := store.ContentStore()
	ctx := context.Background()

	saveNote(t, store, "n1", domain.ContentTypeNote)
	saveNote(t, store, "n2", domain.ContentTypeNote)
	saveNote(t, store, "p", domain.ContentTypeProfile)

	require.NoError(t, cs.ReplaceChunks(ctx, "n1", chunkSet("n1", domain.ContentTypeNote, 2, true)))
	require.NoError(t, cs.ReplaceChunks(ctx, "n2", chunkSet("n2", domain.ContentTypeNote, 2, false)))
	require.NoError(t, cs.ReplaceChunks(ctx, "p", chunkSet("p", domain.ContentTypeProfile, 1, true)))

	all, err := cs.ListEmbeddedChunks(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	for _, c := range all {
		assert.True(t, c.HasEmbedding())
	}

	profiles, err := cs.ListEmbeddedChunks(ctx, []domain.ContentType{domain.ContentTypeProfile})
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "p-c0", profiles[0].ID)
	assert.Equal(t, []float32{0, 0.5, -1.25}, profiles[0].Embedding)
}

func TestContentStore_ListAndDelete(t *testing.T) {
	store := setupTestStore(t)
	cs := store.ContentStore()
	ctx := context.Background()

	saveNote(t, store, "b", domain.ContentTypeNote)
	saveNote(t, store, "a", domain.ContentTypeNote)
	saveNote(t, store, "p", domain.ContentTypeProfile)
	require.NoError(t, cs.ReplaceChunks(ctx, "a", chunkSet("a", domain.ContentTypeNote, 2, true)))

	list, err := cs.ListContent(ctx, nil)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, []string{"a-c0", "a-c1"}, list[0].ChunkIDs)

	notes, err := cs.ListContent(ctx, []domain.ContentType{domain.ContentTypeNote})
	require.NoError(t, err)
	assert.Len(t, notes, 2)

	require.NoError(t, cs.DeleteContent(ctx, "a"))
	require.NoError(t, cs.DeleteContent(ctx, "a"), "delete is idempotent")

	_, err = cs.GetContent(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = cs.GetChunk(ctx, "a-c0")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestContentStore_ConcurrentReplace(t *testing.T) {
	store := setupTestStore(t)
	cs := store.ContentStore()
	ctx := context.Background()
	saveNote(t, store, "n1", domain.ContentTypeNote)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			set := chunkSet("n1", domain.ContentTypeNote, 3, true)
			for j := range set {
				set[j].ID = fmt.Sprintf("g%d-%d", i, j)
			}
			errs <- cs.ReplaceChunks(ctx, "n1", set)
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	chunks, err := cs.GetChunks(ctx, "n1")
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	prefix := chunks[0].ID[:3]
	for _, c := range chunks {
		assert.Equal(t, prefix, c.ID[:3], "chunk set must come from a single writer")
	}
}

// ==================== Conversation Store Tests ====================

func TestConversationStore_LoadUnknownIsEmpty(t *testing.T) {
	cs := setupTestStore(t).ConversationStore()

	h, err := cs.LoadHistory(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", h.ConversationID)
	assert.Zero(t, h.TotalTurns())
}

func TestConversationStore_CommitAndLoad(t *testing.T) {
	cs := setupTestStore(t).ConversationStore()
	ctx := context.Background()

	turns := turnsFor("c1", 1, 4)
	require.NoError(t, cs.Commit(ctx, "c1", domain.HistoryChange{AppendTurns: turns}))
	require.NoError(t, cs.Commit(ctx, "c1", domain.HistoryChange{
		AppendTurns: turnsFor("c1", 5, 5),
		Summary:     summaryFor("c1", turns[:2]),
	}))

	h, err := cs.LoadHistory(ctx, "c1")
	require.NoError(t, err)
	require.NoError(t, h.Validate())

	assert.Equal(t, turns[:2], h.ArchivedTurns)
	require.Len(t, h.ActiveTurns, 3)
	assert.Equal(t, int64(3), h.ActiveTurns[0].Seq)
	assert.Equal(t, int64(5), h.ActiveTurns[2].Seq)
	require.Len(t, h.Summaries, 1)
	assert.Equal(t, *summaryFor("c1", turns[:2]), h.Summaries[0])
}

func TestConversationStore_RejectedCommitChangesNothing(t *testing.T) {
	cs := setupTestStore(t).ConversationStore()
	ctx := context.Background()

	require.NoError(t, cs.Commit(ctx, "c1", domain.HistoryChange{AppendTurns: turnsFor("c1", 1, 3)}))

	// Summary over turns that are not active.
	err := cs.Commit(ctx, "c1", domain.HistoryChange{
		AppendTurns: turnsFor("c1", 4, 4),
		Summary:     summaryFor("c1", turnsFor("c1", 7, 8)),
	})
	require.Error(t, err)
	var cerr *domain.ConsistencyError
	assert.True(t, errors.As(err, &cerr))

	// Duplicate seq.
	err = cs.Commit(ctx, "c1", domain.HistoryChange{AppendTurns: turnsFor("c1", 3, 3)})
	assert.ErrorIs(t, err, domain.ErrConsistency)

	h, err := cs.LoadHistory(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, h.ActiveTurns, 3)
	assert.Empty(t, h.Summaries)
}

func TestConversationStore_SequentialSummaries(t *testing.T) {
	cs := setupTestStore(t).ConversationStore()
	ctx := context.Background()

	turns := turnsFor("c1", 1, 6)
	require.NoError(t, cs.Commit(ctx, "c1", domain.HistoryChange{AppendTurns: turns}))
	require.NoError(t, cs.Commit(ctx, "c1", domain.HistoryChange{Summary: summaryFor("c1", turns[0:2])}))
	require.NoError(t, cs.Commit(ctx, "c1", domain.HistoryChange{Summary: summaryFor("c1", turns[2:4])}))

	h, err := cs.LoadHistory(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, h.Summaries, 2)
	assert.Equal(t, []string{"c1-t3", "c1-t4"}, h.Summaries[1].TurnIDs)
	assert.Len(t, h.ArchivedTurns, 4)
	assert.Len(t, h.ActiveTurns, 2)
}

func TestConversationStore_ListAndDelete(t *testing.T) {
	cs := setupTestStore(t).ConversationStore()
	ctx := context.Background()

	for _, id := range []string{"zeta", "alpha"} {
		turns := turnsFor(id, 1, 2)
		require.NoError(t, cs.Commit(ctx, id, domain.HistoryChange{AppendTurns: turns}))
		require.NoError(t, cs.Commit(ctx, id, domain.HistoryChange{Summary: summaryFor(id, turns[:1])}))
	}

	ids, err := cs.ListConversations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, ids)

	require.NoError(t, cs.DeleteConversation(ctx, "zeta"))
	ids, err = cs.ListConversations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha"}, ids)

	h, err := cs.LoadHistory(ctx, "zeta")
	require.NoError(t, err)
	assert.Zero(t, h.TotalTurns())
	assert.Empty(t, h.Summaries)
}

func TestConversationStore_SharesDatabaseWithContent(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.ConversationStore().Commit(ctx, "c1",
		domain.HistoryChange{AppendTurns: turnsFor("c1", 1, 2)}))
	require.NoError(t, store.Close())

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	h, err := reopened.ConversationStore().LoadHistory(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, turnsFor("c1", 1, 2), h.ActiveTurns)
}
