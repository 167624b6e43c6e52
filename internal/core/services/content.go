package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
	"github.com/custodia-labs/mnemo/internal/core/ports/driving"
	"github.com/custodia-labs/mnemo/internal/logger"
)

// Ensure ContentPipeline implements the interface.
var _ driving.ContentService = (*ContentPipeline)(nil)

// ContentPipeline keeps each content entity's chunk set in step with its
// text: chunk, embed, then swap the whole set atomically. It also answers
// semantic queries over the stored chunks.
type ContentPipeline struct {
	store      driven.ContentStore
	pipeline   driven.PostProcessorPipeline
	embeddings *EmbeddingOrchestrator
	index      driven.SimilarityIndex

	locks *keyedMutex
	now   func() time.Time
}

// NewContentPipeline creates a content pipeline.
// embeddings may be nil or unavailable; chunks are then stored without
// vectors and Search returns domain.ErrEmbeddingUnavailable.
// index defaults to the linear-scan SimilarityIndex.
func NewContentPipeline(
	store driven.ContentStore,
	pipeline driven.PostProcessorPipeline,
	embeddings *EmbeddingOrchestrator,
	index driven.SimilarityIndex,
) *ContentPipeline {
	if index == nil {
		index = NewSimilarityIndex()
	}
	return &ContentPipeline{
		store:      store,
		pipeline:   pipeline,
		embeddings: embeddings,
		index:      index,
		locks:      newKeyedMutex(),
		now:        time.Now,
	}
}

// ProcessContent regenerates the chunk set of parentID from rawText.
// Chunks whose embedding fails are stored without a vector.
func (p *ContentPipeline) ProcessContent(ctx context.Context, parentID string, rawText string) (*domain.ProcessResult, error) {
	if strings.TrimSpace(parentID) == "" {
		return nil, domain.NewValidationError("parent_id", "parent id is empty")
	}

	unlock, err := p.locks.Lock(ctx, parentID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	content, err := p.store.GetContent(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("get content %s: %w", parentID, err)
	}
	return p.process(ctx, content, rawText)
}

// process must be called with the parent lock held.
func (p *ContentPipeline) process(ctx context.Context, content *domain.Content, rawText string) (*domain.ProcessResult, error) {
	logger.Section("Process Content")
	logger.Debug("content %s (%s): %d characters", content.ID, content.Type, len([]rune(rawText)))

	input := *content
	input.Body = rawText
	chunks, err := p.pipeline.Process(ctx, &input)
	if err != nil {
		return nil, fmt.Errorf("chunk content %s: %w", content.ID, err)
	}
	if err := domain.ValidateChunkSet(content.ID, chunks); err != nil {
		return nil, err
	}

	result := &domain.ProcessResult{ParentID: content.ID, Chunks: chunks}
	if len(chunks) > 0 && p.embeddings.Available() {
		texts := make([]string, len(chunks))
		for i := range chunks {
			texts[i] = chunks[i].Text
		}
		for i, r := range p.embeddings.EmbedBatch(ctx, texts) {
			if r.Err != nil {
				result.Failed++
				logger.Debug("chunk %d of %s not embedded: %v", i, content.ID, r.Err)
				continue
			}
			chunks[i].Embedding = r.Vector
			result.Embedded++
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := p.store.ReplaceChunks(ctx, content.ID, chunks); err != nil {
		return nil, fmt.Errorf("replace chunks of %s: %w", content.ID, err)
	}

	if result.Failed > 0 {
		logger.Warn("content %s: %d of %d chunks stored without embeddings", content.ID, result.Failed, len(chunks))
	}
	logger.Info("content %s: %d chunks, %d embedded", content.ID, len(chunks), result.Embedded)
	return result, nil
}

// Search embeds queryText and ranks embedded chunks by similarity.
func (p *ContentPipeline) Search(ctx context.Context, queryText string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	logger.Section("Search Execution")
	logger.Debug("Query: %q", queryText)

	queryText = strings.TrimSpace(queryText)
	if queryText == "" {
		logger.Debug("Empty query, returning no results")
		return []domain.SearchResult{}, nil
	}
	if !p.embeddings.Available() {
		return nil, domain.ErrEmbeddingUnavailable
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = domain.DefaultSearchLimit
	}

	query, err := p.embeddings.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	candidates, err := p.store.ListEmbeddedChunks(ctx, opts.Types)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	logger.Debug("Candidates: %d embedded chunks, types %v", len(candidates), opts.Types)

	ranked := p.index.Search(query, candidates, limit, opts.Types)

	byID := make(map[string]*domain.Chunk, len(candidates))
	for i := range candidates {
		byID[candidates[i].ID] = &candidates[i]
	}
	titles := make(map[string]string)

	results := make([]domain.SearchResult, 0, len(ranked))
	for _, r := range ranked {
		if r.Score < opts.MinScore {
			continue
		}
		sr := domain.SearchResult{SimilarityResult: r}
		if c, ok := byID[r.ChunkID]; ok {
			sr.Text = c.Text
		}
		title, ok := titles[r.ParentID]
		if !ok {
			title = p.parentTitle(ctx, r.ParentID)
			titles[r.ParentID] = title
		}
		sr.ParentTitle = title
		results = append(results, sr)
	}

	logger.Debug("Results: %d", len(results))
	return results, nil
}

func (p *ContentPipeline) parentTitle(ctx context.Context, parentID string) string {
	content, err := p.store.GetContent(ctx, parentID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("lookup parent %s: %v", parentID, err)
		}
		return ""
	}
	return content.Title
}

// Ingest stores content and regenerates its chunk set from the body.
func (p *ContentPipeline) Ingest(ctx context.Context, content *domain.Content) (*domain.ProcessResult, error) {
	if content == nil {
		return nil, domain.NewValidationError("content", "content is nil")
	}
	if err := content.Validate(); err != nil {
		return nil, err
	}

	unlock, err := p.locks.Lock(ctx, content.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := p.now()
	stored := *content
	if existing, err := p.store.GetContent(ctx, content.ID); err == nil {
		stored.CreatedAt = existing.CreatedAt
		stored.ChunkIDs = existing.ChunkIDs
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get content %s: %w", content.ID, err)
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	if err := p.store.SaveContent(ctx, &stored); err != nil {
		return nil, fmt.Errorf("save content %s: %w", content.ID, err)
	}
	return p.process(ctx, &stored, stored.Body)
}

// Reindex regenerates the chunk set of stored content.
func (p *ContentPipeline) Reindex(ctx context.Context, parentID string) (*domain.ProcessResult, error) {
	unlock, err := p.locks.Lock(ctx, parentID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	content, err := p.store.GetContent(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("get content %s: %w", parentID, err)
	}
	return p.process(ctx, content, content.Body)
}

// Remove deletes content and its chunk set.
func (p *ContentPipeline) Remove(ctx context.Context, parentID string) error {
	unlock, err := p.locks.Lock(ctx, parentID)
	if err != nil {
		return err
	}
	defer unlock()

	if err := p.store.DeleteContent(ctx, parentID); err != nil {
		return fmt.Errorf("delete content %s: %w", parentID, err)
	}
	logger.Info("content %s removed", parentID)
	return nil
}

// List returns stored content, optionally filtered by type.
func (p *ContentPipeline) List(ctx context.Context, types []domain.ContentType) ([]domain.Content, error) {
	contents, err := p.store.ListContent(ctx, types)
	if err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}
	return contents, nil
}
