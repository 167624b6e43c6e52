package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
)

// contentStore implements driven.ContentStore.
type contentStore struct {
	store *Store
}

var _ driven.ContentStore = (*contentStore)(nil)

// SaveContent stores or updates a content entity. Chunks are untouched.
func (s *contentStore) SaveContent(ctx context.Context, content *domain.Content) error {
	if content == nil {
		return domain.NewValidationError("content", "content is nil")
	}
	if err := content.Validate(); err != nil {
		return err
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO contents (id, type, title, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			title = excluded.title,
			body = excluded.body,
			updated_at = excluded.updated_at
	`, content.ID, string(content.Type), content.Title, content.Body,
		toUnix(content.CreatedAt), toUnix(content.UpdatedAt))
	if err != nil {
		return fmt.Errorf("saving content: %w", err)
	}
	return nil
}

// GetContent retrieves a content entity with its current ChunkIDs.
func (s *contentStore) GetContent(ctx context.Context, id string) (*domain.Content, error) {
	return getContent(ctx, s.store.db, id)
}

func getContent(ctx context.Context, q querier, id string) (*domain.Content, error) {
	var (
		c                    domain.Content
		contentType          string
		createdAt, updatedAt int64
	)
	row := q.QueryRowContext(ctx, `
		SELECT id, type, title, body, created_at, updated_at
		FROM contents WHERE id = ?
	`, id)
	if err := row.Scan(&c.ID, &contentType, &c.Title, &c.Body, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning content: %w", err)
	}
	c.Type = domain.ContentType(contentType)
	c.CreatedAt = fromUnix(createdAt)
	c.UpdatedAt = fromUnix(updatedAt)

	ids, err := chunkIDs(ctx, q, id)
	if err != nil {
		return nil, err
	}
	c.ChunkIDs = ids
	return &c, nil
}

func chunkIDs(ctx context.Context, q querier, parentID string) ([]string, error) {
	rows, err := q.QueryContext(ctx, "SELECT id FROM chunks WHERE parent_id = ? ORDER BY idx", parentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunk ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning chunk id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunk ids: %w", err)
	}
	return ids, nil
}

// DeleteContent removes a content entity and its chunks.
func (s *contentStore) DeleteContent(ctx context.Context, id string) error {
	return s.store.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE parent_id = ?", id); err != nil {
			return fmt.Errorf("deleting chunks: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM contents WHERE id = ?", id); err != nil {
			return fmt.Errorf("deleting content: %w", err)
		}
		return nil
	})
}

// ListContent returns content entities ordered by ID.
func (s *contentStore) ListContent(ctx context.Context, types []domain.ContentType) ([]domain.Content, error) {
	query := "SELECT id FROM contents"
	args := typeArgs(types)
	if len(args) > 0 {
		query += " WHERE type IN (" + placeholders(len(args)) + ")"
	}
	query += " ORDER BY id"

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying contents: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning content id: %w", err)
		}
		ids = append(ids, id)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("iterating contents: %w", err)
	}

	out := make([]domain.Content, 0, len(ids))
	for _, id := range ids {
		c, err := getContent(ctx, s.store.db, id)
		if errors.Is(err, domain.ErrNotFound) {
			continue // deleted between queries
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, nil
}

// ReplaceChunks swaps the chunk set of parentID in one transaction.
func (s *contentStore) ReplaceChunks(ctx context.Context, parentID string, chunks []domain.Chunk) error {
	if err := domain.ValidateChunkSet(parentID, chunks); err != nil {
		return err
	}

	return s.store.inTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM contents WHERE id = ?", parentID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("content %s: %w", parentID, domain.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("checking parent: %w", err)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE parent_id = ?", parentID); err != nil {
			return fmt.Errorf("deleting old chunks: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks (id, parent_id, parent_type, idx, text, embedding, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing statement: %w", err)
		}
		defer stmt.Close()

		for i := range chunks {
			c := &chunks[i]
			if _, err := stmt.ExecContext(ctx, c.ID, c.ParentID, string(c.ParentType), c.Index, c.Text,
				float32SliceToBytes(c.Embedding), toUnix(c.CreatedAt)); err != nil {
				return fmt.Errorf("saving chunk %s: %w", c.ID, err)
			}
		}
		return nil
	})
}

const chunkColumns = "id, parent_id, parent_type, idx, text, embedding, created_at"

// GetChunks retrieves the chunk set of a parent in index order.
func (s *contentStore) GetChunks(ctx context.Context, parentID string) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT "+chunkColumns+" FROM chunks WHERE parent_id = ? ORDER BY idx", parentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	return scanChunks(rows)
}

// GetChunk retrieves a specific chunk by ID.
func (s *contentStore) GetChunk(ctx context.Context, id string) (*domain.Chunk, error) {
	row := s.store.db.QueryRowContext(ctx, "SELECT "+chunkColumns+" FROM chunks WHERE id = ?", id)
	c, err := scanChunk(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return c, err
}

// ListEmbeddedChunks returns every chunk with an embedding, filtered by parent type.
func (s *contentStore) ListEmbeddedChunks(ctx context.Context, types []domain.ContentType) ([]domain.Chunk, error) {
	query := "SELECT " + chunkColumns + " FROM chunks WHERE embedding IS NOT NULL AND length(embedding) > 0"
	args := typeArgs(types)
	if len(args) > 0 {
		query += " AND parent_type IN (" + placeholders(len(args)) + ")"
	}
	query += " ORDER BY parent_id, idx"

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying embedded chunks: %w", err)
	}
	return scanChunks(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChunk(row rowScanner) (*domain.Chunk, error) {
	var (
		c          domain.Chunk
		parentType string
		blob       []byte
		createdAt  int64
	)
	if err := row.Scan(&c.ID, &c.ParentID, &parentType, &c.Index, &c.Text, &blob, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}
	c.ParentType = domain.ContentType(parentType)
	c.Embedding = bytesToFloat32Slice(blob)
	c.CreatedAt = fromUnix(createdAt)
	return &c, nil
}

// scanChunks drains and closes rows.
func scanChunks(rows *sql.Rows) ([]domain.Chunk, error) {
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

func typeArgs(types []domain.ContentType) []any {
	args := make([]any, 0, len(types))
	for _, t := range types {
		args = append(args, string(t))
	}
	return args
}
