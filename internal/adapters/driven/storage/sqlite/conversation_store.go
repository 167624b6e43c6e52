package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
)

// conversationStore implements driven.ConversationStore.
type conversationStore struct {
	store *Store
}

var _ driven.ConversationStore = (*conversationStore)(nil)

// LoadHistory rebuilds the tiers of a conversation from its rows.
func (s *conversationStore) LoadHistory(ctx context.Context, conversationID string) (*domain.TieredHistory, error) {
	return loadHistory(ctx, s.store.db, conversationID)
}

func loadHistory(ctx context.Context, q querier, conversationID string) (*domain.TieredHistory, error) {
	h := domain.NewTieredHistory(conversationID)

	rows, err := q.QueryContext(ctx, `
		SELECT id, seq, role, text, token_count, created_at, summary_id IS NOT NULL
		FROM conversation_turns WHERE conversation_id = ? ORDER BY seq
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("querying turns: %w", err)
	}
	for rows.Next() {
		var (
			t         domain.Turn
			role      string
			createdAt int64
			archived  bool
		)
		if err := rows.Scan(&t.ID, &t.Seq, &role, &t.Text, &t.TokenCount, &createdAt, &archived); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		t.ConversationID = conversationID
		t.Role = domain.Role(role)
		t.CreatedAt = fromUnix(createdAt)
		if archived {
			h.ArchivedTurns = append(h.ArchivedTurns, t)
		} else {
			h.ActiveTurns = append(h.ActiveTurns, t)
		}
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("iterating turns: %w", err)
	}

	rows, err = q.QueryContext(ctx, `
		SELECT id, from_seq, to_seq, text, token_count, created_at
		FROM conversation_summaries WHERE conversation_id = ? ORDER BY from_seq
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("querying summaries: %w", err)
	}
	for rows.Next() {
		var (
			sum       domain.Summary
			createdAt int64
		)
		if err := rows.Scan(&sum.ID, &sum.FromSeq, &sum.ToSeq, &sum.Text, &sum.TokenCount, &createdAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning summary: %w", err)
		}
		sum.ConversationID = conversationID
		sum.CreatedAt = fromUnix(createdAt)
		h.Summaries = append(h.Summaries, sum)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("iterating summaries: %w", err)
	}

	// Summary turn IDs follow from the archived seq range.
	bySeq := make(map[int64]string, len(h.ArchivedTurns))
	for _, t := range h.ArchivedTurns {
		bySeq[t.Seq] = t.ID
	}
	for i := range h.Summaries {
		sum := &h.Summaries[i]
		for seq := sum.FromSeq; seq <= sum.ToSeq; seq++ {
			if id, ok := bySeq[seq]; ok {
				sum.TurnIDs = append(sum.TurnIDs, id)
			}
		}
	}

	if err := h.Validate(); err != nil {
		return nil, fmt.Errorf("stored history %s: %w", conversationID, err)
	}
	return h, nil
}

// Commit validates change against the stored tiers and writes it atomically.
func (s *conversationStore) Commit(ctx context.Context, conversationID string, change domain.HistoryChange) error {
	return s.store.inTx(ctx, func(tx *sql.Tx) error {
		current, err := loadHistory(ctx, tx, conversationID)
		if err != nil {
			return err
		}
		if _, err := current.Apply(change); err != nil {
			return err
		}

		for i := range change.AppendTurns {
			t := &change.AppendTurns[i]
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO conversation_turns (id, conversation_id, seq, role, text, token_count, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, t.ID, conversationID, t.Seq, string(t.Role), t.Text, t.TokenCount, toUnix(t.CreatedAt)); err != nil {
				return fmt.Errorf("saving turn %s: %w", t.ID, err)
			}
		}

		if sum := change.Summary; sum != nil {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO conversation_summaries (id, conversation_id, from_seq, to_seq, text, token_count, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, sum.ID, conversationID, sum.FromSeq, sum.ToSeq, sum.Text, sum.TokenCount,
				toUnix(sum.CreatedAt)); err != nil {
				return fmt.Errorf("saving summary %s: %w", sum.ID, err)
			}

			args := make([]any, 0, len(sum.TurnIDs)+2)
			args = append(args, sum.ID, conversationID)
			for _, id := range sum.TurnIDs {
				args = append(args, id)
			}
			if _, err := tx.ExecContext(ctx,
				"UPDATE conversation_turns SET summary_id = ? WHERE conversation_id = ? AND id IN ("+
					placeholders(len(sum.TurnIDs))+")", args...); err != nil {
				return fmt.Errorf("archiving turns: %w", err)
			}
		}
		return nil
	})
}

// ListConversations returns the IDs of all stored conversations, sorted.
func (s *conversationStore) ListConversations(ctx context.Context) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT DISTINCT conversation_id FROM conversation_turns ORDER BY conversation_id")
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning conversation id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversations: %w", err)
	}
	return ids, nil
}

// DeleteConversation removes every turn and summary of a conversation.
func (s *conversationStore) DeleteConversation(ctx context.Context, conversationID string) error {
	return s.store.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM conversation_turns WHERE conversation_id = ?", conversationID); err != nil {
			return fmt.Errorf("deleting turns: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM conversation_summaries WHERE conversation_id = ?", conversationID); err != nil {
			return fmt.Errorf("deleting summaries: %w", err)
		}
		return nil
	})
}
