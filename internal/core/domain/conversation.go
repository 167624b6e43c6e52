package domain

import (
	"strings"
	"time"
)

// Role tags the author of a conversation turn.
type Role string

// Conversation roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// IsValid returns true if the role is recognised.
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (r Role) String() string {
	return string(r)
}

// TurnInput is the validated ingress record for a new turn.
type TurnInput struct {
	Role Role
	Text string
}

// Validate rejects inputs that must never reach the memory manager.
func (in TurnInput) Validate() error {
	if !in.Role.IsValid() {
		return NewValidationError("role", "unknown role "+string(in.Role))
	}
	if strings.TrimSpace(in.Text) == "" {
		return NewValidationError("text", "turn text is empty")
	}
	return nil
}

// Turn is one role-tagged message within a conversation.
// Turns never change after creation; they only move from active to archived.
type Turn struct {
	// ID is the unique identifier for the turn.
	ID string

	// ConversationID links the turn to its conversation.
	ConversationID string

	// Seq is the 1-based position of the turn within the conversation.
	Seq int64

	// Role is the author of the turn.
	Role Role

	// Text is the message content.
	Text string

	// CreatedAt is when the message was received.
	CreatedAt time.Time

	// TokenCount is the number of tokens in Text under the configured counter.
	TokenCount int
}

// Summary condenses a contiguous range of archived turns.
type Summary struct {
	// ID is the unique identifier for the summary.
	ID string

	// ConversationID links the summary to its conversation.
	ConversationID string

	// FromSeq is the first covered turn sequence number (inclusive).
	FromSeq int64

	// ToSeq is the last covered turn sequence number (inclusive).
	ToSeq int64

	// TurnIDs lists the covered turns in order.
	TurnIDs []string

	// Text is the condensed content.
	Text string

	// CreatedAt is when the summary was produced.
	CreatedAt time.Time

	// TokenCount is the number of tokens in Text.
	TokenCount int
}

// Covers returns true if the summary range includes seq.
func (s Summary) Covers(seq int64) bool {
	return seq >= s.FromSeq && seq <= s.ToSeq
}

// TieredHistory is the full tier state of one conversation.
type TieredHistory struct {
	ConversationID string

	// ActiveTurns are verbatim recent turns, oldest first.
	ActiveTurns []Turn

	// Summaries are ordered, non-overlapping condensed ranges, oldest first.
	Summaries []Summary

	// ArchivedTurns are turns covered by a summary, oldest first.
	ArchivedTurns []Turn
}

// NewTieredHistory returns an empty history for conversationID.
func NewTieredHistory(conversationID string) *TieredHistory {
	return &TieredHistory{ConversationID: conversationID}
}

// Clone returns a deep copy that shares no slices with h.
func (h *TieredHistory) Clone() *TieredHistory {
	if h == nil {
		return nil
	}
	out := &TieredHistory{
		ConversationID: h.ConversationID,
		ActiveTurns:    append([]Turn(nil), h.ActiveTurns...),
		ArchivedTurns:  append([]Turn(nil), h.ArchivedTurns...),
		Summaries:      make([]Summary, len(h.Summaries)),
	}
	for i, s := range h.Summaries {
		s.TurnIDs = append([]string(nil), s.TurnIDs...)
		out.Summaries[i] = s
	}
	return out
}

// TotalTurns returns the number of turns across both tiers.
func (h *TieredHistory) TotalTurns() int {
	return len(h.ActiveTurns) + len(h.ArchivedTurns)
}

// ActiveTokens returns the aggregate token count of the active tier.
func (h *TieredHistory) ActiveTokens() int {
	total := 0
	for i := range h.ActiveTurns {
		total += h.ActiveTurns[i].TokenCount
	}
	return total
}

// NextSeq returns the sequence number for the next turn.
func (h *TieredHistory) NextSeq() int64 {
	var last int64
	if n := len(h.ActiveTurns); n > 0 {
		last = h.ActiveTurns[n-1].Seq
	}
	if n := len(h.ArchivedTurns); n > 0 && h.ArchivedTurns[n-1].Seq > last {
		last = h.ArchivedTurns[n-1].Seq
	}
	return last + 1
}

// Apply returns a new history with change applied. h is not modified.
// The result is validated; a violation is returned as a ConsistencyError.
func (h *TieredHistory) Apply(change HistoryChange) (*TieredHistory, error) {
	next := h.Clone()
	next.ActiveTurns = append(next.ActiveTurns, change.AppendTurns...)

	if change.Summary != nil {
		archive := make(map[string]bool, len(change.Summary.TurnIDs))
		for _, id := range change.Summary.TurnIDs {
			archive[id] = true
		}
		kept := next.ActiveTurns[:0:0]
		moved := 0
		for _, t := range next.ActiveTurns {
			if archive[t.ID] {
				next.ArchivedTurns = append(next.ArchivedTurns, t)
				moved++
				continue
			}
			kept = append(kept, t)
		}
		if moved != len(archive) {
			return nil, NewConsistencyError("summary-turns",
				"summary %s covers %d turns but %d are active", change.Summary.ID, len(archive), moved)
		}
		next.ActiveTurns = kept
		s := *change.Summary
		s.TurnIDs = append([]string(nil), s.TurnIDs...)
		next.Summaries = append(next.Summaries, s)
	}

	if err := next.Validate(); err != nil {
		return nil, err
	}
	return next, nil
}

// Validate checks the tier invariants:
//   - every turn id appears exactly once across active and archived
//   - sequence numbers strictly increase within each tier
//   - summaries are ordered, non-overlapping and contiguous ranges
//   - a turn is archived iff some summary covers it
//   - every archived turn precedes every active turn
func (h *TieredHistory) Validate() error {
	seen := make(map[string]string, h.TotalTurns())
	check := func(tier string, turns []Turn) error {
		var prev int64
		for _, t := range turns {
			if t.ConversationID != h.ConversationID {
				return NewConsistencyError("turn-conversation",
					"turn %s belongs to %q in %q", t.ID, t.ConversationID, h.ConversationID)
			}
			if other, ok := seen[t.ID]; ok {
				return NewConsistencyError("turn-tier", "turn %s present in %s and %s", t.ID, other, tier)
			}
			seen[t.ID] = tier
			if t.Seq <= prev {
				return NewConsistencyError("turn-order", "%s turn %s has seq %d after %d", tier, t.ID, t.Seq, prev)
			}
			prev = t.Seq
		}
		return nil
	}
	if err := check("archived", h.ArchivedTurns); err != nil {
		return err
	}
	if err := check("active", h.ActiveTurns); err != nil {
		return err
	}

	var prevTo int64
	covered := 0
	archivedBySeq := make(map[int64]Turn, len(h.ArchivedTurns))
	for _, t := range h.ArchivedTurns {
		archivedBySeq[t.Seq] = t
	}
	for i, s := range h.Summaries {
		if s.FromSeq > s.ToSeq {
			return NewConsistencyError("summary-range", "summary %s has empty range %d-%d", s.ID, s.FromSeq, s.ToSeq)
		}
		if i > 0 && s.FromSeq <= prevTo {
			return NewConsistencyError("summary-overlap",
				"summary %s starts at %d, previous ends at %d", s.ID, s.FromSeq, prevTo)
		}
		prevTo = s.ToSeq
		if int64(len(s.TurnIDs)) != s.ToSeq-s.FromSeq+1 {
			return NewConsistencyError("summary-contiguous",
				"summary %s covers %d-%d with %d turns", s.ID, s.FromSeq, s.ToSeq, len(s.TurnIDs))
		}
		for j, id := range s.TurnIDs {
			t, ok := archivedBySeq[s.FromSeq+int64(j)]
			if !ok || t.ID != id {
				return NewConsistencyError("summary-archived", "summary %s covers turn %s which is not archived", s.ID, id)
			}
		}
		covered += len(s.TurnIDs)
	}
	if covered != len(h.ArchivedTurns) {
		return NewConsistencyError("archived-covered",
			"%d archived turns but summaries cover %d", len(h.ArchivedTurns), covered)
	}

	if na, nr := len(h.ActiveTurns), len(h.ArchivedTurns); na > 0 && nr > 0 &&
		h.ArchivedTurns[nr-1].Seq > h.ActiveTurns[0].Seq {
		return NewConsistencyError("tier-order", "archived turn %d follows active turn %d",
			h.ArchivedTurns[nr-1].Seq, h.ActiveTurns[0].Seq)
	}
	return nil
}

// HistoryChange is one atomic mutation of a conversation's tiers.
type HistoryChange struct {
	// AppendTurns are new turns added to the active tier.
	AppendTurns []Turn

	// Summary, when set, is appended and its TurnIDs move from active to archived.
	Summary *Summary
}

// AddTurnResult reports what AddTurn did.
type AddTurnResult struct {
	// Turn is the committed turn.
	Turn Turn

	// Summary is the newly created summary, nil if none was produced.
	Summary *Summary

	// Archived is the number of turns moved to the archived tier.
	Archived int

	// Degraded is true when summarization was needed but deferred.
	Degraded bool

	// Warning explains the degraded state.
	Warning error
}
