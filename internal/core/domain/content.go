package domain

import "time"

// ContentType classifies a content entity for search filtering.
type ContentType string

// Known content types.
const (
	// ContentTypeNote is a free-form user note.
	ContentTypeNote ContentType = "note"

	// ContentTypeProfile is the single user profile.
	ContentTypeProfile ContentType = "profile"
)

// IsValid returns true if the content type is recognised.
func (t ContentType) IsValid() bool {
	switch t {
	case ContentTypeNote, ContentTypeProfile:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (t ContentType) String() string {
	return string(t)
}

// Content is a chunkable entity such as a note or the user profile.
// The parent owns the ordered list of its chunk IDs; chunks only keep a
// ParentID back-reference for lookup.
type Content struct {
	// ID is the unique identifier for the content.
	ID string

	// Type is the content kind, used for search filtering.
	Type ContentType

	// Title is the human-readable title.
	Title string

	// Body is the full text before chunking.
	Body string

	// ChunkIDs lists the current chunk set in index order.
	ChunkIDs []string

	// CreatedAt is when the content was first stored.
	CreatedAt time.Time

	// UpdatedAt is when the content was last changed.
	UpdatedAt time.Time
}

// Validate checks the fields required before content is stored.
func (c Content) Validate() error {
	if c.ID == "" {
		return NewValidationError("id", "content id is empty")
	}
	if !c.Type.IsValid() {
		return NewValidationError("type", "unknown content type "+string(c.Type))
	}
	return nil
}

// Chunk is a bounded substring of a content entity and the unit of
// embedding and retrieval.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// ParentID links back to the owning Content. Lookup only.
	ParentID string

	// ParentType is copied from the parent so search can filter without a join.
	ParentType ContentType

	// Index is the 0-based position within the parent. Indices are contiguous.
	Index int

	// Text is the chunk content.
	Text string

	// Embedding is the vector representation, nil when embedding failed.
	Embedding []float32

	// CreatedAt is when the chunk set was generated.
	CreatedAt time.Time
}

// HasEmbedding returns true if the chunk carries a usable vector.
func (c Chunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// ValidateChunkSet checks that chunks all belong to parentID, have unique IDs
// and carry indices 0..n-1 in order.
func ValidateChunkSet(parentID string, chunks []Chunk) error {
	seen := make(map[string]bool, len(chunks))
	for i, c := range chunks {
		if c.ParentID != parentID {
			return NewConsistencyError("chunk-parent",
				"chunk %s belongs to %q, expected %q", c.ID, c.ParentID, parentID)
		}
		if c.Index != i {
			return NewConsistencyError("chunk-index",
				"chunk %s has index %d at position %d", c.ID, c.Index, i)
		}
		if c.ID == "" || seen[c.ID] {
			return NewConsistencyError("chunk-id", "duplicate or empty chunk id %q", c.ID)
		}
		seen[c.ID] = true
	}
	return nil
}

// ChunkIDs returns the IDs of chunks in order.
func ChunkIDs(chunks []Chunk) []string {
	ids := make([]string, len(chunks))
	for i := range chunks {
		ids[i] = chunks[i].ID
	}
	return ids
}
