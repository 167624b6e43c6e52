package domain

import "time"

// DefaultSearchLimit is used when SearchOptions.Limit is not positive.
const DefaultSearchLimit = 10

// SearchOptions configures a semantic search query.
type SearchOptions struct {
	// Limit is the maximum number of results.
	Limit int

	// Types restricts results to chunks whose parent has one of these types.
	// Empty means all types.
	Types []ContentType

	// MinScore drops results scoring below it.
	MinScore float64
}

// SimilarityResult is one ranked candidate chunk.
type SimilarityResult struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// ParentID is the owning content entity.
	ParentID string

	// ParentType is the owning content type.
	ParentType ContentType

	// Score is the cosine similarity, in [-1, 1].
	Score float64

	// CreatedAt is when the chunk was created. Used for tie-breaking.
	CreatedAt time.Time
}

// SearchResult represents a single search hit.
type SearchResult struct {
	SimilarityResult

	// Text is the matched chunk text.
	Text string

	// ParentTitle is the title of the owning content, empty if it is gone.
	ParentTitle string
}

// ProcessResult reports the outcome of regenerating a chunk set.
type ProcessResult struct {
	// ParentID is the processed content entity.
	ParentID string

	// Chunks is the new chunk set.
	Chunks []Chunk

	// Embedded is the number of chunks that received an embedding.
	Embedded int

	// Failed is the number of chunks whose embedding failed.
	Failed int
}
