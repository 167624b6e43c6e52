package driven

import "github.com/custodia-labs/mnemo/internal/core/domain"

// SimilarityIndex ranks candidate chunks against a query vector.
// The default implementation is a full linear scan; an external index can be
// swapped in without changing callers.
type SimilarityIndex interface {
	// Search returns at most limit results, best first. Candidates without
	// embeddings, or whose ParentType is not in types, are excluded.
	Search(query []float32, candidates []domain.Chunk, limit int, types []domain.ContentType) []domain.SimilarityResult
}
