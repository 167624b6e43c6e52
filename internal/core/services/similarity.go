package services

import (
	"math"
	"sort"

	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
)

// Ensure SimilarityIndex implements the interface.
var _ driven.SimilarityIndex = (*SimilarityIndex)(nil)

// SimilarityIndex ranks chunks by cosine similarity using a full scan.
// It holds no state; candidates are supplied per query.
type SimilarityIndex struct{}

// NewSimilarityIndex creates a linear-scan similarity index.
func NewSimilarityIndex() *SimilarityIndex {
	return &SimilarityIndex{}
}

type rankedChunk struct {
	result domain.SimilarityResult
	valid  bool
}

// Search returns the top limit candidates, best first. A limit of zero or
// less returns every eligible candidate. Ties break by newer CreatedAt, then
// by ChunkID. Candidates whose vectors cannot be compared score 0 and sort
// after every comparable one.
func (s *SimilarityIndex) Search(
	query []float32, candidates []domain.Chunk, limit int, types []domain.ContentType,
) []domain.SimilarityResult {
	allowed := typeSet(types)
	queryNorm := norm(query)

	ranked := make([]rankedChunk, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		if !c.HasEmbedding() {
			continue
		}
		if allowed != nil && !allowed[c.ParentType] {
			continue
		}

		r := rankedChunk{result: domain.SimilarityResult{
			ChunkID:    c.ID,
			ParentID:   c.ParentID,
			ParentType: c.ParentType,
			CreatedAt:  c.CreatedAt,
		}}
		if score, ok := cosine(query, c.Embedding, queryNorm); ok {
			r.result.Score = score
			r.valid = true
		}
		ranked = append(ranked, r)
	}

	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.valid != b.valid {
			return a.valid
		}
		if a.result.Score != b.result.Score {
			return a.result.Score > b.result.Score
		}
		if !a.result.CreatedAt.Equal(b.result.CreatedAt) {
			return a.result.CreatedAt.After(b.result.CreatedAt)
		}
		return a.result.ChunkID < b.result.ChunkID
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	results := make([]domain.SimilarityResult, len(ranked))
	for i := range ranked {
		results[i] = ranked[i].result
	}
	return results
}

// CosineSimilarity returns dot(a,b)/(|a|·|b|) in [-1, 1].
// Empty, zero-norm or mismatched vectors yield 0.
func CosineSimilarity(a, b []float32) float64 {
	score, _ := cosine(a, b, norm(a))
	return score
}

func cosine(a, b []float32, normA float64) (float64, bool) {
	if len(a) == 0 || len(a) != len(b) || normA == 0 {
		return 0, false
	}
	var dot, sumB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		sumB += float64(b[i]) * float64(b[i])
	}
	if sumB == 0 {
		return 0, false
	}
	score := dot / (normA * math.Sqrt(sumB))
	// Rounding can push identical vectors just past 1.
	return math.Max(-1, math.Min(1, score)), true
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func typeSet(types []domain.ContentType) map[domain.ContentType]bool {
	if len(types) == 0 {
		return nil
	}
	set := make(map[domain.ContentType]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return set
}
