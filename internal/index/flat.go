package index

import (
	"math"
	"sort"

	"github.com/ronak8180/DocuMind/internal/rag"
)

// flatIndex is a brute-force cosine index held in memory. Session document
// sets are small (a handful of files, hundreds of chunks), so an exhaustive
// scan is both simpler and faster than an ANN structure at this scale.
type flatIndex struct {
	chunks  []rag.Chunk
	vectors [][]float32
}

// search returns the topK chunks by cosine similarity, highest first.
func (f *flatIndex) search(vector []float32, topK int) []rag.ScoredChunk {
	scored := make([]rag.ScoredChunk, 0, len(f.chunks))
	for i, c := range f.chunks {
		scored = append(scored, rag.ScoredChunk{
			Chunk: c,
			Score: cosine(vector, f.vectors[i]),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}

// cosine computes cosine similarity. Mismatched lengths or a zero vector
// score 0 rather than panicking — a degenerate embedding should rank last,
// not take the query down.
func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
