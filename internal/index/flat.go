// Package index holds the derived, disposable in-memory projection of a
// collection: a flat exact inner-product vector index plus the identity map
// binding ordinals back to persistent records.
package index

import (
	"fmt"
	"math"
	"sort"

	"github.com/kailas-cloud/docdex/internal/domain"
)

// NoHit is the sentinel ordinal padding search results when fewer than topK
// vectors are stored.
const NoHit = -1

// Flat is an exact inner-product index over L2-normalized vectors.
// Inner product on normalized vectors equals cosine similarity, range [-1, 1].
// Add is append-only; removal requires rebuilding a fresh index.
type Flat struct {
	dim     int
	vectors [][]float32
}

// NewFlat creates an empty index. The dimension is fixed for its lifetime.
func NewFlat(dim int) *Flat {
	return &Flat{dim: dim}
}

// Dim returns the fixed vector dimension.
func (f *Flat) Dim() int { return f.dim }

// Size returns the number of stored vectors.
func (f *Flat) Size() int { return len(f.vectors) }

// Add L2-normalizes each vector and appends it. The whole batch either fully
// succeeds or fully fails: dimensions and norms are validated before anything
// is appended. Zero-norm vectors are rejected with ErrZeroVector.
func (f *Flat) Add(vectors [][]float32) error {
	normalized := make([][]float32, len(vectors))
	for i, v := range vectors {
		nv, err := f.normalize(v)
		if err != nil {
			return fmt.Errorf("vector %d: %w", i, err)
		}
		normalized[i] = nv
	}
	f.vectors = append(f.vectors, normalized...)
	return nil
}

// Search normalizes each query and scans every stored vector, returning for
// each query the topK highest-scoring ordinals with their scores, descending,
// ties broken by lowest ordinal. When fewer than topK vectors are stored the
// tail is padded with NoHit ordinals whose scores are meaningless.
func (f *Flat) Search(queries [][]float32, topK int) ([][]int, [][]float32, error) {
	if topK <= 0 {
		return nil, nil, fmt.Errorf("topK must be positive, got %d", topK)
	}

	ordinals := make([][]int, len(queries))
	scores := make([][]float32, len(queries))

	for qi, q := range queries {
		nq, err := f.normalize(q)
		if err != nil {
			return nil, nil, fmt.Errorf("query %d: %w", qi, err)
		}

		hits := make([]int, 0, len(f.vectors))
		hitScores := make([]float32, len(f.vectors))
		for ord, v := range f.vectors {
			hits = append(hits, ord)
			hitScores[ord] = dot(nq, v)
		}

		sort.SliceStable(hits, func(a, b int) bool {
			sa, sb := hitScores[hits[a]], hitScores[hits[b]]
			if sa != sb {
				return sa > sb
			}
			return hits[a] < hits[b]
		})

		ordRow := make([]int, topK)
		scoreRow := make([]float32, topK)
		for i := 0; i < topK; i++ {
			if i < len(hits) {
				ordRow[i] = hits[i]
				scoreRow[i] = hitScores[hits[i]]
			} else {
				ordRow[i] = NoHit
			}
		}
		ordinals[qi] = ordRow
		scores[qi] = scoreRow
	}

	return ordinals, scores, nil
}

// normalize returns an L2-normalized copy of v.
func (f *Flat) normalize(v []float32) ([]float32, error) {
	if len(v) != f.dim {
		return nil, fmt.Errorf("got %d components, index dimension is %d: %w",
			len(v), f.dim, domain.ErrDimensionMismatch)
	}

	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return nil, domain.ErrZeroVector
	}

	out := make([]float32, len(v))
	inv := float32(1 / norm)
	for i, x := range v {
		out[i] = x * inv
	}
	return out, nil
}

func dot(a, b []float32) float32 {
	var s float32
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
