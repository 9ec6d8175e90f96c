// Package neighbors finds nearest vectors by exact cosine distance.
package neighbors

import (
	"cmp"
	"fmt"
	"slices"

	"gonum.org/v1/gonum/floats"

	"Weaver/internal/ports"
)

// Cosine is a brute-force searcher. Rows are ordered by ascending cosine
// distance; equal distances keep the lower index first, and a vector always
// ranks itself ahead of exact duplicates.
type Cosine struct{}

var _ ports.NeighborSearcher = (*Cosine)(nil)

func NewCosine() *Cosine { return &Cosine{} }

// Nearest returns min(k, len(vectors)) indices per vector, the vector itself included.
func (c *Cosine) Nearest(vectors [][]float64, k int) ([][]int, error) {
	n := len(vectors)
	if n == 0 {
		return nil, nil
	}
	if k <= 0 {
		return nil, fmt.Errorf("cosine search: k must be positive, got %d", k)
	}
	dim := len(vectors[0])
	norms := make([]float64, n)
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("cosine search: vector %d has %d dimensions, want %d", i, len(v), dim)
		}
		norms[i] = floats.Norm(v, 2)
	}

	k = min(k, n)
	out := make([][]int, n)
	dist := make([]float64, n)
	order := make([]int, n)
	for i := range n {
		for j := range n {
			dist[j] = cosineDistance(vectors[i], vectors[j], norms[i], norms[j])
			order[j] = j
		}
		dist[i] = 0

		slices.SortFunc(order, func(p, q int) int {
			if c := cmp.Compare(dist[p], dist[q]); c != 0 {
				return c
			}
			switch {
			case p == q:
				return 0
			case p == i:
				return -1
			case q == i:
				return 1
			}
			return cmp.Compare(p, q)
		})
		out[i] = slices.Clone(order[:k])
	}
	return out, nil
}

// cosineDistance is 1 - cos(a, b) clamped at zero; a zero vector is at distance 1 from everything.
func cosineDistance(a, b []float64, na, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 1
	}
	return max(0, 1-floats.Dot(a, b)/(na*nb))
}
