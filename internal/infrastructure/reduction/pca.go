package reduction

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"Weaver/internal/ports"
)

const components = 3

var errNoVectors = errors.New("no vectors to reduce")

// PCA projects vectors onto their first three principal components.
type PCA struct{}

var _ ports.Reducer = (*PCA)(nil)

func NewPCA() *PCA { return &PCA{} }

func (p *PCA) Name() string { return "pca" }

func (p *PCA) Reduce(ctx context.Context, vectors [][]float64) ([][3]float64, error) {
	if err := checkMatrix(vectors); err != nil {
		return nil, err
	}
	if len(vectors) == 1 {
		return make([][3]float64, 1), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	proj, err := principalComponents(vectors, components)
	if err != nil {
		return nil, err
	}
	out := make([][3]float64, len(proj))
	for i, row := range proj {
		copy(out[i][:], row)
	}
	return out, nil
}

// principalComponents returns the n×k projection of vectors on their leading
// components. Missing components (n or d below k) are zero. Each column's
// sign is fixed so that its largest-magnitude entry is positive.
func principalComponents(vectors [][]float64, k int) ([][]float64, error) {
	n, d := len(vectors), len(vectors[0])

	x := mat.NewDense(n, d, nil)
	for i, v := range vectors {
		x.SetRow(i, v)
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(x, nil); !ok {
		return nil, errors.New("pca: decomposition failed")
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	_, cols := vecs.Dims()
	kk := min(k, cols)

	means := make([]float64, d)
	col := make([]float64, n)
	for j := range d {
		mat.Col(col, j, x)
		means[j] = stat.Mean(col, nil)
	}
	var centered mat.Dense
	centered.Apply(func(_, j int, v float64) float64 { return v - means[j] }, x)

	var proj mat.Dense
	proj.Mul(&centered, vecs.Slice(0, d, 0, kk))

	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, k)
		for j := range kk {
			out[i][j] = proj.At(i, j)
		}
	}

	for j := range kk {
		var peak float64
		for i := range out {
			if math.Abs(out[i][j]) > math.Abs(peak) {
				peak = out[i][j]
			}
		}
		if peak < 0 {
			for i := range out {
				out[i][j] = -out[i][j]
			}
		}
	}
	return out, nil
}

func checkMatrix(vectors [][]float64) error {
	if len(vectors) == 0 {
		return errNoVectors
	}
	dim := len(vectors[0])
	if dim == 0 {
		return errors.New("vectors have zero dimensions")
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("vector %d has %d dimensions, want %d", i, len(v), dim)
		}
		for _, x := range v {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return fmt.Errorf("vector %d is not finite", i)
			}
		}
	}
	return nil
}
