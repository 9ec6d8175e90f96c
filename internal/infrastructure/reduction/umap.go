// Package reduction projects high-dimensional embeddings into 3D space.
package reduction

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"Weaver/internal/ports"
)

const (
	negativeSampleRate = 5
	gradClip           = 4.0
	sigmaIterations    = 64
	sigmaTolerance     = 1e-5
	minKDistScale      = 1e-3
	initScale          = 10.0
	initNoise          = 1e-4
	curveSamples       = 300
)

// UMAPOptions are the fixed parameters of the projection.
type UMAPOptions struct {
	NNeighbors   int
	MinDist      float64
	Spread       float64
	Epochs       int
	LearningRate float64
	Seed         uint64
}

// UMAP is a seeded, single-threaded Uniform Manifold Approximation and
// Projection to three components over euclidean distances.
type UMAP struct {
	opts UMAPOptions
	a, b float64
}

var _ ports.Reducer = (*UMAP)(nil)

// NewUMAP validates opts and fits the low-dimensional similarity curve.
func NewUMAP(opts UMAPOptions) (*UMAP, error) {
	var errs []error
	if opts.NNeighbors < 2 {
		errs = append(errs, fmt.Errorf("umap: nNeighbors must be at least 2, got %d", opts.NNeighbors))
	}
	if opts.Spread <= 0 {
		errs = append(errs, fmt.Errorf("umap: spread must be positive, got %g", opts.Spread))
	}
	if opts.MinDist < 0 || opts.MinDist > opts.Spread {
		errs = append(errs, fmt.Errorf("umap: minDist must be within [0, spread], got %g", opts.MinDist))
	}
	if opts.Epochs <= 0 {
		errs = append(errs, fmt.Errorf("umap: epochs must be positive, got %d", opts.Epochs))
	}
	if opts.LearningRate <= 0 {
		errs = append(errs, fmt.Errorf("umap: learning rate must be positive, got %g", opts.LearningRate))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	a, b, err := fitCurve(opts.Spread, opts.MinDist)
	if err != nil {
		return nil, err
	}
	return &UMAP{opts: opts, a: a, b: b}, nil
}

func (u *UMAP) Name() string { return "umap" }

// Reduce projects all vectors jointly. The same input and seed always yield
// the same coordinates.
func (u *UMAP) Reduce(ctx context.Context, vectors [][]float64) ([][3]float64, error) {
	if err := checkMatrix(vectors); err != nil {
		return nil, err
	}
	n := len(vectors)
	if n == 1 {
		return make([][3]float64, 1), nil
	}

	k := min(u.opts.NNeighbors, n)
	knnIdx, knnDist := nearestNeighbors(vectors, k)
	graph := fuzzySimplicialSet(knnIdx, knnDist)
	edges := graphEdges(graph, u.opts.Epochs)

	rng := rand.New(rand.NewPCG(u.opts.Seed, u.opts.Seed))
	layout, err := initialLayout(vectors, rng)
	if err != nil {
		return nil, err
	}
	if err := u.optimizeLayout(ctx, layout, edges, rng); err != nil {
		return nil, err
	}

	out := make([][3]float64, n)
	for i, p := range layout {
		copy(out[i][:], p)
	}
	return out, nil
}

// nearestNeighbors returns, per point, the k closest points by euclidean
// distance with the point itself first and ties broken by index.
func nearestNeighbors(vectors [][]float64, k int) ([][]int, [][]float64) {
	n := len(vectors)
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := range n {
		for j := i + 1; j < n; j++ {
			d := floats.Distance(vectors[i], vectors[j], 2)
			dist[i][j], dist[j][i] = d, d
		}
	}

	idx := make([][]int, n)
	dst := make([][]float64, n)
	order := make([]int, n)
	for i := range n {
		for j := range order {
			order[j] = j
		}
		slices.SortFunc(order, func(p, q int) int {
			switch {
			case p == q:
				return 0
			case p == i:
				return -1
			case q == i:
				return 1
			}
			if c := cmp.Compare(dist[i][p], dist[i][q]); c != 0 {
				return c
			}
			return cmp.Compare(p, q)
		})
		idx[i] = slices.Clone(order[:k])
		dst[i] = make([]float64, k)
		for j, o := range idx[i] {
			dst[i][j] = dist[i][o]
		}
	}
	return idx, dst
}

// smoothKNNDist finds, per point, the distance to its nearest distinct
// neighbor (rho) and the bandwidth (sigma) at which its membership strengths
// sum to log2(k).
func smoothKNNDist(knnDist [][]float64) (sigmas, rhos []float64) {
	n := len(knnDist)
	sigmas = make([]float64, n)
	rhos = make([]float64, n)

	var meanAll float64
	for _, row := range knnDist {
		meanAll += floats.Sum(row) / float64(len(row))
	}
	meanAll /= float64(n)

	for i, row := range knnDist {
		target := math.Log2(float64(len(row)))
		for _, d := range row {
			if d > 0 {
				rhos[i] = d
				break
			}
		}

		lo, hi, mid := 0.0, math.Inf(1), 1.0
		for range sigmaIterations {
			var psum float64
			for _, d := range row[1:] {
				if r := d - rhos[i]; r > 0 {
					psum += math.Exp(-r / mid)
				} else {
					psum++
				}
			}
			if math.Abs(psum-target) < sigmaTolerance {
				break
			}
			if psum > target {
				hi = mid
				mid = (lo + hi) / 2
			} else {
				lo = mid
				if math.IsInf(hi, 1) {
					mid *= 2
				} else {
					mid = (lo + hi) / 2
				}
			}
		}

		floor := minKDistScale * meanAll
		if rhos[i] > 0 {
			floor = minKDistScale * floats.Sum(row) / float64(len(row))
		}
		sigmas[i] = max(mid, floor)
	}
	return sigmas, rhos
}

// fuzzySimplicialSet builds the symmetric fuzzy union of the per-point
// neighbor graphs: w = a + b - a*b.
func fuzzySimplicialSet(knnIdx [][]int, knnDist [][]float64) *mat.SymDense {
	n := len(knnIdx)
	sigmas, rhos := smoothKNNDist(knnDist)

	directed := mat.NewDense(n, n, nil)
	for i, row := range knnIdx {
		for j, nb := range row {
			if nb == i {
				continue
			}
			w := 1.0
			if r := knnDist[i][j] - rhos[i]; r > 0 && sigmas[i] > 0 {
				w = math.Exp(-r / sigmas[i])
			}
			directed.Set(i, nb, w)
		}
	}

	graph := mat.NewSymDense(n, nil)
	for i := range n {
		for j := i + 1; j < n; j++ {
			a, b := directed.At(i, j), directed.At(j, i)
			if w := a + b - a*b; w > 0 {
				graph.SetSym(i, j, w)
			}
		}
	}
	return graph
}

type edge struct {
	head, tail      int
	epochsPerSample float64
}

// graphEdges lists both directions of every edge strong enough to be sampled
// at least once over the given number of epochs.
func graphEdges(graph *mat.SymDense, epochs int) []edge {
	n, _ := graph.Dims()
	var maxW float64
	for i := range n {
		for j := i + 1; j < n; j++ {
			maxW = max(maxW, graph.At(i, j))
		}
	}
	if maxW == 0 {
		return nil
	}

	threshold := maxW / float64(epochs)
	var edges []edge
	for i := range n {
		for j := range n {
			if i == j {
				continue
			}
			if w := graph.At(i, j); w > 0 && w >= threshold {
				edges = append(edges, edge{head: i, tail: j, epochsPerSample: maxW / w})
			}
		}
	}
	return edges
}

// initialLayout seeds the embedding with the leading principal components,
// jittered and rescaled to [0, 10] per axis.
func initialLayout(vectors [][]float64, rng *rand.Rand) ([][]float64, error) {
	layout, err := principalComponents(vectors, components)
	if err != nil {
		return nil, err
	}

	var peak float64
	for _, p := range layout {
		for _, v := range p {
			peak = max(peak, math.Abs(v))
		}
	}
	expansion := 1.0
	if peak > 0 {
		expansion = initScale / peak
	}
	for _, p := range layout {
		for j := range p {
			p[j] = p[j]*expansion + rng.NormFloat64()*initNoise
		}
	}

	for j := range components {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, p := range layout {
			lo, hi = min(lo, p[j]), max(hi, p[j])
		}
		span := hi - lo
		for _, p := range layout {
			if span > 0 {
				p[j] = initScale * (p[j] - lo) / span
			} else {
				p[j] = 0
			}
		}
	}
	return layout, nil
}

// optimizeLayout runs the attractive/repulsive stochastic gradient descent
// over the sampled edges with a linearly decaying learning rate.
func (u *UMAP) optimizeLayout(ctx context.Context, layout [][]float64, edges []edge, rng *rand.Rand) error {
	n := len(layout)
	a, b := u.a, u.b

	nextSample := make([]float64, len(edges))
	negPerSample := make([]float64, len(edges))
	nextNegative := make([]float64, len(edges))
	for i, e := range edges {
		nextSample[i] = e.epochsPerSample
		negPerSample[i] = e.epochsPerSample / negativeSampleRate
		nextNegative[i] = negPerSample[i]
	}

	for epoch := range u.opts.Epochs {
		if err := ctx.Err(); err != nil {
			return err
		}
		alpha := u.opts.LearningRate * (1 - float64(epoch)/float64(u.opts.Epochs))
		fe := float64(epoch)

		for i, e := range edges {
			if nextSample[i] > fe {
				continue
			}
			current, other := layout[e.head], layout[e.tail]

			distSq := squaredDistance(current, other)
			var coeff float64
			if distSq > 0 {
				coeff = -2 * a * b * math.Pow(distSq, b-1) / (a*math.Pow(distSq, b) + 1)
			}
			for d := range current {
				g := clip(coeff * (current[d] - other[d]))
				current[d] += g * alpha
				other[d] -= g * alpha
			}
			nextSample[i] += e.epochsPerSample

			negatives := int((fe - nextNegative[i]) / negPerSample[i])
			for range negatives {
				k := rng.IntN(n)
				if k == e.head {
					continue
				}
				other := layout[k]
				distSq := squaredDistance(current, other)
				var coeff float64
				if distSq > 0 {
					coeff = 2 * b / ((0.001 + distSq) * (a*math.Pow(distSq, b) + 1))
				}
				for d := range current {
					g := gradClip
					if coeff > 0 {
						g = clip(coeff * (current[d] - other[d]))
					}
					current[d] += g * alpha
				}
			}
			nextNegative[i] += float64(max(negatives, 0)) * negPerSample[i]
		}
	}
	return nil
}

// fitCurve finds a and b such that 1/(1+a*x^(2b)) approximates the target
// membership curve: 1 below minDist, exp(-(x-minDist)/spread) above.
func fitCurve(spread, minDist float64) (float64, float64, error) {
	xs := floats.Span(make([]float64, curveSamples), 0, spread*3)
	ys := make([]float64, curveSamples)
	for i, x := range xs {
		if x < minDist {
			ys[i] = 1
		} else {
			ys[i] = math.Exp(-(x - minDist) / spread)
		}
	}

	problem := optimize.Problem{
		Func: func(p []float64) float64 {
			if p[0] <= 0 || p[1] <= 0 {
				return 1e12
			}
			var sse float64
			for i, x := range xs {
				r := 1/(1+p[0]*math.Pow(x, 2*p[1])) - ys[i]
				sse += r * r
			}
			return sse
		},
	}
	settings := &optimize.Settings{
		Converger: &optimize.FunctionConverge{Absolute: 1e-12, Iterations: 200},
	}

	res, err := optimize.Minimize(problem, []float64{1, 1}, settings, &optimize.NelderMead{})
	if res == nil {
		return 0, 0, fmt.Errorf("umap: fit curve: %w", err)
	}
	a, b := res.X[0], res.X[1]
	if !(a > 0) || !(b > 0) || math.IsInf(a, 0) || math.IsInf(b, 0) {
		return 0, 0, fmt.Errorf("umap: fit curve: degenerate parameters a=%g b=%g", a, b)
	}
	return a, b, nil
}

func squaredDistance(p, q []float64) float64 {
	var s float64
	for i := range p {
		d := p[i] - q[i]
		s += d * d
	}
	return s
}

func clip(v float64) float64 {
	return max(-gradClip, min(gradClip, v))
}
