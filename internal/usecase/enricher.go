package usecase

import (
	"context"
	"fmt"
	"math"

	"Weaver/internal/domain"
	"Weaver/internal/ports"
)

const (
	// NeighborCount is the number of neighbors attached to every article.
	NeighborCount = 5
	enrichSteps   = 4
)

// EnricherDeps wires the numeric collaborators of the enrichment stage.
type EnricherDeps struct {
	Embedder ports.Embedder
	Reducer  ports.Reducer
	Searcher ports.NeighborSearcher
	Observer ports.ProgressObserver
}

// Enricher attaches 3D positions and nearest neighbors to collected articles.
type Enricher struct {
	embedder ports.Embedder
	reducer  ports.Reducer
	searcher ports.NeighborSearcher
	observer ports.ProgressObserver
}

// NewEnricher constructs the enrichment stage.
func NewEnricher(deps EnricherDeps) *Enricher {
	return &Enricher{
		embedder: deps.Embedder,
		reducer:  deps.Reducer,
		searcher: deps.Searcher,
		observer: deps.Observer,
	}
}

// Enrich embeds every summary, projects the embeddings jointly to 3D and
// links each article to its closest articles in embedding space.
func (e *Enricher) Enrich(ctx context.Context, articles []domain.CollectedArticle) ([]domain.EnrichedArticle, error) {
	if len(articles) == 0 {
		return nil, domain.ErrNoArticles
	}
	if e.embedder == nil || e.reducer == nil || e.searcher == nil {
		return nil, fmt.Errorf("enricher is not fully configured")
	}

	var err error
	e.step(1, "load embedding model "+e.embedder.ModelID(), func() {
		if loader, ok := e.embedder.(ports.ModelLoader); ok {
			err = loader.Load(ctx)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("load embedding model: %w", err)
	}

	summaries := make([]string, len(articles))
	for i, article := range articles {
		summaries[i] = article.Summary
	}

	var vectors [][]float64
	e.step(2, fmt.Sprintf("embed %d summaries", len(summaries)), func() {
		vectors, err = e.embedder.EmbedBatch(ctx, summaries)
	})
	if err != nil {
		return nil, fmt.Errorf("embed summaries: %w", err)
	}
	if err := checkVectors(vectors, len(articles)); err != nil {
		return nil, fmt.Errorf("embed summaries: %w", err)
	}

	var positions [][3]float64
	e.step(3, "reduce to 3D with "+e.reducer.Name(), func() {
		positions, err = e.reducer.Reduce(ctx, vectors)
	})
	if err != nil {
		return nil, fmt.Errorf("reduce embeddings: %w", err)
	}
	if err := checkPositions(positions, len(articles)); err != nil {
		return nil, fmt.Errorf("reduce embeddings: %w", err)
	}

	var nearest [][]int
	e.step(4, "find nearest neighbors", func() {
		nearest, err = e.searcher.Nearest(vectors, NeighborCount+1)
	})
	if err != nil {
		return nil, fmt.Errorf("search neighbors: %w", err)
	}
	if len(nearest) != len(articles) {
		return nil, fmt.Errorf("search neighbors: %w: got %d rows for %d articles", domain.ErrMalformedVectors, len(nearest), len(articles))
	}

	enriched := make([]domain.EnrichedArticle, len(articles))
	for i, article := range articles {
		ids, err := neighborIDs(articles, nearest[i], i)
		if err != nil {
			return nil, fmt.Errorf("search neighbors for %s: %w", article.ID, err)
		}
		enriched[i] = domain.EnrichedArticle{
			CollectedArticle: article,
			Position:         positions[i],
			Neighbors:        ids,
		}
	}

	e.notify(domain.ProgressEvent{Stage: domain.StageEnrich, Kind: domain.EventEnriched, Count: len(enriched)})
	return enriched, nil
}

func (e *Enricher) step(n int, name string, fn func()) {
	e.notify(domain.ProgressEvent{Stage: domain.StageEnrich, Kind: domain.EventStepStarted, Step: n, Steps: enrichSteps, Name: name})
	fn()
	e.notify(domain.ProgressEvent{Stage: domain.StageEnrich, Kind: domain.EventStepDone, Step: n, Steps: enrichSteps, Name: name})
}

func (e *Enricher) notify(event domain.ProgressEvent) {
	if e.observer != nil {
		e.observer.Notify(event)
	}
}

// neighborIDs drops the self match from a nearest row and caps it at NeighborCount.
func neighborIDs(articles []domain.CollectedArticle, row []int, self int) ([]string, error) {
	ids := make([]string, 0, NeighborCount)
	for _, idx := range row {
		if idx < 0 || idx >= len(articles) {
			return nil, fmt.Errorf("%w: neighbor index %d out of range", domain.ErrMalformedVectors, idx)
		}
		if idx == self {
			continue
		}
		if len(ids) == NeighborCount {
			break
		}
		ids = append(ids, articles[idx].ID)
	}
	return ids, nil
}

func checkVectors(vectors [][]float64, n int) error {
	if len(vectors) != n {
		return fmt.Errorf("%w: got %d vectors for %d texts", domain.ErrMalformedVectors, len(vectors), n)
	}
	dim := len(vectors[0])
	if dim == 0 {
		return fmt.Errorf("%w: empty vector", domain.ErrMalformedVectors)
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has %d dimensions, want %d", domain.ErrMalformedVectors, i, len(v), dim)
		}
	}
	return nil
}

func checkPositions(positions [][3]float64, n int) error {
	if len(positions) != n {
		return fmt.Errorf("%w: got %d positions for %d vectors", domain.ErrMalformedVectors, len(positions), n)
	}
	for i, p := range positions {
		for _, v := range p {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: position %d is not finite", domain.ErrMalformedVectors, i)
			}
		}
	}
	return nil
}
