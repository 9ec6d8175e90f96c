package ports

import (
	"context"

	"Weaver/internal/domain"
)

// KnowledgeSource lists category members and fetches page content from an encyclopedia.
type KnowledgeSource interface {
	// CategoryMembers returns up to limit members in source order, or
	// domain.ErrCategoryNotFound when the category does not exist.
	CategoryMembers(ctx context.Context, category string, limit int) ([]domain.PageRef, error)
	PageDetails(ctx context.Context, title string) (domain.PageDetails, error)
}

// Embedder maps texts to fixed-length vectors, preserving input order.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
	Dimensions() int
	ModelID() string
}

// ModelLoader is implemented by embedders that must reach their model before
// the first batch. A Load error aborts the run.
type ModelLoader interface {
	Load(ctx context.Context) error
}

// Reducer projects an N×D matrix jointly into N×3 coordinates.
type Reducer interface {
	Name() string
	Reduce(ctx context.Context, vectors [][]float64) ([][3]float64, error)
}

// NeighborSearcher returns, for each vector, the indices of its k closest vectors
// in increasing distance order, the vector itself included.
type NeighborSearcher interface {
	Nearest(vectors [][]float64, k int) ([][]int, error)
}

// GraphWriter persists pipeline output documents.
type GraphWriter interface {
	WriteGraph(ctx context.Context, path string, graph domain.Graph) error
	WriteArticles(ctx context.Context, path string, articles []domain.CollectedArticle) error
}

// ProgressObserver receives observational progress notifications.
type ProgressObserver interface {
	Notify(event domain.ProgressEvent)
}
