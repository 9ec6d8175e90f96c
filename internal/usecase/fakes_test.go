package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"Weaver/internal/domain"
)

type fakeSource struct {
	mu          sync.Mutex
	categories  map[string][]domain.PageRef
	missing     map[string]bool
	failing     map[string]error
	summaries   map[string]string
	pageErrs    map[string]error
	limits      []int
	detailCalls []string
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		categories: map[string][]domain.PageRef{},
		missing:    map[string]bool{},
		failing:    map[string]error{},
		summaries:  map[string]string{},
		pageErrs:   map[string]error{},
	}
}

func (f *fakeSource) withArticles(category string, titles ...string) *fakeSource {
	for _, title := range titles {
		f.categories[category] = append(f.categories[category], domain.PageRef{Title: title, Namespace: domain.ArticleNamespace})
	}
	return f
}

func (f *fakeSource) CategoryMembers(_ context.Context, category string, limit int) ([]domain.PageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.limits = append(f.limits, limit)
	if f.missing[category] {
		return nil, fmt.Errorf("category %s: %w", category, domain.ErrCategoryNotFound)
	}
	if err := f.failing[category]; err != nil {
		return nil, err
	}
	// Returned unbounded on purpose so the collector's own cap is exercised.
	return f.categories[category], nil
}

func (f *fakeSource) PageDetails(_ context.Context, title string) (domain.PageDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.detailCalls = append(f.detailCalls, title)
	if err := f.pageErrs[title]; err != nil {
		return domain.PageDetails{}, err
	}
	summary, ok := f.summaries[title]
	if !ok {
		summary = "Summary of " + title
	}
	return domain.PageDetails{
		Title:   title,
		Summary: summary,
		URL:     "https://en.wikipedia.org/wiki/" + strings.ReplaceAll(title, " ", "_"),
	}, nil
}

type recordingObserver struct {
	mu     sync.Mutex
	events []domain.ProgressEvent
}

func (r *recordingObserver) Notify(event domain.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingObserver) ofKind(kind domain.EventKind) []domain.ProgressEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.ProgressEvent
	for _, e := range r.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// fixedEmbedder returns preset vectors keyed by text.
type fixedEmbedder struct {
	vectors map[string][]float64
	err     error
	calls   int
}

func (f *fixedEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float64, len(texts))
	for i, text := range texts {
		v, ok := f.vectors[text]
		if !ok {
			return nil, fmt.Errorf("no vector for %q", text)
		}
		out[i] = v
	}
	return out, nil
}

func (f *fixedEmbedder) Dimensions() int { return 2 }
func (f *fixedEmbedder) ModelID() string { return "fixed" }

// rawEmbedder returns the configured matrix regardless of input.
type rawEmbedder struct {
	matrix [][]float64
}

func (r *rawEmbedder) EmbedBatch(context.Context, []string) ([][]float64, error) {
	return r.matrix, nil
}

func (r *rawEmbedder) Dimensions() int { return 0 }
func (r *rawEmbedder) ModelID() string { return "raw" }

// loadingEmbedder fails to load its model.
type loadingEmbedder struct {
	fixedEmbedder
	loadErr error
}

func (l *loadingEmbedder) Load(context.Context) error { return l.loadErr }

// indexReducer places the i-th vector at (i, 2i, 3i).
type indexReducer struct {
	positions [][3]float64
	err       error
}

func (r *indexReducer) Name() string { return "index" }

func (r *indexReducer) Reduce(_ context.Context, vectors [][]float64) ([][3]float64, error) {
	if r.err != nil {
		return nil, r.err
	}
	if r.positions != nil {
		return r.positions, nil
	}
	out := make([][3]float64, len(vectors))
	for i := range out {
		f := float64(i)
		out[i] = [3]float64{f, 2 * f, 3 * f}
	}
	return out, nil
}

type stubCollector struct {
	articles []domain.CollectedArticle
	err      error
}

func (s *stubCollector) Collect(context.Context, []string, int) ([]domain.CollectedArticle, error) {
	return s.articles, s.err
}

type stubEnricher struct {
	called bool
	err    error
}

func (s *stubEnricher) Enrich(_ context.Context, articles []domain.CollectedArticle) ([]domain.EnrichedArticle, error) {
	s.called = true
	if s.err != nil {
		return nil, s.err
	}
	out := make([]domain.EnrichedArticle, len(articles))
	for i, a := range articles {
		out[i] = domain.EnrichedArticle{CollectedArticle: a}
	}
	return out, nil
}

type recordingWriter struct {
	graphs   []domain.Graph
	articles [][]domain.CollectedArticle
	paths    []string
}

func (w *recordingWriter) WriteGraph(_ context.Context, path string, graph domain.Graph) error {
	w.paths = append(w.paths, path)
	w.graphs = append(w.graphs, graph)
	return nil
}

func (w *recordingWriter) WriteArticles(_ context.Context, path string, articles []domain.CollectedArticle) error {
	w.paths = append(w.paths, path)
	w.articles = append(w.articles, articles)
	return nil
}

var errBoom = errors.New("boom")
