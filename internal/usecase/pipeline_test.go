package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"Weaver/internal/domain"
	"Weaver/internal/infrastructure/embedding/tfidf"
	"Weaver/internal/infrastructure/neighbors"
	"Weaver/internal/infrastructure/output"
	"Weaver/internal/infrastructure/reduction"
)

var spaceSummaries = map[string]string{
	"Orion Nebula":       "The Orion Nebula is a diffuse nebula of gas and dust where stars form.",
	"Crab Nebula":        "The Crab Nebula is a supernova remnant and pulsar wind nebula.",
	"Eagle Nebula":       "The Eagle Nebula is a young cluster of stars inside a nebula of gas.",
	"Andromeda Galaxy":   "The Andromeda Galaxy is a spiral galaxy with a trillion stars.",
	"Milky Way":          "The Milky Way is the barred spiral galaxy that contains the Solar System.",
	"Whirlpool Galaxy":   "The Whirlpool Galaxy is an interacting spiral galaxy.",
	"Sagittarius A*":     "Sagittarius A* is the supermassive black hole at the centre of the Milky Way galaxy.",
	"Cygnus X-1":         "Cygnus X-1 is a stellar black hole in an X-ray binary.",
	"SN 1987A":           "SN 1987A was a supernova in the Large Magellanic Cloud.",
	"Kepler's Supernova": "Kepler's Supernova was a supernova in the Milky Way seen in 1604.",
}

func spaceSource() *fakeSource {
	source := newFakeSource().
		withArticles("Nebulae", "Orion Nebula", "Crab Nebula", "Eagle Nebula").
		withArticles("Galaxies", "Andromeda Galaxy", "Milky Way", "Whirlpool Galaxy").
		withArticles("Black_holes", "Sagittarius A*", "Cygnus X-1", "Milky Way").
		withArticles("Supernova", "SN 1987A", "Kepler's Supernova", "Crab Nebula")
	for title, summary := range spaceSummaries {
		source.summaries[title] = summary
	}
	return source
}

func newSpacePipeline(t *testing.T, source *fakeSource, path string, obs *recordingObserver) *Pipeline {
	t.Helper()

	umap, err := reduction.NewUMAP(reduction.UMAPOptions{NNeighbors: 5, MinDist: 0.1, Spread: 1, Epochs: 100, LearningRate: 1, Seed: 42})
	if err != nil {
		t.Fatalf("NewUMAP: %v", err)
	}
	return NewPipeline(PipelineDeps{
		Config: RunConfig{
			Categories:  []string{"Nebulae", "Galaxies", "Black_holes", "Supernova"},
			MaxArticles: 500,
			OutputPath:  path,
		},
		Collector: NewCollector(source, obs, 20),
		Enricher: NewEnricher(EnricherDeps{
			Embedder: tfidf.New(),
			Reducer:  umap,
			Searcher: neighbors.NewCosine(),
			Observer: obs,
		}),
		Writer:   output.NewJSONWriter(),
		Observer: obs,
	})
}

func TestRunWritesGraph(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "output", "space_data.json")
	obs := &recordingObserver{}
	if err := newSpacePipeline(t, spaceSource(), path, obs).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var graph domain.Graph
	if err := json.Unmarshal(raw, &graph); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(graph.Nodes) != len(spaceSummaries) {
		t.Fatalf("expected %d nodes, got %d", len(spaceSummaries), len(graph.Nodes))
	}

	ids := map[string]bool{}
	for _, n := range graph.Nodes {
		if ids[n.ID] {
			t.Fatalf("duplicate id %s", n.ID)
		}
		ids[n.ID] = true
	}
	for _, n := range graph.Nodes {
		if len(n.Neighbors) != min(NeighborCount, len(graph.Nodes)-1) {
			t.Fatalf("%s has %d neighbors", n.ID, len(n.Neighbors))
		}
		for _, nb := range n.Neighbors {
			if nb == n.ID || !ids[nb] {
				t.Fatalf("%s has invalid neighbor %s", n.ID, nb)
			}
		}
		for _, v := range n.Position {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("%s has non-finite position %v", n.ID, n.Position)
			}
		}
		if n.Summary != spaceSummaries[n.Label] {
			t.Fatalf("%s label/summary mismatch", n.ID)
		}
	}
	if graph.Nodes[0].ID != "orion_nebula" {
		t.Fatalf("collection order not preserved: first node %s", graph.Nodes[0].ID)
	}
	if written := obs.ofKind(domain.EventWritten); len(written) != 1 || written[0].Path != path || written[0].Count != len(spaceSummaries) {
		t.Fatalf("unexpected written events: %+v", written)
	}
}

func TestRunIsReproducible(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first, second := filepath.Join(dir, "a.json"), filepath.Join(dir, "b.json")
	if err := newSpacePipeline(t, spaceSource(), first, &recordingObserver{}).Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if err := newSpacePipeline(t, spaceSource(), second, &recordingObserver{}).Run(context.Background()); err != nil {
		t.Fatalf("second Run: %v", err)
	}

	a, err := os.ReadFile(first)
	if err != nil {
		t.Fatalf("read first: %v", err)
	}
	b, err := os.ReadFile(second)
	if err != nil {
		t.Fatalf("read second: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("same input and seed produced different documents")
	}
}

func TestRunWithoutArticles(t *testing.T) {
	t.Parallel()

	enricher := &stubEnricher{}
	writer := &recordingWriter{}
	obs := &recordingObserver{}
	p := NewPipeline(PipelineDeps{
		Config:    RunConfig{Categories: []string{"Nowhere"}, MaxArticles: 10, OutputPath: "unused.json"},
		Collector: &stubCollector{articles: []domain.CollectedArticle{}},
		Enricher:  enricher,
		Writer:    writer,
		Observer:  obs,
	})

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if enricher.called {
		t.Fatal("enricher must not run without articles")
	}
	if len(writer.paths) != 0 {
		t.Fatalf("nothing should be written, got %v", writer.paths)
	}
	if len(obs.ofKind(domain.EventNoArticles)) != 1 {
		t.Fatal("expected a no-articles event")
	}
}

func TestRunPropagatesStageErrors(t *testing.T) {
	t.Parallel()

	articles := []domain.CollectedArticle{{ID: "milky_way", Title: "Milky Way", Summary: "galaxy"}}

	collectFail := NewPipeline(PipelineDeps{
		Collector: &stubCollector{err: errBoom},
		Enricher:  &stubEnricher{},
		Writer:    &recordingWriter{},
	})
	if err := collectFail.Run(context.Background()); !errors.Is(err, errBoom) {
		t.Fatalf("expected collect error, got %v", err)
	}

	writer := &recordingWriter{}
	enrichFail := NewPipeline(PipelineDeps{
		Collector: &stubCollector{articles: articles},
		Enricher:  &stubEnricher{err: domain.ErrMalformedVectors},
		Writer:    writer,
	})
	if err := enrichFail.Run(context.Background()); !errors.Is(err, domain.ErrMalformedVectors) {
		t.Fatalf("expected enrich error, got %v", err)
	}
	if len(writer.paths) != 0 {
		t.Fatal("nothing should be written after a failed enrichment")
	}
}

func TestRunRequiresStages(t *testing.T) {
	t.Parallel()

	if err := NewPipeline(PipelineDeps{}).Run(context.Background()); err == nil {
		t.Fatal("expected configuration error")
	}
}

func TestCollectOnlyWritesArticles(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "temp_wiki_output.json")
	obs := &recordingObserver{}
	enricher := &stubEnricher{}
	p := NewPipeline(PipelineDeps{
		Config:    RunConfig{Categories: []string{"Nebulae"}, MaxArticles: 2},
		Collector: NewCollector(spaceSource(), obs, 20),
		Enricher:  enricher,
		Writer:    output.NewJSONWriter(),
		Observer:  obs,
	})

	if err := p.CollectOnly(context.Background(), path); err != nil {
		t.Fatalf("CollectOnly: %v", err)
	}
	if enricher.called {
		t.Fatal("enricher must not run in collect-only mode")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var articles []domain.CollectedArticle
	if err := json.Unmarshal(raw, &articles); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	ids := collectedIDs(articles)
	if want := []string{"orion_nebula", "crab_nebula"}; !slices.Equal(ids, want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
}
