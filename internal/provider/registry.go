// Package provider maps configured backend names to constructors.
package provider

import (
	"fmt"
	"slices"

	"Weaver/internal/config"
	"Weaver/internal/infrastructure/embedding/ollama"
	"Weaver/internal/infrastructure/embedding/openai"
	"Weaver/internal/infrastructure/embedding/tfidf"
	"Weaver/internal/infrastructure/reduction"
	"Weaver/internal/ports"
)

// Factory builds a backend from the full configuration.
type Factory[T any] func(cfg config.Config) (T, error)

// Registry keeps a mapping from backend names to their factories.
type Registry[T any] struct {
	kind      string
	factories map[string]Factory[T]
}

// NewRegistry builds an empty registry; kind names the backend family in errors.
func NewRegistry[T any](kind string) *Registry[T] {
	return &Registry[T]{kind: kind, factories: map[string]Factory[T]{}}
}

// Register adds or replaces a factory.
func (r *Registry[T]) Register(name string, factory Factory[T]) {
	if r.factories == nil {
		r.factories = map[string]Factory[T]{}
	}
	r.factories[name] = factory
}

// Resolve builds the backend registered under name.
func (r *Registry[T]) Resolve(name string, cfg config.Config) (T, error) {
	factory, ok := r.factories[name]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s %q is not registered", r.kind, name)
	}
	backend, err := factory(cfg)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("build %s %q: %w", r.kind, name, err)
	}
	return backend, nil
}

// Names lists registered backends in sorted order.
func (r *Registry[T]) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Embedders returns the built-in embedding backends.
func Embedders() *Registry[ports.Embedder] {
	r := NewRegistry[ports.Embedder]("embedder")
	r.Register("ollama", func(cfg config.Config) (ports.Embedder, error) {
		e := cfg.Embedder
		return ollama.New(e.BaseURL, e.Model, e.Dimensions, e.Timeout), nil
	})
	r.Register("openai", func(cfg config.Config) (ports.Embedder, error) {
		e := cfg.Embedder
		return openai.New(e.APIKey, e.Model, e.BaseURL, e.Timeout)
	})
	r.Register("tfidf", func(config.Config) (ports.Embedder, error) {
		return tfidf.New(), nil
	})
	return r
}

// Reducers returns the built-in 3D projections.
func Reducers() *Registry[ports.Reducer] {
	r := NewRegistry[ports.Reducer]("reducer")
	r.Register("umap", func(cfg config.Config) (ports.Reducer, error) {
		rc := cfg.Reducer
		return reduction.NewUMAP(reduction.UMAPOptions{
			NNeighbors:   rc.NNeighbors,
			MinDist:      rc.MinDist,
			Spread:       rc.Spread,
			Epochs:       rc.Epochs,
			LearningRate: rc.LearningRate,
			Seed:         rc.Seed,
		})
	})
	r.Register("pca", func(config.Config) (ports.Reducer, error) {
		return reduction.NewPCA(), nil
	})
	return r
}
