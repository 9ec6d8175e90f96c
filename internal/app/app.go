package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"Weaver/internal/config"
	"Weaver/internal/infrastructure/neighbors"
	"Weaver/internal/infrastructure/output"
	"Weaver/internal/infrastructure/wikipedia"
	"Weaver/internal/logging"
	"Weaver/internal/provider"
	"Weaver/internal/usecase"
)

// Application wires configs to use cases.
type Application struct {
	cfg      config.Config
	pipeline *usecase.Pipeline
	logger   *slog.Logger
}

// New resolves the configured backends and builds the pipeline.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	embedder, err := provider.Embedders().Resolve(cfg.Embedder.Provider, cfg)
	if err != nil {
		return nil, err
	}
	reducer, err := provider.Reducers().Resolve(cfg.Reducer.Method, cfg)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{
		Timeout:   cfg.Wikipedia.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	source := wikipedia.NewClient(cfg.Wikipedia.Endpoint(), cfg.Wikipedia.UserAgent, httpClient)
	observer := logging.NewProgressObserver(baseLogger.With("component", "progress"))

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Config: usecase.RunConfig{
			Categories:  cfg.Pipeline.Categories,
			MaxArticles: cfg.Pipeline.MaxArticles,
			OutputPath:  cfg.Pipeline.OutputPath,
		},
		Collector: usecase.NewCollector(source, observer, cfg.Wikipedia.MembersPerCategory),
		Enricher: usecase.NewEnricher(usecase.EnricherDeps{
			Embedder: embedder,
			Reducer:  reducer,
			Searcher: neighbors.NewCosine(),
			Observer: observer,
		}),
		Writer:   output.NewJSONWriter(),
		Observer: observer,
		Logger:   baseLogger.With("component", "pipeline"),
	})

	baseLogger.Debug("application configured",
		"embedder", embedder.ModelID(),
		"reducer", reducer.Name(),
		"categories", len(cfg.Pipeline.Categories),
		"max_articles", cfg.Pipeline.MaxArticles,
	)
	return &Application{cfg: cfg, pipeline: pipeline, logger: baseLogger}, nil
}

// Run performs a full collect, enrich and write cycle.
func (a *Application) Run(ctx context.Context) error {
	if err := a.pipeline.Run(ctx); err != nil {
		return fmt.Errorf("run pipeline: %w", err)
	}
	return nil
}

// Collect only gathers articles and stores them at path, or at the configured
// collect path when path is empty.
func (a *Application) Collect(ctx context.Context, path string) error {
	if path == "" {
		path = a.cfg.Pipeline.CollectPath
	}
	if err := a.pipeline.CollectOnly(ctx, path); err != nil {
		return fmt.Errorf("collect articles: %w", err)
	}
	return nil
}
