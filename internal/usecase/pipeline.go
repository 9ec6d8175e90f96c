package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"Weaver/internal/domain"
	"Weaver/internal/observe"
	"Weaver/internal/ports"
)

// RunConfig holds the run parameters of a single pipeline execution.
type RunConfig struct {
	Categories  []string
	MaxArticles int
	OutputPath  string
}

// ArticleCollector is the collection stage consumed by the pipeline.
type ArticleCollector interface {
	Collect(ctx context.Context, categories []string, maxArticles int) ([]domain.CollectedArticle, error)
}

// ArticleEnricher is the enrichment stage consumed by the pipeline.
type ArticleEnricher interface {
	Enrich(ctx context.Context, articles []domain.CollectedArticle) ([]domain.EnrichedArticle, error)
}

// PipelineDeps wires the stages and the output adapter into the orchestration pipeline.
type PipelineDeps struct {
	Config    RunConfig
	Collector ArticleCollector
	Enricher  ArticleEnricher
	Writer    ports.GraphWriter
	Observer  ports.ProgressObserver
	Logger    *slog.Logger
}

// Pipeline sequences collection, enrichment and output.
type Pipeline struct {
	cfg       RunConfig
	collector ArticleCollector
	enricher  ArticleEnricher
	writer    ports.GraphWriter
	observer  ports.ProgressObserver
	logger    *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		cfg:       deps.Config,
		collector: deps.Collector,
		enricher:  deps.Enricher,
		writer:    deps.Writer,
		observer:  deps.Observer,
		logger:    logger,
	}
}

// Run collects articles, enriches them and writes the node document.
// An empty collection ends the run early without error and without output.
func (p *Pipeline) Run(ctx context.Context) error {
	if p.collector == nil || p.enricher == nil || p.writer == nil {
		return fmt.Errorf("pipeline is not fully configured")
	}

	ctx, span := observe.StartSpan(ctx, "pipeline.run")
	defer span.End()

	articles, err := p.collect(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if len(articles) == 0 {
		p.notify(domain.ProgressEvent{Stage: domain.StageCollect, Kind: domain.EventNoArticles})
		return nil
	}

	enriched, err := p.enrich(ctx, articles)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	graph := domain.NewGraph(enriched)
	if err := p.write(ctx, graph); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	observe.Logger(ctx, p.logger).Info("pipeline complete", "nodes", len(graph.Nodes), "path", p.cfg.OutputPath)
	return nil
}

// CollectOnly runs the collection stage and stores the raw articles at path.
func (p *Pipeline) CollectOnly(ctx context.Context, path string) error {
	if p.collector == nil || p.writer == nil {
		return fmt.Errorf("pipeline is not fully configured")
	}

	ctx, span := observe.StartSpan(ctx, "pipeline.collect_only")
	defer span.End()

	articles, err := p.collect(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if len(articles) == 0 {
		p.notify(domain.ProgressEvent{Stage: domain.StageCollect, Kind: domain.EventNoArticles})
		return nil
	}

	if err := p.writer.WriteArticles(ctx, path, articles); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("write articles: %w", err)
	}
	p.notify(domain.ProgressEvent{Stage: domain.StageOutput, Kind: domain.EventWritten, Count: len(articles), Path: path})
	return nil
}

func (p *Pipeline) collect(ctx context.Context) ([]domain.CollectedArticle, error) {
	ctx, span := observe.StartSpan(ctx, "pipeline.collect")
	defer span.End()

	articles, err := p.collector.Collect(ctx, p.cfg.Categories, p.cfg.MaxArticles)
	if err != nil {
		return nil, fmt.Errorf("collect articles: %w", err)
	}
	span.SetAttributes(attribute.Int("articles", len(articles)))
	return articles, nil
}

func (p *Pipeline) enrich(ctx context.Context, articles []domain.CollectedArticle) ([]domain.EnrichedArticle, error) {
	ctx, span := observe.StartSpan(ctx, "pipeline.enrich")
	defer span.End()

	enriched, err := p.enricher.Enrich(ctx, articles)
	if err != nil {
		return nil, fmt.Errorf("enrich articles: %w", err)
	}
	return enriched, nil
}

func (p *Pipeline) write(ctx context.Context, graph domain.Graph) error {
	ctx, span := observe.StartSpan(ctx, "pipeline.write")
	defer span.End()

	if err := p.writer.WriteGraph(ctx, p.cfg.OutputPath, graph); err != nil {
		return fmt.Errorf("write graph: %w", err)
	}
	p.notify(domain.ProgressEvent{Stage: domain.StageOutput, Kind: domain.EventWritten, Count: len(graph.Nodes), Path: p.cfg.OutputPath})
	return nil
}

func (p *Pipeline) notify(event domain.ProgressEvent) {
	if p.observer != nil {
		p.observer.Notify(event)
	}
}
