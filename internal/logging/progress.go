package logging

import (
	"log/slog"

	"Weaver/internal/domain"
	"Weaver/internal/ports"
)

// ProgressObserver renders pipeline progress events as structured log lines.
type ProgressObserver struct {
	logger *slog.Logger
}

var _ ports.ProgressObserver = (*ProgressObserver)(nil)

// NewProgressObserver wraps logger; nil falls back to slog.Default.
func NewProgressObserver(logger *slog.Logger) *ProgressObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProgressObserver{logger: logger}
}

// Notify logs a single event.
func (o *ProgressObserver) Notify(event domain.ProgressEvent) {
	log := o.logger.With("stage", string(event.Stage))

	switch event.Kind {
	case domain.EventCategoryScan:
		log.Info("scanning category", "category", event.Category)
	case domain.EventCategoryMissing:
		log.Warn("category does not exist, skipping", "category", event.Category)
	case domain.EventCategoryFailed:
		log.Warn("category fetch failed, skipping", "category", event.Category, "error", event.Err)
	case domain.EventPageFetched:
		log.Info("fetched page", "title", event.Title)
	case domain.EventPageFailed:
		log.Warn("page fetch failed, skipping", "title", event.Title, "error", event.Err)
	case domain.EventCollected:
		log.Info("collected unique articles", "count", event.Count)
	case domain.EventStepStarted:
		log.Info("step started", "step", event.Step, "steps", event.Steps, "name", event.Name)
	case domain.EventStepDone:
		log.Debug("step done", "step", event.Step, "steps", event.Steps, "name", event.Name)
	case domain.EventEnriched:
		log.Info("enrichment complete", "count", event.Count)
	case domain.EventNoArticles:
		log.Info("no articles were fetched, stopping pipeline")
	case domain.EventWritten:
		log.Info("output written", "path", event.Path, "count", event.Count)
	default:
		log.Debug("progress", "kind", string(event.Kind))
	}
}
