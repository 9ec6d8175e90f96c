package domain

// Stage names a pipeline stage.
type Stage string

const (
	StageCollect Stage = "collect"
	StageEnrich  Stage = "enrich"
	StageOutput  Stage = "output"
)

// EventKind enumerates progress notifications emitted by the pipeline.
type EventKind string

const (
	EventCategoryScan    EventKind = "category_scan"
	EventCategoryMissing EventKind = "category_missing"
	EventCategoryFailed  EventKind = "category_failed"
	EventPageFetched     EventKind = "page_fetched"
	EventPageFailed      EventKind = "page_failed"
	EventCollected       EventKind = "collected"
	EventStepStarted     EventKind = "step_started"
	EventStepDone        EventKind = "step_done"
	EventEnriched        EventKind = "enriched"
	EventNoArticles      EventKind = "no_articles"
	EventWritten         EventKind = "written"
)

// ProgressEvent is an observational notification; it carries no pipeline data.
type ProgressEvent struct {
	Stage    Stage
	Kind     EventKind
	Category string
	Title    string
	Step     int
	Steps    int
	Name     string
	Count    int
	Path     string
	Err      error
}
