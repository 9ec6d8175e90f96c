package domain

import (
	"errors"
	"strings"
)

const (
	// SummaryLimit is the maximum number of characters kept from a source summary.
	SummaryLimit = 500
	// EllipsisMarker is appended to summaries cut at SummaryLimit.
	EllipsisMarker = "..."
	// ArticleNamespace is the knowledge source namespace holding regular articles.
	ArticleNamespace = 0
)

var (
	// ErrCategoryNotFound reports a category unknown to the knowledge source.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrNoArticles is returned when enrichment is requested for an empty article set.
	ErrNoArticles = errors.New("no articles to enrich")
	// ErrMalformedVectors reports embeddings or projections with an unexpected shape.
	ErrMalformedVectors = errors.New("malformed vectors")
)

// CollectedArticle is a topic summary accepted by the collector.
type CollectedArticle struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
	URL     string `json:"url"`
}

// EnrichedArticle carries the 3D position and nearest neighbors of a collected article.
type EnrichedArticle struct {
	CollectedArticle
	Position  [3]float64
	Neighbors []string
}

// PageRef is a category member as listed by the knowledge source.
type PageRef struct {
	Title     string
	Namespace int
}

// IsArticle reports whether the page lives in the article namespace.
func (p PageRef) IsArticle() bool {
	return p.Namespace == ArticleNamespace
}

// PageDetails holds the fetched content of a single page.
type PageDetails struct {
	Title   string
	Summary string
	URL     string
}

// ArticleID derives the stable identifier of an article from its title.
func ArticleID(title string) string {
	return strings.ToLower(strings.ReplaceAll(title, " ", "_"))
}

// TruncateSummary cuts text to limit characters and marks the cut with an ellipsis.
func TruncateSummary(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + EllipsisMarker
}

// NewCollectedArticle builds a collected article from fetched page details.
func NewCollectedArticle(details PageDetails) CollectedArticle {
	return CollectedArticle{
		ID:      ArticleID(details.Title),
		Title:   details.Title,
		Summary: TruncateSummary(details.Summary, SummaryLimit),
		URL:     details.URL,
	}
}
