package domain

// Node is a single entry of the visualization document.
type Node struct {
	ID        string     `json:"id"`
	Label     string     `json:"label"`
	Summary   string     `json:"summary"`
	Position  [3]float64 `json:"position"`
	Neighbors []string   `json:"neighbors"`
}

// Graph is the document consumed by the visualization front end.
type Graph struct {
	Nodes []Node `json:"nodes"`
}

// NodeFromArticle projects an enriched article onto the output schema; the URL is dropped.
func NodeFromArticle(article EnrichedArticle) Node {
	neighbors := article.Neighbors
	if neighbors == nil {
		neighbors = []string{}
	}
	return Node{
		ID:        article.ID,
		Label:     article.Title,
		Summary:   article.Summary,
		Position:  article.Position,
		Neighbors: neighbors,
	}
}

// NewGraph projects all enriched articles preserving their order.
func NewGraph(articles []EnrichedArticle) Graph {
	nodes := make([]Node, 0, len(articles))
	for _, article := range articles {
		nodes = append(nodes, NodeFromArticle(article))
	}
	return Graph{Nodes: nodes}
}
