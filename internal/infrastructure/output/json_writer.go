package output

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"Weaver/internal/domain"
	"Weaver/internal/ports"
)

const indent = "    "

// JSONWriter stores documents as indented UTF-8 JSON files.
type JSONWriter struct{}

var _ ports.GraphWriter = (*JSONWriter)(nil)

func NewJSONWriter() *JSONWriter { return &JSONWriter{} }

// WriteGraph replaces the file at path with the visualization document.
func (w *JSONWriter) WriteGraph(ctx context.Context, path string, graph domain.Graph) error {
	if graph.Nodes == nil {
		graph.Nodes = []domain.Node{}
	}
	return writeJSON(ctx, path, graph)
}

// WriteArticles replaces the file at path with a JSON array of collected articles.
func (w *JSONWriter) WriteArticles(ctx context.Context, path string, articles []domain.CollectedArticle) error {
	if articles == nil {
		articles = []domain.CollectedArticle{}
	}
	return writeJSON(ctx, path, articles)
}

// writeJSON encodes into a temporary sibling and renames it over path, so
// readers never observe a partial document.
func writeJSON(ctx context.Context, path string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", indent)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
