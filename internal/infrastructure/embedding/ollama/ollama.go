// Package ollama embeds texts through a local Ollama server's /api/embed endpoint.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"Weaver/internal/ports"
)

const (
	DefaultBaseURL = "http://localhost:11434"
	// DefaultModel is the Ollama packaging of sentence-transformers all-MiniLM-L6-v2.
	DefaultModel = "all-minilm"
)

// Embedder implements ports.Embedder against Ollama.
type Embedder struct {
	baseURL string
	model   string
	http    *http.Client

	mu         sync.Mutex
	dimensions int
}

var (
	_ ports.Embedder    = (*Embedder)(nil)
	_ ports.ModelLoader = (*Embedder)(nil)
)

// New builds an Ollama embedder. Empty baseURL and model fall back to the defaults;
// dimensions of zero are resolved from the model name or probed on first use.
func New(baseURL, model string, dimensions int, timeout time.Duration) *Embedder {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	if dimensions <= 0 {
		dimensions = knownDimensions(model)
	}
	return &Embedder{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		http:       &http.Client{Timeout: timeout},
		dimensions: dimensions,
	}
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float64 `json:"embeddings"`
}

// EmbedBatch sends every text in a single request; result[i] belongs to texts[i].
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var resp embedResponse
	if err := e.post(ctx, "/api/embed", embedRequest{Model: e.model, Input: texts}, &resp); err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed: expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
	}
	return resp.Embeddings, nil
}

// Load makes sure the model answers. Models with a known vector length are
// trusted as is; any other model is probed with a one-text request.
func (e *Embedder) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.dimensions != 0 {
		return nil
	}
	var resp embedResponse
	if err := e.post(ctx, "/api/embed", embedRequest{Model: e.model, Input: []string{"probe"}}, &resp); err != nil {
		return fmt.Errorf("ollama load %s: %w", e.model, err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0]) == 0 {
		return fmt.Errorf("ollama load %s: empty embedding", e.model)
	}
	e.dimensions = len(resp.Embeddings[0])
	return nil
}

// Dimensions returns the vector length, probing the server for unknown models.
// A failed probe reports zero.
func (e *Embedder) Dimensions() int {
	_ = e.Load(context.Background())

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dimensions
}

func (e *Embedder) ModelID() string { return e.model }

func (e *Embedder) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func knownDimensions(model string) int {
	lower := strings.ToLower(model)
	switch {
	case strings.Contains(lower, "nomic-embed-text"):
		return 768
	case strings.Contains(lower, "mxbai-embed-large"):
		return 1024
	case strings.Contains(lower, "all-minilm"):
		return 384
	default:
		return 0
	}
}
