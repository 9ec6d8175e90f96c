// Package openai embeds texts with the OpenAI embeddings API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"Weaver/internal/ports"
)

const DefaultModel = oai.EmbeddingModelTextEmbedding3Small

// Embedder implements ports.Embedder using the official OpenAI client.
type Embedder struct {
	client     oai.Client
	model      string
	dimensions int
}

var _ ports.Embedder = (*Embedder)(nil)

// New creates an embedder. baseURL targets OpenAI-compatible gateways when set.
func New(apiKey, model, baseURL string, timeout time.Duration) (*Embedder, error) {
	if apiKey == "" {
		return nil, errors.New("openai embedder: api key is required")
	}
	if model == "" {
		model = DefaultModel
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if timeout > 0 {
		opts = append(opts, option.WithHTTPClient(&http.Client{Timeout: timeout}))
	}

	return &Embedder{
		client:     oai.NewClient(opts...),
		model:      model,
		dimensions: modelDimensions(model),
	}, nil
}

// EmbedBatch requests all embeddings at once and places each result by its index.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.Embeddings.New(ctx, oai.EmbeddingNewParams{
		Model: e.model,
		Input: oai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	})
	if err != nil {
		return nil, fmt.Errorf("openai embed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embed: expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	out := make([][]float64, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || int(item.Index) >= len(texts) {
			return nil, fmt.Errorf("openai embed: unexpected index %d", item.Index)
		}
		out[item.Index] = item.Embedding
	}
	for i, v := range out {
		if v == nil {
			return nil, fmt.Errorf("openai embed: missing embedding for input %d", i)
		}
	}
	return out, nil
}

func (e *Embedder) Dimensions() int { return e.dimensions }

func (e *Embedder) ModelID() string { return e.model }

func modelDimensions(model string) int {
	switch lower := strings.ToLower(model); {
	case strings.Contains(lower, "text-embedding-3-large"):
		return 3072
	default:
		return 1536
	}
}
