// Package tfidf is an offline embedder: every batch is vectorised against a
// vocabulary fitted on that same batch.
package tfidf

import (
	"context"
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"Weaver/internal/ports"
)

const modelID = "tfidf"

// Embedder is a corpus-fitted TF-IDF vectoriser producing L2-normalised vectors.
type Embedder struct {
	mu         sync.Mutex
	vocabulary map[string]int
	idf        []float64

	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

var _ ports.Embedder = (*Embedder)(nil)

func New() *Embedder {
	return &Embedder{
		vocabulary:   make(map[string]int),
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
		stopwords:    defaultStopwords(),
	}
}

// EmbedBatch fits the vocabulary on texts and returns one vector per text.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	tokenized := make([][]string, len(texts))
	for i, text := range texts {
		tokenized[i] = e.tokenize(text)
	}
	if err := e.fit(tokenized); err != nil {
		return nil, err
	}

	out := make([][]float64, len(texts))
	for i, tokens := range tokenized {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.vectorize(tokens)
	}
	return out, nil
}

// Dimensions is the vocabulary size of the last fitted batch, zero before any batch.
func (e *Embedder) Dimensions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.idf)
}

func (e *Embedder) ModelID() string { return modelID }

func (e *Embedder) fit(corpus [][]string) error {
	df := make(map[string]int)
	for _, tokens := range corpus {
		seen := make(map[string]struct{}, len(tokens))
		for _, tok := range tokens {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	if len(terms) == 0 {
		return errors.New("tfidf: no tokens found in corpus")
	}
	sort.Strings(terms)

	n := float64(len(corpus))
	e.vocabulary = make(map[string]int, len(terms))
	e.idf = make([]float64, len(terms))
	for i, term := range terms {
		e.vocabulary[term] = i
		// smoothed idf
		e.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	return nil
}

func (e *Embedder) vectorize(tokens []string) []float64 {
	vec := make([]float64, len(e.idf))
	if len(tokens) == 0 {
		return vec
	}

	tf := make(map[int]int)
	for _, tok := range tokens {
		if idx, ok := e.vocabulary[tok]; ok {
			tf[idx]++
		}
	}
	total := float64(len(tokens))
	for idx, count := range tf {
		vec[idx] = float64(count) / total * e.idf[idx]
	}

	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	if norm = math.Sqrt(norm); norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}

func (e *Embedder) tokenize(text string) []string {
	raw := e.tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, stop := e.stopwords[t]; stop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as",
		"is", "are", "was", "were", "be", "been", "being", "it", "its", "this", "that", "these", "those", "from", "up", "down",
		"over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before",
		"after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
