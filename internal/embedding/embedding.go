package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"

	"avvai/internal/config"
)

var ErrEmptyEmbedding = errors.New("empty embedding")

// Embedder turns text into vectors. Callers get unit-length vectors when they go through New.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// Preparer is implemented by embedders that must see the whole corpus before embedding (tf-idf).
type Preparer interface {
	Prepare(corpus []string) error
}

// New builds the configured provider. Gemini reuses the first LLM credential.
func New(ctx context.Context, cfg config.EmbeddingConfig, keys []config.APIKey) (Embedder, error) {
	var (
		inner Embedder
		err   error
	)
	switch cfg.Provider {
	case "openai", "":
		inner, err = NewOpenAIEmbedder(cfg)
	case "ollama":
		inner, err = NewOllamaEmbedder(cfg)
	case "gemini":
		if len(keys) == 0 {
			return nil, fmt.Errorf("gemini embedder needs at least one api key")
		}
		inner, err = NewGeminiEmbedder(ctx, cfg.Model, keys[0].Value)
	case "tfidf":
		inner = NewTFIDFEmbedder()
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return Normalized(inner), nil
}

// Normalized wraps an embedder so every vector it returns has length 1.
func Normalized(e Embedder) Embedder {
	if n, ok := e.(*normalized); ok {
		return n
	}
	return &normalized{inner: e}
}

type normalized struct {
	inner Embedder
}

func (n *normalized) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	v, err := n.inner.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(v) == 0 {
		return nil, ErrEmptyEmbedding
	}
	return Normalize(v), nil
}

func (n *normalized) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := n.inner.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedded %d of %d texts", len(vectors), len(texts))
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("text %d: %w", i, ErrEmptyEmbedding)
		}
		vectors[i] = Normalize(v)
	}
	return vectors, nil
}

// Prepare forwards to the wrapped embedder when it needs the corpus.
func (n *normalized) Prepare(corpus []string) error {
	if p, ok := n.inner.(Preparer); ok {
		return p.Prepare(corpus)
	}
	return nil
}

// Normalize returns a copy of v scaled to unit length. Zero vectors come back unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		copy(out, v)
		return out
	}
	norm := math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
