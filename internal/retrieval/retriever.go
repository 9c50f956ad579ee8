package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"avvai/internal/constants"
	"avvai/internal/embedding"
	"avvai/internal/vector"
)

var (
	ErrNotReady   = errors.New("retriever not ready")
	ErrEmptyQuery = errors.New("empty query")
)

// Retriever embeds a query and returns the closest verses. Safe for concurrent use once built.
type Retriever struct {
	embedder embedding.Embedder
	index    vector.Index
	k        int
}

func New(embedder embedding.Embedder, index vector.Index, k int) *Retriever {
	if k <= 0 {
		k = constants.MaxResultsLimit
	}
	return &Retriever{embedder: embedder, index: index, k: k}
}

func (r *Retriever) K() int { return r.k }

// Retrieve returns min(k, index size) verses, most similar first.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]constants.VerseEmbeddingResponse, error) {
	if r == nil || r.embedder == nil || r.index == nil {
		return nil, ErrNotReady
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	vec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	verses, err := r.index.Search(ctx, vec, r.k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	log.Debug().Int("found", len(verses)).Msg("Verses retrieved")
	return verses, nil
}
