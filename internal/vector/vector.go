package vector

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"avvai/internal/config"
	"avvai/internal/constants"
)

var ErrEmptyIndex = errors.New("vector index has no entries")

// Index - nearest-neighbour search over the embedded verses. Implementations are read-only once built.
type Index interface {
	// Search returns min(k, Len()) verses, best first. Equal scores keep corpus order.
	Search(ctx context.Context, query []float32, k int) ([]constants.VerseEmbeddingResponse, error)
	Len() int
	Close() error
}

// Build loads every entry into the configured backend.
func Build(ctx context.Context, cfg config.IndexConfig, entries []constants.VerseEmbedding) (Index, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyIndex
	}
	switch cfg.Backend {
	case "chromem", "":
		return NewChromemIndex(ctx, cfg.QdrantCollection, entries)
	case "qdrant":
		return NewQdrantIndex(ctx, cfg.QdrantAddr, cfg.QdrantCollection, entries)
	default:
		return nil, fmt.Errorf("unknown index backend: %s", cfg.Backend)
	}
}

// rank sorts by score desc then ordinal asc and keeps the first k.
func rank(results []constants.VerseEmbeddingResponse, k int) []constants.VerseEmbeddingResponse {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Ordinal < results[j].Ordinal
	})
	if k < len(results) {
		results = results[:k]
	}
	return results
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

func checkQuery(query []float32, k, dims int) error {
	if k <= 0 {
		return fmt.Errorf("k must be positive, got %d", k)
	}
	if len(query) != dims {
		return fmt.Errorf("query has %d dimensions, index has %d", len(query), dims)
	}
	return nil
}
