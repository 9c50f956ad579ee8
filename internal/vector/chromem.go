package vector

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"avvai/internal/constants"
)

const (
	metaVerseNo     = "verse_no"
	metaVerse       = "verse"
	metaGloss       = "gloss"
	metaExplanation = "explanation"
	metaOrdinal     = "ordinal"
	metaEmbedText   = "embedding_text"
)

// ChromemIndex keeps the verses in an in-memory chromem collection.
type ChromemIndex struct {
	db         *chromem.DB
	collection *chromem.Collection
	verses     []constants.Verse // by ordinal
	blank      []int             // ordinals with a zero embedding, kept out of chromem
	dims       int
}

// embeddings are always precomputed, chromem must never call out
func noEmbedding(context.Context, string) ([]float32, error) {
	return nil, errors.New("chromem index only accepts precomputed embeddings")
}

func NewChromemIndex(ctx context.Context, name string, entries []constants.VerseEmbedding) (*ChromemIndex, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyIndex
	}
	if name == "" {
		name = constants.CollectionName
	}

	db := chromem.NewDB()
	collection, err := db.GetOrCreateCollection(name, nil, noEmbedding)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}

	dims := len(entries[0].Embedding)
	docs := make([]chromem.Document, 0, len(entries))
	verses := make([]constants.Verse, len(entries))
	var blank []int
	for i, entry := range entries {
		if len(entry.Embedding) != dims {
			return nil, fmt.Errorf("verse %d has %d dimensions, expected %d", entry.VerseNo, len(entry.Embedding), dims)
		}
		v := entry.Verse
		v.Ordinal = i
		verses[i] = v
		// chromem would normalise a zero vector into NaNs
		if isZero(entry.Embedding) {
			log.Warn().Int("verse", v.VerseNo).Msg("Verse has a zero embedding, it will score 0 for every query")
			blank = append(blank, i)
			continue
		}
		docs = append(docs, chromem.Document{
			ID:        strconv.Itoa(i),
			Content:   v.EmbeddingText,
			Metadata:  verseMetadata(v),
			Embedding: entry.Embedding,
		})
	}

	if len(docs) > 0 {
		if err := collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
			return nil, fmt.Errorf("failed to add documents: %w", err)
		}
	}
	log.Debug().Int("count", collection.Count()).Int("blank", len(blank)).Str("collection", name).Msg("Chromem collection loaded")

	return &ChromemIndex{db: db, collection: collection, verses: verses, blank: blank, dims: dims}, nil
}

func (c *ChromemIndex) Len() int { return len(c.verses) }

// Search ranks the whole collection and re-sorts it so ties keep corpus order.
func (c *ChromemIndex) Search(ctx context.Context, query []float32, k int) ([]constants.VerseEmbeddingResponse, error) {
	if err := checkQuery(query, k, c.dims); err != nil {
		return nil, err
	}

	if isZero(query) {
		results := make([]constants.VerseEmbeddingResponse, len(c.verses))
		for i, v := range c.verses {
			results[i] = constants.VerseEmbeddingResponse{Verse: v}
		}
		return rank(results, k), nil
	}

	results := make([]constants.VerseEmbeddingResponse, 0, len(c.verses))
	for _, ordinal := range c.blank {
		results = append(results, constants.VerseEmbeddingResponse{Verse: c.verses[ordinal]})
	}
	stored := c.collection.Count()
	if stored == 0 {
		return rank(results, k), nil
	}

	found, err := c.collection.QueryEmbedding(ctx, query, stored, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}
	for _, r := range found {
		ordinal, err := strconv.Atoi(r.ID)
		if err != nil || ordinal < 0 || ordinal >= len(c.verses) {
			return nil, fmt.Errorf("unexpected document id %q", r.ID)
		}
		results = append(results, constants.VerseEmbeddingResponse{
			Verse: c.verses[ordinal],
			Score: r.Similarity,
		})
	}
	return rank(results, k), nil
}

func (c *ChromemIndex) Close() error {
	return c.db.DeleteCollection(c.collection.Name)
}

func verseMetadata(v constants.Verse) map[string]string {
	return map[string]string{
		metaVerseNo:     strconv.Itoa(v.VerseNo),
		metaVerse:       v.Text,
		metaGloss:       v.Gloss,
		metaExplanation: v.Explanation,
		metaOrdinal:     strconv.Itoa(v.Ordinal),
	}
}
