package internal

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"avvai/internal/assets"
	"avvai/internal/config"
	"avvai/internal/constants"
	"avvai/internal/corpus"
	"avvai/internal/embedding"
	"avvai/internal/retrieval"
	"avvai/internal/vector"
)

// Bootstrap runs the one-time startup sequence: model asset, embedder, corpus, embeddings, index.
// Any error leaves nothing behind; the caller is expected to exit.
func Bootstrap(ctx context.Context, cfg *config.Config) (*ReadyState, error) {
	start := time.Now()

	if err := assets.NewManager(cfg.Asset, nil).Ensure(ctx); err != nil {
		return nil, err
	}

	log.Info().Str("provider", cfg.Embedding.Provider).Str("model", cfg.Embedding.Model).Msg("Loading embeddings")
	embedder, err := embedding.New(ctx, cfg.Embedding, cfg.LLM.Keys)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}

	verses, path, err := corpus.Load(cfg.Corpus.Paths)
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", path).Int("verses", len(verses)).Msg("Knowledge base loaded")

	entries, err := EmbedVerses(ctx, embedder, verses)
	if err != nil {
		return nil, err
	}

	index, err := vector.Build(ctx, cfg.Index, entries)
	if err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}
	if index.Len() != len(verses) {
		index.Close()
		return nil, fmt.Errorf("index holds %d entries for %d verses", index.Len(), len(verses))
	}

	retriever := retrieval.New(embedder, index, cfg.Index.TopK)
	log.Info().
		Str("backend", cfg.Index.Backend).
		Int("dims", len(entries[0].Embedding)).
		Int("top_k", retriever.K()).
		Dur("took", time.Since(start)).
		Msg("Brain ready")
	return &ReadyState{
		Retriever:  retriever,
		Index:      index,
		Verses:     verses,
		CorpusPath: path,
	}, nil
}

// EmbedVerses embeds every verse's EmbeddingText, preparing the embedder first if it needs the corpus.
func EmbedVerses(ctx context.Context, embedder embedding.Embedder, verses []constants.Verse) ([]constants.VerseEmbedding, error) {
	texts := make([]string, len(verses))
	for i, v := range verses {
		texts[i] = v.EmbeddingText
	}

	if p, ok := embedder.(embedding.Preparer); ok {
		if err := p.Prepare(texts); err != nil {
			return nil, fmt.Errorf("prepare embedder: %w", err)
		}
	}

	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed corpus: %w", err)
	}

	entries := make([]constants.VerseEmbedding, len(verses))
	for i, v := range verses {
		entries[i] = constants.VerseEmbedding{Verse: v, Embedding: vectors[i]}
	}
	return entries, nil
}
