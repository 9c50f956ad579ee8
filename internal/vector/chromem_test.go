package vector

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avvai/internal/config"
	"avvai/internal/constants"
)

func entry(no int, text string, vec ...float32) constants.VerseEmbedding {
	return constants.VerseEmbedding{
		Verse:     constants.Verse{VerseNo: no, Text: text, EmbeddingText: text},
		Embedding: vec,
	}
}

func sampleEntries() []constants.VerseEmbedding {
	return []constants.VerseEmbedding{
		entry(1, "humble", 1, 0, 0),
		entry(2, "anger", 0, 1, 0),
		entry(3, "give", 0, 0, 1),
		entry(4, "anger again", 0, 1, 0),
		entry(5, "mixed", 0.6, 0.8, 0),
	}
}

func ordinals(results []constants.VerseEmbeddingResponse) []int {
	out := make([]int, len(results))
	for i, r := range results {
		out[i] = r.Ordinal
	}
	return out
}

func TestChromemIndexHoldsEveryEntry(t *testing.T) {
	index, err := Build(context.Background(), config.IndexConfig{Backend: "chromem"}, sampleEntries())
	require.NoError(t, err)
	defer index.Close()
	assert.Equal(t, 5, index.Len())
}

func TestChromemSearchBound(t *testing.T) {
	ctx := context.Background()
	index, err := NewChromemIndex(ctx, "bound", sampleEntries())
	require.NoError(t, err)

	for _, k := range []int{1, 3, 5, 10} {
		results, err := index.Search(ctx, []float32{1, 0, 0}, k)
		require.NoError(t, err)
		assert.Len(t, results, min(k, 5))
	}
}

func TestChromemIdenticalEmbeddingFirst(t *testing.T) {
	ctx := context.Background()
	index, err := NewChromemIndex(ctx, "identical", sampleEntries())
	require.NoError(t, err)

	results, err := index.Search(ctx, []float32{0, 0, 1}, 5)
	require.NoError(t, err)
	assert.Equal(t, 3, results[0].VerseNo)
	assert.Equal(t, "give", results[0].Text)
	assert.InDelta(t, 1.0, results[0].Score, 1e-5)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestChromemTiesKeepCorpusOrder(t *testing.T) {
	ctx := context.Background()
	index, err := NewChromemIndex(ctx, "ties", sampleEntries())
	require.NoError(t, err)

	first, err := index.Search(ctx, []float32{0, 1, 0}, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 4}, ordinals(first))

	for range 5 {
		again, err := index.Search(ctx, []float32{0, 1, 0}, 3)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestChromemZeroQuery(t *testing.T) {
	ctx := context.Background()
	index, err := NewChromemIndex(ctx, "zero", sampleEntries())
	require.NoError(t, err)

	results, err := index.Search(ctx, []float32{0, 0, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, ordinals(results))
}

func TestChromemErrors(t *testing.T) {
	ctx := context.Background()

	_, err := Build(ctx, config.IndexConfig{}, nil)
	assert.ErrorIs(t, err, ErrEmptyIndex)

	_, err = Build(ctx, config.IndexConfig{Backend: "faiss"}, sampleEntries())
	assert.ErrorContains(t, err, "unknown index backend")

	_, err = NewChromemIndex(ctx, "ragged", []constants.VerseEmbedding{entry(1, "a", 1, 0), entry(2, "b", 1)})
	assert.ErrorContains(t, err, "dimensions")

	index, err := NewChromemIndex(ctx, "bad-query", sampleEntries())
	require.NoError(t, err)
	_, err = index.Search(ctx, []float32{1, 0}, 3)
	assert.ErrorContains(t, err, "dimensions")
	_, err = index.Search(ctx, []float32{1, 0, 0}, 0)
	assert.Error(t, err)
}

func TestChromemZeroDocumentScoresZero(t *testing.T) {
	ctx := context.Background()
	entries := []constants.VerseEmbedding{
		entry(1, "humble", 1, 0, 0),
		entry(2, "the and of", 0, 0, 0), // nothing left after stopwords
		entry(3, "anger", 0, 1, 0),
	}
	index, err := NewChromemIndex(ctx, "zero-doc", entries)
	require.NoError(t, err)
	assert.Equal(t, 3, index.Len())

	results, err := index.Search(ctx, []float32{0.6, 0.8, 0}, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0, 1}, ordinals(results))
	for _, r := range results {
		assert.False(t, math.IsNaN(float64(r.Score)), "verse %d", r.VerseNo)
	}
	assert.Zero(t, results[2].Score)

	results, err = index.Search(ctx, []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, ordinals(results))
}

func TestChromemAllZeroDocuments(t *testing.T) {
	ctx := context.Background()
	index, err := NewChromemIndex(ctx, "all-zero", []constants.VerseEmbedding{entry(1, "a", 0, 0), entry(2, "b", 0, 0)})
	require.NoError(t, err)

	results, err := index.Search(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, ordinals(results))
}
