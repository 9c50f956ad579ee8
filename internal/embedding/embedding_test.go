package embedding

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avvai/internal/config"
)

type stubEmbedder struct {
	vectors [][]float32
	err     error
}

func (s *stubEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.vectors[0], nil
}

func (s *stubEmbedder) EmbedDocuments(_ context.Context, _ []string) ([][]float32, error) {
	return s.vectors, s.err
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func TestNormalize(t *testing.T) {
	in := []float32{3, 4}
	out := Normalize(in)
	assert.InDelta(t, 0.6, out[0], 1e-6)
	assert.InDelta(t, 0.8, out[1], 1e-6)
	assert.Equal(t, []float32{3, 4}, in, "input untouched")

	assert.Equal(t, []float32{0, 0}, Normalize([]float32{0, 0}))
}

func TestNormalizedWrapper(t *testing.T) {
	ctx := context.Background()

	e := Normalized(&stubEmbedder{vectors: [][]float32{{2, 0, 0}}})
	assert.Same(t, e, Normalized(e))

	v, err := e.EmbedQuery(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, v)

	_, err = Normalized(&stubEmbedder{vectors: [][]float32{{}}}).EmbedQuery(ctx, "x")
	assert.ErrorIs(t, err, ErrEmptyEmbedding)

	_, err = Normalized(&stubEmbedder{vectors: [][]float32{{1}}}).EmbedDocuments(ctx, []string{"a", "b"})
	assert.ErrorContains(t, err, "embedded 1 of 2")

	boom := errors.New("boom")
	_, err = Normalized(&stubEmbedder{err: boom}).EmbedDocuments(ctx, []string{"a"})
	assert.ErrorIs(t, err, boom)
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New(context.Background(), config.EmbeddingConfig{Provider: "word2vec"}, nil)
	assert.ErrorContains(t, err, "unknown embedding provider")

	_, err = New(context.Background(), config.EmbeddingConfig{Provider: "gemini"}, nil)
	assert.Error(t, err)
}

func TestTFIDF(t *testing.T) {
	ctx := context.Background()
	corpus := []string{
		"Be humble and kind to elders",
		"Control your anger before it burns you",
		"Pride comes before a fall, stay humble",
	}

	e, err := New(ctx, config.EmbeddingConfig{Provider: "tfidf"}, nil)
	require.NoError(t, err)

	_, err = e.EmbedQuery(ctx, "humble")
	assert.Error(t, err, "query before prepare")

	require.NoError(t, e.(Preparer).Prepare(corpus))

	docs, err := e.EmbedDocuments(ctx, corpus)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	for _, d := range docs {
		assert.InDelta(t, 1.0, norm(d), 1e-5)
	}

	q1, err := e.EmbedQuery(ctx, "I feel proud, pride everywhere")
	require.NoError(t, err)
	q2, err := e.EmbedQuery(ctx, "I feel proud, pride everywhere")
	require.NoError(t, err)
	assert.Equal(t, q1, q2, "same text, same vector")

	same, err := e.EmbedQuery(ctx, corpus[1])
	require.NoError(t, err)
	assert.InDeltaSlice(t, docs[1], same, 1e-6)
}

func TestTFIDFUnknownWords(t *testing.T) {
	e := NewTFIDFEmbedder()
	require.NoError(t, e.Prepare([]string{"humble heart"}))

	v, err := e.EmbedQuery(context.Background(), "zzz qqq")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0}, v)

	assert.Error(t, NewTFIDFEmbedder().Prepare([]string{"the and of"}))
}
