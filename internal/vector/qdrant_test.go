package vector

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"avvai/internal/constants"
)

// fakePoints keeps upserted points in memory. Unused rpc methods panic through the nil embedded client.
type fakePoints struct {
	qdrant.PointsClient
	stored      []*qdrant.PointStruct
	batches     []int
	status      qdrant.UpdateStatus
	countOffset int
	searchLimit uint64
}

func (f *fakePoints) Upsert(_ context.Context, in *qdrant.UpsertPoints, _ ...grpc.CallOption) (*qdrant.PointsOperationResponse, error) {
	f.batches = append(f.batches, len(in.GetPoints()))
	f.stored = append(f.stored, in.GetPoints()...)
	return &qdrant.PointsOperationResponse{Result: &qdrant.UpdateResult{Status: f.status}}, nil
}

func (f *fakePoints) Count(context.Context, *qdrant.CountPoints, ...grpc.CallOption) (*qdrant.CountResponse, error) {
	return &qdrant.CountResponse{Result: &qdrant.CountResult{Count: uint64(len(f.stored) + f.countOffset)}}, nil
}

// Search scores by dot product and, unlike the real thing, puts later points first on ties.
func (f *fakePoints) Search(_ context.Context, in *qdrant.SearchPoints, _ ...grpc.CallOption) (*qdrant.SearchResponse, error) {
	f.searchLimit = in.GetLimit()
	scored := make([]*qdrant.ScoredPoint, 0, len(f.stored))
	for i := len(f.stored) - 1; i >= 0; i-- {
		p := f.stored[i]
		var dot float32
		for j, x := range p.GetVectors().GetVector().GetData() {
			dot += x * in.GetVector()[j]
		}
		scored = append(scored, &qdrant.ScoredPoint{Id: p.GetId(), Payload: p.GetPayload(), Score: dot})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if int(in.GetLimit()) < len(scored) {
		scored = scored[:in.GetLimit()]
	}
	return &qdrant.SearchResponse{Result: scored}, nil
}

type fakeCollections struct {
	qdrant.CollectionsClient
	exists bool
	getErr error
	calls  []string
	size   uint64
}

func (f *fakeCollections) Get(context.Context, *qdrant.GetCollectionInfoRequest, ...grpc.CallOption) (*qdrant.GetCollectionInfoResponse, error) {
	f.calls = append(f.calls, "get")
	if f.getErr != nil {
		return nil, f.getErr
	}
	if !f.exists {
		return nil, status.Error(codes.NotFound, "collection not found")
	}
	return &qdrant.GetCollectionInfoResponse{}, nil
}

func (f *fakeCollections) Delete(context.Context, *qdrant.DeleteCollection, ...grpc.CallOption) (*qdrant.CollectionOperationResponse, error) {
	f.calls = append(f.calls, "delete")
	f.exists = false
	return &qdrant.CollectionOperationResponse{Result: true}, nil
}

func (f *fakeCollections) Create(_ context.Context, in *qdrant.CreateCollection, _ ...grpc.CallOption) (*qdrant.CollectionOperationResponse, error) {
	f.calls = append(f.calls, "create")
	f.exists = true
	f.size = in.GetVectorsConfig().GetParams().GetSize()
	return &qdrant.CollectionOperationResponse{Result: true}, nil
}

func manyEntries(n int) []constants.VerseEmbedding {
	entries := make([]constants.VerseEmbedding, n)
	for i := range entries {
		entries[i] = entry(i+1, fmt.Sprintf("verse %d", i+1), 1, float32(i))
	}
	return entries
}

func TestQdrantRecreatesCollection(t *testing.T) {
	ctx := context.Background()

	points, collections := &fakePoints{status: qdrant.UpdateStatus_Completed}, &fakeCollections{exists: true}
	index, err := newQdrantIndex(ctx, points, collections, "", sampleEntries())
	require.NoError(t, err)
	assert.Equal(t, []string{"get", "delete", "create"}, collections.calls)
	assert.Equal(t, uint64(3), collections.size)
	assert.Equal(t, constants.CollectionName, index.collection)

	collections = &fakeCollections{}
	_, err = newQdrantIndex(ctx, &fakePoints{status: qdrant.UpdateStatus_Acknowledged}, collections, "fresh", sampleEntries())
	require.NoError(t, err)
	assert.Equal(t, []string{"get", "create"}, collections.calls)

	_, err = newQdrantIndex(ctx, &fakePoints{}, &fakeCollections{getErr: status.Error(codes.Unavailable, "down")}, "x", sampleEntries())
	assert.ErrorContains(t, err, "failed to get collection")
}

func TestQdrantUpsertsInBatches(t *testing.T) {
	points := &fakePoints{status: qdrant.UpdateStatus_Completed}
	index, err := newQdrantIndex(context.Background(), points, &fakeCollections{}, "batches", manyEntries(120))
	require.NoError(t, err)

	assert.Equal(t, []int{50, 50, 20}, points.batches)
	assert.Equal(t, 120, index.Len())
	for i, p := range points.stored {
		assert.Equal(t, uint64(i), p.GetId().GetNum())
		assert.Equal(t, i, payloadVerse(p.GetPayload()).Ordinal)
	}
}

func TestQdrantBuildFailures(t *testing.T) {
	ctx := context.Background()

	_, err := newQdrantIndex(ctx, &fakePoints{status: qdrant.UpdateStatus_ClockRejected}, &fakeCollections{}, "rejected", sampleEntries())
	assert.ErrorContains(t, err, "error adding verses to qdrant")

	_, err = newQdrantIndex(ctx, &fakePoints{status: qdrant.UpdateStatus_Completed, countOffset: -1}, &fakeCollections{}, "short", sampleEntries())
	assert.ErrorContains(t, err, "qdrant holds 4 points, expected 5")

	_, err = newQdrantIndex(ctx, &fakePoints{status: qdrant.UpdateStatus_Completed}, &fakeCollections{}, "ragged",
		[]constants.VerseEmbedding{entry(1, "a", 1, 0), entry(2, "b", 1)})
	assert.ErrorContains(t, err, "dimensions")

	_, err = newQdrantIndex(ctx, &fakePoints{}, &fakeCollections{}, "empty", nil)
	assert.ErrorIs(t, err, ErrEmptyIndex)
}

func TestQdrantSearch(t *testing.T) {
	ctx := context.Background()
	points := &fakePoints{status: qdrant.UpdateStatus_Completed}
	index, err := newQdrantIndex(ctx, points, &fakeCollections{}, "search", sampleEntries())
	require.NoError(t, err)

	for _, k := range []int{1, 3, 5, 10} {
		results, err := index.Search(ctx, []float32{1, 0, 0}, k)
		require.NoError(t, err)
		assert.Len(t, results, min(k, 5))
	}
	assert.Equal(t, uint64(5), points.searchLimit, "every point is fetched before the cut")

	results, err := index.Search(ctx, []float32{0, 1, 0}, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 4}, ordinals(results))
	assert.Equal(t, "anger", results[0].Text)

	_, err = index.Search(ctx, []float32{1, 0}, 3)
	assert.ErrorContains(t, err, "dimensions")
	_, err = index.Search(ctx, []float32{1, 0, 0}, 0)
	assert.Error(t, err)
	assert.NoError(t, index.Close())
}

func TestQdrantPayloadRoundTrip(t *testing.T) {
	v := constants.Verse{VerseNo: 7, Text: "ஏற்பது இகழ்ச்சி", Gloss: "Begging is shameful", Explanation: "Earn your way.", EmbeddingText: "earn"}
	got := payloadVerse(versePayload(v, 6))
	v.Ordinal = 6
	assert.Equal(t, v, got)
}
