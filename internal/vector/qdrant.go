package vector

import (
	"context"
	"fmt"
	"math"

	"github.com/golang/protobuf/proto"
	"github.com/qdrant/go-client/qdrant"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"avvai/internal/constants"
)

const upsertBatchSize = 50

// QdrantIndex stores the verses in a qdrant collection that is rebuilt on every start.
type QdrantIndex struct {
	conn       *grpc.ClientConn
	points     qdrant.PointsClient
	collection string
	dims       int
	count      int
}

func NewQdrantIndex(ctx context.Context, addr, collection string, entries []constants.VerseEmbedding) (*QdrantIndex, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyIndex
	}

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant at %s: %w", addr, err)
	}

	index, err := newQdrantIndex(ctx, qdrant.NewPointsClient(conn), qdrant.NewCollectionsClient(conn), collection, entries)
	if err != nil {
		conn.Close()
		return nil, err
	}
	index.conn = conn
	return index, nil
}

func newQdrantIndex(ctx context.Context, points qdrant.PointsClient, collections qdrant.CollectionsClient, collection string, entries []constants.VerseEmbedding) (*QdrantIndex, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyIndex
	}
	if collection == "" {
		collection = constants.CollectionName
	}

	index := &QdrantIndex{
		points:     points,
		collection: collection,
		dims:       len(entries[0].Embedding),
	}
	if err := index.recreate(ctx, collections); err != nil {
		return nil, err
	}
	if err := index.add(ctx, entries); err != nil {
		return nil, err
	}

	resp, err := points.Count(ctx, &qdrant.CountPoints{
		CollectionName: collection,
		Exact:          proto.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count points: %w", err)
	}
	index.count = int(resp.GetResult().GetCount())
	if index.count != len(entries) {
		return nil, fmt.Errorf("qdrant holds %d points, expected %d", index.count, len(entries))
	}
	log.Info().Int("count", index.count).Str("collection", collection).Msg("Qdrant collection loaded")

	return index, nil
}

// recreate drops any collection left from a previous run so stale verses never leak into results
func (q *QdrantIndex) recreate(ctx context.Context, collections qdrant.CollectionsClient) error {
	_, err := collections.Get(ctx, &qdrant.GetCollectionInfoRequest{CollectionName: q.collection})
	switch {
	case err == nil:
		log.Debug().Str("collection", q.collection).Msg("Dropping existing collection")
		if _, err := collections.Delete(ctx, &qdrant.DeleteCollection{CollectionName: q.collection}); err != nil {
			return fmt.Errorf("failed to drop collection: %w", err)
		}
	case status.Code(err) != codes.NotFound:
		return fmt.Errorf("failed to get collection: %w", err)
	}

	_, err = collections.Create(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     uint64(q.dims),
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

func (q *QdrantIndex) add(ctx context.Context, entries []constants.VerseEmbedding) error {
	for start := 0; start < len(entries); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(entries))
		points := make([]*qdrant.PointStruct, 0, end-start)
		for i := start; i < end; i++ {
			entry := entries[i]
			if len(entry.Embedding) != q.dims {
				return fmt.Errorf("verse %d has %d dimensions, expected %d", entry.VerseNo, len(entry.Embedding), q.dims)
			}
			points = append(points, &qdrant.PointStruct{
				Id:      &qdrant.PointId{PointIdOptions: &qdrant.PointId_Num{Num: uint64(i)}},
				Vectors: qdrant.NewVectors(entry.Embedding...),
				Payload: versePayload(entry.Verse, i),
			})
		}

		upsert, err := q.points.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: q.collection,
			Wait:           proto.Bool(true),
			Points:         points,
		})
		if err != nil {
			return fmt.Errorf("failed to upsert verses: %w", err)
		}
		getStatus := upsert.GetResult().GetStatus()
		if getStatus != qdrant.UpdateStatus_Acknowledged && getStatus != qdrant.UpdateStatus_Completed {
			return fmt.Errorf("error adding verses to qdrant. status: %d", getStatus)
		}
	}
	return nil
}

func (q *QdrantIndex) Len() int { return q.count }

// Search asks qdrant for every point so ties at the cut-off are settled by corpus order, not by qdrant.
func (q *QdrantIndex) Search(ctx context.Context, query []float32, k int) ([]constants.VerseEmbeddingResponse, error) {
	if err := checkQuery(query, k, q.dims); err != nil {
		return nil, err
	}

	resp, err := q.points.Search(ctx, &qdrant.SearchPoints{
		CollectionName: q.collection,
		Vector:         query,
		WithPayload:    &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true}},
		Limit:          uint64(q.count),
	})
	if err != nil {
		return nil, err
	}

	results := make([]constants.VerseEmbeddingResponse, len(resp.GetResult()))
	for i, point := range resp.GetResult() {
		payload := point.GetPayload()
		if payload == nil {
			return nil, fmt.Errorf("payload is nil")
		}
		score := point.GetScore()
		if math.IsNaN(float64(score)) { // zero vectors have no direction
			score = 0
		}
		results[i] = constants.VerseEmbeddingResponse{
			Verse: payloadVerse(payload),
			Score: score,
		}
	}
	return rank(results, k), nil
}

func (q *QdrantIndex) Close() error {
	if q.conn == nil {
		return nil
	}
	return q.conn.Close()
}

func versePayload(v constants.Verse, ordinal int) map[string]*qdrant.Value {
	return map[string]*qdrant.Value{
		metaVerseNo:     {Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(v.VerseNo)}},
		metaVerse:       {Kind: &qdrant.Value_StringValue{StringValue: v.Text}},
		metaGloss:       {Kind: &qdrant.Value_StringValue{StringValue: v.Gloss}},
		metaExplanation: {Kind: &qdrant.Value_StringValue{StringValue: v.Explanation}},
		metaEmbedText:   {Kind: &qdrant.Value_StringValue{StringValue: v.EmbeddingText}},
		metaOrdinal:     {Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(ordinal)}},
	}
}

func payloadVerse(payload map[string]*qdrant.Value) constants.Verse {
	return constants.Verse{
		VerseNo:       int(payload[metaVerseNo].GetIntegerValue()),
		Text:          payload[metaVerse].GetStringValue(),
		Gloss:         payload[metaGloss].GetStringValue(),
		Explanation:   payload[metaExplanation].GetStringValue(),
		EmbeddingText: payload[metaEmbedText].GetStringValue(),
		Ordinal:       int(payload[metaOrdinal].GetIntegerValue()),
	}
}
