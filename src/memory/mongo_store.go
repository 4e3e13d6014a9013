package memory

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mnemos-ai/mnemos/src/memory/embed"
)

// MongoStore implements Store on MongoDB Atlas. Similarity queries use the
// $vectorSearch stage against an index named "vector_index" on the
// "embedding" field. Atlas reports a similarity score in [0,1]; it is
// converted to a distance so lower still means more similar.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	embedder   embed.Embedder
}

const mongoCloseTimeout = 5 * time.Second

func NewMongoStore(ctx context.Context, uri, database, collection string, embedder embed.Embedder) (*MongoStore, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is required")
	}
	if database == "" {
		return nil, errors.New("mongo database name is required")
	}
	if collection == "" {
		return nil, errors.New("mongo collection name is required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	if embedder == nil {
		embedder = embed.DummyEmbedder{}
	}
	return &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(collection),
		embedder:   embedder,
	}, nil
}

func (ms *MongoStore) Upsert(ctx context.Context, id, text string, metadata map[string]string) error {
	if ms == nil || ms.collection == nil {
		return nil
	}
	embedding, err := ms.embedder.Embed(ctx, text)
	if err != nil {
		return err
	}
	metadataJSON, _ := json.Marshal(cloneMetadata(metadata))
	doc := bson.M{
		"_id":       id,
		"content":   text,
		"metadata":  string(metadataJSON),
		"embedding": float64Embedding(embedding),
	}
	opts := options.Replace().SetUpsert(true)
	_, err = ms.collection.ReplaceOne(ctx, bson.M{"_id": id}, doc, opts)
	return err
}

func (ms *MongoStore) Query(ctx context.Context, text string, k int) ([]QueryMatch, error) {
	if ms == nil || ms.collection == nil || k <= 0 {
		return nil, nil
	}
	queryEmbedding, err := ms.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	pipeline := mongo.Pipeline{
		{
			{Key: "$vectorSearch", Value: bson.D{
				{Key: "index", Value: "vector_index"},
				{Key: "path", Value: "embedding"},
				{Key: "queryVector", Value: float64Embedding(queryEmbedding)},
				{Key: "numCandidates", Value: int64(k * 10)}, // oversample for accuracy
				{Key: "limit", Value: int64(k)},
			}},
		},
		{
			{Key: "$project", Value: bson.D{
				{Key: "content", Value: 1},
				{Key: "metadata", Value: 1},
				{Key: "score", Value: bson.D{{Key: "$meta", Value: "vectorSearchScore"}}},
			}},
		},
	}

	cursor, err := ms.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var matches []QueryMatch
	for cursor.Next(ctx) {
		var doc struct {
			ID       string  `bson:"_id"`
			Content  string  `bson:"content"`
			Metadata string  `bson:"metadata"`
			Score    float64 `bson:"score"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		distance := 1 - doc.Score
		if distance < 0 {
			distance = 0
		}
		matches = append(matches, QueryMatch{
			Record: Record{
				ID:       doc.ID,
				Text:     doc.Content,
				Metadata: decodeMetadata([]byte(doc.Metadata)),
			},
			Distance: distance,
		})
	}
	return matches, cursor.Err()
}

func (ms *MongoStore) ListAll(ctx context.Context) ([]Record, error) {
	if ms == nil || ms.collection == nil {
		return nil, nil
	}
	cursor, err := ms.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []Record
	for cursor.Next(ctx) {
		var doc struct {
			ID       string `bson:"_id"`
			Content  string `bson:"content"`
			Metadata string `bson:"metadata"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		records = append(records, Record{
			ID:       doc.ID,
			Text:     doc.Content,
			Metadata: decodeMetadata([]byte(doc.Metadata)),
		})
	}
	return records, cursor.Err()
}

func (ms *MongoStore) Delete(ctx context.Context, id string) error {
	if ms == nil || ms.collection == nil {
		return nil
	}
	_, err := ms.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// Close disconnects the underlying client.
func (ms *MongoStore) Close() error {
	if ms == nil || ms.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), mongoCloseTimeout)
	defer cancel()
	return ms.client.Disconnect(ctx)
}

func float64Embedding(embedding []float32) []float64 {
	out := make([]float64, len(embedding))
	for i, v := range embedding {
		out[i] = float64(v)
	}
	return out
}

var _ Store = (*MongoStore)(nil)
