package historystore

import (
	"context"
	"fmt"

	"Aethena/backend/go/internal/models"
	"Aethena/backend/go/internal/rag_service/rag/dal"
	"Aethena/backend/go/internal/rag_service/rag/interfaces"
	"Aethena/backend/go/internal/rag_service/rag/schema"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore is a HistoryRecorder backed by a MongoDB collection.
type MongoStore struct {
	collection *mongo.Collection
}

// NewMongoStore creates a new MongoStore.
func NewMongoStore(collection *mongo.Collection) *MongoStore {
	return &MongoStore{collection: collection}
}

// Record inserts an exchange.
func (s *MongoStore) Record(ctx context.Context, h *models.QueryHistory) error {
	h.EnsureID()
	if _, err := s.collection.InsertOne(ctx, h); err != nil {
		return fmt.Errorf("record history: %w", err)
	}
	return nil
}

// List returns a tenant's exchanges, newest first.
func (s *MongoStore) List(ctx context.Context, tenantID string, limit int) ([]*models.QueryHistory, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(dal.ClampLimit(limit)))

	cursor, err := s.collection.Find(ctx, bson.M{"user_id": tenantID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer cursor.Close(ctx)

	records := make([]*models.QueryHistory, 0)
	if err = cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return records, nil
}

// Delete removes an exchange owned by tenantID.
func (s *MongoStore) Delete(ctx context.Context, tenantID, id string) error {
	res, err := s.collection.DeleteOne(ctx, bson.M{"_id": id, "user_id": tenantID})
	if err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: history %s", schema.ErrNotFound, id)
	}
	return nil
}

var _ interfaces.HistoryRecorder = (*MongoStore)(nil)
