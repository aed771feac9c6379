package persistence

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"crosspost/domain/model"
	"crosspost/domain/repository"
	"crosspost/infrastructure/logger"
)

// PublishRecordRepository archives successful publishes to Mongo for history
// and dashboard reads.
type PublishRecordRepository struct {
	coll *mongo.Collection
}

func NewPublishRecordRepository(client *mongo.Client, dbName string) repository.IPublishRecord {
	if client == nil {
		// Keeps the service usable when Mongo is down; archive writes are
		// dropped with a log line instead of failing publishes.
		return &noopRecordRepository{}
	}
	return &PublishRecordRepository{coll: client.Database(dbName).Collection("publish_records")}
}

type noopRecordRepository struct{}

func (noopRecordRepository) Insert(_ context.Context, rec *model.PublishRecord) error {
	logger.GetLogger().WithField("task_id", rec.TaskID).Warn("Mongo unavailable, publish record not archived")
	return nil
}

func (noopRecordRepository) ListByUser(context.Context, string, int64) ([]*model.PublishRecord, error) {
	return nil, nil
}

func (r *PublishRecordRepository) Insert(ctx context.Context, rec *model.PublishRecord) error {
	_, err := r.coll.InsertOne(ctx, rec)
	return err
}

func (r *PublishRecordRepository) ListByUser(ctx context.Context, userID string, limit int64) ([]*model.PublishRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().SetSort(bson.D{{Key: "publishedAt", Value: -1}}).SetLimit(limit)
	cur, err := r.coll.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*model.PublishRecord
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
