package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	mongopkg "github.com/wms-platform/inbound-service/pkg/mongodb"
	"github.com/wms-platform/inbound-service/pkg/outbox"
)

// DefaultCollectionName is the default name for the outbox collection
const DefaultCollectionName = "outbox_events"

// OutboxRepository implements outbox.Repository for MongoDB
type OutboxRepository struct {
	collection *mongopkg.InstrumentedCollection
}

// NewOutboxRepository creates a new MongoDB outbox repository
func NewOutboxRepository(client *mongopkg.InstrumentedClient) *OutboxRepository {
	return &OutboxRepository{collection: client.Collection(DefaultCollectionName)}
}

// EnsureIndexes creates the indexes the publisher queries rely on
func (r *OutboxRepository) EnsureIndexes(ctx context.Context) error {
	return r.collection.CreateIndexes(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "delivery.publishedAt", Value: 1}, {Key: "createdAt", Value: 1}}},
		{Keys: bson.D{{Key: "aggregate.id", Value: 1}}},
	})
}

// SaveAll inserts the messages in one round trip
func (r *OutboxRepository) SaveAll(ctx context.Context, messages []*outbox.Message) error {
	if len(messages) == 0 {
		return nil
	}

	docs := make([]interface{}, len(messages))
	for i, msg := range messages {
		docs[i] = msg
	}

	if _, err := r.collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to save outbox messages: %w", err)
	}
	return nil
}

// FindPending returns up to limit relayable messages, oldest first
func (r *OutboxRepository) FindPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	filter := bson.M{
		"delivery.publishedAt": bson.M{"$exists": false},
		"$expr":                bson.M{"$lt": bson.A{"$delivery.attempts", "$delivery.maxAttempts"}},
	}
	opts := options.Find().
		SetSort(mongopkg.SortAscending("createdAt")).
		SetLimit(int64(limit))

	return r.find(ctx, filter, opts)
}

// MarkPublished stamps the message as delivered
func (r *OutboxRepository) MarkPublished(ctx context.Context, id string) error {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"delivery.publishedAt": mongopkg.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark outbox message %s published: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("outbox message %s not found", id)
	}
	return nil
}

// RecordFailure counts one failed attempt
func (r *OutboxRepository) RecordFailure(ctx context.Context, id string, reason string) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{"delivery.attempts": 1},
			"$set": bson.M{"delivery.lastError": reason},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to record outbox failure for %s: %w", id, err)
	}
	return nil
}

// DeletePublished deletes events published more than olderThan ago
func (r *OutboxRepository) DeletePublished(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := mongopkg.Now().Add(-olderThan)
	result, err := r.collection.DeleteMany(ctx, bson.M{"delivery.publishedAt": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete published outbox messages: %w", err)
	}
	return result.DeletedCount, nil
}

// FindByAggregateID returns every message raised by one aggregate, oldest first
func (r *OutboxRepository) FindByAggregateID(ctx context.Context, aggregateID string) ([]*outbox.Message, error) {
	opts := options.Find().SetSort(mongopkg.SortAscending("createdAt"))
	return r.find(ctx, bson.M{"aggregate.id": aggregateID}, opts)
}

func (r *OutboxRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*outbox.Message, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find outbox messages: %w", err)
	}
	defer cursor.Close(ctx)

	var messages []*outbox.Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode outbox messages: %w", err)
	}
	return messages, nil
}
