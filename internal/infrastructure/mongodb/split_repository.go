package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/inbound-service/internal/domain"
	mongopkg "github.com/wms-platform/inbound-service/pkg/mongodb"
)

// SplitCollection is the collection holding destination splits
const SplitCollection = "inbound_splits"

// SplitRepository implements domain.SplitRepository using MongoDB
type SplitRepository struct {
	client     *mongopkg.InstrumentedClient
	collection *mongopkg.InstrumentedCollection
	events     *EventWriter
}

var _ domain.SplitRepository = (*SplitRepository)(nil)

// NewSplitRepository creates a new SplitRepository
func NewSplitRepository(client *mongopkg.InstrumentedClient, events *EventWriter) *SplitRepository {
	return &SplitRepository{
		client:     client,
		collection: client.Collection(SplitCollection),
		events:     events,
	}
}

// EnsureIndexes creates the indexes lookups rely on
func (r *SplitRepository) EnsureIndexes(ctx context.Context) error {
	return r.collection.CreateIndexes(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "remoteShipmentId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "shipmentId", Value: 1}, {Key: "createdAt", Value: 1}}},
	})
}

// Save inserts a split seen for the first time and conditionally replaces a
// known one.
func (r *SplitRepository) Save(ctx context.Context, split *domain.Split) error {
	doc := *split
	doc.Version = split.Version + 1
	doc.UpdatedAt = mongopkg.Now()
	if split.Version == 0 {
		doc.CreatedAt = doc.UpdatedAt
	}

	err := r.client.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if split.Version == 0 {
			if _, err := r.collection.InsertOne(sessCtx, &doc); err != nil {
				if mongopkg.IsDuplicateKey(err) {
					return domain.ErrConcurrentModification
				}
				return err
			}
		} else {
			result, err := r.collection.ReplaceOne(sessCtx,
				bson.M{"remoteShipmentId": split.RemoteShipmentID, "version": split.Version},
				&doc,
			)
			if err != nil {
				return err
			}
			if result.MatchedCount == 0 {
				return domain.ErrConcurrentModification
			}
		}
		return r.events.Write(sessCtx, "ShipmentSplit", split.GetDomainEvents())
	})
	if err != nil {
		if errors.Is(err, domain.ErrConcurrentModification) {
			return err
		}
		return fmt.Errorf("failed to save split: %w", err)
	}

	split.Version = doc.Version
	split.CreatedAt = doc.CreatedAt
	split.UpdatedAt = doc.UpdatedAt
	split.ClearDomainEvents()
	return nil
}

// FindByRemoteID returns the split or nil when it does not exist
func (r *SplitRepository) FindByRemoteID(ctx context.Context, remoteShipmentID string) (*domain.Split, error) {
	var split domain.Split
	err := r.collection.FindOne(ctx, bson.M{"remoteShipmentId": remoteShipmentID}).Decode(&split)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find split: %w", err)
	}
	return &split, nil
}

// FindByShipmentID returns the shipment's splits in creation order
func (r *SplitRepository) FindByShipmentID(ctx context.Context, shipmentID string) ([]*domain.Split, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "createdAt", Value: 1},
		{Key: "remoteShipmentId", Value: 1},
	})

	cursor, err := r.collection.Find(ctx, bson.M{"shipmentId": shipmentID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find splits: %w", err)
	}
	defer cursor.Close(ctx)

	var splits []*domain.Split
	if err := cursor.All(ctx, &splits); err != nil {
		return nil, fmt.Errorf("failed to decode splits: %w", err)
	}
	return splits, nil
}
