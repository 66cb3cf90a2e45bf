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

// ShipmentCollection is the collection holding shipment aggregates
const ShipmentCollection = "inbound_shipments"

// ShipmentRepository implements domain.ShipmentRepository using MongoDB
type ShipmentRepository struct {
	client     *mongopkg.InstrumentedClient
	collection *mongopkg.InstrumentedCollection
	events     *EventWriter
}

var _ domain.ShipmentRepository = (*ShipmentRepository)(nil)

// NewShipmentRepository creates a new ShipmentRepository
func NewShipmentRepository(client *mongopkg.InstrumentedClient, events *EventWriter) *ShipmentRepository {
	return &ShipmentRepository{
		client:     client,
		collection: client.Collection(ShipmentCollection),
		events:     events,
	}
}

// EnsureIndexes creates the indexes lookups rely on
func (r *ShipmentRepository) EnsureIndexes(ctx context.Context) error {
	return r.collection.CreateIndexes(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "shipmentId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "workflow.phase", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	})
}

// Create inserts a new shipment at version 1 together with its pending events
func (r *ShipmentRepository) Create(ctx context.Context, shipment *domain.Shipment) error {
	doc := *shipment
	doc.Version = 1
	doc.CreatedAt = mongopkg.Now()
	doc.UpdatedAt = doc.CreatedAt

	err := r.client.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if _, err := r.collection.InsertOne(sessCtx, &doc); err != nil {
			return err
		}
		return r.events.Write(sessCtx, "Shipment", shipment.GetDomainEvents())
	})
	if err != nil {
		if mongopkg.IsDuplicateKey(err) {
			return domain.ErrShipmentExists
		}
		return fmt.Errorf("failed to create shipment: %w", err)
	}

	shipment.Version = doc.Version
	shipment.CreatedAt = doc.CreatedAt
	shipment.UpdatedAt = doc.UpdatedAt
	shipment.ClearDomainEvents()
	return nil
}

// Save replaces the stored document if its version still matches and writes
// the pending events to the outbox in the same transaction.
func (r *ShipmentRepository) Save(ctx context.Context, shipment *domain.Shipment) error {
	doc := *shipment
	doc.Version = shipment.Version + 1
	doc.UpdatedAt = mongopkg.Now()

	err := r.client.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		result, err := r.collection.ReplaceOne(sessCtx,
			bson.M{"shipmentId": shipment.ShipmentID, "version": shipment.Version},
			&doc,
		)
		if err != nil {
			return err
		}
		if result.MatchedCount == 0 {
			return domain.ErrConcurrentModification
		}
		return r.events.Write(sessCtx, "Shipment", shipment.GetDomainEvents())
	})
	if err != nil {
		if errors.Is(err, domain.ErrConcurrentModification) {
			return err
		}
		return fmt.Errorf("failed to save shipment: %w", err)
	}

	shipment.Version = doc.Version
	shipment.UpdatedAt = doc.UpdatedAt
	shipment.ClearDomainEvents()
	return nil
}

// FindByID returns the shipment or nil when it does not exist
func (r *ShipmentRepository) FindByID(ctx context.Context, shipmentID string) (*domain.Shipment, error) {
	var shipment domain.Shipment
	err := r.collection.FindOne(ctx, bson.M{"shipmentId": shipmentID}).Decode(&shipment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find shipment: %w", err)
	}
	return &shipment, nil
}
