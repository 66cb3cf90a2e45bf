package domain

import (
	"context"
	"time"
)

// ShipmentRepository persists shipments. Save is a conditional write on
// Version: it fails with ErrConcurrentModification when the stored document
// has moved on, and bumps Version on success. Pending domain events are stored
// in the same write.
type ShipmentRepository interface {
	Create(ctx context.Context, shipment *Shipment) error
	Save(ctx context.Context, shipment *Shipment) error
	FindByID(ctx context.Context, shipmentID string) (*Shipment, error)
}

// SplitRepository persists splits keyed by remote shipment id. Save inserts a
// split with Version 0 and conditionally updates any other.
type SplitRepository interface {
	Save(ctx context.Context, split *Split) error
	FindByRemoteID(ctx context.Context, remoteShipmentID string) (*Split, error)
	FindByShipmentID(ctx context.Context, shipmentID string) ([]*Split, error)
}

// FulfillmentNetwork is the port to the remote fulfillment network. Generate
// and confirm calls return an operation id to poll; list and get calls are
// synchronous.
type FulfillmentNetwork interface {
	CreateInboundPlan(ctx context.Context, req CreatePlanRequest) (planID, operationID string, err error)
	GetOperation(ctx context.Context, operationID string) (*Operation, error)

	GeneratePackingOptions(ctx context.Context, planID string) (string, error)
	ListPackingOptions(ctx context.Context, planID string) ([]PackingOption, error)
	ConfirmPackingOption(ctx context.Context, planID, packingOptionID string) (string, error)
	ListPackingGroupItems(ctx context.Context, planID, packingGroupID string) ([]ItemQuantity, error)
	SetPackingInformation(ctx context.Context, planID string, groups []PackingGroupBoxes) (string, error)

	GeneratePlacementOptions(ctx context.Context, planID string) (string, error)
	ListPlacementOptions(ctx context.Context, planID string) ([]PlacementOption, error)
	ConfirmPlacementOption(ctx context.Context, planID, placementOptionID string) (string, error)
	GetShipment(ctx context.Context, planID, shipmentID string) (*RemoteShipment, error)

	GenerateTransportationOptions(ctx context.Context, planID, placementOptionID, shipmentID string, readyToShip time.Time) (string, error)
	ListTransportationOptions(ctx context.Context, planID, shipmentID string) ([]TransportOption, error)
	ConfirmTransportationOptions(ctx context.Context, planID string, selections []TransportSelection) (string, error)

	GenerateDeliveryWindowOptions(ctx context.Context, planID, shipmentID string) (string, error)
	ListDeliveryWindowOptions(ctx context.Context, planID, shipmentID string) ([]DeliveryWindowOption, error)
	ConfirmDeliveryWindowOption(ctx context.Context, planID, shipmentID, deliveryWindowOptionID string) (string, error)

	GetLabels(ctx context.Context, req LabelRequest) (*Label, error)
}
