package domain

import (
	"time"

	"github.com/wms-platform/inbound-service/pkg/cloudevents"
)

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	EventType() string
	AggregateID() string
	OccurredAt() time.Time
}

// PlanCreatedEvent is published when the remote inbound plan exists
type PlanCreatedEvent struct {
	ShipmentID string    `json:"shipmentId"`
	PlanID     string    `json:"planId"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (e *PlanCreatedEvent) EventType() string     { return cloudevents.InboundPlanCreated }
func (e *PlanCreatedEvent) AggregateID() string   { return e.ShipmentID }
func (e *PlanCreatedEvent) OccurredAt() time.Time { return e.CreatedAt }

// PackingSetEvent is published when packing information has been accepted
type PackingSetEvent struct {
	ShipmentID      string    `json:"shipmentId"`
	PlanID          string    `json:"planId"`
	PackingOptionID string    `json:"packingOptionId"`
	SetAt           time.Time `json:"setAt"`
}

func (e *PackingSetEvent) EventType() string     { return cloudevents.InboundPackingSet }
func (e *PackingSetEvent) AggregateID() string   { return e.ShipmentID }
func (e *PackingSetEvent) OccurredAt() time.Time { return e.SetAt }

// PlacementConfirmedEvent is published when a placement option is confirmed
type PlacementConfirmedEvent struct {
	ShipmentID        string    `json:"shipmentId"`
	PlanID            string    `json:"planId"`
	PlacementOptionID string    `json:"placementOptionId"`
	RemoteShipmentIDs []string  `json:"remoteShipmentIds"`
	ConfirmedAt       time.Time `json:"confirmedAt"`
}

func (e *PlacementConfirmedEvent) EventType() string     { return cloudevents.InboundPlacementConfirmed }
func (e *PlacementConfirmedEvent) AggregateID() string   { return e.ShipmentID }
func (e *PlacementConfirmedEvent) OccurredAt() time.Time { return e.ConfirmedAt }

// TransportConfirmedEvent is published when transport is confirmed and the
// shipment is submitted
type TransportConfirmedEvent struct {
	ShipmentID        string    `json:"shipmentId"`
	PlanID            string    `json:"planId"`
	RemoteShipmentIDs []string  `json:"remoteShipmentIds"`
	SubmittedAt       time.Time `json:"submittedAt"`
}

func (e *TransportConfirmedEvent) EventType() string     { return cloudevents.InboundTransportConfirmed }
func (e *TransportConfirmedEvent) AggregateID() string   { return e.ShipmentID }
func (e *TransportConfirmedEvent) OccurredAt() time.Time { return e.SubmittedAt }

// PhaseFailedEvent is published when a phase fails after reaching the remote side
type PhaseFailedEvent struct {
	ShipmentID  string    `json:"shipmentId"`
	Phase       string    `json:"phase"`
	OperationID string    `json:"operationId,omitempty"`
	Error       string    `json:"error"`
	FailedAt    time.Time `json:"failedAt"`
}

func (e *PhaseFailedEvent) EventType() string     { return cloudevents.InboundPhaseFailed }
func (e *PhaseFailedEvent) AggregateID() string   { return e.ShipmentID }
func (e *PhaseFailedEvent) OccurredAt() time.Time { return e.FailedAt }

// LabelsReadyEvent is published when labels are available for a split
type LabelsReadyEvent struct {
	ShipmentID       string    `json:"shipmentId"`
	RemoteShipmentID string    `json:"remoteShipmentId"`
	LabelURL         string    `json:"labelUrl"`
	ReadyAt          time.Time `json:"readyAt"`
}

func (e *LabelsReadyEvent) EventType() string     { return cloudevents.InboundLabelsReady }
func (e *LabelsReadyEvent) AggregateID() string   { return e.ShipmentID }
func (e *LabelsReadyEvent) OccurredAt() time.Time { return e.ReadyAt }
