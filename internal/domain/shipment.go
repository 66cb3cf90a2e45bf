package domain

import (
	"time"
)

// ShipmentStatus represents the overall status of a shipment
type ShipmentStatus string

const (
	ShipmentStatusDraft      ShipmentStatus = "draft"
	ShipmentStatusProcessing ShipmentStatus = "processing"
	ShipmentStatusSubmitted  ShipmentStatus = "submitted"
)

// Prep and label owner classifications
const (
	OwnerNetwork = "NETWORK"
	OwnerSeller  = "SELLER"
	OwnerNone    = "NONE"
)

// Shipment is the aggregate root for an inbound submission
type Shipment struct {
	ShipmentID      string           `bson:"shipmentId"`
	Name            string           `bson:"name"`
	SourceWarehouse Warehouse        `bson:"sourceWarehouse"`
	DestinationHint string           `bson:"destinationHint,omitempty"`
	Items           []LineItem       `bson:"items" validate:"required,min=1,dive"`
	Boxes           []Box            `bson:"boxes" validate:"required,min=1,dive"`
	Status          ShipmentStatus   `bson:"status"`
	Workflow        WorkflowProgress `bson:"workflow"`
	Lease           *RunLease        `bson:"lease,omitempty"`
	Version         int64            `bson:"version"`
	CreatedAt       time.Time        `bson:"createdAt"`
	UpdatedAt       time.Time        `bson:"updatedAt"`
	SubmittedAt     *time.Time       `bson:"submittedAt,omitempty"`
	DomainEvents    []DomainEvent    `bson:"-"`
}

// WorkflowProgress is what has already been done for the shipment remotely.
// Phase is the single source of truth; the ids are the choices made on the way.
type WorkflowProgress struct {
	Phase             Phase      `bson:"phase"`
	PlanID            string     `bson:"planId,omitempty"`
	PendingPlanID     string     `bson:"pendingPlanId,omitempty"`
	PackingOptionID   string     `bson:"packingOptionId,omitempty"`
	PlacementOptionID string     `bson:"placementOptionId,omitempty"`
	LastOperationID   string     `bson:"lastOperationId,omitempty"`
	LastError         string     `bson:"lastError,omitempty"`
	LastErrorAt       *time.Time `bson:"lastErrorAt,omitempty"`
}

// RunLease marks the run that currently owns the shipment
type RunLease struct {
	RunID     string        `bson:"runId"`
	ExpiresAt time.Time     `bson:"expiresAt"`
	TTL       time.Duration `bson:"ttl"`
}

// Warehouse is the source the goods ship from
type Warehouse struct {
	WarehouseID string  `bson:"warehouseId"`
	Name        string  `bson:"name"`
	Address     Address `bson:"address"`
}

// Address represents a postal address with a contact
type Address struct {
	Name                string `bson:"name"`
	CompanyName         string `bson:"companyName,omitempty"`
	AddressLine1        string `bson:"addressLine1" validate:"required"`
	AddressLine2        string `bson:"addressLine2,omitempty"`
	City                string `bson:"city" validate:"required"`
	StateOrProvinceCode string `bson:"stateOrProvinceCode" validate:"required"`
	PostalCode          string `bson:"postalCode" validate:"required"`
	CountryCode         string `bson:"countryCode" validate:"omitempty,len=2"`
	Phone               string `bson:"phone" validate:"required"`
	Email               string `bson:"email,omitempty"`
}

// LineItem is one SKU the shipment must deliver
type LineItem struct {
	SKU        string `bson:"sku" validate:"required"`
	Quantity   int    `bson:"quantity" validate:"gt=0"`
	PrepOwner  string `bson:"prepOwner,omitempty" validate:"omitempty,oneof=NETWORK SELLER NONE"`
	LabelOwner string `bson:"labelOwner,omitempty" validate:"omitempty,oneof=NETWORK SELLER NONE"`
}

// Box is one physical carton
type Box struct {
	BoxID          string     `bson:"boxId"`
	Dimensions     Dimensions `bson:"dimensions"`
	Weight         Weight     `bson:"weight"`
	Items          []BoxItem  `bson:"items" validate:"required,min=1,dive"`
	PackingGroupID string     `bson:"packingGroupId,omitempty"`
}

// Dimensions of a box
type Dimensions struct {
	Length float64 `bson:"length" validate:"gt=0"`
	Width  float64 `bson:"width" validate:"gt=0"`
	Height float64 `bson:"height" validate:"gt=0"`
	Unit   string  `bson:"unit" validate:"oneof=IN CM"`
}

// Weight of a box
type Weight struct {
	Value float64 `bson:"value" validate:"gt=0"`
	Unit  string  `bson:"unit" validate:"oneof=LB KG"`
}

// BoxItem is the quantity of one SKU packed in a box
type BoxItem struct {
	SKU      string `bson:"sku" validate:"required"`
	Quantity int    `bson:"quantity" validate:"gt=0"`
}

// NewShipment creates a draft shipment
func NewShipment(shipmentID, name string, warehouse Warehouse, destinationHint string, items []LineItem, boxes []Box) *Shipment {
	now := time.Now().UTC()
	return &Shipment{
		ShipmentID:      shipmentID,
		Name:            name,
		SourceWarehouse: warehouse,
		DestinationHint: destinationHint,
		Items:           items,
		Boxes:           boxes,
		Status:          ShipmentStatusDraft,
		Workflow:        WorkflowProgress{Phase: PhaseNone},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Phase returns the current progress marker
func (s *Shipment) Phase() Phase {
	return s.Workflow.Phase.Normalize()
}

// SKUs lists the shipment's line-item SKUs
func (s *Shipment) SKUs() []string {
	skus := make([]string, len(s.Items))
	for i, it := range s.Items {
		skus[i] = it.SKU
	}
	return skus
}

// PlanItems builds the plan line items, applying owner defaults
func (s *Shipment) PlanItems() []PlanItem {
	items := make([]PlanItem, len(s.Items))
	for i, it := range s.Items {
		items[i] = PlanItem{
			SKU:        it.SKU,
			Quantity:   it.Quantity,
			PrepOwner:  orDefault(it.PrepOwner, OwnerNone),
			LabelOwner: orDefault(it.LabelOwner, OwnerSeller),
		}
	}
	return items
}

// ClaimRun takes the run lease. A live lease held by another run fails with
// ErrShipmentBusy; an expired one is taken over.
func (s *Shipment) ClaimRun(runID string, ttl time.Duration, now time.Time) error {
	if s.Lease != nil && s.Lease.RunID != runID && now.Before(s.Lease.ExpiresAt) {
		return ErrShipmentBusy
	}
	s.Lease = &RunLease{RunID: runID, ExpiresAt: now.Add(ttl), TTL: ttl}
	return nil
}

// RenewRun pushes the held lease out by its TTL. It reports false when there
// is no lease to renew.
func (s *Shipment) RenewRun(now time.Time) bool {
	if s.Lease == nil || s.Lease.TTL <= 0 {
		return false
	}
	s.Lease.ExpiresAt = now.Add(s.Lease.TTL)
	return true
}

// ReleaseRun drops the lease if runID still owns it
func (s *Shipment) ReleaseRun(runID string) bool {
	if s.Lease == nil || s.Lease.RunID != runID {
		return false
	}
	s.Lease = nil
	return true
}

// RecordOperation remembers the last remote operation attempted
func (s *Shipment) RecordOperation(operationID string) {
	if operationID != "" {
		s.Workflow.LastOperationID = operationID
	}
}

func (s *Shipment) advance(event PhaseEvent) (bool, error) {
	before := s.Phase()
	next, err := NextPhase(before, event)
	if err != nil {
		return false, err
	}
	s.Workflow.Phase = next
	s.Workflow.LastError = ""
	s.Workflow.LastErrorAt = nil
	if s.Status == ShipmentStatusDraft {
		s.Status = ShipmentStatusProcessing
	}
	return next != before, nil
}

// PlanPending remembers a plan the remote side accepted but has not finished
// creating, so a later run polls it instead of creating another one.
func (s *Shipment) PlanPending(planID, operationID string) {
	s.Workflow.PendingPlanID = planID
	s.RecordOperation(operationID)
}

// DropPendingPlan forgets a pending plan whose creation failed remotely
func (s *Shipment) DropPendingPlan() {
	s.Workflow.PendingPlanID = ""
}

// PlanCreated records the remote plan and advances to plan_created
func (s *Shipment) PlanCreated(planID, operationID string) error {
	s.Workflow.PlanID = planID
	s.Workflow.PendingPlanID = ""
	s.RecordOperation(operationID)
	advanced, err := s.advance(EventPlanCreated)
	if err != nil {
		return err
	}
	if advanced {
		s.AddDomainEvent(&PlanCreatedEvent{
			ShipmentID: s.ShipmentID,
			PlanID:     planID,
			CreatedAt:  time.Now().UTC(),
		})
	}
	return nil
}

// PackingSet records the confirmed packing option and box assignment
func (s *Shipment) PackingSet(packingOptionID, operationID string, boxes []Box) error {
	s.Workflow.PackingOptionID = packingOptionID
	s.Boxes = boxes
	s.RecordOperation(operationID)
	advanced, err := s.advance(EventPackingSet)
	if err != nil {
		return err
	}
	if advanced {
		s.AddDomainEvent(&PackingSetEvent{
			ShipmentID:      s.ShipmentID,
			PlanID:          s.Workflow.PlanID,
			PackingOptionID: packingOptionID,
			SetAt:           time.Now().UTC(),
		})
	}
	return nil
}

// PlacementConfirmed records the chosen placement and the splits it produced
func (s *Shipment) PlacementConfirmed(placementOptionID, operationID string, remoteShipmentIDs []string) error {
	s.Workflow.PlacementOptionID = placementOptionID
	s.RecordOperation(operationID)
	advanced, err := s.advance(EventPlacementConfirmed)
	if err != nil {
		return err
	}
	if advanced {
		s.AddDomainEvent(&PlacementConfirmedEvent{
			ShipmentID:        s.ShipmentID,
			PlanID:            s.Workflow.PlanID,
			PlacementOptionID: placementOptionID,
			RemoteShipmentIDs: remoteShipmentIDs,
			ConfirmedAt:       time.Now().UTC(),
		})
	}
	return nil
}

// RecoverPlacementOptionID restores a placement id lost locally but known remotely
func (s *Shipment) RecoverPlacementOptionID(placementOptionID string) bool {
	if s.Workflow.PlacementOptionID != "" || placementOptionID == "" {
		return false
	}
	s.Workflow.PlacementOptionID = placementOptionID
	return true
}

// TransportConfirmed advances to transport_confirmed and stamps the shipment submitted
func (s *Shipment) TransportConfirmed(operationID string, remoteShipmentIDs []string) error {
	s.RecordOperation(operationID)
	advanced, err := s.advance(EventTransportConfirmed)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	s.Status = ShipmentStatusSubmitted
	if s.SubmittedAt == nil {
		s.SubmittedAt = &now
	}
	if advanced || len(remoteShipmentIDs) > 0 {
		s.AddDomainEvent(&TransportConfirmedEvent{
			ShipmentID:        s.ShipmentID,
			PlanID:            s.Workflow.PlanID,
			RemoteShipmentIDs: remoteShipmentIDs,
			SubmittedAt:       now,
		})
	}
	return nil
}

// RecordFailure stores the last error without touching the marker
func (s *Shipment) RecordFailure(phase Phase, operationID, message string) {
	now := time.Now().UTC()
	s.RecordOperation(operationID)
	s.Workflow.LastError = message
	s.Workflow.LastErrorAt = &now
	s.AddDomainEvent(&PhaseFailedEvent{
		ShipmentID:  s.ShipmentID,
		Phase:       string(phase),
		OperationID: operationID,
		Error:       message,
		FailedAt:    now,
	})
}

// AddDomainEvent adds a domain event
func (s *Shipment) AddDomainEvent(event DomainEvent) {
	s.DomainEvents = append(s.DomainEvents, event)
}

// GetDomainEvents returns all domain events
func (s *Shipment) GetDomainEvents() []DomainEvent {
	return s.DomainEvents
}

// ClearDomainEvents clears all domain events
func (s *Shipment) ClearDomainEvents() {
	s.DomainEvents = nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
