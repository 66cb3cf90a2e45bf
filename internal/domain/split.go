package domain

import "time"

// SplitStatus is the per-destination progress of a split
type SplitStatus string

const (
	SplitStatusPending            SplitStatus = "pending"
	SplitStatusTransportConfirmed SplitStatus = "transport_confirmed"
	SplitStatusLabelsReady        SplitStatus = "labels_ready"
)

// Split is one destination-bound sub-shipment created when a placement option
// is confirmed. It is keyed by the remote shipment id and never deleted.
type Split struct {
	RemoteShipmentID    string         `bson:"remoteShipmentId"`
	ShipmentID          string         `bson:"shipmentId"`
	PlanID              string         `bson:"planId"`
	ConfirmationID      string         `bson:"confirmationId,omitempty"`
	DestinationFacility string         `bson:"destinationFacility"`
	DestinationAddress  Address        `bson:"destinationAddress"`
	Items               []ItemQuantity `bson:"items"`
	TransportOptionID   string         `bson:"transportOptionId,omitempty"`
	DeliveryWindowID    string         `bson:"deliveryWindowId,omitempty"`
	DeliveryWindowStart *time.Time     `bson:"deliveryWindowStart,omitempty"`
	DeliveryWindowEnd   *time.Time     `bson:"deliveryWindowEnd,omitempty"`
	Carrier             string         `bson:"carrier,omitempty"`
	LabelURL            string         `bson:"labelUrl,omitempty"`
	Status              SplitStatus    `bson:"status"`
	LastError           string         `bson:"lastError,omitempty"`
	Version             int64          `bson:"version"`
	CreatedAt           time.Time      `bson:"createdAt"`
	UpdatedAt           time.Time      `bson:"updatedAt"`
	DomainEvents        []DomainEvent  `bson:"-"`
}

// NewSplit creates a pending split from the remote shipment view
func NewSplit(shipmentID, planID string, remote RemoteShipment) *Split {
	now := time.Now().UTC()
	s := &Split{
		RemoteShipmentID: remote.ID,
		ShipmentID:       shipmentID,
		PlanID:           planID,
		Status:           SplitStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	s.Refresh(remote)
	return s
}

// Refresh overwrites the destination snapshot with the latest remote view
func (s *Split) Refresh(remote RemoteShipment) {
	if remote.ConfirmationID != "" {
		s.ConfirmationID = remote.ConfirmationID
	}
	s.DestinationFacility = remote.FacilityCode
	s.DestinationAddress = remote.Address
	s.Items = remote.Items
}

// IsPending reports whether transport still has to be arranged
func (s *Split) IsPending() bool {
	return s.Status == "" || s.Status == SplitStatusPending
}

// ChooseTransport stores the transport option and confirmed delivery window
func (s *Split) ChooseTransport(option TransportOption, window DeliveryWindowOption) {
	start, end := window.StartDate, window.EndDate
	s.TransportOptionID = option.ID
	s.Carrier = option.Carrier.Name
	s.DeliveryWindowID = window.ID
	s.DeliveryWindowStart = &start
	s.DeliveryWindowEnd = &end
	s.LastError = ""
}

// ConfirmTransport marks a split whose transport choice has been confirmed
func (s *Split) ConfirmTransport() bool {
	if !s.IsPending() || s.TransportOptionID == "" {
		return false
	}
	s.Status = SplitStatusTransportConfirmed
	return true
}

// CanRequestLabels reports whether labels may be requested for the split
func (s *Split) CanRequestLabels() bool {
	return s.Status == SplitStatusTransportConfirmed || s.Status == SplitStatusLabelsReady
}

// LabelsReady stores the label document and marks the split ready
func (s *Split) LabelsReady(url string) error {
	if !s.CanRequestLabels() {
		return ErrLabelsNotAvailable
	}
	s.LabelURL = url
	s.Status = SplitStatusLabelsReady
	s.LastError = ""
	s.DomainEvents = append(s.DomainEvents, &LabelsReadyEvent{
		ShipmentID:       s.ShipmentID,
		RemoteShipmentID: s.RemoteShipmentID,
		LabelURL:         url,
		ReadyAt:          time.Now().UTC(),
	})
	return nil
}

// RecordFailure keeps the last per-split error for visibility
func (s *Split) RecordFailure(message string) {
	s.LastError = message
}

// GetDomainEvents returns all domain events
func (s *Split) GetDomainEvents() []DomainEvent {
	return s.DomainEvents
}

// ClearDomainEvents clears all domain events
func (s *Split) ClearDomainEvents() {
	s.DomainEvents = nil
}
