// Package memory holds in-process repositories with the same version
// semantics as the MongoDB ones. They back the sandbox mode and the
// orchestrator tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wms-platform/inbound-service/internal/domain"
)

// ShipmentStore is an in-memory domain.ShipmentRepository
type ShipmentStore struct {
	mu        sync.RWMutex
	shipments map[string]*domain.Shipment
	events    []domain.DomainEvent
}

var _ domain.ShipmentRepository = (*ShipmentStore)(nil)

// NewShipmentStore creates an empty ShipmentStore
func NewShipmentStore() *ShipmentStore {
	return &ShipmentStore{shipments: make(map[string]*domain.Shipment)}
}

// Create inserts a new shipment at version 1
func (s *ShipmentStore) Create(_ context.Context, shipment *domain.Shipment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.shipments[shipment.ShipmentID]; ok {
		return domain.ErrShipmentExists
	}
	shipment.Version = 1
	s.commit(shipment)
	return nil
}

// Save writes the shipment if nobody else has since
func (s *ShipmentStore) Save(_ context.Context, shipment *domain.Shipment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.shipments[shipment.ShipmentID]
	if !ok || stored.Version != shipment.Version {
		return domain.ErrConcurrentModification
	}
	shipment.Version++
	shipment.UpdatedAt = time.Now().UTC()
	s.commit(shipment)
	return nil
}

func (s *ShipmentStore) commit(shipment *domain.Shipment) {
	s.events = append(s.events, shipment.GetDomainEvents()...)
	shipment.ClearDomainEvents()
	s.shipments[shipment.ShipmentID] = cloneShipment(shipment)
}

// FindByID returns a copy of the shipment or nil when absent
func (s *ShipmentStore) FindByID(_ context.Context, shipmentID string) (*domain.Shipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.shipments[shipmentID]
	if !ok {
		return nil, nil
	}
	return cloneShipment(stored), nil
}

// Events returns the domain events of every committed write, oldest first
func (s *ShipmentStore) Events() []domain.DomainEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.DomainEvent(nil), s.events...)
}

// SplitStore is an in-memory domain.SplitRepository
type SplitStore struct {
	mu     sync.RWMutex
	splits map[string]*domain.Split
	events []domain.DomainEvent
}

var _ domain.SplitRepository = (*SplitStore)(nil)

// NewSplitStore creates an empty SplitStore
func NewSplitStore() *SplitStore {
	return &SplitStore{splits: make(map[string]*domain.Split)}
}

// Save inserts a split at version 0 and conditionally updates any other
func (s *SplitStore) Save(_ context.Context, split *domain.Split) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.splits[split.RemoteShipmentID]
	switch {
	case split.Version == 0 && ok:
		return domain.ErrConcurrentModification
	case split.Version != 0 && (!ok || stored.Version != split.Version):
		return domain.ErrConcurrentModification
	}

	split.Version++
	split.UpdatedAt = time.Now().UTC()
	s.events = append(s.events, split.GetDomainEvents()...)
	split.ClearDomainEvents()
	s.splits[split.RemoteShipmentID] = cloneSplit(split)
	return nil
}

// FindByRemoteID returns a copy of the split or nil when absent
func (s *SplitStore) FindByRemoteID(_ context.Context, remoteShipmentID string) (*domain.Split, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.splits[remoteShipmentID]
	if !ok {
		return nil, nil
	}
	return cloneSplit(stored), nil
}

// FindByShipmentID returns copies of the shipment's splits ordered by creation
func (s *SplitStore) FindByShipmentID(_ context.Context, shipmentID string) ([]*domain.Split, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Split
	for _, split := range s.splits {
		if split.ShipmentID == shipmentID {
			out = append(out, cloneSplit(split))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].RemoteShipmentID < out[j].RemoteShipmentID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Events returns the domain events of every committed write, oldest first
func (s *SplitStore) Events() []domain.DomainEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.DomainEvent(nil), s.events...)
}

func cloneShipment(in *domain.Shipment) *domain.Shipment {
	out := *in
	out.DomainEvents = nil
	out.Items = append([]domain.LineItem(nil), in.Items...)
	out.Boxes = make([]domain.Box, len(in.Boxes))
	for i, b := range in.Boxes {
		b.Items = append([]domain.BoxItem(nil), b.Items...)
		out.Boxes[i] = b
	}
	if in.Lease != nil {
		lease := *in.Lease
		out.Lease = &lease
	}
	out.Workflow.LastErrorAt = cloneTime(in.Workflow.LastErrorAt)
	out.SubmittedAt = cloneTime(in.SubmittedAt)
	return &out
}

func cloneSplit(in *domain.Split) *domain.Split {
	out := *in
	out.DomainEvents = nil
	out.Items = append([]domain.ItemQuantity(nil), in.Items...)
	out.DeliveryWindowStart = cloneTime(in.DeliveryWindowStart)
	out.DeliveryWindowEnd = cloneTime(in.DeliveryWindowEnd)
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
