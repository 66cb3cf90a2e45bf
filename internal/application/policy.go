package application

import (
	"errors"
	"fmt"

	"github.com/wms-platform/inbound-service/internal/domain"
)

// ErrChoiceRequired is returned by an interactive policy when the caller has
// not supplied a choice yet. The executor answers with the candidates.
var ErrChoiceRequired = errors.New("choice required")

// InvalidChoiceError is a caller-supplied option id that is not on offer
type InvalidChoiceError struct {
	Kind       string
	ShipmentID string
	OptionID   string
}

func (e *InvalidChoiceError) Error() string {
	if e.ShipmentID != "" {
		return fmt.Sprintf("%s option %s is not offered for shipment %s", e.Kind, e.OptionID, e.ShipmentID)
	}
	return fmt.Sprintf("%s option %s is not offered", e.Kind, e.OptionID)
}

// OptionPolicy is the decision step of the placement and transport phases
type OptionPolicy interface {
	Placement(options []domain.PlacementOption) (domain.PlacementOption, error)
	Transport(shipmentID string, options []domain.TransportOption) (domain.TransportOption, error)
	DeliveryWindow(shipmentID string, windows []domain.DeliveryWindowOption) (domain.DeliveryWindowOption, error)
}

// AutomaticPolicy applies the built-in selectors
type AutomaticPolicy struct{}

// Placement picks the cheapest placement
func (AutomaticPolicy) Placement(options []domain.PlacementOption) (domain.PlacementOption, error) {
	return domain.CheapestPlacement(options)
}

// Transport picks the cheapest partnered carrier
func (AutomaticPolicy) Transport(shipmentID string, options []domain.TransportOption) (domain.TransportOption, error) {
	return domain.CheapestPartneredTransport(shipmentID, options)
}

// DeliveryWindow picks the earliest window
func (AutomaticPolicy) DeliveryWindow(shipmentID string, windows []domain.DeliveryWindowOption) (domain.DeliveryWindowOption, error) {
	return domain.EarliestDeliveryWindow(shipmentID, windows)
}

// InteractivePolicy uses the choices a person made from previously returned
// candidates. Missing placement or transport choices yield ErrChoiceRequired;
// a missing delivery window choice falls back to the earliest window.
type InteractivePolicy struct {
	PlacementOptionID     string
	TransportChoices      map[string]string
	DeliveryWindowChoices map[string]string
}

// Placement returns the chosen placement option
func (p InteractivePolicy) Placement(options []domain.PlacementOption) (domain.PlacementOption, error) {
	if p.PlacementOptionID == "" {
		return domain.PlacementOption{}, ErrChoiceRequired
	}
	for _, o := range options {
		if o.ID == p.PlacementOptionID {
			return o, nil
		}
	}
	return domain.PlacementOption{}, &InvalidChoiceError{Kind: "placement", OptionID: p.PlacementOptionID}
}

// Transport returns the chosen transport option for the shipment
func (p InteractivePolicy) Transport(shipmentID string, options []domain.TransportOption) (domain.TransportOption, error) {
	choice := p.TransportChoices[shipmentID]
	if choice == "" {
		return domain.TransportOption{}, ErrChoiceRequired
	}
	for _, o := range options {
		if o.ShipmentID == shipmentID && o.ID == choice {
			return o, nil
		}
	}
	return domain.TransportOption{}, &InvalidChoiceError{Kind: "transport", ShipmentID: shipmentID, OptionID: choice}
}

// DeliveryWindow returns the chosen window, or the earliest one when no choice was made
func (p InteractivePolicy) DeliveryWindow(shipmentID string, windows []domain.DeliveryWindowOption) (domain.DeliveryWindowOption, error) {
	choice := p.DeliveryWindowChoices[shipmentID]
	if choice == "" {
		return domain.EarliestDeliveryWindow(shipmentID, windows)
	}
	for _, w := range windows {
		if w.ShipmentID == shipmentID && w.ID == choice {
			return w, nil
		}
	}
	return domain.DeliveryWindowOption{}, &InvalidChoiceError{Kind: "delivery window", ShipmentID: shipmentID, OptionID: choice}
}
