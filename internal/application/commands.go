package application

import "github.com/wms-platform/inbound-service/internal/domain"

// RunPhase names what one orchestrator invocation should do
type RunPhase string

const (
	RunAll                         RunPhase = "all"
	RunCreatePlan                  RunPhase = "create_plan"
	RunSetPacking                  RunPhase = "set_packing"
	RunConfirmPlacement            RunPhase = "confirm_placement"
	RunConfirmTransport            RunPhase = "confirm_transport"
	RunGetPlacementOptions         RunPhase = "get_placement_options"
	RunSelectPlacement             RunPhase = "select_placement"
	RunConfirmTransportInteractive RunPhase = "confirm_transport_interactive"
)

// RunPhases lists every accepted RunPhase
var RunPhases = []RunPhase{
	RunAll,
	RunCreatePlan,
	RunSetPacking,
	RunConfirmPlacement,
	RunConfirmTransport,
	RunGetPlacementOptions,
	RunSelectPlacement,
	RunConfirmTransportInteractive,
}

// IsValid reports whether p is a known RunPhase
func (p RunPhase) IsValid() bool {
	for _, known := range RunPhases {
		if p == known {
			return true
		}
	}
	return false
}

// RunCommand drives the orchestrator for one shipment. The choice fields are
// only read by the interactive phases; the maps are keyed by remote shipment id.
type RunCommand struct {
	ShipmentID            string
	Phase                 RunPhase
	PlacementOptionID     string
	TransportChoices      map[string]string
	DeliveryWindowChoices map[string]string
}

// CreateShipmentCommand stores a new draft shipment
type CreateShipmentCommand struct {
	ShipmentID      string
	Name            string
	SourceWarehouse domain.Warehouse
	DestinationHint string
	Items           []domain.LineItem
	Boxes           []domain.Box
}

// GetShipmentQuery represents the query to get a shipment by ID
type GetShipmentQuery struct {
	ShipmentID string
}

// RequestLabelsCommand asks for labels of one split, or of every split when
// RemoteShipmentID is empty
type RequestLabelsCommand struct {
	ShipmentID       string
	RemoteShipmentID string
	PageType         string
	LabelType        string
}

// Label request defaults
const (
	DefaultPageType  = "PackageLabel_Letter_2"
	DefaultLabelType = "UNIQUE"
)

// StartSubmissionCommand starts the durable submission workflow
type StartSubmissionCommand struct {
	ShipmentID string
}
