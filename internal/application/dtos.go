package application

import (
	"time"

	"github.com/shopspring/decimal"
)

// ShipmentDTO represents a shipment in responses
type ShipmentDTO struct {
	ShipmentID      string        `json:"shipmentId"`
	Name            string        `json:"name"`
	SourceWarehouse WarehouseDTO  `json:"sourceWarehouse"`
	DestinationHint string        `json:"destinationHint,omitempty"`
	Items           []LineItemDTO `json:"items"`
	Boxes           []BoxDTO      `json:"boxes"`
	Status          string        `json:"status"`
	Workflow        WorkflowDTO   `json:"workflow"`
	Version         int64         `json:"version"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
	SubmittedAt     *time.Time    `json:"submittedAt,omitempty"`
}

// WorkflowDTO is the persisted progress of a shipment
type WorkflowDTO struct {
	Phase             string     `json:"phase"`
	PlanID            string     `json:"planId,omitempty"`
	PendingPlanID     string     `json:"pendingPlanId,omitempty"`
	PackingOptionID   string     `json:"packingOptionId,omitempty"`
	PlacementOptionID string     `json:"placementOptionId,omitempty"`
	LastOperationID   string     `json:"lastOperationId,omitempty"`
	LastError         string     `json:"lastError,omitempty"`
	LastErrorAt       *time.Time `json:"lastErrorAt,omitempty"`
}

// WarehouseDTO represents the source warehouse
type WarehouseDTO struct {
	WarehouseID string     `json:"warehouseId"`
	Name        string     `json:"name"`
	Address     AddressDTO `json:"address"`
}

// AddressDTO represents a postal address
type AddressDTO struct {
	Name                string `json:"name,omitempty"`
	CompanyName         string `json:"companyName,omitempty"`
	AddressLine1        string `json:"addressLine1"`
	AddressLine2        string `json:"addressLine2,omitempty"`
	City                string `json:"city"`
	StateOrProvinceCode string `json:"stateOrProvinceCode"`
	PostalCode          string `json:"postalCode"`
	CountryCode         string `json:"countryCode,omitempty"`
	Phone               string `json:"phone,omitempty"`
	Email               string `json:"email,omitempty"`
}

// LineItemDTO represents one required SKU
type LineItemDTO struct {
	SKU        string `json:"sku"`
	Quantity   int    `json:"quantity"`
	PrepOwner  string `json:"prepOwner,omitempty"`
	LabelOwner string `json:"labelOwner,omitempty"`
}

// BoxDTO represents one carton
type BoxDTO struct {
	BoxID          string            `json:"boxId"`
	Dimensions     DimensionsDTO     `json:"dimensions"`
	Weight         WeightDTO         `json:"weight"`
	Items          []ItemQuantityDTO `json:"items"`
	PackingGroupID string            `json:"packingGroupId,omitempty"`
}

// DimensionsDTO represents box dimensions
type DimensionsDTO struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Unit   string  `json:"unit"`
}

// WeightDTO represents box weight
type WeightDTO struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// ItemQuantityDTO is a SKU and a quantity
type ItemQuantityDTO struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

// SplitDTO represents one destination-bound split
type SplitDTO struct {
	RemoteShipmentID    string            `json:"remoteShipmentId"`
	ConfirmationID      string            `json:"confirmationId,omitempty"`
	DestinationFacility string            `json:"destinationFacility"`
	DestinationAddress  AddressDTO        `json:"destinationAddress"`
	Items               []ItemQuantityDTO `json:"items"`
	TransportOptionID   string            `json:"transportOptionId,omitempty"`
	DeliveryWindowID    string            `json:"deliveryWindowId,omitempty"`
	DeliveryWindowStart *time.Time        `json:"deliveryWindowStart,omitempty"`
	DeliveryWindowEnd   *time.Time        `json:"deliveryWindowEnd,omitempty"`
	Carrier             string            `json:"carrier,omitempty"`
	LabelURL            string            `json:"labelUrl,omitempty"`
	Status              string            `json:"status"`
	LastError           string            `json:"lastError,omitempty"`
	UpdatedAt           time.Time         `json:"updatedAt"`
}

// RunResultDTO is the answer to one orchestrator invocation
type RunResultDTO struct {
	ShipmentID          string               `json:"shipmentId"`
	RunPhase            string               `json:"runPhase"`
	Phase               string               `json:"phase"`
	Status              string               `json:"status"`
	PlanID              string               `json:"planId,omitempty"`
	PackingOptionID     string               `json:"packingOptionId,omitempty"`
	PlacementOptionID   string               `json:"placementOptionId,omitempty"`
	Executed            []string             `json:"executed,omitempty"`
	Skipped             []string             `json:"skipped,omitempty"`
	SkipTo              string               `json:"skipTo,omitempty"`
	AwaitingChoice      bool                 `json:"awaitingChoice"`
	PlacementOptions    []PlacementOptionDTO `json:"placementOptions,omitempty"`
	TransportCandidates []SplitCandidatesDTO `json:"transportCandidates,omitempty"`
	ConfirmedSplits     []string             `json:"confirmedSplits,omitempty"`
	PendingSplits       []string             `json:"pendingSplits,omitempty"`
	Splits              []SplitDTO           `json:"splits,omitempty"`
}

// PlacementOptionDTO is one placement candidate
type PlacementOptionDTO struct {
	PlacementOptionID string          `json:"placementOptionId"`
	Status            string          `json:"status"`
	TotalFee          decimal.Decimal `json:"totalFee"`
	Currency          string          `json:"currency,omitempty"`
	Fees              []FeeDTO        `json:"fees,omitempty"`
	ShipmentIDs       []string        `json:"shipmentIds"`
	Expiration        *time.Time      `json:"expiration,omitempty"`
}

// FeeDTO is one fee line
type FeeDTO struct {
	Type     string          `json:"type"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// SplitCandidatesDTO holds the transport and delivery window candidates of one split
type SplitCandidatesDTO struct {
	RemoteShipmentID    string               `json:"remoteShipmentId"`
	DestinationFacility string               `json:"destinationFacility,omitempty"`
	TransportOptions    []TransportOptionDTO `json:"transportOptions"`
	DeliveryWindows     []DeliveryWindowDTO  `json:"deliveryWindows,omitempty"`
}

// TransportOptionDTO is one carrier quote
type TransportOptionDTO struct {
	TransportOptionID string           `json:"transportOptionId"`
	Carrier           string           `json:"carrier"`
	CarrierCode       string           `json:"carrierCode,omitempty"`
	ShippingMode      string           `json:"shippingMode"`
	ShippingSolution  string           `json:"shippingSolution"`
	Partnered         bool             `json:"partnered"`
	Price             *decimal.Decimal `json:"price,omitempty"`
	Currency          string           `json:"currency,omitempty"`
	Status            string           `json:"status,omitempty"`
}

// DeliveryWindowDTO is one arrival window
type DeliveryWindowDTO struct {
	DeliveryWindowOptionID string    `json:"deliveryWindowOptionId"`
	StartDate              time.Time `json:"startDate"`
	EndDate                time.Time `json:"endDate"`
	Availability           string    `json:"availability,omitempty"`
}

// LabelsResultDTO is the per-split outcome of a label request
type LabelsResultDTO struct {
	ShipmentID string           `json:"shipmentId"`
	Results    []LabelResultDTO `json:"results"`
}

// LabelResultDTO is the label outcome for one split
type LabelResultDTO struct {
	RemoteShipmentID string `json:"remoteShipmentId"`
	Status           string `json:"status"`
	LabelURL         string `json:"labelUrl,omitempty"`
	Error            string `json:"error,omitempty"`
}

// Label result statuses
const (
	LabelResultReady   = "labels_ready"
	LabelResultSkipped = "skipped"
	LabelResultFailed  = "failed"
)

// SubmissionDTO identifies a started submission workflow
type SubmissionDTO struct {
	ShipmentID string `json:"shipmentId"`
	WorkflowID string `json:"workflowId"`
	RunID      string `json:"runId"`
}
