package handlers

import (
	"github.com/wms-platform/inbound-service/internal/application"
	"github.com/wms-platform/inbound-service/internal/domain"
)

// CreateShipmentRequest is the body of POST /api/v1/shipments. Drafts may be
// incomplete; completeness is checked when the plan is created.
type CreateShipmentRequest struct {
	ShipmentID      string            `json:"shipmentId" binding:"required,shipment_ref"`
	Name            string            `json:"name"`
	SourceWarehouse WarehouseRequest  `json:"sourceWarehouse"`
	DestinationHint string            `json:"destinationHint"`
	Items           []LineItemRequest `json:"items" binding:"dive"`
	Boxes           []BoxRequest      `json:"boxes" binding:"dive"`
}

// WarehouseRequest is the source warehouse the boxes ship from
type WarehouseRequest struct {
	WarehouseID string         `json:"warehouseId"`
	Name        string         `json:"name"`
	Address     AddressRequest `json:"address"`
}

// AddressRequest is a postal address. Country codes are ISO 3166-1 alpha-2.
type AddressRequest struct {
	Name                string `json:"name"`
	CompanyName         string `json:"companyName"`
	AddressLine1        string `json:"addressLine1"`
	AddressLine2        string `json:"addressLine2"`
	City                string `json:"city"`
	StateOrProvinceCode string `json:"stateOrProvinceCode"`
	PostalCode          string `json:"postalCode"`
	CountryCode         string `json:"countryCode" binding:"omitempty,country_code"`
	Phone               string `json:"phone"`
	Email               string `json:"email" binding:"omitempty,email"`
}

// LineItemRequest is one SKU and the units of it in the shipment
type LineItemRequest struct {
	SKU        string `json:"sku" binding:"required,sku"`
	Quantity   int    `json:"quantity" binding:"gt=0"`
	PrepOwner  string `json:"prepOwner" binding:"omitempty,oneof=NETWORK SELLER NONE"`
	LabelOwner string `json:"labelOwner" binding:"omitempty,oneof=NETWORK SELLER NONE"`
}

// BoxRequest is one physical box with its measurements and contents.
// PackingGroupID is reassigned from the contents when packing is set.
type BoxRequest struct {
	BoxID      string `json:"boxId" binding:"required"`
	Dimensions struct {
		Length float64 `json:"length"`
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
		Unit   string  `json:"unit"`
	} `json:"dimensions"`
	Weight struct {
		Value float64 `json:"value"`
		Unit  string  `json:"unit"`
	} `json:"weight"`
	Items          []BoxItemRequest `json:"items" binding:"dive"`
	PackingGroupID string           `json:"packingGroupId"`
}

// BoxItemRequest is a SKU count packed in one box
type BoxItemRequest struct {
	SKU      string `json:"sku" binding:"required"`
	Quantity int    `json:"quantity" binding:"gt=0"`
}

func (r CreateShipmentRequest) toCommand() application.CreateShipmentCommand {
	a := r.SourceWarehouse.Address
	cmd := application.CreateShipmentCommand{
		ShipmentID: r.ShipmentID,
		Name:       r.Name,
		SourceWarehouse: domain.Warehouse{
			WarehouseID: r.SourceWarehouse.WarehouseID,
			Name:        r.SourceWarehouse.Name,
			Address: domain.Address{
				Name:                a.Name,
				CompanyName:         a.CompanyName,
				AddressLine1:        a.AddressLine1,
				AddressLine2:        a.AddressLine2,
				City:                a.City,
				StateOrProvinceCode: a.StateOrProvinceCode,
				PostalCode:          a.PostalCode,
				CountryCode:         a.CountryCode,
				Phone:               a.Phone,
				Email:               a.Email,
			},
		},
		DestinationHint: r.DestinationHint,
		Items:           make([]domain.LineItem, len(r.Items)),
		Boxes:           make([]domain.Box, len(r.Boxes)),
	}
	for i, it := range r.Items {
		cmd.Items[i] = domain.LineItem{SKU: it.SKU, Quantity: it.Quantity, PrepOwner: it.PrepOwner, LabelOwner: it.LabelOwner}
	}
	for i, b := range r.Boxes {
		box := domain.Box{
			BoxID:          b.BoxID,
			Dimensions:     domain.Dimensions{Length: b.Dimensions.Length, Width: b.Dimensions.Width, Height: b.Dimensions.Height, Unit: b.Dimensions.Unit},
			Weight:         domain.Weight{Value: b.Weight.Value, Unit: b.Weight.Unit},
			PackingGroupID: b.PackingGroupID,
			Items:          make([]domain.BoxItem, len(b.Items)),
		}
		for j, it := range b.Items {
			box.Items[j] = domain.BoxItem{SKU: it.SKU, Quantity: it.Quantity}
		}
		cmd.Boxes[i] = box
	}
	return cmd
}

// RunRequest is the body of POST /api/v1/shipments/:id/run
type RunRequest struct {
	Phase                 string            `json:"phase" binding:"required"`
	PlacementOptionID     string            `json:"placementOptionId"`
	TransportChoices      map[string]string `json:"transportChoices"`
	DeliveryWindowChoices map[string]string `json:"deliveryWindowChoices"`
}

// LabelsRequest is the optional body of POST /api/v1/shipments/:id/labels
type LabelsRequest struct {
	RemoteShipmentID string `json:"remoteShipmentId"`
	PageType         string `json:"pageType"`
	LabelType        string `json:"labelType"`
}
