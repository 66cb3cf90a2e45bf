package fulfillment

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/wms-platform/inbound-service/internal/domain"
)

func planPath(planID string, parts ...string) string {
	p := apiPrefix + "/inboundPlans/" + url.PathEscape(planID)
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

// postOperation sends a call whose answer is an operation id to poll
func (c *Client) postOperation(ctx context.Context, operation, path string, body any) (string, error) {
	var resp operationResponse
	err := c.do(ctx, call{
		operation: operation,
		method:    http.MethodPost,
		path:      path,
		body:      body,
		result:    &resp,
	})
	return resp.OperationID, err
}

// CreateInboundPlan creates the remote plan
func (c *Client) CreateInboundPlan(ctx context.Context, req domain.CreatePlanRequest) (string, string, error) {
	body := createPlanBody{
		Name:                    req.Name,
		SourceAddress:           toAPIAddress(req.SourceAddress),
		DestinationMarketplaces: []string{c.config.Marketplace},
	}
	for _, it := range req.Items {
		body.Items = append(body.Items, apiPlanItem{
			MSKU:       it.SKU,
			Quantity:   it.Quantity,
			PrepOwner:  it.PrepOwner,
			LabelOwner: it.LabelOwner,
		})
	}

	var resp createPlanResponse
	err := c.do(ctx, call{
		operation: "createInboundPlan",
		method:    http.MethodPost,
		path:      apiPrefix + "/inboundPlans",
		body:      body,
		result:    &resp,
	})
	if err != nil {
		return "", "", err
	}
	return resp.InboundPlanID, resp.OperationID, nil
}

// GetOperation reads the state of an asynchronous operation
func (c *Client) GetOperation(ctx context.Context, operationID string) (*domain.Operation, error) {
	var resp operationStatusResponse
	err := c.do(ctx, call{
		operation: "getInboundOperationStatus",
		method:    http.MethodGet,
		path:      apiPrefix + "/operations/" + url.PathEscape(operationID),
		result:    &resp,
	})
	if err != nil {
		return nil, err
	}
	return resp.toDomain(operationID), nil
}

func (c *Client) GeneratePackingOptions(ctx context.Context, planID string) (string, error) {
	return c.postOperation(ctx, "generatePackingOptions", planPath(planID, "packingOptions"), nil)
}

func (c *Client) ListPackingOptions(ctx context.Context, planID string) ([]domain.PackingOption, error) {
	return listPages(ctx, c, func(ctx context.Context, query url.Values) ([]domain.PackingOption, string, error) {
		var page packingOptionsPage
		err := c.do(ctx, call{
			operation: "listPackingOptions",
			method:    http.MethodGet,
			path:      planPath(planID, "packingOptions"),
			query:     query,
			result:    &page,
		})
		if err != nil {
			return nil, "", err
		}
		out := make([]domain.PackingOption, len(page.PackingOptions))
		for i, o := range page.PackingOptions {
			out[i] = domain.PackingOption{
				ID:            o.PackingOptionID,
				Status:        optionStatus(o.Status),
				PackingGroups: o.PackingGroups,
			}
		}
		return out, page.Pagination.NextToken, nil
	}, func(o domain.PackingOption) string { return o.ID })
}

func (c *Client) ConfirmPackingOption(ctx context.Context, planID, packingOptionID string) (string, error) {
	return c.postOperation(ctx, "confirmPackingOption",
		planPath(planID, "packingOptions", url.PathEscape(packingOptionID), "confirmation"), nil)
}

func (c *Client) ListPackingGroupItems(ctx context.Context, planID, packingGroupID string) ([]domain.ItemQuantity, error) {
	return c.listItems(ctx, "listPackingGroupItems", planPath(planID, "packingGroups", url.PathEscape(packingGroupID), "items"))
}

// listItems pages through an item list. Items are keyed by SKU, so a SKU that
// shows up on two pages is only counted once.
func (c *Client) listItems(ctx context.Context, operation, path string) ([]domain.ItemQuantity, error) {
	return listPages(ctx, c, func(ctx context.Context, query url.Values) ([]domain.ItemQuantity, string, error) {
		var page itemsPage
		err := c.do(ctx, call{operation: operation, method: http.MethodGet, path: path, query: query, result: &page})
		if err != nil {
			return nil, "", err
		}
		return page.toDomain(), page.Pagination.NextToken, nil
	}, func(it domain.ItemQuantity) string { return it.SKU })
}

func (c *Client) SetPackingInformation(ctx context.Context, planID string, groups []domain.PackingGroupBoxes) (string, error) {
	return c.postOperation(ctx, "setPackingInformation", planPath(planID, "packingInformation"), toPackingInformation(groups))
}

func (c *Client) GeneratePlacementOptions(ctx context.Context, planID string) (string, error) {
	return c.postOperation(ctx, "generatePlacementOptions", planPath(planID, "placementOptions"), struct{}{})
}

func (c *Client) ListPlacementOptions(ctx context.Context, planID string) ([]domain.PlacementOption, error) {
	return listPages(ctx, c, func(ctx context.Context, query url.Values) ([]domain.PlacementOption, string, error) {
		var page placementOptionsPage
		err := c.do(ctx, call{
			operation: "listPlacementOptions",
			method:    http.MethodGet,
			path:      planPath(planID, "placementOptions"),
			query:     query,
			result:    &page,
		})
		if err != nil {
			return nil, "", err
		}
		return page.toDomain(), page.Pagination.NextToken, nil
	}, func(o domain.PlacementOption) string { return o.ID })
}

func (c *Client) ConfirmPlacementOption(ctx context.Context, planID, placementOptionID string) (string, error) {
	return c.postOperation(ctx, "confirmPlacementOption",
		planPath(planID, "placementOptions", url.PathEscape(placementOptionID), "confirmation"), nil)
}

// GetShipment reads one split with its item list
func (c *Client) GetShipment(ctx context.Context, planID, shipmentID string) (*domain.RemoteShipment, error) {
	var resp shipmentResponse
	err := c.do(ctx, call{
		operation: "getShipment",
		method:    http.MethodGet,
		path:      planPath(planID, "shipments", url.PathEscape(shipmentID)),
		result:    &resp,
	})
	if err != nil {
		return nil, err
	}

	items, err := c.listItems(ctx, "listShipmentItems", planPath(planID, "shipments", url.PathEscape(shipmentID), "items"))
	if err != nil {
		return nil, err
	}

	return &domain.RemoteShipment{
		ID:             resp.ShipmentID,
		ConfirmationID: resp.ShipmentConfirmationID,
		FacilityCode:   resp.Destination.WarehouseID,
		Address:        resp.Destination.Address.toDomain(),
		Items:          items,
		Status:         resp.Status,
	}, nil
}

func (c *Client) GenerateTransportationOptions(ctx context.Context, planID, placementOptionID, shipmentID string, readyToShip time.Time) (string, error) {
	cfg := shipmentTransportConfig{ShipmentID: shipmentID}
	cfg.ReadyToShipWindow.Start = readyToShip.UTC()
	body := generateTransportBody{
		PlacementOptionID:                   placementOptionID,
		ShipmentTransportationConfiguration: []shipmentTransportConfig{cfg},
	}
	return c.postOperation(ctx, "generateTransportationOptions", planPath(planID, "transportationOptions"), body)
}

func (c *Client) ListTransportationOptions(ctx context.Context, planID, shipmentID string) ([]domain.TransportOption, error) {
	return listPages(ctx, c, func(ctx context.Context, query url.Values) ([]domain.TransportOption, string, error) {
		query.Set("shipmentId", shipmentID)
		var page transportOptionsPage
		err := c.do(ctx, call{
			operation: "listTransportationOptions",
			method:    http.MethodGet,
			path:      planPath(planID, "transportationOptions"),
			query:     query,
			result:    &page,
		})
		if err != nil {
			return nil, "", err
		}
		return page.toDomain(), page.Pagination.NextToken, nil
	}, func(o domain.TransportOption) string { return o.ID })
}

func (c *Client) ConfirmTransportationOptions(ctx context.Context, planID string, selections []domain.TransportSelection) (string, error) {
	body := confirmTransportBody{TransportationSelections: make([]transportSelection, len(selections))}
	for i, s := range selections {
		body.TransportationSelections[i] = transportSelection{ShipmentID: s.ShipmentID, TransportationOptionID: s.TransportOptionID}
	}
	return c.postOperation(ctx, "confirmTransportationOptions", planPath(planID, "transportationOptions", "confirmation"), body)
}

func (c *Client) GenerateDeliveryWindowOptions(ctx context.Context, planID, shipmentID string) (string, error) {
	return c.postOperation(ctx, "generateDeliveryWindowOptions",
		planPath(planID, "shipments", url.PathEscape(shipmentID), "deliveryWindowOptions"), nil)
}

func (c *Client) ListDeliveryWindowOptions(ctx context.Context, planID, shipmentID string) ([]domain.DeliveryWindowOption, error) {
	return listPages(ctx, c, func(ctx context.Context, query url.Values) ([]domain.DeliveryWindowOption, string, error) {
		var page deliveryWindowsPage
		err := c.do(ctx, call{
			operation: "listDeliveryWindowOptions",
			method:    http.MethodGet,
			path:      planPath(planID, "shipments", url.PathEscape(shipmentID), "deliveryWindowOptions"),
			query:     query,
			result:    &page,
		})
		if err != nil {
			return nil, "", err
		}
		out := make([]domain.DeliveryWindowOption, len(page.DeliveryWindowOptions))
		for i, w := range page.DeliveryWindowOptions {
			out[i] = domain.DeliveryWindowOption{
				ID:           w.DeliveryWindowOptionID,
				ShipmentID:   shipmentID,
				StartDate:    w.StartDate,
				EndDate:      w.EndDate,
				Availability: w.AvailabilityType,
				Status:       optionStatus(w.Status),
			}
		}
		return out, page.Pagination.NextToken, nil
	}, func(w domain.DeliveryWindowOption) string { return w.ID })
}

func (c *Client) ConfirmDeliveryWindowOption(ctx context.Context, planID, shipmentID, deliveryWindowOptionID string) (string, error) {
	return c.postOperation(ctx, "confirmDeliveryWindowOptions",
		planPath(planID, "shipments", url.PathEscape(shipmentID), "deliveryWindowOptions", url.PathEscape(deliveryWindowOptionID), "confirmation"), nil)
}

// GetLabels fetches the label document of one split
func (c *Client) GetLabels(ctx context.Context, req domain.LabelRequest) (*domain.Label, error) {
	query := url.Values{}
	query.Set("PageType", req.PageType)
	query.Set("LabelType", req.LabelType)

	var resp labelsResponse
	err := c.do(ctx, call{
		operation: "getLabels",
		method:    http.MethodGet,
		path:      labelsPrefix + "/shipments/" + url.PathEscape(req.RemoteShipmentID) + "/labels",
		query:     query,
		result:    &resp,
	})
	if err != nil {
		return nil, err
	}
	return &domain.Label{RemoteShipmentID: req.RemoteShipmentID, URL: resp.Payload.DownloadURL}, nil
}
