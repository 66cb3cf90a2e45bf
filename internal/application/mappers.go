package application

import "github.com/wms-platform/inbound-service/internal/domain"

// ToShipmentDTO converts a domain Shipment to ShipmentDTO
func ToShipmentDTO(shipment *domain.Shipment) *ShipmentDTO {
	if shipment == nil {
		return nil
	}

	dto := &ShipmentDTO{
		ShipmentID: shipment.ShipmentID,
		Name:       shipment.Name,
		SourceWarehouse: WarehouseDTO{
			WarehouseID: shipment.SourceWarehouse.WarehouseID,
			Name:        shipment.SourceWarehouse.Name,
			Address:     ToAddressDTO(shipment.SourceWarehouse.Address),
		},
		DestinationHint: shipment.DestinationHint,
		Items:           make([]LineItemDTO, len(shipment.Items)),
		Boxes:           make([]BoxDTO, len(shipment.Boxes)),
		Status:          string(shipment.Status),
		Workflow: WorkflowDTO{
			Phase:             string(shipment.Phase()),
			PlanID:            shipment.Workflow.PlanID,
			PendingPlanID:     shipment.Workflow.PendingPlanID,
			PackingOptionID:   shipment.Workflow.PackingOptionID,
			PlacementOptionID: shipment.Workflow.PlacementOptionID,
			LastOperationID:   shipment.Workflow.LastOperationID,
			LastError:         shipment.Workflow.LastError,
			LastErrorAt:       shipment.Workflow.LastErrorAt,
		},
		Version:     shipment.Version,
		CreatedAt:   shipment.CreatedAt,
		UpdatedAt:   shipment.UpdatedAt,
		SubmittedAt: shipment.SubmittedAt,
	}

	for i, item := range shipment.Items {
		dto.Items[i] = LineItemDTO{
			SKU:        item.SKU,
			Quantity:   item.Quantity,
			PrepOwner:  item.PrepOwner,
			LabelOwner: item.LabelOwner,
		}
	}
	for i, box := range shipment.Boxes {
		dto.Boxes[i] = ToBoxDTO(box)
	}

	return dto
}

// ToBoxDTO converts a domain Box to BoxDTO
func ToBoxDTO(box domain.Box) BoxDTO {
	items := make([]ItemQuantityDTO, len(box.Items))
	for i, item := range box.Items {
		items[i] = ItemQuantityDTO{SKU: item.SKU, Quantity: item.Quantity}
	}
	return BoxDTO{
		BoxID: box.BoxID,
		Dimensions: DimensionsDTO{
			Length: box.Dimensions.Length,
			Width:  box.Dimensions.Width,
			Height: box.Dimensions.Height,
			Unit:   box.Dimensions.Unit,
		},
		Weight:         WeightDTO{Value: box.Weight.Value, Unit: box.Weight.Unit},
		Items:          items,
		PackingGroupID: box.PackingGroupID,
	}
}

// ToAddressDTO converts a domain Address to AddressDTO
func ToAddressDTO(address domain.Address) AddressDTO {
	return AddressDTO{
		Name:                address.Name,
		CompanyName:         address.CompanyName,
		AddressLine1:        address.AddressLine1,
		AddressLine2:        address.AddressLine2,
		City:                address.City,
		StateOrProvinceCode: address.StateOrProvinceCode,
		PostalCode:          address.PostalCode,
		CountryCode:         address.CountryCode,
		Phone:               address.Phone,
		Email:               address.Email,
	}
}

// ToSplitDTO converts a domain Split to SplitDTO
func ToSplitDTO(split *domain.Split) SplitDTO {
	items := make([]ItemQuantityDTO, len(split.Items))
	for i, item := range split.Items {
		items[i] = ItemQuantityDTO{SKU: item.SKU, Quantity: item.Quantity}
	}
	return SplitDTO{
		RemoteShipmentID:    split.RemoteShipmentID,
		ConfirmationID:      split.ConfirmationID,
		DestinationFacility: split.DestinationFacility,
		DestinationAddress:  ToAddressDTO(split.DestinationAddress),
		Items:               items,
		TransportOptionID:   split.TransportOptionID,
		DeliveryWindowID:    split.DeliveryWindowID,
		DeliveryWindowStart: split.DeliveryWindowStart,
		DeliveryWindowEnd:   split.DeliveryWindowEnd,
		Carrier:             split.Carrier,
		LabelURL:            split.LabelURL,
		Status:              string(split.Status),
		LastError:           split.LastError,
		UpdatedAt:           split.UpdatedAt,
	}
}

// ToSplitDTOs converts a list of splits
func ToSplitDTOs(splits []*domain.Split) []SplitDTO {
	dtos := make([]SplitDTO, len(splits))
	for i, s := range splits {
		dtos[i] = ToSplitDTO(s)
	}
	return dtos
}

// ToPlacementOptionDTOs converts placement candidates
func ToPlacementOptionDTOs(options []domain.PlacementOption) []PlacementOptionDTO {
	dtos := make([]PlacementOptionDTO, len(options))
	for i, o := range options {
		dto := PlacementOptionDTO{
			PlacementOptionID: o.ID,
			Status:            string(o.Status),
			TotalFee:          o.TotalFee(),
			ShipmentIDs:       o.ShipmentIDs,
			Expiration:        o.Expiration,
		}
		for _, fee := range o.Fees {
			dto.Fees = append(dto.Fees, FeeDTO{Type: fee.Type, Amount: fee.Value.Amount, Currency: fee.Value.Currency})
			if dto.Currency == "" {
				dto.Currency = fee.Value.Currency
			}
		}
		dtos[i] = dto
	}
	return dtos
}

// ToTransportOptionDTO converts one transport candidate
func ToTransportOptionDTO(o domain.TransportOption) TransportOptionDTO {
	dto := TransportOptionDTO{
		TransportOptionID: o.ID,
		Carrier:           o.Carrier.Name,
		CarrierCode:       o.Carrier.AlphaCode,
		ShippingMode:      o.ShippingMode,
		ShippingSolution:  o.ShippingSolution,
		Partnered:         o.IsPartneredSmallParcel(),
		Status:            string(o.Status),
	}
	if o.Quote != nil {
		price := o.Quote.Amount
		dto.Price = &price
		dto.Currency = o.Quote.Currency
	}
	return dto
}

// ToDeliveryWindowDTO converts one delivery window candidate
func ToDeliveryWindowDTO(w domain.DeliveryWindowOption) DeliveryWindowDTO {
	return DeliveryWindowDTO{
		DeliveryWindowOptionID: w.ID,
		StartDate:              w.StartDate,
		EndDate:                w.EndDate,
		Availability:           w.Availability,
	}
}
