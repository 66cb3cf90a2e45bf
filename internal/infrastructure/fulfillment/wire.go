package fulfillment

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wms-platform/inbound-service/internal/domain"
)

// Request and response bodies of the inbound API

type errorList struct {
	Errors []apiProblem `json:"errors"`
}

type apiProblem struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Severity string `json:"severity,omitempty"`
	Details  string `json:"details,omitempty"`
}

func (p apiProblem) toDomain() domain.Problem {
	return domain.Problem{Code: p.Code, Message: p.Message, Severity: p.Severity, Details: p.Details}
}

type pagination struct {
	NextToken string `json:"nextToken,omitempty"`
}

type operationResponse struct {
	OperationID string `json:"operationId"`
}

type createPlanBody struct {
	Name                    string        `json:"name,omitempty"`
	SourceAddress           apiAddress    `json:"sourceAddress"`
	DestinationMarketplaces []string      `json:"destinationMarketplaces"`
	Items                   []apiPlanItem `json:"items"`
}

type createPlanResponse struct {
	InboundPlanID string `json:"inboundPlanId"`
	OperationID   string `json:"operationId"`
}

type apiPlanItem struct {
	MSKU       string `json:"msku"`
	Quantity   int    `json:"quantity"`
	PrepOwner  string `json:"prepOwner,omitempty"`
	LabelOwner string `json:"labelOwner,omitempty"`
}

type apiAddress struct {
	Name                string `json:"name"`
	CompanyName         string `json:"companyName,omitempty"`
	AddressLine1        string `json:"addressLine1"`
	AddressLine2        string `json:"addressLine2,omitempty"`
	City                string `json:"city"`
	StateOrProvinceCode string `json:"stateOrProvinceCode"`
	PostalCode          string `json:"postalCode"`
	CountryCode         string `json:"countryCode"`
	PhoneNumber         string `json:"phoneNumber,omitempty"`
	Email               string `json:"email,omitempty"`
}

func toAPIAddress(a domain.Address) apiAddress {
	return apiAddress{
		Name:                a.Name,
		CompanyName:         a.CompanyName,
		AddressLine1:        a.AddressLine1,
		AddressLine2:        a.AddressLine2,
		City:                a.City,
		StateOrProvinceCode: a.StateOrProvinceCode,
		PostalCode:          a.PostalCode,
		CountryCode:         a.CountryCode,
		PhoneNumber:         a.Phone,
		Email:               a.Email,
	}
}

func (a apiAddress) toDomain() domain.Address {
	return domain.Address{
		Name:                a.Name,
		CompanyName:         a.CompanyName,
		AddressLine1:        a.AddressLine1,
		AddressLine2:        a.AddressLine2,
		City:                a.City,
		StateOrProvinceCode: a.StateOrProvinceCode,
		PostalCode:          a.PostalCode,
		CountryCode:         a.CountryCode,
		Phone:               a.PhoneNumber,
		Email:               a.Email,
	}
}

type operationStatusResponse struct {
	OperationID       string       `json:"operationId"`
	OperationStatus   string       `json:"operationStatus"`
	OperationProblems []apiProblem `json:"operationProblems"`
}

func (r operationStatusResponse) toDomain(id string) *domain.Operation {
	op := &domain.Operation{ID: id, Status: domain.OperationPending}
	switch strings.ToUpper(r.OperationStatus) {
	case "SUCCESS":
		op.Status = domain.OperationSuccess
	case "FAILED":
		op.Status = domain.OperationFailed
	}
	for _, p := range r.OperationProblems {
		op.Problems = append(op.Problems, p.toDomain())
	}
	return op
}

func optionStatus(s string) domain.OptionStatus {
	switch strings.ToUpper(s) {
	case "ACCEPTED":
		return domain.OptionAccepted
	case "CONFIRMED":
		return domain.OptionConfirmed
	case "EXPIRED":
		return domain.OptionExpired
	default:
		return domain.OptionOffered
	}
}

type apiMoney struct {
	Amount decimal.Decimal `json:"amount"`
	Code   string          `json:"code"`
}

func (m apiMoney) toDomain() domain.Money {
	return domain.Money{Amount: m.Amount, Currency: m.Code}
}

type packingOptionsPage struct {
	PackingOptions []struct {
		PackingOptionID string   `json:"packingOptionId"`
		Status          string   `json:"status"`
		PackingGroups   []string `json:"packingGroups"`
	} `json:"packingOptions"`
	Pagination pagination `json:"pagination"`
}

type itemsPage struct {
	Items []struct {
		MSKU     string `json:"msku"`
		Quantity int    `json:"quantity"`
	} `json:"items"`
	Pagination pagination `json:"pagination"`
}

func (p itemsPage) toDomain() []domain.ItemQuantity {
	out := make([]domain.ItemQuantity, len(p.Items))
	for i, it := range p.Items {
		out[i] = domain.ItemQuantity{SKU: it.MSKU, Quantity: it.Quantity}
	}
	return out
}

type packingInformationBody struct {
	PackageGroupings []packageGrouping `json:"packageGroupings"`
}

type packageGrouping struct {
	PackingGroupID string   `json:"packingGroupId"`
	Boxes          []apiBox `json:"boxes"`
}

type apiBox struct {
	ContentInformationSource string        `json:"contentInformationSource"`
	Dimensions               apiDimensions `json:"dimensions"`
	Weight                   apiWeight     `json:"weight"`
	Quantity                 int           `json:"quantity"`
	Items                    []apiBoxItem  `json:"items"`
}

type apiDimensions struct {
	Length            float64 `json:"length"`
	Width             float64 `json:"width"`
	Height            float64 `json:"height"`
	UnitOfMeasurement string  `json:"unitOfMeasurement"`
}

type apiWeight struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

type apiBoxItem struct {
	MSKU       string `json:"msku"`
	Quantity   int    `json:"quantity"`
	PrepOwner  string `json:"prepOwner"`
	LabelOwner string `json:"labelOwner"`
}

func toPackingInformation(groups []domain.PackingGroupBoxes) packingInformationBody {
	body := packingInformationBody{PackageGroupings: make([]packageGrouping, len(groups))}
	for i, g := range groups {
		grouping := packageGrouping{PackingGroupID: g.PackingGroupID}
		for _, b := range g.Boxes {
			box := apiBox{
				ContentInformationSource: "BOX_CONTENT_PROVIDED",
				Dimensions: apiDimensions{
					Length:            b.Dimensions.Length,
					Width:             b.Dimensions.Width,
					Height:            b.Dimensions.Height,
					UnitOfMeasurement: dimensionUnit(b.Dimensions.Unit),
				},
				Weight:   apiWeight{Value: b.Weight.Value, Unit: weightUnit(b.Weight.Unit)},
				Quantity: 1,
			}
			for _, it := range b.Items {
				box.Items = append(box.Items, apiBoxItem{
					MSKU:       it.SKU,
					Quantity:   it.Quantity,
					PrepOwner:  domain.OwnerNone,
					LabelOwner: domain.OwnerSeller,
				})
			}
			grouping.Boxes = append(grouping.Boxes, box)
		}
		body.PackageGroupings[i] = grouping
	}
	return body
}

func dimensionUnit(u string) string {
	if strings.EqualFold(u, "CM") {
		return "CM"
	}
	return "IN"
}

func weightUnit(u string) string {
	if strings.EqualFold(u, "KG") {
		return "KG"
	}
	return "LB"
}

type placementOptionsPage struct {
	PlacementOptions []struct {
		PlacementOptionID string     `json:"placementOptionId"`
		Status            string     `json:"status"`
		ShipmentIDs       []string   `json:"shipmentIds"`
		Expiration        *time.Time `json:"expiration,omitempty"`
		Fees              []struct {
			Type  string   `json:"type"`
			Value apiMoney `json:"value"`
		} `json:"fees"`
	} `json:"placementOptions"`
	Pagination pagination `json:"pagination"`
}

func (p placementOptionsPage) toDomain() []domain.PlacementOption {
	out := make([]domain.PlacementOption, len(p.PlacementOptions))
	for i, o := range p.PlacementOptions {
		option := domain.PlacementOption{
			ID:          o.PlacementOptionID,
			Status:      optionStatus(o.Status),
			ShipmentIDs: o.ShipmentIDs,
			Expiration:  o.Expiration,
		}
		for _, f := range o.Fees {
			option.Fees = append(option.Fees, domain.Fee{Type: f.Type, Value: f.Value.toDomain()})
		}
		out[i] = option
	}
	return out
}

type shipmentResponse struct {
	ShipmentID             string `json:"shipmentId"`
	ShipmentConfirmationID string `json:"shipmentConfirmationId,omitempty"`
	Status                 string `json:"status"`
	Destination            struct {
		WarehouseID string     `json:"warehouseId"`
		Address     apiAddress `json:"address"`
	} `json:"destination"`
}

type generateTransportBody struct {
	PlacementOptionID                   string                    `json:"placementOptionId"`
	ShipmentTransportationConfiguration []shipmentTransportConfig `json:"shipmentTransportationConfigurations"`
}

type shipmentTransportConfig struct {
	ShipmentID        string `json:"shipmentId"`
	ReadyToShipWindow struct {
		Start time.Time `json:"start"`
	} `json:"readyToShipWindow"`
}

type transportOptionsPage struct {
	TransportationOptions []struct {
		TransportationOptionID string `json:"transportationOptionId"`
		ShipmentID             string `json:"shipmentId"`
		ShippingMode           string `json:"shippingMode"`
		ShippingSolution       string `json:"shippingSolution"`
		Status                 string `json:"status,omitempty"`
		Carrier                struct {
			Name      string `json:"name"`
			AlphaCode string `json:"alphaCode"`
		} `json:"carrier"`
		Quote *struct {
			Cost apiMoney `json:"cost"`
		} `json:"quote,omitempty"`
	} `json:"transportationOptions"`
	Pagination pagination `json:"pagination"`
}

func (p transportOptionsPage) toDomain() []domain.TransportOption {
	out := make([]domain.TransportOption, len(p.TransportationOptions))
	for i, o := range p.TransportationOptions {
		option := domain.TransportOption{
			ID:               o.TransportationOptionID,
			ShipmentID:       o.ShipmentID,
			Carrier:          domain.Carrier{Name: o.Carrier.Name, AlphaCode: o.Carrier.AlphaCode},
			ShippingMode:     o.ShippingMode,
			ShippingSolution: o.ShippingSolution,
			Status:           optionStatus(o.Status),
		}
		if o.Quote != nil {
			quote := o.Quote.Cost.toDomain()
			option.Quote = &quote
		}
		out[i] = option
	}
	return out
}

type confirmTransportBody struct {
	TransportationSelections []transportSelection `json:"transportationSelections"`
}

type transportSelection struct {
	ShipmentID             string `json:"shipmentId"`
	TransportationOptionID string `json:"transportationOptionId"`
}

type deliveryWindowsPage struct {
	DeliveryWindowOptions []struct {
		DeliveryWindowOptionID string    `json:"deliveryWindowOptionId"`
		StartDate              time.Time `json:"startDate"`
		EndDate                time.Time `json:"endDate"`
		AvailabilityType       string    `json:"availabilityType"`
		Status                 string    `json:"status,omitempty"`
	} `json:"deliveryWindowOptions"`
	Pagination pagination `json:"pagination"`
}

type labelsResponse struct {
	Payload struct {
		DownloadURL string `json:"DownloadURL"`
	} `json:"payload"`
}
