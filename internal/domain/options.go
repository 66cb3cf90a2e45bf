package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OperationStatus is the state of an asynchronous remote operation
type OperationStatus string

const (
	OperationPending OperationStatus = "pending"
	OperationSuccess OperationStatus = "success"
	OperationFailed  OperationStatus = "failed"
)

// Operation is a remote asynchronous operation. It is never persisted beyond
// the last operation id on the shipment.
type Operation struct {
	ID       string
	Status   OperationStatus
	Problems []Problem
}

// Terminal reports whether the operation has stopped changing
func (o *Operation) Terminal() bool {
	return o.Status == OperationSuccess || o.Status == OperationFailed
}

// Problem is one remote-reported problem
type Problem struct {
	Code     string
	Message  string
	Severity string
	Details  string
}

var (
	skuPattern      = regexp.MustCompile(`(?i)\bm?skus?\b\s*(?:[:=#]\s*)?['"\[(]?([A-Za-z0-9][A-Za-z0-9._-]*)`)
	acceptedPattern = regexp.MustCompile(`(?i)accepted values?(?:\s+(?:are|is))?\s*[:=]?\s*\[?([A-Za-z0-9_,\s|]+)\]?`)
	lowercaseWord   = regexp.MustCompile(`^[a-z]+$`)
)

// SKU extracts the offending SKU from the problem text, if one is named.
// Plain lowercase words after "sku" are prose, not identifiers.
func (p Problem) SKU() string {
	for _, text := range []string{p.Message, p.Details} {
		for _, m := range skuPattern.FindAllStringSubmatch(text, -1) {
			sku := strings.TrimRight(m[1], "._-")
			if sku != "" && !lowercaseWord.MatchString(sku) {
				return sku
			}
		}
	}
	return ""
}

// SKUAmong names the offending SKU by looking for one of the known SKUs in the
// problem text. The longest match wins; without one it falls back to SKU.
func (p Problem) SKUAmong(known []string) string {
	best := ""
	for _, sku := range known {
		if len(sku) <= len(best) {
			continue
		}
		if containsToken(p.Message, sku) || containsToken(p.Details, sku) {
			best = sku
		}
	}
	if best != "" {
		return best
	}
	return p.SKU()
}

// containsToken reports whether token occurs in text not glued to other
// identifier characters.
func containsToken(text, token string) bool {
	for offset := 0; ; {
		i := strings.Index(text[offset:], token)
		if i < 0 {
			return false
		}
		start, end := offset+i, offset+i+len(token)
		if (start == 0 || !isSKURune(text[start-1])) && (end == len(text) || !isSKURune(text[end])) {
			return true
		}
		offset = start + 1
	}
}

func isSKURune(c byte) bool {
	return c == '-' || c == '_' || c >= '0' && c <= '9' || c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z'
}

// AcceptedValues extracts the accepted-value hint from the problem text.
func (p Problem) AcceptedValues() []string {
	for _, text := range []string{p.Message, p.Details} {
		m := acceptedPattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		var values []string
		for _, v := range strings.FieldsFunc(m[1], func(r rune) bool { return r == ',' || r == '|' || r == ' ' }) {
			v = strings.TrimSpace(v)
			if v == "" || strings.EqualFold(v, "or") || strings.EqualFold(v, "and") {
				continue
			}
			values = append(values, v)
		}
		if len(values) > 0 {
			return values
		}
	}
	return nil
}

// OptionStatus is the remote lifecycle state of a candidate option
type OptionStatus string

const (
	OptionOffered   OptionStatus = "offered"
	OptionAccepted  OptionStatus = "accepted"
	OptionConfirmed OptionStatus = "confirmed"
	OptionExpired   OptionStatus = "expired"
)

// IsAccepted reports whether the remote side already holds this option as chosen
func (s OptionStatus) IsAccepted() bool {
	return s == OptionAccepted || s == OptionConfirmed
}

// Money is an amount in one currency
type Money struct {
	Amount   decimal.Decimal `bson:"amount" json:"amount"`
	Currency string          `bson:"currency" json:"currency"`
}

// Fee is one line of a placement fee breakdown
type Fee struct {
	Type  string
	Value Money
}

// PackingOption is a remote grouping of plan items into packing groups
type PackingOption struct {
	ID            string
	Status        OptionStatus
	PackingGroups []string
}

// ItemQuantity is a SKU and a unit count
type ItemQuantity struct {
	SKU      string `bson:"sku" json:"sku"`
	Quantity int    `bson:"quantity" json:"quantity"`
}

// PackingGroupBoxes assigns physical boxes to one packing group
type PackingGroupBoxes struct {
	PackingGroupID string
	Boxes          []Box
}

// PlacementOption is a remote-proposed set of destinations and fees
type PlacementOption struct {
	ID          string
	Status      OptionStatus
	Fees        []Fee
	ShipmentIDs []string
	Expiration  *time.Time
}

// TotalFee is the sum of all fee lines
func (o PlacementOption) TotalFee() decimal.Decimal {
	total := decimal.Zero
	for _, f := range o.Fees {
		total = total.Add(f.Value.Amount)
	}
	return total
}

// Shipping modes and solutions reported on transport options
const (
	ShippingModeSmallParcel   = "SPD"
	ShippingModeLessThanTruck = "LTL"
	ShippingSolutionPartnered = "PARTNERED_CARRIER"
	ShippingSolutionOwn       = "USE_YOUR_OWN_CARRIER"
)

// Carrier identifies a transport carrier
type Carrier struct {
	Name      string
	AlphaCode string
}

// TransportOption is a carrier quote for moving one split
type TransportOption struct {
	ID               string
	ShipmentID       string
	Carrier          Carrier
	ShippingMode     string
	ShippingSolution string
	Quote            *Money
	Status           OptionStatus
}

// IsPartneredSmallParcel reports whether the option is the partnered small-parcel mode
func (o TransportOption) IsPartneredSmallParcel() bool {
	return o.ShippingMode == ShippingModeSmallParcel && o.ShippingSolution == ShippingSolutionPartnered
}

// CheaperThan orders transport options by quoted amount. A quoted option is
// always cheaper than one without a quote.
func (o TransportOption) CheaperThan(other TransportOption) bool {
	switch {
	case o.Quote == nil:
		return false
	case other.Quote == nil:
		return true
	}
	return o.Quote.Amount.LessThan(other.Quote.Amount)
}

// DeliveryWindowOption is an arrival window offered for one split
type DeliveryWindowOption struct {
	ID           string
	ShipmentID   string
	StartDate    time.Time
	EndDate      time.Time
	Availability string
	Status       OptionStatus
}

// TransportSelection pairs a split with its chosen transport option
type TransportSelection struct {
	ShipmentID        string
	TransportOptionID string
}

// RemoteShipment is the remote view of one split after placement
type RemoteShipment struct {
	ID             string
	ConfirmationID string
	FacilityCode   string
	Address        Address
	Items          []ItemQuantity
	Status         string
}

// PlanItem is one line submitted when creating an inbound plan
type PlanItem struct {
	SKU        string
	Quantity   int
	PrepOwner  string
	LabelOwner string
}

// CreatePlanRequest is the payload of the plan phase
type CreatePlanRequest struct {
	Name            string
	SourceAddress   Address
	DestinationHint string
	Items           []PlanItem
}

// LabelRequest asks for the labels of one split
type LabelRequest struct {
	PlanID           string
	RemoteShipmentID string
	PageType         string
	LabelType        string
}

// Label is a retrieved label document
type Label struct {
	RemoteShipmentID string
	URL              string
}
