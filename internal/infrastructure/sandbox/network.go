// Package sandbox is an in-memory fulfillment network. It follows the remote
// operation model closely enough to run the whole submission workflow locally
// and in tests: generate and confirm calls return operations that stay
// pending for a configurable number of polls, confirming an option twice
// fails the operation with an "already confirmed" problem and faults can be
// injected per call.
package sandbox

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wms-platform/inbound-service/internal/domain"
)

// Call names used for counters and fault injection
const (
	CallCreateInboundPlan             = "createInboundPlan"
	CallGetOperation                  = "getInboundOperationStatus"
	CallGeneratePackingOptions        = "generatePackingOptions"
	CallListPackingOptions            = "listPackingOptions"
	CallConfirmPackingOption          = "confirmPackingOption"
	CallListPackingGroupItems         = "listPackingGroupItems"
	CallSetPackingInformation         = "setPackingInformation"
	CallGeneratePlacementOptions      = "generatePlacementOptions"
	CallListPlacementOptions          = "listPlacementOptions"
	CallConfirmPlacementOption        = "confirmPlacementOption"
	CallGetShipment                   = "getShipment"
	CallGenerateTransportationOptions = "generateTransportationOptions"
	CallListTransportationOptions     = "listTransportationOptions"
	CallConfirmTransportationOptions  = "confirmTransportationOptions"
	CallGenerateDeliveryWindowOptions = "generateDeliveryWindowOptions"
	CallListDeliveryWindowOptions     = "listDeliveryWindowOptions"
	CallConfirmDeliveryWindowOption   = "confirmDeliveryWindowOptions"
	CallGetLabels                     = "getLabels"
)

// Config shapes the simulated network
type Config struct {
	// PendingPolls is how many status checks an operation answers pending
	PendingPolls int `yaml:"pendingPolls"`
	// Destinations is the number of splits the cheapest placement option produces
	Destinations int `yaml:"destinations"`
	// LabelBaseURL prefixes generated label document URLs
	LabelBaseURL string `yaml:"labelBaseUrl"`
}

// DefaultConfig returns a single-destination network that answers on the
// first poll
func DefaultConfig() Config {
	return Config{
		PendingPolls: 0,
		Destinations: 1,
		LabelBaseURL: "https://labels.sandbox.local",
	}
}

type fault struct {
	problems []domain.Problem
	stall    bool
}

type operation struct {
	op        domain.Operation
	remaining int
	stalled   bool
}

type plan struct {
	id        string
	request   domain.CreatePlanRequest
	packing   []domain.PackingOption
	groups    map[string][]domain.ItemQuantity
	boxes     []domain.PackingGroupBoxes
	placement []domain.PlacementOption
	shipments map[string]*domain.RemoteShipment
	transport map[string][]domain.TransportOption
	windows   map[string][]domain.DeliveryWindowOption
}

// Network is a concurrency-safe in-memory domain.FulfillmentNetwork
type Network struct {
	mu  sync.Mutex
	cfg Config
	now func() time.Time

	seq        int
	plans      map[string]*plan
	operations map[string]*operation
	calls      map[string]int

	faults      map[string][]fault
	noTransport map[string]bool
	noWindows   map[string]bool
	failLabels  map[string]bool
}

var _ domain.FulfillmentNetwork = (*Network)(nil)

// NewNetwork creates a new simulated network
func NewNetwork(cfg Config) *Network {
	if cfg.Destinations < 1 {
		cfg.Destinations = 1
	}
	if cfg.LabelBaseURL == "" {
		cfg.LabelBaseURL = DefaultConfig().LabelBaseURL
	}
	return &Network{
		cfg:         cfg,
		now:         func() time.Time { return time.Now().UTC() },
		plans:       make(map[string]*plan),
		operations:  make(map[string]*operation),
		calls:       make(map[string]int),
		faults:      make(map[string][]fault),
		noTransport: make(map[string]bool),
		noWindows:   make(map[string]bool),
		failLabels:  make(map[string]bool),
	}
}

// SetClock replaces the time source used for delivery windows
func (n *Network) SetClock(now func() time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.now = now
}

// FailNext makes the next operation started by call end in a failed state
// with the given problems. Nothing is changed remotely.
func (n *Network) FailNext(call string, problems ...domain.Problem) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(problems) == 0 {
		problems = []domain.Problem{{Code: "InvalidInput", Message: "simulated failure", Severity: "ERROR"}}
	}
	n.faults[call] = append(n.faults[call], fault{problems: problems})
}

// StallNext makes the next operation started by call stay pending forever.
// The change itself is applied.
func (n *Network) StallNext(call string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.faults[call] = append(n.faults[call], fault{stall: true})
}

// SettleStalled lets every stalled operation finish on its next poll. With
// problems given they finish failed.
func (n *Network) SettleStalled(problems ...domain.Problem) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, op := range n.operations {
		if !op.stalled {
			continue
		}
		op.stalled = false
		if len(problems) > 0 {
			op.op.Problems = problems
		}
	}
}

// NoTransport makes transport generation for the remote shipment produce nothing
func (n *Network) NoTransport(remoteShipmentID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.noTransport[remoteShipmentID] = true
}

// NoDeliveryWindows makes window generation for the remote shipment produce nothing
func (n *Network) NoDeliveryWindows(remoteShipmentID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.noWindows[remoteShipmentID] = true
}

// FailLabels makes label retrieval for the remote shipment fail
func (n *Network) FailLabels(remoteShipmentID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failLabels[remoteShipmentID] = true
}

// Calls returns how often call was made
func (n *Network) Calls(call string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[call]
}

// TotalCalls returns the number of calls made of any kind
func (n *Network) TotalCalls() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	total := 0
	for _, c := range n.calls {
		total += c
	}
	return total
}

// start counts the call and pops the next injected fault for it
func (n *Network) start(call string) fault {
	n.calls[call]++
	queue := n.faults[call]
	if len(queue) == 0 {
		return fault{}
	}
	n.faults[call] = queue[1:]
	return queue[0]
}

func (n *Network) nextID(prefix string) string {
	n.seq++
	return fmt.Sprintf("%s-%d", prefix, n.seq)
}

func (n *Network) newOperation(f fault, problems ...domain.Problem) string {
	op := &operation{
		op:        domain.Operation{ID: n.nextID("op"), Status: domain.OperationPending},
		remaining: n.cfg.PendingPolls,
		stalled:   f.stall,
	}
	switch {
	case len(f.problems) > 0:
		op.op.Problems = f.problems
	case len(problems) > 0:
		op.op.Problems = problems
	}
	n.operations[op.op.ID] = op
	return op.op.ID
}

func alreadyConfirmed(kind, id string) domain.Problem {
	return domain.Problem{
		Code:     "FBA_INB_0001",
		Message:  fmt.Sprintf("%s %s has already been confirmed and cannot be processed", kind, id),
		Severity: "ERROR",
	}
}

func notFound(operation, what, id string) error {
	return &domain.RemoteCallError{
		Operation:  operation,
		StatusCode: http.StatusNotFound,
		Problems:   []domain.Problem{{Code: "NotFound", Message: fmt.Sprintf("%s %s not found", what, id)}},
	}
}

func (n *Network) plan(call, planID string) (*plan, error) {
	p, ok := n.plans[planID]
	if !ok {
		return nil, notFound(call, "inbound plan", planID)
	}
	return p, nil
}

// CreateInboundPlan stores a plan for the requested items
func (n *Network) CreateInboundPlan(_ context.Context, req domain.CreatePlanRequest) (string, string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	f := n.start(CallCreateInboundPlan)
	planID := n.nextID("wf")
	if len(f.problems) == 0 {
		n.plans[planID] = &plan{
			id:        planID,
			request:   req,
			groups:    make(map[string][]domain.ItemQuantity),
			shipments: make(map[string]*domain.RemoteShipment),
			transport: make(map[string][]domain.TransportOption),
			windows:   make(map[string][]domain.DeliveryWindowOption),
		}
	}
	return planID, n.newOperation(f), nil
}

// GetOperation reports the operation status, counting down pending polls
func (n *Network) GetOperation(_ context.Context, operationID string) (*domain.Operation, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.start(CallGetOperation)
	op, ok := n.operations[operationID]
	if !ok {
		return nil, notFound(CallGetOperation, "operation", operationID)
	}
	if op.op.Status == domain.OperationPending && !op.stalled {
		if op.remaining > 0 {
			op.remaining--
		} else if len(op.op.Problems) > 0 {
			op.op.Status = domain.OperationFailed
		} else {
			op.op.Status = domain.OperationSuccess
		}
	}
	result := op.op
	result.Problems = append([]domain.Problem(nil), op.op.Problems...)
	return &result, nil
}

// GeneratePackingOptions offers one option packing every item in one group
func (n *Network) GeneratePackingOptions(_ context.Context, planID string) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	f := n.start(CallGeneratePackingOptions)
	p, err := n.plan(CallGeneratePackingOptions, planID)
	if err != nil {
		return "", err
	}
	if len(f.problems) == 0 && len(p.packing) == 0 {
		groupID := n.nextID("pg")
		items := make([]domain.ItemQuantity, len(p.request.Items))
		for i, item := range p.request.Items {
			items[i] = domain.ItemQuantity{SKU: item.SKU, Quantity: item.Quantity}
		}
		p.groups[groupID] = items
		p.packing = append(p.packing, domain.PackingOption{
			ID:            n.nextID("po"),
			Status:        domain.OptionOffered,
			PackingGroups: []string{groupID},
		})
	}
	return n.newOperation(f), nil
}

// ListPackingOptions returns the generated packing options
func (n *Network) ListPackingOptions(_ context.Context, planID string) ([]domain.PackingOption, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.start(CallListPackingOptions)
	p, err := n.plan(CallListPackingOptions, planID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.PackingOption, len(p.packing))
	for i, o := range p.packing {
		o.PackingGroups = append([]string(nil), o.PackingGroups...)
		out[i] = o
	}
	return out, nil
}

// ConfirmPackingOption accepts one packing option per plan
func (n *Network) ConfirmPackingOption(_ context.Context, planID, packingOptionID string) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	f := n.start(CallConfirmPackingOption)
	p, err := n.plan(CallConfirmPackingOption, planID)
	if err != nil {
		return "", err
	}
	if len(f.problems) > 0 {
		return n.newOperation(f), nil
	}

	target := -1
	for i, o := range p.packing {
		if o.Status.IsAccepted() {
			return n.newOperation(f, alreadyConfirmed("packing option", o.ID)), nil
		}
		if o.ID == packingOptionID {
			target = i
		}
	}
	if target < 0 {
		return n.newOperation(f, domain.Problem{Code: "InvalidInput", Message: "unknown packing option " + packingOptionID}), nil
	}
	p.packing[target].Status = domain.OptionAccepted
	return n.newOperation(f), nil
}

// ListPackingGroupItems returns the items of one packing group
func (n *Network) ListPackingGroupItems(_ context.Context, planID, packingGroupID string) ([]domain.ItemQuantity, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.start(CallListPackingGroupItems)
	p, err := n.plan(CallListPackingGroupItems, planID)
	if err != nil {
		return nil, err
	}
	items, ok := p.groups[packingGroupID]
	if !ok {
		return nil, notFound(CallListPackingGroupItems, "packing group", packingGroupID)
	}
	return append([]domain.ItemQuantity(nil), items...), nil
}

// SetPackingInformation stores the box assignment. Every group of the
// accepted packing option must receive at least one box.
func (n *Network) SetPackingInformation(_ context.Context, planID string, groups []domain.PackingGroupBoxes) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	f := n.start(CallSetPackingInformation)
	p, err := n.plan(CallSetPackingInformation, planID)
	if err != nil {
		return "", err
	}
	if len(f.problems) > 0 {
		return n.newOperation(f), nil
	}
	for _, g := range groups {
		if _, ok := p.groups[g.PackingGroupID]; !ok {
			return n.newOperation(f, domain.Problem{Code: "InvalidInput", Message: "unknown packing group " + g.PackingGroupID}), nil
		}
	}
	p.boxes = groups
	return n.newOperation(f), nil
}

// GeneratePlacementOptions offers a cheap option spread over the configured
// number of destinations and a pricier single-destination one
func (n *Network) GeneratePlacementOptions(_ context.Context, planID string) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	f := n.start(CallGeneratePlacementOptions)
	p, err := n.plan(CallGeneratePlacementOptions, planID)
	if err != nil {
		return "", err
	}
	if len(f.problems) == 0 && len(p.placement) == 0 {
		p.placement = append(p.placement,
			n.placementOption(p, n.cfg.Destinations, "9.00"),
			n.placementOption(p, 1, "12.50"),
		)
	}
	return n.newOperation(f), nil
}

func (n *Network) placementOption(p *plan, destinations int, fee string) domain.PlacementOption {
	option := domain.PlacementOption{
		ID:     n.nextID("pl"),
		Status: domain.OptionOffered,
		Fees: []domain.Fee{{
			Type:  "PLACEMENT_SERVICES",
			Value: domain.Money{Amount: decimal.RequireFromString(fee), Currency: "USD"},
		}},
	}
	expires := n.now().Add(24 * time.Hour)
	option.Expiration = &expires

	for d := 0; d < destinations; d++ {
		shipment := &domain.RemoteShipment{
			ID:           n.nextID("sh"),
			FacilityCode: fmt.Sprintf("FC%d", d+1),
			Address: domain.Address{
				Name:                fmt.Sprintf("Fulfillment Center %d", d+1),
				AddressLine1:        fmt.Sprintf("%d Logistics Way", 100+d),
				City:                "Reno",
				StateOrProvinceCode: "NV",
				PostalCode:          "89501",
				CountryCode:         "US",
				Phone:               "+17755550100",
			},
			Status: "WORKING",
		}
		for _, item := range p.request.Items {
			qty := item.Quantity / destinations
			if d == 0 {
				qty += item.Quantity % destinations
			}
			if qty > 0 {
				shipment.Items = append(shipment.Items, domain.ItemQuantity{SKU: item.SKU, Quantity: qty})
			}
		}
		p.shipments[shipment.ID] = shipment
		option.ShipmentIDs = append(option.ShipmentIDs, shipment.ID)
	}
	return option
}

// ListPlacementOptions returns the generated placement options
func (n *Network) ListPlacementOptions(_ context.Context, planID string) ([]domain.PlacementOption, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.start(CallListPlacementOptions)
	p, err := n.plan(CallListPlacementOptions, planID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.PlacementOption, len(p.placement))
	for i, o := range p.placement {
		o.Fees = append([]domain.Fee(nil), o.Fees...)
		o.ShipmentIDs = append([]string(nil), o.ShipmentIDs...)
		out[i] = o
	}
	return out, nil
}

// ConfirmPlacementOption accepts one placement option per plan and expires
// the others
func (n *Network) ConfirmPlacementOption(_ context.Context, planID, placementOptionID string) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	f := n.start(CallConfirmPlacementOption)
	p, err := n.plan(CallConfirmPlacementOption, planID)
	if err != nil {
		return "", err
	}
	if len(f.problems) > 0 {
		return n.newOperation(f), nil
	}

	target := -1
	for i, o := range p.placement {
		if o.Status.IsAccepted() {
			return n.newOperation(f, alreadyConfirmed("placement option", o.ID)), nil
		}
		if o.ID == placementOptionID {
			target = i
		}
	}
	if target < 0 {
		return n.newOperation(f, domain.Problem{Code: "InvalidInput", Message: "unknown placement option " + placementOptionID}), nil
	}
	for i := range p.placement {
		if i == target {
			p.placement[i].Status = domain.OptionAccepted
		} else {
			p.placement[i].Status = domain.OptionExpired
		}
	}
	for _, id := range p.placement[target].ShipmentIDs {
		p.shipments[id].ConfirmationID = "FBA" + id
	}
	return n.newOperation(f), nil
}

// GetShipment returns the remote view of one split
func (n *Network) GetShipment(_ context.Context, planID, shipmentID string) (*domain.RemoteShipment, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.start(CallGetShipment)
	p, err := n.plan(CallGetShipment, planID)
	if err != nil {
		return nil, err
	}
	s, ok := p.shipments[shipmentID]
	if !ok {
		return nil, notFound(CallGetShipment, "shipment", shipmentID)
	}
	out := *s
	out.Items = append([]domain.ItemQuantity(nil), s.Items...)
	return &out, nil
}

func (p *plan) acceptedPlacement() (domain.PlacementOption, bool) {
	for _, o := range p.placement {
		if o.Status.IsAccepted() {
			return o, true
		}
	}
	return domain.PlacementOption{}, false
}

// GenerateTransportationOptions quotes a partnered small-parcel option and a
// cheaper own-carrier freight option for the shipment
func (n *Network) GenerateTransportationOptions(_ context.Context, planID, placementOptionID, shipmentID string, readyToShip time.Time) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	f := n.start(CallGenerateTransportationOptions)
	p, err := n.plan(CallGenerateTransportationOptions, planID)
	if err != nil {
		return "", err
	}
	if len(f.problems) > 0 {
		return n.newOperation(f), nil
	}
	if accepted, ok := p.acceptedPlacement(); !ok || accepted.ID != placementOptionID {
		return n.newOperation(f, domain.Problem{
			Code:    "InvalidInput",
			Message: fmt.Sprintf("placement option %s is not confirmed", placementOptionID),
		}), nil
	}
	if _, ok := p.shipments[shipmentID]; !ok {
		return n.newOperation(f, domain.Problem{Code: "InvalidInput", Message: "unknown shipment " + shipmentID}), nil
	}
	if readyToShip.Before(n.now()) {
		return n.newOperation(f, domain.Problem{Code: "InvalidInput", Message: "readyToShipWindow must be in the future"}), nil
	}

	if len(p.transport[shipmentID]) == 0 && !n.noTransport[shipmentID] {
		p.transport[shipmentID] = []domain.TransportOption{
			{
				ID:               n.nextID("to"),
				ShipmentID:       shipmentID,
				Carrier:          domain.Carrier{Name: "United Parcel Service", AlphaCode: "UPSN"},
				ShippingMode:     domain.ShippingModeSmallParcel,
				ShippingSolution: domain.ShippingSolutionPartnered,
				Quote:            &domain.Money{Amount: decimal.RequireFromString("14.00"), Currency: "USD"},
				Status:           domain.OptionOffered,
			},
			{
				ID:               n.nextID("to"),
				ShipmentID:       shipmentID,
				Carrier:          domain.Carrier{Name: "Regional Freight", AlphaCode: "RGFT"},
				ShippingMode:     domain.ShippingModeLessThanTruck,
				ShippingSolution: domain.ShippingSolutionOwn,
				Quote:            &domain.Money{Amount: decimal.RequireFromString("11.00"), Currency: "USD"},
				Status:           domain.OptionOffered,
			},
		}
	}
	return n.newOperation(f), nil
}

// ListTransportationOptions returns the quotes for one shipment
func (n *Network) ListTransportationOptions(_ context.Context, planID, shipmentID string) ([]domain.TransportOption, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.start(CallListTransportationOptions)
	p, err := n.plan(CallListTransportationOptions, planID)
	if err != nil {
		return nil, err
	}
	return append([]domain.TransportOption(nil), p.transport[shipmentID]...), nil
}

// ConfirmTransportationOptions accepts the selected option of every shipment
// in the batch. A shipment that already has an accepted option fails the
// whole batch.
func (n *Network) ConfirmTransportationOptions(_ context.Context, planID string, selections []domain.TransportSelection) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	f := n.start(CallConfirmTransportationOptions)
	p, err := n.plan(CallConfirmTransportationOptions, planID)
	if err != nil {
		return "", err
	}
	if len(f.problems) > 0 {
		return n.newOperation(f), nil
	}

	targets := make(map[string]int, len(selections))
	for _, sel := range selections {
		found := false
		for i, o := range p.transport[sel.ShipmentID] {
			if o.Status.IsAccepted() {
				return n.newOperation(f, alreadyConfirmed("transportation option", o.ID)), nil
			}
			if o.ID == sel.TransportOptionID {
				targets[sel.ShipmentID] = i
				found = true
			}
		}
		if !found {
			return n.newOperation(f, domain.Problem{
				Code:    "InvalidInput",
				Message: fmt.Sprintf("transportation option %s not offered for shipment %s", sel.TransportOptionID, sel.ShipmentID),
			}), nil
		}
	}
	for shipmentID, i := range targets {
		p.transport[shipmentID][i].Status = domain.OptionConfirmed
	}
	return n.newOperation(f), nil
}

// GenerateDeliveryWindowOptions offers three arrival windows for the shipment
func (n *Network) GenerateDeliveryWindowOptions(_ context.Context, planID, shipmentID string) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	f := n.start(CallGenerateDeliveryWindowOptions)
	p, err := n.plan(CallGenerateDeliveryWindowOptions, planID)
	if err != nil {
		return "", err
	}
	if len(f.problems) > 0 {
		return n.newOperation(f), nil
	}
	if _, ok := p.shipments[shipmentID]; !ok {
		return n.newOperation(f, domain.Problem{Code: "InvalidInput", Message: "unknown shipment " + shipmentID}), nil
	}

	if len(p.windows[shipmentID]) == 0 && !n.noWindows[shipmentID] {
		day := n.now().Truncate(24 * time.Hour)
		for _, offset := range []int{9, 5, 12} {
			start := day.AddDate(0, 0, offset)
			p.windows[shipmentID] = append(p.windows[shipmentID], domain.DeliveryWindowOption{
				ID:           n.nextID("dw"),
				ShipmentID:   shipmentID,
				StartDate:    start,
				EndDate:      start.AddDate(0, 0, 7),
				Availability: "AVAILABLE",
				Status:       domain.OptionOffered,
			})
		}
	}
	return n.newOperation(f), nil
}

// ListDeliveryWindowOptions returns the windows for one shipment, ordered by id
func (n *Network) ListDeliveryWindowOptions(_ context.Context, planID, shipmentID string) ([]domain.DeliveryWindowOption, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.start(CallListDeliveryWindowOptions)
	p, err := n.plan(CallListDeliveryWindowOptions, planID)
	if err != nil {
		return nil, err
	}
	out := append([]domain.DeliveryWindowOption(nil), p.windows[shipmentID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ConfirmDeliveryWindowOption accepts one window per shipment
func (n *Network) ConfirmDeliveryWindowOption(_ context.Context, planID, shipmentID, deliveryWindowOptionID string) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	f := n.start(CallConfirmDeliveryWindowOption)
	p, err := n.plan(CallConfirmDeliveryWindowOption, planID)
	if err != nil {
		return "", err
	}
	if len(f.problems) > 0 {
		return n.newOperation(f), nil
	}

	target := -1
	for i, w := range p.windows[shipmentID] {
		if w.Status.IsAccepted() {
			return n.newOperation(f, alreadyConfirmed("delivery window option", w.ID)), nil
		}
		if w.ID == deliveryWindowOptionID {
			target = i
		}
	}
	if target < 0 {
		return n.newOperation(f, domain.Problem{Code: "InvalidInput", Message: "unknown delivery window option " + deliveryWindowOptionID}), nil
	}
	p.windows[shipmentID][target].Status = domain.OptionConfirmed
	return n.newOperation(f), nil
}

// GetLabels returns a label document URL once transport is confirmed
func (n *Network) GetLabels(_ context.Context, req domain.LabelRequest) (*domain.Label, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.start(CallGetLabels)
	p, err := n.plan(CallGetLabels, req.PlanID)
	if err != nil {
		return nil, err
	}
	confirmed := false
	for _, o := range p.transport[req.RemoteShipmentID] {
		confirmed = confirmed || o.Status.IsAccepted()
	}
	if n.failLabels[req.RemoteShipmentID] || !confirmed {
		return nil, &domain.RemoteCallError{
			Operation:  CallGetLabels,
			StatusCode: http.StatusBadRequest,
			Problems: []domain.Problem{{
				Code:    "InvalidInput",
				Message: fmt.Sprintf("labels are not available for shipment %s", req.RemoteShipmentID),
			}},
		}
	}
	return &domain.Label{
		RemoteShipmentID: req.RemoteShipmentID,
		URL:              fmt.Sprintf("%s/%s/%s.pdf?pageType=%s&labelType=%s", n.cfg.LabelBaseURL, req.PlanID, req.RemoteShipmentID, req.PageType, req.LabelType),
	}, nil
}
