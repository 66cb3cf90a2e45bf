package domain

// CheapestPlacement returns the placement option with the lowest total fee.
// Ties go to the option listed first.
func CheapestPlacement(options []PlacementOption) (PlacementOption, error) {
	if len(options) == 0 {
		return PlacementOption{}, ErrNoOption
	}
	best := options[0]
	bestFee := best.TotalFee()
	for _, o := range options[1:] {
		if fee := o.TotalFee(); fee.LessThan(bestFee) {
			best, bestFee = o, fee
		}
	}
	return best, nil
}

// CheapestPartneredTransport picks the cheapest partnered small-parcel option
// for the shipment, falling back to the cheapest option of any kind.
func CheapestPartneredTransport(shipmentID string, options []TransportOption) (TransportOption, error) {
	var candidates, partnered []TransportOption
	for _, o := range options {
		if o.ShipmentID != shipmentID {
			continue
		}
		candidates = append(candidates, o)
		if o.IsPartneredSmallParcel() {
			partnered = append(partnered, o)
		}
	}
	if len(partnered) > 0 {
		return cheapestTransport(partnered), nil
	}
	if len(candidates) > 0 {
		return cheapestTransport(candidates), nil
	}
	return TransportOption{}, ErrNoOption
}

func cheapestTransport(options []TransportOption) TransportOption {
	best := options[0]
	for _, o := range options[1:] {
		if o.CheaperThan(best) {
			best = o
		}
	}
	return best
}

// EarliestDeliveryWindow returns the shipment's window with the earliest start
func EarliestDeliveryWindow(shipmentID string, windows []DeliveryWindowOption) (DeliveryWindowOption, error) {
	var (
		best  DeliveryWindowOption
		found bool
	)
	for _, w := range windows {
		if w.ShipmentID != shipmentID {
			continue
		}
		if !found || w.StartDate.Before(best.StartDate) {
			best, found = w, true
		}
	}
	if !found {
		return DeliveryWindowOption{}, ErrNoOption
	}
	return best, nil
}
