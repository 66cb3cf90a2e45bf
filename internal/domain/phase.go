package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when a phase event would skip a phase.
var ErrInvalidTransition = errors.New("invalid phase transition")

// Phase is the persisted workflow progress marker of a shipment
type Phase string

const (
	PhaseNone               Phase = "none"
	PhasePlanCreated        Phase = "plan_created"
	PhasePackingSet         Phase = "packing_set"
	PhasePlacementConfirmed Phase = "placement_confirmed"
	PhaseTransportConfirmed Phase = "transport_confirmed"
)

var phaseOrder = []Phase{
	PhaseNone,
	PhasePlanCreated,
	PhasePackingSet,
	PhasePlacementConfirmed,
	PhaseTransportConfirmed,
}

// Rank returns the position of the phase in the workflow, or -1 if unknown.
// The zero value ranks as PhaseNone.
func (p Phase) Rank() int {
	if p == "" {
		return 0
	}
	for i, candidate := range phaseOrder {
		if candidate == p {
			return i
		}
	}
	return -1
}

// IsValid reports whether p is a known phase
func (p Phase) IsValid() bool {
	return p.Rank() >= 0
}

// AtLeast reports whether p has reached other
func (p Phase) AtLeast(other Phase) bool {
	return p.Rank() >= other.Rank()
}

// Normalize maps the zero value to PhaseNone
func (p Phase) Normalize() Phase {
	if p == "" {
		return PhaseNone
	}
	return p
}

// PhaseEvent is the successful completion of one phase
type PhaseEvent string

const (
	EventPlanCreated        PhaseEvent = "plan_created"
	EventPackingSet         PhaseEvent = "packing_set"
	EventPlacementConfirmed PhaseEvent = "placement_confirmed"
	EventTransportConfirmed PhaseEvent = "transport_confirmed"
)

// Target is the phase the event moves a shipment to
func (e PhaseEvent) Target() Phase {
	return Phase(e)
}

// NextPhase is the workflow transition function. An event for the next phase
// advances; an event for a phase already reached leaves the marker unchanged;
// anything else is rejected. The marker never moves backwards.
func NextPhase(current Phase, event PhaseEvent) (Phase, error) {
	current = current.Normalize()
	target := event.Target()

	cur, tgt := current.Rank(), target.Rank()
	if cur < 0 {
		return current, fmt.Errorf("%w: unknown phase %q", ErrInvalidTransition, current)
	}
	if tgt <= 0 {
		return current, fmt.Errorf("%w: unknown event %q", ErrInvalidTransition, event)
	}

	switch {
	case tgt <= cur:
		return current, nil
	case tgt == cur+1:
		return target, nil
	default:
		return current, fmt.Errorf("%w: %s -> %s skips %s", ErrInvalidTransition, current, target, phaseOrder[cur+1])
	}
}
