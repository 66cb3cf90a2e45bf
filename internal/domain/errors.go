package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Errors
var (
	ErrShipmentExists         = errors.New("shipment already exists")
	ErrShipmentBusy           = errors.New("shipment is being processed by another run")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrNoOption               = errors.New("no option available")
	ErrAlreadyConfirmed       = errors.New("option already confirmed")
	ErrSplitNotFound          = errors.New("shipment split not found")
	ErrLabelsNotAvailable     = errors.New("labels are not available for this split")
)

// FieldProblem names one missing or invalid field
type FieldProblem struct {
	Field   string
	Message string
}

// PreconditionError is returned before any remote call when the shipment is
// not ready for a phase.
type PreconditionError struct {
	Phase  Phase
	Fields []FieldProblem
}

func (e *PreconditionError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + " " + f.Message
	}
	return fmt.Sprintf("%s preconditions not met: %s", e.Phase, strings.Join(parts, "; "))
}

// RemoteRejectionError is returned when a remote operation ends in a failed state
type RemoteRejectionError struct {
	Phase       Phase
	OperationID string
	Problems    []Problem

	// SKUs are the shipment's own SKUs, used to name the one a problem is about
	SKUs []string
}

func (e *RemoteRejectionError) Error() string {
	if len(e.Problems) == 0 {
		return fmt.Sprintf("operation %s failed during %s", e.OperationID, e.Phase)
	}
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		if p.Code != "" {
			msgs[i] = p.Code + ": " + p.Message
		} else {
			msgs[i] = p.Message
		}
	}
	return fmt.Sprintf("operation %s failed during %s: %s", e.OperationID, e.Phase, strings.Join(msgs, "; "))
}

// PollTimeoutError is returned when a remote operation is still pending at the
// deadline. The operation may still complete remotely.
type PollTimeoutError struct {
	OperationID string
	Waited      time.Duration
}

func (e *PollTimeoutError) Error() string {
	return fmt.Sprintf("operation %s still pending after %s", e.OperationID, e.Waited)
}

// NoTransportOptionsError is returned when no pending split produced a usable
// transport option.
type NoTransportOptionsError struct {
	PendingSplits []string
}

func (e *NoTransportOptionsError) Error() string {
	return fmt.Sprintf("no transport option available for splits %s; use confirm_transport_interactive to choose manually",
		strings.Join(e.PendingSplits, ", "))
}

// RemoteCallError is a non-2xx answer from the fulfillment network
type RemoteCallError struct {
	Operation  string
	StatusCode int
	Problems   []Problem
	SKUs       []string
}

func (e *RemoteCallError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Message
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Operation, e.StatusCode, strings.Join(msgs, "; "))
}

// Is lets errors.Is(err, ErrAlreadyConfirmed) match a 409 answer
func (e *RemoteCallError) Is(target error) bool {
	return target == ErrAlreadyConfirmed && e.StatusCode == 409
}

// Temporary reports whether the same call may succeed later
func (e *RemoteCallError) Temporary() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
