package mongodb

import (
	"context"

	"github.com/wms-platform/inbound-service/internal/domain"
	"github.com/wms-platform/inbound-service/pkg/cloudevents"
	"github.com/wms-platform/inbound-service/pkg/contracts/asyncapi"
	"github.com/wms-platform/inbound-service/pkg/kafka"
	"github.com/wms-platform/inbound-service/pkg/outbox"
)

// EventWriter turns domain events into CloudEvents and stores them in the
// outbox inside the caller's transaction.
type EventWriter struct {
	outbox    outbox.Repository
	factory   *cloudevents.EventFactory
	validator *asyncapi.EventValidator
	topic     string
}

// NewEventWriter creates an EventWriter. A nil validator disables payload
// validation.
func NewEventWriter(repo outbox.Repository, validator *asyncapi.EventValidator) *EventWriter {
	return &EventWriter{
		outbox:    repo,
		factory:   cloudevents.NewEventFactory(cloudevents.SourceInbound),
		validator: validator,
		topic:     kafka.Topics.InboundEvents,
	}
}

// Write stores one outbox message per domain event. ctx should be the session
// context of the transaction that persists the aggregate.
func (w *EventWriter) Write(ctx context.Context, aggregateType string, events []domain.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	messages := make([]*outbox.Message, 0, len(events))
	for _, event := range events {
		if w.validator != nil && w.validator.HasSchema(event.EventType()) {
			if err := w.validator.ValidateData(event.EventType(), event); err != nil {
				return err
			}
		}

		ce := w.factory.CreateEvent(ctx, event.EventType(), "shipment/"+event.AggregateID(), event)
		msg, err := outbox.Wrap(outbox.Aggregate{Type: aggregateType, ID: event.AggregateID()}, w.topic, ce)
		if err != nil {
			return err
		}
		messages = append(messages, msg)
	}

	return w.outbox.SaveAll(ctx, messages)
}
