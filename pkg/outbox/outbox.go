package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/wms-platform/inbound-service/pkg/cloudevents"
)

// DefaultMaxAttempts is how often the relay tries a message before leaving it parked.
const DefaultMaxAttempts = 10

// Aggregate names the entity whose state change raised a message
type Aggregate struct {
	Type string `bson:"type" json:"type"`
	ID   string `bson:"id" json:"id"`
}

// Delivery is the relay state of one message
type Delivery struct {
	Attempts    int        `bson:"attempts" json:"attempts"`
	MaxAttempts int        `bson:"maxAttempts" json:"maxAttempts"`
	LastError   string     `bson:"lastError,omitempty" json:"lastError,omitempty"`
	PublishedAt *time.Time `bson:"publishedAt,omitempty" json:"publishedAt,omitempty"`
}

// Message is an encoded CloudEvent stored in the same transaction as the
// aggregate that raised it. Its id is the CloudEvent id.
type Message struct {
	ID        string          `bson:"_id" json:"id"`
	Aggregate Aggregate       `bson:"aggregate" json:"aggregate"`
	Topic     string          `bson:"topic" json:"topic"`
	Type      string          `bson:"type" json:"type"`
	Event     json.RawMessage `bson:"event" json:"event"`
	CreatedAt time.Time       `bson:"createdAt" json:"createdAt"`
	Delivery  Delivery        `bson:"delivery" json:"delivery"`
}

// Wrap encodes ce as a message bound for topic
func Wrap(aggregate Aggregate, topic string, ce *cloudevents.WMSCloudEvent) (*Message, error) {
	raw, err := json.Marshal(ce)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s event: %w", ce.Type, err)
	}

	created := ce.Time
	if created.IsZero() {
		created = time.Now()
	}
	return &Message{
		ID:        ce.ID,
		Aggregate: aggregate,
		Topic:     topic,
		Type:      ce.Type,
		Event:     raw,
		CreatedAt: created.UTC(),
		Delivery:  Delivery{MaxAttempts: DefaultMaxAttempts},
	}, nil
}

// Pending reports whether the relay should still try the message
func (m *Message) Pending() bool {
	return m.Delivery.PublishedAt == nil && m.Delivery.Attempts < m.Delivery.MaxAttempts
}

// Unwrap decodes the stored CloudEvent
func (m *Message) Unwrap() (*cloudevents.WMSCloudEvent, error) {
	var ce cloudevents.WMSCloudEvent
	if err := json.Unmarshal(m.Event, &ce); err != nil {
		return nil, fmt.Errorf("failed to decode outbox message %s: %w", m.ID, err)
	}
	return &ce, nil
}
