package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/inbound-service/pkg/cloudevents"
	"github.com/wms-platform/inbound-service/pkg/logging"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) SaveAll(ctx context.Context, messages []*Message) error {
	return m.Called(ctx, messages).Error(0)
}

func (m *MockRepository) FindPending(ctx context.Context, limit int) ([]*Message, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]*Message), args.Error(1)
}

func (m *MockRepository) MarkPublished(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRepository) RecordFailure(ctx context.Context, id string, reason string) error {
	return m.Called(ctx, id, reason).Error(0)
}

func (m *MockRepository) DeletePublished(ctx context.Context, olderThan time.Duration) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) FindByAggregateID(ctx context.Context, aggregateID string) ([]*Message, error) {
	args := m.Called(ctx, aggregateID)
	return args.Get(0).([]*Message), args.Error(1)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) PublishEvent(ctx context.Context, topic string, event *cloudevents.WMSCloudEvent) error {
	return m.Called(ctx, topic, event).Error(0)
}

func wrapped(t *testing.T, eventType string) *Message {
	t.Helper()
	factory := cloudevents.NewEventFactory(cloudevents.SourceInbound)
	ce := factory.CreateEvent(context.Background(), eventType, "shipment/SHP-1", map[string]string{"shipmentId": "SHP-1"})
	msg, err := Wrap(Aggregate{Type: "InboundShipment", ID: "SHP-1"}, "wms.inbound.events", ce)
	require.NoError(t, err)
	return msg
}

func TestPublisher_ProcessBatch(t *testing.T) {
	ok := wrapped(t, cloudevents.InboundPlanCreated)
	bad := wrapped(t, cloudevents.InboundPackingSet)

	repo := new(MockRepository)
	producer := new(MockProducer)

	repo.On("FindPending", mock.Anything, 100).Return([]*Message{ok, bad}, nil)
	producer.On("PublishEvent", mock.Anything, "wms.inbound.events", mock.MatchedBy(func(e *cloudevents.WMSCloudEvent) bool {
		return e.Type == cloudevents.InboundPlanCreated
	})).Return(nil)
	producer.On("PublishEvent", mock.Anything, "wms.inbound.events", mock.MatchedBy(func(e *cloudevents.WMSCloudEvent) bool {
		return e.Type == cloudevents.InboundPackingSet
	})).Return(errors.New("broker down"))
	repo.On("MarkPublished", mock.Anything, ok.ID).Return(nil)
	repo.On("RecordFailure", mock.Anything, bad.ID, mock.AnythingOfType("string")).Return(nil)

	p := NewPublisher(repo, producer, logging.NewNop(), nil, nil)
	p.ProcessBatch(context.Background())

	repo.AssertExpectations(t)
	producer.AssertExpectations(t)
	assert.Equal(t, map[string]int{"published": 1, "failed": 1}, p.Stats())
}

func TestPublisher_RunStopsOnCancel(t *testing.T) {
	repo := new(MockRepository)
	repo.On("FindPending", mock.Anything, mock.Anything).Return([]*Message{}, nil).Maybe()

	p := NewPublisher(repo, new(MockProducer), logging.NewNop(), nil, &PublisherConfig{
		PollInterval: 5 * time.Millisecond,
		BatchSize:    10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	assert.NoError(t, p.Run(ctx))
}

func TestMessage_Wrap(t *testing.T) {
	msg := wrapped(t, cloudevents.InboundLabelsReady)

	assert.True(t, msg.Pending())
	assert.Equal(t, cloudevents.InboundLabelsReady, msg.Type)
	assert.Equal(t, DefaultMaxAttempts, msg.Delivery.MaxAttempts)

	ce, err := msg.Unwrap()
	require.NoError(t, err)
	assert.Equal(t, msg.ID, ce.ID)
	assert.Equal(t, "shipment/SHP-1", ce.Subject)
	assert.True(t, msg.CreatedAt.Equal(ce.Time))

	msg.Delivery.Attempts = DefaultMaxAttempts
	assert.False(t, msg.Pending(), "out of attempts")
	msg.Delivery.Attempts = 0
	now := time.Now()
	msg.Delivery.PublishedAt = &now
	assert.False(t, msg.Pending(), "published")
}

func TestMessage_UnwrapCorrupt(t *testing.T) {
	msg := &Message{ID: "evt-1", Event: []byte("{")}
	_, err := msg.Unwrap()
	assert.ErrorContains(t, err, "evt-1")
}
