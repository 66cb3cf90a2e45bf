package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wms-platform/inbound-service/pkg/cloudevents"
	"github.com/wms-platform/inbound-service/pkg/logging"
	"github.com/wms-platform/inbound-service/pkg/metrics"
)

// EventPublisher delivers one CloudEvent to a topic. The Kafka producer implements it.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event *cloudevents.WMSCloudEvent) error
}

// PublisherConfig holds configuration for the outbox publisher
type PublisherConfig struct {
	PollInterval time.Duration `yaml:"pollInterval"`
	BatchSize    int           `yaml:"batchSize"`
	// Retention is how long published events are kept before cleanup; 0 keeps them.
	Retention time.Duration `yaml:"retention"`
}

// DefaultPublisherConfig returns default configuration
func DefaultPublisherConfig() *PublisherConfig {
	return &PublisherConfig{
		PollInterval: time.Second,
		BatchSize:    100,
		Retention:    72 * time.Hour,
	}
}

// Publisher relays outbox messages to Kafka
type Publisher struct {
	repo      Repository
	producer  EventPublisher
	logger    *logging.Logger
	metrics   *metrics.Metrics
	config    *PublisherConfig
	mu        sync.Mutex
	published int
	failed    int
}

// NewPublisher creates a new outbox publisher
func NewPublisher(repo Repository, producer EventPublisher, logger *logging.Logger, m *metrics.Metrics, config *PublisherConfig) *Publisher {
	if config == nil {
		config = DefaultPublisherConfig()
	}
	return &Publisher{
		repo:     repo,
		producer: producer,
		logger:   logger.WithComponent("outbox-publisher"),
		metrics:  m,
		config:   config,
	}
}

// Run polls the outbox until ctx is cancelled. It always returns nil on
// cancellation so it can run inside an errgroup next to the HTTP server.
func (p *Publisher) Run(ctx context.Context) error {
	p.logger.Info("Starting outbox publisher", "interval", p.config.PollInterval.String(), "batchSize", p.config.BatchSize)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	cleanup := time.NewTicker(time.Hour)
	defer cleanup.Stop()

	for {
		select {
		case <-ctx.Done():
			stats := p.Stats()
			p.logger.Info("Outbox publisher stopped", "published", stats["published"], "failed", stats["failed"])
			return nil
		case <-ticker.C:
			p.ProcessBatch(ctx)
		case <-cleanup.C:
			p.purge(ctx)
		}
	}
}

// ProcessBatch publishes one batch of pending messages.
func (p *Publisher) ProcessBatch(ctx context.Context) {
	messages, err := p.repo.FindPending(ctx, p.config.BatchSize)
	if err != nil {
		p.logger.WithError(err).Error("Failed to find pending outbox messages")
		return
	}
	p.metrics.SetOutboxBacklog(len(messages))

	for _, msg := range messages {
		if err := p.publish(ctx, msg); err != nil {
			p.logger.WithError(err).Error("Failed to publish event",
				"eventId", msg.ID,
				"eventType", msg.Type,
				"aggregateId", msg.Aggregate.ID,
				"attempt", msg.Delivery.Attempts+1,
			)
			p.count(false)
			if err := p.repo.RecordFailure(ctx, msg.ID, err.Error()); err != nil {
				p.logger.WithError(err).Error("Failed to record outbox failure", "eventId", msg.ID)
			}
			continue
		}

		p.count(true)
		if err := p.repo.MarkPublished(ctx, msg.ID); err != nil {
			p.logger.WithError(err).Error("Failed to mark event as published", "eventId", msg.ID)
		}
	}
}

func (p *Publisher) publish(ctx context.Context, msg *Message) error {
	ce, err := msg.Unwrap()
	if err != nil {
		return err
	}
	if err := p.producer.PublishEvent(ctx, msg.Topic, ce); err != nil {
		return fmt.Errorf("failed to publish to Kafka: %w", err)
	}
	return nil
}

func (p *Publisher) purge(ctx context.Context) {
	if p.config.Retention <= 0 {
		return
	}
	n, err := p.repo.DeletePublished(ctx, p.config.Retention)
	if err != nil {
		p.logger.WithError(err).Warn("Failed to purge published outbox events")
		return
	}
	if n > 0 {
		p.logger.Info("Purged published outbox events", "count", n)
	}
}

func (p *Publisher) count(ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ok {
		p.published++
	} else {
		p.failed++
	}
}

// Stats returns publisher statistics
func (p *Publisher) Stats() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return map[string]int{
		"published": p.published,
		"failed":    p.failed,
	}
}
