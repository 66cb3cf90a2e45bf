// Package bootstrap assembles the storage, fulfillment network and
// orchestrator shared by the API and the worker.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/sony/gobreaker"

	"github.com/wms-platform/inbound-service/internal/application"
	"github.com/wms-platform/inbound-service/internal/config"
	"github.com/wms-platform/inbound-service/internal/contracts"
	"github.com/wms-platform/inbound-service/internal/domain"
	"github.com/wms-platform/inbound-service/internal/infrastructure/fulfillment"
	"github.com/wms-platform/inbound-service/internal/infrastructure/memory"
	mongoRepo "github.com/wms-platform/inbound-service/internal/infrastructure/mongodb"
	"github.com/wms-platform/inbound-service/internal/infrastructure/sandbox"
	"github.com/wms-platform/inbound-service/pkg/kafka"
	"github.com/wms-platform/inbound-service/pkg/logging"
	"github.com/wms-platform/inbound-service/pkg/metrics"
	"github.com/wms-platform/inbound-service/pkg/mongodb"
	"github.com/wms-platform/inbound-service/pkg/outbox"
	outboxmongo "github.com/wms-platform/inbound-service/pkg/outbox/mongodb"
)

// Components are the wired application parts
type Components struct {
	Shipments    domain.ShipmentRepository
	Splits       domain.SplitRepository
	Network      domain.FulfillmentNetwork
	Orchestrator *application.Orchestrator

	// Publisher relays the outbox to Kafka. Nil with in-memory storage.
	Publisher *outbox.Publisher

	mongo    *mongodb.InstrumentedClient
	producer *kafka.Producer
}

// Build wires storage, network and orchestrator from cfg
func Build(ctx context.Context, cfg *config.Config, logger *logging.Logger, m *metrics.Metrics) (*Components, error) {
	c := &Components{}

	switch cfg.Storage {
	case config.StorageMemory:
		c.Shipments = memory.NewShipmentStore()
		c.Splits = memory.NewSplitStore()
		logger.Warn("Using in-memory storage; shipments and events are not persisted")
	default:
		if err := c.buildMongo(ctx, cfg, logger, m); err != nil {
			return nil, err
		}
	}

	switch cfg.Network {
	case config.NetworkSandbox:
		c.Network = sandbox.NewNetwork(cfg.Sandbox)
		logger.Warn("Using the sandbox fulfillment network")
	default:
		c.Network = fulfillment.NewClient(cfg.Fulfillment, m, logger)
		logger.Info("Fulfillment network client initialized", "baseUrl", cfg.Fulfillment.BaseURL)
	}

	clock := application.SystemClock{}
	poller := application.NewOperationPoller(c.Network, clock, cfg.Poller, logger, m)
	executor := application.NewPhaseExecutor(c.Network, c.Shipments, c.Splits, poller, clock, cfg.Executor, logger, m)
	c.Orchestrator = application.NewOrchestrator(c.Shipments, c.Splits, c.Network, executor, clock, cfg.Orchestrator, logger, m)
	return c, nil
}

func (c *Components) buildMongo(ctx context.Context, cfg *config.Config, logger *logging.Logger, m *metrics.Metrics) error {
	client, err := mongodb.NewClient(ctx, cfg.MongoDB)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	c.mongo = mongodb.NewInstrumentedClient(client, m, logger)
	logger.Info("Connected to MongoDB", "database", cfg.MongoDB.Database)

	validator, err := contracts.NewEventValidator()
	if err != nil {
		return fmt.Errorf("failed to load event contract: %w", err)
	}

	outboxRepo := outboxmongo.NewOutboxRepository(c.mongo)
	events := mongoRepo.NewEventWriter(outboxRepo, validator)
	shipments := mongoRepo.NewShipmentRepository(c.mongo, events)
	splits := mongoRepo.NewSplitRepository(c.mongo, events)

	for name, ensure := range map[string]func(context.Context) error{
		"outbox":    outboxRepo.EnsureIndexes,
		"shipments": shipments.EnsureIndexes,
		"splits":    splits.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			logger.WithError(err).Warn("Failed to create indexes", "collection", name)
		}
	}
	c.Shipments = shipments
	c.Splits = splits

	c.producer = kafka.NewProducer(cfg.Kafka, logger, m)
	c.Publisher = outbox.NewPublisher(outboxRepo, c.producer, logger, m, cfg.Outbox)
	logger.Info("Kafka producer initialized", "brokers", cfg.Kafka.Brokers)
	return nil
}

// Ready reports whether the storage backend answers and the fulfillment
// circuit breaker lets calls through
func (c *Components) Ready(ctx context.Context) error {
	if client, ok := c.Network.(*fulfillment.Client); ok {
		if status := client.BreakerStatus(); status.State == gobreaker.StateOpen.String() {
			return fmt.Errorf("fulfillment network circuit %s is open", status.Name)
		}
	}
	if c.mongo == nil {
		return nil
	}
	return c.mongo.HealthCheck(ctx)
}

// Close releases the producer and the database connection
func (c *Components) Close(ctx context.Context) {
	if c.producer != nil {
		_ = c.producer.Close()
	}
	if c.mongo != nil {
		_ = c.mongo.Close(ctx)
	}
}
