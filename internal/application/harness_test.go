package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wms-platform/inbound-service/internal/domain"
	"github.com/wms-platform/inbound-service/internal/infrastructure/memory"
	"github.com/wms-platform/inbound-service/internal/infrastructure/sandbox"
	"github.com/wms-platform/inbound-service/pkg/logging"
)

// fakeClock advances only when something sleeps on it
type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	slept []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Now().UTC().Truncate(time.Second)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.slept = append(c.slept, d)
	return ctx.Err()
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.slept...)
}

type harness struct {
	network      *sandbox.Network
	shipments    *memory.ShipmentStore
	splits       *memory.SplitStore
	clock        *fakeClock
	orchestrator *Orchestrator
	service      *ShipmentService
}

func newHarness(t *testing.T, cfg sandbox.Config) *harness {
	t.Helper()

	h := &harness{
		network:   sandbox.NewNetwork(cfg),
		shipments: memory.NewShipmentStore(),
		splits:    memory.NewSplitStore(),
		clock:     newFakeClock(),
	}
	h.network.SetClock(h.clock.Now)

	logger := logging.NewNop()
	poller := NewOperationPoller(h.network, h.clock, &PollerConfig{
		Interval:      time.Second,
		MaxInterval:   4 * time.Second,
		BackoffFactor: 2,
		Timeout:       30 * time.Second,
	}, logger, nil)
	executor := NewPhaseExecutor(h.network, h.shipments, h.splits, poller, h.clock, nil, logger, nil)
	h.orchestrator = NewOrchestrator(h.shipments, h.splits, h.network, executor, h.clock, nil, logger, nil)
	h.service = NewShipmentService(h.shipments, h.splits, nil, logger, nil)
	return h
}

func testWarehouse() domain.Warehouse {
	return domain.Warehouse{
		WarehouseID: "WH-RNO",
		Name:        "Reno",
		Address: domain.Address{
			Name:                "Reno Warehouse",
			AddressLine1:        "1 Dock Rd",
			City:                "Reno",
			StateOrProvinceCode: "NV",
			PostalCode:          "89502",
			CountryCode:         "US",
			Phone:               "+1-775-555-0100",
		},
	}
}

func testShipment(id string) *domain.Shipment {
	return domain.NewShipment(id, "May restock", testWarehouse(), "US",
		[]domain.LineItem{{SKU: "MUG-RED", Quantity: 30}},
		[]domain.Box{{
			BoxID:      "B1",
			Dimensions: domain.Dimensions{Length: 20, Width: 16, Height: 12, Unit: "IN"},
			Weight:     domain.Weight{Value: 18, Unit: "LB"},
			Items:      []domain.BoxItem{{SKU: "MUG-RED", Quantity: 30}},
		}},
	)
}

func (h *harness) seed(t *testing.T, s *domain.Shipment) {
	t.Helper()
	require.NoError(t, h.shipments.Create(context.Background(), s))
}

func (h *harness) run(t *testing.T, shipmentID string, phase RunPhase) *RunResultDTO {
	t.Helper()
	result, err := h.orchestrator.Run(context.Background(), RunCommand{ShipmentID: shipmentID, Phase: phase})
	require.NoError(t, err)
	return result
}

func (h *harness) load(t *testing.T, shipmentID string) *domain.Shipment {
	t.Helper()
	s, err := h.shipments.FindByID(context.Background(), shipmentID)
	require.NoError(t, err)
	require.NotNil(t, s)
	return s
}

func (h *harness) splitsOf(t *testing.T, shipmentID string) []*domain.Split {
	t.Helper()
	splits, err := h.splits.FindByShipmentID(context.Background(), shipmentID)
	require.NoError(t, err)
	return splits
}
