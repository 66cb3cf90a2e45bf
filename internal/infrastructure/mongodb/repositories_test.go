package mongodb_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/inbound-service/internal/domain"
	"github.com/wms-platform/inbound-service/internal/infrastructure/mongodb"
	"github.com/wms-platform/inbound-service/pkg/logging"
	mongopkg "github.com/wms-platform/inbound-service/pkg/mongodb"
	"github.com/wms-platform/inbound-service/pkg/outbox"
	outboxmongo "github.com/wms-platform/inbound-service/pkg/outbox/mongodb"
	wmstesting "github.com/wms-platform/inbound-service/pkg/testing"
)

type fixture struct {
	shipments *mongodb.ShipmentRepository
	splits    *mongodb.SplitRepository
	outbox    *outboxmongo.OutboxRepository
}

func setupRepositories(t *testing.T) *fixture {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping MongoDB integration test in short mode")
	}

	ctx := context.Background()
	container, err := wmstesting.NewMongoDBContainer(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close(context.Background()) })

	cfg := mongopkg.DefaultConfig()
	cfg.URI = container.URI
	cfg.Database = "inbound_test"
	client, err := mongopkg.NewClient(ctx, cfg)
	require.NoError(t, err)

	instrumented := mongopkg.NewInstrumentedClient(client, nil, logging.NewNop())
	t.Cleanup(func() { _ = instrumented.Close(context.Background()) })

	outboxRepo := outboxmongo.NewOutboxRepository(instrumented)
	events := mongodb.NewEventWriter(outboxRepo, nil)
	f := &fixture{
		shipments: mongodb.NewShipmentRepository(instrumented, events),
		splits:    mongodb.NewSplitRepository(instrumented, events),
		outbox:    outboxRepo,
	}
	require.NoError(t, f.shipments.EnsureIndexes(ctx))
	require.NoError(t, f.splits.EnsureIndexes(ctx))
	require.NoError(t, outboxRepo.EnsureIndexes(ctx))
	return f
}

func newShipment(id string) *domain.Shipment {
	return domain.NewShipment(id, "May restock",
		domain.Warehouse{
			WarehouseID: "WH-RENO",
			Name:        "Reno",
			Address: domain.Address{
				Name:                "Dock 4",
				AddressLine1:        "100 Commerce Way",
				City:                "Reno",
				StateOrProvinceCode: "NV",
				PostalCode:          "89502",
				CountryCode:         "US",
				Phone:               "7755550100",
			},
		},
		"",
		[]domain.LineItem{{SKU: "MUG-RED", Quantity: 30}},
		[]domain.Box{{
			BoxID:      "B1",
			Dimensions: domain.Dimensions{Length: 12, Width: 10, Height: 8, Unit: "IN"},
			Weight:     domain.Weight{Value: 20, Unit: "LB"},
			Items:      []domain.BoxItem{{SKU: "MUG-RED", Quantity: 30}},
		}},
	)
}

func TestRepositories(t *testing.T) {
	f := setupRepositories(t)
	ctx := context.Background()

	t.Run("shipment create and find", func(t *testing.T) {
		s := newShipment("SHP-1")
		require.NoError(t, f.shipments.Create(ctx, s))
		assert.Equal(t, int64(1), s.Version)

		found, err := f.shipments.FindByID(ctx, "SHP-1")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "May restock", found.Name)
		assert.Equal(t, domain.PhaseNone, found.Phase())
		assert.Equal(t, int64(1), found.Version)

		assert.ErrorIs(t, f.shipments.Create(ctx, newShipment("SHP-1")), domain.ErrShipmentExists)

		missing, err := f.shipments.FindByID(ctx, "SHP-404")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("shipment save is versioned and writes the outbox", func(t *testing.T) {
		s := newShipment("SHP-2")
		require.NoError(t, f.shipments.Create(ctx, s))
		require.NoError(t, s.ClaimRun("run-1", time.Minute, time.Now()))
		require.NoError(t, s.PlanCreated("wf-1", "op-1"))
		require.NoError(t, f.shipments.Save(ctx, s))
		assert.Equal(t, int64(2), s.Version)
		assert.Empty(t, s.GetDomainEvents())

		stale, err := f.shipments.FindByID(ctx, "SHP-2")
		require.NoError(t, err)
		stale.Version = 1
		assert.ErrorIs(t, f.shipments.Save(ctx, stale), domain.ErrConcurrentModification)

		// releasing the lease must clear it in storage
		s.ReleaseRun("run-1")
		require.NoError(t, f.shipments.Save(ctx, s))
		found, err := f.shipments.FindByID(ctx, "SHP-2")
		require.NoError(t, err)
		assert.Nil(t, found.Lease)
		assert.Equal(t, domain.PhasePlanCreated, found.Phase())
		assert.Equal(t, "wf-1", found.Workflow.PlanID)

		events, err := f.outbox.FindByAggregateID(ctx, "SHP-2")
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "wms.inbound.plan-created", events[0].Type)
		assert.Equal(t, "wms.inbound.events", events[0].Topic)
		assert.True(t, events[0].Pending())
		ce, err := events[0].Unwrap()
		require.NoError(t, err)
		assert.Equal(t, "shipment/SHP-2", ce.Subject)
		assert.Equal(t, events[0].ID, ce.ID)

		require.NoError(t, f.outbox.RecordFailure(ctx, events[0].ID, "broker down"))
		require.NoError(t, f.outbox.MarkPublished(ctx, events[0].ID))
		events, err = f.outbox.FindByAggregateID(ctx, "SHP-2")
		require.NoError(t, err)
		assert.Equal(t, 1, events[0].Delivery.Attempts)
		assert.Equal(t, "broker down", events[0].Delivery.LastError)
		assert.False(t, events[0].Pending())
	})

	t.Run("splits", func(t *testing.T) {
		remote := domain.RemoteShipment{
			ID:           "sh-1",
			FacilityCode: "FC1",
			Items:        []domain.ItemQuantity{{SKU: "MUG-RED", Quantity: 30}},
		}
		split := domain.NewSplit("SHP-3", "wf-3", remote)
		require.NoError(t, f.splits.Save(ctx, split))
		assert.Equal(t, int64(1), split.Version)

		dup := domain.NewSplit("SHP-3", "wf-3", remote)
		assert.ErrorIs(t, f.splits.Save(ctx, dup), domain.ErrConcurrentModification)

		second := domain.NewSplit("SHP-3", "wf-3", domain.RemoteShipment{ID: "sh-2", FacilityCode: "FC2"})
		require.NoError(t, f.splits.Save(ctx, second))

		split.ChooseTransport(
			domain.TransportOption{ID: "to-1", Carrier: domain.Carrier{Name: "UPS"}},
			domain.DeliveryWindowOption{ID: "dw-1", StartDate: time.Now(), EndDate: time.Now().Add(7 * 24 * time.Hour)},
		)
		require.True(t, split.ConfirmTransport())
		require.NoError(t, split.LabelsReady("https://labels.example/sh-1.pdf"))
		require.NoError(t, f.splits.Save(ctx, split))
		assert.Equal(t, int64(2), split.Version)

		found, err := f.splits.FindByRemoteID(ctx, "sh-1")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, domain.SplitStatusLabelsReady, found.Status)
		assert.Equal(t, "UPS", found.Carrier)

		found.Version = 1
		assert.ErrorIs(t, f.splits.Save(ctx, found), domain.ErrConcurrentModification)

		all, err := f.splits.FindByShipmentID(ctx, "SHP-3")
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "sh-1", all[0].RemoteShipmentID)

		events, err := f.outbox.FindByAggregateID(ctx, "SHP-3")
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, outbox.Aggregate{Type: "ShipmentSplit", ID: "SHP-3"}, events[0].Aggregate)

		none, err := f.splits.FindByRemoteID(ctx, "sh-404")
		require.NoError(t, err)
		assert.Nil(t, none)
	})
}
