package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/inbound-service/internal/application"
	"github.com/wms-platform/inbound-service/internal/config"
	"github.com/wms-platform/inbound-service/internal/domain"
	"github.com/wms-platform/inbound-service/internal/infrastructure/fulfillment"
	"github.com/wms-platform/inbound-service/internal/infrastructure/sandbox"
	"github.com/wms-platform/inbound-service/pkg/logging"
)

func TestBuild_MemoryAndSandbox(t *testing.T) {
	cfg := config.Default()
	cfg.Storage = config.StorageMemory
	cfg.Network = config.NetworkSandbox

	c, err := Build(context.Background(), cfg, logging.NewNop(), nil)
	require.NoError(t, err)
	defer c.Close(context.Background())

	assert.IsType(t, &sandbox.Network{}, c.Network)
	assert.Nil(t, c.Publisher)
	assert.NoError(t, c.Ready(context.Background()))

	shipment := domain.NewShipment("S-1", "", domain.Warehouse{}, "", nil, nil)
	require.NoError(t, c.Shipments.Create(context.Background(), shipment))

	_, err = c.Orchestrator.Run(context.Background(), application.RunCommand{ShipmentID: "S-1", Phase: application.RunCreatePlan})
	var precondition *domain.PreconditionError
	assert.ErrorAs(t, err, &precondition, "an empty draft cannot be planned")
}

func TestBuild_HTTPNetwork(t *testing.T) {
	cfg := config.Default()
	cfg.Storage = config.StorageMemory

	c, err := Build(context.Background(), cfg, logging.NewNop(), nil)
	require.NoError(t, err)

	assert.IsType(t, &fulfillment.Client{}, c.Network)
	assert.NoError(t, c.Ready(context.Background()), "a closed breaker is ready")
}
