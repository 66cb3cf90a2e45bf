package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/inbound-service/internal/domain"
	"github.com/wms-platform/inbound-service/internal/infrastructure/memory"
	"github.com/wms-platform/inbound-service/internal/infrastructure/sandbox"
	"github.com/wms-platform/inbound-service/pkg/errors"
	"github.com/wms-platform/inbound-service/pkg/logging"
)

func TestOrchestrator_RunAll(t *testing.T) {
	cfg := sandbox.DefaultConfig()
	cfg.PendingPolls = 2
	h := newHarness(t, cfg)
	h.seed(t, testShipment("SHP-1"))

	result := h.run(t, "SHP-1", RunAll)

	assert.Equal(t, string(domain.PhaseTransportConfirmed), result.Phase)
	assert.Equal(t, string(domain.ShipmentStatusSubmitted), result.Status)
	assert.NotEmpty(t, result.PlanID)
	assert.NotEmpty(t, result.PackingOptionID)
	assert.NotEmpty(t, result.PlacementOptionID)
	assert.Equal(t, []string{"plan_created", "packing_set", "placement_confirmed", "transport_confirmed"}, result.Executed)
	assert.False(t, result.AwaitingChoice)

	require.Len(t, result.Splits, 1)
	split := result.Splits[0]
	assert.Equal(t, string(domain.SplitStatusTransportConfirmed), split.Status)
	assert.Equal(t, "United Parcel Service", split.Carrier)
	assert.NotEmpty(t, split.TransportOptionID)
	assert.NotEmpty(t, split.DeliveryWindowID)
	require.NotNil(t, split.DeliveryWindowStart)
	assert.Equal(t, []ItemQuantityDTO{{SKU: "MUG-RED", Quantity: 30}}, split.Items)
	assert.Equal(t, []string{split.RemoteShipmentID}, result.ConfirmedSplits)

	stored := h.load(t, "SHP-1")
	assert.Nil(t, stored.Lease, "lease must be released")
	assert.NotNil(t, stored.SubmittedAt)
	assert.Empty(t, stored.Workflow.LastError)
	assert.Equal(t, "B1", stored.Boxes[0].BoxID)
	assert.NotEmpty(t, stored.Boxes[0].PackingGroupID)

	var types []string
	for _, e := range h.shipments.Events() {
		types = append(types, e.EventType())
	}
	assert.Equal(t, []string{
		"wms.inbound.plan-created",
		"wms.inbound.packing-set",
		"wms.inbound.placement-confirmed",
		"wms.inbound.transport-confirmed",
	}, types)

	// polling went through the fake clock
	assert.NotEmpty(t, h.clock.Sleeps())
}

func TestOrchestrator_CreatePlanIsIdempotent(t *testing.T) {
	h := newHarness(t, sandbox.DefaultConfig())
	h.seed(t, testShipment("SHP-1"))

	first := h.run(t, "SHP-1", RunCreatePlan)
	require.NotEmpty(t, first.PlanID)
	calls := h.network.TotalCalls()

	second := h.run(t, "SHP-1", RunCreatePlan)

	assert.Equal(t, calls, h.network.TotalCalls(), "second run must not reach the network")
	assert.Equal(t, first.PlanID, second.PlanID)
	assert.Equal(t, []string{"plan_created"}, second.Skipped)
	assert.Empty(t, second.Executed)
}

func TestOrchestrator_ResumesAfterPacking(t *testing.T) {
	h := newHarness(t, sandbox.DefaultConfig())
	h.seed(t, testShipment("SHP-1"))

	h.run(t, "SHP-1", RunCreatePlan)
	h.run(t, "SHP-1", RunSetPacking)
	require.Equal(t, domain.PhasePackingSet, h.load(t, "SHP-1").Phase())

	before := map[string]int{}
	for _, call := range []string{
		sandbox.CallCreateInboundPlan,
		sandbox.CallGeneratePackingOptions,
		sandbox.CallConfirmPackingOption,
		sandbox.CallSetPackingInformation,
	} {
		before[call] = h.network.Calls(call)
	}

	result := h.run(t, "SHP-1", RunAll)

	for call, n := range before {
		assert.Equal(t, n, h.network.Calls(call), call)
	}
	assert.Equal(t, []string{"plan_created", "packing_set"}, result.Skipped)
	assert.Equal(t, []string{"placement_confirmed", "transport_confirmed"}, result.Executed)
	assert.Equal(t, string(domain.PhaseTransportConfirmed), result.Phase)
}

func TestOrchestrator_PartialTransportFailure(t *testing.T) {
	cfg := sandbox.DefaultConfig()
	cfg.Destinations = 3
	h := newHarness(t, cfg)
	h.seed(t, testShipment("SHP-1"))

	h.run(t, "SHP-1", RunCreatePlan)
	h.run(t, "SHP-1", RunSetPacking)
	h.run(t, "SHP-1", RunConfirmPlacement)

	splits := h.splitsOf(t, "SHP-1")
	require.Len(t, splits, 3)
	stranded := splits[2].RemoteShipmentID
	h.network.NoTransport(stranded)

	result := h.run(t, "SHP-1", RunConfirmTransport)

	assert.Len(t, result.ConfirmedSplits, 2)
	assert.NotContains(t, result.ConfirmedSplits, stranded)
	assert.Equal(t, []string{stranded}, result.PendingSplits)
	assert.Equal(t, string(domain.PhaseTransportConfirmed), result.Phase)
	assert.Equal(t, string(domain.ShipmentStatusSubmitted), result.Status)

	for _, s := range h.splitsOf(t, "SHP-1") {
		if s.RemoteShipmentID == stranded {
			assert.Equal(t, domain.SplitStatusPending, s.Status)
			assert.Contains(t, s.LastError, "no transport option")
		} else {
			assert.Equal(t, domain.SplitStatusTransportConfirmed, s.Status)
		}
	}

	t.Run("later runs only retry the pending split", func(t *testing.T) {
		confirms := h.network.Calls(sandbox.CallConfirmTransportationOptions)

		_, err := h.orchestrator.Run(context.Background(), RunCommand{ShipmentID: "SHP-1", Phase: RunConfirmTransport})

		var noTransport *domain.NoTransportOptionsError
		require.ErrorAs(t, err, &noTransport)
		assert.Equal(t, []string{stranded}, noTransport.PendingSplits)
		assert.Equal(t, confirms, h.network.Calls(sandbox.CallConfirmTransportationOptions))
		assert.Equal(t, domain.PhaseTransportConfirmed, h.load(t, "SHP-1").Phase())
	})
}

func TestOrchestrator_SplitWithoutDeliveryWindowStaysPending(t *testing.T) {
	cfg := sandbox.DefaultConfig()
	cfg.Destinations = 2
	h := newHarness(t, cfg)
	h.seed(t, testShipment("SHP-1"))
	h.run(t, "SHP-1", RunCreatePlan)
	h.run(t, "SHP-1", RunSetPacking)
	h.run(t, "SHP-1", RunConfirmPlacement)

	late := h.splitsOf(t, "SHP-1")[1].RemoteShipmentID
	h.network.NoDeliveryWindows(late)

	result := h.run(t, "SHP-1", RunConfirmTransport)

	assert.Equal(t, []string{late}, result.PendingSplits)
	assert.Len(t, result.ConfirmedSplits, 1)
	for _, s := range h.splitsOf(t, "SHP-1") {
		if s.RemoteShipmentID == late {
			assert.Equal(t, domain.SplitStatusPending, s.Status)
			assert.Contains(t, s.LastError, "no delivery window")
		}
	}
}

func TestOrchestrator_NoTransportAnywhere(t *testing.T) {
	h := newHarness(t, sandbox.DefaultConfig())
	h.seed(t, testShipment("SHP-1"))
	h.run(t, "SHP-1", RunCreatePlan)
	h.run(t, "SHP-1", RunSetPacking)
	h.run(t, "SHP-1", RunConfirmPlacement)
	h.network.NoTransport(h.splitsOf(t, "SHP-1")[0].RemoteShipmentID)

	_, err := h.orchestrator.Run(context.Background(), RunCommand{ShipmentID: "SHP-1", Phase: RunConfirmTransport})

	var noTransport *domain.NoTransportOptionsError
	require.ErrorAs(t, err, &noTransport)
	appErr := ToAppError(err)
	assert.Equal(t, errors.CodeNoOptionAvailable, appErr.Code)
	assert.Equal(t, "confirm_transport_interactive", appErr.Details["hint"])

	stored := h.load(t, "SHP-1")
	assert.Equal(t, domain.PhasePlacementConfirmed, stored.Phase())
	assert.Contains(t, stored.Workflow.LastError, "no transport option available")
	assert.Zero(t, h.network.Calls(sandbox.CallConfirmTransportationOptions))
}

func TestOrchestrator_InteractiveFlow(t *testing.T) {
	cfg := sandbox.DefaultConfig()
	cfg.Destinations = 2
	h := newHarness(t, cfg)
	h.seed(t, testShipment("SHP-1"))
	h.run(t, "SHP-1", RunCreatePlan)
	h.run(t, "SHP-1", RunSetPacking)

	candidates := h.run(t, "SHP-1", RunGetPlacementOptions)
	require.True(t, candidates.AwaitingChoice)
	require.Len(t, candidates.PlacementOptions, 2)
	assert.Zero(t, h.network.Calls(sandbox.CallConfirmPlacementOption))
	assert.Equal(t, domain.PhasePackingSet, h.load(t, "SHP-1").Phase())

	// choose the pricier single-destination option
	var single PlacementOptionDTO
	for _, o := range candidates.PlacementOptions {
		if len(o.ShipmentIDs) == 1 {
			single = o
		}
	}
	require.NotEmpty(t, single.PlacementOptionID)
	assert.Equal(t, "12.5", single.TotalFee.String())

	selected, err := h.orchestrator.Run(context.Background(), RunCommand{
		ShipmentID:        "SHP-1",
		Phase:             RunSelectPlacement,
		PlacementOptionID: single.PlacementOptionID,
	})
	require.NoError(t, err)
	assert.Equal(t, string(domain.PhasePlacementConfirmed), selected.Phase)
	assert.Equal(t, single.PlacementOptionID, selected.PlacementOptionID)
	assert.True(t, selected.AwaitingChoice)
	require.Len(t, selected.TransportCandidates, 1)
	remoteID := selected.TransportCandidates[0].RemoteShipmentID
	assert.Equal(t, single.ShipmentIDs[0], remoteID)
	assert.Len(t, selected.TransportCandidates[0].TransportOptions, 2)
	assert.Len(t, selected.TransportCandidates[0].DeliveryWindows, 3)

	t.Run("transport without a choice returns candidates and changes nothing", func(t *testing.T) {
		result := h.run(t, "SHP-1", RunConfirmTransportInteractive)

		assert.True(t, result.AwaitingChoice)
		require.Len(t, result.TransportCandidates, 1)
		assert.Zero(t, h.network.Calls(sandbox.CallConfirmTransportationOptions))
		assert.Zero(t, h.network.Calls(sandbox.CallConfirmDeliveryWindowOption))
		assert.Equal(t, domain.PhasePlacementConfirmed, h.load(t, "SHP-1").Phase())
	})

	t.Run("an unknown transport choice is rejected", func(t *testing.T) {
		_, err := h.orchestrator.Run(context.Background(), RunCommand{
			ShipmentID:       "SHP-1",
			Phase:            RunConfirmTransportInteractive,
			TransportChoices: map[string]string{remoteID: "to-unknown"},
		})

		var bad *InvalidChoiceError
		require.ErrorAs(t, err, &bad)
		assert.Equal(t, errors.CodeValidationError, ToAppError(err).Code)
		assert.Empty(t, h.load(t, "SHP-1").Workflow.LastError)
	})

	t.Run("chosen transport is confirmed", func(t *testing.T) {
		var freight TransportOptionDTO
		for _, o := range selected.TransportCandidates[0].TransportOptions {
			if !o.Partnered {
				freight = o
			}
		}
		require.NotEmpty(t, freight.TransportOptionID)

		result, err := h.orchestrator.Run(context.Background(), RunCommand{
			ShipmentID:       "SHP-1",
			Phase:            RunConfirmTransportInteractive,
			TransportChoices: map[string]string{remoteID: freight.TransportOptionID},
		})
		require.NoError(t, err)

		assert.False(t, result.AwaitingChoice)
		assert.Equal(t, string(domain.PhaseTransportConfirmed), result.Phase)
		require.Len(t, result.Splits, 1)
		assert.Equal(t, "Regional Freight", result.Splits[0].Carrier)
		assert.Equal(t, freight.TransportOptionID, result.Splits[0].TransportOptionID)
	})

	t.Run("placement options after confirmation point to transport", func(t *testing.T) {
		s := h.load(t, "SHP-1")
		s.Workflow.PlacementOptionID = ""
		require.NoError(t, h.shipments.Save(context.Background(), s))

		result := h.run(t, "SHP-1", RunGetPlacementOptions)

		assert.Equal(t, "confirm_transport_interactive", result.SkipTo)
		assert.Empty(t, result.PlacementOptions)
		assert.Equal(t, single.PlacementOptionID, h.load(t, "SHP-1").Workflow.PlacementOptionID)
	})
}

func TestOrchestrator_SelectPlacementUnknownOption(t *testing.T) {
	h := newHarness(t, sandbox.DefaultConfig())
	h.seed(t, testShipment("SHP-1"))
	h.run(t, "SHP-1", RunCreatePlan)
	h.run(t, "SHP-1", RunSetPacking)

	_, err := h.orchestrator.Run(context.Background(), RunCommand{
		ShipmentID:        "SHP-1",
		Phase:             RunSelectPlacement,
		PlacementOptionID: "pl-unknown",
	})

	var bad *InvalidChoiceError
	require.ErrorAs(t, err, &bad)
	assert.Zero(t, h.network.Calls(sandbox.CallConfirmPlacementOption))
	assert.Equal(t, domain.PhasePackingSet, h.load(t, "SHP-1").Phase())
}

func TestOrchestrator_AdoptsRemoteChoice(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, sandbox.DefaultConfig())
	h.seed(t, testShipment("SHP-1"))
	h.run(t, "SHP-1", RunCreatePlan)
	h.run(t, "SHP-1", RunSetPacking)
	planID := h.load(t, "SHP-1").Workflow.PlanID

	// an earlier run confirmed the pricier option and died before recording it
	_, err := h.network.GeneratePlacementOptions(ctx, planID)
	require.NoError(t, err)
	options, err := h.network.ListPlacementOptions(ctx, planID)
	require.NoError(t, err)
	require.Len(t, options, 2)
	_, err = h.network.ConfirmPlacementOption(ctx, planID, options[1].ID)
	require.NoError(t, err)

	result := h.run(t, "SHP-1", RunConfirmPlacement)

	assert.Equal(t, options[1].ID, result.PlacementOptionID)
	assert.Equal(t, 1, h.network.Calls(sandbox.CallConfirmPlacementOption), "no second confirm")
	assert.Equal(t, 1, h.network.Calls(sandbox.CallGeneratePlacementOptions), "no regeneration")
	assert.Equal(t, string(domain.PhasePlacementConfirmed), result.Phase)
}

func TestOrchestrator_ConfirmConflictKeepsOwnChoice(t *testing.T) {
	h := newHarness(t, sandbox.DefaultConfig())
	h.seed(t, testShipment("SHP-1"))
	h.run(t, "SHP-1", RunCreatePlan)
	h.network.FailNext(sandbox.CallConfirmPackingOption, domain.Problem{
		Code:    "FBA_INB_0001",
		Message: "Packing option has already been confirmed",
	})

	result := h.run(t, "SHP-1", RunSetPacking)

	assert.Equal(t, string(domain.PhasePackingSet), result.Phase)
	assert.NotEmpty(t, result.PackingOptionID)
	assert.Equal(t, 1, h.network.Calls(sandbox.CallSetPackingInformation))
}

func TestOrchestrator_RemoteRejection(t *testing.T) {
	h := newHarness(t, sandbox.DefaultConfig())
	h.seed(t, testShipment("SHP-1"))
	h.network.FailNext(sandbox.CallCreateInboundPlan, domain.Problem{
		Code:     "InvalidInput",
		Message:  "ERROR: sku MUG-RED has an invalid prepOwner. Accepted values: NONE, SELLER",
		Severity: "ERROR",
	})

	_, err := h.orchestrator.Run(context.Background(), RunCommand{ShipmentID: "SHP-1", Phase: RunAll})

	var rejection *domain.RemoteRejectionError
	require.ErrorAs(t, err, &rejection)
	assert.Equal(t, domain.PhasePlanCreated, rejection.Phase)

	appErr := ToAppError(err)
	assert.Equal(t, errors.CodeRemoteRejected, appErr.Code)
	require.Len(t, appErr.Remote, 1)
	assert.Equal(t, "MUG-RED", appErr.Remote[0].SKU)
	assert.Equal(t, []string{"NONE", "SELLER"}, appErr.Remote[0].AcceptedValues)

	stored := h.load(t, "SHP-1")
	assert.Equal(t, domain.PhaseNone, stored.Phase())
	assert.Empty(t, stored.Workflow.PlanID)
	assert.Contains(t, stored.Workflow.LastError, "invalid prepOwner")
	assert.Equal(t, rejection.OperationID, stored.Workflow.LastOperationID)
	assert.Nil(t, stored.Lease)

	t.Run("the same phase can be retried", func(t *testing.T) {
		result := h.run(t, "SHP-1", RunCreatePlan)
		assert.NotEmpty(t, result.PlanID)
		assert.Empty(t, h.load(t, "SHP-1").Workflow.LastError)
	})
}

func TestOrchestrator_RemoteRejectionNamesShipmentSKU(t *testing.T) {
	h := newHarness(t, sandbox.DefaultConfig())
	h.seed(t, testShipment("SHP-1"))
	h.network.FailNext(sandbox.CallCreateInboundPlan,
		domain.Problem{Code: "FBA_INB_0004", Message: "Item MUG-RED. cannot be labeled by this owner. Accepted values: AMAZON or SELLER"},
		domain.Problem{Code: "FBA_INB_0019", Message: "SKU does not exist in the catalog"},
	)

	_, err := h.orchestrator.Run(context.Background(), RunCommand{ShipmentID: "SHP-1", Phase: RunCreatePlan})

	appErr := ToAppError(err)
	require.Len(t, appErr.Remote, 2)
	assert.Equal(t, "MUG-RED", appErr.Remote[0].SKU)
	assert.Equal(t, []string{"AMAZON", "SELLER"}, appErr.Remote[0].AcceptedValues)
	assert.Empty(t, appErr.Remote[1].SKU)
}

func TestOrchestrator_PreconditionMakesNoRemoteCalls(t *testing.T) {
	h := newHarness(t, sandbox.DefaultConfig())
	s := testShipment("SHP-1")
	s.SourceWarehouse.Address.City = ""
	s.Boxes[0].Items[0].Quantity = 29
	h.seed(t, s)

	_, err := h.orchestrator.Run(context.Background(), RunCommand{ShipmentID: "SHP-1", Phase: RunAll})

	var precondition *domain.PreconditionError
	require.ErrorAs(t, err, &precondition)
	assert.Zero(t, h.network.TotalCalls())

	appErr := ToAppError(err)
	assert.Equal(t, errors.CodePreconditionFailed, appErr.Code)
	assert.Contains(t, appErr.Details, "sourceWarehouse.address.city")
	assert.Equal(t, domain.PhaseNone, h.load(t, "SHP-1").Phase())
}

func TestOrchestrator_PhaseOrderIsEnforced(t *testing.T) {
	h := newHarness(t, sandbox.DefaultConfig())
	h.seed(t, testShipment("SHP-1"))

	_, err := h.orchestrator.Run(context.Background(), RunCommand{ShipmentID: "SHP-1", Phase: RunConfirmPlacement})

	var precondition *domain.PreconditionError
	require.ErrorAs(t, err, &precondition)
	assert.Equal(t, "workflow.phase", precondition.Fields[0].Field)
	assert.Zero(t, h.network.TotalCalls())
}

func TestOrchestrator_PollTimeout(t *testing.T) {
	h := newHarness(t, sandbox.DefaultConfig())
	h.seed(t, testShipment("SHP-1"))
	h.network.StallNext(sandbox.CallCreateInboundPlan)

	_, err := h.orchestrator.Run(context.Background(), RunCommand{ShipmentID: "SHP-1", Phase: RunCreatePlan})

	var timeout *domain.PollTimeoutError
	require.ErrorAs(t, err, &timeout)
	appErr := ToAppError(err)
	assert.Equal(t, errors.CodePollTimeout, appErr.Code)
	assert.True(t, appErr.Retryable())

	stored := h.load(t, "SHP-1")
	assert.Empty(t, stored.Workflow.PlanID)
	assert.Equal(t, domain.PhaseNone, stored.Phase())
	assert.Contains(t, stored.Workflow.LastError, "still pending")
	pending := stored.Workflow.PendingPlanID
	require.NotEmpty(t, pending)
	assert.Equal(t, timeout.OperationID, stored.Workflow.LastOperationID)

	// still pending: poll again, never create a second plan
	_, err = h.orchestrator.Run(context.Background(), RunCommand{ShipmentID: "SHP-1", Phase: RunCreatePlan})
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, 1, h.network.Calls(sandbox.CallCreateInboundPlan))

	h.network.SettleStalled()
	result := h.run(t, "SHP-1", RunCreatePlan)

	assert.Equal(t, pending, result.PlanID)
	assert.Equal(t, 1, h.network.Calls(sandbox.CallCreateInboundPlan))
	stored = h.load(t, "SHP-1")
	assert.Equal(t, domain.PhasePlanCreated, stored.Phase())
	assert.Empty(t, stored.Workflow.PendingPlanID)
}

func TestOrchestrator_PendingPlanFailedRemotely(t *testing.T) {
	h := newHarness(t, sandbox.DefaultConfig())
	h.seed(t, testShipment("SHP-1"))
	h.network.StallNext(sandbox.CallCreateInboundPlan)

	_, err := h.orchestrator.Run(context.Background(), RunCommand{ShipmentID: "SHP-1", Phase: RunCreatePlan})
	require.Error(t, err)
	pending := h.load(t, "SHP-1").Workflow.PendingPlanID
	require.NotEmpty(t, pending)

	h.network.SettleStalled(domain.Problem{Code: "InternalError", Message: "plan creation aborted"})
	result := h.run(t, "SHP-1", RunCreatePlan)

	assert.Equal(t, 2, h.network.Calls(sandbox.CallCreateInboundPlan))
	assert.NotEqual(t, pending, result.PlanID)
	stored := h.load(t, "SHP-1")
	assert.Equal(t, result.PlanID, stored.Workflow.PlanID)
	assert.Empty(t, stored.Workflow.PendingPlanID)
}

func TestOrchestrator_RunLease(t *testing.T) {
	ctx := context.Background()

	t.Run("a live lease keeps other runs out", func(t *testing.T) {
		h := newHarness(t, sandbox.DefaultConfig())
		h.seed(t, testShipment("SHP-1"))
		s := h.load(t, "SHP-1")
		require.NoError(t, s.ClaimRun("other-run", time.Hour, h.clock.Now()))
		require.NoError(t, h.shipments.Save(ctx, s))

		_, err := h.orchestrator.Run(ctx, RunCommand{ShipmentID: "SHP-1", Phase: RunAll})

		assert.ErrorIs(t, err, domain.ErrShipmentBusy)
		assert.Equal(t, errors.CodeConflict, ToAppError(err).Code)
		assert.Zero(t, h.network.TotalCalls())
		assert.Equal(t, "other-run", h.load(t, "SHP-1").Lease.RunID)
	})

	t.Run("an expired lease is taken over", func(t *testing.T) {
		h := newHarness(t, sandbox.DefaultConfig())
		h.seed(t, testShipment("SHP-1"))
		s := h.load(t, "SHP-1")
		require.NoError(t, s.ClaimRun("crashed-run", time.Minute, h.clock.Now().Add(-time.Hour)))
		require.NoError(t, h.shipments.Save(ctx, s))

		result := h.run(t, "SHP-1", RunCreatePlan)

		assert.NotEmpty(t, result.PlanID)
		assert.Nil(t, h.load(t, "SHP-1").Lease)
	})
}

// leaseWatch records every save that lands after the persisted lease ran out
type leaseWatch struct {
	*memory.ShipmentStore
	clock  *fakeClock
	lapses []time.Duration
}

func (w *leaseWatch) Save(ctx context.Context, s *domain.Shipment) error {
	stored, err := w.FindByID(ctx, s.ShipmentID)
	if err != nil {
		return err
	}
	if stored != nil && stored.Lease != nil {
		if late := w.clock.Now().Sub(stored.Lease.ExpiresAt); late > 0 {
			w.lapses = append(w.lapses, late)
		}
	}
	return w.ShipmentStore.Save(ctx, s)
}

func TestOrchestrator_LeaseRenewedAcrossLongRun(t *testing.T) {
	cfg := sandbox.DefaultConfig()
	cfg.PendingPolls = 2
	cfg.Destinations = 3
	h := newHarness(t, cfg)
	h.seed(t, testShipment("SHP-1"))

	watch := &leaseWatch{ShipmentStore: h.shipments, clock: h.clock}
	logger := logging.NewNop()
	poller := NewOperationPoller(h.network, h.clock, &PollerConfig{
		Interval:      time.Second,
		MaxInterval:   4 * time.Second,
		BackoffFactor: 2,
		Timeout:       30 * time.Second,
	}, logger, nil)
	executor := NewPhaseExecutor(h.network, watch, h.splits, poller, h.clock, nil, logger, nil)
	ttl := 12 * time.Second
	config := &OrchestratorConfig{LeaseTTL: ttl}
	orchestrator := NewOrchestrator(watch, h.splits, h.network, executor, h.clock, config, logger, nil)
	started := h.clock.Now()

	result, err := orchestrator.Run(context.Background(), RunCommand{ShipmentID: "SHP-1", Phase: RunAll})
	require.NoError(t, err)

	assert.Equal(t, string(domain.PhaseTransportConfirmed), result.Phase)
	assert.Len(t, result.ConfirmedSplits, 3)
	assert.Greater(t, h.clock.Now().Sub(started), ttl)
	assert.Empty(t, watch.lapses)
	assert.Nil(t, h.load(t, "SHP-1").Lease)
}

func TestOrchestrator_RunValidation(t *testing.T) {
	h := newHarness(t, sandbox.DefaultConfig())
	h.seed(t, testShipment("SHP-1"))
	ctx := context.Background()

	tests := []struct {
		name string
		cmd  RunCommand
		code string
	}{
		{"unknown phase", RunCommand{ShipmentID: "SHP-1", Phase: "ship_it"}, errors.CodeValidationError},
		{"select without option", RunCommand{ShipmentID: "SHP-1", Phase: RunSelectPlacement}, errors.CodeValidationError},
		{"unknown shipment", RunCommand{ShipmentID: "SHP-404", Phase: RunAll}, errors.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.orchestrator.Run(ctx, tt.cmd)
			require.Error(t, err)
			assert.Equal(t, tt.code, ToAppError(err).Code)
		})
	}
	assert.Zero(t, h.network.TotalCalls())
}
