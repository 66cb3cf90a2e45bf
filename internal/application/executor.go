package application

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wms-platform/inbound-service/internal/domain"
	"github.com/wms-platform/inbound-service/pkg/logging"
	"github.com/wms-platform/inbound-service/pkg/metrics"
	"github.com/wms-platform/inbound-service/pkg/tracing"
)

// ExecutorConfig tunes the phase executors
type ExecutorConfig struct {
	// ReadyToShipLeadTime is added to now to build the ready-to-ship date sent
	// with transport option generation.
	ReadyToShipLeadTime time.Duration `yaml:"readyToShipLeadTime"`
}

// DefaultExecutorConfig returns default executor settings
func DefaultExecutorConfig() *ExecutorConfig {
	return &ExecutorConfig{ReadyToShipLeadTime: 48 * time.Hour}
}

// PhaseOutcome is how a phase execution ended
type PhaseOutcome string

const (
	OutcomeCompleted      PhaseOutcome = "completed"
	OutcomeSkipped        PhaseOutcome = "skipped"
	OutcomeAwaitingChoice PhaseOutcome = "awaiting_choice"
	OutcomeFailed         PhaseOutcome = "failed"
)

// PhaseReport is what one phase execution produced
type PhaseReport struct {
	Phase               domain.Phase
	Outcome             PhaseOutcome
	SkipTo              RunPhase
	PlacementOptions    []domain.PlacementOption
	TransportCandidates []SplitCandidates
	ConfirmedSplits     []string
	PendingSplits       []string
}

// SplitCandidates are the options a person can choose from for one split
type SplitCandidates struct {
	Split            *domain.Split
	TransportOptions []domain.TransportOption
	DeliveryWindows  []domain.DeliveryWindowOption
}

// PhaseExecutor runs the individual workflow phases. Every phase checks its
// preconditions, skips when the persisted progress shows it is done, prefers
// adopting a choice the remote side already holds over confirming a new one,
// and only persists a new marker after the remote operation succeeded.
type PhaseExecutor struct {
	network   domain.FulfillmentNetwork
	shipments domain.ShipmentRepository
	splits    domain.SplitRepository
	poller    *OperationPoller
	clock     Clock
	config    *ExecutorConfig
	logger    *logging.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

// NewPhaseExecutor creates a new PhaseExecutor
func NewPhaseExecutor(
	network domain.FulfillmentNetwork,
	shipments domain.ShipmentRepository,
	splits domain.SplitRepository,
	poller *OperationPoller,
	clock Clock,
	config *ExecutorConfig,
	logger *logging.Logger,
	m *metrics.Metrics,
) *PhaseExecutor {
	if config == nil {
		config = DefaultExecutorConfig()
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &PhaseExecutor{
		network:   network,
		shipments: shipments,
		splits:    splits,
		poller:    poller,
		clock:     clock,
		config:    config,
		logger:    logger.WithComponent("phase-executor"),
		metrics:   m,
		tracer:    otel.Tracer("inbound-phases"),
	}
}

func (e *PhaseExecutor) run(ctx context.Context, s *domain.Shipment, phase domain.Phase, fn func(context.Context) (*PhaseReport, error)) (*PhaseReport, error) {
	ctx, span := e.tracer.Start(ctx, "phase."+string(phase),
		trace.WithAttributes(tracing.PhaseSpanAttributes(s.ShipmentID, string(phase), string(s.Phase()))...),
	)
	defer span.End()

	start := time.Now()
	e.logger.PhaseStart(ctx, s.ShipmentID, string(phase))

	report, err := fn(ctx)
	outcome := OutcomeFailed
	if err == nil {
		report.Phase = phase
		outcome = report.Outcome
	}

	duration := time.Since(start)
	e.metrics.RecordPhase(string(phase), string(outcome), duration)
	e.logger.PhaseComplete(ctx, s.ShipmentID, string(phase), string(outcome), duration)

	span.SetAttributes(attribute.String("phase.outcome", string(outcome)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	return report, nil
}

// fail records err as the shipment's last error and returns it unchanged.
// The marker is left where it is.
func (e *PhaseExecutor) fail(ctx context.Context, s *domain.Shipment, phase domain.Phase, operationID string, err error) error {
	log := e.logger.WithContext(ctx).WithError(err)

	var (
		rejection  *domain.RemoteRejectionError
		remoteCall *domain.RemoteCallError
	)
	if stderrors.As(err, &remoteCall) {
		remoteCall.SKUs = s.SKUs()
	}
	if stderrors.As(err, &rejection) {
		rejection.SKUs = s.SKUs()
		for _, p := range rejection.Problems {
			log.Warn("Remote problem",
				"shipmentId", s.ShipmentID,
				"phase", phase,
				"operationId", rejection.OperationID,
				"code", p.Code,
				"message", p.Message,
				"sku", p.SKUAmong(rejection.SKUs),
			)
		}
	}

	s.RecordFailure(phase, operationID, err.Error())
	if saveErr := e.shipments.Save(context.WithoutCancel(ctx), s); saveErr != nil {
		log.WithError(saveErr).Error("Failed to persist phase failure", "shipmentId", s.ShipmentID, "phase", phase)
	}
	return err
}

// keepLease renews the run lease between long remote steps of one phase
func (e *PhaseExecutor) keepLease(ctx context.Context, s *domain.Shipment) error {
	if !s.RenewRun(e.clock.Now()) {
		return nil
	}
	return saveLease(ctx, e.shipments, s)
}

func completed() *PhaseReport { return &PhaseReport{Outcome: OutcomeCompleted} }
func skipped() *PhaseReport   { return &PhaseReport{Outcome: OutcomeSkipped} }

func requirePhase(s *domain.Shipment, phase, required domain.Phase, hint RunPhase) error {
	if s.Phase().AtLeast(required) {
		return nil
	}
	return &domain.PreconditionError{
		Phase: phase,
		Fields: []domain.FieldProblem{{
			Field:   "workflow.phase",
			Message: fmt.Sprintf("is %s, must be at least %s; run %s first", s.Phase(), required, hint),
		}},
	}
}

// CreatePlan submits the shipment's items and source address as a new
// inbound plan.
func (e *PhaseExecutor) CreatePlan(ctx context.Context, s *domain.Shipment) (*PhaseReport, error) {
	phase := domain.PhasePlanCreated
	return e.run(ctx, s, phase, func(ctx context.Context) (*PhaseReport, error) {
		if err := s.ValidateForPlan(); err != nil {
			return nil, err
		}

		if s.Workflow.PlanID != "" {
			if s.Phase().AtLeast(phase) {
				return skipped(), nil
			}
			// plan id stored without the marker: finish the bookkeeping only
			if err := s.PlanCreated(s.Workflow.PlanID, ""); err != nil {
				return nil, err
			}
			if err := e.shipments.Save(ctx, s); err != nil {
				return nil, err
			}
			return completed(), nil
		}

		if s.Workflow.PendingPlanID != "" {
			adopted, err := e.adoptPendingPlan(ctx, s)
			if err != nil {
				return nil, err
			}
			if adopted {
				return completed(), nil
			}
		}

		req := domain.CreatePlanRequest{
			Name:            s.Name,
			SourceAddress:   s.SourceWarehouse.Address,
			DestinationHint: s.DestinationHint,
			Items:           s.PlanItems(),
		}
		planID, opID, err := e.network.CreateInboundPlan(ctx, req)
		if err != nil {
			return nil, e.fail(ctx, s, phase, opID, err)
		}
		if err := e.poller.Await(ctx, phase, opID); err != nil {
			var timeout *domain.PollTimeoutError
			if stderrors.As(err, &timeout) {
				s.PlanPending(planID, opID)
			}
			return nil, e.fail(ctx, s, phase, opID, err)
		}

		if err := e.planCreated(ctx, s, planID, opID); err != nil {
			return nil, err
		}
		return completed(), nil
	})
}

// adoptPendingPlan polls the creation of a plan an earlier run left pending.
// It reports false when that creation failed remotely and a new plan is needed.
func (e *PhaseExecutor) adoptPendingPlan(ctx context.Context, s *domain.Shipment) (bool, error) {
	planID, opID := s.Workflow.PendingPlanID, s.Workflow.LastOperationID

	err := e.poller.Await(ctx, domain.PhasePlanCreated, opID)
	var rejection *domain.RemoteRejectionError
	switch {
	case err == nil:
		if err := e.planCreated(ctx, s, planID, opID); err != nil {
			return false, err
		}
		return true, nil
	case stderrors.As(err, &rejection):
		e.logger.WithContext(ctx).Warn("Pending inbound plan failed remotely",
			"shipmentId", s.ShipmentID, "planId", planID, "operationId", opID)
		s.DropPendingPlan()
		return false, nil
	default:
		return false, e.fail(ctx, s, domain.PhasePlanCreated, opID, err)
	}
}

func (e *PhaseExecutor) planCreated(ctx context.Context, s *domain.Shipment, planID, opID string) error {
	if err := s.PlanCreated(planID, opID); err != nil {
		return err
	}
	if err := e.shipments.Save(ctx, s); err != nil {
		return err
	}
	e.logger.WithContext(ctx).Info("Inbound plan created", "shipmentId", s.ShipmentID, "planId", planID)
	return nil
}

// SetPacking confirms a packing option and submits the box-to-group assignment
func (e *PhaseExecutor) SetPacking(ctx context.Context, s *domain.Shipment) (*PhaseReport, error) {
	phase := domain.PhasePackingSet
	return e.run(ctx, s, phase, func(ctx context.Context) (*PhaseReport, error) {
		if err := requirePhase(s, phase, domain.PhasePlanCreated, RunCreatePlan); err != nil {
			return nil, err
		}
		if s.Phase().AtLeast(phase) {
			return skipped(), nil
		}

		planID := s.Workflow.PlanID
		option, _, opID, err := e.packingFlow(s).resolve(ctx, e)
		if err != nil {
			return nil, e.fail(ctx, s, phase, opID, err)
		}

		groups, err := e.packingGroups(ctx, planID, option.PackingGroups)
		if err != nil {
			return nil, e.fail(ctx, s, phase, opID, err)
		}
		boxes, assignment := assignBoxes(s.Boxes, groups)

		opID, err = e.network.SetPackingInformation(ctx, planID, assignment)
		if err == nil {
			err = e.poller.Await(ctx, phase, opID)
		}
		if err != nil {
			return nil, e.fail(ctx, s, phase, opID, err)
		}

		if err := s.PackingSet(option.ID, opID, boxes); err != nil {
			return nil, err
		}
		if err := e.shipments.Save(ctx, s); err != nil {
			return nil, err
		}
		return completed(), nil
	})
}

func (e *PhaseExecutor) packingFlow(s *domain.Shipment) optionFlow[domain.PackingOption] {
	planID := s.Workflow.PlanID
	return optionFlow[domain.PackingOption]{
		kind:   "packing",
		phase:  domain.PhasePackingSet,
		id:     func(o domain.PackingOption) string { return o.ID },
		status: func(o domain.PackingOption) domain.OptionStatus { return o.Status },
		list: func(ctx context.Context) ([]domain.PackingOption, error) {
			return e.network.ListPackingOptions(ctx, planID)
		},
		generate: func(ctx context.Context) (string, error) {
			return e.network.GeneratePackingOptions(ctx, planID)
		},
		choose: func(options []domain.PackingOption) (domain.PackingOption, error) {
			if len(options) == 0 {
				return domain.PackingOption{}, fmt.Errorf("packing: %w", domain.ErrNoOption)
			}
			return options[0], nil
		},
		confirm: func(ctx context.Context, o domain.PackingOption) (string, error) {
			return e.network.ConfirmPackingOption(ctx, planID, o.ID)
		},
	}
}

type packingGroup struct {
	ID   string
	SKUs map[string]bool
}

func (e *PhaseExecutor) packingGroups(ctx context.Context, planID string, groupIDs []string) ([]packingGroup, error) {
	if len(groupIDs) == 0 {
		return nil, fmt.Errorf("packing option has no packing groups: %w", domain.ErrNoOption)
	}
	groups := make([]packingGroup, 0, len(groupIDs))
	for _, id := range groupIDs {
		items, err := e.network.ListPackingGroupItems(ctx, planID, id)
		if err != nil {
			return nil, err
		}
		g := packingGroup{ID: id, SKUs: make(map[string]bool, len(items))}
		for _, item := range items {
			g.SKUs[item.SKU] = true
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// assignBoxes puts every box in the first group whose item set intersects the
// box contents. Boxes that match no group go to the first group.
func assignBoxes(boxes []domain.Box, groups []packingGroup) ([]domain.Box, []domain.PackingGroupBoxes) {
	assigned := make([]domain.Box, len(boxes))
	byGroup := make(map[string][]domain.Box, len(groups))

	for i, box := range boxes {
		box.PackingGroupID = groups[0].ID
	search:
		for _, g := range groups {
			for _, item := range box.Items {
				if g.SKUs[item.SKU] {
					box.PackingGroupID = g.ID
					break search
				}
			}
		}
		assigned[i] = box
		byGroup[box.PackingGroupID] = append(byGroup[box.PackingGroupID], box)
	}

	var result []domain.PackingGroupBoxes
	for _, g := range groups {
		if len(byGroup[g.ID]) > 0 {
			result = append(result, domain.PackingGroupBoxes{PackingGroupID: g.ID, Boxes: byGroup[g.ID]})
		}
	}
	return assigned, result
}

// ConfirmPlacement chooses a placement option through policy, confirms it and
// records one split per remote shipment the option produced.
func (e *PhaseExecutor) ConfirmPlacement(ctx context.Context, s *domain.Shipment, policy OptionPolicy) (*PhaseReport, error) {
	phase := domain.PhasePlacementConfirmed
	return e.run(ctx, s, phase, func(ctx context.Context) (*PhaseReport, error) {
		if err := requirePhase(s, phase, domain.PhasePackingSet, RunSetPacking); err != nil {
			return nil, err
		}
		if s.Phase().AtLeast(phase) {
			return skipped(), nil
		}

		flow := e.placementFlow(s, policy)
		chosen, options, opID, err := flow.resolve(ctx, e)
		if stderrors.Is(err, ErrChoiceRequired) {
			return &PhaseReport{Outcome: OutcomeAwaitingChoice, PlacementOptions: flow.offered(options)}, nil
		}
		var badChoice *InvalidChoiceError
		if stderrors.As(err, &badChoice) {
			return nil, err
		}
		if err != nil {
			return nil, e.fail(ctx, s, phase, opID, err)
		}

		if len(chosen.ShipmentIDs) == 0 {
			// some listings only carry the shipment ids once the option is confirmed
			if refreshed, lerr := flow.list(ctx); lerr == nil {
				for _, o := range refreshed {
					if o.ID == chosen.ID {
						chosen = o
					}
				}
			}
		}
		if len(chosen.ShipmentIDs) == 0 {
			return nil, e.fail(ctx, s, phase, opID, fmt.Errorf("placement option %s lists no shipments", chosen.ID))
		}

		for _, remoteID := range chosen.ShipmentIDs {
			if _, err := e.upsertSplit(ctx, s, remoteID); err != nil {
				return nil, e.fail(ctx, s, phase, opID, err)
			}
		}

		if err := s.PlacementConfirmed(chosen.ID, opID, chosen.ShipmentIDs); err != nil {
			return nil, err
		}
		if err := e.shipments.Save(ctx, s); err != nil {
			return nil, err
		}
		e.logger.WithContext(ctx).Info("Placement confirmed",
			"shipmentId", s.ShipmentID,
			"placementOptionId", chosen.ID,
			"splits", len(chosen.ShipmentIDs),
			"totalFee", chosen.TotalFee().String(),
		)
		return completed(), nil
	})
}

// PlacementCandidates returns the placement options for a person to choose
// from. When placement is already confirmed it reports where to continue
// instead, recovering the chosen id from the remote listing if it was lost.
func (e *PhaseExecutor) PlacementCandidates(ctx context.Context, s *domain.Shipment) (*PhaseReport, error) {
	phase := domain.PhasePlacementConfirmed
	return e.run(ctx, s, phase, func(ctx context.Context) (*PhaseReport, error) {
		if err := requirePhase(s, phase, domain.PhasePackingSet, RunSetPacking); err != nil {
			return nil, err
		}
		if s.Phase().AtLeast(phase) {
			if err := e.ensurePlacementID(ctx, s); err != nil {
				return nil, err
			}
			return &PhaseReport{Outcome: OutcomeSkipped, SkipTo: RunConfirmTransportInteractive}, nil
		}

		flow := e.placementFlow(s, AutomaticPolicy{})
		options, opID, err := flow.candidates(ctx, e)
		if err != nil {
			return nil, e.fail(ctx, s, phase, opID, err)
		}
		if accepted, ok := flow.accepted(options); ok {
			// confirmed remotely by an earlier run that never got to record it
			return &PhaseReport{Outcome: OutcomeAwaitingChoice, PlacementOptions: []domain.PlacementOption{accepted}}, nil
		}
		offered := flow.offered(options)
		if len(offered) == 0 {
			return nil, e.fail(ctx, s, phase, opID, fmt.Errorf("placement: %w", domain.ErrNoOption))
		}
		return &PhaseReport{Outcome: OutcomeAwaitingChoice, PlacementOptions: offered}, nil
	})
}

func (e *PhaseExecutor) placementFlow(s *domain.Shipment, policy OptionPolicy) optionFlow[domain.PlacementOption] {
	planID := s.Workflow.PlanID
	return optionFlow[domain.PlacementOption]{
		kind:   "placement",
		phase:  domain.PhasePlacementConfirmed,
		id:     func(o domain.PlacementOption) string { return o.ID },
		status: func(o domain.PlacementOption) domain.OptionStatus { return o.Status },
		list: func(ctx context.Context) ([]domain.PlacementOption, error) {
			return e.network.ListPlacementOptions(ctx, planID)
		},
		generate: func(ctx context.Context) (string, error) {
			return e.network.GeneratePlacementOptions(ctx, planID)
		},
		choose: policy.Placement,
		confirm: func(ctx context.Context, o domain.PlacementOption) (string, error) {
			return e.network.ConfirmPlacementOption(ctx, planID, o.ID)
		},
	}
}

func (e *PhaseExecutor) ensurePlacementID(ctx context.Context, s *domain.Shipment) error {
	if s.Workflow.PlacementOptionID != "" {
		return nil
	}
	flow := e.placementFlow(s, AutomaticPolicy{})
	options, err := flow.list(ctx)
	if err != nil {
		return err
	}
	accepted, ok := flow.accepted(options)
	if !ok {
		return &domain.PreconditionError{
			Phase:  domain.PhaseTransportConfirmed,
			Fields: []domain.FieldProblem{{Field: "workflow.placementOptionId", Message: "is missing and no confirmed placement option exists remotely"}},
		}
	}
	if s.RecoverPlacementOptionID(accepted.ID) {
		e.logger.WithContext(ctx).Info("Recovered placement option id from remote listing",
			"shipmentId", s.ShipmentID, "placementOptionId", accepted.ID)
		return e.shipments.Save(ctx, s)
	}
	return nil
}

func (e *PhaseExecutor) upsertSplit(ctx context.Context, s *domain.Shipment, remoteShipmentID string) (*domain.Split, error) {
	remote, err := e.network.GetShipment(ctx, s.Workflow.PlanID, remoteShipmentID)
	if err != nil {
		return nil, err
	}
	split, err := e.splits.FindByRemoteID(ctx, remoteShipmentID)
	if err != nil {
		return nil, err
	}
	if split == nil {
		split = domain.NewSplit(s.ShipmentID, s.Workflow.PlanID, *remote)
	} else {
		split.Refresh(*remote)
	}
	if err := e.splits.Save(ctx, split); err != nil {
		return nil, err
	}
	return split, nil
}

// ConfirmTransport arranges transport for every pending split and confirms the
// collected choices in one batch. Splits without a usable transport option or
// delivery window stay pending; only when none is usable does the phase fail.
func (e *PhaseExecutor) ConfirmTransport(ctx context.Context, s *domain.Shipment, policy OptionPolicy) (*PhaseReport, error) {
	phase := domain.PhaseTransportConfirmed
	return e.run(ctx, s, phase, func(ctx context.Context) (*PhaseReport, error) {
		if err := requirePhase(s, phase, domain.PhasePlacementConfirmed, RunConfirmPlacement); err != nil {
			return nil, err
		}
		splits, pending, err := e.loadSplits(ctx, s, phase)
		if err != nil {
			return nil, err
		}

		report := &PhaseReport{}
		if len(pending) == 0 {
			report.ConfirmedSplits = splitIDs(splits)
			if s.Phase().AtLeast(phase) {
				report.Outcome = OutcomeSkipped
				return report, nil
			}
			// every split confirmed but the marker was never written
			if err := s.TransportConfirmed("", nil); err != nil {
				return nil, err
			}
			if err := e.shipments.Save(ctx, s); err != nil {
				return nil, err
			}
			report.Outcome = OutcomeCompleted
			return report, nil
		}
		if err := e.ensurePlacementID(ctx, s); err != nil {
			return nil, err
		}

		type pick struct {
			split  *domain.Split
			option domain.TransportOption
		}

		var (
			picks    []pick
			awaiting []SplitCandidates
		)
		for _, split := range pending {
			if err := e.keepLease(ctx, s); err != nil {
				return nil, err
			}
			flow := e.transportFlow(s, split, policy)
			options, opID, err := flow.candidates(ctx, e)
			if err != nil {
				if isRejection(err) {
					e.skipSplit(ctx, split, err.Error(), report)
					continue
				}
				return nil, e.fail(ctx, s, phase, opID, err)
			}

			option, ok := flow.accepted(options)
			if !ok {
				option, err = flow.choose(flow.offered(options))
			}
			switch {
			case stderrors.Is(err, ErrChoiceRequired):
				awaiting = append(awaiting, SplitCandidates{
					Split:            split,
					TransportOptions: flow.offered(options),
					DeliveryWindows:  e.windowCandidates(ctx, s, split),
				})
				continue
			case stderrors.Is(err, domain.ErrNoOption):
				e.skipSplit(ctx, split, "no transport option available", report)
				continue
			case err != nil:
				return nil, err
			}
			picks = append(picks, pick{split: split, option: option})
		}

		if len(awaiting) > 0 {
			report.Outcome = OutcomeAwaitingChoice
			report.TransportCandidates = awaiting
			report.PendingSplits = splitIDs(pending)
			return report, nil
		}

		var ready []pick
		for _, p := range picks {
			if err := e.keepLease(ctx, s); err != nil {
				return nil, err
			}
			window, _, opID, err := e.windowFlow(s, p.split, policy).resolve(ctx, e)
			switch {
			case stderrors.Is(err, domain.ErrNoOption):
				e.skipSplit(ctx, p.split, "no delivery window available", report)
				continue
			case isRejection(err):
				e.skipSplit(ctx, p.split, err.Error(), report)
				continue
			case err != nil:
				var badChoice *InvalidChoiceError
				if stderrors.As(err, &badChoice) {
					return nil, err
				}
				return nil, e.fail(ctx, s, phase, opID, err)
			}

			p.split.ChooseTransport(p.option, window)
			if err := e.splits.Save(ctx, p.split); err != nil {
				return nil, err
			}
			ready = append(ready, p)
		}

		if len(ready) == 0 {
			return nil, e.fail(ctx, s, phase, "", &domain.NoTransportOptionsError{PendingSplits: splitIDs(pending)})
		}

		var selections []domain.TransportSelection
		for _, p := range ready {
			if !p.option.Status.IsAccepted() {
				selections = append(selections, domain.TransportSelection{
					ShipmentID:        p.split.RemoteShipmentID,
					TransportOptionID: p.option.ID,
				})
			}
		}

		var opID string
		if len(selections) > 0 {
			if err := e.keepLease(ctx, s); err != nil {
				return nil, err
			}
			opID, err = e.network.ConfirmTransportationOptions(ctx, s.Workflow.PlanID, selections)
			if err == nil {
				err = e.poller.Await(ctx, phase, opID)
			}
			if err != nil {
				if !IsAlreadyConfirmed(err) {
					return nil, e.fail(ctx, s, phase, opID, err)
				}
				e.logger.WithContext(ctx).Info("Transport already confirmed remotely", "shipmentId", s.ShipmentID, "operationId", opID)
			}
		}

		for _, p := range ready {
			p.split.ConfirmTransport()
			if err := e.splits.Save(ctx, p.split); err != nil {
				return nil, err
			}
			e.metrics.RecordSplit("confirmed")
			report.ConfirmedSplits = append(report.ConfirmedSplits, p.split.RemoteShipmentID)
		}

		if err := s.TransportConfirmed(opID, report.ConfirmedSplits); err != nil {
			return nil, err
		}
		if err := e.shipments.Save(ctx, s); err != nil {
			return nil, err
		}
		report.Outcome = OutcomeCompleted
		return report, nil
	})
}

// TransportCandidates lists transport and delivery window options for every
// pending split without confirming anything.
func (e *PhaseExecutor) TransportCandidates(ctx context.Context, s *domain.Shipment) (*PhaseReport, error) {
	phase := domain.PhaseTransportConfirmed
	return e.run(ctx, s, phase, func(ctx context.Context) (*PhaseReport, error) {
		if err := requirePhase(s, phase, domain.PhasePlacementConfirmed, RunConfirmPlacement); err != nil {
			return nil, err
		}
		splits, pending, err := e.loadSplits(ctx, s, phase)
		if err != nil {
			return nil, err
		}
		if len(pending) == 0 {
			return &PhaseReport{Outcome: OutcomeSkipped, ConfirmedSplits: splitIDs(splits)}, nil
		}
		if err := e.ensurePlacementID(ctx, s); err != nil {
			return nil, err
		}

		report := &PhaseReport{Outcome: OutcomeAwaitingChoice, PendingSplits: splitIDs(pending)}
		for _, split := range pending {
			if err := e.keepLease(ctx, s); err != nil {
				return nil, err
			}
			flow := e.transportFlow(s, split, AutomaticPolicy{})
			options, opID, err := flow.candidates(ctx, e)
			if err != nil {
				if isRejection(err) {
					e.logger.WithContext(ctx).WithError(err).Warn("No transport candidates for split", "remoteShipmentId", split.RemoteShipmentID)
					continue
				}
				return nil, e.fail(ctx, s, phase, opID, err)
			}
			report.TransportCandidates = append(report.TransportCandidates, SplitCandidates{
				Split:            split,
				TransportOptions: flow.offered(options),
				DeliveryWindows:  e.windowCandidates(ctx, s, split),
			})
		}
		return report, nil
	})
}

func (e *PhaseExecutor) loadSplits(ctx context.Context, s *domain.Shipment, phase domain.Phase) ([]*domain.Split, []*domain.Split, error) {
	splits, err := e.splits.FindByShipmentID(ctx, s.ShipmentID)
	if err != nil {
		return nil, nil, err
	}
	if len(splits) == 0 {
		return nil, nil, &domain.PreconditionError{
			Phase:  phase,
			Fields: []domain.FieldProblem{{Field: "splits", Message: "none recorded; run confirm_placement first"}},
		}
	}
	var pending []*domain.Split
	for _, split := range splits {
		if split.IsPending() {
			pending = append(pending, split)
		}
	}
	return splits, pending, nil
}

func (e *PhaseExecutor) skipSplit(ctx context.Context, split *domain.Split, reason string, report *PhaseReport) {
	e.logger.WithContext(ctx).Warn("Split left pending",
		"shipmentId", split.ShipmentID,
		"remoteShipmentId", split.RemoteShipmentID,
		"reason", reason,
	)
	split.RecordFailure(reason)
	if err := e.splits.Save(ctx, split); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to persist split error", "remoteShipmentId", split.RemoteShipmentID)
	}
	e.metrics.RecordSplit("pending")
	report.PendingSplits = append(report.PendingSplits, split.RemoteShipmentID)
}

func (e *PhaseExecutor) readyToShip() time.Time {
	return e.clock.Now().Add(e.config.ReadyToShipLeadTime).UTC()
}

func (e *PhaseExecutor) transportFlow(s *domain.Shipment, split *domain.Split, policy OptionPolicy) optionFlow[domain.TransportOption] {
	planID, shipmentID := s.Workflow.PlanID, split.RemoteShipmentID
	return optionFlow[domain.TransportOption]{
		kind:   "transport",
		phase:  domain.PhaseTransportConfirmed,
		id:     func(o domain.TransportOption) string { return o.ID },
		status: func(o domain.TransportOption) domain.OptionStatus { return o.Status },
		list: func(ctx context.Context) ([]domain.TransportOption, error) {
			options, err := e.network.ListTransportationOptions(ctx, planID, shipmentID)
			if err != nil {
				return nil, err
			}
			var own []domain.TransportOption
			for _, o := range options {
				if o.ShipmentID == shipmentID {
					own = append(own, o)
				}
			}
			return own, nil
		},
		generate: func(ctx context.Context) (string, error) {
			return e.network.GenerateTransportationOptions(ctx, planID, s.Workflow.PlacementOptionID, shipmentID, e.readyToShip())
		},
		choose: func(options []domain.TransportOption) (domain.TransportOption, error) {
			return policy.Transport(shipmentID, options)
		},
	}
}

func (e *PhaseExecutor) windowFlow(s *domain.Shipment, split *domain.Split, policy OptionPolicy) optionFlow[domain.DeliveryWindowOption] {
	planID, shipmentID := s.Workflow.PlanID, split.RemoteShipmentID
	return optionFlow[domain.DeliveryWindowOption]{
		kind:   "delivery window",
		phase:  domain.PhaseTransportConfirmed,
		id:     func(o domain.DeliveryWindowOption) string { return o.ID },
		status: func(o domain.DeliveryWindowOption) domain.OptionStatus { return o.Status },
		list: func(ctx context.Context) ([]domain.DeliveryWindowOption, error) {
			return e.network.ListDeliveryWindowOptions(ctx, planID, shipmentID)
		},
		generate: func(ctx context.Context) (string, error) {
			return e.network.GenerateDeliveryWindowOptions(ctx, planID, shipmentID)
		},
		choose: func(windows []domain.DeliveryWindowOption) (domain.DeliveryWindowOption, error) {
			return policy.DeliveryWindow(shipmentID, windows)
		},
		confirm: func(ctx context.Context, w domain.DeliveryWindowOption) (string, error) {
			return e.network.ConfirmDeliveryWindowOption(ctx, planID, shipmentID, w.ID)
		},
	}
}

func (e *PhaseExecutor) windowCandidates(ctx context.Context, s *domain.Shipment, split *domain.Split) []domain.DeliveryWindowOption {
	flow := e.windowFlow(s, split, AutomaticPolicy{})
	windows, _, err := flow.candidates(ctx, e)
	if err != nil {
		e.logger.WithContext(ctx).WithError(err).Warn("Could not list delivery windows", "remoteShipmentId", split.RemoteShipmentID)
		return nil
	}
	return flow.offered(windows)
}

func isRejection(err error) bool {
	var rejection *domain.RemoteRejectionError
	if stderrors.As(err, &rejection) {
		return true
	}
	var remote *domain.RemoteCallError
	return stderrors.As(err, &remote) && !remote.Temporary()
}

func splitIDs(splits []*domain.Split) []string {
	ids := make([]string, len(splits))
	for i, s := range splits {
		ids[i] = s.RemoteShipmentID
	}
	return ids
}
