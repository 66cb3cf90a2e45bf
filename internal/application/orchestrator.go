package application

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wms-platform/inbound-service/internal/domain"
	"github.com/wms-platform/inbound-service/pkg/errors"
	"github.com/wms-platform/inbound-service/pkg/logging"
	"github.com/wms-platform/inbound-service/pkg/metrics"
)

// OrchestratorConfig holds orchestrator settings
type OrchestratorConfig struct {
	// LeaseTTL bounds how long a crashed run keeps other runs out
	LeaseTTL time.Duration `yaml:"leaseTtl"`
}

// MaxAwaitsPerLease is the most remote operations a run waits on between two
// lease writes. The lease must outlast that many poll timeouts.
const MaxAwaitsPerLease = 3

// DefaultOrchestratorConfig returns default orchestrator settings
func DefaultOrchestratorConfig() *OrchestratorConfig {
	return &OrchestratorConfig{LeaseTTL: 15 * time.Minute}
}

// Orchestrator sequences the phase executors for one shipment per call,
// either automatically or one interactive step at a time.
type Orchestrator struct {
	shipments domain.ShipmentRepository
	splits    domain.SplitRepository
	network   domain.FulfillmentNetwork
	executor  *PhaseExecutor
	clock     Clock
	config    *OrchestratorConfig
	logger    *logging.Logger
	metrics   *metrics.Metrics
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(
	shipments domain.ShipmentRepository,
	splits domain.SplitRepository,
	network domain.FulfillmentNetwork,
	executor *PhaseExecutor,
	clock Clock,
	config *OrchestratorConfig,
	logger *logging.Logger,
	m *metrics.Metrics,
) *Orchestrator {
	if config == nil {
		config = DefaultOrchestratorConfig()
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Orchestrator{
		shipments: shipments,
		splits:    splits,
		network:   network,
		executor:  executor,
		clock:     clock,
		config:    config,
		logger:    logger.WithComponent("orchestrator"),
		metrics:   m,
	}
}

// Run executes cmd against the shipment while holding its run lease
func (o *Orchestrator) Run(ctx context.Context, cmd RunCommand) (*RunResultDTO, error) {
	if !cmd.Phase.IsValid() {
		return nil, errors.ErrValidation(fmt.Sprintf("unknown phase %q", cmd.Phase)).WithDetail("phase", string(cmd.Phase))
	}
	if cmd.Phase == RunSelectPlacement && cmd.PlacementOptionID == "" {
		return nil, errors.ErrValidation("placementOptionId is required for select_placement")
	}

	shipment, err := o.shipments.FindByID(ctx, cmd.ShipmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get shipment: %w", err)
	}
	if shipment == nil {
		return nil, errors.ErrNotFoundWithID("shipment", cmd.ShipmentID)
	}

	runID := uuid.NewString()
	ctx = logging.ContextWithRunID(ctx, runID)
	log := o.logger.WithContext(ctx).WithShipment(shipment.ShipmentID)

	if err := o.claim(ctx, shipment, runID); err != nil {
		log.WithError(err).Warn("Could not claim shipment", "runPhase", cmd.Phase)
		return nil, err
	}
	defer o.release(ctx, shipment, runID)

	log.Info("Run started", "runPhase", cmd.Phase, "phase", shipment.Phase())
	reports, err := o.dispatch(ctx, shipment, runID, cmd)
	if err != nil {
		log.WithError(err).Warn("Run failed", "runPhase", cmd.Phase, "phase", shipment.Phase())
		return nil, err
	}

	result, err := o.result(ctx, shipment, cmd, reports)
	if err != nil {
		return nil, err
	}
	log.Info("Run finished", "runPhase", cmd.Phase, "phase", result.Phase, "awaitingChoice", result.AwaitingChoice)
	return result, nil
}

// claim takes or extends the run lease and persists it
func (o *Orchestrator) claim(ctx context.Context, s *domain.Shipment, runID string) error {
	if err := s.ClaimRun(runID, o.config.LeaseTTL, o.clock.Now()); err != nil {
		return err
	}
	return saveLease(ctx, o.shipments, s)
}

// saveLease writes the lease. Losing the version race means another run got in.
func saveLease(ctx context.Context, shipments domain.ShipmentRepository, s *domain.Shipment) error {
	if err := shipments.Save(ctx, s); err != nil {
		if stderrors.Is(err, domain.ErrConcurrentModification) {
			return domain.ErrShipmentBusy
		}
		return fmt.Errorf("failed to save run lease: %w", err)
	}
	return nil
}

func (o *Orchestrator) release(ctx context.Context, s *domain.Shipment, runID string) {
	if !s.ReleaseRun(runID) {
		return
	}
	if err := o.shipments.Save(context.WithoutCancel(ctx), s); err != nil {
		o.logger.WithContext(ctx).WithError(err).Warn("Failed to release run lease; it will expire",
			"shipmentId", s.ShipmentID)
	}
}

type phaseStep func(context.Context, *domain.Shipment) (*PhaseReport, error)

func (o *Orchestrator) dispatch(ctx context.Context, s *domain.Shipment, runID string, cmd RunCommand) ([]*PhaseReport, error) {
	e := o.executor
	auto := AutomaticPolicy{}
	interactive := InteractivePolicy{
		PlacementOptionID:     cmd.PlacementOptionID,
		TransportChoices:      cmd.TransportChoices,
		DeliveryWindowChoices: cmd.DeliveryWindowChoices,
	}

	placement := func(p OptionPolicy) phaseStep {
		return func(ctx context.Context, s *domain.Shipment) (*PhaseReport, error) {
			return e.ConfirmPlacement(ctx, s, p)
		}
	}
	transport := func(p OptionPolicy) phaseStep {
		return func(ctx context.Context, s *domain.Shipment) (*PhaseReport, error) {
			return e.ConfirmTransport(ctx, s, p)
		}
	}

	var steps []phaseStep
	switch cmd.Phase {
	case RunAll:
		steps = []phaseStep{e.CreatePlan, e.SetPacking, placement(auto), transport(auto)}
	case RunCreatePlan:
		steps = []phaseStep{e.CreatePlan}
	case RunSetPacking:
		steps = []phaseStep{e.SetPacking}
	case RunConfirmPlacement:
		steps = []phaseStep{placement(auto)}
	case RunConfirmTransport:
		steps = []phaseStep{transport(auto)}
	case RunGetPlacementOptions:
		steps = []phaseStep{e.PlacementCandidates}
	case RunSelectPlacement:
		steps = []phaseStep{placement(interactive), e.TransportCandidates}
	case RunConfirmTransportInteractive:
		steps = []phaseStep{transport(interactive)}
	}

	reports := make([]*PhaseReport, 0, len(steps))
	for i, step := range steps {
		if i > 0 {
			if err := o.claim(ctx, s, runID); err != nil {
				return nil, err
			}
		}
		report, err := step(ctx, s)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
		if report.Outcome == OutcomeAwaitingChoice {
			break
		}
	}
	return reports, nil
}

func (o *Orchestrator) result(ctx context.Context, s *domain.Shipment, cmd RunCommand, reports []*PhaseReport) (*RunResultDTO, error) {
	result := &RunResultDTO{
		ShipmentID:        s.ShipmentID,
		RunPhase:          string(cmd.Phase),
		Phase:             string(s.Phase()),
		Status:            string(s.Status),
		PlanID:            s.Workflow.PlanID,
		PackingOptionID:   s.Workflow.PackingOptionID,
		PlacementOptionID: s.Workflow.PlacementOptionID,
	}

	for _, r := range reports {
		if r.Outcome == OutcomeSkipped {
			result.Skipped = append(result.Skipped, string(r.Phase))
		} else {
			result.Executed = append(result.Executed, string(r.Phase))
		}
		if r.Outcome == OutcomeAwaitingChoice {
			result.AwaitingChoice = true
		}
		if r.SkipTo != "" {
			result.SkipTo = string(r.SkipTo)
		}
		if len(r.PlacementOptions) > 0 {
			result.PlacementOptions = ToPlacementOptionDTOs(r.PlacementOptions)
		}
		for _, c := range r.TransportCandidates {
			result.TransportCandidates = append(result.TransportCandidates, toSplitCandidatesDTO(c))
		}
		if r.Phase == domain.PhaseTransportConfirmed {
			result.ConfirmedSplits = r.ConfirmedSplits
			result.PendingSplits = r.PendingSplits
		}
	}

	if s.Phase().AtLeast(domain.PhasePlacementConfirmed) {
		splits, err := o.splits.FindByShipmentID(ctx, s.ShipmentID)
		if err != nil {
			return nil, fmt.Errorf("failed to load splits: %w", err)
		}
		result.Splits = ToSplitDTOs(splits)
	}
	return result, nil
}

func toSplitCandidatesDTO(c SplitCandidates) SplitCandidatesDTO {
	dto := SplitCandidatesDTO{
		RemoteShipmentID:    c.Split.RemoteShipmentID,
		DestinationFacility: c.Split.DestinationFacility,
		TransportOptions:    make([]TransportOptionDTO, len(c.TransportOptions)),
	}
	for i, o := range c.TransportOptions {
		dto.TransportOptions[i] = ToTransportOptionDTO(o)
	}
	for _, w := range c.DeliveryWindows {
		dto.DeliveryWindows = append(dto.DeliveryWindows, ToDeliveryWindowDTO(w))
	}
	return dto
}
