package application

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/wms-platform/inbound-service/internal/domain"
	"github.com/wms-platform/inbound-service/pkg/errors"
	"github.com/wms-platform/inbound-service/pkg/logging"
	"github.com/wms-platform/inbound-service/pkg/metrics"
	"github.com/wms-platform/inbound-service/pkg/temporal"
)

// SubmissionStarter starts the durable submission workflow for a shipment
type SubmissionStarter interface {
	StartSubmission(ctx context.Context, shipmentID string) (workflowID, runID string, err error)
}

// ShipmentService handles shipment intake and read use cases
type ShipmentService struct {
	shipments domain.ShipmentRepository
	splits    domain.SplitRepository
	starter   SubmissionStarter
	logger    *logging.Logger
	metrics   *metrics.Metrics
}

// NewShipmentService creates a new ShipmentService. starter may be nil when
// no workflow engine is configured.
func NewShipmentService(
	shipments domain.ShipmentRepository,
	splits domain.SplitRepository,
	starter SubmissionStarter,
	logger *logging.Logger,
	m *metrics.Metrics,
) *ShipmentService {
	return &ShipmentService{
		shipments: shipments,
		splits:    splits,
		starter:   starter,
		logger:    logger.WithComponent("shipment-service"),
		metrics:   m,
	}
}

// CreateShipment stores a new draft shipment
func (s *ShipmentService) CreateShipment(ctx context.Context, cmd CreateShipmentCommand) (*ShipmentDTO, error) {
	shipment := domain.NewShipment(
		cmd.ShipmentID,
		cmd.Name,
		cmd.SourceWarehouse,
		cmd.DestinationHint,
		cmd.Items,
		cmd.Boxes,
	)

	if err := s.shipments.Create(ctx, shipment); err != nil {
		if stderrors.Is(err, domain.ErrShipmentExists) {
			return nil, errors.ErrConflict("shipment already exists").WithDetail("shipmentId", cmd.ShipmentID)
		}
		s.logger.WithError(err).Error("Failed to create shipment", "shipmentId", cmd.ShipmentID)
		return nil, fmt.Errorf("failed to create shipment: %w", err)
	}

	s.logger.Event(ctx, "shipment.created", map[string]any{
		"shipmentId": cmd.ShipmentID,
		"items":      len(cmd.Items),
		"boxes":      len(cmd.Boxes),
	})
	return ToShipmentDTO(shipment), nil
}

// GetShipment retrieves a shipment by ID
func (s *ShipmentService) GetShipment(ctx context.Context, query GetShipmentQuery) (*ShipmentDTO, error) {
	shipment, err := s.load(ctx, query.ShipmentID)
	if err != nil {
		return nil, err
	}
	return ToShipmentDTO(shipment), nil
}

// ListSplits returns the splits recorded for a shipment
func (s *ShipmentService) ListSplits(ctx context.Context, query GetShipmentQuery) ([]SplitDTO, error) {
	if _, err := s.load(ctx, query.ShipmentID); err != nil {
		return nil, err
	}
	splits, err := s.splits.FindByShipmentID(ctx, query.ShipmentID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list splits", "shipmentId", query.ShipmentID)
		return nil, fmt.Errorf("failed to list splits: %w", err)
	}
	return ToSplitDTOs(splits), nil
}

// StartSubmission hands the shipment to the durable workflow. Shipments that
// have not been planned yet are checked up front so obviously incomplete data
// fails here instead of inside the workflow.
func (s *ShipmentService) StartSubmission(ctx context.Context, cmd StartSubmissionCommand) (*SubmissionDTO, error) {
	if s.starter == nil {
		return nil, errors.ErrServiceUnavailable("workflow engine")
	}
	shipment, err := s.load(ctx, cmd.ShipmentID)
	if err != nil {
		return nil, err
	}
	if shipment.Phase() == domain.PhaseNone {
		if err := shipment.ValidateForPlan(); err != nil {
			return nil, ToAppError(err)
		}
	}

	workflowID, runID, err := s.starter.StartSubmission(ctx, shipment.ShipmentID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to start submission workflow", "shipmentId", cmd.ShipmentID)
		return nil, errors.ErrServiceUnavailable("workflow engine").Wrap(err)
	}

	s.logger.WithShipment(cmd.ShipmentID).WorkflowStart(ctx, temporal.WorkflowNames.InboundSubmission, workflowID)
	s.metrics.RecordWorkflowStarted(temporal.WorkflowNames.InboundSubmission)
	return &SubmissionDTO{ShipmentID: shipment.ShipmentID, WorkflowID: workflowID, RunID: runID}, nil
}

func (s *ShipmentService) load(ctx context.Context, shipmentID string) (*domain.Shipment, error) {
	shipment, err := s.shipments.FindByID(ctx, shipmentID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get shipment", "shipmentId", shipmentID)
		return nil, fmt.Errorf("failed to get shipment: %w", err)
	}
	if shipment == nil {
		return nil, errors.ErrNotFoundWithID("shipment", shipmentID)
	}
	return shipment, nil
}
