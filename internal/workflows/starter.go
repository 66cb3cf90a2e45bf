package workflows

import (
	"context"

	"go.temporal.io/sdk/client"

	temporalpkg "github.com/wms-platform/inbound-service/pkg/temporal"
)

// WorkflowStarter starts workflow executions by name
type WorkflowStarter interface {
	StartWorkflow(ctx context.Context, workflowID, workflowName string, args ...any) (client.WorkflowRun, error)
}

// Starter starts InboundSubmissionWorkflow for a shipment
type Starter struct {
	client WorkflowStarter
}

// NewStarter creates a Starter
func NewStarter(c WorkflowStarter) *Starter {
	return &Starter{client: c}
}

// SubmissionWorkflowID is the workflow id of a shipment's submission. One id
// per shipment keeps a second start attached to the running execution.
func SubmissionWorkflowID(shipmentID string) string {
	return "inbound-submission-" + shipmentID
}

// StartSubmission implements application.SubmissionStarter
func (s *Starter) StartSubmission(ctx context.Context, shipmentID string) (string, string, error) {
	run, err := s.client.StartWorkflow(ctx, SubmissionWorkflowID(shipmentID), temporalpkg.WorkflowNames.InboundSubmission,
		SubmissionInput{ShipmentID: shipmentID})
	if err != nil {
		return "", "", err
	}
	return run.GetID(), run.GetRunID(), nil
}
