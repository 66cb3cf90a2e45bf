// Package workflows holds the durable submission workflow
package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/wms-platform/inbound-service/internal/activities"
	"github.com/wms-platform/inbound-service/internal/application"
	temporalpkg "github.com/wms-platform/inbound-service/pkg/temporal"
)

// Activity timeouts. A phase may poll the remote operation for several minutes.
const (
	PhaseActivityTimeout time.Duration = 20 * time.Minute
	LabelActivityTimeout time.Duration = 5 * time.Minute
)

// QueryProgress is the query handler name for the submission progress
const QueryProgress = "progress"

// Submission statuses
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// SubmissionPhases are the automatic run phases, in order
var SubmissionPhases = []application.RunPhase{
	application.RunCreatePlan,
	application.RunSetPacking,
	application.RunConfirmPlacement,
	application.RunConfirmTransport,
}

// SubmissionInput is the input of InboundSubmissionWorkflow
type SubmissionInput struct {
	ShipmentID string `json:"shipmentId"`
}

// SubmissionResult is the progress and outcome of a submission
type SubmissionResult struct {
	ShipmentID  string                       `json:"shipmentId"`
	Status      string                       `json:"status"`
	Phase       string                       `json:"phase"`
	Completed   []string                     `json:"completed"`
	FailedPhase string                       `json:"failedPhase,omitempty"`
	Error       string                       `json:"error,omitempty"`
	Splits      []string                     `json:"splits,omitempty"`
	Labels      *application.LabelsResultDTO `json:"labels,omitempty"`
	LabelsError string                       `json:"labelsError,omitempty"`
}

// InboundSubmissionWorkflow drives a shipment through every phase up to
// transport confirmation, then requests labels. Each phase is one activity;
// the orchestrator skips phases that already completed, so a restarted
// workflow resumes where the shipment stands.
func InboundSubmissionWorkflow(ctx workflow.Context, input SubmissionInput) (*SubmissionResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting inbound submission workflow", "shipmentId", input.ShipmentID)

	result := &SubmissionResult{ShipmentID: input.ShipmentID, Status: StatusInProgress, Phase: "none"}
	if err := workflow.SetQueryHandler(ctx, QueryProgress, func() (*SubmissionResult, error) {
		return result, nil
	}); err != nil {
		return nil, err
	}

	phaseCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: PhaseActivityTimeout,
		RetryPolicy:         temporalpkg.DefaultRetryPolicy(activities.NonRetryableErrorTypes...),
	})

	for _, phase := range SubmissionPhases {
		logger.Info("Running phase", "shipmentId", input.ShipmentID, "runPhase", phase)

		var out activities.RunPhaseOutput
		err := workflow.ExecuteActivity(phaseCtx, "RunSubmissionPhase", activities.RunPhaseInput{
			ShipmentID: input.ShipmentID,
			Phase:      string(phase),
		}).Get(ctx, &out)
		if err != nil {
			result.Status = StatusFailed
			result.FailedPhase = string(phase)
			result.Error = err.Error()
			logger.Error("Phase failed", "shipmentId", input.ShipmentID, "runPhase", phase, "error", err)
			return result, fmt.Errorf("phase %s failed: %w", phase, err)
		}

		result.Phase = out.Phase
		result.Completed = append(result.Completed, string(phase))
		if len(out.Splits) > 0 {
			result.Splits = out.Splits
		}
	}

	// Labels are best effort; the shipment is already submitted
	labelCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: LabelActivityTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        10 * time.Second,
			BackoffCoefficient:     2.0,
			MaximumAttempts:        3,
			NonRetryableErrorTypes: activities.NonRetryableErrorTypes,
		},
	})
	var labels application.LabelsResultDTO
	if err := workflow.ExecuteActivity(labelCtx, "RequestSubmissionLabels", activities.RequestLabelsInput{
		ShipmentID: input.ShipmentID,
	}).Get(ctx, &labels); err != nil {
		logger.Warn("Label request failed", "shipmentId", input.ShipmentID, "error", err)
		result.LabelsError = err.Error()
	} else {
		result.Labels = &labels
	}

	result.Status = StatusCompleted
	logger.Info("Inbound submission completed", "shipmentId", input.ShipmentID, "splits", len(result.Splits))
	return result, nil
}
