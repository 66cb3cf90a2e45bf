// Package activities exposes the orchestrator to the submission workflow
package activities

import (
	"context"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/wms-platform/inbound-service/internal/application"
	"github.com/wms-platform/inbound-service/pkg/errors"
	"github.com/wms-platform/inbound-service/pkg/logging"
	"github.com/wms-platform/inbound-service/pkg/metrics"
)

// NonRetryableErrorTypes are the error codes that repeat the same way on
// every attempt. They double as the workflow retry policy's non-retryable types.
var NonRetryableErrorTypes = []string{
	errors.CodeValidationError,
	errors.CodeBadRequest,
	errors.CodeNotFound,
	errors.CodePreconditionFailed,
	errors.CodeRemoteRejected,
	errors.CodeNoOptionAvailable,
}

// PhaseRunner is the part of the orchestrator the activities drive
type PhaseRunner interface {
	Run(ctx context.Context, cmd application.RunCommand) (*application.RunResultDTO, error)
	RequestLabels(ctx context.Context, cmd application.RequestLabelsCommand) (*application.LabelsResultDTO, error)
}

// SubmissionActivities contains the activities of the submission workflow
type SubmissionActivities struct {
	runner  PhaseRunner
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// NewSubmissionActivities creates a new SubmissionActivities instance
func NewSubmissionActivities(runner PhaseRunner, logger *logging.Logger, m *metrics.Metrics) *SubmissionActivities {
	return &SubmissionActivities{
		runner:  runner,
		logger:  logger.WithComponent("submission-activities"),
		metrics: m,
	}
}

// RunPhaseInput names the shipment and the run phase to execute
type RunPhaseInput struct {
	ShipmentID string `json:"shipmentId"`
	Phase      string `json:"phase"`
}

// RunPhaseOutput is the shipment state after the phase
type RunPhaseOutput struct {
	ShipmentID string   `json:"shipmentId"`
	Phase      string   `json:"phase"`
	Status     string   `json:"status"`
	Executed   []string `json:"executed,omitempty"`
	Skipped    []string `json:"skipped,omitempty"`
	Splits     []string `json:"splits,omitempty"`
}

// RunSubmissionPhase executes one automatic run phase. Phases that already
// completed are skipped by the orchestrator, so retries are safe.
func (a *SubmissionActivities) RunSubmissionPhase(ctx context.Context, input RunPhaseInput) (*RunPhaseOutput, error) {
	ctx = withExecution(ctx)
	log := a.logger.WithShipment(input.ShipmentID)
	log.ActivityStart(ctx, "RunSubmissionPhase")
	log.WithContext(ctx).Info("Running submission phase", "runPhase", input.Phase, "attempt", activity.GetInfo(ctx).Attempt)

	start := time.Now()
	result, err := a.runner.Run(ctx, application.RunCommand{
		ShipmentID: input.ShipmentID,
		Phase:      application.RunPhase(input.Phase),
	})
	a.complete(ctx, log, "RunSubmissionPhase", time.Since(start), err == nil)
	if err != nil {
		log.WithContext(ctx).WithError(err).Warn("Submission phase failed", "runPhase", input.Phase)
		return nil, ToActivityError(err)
	}

	out := &RunPhaseOutput{
		ShipmentID: result.ShipmentID,
		Phase:      result.Phase,
		Status:     result.Status,
		Executed:   result.Executed,
		Skipped:    result.Skipped,
	}
	for _, s := range result.Splits {
		out.Splits = append(out.Splits, s.RemoteShipmentID)
	}
	return out, nil
}

// RequestLabelsInput names the shipment whose split labels are fetched
type RequestLabelsInput struct {
	ShipmentID string `json:"shipmentId"`
}

// RequestSubmissionLabels fetches labels for every split. Per-split failures
// are part of the result, not an activity error.
func (a *SubmissionActivities) RequestSubmissionLabels(ctx context.Context, input RequestLabelsInput) (*application.LabelsResultDTO, error) {
	ctx = withExecution(ctx)
	log := a.logger.WithShipment(input.ShipmentID)
	log.ActivityStart(ctx, "RequestSubmissionLabels")

	start := time.Now()
	result, err := a.runner.RequestLabels(ctx, application.RequestLabelsCommand{ShipmentID: input.ShipmentID})
	a.complete(ctx, log, "RequestSubmissionLabels", time.Since(start), err == nil)
	if err != nil {
		log.WithContext(ctx).WithError(err).Warn("Label request failed")
		return nil, ToActivityError(err)
	}
	return result, nil
}

func (a *SubmissionActivities) complete(ctx context.Context, log *logging.Logger, activityType string, duration time.Duration, success bool) {
	log.ActivityComplete(ctx, activityType, duration, success)
	a.metrics.RecordActivityCompleted(activityType, success, duration)
}

// withExecution tags ctx with the workflow id. The run id key is left to the
// orchestrator, which stores its lease id there.
func withExecution(ctx context.Context) context.Context {
	return logging.ContextWithWorkflowID(ctx, activity.GetInfo(ctx).WorkflowExecution.ID)
}

// ToActivityError converts err into an application error typed by its error
// code, so the retry policy can tell input problems from transient ones.
func ToActivityError(err error) error {
	appErr := application.ToAppError(err)
	opts := temporal.ApplicationErrorOptions{
		NonRetryable: isNonRetryable(appErr.Code),
	}
	if len(appErr.Details) > 0 {
		opts.Details = []any{appErr.Details}
	}
	return temporal.NewApplicationErrorWithOptions(appErr.Error(), appErr.Code, opts)
}

func isNonRetryable(code string) bool {
	for _, c := range NonRetryableErrorTypes {
		if c == code {
			return true
		}
	}
	return false
}
