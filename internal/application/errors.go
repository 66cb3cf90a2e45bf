package application

import (
	"context"
	stderrors "errors"

	"github.com/wms-platform/inbound-service/internal/domain"
	"github.com/wms-platform/inbound-service/pkg/errors"
	"github.com/wms-platform/inbound-service/pkg/resilience"
)

// ToAppError maps orchestrator and domain errors onto the platform error
// taxonomy so the HTTP layer and the activities can tell callers whether to
// fix input, retry, or switch to the interactive flow.
func ToAppError(err error) *errors.AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr
	}

	var (
		precondition *domain.PreconditionError
		rejection    *domain.RemoteRejectionError
		pollTimeout  *domain.PollTimeoutError
		noTransport  *domain.NoTransportOptionsError
		remoteCall   *domain.RemoteCallError
		badChoice    *InvalidChoiceError
	)

	switch {
	case stderrors.As(err, &precondition):
		details := make(map[string]string, len(precondition.Fields)+1)
		for _, f := range precondition.Fields {
			details[f.Field] = f.Message
		}
		details["phase"] = string(precondition.Phase)
		return errors.ErrPreconditionFailed(precondition.Error()).WithDetails(details).Wrap(err)

	case stderrors.As(err, &rejection):
		return errors.ErrRemoteRejected(rejection.Error()).
			WithDetail("phase", string(rejection.Phase)).
			WithDetail("operationId", rejection.OperationID).
			WithRemote(toRemoteProblems(rejection.Problems, rejection.SKUs)...).
			Wrap(err)

	case stderrors.As(err, &pollTimeout):
		return errors.ErrPollTimeout(pollTimeout.OperationID).
			WithDetail("waited", pollTimeout.Waited.String()).
			Wrap(err)

	case stderrors.As(err, &noTransport):
		return errors.ErrNoOptionAvailable(noTransport.Error()).
			WithDetail("hint", string(RunConfirmTransportInteractive)).
			Wrap(err)

	case stderrors.As(err, &badChoice):
		return errors.ErrValidation(badChoice.Error()).Wrap(err)

	case stderrors.Is(err, domain.ErrShipmentBusy):
		return errors.ErrConflict(domain.ErrShipmentBusy.Error()).Wrap(err)

	case stderrors.Is(err, domain.ErrShipmentExists):
		return errors.ErrConflict(domain.ErrShipmentExists.Error()).Wrap(err)

	case stderrors.Is(err, domain.ErrConcurrentModification):
		return errors.ErrConcurrentModification("shipment").Wrap(err)

	case stderrors.Is(err, domain.ErrInvalidTransition), stderrors.Is(err, domain.ErrLabelsNotAvailable):
		return errors.ErrPreconditionFailed(err.Error()).Wrap(err)

	case stderrors.Is(err, domain.ErrNoOption):
		return errors.ErrNoOptionAvailable(err.Error()).Wrap(err)

	case stderrors.Is(err, domain.ErrSplitNotFound):
		return errors.ErrNotFound("split").Wrap(err)

	case stderrors.Is(err, resilience.ErrCircuitOpen):
		return errors.ErrServiceUnavailable("fulfillment network").Wrap(err)

	case stderrors.As(err, &remoteCall):
		if remoteCall.Temporary() {
			return errors.ErrServiceUnavailable("fulfillment network").
				WithDetail("operation", remoteCall.Operation).
				Wrap(err)
		}
		return errors.ErrRemoteRejected(remoteCall.Error()).
			WithDetail("operation", remoteCall.Operation).
			WithRemote(toRemoteProblems(remoteCall.Problems, remoteCall.SKUs)...).
			Wrap(err)

	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.ErrTimeout("submission run").Wrap(err)
	}

	return errors.ErrInternal("").Wrap(err)
}

func toRemoteProblems(problems []domain.Problem, skus []string) []errors.RemoteProblem {
	out := make([]errors.RemoteProblem, len(problems))
	for i, p := range problems {
		out[i] = errors.RemoteProblem{
			Code:           p.Code,
			Message:        p.Message,
			Severity:       p.Severity,
			SKU:            p.SKUAmong(skus),
			AcceptedValues: p.AcceptedValues(),
		}
	}
	return out
}
