package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/inbound-service/internal/domain"
	"github.com/wms-platform/inbound-service/pkg/logging"
)

type MockOperationSource struct {
	mock.Mock
}

func (m *MockOperationSource) GetOperation(ctx context.Context, operationID string) (*domain.Operation, error) {
	args := m.Called(ctx, operationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Operation), args.Error(1)
}

func pending(id string) *domain.Operation {
	return &domain.Operation{ID: id, Status: domain.OperationPending}
}

func newTestPoller(source OperationSource, clock Clock) *OperationPoller {
	return NewOperationPoller(source, clock, &PollerConfig{
		Interval:      time.Second,
		MaxInterval:   4 * time.Second,
		BackoffFactor: 2,
		Timeout:       10 * time.Second,
	}, logging.NewNop(), nil)
}

func TestOperationPoller_Wait(t *testing.T) {
	t.Run("returns once the operation succeeds", func(t *testing.T) {
		source := new(MockOperationSource)
		clock := newFakeClock()
		source.On("GetOperation", mock.Anything, "op-1").Return(pending("op-1"), nil).Twice()
		source.On("GetOperation", mock.Anything, "op-1").Return(&domain.Operation{ID: "op-1", Status: domain.OperationSuccess}, nil).Once()

		op, err := newTestPoller(source, clock).Wait(context.Background(), "op-1")

		require.NoError(t, err)
		assert.Equal(t, domain.OperationSuccess, op.Status)
		assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, clock.Sleeps())
		source.AssertExpectations(t)
	})

	t.Run("does not sleep when already terminal", func(t *testing.T) {
		source := new(MockOperationSource)
		clock := newFakeClock()
		source.On("GetOperation", mock.Anything, "op-1").Return(&domain.Operation{ID: "op-1", Status: domain.OperationFailed}, nil).Once()

		op, err := newTestPoller(source, clock).Wait(context.Background(), "op-1")

		require.NoError(t, err)
		assert.Equal(t, domain.OperationFailed, op.Status)
		assert.Empty(t, clock.Sleeps())
	})

	t.Run("times out with a typed still-pending error", func(t *testing.T) {
		source := new(MockOperationSource)
		clock := newFakeClock()
		source.On("GetOperation", mock.Anything, "op-1").Return(pending("op-1"), nil)

		_, err := newTestPoller(source, clock).Wait(context.Background(), "op-1")

		var timeout *domain.PollTimeoutError
		require.ErrorAs(t, err, &timeout)
		assert.Equal(t, "op-1", timeout.OperationID)
		assert.Equal(t, 10*time.Second, timeout.Waited)
		// backoff is capped and the last sleep is cut to the deadline
		assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 3 * time.Second}, clock.Sleeps())
		source.AssertNumberOfCalls(t, "GetOperation", 5)
	})

	t.Run("propagates lookup errors", func(t *testing.T) {
		source := new(MockOperationSource)
		boom := errors.New("connection reset")
		source.On("GetOperation", mock.Anything, "op-1").Return(nil, boom)

		_, err := newTestPoller(source, newFakeClock()).Wait(context.Background(), "op-1")

		assert.ErrorIs(t, err, boom)
	})

	t.Run("stops when the context is cancelled", func(t *testing.T) {
		source := new(MockOperationSource)
		source.On("GetOperation", mock.Anything, "op-1").Return(pending("op-1"), nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := newTestPoller(source, newFakeClock()).Wait(ctx, "op-1")

		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestOperationPoller_Await(t *testing.T) {
	source := new(MockOperationSource)
	problems := []domain.Problem{{Code: "InvalidInput", Message: "sku MUG-RED is not eligible"}}
	source.On("GetOperation", mock.Anything, "op-2").Return(&domain.Operation{ID: "op-2", Status: domain.OperationFailed, Problems: problems}, nil)
	source.On("GetOperation", mock.Anything, "op-3").Return(&domain.Operation{ID: "op-3", Status: domain.OperationSuccess}, nil)

	poller := newTestPoller(source, newFakeClock())

	err := poller.Await(context.Background(), domain.PhasePlanCreated, "op-2")
	var rejection *domain.RemoteRejectionError
	require.ErrorAs(t, err, &rejection)
	assert.Equal(t, domain.PhasePlanCreated, rejection.Phase)
	assert.Equal(t, "op-2", rejection.OperationID)
	assert.Equal(t, problems, rejection.Problems)

	assert.NoError(t, poller.Await(context.Background(), domain.PhasePlanCreated, "op-3"))
}
