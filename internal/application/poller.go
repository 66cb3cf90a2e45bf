package application

import (
	"context"
	"time"

	"github.com/wms-platform/inbound-service/internal/domain"
	"github.com/wms-platform/inbound-service/pkg/logging"
	"github.com/wms-platform/inbound-service/pkg/metrics"
)

// Clock abstracts time so the poller can be driven without real sleeping
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is the wall clock
type SystemClock struct{}

// Now returns the current time
func (SystemClock) Now() time.Time { return time.Now() }

// Sleep waits for d or until ctx is done
func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// OperationSource is the part of the fulfillment network the poller needs
type OperationSource interface {
	GetOperation(ctx context.Context, operationID string) (*domain.Operation, error)
}

// PollerConfig bounds the wait on one remote operation
type PollerConfig struct {
	Interval      time.Duration `yaml:"interval"`
	MaxInterval   time.Duration `yaml:"maxInterval"`
	BackoffFactor float64       `yaml:"backoffFactor"`
	Timeout       time.Duration `yaml:"timeout"`
}

// DefaultPollerConfig returns default poller settings
func DefaultPollerConfig() *PollerConfig {
	return &PollerConfig{
		Interval:      time.Second,
		MaxInterval:   10 * time.Second,
		BackoffFactor: 1.5,
		Timeout:       3 * time.Minute,
	}
}

// OperationPoller waits for remote operations to reach a terminal status
type OperationPoller struct {
	source  OperationSource
	clock   Clock
	config  *PollerConfig
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// NewOperationPoller creates a new OperationPoller
func NewOperationPoller(source OperationSource, clock Clock, config *PollerConfig, logger *logging.Logger, m *metrics.Metrics) *OperationPoller {
	if config == nil {
		config = DefaultPollerConfig()
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &OperationPoller{
		source:  source,
		clock:   clock,
		config:  config,
		logger:  logger.WithComponent("operation-poller"),
		metrics: m,
	}
}

// Wait queries the operation until it leaves pending. It returns a
// *domain.PollTimeoutError when the budget runs out first. A failed operation
// is returned as-is; callers decide how to treat its problems.
func (p *OperationPoller) Wait(ctx context.Context, operationID string) (*domain.Operation, error) {
	start := p.clock.Now()
	deadline := start.Add(p.config.Timeout)
	interval := p.config.Interval

	for attempt := 1; ; attempt++ {
		op, err := p.source.GetOperation(ctx, operationID)
		if err != nil {
			p.metrics.RecordOperationPoll("error", p.clock.Now().Sub(start))
			return nil, err
		}
		if op.Terminal() {
			p.metrics.RecordOperationPoll(string(op.Status), p.clock.Now().Sub(start))
			p.logger.WithContext(ctx).Debug("Operation finished",
				"operationId", operationID,
				"status", op.Status,
				"attempts", attempt,
			)
			return op, nil
		}

		now := p.clock.Now()
		remaining := deadline.Sub(now)
		if remaining <= 0 {
			waited := now.Sub(start)
			p.metrics.RecordOperationPoll("timeout", waited)
			p.logger.WithContext(ctx).Warn("Operation still pending at deadline",
				"operationId", operationID,
				"attempts", attempt,
				"waitedMs", waited.Milliseconds(),
			)
			return nil, &domain.PollTimeoutError{OperationID: operationID, Waited: waited}
		}

		if err := p.clock.Sleep(ctx, min(interval, remaining)); err != nil {
			return nil, err
		}
		interval = p.nextInterval(interval)
	}
}

func (p *OperationPoller) nextInterval(current time.Duration) time.Duration {
	if p.config.BackoffFactor <= 1 {
		return current
	}
	next := time.Duration(float64(current) * p.config.BackoffFactor)
	if p.config.MaxInterval > 0 && next > p.config.MaxInterval {
		return p.config.MaxInterval
	}
	return next
}

// Await waits for the operation and turns a failed outcome into a
// *domain.RemoteRejectionError tagged with phase.
func (p *OperationPoller) Await(ctx context.Context, phase domain.Phase, operationID string) error {
	op, err := p.Wait(ctx, operationID)
	if err != nil {
		return err
	}
	if op.Status == domain.OperationFailed {
		return &domain.RemoteRejectionError{Phase: phase, OperationID: operationID, Problems: op.Problems}
	}
	return nil
}
