package application

import (
	"context"

	"github.com/wms-platform/inbound-service/internal/domain"
)

// optionFlow is one "list, maybe generate, choose, confirm" decision against
// the remote network. It always lists before it mutates: an option the remote
// side already holds as accepted is adopted instead of confirmed again.
type optionFlow[T any] struct {
	kind     string
	phase    domain.Phase
	id       func(T) string
	status   func(T) domain.OptionStatus
	list     func(context.Context) ([]T, error)
	generate func(context.Context) (string, error)
	choose   func([]T) (T, error)
	confirm  func(context.Context, T) (string, error)
}

func (f optionFlow[T]) accepted(options []T) (T, bool) {
	for _, o := range options {
		if f.status(o).IsAccepted() {
			return o, true
		}
	}
	var zero T
	return zero, false
}

func (f optionFlow[T]) offered(options []T) []T {
	var out []T
	seen := make(map[string]bool, len(options))
	for _, o := range options {
		st := f.status(o)
		if st.IsAccepted() || st == domain.OptionExpired || seen[f.id(o)] {
			continue
		}
		seen[f.id(o)] = true
		out = append(out, o)
	}
	return out
}

// candidates lists the live options and generates a fresh set first when the
// listing holds nothing usable.
func (f optionFlow[T]) candidates(ctx context.Context, e *PhaseExecutor) ([]T, string, error) {
	options, err := f.list(ctx)
	if err != nil {
		return nil, "", err
	}
	if _, ok := f.accepted(options); ok || len(f.offered(options)) > 0 {
		return options, "", nil
	}

	opID, err := f.generate(ctx)
	if err == nil {
		err = e.poller.Await(ctx, f.phase, opID)
	}
	if err != nil && !IsAlreadyConfirmed(err) {
		return nil, opID, err
	}

	options, err = f.list(ctx)
	if err != nil {
		return nil, opID, err
	}
	return options, opID, nil
}

// resolve ends with one option held remotely as chosen. It returns the option,
// the listing it was picked from and the id of the last operation awaited.
func (f optionFlow[T]) resolve(ctx context.Context, e *PhaseExecutor) (T, []T, string, error) {
	var zero T

	options, opID, err := f.candidates(ctx, e)
	if err != nil {
		return zero, nil, opID, err
	}
	if adopted, ok := f.accepted(options); ok {
		e.logger.WithContext(ctx).Info("Adopting option already accepted remotely", "kind", f.kind, "optionId", f.id(adopted))
		return adopted, options, opID, nil
	}

	chosen, err := f.choose(f.offered(options))
	if err != nil {
		return zero, options, opID, err
	}
	if f.confirm == nil {
		return chosen, options, opID, nil
	}

	opID, err = f.confirm(ctx, chosen)
	if err == nil {
		err = e.poller.Await(ctx, f.phase, opID)
	}
	if err == nil {
		return chosen, options, opID, nil
	}
	if !IsAlreadyConfirmed(err) {
		return zero, options, opID, err
	}

	relisted, lerr := f.list(ctx)
	if lerr != nil {
		return zero, options, opID, lerr
	}
	if adopted, ok := f.accepted(relisted); ok {
		e.logger.WithContext(ctx).Info("Confirm conflicted, adopting remote choice", "kind", f.kind, "optionId", f.id(adopted))
		return adopted, relisted, opID, nil
	}
	e.logger.WithContext(ctx).Info("Confirm conflicted, keeping own choice", "kind", f.kind, "optionId", f.id(chosen))
	return chosen, relisted, opID, nil
}
