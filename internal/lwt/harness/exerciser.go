package harness

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"lwt/internal/lwt"
	"lwt/internal/validator"
)

// Exerciser implements lwt.Exerciser against a store. Every step issues
// exactly one store operation and nothing is retried: the guard is only
// ever evaluated by the store.
type Exerciser struct {
	store            lwt.Store
	logger           *zap.Logger
	newEmail         string
	interferingEmail string
}

func NewExerciser(store lwt.Store, logger *zap.Logger, newEmail, interferingEmail string) (*Exerciser, error) {
	e := Exerciser{
		store:            store,
		logger:           logger,
		newEmail:         newEmail,
		interferingEmail: interferingEmail,
	}

	if err := validator.Validate("exerciser", e.store, e.logger, e.newEmail, e.interferingEmail); err != nil {
		return nil, fmt.Errorf("failed to validate exerciser deps: %w", err)
	}

	return &e, nil
}

func (e *Exerciser) ExerciseStale(ctx context.Context, key string) (lwt.Exercise, error) {
	logger := e.logger.With(zap.String("key", key), zap.String("path", string(lwt.PathStale)))
	ex := lwt.Exercise{Key: key, Path: lwt.PathStale}

	current, err := e.store.Get(ctx, key)
	if err != nil {
		return ex, fmt.Errorf("failed to read key %s: %w", key, err)
	}
	ex.Read = current.Email
	logger.Debug("current email", zap.String("email", ex.Read))

	if ex.Read == e.interferingEmail {
		ex.Violation = &lwt.Violation{
			Key:      key,
			Path:     lwt.PathStale,
			Expected: "a value other than " + e.interferingEmail,
			Got:      ex.Read,
			Err:      lwt.ErrDegenerateGuard,
		}
		return ex, nil
	}

	if err := e.store.SetEmail(ctx, key, e.interferingEmail); err != nil {
		return ex, fmt.Errorf("failed to interfere with key %s: %w", key, err)
	}
	ex.Interfered = e.interferingEmail
	logger.Debug("interfering write", zap.String("email", ex.Interfered))

	res, err := e.store.CompareAndSetEmail(ctx, lwt.ConditionalUpdate{
		Key:           key,
		NewEmail:      e.newEmail,
		ExpectedEmail: ex.Read,
	})
	if err != nil {
		return ex, fmt.Errorf("failed to conditionally update key %s: %w", key, err)
	}
	ex.Evaluated, ex.Result = true, res

	actual, rejected := res.Actual()
	switch {
	case !rejected:
		ex.Violation = &lwt.Violation{
			Key:      key,
			Path:     lwt.PathStale,
			Expected: "rejected(" + e.interferingEmail + ")",
			Got:      res.String(),
			Err:      lwt.ErrUnexpectedlyApplied,
		}
	case actual != e.interferingEmail:
		ex.Violation = &lwt.Violation{
			Key:      key,
			Path:     lwt.PathStale,
			Expected: e.interferingEmail,
			Got:      actual,
			Err:      lwt.ErrUnexpectedActual,
		}
	default:
		logger.Debug("update rejected",
			zap.String("actual", actual),
			zap.String("expected", ex.Read),
		)
	}

	return ex, nil
}

func (e *Exerciser) ExerciseFresh(ctx context.Context, key string) (lwt.Exercise, error) {
	logger := e.logger.With(zap.String("key", key), zap.String("path", string(lwt.PathFresh)))
	ex := lwt.Exercise{Key: key, Path: lwt.PathFresh}

	current, err := e.store.Get(ctx, key)
	if err != nil {
		return ex, fmt.Errorf("failed to read key %s: %w", key, err)
	}
	ex.Read = current.Email
	logger.Debug("current email", zap.String("email", ex.Read))

	res, err := e.store.CompareAndSetEmail(ctx, lwt.ConditionalUpdate{
		Key:           key,
		NewEmail:      e.newEmail,
		ExpectedEmail: ex.Read,
	})
	if err != nil {
		return ex, fmt.Errorf("failed to conditionally update key %s: %w", key, err)
	}
	ex.Evaluated, ex.Result = true, res

	if !res.Applied() {
		ex.Violation = &lwt.Violation{
			Key:      key,
			Path:     lwt.PathFresh,
			Expected: "applied",
			Got:      res.String(),
			Err:      lwt.ErrUnexpectedlyRejected,
		}
		return ex, nil
	}

	after, err := e.store.Get(ctx, key)
	if err != nil {
		return ex, fmt.Errorf("failed to re-read key %s: %w", key, err)
	}
	if after.Email != e.newEmail {
		ex.Violation = &lwt.Violation{
			Key:      key,
			Path:     lwt.PathFresh,
			Expected: e.newEmail,
			Got:      after.Email,
			Err:      lwt.ErrUnexpectedActual,
		}
		return ex, nil
	}

	logger.Debug("email is now", zap.String("email", after.Email))
	return ex, nil
}
