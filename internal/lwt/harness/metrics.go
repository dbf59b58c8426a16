package harness

import (
	"context"
	"time"

	"lwt/internal/lwt"
	"lwt/internal/lwt/metrics"
)

// MetricsExerciser wraps an lwt.Exerciser with metrics collection
type MetricsExerciser struct {
	exerciser lwt.Exerciser
	registry  *metrics.Registry
}

// NewMetricsExerciser creates a new instrumented exerciser
func NewMetricsExerciser(exerciser lwt.Exerciser, registry *metrics.Registry) lwt.Exerciser {
	return &MetricsExerciser{
		exerciser: exerciser,
		registry:  registry,
	}
}

// ExerciseStale implements lwt.Exerciser.ExerciseStale with metrics collection
func (e *MetricsExerciser) ExerciseStale(ctx context.Context, key string) (lwt.Exercise, error) {
	start := time.Now()

	ex, err := e.exerciser.ExerciseStale(ctx, key)
	e.registry.RecordExercise(string(lwt.PathStale), exerciseStatus(ex, err), time.Since(start))

	return ex, err
}

// ExerciseFresh implements lwt.Exerciser.ExerciseFresh with metrics collection
func (e *MetricsExerciser) ExerciseFresh(ctx context.Context, key string) (lwt.Exercise, error) {
	start := time.Now()

	ex, err := e.exerciser.ExerciseFresh(ctx, key)
	e.registry.RecordExercise(string(lwt.PathFresh), exerciseStatus(ex, err), time.Since(start))

	return ex, err
}

func exerciseStatus(ex lwt.Exercise, err error) string {
	switch {
	case err != nil:
		return "error"
	case ex.Violation != nil:
		return "violation"
	default:
		return "expected"
	}
}
