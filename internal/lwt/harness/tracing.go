package harness

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"lwt/internal/lwt"
	"lwt/internal/lwt/tracing"
)

// TracedExerciser wraps an lwt.Exerciser with distributed tracing
// Layer order: TracedExerciser -> MetricsExerciser -> Exerciser (real thing)
type TracedExerciser struct {
	exerciser lwt.Exerciser
	tracer    *tracing.Tracer
}

// NewTracedExerciser creates a new traced exerciser that wraps a metrics exerciser
func NewTracedExerciser(exerciser lwt.Exerciser, tracer *tracing.Tracer) lwt.Exerciser {
	return &TracedExerciser{
		exerciser: exerciser,
		tracer:    tracer,
	}
}

// ExerciseStale implements lwt.Exerciser.ExerciseStale with distributed tracing
func (e *TracedExerciser) ExerciseStale(ctx context.Context, key string) (lwt.Exercise, error) {
	ctx, span := e.tracer.StartSpan(ctx, "exerciser.stale")
	defer span.End()

	span.SetAttributes(e.tracer.KeyAttributes(key)...)

	ex, err := e.exerciser.ExerciseStale(ctx, key)
	e.finish(ctx, ex, err)

	return ex, err
}

// ExerciseFresh implements lwt.Exerciser.ExerciseFresh with distributed tracing
func (e *TracedExerciser) ExerciseFresh(ctx context.Context, key string) (lwt.Exercise, error) {
	ctx, span := e.tracer.StartSpan(ctx, "exerciser.fresh")
	defer span.End()

	span.SetAttributes(e.tracer.KeyAttributes(key)...)

	ex, err := e.exerciser.ExerciseFresh(ctx, key)
	e.finish(ctx, ex, err)

	return ex, err
}

func (e *TracedExerciser) finish(ctx context.Context, ex lwt.Exercise, err error) {
	e.tracer.WithAttributes(ctx, attribute.String("lwt.read", ex.Read))
	if ex.Evaluated {
		e.tracer.WithAttributes(ctx, e.tracer.ResultAttributes(ex.Result)...)
	}

	switch {
	case err != nil:
		e.tracer.RecordError(ctx, err)
	case ex.Violation != nil:
		e.tracer.RecordError(ctx, ex.Violation)
	default:
		e.tracer.SetStatus(ctx, codes.Ok, "")
	}

	e.tracer.WithAttributes(ctx, e.tracer.ErrorAttributes(err)...)
}
