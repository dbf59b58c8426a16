package harness

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"lwt/internal/lwt"
	"lwt/internal/lwt/metrics"
	"lwt/internal/lwt/tracing"
)

func TestDecoratedExerciser(t *testing.T) {
	ctx := context.Background()
	m := newPopulatedMemory(t, 1, 2)

	registry := metrics.NewRegistry()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	e := NewTracedExerciser(
		NewMetricsExerciser(newTestExerciser(t, m), registry),
		tracing.NewTracerFromProvider(tp, "memory"),
	)

	ex, err := e.ExerciseFresh(ctx, "U1")
	require.NoError(t, err)
	assert.Nil(t, ex.Violation)

	m.BreakGuard = true
	ex, err = e.ExerciseStale(ctx, "U2")
	require.NoError(t, err)
	require.NotNil(t, ex.Violation)
	assert.ErrorIs(t, ex.Violation, lwt.ErrUnexpectedlyApplied)

	_, err = e.ExerciseStale(ctx, "U3")
	require.ErrorIs(t, err, lwt.ErrNotFound)

	expected := `
# HELP lwt_exercise_total Total number of exercised keys
# TYPE lwt_exercise_total counter
lwt_exercise_total{path="fresh",status="expected"} 1
lwt_exercise_total{path="stale",status="error"} 1
lwt_exercise_total{path="stale",status="violation"} 1
# HELP lwt_violations_total Total number of CAS contract violations
# TYPE lwt_violations_total counter
lwt_violations_total{path="stale"} 1
`
	require.NoError(t, testutil.GatherAndCompare(registry.Gatherer(), strings.NewReader(expected),
		"lwt_exercise_total", "lwt_violations_total"))

	spans := recorder.Ended()
	require.Len(t, spans, 3)

	assert.Equal(t, "exerciser.fresh", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)

	assert.Equal(t, "exerciser.stale", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)

	assert.Equal(t, "exerciser.stale", spans[2].Name())
	assert.Equal(t, codes.Error, spans[2].Status().Code)
}
