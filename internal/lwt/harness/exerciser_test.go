package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"lwt/internal/lwt"
	"lwt/internal/lwt/store"
)

const (
	newEmail         = "newemail@gmail.com"
	interferingEmail = "updatedtosomethingelse@gmail.com"
)

func newPopulatedMemory(t *testing.T, keys ...int) *store.Memory {
	t.Helper()
	ctx := context.Background()

	m, err := store.NewMemory(lwt.Schema{Namespace: "test_keyspace_lwt", Table: "test_table", ReplicationFactor: 1})
	require.NoError(t, err)
	require.NoError(t, m.Reset(ctx))
	for _, i := range keys {
		require.NoError(t, m.Insert(ctx, lwt.SeedRecord(i)))
	}
	return m
}

func newTestExerciser(t *testing.T, s lwt.Store) *Exerciser {
	t.Helper()
	e, err := NewExerciser(s, zaptest.NewLogger(t), newEmail, interferingEmail)
	require.NoError(t, err)
	return e
}

func TestNewExerciser_Validation(t *testing.T) {
	m := newPopulatedMemory(t)

	_, err := NewExerciser(nil, zaptest.NewLogger(t), newEmail, interferingEmail)
	assert.Error(t, err)
	_, err = NewExerciser(m, zaptest.NewLogger(t), "", interferingEmail)
	assert.Error(t, err)
}

func TestExerciseStale_RejectedWithInterferingValue(t *testing.T) {
	m := newPopulatedMemory(t, 1001)
	e := newTestExerciser(t, m)

	ex, err := e.ExerciseStale(context.Background(), "U1001")
	require.NoError(t, err)

	assert.Equal(t, "email@gmail.com1001", ex.Read)
	assert.Equal(t, interferingEmail, ex.Interfered)
	require.True(t, ex.Evaluated)
	assert.False(t, ex.Result.Applied())
	actual, ok := ex.Result.Actual()
	require.True(t, ok)
	assert.Equal(t, interferingEmail, actual)
	assert.Nil(t, ex.Violation)

	r, err := m.Get(context.Background(), "U1001")
	require.NoError(t, err)
	assert.Equal(t, interferingEmail, r.Email)
}

func TestExerciseStale_EveryKeyRejected(t *testing.T) {
	keys := make([]int, 25)
	for i := range keys {
		keys[i] = i
	}
	m := newPopulatedMemory(t, keys...)
	e := newTestExerciser(t, m)

	for _, i := range keys {
		ex, err := e.ExerciseStale(context.Background(), lwt.RecordKey(i))
		require.NoError(t, err)
		assert.Nil(t, ex.Violation, "key %s", ex.Key)
		actual, ok := ex.Result.Actual()
		assert.True(t, ok)
		assert.Equal(t, interferingEmail, actual)
	}
}

func TestExerciseStale_AppliedIsViolation(t *testing.T) {
	m := newPopulatedMemory(t, 7)
	m.BreakGuard = true
	e := newTestExerciser(t, m)

	ex, err := e.ExerciseStale(context.Background(), "U7")
	require.NoError(t, err)

	require.NotNil(t, ex.Violation)
	assert.ErrorIs(t, ex.Violation, lwt.ErrUnexpectedlyApplied)
	assert.Equal(t, lwt.PathStale, ex.Violation.Path)
	assert.Equal(t, "applied", ex.Violation.Got)
}

func TestExerciseStale_DegenerateGuard(t *testing.T) {
	m := newPopulatedMemory(t, 8)
	require.NoError(t, m.SetEmail(context.Background(), "U8", interferingEmail))
	e := newTestExerciser(t, m)

	ex, err := e.ExerciseStale(context.Background(), "U8")
	require.NoError(t, err)

	require.NotNil(t, ex.Violation)
	assert.ErrorIs(t, ex.Violation, lwt.ErrDegenerateGuard)
	assert.False(t, ex.Evaluated, "no conditional update is issued")
}

func TestExerciseStale_NotFound(t *testing.T) {
	e := newTestExerciser(t, newPopulatedMemory(t))

	_, err := e.ExerciseStale(context.Background(), "U1")
	assert.ErrorIs(t, err, lwt.ErrNotFound)
}

func TestExerciseFresh_Applied(t *testing.T) {
	m := newPopulatedMemory(t, 2)
	e, err := NewExerciser(m, zaptest.NewLogger(t), "x@y.com", interferingEmail)
	require.NoError(t, err)

	ex, err := e.ExerciseFresh(context.Background(), "U2")
	require.NoError(t, err)

	assert.Equal(t, "email@gmail.com2", ex.Read)
	assert.Empty(t, ex.Interfered)
	assert.True(t, ex.Result.Applied())
	assert.Nil(t, ex.Violation)

	r, err := m.Get(context.Background(), "U2")
	require.NoError(t, err)
	assert.Equal(t, "x@y.com", r.Email)
}

// racingStore performs an interfering write right before every conditional
// update, so a fresh guard goes stale.
type racingStore struct {
	lwt.Store
}

func (s racingStore) CompareAndSetEmail(ctx context.Context, u lwt.ConditionalUpdate) (lwt.Result, error) {
	if err := s.Store.SetEmail(ctx, u.Key, "racer@x.com"); err != nil {
		return lwt.Result{}, err
	}
	return s.Store.CompareAndSetEmail(ctx, u)
}

func TestExerciseFresh_RejectedIsViolation(t *testing.T) {
	m := newPopulatedMemory(t, 4)
	e := newTestExerciser(t, racingStore{Store: m})

	ex, err := e.ExerciseFresh(context.Background(), "U4")
	require.NoError(t, err)

	require.NotNil(t, ex.Violation)
	assert.ErrorIs(t, ex.Violation, lwt.ErrUnexpectedlyRejected)
	assert.Equal(t, "rejected(racer@x.com)", ex.Violation.Got)
}

// lyingStore reports rejections with a value that was never written.
type lyingStore struct {
	lwt.Store
}

func (s lyingStore) CompareAndSetEmail(ctx context.Context, u lwt.ConditionalUpdate) (lwt.Result, error) {
	return lwt.Rejected("ghost@x.com"), nil
}

func TestExerciseStale_WrongActualIsViolation(t *testing.T) {
	m := newPopulatedMemory(t, 5)
	e := newTestExerciser(t, lyingStore{Store: m})

	ex, err := e.ExerciseStale(context.Background(), "U5")
	require.NoError(t, err)

	require.NotNil(t, ex.Violation)
	assert.ErrorIs(t, ex.Violation, lwt.ErrUnexpectedActual)
	assert.Equal(t, interferingEmail, ex.Violation.Expected)
	assert.Equal(t, "ghost@x.com", ex.Violation.Got)
}
