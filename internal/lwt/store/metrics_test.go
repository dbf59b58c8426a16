package store

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lwt/internal/lwt"
	"lwt/internal/lwt/metrics"
)

func TestMetricsStore_RecordsOperationsAndOutcomes(t *testing.T) {
	ctx := context.Background()
	registry := metrics.NewRegistry()
	s := NewMetricsStore(newTestMemory(t), registry)

	require.NoError(t, s.Insert(ctx, lwt.SeedRecord(1)))
	require.NoError(t, s.Insert(ctx, lwt.SeedRecord(2)))
	_, err := s.Get(ctx, "U404")
	require.ErrorIs(t, err, lwt.ErrNotFound)

	_, err = s.CompareAndSetEmail(ctx, lwt.ConditionalUpdate{Key: "U1", NewEmail: "n", ExpectedEmail: "email@gmail.com1"})
	require.NoError(t, err)
	_, err = s.CompareAndSetEmail(ctx, lwt.ConditionalUpdate{Key: "U2", NewEmail: "n", ExpectedEmail: "stale"})
	require.NoError(t, err)

	expected := `
# HELP lwt_conditional_update_total Conditional update outcomes as reported by the store
# TYPE lwt_conditional_update_total counter
lwt_conditional_update_total{outcome="applied"} 1
lwt_conditional_update_total{outcome="rejected"} 1
# HELP lwt_store_operation_total Total number of store operations
# TYPE lwt_store_operation_total counter
lwt_store_operation_total{operation="compare_and_set_email",status="success"} 2
lwt_store_operation_total{operation="get",status="error"} 1
lwt_store_operation_total{operation="insert",status="success"} 2
`
	err = testutil.GatherAndCompare(registry.Gatherer(), strings.NewReader(expected),
		"lwt_conditional_update_total", "lwt_store_operation_total")
	assert.NoError(t, err)
}
