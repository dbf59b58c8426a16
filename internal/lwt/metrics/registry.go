package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry encapsulates all metrics and provides a clean interface
// for recording metrics without global state
type Registry struct {
	registry *prometheus.Registry

	// Store metrics
	storeOperationTotal    *prometheus.CounterVec
	storeOperationDuration *prometheus.HistogramVec
	conditionalTotal       *prometheus.CounterVec

	// Harness metrics
	exerciseTotal    *prometheus.CounterVec
	exerciseDuration *prometheus.HistogramVec
	violationsTotal  *prometheus.CounterVec
	recordsPopulated prometheus.Gauge

	// System health metrics
	systemInfo *prometheus.GaugeVec
	startTime  prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	registry := prometheus.NewRegistry()

	r := &Registry{
		registry: registry,

		storeOperationTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lwt_store_operation_total",
				Help: "Total number of store operations",
			},
			[]string{"operation", "status"}, // operation: reset, insert, get, set_email, compare_and_set_email, drop
		),

		storeOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lwt_store_operation_duration_seconds",
				Help:    "Time spent on store operations",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"operation"},
		),

		conditionalTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lwt_conditional_update_total",
				Help: "Conditional update outcomes as reported by the store",
			},
			[]string{"outcome"}, // outcome: applied, rejected, error
		),

		exerciseTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lwt_exercise_total",
				Help: "Total number of exercised keys",
			},
			[]string{"path", "status"}, // status: expected, violation, error
		),

		exerciseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lwt_exercise_duration_seconds",
				Help:    "Time spent exercising a single key",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path"},
		),

		violationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lwt_violations_total",
				Help: "Total number of CAS contract violations",
			},
			[]string{"path"},
		),

		recordsPopulated: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "lwt_records_populated",
				Help: "Number of fixture records inserted in the current run",
			},
		),

		systemInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "lwt_system_info",
				Help: "System information (value is always 1, labels contain info)",
			},
			[]string{"version", "run_id"},
		),

		startTime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "lwt_start_time_seconds",
				Help: "Unix timestamp when the application started",
			},
		),
	}

	// add default Go metrics (memory, GC, goroutines, etc.)
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	registry.MustRegister(
		r.storeOperationTotal,
		r.storeOperationDuration,
		r.conditionalTotal,
		r.exerciseTotal,
		r.exerciseDuration,
		r.violationsTotal,
		r.recordsPopulated,
		r.systemInfo,
		r.startTime,
	)

	r.startTime.SetToCurrentTime()

	return r
}

// Handler returns an HTTP handler for the Prometheus metrics endpoint
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		Registry:          r.registry,
	})
}

// Gatherer exposes the underlying registry for scraping in tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// RecordStoreOperation records a store operation
func (r *Registry) RecordStoreOperation(operation string, duration time.Duration, err error) {
	r.storeOperationTotal.WithLabelValues(operation, status(err)).Inc()
	r.storeOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordConditionalUpdate records the outcome of a conditional update
func (r *Registry) RecordConditionalUpdate(applied bool, err error) {
	outcome := "rejected"
	switch {
	case err != nil:
		outcome = "error"
	case applied:
		outcome = "applied"
	}

	r.conditionalTotal.WithLabelValues(outcome).Inc()
}

// RecordExercise records one exercised key; status is expected, violation or error
func (r *Registry) RecordExercise(path, status string, duration time.Duration) {
	r.exerciseTotal.WithLabelValues(path, status).Inc()
	r.exerciseDuration.WithLabelValues(path).Observe(duration.Seconds())
	if status == "violation" {
		r.violationsTotal.WithLabelValues(path).Inc()
	}
}

// SetRecordsPopulated sets the fixture size of the current run
func (r *Registry) SetRecordsPopulated(n int) {
	r.recordsPopulated.Set(float64(n))
}

// SetSystemInfo sets system information metrics
func (r *Registry) SetSystemInfo(version, runID string) {
	r.systemInfo.WithLabelValues(version, runID).Set(1)
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
