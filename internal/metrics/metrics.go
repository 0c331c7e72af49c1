// Package metrics provides Prometheus metrics for mapstore.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors registered by New.
type Metrics struct {
	OperationsTotal     *prometheus.CounterVec
	OperationDuration   *prometheus.HistogramVec
	UnreferencedDeleted *prometheus.CounterVec
	LastCleanup         prometheus.Gauge
}

// New creates the collectors and registers them on reg. Pass
// prometheus.DefaultRegisterer to expose them on the default /metrics handler.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		OperationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mapstore_operations_total",
				Help: "Total number of store operations",
			},
			[]string{"operation", "status"},
		),
		OperationDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mapstore_operation_duration_seconds",
				Help:    "Duration of store operations in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"operation"},
		),
		UnreferencedDeleted: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mapstore_unreferenced_deleted_total",
				Help: "Rows removed by garbage collection because no quest referenced them",
			},
			[]string{"kind"},
		),
		LastCleanup: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "mapstore_last_cleanup_timestamp_seconds",
				Help: "Unix time of the last successful garbage collection run",
			},
		),
	}
}

// Observe records an operation outcome.
func (m *Metrics) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	m.OperationsTotal.WithLabelValues(operation, status).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordDeleted adds n garbage-collected rows of the given kind.
func (m *Metrics) RecordDeleted(kind string, n int) {
	m.UnreferencedDeleted.WithLabelValues(kind).Add(float64(n))
}

// MarkCleanup stores the completion time of a garbage collection run.
func (m *Metrics) MarkCleanup(at time.Time) {
	m.LastCleanup.Set(float64(at.Unix()))
}
