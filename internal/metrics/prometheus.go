// Package metrics exposes the daemon's Prometheus instrumentation.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once     sync.Once
	registry *Registry
)

// Registry holds all provisioning metrics.
type Registry struct {
	// Provisioning pipeline
	Operations    *prometheus.CounterVec
	OperationTime *prometheus.HistogramVec
	LockWait      prometheus.Histogram
	LockTimeouts  prometheus.Counter
	IntegrityFail prometheus.Counter

	// Asterisk reload
	Reloads *prometheus.CounterVec

	// Managed file
	Endpoints prometheus.Gauge
	Backups   prometheus.Gauge

	// HTTP API
	APIRequests *prometheus.CounterVec
	APILatency  *prometheus.HistogramVec
}

// Get returns the global metrics registry, creating it if necessary.
func Get() *Registry {
	once.Do(func() {
		registry = newRegistry()
	})
	return registry
}

func newRegistry() *Registry {
	r := &Registry{}

	r.Operations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxic_operations_total",
		Help: "Provisioning operations by action and outcome",
	}, []string{"action", "outcome"})

	r.OperationTime = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "voxic_operation_duration_seconds",
		Help:    "End-to-end duration of provisioning operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"action"})

	r.LockWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voxic_lock_wait_seconds",
		Help:    "Time spent waiting for the provisioning lock",
		Buckets: []float64{.001, .01, .05, .1, .5, 1, 2.5, 5, 10},
	})

	r.LockTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voxic_lock_timeouts_total",
		Help: "Operations rejected because the lock wait deadline passed",
	})

	r.IntegrityFail = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voxic_integrity_failures_total",
		Help: "Post-write verifications that did not match and forced a restore",
	})

	r.Reloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxic_reloads_total",
		Help: "Asterisk pjsip reloads by outcome",
	}, []string{"outcome"})

	r.Endpoints = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voxic_endpoints",
		Help: "Endpoints currently present in the managed file",
	})

	r.Backups = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voxic_backups",
		Help: "Backup files currently retained",
	})

	r.APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxic_api_requests_total",
		Help: "API requests by method, route and status code",
	}, []string{"method", "route", "code"})

	r.APILatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "voxic_api_request_duration_seconds",
		Help:    "API request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	return r
}
