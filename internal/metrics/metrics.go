// Package metrics provides Prometheus metrics for the execution dispatch
// core: pool, coordinator, and health-probe counters, gauges, and
// histograms. Registration happens once at assembly time; the core itself
// never reads these values back, Prometheus scraping is the consumer.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once     sync.Once
	instance *Metrics
)

// Metrics holds every Prometheus collector this core exports.
type Metrics struct {
	// Pool
	PoolAcquisitionsTotal *prometheus.CounterVec // labels: language, origin=pool_hit|pool_miss
	PoolCreatedTotal      *prometheus.CounterVec // labels: language
	PoolDestroyedTotal    *prometheus.CounterVec // labels: language
	PoolAvailable         *prometheus.GaugeVec   // labels: language
	PoolInUse             *prometheus.GaugeVec   // labels: language
	PoolCreating          *prometheus.GaugeVec   // labels: language
	PoolAcquireMs         *prometheus.GaugeVec   // labels: language, EWMA acquire time

	// Execution
	ExecutionsTotal    *prometheus.CounterVec   // labels: language, status
	ExecutionDuration  *prometheus.HistogramVec // labels: language
	ExecutionsInFlight prometheus.Gauge

	// Health
	HealthProbeDuration *prometheus.HistogramVec // labels: service
	HealthProbeStatus   *prometheus.GaugeVec     // labels: service (0=unhealthy,1=degraded,2=unknown,3=healthy)
}

// Get returns the singleton Metrics instance, registering collectors on
// first use.
func Get() *Metrics {
	once.Do(func() {
		instance = newMetrics()
	})
	return instance
}

func newMetrics() *Metrics {
	m := &Metrics{}

	m.PoolAcquisitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sandboxcore",
			Subsystem: "pool",
			Name:      "acquisitions_total",
			Help:      "Total pool acquisitions by language and origin (pool_hit/pool_miss)",
		},
		[]string{"language", "origin"},
	)

	m.PoolCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sandboxcore",
			Subsystem: "pool",
			Name:      "created_total",
			Help:      "Total sandboxes created by language",
		},
		[]string{"language"},
	)

	m.PoolDestroyedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sandboxcore",
			Subsystem: "pool",
			Name:      "destroyed_total",
			Help:      "Total sandboxes destroyed by language",
		},
		[]string{"language"},
	)

	m.PoolAvailable = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "sandboxcore",
			Subsystem: "pool",
			Name:      "available",
			Help:      "Sandboxes currently sitting warm in the bucket",
		},
		[]string{"language"},
	)

	m.PoolInUse = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "sandboxcore",
			Subsystem: "pool",
			Name:      "in_use",
			Help:      "Sandboxes currently checked out of the bucket",
		},
		[]string{"language"},
	)

	m.PoolCreating = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "sandboxcore",
			Subsystem: "pool",
			Name:      "creating",
			Help:      "Sandboxes mid-creation for the bucket",
		},
		[]string{"language"},
	)

	m.PoolAcquireMs = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "sandboxcore",
			Subsystem: "pool",
			Name:      "acquire_ms_ewma",
			Help:      "Exponentially weighted moving average of acquire time in milliseconds",
		},
		[]string{"language"},
	)

	m.ExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sandboxcore",
			Subsystem: "execution",
			Name:      "total",
			Help:      "Total executions by language and terminal status",
		},
		[]string{"language", "status"},
	)

	m.ExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sandboxcore",
			Subsystem: "execution",
			Name:      "duration_seconds",
			Help:      "Execution wall-clock duration in seconds",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"language"},
	)

	m.ExecutionsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sandboxcore",
			Subsystem: "execution",
			Name:      "in_flight",
			Help:      "Executions currently running",
		},
	)

	m.HealthProbeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sandboxcore",
			Subsystem: "health",
			Name:      "probe_duration_seconds",
			Help:      "Health probe response time in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2, 3, 5},
		},
		[]string{"service"},
	)

	m.HealthProbeStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "sandboxcore",
			Subsystem: "health",
			Name:      "probe_status",
			Help:      "Last health probe status (0=unhealthy,1=degraded,2=unknown,3=healthy)",
		},
		[]string{"service"},
	)

	return m
}
