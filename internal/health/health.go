// Package health runs concurrent probes against this core's external
// collaborators and classifies each one healthy/degraded/unhealthy/unknown
// (spec.md §4.F). Results are cached for 30s via internal/cache so a burst
// of health-check traffic doesn't hammer the probed services.
package health

import (
	"context"
	"encoding/json"
	"time"

	"sandboxcore/internal/cache"
	"sandboxcore/internal/config"
	"sandboxcore/internal/metrics"
	"sandboxcore/internal/pool"
	"sandboxcore/internal/runtime"
)

// Status is a probe or overall classification.
type Status string

const (
	Healthy   Status = "healthy"
	Degraded  Status = "degraded"
	Unhealthy Status = "unhealthy"
	Unknown   Status = "unknown"
)

// statusRank orders statuses worst-first for overall_status = worst(children).
var statusRank = map[Status]int{
	Unhealthy: 3,
	Degraded:  2,
	Unknown:   1,
	Healthy:   0,
}

// gaugeValue maps a Status onto the HealthProbeStatus gauge's documented
// scale (0=unhealthy,1=degraded,2=unknown,3=healthy).
var gaugeValue = map[Status]float64{
	Unhealthy: 0,
	Degraded:  1,
	Unknown:   2,
	Healthy:   3,
}

// Result is one service's probe outcome.
type Result struct {
	Status          Status            `json:"status"`
	ResponseTimeMs  float64           `json:"response_time_ms"`
	Details         map[string]string `json:"details,omitempty"`
	Error           string            `json:"error,omitempty"`
	Timestamp       time.Time         `json:"ts"`
}

// Report is the full check_all response.
type Report struct {
	Overall  Status            `json:"overall_status"`
	Services map[string]Result `json:"services"`
	Cached   bool              `json:"cached"`
}

// KV is the narrow round-trip surface the kv probe exercises: SET a
// short-TTL marker, GET it back, DEL it. internal/cache.GoRedisAdapter
// satisfies this directly.
type KV interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// ObjectStore is the narrow round-trip surface the object-store probe
// exercises. internal/objectstore.Client satisfies this directly.
type ObjectStore interface {
	Put(ctx context.Context, id string, data []byte) error
	Fetch(ctx context.Context, id string) ([]byte, error)
	Delete(ctx context.Context, id string) error
}

// ClusterRuntime reports whether the runtime is reachable at all; a plain
// ListByLabel query over the managed-sandbox selector is a cheap proxy for
// "can we talk to the runtime". runtime.Adapter satisfies this directly.
type ClusterRuntime interface {
	ListByLabel(ctx context.Context, kv map[string]string) ([]*runtime.Sandbox, error)
}

const probeKey = "health:probe:marker"

// Service runs the kv, object-store, and cluster round-trip probes plus the
// pool's aggregate-stats probe, and caches the combined report.
type Service struct {
	kv      KV
	store   ObjectStore
	cluster ClusterRuntime
	pool    *pool.Pool
	cfg     config.HealthConfig
	cache   *cache.TTLCache
	metrics *metrics.Metrics
}

// New constructs a health Service. kv, store, and cluster may each be nil
// when that collaborator is not configured, in which case its probe
// reports Unknown rather than attempting a call.
func New(kv KV, store ObjectStore, cluster ClusterRuntime, pl *pool.Pool, cfg config.HealthConfig, c *cache.TTLCache) *Service {
	return &Service{kv: kv, store: store, cluster: cluster, pool: pl, cfg: cfg, cache: c, metrics: metrics.Get()}
}

// CheckAll runs every configured probe concurrently (or returns the cached
// result from the last 30s window when useCache is true).
func (s *Service) CheckAll(ctx context.Context, useCache bool) (*Report, error) {
	if useCache {
		var cached Report
		if err := s.cache.GetJSON(ctx, cache.HealthResultKey, &cached); err == nil {
			cached.Cached = true
			return &cached, nil
		}
	}

	results := make(map[string]Result, 4)
	type probeOutcome struct {
		name   string
		result Result
	}
	outcomes := make(chan probeOutcome, 4)

	go func() { outcomes <- probeOutcome{"kv", s.probeKV(ctx)} }()
	go func() { outcomes <- probeOutcome{"object_store", s.probeObjectStore(ctx)} }()
	go func() { outcomes <- probeOutcome{"cluster_runtime", s.probeCluster(ctx)} }()
	go func() { outcomes <- probeOutcome{"pool", s.probePool(ctx)} }()

	for i := 0; i < 4; i++ {
		o := <-outcomes
		results[o.name] = o.result
		s.metrics.HealthProbeDuration.WithLabelValues(o.name).Observe(o.result.ResponseTimeMs / 1000.0)
		s.metrics.HealthProbeStatus.WithLabelValues(o.name).Set(gaugeValue[o.result.Status])
	}

	overall := worst(results)
	report := &Report{Overall: overall, Services: results, Cached: false}

	if raw, err := json.Marshal(report); err == nil {
		_ = s.cache.Set(ctx, cache.HealthResultKey, raw, s.cfg.CacheTTL)
	}
	return report, nil
}

func worst(results map[string]Result) Status {
	best := Healthy
	for _, r := range results {
		if statusRank[r.Status] > statusRank[best] {
			best = r.Status
		}
	}
	return best
}

func classify(err error, elapsed, threshold time.Duration) Status {
	if err != nil {
		return Unhealthy
	}
	if elapsed > threshold {
		return Degraded
	}
	return Healthy
}
