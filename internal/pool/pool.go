// Package pool is the Pool: a per-language reservoir of pre-warmed
// sandboxes with warmup, acquire (hit/miss), destroy-on-release, and
// refill. No sandbox is ever reused across executions — release always
// destroys (spec.md §4.C).
package pool

import (
	"context"
	"sync"
	"time"

	"sandboxcore/internal/config"
	"sandboxcore/internal/metrics"
	"sandboxcore/internal/runtime"
	"sandboxcore/internal/sandbox"
)

// reserveSessionID tags sandboxes still sitting in a bucket, before any
// real session has acquired them.
const reserveSessionID = "pool-reserve"

// Stats mirrors spec.md's PoolStats shape for one language bucket.
type Stats struct {
	Language          string    `json:"language"`
	Available         int       `json:"available_count"`
	AssignedCount     int       `json:"assigned_count"` // sandboxes acquired and not yet released
	Creating          int       `json:"creating"`
	TargetSize        int       `json:"target_size"`
	TotalAcquisitions int64     `json:"total_acquisitions"`
	PoolHits          int64     `json:"pool_hits"`
	PoolMisses        int64     `json:"pool_misses"`
	Created           int64     `json:"pods_created"`
	Destroyed         int64     `json:"pods_destroyed"`
	AvgAcquireMs      float64   `json:"avg_acquire_time_ms"`
	Timestamp         time.Time `json:"timestamp"`
}

type bucket struct {
	mu sync.Mutex

	language   string
	targetSize int

	available []*runtime.Sandbox
	creating  int
	inUse     int // acquired via Acquire, not yet handed to Release

	totalAcquisitions int64
	poolHits          int64
	poolMisses        int64
	created           int64
	destroyed         int64
	avgAcquireMs      float64

	refilling bool // single-refiller invariant
}

// Pool owns one bucket per language.
type Pool struct {
	mgr     *sandbox.Manager
	adapter runtime.Adapter
	cfg     config.PoolConfig

	buckets map[string]*bucket

	destroyCh chan *runtime.Sandbox
	metrics   *metrics.Metrics
}

// New constructs a Pool with one bucket per configured language.
func New(mgr *sandbox.Manager, adapter runtime.Adapter, cfg config.PoolConfig) *Pool {
	p := &Pool{
		mgr:       mgr,
		adapter:   adapter,
		cfg:       cfg,
		buckets:   make(map[string]*bucket, len(cfg.TargetSizes)),
		destroyCh: make(chan *runtime.Sandbox, cfg.DestructionQueueSize),
		metrics:   metrics.Get(),
	}
	for lang, size := range cfg.TargetSizes {
		p.buckets[lang] = &bucket{language: lang, targetSize: size}
	}
	go p.drainDestructionQueue()
	return p
}

// Adapter exposes the underlying Runtime Adapter for callers (the
// Execution Coordinator) that need to drive exec/archive operations
// directly against an acquired sandbox.
func (p *Pool) Adapter() runtime.Adapter { return p.adapter }

func (p *Pool) bucketFor(language string) *bucket {
	b, ok := p.buckets[language]
	if !ok {
		// Unconfigured languages behave as a pure-passthrough bucket
		// (target_size=0): every acquire is a miss.
		b = &bucket{language: language, targetSize: 0}
		p.buckets[language] = b
	}
	return b
}

// Stats returns the current PoolStats for one language.
func (p *Pool) Stats(language string) Stats {
	b := p.bucketFor(language)
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Language:          b.language,
		Available:         len(b.available),
		AssignedCount:     b.inUse,
		Creating:          b.creating,
		TargetSize:        b.targetSize,
		TotalAcquisitions: b.totalAcquisitions,
		PoolHits:          b.poolHits,
		PoolMisses:        b.poolMisses,
		Created:           b.created,
		Destroyed:         b.destroyed,
		AvgAcquireMs:      b.avgAcquireMs,
		Timestamp:         time.Now().UTC(),
	}
}

// StatsAll returns PoolStats for every language with a bucket.
func (p *Pool) StatsAll() map[string]Stats {
	out := make(map[string]Stats, len(p.buckets))
	for lang := range p.buckets {
		out[lang] = p.Stats(lang)
	}
	return out
}

func (p *Pool) publishGauges(b *bucket) {
	b.mu.Lock()
	available := len(b.available)
	creating := b.creating
	inUse := b.inUse
	avg := b.avgAcquireMs
	b.mu.Unlock()

	p.metrics.PoolAvailable.WithLabelValues(b.language).Set(float64(available))
	p.metrics.PoolInUse.WithLabelValues(b.language).Set(float64(inUse))
	p.metrics.PoolCreating.WithLabelValues(b.language).Set(float64(creating))
	p.metrics.PoolAcquireMs.WithLabelValues(b.language).Set(avg)
}

// Close closes the destruction queue and returns without waiting: the
// background drain goroutine still destroys whatever was already queued,
// then exits. The refill loop is not stopped here; it ends when the
// context passed to RunRefillLoop is cancelled.
func (p *Pool) Close(ctx context.Context) {
	close(p.destroyCh)
}
