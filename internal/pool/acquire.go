package pool

import (
	"context"
	"time"

	"sandboxcore/internal/logging"
	"sandboxcore/internal/runtime"
)

// ewmaAlpha is the smoothing factor for the acquire-time moving average.
const ewmaAlpha = 0.2

// Acquire returns a sandbox for language bound to sessionID. A warm
// sandbox is popped from the bucket when one is available (pool hit);
// otherwise one is created fresh (pool miss). Either way the returned
// sandbox is never shared with another caller again (spec.md §4.C).
func (p *Pool) Acquire(ctx context.Context, language, sessionID string, replMode bool) (*runtime.Sandbox, string, error) {
	start := time.Now()
	b := p.bucketFor(language)

	sb, hit := b.pop()
	if hit {
		// The real container's Docker labels were fixed at creation time
		// under the reserve session; this rebinds our own bookkeeping copy
		// so code reading sb.Labels sees the caller's session. Runtime
		// ListByLabel queries still see the reserve session id.
		rebound := make(map[string]string, len(sb.Labels))
		for k, v := range sb.Labels {
			rebound[k] = v
		}
		rebound["session-id"] = sessionID
		sb.Labels = rebound

		p.recordAcquire(b, start, true)
		b.mu.Lock()
		b.inUse++
		b.mu.Unlock()
		p.publishGauges(b)
		return sb, "pool_hit", nil
	}

	// A pool miss is counted whether or not the fresh creation below
	// succeeds: the acquisition attempt happened, the pool just had
	// nothing warm to serve it.
	p.recordAcquire(b, start, false)

	sb, err := p.mgr.CreateForSession(ctx, language, sessionID, replMode)
	if err != nil {
		p.publishGauges(b)
		return nil, "pool_miss", err
	}

	b.mu.Lock()
	b.created++
	b.inUse++
	b.mu.Unlock()
	p.metrics.PoolCreatedTotal.WithLabelValues(language).Inc()
	p.publishGauges(b)
	return sb, "pool_miss", nil
}

func (b *bucket) pop() (*runtime.Sandbox, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.available) == 0 {
		return nil, false
	}
	sb := b.available[len(b.available)-1]
	b.available = b.available[:len(b.available)-1]
	return sb, true
}

func (p *Pool) recordAcquire(b *bucket, start time.Time, hit bool) {
	elapsedMs := float64(time.Since(start).Microseconds()) / 1000.0

	b.mu.Lock()
	b.totalAcquisitions++
	if hit {
		b.poolHits++
	} else {
		b.poolMisses++
	}
	if b.avgAcquireMs == 0 {
		b.avgAcquireMs = elapsedMs
	} else {
		b.avgAcquireMs = ewmaAlpha*elapsedMs + (1-ewmaAlpha)*b.avgAcquireMs
	}
	b.mu.Unlock()

	origin := "pool_miss"
	if hit {
		origin = "pool_hit"
	}
	p.metrics.PoolAcquisitionsTotal.WithLabelValues(b.language, origin).Inc()
}

// Release always destroys sb; it is never returned to the bucket. The
// destruction is queued to a bounded channel so the caller isn't blocked
// on container teardown; a full queue degrades to an immediate best-effort
// destroy (spec.md §4.C backpressure rule).
func (p *Pool) Release(ctx context.Context, sb *runtime.Sandbox) {
	b := p.bucketFor(sb.Language)
	b.mu.Lock()
	if b.inUse > 0 {
		b.inUse--
	}
	b.mu.Unlock()
	p.publishGauges(b)

	select {
	case p.destroyCh <- sb:
	default:
		logging.Sandbox(sb.ID, sb.Labels["session-id"], sb.Language).
			Warn("release: destruction queue full, destroying inline")
		p.destroyOne(context.Background(), sb)
	}
}

func (p *Pool) drainDestructionQueue() {
	for sb := range p.destroyCh {
		p.destroyOne(context.Background(), sb)
	}
}

func (p *Pool) destroyOne(ctx context.Context, sb *runtime.Sandbox) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if n := p.mgr.BatchDestroy(ctx, []*runtime.Sandbox{sb}, 1); n == 0 {
		logging.Sandbox(sb.ID, sb.Labels["session-id"], sb.Language).
			Warn("destroy: sandbox was already gone or remove failed")
	}

	b := p.bucketFor(sb.Language)
	b.mu.Lock()
	b.destroyed++
	b.mu.Unlock()
	p.metrics.PoolDestroyedTotal.WithLabelValues(sb.Language).Inc()
	p.publishGauges(b)
}
