package pool

import (
	"context"
	"sync"
	"time"

	"sandboxcore/internal/logging"
)

// probeCommand is the idle-sandbox health check run after creation, before
// a sandbox is admitted to a bucket's available list.
var probeCommand = []string{"echo", "ok"}

// Warmup fills every bucket configured for warmup_on_startup up to its
// target_size, bounded by WarmupConcurrency (spec.md §4.C).
func (p *Pool) Warmup(ctx context.Context) {
	if !p.cfg.WarmupOnStartup {
		return
	}

	sem := make(chan struct{}, max(1, p.cfg.WarmupConcurrency))
	var wg sync.WaitGroup

	for lang, b := range p.buckets {
		need := b.targetSize
		for i := 0; i < need; i++ {
			wg.Add(1)
			sem <- struct{}{}
			go func(lang string, b *bucket) {
				defer wg.Done()
				defer func() { <-sem }()
				p.createAndAdmit(ctx, lang, b)
			}(lang, b)
		}
	}
	wg.Wait()
}

func (p *Pool) createAndAdmit(ctx context.Context, language string, b *bucket) {
	b.mu.Lock()
	b.creating++
	b.mu.Unlock()
	p.publishGauges(b)

	defer func() {
		b.mu.Lock()
		b.creating--
		b.mu.Unlock()
		p.publishGauges(b)
	}()

	sb, err := p.mgr.CreateForSession(ctx, language, reserveSessionID, false)
	if err != nil {
		logging.L().Warn("pool warmup: create failed", logging.Err(err)...)
		b.mu.Lock()
		b.destroyed++
		b.mu.Unlock()
		p.metrics.PoolDestroyedTotal.WithLabelValues(language).Inc()
		return
	}

	res, err := p.adapter.Exec(ctx, sb, probeCommand, 5*time.Second, "", nil)
	if err != nil || res.ExitCode != 0 {
		logging.Sandbox(sb.ID, reserveSessionID, language).Warn("pool warmup: health probe failed", logging.Err(err)...)
		p.destroyOne(ctx, sb)
		return
	}

	b.mu.Lock()
	b.available = append(b.available, sb)
	b.created++
	b.mu.Unlock()
	p.metrics.PoolCreatedTotal.WithLabelValues(language).Inc()
	p.publishGauges(b)
}

// RefillTick runs one refill pass over every bucket: it tops each bucket up
// to target_size, skipping buckets already mid-refill (single-refiller
// invariant) so overlapping ticks never double-create.
func (p *Pool) RefillTick(ctx context.Context) {
	for lang, b := range p.buckets {
		b.mu.Lock()
		if b.refilling {
			b.mu.Unlock()
			continue
		}
		need := b.targetSize - len(b.available) - b.creating
		if need <= 0 {
			b.mu.Unlock()
			continue
		}
		b.refilling = true
		b.mu.Unlock()

		go p.refillBucket(ctx, lang, b, need)
	}
}

func (p *Pool) refillBucket(ctx context.Context, language string, b *bucket, need int) {
	defer func() {
		b.mu.Lock()
		b.refilling = false
		b.mu.Unlock()
	}()

	sem := make(chan struct{}, max(1, p.cfg.WarmupConcurrency))
	var wg sync.WaitGroup
	for i := 0; i < need; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			p.createAndAdmit(ctx, language, b)
		}()
	}
	wg.Wait()
}

// RunRefillLoop blocks, running RefillTick every cfg.RefillInterval until
// ctx is cancelled. Intended to be started as its own goroutine by the
// assembler.
func (p *Pool) RunRefillLoop(ctx context.Context) {
	interval := p.cfg.RefillInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.RefillTick(ctx)
		}
	}
}
