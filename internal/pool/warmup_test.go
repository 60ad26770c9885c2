package pool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"sandboxcore/internal/config"
)

func TestWarmup_FillsBucketsToTargetSize(t *testing.T) {
	adapter := &fakeAdapter{}
	p := newTestPool(t, adapter, config.PoolTargetSizes{"py": 3, "js": 1})
	p.cfg.WarmupOnStartup = true
	p.cfg.WarmupConcurrency = 4

	p.Warmup(context.Background())

	assert.Len(t, p.bucketFor("py").available, 3)
	assert.Len(t, p.bucketFor("js").available, 1)
}

func TestWarmup_SkippedWhenDisabled(t *testing.T) {
	adapter := &fakeAdapter{}
	p := newTestPool(t, adapter, config.PoolTargetSizes{"py": 2})
	p.cfg.WarmupOnStartup = false

	p.Warmup(context.Background())

	assert.Empty(t, p.bucketFor("py").available)
}

func TestWarmup_FailedHealthProbeDoesNotAdmitSandbox(t *testing.T) {
	adapter := &fakeAdapter{execResult: nil, execErr: assert.AnError}
	p := newTestPool(t, adapter, config.PoolTargetSizes{"py": 2})
	p.cfg.WarmupOnStartup = true

	p.Warmup(context.Background())

	assert.Empty(t, p.bucketFor("py").available)
}

func TestWarmup_CreationFailureIncrementsDestroyed(t *testing.T) {
	adapter := &fakeAdapter{createErr: assert.AnError}
	p := newTestPool(t, adapter, config.PoolTargetSizes{"py": 2})
	p.cfg.WarmupOnStartup = true

	p.Warmup(context.Background())

	b := p.bucketFor("py")
	assert.Empty(t, b.available)
	assert.EqualValues(t, 2, b.destroyed)
}

func TestRefillTick_ToppsUpToTargetSize(t *testing.T) {
	adapter := &fakeAdapter{}
	p := newTestPool(t, adapter, config.PoolTargetSizes{"py": 2})
	p.cfg.WarmupConcurrency = 4

	p.RefillTick(context.Background())

	assert.Eventually(t, func() bool {
		return len(p.bucketFor("py").available) == 2
	}, assertEventuallyWaitFor, assertEventuallyTick)
}
