package health

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sandboxcore/internal/cache"
	"sandboxcore/internal/config"
	"sandboxcore/internal/runtime"
)

type fakeKV struct {
	mu   sync.Mutex
	data map[string]string
	err  error
}

func newFakeKV() *fakeKV { return &fakeKV{data: map[string]string{}} }

func (f *fakeKV) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value.(string)
	return nil
}

func (f *fakeKV) Get(ctx context.Context, key string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data[key], nil
}

func (f *fakeKV) Del(ctx context.Context, keys ...string) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

type fakeObjectStore struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newFakeObjectStore() *fakeObjectStore { return &fakeObjectStore{data: map[string][]byte{}} }

func (f *fakeObjectStore) Put(ctx context.Context, id string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[id] = data
	return nil
}

func (f *fakeObjectStore) Fetch(ctx context.Context, id string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data[id], nil
}

func (f *fakeObjectStore) Delete(ctx context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, id)
	return nil
}

type fakeCluster struct {
	err error
}

func (f *fakeCluster) ListByLabel(ctx context.Context, kv map[string]string) ([]*runtime.Sandbox, error) {
	if f.err != nil {
		return nil, f.err
	}
	return nil, nil
}

func testHealthConfig() config.HealthConfig {
	return config.HealthConfig{
		KVThreshold:          50 * time.Millisecond,
		ObjectStoreThreshold: 50 * time.Millisecond,
		ClusterThreshold:     50 * time.Millisecond,
		CacheTTL:             30 * time.Second,
	}
}

func TestCheckAll_ConfiguredProbesHealthyWhenEachSucceeds(t *testing.T) {
	svc := New(newFakeKV(), newFakeObjectStore(), &fakeCluster{}, nil, testHealthConfig(), cache.New(cache.DefaultConfig()))

	report, err := svc.CheckAll(context.Background(), false)
	require.NoError(t, err)
	// No pool is configured, so the pool probe reports Unknown, which
	// outranks Healthy in worst().
	assert.Equal(t, Unknown, report.Services["pool"].Status)
	assert.Equal(t, Unknown, report.Overall)
	assert.Equal(t, Healthy, report.Services["kv"].Status)
	assert.Equal(t, Healthy, report.Services["object_store"].Status)
	assert.Equal(t, Healthy, report.Services["cluster_runtime"].Status)
	assert.False(t, report.Cached)
}

func TestCheckAll_UnconfiguredCollaboratorsReportUnknown(t *testing.T) {
	svc := New(nil, nil, nil, nil, testHealthConfig(), cache.New(cache.DefaultConfig()))

	report, err := svc.CheckAll(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, Unknown, report.Services["kv"].Status)
	assert.Equal(t, Unknown, report.Services["object_store"].Status)
	assert.Equal(t, Unknown, report.Services["cluster_runtime"].Status)
	assert.Equal(t, Unknown, report.Services["pool"].Status)
	// worst() treats Unknown as worse than Healthy, so the overall rolls up.
	assert.Equal(t, Unknown, report.Overall)
}

func TestCheckAll_OneUnhealthyProbeMakesOverallUnhealthy(t *testing.T) {
	svc := New(&fakeKV{err: errors.New("kv down")}, newFakeObjectStore(), &fakeCluster{}, nil, testHealthConfig(), cache.New(cache.DefaultConfig()))

	report, err := svc.CheckAll(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, Unhealthy, report.Services["kv"].Status)
	assert.Equal(t, Unhealthy, report.Overall)
}

func TestCheckAll_CachesResultAndServesItOnNextCall(t *testing.T) {
	c := cache.New(cache.DefaultConfig())
	svc := New(newFakeKV(), newFakeObjectStore(), &fakeCluster{}, nil, testHealthConfig(), c)

	first, err := svc.CheckAll(context.Background(), true)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := svc.CheckAll(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Overall, second.Overall)
}

func TestWorst_PicksHighestRankedStatus(t *testing.T) {
	results := map[string]Result{
		"a": {Status: Healthy},
		"b": {Status: Degraded},
		"c": {Status: Healthy},
	}
	assert.Equal(t, Degraded, worst(results))
}

func TestClassify_DegradedWhenOverThreshold(t *testing.T) {
	assert.Equal(t, Healthy, classify(nil, 10*time.Millisecond, 50*time.Millisecond))
	assert.Equal(t, Degraded, classify(nil, 100*time.Millisecond, 50*time.Millisecond))
	assert.Equal(t, Unhealthy, classify(errors.New("boom"), time.Millisecond, 50*time.Millisecond))
}
