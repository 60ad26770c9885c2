package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSet_RoundTripsThroughMemoryFallback(t *testing.T) {
	c := New(&Config{DefaultTTL: time.Minute, MaxMemoryItems: 100})

	require.NoError(t, c.Set(context.Background(), "k1", []byte("v1"), 0))
	got, err := c.Get(context.Background(), "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)
}

func TestGet_MissingKeyReturnsErrCacheMiss(t *testing.T) {
	c := New(DefaultConfig())
	_, err := c.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestGet_ExpiredEntryIsTreatedAsMiss(t *testing.T) {
	c := New(&Config{DefaultTTL: time.Millisecond, MaxMemoryItems: 100})
	require.NoError(t, c.Set(context.Background(), "k2", []byte("v2"), time.Millisecond))

	time.Sleep(5 * time.Millisecond)
	_, err := c.Get(context.Background(), "k2")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestGetJSONSetJSON_RoundTrip(t *testing.T) {
	c := New(DefaultConfig())
	type payload struct {
		Name string `json:"name"`
	}

	require.NoError(t, c.SetJSON(context.Background(), "k3", payload{Name: "widget"}, 0))

	var got payload
	require.NoError(t, c.GetJSON(context.Background(), "k3", &got))
	assert.Equal(t, "widget", got.Name)
}

func TestGetOrSetJSON_CallsLoaderOnlyOnMiss(t *testing.T) {
	c := New(DefaultConfig())
	type payload struct {
		Value int `json:"value"`
	}

	calls := 0
	loader := func() (interface{}, error) {
		calls++
		return payload{Value: 42}, nil
	}

	var got payload
	require.NoError(t, c.GetOrSetJSON(context.Background(), "k4", time.Minute, &got, loader))
	assert.Equal(t, 42, got.Value)
	assert.Equal(t, 1, calls)

	var got2 payload
	require.NoError(t, c.GetOrSetJSON(context.Background(), "k4", time.Minute, &got2, loader))
	assert.Equal(t, 42, got2.Value)
	assert.Equal(t, 1, calls, "loader must not run again on a cache hit")
}

func TestStats_TracksHitsAndMisses(t *testing.T) {
	c := New(DefaultConfig())
	_, _ = c.Get(context.Background(), "absent")
	require.NoError(t, c.Set(context.Background(), "present", []byte("x"), 0))
	_, _ = c.Get(context.Background(), "present")

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}
