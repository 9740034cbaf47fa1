package model

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLister counts calls and returns whatever its fields say.
type fakeLister struct {
	mu     sync.Mutex
	calls  int
	models []string
	err    error

	// When set, the lister blocks until released, so tests can observe
	// reads that race a refresh.
	started  chan struct{}
	release  chan struct{}
	blocking bool
}

func (f *fakeLister) ListImageModels(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	f.calls++
	blocking := f.blocking
	models, err := f.models, f.err
	f.mu.Unlock()

	if blocking {
		f.started <- struct{}{}
		<-f.release
	}

	if err != nil {
		return nil, err
	}
	return models, nil
}

func (f *fakeLister) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestDiscoveryCacheRefreshAndTTL(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{models: []string{"imagen-3", "gemini-2.0-flash-exp"}}
	cache, err := NewDiscoveryCache(lister, time.Minute)
	require.NoError(t, err)

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	// First read performs discovery.
	got := cache.ImageModels(context.Background())
	assert.Equal(t, []string{"imagen-3", "gemini-2.0-flash-exp"}, got)
	assert.Equal(t, 1, lister.callCount())

	// Within the TTL the cached list is served.
	now = now.Add(30 * time.Second)
	got = cache.ImageModels(context.Background())
	assert.Equal(t, []string{"imagen-3", "gemini-2.0-flash-exp"}, got)
	assert.Equal(t, 1, lister.callCount())

	// Past the TTL a fresh discovery runs.
	now = now.Add(2 * time.Minute)
	lister.models = []string{"imagen-4"}
	got = cache.ImageModels(context.Background())
	assert.Equal(t, []string{"imagen-4"}, got)
	assert.Equal(t, 2, lister.callCount())
}

func TestDiscoveryCacheFallbackOnError(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{err: errors.New("discovery unreachable")}
	cache, err := NewDiscoveryCache(lister, time.Minute)
	require.NoError(t, err)

	got := cache.ImageModels(context.Background())
	assert.Equal(t, FallbackImageModels(), got)

	// A failed refresh must not be cached as fresh; the next read tries
	// discovery again.
	lister.err = nil
	lister.models = []string{"imagen-3"}
	got = cache.ImageModels(context.Background())
	assert.Equal(t, []string{"imagen-3"}, got)
	assert.Equal(t, 2, lister.callCount())
}

func TestDiscoveryCacheEmptyResultFallsBack(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{models: nil}
	cache, err := NewDiscoveryCache(lister, time.Minute)
	require.NoError(t, err)

	got := cache.ImageModels(context.Background())
	assert.Equal(t, FallbackImageModels(), got)
}

func TestDiscoveryCacheStaleReadDuringRefresh(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{
		models:  []string{"imagen-3"},
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	cache, err := NewDiscoveryCache(lister, time.Minute)
	require.NoError(t, err)

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	var nowMu sync.Mutex
	cache.now = func() time.Time {
		nowMu.Lock()
		defer nowMu.Unlock()
		return now
	}

	// Prime the cache, then expire it.
	cache.ImageModels(context.Background())
	nowMu.Lock()
	now = now.Add(5 * time.Minute)
	nowMu.Unlock()

	// Start a refresh that blocks inside the lister.
	lister.mu.Lock()
	lister.blocking = true
	lister.models = []string{"imagen-4"}
	lister.mu.Unlock()

	done := make(chan []string)
	go func() {
		done <- cache.ImageModels(context.Background())
	}()
	<-lister.started

	// While the refresh is in flight, readers get the stale list instead
	// of blocking.
	stale := cache.ImageModels(context.Background())
	assert.Equal(t, []string{"imagen-3"}, stale)

	close(lister.release)

	select {
	case refreshed := <-done:
		assert.Equal(t, []string{"imagen-4"}, refreshed)
	case <-time.After(2 * time.Second):
		t.Fatal("refresh did not complete")
	}
}

func TestNewDiscoveryCacheValidation(t *testing.T) {
	t.Parallel()

	_, err := NewDiscoveryCache(nil, time.Minute)
	assert.ErrorIs(t, err, ErrNilLister)

	cache, err := NewDiscoveryCache(&fakeLister{models: []string{"m"}}, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultDiscoveryTTL, cache.ttl)
}
