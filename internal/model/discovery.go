package model

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DefaultDiscoveryTTL is how long a discovered model list stays fresh.
// The capability set changes rarely, so the cache is process-global.
const DefaultDiscoveryTTL = 5 * time.Minute

// fallbackImageModels is used whenever live discovery fails or returns
// nothing, so image-generation callers always get a usable candidate set.
var fallbackImageModels = []string{
	"gemini-2.0-flash-exp",
	"gemini-1.5-flash",
	"gemini-1.5-pro",
}

// FallbackImageModels returns a copy of the hard-coded image model list.
func FallbackImageModels() []string {
	return append([]string(nil), fallbackImageModels...)
}

// Lister enumerates image-generation-capable model IDs from a live
// backend. Implementations are expected to be slow; the cache exists to
// keep them off the request path.
type Lister interface {
	ListImageModels(ctx context.Context) ([]string, error)
}

// ErrNilLister is returned when a DiscoveryCache is constructed without a lister.
var ErrNilLister = errors.New("lister cannot be nil")

// DiscoveryCache caches the discovered image-model list with a TTL.
// Reads are lock-cheap and may serve a stale list while another
// goroutine refreshes; only one refresh runs at a time. Discovery
// failure falls back to the hard-coded list without poisoning the cache.
type DiscoveryCache struct {
	lister Lister
	ttl    time.Duration
	now    func() time.Time

	refreshMu sync.Mutex

	mu      sync.RWMutex
	models  []string
	expires time.Time
}

// NewDiscoveryCache creates a DiscoveryCache over the given lister.
// A non-positive ttl selects DefaultDiscoveryTTL.
func NewDiscoveryCache(lister Lister, ttl time.Duration) (*DiscoveryCache, error) {
	if lister == nil {
		return nil, ErrNilLister
	}
	if ttl <= 0 {
		ttl = DefaultDiscoveryTTL
	}
	return &DiscoveryCache{
		lister: lister,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// ImageModels returns the current image-model list, refreshing it when
// the TTL has lapsed. Callers always receive a non-empty list: a fresh
// cache entry, a stale entry while a refresh is in flight, or the
// hard-coded fallback when discovery fails.
func (c *DiscoveryCache) ImageModels(ctx context.Context) []string {
	if models, ok := c.fresh(); ok {
		return models
	}

	if !c.refreshMu.TryLock() {
		// Another goroutine is refreshing; a stale answer beats waiting.
		c.mu.RLock()
		stale := append([]string(nil), c.models...)
		c.mu.RUnlock()
		if len(stale) > 0 {
			return stale
		}
		return FallbackImageModels()
	}
	defer c.refreshMu.Unlock()

	// The list may have been refreshed while we acquired the lock.
	if models, ok := c.fresh(); ok {
		return models
	}

	models, err := c.lister.ListImageModels(ctx)
	if err != nil || len(models) == 0 {
		return FallbackImageModels()
	}

	c.mu.Lock()
	c.models = append([]string(nil), models...)
	c.expires = c.now().Add(c.ttl)
	c.mu.Unlock()

	return append([]string(nil), models...)
}

// fresh returns a copy of the cached list if it has not expired.
func (c *DiscoveryCache) fresh() ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.models) == 0 || c.now().After(c.expires) {
		return nil, false
	}
	return append([]string(nil), c.models...), true
}
