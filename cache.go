package herald

import (
	"context"
	"sync"
	"time"
)

// historySize is how many builds the console shows.
const historySize = 50

// BuildCache is an in-memory cache of the recent build history with TTL.
type BuildCache struct {
	mu      sync.RWMutex
	builds  []BuildRecord
	fetched time.Time
	ttl     time.Duration
	store   *Store
}

// NewBuildCache creates a BuildCache backed by the given Store.
func NewBuildCache(s *Store, ttl time.Duration) *BuildCache {
	return &BuildCache{store: s, ttl: ttl}
}

func (c *BuildCache) valid() bool {
	return c.builds != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *BuildCache) Invalidate() {
	c.mu.Lock()
	c.builds = nil
	c.mu.Unlock()
}

// ListBuilds returns recent builds, newest first.
// It tries a read lock first; only takes a write lock if a reload is needed.
func (c *BuildCache) ListBuilds(ctx context.Context) ([]BuildRecord, error) {
	c.mu.RLock()
	if c.valid() {
		builds := c.builds
		c.mu.RUnlock()
		return builds, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid() {
		return c.builds, nil
	}
	builds, err := c.store.ListBuilds(ctx, historySize)
	if err != nil {
		return nil, err
	}
	if builds == nil {
		builds = []BuildRecord{}
	}
	c.builds = builds
	c.fetched = time.Now()
	return builds, nil
}

// Latest returns the newest build, if any.
func (c *BuildCache) Latest(ctx context.Context) (BuildRecord, bool, error) {
	builds, err := c.ListBuilds(ctx)
	if err != nil || len(builds) == 0 {
		return BuildRecord{}, false, err
	}
	return builds[0], true, nil
}
