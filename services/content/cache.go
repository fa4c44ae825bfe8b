package content

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const snapshotKey = "active_script"

// CachedStore serves playback reads from a short-lived snapshot of the active
// script. Concurrent misses share one load.
type CachedStore struct {
	next Script
	ttl  time.Duration
	now  func() time.Time

	mu       sync.RWMutex
	snapshot []ScriptStep
	loadedAt time.Time
	group    singleflight.Group
}

func NewCachedStore(next Script, ttl time.Duration) *CachedStore {
	return &CachedStore{
		next: next,
		ttl:  ttl,
		now:  time.Now,
	}
}

func (c *CachedStore) ListActiveScript(ctx context.Context) ([]ScriptStep, error) {
	c.mu.RLock()
	if c.loadedAt.IsZero() || (c.ttl > 0 && c.now().Sub(c.loadedAt) > c.ttl) {
		c.mu.RUnlock()
		return c.load(ctx)
	}
	snapshot := c.snapshot
	c.mu.RUnlock()

	return snapshot, nil
}

func (c *CachedStore) NextStep(ctx context.Context, after *Cursor) (*ScriptStep, error) {
	script, err := c.ListActiveScript(ctx)
	if err != nil {
		return nil, err
	}

	for i := range script {
		if script[i].After(after) {
			step := script[i]
			return &step, nil
		}
	}
	return nil, nil
}

func (c *CachedStore) load(ctx context.Context) ([]ScriptStep, error) {
	v, err, _ := c.group.Do(snapshotKey, func() (any, error) {
		script, err := c.next.ListActiveScript(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.snapshot = script
		c.loadedAt = c.now()
		c.mu.Unlock()

		return script, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]ScriptStep), nil
}
