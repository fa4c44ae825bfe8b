package reading

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"readingbot/pkg/rediskey"
)

// Canceller carries the cancel signal checked before every step. A raised
// signal stops playback; it never changes the session status.
type Canceller interface {
	Cancel(ctx context.Context, sessionID string) error
	Cancelled(ctx context.Context, sessionID string) (bool, error)
}

// RedisCanceller shares the signal between the API process and the workers.
type RedisCanceller struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCanceller(rdb *redis.Client, ttl time.Duration) *RedisCanceller {
	return &RedisCanceller{rdb: rdb, ttl: ttl}
}

func (c *RedisCanceller) Cancel(ctx context.Context, sessionID string) error {
	return c.rdb.Set(ctx, rediskey.BuildReadingCancelKey(sessionID), "1", c.ttl).Err()
}

func (c *RedisCanceller) Cancelled(ctx context.Context, sessionID string) (bool, error) {
	n, err := c.rdb.Exists(ctx, rediskey.BuildReadingCancelKey(sessionID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MemoryCanceller is used in single-process mode.
type MemoryCanceller struct {
	mu        sync.RWMutex
	cancelled map[string]struct{}
}

func NewMemoryCanceller() *MemoryCanceller {
	return &MemoryCanceller{cancelled: make(map[string]struct{})}
}

func (c *MemoryCanceller) Cancel(_ context.Context, sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelled[sessionID] = struct{}{}
	return nil
}

func (c *MemoryCanceller) Cancelled(_ context.Context, sessionID string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.cancelled[sessionID]
	return ok, nil
}
