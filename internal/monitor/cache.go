package monitor

import (
	"context"
	"sync"
	"time"

	"codeberg.org/mutker/usagemon/internal/logger"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheTTL is how long a computed snapshot is served before it is
// recomputed.
const DefaultCacheTTL = time.Second

// Clock returns the current time.
type Clock func() time.Time

// LoadFunc computes a fresh cache value.
type LoadFunc[T any] func(ctx context.Context) (T, error)

// Cache holds a single shared value that expires after a TTL. Concurrent
// callers that find it expired share one load.
type Cache[T any] struct {
	ttl   time.Duration
	clock Clock
	load  LoadFunc[T]
	group singleflight.Group

	mu         sync.RWMutex
	value      T
	lastUpdate time.Time
	valid      bool
}

func NewCache[T any](ttl time.Duration, clock Clock, load LoadFunc[T]) *Cache[T] {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if clock == nil {
		clock = time.Now
	}

	return &Cache[T]{ttl: ttl, clock: clock, load: load}
}

// Get returns the cached value while it is fresh and loads it otherwise. A
// failed load serves the previous value when there is one; the error is
// returned only if nothing was ever loaded.
func (c *Cache[T]) Get(ctx context.Context) (T, error) {
	if v, ok := c.fresh(); ok {
		return v, nil
	}

	res, err, _ := c.group.Do("refresh", func() (any, error) {
		// another flight may have finished while this caller waited
		if v, ok := c.fresh(); ok {
			return v, nil
		}

		v, err := c.load(context.WithoutCancel(ctx))
		if err != nil {
			c.mu.RLock()
			stale, valid := c.value, c.valid
			c.mu.RUnlock()
			if !valid {
				return nil, err
			}

			logger.Warn().Err(err).Msg("Refresh failed, serving previous value")
			return stale, nil
		}

		c.mu.Lock()
		c.value = v
		c.lastUpdate = c.clock()
		c.valid = true
		c.mu.Unlock()

		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	return res.(T), nil
}

func (c *Cache[T]) fresh() (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.valid && c.clock().Sub(c.lastUpdate) < c.ttl {
		return c.value, true
	}

	var zero T
	return zero, false
}
