package stats

import (
	"context"
	"sync"
	"time"

	pkgerrors "github.com/rmoralesdev/tradecart-backend/pkg/errors"
	"github.com/rmoralesdev/tradecart-backend/pkg/logger"
)

// WarmFunc computes a fresh dashboard payload.
type WarmFunc func(ctx context.Context) (*Dashboard, error)

// Cache memoizes the dashboard payload. Reads serve the cached snapshot while
// it is fresh; a miss or an invalidated snapshot triggers exactly one warm at
// a time, with concurrent readers waiting on the winner's result. It is a
// read-side convenience only: no pricing or checkout path ever consults it.
type Cache struct {
	warm WarmFunc
	ttl  time.Duration
	logg *logger.Logger

	mu          sync.Mutex
	snapshot    *Dashboard
	refreshedAt time.Time
	inflight    chan struct{}
}

func NewCache(warm WarmFunc, ttl time.Duration, logg *logger.Logger) (*Cache, error) {
	if warm == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stats: warm function is required")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{warm: warm, ttl: ttl, logg: logg}, nil
}

// Get returns the cached dashboard, warming it when stale or absent.
func (c *Cache) Get(ctx context.Context) (*Dashboard, error) {
	for {
		c.mu.Lock()
		if c.snapshot != nil && time.Since(c.refreshedAt) < c.ttl {
			snapshot := c.snapshot
			c.mu.Unlock()
			return snapshot, nil
		}
		if c.inflight != nil {
			wait := c.inflight
			c.mu.Unlock()
			select {
			case <-wait:
				// Re-check: the winner either filled the snapshot or failed.
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		done := make(chan struct{})
		c.inflight = done
		c.mu.Unlock()

		snapshot, err := c.warm(ctx)

		c.mu.Lock()
		c.inflight = nil
		close(done)
		if err != nil {
			// Keep any stale snapshot so readers degrade instead of erroring
			// when a re-warm fails.
			stale := c.snapshot
			c.mu.Unlock()
			if stale != nil {
				if c.logg != nil {
					c.logg.Warn(ctx, "stats re-warm failed, serving stale snapshot")
				}
				return stale, nil
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "warm stats cache")
		}
		c.snapshot = snapshot
		c.refreshedAt = time.Now()
		c.mu.Unlock()
		return snapshot, nil
	}
}

// Invalidate drops the snapshot so the next read recomputes. Writers call it
// after committing; it never blocks on a warm.
func (c *Cache) Invalidate(_ context.Context) {
	c.mu.Lock()
	c.snapshot = nil
	c.refreshedAt = time.Time{}
	c.mu.Unlock()
}

// Warm eagerly computes the snapshot, for startup and scheduled refreshes.
func (c *Cache) Warm(ctx context.Context) error {
	c.Invalidate(ctx)
	_, err := c.Get(ctx)
	return err
}
