package endpoint

import (
	"context"
	"sync"
	"time"

	"github.com/jonwraymond/healthops/cache"
	"github.com/jonwraymond/healthops/health"
)

const snapshotKey = "health.snapshot"

// CachedConfig configures the caching evaluator.
type CachedConfig struct {
	// TTL is how long a snapshot stays fresh. Default: 10 seconds.
	TTL time.Duration

	// RefreshInterval is the background refresh period. Default: TTL/2.
	RefreshInterval time.Duration

	// Store holds the snapshot. Default: an in-memory TTL cache.
	Store cache.Cache
}

// CachedEvaluator decorates an Evaluator so the request path never runs
// indicator checks: a background loop refreshes a snapshot on an interval,
// and requests serve the latest snapshot. This is the event-loop-friendly
// adapter; reads never block on indicator execution.
//
// A request arriving before the first refresh, or after the snapshot
// expired without a running refresher, falls through to the delegate once
// and primes the cache.
type CachedEvaluator struct {
	delegate Evaluator
	config   CachedConfig

	mu      sync.Mutex
	stop    chan struct{}
	stopped sync.Once
}

// NewCachedEvaluator creates a caching decorator over delegate. Call Start
// to begin background refreshing and Stop to end it.
func NewCachedEvaluator(delegate Evaluator, config ...CachedConfig) *CachedEvaluator {
	cfg := CachedConfig{TTL: 10 * time.Second}
	if len(config) > 0 {
		cfg = config[0]
		if cfg.TTL <= 0 {
			cfg.TTL = 10 * time.Second
		}
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = cfg.TTL / 2
	}
	if cfg.Store == nil {
		cfg.Store = cache.NewMemoryCache()
	}
	return &CachedEvaluator{
		delegate: delegate,
		config:   cfg,
		stop:     make(chan struct{}),
	}
}

// Start launches the background refresh loop. The loop runs until Stop is
// called; the given context bounds each individual refresh.
func (c *CachedEvaluator) Start(ctx context.Context) {
	go func() {
		c.refresh(ctx, true)
		ticker := time.NewTicker(c.config.RefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.refresh(ctx, true)
			case <-c.stop:
				return
			}
		}
	}()
}

// Stop ends the background refresh loop. Idempotent.
func (c *CachedEvaluator) Stop() {
	c.stopped.Do(func() { close(c.stop) })
}

// Health serves the cached snapshot, evaluating inline only when no fresh
// snapshot exists.
func (c *CachedEvaluator) Health(ctx context.Context) health.CompositeHealth {
	if v, ok := c.config.Store.Get(ctx, snapshotKey); ok {
		if snapshot, ok := v.(health.CompositeHealth); ok {
			return snapshot
		}
	}
	return c.refresh(ctx, false)
}

// CheckOne bypasses the snapshot: single-component queries are rare,
// explicitly addressed, and expected to be live.
func (c *CachedEvaluator) CheckOne(ctx context.Context, name string) (health.Health, error) {
	return c.delegate.CheckOne(ctx, name)
}

func (c *CachedEvaluator) refresh(ctx context.Context, force bool) health.CompositeHealth {
	// One refresh at a time; concurrent callers of a cold cache line up
	// behind the first evaluation rather than stampeding the indicators.
	c.mu.Lock()
	defer c.mu.Unlock()

	if !force {
		if v, ok := c.config.Store.Get(ctx, snapshotKey); ok {
			if snapshot, ok := v.(health.CompositeHealth); ok {
				return snapshot
			}
		}
	}
	snapshot := c.delegate.Health(ctx)
	_ = c.config.Store.Set(ctx, snapshotKey, snapshot, c.config.TTL)
	return snapshot
}

var _ Evaluator = (*CachedEvaluator)(nil)
