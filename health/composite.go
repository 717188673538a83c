package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/healthops/resilience"
)

// CheckListener observes individual indicator checks. Wired to metrics by
// the composing application.
type CheckListener func(name string, result Health, elapsed time.Duration)

// AggregateListener observes each folded composite result. Wired to the
// aggregate status gauge by the composing application.
type AggregateListener func(result CompositeHealth)

// CompositeConfig configures the composite indicator.
type CompositeConfig struct {
	// Timeout is the per-indicator check timeout.
	// Default: 10 seconds.
	Timeout time.Duration

	// MaxConcurrent bounds how many indicators run at once when Parallel
	// is enabled. Default: 10.
	MaxConcurrent int

	// Parallel runs indicator checks concurrently when true.
	// Default: true.
	Parallel bool

	// Flat serializes component entries as bare statuses (no details).
	Flat bool

	// OnCheck, when set, is invoked after every indicator check.
	OnCheck CheckListener

	// OnAggregate, when set, is invoked after every full evaluation with
	// the folded result. Deduplicated evaluations notify once.
	OnAggregate AggregateListener
}

// Composite evaluates every indicator in a Registry and folds the results
// into a single CompositeHealth using a StatusAggregator.
//
// A slow or failing indicator cannot block or corrupt the others: each
// check runs under its own timeout, panics are captured as DOWN results,
// and concurrency is bounded by a bulkhead. Concurrent evaluations are
// deduplicated, so a burst of health requests triggers one pass over the
// indicators.
type Composite struct {
	config     CompositeConfig
	registry   *Registry
	aggregator *StatusAggregator
	bulkhead   *resilience.Bulkhead
	timeout    *resilience.Timeout
	group      singleflight.Group
}

// NewComposite creates a composite indicator over the given registry and
// aggregator.
func NewComposite(registry *Registry, aggregator *StatusAggregator, config ...CompositeConfig) *Composite {
	cfg := CompositeConfig{
		Timeout:       10 * time.Second,
		MaxConcurrent: 10,
		Parallel:      true,
	}
	if len(config) > 0 {
		cfg = config[0]
		if cfg.Timeout <= 0 {
			cfg.Timeout = 10 * time.Second
		}
		if cfg.MaxConcurrent <= 0 {
			cfg.MaxConcurrent = 10
		}
	}
	if aggregator == nil {
		aggregator = NewStatusAggregator()
	}

	return &Composite{
		config:     cfg,
		registry:   registry,
		aggregator: aggregator,
		bulkhead: resilience.NewBulkhead(resilience.BulkheadConfig{
			MaxConcurrent: cfg.MaxConcurrent,
			MaxWait:       cfg.Timeout,
		}),
		timeout: resilience.NewTimeout(resilience.TimeoutConfig{
			Timeout: cfg.Timeout,
		}),
	}
}

// Registry returns the registry backing this composite.
func (c *Composite) Registry() *Registry {
	return c.registry
}

// Health evaluates all registered indicators and returns the folded result.
// An empty registry yields {UNKNOWN, no components}.
func (c *Composite) Health(ctx context.Context) CompositeHealth {
	v, _, _ := c.group.Do("health", func() (any, error) {
		return c.evaluate(ctx), nil
	})
	composite := v.(CompositeHealth)
	if c.config.Flat {
		return composite.Flatten()
	}
	return composite
}

// CheckOne evaluates a single registered indicator. Returns
// ErrIndicatorNotFound when the name is not registered.
func (c *Composite) CheckOne(ctx context.Context, name string) (Health, error) {
	indicator := c.registry.Get(name)
	if indicator == nil {
		return Health{}, ErrIndicatorNotFound
	}
	return c.runCheck(ctx, name, indicator), nil
}

// Check lets the composite act as an Indicator itself: the aggregate
// status with one status detail per component.
func (c *Composite) Check(ctx context.Context) Health {
	composite := c.Health(ctx)
	b := NewHealth().Status(composite.Status())
	for _, name := range composite.ComponentNames() {
		component, _ := composite.Component(name)
		b.WithDetail(name, string(component.Status()))
	}
	return b.Build()
}

func (c *Composite) evaluate(ctx context.Context) CompositeHealth {
	composite := c.fold(ctx)
	if c.config.OnAggregate != nil {
		c.config.OnAggregate(composite)
	}
	return composite
}

func (c *Composite) fold(ctx context.Context) CompositeHealth {
	snapshot := c.registry.Snapshot()
	if len(snapshot) == 0 {
		return NewCompositeHealth(StatusUnknown, nil, nil)
	}

	names := make([]string, len(snapshot))
	results := make(map[string]Health, len(snapshot))

	if c.config.Parallel {
		var wg sync.WaitGroup
		var mu sync.Mutex
		for i, reg := range snapshot {
			names[i] = reg.Name
			wg.Add(1)
			go func(name string, indicator Indicator) {
				defer wg.Done()
				result := c.runCheck(ctx, name, indicator)
				mu.Lock()
				results[name] = result
				mu.Unlock()
			}(reg.Name, reg.Indicator)
		}
		wg.Wait()
	} else {
		for i, reg := range snapshot {
			names[i] = reg.Name
			results[reg.Name] = c.runCheck(ctx, reg.Name, reg.Indicator)
		}
	}

	overall := c.aggregator.Aggregate(results)
	return NewCompositeHealth(overall, names, results)
}

// runCheck executes one indicator with timeout, panic isolation and
// bulkhead admission. The caller's cancellation is deliberately not
// propagated: checks may have side effects on shared external resources
// and must complete independently of the request that triggered them.
func (c *Composite) runCheck(ctx context.Context, name string, indicator Indicator) (result Health) {
	start := time.Now()
	defer func() {
		if c.config.OnCheck != nil {
			c.config.OnCheck(name, result, time.Since(start))
		}
	}()

	checkCtx := context.WithoutCancel(ctx)

	if err := c.bulkhead.Acquire(checkCtx); err != nil {
		return c.rejected()
	}
	defer c.bulkhead.Release()

	var h Health
	err := c.timeout.Execute(checkCtx, func(tctx context.Context) error {
		defer func() {
			if r := recover(); r != nil {
				h = NewHealth().Down().
					WithDetail("error", fmt.Sprintf("unknown error: %v", r)).
					Build()
			}
		}()
		h = indicator.Check(tctx)
		return nil
	})
	if err != nil {
		return c.timedOut()
	}
	result = h
	return result
}

func (c *Composite) timedOut() Health {
	return NewHealth().Down().
		WithDetail("error", ErrCheckTimeout.Error()).
		WithDetail("timeout", c.config.Timeout.String()).
		Build()
}

// rejected marks a check that was never admitted, so operators can tell
// saturation from a hung dependency.
func (c *Composite) rejected() Health {
	return NewHealth().Down().
		WithDetail("error", ErrCheckRejected.Error()).
		WithDetail("max_concurrent", c.config.MaxConcurrent).
		Build()
}
