package health

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestComposite_EmptyRegistry(t *testing.T) {
	c := NewComposite(NewRegistry(), NewStatusAggregator())

	result := c.Health(context.Background())
	if result.Status() != StatusUnknown {
		t.Errorf("Status() = %v, want UNKNOWN", result.Status())
	}
	if len(result.ComponentNames()) != 0 {
		t.Errorf("ComponentNames() = %v, want empty", result.ComponentNames())
	}
}

func TestComposite_AggregatesWorst(t *testing.T) {
	registry := NewRegistry()
	mustRegister(t, registry, "db", NewStaticIndicator(Up()))
	mustRegister(t, registry, "queue", NewStaticIndicator(Down(errors.New("broker unreachable"))))

	c := NewComposite(registry, NewStatusAggregator())
	result := c.Health(context.Background())

	if result.Status() != StatusDown {
		t.Errorf("Status() = %v, want DOWN", result.Status())
	}
	db, ok := result.Component("db")
	if !ok || db.Status() != StatusUp {
		t.Errorf("Component(db) = %v, want UP", db.Status())
	}
	queue, ok := result.Component("queue")
	if !ok || queue.Status() != StatusDown {
		t.Errorf("Component(queue) = %v, want DOWN", queue.Status())
	}
}

func TestComposite_PanicIsolation(t *testing.T) {
	registry := NewRegistry()
	mustRegister(t, registry, "ok", NewStaticIndicator(Up()))
	mustRegister(t, registry, "broken", IndicatorFunc(func(ctx context.Context) Health {
		panic("indicator bug")
	}))

	c := NewComposite(registry, NewStatusAggregator())
	result := c.Health(context.Background())

	if result.Status() != StatusDown {
		t.Errorf("Status() = %v, want DOWN", result.Status())
	}

	broken, _ := result.Component("broken")
	if broken.Status() != StatusDown {
		t.Errorf("Component(broken) = %v, want DOWN", broken.Status())
	}
	if v, _ := broken.Detail("error"); !strings.Contains(v.(string), "unknown error") {
		t.Errorf("Detail(error) = %v, want unknown error detail", v)
	}

	// The healthy sibling is unaffected.
	ok, _ := result.Component("ok")
	if ok.Status() != StatusUp {
		t.Errorf("Component(ok) = %v, want UP", ok.Status())
	}
}

func TestComposite_Timeout(t *testing.T) {
	registry := NewRegistry()
	mustRegister(t, registry, "slow", IndicatorFunc(func(ctx context.Context) Health {
		select {
		case <-time.After(5 * time.Second):
			return Up()
		case <-ctx.Done():
			<-time.After(5 * time.Second) // ignores cancellation
			return Up()
		}
	}))
	mustRegister(t, registry, "fast", NewStaticIndicator(Up()))

	c := NewComposite(registry, NewStatusAggregator(), CompositeConfig{
		Timeout:  50 * time.Millisecond,
		Parallel: true,
	})

	start := time.Now()
	result := c.Health(context.Background())
	elapsed := time.Since(start)

	if elapsed > time.Second {
		t.Errorf("Health() took %v, want bounded by timeout plus overhead", elapsed)
	}
	slow, _ := result.Component("slow")
	if slow.Status() != StatusDown {
		t.Errorf("Component(slow) = %v, want DOWN", slow.Status())
	}
	if v, _ := slow.Detail("error"); v != ErrCheckTimeout.Error() {
		t.Errorf("Detail(error) = %v, want %v", v, ErrCheckTimeout.Error())
	}
	if _, ok := slow.Detail("timeout"); !ok {
		t.Error("Detail(timeout) missing")
	}
}

func TestComposite_Sequential(t *testing.T) {
	registry := NewRegistry()
	mustRegister(t, registry, "a", NewStaticIndicator(Up()))
	mustRegister(t, registry, "b", NewStaticIndicator(Up()))

	c := NewComposite(registry, NewStatusAggregator(), CompositeConfig{Parallel: false})
	result := c.Health(context.Background())

	if result.Status() != StatusUp {
		t.Errorf("Status() = %v, want UP", result.Status())
	}
	names := result.ComponentNames()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("ComponentNames() = %v, want [a b]", names)
	}
}

func TestComposite_DetachedFromCallerCancellation(t *testing.T) {
	started := make(chan struct{})
	var sawCancel atomic.Bool

	registry := NewRegistry()
	mustRegister(t, registry, "effectful", IndicatorFunc(func(ctx context.Context) Health {
		close(started)
		select {
		case <-ctx.Done():
			sawCancel.Store(true)
			return Down(ctx.Err())
		case <-time.After(100 * time.Millisecond):
			return Up()
		}
	}))

	c := NewComposite(registry, NewStatusAggregator(), CompositeConfig{Timeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	result := c.Health(ctx)
	if sawCancel.Load() {
		t.Error("indicator observed caller cancellation, want detached execution")
	}
	effectful, _ := result.Component("effectful")
	if effectful.Status() != StatusUp {
		t.Errorf("Component(effectful) = %v, want UP", effectful.Status())
	}
}

func TestComposite_CheckOne(t *testing.T) {
	registry := NewRegistry()
	mustRegister(t, registry, "db", NewStaticIndicator(Up()))

	c := NewComposite(registry, NewStatusAggregator())

	h, err := c.CheckOne(context.Background(), "db")
	if err != nil {
		t.Fatalf("CheckOne() error = %v", err)
	}
	if h.Status() != StatusUp {
		t.Errorf("Status() = %v, want UP", h.Status())
	}

	if _, err := c.CheckOne(context.Background(), "nope"); !errors.Is(err, ErrIndicatorNotFound) {
		t.Errorf("CheckOne(missing) error = %v, want ErrIndicatorNotFound", err)
	}
}

func TestComposite_AsIndicator(t *testing.T) {
	registry := NewRegistry()
	mustRegister(t, registry, "db", NewStaticIndicator(Up()))
	mustRegister(t, registry, "queue", NewStaticIndicator(Down(nil)))

	c := NewComposite(registry, NewStatusAggregator())
	h := c.Check(context.Background())

	if h.Status() != StatusDown {
		t.Errorf("Status() = %v, want DOWN", h.Status())
	}
	if v, _ := h.Detail("db"); v != "UP" {
		t.Errorf("Detail(db) = %v, want UP", v)
	}
}

func TestComposite_OnCheckListener(t *testing.T) {
	var calls atomic.Int64

	registry := NewRegistry()
	mustRegister(t, registry, "db", NewStaticIndicator(Up()))
	mustRegister(t, registry, "queue", NewStaticIndicator(Up()))

	c := NewComposite(registry, NewStatusAggregator(), CompositeConfig{
		Parallel: true,
		OnCheck: func(name string, result Health, elapsed time.Duration) {
			calls.Add(1)
		},
	})

	c.Health(context.Background())
	if calls.Load() != 2 {
		t.Errorf("OnCheck calls = %d, want 2", calls.Load())
	}
}

func TestComposite_OnAggregateHook(t *testing.T) {
	registry := NewRegistry()
	mustRegister(t, registry, "db", NewStaticIndicator(Up()))
	mustRegister(t, registry, "queue", NewStaticIndicator(Down(nil)))

	var calls atomic.Int64
	var folded CompositeHealth
	c := NewComposite(registry, NewStatusAggregator(), CompositeConfig{
		OnAggregate: func(result CompositeHealth) {
			calls.Add(1)
			folded = result
		},
	})

	c.Health(context.Background())
	if calls.Load() != 1 {
		t.Errorf("OnAggregate calls = %d, want 1", calls.Load())
	}
	if folded.Status() != StatusDown {
		t.Errorf("folded status = %v, want DOWN", folded.Status())
	}
}

func TestComposite_RejectsWhenSaturated(t *testing.T) {
	registry := NewRegistry()
	mustRegister(t, registry, "db", NewStaticIndicator(Up()))

	c := NewComposite(registry, NewStatusAggregator(), CompositeConfig{
		Timeout:       30 * time.Millisecond,
		MaxConcurrent: 1,
	})

	// Hold the only admission slot so the check is never admitted.
	if err := c.bulkhead.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer c.bulkhead.Release()

	h, err := c.CheckOne(context.Background(), "db")
	if err != nil {
		t.Fatalf("CheckOne() error = %v", err)
	}
	if h.Status() != StatusDown {
		t.Errorf("Status() = %v, want DOWN", h.Status())
	}
	if v, _ := h.Detail("error"); v != ErrCheckRejected.Error() {
		t.Errorf("Detail(error) = %v, want %v", v, ErrCheckRejected.Error())
	}
	if _, ok := h.Detail("timeout"); ok {
		t.Error("rejection carries a timeout detail")
	}
	if v, _ := h.Detail("max_concurrent"); v != 1 {
		t.Errorf("Detail(max_concurrent) = %v, want 1", v)
	}
}

func TestComposite_Flat(t *testing.T) {
	registry := NewRegistry()
	mustRegister(t, registry, "db", NewStaticIndicator(NewHealth().Up().WithDetail("latency", "1ms").Build()))

	c := NewComposite(registry, NewStatusAggregator(), CompositeConfig{Flat: true})
	data, err := c.Health(context.Background()).MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	if string(data) != `{"status":"UP","details":{"db":"UP"}}` {
		t.Errorf("MarshalJSON() = %s", data)
	}
}

func mustRegister(t *testing.T, r *Registry, name string, ind Indicator) {
	t.Helper()
	if err := r.Register(name, ind); err != nil {
		t.Fatalf("Register(%s) error = %v", name, err)
	}
}
