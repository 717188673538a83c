package health

import (
	"context"
	"fmt"
	"runtime"
)

// MemoryIndicatorConfig configures the process memory indicator.
type MemoryIndicatorConfig struct {
	// CriticalThreshold is the fraction of MaxAlloc at which the indicator
	// reports DOWN. Value between 0 and 1. Default: 0.95.
	CriticalThreshold float64

	// MaxAlloc is the maximum expected allocation in bytes. When zero the
	// runtime's reported system memory is used.
	MaxAlloc uint64
}

// MemoryIndicator reports the health of process memory usage.
type MemoryIndicator struct {
	config MemoryIndicatorConfig
}

// NewMemoryIndicator creates a process memory indicator.
func NewMemoryIndicator(config ...MemoryIndicatorConfig) *MemoryIndicator {
	cfg := MemoryIndicatorConfig{CriticalThreshold: 0.95}
	if len(config) > 0 {
		cfg = config[0]
		if cfg.CriticalThreshold <= 0 || cfg.CriticalThreshold >= 1 {
			cfg.CriticalThreshold = 0.95
		}
	}
	return &MemoryIndicator{config: cfg}
}

// Check reports UP while allocation stays under the critical threshold and
// DOWN once it crosses it.
func (m *MemoryIndicator) Check(ctx context.Context) Health {
	select {
	case <-ctx.Done():
		return Down(ctx.Err())
	default:
	}

	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	maxAlloc := m.config.MaxAlloc
	if maxAlloc == 0 {
		maxAlloc = stats.Sys
	}
	if maxAlloc == 0 {
		return NewHealth().Up().WithDetail("alloc_bytes", stats.Alloc).Build()
	}

	usage := float64(stats.Alloc) / float64(maxAlloc)
	b := NewHealth().
		WithDetail("alloc_bytes", stats.Alloc).
		WithDetail("max_alloc", maxAlloc).
		WithDetail("usage_percent", fmt.Sprintf("%.1f", usage*100)).
		WithDetail("heap_objects", stats.HeapObjects).
		WithDetail("num_gc", stats.NumGC).
		WithDetail("goroutines", runtime.NumGoroutine())

	if usage >= m.config.CriticalThreshold {
		return b.Down().WithDetail("error", "memory usage critical").Build()
	}
	return b.Up().Build()
}
