package health

import (
	"context"
	"time"
)

// Pinger is the seam for ping-style connectivity checks. *sql.DB satisfies
// it directly, so any database handle can back a PingIndicator without this
// package importing a driver.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingIndicator reports UP when the wrapped Pinger responds and DOWN when
// it errors or is nil.
type PingIndicator struct {
	pinger Pinger
	target string
}

// NewPingIndicator creates a ping-backed indicator. The target string, when
// non-empty, is reported as a detail to identify the checked resource.
func NewPingIndicator(pinger Pinger, target string) *PingIndicator {
	return &PingIndicator{pinger: pinger, target: target}
}

// Check pings the resource.
func (p *PingIndicator) Check(ctx context.Context) Health {
	b := NewHealth()
	if p.target != "" {
		b.WithDetail("target", p.target)
	}
	if p.pinger == nil {
		return b.Down().WithDetail("error", "not connected").Build()
	}

	start := time.Now()
	if err := p.pinger.PingContext(ctx); err != nil {
		return b.Down().WithError(err).Build()
	}
	return b.Up().WithDetail("latency", time.Since(start).String()).Build()
}
