package time

import (
	"context"
	"sync"
	"time"
)

// ManualTimeProvider is a TimeProvider whose clock only moves when told to.
// Used to drive grace windows, leases and backoff schedules deterministically.
type ManualTimeProvider struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualTimeProvider starts the clock at start
func NewManualTimeProvider(start time.Time) *ManualTimeProvider {
	return &ManualTimeProvider{now: start}
}

// Now returns the current manual time
func (p *ManualTimeProvider) Now() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.now
}

// Since returns the manual time elapsed since t
func (p *ManualTimeProvider) Since(t time.Time) time.Duration {
	return p.Now().Sub(t)
}

// WithTimeout uses a real deadline; outbound calls still need wall-clock protection
func (p *ManualTimeProvider) WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, timeout)
}

// Advance moves the clock forward
func (p *ManualTimeProvider) Advance(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.now = p.now.Add(d)
}

// Set moves the clock to t
func (p *ManualTimeProvider) Set(t time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.now = t
}
