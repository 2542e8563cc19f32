package infra

import (
	"context"
	"time"
)

// Backoff computes capped exponential retry delays: Base * 2^attempt, at most Max.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// DefaultBackoff is used by the HTTP collaborators unless configured otherwise.
var DefaultBackoff = Backoff{Base: 500 * time.Millisecond, Max: 10 * time.Second}

// Delay returns the wait before retry number attempt (0-based).
// A negative attempt returns Base.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 0 {
		return b.Base
	}
	// 2^30 * Base is beyond any sane cap; stop shifting before overflow.
	if attempt > 30 {
		return b.Max
	}

	d := b.Base * time.Duration(1<<attempt)
	if d > b.Max || d <= 0 {
		return b.Max
	}
	return d
}

// Sleep waits for Delay(attempt) or until ctx is done.
func (b Backoff) Sleep(ctx context.Context, attempt int) error {
	t := time.NewTimer(b.Delay(attempt))
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
