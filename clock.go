package sqlagent

import (
	"context"
	"time"
)

// Clock provides time and cancellable sleeping. Inject a fake in tests to
// make backoff and duration metadata deterministic.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Sleep blocks for d or until ctx is done, returning ctx.Err() in the
	// latter case. Backoff delays must use this so a suspended request
	// still honors cancellation.
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is the standard Clock using the system timer.
type SystemClock struct{}

// NewSystemClock creates a new SystemClock.
func NewSystemClock() *SystemClock {
	return &SystemClock{}
}

// Now returns the current system time.
func (c *SystemClock) Now() time.Time {
	return time.Now()
}

// Sleep blocks for d or until ctx is done.
func (c *SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Compile-time check that SystemClock implements Clock.
var _ Clock = (*SystemClock)(nil)
