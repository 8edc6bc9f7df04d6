package sqlagent

import (
	"time"
)

// Limits bounds a run. Every ceiling and the backoff curve are explicit
// configuration; there are no inferred constants.
//
// Retry ceilings count consecutive failures and reset on success: a run
// that recovers keeps its full budget for the next incident.
type Limits struct {
	// MaxIterations is the maximum number of tool round-trips
	// (call + observation pairs) per run. Exceeding it terminates the run
	// with CauseIterationLimit.
	MaxIterations int

	// RateLimitRetries is the number of consecutive throttled provider
	// calls that are retried (with backoff) before the run fails with
	// CauseRateLimited. A ceiling of 2 means: two retries, three provider
	// calls total.
	RateLimitRetries int

	// MalformedRetries is the number of consecutive unparseable model
	// responses that are fed back as corrective observations before the
	// run fails with CauseMalformedExhausted.
	MalformedRetries int

	// BackoffBase is the first rate-limit backoff delay. Delay doubles per
	// consecutive retry: base, 2*base, 4*base, ...
	BackoffBase time.Duration

	// BackoffMax caps the computed backoff delay. A provider Retry-After
	// hint longer than the computed delay is honored up to this cap.
	BackoffMax time.Duration

	// RunTimeout bounds the whole run's wall-clock time. Zero means no
	// deadline. Exceeding it terminates the run with CauseTimeout.
	RunTimeout time.Duration
}

// DefaultLimits returns the default run bounds.
func DefaultLimits() Limits {
	return Limits{
		MaxIterations:    15,
		RateLimitRetries: 3,
		MalformedRetries: 3,
		BackoffBase:      1 * time.Second,
		BackoffMax:       30 * time.Second,
		RunTimeout:       2 * time.Minute,
	}
}

// Backoff returns the delay before the given consecutive retry (1-based),
// preferring a provider hint when it is longer, capped at BackoffMax.
func (l Limits) Backoff(retry int, hint time.Duration) time.Duration {
	if retry < 1 {
		retry = 1
	}
	d := l.BackoffBase
	for i := 1; i < retry; i++ {
		d *= 2
		if d >= l.BackoffMax {
			d = l.BackoffMax
			break
		}
	}
	if hint > d {
		d = hint
	}
	if l.BackoffMax > 0 && d > l.BackoffMax {
		d = l.BackoffMax
	}
	return d
}
