package sqlagent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDoublesPerRetry(t *testing.T) {
	l := Limits{BackoffBase: time.Second, BackoffMax: 30 * time.Second}

	assert.Equal(t, 1*time.Second, l.Backoff(1, 0))
	assert.Equal(t, 2*time.Second, l.Backoff(2, 0))
	assert.Equal(t, 4*time.Second, l.Backoff(3, 0))
	assert.Equal(t, 8*time.Second, l.Backoff(4, 0))
}

func TestBackoffCappedAtMax(t *testing.T) {
	l := Limits{BackoffBase: time.Second, BackoffMax: 5 * time.Second}

	assert.Equal(t, 5*time.Second, l.Backoff(10, 0))
}

func TestBackoffHonorsLongerHint(t *testing.T) {
	l := Limits{BackoffBase: time.Second, BackoffMax: 30 * time.Second}

	// Provider said to wait 10s; computed delay for retry 1 is 1s.
	assert.Equal(t, 10*time.Second, l.Backoff(1, 10*time.Second))

	// A hint shorter than the computed delay is ignored.
	assert.Equal(t, 4*time.Second, l.Backoff(3, time.Second))

	// Hints never exceed the cap.
	assert.Equal(t, 30*time.Second, l.Backoff(1, time.Minute))
}

func TestBackoffClampsRetryFloor(t *testing.T) {
	l := Limits{BackoffBase: 2 * time.Second, BackoffMax: 30 * time.Second}

	assert.Equal(t, 2*time.Second, l.Backoff(0, 0))
	assert.Equal(t, 2*time.Second, l.Backoff(-3, 0))
}

func TestDefaultLimits(t *testing.T) {
	l := DefaultLimits()

	assert.Equal(t, 15, l.MaxIterations)
	assert.Equal(t, 3, l.RateLimitRetries)
	assert.Equal(t, 3, l.MalformedRetries)
	assert.Positive(t, l.BackoffBase)
	assert.Positive(t, l.RunTimeout)
}
