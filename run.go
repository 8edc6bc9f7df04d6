package sqlagent

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Run carries all per-request state through one agent loop invocation: the
// transcript, counters, limits, and the hook firer. Every component
// receives the run explicitly; there is no process-wide mutable state, so
// concurrent requests cannot interfere.
//
// A Run is created by the service per request and discarded at
// termination. The transcript it owns is strictly sequential; Stats is
// safe for concurrent reads by hooks.
type Run struct {
	id         string
	transcript *Transcript
	stats      *Stats
	limits     Limits
	startTime  time.Time
	hooks      HookFirer
}

// NewRun creates a run for the given request with its own transcript and
// zeroed stats.
func NewRun(req QueryRequest, limits Limits) *Run {
	return &Run{
		id:         uuid.NewString(),
		transcript: NewTranscript(req),
		stats:      NewStats(),
		limits:     limits,
		startTime:  time.Now(),
	}
}

// WithHooks sets the hook firer. Returns the run for chaining.
func (r *Run) WithHooks(h HookFirer) *Run {
	r.hooks = h
	return r
}

// WithStartTime overrides the run start time. Used by the executor with
// its injected clock so duration metadata is testable.
func (r *Run) WithStartTime(t time.Time) *Run {
	r.startTime = t
	return r
}

// ID returns the unique run identifier, used for log correlation.
func (r *Run) ID() string {
	return r.id
}

// Request returns the originating request.
func (r *Run) Request() QueryRequest {
	return r.transcript.Request()
}

// Transcript returns the run's transcript.
func (r *Run) Transcript() *Transcript {
	return r.transcript
}

// Stats returns the run's counters.
func (r *Run) Stats() *Stats {
	return r.stats
}

// Limits returns the run's bounds.
func (r *Run) Limits() Limits {
	return r.limits
}

// StartTime returns when the run began.
func (r *Run) StartTime() time.Time {
	return r.startTime
}

// Hook firing helpers. All are nil-safe so components can fire
// unconditionally.

func (r *Run) FireBeforeRun(ctx context.Context, event BeforeRunEvent) {
	if r != nil && r.hooks != nil {
		r.hooks.FireBeforeRun(ctx, r, event)
	}
}

func (r *Run) FireAfterRun(ctx context.Context, event AfterRunEvent) {
	if r != nil && r.hooks != nil {
		r.hooks.FireAfterRun(ctx, r, event)
	}
}

func (r *Run) FireBeforeStep(ctx context.Context, event BeforeStepEvent) {
	if r != nil && r.hooks != nil {
		r.hooks.FireBeforeStep(ctx, r, event)
	}
}

func (r *Run) FireAfterStep(ctx context.Context, event AfterStepEvent) {
	if r != nil && r.hooks != nil {
		r.hooks.FireAfterStep(ctx, r, event)
	}
}

func (r *Run) FireBeforeModelCall(ctx context.Context, event BeforeModelCallEvent) {
	if r != nil && r.hooks != nil {
		r.hooks.FireBeforeModelCall(ctx, r, event)
	}
}

func (r *Run) FireAfterModelCall(ctx context.Context, event AfterModelCallEvent) {
	if r != nil && r.hooks != nil {
		r.hooks.FireAfterModelCall(ctx, r, event)
	}
}

func (r *Run) FireBeforeToolCall(ctx context.Context, event BeforeToolCallEvent) {
	if r != nil && r.hooks != nil {
		r.hooks.FireBeforeToolCall(ctx, r, event)
	}
}

func (r *Run) FireAfterToolCall(ctx context.Context, event AfterToolCallEvent) {
	if r != nil && r.hooks != nil {
		r.hooks.FireAfterToolCall(ctx, r, event)
	}
}
