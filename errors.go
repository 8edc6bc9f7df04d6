package sqlagent

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for tool contract violations and provider transport failures.
// Match with errors.Is.
var (
	// ErrUnknownTool is returned when a tool call names a tool that is not
	// registered. Fed back to the model as a corrective observation.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrInvalidArguments is returned when tool call arguments do not satisfy
	// the tool's declared parameter schema.
	ErrInvalidArguments = errors.New("invalid arguments")

	// ErrProviderUnavailable is returned when the LLM provider cannot be
	// reached or rejects authentication. Fatal to the run; not retried.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrNoSectionsFound is returned by a StepFormat when the model output
	// contains none of the expected sections.
	ErrNoSectionsFound = errors.New("no sections found in output")

	// ErrMissingToolName is returned when an action section parses as JSON
	// but carries no tool name.
	ErrMissingToolName = errors.New("missing tool name in action")

	// ErrInvalidJSON is returned when an action section body is not valid
	// JSON.
	ErrInvalidJSON = errors.New("invalid JSON in action")
)

// RateLimitError reports that the provider signaled throttling (HTTP 429).
// RetryAfter carries the provider's retry hint when one was present, zero
// otherwise. The executor retries with bounded exponential backoff.
type RateLimitError struct {
	// RetryAfter is the provider-suggested wait before retrying, if any.
	RetryAfter time.Duration

	// Err is the underlying transport error.
	Err error
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("rate limited: %v", e.Err)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// MalformedResponseError reports that model output could not be parsed into
// a step shape and no embedded final answer was recoverable. The agent loop
// treats it as a retryable condition: it appends a corrective observation
// and asks the model to reformat, bounded by Limits.MalformedRetries.
type MalformedResponseError struct {
	// Detail describes what was wrong with the output.
	Detail string

	// Raw is the unparseable model output, echoed back in the corrective
	// observation so the model can see what it produced.
	Raw string

	// Err is the underlying sentinel when one applies, e.g.
	// ErrNoSectionsFound or ErrMissingToolName. May be nil.
	Err error
}

func (e *MalformedResponseError) Error() string {
	return "malformed model response: " + e.Detail
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// ToolFailure is an in-band tool failure: the tool ran (or refused to run)
// and produced a structured error the model can correct against, such as a
// SQL syntax error or a missing relation. Tools return it from Call; the
// registry renders it into an error observation. It is never fatal by
// itself.
type ToolFailure struct {
	// Class is a coarse machine-readable classification, e.g. "syntax",
	// "undefined_table", "permission", "timeout", "rejected".
	Class string

	// Message is the raw underlying message, carried verbatim because the
	// next reasoning step needs it to correct the call.
	Message string
}

func (e *ToolFailure) Error() string {
	return e.Class + ": " + e.Message
}

// FailureCause is a stable, caller-facing classification of why a run
// terminated without an answer.
type FailureCause string

const (
	// CauseRateLimited: consecutive provider throttling exhausted the
	// configured retry ceiling.
	CauseRateLimited FailureCause = "rate_limited"

	// CauseMalformedExhausted: consecutive unparseable model responses
	// exhausted the configured retry ceiling.
	CauseMalformedExhausted FailureCause = "malformed_exhausted"

	// CauseIterationLimit: the loop consumed the configured maximum number
	// of tool round-trips without reaching an answer.
	CauseIterationLimit FailureCause = "iteration_limit"

	// CauseTimeout: the run exceeded its overall wall-clock deadline.
	CauseTimeout FailureCause = "timeout"

	// CauseCanceled: the caller canceled the request (e.g. client
	// disconnect) and cancellation propagated into the in-flight call.
	CauseCanceled FailureCause = "canceled"

	// CauseProviderUnavailable: transport or auth failure talking to the
	// LLM provider.
	CauseProviderUnavailable FailureCause = "provider_unavailable"

	// CauseToolFatal: a tool hit an infrastructure failure that
	// self-correction cannot fix, such as database connection loss.
	CauseToolFatal FailureCause = "tool_fatal"

	// CauseInternal: an unexpected error escaped the loop. Should not occur
	// in steady state; logged as an anomaly.
	CauseInternal FailureCause = "internal"
)

// Failure is the terminal error result of a run. It always carries a stable
// cause code, a human-readable message, retry guidance for the end user,
// and the same provenance metadata a successful answer would have.
//
// Failure implements error so Submit can return it directly.
type Failure struct {
	// Cause is the stable classification code.
	Cause FailureCause

	// Message describes what happened, for logs and callers.
	Message string

	// Guidance tells the end user what to do next, e.g. "try again in a
	// few seconds" for rate limits or "try rephrasing the question" for
	// iteration exhaustion.
	Guidance string

	// Meta carries the run's provenance metadata (model, duration,
	// round-trips, retries), populated even on failure.
	Meta AnswerMeta
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Cause, f.Message)
}

// AsFailure extracts a *Failure from err, or wraps err as an internal
// failure when it is not one. Never returns nil for a non-nil err.
func AsFailure(err error) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return &Failure{
		Cause:    CauseInternal,
		Message:  err.Error(),
		Guidance: "Try again; if the problem persists, contact the operator.",
	}
}
