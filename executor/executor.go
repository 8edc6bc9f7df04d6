// Package executor drives the agent loop to termination.
//
// The executor owns the state machine around AgentLoop.Next: rate-limit
// backoff and retry, the malformed-response and iteration ceilings,
// timeout and cancellation mapping, and synthesis of the terminal result.
// Every run ends in exactly one of a *sqlagent.FinalAnswer or a
// *sqlagent.Failure with a stable cause code; both carry the same
// provenance metadata (model, duration, round-trips, retries).
//
// The executor does not set deadlines itself. The caller bounds the run by
// passing a context with a deadline (the service applies
// Limits.RunTimeout); the executor maps context errors to CauseTimeout or
// CauseCanceled.
package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/rickchristie/sqlagent"
)

// Executor runs one AgentLoop until it terminates.
//
// An Executor is cheap and carries no per-run state; runs are isolated by
// their *sqlagent.Run. It is safe to reuse one Executor across sequential
// runs of the same loop.
type Executor struct {
	loop    sqlagent.AgentLoop
	clock   sqlagent.Clock
	modelID string
}

// New creates an executor for the given loop with the system clock.
func New(loop sqlagent.AgentLoop) *Executor {
	return &Executor{
		loop:  loop,
		clock: sqlagent.NewSystemClock(),
	}
}

// WithClock sets the clock used for backoff sleeps and duration metadata.
// Use this to inject a fake clock in tests.
func (e *Executor) WithClock(clock sqlagent.Clock) *Executor {
	e.clock = clock
	return e
}

// WithModelID sets the model identifier reported in answer metadata. When
// unset, the request's model id is reported instead.
func (e *Executor) WithModelID(modelID string) *Executor {
	e.modelID = modelID
	return e
}

// Execute runs the loop until termination and returns exactly one of a
// final answer or a *sqlagent.Failure (as the error).
//
// The execution flow per step:
//  1. Map context cancellation, then check the round-trip ceiling.
//  2. Fire BeforeStep, call AgentLoop.Next, fire AfterStep on outcomes.
//  3. Rate-limit errors back off (honoring a provider hint) and retry,
//     bounded by Limits.RateLimitRetries consecutive failures.
//  4. Corrective continues are bounded by Limits.MalformedRetries
//     consecutive unparseable responses.
//  5. Everything else is terminal, mapped to its failure cause.
func (e *Executor) Execute(
	ctx context.Context,
	run *sqlagent.Run,
) (*sqlagent.FinalAnswer, error) {
	started := e.clock.Now()
	run.WithStartTime(started)

	run.FireBeforeRun(ctx, sqlagent.BeforeRunEvent{})

	answer, failure := e.drive(ctx, run)

	run.FireAfterRun(ctx, sqlagent.AfterRunEvent{
		Answer:  answer,
		Failure: failure,
	})

	if failure != nil {
		return nil, failure
	}
	return answer, nil
}

// drive is the main loop. It returns exactly one non-nil result.
func (e *Executor) drive(
	ctx context.Context,
	run *sqlagent.Run,
) (*sqlagent.FinalAnswer, *sqlagent.Failure) {
	limits := run.Limits()
	step := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, e.ctxFailure(run, err)
		}

		if run.Stats().RoundTrips() >= limits.MaxIterations {
			return nil, e.fail(run, sqlagent.CauseIterationLimit,
				fmt.Sprintf(
					"run consumed its %d tool round-trips without reaching an answer",
					limits.MaxIterations,
				),
				"Try rephrasing the question, or break it into smaller questions.",
			)
		}

		step++
		run.FireBeforeStep(ctx, sqlagent.BeforeStepEvent{Step: step})
		stepStart := e.clock.Now()

		outcome, err := e.loop.Next(ctx, run)
		if err != nil {
			answer, failure, retry := e.handleStepError(ctx, run, limits, err)
			if retry {
				continue
			}
			return answer, failure
		}

		run.FireAfterStep(ctx, sqlagent.AfterStepEvent{
			Step:     step,
			Outcome:  outcome,
			Duration: e.clock.Now().Sub(stepStart),
		})

		// A completed provider call ends any throttling incident.
		run.Stats().ResetRateLimitRetries()

		if outcome.Action == sqlagent.LATerminate {
			return &sqlagent.FinalAnswer{
				Text: outcome.Answer,
				Meta: e.meta(run),
			}, nil
		}

		if run.Stats().Snapshot().MalformedRetries > limits.MalformedRetries {
			return nil, e.fail(run, sqlagent.CauseMalformedExhausted,
				fmt.Sprintf(
					"model kept producing unparseable responses after %d corrective attempts",
					limits.MalformedRetries,
				),
				"Try again, or select a different model.",
			)
		}
	}
}

// handleStepError classifies an error from Next. It either requests a
// retry of the same state (rate limiting within budget) or produces the
// terminal failure.
func (e *Executor) handleStepError(
	ctx context.Context,
	run *sqlagent.Run,
	limits sqlagent.Limits,
	err error,
) (*sqlagent.FinalAnswer, *sqlagent.Failure, bool) {
	var rateLimited *sqlagent.RateLimitError
	var toolFatal *sqlagent.ToolFatalError

	switch {
	case errors.As(err, &rateLimited):
		count := run.Stats().IncrRateLimitRetries()
		if count > limits.RateLimitRetries {
			return nil, e.fail(run, sqlagent.CauseRateLimited,
				fmt.Sprintf(
					"provider rate limiting persisted through %d retries: %v",
					limits.RateLimitRetries, rateLimited.Err,
				),
				"The model is rate limited right now. Please try again in 10-20 seconds.",
			), false
		}

		delay := limits.Backoff(count, rateLimited.RetryAfter)
		if sleepErr := e.clock.Sleep(ctx, delay); sleepErr != nil {
			return nil, e.ctxFailure(run, sleepErr), false
		}
		return nil, nil, true

	case errors.As(err, &toolFatal):
		return nil, e.fail(run, sqlagent.CauseToolFatal,
			toolFatal.Observation.Content,
			"The database may be unavailable. Try again shortly.",
		), false

	case errors.Is(err, sqlagent.ErrProviderUnavailable):
		return nil, e.fail(run, sqlagent.CauseProviderUnavailable,
			err.Error(),
			"Check the provider configuration and API key, then try again.",
		), false

	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return nil, e.ctxFailure(run, err), false

	default:
		return nil, e.fail(run, sqlagent.CauseInternal,
			err.Error(),
			"Try again; if the problem persists, contact the operator.",
		), false
	}
}

// ctxFailure maps a context error to its failure cause.
func (e *Executor) ctxFailure(run *sqlagent.Run, err error) *sqlagent.Failure {
	if errors.Is(err, context.DeadlineExceeded) {
		return e.fail(run, sqlagent.CauseTimeout,
			"run exceeded its time budget",
			"Try again, or ask a simpler question.",
		)
	}
	return e.fail(run, sqlagent.CauseCanceled,
		"request was canceled",
		"Resubmit the question if this was not intended.",
	)
}

func (e *Executor) fail(
	run *sqlagent.Run,
	cause sqlagent.FailureCause,
	message string,
	guidance string,
) *sqlagent.Failure {
	return &sqlagent.Failure{
		Cause:    cause,
		Message:  message,
		Guidance: guidance,
		Meta:     e.meta(run),
	}
}

// meta assembles the provenance metadata from the run's counters. Both
// answers and failures carry it.
func (e *Executor) meta(run *sqlagent.Run) sqlagent.AnswerMeta {
	snap := run.Stats().Snapshot()

	modelID := e.modelID
	if modelID == "" {
		modelID = run.Request().ModelID
	}

	return sqlagent.AnswerMeta{
		ModelID:      modelID,
		Duration:     e.clock.Now().Sub(run.StartTime()),
		RoundTrips:   snap.RoundTrips,
		Retries:      snap.Retries(),
		InputTokens:  snap.InputTokens,
		OutputTokens: snap.OutputTokens,
	}
}
