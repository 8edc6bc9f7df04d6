package sqlagent

import (
	"context"
)

// LoopAction indicates whether the loop should continue or terminate.
type LoopAction string

const (
	LAContinue  LoopAction = "c"
	LATerminate LoopAction = "t"
)

// StepOutcome is the result of one AgentLoop.Next call.
type StepOutcome struct {
	// Action indicates whether to continue or terminate the loop.
	Action LoopAction

	// Answer is the final answer text, set only when Action is
	// LATerminate.
	Answer string
}

// AgentLoop performs one reasoning step: build the prompt from the run's
// transcript, call the model, parse the output, dispatch at most one tool
// call, and record the iteration.
//
// The executor package calls Next repeatedly and owns the state machine
// around it: rate-limit backoff and retry, malformed-response ceilings,
// the iteration ceiling, timeout and cancellation mapping, and final
// answer synthesis.
//
// Error contract for Next:
//   - *RateLimitError: the provider call was throttled; nothing was
//     recorded, retrying the same state is safe.
//   - ErrProviderUnavailable (wrapped): transport/auth failure, fatal.
//   - *ToolFatalError: a tool hit an infrastructure failure, fatal.
//   - context errors propagate and match with errors.Is.
//
// Recoverable conditions (unparseable output, in-band tool failures) are
// handled inside Next by appending corrective observations; they return a
// LAContinue outcome, not an error.
type AgentLoop interface {
	Next(ctx context.Context, run *Run) (*StepOutcome, error)
}

// ToolFatalError reports that a tool invocation failed in a way
// self-correction cannot fix, such as database connection loss. The
// executor terminates the run with CauseToolFatal.
type ToolFatalError struct {
	// Observation is the fatal observation, already appended to the
	// transcript.
	Observation Observation
}

func (e *ToolFatalError) Error() string {
	return "fatal tool failure: " + e.Observation.Content
}
