package sqlagent

import (
	"time"

	"github.com/tmc/langchaingo/llms"
)

// HookEvent is a marker interface for all hook events.
type HookEvent interface {
	hookEvent()
}

// BeforeRunEvent is emitted once before the first reasoning step.
type BeforeRunEvent struct{}

func (BeforeRunEvent) hookEvent() {}

// AfterRunEvent is emitted once after the run terminates. Exactly one of
// Answer and Failure is non-nil.
type AfterRunEvent struct {
	// Answer is the final answer on success.
	Answer *FinalAnswer

	// Failure is the classified failure otherwise.
	Failure *Failure
}

func (AfterRunEvent) hookEvent() {}

// BeforeStepEvent is emitted before each AgentLoop.Next call.
type BeforeStepEvent struct {
	// Step is the 1-indexed reasoning step number, counting every Next
	// call including rate-limit retries.
	Step int
}

func (BeforeStepEvent) hookEvent() {}

// AfterStepEvent is emitted after each AgentLoop.Next call that produced
// an outcome (not after transport errors).
type AfterStepEvent struct {
	// Step is the 1-indexed reasoning step number.
	Step int

	// Outcome is the step's result.
	Outcome *StepOutcome

	// Duration is how long the step took.
	Duration time.Duration
}

func (AfterStepEvent) hookEvent() {}

// BeforeModelCallEvent is emitted before each provider call.
type BeforeModelCallEvent struct {
	// ModelID identifies the model being called.
	ModelID string

	// Messages is the message sequence being sent.
	Messages []llms.MessageContent
}

func (BeforeModelCallEvent) hookEvent() {}

// AfterModelCallEvent is emitted after each provider call completes.
type AfterModelCallEvent struct {
	// ModelID identifies the model that was called.
	ModelID string

	// Response is the provider response, nil on error.
	Response *ContentResponse

	// Duration is how long the call took.
	Duration time.Duration

	// Err is the transport error, nil on success.
	Err error
}

func (AfterModelCallEvent) hookEvent() {}

// BeforeToolCallEvent is emitted before each tool dispatch, after argument
// validation.
type BeforeToolCallEvent struct {
	// Call is the validated tool call about to execute.
	Call ToolCall
}

func (BeforeToolCallEvent) hookEvent() {}

// AfterToolCallEvent is emitted after each tool dispatch, including
// validation failures (which never reach the tool).
type AfterToolCallEvent struct {
	// Observation is the dispatch result.
	Observation Observation

	// Duration is how long the dispatch took.
	Duration time.Duration
}

func (AfterToolCallEvent) hookEvent() {}
