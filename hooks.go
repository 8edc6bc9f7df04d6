package sqlagent

import (
	"context"
)

// Hooks observe execution at run, step, model-call and tool-call
// boundaries. Implement any combination of the interfaces below and
// register with hooks.Registry; a hook only receives events for the
// interfaces it implements.
//
// Hooks must not block for long and must not panic; they run inline on the
// request path. For paired hooks the After hook is always called if the
// Before hook was, even on error.
//
// The obs package ships the two production hooks: LogHook (slog) and
// MetricsHook (Prometheus).

// BeforeRunHook is called once before the first reasoning step.
type BeforeRunHook interface {
	OnBeforeRun(ctx context.Context, run *Run, event BeforeRunEvent)
}

// AfterRunHook is called once after the run terminates, success or
// failure. Always called if OnBeforeRun was.
type AfterRunHook interface {
	OnAfterRun(ctx context.Context, run *Run, event AfterRunEvent)
}

// BeforeStepHook is called before each AgentLoop.Next call.
type BeforeStepHook interface {
	OnBeforeStep(ctx context.Context, run *Run, event BeforeStepEvent)
}

// AfterStepHook is called after each AgentLoop.Next call that produced an
// outcome.
type AfterStepHook interface {
	OnAfterStep(ctx context.Context, run *Run, event AfterStepEvent)
}

// BeforeModelCallHook is called before each provider call.
type BeforeModelCallHook interface {
	OnBeforeModelCall(ctx context.Context, run *Run, event BeforeModelCallEvent)
}

// AfterModelCallHook is called after each provider call.
type AfterModelCallHook interface {
	OnAfterModelCall(ctx context.Context, run *Run, event AfterModelCallEvent)
}

// BeforeToolCallHook is called before each tool dispatch.
type BeforeToolCallHook interface {
	OnBeforeToolCall(ctx context.Context, run *Run, event BeforeToolCallEvent)
}

// AfterToolCallHook is called after each tool dispatch.
type AfterToolCallHook interface {
	OnAfterToolCall(ctx context.Context, run *Run, event AfterToolCallEvent)
}

// HookFirer dispatches events to registered hooks. Implemented by
// hooks.Registry; defined here so components can fire through the Run
// without importing the hooks package.
type HookFirer interface {
	FireBeforeRun(ctx context.Context, run *Run, event BeforeRunEvent)
	FireAfterRun(ctx context.Context, run *Run, event AfterRunEvent)
	FireBeforeStep(ctx context.Context, run *Run, event BeforeStepEvent)
	FireAfterStep(ctx context.Context, run *Run, event AfterStepEvent)
	FireBeforeModelCall(ctx context.Context, run *Run, event BeforeModelCallEvent)
	FireAfterModelCall(ctx context.Context, run *Run, event AfterModelCallEvent)
	FireBeforeToolCall(ctx context.Context, run *Run, event BeforeToolCallEvent)
	FireAfterToolCall(ctx context.Context, run *Run, event AfterToolCallEvent)
}
