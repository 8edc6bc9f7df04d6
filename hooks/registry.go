package hooks

import (
	"context"

	"github.com/rickchristie/sqlagent"
)

// Registry manages a collection of hooks and dispatches events to them.
//
// # Overview
//
// Registry is the central coordination point for hooks. It:
//   - Stores registered hooks in order
//   - Dispatches each event to the hooks implementing its interface
//   - Passes the *sqlagent.Run for access to stats and the transcript
//
// Hooks can implement any combination of hook interfaces - they only
// receive events for the interfaces they implement.
//
// # Creating and Using
//
//	// Create a registry and register hooks
//	registry := hooks.NewRegistry()
//	registry.Register(obs.NewLogHook(logger))
//	registry.Register(obs.NewMetricsHook(metrics))
//
//	// Attach to a run
//	run := sqlagent.NewRun(request, limits).WithHooks(registry)
//
// # Hooks with Multiple Interfaces
//
// A single hook can implement multiple interfaces:
//
//	type FullHook struct {
//	    logger *slog.Logger
//	}
//
//	func (h *FullHook) OnBeforeRun(
//	    ctx context.Context, run *sqlagent.Run, e sqlagent.BeforeRunEvent,
//	) {
//	    h.logger.Info("run started", "run_id", run.ID())
//	}
//
//	func (h *FullHook) OnAfterToolCall(
//	    ctx context.Context, run *sqlagent.Run, e sqlagent.AfterToolCallEvent,
//	) {
//	    h.logger.Info("tool call",
//	        "tool", e.Observation.Call.Name, "duration", e.Duration)
//	}
//
//	// Register once - receives both event types
//	registry.Register(&FullHook{logger: logger})
//
// # Thread Safety
//
// Registration is NOT thread-safe. Register all hooks before serving
// requests; the Fire methods may then be called from concurrent runs as
// long as the hooks themselves are safe for concurrent use.
type Registry struct {
	hooks []any
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		hooks: make([]any, 0),
	}
}

// Register adds a hook to the registry. The hook can implement any
// combination of hook interfaces (BeforeRunHook, AfterToolCallHook, etc.).
//
// Hooks are called in the order they are registered.
func (r *Registry) Register(hook any) *Registry {
	r.hooks = append(r.hooks, hook)
	return r
}

// FireBeforeRun dispatches a BeforeRunEvent to all registered
// BeforeRunHook implementations.
func (r *Registry) FireBeforeRun(
	ctx context.Context,
	run *sqlagent.Run,
	event sqlagent.BeforeRunEvent,
) {
	for _, h := range r.hooks {
		if hook, ok := h.(sqlagent.BeforeRunHook); ok {
			hook.OnBeforeRun(ctx, run, event)
		}
	}
}

// FireAfterRun dispatches an AfterRunEvent to all registered
// AfterRunHook implementations.
func (r *Registry) FireAfterRun(
	ctx context.Context,
	run *sqlagent.Run,
	event sqlagent.AfterRunEvent,
) {
	for _, h := range r.hooks {
		if hook, ok := h.(sqlagent.AfterRunHook); ok {
			hook.OnAfterRun(ctx, run, event)
		}
	}
}

// FireBeforeStep dispatches a BeforeStepEvent to all registered
// BeforeStepHook implementations.
func (r *Registry) FireBeforeStep(
	ctx context.Context,
	run *sqlagent.Run,
	event sqlagent.BeforeStepEvent,
) {
	for _, h := range r.hooks {
		if hook, ok := h.(sqlagent.BeforeStepHook); ok {
			hook.OnBeforeStep(ctx, run, event)
		}
	}
}

// FireAfterStep dispatches an AfterStepEvent to all registered
// AfterStepHook implementations.
func (r *Registry) FireAfterStep(
	ctx context.Context,
	run *sqlagent.Run,
	event sqlagent.AfterStepEvent,
) {
	for _, h := range r.hooks {
		if hook, ok := h.(sqlagent.AfterStepHook); ok {
			hook.OnAfterStep(ctx, run, event)
		}
	}
}

// FireBeforeModelCall dispatches a BeforeModelCallEvent to all registered
// BeforeModelCallHook implementations.
func (r *Registry) FireBeforeModelCall(
	ctx context.Context,
	run *sqlagent.Run,
	event sqlagent.BeforeModelCallEvent,
) {
	for _, h := range r.hooks {
		if hook, ok := h.(sqlagent.BeforeModelCallHook); ok {
			hook.OnBeforeModelCall(ctx, run, event)
		}
	}
}

// FireAfterModelCall dispatches an AfterModelCallEvent to all registered
// AfterModelCallHook implementations.
func (r *Registry) FireAfterModelCall(
	ctx context.Context,
	run *sqlagent.Run,
	event sqlagent.AfterModelCallEvent,
) {
	for _, h := range r.hooks {
		if hook, ok := h.(sqlagent.AfterModelCallHook); ok {
			hook.OnAfterModelCall(ctx, run, event)
		}
	}
}

// FireBeforeToolCall dispatches a BeforeToolCallEvent to all registered
// BeforeToolCallHook implementations.
func (r *Registry) FireBeforeToolCall(
	ctx context.Context,
	run *sqlagent.Run,
	event sqlagent.BeforeToolCallEvent,
) {
	for _, h := range r.hooks {
		if hook, ok := h.(sqlagent.BeforeToolCallHook); ok {
			hook.OnBeforeToolCall(ctx, run, event)
		}
	}
}

// FireAfterToolCall dispatches an AfterToolCallEvent to all registered
// AfterToolCallHook implementations.
func (r *Registry) FireAfterToolCall(
	ctx context.Context,
	run *sqlagent.Run,
	event sqlagent.AfterToolCallEvent,
) {
	for _, h := range r.hooks {
		if hook, ok := h.(sqlagent.AfterToolCallHook); ok {
			hook.OnAfterToolCall(ctx, run, event)
		}
	}
}

// Len returns the number of registered hooks.
func (r *Registry) Len() int {
	return len(r.hooks)
}

// Clear removes all registered hooks.
func (r *Registry) Clear() {
	r.hooks = make([]any, 0)
}

var _ sqlagent.HookFirer = (*Registry)(nil)
