// Package hooks provides a registry for dispatching run lifecycle events.
//
// Hooks observe a run at its boundaries: the run itself, each reasoning
// step, each model call, and each tool call. Each hook interface
// corresponds to a specific event type - implement only the interfaces
// you need.
//
// # Hook Interfaces
//
// Run lifecycle hooks:
//   - [sqlagent.BeforeRunHook] - Called once before the first step
//   - [sqlagent.AfterRunHook] - Called once after the run terminates
//   - [sqlagent.BeforeStepHook] - Called before each reasoning step
//   - [sqlagent.AfterStepHook] - Called after each step with an outcome
//
// Model call hooks:
//   - [sqlagent.BeforeModelCallHook] - Called before each provider call
//   - [sqlagent.AfterModelCallHook] - Called after each provider call
//
// Tool call hooks:
//   - [sqlagent.BeforeToolCallHook] - Called before each tool dispatch
//   - [sqlagent.AfterToolCallHook] - Called after each tool dispatch
//
// # Creating a Hook
//
// Create a hook by implementing any combination of interfaces:
//
//	type CountingHook struct {
//	    toolCalls atomic.Int64
//	}
//
//	func (h *CountingHook) OnAfterToolCall(
//	    ctx context.Context,
//	    run *sqlagent.Run,
//	    event sqlagent.AfterToolCallEvent,
//	) {
//	    h.toolCalls.Add(1)
//	}
//
//	// Compile-time check
//	var _ sqlagent.AfterToolCallHook = (*CountingHook)(nil)
//
// # Registering Hooks
//
// Build a registry once and attach it to every run:
//
//	registry := hooks.NewRegistry().
//	    Register(obs.NewLogHook(logger)).
//	    Register(obs.NewMetricsHook(metrics))
//
//	run := sqlagent.NewRun(request, limits).WithHooks(registry)
//
// The service attaches its registry to every run it creates, so most
// callers only register hooks once at startup.
//
// The obs package ships the two production hooks: obs.LogHook writes one
// structured log line per event, obs.MetricsHook updates Prometheus
// collectors.
package hooks
