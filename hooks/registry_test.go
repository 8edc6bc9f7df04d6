package hooks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickchristie/sqlagent"
)

// recordingHook implements every hook interface and appends to a shared
// log, so tests can assert dispatch order across multiple hooks.
type recordingHook struct {
	name string
	log  *[]string
}

func (h *recordingHook) record(event string) {
	*h.log = append(*h.log, h.name+":"+event)
}

func (h *recordingHook) OnBeforeRun(_ context.Context, _ *sqlagent.Run, _ sqlagent.BeforeRunEvent) {
	h.record("before_run")
}

func (h *recordingHook) OnAfterRun(_ context.Context, _ *sqlagent.Run, _ sqlagent.AfterRunEvent) {
	h.record("after_run")
}

func (h *recordingHook) OnBeforeStep(_ context.Context, _ *sqlagent.Run, _ sqlagent.BeforeStepEvent) {
	h.record("before_step")
}

func (h *recordingHook) OnAfterStep(_ context.Context, _ *sqlagent.Run, _ sqlagent.AfterStepEvent) {
	h.record("after_step")
}

func (h *recordingHook) OnBeforeModelCall(_ context.Context, _ *sqlagent.Run, _ sqlagent.BeforeModelCallEvent) {
	h.record("before_model_call")
}

func (h *recordingHook) OnAfterModelCall(_ context.Context, _ *sqlagent.Run, _ sqlagent.AfterModelCallEvent) {
	h.record("after_model_call")
}

func (h *recordingHook) OnBeforeToolCall(_ context.Context, _ *sqlagent.Run, _ sqlagent.BeforeToolCallEvent) {
	h.record("before_tool_call")
}

func (h *recordingHook) OnAfterToolCall(_ context.Context, _ *sqlagent.Run, _ sqlagent.AfterToolCallEvent) {
	h.record("after_tool_call")
}

// stepOnlyHook implements only the step interfaces.
type stepOnlyHook struct {
	steps []int
}

func (h *stepOnlyHook) OnBeforeStep(_ context.Context, _ *sqlagent.Run, e sqlagent.BeforeStepEvent) {
	h.steps = append(h.steps, e.Step)
}

var (
	_ sqlagent.BeforeRunHook  = (*recordingHook)(nil)
	_ sqlagent.AfterRunHook   = (*recordingHook)(nil)
	_ sqlagent.BeforeStepHook = (*stepOnlyHook)(nil)
)

func newRun() *sqlagent.Run {
	return sqlagent.NewRun(sqlagent.QueryRequest{
		Question: "How many films are there?",
		ModelID:  "gpt-4o-mini",
	}, sqlagent.DefaultLimits())
}

func fireAll(registry *Registry, run *sqlagent.Run) {
	ctx := context.Background()
	registry.FireBeforeRun(ctx, run, sqlagent.BeforeRunEvent{})
	registry.FireBeforeStep(ctx, run, sqlagent.BeforeStepEvent{Step: 1})
	registry.FireBeforeModelCall(ctx, run, sqlagent.BeforeModelCallEvent{})
	registry.FireAfterModelCall(ctx, run, sqlagent.AfterModelCallEvent{})
	registry.FireBeforeToolCall(ctx, run, sqlagent.BeforeToolCallEvent{})
	registry.FireAfterToolCall(ctx, run, sqlagent.AfterToolCallEvent{})
	registry.FireAfterStep(ctx, run, sqlagent.AfterStepEvent{Step: 1})
	registry.FireAfterRun(ctx, run, sqlagent.AfterRunEvent{})
}

func TestRegistry_DispatchesAllEvents(t *testing.T) {
	var log []string
	registry := NewRegistry().Register(&recordingHook{name: "h", log: &log})

	fireAll(registry, newRun())

	assert.Equal(t, []string{
		"h:before_run",
		"h:before_step",
		"h:before_model_call",
		"h:after_model_call",
		"h:before_tool_call",
		"h:after_tool_call",
		"h:after_step",
		"h:after_run",
	}, log)
}

func TestRegistry_OnlyImplementedInterfaces(t *testing.T) {
	hook := &stepOnlyHook{}
	registry := NewRegistry().Register(hook)

	run := newRun()
	fireAll(registry, run)
	registry.FireBeforeStep(context.Background(), run, sqlagent.BeforeStepEvent{Step: 2})

	// The hook saw only the step events, nothing else blew up.
	assert.Equal(t, []int{1, 2}, hook.steps)
}

func TestRegistry_RegistrationOrder(t *testing.T) {
	var log []string
	registry := NewRegistry().
		Register(&recordingHook{name: "first", log: &log}).
		Register(&recordingHook{name: "second", log: &log})

	registry.FireBeforeRun(context.Background(), newRun(), sqlagent.BeforeRunEvent{})

	assert.Equal(t, []string{"first:before_run", "second:before_run"}, log)
}

func TestRegistry_FiresThroughRun(t *testing.T) {
	var log []string
	registry := NewRegistry().Register(&recordingHook{name: "h", log: &log})

	run := newRun().WithHooks(registry)
	run.FireBeforeRun(context.Background(), sqlagent.BeforeRunEvent{})
	run.FireAfterRun(context.Background(), sqlagent.AfterRunEvent{})

	assert.Equal(t, []string{"h:before_run", "h:after_run"}, log)
}

func TestRegistry_LenAndClear(t *testing.T) {
	registry := NewRegistry().
		Register(&stepOnlyHook{}).
		Register(&stepOnlyHook{})
	require.Equal(t, 2, registry.Len())

	registry.Clear()
	assert.Equal(t, 0, registry.Len())

	// Firing on an empty registry is a no-op.
	fireAll(registry, newRun())
}
