package sqlagent

import (
	"context"
)

// Tool represents a single callable tool with typed input and output.
// The generic parameters give compile-time type safety when implementing
// tools; the registry converts raw tool-call arguments into I by
// reflection after validating them against ParameterSchema.
//
// Responsibility split:
//   - Tool: accept typed input, execute logic, return typed output
//   - ToolRegistry: validate arguments, dispatch, format output into an
//     Observation for the model
//
// In-band failures the model should correct (SQL errors, unknown tables)
// are returned as *ToolFailure; any other error is treated as an
// infrastructure failure and terminates the run.
type Tool[I, O any] interface {
	// Name returns the tool's identifier used in tool calls.
	Name() string

	// Description returns a human-readable description for the LLM.
	Description() string

	// ParameterSchema returns the JSON Schema for the tool's parameters.
	// Returns nil if the tool takes no parameters.
	ParameterSchema() map[string]any

	// Call executes the tool with the given typed input.
	Call(ctx context.Context, input I) (O, error)
}

// ToolFunc is a convenience type for creating tools from functions with
// typed I/O.
type ToolFunc[I, O any] struct {
	name        string
	description string
	schema      map[string]any
	fn          func(ctx context.Context, input I) (O, error)
}

// NewToolFunc creates a new ToolFunc with typed input and output.
func NewToolFunc[I, O any](
	name, description string,
	schema map[string]any,
	fn func(ctx context.Context, input I) (O, error),
) *ToolFunc[I, O] {
	return &ToolFunc[I, O]{
		name:        name,
		description: description,
		schema:      schema,
		fn:          fn,
	}
}

// Name returns the tool's identifier.
func (t *ToolFunc[I, O]) Name() string {
	return t.name
}

// Description returns a human-readable description for the LLM.
func (t *ToolFunc[I, O]) Description() string {
	return t.description
}

// ParameterSchema returns the JSON Schema for the tool's parameters.
func (t *ToolFunc[I, O]) ParameterSchema() map[string]any {
	return t.schema
}

// Call executes the tool function with the given typed input.
func (t *ToolFunc[I, O]) Call(ctx context.Context, input I) (O, error) {
	return t.fn(ctx, input)
}

// ToolRegistry dispatches tool calls to registered tools.
//
// Execute must return exactly one Observation per call: a success payload,
// an in-band error observation (unknown tool, invalid arguments, tool
// failure), or a fatal observation for infrastructure errors.
type ToolRegistry interface {
	// ToolsPrompt renders the tool catalog (names, descriptions, parameter
	// schemas) for the system prompt.
	ToolsPrompt() string

	// Execute validates and dispatches one tool call. The run is used for
	// stats and hook firing; it is never nil during a live run but
	// implementations must tolerate nil for direct use in tests.
	Execute(ctx context.Context, run *Run, call ToolCall) Observation
}
