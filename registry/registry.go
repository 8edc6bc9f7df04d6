// Package registry implements tool registration and dispatch.
//
// The registry sits between the agent and the tools: it renders the tool
// catalog for the system prompt, validates tool call arguments against each
// tool's compiled JSON Schema, converts arguments to the tool's typed
// input, and executes the call. Every dispatch produces exactly one
// [sqlagent.Observation], success or failure, so the agent can always feed
// something back to the model.
//
// Failure handling follows the tool contract: a *sqlagent.ToolFailure is an
// in-band error the model can correct against (wrong column name, SQL
// syntax), rendered as a non-fatal error observation. Any other error from
// a tool is an infrastructure failure and produces a fatal observation that
// terminates the run.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rickchristie/sqlagent"
	"github.com/rickchristie/sqlagent/schema"
)

// Failure classes attached to error observations produced by the registry
// itself, before a tool runs.
const (
	ClassUnknownTool      = "unknown_tool"
	ClassInvalidArguments = "invalid_arguments"
	ClassInternal         = "internal"
)

// Registry holds the registered tools with their compiled parameter
// schemas. Build one per request, register the tools, and hand it to the
// agent; it is not safe for concurrent registration.
type Registry struct {
	tools   []*ToolMeta
	toolMap map[string]*ToolMeta
	schemas map[string]*schema.Schema
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		toolMap: make(map[string]*ToolMeta),
		schemas: make(map[string]*schema.Schema),
	}
}

var _ sqlagent.ToolRegistry = (*Registry)(nil)

// Register adds a tool. The tool must implement sqlagent.Tool[I, O]; its
// parameter schema is compiled here so invalid schemas surface at startup
// rather than mid-run. Registering a second tool with the same name
// replaces the first.
func (r *Registry) Register(tool any) error {
	meta, err := GetToolMeta(tool)
	if err != nil {
		return fmt.Errorf("register tool: %w", err)
	}

	compiled, err := schema.Compile(meta.Schema())
	if err != nil {
		return fmt.Errorf("register tool %q: %w", meta.Name(), err)
	}

	if _, exists := r.toolMap[meta.Name()]; exists {
		for i, m := range r.tools {
			if m.Name() == meta.Name() {
				r.tools[i] = meta
				break
			}
		}
	} else {
		r.tools = append(r.tools, meta)
	}
	r.toolMap[meta.Name()] = meta
	r.schemas[meta.Name()] = compiled

	return nil
}

// MustRegister is like Register but panics on error. Use for the fixed tool
// set wired at service construction.
func (r *Registry) MustRegister(tool any) *Registry {
	if err := r.Register(tool); err != nil {
		panic(err)
	}
	return r
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for _, meta := range r.tools {
		names = append(names, meta.Name())
	}
	return names
}

// ToolsPrompt renders the tool catalog with parameter schemas for the
// system prompt.
func (r *Registry) ToolsPrompt() string {
	var sb strings.Builder
	sb.WriteString("Available tools:\n")

	for _, meta := range r.tools {
		fmt.Fprintf(&sb, "\n- %s: %s\n", meta.Name(), meta.Description())
		if raw := meta.Schema(); raw != nil {
			schemaJSON, err := json.MarshalIndent(raw, "  ", "  ")
			if err == nil {
				sb.WriteString("  Parameters: ")
				sb.Write(schemaJSON)
				sb.WriteString("\n")
			}
		}
	}

	return sb.String()
}

// Execute validates and dispatches one tool call, returning exactly one
// observation. The run may be nil in tests; stats and hooks are then
// skipped.
func (r *Registry) Execute(
	ctx context.Context,
	run *sqlagent.Run,
	call sqlagent.ToolCall,
) sqlagent.Observation {
	if ctx == nil {
		ctx = context.Background()
	}
	started := time.Now()

	meta, ok := r.toolMap[call.Name]
	if !ok {
		return r.finish(ctx, run, started, sqlagent.Observation{
			Call:   call,
			Status: sqlagent.ObservationError,
			Class:  ClassUnknownTool,
			Content: fmt.Sprintf(
				"%v: %q does not exist. Available tools: %s.",
				sqlagent.ErrUnknownTool, call.Name, strings.Join(r.Names(), ", "),
			),
		})
	}

	if s := r.schemas[call.Name]; s != nil {
		if err := s.Validate(call.Args); err != nil {
			return r.finish(ctx, run, started, sqlagent.Observation{
				Call:   call,
				Status: sqlagent.ObservationError,
				Class:  ClassInvalidArguments,
				Content: fmt.Sprintf(
					"%v for %q: %v",
					sqlagent.ErrInvalidArguments, call.Name, err,
				),
			})
		}
	}

	typedInput, err := TransformArgs(meta.Tool(), call.Args)
	if err != nil {
		return r.finish(ctx, run, started, sqlagent.Observation{
			Call:   call,
			Status: sqlagent.ObservationError,
			Class:  ClassInvalidArguments,
			Content: fmt.Sprintf(
				"%v for %q: %v",
				sqlagent.ErrInvalidArguments, call.Name, err,
			),
		})
	}

	run.FireBeforeToolCall(ctx, sqlagent.BeforeToolCallEvent{Call: call})

	output, err := CallTool(ctx, meta.Tool(), typedInput)
	if err != nil {
		var failure *sqlagent.ToolFailure
		if errors.As(err, &failure) {
			return r.finish(ctx, run, started, sqlagent.Observation{
				Call:    call,
				Status:  sqlagent.ObservationError,
				Class:   failure.Class,
				Content: failure.Message,
			})
		}
		return r.finish(ctx, run, started, sqlagent.Observation{
			Call:    call,
			Status:  sqlagent.ObservationError,
			Class:   ClassInternal,
			Content: err.Error(),
			Fatal:   true,
		})
	}

	return r.finish(ctx, run, started, sqlagent.Observation{
		Call:    call,
		Status:  sqlagent.ObservationOK,
		Content: renderOutput(output),
	})
}

// finish updates stats and fires the after-hook before handing the
// observation back. Fatal observations are not counted as tool errors: the
// run terminates without a correction attempt.
func (r *Registry) finish(
	ctx context.Context,
	run *sqlagent.Run,
	started time.Time,
	obs sqlagent.Observation,
) sqlagent.Observation {
	if run != nil {
		if obs.Status == sqlagent.ObservationError && !obs.Fatal {
			run.Stats().IncrToolErrors()
		}
		run.FireAfterToolCall(ctx, sqlagent.AfterToolCallEvent{
			Observation: obs,
			Duration:    time.Since(started),
		})
	}
	return obs
}

// renderOutput formats a typed tool output as observation text. String
// outputs pass through untouched; everything else is marshaled as JSON.
func renderOutput(output any) string {
	switch v := output.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	}

	data, err := json.Marshal(output)
	if err != nil {
		return fmt.Sprintf("%v", output)
	}
	return string(data)
}
