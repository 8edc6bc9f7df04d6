// Package loggers provides reusable logging hooks for integration testing.
package loggers

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"gopkg.in/yaml.v3"

	"github.com/rickchristie/sqlagent"
)

// TranscriptHook implements all hook interfaces to log everything that
// happens during a run: prompts, responses, tool calls, and observations.
// Structured values are logged as YAML for easy reading. Nothing is
// truncated - full content is always logged.
type TranscriptHook struct {
	out io.Writer
}

// NewTranscriptHook creates a new TranscriptHook that writes to stdout.
func NewTranscriptHook() *TranscriptHook {
	return &TranscriptHook{
		out: os.Stdout,
	}
}

// NewTranscriptHookWithWriter creates a new TranscriptHook that writes to
// the given writer.
func NewTranscriptHookWithWriter(w io.Writer) *TranscriptHook {
	return &TranscriptHook{
		out: w,
	}
}

// logEvent logs an event header with timestamp.
func (h *TranscriptHook) logEvent(name string) {
	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	fmt.Fprintf(h.out, "\n>>> [%s]: %s\n", name, timestamp)
}

// log writes a line without any prefix.
func (h *TranscriptHook) log(format string, args ...any) {
	fmt.Fprintf(h.out, format+"\n", args...)
}

func (h *TranscriptHook) logYAML(v any) {
	data, err := yaml.Marshal(v)
	if err != nil {
		h.log("(failed to marshal: %v)", err)
		return
	}
	fmt.Fprint(h.out, string(data))
}

// OnBeforeRun logs run start with the original question.
func (h *TranscriptHook) OnBeforeRun(
	ctx context.Context,
	run *sqlagent.Run,
	event sqlagent.BeforeRunEvent,
) {
	h.logEvent("BeforeRun")
	h.log("================================================================================")
	h.log("RUN STARTED")
	h.log("================================================================================")
	h.logYAML(map[string]any{
		"run_id":   run.ID(),
		"model":    run.Request().ModelID,
		"question": run.Request().Question,
	})
}

// OnAfterRun logs the terminal result with final stats.
func (h *TranscriptHook) OnAfterRun(
	ctx context.Context,
	run *sqlagent.Run,
	event sqlagent.AfterRunEvent,
) {
	h.logEvent("AfterRun")
	h.log("================================================================================")
	h.log("RUN COMPLETED")
	h.log("================================================================================")

	if event.Failure != nil {
		h.logYAML(map[string]any{
			"cause":    string(event.Failure.Cause),
			"message":  event.Failure.Message,
			"guidance": event.Failure.Guidance,
		})
	} else if event.Answer != nil {
		h.logYAML(map[string]any{
			"answer": event.Answer.Text,
			"meta":   event.Answer.Meta.String(),
		})
	}

	// Log final stats
	h.log("")
	h.log("Stats:")
	snap := run.Stats().Snapshot()
	h.logYAML(map[string]any{
		"round_trips":        snap.RoundTrips,
		"model_calls":        snap.ModelCalls,
		"rate_limit_retries": snap.RateLimitTotal,
		"malformed_retries":  snap.MalformedTotal,
		"tool_errors":        snap.ToolErrors,
		"input_tokens":       snap.InputTokens,
		"output_tokens":      snap.OutputTokens,
	})
}

// OnBeforeStep logs step start.
func (h *TranscriptHook) OnBeforeStep(
	ctx context.Context,
	run *sqlagent.Run,
	event sqlagent.BeforeStepEvent,
) {
	h.logEvent(fmt.Sprintf("BeforeStep %d", event.Step))
	h.log("--------------------------------------------------------------------------------")
	h.log("STEP %d START", event.Step)
	h.log("--------------------------------------------------------------------------------")
}

// OnAfterStep logs step end with the step outcome.
func (h *TranscriptHook) OnAfterStep(
	ctx context.Context,
	run *sqlagent.Run,
	event sqlagent.AfterStepEvent,
) {
	h.logEvent(fmt.Sprintf("AfterStep %d", event.Step))
	h.log("--------------------------------------------------------------------------------")
	h.log("STEP %d END", event.Step)
	h.log("--------------------------------------------------------------------------------")

	h.log("Duration: %s", event.Duration)
	h.log("")
	h.log("Outcome:")

	outcomeData := map[string]any{
		"action": actionName(event.Outcome.Action),
	}
	if event.Outcome.Answer != "" {
		outcomeData["answer"] = event.Outcome.Answer
	}
	h.logYAML(outcomeData)
}

// OnBeforeModelCall logs the full request messages before a model call.
func (h *TranscriptHook) OnBeforeModelCall(
	ctx context.Context,
	run *sqlagent.Run,
	event sqlagent.BeforeModelCallEvent,
) {
	h.logEvent(fmt.Sprintf("BeforeModelCall: %s", event.ModelID))

	h.log("Request:")
	for i, msg := range event.Messages {
		h.log("  [%d] Role: %s", i, msg.Role)
		for _, part := range msg.Parts {
			if tc, ok := part.(llms.TextContent); ok {
				h.log("      Content:")
				for _, line := range strings.Split(tc.Text, "\n") {
					h.log("        %s", line)
				}
			}
		}
	}
}

// OnAfterModelCall logs the raw response after a model call.
func (h *TranscriptHook) OnAfterModelCall(
	ctx context.Context,
	run *sqlagent.Run,
	event sqlagent.AfterModelCallEvent,
) {
	h.logEvent(fmt.Sprintf("AfterModelCall: %s (duration: %s)", event.ModelID, event.Duration))

	if event.Err != nil {
		h.log("Error: %v", event.Err)
		return
	}

	if event.Response != nil {
		h.log("Response:")
		for _, line := range strings.Split(event.Response.Content, "\n") {
			h.log("  %s", line)
		}
		if event.Response.Info != nil {
			info := event.Response.Info
			h.log("Tokens: input=%d, output=%d, total=%d",
				info.InputTokens, info.OutputTokens, info.TotalTokens)
		}
	}
}

// OnBeforeToolCall logs the validated call before execution.
func (h *TranscriptHook) OnBeforeToolCall(
	ctx context.Context,
	run *sqlagent.Run,
	event sqlagent.BeforeToolCallEvent,
) {
	h.logEvent(fmt.Sprintf("BeforeToolCall: %s", event.Call.Name))
	h.log("Args:")
	h.logYAML(event.Call.Args)
}

// OnAfterToolCall logs the observation appended to the transcript.
func (h *TranscriptHook) OnAfterToolCall(
	ctx context.Context,
	run *sqlagent.Run,
	event sqlagent.AfterToolCallEvent,
) {
	h.logEvent(fmt.Sprintf("AfterToolCall: %s (duration: %s)",
		event.Observation.Call.Name, event.Duration))

	obsData := map[string]any{
		"status":  string(event.Observation.Status),
		"content": event.Observation.Content,
	}
	if event.Observation.Class != "" {
		obsData["class"] = event.Observation.Class
	}
	if event.Observation.Fatal {
		obsData["fatal"] = true
	}
	h.logYAML(obsData)
}

func actionName(action sqlagent.LoopAction) string {
	if action == sqlagent.LATerminate {
		return "terminate"
	}
	return "continue"
}

// Compile-time checks that TranscriptHook implements all hook interfaces.
var (
	_ sqlagent.BeforeRunHook       = (*TranscriptHook)(nil)
	_ sqlagent.AfterRunHook        = (*TranscriptHook)(nil)
	_ sqlagent.BeforeStepHook      = (*TranscriptHook)(nil)
	_ sqlagent.AfterStepHook       = (*TranscriptHook)(nil)
	_ sqlagent.BeforeModelCallHook = (*TranscriptHook)(nil)
	_ sqlagent.AfterModelCallHook  = (*TranscriptHook)(nil)
	_ sqlagent.BeforeToolCallHook  = (*TranscriptHook)(nil)
	_ sqlagent.AfterToolCallHook   = (*TranscriptHook)(nil)
)
