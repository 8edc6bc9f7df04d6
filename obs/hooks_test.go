package obs

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickchristie/sqlagent"
)

func newRun() *sqlagent.Run {
	return sqlagent.NewRun(sqlagent.QueryRequest{
		Question: "How many films are there?",
		ModelID:  "gpt-4o-mini",
	}, sqlagent.DefaultLimits())
}

func TestLogHook_RunLifecycle(t *testing.T) {
	logger, buf := newBufferLogger(slog.LevelDebug, true)
	hook := NewLogHook(logger)
	run := newRun()
	ctx := context.Background()

	hook.OnBeforeRun(ctx, run, sqlagent.BeforeRunEvent{})
	hook.OnAfterRun(ctx, run, sqlagent.AfterRunEvent{
		Answer: &sqlagent.FinalAnswer{
			Text: "There are 1000 films.",
			Meta: sqlagent.AnswerMeta{
				ModelID:      "gpt-4o-mini",
				Duration:     3 * time.Second,
				RoundTrips:   2,
				Retries:      1,
				InputTokens:  450,
				OutputTokens: 80,
			},
		},
	})

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)

	assert.Equal(t, "run started", lines[0]["msg"])
	assert.Equal(t, run.ID(), lines[0]["run_id"])
	assert.Equal(t, "gpt-4o-mini", lines[0]["model"])
	assert.Equal(t, "How many films are there?", lines[0]["question"])

	assert.Equal(t, "run finished", lines[1]["msg"])
	assert.Equal(t, "INFO", lines[1]["level"])
	assert.Equal(t, float64(2), lines[1]["round_trips"])
	assert.Equal(t, float64(1), lines[1]["retries"])
	assert.Equal(t, float64(450), lines[1]["input_tokens"])
}

func TestLogHook_RunFailure(t *testing.T) {
	logger, buf := newBufferLogger(slog.LevelDebug, true)
	hook := NewLogHook(logger)
	run := newRun()

	hook.OnAfterRun(context.Background(), run, sqlagent.AfterRunEvent{
		Failure: &sqlagent.Failure{
			Cause:   sqlagent.CauseRateLimited,
			Message: "provider rate limiting persisted through 3 retries",
			Meta:    sqlagent.AnswerMeta{ModelID: "gpt-4o-mini"},
		},
	})

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "run failed", lines[0]["msg"])
	assert.Equal(t, "WARN", lines[0]["level"])
	assert.Equal(t, "rate_limited", lines[0]["cause"])
	assert.Contains(t, lines[0]["message"], "rate limiting")
}

func TestLogHook_StepAndCallEvents(t *testing.T) {
	logger, buf := newBufferLogger(slog.LevelDebug, true)
	hook := NewLogHook(logger)
	run := newRun()
	ctx := context.Background()

	hook.OnBeforeStep(ctx, run, sqlagent.BeforeStepEvent{Step: 1})
	hook.OnBeforeModelCall(ctx, run, sqlagent.BeforeModelCallEvent{
		ModelID: "gpt-4o-mini",
	})
	hook.OnAfterModelCall(ctx, run, sqlagent.AfterModelCallEvent{
		ModelID: "gpt-4o-mini",
		Response: &sqlagent.ContentResponse{
			Content: "<answer>\ndone\n</answer>",
			Info:    &sqlagent.GenerationInfo{InputTokens: 100, OutputTokens: 10},
		},
		Duration: time.Second,
	})
	hook.OnBeforeToolCall(ctx, run, sqlagent.BeforeToolCallEvent{
		Call: sqlagent.ToolCall{Name: "query_sql", Args: map[string]any{"sql": "SELECT 1"}},
	})
	hook.OnAfterToolCall(ctx, run, sqlagent.AfterToolCallEvent{
		Observation: sqlagent.Observation{
			Call:    sqlagent.ToolCall{Name: "query_sql"},
			Status:  sqlagent.ObservationError,
			Class:   "syntax",
			Content: `syntax error at or near "FORM"`,
		},
	})
	hook.OnAfterStep(ctx, run, sqlagent.AfterStepEvent{
		Step:    1,
		Outcome: &sqlagent.StepOutcome{Action: sqlagent.LAContinue},
	})

	lines := decodeLines(t, buf)
	require.Len(t, lines, 6)
	assert.Equal(t, "step started", lines[0]["msg"])
	assert.Equal(t, "model call started", lines[1]["msg"])
	assert.Equal(t, "model call finished", lines[2]["msg"])
	assert.Equal(t, float64(100), lines[2]["input_tokens"])
	assert.Equal(t, "tool call started", lines[3]["msg"])
	assert.Equal(t, "tool call failed", lines[4]["msg"])
	assert.Equal(t, "syntax", lines[4]["class"])
	assert.Equal(t, false, lines[4]["fatal"])
	assert.Equal(t, "step finished", lines[5]["msg"])
	assert.Equal(t, false, lines[5]["terminal"])
}

func TestLogHook_DebugSuppressedAtInfo(t *testing.T) {
	logger, buf := newBufferLogger(slog.LevelInfo, true)
	hook := NewLogHook(logger)
	run := newRun()
	ctx := context.Background()

	hook.OnBeforeStep(ctx, run, sqlagent.BeforeStepEvent{Step: 1})
	hook.OnBeforeModelCall(ctx, run, sqlagent.BeforeModelCallEvent{ModelID: "gpt-4o-mini"})
	hook.OnAfterToolCall(ctx, run, sqlagent.AfterToolCallEvent{
		Observation: sqlagent.Observation{
			Call:   sqlagent.ToolCall{Name: "list_tables"},
			Status: sqlagent.ObservationOK,
		},
	})

	assert.Empty(t, buf.String())
}

func TestLogHook_ModelCallErrorIsWarn(t *testing.T) {
	logger, buf := newBufferLogger(slog.LevelInfo, true)
	hook := NewLogHook(logger)

	hook.OnAfterModelCall(context.Background(), newRun(), sqlagent.AfterModelCallEvent{
		ModelID: "gpt-4o-mini",
		Err:     errors.New("status code: 429"),
	})

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "model call failed", lines[0]["msg"])
	assert.Equal(t, "WARN", lines[0]["level"])
	assert.Contains(t, lines[0]["error"], "429")
}

func TestMetricsHook_Runs(t *testing.T) {
	hook := NewMetricsHook()
	run := newRun()
	ctx := context.Background()

	hook.OnAfterRun(ctx, run, sqlagent.AfterRunEvent{
		Answer: &sqlagent.FinalAnswer{
			Text: "done",
			Meta: sqlagent.AnswerMeta{
				ModelID:    "metrics-run-model",
				Duration:   2 * time.Second,
				RoundTrips: 3,
			},
		},
	})
	hook.OnAfterRun(ctx, run, sqlagent.AfterRunEvent{
		Failure: &sqlagent.Failure{
			Cause: sqlagent.CauseTimeout,
			Meta:  sqlagent.AnswerMeta{ModelID: "metrics-run-model"},
		},
	})

	assert.Equal(t, 1.0,
		testutil.ToFloat64(runsTotal.WithLabelValues("metrics-run-model", "answer")))
	assert.Equal(t, 1.0,
		testutil.ToFloat64(runsTotal.WithLabelValues("metrics-run-model", "timeout")))
}

func TestMetricsHook_ModelCalls(t *testing.T) {
	hook := NewMetricsHook()
	run := newRun()
	ctx := context.Background()

	hook.OnAfterModelCall(ctx, run, sqlagent.AfterModelCallEvent{
		ModelID: "metrics-call-model",
		Response: &sqlagent.ContentResponse{
			Content: "ok",
			Info:    &sqlagent.GenerationInfo{InputTokens: 100, OutputTokens: 20},
		},
		Duration: time.Second,
	})
	hook.OnAfterModelCall(ctx, run, sqlagent.AfterModelCallEvent{
		ModelID: "metrics-call-model",
		Err:     &sqlagent.RateLimitError{Err: errors.New("status code: 429")},
	})
	hook.OnAfterModelCall(ctx, run, sqlagent.AfterModelCallEvent{
		ModelID: "metrics-call-model",
		Err:     errors.New("connection refused"),
	})

	assert.Equal(t, 1.0,
		testutil.ToFloat64(modelCallsTotal.WithLabelValues("metrics-call-model", "ok")))
	assert.Equal(t, 1.0,
		testutil.ToFloat64(modelCallsTotal.WithLabelValues("metrics-call-model", "rate_limited")))
	assert.Equal(t, 1.0,
		testutil.ToFloat64(modelCallsTotal.WithLabelValues("metrics-call-model", "error")))
	assert.Equal(t, 100.0,
		testutil.ToFloat64(modelTokensTotal.WithLabelValues("metrics-call-model", "input")))
	assert.Equal(t, 20.0,
		testutil.ToFloat64(modelTokensTotal.WithLabelValues("metrics-call-model", "output")))
}

func TestMetricsHook_ToolCalls(t *testing.T) {
	hook := NewMetricsHook()
	run := newRun()
	ctx := context.Background()

	hook.OnAfterToolCall(ctx, run, sqlagent.AfterToolCallEvent{
		Observation: sqlagent.Observation{
			Call:    sqlagent.ToolCall{Name: "list_tables"},
			Status:  sqlagent.ObservationOK,
			Content: "actor, film",
		},
	})
	hook.OnAfterToolCall(ctx, run, sqlagent.AfterToolCallEvent{
		Observation: sqlagent.Observation{
			Call:   sqlagent.ToolCall{Name: "query_sql"},
			Status: sqlagent.ObservationError,
			Class:  "undefined_table",
		},
	})
	hook.OnAfterToolCall(ctx, run, sqlagent.AfterToolCallEvent{
		Observation: sqlagent.Observation{
			Call:   sqlagent.ToolCall{Name: "query_sql"},
			Status: sqlagent.ObservationError,
			Class:  "internal",
			Fatal:  true,
		},
	})

	assert.Equal(t, 1.0,
		testutil.ToFloat64(toolCallsTotal.WithLabelValues("list_tables", "ok")))
	assert.Equal(t, 1.0,
		testutil.ToFloat64(toolCallsTotal.WithLabelValues("query_sql", "error")))
	assert.Equal(t, 1.0,
		testutil.ToFloat64(toolCallsTotal.WithLabelValues("query_sql", "fatal")))

	// Fatal failures are infrastructure, not SQL the model can fix.
	assert.Equal(t, 1.0,
		testutil.ToFloat64(sqlErrorsTotal.WithLabelValues("undefined_table")))
	assert.Equal(t, 0.0,
		testutil.ToFloat64(sqlErrorsTotal.WithLabelValues("internal")))
}
