package obs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/rickchristie/sqlagent"
)

// LogHook writes one structured log line per run event.
//
// Run boundaries log at Info (Warn on failure); steps, model calls and
// tool calls log at Debug so production noise stays bounded.
type LogHook struct {
	logger *slog.Logger
}

// NewLogHook creates a LogHook writing to the given logger.
func NewLogHook(logger *slog.Logger) *LogHook {
	return &LogHook{logger: logger}
}

func (h *LogHook) OnBeforeRun(ctx context.Context, run *sqlagent.Run, _ sqlagent.BeforeRunEvent) {
	h.logger.InfoContext(ctx, "run started",
		"run_id", run.ID(),
		"model", run.Request().ModelID,
		"question", run.Request().Question,
	)
}

func (h *LogHook) OnAfterRun(ctx context.Context, run *sqlagent.Run, e sqlagent.AfterRunEvent) {
	if e.Failure != nil {
		h.logger.WarnContext(ctx, "run failed",
			"run_id", run.ID(),
			"model", e.Failure.Meta.ModelID,
			"cause", string(e.Failure.Cause),
			"message", e.Failure.Message,
			"duration", e.Failure.Meta.Duration,
			"round_trips", e.Failure.Meta.RoundTrips,
		)
		return
	}
	h.logger.InfoContext(ctx, "run finished",
		"run_id", run.ID(),
		"model", e.Answer.Meta.ModelID,
		"duration", e.Answer.Meta.Duration,
		"round_trips", e.Answer.Meta.RoundTrips,
		"retries", e.Answer.Meta.Retries,
		"input_tokens", e.Answer.Meta.InputTokens,
		"output_tokens", e.Answer.Meta.OutputTokens,
	)
}

func (h *LogHook) OnBeforeStep(ctx context.Context, run *sqlagent.Run, e sqlagent.BeforeStepEvent) {
	h.logger.DebugContext(ctx, "step started",
		"run_id", run.ID(),
		"step", e.Step,
	)
}

func (h *LogHook) OnAfterStep(ctx context.Context, run *sqlagent.Run, e sqlagent.AfterStepEvent) {
	h.logger.DebugContext(ctx, "step finished",
		"run_id", run.ID(),
		"step", e.Step,
		"terminal", e.Outcome.Action == sqlagent.LATerminate,
		"duration", e.Duration,
	)
}

func (h *LogHook) OnBeforeModelCall(ctx context.Context, run *sqlagent.Run, e sqlagent.BeforeModelCallEvent) {
	h.logger.DebugContext(ctx, "model call started",
		"run_id", run.ID(),
		"model", e.ModelID,
		"messages", len(e.Messages),
	)
}

func (h *LogHook) OnAfterModelCall(ctx context.Context, run *sqlagent.Run, e sqlagent.AfterModelCallEvent) {
	if e.Err != nil {
		h.logger.WarnContext(ctx, "model call failed",
			"run_id", run.ID(),
			"model", e.ModelID,
			"duration", e.Duration,
			"error", e.Err.Error(),
		)
		return
	}
	attrs := []any{
		"run_id", run.ID(),
		"model", e.ModelID,
		"duration", e.Duration,
	}
	if e.Response != nil && e.Response.Info != nil {
		attrs = append(attrs,
			"input_tokens", e.Response.Info.InputTokens,
			"output_tokens", e.Response.Info.OutputTokens,
		)
	}
	h.logger.DebugContext(ctx, "model call finished", attrs...)
}

func (h *LogHook) OnBeforeToolCall(ctx context.Context, run *sqlagent.Run, e sqlagent.BeforeToolCallEvent) {
	h.logger.DebugContext(ctx, "tool call started",
		"run_id", run.ID(),
		"tool", e.Call.Name,
		"args", e.Call.Args,
	)
}

func (h *LogHook) OnAfterToolCall(ctx context.Context, run *sqlagent.Run, e sqlagent.AfterToolCallEvent) {
	if e.Observation.Status == sqlagent.ObservationError {
		h.logger.InfoContext(ctx, "tool call failed",
			"run_id", run.ID(),
			"tool", e.Observation.Call.Name,
			"class", e.Observation.Class,
			"fatal", e.Observation.Fatal,
			"duration", e.Duration,
		)
		return
	}
	h.logger.DebugContext(ctx, "tool call finished",
		"run_id", run.ID(),
		"tool", e.Observation.Call.Name,
		"duration", e.Duration,
		"content_chars", len(e.Observation.Content),
	)
}

var (
	_ sqlagent.BeforeRunHook       = (*LogHook)(nil)
	_ sqlagent.AfterRunHook        = (*LogHook)(nil)
	_ sqlagent.BeforeStepHook      = (*LogHook)(nil)
	_ sqlagent.AfterStepHook       = (*LogHook)(nil)
	_ sqlagent.BeforeModelCallHook = (*LogHook)(nil)
	_ sqlagent.AfterModelCallHook  = (*LogHook)(nil)
	_ sqlagent.BeforeToolCallHook  = (*LogHook)(nil)
	_ sqlagent.AfterToolCallHook   = (*LogHook)(nil)
)

// MetricsHook updates the Prometheus collectors from run events. All
// collectors are registered on the default registry; expose them with
// promhttp.Handler.
type MetricsHook struct{}

// NewMetricsHook creates a MetricsHook.
func NewMetricsHook() *MetricsHook {
	return &MetricsHook{}
}

func (h *MetricsHook) OnAfterRun(_ context.Context, _ *sqlagent.Run, e sqlagent.AfterRunEvent) {
	meta := sqlagent.AnswerMeta{}
	outcome := "answer"
	if e.Failure != nil {
		meta = e.Failure.Meta
		outcome = string(e.Failure.Cause)
	} else if e.Answer != nil {
		meta = e.Answer.Meta
	}

	runsTotal.WithLabelValues(meta.ModelID, outcome).Inc()
	runDurationSeconds.WithLabelValues(meta.ModelID, outcome).Observe(meta.Duration.Seconds())
	runRoundTrips.WithLabelValues(meta.ModelID).Observe(float64(meta.RoundTrips))
}

func (h *MetricsHook) OnAfterModelCall(_ context.Context, _ *sqlagent.Run, e sqlagent.AfterModelCallEvent) {
	status := "ok"
	if e.Err != nil {
		status = "error"
		var rateLimited *sqlagent.RateLimitError
		if errors.As(e.Err, &rateLimited) {
			status = "rate_limited"
		}
	}

	modelCallsTotal.WithLabelValues(e.ModelID, status).Inc()
	modelCallDurationSeconds.WithLabelValues(e.ModelID).Observe(e.Duration.Seconds())

	if e.Response != nil && e.Response.Info != nil {
		modelTokensTotal.WithLabelValues(e.ModelID, "input").
			Add(float64(e.Response.Info.InputTokens))
		modelTokensTotal.WithLabelValues(e.ModelID, "output").
			Add(float64(e.Response.Info.OutputTokens))
	}
}

func (h *MetricsHook) OnAfterToolCall(_ context.Context, _ *sqlagent.Run, e sqlagent.AfterToolCallEvent) {
	status := "ok"
	switch {
	case e.Observation.Fatal:
		status = "fatal"
	case e.Observation.Status == sqlagent.ObservationError:
		status = "error"
	}

	tool := e.Observation.Call.Name
	toolCallsTotal.WithLabelValues(tool, status).Inc()
	toolCallDurationSeconds.WithLabelValues(tool).Observe(e.Duration.Seconds())

	if tool == "query_sql" && status == "error" {
		sqlErrorsTotal.WithLabelValues(e.Observation.Class).Inc()
	}
}

var (
	_ sqlagent.AfterRunHook       = (*MetricsHook)(nil)
	_ sqlagent.AfterModelCallHook = (*MetricsHook)(nil)
	_ sqlagent.AfterToolCallHook  = (*MetricsHook)(nil)
)
