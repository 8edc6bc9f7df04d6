package models

import (
	"context"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/rickchristie/sqlagent"
)

// Wrapper adapts an llms.Model to the Model contract. It normalizes token
// usage across providers, classifies transport errors (see ClassifyErr),
// and fires model-call hooks through the Run.
//
// Example usage:
//
//	llm, _ := openai.New(openai.WithToken(apiKey), openai.WithModel("gpt-4o-mini"))
//	model := models.NewWrapper(llm, "gpt-4o-mini")
//
//	// With a Run (hooks + token accounting)
//	response, err := model.GenerateContent(ctx, run, messages)
//
//	// Without a Run
//	response, err := model.GenerateContent(ctx, nil, messages)
type Wrapper struct {
	model   llms.Model
	modelID string
}

// NewWrapper creates a Wrapper around the given llms.Model.
func NewWrapper(model llms.Model, modelID string) *Wrapper {
	return &Wrapper{
		model:   model,
		modelID: modelID,
	}
}

// ModelID returns the wrapped model's identifier.
func (m *Wrapper) ModelID() string {
	return m.modelID
}

// Unwrap returns the underlying llms.Model.
func (m *Wrapper) Unwrap() llms.Model {
	return m.model
}

// GenerateContent implements sqlagent.Model. Temperature defaults to 0
// for deterministic SQL generation; caller options come after the default
// so they can override it.
func (m *Wrapper) GenerateContent(
	ctx context.Context,
	run *sqlagent.Run,
	messages []llms.MessageContent,
	options ...llms.CallOption,
) (*sqlagent.ContentResponse, error) {
	run.FireBeforeModelCall(ctx, sqlagent.BeforeModelCallEvent{
		ModelID:  m.modelID,
		Messages: messages,
	})

	opts := make([]llms.CallOption, 0, len(options)+1)
	opts = append(opts, llms.WithTemperature(0))
	opts = append(opts, options...)

	start := time.Now()
	raw, err := m.model.GenerateContent(ctx, messages, opts...)
	duration := time.Since(start)

	var response *sqlagent.ContentResponse
	if err != nil {
		err = ClassifyErr(err)
	} else {
		response = convertResponse(raw, duration)
		if run != nil {
			run.Stats().AddModelCall(
				response.Info.InputTokens,
				response.Info.OutputTokens,
			)
		}
	}

	run.FireAfterModelCall(ctx, sqlagent.AfterModelCallEvent{
		ModelID:  m.modelID,
		Response: response,
		Duration: duration,
		Err:      err,
	})

	return response, err
}

// convertResponse flattens an llms.ContentResponse into the single-choice
// shape the agent consumes, with normalized token counts.
func convertResponse(
	raw *llms.ContentResponse,
	duration time.Duration,
) *sqlagent.ContentResponse {
	response := &sqlagent.ContentResponse{
		Info: &sqlagent.GenerationInfo{Duration: duration},
	}
	if raw == nil || len(raw.Choices) == 0 {
		return response
	}

	choice := raw.Choices[0]
	response.Content = choice.Content

	if choice.GenerationInfo != nil {
		info := choice.GenerationInfo
		response.Info.Raw = info
		response.Info.InputTokens = extractInputTokens(info)
		response.Info.OutputTokens = extractOutputTokens(info)
		response.Info.TotalTokens = extractTotalTokens(
			info,
			response.Info.InputTokens,
			response.Info.OutputTokens,
		)
	}

	return response
}

// extractInputTokens extracts input/prompt token count from GenerationInfo.
// Handles different key names used by different providers.
func extractInputTokens(info map[string]any) int {
	// OpenAI / Ollama / compatible
	if v := getIntFromMap(info, "PromptTokens"); v > 0 {
		return v
	}
	// Anthropic
	if v := getIntFromMap(info, "InputTokens"); v > 0 {
		return v
	}
	// Google / Bedrock
	if v := getIntFromMap(info, "input_tokens"); v > 0 {
		return v
	}
	return 0
}

// extractOutputTokens extracts output/completion token count from
// GenerationInfo.
func extractOutputTokens(info map[string]any) int {
	// OpenAI / Ollama / compatible
	if v := getIntFromMap(info, "CompletionTokens"); v > 0 {
		return v
	}
	// Anthropic
	if v := getIntFromMap(info, "OutputTokens"); v > 0 {
		return v
	}
	// Google / Bedrock
	if v := getIntFromMap(info, "output_tokens"); v > 0 {
		return v
	}
	return 0
}

// extractTotalTokens extracts total token count or computes it.
func extractTotalTokens(info map[string]any, input, output int) int {
	if v := getIntFromMap(info, "TotalTokens"); v > 0 {
		return v
	}
	if v := getIntFromMap(info, "total_tokens"); v > 0 {
		return v
	}
	return input + output
}

// getIntFromMap extracts an int value from a map, handling various numeric
// types.
func getIntFromMap(m map[string]any, key string) int {
	v, ok := m[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	case float32:
		return int(n)
	default:
		return 0
	}
}

// Compile-time check that Wrapper implements sqlagent.Model.
var _ sqlagent.Model = (*Wrapper)(nil)
