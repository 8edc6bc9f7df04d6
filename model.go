package sqlagent

import (
	"context"
	"time"

	"github.com/tmc/langchaingo/llms"
)

// Model is the single completion contract over all provider variants.
// Implementations wrap LangChainGo's llms.Model, normalize token usage, and
// fire model-call hooks via the Run. Providers differ only in
// transport/auth behind their constructors, never in this contract.
//
// Transport failures are classified before they reach the caller:
// throttling surfaces as *RateLimitError, connection/auth failures wrap
// ErrProviderUnavailable.
type Model interface {
	// GenerateContent generates one assistant response for the message
	// sequence. The run enables hook firing and token accounting; pass nil
	// to skip both.
	GenerateContent(
		ctx context.Context,
		run *Run,
		messages []llms.MessageContent,
		options ...llms.CallOption,
	) (*ContentResponse, error)

	// ModelID returns the model identifier this instance calls.
	ModelID() string
}

// ContentResponse is the response from a GenerateContent call.
type ContentResponse struct {
	// Content is the assistant's text output.
	Content string

	// Info contains generation metadata including normalized token counts.
	Info *GenerationInfo
}

// GenerationInfo contains metadata about one generation with token counts
// normalized across providers.
type GenerationInfo struct {
	// InputTokens is the number of prompt tokens used.
	InputTokens int

	// OutputTokens is the number of completion tokens generated.
	OutputTokens int

	// TotalTokens is InputTokens + OutputTokens; some providers return it
	// directly, otherwise it is computed.
	TotalTokens int

	// Raw is the provider-specific generation info map for fields not
	// covered by the normalized ones.
	Raw map[string]any

	// Duration is how long the call took.
	Duration time.Duration
}
