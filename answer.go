package sqlagent

import (
	"fmt"
	"math"
	"time"
)

// AnswerMeta is the provenance metadata attached to every terminal result,
// answer or failure.
type AnswerMeta struct {
	// ModelID is the model that served the request.
	ModelID string

	// Duration is the run's wall-clock time.
	Duration time.Duration

	// RoundTrips is the number of tool call/observation round-trips
	// consumed.
	RoundTrips int

	// Retries is the total number of corrective events consumed:
	// rate-limit retries, malformed-response recoveries, and failed tool
	// observations.
	Retries int

	// InputTokens and OutputTokens are the summed token usage across all
	// provider calls.
	InputTokens  int
	OutputTokens int
}

// DurationSeconds returns the duration in seconds rounded to two decimals,
// the display form callers show next to the answer.
func (m AnswerMeta) DurationSeconds() float64 {
	return math.Round(m.Duration.Seconds()*100) / 100
}

// String renders the metadata in display form.
func (m AnswerMeta) String() string {
	return fmt.Sprintf("model=%s duration=%.2fs round_trips=%d retries=%d",
		m.ModelID, m.DurationSeconds(), m.RoundTrips, m.Retries)
}

// FinalAnswer is the successful terminal result of a run: the synthesized
// natural-language answer plus provenance metadata. Produced once per
// request and never reused.
type FinalAnswer struct {
	// Text is the natural-language answer.
	Text string

	// Meta is the provenance metadata.
	Meta AnswerMeta
}

// ProviderKind distinguishes the provider variants behind the Model
// contract.
type ProviderKind string

const (
	// ProviderOpenAI is the native OpenAI endpoint.
	ProviderOpenAI ProviderKind = "openai"

	// ProviderOpenRouter is the OpenRouter aggregator endpoint.
	ProviderOpenRouter ProviderKind = "openrouter"
)

// ModelDescriptor describes one selectable model. Immutable, loaded from
// provider configuration.
type ModelDescriptor struct {
	// ID is the model identifier passed in QueryRequest.ModelID.
	ID string `yaml:"id" json:"id"`

	// DisplayName is the human-facing name.
	DisplayName string `yaml:"name" json:"name"`

	// Provider is the provider variant that serves this model.
	Provider ProviderKind `yaml:"provider" json:"provider"`
}
