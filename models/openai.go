package models

import (
	"fmt"

	"github.com/tmc/langchaingo/llms/openai"
)

// NewOpenAI creates a Model backed by the native OpenAI API.
//
// Additional openai.Option values can be passed to customise the
// underlying LangChainGo client (e.g. WithBaseURL, WithHTTPClient); they
// are applied after the defaults so they can override them.
//
// Example:
//
//	model, err := models.NewOpenAI("gpt-4o-mini", os.Getenv("OPENAI_API_KEY"))
func NewOpenAI(
	modelID string,
	token string,
	opts ...openai.Option,
) (*Wrapper, error) {
	if token == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	baseOpts := []openai.Option{
		openai.WithToken(token),
		openai.WithModel(modelID),
	}
	allOpts := append(baseOpts, opts...)

	llm, err := openai.New(allOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}

	return NewWrapper(llm, modelID), nil
}
