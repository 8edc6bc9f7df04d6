package models

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/tmc/langchaingo/llms/openai"

	"github.com/rickchristie/sqlagent"
)

const (
	// OpenRouterBaseURL is the base URL for the OpenRouter API. The
	// OpenAI-compatible chat completions endpoint is at
	// {baseURL}/chat/completions.
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"

	// Attribution headers OpenRouter uses for app rankings.
	openRouterReferer = "https://github.com/rickchristie/sqlagent"
	openRouterTitle   = "sqlagent"
)

// openRouterTransport wraps an http.RoundTripper and injects the
// OpenRouter attribution headers into every request.
type openRouterTransport struct {
	base http.RoundTripper
}

func (t *openRouterTransport) Do(
	req *http.Request,
) (*http.Response, error) {
	req.Header.Set("HTTP-Referer", openRouterReferer)
	req.Header.Set("X-Title", openRouterTitle)
	return t.base.RoundTrip(req)
}

// NewOpenRouter creates a Model backed by the OpenRouter aggregator,
// which fronts many providers behind one OpenAI-compatible API.
//
// Model IDs use the publisher/model format, with a ":free" suffix for the
// zero-cost tier, for example:
//
//	"mistralai/mistral-7b-instruct:free"
//	"meta-llama/llama-3.3-70b-instruct:free"
//
// Additional openai.Option values can be passed to customise the
// underlying LangChainGo client.
//
// Example:
//
//	model, err := models.NewOpenRouter(
//	    "mistralai/mistral-7b-instruct:free",
//	    os.Getenv("OPENROUTER_API_KEY"),
//	)
func NewOpenRouter(
	modelID string,
	token string,
	opts ...openai.Option,
) (*Wrapper, error) {
	if token == "" {
		return nil, fmt.Errorf("openrouter api key is required")
	}

	// Base options: point at the OpenRouter API.
	baseOpts := []openai.Option{
		openai.WithBaseURL(OpenRouterBaseURL),
		openai.WithToken(token),
		openai.WithModel(modelID),
		openai.WithHTTPClient(&openRouterTransport{
			base: http.DefaultTransport,
		}),
	}

	// Caller options come after so they can override defaults.
	allOpts := append(baseOpts, opts...)

	llm, err := openai.New(allOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenRouter client: %w", err)
	}

	return NewWrapper(llm, modelID), nil
}

// OpenRouterCatalog fetches the public OpenRouter model listing. The
// endpoint requires no authentication.
type OpenRouterCatalog struct {
	baseURL    string
	httpClient *http.Client
}

// NewOpenRouterCatalog creates a catalog client for the live OpenRouter
// API.
func NewOpenRouterCatalog() *OpenRouterCatalog {
	return &OpenRouterCatalog{
		baseURL:    OpenRouterBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// WithBaseURL sets the API base URL. Returns the catalog for chaining.
func (c *OpenRouterCatalog) WithBaseURL(baseURL string) *OpenRouterCatalog {
	c.baseURL = baseURL
	return c
}

// WithHTTPClient sets the HTTP client. Returns the catalog for chaining.
func (c *OpenRouterCatalog) WithHTTPClient(client *http.Client) *OpenRouterCatalog {
	c.httpClient = client
	return c
}

// FreeModels returns the models that are free to use (prompt and
// completion pricing both "0"), sorted by display name.
func (c *OpenRouterCatalog) FreeModels(
	ctx context.Context,
) ([]sqlagent.ModelDescriptor, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.baseURL+"/models", nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create catalog request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch openrouter catalog: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf(
			"fetch openrouter catalog: unexpected status %d", resp.StatusCode,
		)
	}

	var payload struct {
		Data []struct {
			ID      string `json:"id"`
			Name    string `json:"name"`
			Pricing struct {
				Prompt     string `json:"prompt"`
				Completion string `json:"completion"`
			} `json:"pricing"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode openrouter catalog: %w", err)
	}

	free := make([]sqlagent.ModelDescriptor, 0, len(payload.Data))
	for _, m := range payload.Data {
		if m.Pricing.Prompt == "0" && m.Pricing.Completion == "0" {
			free = append(free, sqlagent.ModelDescriptor{
				ID:          m.ID,
				DisplayName: m.Name,
				Provider:    sqlagent.ProviderOpenRouter,
			})
		}
	}
	sort.Slice(free, func(i, j int) bool {
		return free[i].DisplayName < free[j].DisplayName
	})

	return free, nil
}
