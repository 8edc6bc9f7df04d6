package models

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rickchristie/sqlagent"
)

// DefaultModelID is the model used when a request does not name one.
const DefaultModelID = "mistralai/mistral-7b-instruct:free"

// Router resolves a per-request model ID to a provider-backed Model. IDs
// beginning with a native prefix ("gpt-" by default) go to the native
// OpenAI API; everything else goes to OpenRouter. Resolved models are
// cached per ID, so each provider client is built once per process.
//
// Router is safe for concurrent use.
type Router struct {
	openAIKey      string
	openRouterKey  string
	nativePrefixes []string

	mu    sync.Mutex
	cache map[string]sqlagent.Model
}

// NewRouter creates a router holding the provider credentials. Either key
// may be empty; resolving a model whose provider has no key fails with
// sqlagent.ErrProviderUnavailable.
func NewRouter(openAIKey, openRouterKey string) *Router {
	return &Router{
		openAIKey:      openAIKey,
		openRouterKey:  openRouterKey,
		nativePrefixes: []string{"gpt-"},
		cache:          make(map[string]sqlagent.Model),
	}
}

// WithNativePrefixes replaces the model ID prefixes routed to the native
// OpenAI API. Returns the router for chaining.
func (r *Router) WithNativePrefixes(prefixes ...string) *Router {
	r.nativePrefixes = prefixes
	return r
}

// Native reports whether the model ID routes to the native OpenAI API.
func (r *Router) Native(modelID string) bool {
	for _, prefix := range r.nativePrefixes {
		if strings.HasPrefix(modelID, prefix) {
			return true
		}
	}
	return false
}

// Resolve returns the Model for the given ID, creating and caching it on
// first use. An empty ID resolves to DefaultModelID.
func (r *Router) Resolve(modelID string) (sqlagent.Model, error) {
	if modelID == "" {
		modelID = DefaultModelID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.cache[modelID]; ok {
		return m, nil
	}

	var (
		m   sqlagent.Model
		err error
	)
	if r.Native(modelID) {
		if r.openAIKey == "" {
			return nil, fmt.Errorf(
				"%w: model %q requires an OpenAI API key",
				sqlagent.ErrProviderUnavailable, modelID,
			)
		}
		m, err = NewOpenAI(modelID, r.openAIKey)
	} else {
		if r.openRouterKey == "" {
			return nil, fmt.Errorf(
				"%w: model %q requires an OpenRouter API key",
				sqlagent.ErrProviderUnavailable, modelID,
			)
		}
		m, err = NewOpenRouter(modelID, r.openRouterKey)
	}
	if err != nil {
		return nil, err
	}

	r.cache[modelID] = m
	return m, nil
}
