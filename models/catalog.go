package models

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rickchristie/sqlagent"
)

// FreeModelLister fetches the aggregator's current free models.
// *OpenRouterCatalog implements it.
type FreeModelLister interface {
	FreeModels(ctx context.Context) ([]sqlagent.ModelDescriptor, error)
}

// Catalog is the set of models offered to users: a fixed native list from
// configuration plus, optionally, the aggregator's current free models.
type Catalog struct {
	native []sqlagent.ModelDescriptor
	lister FreeModelLister
}

// DefaultNativeModels returns the built-in native OpenAI model set used
// when no catalog file is configured.
func DefaultNativeModels() []sqlagent.ModelDescriptor {
	return []sqlagent.ModelDescriptor{
		{
			ID:          "gpt-4o-mini",
			DisplayName: "OpenAI GPT-4o Mini",
			Provider:    sqlagent.ProviderOpenAI,
		},
		{
			ID:          "gpt-3.5-turbo",
			DisplayName: "OpenAI GPT-3.5 Turbo",
			Provider:    sqlagent.ProviderOpenAI,
		},
		{
			ID:          "gpt-4o",
			DisplayName: "OpenAI GPT-4o",
			Provider:    sqlagent.ProviderOpenAI,
		},
	}
}

// NewCatalog creates a catalog with the default native models.
func NewCatalog() *Catalog {
	return &Catalog{native: DefaultNativeModels()}
}

// WithNativeModels replaces the native model list. Returns the catalog
// for chaining.
func (c *Catalog) WithNativeModels(models []sqlagent.ModelDescriptor) *Catalog {
	c.native = models
	return c
}

// WithFreeModelLister adds an aggregator source whose free models are
// appended to List results. Returns the catalog for chaining.
func (c *Catalog) WithFreeModelLister(lister FreeModelLister) *Catalog {
	c.lister = lister
	return c
}

// LoadCatalog reads a YAML model catalog file of the form:
//
//	models:
//	  - id: gpt-4o-mini
//	    name: OpenAI GPT-4o Mini
//	    provider: openai
//	  - id: mistralai/mistral-7b-instruct:free
//	    name: Mistral 7B Instruct (free)
//	    provider: openrouter
//
// Entries without a provider default to openai.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog parses YAML model catalog data.
func ParseCatalog(data []byte) (*Catalog, error) {
	var doc struct {
		Models []sqlagent.ModelDescriptor `yaml:"models"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse model catalog: %w", err)
	}
	if len(doc.Models) == 0 {
		return nil, fmt.Errorf("model catalog lists no models")
	}
	for i := range doc.Models {
		if doc.Models[i].Provider == "" {
			doc.Models[i].Provider = sqlagent.ProviderOpenAI
		}
	}
	return &Catalog{native: doc.Models}, nil
}

// List returns the selectable models: the native list followed by the
// aggregator's free models when a lister is configured. Aggregator
// failures only shorten the result; List never fails.
func (c *Catalog) List(ctx context.Context) []sqlagent.ModelDescriptor {
	out := make([]sqlagent.ModelDescriptor, len(c.native))
	copy(out, c.native)

	if c.lister != nil {
		free, err := c.lister.FreeModels(ctx)
		if err == nil {
			out = append(out, free...)
		}
	}
	return out
}
