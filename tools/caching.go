package tools

import (
	"context"
	"strings"
	"sync"
)

// CachingInspector memoizes catalog reads from an underlying Inspector.
// The agent loop tends to re-inspect the same tables while iterating on a
// query; within a single run the catalog does not change, so repeat
// lookups are served from memory.
//
// The cache is scoped to one run. Create a fresh CachingInspector per
// request; never share one across requests.
type CachingInspector struct {
	mu     sync.Mutex
	source Inspector

	tables []string
	listed bool

	schemas map[string]string
}

// NewCachingInspector wraps source with a per-run cache.
func NewCachingInspector(source Inspector) *CachingInspector {
	return &CachingInspector{
		source:  source,
		schemas: make(map[string]string),
	}
}

// ListTables returns the cached table list, reading it from the source on
// the first call.
func (c *CachingInspector) ListTables(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.listed {
		tables, err := c.source.ListTables(ctx)
		if err != nil {
			return nil, err
		}
		c.tables = tables
		c.listed = true
	}

	out := make([]string, len(c.tables))
	copy(out, c.tables)
	return out, nil
}

// DescribeTables returns descriptions for the named tables, reading each
// table from the source at most once. Only successful lookups are cached;
// a failed name is retried on the next call.
func (c *CachingInspector) DescribeTables(ctx context.Context, tables []string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cleaned := make([]string, 0, len(tables))
	for _, name := range tables {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if len(cleaned) == 0 {
		// Let the source produce its own empty-list failure.
		return c.source.DescribeTables(ctx, tables)
	}

	parts := make([]string, 0, len(cleaned))
	for _, name := range cleaned {
		desc, ok := c.schemas[name]
		if !ok {
			var err error
			desc, err = c.source.DescribeTables(ctx, []string{name})
			if err != nil {
				return "", err
			}
			c.schemas[name] = desc
		}
		parts = append(parts, desc)
	}
	return strings.Join(parts, "\n\n"), nil
}
