package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickchristie/sqlagent"
	"github.com/rickchristie/sqlagent/internal/tt"
)

func TestCachingInspector_ListTables(t *testing.T) {
	source := tt.NewMockInspector()
	caching := NewCachingInspector(source)

	first, err := caching.ListTables(context.Background())
	require.NoError(t, err)
	second, err := caching.ListTables(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, source.ListCalls)
}

func TestCachingInspector_ListTables_ErrorNotCached(t *testing.T) {
	source := tt.NewMockInspector()
	source.ListErr = errors.New("connection refused")
	caching := NewCachingInspector(source)

	_, err := caching.ListTables(context.Background())
	require.Error(t, err)

	source.ListErr = nil
	tables, err := caching.ListTables(context.Background())
	require.NoError(t, err)

	assert.Len(t, tables, 5)
	assert.Equal(t, 2, source.ListCalls)
}

func TestCachingInspector_ListTables_CopyIsolated(t *testing.T) {
	caching := NewCachingInspector(tt.NewMockInspector())

	first, err := caching.ListTables(context.Background())
	require.NoError(t, err)
	first[0] = "mutated"

	second, err := caching.ListTables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "actor", second[0])
}

func TestCachingInspector_DescribeTables(t *testing.T) {
	source := tt.NewMockInspector()
	caching := NewCachingInspector(source)

	first, err := caching.DescribeTables(context.Background(), []string{"film"})
	require.NoError(t, err)
	second, err := caching.DescribeTables(context.Background(), []string{"film"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Contains(t, first, "CREATE TABLE film")
	assert.Equal(t, 1, source.DescribeCalls)
}

func TestCachingInspector_DescribeTables_PartialCache(t *testing.T) {
	source := tt.NewMockInspector()
	caching := NewCachingInspector(source)

	_, err := caching.DescribeTables(context.Background(), []string{"film", "actor"})
	require.NoError(t, err)
	assert.Equal(t, 2, source.DescribeCalls)

	// actor is cached; only category goes to the source.
	out, err := caching.DescribeTables(context.Background(), []string{"actor", "category"})
	require.NoError(t, err)

	assert.Contains(t, out, "CREATE TABLE actor")
	assert.Contains(t, out, "CREATE TABLE category")
	assert.Equal(t, 3, source.DescribeCalls)
}

func TestCachingInspector_DescribeTables_FailureNotCached(t *testing.T) {
	source := tt.NewMockInspector()
	caching := NewCachingInspector(source)

	_, err := caching.DescribeTables(context.Background(), []string{"filmx"})
	var failure *sqlagent.ToolFailure
	require.True(t, errors.As(err, &failure), "expected *ToolFailure, got %v", err)

	_, err = caching.DescribeTables(context.Background(), []string{"filmx"})
	require.Error(t, err)
	assert.Equal(t, 2, source.DescribeCalls)
}

func TestCachingInspector_DescribeTables_EmptyListDelegates(t *testing.T) {
	source := tt.NewMockInspector()
	caching := NewCachingInspector(source)

	_, err := caching.DescribeTables(context.Background(), nil)
	var failure *sqlagent.ToolFailure
	require.True(t, errors.As(err, &failure), "expected the source's empty-list failure, got %v", err)
	assert.Equal(t, "invalid_arguments", failure.Class)
	assert.Equal(t, 1, source.DescribeCalls)
}

func TestCachingInspector_DescribeTables_TrimsNames(t *testing.T) {
	source := tt.NewMockInspector()
	caching := NewCachingInspector(source)

	out, err := caching.DescribeTables(context.Background(), []string{"  film  "})
	require.NoError(t, err)
	assert.Contains(t, out, "CREATE TABLE film")

	_, err = caching.DescribeTables(context.Background(), []string{"film"})
	require.NoError(t, err)
	assert.Equal(t, 1, source.DescribeCalls)
}
