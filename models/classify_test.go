package models

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickchristie/sqlagent"
)

func TestClassifyErr(t *testing.T) {
	type input struct {
		err error
	}

	type expected struct {
		rateLimited bool
		retryAfter  time.Duration
		unavailable bool
		passthrough bool
	}

	tests := []struct {
		name     string
		input    input
		expected expected
	}{
		{
			name:     "nil stays nil",
			input:    input{err: nil},
			expected: expected{passthrough: true},
		},
		{
			name:     "429 status code",
			input:    input{err: errors.New("API returned unexpected status code: 429 quota exhausted")},
			expected: expected{rateLimited: true},
		},
		{
			name:     "rate limit phrasing",
			input:    input{err: errors.New("openrouter: rate limit exceeded, free-models-per-day")},
			expected: expected{rateLimited: true},
		},
		{
			name:     "too many requests",
			input:    input{err: errors.New("Too Many Requests")},
			expected: expected{rateLimited: true},
		},
		{
			name:     "429 with retry hint",
			input:    input{err: errors.New("status code: 429, please try again in 20 seconds")},
			expected: expected{rateLimited: true, retryAfter: 20 * time.Second},
		},
		{
			name:     "429 with Retry-After style hint",
			input:    input{err: errors.New("rate limit exceeded. Retry-After: 5")},
			expected: expected{rateLimited: true, retryAfter: 5 * time.Second},
		},
		{
			name:     "401 unauthorized",
			input:    input{err: errors.New("API returned unexpected status code: 401 invalid api key")},
			expected: expected{unavailable: true},
		},
		{
			name:     "503 service unavailable",
			input:    input{err: errors.New("API returned unexpected status code: 503")},
			expected: expected{unavailable: true},
		},
		{
			name:     "connection refused",
			input:    input{err: errors.New(`Post "https://openrouter.ai/api/v1/chat/completions": dial tcp: connection refused`)},
			expected: expected{unavailable: true},
		},
		{
			name:     "no such host",
			input:    input{err: errors.New("dial tcp: lookup api.openai.invalid: no such host")},
			expected: expected{unavailable: true},
		},
		{
			name:     "context canceled passes through",
			input:    input{err: context.Canceled},
			expected: expected{passthrough: true},
		},
		{
			name:     "deadline exceeded passes through",
			input:    input{err: fmt.Errorf("call: %w", context.DeadlineExceeded)},
			expected: expected{passthrough: true},
		},
		{
			name:     "unknown error passes through",
			input:    input{err: errors.New("invalid request: unsupported message role")},
			expected: expected{passthrough: true},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := ClassifyErr(test.input.err)

			if test.expected.rateLimited {
				var rateLimited *sqlagent.RateLimitError
				require.True(t, errors.As(got, &rateLimited),
					"expected *RateLimitError, got %v", got)
				assert.Equal(t, test.expected.retryAfter, rateLimited.RetryAfter)
				return
			}
			if test.expected.unavailable {
				assert.True(t, errors.Is(got, sqlagent.ErrProviderUnavailable),
					"expected ErrProviderUnavailable, got %v", got)
				return
			}
			assert.Equal(t, test.input.err, got)
		})
	}
}

func TestClassifyErr_Idempotent(t *testing.T) {
	first := ClassifyErr(errors.New("status code: 429"))
	second := ClassifyErr(first)
	assert.Equal(t, first, second)

	wrapped := ClassifyErr(fmt.Errorf("%w: boom", sqlagent.ErrProviderUnavailable))
	assert.True(t, errors.Is(wrapped, sqlagent.ErrProviderUnavailable))
}

func TestRetryAfterHint(t *testing.T) {
	type input struct {
		text string
	}

	type expected struct {
		hint time.Duration
	}

	tests := []struct {
		name     string
		input    input
		expected expected
	}{
		{
			name:     "seconds spelled out",
			input:    input{text: "please try again in 20 seconds"},
			expected: expected{hint: 20 * time.Second},
		},
		{
			name:     "bare number defaults to seconds",
			input:    input{text: "retry-after: 10"},
			expected: expected{hint: 10 * time.Second},
		},
		{
			name:     "milliseconds",
			input:    input{text: "retry after 500ms"},
			expected: expected{hint: 500 * time.Millisecond},
		},
		{
			name:     "minutes",
			input:    input{text: "try again in 2 minutes"},
			expected: expected{hint: 2 * time.Minute},
		},
		{
			name:     "short s unit",
			input:    input{text: "retry after 12s"},
			expected: expected{hint: 12 * time.Second},
		},
		{
			name:     "no hint",
			input:    input{text: "rate limit exceeded"},
			expected: expected{hint: 0},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected.hint, retryAfterHint(test.input.text))
		})
	}
}
